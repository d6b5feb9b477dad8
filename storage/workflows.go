// Package storage provides the shared persistence layer for the cloud emulator.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package storage

import (
	"database/sql"
	"strings"

	"github.com/cloudemu/cloudemu/cmn"
)

// Execution statuses.
const (
	ExecRunning   = "RUNNING"
	ExecSucceeded = "SUCCEEDED"
	ExecFailed    = "FAILED"
	ExecTimedOut  = "TIMED_OUT"
	ExecAborted   = "ABORTED"
)

type (
	StateMachine struct {
		ARN        string
		Name       string
		Definition string // opaque JSON, parseable by the interpreter
		RoleARN    string
		Type       string // STANDARD | EXPRESS
		CreatedAt  string
	}

	Execution struct {
		ARN             string
		StateMachineARN string
		Name            string
		Status          string
		Input           string
		Output          string
		StartDate       string
		StopDate        string
	}
)

func (s *Store) CreateStateMachine(name, definition, roleARN, machineType, account, region string) (*StateMachine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if machineType == "" {
		machineType = "STANDARD"
	}
	m := &StateMachine{
		ARN:        cmn.ARN("states", region, account, "stateMachine:"+name),
		Name:       name,
		Definition: definition,
		RoleARN:    roleARN,
		Type:       machineType,
		CreatedAt:  cmn.NowISO(),
	}
	_, err := s.db.Exec(`
		INSERT INTO sf_state_machines (arn, name, definition, role_arn, type, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ARN, name, definition, roleARN, machineType, m.CreatedAt)
	if err != nil {
		return nil, writeErr(err, "StateMachine", name)
	}
	return m, nil
}

func (s *Store) GetStateMachine(arn string) (*StateMachine, error) {
	var m StateMachine
	err := s.db.QueryRow(`
		SELECT arn, name, definition, role_arn, type, created_at
		FROM sf_state_machines WHERE arn = ?`, arn).
		Scan(&m.ARN, &m.Name, &m.Definition, &m.RoleARN, &m.Type, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, cmn.NewNotFound("StateMachine", arn)
	}
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	return &m, nil
}

func (s *Store) ListStateMachines() ([]*StateMachine, error) {
	rows, err := s.db.Query(`
		SELECT arn, name, definition, role_arn, type, created_at
		FROM sf_state_machines ORDER BY name`)
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	defer rows.Close()
	var machines []*StateMachine
	for rows.Next() {
		var m StateMachine
		if err := rows.Scan(&m.ARN, &m.Name, &m.Definition, &m.RoleARN, &m.Type,
			&m.CreatedAt); err != nil {
			return nil, cmn.NewDatabase(err)
		}
		machines = append(machines, &m)
	}
	return machines, rows.Err()
}

func (s *Store) DeleteStateMachine(arn string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`DELETE FROM sf_state_machines WHERE arn = ?`, arn)
	if err != nil {
		return cmn.NewDatabase(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cmn.NewNotFound("StateMachine", arn)
	}
	return nil
}

// StartExecution inserts the RUNNING row; the caller interprets the
// definition and finalizes via FinishExecution exactly once.
func (s *Store) StartExecution(stateMachineARN, name, input, account, region string) (*Execution, error) {
	m, err := s.GetStateMachine(stateMachineARN)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if name == "" {
		name = cmn.GenMessageID()
	}
	machineName := m.ARN[strings.LastIndexByte(m.ARN, ':')+1:]
	e := &Execution{
		ARN:             cmn.ARN("states", region, account, "execution:"+machineName+":"+name),
		StateMachineARN: stateMachineARN,
		Name:            name,
		Status:          ExecRunning,
		Input:           input,
		StartDate:       cmn.NowISO(),
	}
	_, err = s.db.Exec(`
		INSERT INTO sf_executions (arn, state_machine_arn, name, status, input, start_date)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ARN, stateMachineARN, name, e.Status, nullStr(input), e.StartDate)
	if err != nil {
		return nil, writeErr(err, "Execution", name)
	}
	return e, nil
}

// FinishExecution records the terminal status and output; stop_date is
// set iff the status is terminal.
func (s *Store) FinishExecution(arn, status, output string) error {
	var stop any
	switch status {
	case ExecSucceeded, ExecFailed, ExecTimedOut, ExecAborted:
		stop = cmn.NowISO()
	case ExecRunning:
		stop = nil
	default:
		return cmn.NewInvalidArgument("invalid execution status: " + status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`
		UPDATE sf_executions SET status = ?, output = ?, stop_date = ? WHERE arn = ?`,
		status, nullStr(output), stop, arn)
	if err != nil {
		return cmn.NewDatabase(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cmn.NewNotFound("Execution", arn)
	}
	return nil
}

func (s *Store) DescribeExecution(arn string) (*Execution, error) {
	var (
		e                  Execution
		input, output, stop sql.NullString
	)
	err := s.db.QueryRow(`
		SELECT arn, state_machine_arn, name, status, input, output, start_date, stop_date
		FROM sf_executions WHERE arn = ?`, arn).
		Scan(&e.ARN, &e.StateMachineARN, &e.Name, &e.Status, &input, &output, &e.StartDate, &stop)
	if err == sql.ErrNoRows {
		return nil, cmn.NewNotFound("Execution", arn)
	}
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	e.Input, e.Output, e.StopDate = strOrEmpty(input), strOrEmpty(output), strOrEmpty(stop)
	return &e, nil
}

func (s *Store) ListExecutions(stateMachineARN string) ([]*Execution, error) {
	rows, err := s.db.Query(`
		SELECT arn, state_machine_arn, name, status, input, output, start_date, stop_date
		FROM sf_executions WHERE state_machine_arn = ? ORDER BY start_date DESC`,
		stateMachineARN)
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	defer rows.Close()
	var execs []*Execution
	for rows.Next() {
		var (
			e                   Execution
			input, output, stop sql.NullString
		)
		if err := rows.Scan(&e.ARN, &e.StateMachineARN, &e.Name, &e.Status, &input, &output,
			&e.StartDate, &stop); err != nil {
			return nil, cmn.NewDatabase(err)
		}
		e.Input, e.Output, e.StopDate = strOrEmpty(input), strOrEmpty(output), strOrEmpty(stop)
		execs = append(execs, &e)
	}
	return execs, rows.Err()
}
