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

type (
	EventBus struct {
		Provider string
		Name     string
		ARN      string
		Policy   string
	}

	Rule struct {
		Provider           string
		EventBusName       string
		Name               string
		ARN                string
		EventPattern       string // opaque JSON
		State              string // ENABLED | DISABLED
		Description        string
		ScheduleExpression string
		CreatedAt          string
	}

	Target struct {
		Provider     string
		EventBusName string
		RuleName     string
		ID           string
		ARN          string
		Input        string
		InputPath    string
	}

	EventEntry struct {
		Source       string
		DetailType   string
		Detail       string // opaque JSON
		Resources    string // opaque JSON array
		EventBusName string
	}

	EventRecord struct {
		ID           string
		EventBusName string
		Source       string
		DetailType   string
		Time         string
		MatchedRules []string
	}
)

func (s *Store) CreateEventBus(provider, name, account, region string) (*EventBus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := &EventBus{
		Provider: provider,
		Name:     name,
		ARN:      cmn.ARN("events", region, account, "event-bus/"+name),
	}
	_, err := s.db.Exec(`INSERT INTO event_buses (provider, name, arn) VALUES (?, ?, ?)`,
		provider, name, b.ARN)
	if err != nil {
		return nil, writeErr(err, "EventBus", name)
	}
	return b, nil
}

func (s *Store) GetEventBus(provider, name string) (*EventBus, error) {
	var (
		b      EventBus
		policy sql.NullString
	)
	err := s.db.QueryRow(`SELECT provider, name, arn, policy FROM event_buses
		WHERE provider = ? AND name = ?`, provider, name).
		Scan(&b.Provider, &b.Name, &b.ARN, &policy)
	if err == sql.ErrNoRows {
		return nil, cmn.NewNotFound("EventBus", name)
	}
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	b.Policy = strOrEmpty(policy)
	return &b, nil
}

func (s *Store) ListEventBuses(provider string) ([]*EventBus, error) {
	rows, err := s.db.Query(`SELECT provider, name, arn, policy FROM event_buses
		WHERE provider = ? ORDER BY name`, provider)
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	defer rows.Close()
	var buses []*EventBus
	for rows.Next() {
		var (
			b      EventBus
			policy sql.NullString
		)
		if err := rows.Scan(&b.Provider, &b.Name, &b.ARN, &policy); err != nil {
			return nil, cmn.NewDatabase(err)
		}
		b.Policy = strOrEmpty(policy)
		buses = append(buses, &b)
	}
	return buses, rows.Err()
}

func (s *Store) DeleteEventBus(provider, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`DELETE FROM event_buses WHERE provider = ? AND name = ?`, provider, name)
	if err != nil {
		return cmn.NewDatabase(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cmn.NewNotFound("EventBus", name)
	}
	return nil
}

// PutRule upserts by (bus, name); every mutable field is overwritten on
// conflict, so repeating the call with the same inputs is a no-op.
func (s *Store) PutRule(provider string, r *Rule, account, region string) (*Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.EventBusName == "" {
		r.EventBusName = "default"
	}
	if _, err := s.GetEventBus(provider, r.EventBusName); err != nil {
		return nil, err
	}
	r.Provider = provider
	r.ARN = cmn.ARN("events", region, account, "rule/"+r.EventBusName+"/"+r.Name)
	if r.State == "" {
		r.State = "ENABLED"
	}
	r.CreatedAt = cmn.NowISO()
	_, err := s.db.Exec(`
		INSERT INTO event_rules (provider, event_bus_name, name, arn, event_pattern, state,
			description, schedule_expression, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider, event_bus_name, name) DO UPDATE SET
			event_pattern = excluded.event_pattern, state = excluded.state,
			description = excluded.description,
			schedule_expression = excluded.schedule_expression`,
		provider, r.EventBusName, r.Name, r.ARN, nullStr(r.EventPattern), r.State,
		nullStr(r.Description), nullStr(r.ScheduleExpression), r.CreatedAt)
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	return r, nil
}

const ruleCols = `provider, event_bus_name, name, arn, event_pattern, state,
	description, schedule_expression, created_at`

func scanRule(row interface{ Scan(...any) error }) (*Rule, error) {
	var (
		r                     Rule
		pattern, descr, sched sql.NullString
	)
	if err := row.Scan(&r.Provider, &r.EventBusName, &r.Name, &r.ARN, &pattern, &r.State,
		&descr, &sched, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.EventPattern, r.Description = strOrEmpty(pattern), strOrEmpty(descr)
	r.ScheduleExpression = strOrEmpty(sched)
	return &r, nil
}

func (s *Store) ListRules(provider, busName string) ([]*Rule, error) {
	if busName == "" {
		busName = "default"
	}
	rows, err := s.db.Query(`SELECT `+ruleCols+` FROM event_rules
		WHERE provider = ? AND event_bus_name = ? ORDER BY name`, provider, busName)
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	defer rows.Close()
	var rules []*Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, cmn.NewDatabase(err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func (s *Store) DeleteRule(provider, busName, name string) error {
	if busName == "" {
		busName = "default"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`DELETE FROM event_rules
		WHERE provider = ? AND event_bus_name = ? AND name = ?`, provider, busName, name)
	if err != nil {
		return cmn.NewDatabase(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cmn.NewNotFound("Rule", name)
	}
	return nil
}

// PutTargets upserts each target by (bus, rule, id).
func (s *Store) PutTargets(provider, busName, ruleName string, targets []*Target) error {
	if busName == "" {
		busName = "default"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var exists int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM event_rules
		WHERE provider = ? AND event_bus_name = ? AND name = ?`,
		provider, busName, ruleName).Scan(&exists)
	if err != nil {
		return cmn.NewDatabase(err)
	}
	if exists == 0 {
		return cmn.NewNotFound("Rule", ruleName)
	}
	for _, t := range targets {
		if _, err := s.db.Exec(`
			INSERT INTO event_targets (provider, event_bus_name, rule_name, id, arn, input, input_path)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (provider, event_bus_name, rule_name, id) DO UPDATE SET
				arn = excluded.arn, input = excluded.input, input_path = excluded.input_path`,
			provider, busName, ruleName, t.ID, t.ARN, nullStr(t.Input),
			nullStr(t.InputPath)); err != nil {
			return cmn.NewDatabase(err)
		}
	}
	return nil
}

func (s *Store) RemoveTargets(provider, busName, ruleName string, ids []string) error {
	if busName == "" {
		busName = "default"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if _, err := s.db.Exec(`DELETE FROM event_targets
			WHERE provider = ? AND event_bus_name = ? AND rule_name = ? AND id = ?`,
			provider, busName, ruleName, id); err != nil {
			return cmn.NewDatabase(err)
		}
	}
	return nil
}

func (s *Store) ListTargets(provider, busName, ruleName string) ([]*Target, error) {
	if busName == "" {
		busName = "default"
	}
	rows, err := s.db.Query(`
		SELECT provider, event_bus_name, rule_name, id, arn, input, input_path
		FROM event_targets
		WHERE provider = ? AND event_bus_name = ? AND rule_name = ? ORDER BY id`,
		provider, busName, ruleName)
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	defer rows.Close()
	var targets []*Target
	for rows.Next() {
		var (
			t           Target
			input, path sql.NullString
		)
		if err := rows.Scan(&t.Provider, &t.EventBusName, &t.RuleName, &t.ID, &t.ARN,
			&input, &path); err != nil {
			return nil, cmn.NewDatabase(err)
		}
		t.Input, t.InputPath = strOrEmpty(input), strOrEmpty(path)
		targets = append(targets, &t)
	}
	return targets, rows.Err()
}

// matchPattern applies the subset of event patterns the emulator honors:
// a JSON object whose "source" and "detail-type" entries are arrays of
// acceptable literals.
func matchPattern(pattern string, e *EventEntry) bool {
	if pattern == "" {
		return false
	}
	var p map[string]any
	if err := js.UnmarshalFromString(pattern, &p); err != nil {
		return false
	}
	contains := func(field string, value string) bool {
		raw, ok := p[field]
		if !ok {
			return true // unconstrained field
		}
		arr, ok := raw.([]any)
		if !ok {
			return false
		}
		for _, v := range arr {
			if sv, ok := v.(string); ok && sv == value {
				return true
			}
		}
		return false
	}
	return contains("source", e.Source) && contains("detail-type", e.DetailType)
}

// PutEvents appends each entry to the history with the names of the
// enabled rules whose patterns matched it.
func (s *Store) PutEvents(provider string, entries []*EventEntry) ([]*EventRecord, error) {
	var records []*EventRecord
	for _, e := range entries {
		busName := e.EventBusName
		if busName == "" {
			busName = "default"
		}
		rules, err := s.ListRules(provider, busName)
		if err != nil && !cmn.IsNotFound(err) {
			return nil, err
		}
		rec := &EventRecord{
			ID:           cmn.GenMessageID(),
			EventBusName: busName,
			Source:       e.Source,
			DetailType:   e.DetailType,
			Time:         cmn.NowISO(),
		}
		for _, r := range rules {
			if r.State == "ENABLED" && matchPattern(r.EventPattern, e) {
				rec.MatchedRules = append(rec.MatchedRules, r.Name)
			}
		}
		s.mu.Lock()
		_, err = s.db.Exec(`
			INSERT INTO event_history (id, provider, event_bus_name, source, detail_type,
				detail, time, resources, matched_rules)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, provider, busName, nullStr(e.Source), nullStr(e.DetailType),
			nullStr(e.Detail), rec.Time, nullStr(e.Resources),
			strings.Join(rec.MatchedRules, ","))
		s.mu.Unlock()
		if err != nil {
			return nil, cmn.NewDatabase(err)
		}
		records = append(records, rec)
	}
	return records, nil
}
