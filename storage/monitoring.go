// Package storage provides the shared persistence layer for the cloud emulator.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package storage

import (
	"github.com/cloudemu/cloudemu/cmn"
)

type (
	MetricDatum struct {
		Namespace  string
		MetricName string
		Dimensions string // opaque JSON
		Value      float64
		Unit       string
		Timestamp  string
	}

	LogGroup struct {
		Name      string
		CreatedAt string
	}

	LogStream struct {
		GroupName string
		Name      string
		CreatedAt string
	}

	LogEvent struct {
		Timestamp int64 // unix milliseconds
		Message   string
	}
)

// PutMetricData appends rows; nothing is aggregated.
func (s *Store) PutMetricData(namespace string, data []*MetricDatum) error {
	if namespace == "" {
		return cmn.NewInvalidArgument("Namespace is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range data {
		ts := d.Timestamp
		if ts == "" {
			ts = cmn.NowISO()
		}
		if _, err := s.db.Exec(`
			INSERT INTO metric_data (namespace, metric_name, dimensions, value, unit, timestamp)
			VALUES (?, ?, ?, ?, ?, ?)`,
			namespace, d.MetricName, nullStr(d.Dimensions), d.Value, nullStr(d.Unit),
			ts); err != nil {
			return cmn.NewDatabase(err)
		}
	}
	return nil
}

// ListMetrics filters dynamically by namespace and/or metric name; rows
// are deduplicated per (namespace, name, dimensions).
func (s *Store) ListMetrics(namespace, metricName string) ([]*MetricDatum, error) {
	q := `SELECT DISTINCT namespace, metric_name, COALESCE(dimensions, '') FROM metric_data`
	var (
		conds []string
		args  []any
	)
	if namespace != "" {
		conds = append(conds, "namespace = ?")
		args = append(args, namespace)
	}
	if metricName != "" {
		conds = append(conds, "metric_name = ?")
		args = append(args, metricName)
	}
	for i, c := range conds {
		if i == 0 {
			q += " WHERE " + c
		} else {
			q += " AND " + c
		}
	}
	q += " ORDER BY namespace, metric_name"
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	defer rows.Close()
	var metrics []*MetricDatum
	for rows.Next() {
		var m MetricDatum
		if err := rows.Scan(&m.Namespace, &m.MetricName, &m.Dimensions); err != nil {
			return nil, cmn.NewDatabase(err)
		}
		metrics = append(metrics, &m)
	}
	return metrics, rows.Err()
}

func (s *Store) CreateLogGroup(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT INTO log_groups (name, created_at) VALUES (?, ?)`,
		name, cmn.NowISO())
	if err != nil {
		return writeErr(err, "LogGroup", name)
	}
	return nil
}

func (s *Store) DeleteLogGroup(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`DELETE FROM log_groups WHERE name = ?`, name)
	if err != nil {
		return cmn.NewDatabase(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cmn.NewNotFound("LogGroup", name)
	}
	return nil
}

func (s *Store) ListLogGroups(prefix string) ([]*LogGroup, error) {
	rows, err := s.db.Query(`SELECT name, created_at FROM log_groups
		WHERE name LIKE ? ESCAPE '\' ORDER BY name`, likePattern(prefix))
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	defer rows.Close()
	var groups []*LogGroup
	for rows.Next() {
		var g LogGroup
		if err := rows.Scan(&g.Name, &g.CreatedAt); err != nil {
			return nil, cmn.NewDatabase(err)
		}
		groups = append(groups, &g)
	}
	return groups, rows.Err()
}

func (s *Store) CreateLogStream(groupName, streamName string) error {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM log_groups WHERE name = ?`,
		groupName).Scan(&n); err != nil {
		return cmn.NewDatabase(err)
	}
	if n == 0 {
		return cmn.NewNotFound("LogGroup", groupName)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT INTO log_streams (group_name, name, created_at) VALUES (?, ?, ?)`,
		groupName, streamName, cmn.NowISO())
	if err != nil {
		return writeErr(err, "LogStream", streamName)
	}
	return nil
}

// PutLogEvents appends to an existing (group, stream); append-only.
func (s *Store) PutLogEvents(groupName, streamName string, events []*LogEvent) error {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM log_streams WHERE group_name = ? AND name = ?`,
		groupName, streamName).Scan(&n); err != nil {
		return cmn.NewDatabase(err)
	}
	if n == 0 {
		return cmn.NewNotFound("LogStream", streamName)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		if _, err := s.db.Exec(`
			INSERT INTO log_events (group_name, stream_name, timestamp, message)
			VALUES (?, ?, ?, ?)`,
			groupName, streamName, e.Timestamp, e.Message); err != nil {
			return cmn.NewDatabase(err)
		}
	}
	return nil
}

func (s *Store) GetLogEvents(groupName, streamName string, limit int) ([]*LogEvent, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM log_streams WHERE group_name = ? AND name = ?`,
		groupName, streamName).Scan(&n); err != nil {
		return nil, cmn.NewDatabase(err)
	}
	if n == 0 {
		return nil, cmn.NewNotFound("LogStream", streamName)
	}
	if limit <= 0 {
		limit = 10000
	}
	rows, err := s.db.Query(`
		SELECT timestamp, message FROM log_events
		WHERE group_name = ? AND stream_name = ? ORDER BY timestamp, id LIMIT ?`,
		groupName, streamName, limit)
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	defer rows.Close()
	var events []*LogEvent
	for rows.Next() {
		var e LogEvent
		if err := rows.Scan(&e.Timestamp, &e.Message); err != nil {
			return nil, cmn.NewDatabase(err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
