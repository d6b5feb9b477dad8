// Package storage provides the shared persistence layer for the cloud emulator.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package storage

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/cloudemu/cloudemu/cmn"
)

type (
	Queue struct {
		Provider           string
		Name               string
		URL                string
		ARN                string
		VisibilityTimeout  int
		RetentionSeconds   int
		DelaySeconds       int
		ReceiveWaitSeconds int
		CreatedAt          string
	}

	Message struct {
		ID            string
		QueueName     string
		Body          string
		MD5OfBody     string
		SentAt        string
		VisibleAt     int64 // unix seconds, for the availability index
		ReceiptHandle string
		ReceiveCount  int
	}
)

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// CreateQueue derives URL and ARN from the name. Attributes follow SQS
// naming (VisibilityTimeout, MessageRetentionPeriod, DelaySeconds,
// ReceiveMessageWaitTimeSeconds).
func (s *Store) CreateQueue(provider, name string, attrs map[string]string, account, region string) (*Queue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := &Queue{
		Provider:           provider,
		Name:               name,
		URL:                cmn.QueueURL(region, account, name),
		ARN:                cmn.ARN("sqs", region, account, name),
		VisibilityTimeout:  atoiDefault(attrs["VisibilityTimeout"], 30),
		RetentionSeconds:   atoiDefault(attrs["MessageRetentionPeriod"], 345600),
		DelaySeconds:       atoiDefault(attrs["DelaySeconds"], 0),
		ReceiveWaitSeconds: atoiDefault(attrs["ReceiveMessageWaitTimeSeconds"], 0),
		CreatedAt:          cmn.NowISO(),
	}
	_, err := s.db.Exec(`
		INSERT INTO queues (provider, name, url, arn, visibility_timeout, retention_seconds,
			delay_seconds, receive_wait_seconds, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		provider, name, q.URL, q.ARN, q.VisibilityTimeout, q.RetentionSeconds,
		q.DelaySeconds, q.ReceiveWaitSeconds, q.CreatedAt)
	if err != nil {
		return nil, writeErr(err, "Queue", name)
	}
	return q, nil
}

func (s *Store) GetQueue(provider, name string) (*Queue, error) {
	var q Queue
	err := s.db.QueryRow(`
		SELECT provider, name, url, arn, visibility_timeout, retention_seconds,
			delay_seconds, receive_wait_seconds, created_at
		FROM queues WHERE provider = ? AND name = ?`, provider, name).
		Scan(&q.Provider, &q.Name, &q.URL, &q.ARN, &q.VisibilityTimeout, &q.RetentionSeconds,
			&q.DelaySeconds, &q.ReceiveWaitSeconds, &q.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, cmn.NewNotFound("Queue", name)
	}
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	return &q, nil
}

func (s *Store) ListQueues(provider, prefix string) ([]*Queue, error) {
	rows, err := s.db.Query(`
		SELECT provider, name, url, arn, visibility_timeout, retention_seconds,
			delay_seconds, receive_wait_seconds, created_at
		FROM queues WHERE provider = ? AND name LIKE ? ESCAPE '\' ORDER BY name`,
		provider, likePattern(prefix))
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	defer rows.Close()
	var queues []*Queue
	for rows.Next() {
		var q Queue
		if err := rows.Scan(&q.Provider, &q.Name, &q.URL, &q.ARN, &q.VisibilityTimeout,
			&q.RetentionSeconds, &q.DelaySeconds, &q.ReceiveWaitSeconds, &q.CreatedAt); err != nil {
			return nil, cmn.NewDatabase(err)
		}
		queues = append(queues, &q)
	}
	return queues, rows.Err()
}

func (s *Store) DeleteQueue(provider, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`DELETE FROM queues WHERE provider = ? AND name = ?`, provider, name)
	if err != nil {
		return cmn.NewDatabase(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cmn.NewNotFound("Queue", name)
	}
	return nil
}

func (s *Store) PurgeQueue(provider, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.GetQueue(provider, name); err != nil {
		return err
	}
	if _, err := s.db.Exec(`
		DELETE FROM queue_messages WHERE provider = ? AND queue_name = ?`,
		provider, name); err != nil {
		return cmn.NewDatabase(err)
	}
	return nil
}

// SendMessage enqueues; the message becomes visible after the queue (or
// per-message) delay.
func (s *Store) SendMessage(provider, queueName, body string, delaySeconds int) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.GetQueue(provider, queueName)
	if err != nil {
		return nil, err
	}
	if delaySeconds <= 0 {
		delaySeconds = q.DelaySeconds
	}
	m := &Message{
		ID:        cmn.GenMessageID(),
		QueueName: queueName,
		Body:      body,
		MD5OfBody: md5Hex([]byte(body)),
		SentAt:    cmn.NowISO(),
		VisibleAt: time.Now().Unix() + int64(delaySeconds),
	}
	_, err = s.db.Exec(`
		INSERT INTO queue_messages (id, provider, queue_name, body, body_md5, sent_at, visible_at, receive_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		m.ID, provider, queueName, body, m.MD5OfBody, m.SentAt, m.VisibleAt)
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	return m, nil
}

// ReceiveMessages selects up to max visible messages and atomically
// stamps each with a fresh receipt handle and a pushed-out visible_at.
// An empty queue yields an empty batch, not an error.
func (s *Store) ReceiveMessages(provider, queueName string, max int) ([]*Message, error) {
	if max <= 0 {
		max = 1
	}
	if max > 10 {
		max = 10
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.GetQueue(provider, queueName)
	if err != nil {
		return nil, err
	}
	now := time.Now().Unix()
	rows, err := s.db.Query(`
		SELECT id, body, body_md5, sent_at, receive_count FROM queue_messages
		WHERE provider = ? AND queue_name = ? AND visible_at <= ?
		ORDER BY sent_at LIMIT ?`,
		provider, queueName, now, max)
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	var batch []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Body, &m.MD5OfBody, &m.SentAt, &m.ReceiveCount); err != nil {
			rows.Close()
			return nil, cmn.NewDatabase(err)
		}
		m.QueueName = queueName
		batch = append(batch, &m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, cmn.NewDatabase(err)
	}
	for _, m := range batch {
		m.ReceiptHandle = m.ID + "." + cmn.GenID()
		m.ReceiveCount++
		m.VisibleAt = now + int64(q.VisibilityTimeout)
		if _, err := s.db.Exec(`
			UPDATE queue_messages
			SET receipt_handle = ?, visible_at = ?, receive_count = receive_count + 1
			WHERE id = ?`,
			m.ReceiptHandle, m.VisibleAt, m.ID); err != nil {
			return nil, cmn.NewDatabase(err)
		}
	}
	return batch, nil
}

// DeleteMessage removes by receipt handle; an unknown handle is an error
// with no effect.
func (s *Store) DeleteMessage(provider, queueName, receiptHandle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.GetQueue(provider, queueName); err != nil {
		return err
	}
	res, err := s.db.Exec(`
		DELETE FROM queue_messages
		WHERE provider = ? AND queue_name = ? AND receipt_handle = ?`,
		provider, queueName, receiptHandle)
	if err != nil {
		return cmn.NewDatabase(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cmn.NewNotFound("ReceiptHandle", receiptHandle)
	}
	return nil
}

func (s *Store) ChangeMessageVisibility(provider, queueName, receiptHandle string, timeout int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.GetQueue(provider, queueName); err != nil {
		return err
	}
	res, err := s.db.Exec(`
		UPDATE queue_messages SET visible_at = ?
		WHERE provider = ? AND queue_name = ? AND receipt_handle = ?`,
		time.Now().Unix()+int64(timeout), provider, queueName, receiptHandle)
	if err != nil {
		return cmn.NewDatabase(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cmn.NewNotFound("ReceiptHandle", receiptHandle)
	}
	return nil
}

// QueueDepth reports visible and in-flight message counts; a delayed
// message that is not yet visible counts as in flight.
func (s *Store) QueueDepth(provider, queueName string) (visible, inflight int, _ error) {
	if _, err := s.GetQueue(provider, queueName); err != nil {
		return 0, 0, err
	}
	now := time.Now().Unix()
	err := s.db.QueryRow(`
		SELECT
			COUNT(CASE WHEN visible_at <= ? THEN 1 END),
			COUNT(CASE WHEN visible_at > ? THEN 1 END)
		FROM queue_messages WHERE provider = ? AND queue_name = ?`,
		now, now, provider, queueName).Scan(&visible, &inflight)
	if err != nil {
		return 0, 0, cmn.NewDatabase(err)
	}
	return visible, inflight, nil
}
