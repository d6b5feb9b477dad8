// Package storage provides the shared persistence layer for the cloud emulator.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package storage

import (
	"database/sql"

	"github.com/cloudemu/cloudemu/cmn"
)

type (
	Topic struct {
		Provider string
		Name     string
		ARN      string
	}

	Subscription struct {
		ARN      string
		Provider string
		TopicARN string
		Protocol string
		Endpoint string
	}

	// NotificationEnvelope is the JSON body delivered to subscribers.
	NotificationEnvelope struct {
		Type      string `json:"Type"`
		MessageID string `json:"MessageId"`
		TopicARN  string `json:"TopicArn"`
		Subject   string `json:"Subject,omitempty"`
		Message   string `json:"Message"`
		Timestamp string `json:"Timestamp"`
	}

	PublishResult struct {
		MessageID string
		Delivered int
		Audited   int
	}
)

func (s *Store) CreateTopic(provider, name, account, region string) (*Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &Topic{
		Provider: provider,
		Name:     name,
		ARN:      cmn.ARN("sns", region, account, name),
	}
	_, err := s.db.Exec(`INSERT INTO topics (provider, name, arn) VALUES (?, ?, ?)`,
		provider, name, t.ARN)
	if err != nil {
		return nil, writeErr(err, "Topic", name)
	}
	return t, nil
}

// CreateTopicWithResource is the dialect entry for providers whose topic
// identifier is a full resource name rather than an ARN.
func (s *Store) CreateTopicWithResource(provider, name, resource string) (*Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &Topic{Provider: provider, Name: name, ARN: resource}
	_, err := s.db.Exec(`INSERT INTO topics (provider, name, arn) VALUES (?, ?, ?)`,
		provider, name, resource)
	if err != nil {
		return nil, writeErr(err, "Topic", name)
	}
	return t, nil
}

func (s *Store) GetTopicByARN(arn string) (*Topic, error) {
	var t Topic
	err := s.db.QueryRow(`SELECT provider, name, arn FROM topics WHERE arn = ?`, arn).
		Scan(&t.Provider, &t.Name, &t.ARN)
	if err == sql.ErrNoRows {
		return nil, cmn.NewNotFound("Topic", arn)
	}
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	return &t, nil
}

func (s *Store) GetTopic(provider, name string) (*Topic, error) {
	var t Topic
	err := s.db.QueryRow(`SELECT provider, name, arn FROM topics WHERE provider = ? AND name = ?`,
		provider, name).Scan(&t.Provider, &t.Name, &t.ARN)
	if err == sql.ErrNoRows {
		return nil, cmn.NewNotFound("Topic", name)
	}
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	return &t, nil
}

func (s *Store) ListTopics(provider string) ([]*Topic, error) {
	rows, err := s.db.Query(`SELECT provider, name, arn FROM topics WHERE provider = ? ORDER BY name`,
		provider)
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	defer rows.Close()
	var topics []*Topic
	for rows.Next() {
		var t Topic
		if err := rows.Scan(&t.Provider, &t.Name, &t.ARN); err != nil {
			return nil, cmn.NewDatabase(err)
		}
		topics = append(topics, &t)
	}
	return topics, rows.Err()
}

func (s *Store) DeleteTopic(provider, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`DELETE FROM topics WHERE provider = ? AND name = ?`, provider, name)
	if err != nil {
		return cmn.NewDatabase(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cmn.NewNotFound("Topic", name)
	}
	return nil
}

// Subscribe requires an existing topic; the subscription ARN extends the
// topic ARN with a UUID.
func (s *Store) Subscribe(provider, topicARN, protocol, endpoint string) (*Subscription, error) {
	switch protocol {
	case "sqs", "http", "https", "email", "email-json", "sms", "lambda", "pull":
	default:
		return nil, cmn.NewInvalidArgument("unsupported subscription protocol: " + protocol)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.GetTopicByARN(topicARN); err != nil {
		return nil, err
	}
	sub := &Subscription{
		ARN:      topicARN + ":" + cmn.GenMessageID(),
		Provider: provider,
		TopicARN: topicARN,
		Protocol: protocol,
		Endpoint: endpoint,
	}
	_, err := s.db.Exec(`
		INSERT INTO subscriptions (arn, provider, topic_arn, protocol, endpoint)
		VALUES (?, ?, ?, ?, ?)`,
		sub.ARN, provider, topicARN, protocol, endpoint)
	if err != nil {
		return nil, writeErr(err, "Subscription", sub.ARN)
	}
	return sub, nil
}

func (s *Store) Unsubscribe(subscriptionARN string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`DELETE FROM subscriptions WHERE arn = ?`, subscriptionARN)
	if err != nil {
		return cmn.NewDatabase(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cmn.NewNotFound("Subscription", subscriptionARN)
	}
	return nil
}

func (s *Store) ListSubscriptions(provider string) ([]*Subscription, error) {
	return s.querySubscriptions(`SELECT arn, provider, topic_arn, protocol, endpoint
		FROM subscriptions WHERE provider = ? ORDER BY arn`, provider)
}

func (s *Store) ListSubscriptionsByTopic(topicARN string) ([]*Subscription, error) {
	return s.querySubscriptions(`SELECT arn, provider, topic_arn, protocol, endpoint
		FROM subscriptions WHERE topic_arn = ? ORDER BY arn`, topicARN)
}

func (s *Store) querySubscriptions(q string, arg any) ([]*Subscription, error) {
	rows, err := s.db.Query(q, arg)
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	defer rows.Close()
	var subs []*Subscription
	for rows.Next() {
		var sub Subscription
		if err := rows.Scan(&sub.ARN, &sub.Provider, &sub.TopicARN, &sub.Protocol,
			&sub.Endpoint); err != nil {
			return nil, cmn.NewDatabase(err)
		}
		subs = append(subs, &sub)
	}
	return subs, rows.Err()
}

// Publish fans the message out to every subscription. SQS endpoints go
// through the queue family's send operation so cross-service consistency
// rides the shared write-lock; every other protocol lands an audit row.
// Per-subscriber failures are recorded and the publish still succeeds.
func (s *Store) Publish(provider, topicARN, subject, message string) (*PublishResult, error) {
	if _, err := s.GetTopicByARN(topicARN); err != nil {
		return nil, err
	}
	subs, err := s.ListSubscriptionsByTopic(topicARN)
	if err != nil {
		return nil, err
	}
	res := &PublishResult{MessageID: cmn.GenMessageID()}
	envelope := &NotificationEnvelope{
		Type:      "Notification",
		MessageID: res.MessageID,
		TopicARN:  topicARN,
		Subject:   subject,
		Message:   message,
		Timestamp: cmn.NowISO(),
	}
	body, err := js.MarshalToString(envelope)
	if err != nil {
		return nil, cmn.NewJSON(err)
	}
	for _, sub := range subs {
		switch sub.Protocol {
		case "sqs", "pull":
			queueName := cmn.QueueNameFromEndpoint(sub.Endpoint)
			if sub.Protocol == "pull" {
				// Pull subscriptions name their backing queue directly.
				queueName = sub.Endpoint
			}
			if _, err := s.SendMessage(sub.Provider, queueName, body, 0); err != nil {
				s.log.Warnw("fan-out delivery failed",
					"topic", topicARN, "queue", queueName, "err", err)
				s.auditDelivery(res.MessageID, topicARN, sub, "FAILED")
				continue
			}
			res.Delivered++
		default:
			s.auditDelivery(res.MessageID, topicARN, sub, "RECORDED")
			res.Audited++
		}
	}
	return res, nil
}

func (s *Store) auditDelivery(messageID, topicARN string, sub *Subscription, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`
		INSERT INTO sns_deliveries (message_id, topic_arn, protocol, endpoint, delivered_at, status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		messageID, topicARN, sub.Protocol, sub.Endpoint, cmn.NowISO(), status); err != nil {
		s.log.Warnw("delivery audit", "topic", topicARN, "err", err)
	}
}

// ListDeliveries exposes the fan-out audit for tests and the dashboard.
func (s *Store) ListDeliveries(topicARN string) ([]map[string]string, error) {
	rows, err := s.db.Query(`
		SELECT message_id, protocol, endpoint, delivered_at, status
		FROM sns_deliveries WHERE topic_arn = ? ORDER BY id`, topicARN)
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	defer rows.Close()
	var out []map[string]string
	for rows.Next() {
		var id, proto, ep, at, status string
		if err := rows.Scan(&id, &proto, &ep, &at, &status); err != nil {
			return nil, cmn.NewDatabase(err)
		}
		out = append(out, map[string]string{
			"MessageId": id, "Protocol": proto, "Endpoint": ep,
			"DeliveredAt": at, "Status": status,
		})
	}
	return out, rows.Err()
}
