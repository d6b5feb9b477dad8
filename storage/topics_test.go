// Package storage provides the shared persistence layer for the cloud emulator.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package storage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cloudemu/cloudemu/cmn"
)

func TestPublishFansOutToQueue(t *testing.T) {
	s := newTestStore(t)
	topic, err := s.CreateTopic(ProviderAWS, "t", "000000000000", "us-east-1")
	require.NoError(t, err)
	q := mkQueue(t, s, "q")

	_, err = s.Subscribe(ProviderAWS, topic.ARN, "sqs", q.ARN)
	require.NoError(t, err)

	res, err := s.Publish(ProviderAWS, topic.ARN, "greeting", "hi")
	require.NoError(t, err)
	require.NotEmpty(t, res.MessageID)
	require.Equal(t, 1, res.Delivered)

	batch, err := s.ReceiveMessages(ProviderAWS, "q", 1)
	require.NoError(t, err)
	require.Len(t, batch, 1)

	var envelope NotificationEnvelope
	require.NoError(t, js.UnmarshalFromString(batch[0].Body, &envelope))
	require.Equal(t, "Notification", envelope.Type)
	require.Equal(t, "hi", envelope.Message)
	require.Equal(t, topic.ARN, envelope.TopicARN)
	require.Equal(t, res.MessageID, envelope.MessageID)
	require.NotEmpty(t, envelope.Timestamp)
}

func TestPublishAuditsNonQueueProtocols(t *testing.T) {
	s := newTestStore(t)
	topic, err := s.CreateTopic(ProviderAWS, "t", "000000000000", "us-east-1")
	require.NoError(t, err)

	_, err = s.Subscribe(ProviderAWS, topic.ARN, "https", "https://example.com/hook")
	require.NoError(t, err)
	_, err = s.Subscribe(ProviderAWS, topic.ARN, "email", "ops@example.com")
	require.NoError(t, err)

	res, err := s.Publish(ProviderAWS, topic.ARN, "", "msg")
	require.NoError(t, err)
	require.Zero(t, res.Delivered)
	require.Equal(t, 2, res.Audited)

	deliveries, err := s.ListDeliveries(topic.ARN)
	require.NoError(t, err)
	require.Len(t, deliveries, 2)
	for _, d := range deliveries {
		require.Equal(t, "RECORDED", d["Status"])
	}
}

func TestPublishSurvivesBrokenSubscriber(t *testing.T) {
	s := newTestStore(t)
	topic, err := s.CreateTopic(ProviderAWS, "t", "000000000000", "us-east-1")
	require.NoError(t, err)
	q := mkQueue(t, s, "good")

	_, err = s.Subscribe(ProviderAWS, topic.ARN, "sqs", "arn:aws:sqs:us-east-1:000000000000:missing")
	require.NoError(t, err)
	_, err = s.Subscribe(ProviderAWS, topic.ARN, "sqs", q.ARN)
	require.NoError(t, err)

	res, err := s.Publish(ProviderAWS, topic.ARN, "", "msg")
	require.NoError(t, err)
	require.Equal(t, 1, res.Delivered)

	batch, err := s.ReceiveMessages(ProviderAWS, "good", 1)
	require.NoError(t, err)
	require.Len(t, batch, 1)
}

func TestSubscribeRequiresTopic(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Subscribe(ProviderAWS, "arn:aws:sns:us-east-1:000000000000:nope", "sqs", "e")
	require.Equal(t, cmn.KindNotFound, cmn.KindOf(err))
}

func TestUnsubscribeAndCascade(t *testing.T) {
	s := newTestStore(t)
	topic, err := s.CreateTopic(ProviderAWS, "t", "000000000000", "us-east-1")
	require.NoError(t, err)
	sub, err := s.Subscribe(ProviderAWS, topic.ARN, "sqs", "arn:aws:sqs:us-east-1:000000000000:q")
	require.NoError(t, err)

	require.NoError(t, s.Unsubscribe(sub.ARN))
	err = s.Unsubscribe(sub.ARN)
	require.Equal(t, cmn.KindNotFound, cmn.KindOf(err))

	// Cascade on topic delete.
	sub2, err := s.Subscribe(ProviderAWS, topic.ARN, "sqs", "arn:aws:sqs:us-east-1:000000000000:q")
	require.NoError(t, err)
	require.NoError(t, s.DeleteTopic(ProviderAWS, "t"))
	subs, err := s.ListSubscriptionsByTopic(topic.ARN)
	require.NoError(t, err)
	require.Empty(t, subs)
	_ = sub2
}

func TestInvalidProtocolRejected(t *testing.T) {
	s := newTestStore(t)
	topic, err := s.CreateTopic(ProviderAWS, "t", "000000000000", "us-east-1")
	require.NoError(t, err)
	_, err = s.Subscribe(ProviderAWS, topic.ARN, "carrier-pigeon", "coop")
	require.Equal(t, cmn.KindInvalidArgument, cmn.KindOf(err))
}
