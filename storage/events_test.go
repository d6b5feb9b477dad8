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

func mkBus(t *testing.T, s *Store, name string) *EventBus {
	t.Helper()
	bus, err := s.CreateEventBus(ProviderAWS, name, "000000000000", "us-east-1")
	require.NoError(t, err)
	return bus
}

func TestPutRuleIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	mkBus(t, s, "default")

	r := &Rule{Name: "r", EventPattern: `{"source":["aws.ec2"]}`}
	first, err := s.PutRule(ProviderAWS, r, "000000000000", "us-east-1")
	require.NoError(t, err)

	again, err := s.PutRule(ProviderAWS, &Rule{
		Name: "r", EventPattern: `{"source":["aws.ec2"]}`,
	}, "000000000000", "us-east-1")
	require.NoError(t, err)
	require.Equal(t, first.ARN, again.ARN)

	rules, err := s.ListRules(ProviderAWS, "default")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	require.Equal(t, `{"source":["aws.ec2"]}`, rules[0].EventPattern)
	require.Equal(t, "ENABLED", rules[0].State)
}

func TestPutRuleRequiresBus(t *testing.T) {
	s := newTestStore(t)
	_, err := s.PutRule(ProviderAWS, &Rule{Name: "r", EventBusName: "missing"},
		"000000000000", "us-east-1")
	require.Equal(t, cmn.KindNotFound, cmn.KindOf(err))
}

func TestPutTargetsUpsertAndList(t *testing.T) {
	s := newTestStore(t)
	mkBus(t, s, "default")
	_, err := s.PutRule(ProviderAWS, &Rule{Name: "r"}, "000000000000", "us-east-1")
	require.NoError(t, err)

	targets := []*Target{
		{ID: "t1", ARN: "arn:aws:lambda:us-east-1:000000000000:function:f1"},
		{ID: "t2", ARN: "arn:aws:lambda:us-east-1:000000000000:function:f2"},
	}
	require.NoError(t, s.PutTargets(ProviderAWS, "default", "r", targets))

	got, err := s.ListTargets(ProviderAWS, "default", "r")
	require.NoError(t, err)
	require.Len(t, got, 2)
	ids := map[string]bool{}
	for _, tg := range got {
		ids[tg.ID] = true
	}
	require.True(t, ids["t1"] && ids["t2"])

	// Upsert overwrites the target ARN for an existing id.
	require.NoError(t, s.PutTargets(ProviderAWS, "default", "r", []*Target{
		{ID: "t1", ARN: "arn:aws:lambda:us-east-1:000000000000:function:f1-v2"},
	}))
	got, err = s.ListTargets(ProviderAWS, "default", "r")
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.NoError(t, s.RemoveTargets(ProviderAWS, "default", "r", []string{"t1"}))
	got, err = s.ListTargets(ProviderAWS, "default", "r")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "t2", got[0].ID)
}

func TestPutTargetsRequiresRule(t *testing.T) {
	s := newTestStore(t)
	mkBus(t, s, "default")
	err := s.PutTargets(ProviderAWS, "default", "missing", []*Target{{ID: "t", ARN: "a"}})
	require.Equal(t, cmn.KindNotFound, cmn.KindOf(err))
}

func TestPutEventsRecordsMatchedRules(t *testing.T) {
	s := newTestStore(t)
	mkBus(t, s, "default")
	_, err := s.PutRule(ProviderAWS, &Rule{
		Name: "ec2-rule", EventPattern: `{"source":["aws.ec2"]}`,
	}, "000000000000", "us-east-1")
	require.NoError(t, err)
	_, err = s.PutRule(ProviderAWS, &Rule{
		Name: "s3-rule", EventPattern: `{"source":["aws.s3"]}`,
	}, "000000000000", "us-east-1")
	require.NoError(t, err)
	_, err = s.PutRule(ProviderAWS, &Rule{
		Name: "disabled-rule", EventPattern: `{"source":["aws.ec2"]}`, State: "DISABLED",
	}, "000000000000", "us-east-1")
	require.NoError(t, err)

	records, err := s.PutEvents(ProviderAWS, []*EventEntry{
		{Source: "aws.ec2", DetailType: "EC2 Instance State-change", Detail: `{"state":"running"}`},
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, []string{"ec2-rule"}, records[0].MatchedRules)
}

func TestBusCascadeDeletesRulesAndTargets(t *testing.T) {
	s := newTestStore(t)
	mkBus(t, s, "b")
	_, err := s.PutRule(ProviderAWS, &Rule{Name: "r", EventBusName: "b"},
		"000000000000", "us-east-1")
	require.NoError(t, err)
	require.NoError(t, s.PutTargets(ProviderAWS, "b", "r", []*Target{{ID: "t", ARN: "a"}}))

	require.NoError(t, s.DeleteEventBus(ProviderAWS, "b"))
	rules, err := s.ListRules(ProviderAWS, "b")
	require.NoError(t, err)
	require.Empty(t, rules)
	targets, err := s.ListTargets(ProviderAWS, "b", "r")
	require.NoError(t, err)
	require.Empty(t, targets)
}
