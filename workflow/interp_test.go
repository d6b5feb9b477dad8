// Package workflow parses and interprets state-machine definitions.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRejectsBadDefinitions(t *testing.T) {
	cases := []string{
		`not json`,
		`{}`,
		`{"StartAt":"A"}`,
		`{"StartAt":"missing","States":{"A":{"Type":"Pass","End":true}}}`,
		`{"StartAt":"A","States":{"A":{"Type":"Parallel","End":true}}}`,
	}
	for _, def := range cases {
		_, err := Parse(def)
		require.Error(t, err, def)
	}
}

func TestPassChainSucceedsWithInput(t *testing.T) {
	m, err := Parse(`{"StartAt":"A","States":{
		"A":{"Type":"Pass","Next":"B"},
		"B":{"Type":"Pass","End":true}}}`)
	require.NoError(t, err)

	res := Interpret(m, `{"hello":"world"}`)
	require.Equal(t, "SUCCEEDED", res.Status)
	require.JSONEq(t, `{"hello":"world"}`, res.Output)
}

func TestPassResultReplacesInput(t *testing.T) {
	m, err := Parse(`{"StartAt":"A","States":{
		"A":{"Type":"Pass","Result":{"fixed":true},"End":true}}}`)
	require.NoError(t, err)

	res := Interpret(m, `{"ignored":1}`)
	require.Equal(t, "SUCCEEDED", res.Status)
	require.JSONEq(t, `{"fixed":true}`, res.Output)
}

func TestUnknownTaskResourceSucceedsWithInput(t *testing.T) {
	m, err := Parse(`{"StartAt":"T","States":{
		"T":{"Type":"Task","Resource":"arn:aws:lambda:us-east-1:000000000000:function:nope","End":true}}}`)
	require.NoError(t, err)

	res := Interpret(m, `{"x":1}`)
	require.Equal(t, "SUCCEEDED", res.Status)
	require.JSONEq(t, `{"x":1}`, res.Output)
}

func TestWaitCompletesInstantly(t *testing.T) {
	m, err := Parse(`{"StartAt":"W","States":{
		"W":{"Type":"Wait","Seconds":3600,"Next":"S"},
		"S":{"Type":"Succeed"}}}`)
	require.NoError(t, err)
	require.Equal(t, "SUCCEEDED", Interpret(m, "{}").Status)
}

func TestFailState(t *testing.T) {
	m, err := Parse(`{"StartAt":"F","States":{
		"F":{"Type":"Fail","Error":"Custom.Error","Cause":"went sideways"}}}`)
	require.NoError(t, err)

	res := Interpret(m, "{}")
	require.Equal(t, "FAILED", res.Status)
	require.Equal(t, "Custom.Error", res.Error)
	require.Equal(t, "went sideways", res.Cause)
}

func TestChoiceRouting(t *testing.T) {
	def := `{"StartAt":"C","States":{
		"C":{"Type":"Choice","Choices":[
			{"Variable":"$.kind","StringEquals":"ok","Next":"Good"},
			{"Variable":"$.count","NumericGreaterThan":10,"Next":"Good"}
		],"Default":"Bad"},
		"Good":{"Type":"Succeed"},
		"Bad":{"Type":"Fail","Error":"States.Bad"}}}`
	m, err := Parse(def)
	require.NoError(t, err)

	require.Equal(t, "SUCCEEDED", Interpret(m, `{"kind":"ok"}`).Status)
	require.Equal(t, "SUCCEEDED", Interpret(m, `{"count":11}`).Status)
	require.Equal(t, "FAILED", Interpret(m, `{"kind":"nope","count":1}`).Status)
}

func TestChoiceWithoutDefaultFails(t *testing.T) {
	m, err := Parse(`{"StartAt":"C","States":{
		"C":{"Type":"Choice","Choices":[
			{"Variable":"$.x","BooleanEquals":true,"Next":"S"}]},
		"S":{"Type":"Succeed"}}}`)
	require.NoError(t, err)

	res := Interpret(m, `{"x":false}`)
	require.Equal(t, "FAILED", res.Status)
	require.Equal(t, "States.NoChoiceMatched", res.Error)
}

func TestNestedPathLookup(t *testing.T) {
	m, err := Parse(`{"StartAt":"C","States":{
		"C":{"Type":"Choice","Choices":[
			{"Variable":"$.meta.env","StringEquals":"prod","Next":"S"}],"Default":"F"},
		"S":{"Type":"Succeed"},
		"F":{"Type":"Fail"}}}`)
	require.NoError(t, err)
	require.Equal(t, "SUCCEEDED", Interpret(m, `{"meta":{"env":"prod"}}`).Status)
}

func TestCyclicDefinitionTerminates(t *testing.T) {
	m, err := Parse(`{"StartAt":"A","States":{
		"A":{"Type":"Pass","Next":"B"},
		"B":{"Type":"Pass","Next":"A"}}}`)
	require.NoError(t, err)

	res := Interpret(m, "{}")
	require.Equal(t, "FAILED", res.Status)
	require.Equal(t, "States.Runtime", res.Error)
}

func TestEmptyInputDefaultsToEmptyObject(t *testing.T) {
	m, err := Parse(`{"StartAt":"A","States":{"A":{"Type":"Pass","End":true}}}`)
	require.NoError(t, err)

	res := Interpret(m, "")
	require.Equal(t, "SUCCEEDED", res.Status)
	require.JSONEq(t, `{}`, res.Output)
}
