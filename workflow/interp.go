// Package workflow parses and interprets state-machine definitions: a JSON
// document with a StartAt state and a States map of Pass, Task, Choice,
// Wait, Succeed and Fail states.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package workflow

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var js = jsoniter.ConfigCompatibleWithStandardLibrary

// maxTransitions bounds runaway definitions (cyclic Next chains).
const maxTransitions = 1000

type (
	Machine struct {
		Comment string           `json:"Comment"`
		StartAt string           `json:"StartAt"`
		States  map[string]State `json:"States"`
	}

	State struct {
		Type    string   `json:"Type"`
		Next    string   `json:"Next"`
		End     bool     `json:"End"`
		Result  any      `json:"Result"`
		Resource string  `json:"Resource"`
		Seconds float64  `json:"Seconds"`
		Choices []Choice `json:"Choices"`
		Default string   `json:"Default"`
		Error   string   `json:"Error"`
		Cause   string   `json:"Cause"`
	}

	Choice struct {
		Variable           string   `json:"Variable"`
		StringEquals       *string  `json:"StringEquals"`
		NumericEquals      *float64 `json:"NumericEquals"`
		NumericGreaterThan *float64 `json:"NumericGreaterThan"`
		NumericLessThan    *float64 `json:"NumericLessThan"`
		BooleanEquals      *bool    `json:"BooleanEquals"`
		Next               string   `json:"Next"`
	}

	// Result is the outcome of one synchronous interpretation.
	Result struct {
		Status string // SUCCEEDED | FAILED
		Output string
		Error  string
		Cause  string
	}
)

// Parse validates the definition enough for the interpreter to run it.
func Parse(definition string) (*Machine, error) {
	var m Machine
	if err := js.UnmarshalFromString(definition, &m); err != nil {
		return nil, fmt.Errorf("definition is not valid JSON: %w", err)
	}
	if m.StartAt == "" {
		return nil, fmt.Errorf("definition is missing StartAt")
	}
	if len(m.States) == 0 {
		return nil, fmt.Errorf("definition is missing States")
	}
	if _, ok := m.States[m.StartAt]; !ok {
		return nil, fmt.Errorf("StartAt names an unknown state: %s", m.StartAt)
	}
	for name, st := range m.States {
		switch st.Type {
		case "Pass", "Task", "Wait", "Succeed", "Fail", "Choice":
		default:
			return nil, fmt.Errorf("state %s has unsupported type %q", name, st.Type)
		}
	}
	return &m, nil
}

// Interpret runs the machine synchronously over the input document. Pass
// states forward (or replace) their input, Task states succeed with their
// input unchanged (no Resource is invoked), Wait completes instantly,
// Choice evaluates its declared conditions, Succeed and Fail terminate.
func Interpret(m *Machine, input string) *Result {
	if strings.TrimSpace(input) == "" {
		input = "{}"
	}
	var doc any
	if err := js.UnmarshalFromString(input, &doc); err != nil {
		doc = map[string]any{}
	}
	current := m.StartAt
	for i := 0; i < maxTransitions; i++ {
		st, ok := m.States[current]
		if !ok {
			return &Result{Status: "FAILED", Error: "States.Runtime",
				Cause: "transition to unknown state: " + current}
		}
		switch st.Type {
		case "Pass":
			if st.Result != nil {
				doc = st.Result
			}
		case "Task":
			// The Resource is not resolved or invoked, whatever its ARN;
			// the state succeeds with its input unchanged.
		case "Wait":
			// The emulator completes waits instantly.
		case "Succeed":
			return succeed(doc)
		case "Fail":
			errName := st.Error
			if errName == "" {
				errName = "States.Fail"
			}
			return &Result{Status: "FAILED", Error: errName, Cause: st.Cause}
		case "Choice":
			next := evalChoice(st, doc)
			if next == "" {
				return &Result{Status: "FAILED", Error: "States.NoChoiceMatched",
					Cause: "no choice rule matched and no Default is set"}
			}
			current = next
			continue
		}
		if st.End || st.Next == "" {
			return succeed(doc)
		}
		current = st.Next
	}
	return &Result{Status: "FAILED", Error: "States.Runtime",
		Cause: "transition limit exceeded"}
}

func succeed(doc any) *Result {
	out, err := js.MarshalToString(doc)
	if err != nil {
		out = "{}"
	}
	return &Result{Status: "SUCCEEDED", Output: out}
}

func evalChoice(st State, doc any) string {
	for _, c := range st.Choices {
		if choiceMatches(c, doc) {
			return c.Next
		}
	}
	return st.Default
}

func choiceMatches(c Choice, doc any) bool {
	v, ok := lookupPath(doc, c.Variable)
	if !ok {
		return false
	}
	switch {
	case c.StringEquals != nil:
		s, ok := v.(string)
		return ok && s == *c.StringEquals
	case c.NumericEquals != nil:
		n, ok := v.(float64)
		return ok && n == *c.NumericEquals
	case c.NumericGreaterThan != nil:
		n, ok := v.(float64)
		return ok && n > *c.NumericGreaterThan
	case c.NumericLessThan != nil:
		n, ok := v.(float64)
		return ok && n < *c.NumericLessThan
	case c.BooleanEquals != nil:
		b, ok := v.(bool)
		return ok && b == *c.BooleanEquals
	}
	return false
}

// lookupPath resolves "$.a.b" against the document.
func lookupPath(doc any, path string) (any, bool) {
	if path == "" || path == "$" {
		return doc, true
	}
	path = strings.TrimPrefix(path, "$.")
	cur := doc
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
