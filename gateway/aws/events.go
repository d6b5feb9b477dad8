// Package aws implements the AWS provider gateway.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package aws

import (
	"github.com/cloudemu/cloudemu/cmn"
	"github.com/cloudemu/cloudemu/gateway"
	"github.com/cloudemu/cloudemu/storage"
)

func (g *Gateway) events(req *gateway.Request, op string) *gateway.Response {
	const service = "events"
	body := gateway.ParseJSONBody(req.Body)
	fail := func(err error) *gateway.Response { return jsonError(req, service, op, err) }

	switch op {
	case "CreateEventBus":
		name := gateway.Str(body, "Name")
		if name == "" {
			return fail(cmn.NewInvalidArgument("Name is required"))
		}
		bus, err := g.store.CreateEventBus(storage.ProviderAWS, name,
			g.cfg.AccountID, g.cfg.Region)
		if err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{"EventBusArn": bus.ARN})

	case "DeleteEventBus":
		if err := g.store.DeleteEventBus(storage.ProviderAWS,
			gateway.Str(body, "Name")); err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{})

	case "ListEventBuses":
		buses, err := g.store.ListEventBuses(storage.ProviderAWS)
		if err != nil {
			return fail(err)
		}
		out := make([]map[string]any, 0, len(buses))
		for _, b := range buses {
			out = append(out, map[string]any{"Name": b.Name, "Arn": b.ARN, "Policy": b.Policy})
		}
		return jsonOK(service, op, map[string]any{"EventBuses": out})

	case "PutRule":
		name := gateway.Str(body, "Name")
		if name == "" {
			return fail(cmn.NewInvalidArgument("Name is required"))
		}
		r := &storage.Rule{
			Name:               name,
			EventBusName:       gateway.Str(body, "EventBusName"),
			EventPattern:       gateway.Str(body, "EventPattern"),
			State:              gateway.Str(body, "State"),
			Description:        gateway.Str(body, "Description"),
			ScheduleExpression: gateway.Str(body, "ScheduleExpression"),
		}
		// The pattern may also arrive as a JSON object.
		if r.EventPattern == "" {
			r.EventPattern = marshalField(body, "EventPattern")
		}
		rule, err := g.store.PutRule(storage.ProviderAWS, r, g.cfg.AccountID, g.cfg.Region)
		if err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{"RuleArn": rule.ARN})

	case "ListRules":
		rules, err := g.store.ListRules(storage.ProviderAWS, gateway.Str(body, "EventBusName"))
		if err != nil {
			return fail(err)
		}
		out := make([]map[string]any, 0, len(rules))
		for _, r := range rules {
			out = append(out, map[string]any{
				"Name":               r.Name,
				"Arn":                r.ARN,
				"EventPattern":       r.EventPattern,
				"State":              r.State,
				"Description":        r.Description,
				"ScheduleExpression": r.ScheduleExpression,
				"EventBusName":       r.EventBusName,
			})
		}
		return jsonOK(service, op, map[string]any{"Rules": out})

	case "DeleteRule":
		if err := g.store.DeleteRule(storage.ProviderAWS,
			gateway.Str(body, "EventBusName"), gateway.Str(body, "Name")); err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{})

	case "PutTargets":
		rule := gateway.Str(body, "Rule")
		raw, _ := body["Targets"].([]any)
		if rule == "" || len(raw) == 0 {
			return fail(cmn.NewInvalidArgument("Rule and Targets are required"))
		}
		targets := make([]*storage.Target, 0, len(raw))
		for _, rt := range raw {
			tm, ok := rt.(map[string]any)
			if !ok {
				continue
			}
			targets = append(targets, &storage.Target{
				ID:        gateway.Str(tm, "Id"),
				ARN:       gateway.Str(tm, "Arn"),
				Input:     gateway.Str(tm, "Input"),
				InputPath: gateway.Str(tm, "InputPath"),
			})
		}
		if err := g.store.PutTargets(storage.ProviderAWS,
			gateway.Str(body, "EventBusName"), rule, targets); err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{"FailedEntryCount": 0, "FailedEntries": []any{}})

	case "RemoveTargets":
		rule := gateway.Str(body, "Rule")
		raw, _ := body["Ids"].([]any)
		ids := make([]string, 0, len(raw))
		for _, v := range raw {
			if s, ok := v.(string); ok {
				ids = append(ids, s)
			}
		}
		if err := g.store.RemoveTargets(storage.ProviderAWS,
			gateway.Str(body, "EventBusName"), rule, ids); err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{"FailedEntryCount": 0, "FailedEntries": []any{}})

	case "ListTargetsByRule":
		targets, err := g.store.ListTargets(storage.ProviderAWS,
			gateway.Str(body, "EventBusName"), gateway.Str(body, "Rule"))
		if err != nil {
			return fail(err)
		}
		out := make([]map[string]any, 0, len(targets))
		for _, t := range targets {
			entry := map[string]any{"Id": t.ID, "Arn": t.ARN}
			if t.Input != "" {
				entry["Input"] = t.Input
			}
			if t.InputPath != "" {
				entry["InputPath"] = t.InputPath
			}
			out = append(out, entry)
		}
		return jsonOK(service, op, map[string]any{"Targets": out})

	case "PutEvents":
		raw, _ := body["Entries"].([]any)
		if len(raw) == 0 {
			return fail(cmn.NewInvalidArgument("Entries is required"))
		}
		entries := make([]*storage.EventEntry, 0, len(raw))
		for _, re := range raw {
			em, ok := re.(map[string]any)
			if !ok {
				continue
			}
			entries = append(entries, &storage.EventEntry{
				Source:       gateway.Str(em, "Source"),
				DetailType:   gateway.Str(em, "DetailType"),
				Detail:       gateway.Str(em, "Detail"),
				Resources:    marshalField(em, "Resources"),
				EventBusName: gateway.Str(em, "EventBusName"),
			})
		}
		records, err := g.store.PutEvents(storage.ProviderAWS, entries)
		if err != nil {
			return fail(err)
		}
		out := make([]map[string]string, 0, len(records))
		for _, r := range records {
			out = append(out, map[string]string{"EventId": r.ID})
		}
		return jsonOK(service, op, map[string]any{"FailedEntryCount": 0, "Entries": out})
	}
	return fail(cmn.NewInvalidRequest("unsupported EventBridge action: " + op))
}
