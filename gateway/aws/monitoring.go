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

// monitoring serves the CloudWatch metrics dialect.
func (g *Gateway) monitoring(req *gateway.Request, op string) *gateway.Response {
	const service = "monitoring"
	body := gateway.ParseJSONBody(req.Body)
	fail := func(err error) *gateway.Response { return jsonError(req, service, op, err) }

	switch op {
	case "PutMetricData":
		namespace := gateway.Str(body, "Namespace")
		raw, _ := body["MetricData"].([]any)
		data := make([]*storage.MetricDatum, 0, len(raw))
		for _, rd := range raw {
			dm, ok := rd.(map[string]any)
			if !ok {
				continue
			}
			data = append(data, &storage.MetricDatum{
				MetricName: gateway.Str(dm, "MetricName"),
				Dimensions: marshalField(dm, "Dimensions"),
				Value:      gateway.Num(dm, "Value"),
				Unit:       gateway.Str(dm, "Unit"),
				Timestamp:  gateway.Str(dm, "Timestamp"),
			})
		}
		if err := g.store.PutMetricData(namespace, data); err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{})

	case "ListMetrics":
		metrics, err := g.store.ListMetrics(gateway.Str(body, "Namespace"),
			gateway.Str(body, "MetricName"))
		if err != nil {
			return fail(err)
		}
		out := make([]map[string]any, 0, len(metrics))
		for _, m := range metrics {
			var dims any
			js.UnmarshalFromString(m.Dimensions, &dims)
			out = append(out, map[string]any{
				"Namespace":  m.Namespace,
				"MetricName": m.MetricName,
				"Dimensions": dims,
			})
		}
		return jsonOK(service, op, map[string]any{"Metrics": out})
	}
	return fail(cmn.NewInvalidRequest("unsupported CloudWatch action: " + op))
}

// logs serves the CloudWatch Logs dialect.
func (g *Gateway) logs(req *gateway.Request, op string) *gateway.Response {
	const service = "logs"
	body := gateway.ParseJSONBody(req.Body)
	fail := func(err error) *gateway.Response { return jsonError(req, service, op, err) }

	switch op {
	case "CreateLogGroup":
		name := gateway.Str(body, "logGroupName")
		if name == "" {
			return fail(cmn.NewInvalidArgument("logGroupName is required"))
		}
		if err := g.store.CreateLogGroup(name); err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{})

	case "DeleteLogGroup":
		if err := g.store.DeleteLogGroup(gateway.Str(body, "logGroupName")); err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{})

	case "DescribeLogGroups":
		groups, err := g.store.ListLogGroups(gateway.Str(body, "logGroupNamePrefix"))
		if err != nil {
			return fail(err)
		}
		out := make([]map[string]any, 0, len(groups))
		for _, grp := range groups {
			out = append(out, map[string]any{
				"logGroupName": grp.Name,
				"arn": cmn.ARN("logs", g.cfg.Region, g.cfg.AccountID,
					"log-group:"+grp.Name),
			})
		}
		return jsonOK(service, op, map[string]any{"logGroups": out})

	case "CreateLogStream":
		if err := g.store.CreateLogStream(gateway.Str(body, "logGroupName"),
			gateway.Str(body, "logStreamName")); err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{})

	case "PutLogEvents":
		raw, _ := body["logEvents"].([]any)
		events := make([]*storage.LogEvent, 0, len(raw))
		for _, re := range raw {
			em, ok := re.(map[string]any)
			if !ok {
				continue
			}
			events = append(events, &storage.LogEvent{
				Timestamp: int64(gateway.Num(em, "timestamp")),
				Message:   gateway.Str(em, "message"),
			})
		}
		if err := g.store.PutLogEvents(gateway.Str(body, "logGroupName"),
			gateway.Str(body, "logStreamName"), events); err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{"nextSequenceToken": cmn.GenMessageID()})

	case "GetLogEvents":
		events, err := g.store.GetLogEvents(gateway.Str(body, "logGroupName"),
			gateway.Str(body, "logStreamName"), int(gateway.Num(body, "limit")))
		if err != nil {
			return fail(err)
		}
		out := make([]map[string]any, 0, len(events))
		for _, e := range events {
			out = append(out, map[string]any{
				"timestamp": e.Timestamp,
				"message":   e.Message,
			})
		}
		return jsonOK(service, op, map[string]any{"events": out})
	}
	return fail(cmn.NewInvalidRequest("unsupported CloudWatch Logs action: " + op))
}
