// Package aws implements the AWS provider gateway.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package aws

import (
	"github.com/cloudemu/cloudemu/cmn"
	"github.com/cloudemu/cloudemu/gateway"
	"github.com/cloudemu/cloudemu/workflow"
)

// stepfunctions interprets executions synchronously: StartExecution runs
// the machine inline and the row is finalized exactly once before the
// response is written.
func (g *Gateway) stepfunctions(req *gateway.Request, op string) *gateway.Response {
	const service = "states"
	body := gateway.ParseJSONBody(req.Body)
	fail := func(err error) *gateway.Response { return jsonError(req, service, op, err) }

	switch op {
	case "CreateStateMachine":
		name := gateway.Str(body, "name")
		definition := gateway.Str(body, "definition")
		roleARN := gateway.Str(body, "roleArn")
		if name == "" || definition == "" || roleARN == "" {
			return fail(cmn.NewInvalidArgument("name, definition and roleArn are required"))
		}
		if _, err := workflow.Parse(definition); err != nil {
			return fail(cmn.NewInvalidArgument("invalid definition: " + err.Error()))
		}
		m, err := g.store.CreateStateMachine(name, definition, roleARN,
			gateway.Str(body, "type"), g.cfg.AccountID, g.cfg.Region)
		if err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{
			"stateMachineArn": m.ARN,
			"creationDate":    m.CreatedAt,
		})

	case "ListStateMachines":
		machines, err := g.store.ListStateMachines()
		if err != nil {
			return fail(err)
		}
		out := make([]map[string]any, 0, len(machines))
		for _, m := range machines {
			out = append(out, map[string]any{
				"stateMachineArn": m.ARN,
				"name":            m.Name,
				"type":            m.Type,
				"creationDate":    m.CreatedAt,
			})
		}
		return jsonOK(service, op, map[string]any{"stateMachines": out})

	case "DeleteStateMachine":
		if err := g.store.DeleteStateMachine(gateway.Str(body, "stateMachineArn")); err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{})

	case "StartExecution":
		machineARN := gateway.Str(body, "stateMachineArn")
		m, err := g.store.GetStateMachine(machineARN)
		if err != nil {
			return fail(err)
		}
		exec, err := g.store.StartExecution(machineARN, gateway.Str(body, "name"),
			gateway.Str(body, "input"), g.cfg.AccountID, g.cfg.Region)
		if err != nil {
			return fail(err)
		}
		parsed, perr := workflow.Parse(m.Definition)
		if perr != nil {
			g.store.FinishExecution(exec.ARN, "FAILED", "")
			return jsonOK(service, op, map[string]any{
				"executionArn": exec.ARN, "startDate": exec.StartDate,
			})
		}
		result := workflow.Interpret(parsed, exec.Input)
		if err := g.store.FinishExecution(exec.ARN, result.Status, result.Output); err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{
			"executionArn": exec.ARN,
			"startDate":    exec.StartDate,
		})

	case "DescribeExecution":
		exec, err := g.store.DescribeExecution(gateway.Str(body, "executionArn"))
		if err != nil {
			return fail(err)
		}
		out := map[string]any{
			"executionArn":    exec.ARN,
			"stateMachineArn": exec.StateMachineARN,
			"name":            exec.Name,
			"status":          exec.Status,
			"startDate":       exec.StartDate,
		}
		if exec.Input != "" {
			out["input"] = exec.Input
		}
		if exec.Output != "" {
			out["output"] = exec.Output
		}
		if exec.StopDate != "" {
			out["stopDate"] = exec.StopDate
		}
		return jsonOK(service, op, out)

	case "ListExecutions":
		execs, err := g.store.ListExecutions(gateway.Str(body, "stateMachineArn"))
		if err != nil {
			return fail(err)
		}
		out := make([]map[string]any, 0, len(execs))
		for _, e := range execs {
			out = append(out, map[string]any{
				"executionArn":    e.ARN,
				"stateMachineArn": e.StateMachineARN,
				"name":            e.Name,
				"status":          e.Status,
				"startDate":       e.StartDate,
			})
		}
		return jsonOK(service, op, map[string]any{"executions": out})
	}
	return fail(cmn.NewInvalidRequest("unsupported Step Functions action: " + op))
}
