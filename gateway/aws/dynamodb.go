// Package aws implements the AWS provider gateway.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package aws

import (
	"net/http"
	"time"

	"github.com/cloudemu/cloudemu/cmn"
	"github.com/cloudemu/cloudemu/gateway"
	"github.com/cloudemu/cloudemu/storage"
)

func jsonOK(service, op string, v any) *gateway.Response {
	resp := gateway.JSONResponse(http.StatusOK, v)
	resp.Service, resp.Operation = service, op
	return resp
}

func marshalField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	s, err := js.MarshalToString(v)
	if err != nil {
		return ""
	}
	return s
}

func unmarshalItems(items []string) []any {
	out := make([]any, 0, len(items))
	for _, s := range items {
		var v any
		if js.UnmarshalFromString(s, &v) != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

func (g *Gateway) dynamodb(req *gateway.Request, op string) *gateway.Response {
	const service = "dynamodb"
	body := gateway.ParseJSONBody(req.Body)
	fail := func(err error) *gateway.Response { return jsonError(req, service, op, err) }

	switch op {
	case "CreateTable":
		name := gateway.Str(body, "TableName")
		if name == "" {
			return fail(cmn.NewInvalidArgument("TableName is required"))
		}
		keySchema := marshalField(body, "KeySchema")
		if keySchema == "" {
			return fail(cmn.NewInvalidArgument("KeySchema is required"))
		}
		t, err := g.store.CreateTable(storage.ProviderAWS, name,
			marshalField(body, "AttributeDefinitions"), keySchema,
			g.cfg.AccountID, g.cfg.Region)
		if err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{
			"TableDescription": tableDescription(t),
		})

	case "DescribeTable":
		t, err := g.store.GetTable(storage.ProviderAWS, gateway.Str(body, "TableName"))
		if err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{"Table": tableDescription(t)})

	case "ListTables":
		names, err := g.store.ListTables(storage.ProviderAWS)
		if err != nil {
			return fail(err)
		}
		if names == nil {
			names = []string{}
		}
		return jsonOK(service, op, map[string]any{"TableNames": names})

	case "DeleteTable":
		name := gateway.Str(body, "TableName")
		t, err := g.store.GetTable(storage.ProviderAWS, name)
		if err != nil {
			return fail(err)
		}
		if err := g.store.DeleteTable(storage.ProviderAWS, name); err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{"TableDescription": tableDescription(t)})

	case "PutItem":
		table := gateway.Str(body, "TableName")
		item := marshalField(body, "Item")
		if table == "" || item == "" {
			return fail(cmn.NewInvalidArgument("TableName and Item are required"))
		}
		if err := g.store.PutItemChecked(storage.ProviderAWS, table, item); err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{})

	case "GetItem":
		table := gateway.Str(body, "TableName")
		keyJSON := marshalField(body, "Key")
		if table == "" || keyJSON == "" {
			return fail(cmn.NewInvalidArgument("TableName and Key are required"))
		}
		pk, sk, err := g.store.ExtractKey(storage.ProviderAWS, table, keyJSON)
		if err != nil {
			return fail(err)
		}
		item, err := g.store.GetItem(storage.ProviderAWS, table, pk, sk)
		if err != nil {
			if cmn.IsErrKind(err, cmn.KindNotFound) {
				return jsonOK(service, op, map[string]any{})
			}
			return fail(err)
		}
		var v any
		js.UnmarshalFromString(item, &v)
		return jsonOK(service, op, map[string]any{"Item": v})

	case "DeleteItem":
		table := gateway.Str(body, "TableName")
		keyJSON := marshalField(body, "Key")
		pk, sk, err := g.store.ExtractKey(storage.ProviderAWS, table, keyJSON)
		if err != nil {
			return fail(err)
		}
		if err := g.store.DeleteItem(storage.ProviderAWS, table, pk, sk); err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{})

	case "Query":
		table := gateway.Str(body, "TableName")
		expr := gateway.Str(body, "KeyConditionExpression")
		if table == "" || expr == "" {
			return fail(cmn.NewInvalidArgument("TableName and KeyConditionExpression are required"))
		}
		items, err := g.store.Query(storage.ProviderAWS, table, expr,
			marshalField(body, "ExpressionAttributeValues"))
		if err != nil {
			return fail(err)
		}
		out := unmarshalItems(items)
		return jsonOK(service, op, map[string]any{
			"Items": out, "Count": len(out), "ScannedCount": len(out),
		})

	case "Scan":
		items, err := g.store.Scan(storage.ProviderAWS, gateway.Str(body, "TableName"))
		if err != nil {
			return fail(err)
		}
		out := unmarshalItems(items)
		return jsonOK(service, op, map[string]any{
			"Items": out, "Count": len(out), "ScannedCount": len(out),
		})
	}
	return fail(cmn.NewInvalidRequest("unsupported DynamoDB action: " + op))
}

func tableDescription(t *storage.Table) map[string]any {
	var attrDefs, keySchema any
	js.UnmarshalFromString(t.AttributeDefinitions, &attrDefs)
	js.UnmarshalFromString(t.KeySchema, &keySchema)
	created := float64(time.Now().Unix())
	if ts, err := cmn.ParseISO(t.CreatedAt); err == nil {
		created = float64(ts.Unix())
	}
	return map[string]any{
		"TableName":            t.Name,
		"TableArn":             t.ARN,
		"TableStatus":          t.Status,
		"AttributeDefinitions": attrDefs,
		"KeySchema":            keySchema,
		"CreationDateTime":     created,
		"ItemCount":            0,
		"TableSizeBytes":       0,
	}
}
