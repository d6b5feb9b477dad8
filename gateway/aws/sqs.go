// Package aws implements the AWS provider gateway.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package aws

import (
	"strconv"

	"github.com/cloudemu/cloudemu/cmn"
	"github.com/cloudemu/cloudemu/gateway"
	"github.com/cloudemu/cloudemu/storage"
)

// queueNameFromBody resolves QueueUrl (preferred) or QueueName.
func queueNameFromBody(body map[string]any) string {
	if u := gateway.Str(body, "QueueUrl"); u != "" {
		return cmn.NameFromQueueURL(u)
	}
	return gateway.Str(body, "QueueName")
}

func (g *Gateway) sqs(req *gateway.Request, op string) *gateway.Response {
	const service = "sqs"
	body := gateway.ParseJSONBody(req.Body)
	fail := func(err error) *gateway.Response { return jsonError(req, service, op, err) }

	switch op {
	case "CreateQueue":
		name := gateway.Str(body, "QueueName")
		if name == "" {
			return fail(cmn.NewInvalidArgument("QueueName is required"))
		}
		attrs := map[string]string{}
		if raw, ok := body["Attributes"].(map[string]any); ok {
			for k, v := range raw {
				if sv, ok := v.(string); ok {
					attrs[k] = sv
				}
			}
		}
		q, err := g.store.CreateQueue(storage.ProviderAWS, name, attrs,
			g.cfg.AccountID, g.cfg.Region)
		if err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{"QueueUrl": q.URL})

	case "GetQueueUrl":
		q, err := g.store.GetQueue(storage.ProviderAWS, gateway.Str(body, "QueueName"))
		if err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{"QueueUrl": q.URL})

	case "ListQueues":
		queues, err := g.store.ListQueues(storage.ProviderAWS,
			gateway.Str(body, "QueueNamePrefix"))
		if err != nil {
			return fail(err)
		}
		urls := make([]string, 0, len(queues))
		for _, q := range queues {
			urls = append(urls, q.URL)
		}
		return jsonOK(service, op, map[string]any{"QueueUrls": urls})

	case "DeleteQueue":
		if err := g.store.DeleteQueue(storage.ProviderAWS, queueNameFromBody(body)); err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{})

	case "PurgeQueue":
		if err := g.store.PurgeQueue(storage.ProviderAWS, queueNameFromBody(body)); err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{})

	case "SendMessage":
		name := queueNameFromBody(body)
		msgBody := gateway.Str(body, "MessageBody")
		if name == "" || msgBody == "" {
			return fail(cmn.NewInvalidArgument("QueueUrl and MessageBody are required"))
		}
		m, err := g.store.SendMessage(storage.ProviderAWS, name, msgBody,
			int(gateway.Num(body, "DelaySeconds")))
		if err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{
			"MessageId":        m.ID,
			"MD5OfMessageBody": m.MD5OfBody,
		})

	case "ReceiveMessage":
		name := queueNameFromBody(body)
		max := int(gateway.Num(body, "MaxNumberOfMessages"))
		batch, err := g.store.ReceiveMessages(storage.ProviderAWS, name, max)
		if err != nil {
			return fail(err)
		}
		msgs := make([]map[string]any, 0, len(batch))
		for _, m := range batch {
			msgs = append(msgs, map[string]any{
				"MessageId":     m.ID,
				"ReceiptHandle": m.ReceiptHandle,
				"Body":          m.Body,
				"MD5OfBody":     m.MD5OfBody,
				"Attributes": map[string]string{
					"ApproximateReceiveCount": strconv.Itoa(m.ReceiveCount),
					"SentTimestamp":           m.SentAt,
				},
			})
		}
		return jsonOK(service, op, map[string]any{"Messages": msgs})

	case "DeleteMessage":
		name := queueNameFromBody(body)
		handle := gateway.Str(body, "ReceiptHandle")
		if err := g.store.DeleteMessage(storage.ProviderAWS, name, handle); err != nil {
			if cmn.IsErrKind(err, cmn.KindNotFound) {
				return fail(cmn.NewInvalidArgument("The receipt handle is not valid: " + handle))
			}
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{})

	case "ChangeMessageVisibility":
		name := queueNameFromBody(body)
		if err := g.store.ChangeMessageVisibility(storage.ProviderAWS, name,
			gateway.Str(body, "ReceiptHandle"),
			int(gateway.Num(body, "VisibilityTimeout"))); err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{})

	case "GetQueueAttributes":
		name := queueNameFromBody(body)
		q, err := g.store.GetQueue(storage.ProviderAWS, name)
		if err != nil {
			return fail(err)
		}
		visible, inflight, err := g.store.QueueDepth(storage.ProviderAWS, name)
		if err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{
			"Attributes": map[string]string{
				"QueueArn":                              q.ARN,
				"ApproximateNumberOfMessages":           strconv.Itoa(visible),
				"ApproximateNumberOfMessagesNotVisible": strconv.Itoa(inflight),
				"VisibilityTimeout":                     strconv.Itoa(q.VisibilityTimeout),
				"MessageRetentionPeriod":                strconv.Itoa(q.RetentionSeconds),
				"DelaySeconds":                          strconv.Itoa(q.DelaySeconds),
				"ReceiveMessageWaitTimeSeconds":         strconv.Itoa(q.ReceiveWaitSeconds),
				"CreatedTimestamp":                      q.CreatedAt,
			},
		})
	}
	return fail(cmn.NewInvalidRequest("unsupported SQS action: " + op))
}
