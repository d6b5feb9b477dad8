// Package gcp implements the GCP provider gateway.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package gcp

import (
	"net/http"
	"strings"

	"github.com/cloudemu/cloudemu/cmn"
	"github.com/cloudemu/cloudemu/gateway"
	"github.com/cloudemu/cloudemu/storage"
)

// pubsub serves topic and subscription resources:
//
//	PUT    /v1/projects/{p}/topics/{t}                create topic
//	GET    /v1/projects/{p}/topics                    list topics
//	DELETE /v1/projects/{p}/topics/{t}                delete topic
//	POST   /v1/projects/{p}/topics/{t}:publish        publish
//	PUT    /v1/projects/{p}/subscriptions/{s}         create subscription
//	POST   /v1/projects/{p}/subscriptions/{s}:pull    pull
//	POST   /v1/projects/{p}/subscriptions/{s}:ack...  acknowledge
//
// Every subscription owns a backing queue in the queue family; publish
// fans out into those queues through the queue family's send operation.
func (g *Gateway) pubsub(req *gateway.Request, path string) *gateway.Response {
	const service = "pubsub"
	fail := func(err error) *gateway.Response { return gcpError(req, service, err) }

	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) < 3 || segments[0] != "projects" {
		return fail(cmn.NewInvalidRequest("unresolved Pub/Sub path: " + req.Path))
	}
	project := segments[1]
	kind := segments[2]
	name, verb := "", ""
	if len(segments) >= 4 {
		name = segments[3]
		if i := strings.IndexByte(name, ':'); i >= 0 {
			name, verb = name[:i], name[i+1:]
		}
	}

	topicResource := func(t string) string { return "projects/" + project + "/topics/" + t }
	subResource := func(s string) string { return "projects/" + project + "/subscriptions/" + s }
	subQueue := func(s string) string { return project + "/" + s }

	switch kind {
	case "topics":
		switch {
		case name == "" && req.Method == http.MethodGet:
			topics, err := g.store.ListTopics(storage.ProviderGCP)
			if err != nil {
				return fail(err)
			}
			out := make([]map[string]string, 0, len(topics))
			for _, t := range topics {
				out = append(out, map[string]string{"name": t.ARN})
			}
			return gcpOK(service, "ListTopics", http.StatusOK, map[string]any{"topics": out})

		case verb == "" && req.Method == http.MethodPut:
			if _, err := g.store.CreateTopicWithResource(storage.ProviderGCP,
				project+"/"+name, topicResource(name)); err != nil {
				return fail(err)
			}
			return gcpOK(service, "CreateTopic", http.StatusOK, map[string]string{
				"name": topicResource(name),
			})

		case verb == "" && req.Method == http.MethodDelete:
			if err := g.store.DeleteTopic(storage.ProviderGCP, project+"/"+name); err != nil {
				return fail(err)
			}
			return gcpOK(service, "DeleteTopic", http.StatusOK, map[string]any{})

		case verb == "publish" && req.Method == http.MethodPost:
			if _, err := g.store.GetTopicByARN(topicResource(name)); err != nil {
				return fail(err)
			}
			body := gateway.ParseJSONBody(req.Body)
			raw, _ := body["messages"].([]any)
			if len(raw) == 0 {
				return fail(cmn.NewInvalidArgument("messages is required"))
			}
			subs, err := g.store.ListSubscriptionsByTopic(topicResource(name))
			if err != nil {
				return fail(err)
			}
			ids := make([]string, 0, len(raw))
			for _, rm := range raw {
				mm, ok := rm.(map[string]any)
				if !ok {
					continue
				}
				data := gateway.Str(mm, "data") // base64 payload, forwarded verbatim
				id := cmn.GenMessageID()
				for _, sub := range subs {
					if sub.Protocol != "pull" {
						continue
					}
					if _, err := g.store.SendMessage(storage.ProviderGCP, sub.Endpoint,
						data, 0); err != nil {
						g.log.Warnw("pubsub fan-out", "topic", name, "err", err)
					}
				}
				ids = append(ids, id)
			}
			return gcpOK(service, "Publish", http.StatusOK, map[string]any{"messageIds": ids})
		}

	case "subscriptions":
		switch {
		case verb == "" && req.Method == http.MethodPut:
			body := gateway.ParseJSONBody(req.Body)
			topic := gateway.Str(body, "topic")
			if topic == "" {
				return fail(cmn.NewInvalidArgument("topic is required"))
			}
			if _, err := g.store.GetTopicByARN(topic); err != nil {
				return fail(err)
			}
			if _, err := g.store.CreateQueue(storage.ProviderGCP, subQueue(name), nil,
				g.cfg.AccountID, g.cfg.Region); err != nil {
				return fail(err)
			}
			if _, err := g.store.Subscribe(storage.ProviderGCP, topic, "pull",
				subQueue(name)); err != nil {
				return fail(err)
			}
			return gcpOK(service, "CreateSubscription", http.StatusOK, map[string]string{
				"name": subResource(name), "topic": topic,
			})

		case verb == "pull" && req.Method == http.MethodPost:
			body := gateway.ParseJSONBody(req.Body)
			max := int(gateway.Num(body, "maxMessages"))
			batch, err := g.store.ReceiveMessages(storage.ProviderGCP, subQueue(name), max)
			if err != nil {
				return fail(err)
			}
			received := make([]map[string]any, 0, len(batch))
			for _, m := range batch {
				received = append(received, map[string]any{
					"ackId": m.ReceiptHandle,
					"message": map[string]any{
						"data":        m.Body,
						"messageId":   m.ID,
						"publishTime": m.SentAt,
					},
				})
			}
			return gcpOK(service, "Pull", http.StatusOK, map[string]any{
				"receivedMessages": received,
			})

		case verb == "acknowledge" && req.Method == http.MethodPost:
			body := gateway.ParseJSONBody(req.Body)
			raw, _ := body["ackIds"].([]any)
			for _, rid := range raw {
				ackID, ok := rid.(string)
				if !ok {
					continue
				}
				if err := g.store.DeleteMessage(storage.ProviderGCP, subQueue(name),
					ackID); err != nil && !cmn.IsNotFound(err) {
					return fail(err)
				}
			}
			return gcpOK(service, "Acknowledge", http.StatusOK, map[string]any{})
		}
	}
	return fail(cmn.NewInvalidRequest("unresolved Pub/Sub path: " + req.Path))
}
