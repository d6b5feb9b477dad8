// Package azure implements the Azure provider gateway.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package azure

import (
	"net/http"
	"strings"

	"github.com/cloudemu/cloudemu/cmn"
	"github.com/cloudemu/cloudemu/gateway"
	"github.com/cloudemu/cloudemu/storage"
)

// servicebus serves queue and topic entities:
//
//	PUT    /queue/{name}                       create queue
//	GET    /$Resources/Queues                  list queues
//	POST   /queue/{name}/messages              send
//	POST   /queue/{name}/messages/head         peek-lock receive
//	DELETE /queue/{name}/messages/head         receive and delete
//	DELETE /queue/{name}/messages/{id}/{lock}  complete (delete by lock)
//	PUT    /topic/{name}                       create topic
//	POST   /topic/{name}/messages              publish to subscribers
//
// Peek-lock is modeled with the queue family's visibility machinery: the
// lock token is the receipt handle.
func (g *Gateway) servicebus(req *gateway.Request) *gateway.Response {
	const service = "servicebus"
	segments := strings.Split(strings.Trim(req.Path, "/"), "/")
	fail := func(err error) *gateway.Response { return jsonError(req, service, err) }

	if segments[0] == "$Resources" && len(segments) == 2 && req.Method == http.MethodGet {
		switch segments[1] {
		case "Queues":
			queues, err := g.store.ListQueues(storage.ProviderAzure, "")
			if err != nil {
				return fail(err)
			}
			names := make([]string, 0, len(queues))
			for _, q := range queues {
				names = append(names, q.Name)
			}
			return restOK(service, "ListQueues", http.StatusOK, map[string]any{"value": names})
		case "Topics":
			topics, err := g.store.ListTopics(storage.ProviderAzure)
			if err != nil {
				return fail(err)
			}
			names := make([]string, 0, len(topics))
			for _, t := range topics {
				names = append(names, t.Name)
			}
			return restOK(service, "ListTopics", http.StatusOK, map[string]any{"value": names})
		}
	}

	if len(segments) < 2 {
		return fail(cmn.NewInvalidRequest("unresolved Service Bus path: " + req.Path))
	}
	entity, name := segments[0], segments[1]
	rest := segments[2:]

	switch entity {
	case "queue":
		switch {
		case len(rest) == 0 && req.Method == http.MethodPut:
			q, err := g.store.CreateQueue(storage.ProviderAzure, name, nil,
				g.cfg.AccountID, g.cfg.Region)
			if err != nil {
				return fail(err)
			}
			return restOK(service, "CreateQueue", http.StatusCreated, map[string]any{
				"name": q.Name, "createdAt": q.CreatedAt,
			})
		case len(rest) == 0 && req.Method == http.MethodDelete:
			if err := g.store.DeleteQueue(storage.ProviderAzure, name); err != nil {
				return fail(err)
			}
			return restOK(service, "DeleteQueue", http.StatusOK, nil)
		case len(rest) == 1 && rest[0] == "messages" && req.Method == http.MethodPost:
			m, err := g.store.SendMessage(storage.ProviderAzure, name, string(req.Body), 0)
			if err != nil {
				return fail(err)
			}
			resp := restOK(service, "SendMessage", http.StatusCreated, nil)
			resp.Header.Set("BrokerProperties", brokerProperties(m))
			return resp
		case len(rest) == 2 && rest[0] == "messages" && rest[1] == "head":
			return g.receiveHead(req, name)
		case len(rest) == 3 && rest[0] == "messages" && req.Method == http.MethodDelete:
			// rest[1] is the message id, rest[2] the lock token.
			if err := g.store.DeleteMessage(storage.ProviderAzure, name, rest[2]); err != nil {
				return fail(err)
			}
			return restOK(service, "CompleteMessage", http.StatusOK, nil)
		}

	case "topic":
		switch {
		case len(rest) == 0 && req.Method == http.MethodPut:
			t, err := g.store.CreateTopic(storage.ProviderAzure, name,
				g.cfg.AccountID, g.cfg.Region)
			if err != nil {
				return fail(err)
			}
			return restOK(service, "CreateTopic", http.StatusCreated, map[string]any{
				"name": t.Name,
			})
		case len(rest) == 1 && rest[0] == "messages" && req.Method == http.MethodPost:
			t, err := g.store.GetTopic(storage.ProviderAzure, name)
			if err != nil {
				return fail(err)
			}
			res, err := g.store.Publish(storage.ProviderAzure, t.ARN, "", string(req.Body))
			if err != nil {
				return fail(err)
			}
			resp := restOK(service, "SendToTopic", http.StatusCreated, nil)
			resp.Header.Set("BrokerProperties", `{"MessageId":"`+res.MessageID+`"}`)
			return resp
		}
	}
	return fail(cmn.NewInvalidRequest("unresolved Service Bus path: " + req.Path))
}

func brokerProperties(m *storage.Message) string {
	props := map[string]any{
		"MessageId":   m.ID,
		"SequenceNumber": m.SentAt,
	}
	if m.ReceiptHandle != "" {
		props["LockToken"] = m.ReceiptHandle
		props["DeliveryCount"] = m.ReceiveCount
	}
	out, _ := js.MarshalToString(props)
	return out
}

// receiveHead implements both destructive receive (DELETE) and peek-lock
// (POST) on .../messages/head.
func (g *Gateway) receiveHead(req *gateway.Request, queue string) *gateway.Response {
	const service = "servicebus"
	batch, err := g.store.ReceiveMessages(storage.ProviderAzure, queue, 1)
	if err != nil {
		return jsonError(req, service, err)
	}
	if len(batch) == 0 {
		return restOK(service, "ReceiveMessage", http.StatusNoContent, nil)
	}
	m := batch[0]
	switch req.Method {
	case http.MethodDelete:
		if err := g.store.DeleteMessage(storage.ProviderAzure, queue, m.ReceiptHandle); err != nil {
			return jsonError(req, service, err)
		}
		resp := gateway.NewResponse(http.StatusOK)
		resp.Service, resp.Operation = service, "ReceiveAndDelete"
		resp.Header.Set("BrokerProperties", brokerProperties(m))
		resp.Body = []byte(m.Body)
		return resp
	case http.MethodPost:
		resp := gateway.NewResponse(http.StatusCreated)
		resp.Service, resp.Operation = service, "PeekLock"
		resp.Header.Set("BrokerProperties", brokerProperties(m))
		resp.Body = []byte(m.Body)
		return resp
	}
	return jsonError(req, service, cmn.NewInvalidRequest("unresolved receive operation"))
}
