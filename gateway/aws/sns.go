// Package aws implements the AWS provider gateway.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package aws

import (
	"net/url"

	"github.com/cloudemu/cloudemu/cmn"
	"github.com/cloudemu/cloudemu/gateway"
	"github.com/cloudemu/cloudemu/storage"
)

// sns serves the form-encoded Action dialect. Responses use the
// query-envelope shape ({"<Action>Response": {"<Action>Result": ...}}).
func (g *Gateway) sns(req *gateway.Request, action string, form url.Values) *gateway.Response {
	const service = "sns"
	if !g.cfg.ServiceEnabled(cmn.SvcSNS) {
		return snsError(req, action, cmn.NewInvalidRequest("service is not mounted: sns"))
	}
	envelope := func(result any) *gateway.Response {
		return jsonOK(service, action, map[string]any{
			action + "Response": map[string]any{
				action + "Result": result,
				"ResponseMetadata": map[string]string{
					"RequestId": req.RequestID,
				},
			},
		})
	}

	switch action {
	case "CreateTopic":
		name := form.Get("Name")
		if name == "" {
			return snsError(req, action, cmn.NewInvalidArgument("Name is required"))
		}
		t, err := g.store.CreateTopic(storage.ProviderAWS, name, g.cfg.AccountID, g.cfg.Region)
		if err != nil {
			if cmn.IsErrKind(err, cmn.KindAlreadyExists) {
				// CreateTopic is idempotent for an identical name.
				if t, gerr := g.store.GetTopic(storage.ProviderAWS, name); gerr == nil {
					return envelope(map[string]string{"TopicArn": t.ARN})
				}
			}
			return snsError(req, action, err)
		}
		return envelope(map[string]string{"TopicArn": t.ARN})

	case "DeleteTopic":
		t, err := g.store.GetTopicByARN(form.Get("TopicArn"))
		if err != nil {
			return snsError(req, action, err)
		}
		if err := g.store.DeleteTopic(t.Provider, t.Name); err != nil {
			return snsError(req, action, err)
		}
		return envelope(map[string]string{})

	case "ListTopics":
		topics, err := g.store.ListTopics(storage.ProviderAWS)
		if err != nil {
			return snsError(req, action, err)
		}
		arns := make([]map[string]string, 0, len(topics))
		for _, t := range topics {
			arns = append(arns, map[string]string{"TopicArn": t.ARN})
		}
		return envelope(map[string]any{"Topics": arns})

	case "Subscribe":
		sub, err := g.store.Subscribe(storage.ProviderAWS, form.Get("TopicArn"),
			form.Get("Protocol"), form.Get("Endpoint"))
		if err != nil {
			return snsError(req, action, err)
		}
		return envelope(map[string]string{"SubscriptionArn": sub.ARN})

	case "Unsubscribe":
		if err := g.store.Unsubscribe(form.Get("SubscriptionArn")); err != nil {
			return snsError(req, action, err)
		}
		return envelope(map[string]string{})

	case "ListSubscriptions":
		subs, err := g.store.ListSubscriptions(storage.ProviderAWS)
		if err != nil {
			return snsError(req, action, err)
		}
		return envelope(map[string]any{"Subscriptions": subscriptionList(subs)})

	case "ListSubscriptionsByTopic":
		subs, err := g.store.ListSubscriptionsByTopic(form.Get("TopicArn"))
		if err != nil {
			return snsError(req, action, err)
		}
		return envelope(map[string]any{"Subscriptions": subscriptionList(subs)})

	case "Publish":
		topicARN := form.Get("TopicArn")
		message := form.Get("Message")
		if topicARN == "" || message == "" {
			return snsError(req, action, cmn.NewInvalidArgument("TopicArn and Message are required"))
		}
		res, err := g.store.Publish(storage.ProviderAWS, topicARN, form.Get("Subject"), message)
		if err != nil {
			return snsError(req, action, err)
		}
		return envelope(map[string]string{"MessageId": res.MessageID})
	}
	return snsError(req, action, cmn.NewInvalidRequest("unsupported SNS action: "+action))
}

func subscriptionList(subs []*storage.Subscription) []map[string]string {
	out := make([]map[string]string, 0, len(subs))
	for _, s := range subs {
		out = append(out, map[string]string{
			"SubscriptionArn": s.ARN,
			"TopicArn":        s.TopicARN,
			"Protocol":        s.Protocol,
			"Endpoint":        s.Endpoint,
		})
	}
	return out
}
