// Package aws implements the AWS provider gateway: the service dispatcher
// keyed on x-amz-target, the S3 REST dialect keyed on URL path and query,
// and the form-encoded Action dialect used by SNS.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package aws

import (
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/cloudemu/cloudemu/cmn"
	"github.com/cloudemu/cloudemu/gateway"
	"github.com/cloudemu/cloudemu/storage"
)

var js = jsoniter.ConfigCompatibleWithStandardLibrary

// x-amz-target service prefixes.
const (
	targetDynamoDB = "DynamoDB_20120810"
	targetSQS      = "AmazonSQS"
	targetEvents   = "AWSEvents"
	targetKMS      = "TrentService"
	targetSecrets  = "secretsmanager"
	targetMonitoring = "Monitoring"
	targetLogs     = "Logs_20140530"
	targetCognito  = "AWSCognitoIdentityProviderService"
	targetSFN      = "AWSStepFunctions"
	targetPricing  = "AWSPriceListService"
	targetEC2      = "AmazonEC2"
)

type Gateway struct {
	store *storage.Store
	cfg   *cmn.Config
	log   *zap.SugaredLogger
}

func New(store *storage.Store, cfg *cmn.Config, log *zap.SugaredLogger) *Gateway {
	return &Gateway{store: store, cfg: cfg, log: log}
}

func (g *Gateway) Provider() string { return storage.ProviderAWS }

// Handler mounts the dispatcher plus the metrics endpoint.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/-/metrics", gateway.MetricsHandler())
	mux.Handle("/", gateway.Handler(g, g.store, g.log))
	return mux
}

// Dispatch picks the service by the provider's discriminator: the
// x-amz-target prefix for RPC-style services, the Action form field for
// the query dialect, the URL path for S3.
func (g *Gateway) Dispatch(req *gateway.Request) *gateway.Response {
	if target := req.Header.Get("x-amz-target"); target != "" {
		service, op := splitTarget(target)
		if !g.cfg.ServiceEnabled(serviceFlag(service)) {
			return jsonError(req, service, op,
				cmn.NewInvalidRequest("service is not mounted: "+service))
		}
		switch service {
		case targetDynamoDB:
			return g.dynamodb(req, op)
		case targetSQS:
			return g.sqs(req, op)
		case targetEvents:
			return g.events(req, op)
		case targetKMS:
			return g.kms(req, op)
		case targetSecrets:
			return g.secrets(req, op)
		case targetMonitoring:
			return g.monitoring(req, op)
		case targetLogs:
			return g.logs(req, op)
		case targetCognito:
			return g.cognito(req, op)
		case targetSFN:
			return g.stepfunctions(req, op)
		case targetPricing:
			return g.pricing(req, op)
		default:
			// AmazonEC2 and friends are recognized discriminators with no
			// mounted handler.
			return jsonError(req, service, op,
				cmn.NewInvalidRequest("unknown service target: "+target))
		}
	}
	if isFormEncoded(req) {
		form := gateway.ParseFormBody(req.Body)
		if action := form.Get("Action"); action != "" {
			if snsActions[action] {
				return g.sns(req, action, form)
			}
			return jsonError(req, "query", action,
				cmn.NewInvalidRequest("unresolved Action: "+action))
		}
	}
	// Everything else is the S3 REST dialect.
	if !g.cfg.ServiceEnabled(cmn.SvcS3) {
		return s3Error(req, cmn.NewInvalidRequest("service is not mounted: s3"), "", "")
	}
	return g.s3(req)
}

// splitTarget breaks "Service_Version.Operation" into its halves.
func splitTarget(target string) (service, op string) {
	if i := strings.LastIndexByte(target, '.'); i >= 0 {
		return target[:i], target[i+1:]
	}
	return target, ""
}

func serviceFlag(target string) string {
	switch target {
	case targetDynamoDB:
		return cmn.SvcDynamoDB
	case targetSQS:
		return cmn.SvcSQS
	case targetEvents:
		return cmn.SvcEvents
	case targetKMS:
		return cmn.SvcKMS
	case targetSecrets:
		return cmn.SvcSecrets
	case targetMonitoring:
		return cmn.SvcMonitoring
	case targetLogs:
		return cmn.SvcLogs
	case targetCognito:
		return cmn.SvcCognito
	case targetSFN:
		return cmn.SvcSFN
	case targetPricing:
		return cmn.SvcPricing
	}
	return target
}

func isFormEncoded(req *gateway.Request) bool {
	ct := req.Header.Get("Content-Type")
	return strings.Contains(ct, "x-www-form-urlencoded") ||
		(ct == "" && strings.HasPrefix(string(req.Body), "Action="))
}

var snsActions = map[string]bool{
	"CreateTopic": true, "DeleteTopic": true, "ListTopics": true,
	"Subscribe": true, "Unsubscribe": true, "ListSubscriptions": true,
	"ListSubscriptionsByTopic": true, "Publish": true,
}
