// Package aws implements the AWS provider gateway.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package aws

import (
	"encoding/base64"
	"time"

	"github.com/cloudemu/cloudemu/cmn"
	"github.com/cloudemu/cloudemu/gateway"
	"github.com/cloudemu/cloudemu/storage"
)

func keyMetadata(k *storage.Key, accountID string) map[string]any {
	created := float64(time.Now().Unix())
	if ts, err := cmn.ParseISO(k.CreatedAt); err == nil {
		created = float64(ts.Unix())
	}
	md := map[string]any{
		"KeyId":        k.ID,
		"Arn":          k.ARN,
		"AWSAccountId": accountID,
		"Description":  k.Description,
		"KeyUsage":     k.Usage,
		"KeySpec":      k.Spec,
		"KeyState":     k.State,
		"CreationDate": created,
		"Enabled":      k.State == storage.KeyStateEnabled,
	}
	if k.DeletionAt != "" {
		md["DeletionDate"] = k.DeletionAt
	}
	return md
}

func (g *Gateway) kms(req *gateway.Request, op string) *gateway.Response {
	const service = "kms"
	body := gateway.ParseJSONBody(req.Body)
	fail := func(err error) *gateway.Response { return jsonError(req, service, op, err) }

	switch op {
	case "CreateKey":
		k, err := g.store.CreateKey(storage.ProviderAWS,
			gateway.Str(body, "Description"), gateway.Str(body, "KeyUsage"),
			gateway.Str(body, "KeySpec"), g.cfg.AccountID, g.cfg.Region)
		if err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{"KeyMetadata": keyMetadata(k, g.cfg.AccountID)})

	case "DescribeKey":
		k, err := g.store.DescribeKey(storage.ProviderAWS, gateway.Str(body, "KeyId"))
		if err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{"KeyMetadata": keyMetadata(k, g.cfg.AccountID)})

	case "ListKeys":
		keys, err := g.store.ListKeys(storage.ProviderAWS)
		if err != nil {
			return fail(err)
		}
		out := make([]map[string]string, 0, len(keys))
		for _, k := range keys {
			out = append(out, map[string]string{"KeyId": k.ID, "KeyArn": k.ARN})
		}
		return jsonOK(service, op, map[string]any{"Keys": out, "Truncated": false})

	case "EnableKey":
		if _, err := g.store.EnableKey(storage.ProviderAWS, gateway.Str(body, "KeyId")); err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{})

	case "DisableKey":
		if _, err := g.store.DisableKey(storage.ProviderAWS, gateway.Str(body, "KeyId")); err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{})

	case "ScheduleKeyDeletion":
		k, err := g.store.ScheduleKeyDeletion(storage.ProviderAWS,
			gateway.Str(body, "KeyId"), int(gateway.Num(body, "PendingWindowInDays")))
		if err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{
			"KeyId": k.ID, "KeyState": k.State, "DeletionDate": k.DeletionAt,
		})

	case "CancelKeyDeletion":
		k, err := g.store.CancelKeyDeletion(storage.ProviderAWS, gateway.Str(body, "KeyId"))
		if err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{"KeyId": k.ID})

	case "Encrypt":
		plaintext, err := base64.StdEncoding.DecodeString(gateway.Str(body, "Plaintext"))
		if err != nil {
			return fail(cmn.NewInvalidArgument("Plaintext must be base64"))
		}
		ct, k, err := g.store.Encrypt(storage.ProviderAWS, gateway.Str(body, "KeyId"), plaintext)
		if err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{
			"CiphertextBlob": ct, "KeyId": k.ARN, "EncryptionAlgorithm": "SYMMETRIC_DEFAULT",
		})

	case "Decrypt":
		plaintext, k, err := g.store.Decrypt(storage.ProviderAWS,
			gateway.Str(body, "CiphertextBlob"))
		if err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{
			"Plaintext": base64.StdEncoding.EncodeToString(plaintext),
			"KeyId":     k.ARN,
		})

	case "GenerateDataKey":
		numBytes := int(gateway.Num(body, "NumberOfBytes"))
		if numBytes == 0 && gateway.Str(body, "KeySpec") == "AES_128" {
			numBytes = 16
		}
		plaintext, ct, k, err := g.store.GenerateDataKey(storage.ProviderAWS,
			gateway.Str(body, "KeyId"), numBytes)
		if err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{
			"Plaintext":      base64.StdEncoding.EncodeToString(plaintext),
			"CiphertextBlob": ct,
			"KeyId":          k.ARN,
		})

	case "GenerateRandom":
		random, err := g.store.GenerateRandom(int(gateway.Num(body, "NumberOfBytes")))
		if err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{"Plaintext": random})

	case "Sign":
		message, err := base64.StdEncoding.DecodeString(gateway.Str(body, "Message"))
		if err != nil {
			return fail(cmn.NewInvalidArgument("Message must be base64"))
		}
		sig, k, err := g.store.Sign(storage.ProviderAWS, gateway.Str(body, "KeyId"), message)
		if err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{
			"Signature": sig, "KeyId": k.ARN, "SigningAlgorithm": "HMAC_SHA_256",
		})

	case "Verify":
		message, err := base64.StdEncoding.DecodeString(gateway.Str(body, "Message"))
		if err != nil {
			return fail(cmn.NewInvalidArgument("Message must be base64"))
		}
		valid, k, err := g.store.Verify(storage.ProviderAWS, gateway.Str(body, "KeyId"),
			message, gateway.Str(body, "Signature"))
		if err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{
			"SignatureValid": valid, "KeyId": k.ARN, "SigningAlgorithm": "HMAC_SHA_256",
		})
	}
	return fail(cmn.NewInvalidRequest("unsupported KMS action: " + op))
}
