// Package aws implements the AWS provider gateway.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package aws

import (
	"crypto/rand"
	"encoding/base64"
	"math/big"

	"github.com/cloudemu/cloudemu/cmn"
	"github.com/cloudemu/cloudemu/gateway"
	"github.com/cloudemu/cloudemu/storage"
)

func (g *Gateway) secrets(req *gateway.Request, op string) *gateway.Response {
	const service = "secretsmanager"
	body := gateway.ParseJSONBody(req.Body)
	fail := func(err error) *gateway.Response { return jsonError(req, service, op, err) }
	secretID := func() string {
		if id := gateway.Str(body, "SecretId"); id != "" {
			return id
		}
		return gateway.Str(body, "Name")
	}

	switch op {
	case "CreateSecret":
		name := gateway.Str(body, "Name")
		if name == "" {
			return fail(cmn.NewInvalidArgument("Name is required"))
		}
		var binary []byte
		if b64 := gateway.Str(body, "SecretBinary"); b64 != "" {
			var err error
			if binary, err = base64.StdEncoding.DecodeString(b64); err != nil {
				return fail(cmn.NewInvalidArgument("SecretBinary must be base64"))
			}
		}
		sec, ver, err := g.store.CreateSecret(storage.ProviderAWS, name,
			gateway.Str(body, "Description"), gateway.Str(body, "KmsKeyId"),
			gateway.Str(body, "SecretString"), binary, marshalField(body, "Tags"),
			g.cfg.AccountID, g.cfg.Region)
		if err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{
			"ARN": sec.ARN, "Name": sec.Name, "VersionId": ver.VersionID,
		})

	case "DescribeSecret":
		sec, err := g.store.GetSecret(storage.ProviderAWS, secretID(), true)
		if err != nil {
			return fail(err)
		}
		out := map[string]any{
			"ARN": sec.ARN, "Name": sec.Name, "Description": sec.Description,
			"KmsKeyId": sec.KMSKeyID, "CreatedDate": sec.CreatedAt,
			"LastChangedDate": sec.LastChanged,
		}
		if sec.DeletedDate != "" {
			out["DeletedDate"] = sec.DeletedDate
		}
		return jsonOK(service, op, out)

	case "GetSecretValue":
		sec, ver, err := g.store.GetSecretValue(storage.ProviderAWS, secretID(),
			gateway.Str(body, "VersionId"), gateway.Str(body, "VersionStage"))
		if err != nil {
			return fail(err)
		}
		out := map[string]any{
			"ARN": sec.ARN, "Name": sec.Name, "VersionId": ver.VersionID,
			"VersionStages": ver.Stages, "CreatedDate": ver.CreatedDate,
		}
		if ver.SecretString != "" {
			out["SecretString"] = ver.SecretString
		}
		if len(ver.SecretBinary) > 0 {
			out["SecretBinary"] = base64.StdEncoding.EncodeToString(ver.SecretBinary)
		}
		return jsonOK(service, op, out)

	case "PutSecretValue":
		var binary []byte
		if b64 := gateway.Str(body, "SecretBinary"); b64 != "" {
			var err error
			if binary, err = base64.StdEncoding.DecodeString(b64); err != nil {
				return fail(cmn.NewInvalidArgument("SecretBinary must be base64"))
			}
		}
		ver, err := g.store.PutSecretValue(storage.ProviderAWS, secretID(),
			gateway.Str(body, "SecretString"), binary)
		if err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{
			"VersionId": ver.VersionID, "VersionStages": ver.Stages,
		})

	case "UpdateSecret":
		sec, err := g.store.UpdateSecret(storage.ProviderAWS, secretID(),
			gateway.Str(body, "Description"), gateway.Str(body, "KmsKeyId"))
		if err != nil {
			return fail(err)
		}
		if ss := gateway.Str(body, "SecretString"); ss != "" {
			if _, err := g.store.PutSecretValue(storage.ProviderAWS, secretID(), ss, nil); err != nil {
				return fail(err)
			}
		}
		return jsonOK(service, op, map[string]any{"ARN": sec.ARN, "Name": sec.Name})

	case "ListSecrets":
		secrets, err := g.store.ListSecrets(storage.ProviderAWS)
		if err != nil {
			return fail(err)
		}
		out := make([]map[string]any, 0, len(secrets))
		for _, sec := range secrets {
			out = append(out, map[string]any{
				"ARN": sec.ARN, "Name": sec.Name, "Description": sec.Description,
				"CreatedDate": sec.CreatedAt, "LastChangedDate": sec.LastChanged,
			})
		}
		return jsonOK(service, op, map[string]any{"SecretList": out})

	case "ListSecretVersionIds":
		versions, err := g.store.ListSecretVersions(storage.ProviderAWS, secretID())
		if err != nil {
			return fail(err)
		}
		out := make([]map[string]any, 0, len(versions))
		for _, v := range versions {
			out = append(out, map[string]any{
				"VersionId": v.VersionID, "VersionStages": v.Stages,
				"CreatedDate": v.CreatedDate,
			})
		}
		return jsonOK(service, op, map[string]any{"Versions": out})

	case "TagResource":
		if err := g.store.TagSecret(storage.ProviderAWS, secretID(),
			marshalField(body, "Tags")); err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{})

	case "UntagResource":
		if err := g.store.TagSecret(storage.ProviderAWS, secretID(), ""); err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{})

	case "DeleteSecret":
		sec, err := g.store.DeleteSecret(storage.ProviderAWS, secretID())
		if err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{
			"ARN": sec.ARN, "Name": sec.Name, "DeletionDate": sec.DeletedDate,
		})

	case "RestoreSecret":
		sec, err := g.store.RestoreSecret(storage.ProviderAWS, secretID())
		if err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{"ARN": sec.ARN, "Name": sec.Name})

	case "GetRandomPassword":
		length := int(gateway.Num(body, "PasswordLength"))
		if length <= 0 {
			length = 32
		}
		if length > 4096 {
			return fail(cmn.NewInvalidArgument("PasswordLength must be <= 4096"))
		}
		const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*()_+-="
		pw := make([]byte, length)
		for i := range pw {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
			if err != nil {
				return fail(cmn.NewInternal(err.Error()))
			}
			pw[i] = charset[n.Int64()]
		}
		return jsonOK(service, op, map[string]any{"RandomPassword": string(pw)})
	}
	return fail(cmn.NewInvalidRequest("unsupported Secrets Manager action: " + op))
}
