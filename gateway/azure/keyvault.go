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

// keyvault serves /secrets/{name}[/{version}], /keys, /keys/{name}/create
// and /keys/{id}, where {id} is the key id or ARN. Secrets
// ride the secrets family, keys the KMS family, both under the azure
// provider namespace.
func (g *Gateway) keyvault(req *gateway.Request) *gateway.Response {
	const service = "keyvault"
	segments := strings.Split(strings.Trim(req.Path, "/"), "/")
	fail := func(err error) *gateway.Response { return jsonError(req, service, err) }
	body := gateway.ParseJSONBody(req.Body)

	secretURL := func(name, version string) string {
		u := "https://cloudemu.vault.azure.net/secrets/" + name
		if version != "" {
			u += "/" + version
		}
		return u
	}

	switch segments[0] {
	case "secrets":
		switch {
		case len(segments) == 1 && req.Method == http.MethodGet:
			secrets, err := g.store.ListSecrets(storage.ProviderAzure)
			if err != nil {
				return fail(err)
			}
			out := make([]map[string]any, 0, len(secrets))
			for _, sec := range secrets {
				out = append(out, map[string]any{
					"id": secretURL(sec.Name, ""),
					"attributes": map[string]any{
						"enabled": true, "created": sec.CreatedAt, "updated": sec.LastChanged,
					},
				})
			}
			return restOK(service, "ListSecrets", http.StatusOK, map[string]any{"value": out})

		case len(segments) == 2 && req.Method == http.MethodPut:
			name := segments[1]
			value := gateway.Str(body, "value")
			var ver *storage.SecretVersion
			if _, err := g.store.GetSecret(storage.ProviderAzure, name, false); err != nil {
				if !cmn.IsNotFound(err) {
					return fail(err)
				}
				_, v, cerr := g.store.CreateSecret(storage.ProviderAzure, name, "", "",
					value, nil, "", g.cfg.AccountID, g.cfg.Region)
				if cerr != nil {
					return fail(cerr)
				}
				ver = v
			} else {
				v, perr := g.store.PutSecretValue(storage.ProviderAzure, name, value, nil)
				if perr != nil {
					return fail(perr)
				}
				ver = v
			}
			return restOK(service, "SetSecret", http.StatusOK, map[string]any{
				"value": value,
				"id":    secretURL(name, ver.VersionID),
				"attributes": map[string]any{
					"enabled": true, "created": ver.CreatedDate,
				},
			})

		case len(segments) >= 2 && req.Method == http.MethodGet:
			name := segments[1]
			version := ""
			if len(segments) == 3 {
				version = segments[2]
			}
			_, ver, err := g.store.GetSecretValue(storage.ProviderAzure, name, version, "")
			if err != nil {
				return fail(err)
			}
			return restOK(service, "GetSecret", http.StatusOK, map[string]any{
				"value": ver.SecretString,
				"id":    secretURL(name, ver.VersionID),
				"attributes": map[string]any{
					"enabled": true, "created": ver.CreatedDate,
				},
			})

		case len(segments) == 2 && req.Method == http.MethodDelete:
			sec, err := g.store.DeleteSecret(storage.ProviderAzure, segments[1])
			if err != nil {
				return fail(err)
			}
			return restOK(service, "DeleteSecret", http.StatusOK, map[string]any{
				"id":          secretURL(sec.Name, ""),
				"deletedDate": sec.DeletedDate,
			})
		}

	case "keys":
		keyURL := func(id string) string { return "https://cloudemu.vault.azure.net/keys/" + id }
		switch {
		case len(segments) == 1 && req.Method == http.MethodGet:
			keys, err := g.store.ListKeys(storage.ProviderAzure)
			if err != nil {
				return fail(err)
			}
			out := make([]map[string]any, 0, len(keys))
			for _, k := range keys {
				out = append(out, map[string]any{
					"kid": keyURL(k.ID),
					"attributes": map[string]any{
						"enabled": k.State == storage.KeyStateEnabled, "created": k.CreatedAt,
					},
				})
			}
			return restOK(service, "ListKeys", http.StatusOK, map[string]any{"value": out})

		case len(segments) == 3 && segments[2] == "create" && req.Method == http.MethodPost:
			k, err := g.store.CreateKey(storage.ProviderAzure, segments[1],
				"ENCRYPT_DECRYPT", gateway.Str(body, "kty"), g.cfg.AccountID, g.cfg.Region)
			if err != nil {
				return fail(err)
			}
			return restOK(service, "CreateKey", http.StatusOK, map[string]any{
				"key": map[string]any{"kid": keyURL(k.ID), "kty": k.Spec},
				"attributes": map[string]any{
					"enabled": true, "created": k.CreatedAt,
				},
			})

		case len(segments) == 2 && req.Method == http.MethodGet:
			k, err := g.store.DescribeKey(storage.ProviderAzure, segments[1])
			if err != nil {
				return fail(err)
			}
			return restOK(service, "GetKey", http.StatusOK, map[string]any{
				"key": map[string]any{"kid": keyURL(k.ID), "kty": k.Spec},
				"attributes": map[string]any{
					"enabled": k.State == storage.KeyStateEnabled, "created": k.CreatedAt,
				},
			})
		}
	}
	return fail(cmn.NewInvalidRequest("unresolved Key Vault path: " + req.Path))
}
