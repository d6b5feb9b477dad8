// Package aws implements the AWS provider gateway.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package aws

import (
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/cloudemu/cloudemu/cmn"
	"github.com/cloudemu/cloudemu/gateway"
	"github.com/cloudemu/cloudemu/storage"
)

// tokenSigningKey signs the emulator's JWTs. Tokens are for local flows
// only; nothing verifies them against a real identity provider.
var tokenSigningKey = []byte("cloudemu-local-signing-key")

func issueToken(poolID, username, use string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":              username,
		"iss":              "https://cognito-idp.local/" + poolID,
		"token_use":        use,
		"cognito:username": username,
		"iat":              now.Unix(),
		"exp":              now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tokenSigningKey)
}

func userPayload(u *storage.User) map[string]any {
	attrs := make([]map[string]string, 0, len(u.Attributes))
	for name, value := range u.Attributes {
		attrs = append(attrs, map[string]string{"Name": name, "Value": value})
	}
	return map[string]any{
		"Username":       u.Username,
		"UserStatus":     u.Status,
		"Enabled":        u.Enabled,
		"UserCreateDate": u.CreatedAt,
		"UserAttributes": attrs,
	}
}

func (g *Gateway) cognito(req *gateway.Request, op string) *gateway.Response {
	const service = "cognito-idp"
	body := gateway.ParseJSONBody(req.Body)
	fail := func(err error) *gateway.Response { return jsonError(req, service, op, err) }
	poolID := func() string { return gateway.Str(body, "UserPoolId") }

	switch op {
	case "CreateUserPool":
		name := gateway.Str(body, "PoolName")
		if name == "" {
			return fail(cmn.NewInvalidArgument("PoolName is required"))
		}
		p, err := g.store.CreateUserPool(name, g.cfg.AccountID, g.cfg.Region)
		if err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{
			"UserPool": map[string]any{
				"Id": p.ID, "Name": p.Name, "Arn": p.ARN, "CreationDate": p.CreatedAt,
			},
		})

	case "ListUserPools":
		pools, err := g.store.ListUserPools()
		if err != nil {
			return fail(err)
		}
		out := make([]map[string]any, 0, len(pools))
		for _, p := range pools {
			out = append(out, map[string]any{
				"Id": p.ID, "Name": p.Name, "CreationDate": p.CreatedAt,
			})
		}
		return jsonOK(service, op, map[string]any{"UserPools": out})

	case "DeleteUserPool":
		if err := g.store.DeleteUserPool(poolID()); err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{})

	case "AdminCreateUser":
		username := gateway.Str(body, "Username")
		if poolID() == "" || username == "" {
			return fail(cmn.NewInvalidArgument("UserPoolId and Username are required"))
		}
		attrs := make(map[string]string)
		if raw, ok := body["UserAttributes"].([]any); ok {
			for _, ra := range raw {
				if am, ok := ra.(map[string]any); ok {
					attrs[gateway.Str(am, "Name")] = gateway.Str(am, "Value")
				}
			}
		}
		u, err := g.store.AdminCreateUser(poolID(), username,
			gateway.Str(body, "TemporaryPassword"), attrs)
		if err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{"User": userPayload(u)})

	case "AdminGetUser":
		u, err := g.store.AdminGetUser(poolID(), gateway.Str(body, "Username"))
		if err != nil {
			return fail(err)
		}
		return jsonOK(service, op, userPayload(u))

	case "ListUsers":
		users, err := g.store.ListUsers(poolID())
		if err != nil {
			return fail(err)
		}
		out := make([]map[string]any, 0, len(users))
		for _, u := range users {
			out = append(out, userPayload(u))
		}
		return jsonOK(service, op, map[string]any{"Users": out})

	case "AdminSetUserPassword":
		permanent, _ := body["Permanent"].(bool)
		if err := g.store.AdminSetUserPassword(poolID(), gateway.Str(body, "Username"),
			gateway.Str(body, "Password"), permanent); err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{})

	case "AdminConfirmSignUp":
		if err := g.store.AdminConfirmSignUp(poolID(), gateway.Str(body, "Username")); err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{})

	case "CreateGroup":
		grp, err := g.store.CreateGroup(poolID(), gateway.Str(body, "GroupName"),
			gateway.Str(body, "Description"), int(gateway.Num(body, "Precedence")))
		if err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{
			"Group": map[string]any{
				"GroupName": grp.Name, "UserPoolId": grp.PoolID,
				"Description": grp.Description, "Precedence": grp.Precedence,
			},
		})

	case "ListGroups":
		groups, err := g.store.ListGroups(poolID())
		if err != nil {
			return fail(err)
		}
		out := make([]map[string]any, 0, len(groups))
		for _, grp := range groups {
			out = append(out, map[string]any{
				"GroupName": grp.Name, "UserPoolId": grp.PoolID,
				"Description": grp.Description, "Precedence": grp.Precedence,
			})
		}
		return jsonOK(service, op, map[string]any{"Groups": out})

	case "AdminAddUserToGroup":
		if err := g.store.AdminAddUserToGroup(poolID(), gateway.Str(body, "GroupName"),
			gateway.Str(body, "Username")); err != nil {
			return fail(err)
		}
		return jsonOK(service, op, map[string]any{})

	case "AdminListGroupsForUser":
		groups, err := g.store.AdminListGroupsForUser(poolID(), gateway.Str(body, "Username"))
		if err != nil {
			return fail(err)
		}
		out := make([]map[string]any, 0, len(groups))
		for _, grp := range groups {
			out = append(out, map[string]any{"GroupName": grp.Name, "UserPoolId": grp.PoolID})
		}
		return jsonOK(service, op, map[string]any{"Groups": out})

	case "InitiateAuth", "AdminInitiateAuth":
		params, _ := body["AuthParameters"].(map[string]any)
		username := gateway.Str(params, "USERNAME")
		password := gateway.Str(params, "PASSWORD")
		pool := poolID()
		if pool == "" {
			pool = gateway.Str(body, "ClientId") // USER_PASSWORD_AUTH flows omit the pool id
		}
		if username == "" {
			return fail(cmn.NewInvalidArgument("AuthParameters.USERNAME is required"))
		}
		if password != "" && poolID() != "" {
			if err := g.store.VerifyPassword(poolID(), username, password); err != nil {
				return fail(err)
			}
		}
		idToken, err := issueToken(pool, username, "id", time.Hour)
		if err != nil {
			return fail(cmn.NewInternal(err.Error()))
		}
		accessToken, err := issueToken(pool, username, "access", time.Hour)
		if err != nil {
			return fail(cmn.NewInternal(err.Error()))
		}
		return jsonOK(service, op, map[string]any{
			"AuthenticationResult": map[string]any{
				"IdToken":      idToken,
				"AccessToken":  accessToken,
				"RefreshToken": cmn.GenMessageID(),
				"ExpiresIn":    3600,
				"TokenType":    "Bearer",
			},
		})
	}
	return fail(cmn.NewInvalidRequest("unsupported Cognito action: " + op))
}
