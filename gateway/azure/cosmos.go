// Package azure implements the Azure provider gateway.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package azure

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/OneOfOne/xxhash"

	"github.com/cloudemu/cloudemu/cmn"
	"github.com/cloudemu/cloudemu/gateway"
	"github.com/cloudemu/cloudemu/storage"
)

// idKeySchema is the implicit key schema of every Cosmos container.
const idKeySchema = `[{"AttributeName":"id","KeyType":"HASH"}]`

// rid derives the short opaque resource id Cosmos responses carry.
func rid(resource string) string {
	h := xxhash.ChecksumString64(resource)
	buf := []byte{
		byte(h), byte(h >> 8), byte(h >> 16), byte(h >> 24),
		byte(h >> 32), byte(h >> 40), byte(h >> 48), byte(h >> 56),
	}
	return base64.RawStdEncoding.EncodeToString(buf)
}

// collTable is the KV-family table name backing one collection.
func collTable(db, coll string) string { return db + "/" + coll }

// cosmos serves /dbs[/{db}[/colls[/{coll}[/docs[/{id}]]]]].
func (g *Gateway) cosmos(req *gateway.Request) *gateway.Response {
	const service = "cosmos"
	segments := strings.Split(strings.Trim(req.Path, "/"), "/")
	fail := func(err error) *gateway.Response { return jsonError(req, service, err) }
	body := gateway.ParseJSONBody(req.Body)

	switch {
	case len(segments) == 1: // /dbs
		switch req.Method {
		case http.MethodGet:
			tables, err := g.store.ListTables(storage.ProviderAzure)
			if err != nil {
				return fail(err)
			}
			dbs := make([]map[string]any, 0)
			for _, t := range tables {
				if !strings.Contains(t, "/") {
					dbs = append(dbs, map[string]any{"id": t, "_rid": rid("dbs/" + t)})
				}
			}
			return restOK(service, "ListDatabases", http.StatusOK, map[string]any{
				"_rid": "", "Databases": dbs, "_count": len(dbs),
			})
		case http.MethodPost:
			id := gateway.Str(body, "id")
			if id == "" {
				return fail(cmn.NewInvalidArgument("id is required"))
			}
			if _, err := g.store.CreateTable(storage.ProviderAzure, id, "", idKeySchema,
				g.cfg.AccountID, g.cfg.Region); err != nil {
				return fail(err)
			}
			return restOK(service, "CreateDatabase", http.StatusCreated, map[string]any{
				"id": id, "_rid": rid("dbs/" + id),
			})
		}

	case len(segments) == 3 && segments[2] == "colls": // /dbs/{db}/colls
		db := segments[1]
		if _, err := g.store.GetTable(storage.ProviderAzure, db); err != nil {
			return fail(err)
		}
		switch req.Method {
		case http.MethodGet:
			tables, err := g.store.ListTables(storage.ProviderAzure)
			if err != nil {
				return fail(err)
			}
			colls := make([]map[string]any, 0)
			for _, t := range tables {
				if rest, ok := strings.CutPrefix(t, db+"/"); ok {
					colls = append(colls, map[string]any{
						"id": rest, "_rid": rid("dbs/" + db + "/colls/" + rest),
					})
				}
			}
			return restOK(service, "ListCollections", http.StatusOK, map[string]any{
				"_rid": rid("dbs/" + db), "DocumentCollections": colls, "_count": len(colls),
			})
		case http.MethodPost:
			id := gateway.Str(body, "id")
			if id == "" {
				return fail(cmn.NewInvalidArgument("id is required"))
			}
			if _, err := g.store.CreateTable(storage.ProviderAzure, collTable(db, id), "",
				idKeySchema, g.cfg.AccountID, g.cfg.Region); err != nil {
				return fail(err)
			}
			return restOK(service, "CreateCollection", http.StatusCreated, map[string]any{
				"id": id, "_rid": rid("dbs/" + db + "/colls/" + id),
			})
		}

	case len(segments) == 5 && segments[2] == "colls" && segments[4] == "docs":
		db, coll := segments[1], segments[3]
		table := collTable(db, coll)
		switch req.Method {
		case http.MethodGet:
			items, err := g.store.Scan(storage.ProviderAzure, table)
			if err != nil {
				return fail(err)
			}
			docs := make([]any, 0, len(items))
			for _, it := range items {
				var v any
				if js.UnmarshalFromString(it, &v) == nil {
					docs = append(docs, v)
				}
			}
			return restOK(service, "ListDocuments", http.StatusOK, map[string]any{
				"_rid": rid("dbs/" + db + "/colls/" + coll), "Documents": docs,
				"_count": len(docs),
			})
		case http.MethodPost:
			id := gateway.Str(body, "id")
			if id == "" {
				return fail(cmn.NewInvalidArgument("document id is required"))
			}
			body["_rid"] = rid("dbs/" + db + "/colls/" + coll + "/docs/" + id)
			doc, err := js.MarshalToString(body)
			if err != nil {
				return fail(cmn.NewJSON(err))
			}
			if err := g.store.PutItem(storage.ProviderAzure, table, id, "", doc); err != nil {
				return fail(err)
			}
			return restOK(service, "CreateDocument", http.StatusCreated, body)
		}

	case len(segments) == 6 && segments[2] == "colls" && segments[4] == "docs":
		db, coll, id := segments[1], segments[3], segments[5]
		table := collTable(db, coll)
		switch req.Method {
		case http.MethodGet:
			item, err := g.store.GetItem(storage.ProviderAzure, table, id, "")
			if err != nil {
				return fail(err)
			}
			var v any
			js.UnmarshalFromString(item, &v)
			return restOK(service, "GetDocument", http.StatusOK, v)
		case http.MethodPut:
			body["id"] = id
			doc, err := js.MarshalToString(body)
			if err != nil {
				return fail(cmn.NewJSON(err))
			}
			if err := g.store.PutItem(storage.ProviderAzure, table, id, "", doc); err != nil {
				return fail(err)
			}
			return restOK(service, "ReplaceDocument", http.StatusOK, body)
		case http.MethodDelete:
			if err := g.store.DeleteItem(storage.ProviderAzure, table, id, ""); err != nil {
				return fail(err)
			}
			return restOK(service, "DeleteDocument", http.StatusNoContent, nil)
		}
	}
	return fail(cmn.NewInvalidRequest("unresolved Cosmos path: " + req.Path))
}
