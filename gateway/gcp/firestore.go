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

const firestoreKeySchema = `[{"AttributeName":"__id__","KeyType":"HASH"}]`

// firestore serves
// /projects/{p}/databases/{d}/documents/{collection}[/{doc}] with the
// fields envelope. Collections back onto the KV family; a collection
// table is created implicitly on first write.
func (g *Gateway) firestore(req *gateway.Request, path string) *gateway.Response {
	const service = "firestore"
	fail := func(err error) *gateway.Response { return gcpError(req, service, err) }

	segments := strings.Split(strings.Trim(path, "/"), "/")
	// projects {p} databases {d} documents {collection} [{doc...}]
	if len(segments) < 6 || segments[0] != "projects" || segments[2] != "databases" ||
		segments[4] != "documents" {
		return fail(cmn.NewInvalidRequest("unresolved Firestore path: " + req.Path))
	}
	project, database, collection := segments[1], segments[3], segments[5]
	table := project + "/" + database + "/" + collection
	resourcePrefix := "projects/" + project + "/databases/" + database +
		"/documents/" + collection

	ensureTable := func() error {
		_, err := g.store.GetTable(storage.ProviderGCP, table)
		if err == nil {
			return nil
		}
		if !cmn.IsNotFound(err) {
			return err
		}
		_, err = g.store.CreateTable(storage.ProviderGCP, table, "", firestoreKeySchema,
			g.cfg.AccountID, g.cfg.Region)
		return err
	}

	document := func(docID string, fields any) map[string]any {
		return map[string]any{
			"name":       resourcePrefix + "/" + docID,
			"fields":     fields,
			"createTime": cmn.NowISO(),
			"updateTime": cmn.NowISO(),
		}
	}

	if len(segments) == 6 {
		switch req.Method {
		case http.MethodPost: // create document
			if err := ensureTable(); err != nil {
				return fail(err)
			}
			body := gateway.ParseJSONBody(req.Body)
			docID := req.Query.Get("documentId")
			if docID == "" {
				docID = cmn.GenMessageID()
			}
			doc := document(docID, body["fields"])
			enc, err := js.MarshalToString(doc)
			if err != nil {
				return fail(cmn.NewJSON(err))
			}
			if err := g.store.PutItem(storage.ProviderGCP, table, docID, "", enc); err != nil {
				return fail(err)
			}
			return gcpOK(service, "CreateDocument", http.StatusOK, doc)
		case http.MethodGet: // list documents
			if err := ensureTable(); err != nil {
				if cmn.IsNotFound(err) {
					return gcpOK(service, "ListDocuments", http.StatusOK,
						map[string]any{"documents": []any{}})
				}
				return fail(err)
			}
			items, err := g.store.Scan(storage.ProviderGCP, table)
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
			return gcpOK(service, "ListDocuments", http.StatusOK, map[string]any{
				"documents": docs,
			})
		}
		return fail(cmn.NewInvalidRequest("unresolved Firestore operation"))
	}

	docID := strings.Join(segments[6:], "/")
	switch req.Method {
	case http.MethodGet:
		item, err := g.store.GetItem(storage.ProviderGCP, table, docID, "")
		if err != nil {
			return fail(err)
		}
		var v any
		js.UnmarshalFromString(item, &v)
		return gcpOK(service, "GetDocument", http.StatusOK, v)
	case http.MethodPatch:
		if err := ensureTable(); err != nil {
			return fail(err)
		}
		body := gateway.ParseJSONBody(req.Body)
		doc := document(docID, body["fields"])
		enc, err := js.MarshalToString(doc)
		if err != nil {
			return fail(cmn.NewJSON(err))
		}
		if err := g.store.PutItem(storage.ProviderGCP, table, docID, "", enc); err != nil {
			return fail(err)
		}
		return gcpOK(service, "PatchDocument", http.StatusOK, doc)
	case http.MethodDelete:
		if err := g.store.DeleteItem(storage.ProviderGCP, table, docID, ""); err != nil {
			return fail(err)
		}
		return gcpOK(service, "DeleteDocument", http.StatusOK, map[string]any{})
	}
	return fail(cmn.NewInvalidRequest("unresolved Firestore operation"))
}
