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

// billing serves /v1/services and /v1/services/{id}/skus from the seeded
// pricing catalog.
func (g *Gateway) billing(req *gateway.Request, path string) *gateway.Response {
	const service = "billing"
	fail := func(err error) *gateway.Response { return gcpError(req, service, err) }
	if req.Method != http.MethodGet {
		return fail(cmn.NewInvalidRequest("billing is read-only"))
	}

	segments := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case len(segments) == 1: // /services
		services, err := g.store.GetPricingServices(storage.ProviderGCP)
		if err != nil {
			return fail(err)
		}
		out := make([]map[string]string, 0, len(services))
		for _, svc := range services {
			out = append(out, map[string]string{
				"name":        "services/" + svc.Code,
				"serviceId":   svc.Code,
				"displayName": svc.Name,
			})
		}
		return gcpOK(service, "ListServices", http.StatusOK, map[string]any{"services": out})

	case len(segments) == 3 && segments[2] == "skus": // /services/{id}/skus
		serviceID := segments[1]
		products, terms, err := g.store.ListSKUs(storage.ProviderGCP, serviceID)
		if err != nil {
			return fail(err)
		}
		skus := make([]map[string]any, 0, len(products))
		for _, p := range products {
			var attrs map[string]any
			js.UnmarshalFromString(p.Attributes, &attrs)
			entry := map[string]any{
				"name":        "services/" + serviceID + "/skus/" + p.SKU,
				"skuId":       p.SKU,
				"description": attrs["machineType"],
				"category": map[string]any{
					"serviceDisplayName": serviceID,
					"resourceFamily":     attrs["resourceFamily"],
				},
			}
			if t, ok := terms[p.SKU]; ok {
				var dims map[string]any
				js.UnmarshalFromString(t.Dimensions, &dims)
				entry["pricingInfo"] = []map[string]any{{
					"pricingExpression": map[string]any{
						"usageUnit":    dims["unit"],
						"pricePerUnit": dims["pricePerUnit"],
					},
				}}
			}
			skus = append(skus, entry)
		}
		return gcpOK(service, "ListSKUs", http.StatusOK, map[string]any{"skus": skus})
	}
	return fail(cmn.NewInvalidRequest("unresolved Billing path: " + req.Path))
}
