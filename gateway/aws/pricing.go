// Package aws implements the AWS provider gateway.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package aws

import (
	"github.com/cloudemu/cloudemu/cmn"
	"github.com/cloudemu/cloudemu/gateway"
	"github.com/cloudemu/cloudemu/storage"
)

func (g *Gateway) pricing(req *gateway.Request, op string) *gateway.Response {
	const service = "pricing"
	body := gateway.ParseJSONBody(req.Body)
	fail := func(err error) *gateway.Response { return jsonError(req, service, op, err) }

	switch op {
	case "DescribeServices", "GetServices":
		services, err := g.store.GetPricingServices(storage.ProviderAWS)
		if err != nil {
			return fail(err)
		}
		out := make([]map[string]any, 0, len(services))
		for _, svc := range services {
			out = append(out, map[string]any{
				"ServiceCode": svc.Code,
				"AttributeNames": []string{
					"instanceType", "location", "operatingSystem", "storageClass",
				},
			})
		}
		return jsonOK(service, op, map[string]any{"Services": out})

	case "GetProducts":
		serviceCode := gateway.Str(body, "ServiceCode")
		if serviceCode == "" {
			return fail(cmn.NewInvalidArgument("ServiceCode is required"))
		}
		filters := make(map[string]string)
		if raw, ok := body["Filters"].([]any); ok {
			for _, rf := range raw {
				fm, ok := rf.(map[string]any)
				if !ok {
					continue
				}
				filters[gateway.Str(fm, "Field")] = gateway.Str(fm, "Value")
			}
		}
		products, err := g.store.GetProducts(storage.ProviderAWS, serviceCode, filters)
		if err != nil {
			return fail(err)
		}
		priceList := make([]string, 0, len(products))
		for _, p := range products {
			terms, err := g.store.GetTermsForSKU(storage.ProviderAWS, p.SKU)
			if err != nil {
				return fail(err)
			}
			var attrs any
			js.UnmarshalFromString(p.Attributes, &attrs)
			onDemand := make(map[string]any, len(terms))
			for _, t := range terms {
				var dims any
				js.UnmarshalFromString(t.Dimensions, &dims)
				onDemand[t.ID] = map[string]any{
					"priceDimensions": map[string]any{t.ID: dims},
				}
			}
			entry, err := js.MarshalToString(map[string]any{
				"product": map[string]any{
					"sku":           p.SKU,
					"productFamily": p.ServiceCode,
					"attributes":    attrs,
				},
				"terms": map[string]any{"OnDemand": onDemand},
			})
			if err != nil {
				return fail(cmn.NewJSON(err))
			}
			priceList = append(priceList, entry)
		}
		return jsonOK(service, op, map[string]any{
			"FormatVersion": "aws_v1",
			"PriceList":     priceList,
		})
	}
	return fail(cmn.NewInvalidRequest("unsupported Pricing action: " + op))
}
