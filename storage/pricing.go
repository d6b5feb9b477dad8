// Package storage provides the shared persistence layer for the cloud emulator.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package storage

import (
	"database/sql"

	"github.com/cloudemu/cloudemu/cmn"
)

type (
	PricingService struct {
		Provider string
		Code     string
		Name     string
	}

	Product struct {
		Provider    string
		SKU         string
		ServiceCode string
		Attributes  string // opaque JSON
	}

	OfferTerm struct {
		Provider   string
		ID         string
		SKU        string
		Dimensions string // opaque JSON
	}
)

// pricingSeed is the deterministic catalog inserted on first access. The
// prices themselves are arbitrary and not a contract.
var pricingSeed = []struct {
	provider, code, name string
	products             []Product
	terms                []OfferTerm
}{
	{
		provider: ProviderAWS, code: "AmazonEC2", name: "Amazon Elastic Compute Cloud",
		products: []Product{
			{SKU: "EC2-T3MICRO-USE1", ServiceCode: "AmazonEC2",
				Attributes: `{"instanceType":"t3.micro","location":"US East (N. Virginia)","operatingSystem":"Linux"}`},
			{SKU: "EC2-M5LARGE-USE1", ServiceCode: "AmazonEC2",
				Attributes: `{"instanceType":"m5.large","location":"US East (N. Virginia)","operatingSystem":"Linux"}`},
		},
		terms: []OfferTerm{
			{ID: "EC2-T3MICRO-USE1.ONDEMAND", SKU: "EC2-T3MICRO-USE1",
				Dimensions: `{"unit":"Hrs","pricePerUnit":{"USD":"0.0104"}}`},
			{ID: "EC2-M5LARGE-USE1.ONDEMAND", SKU: "EC2-M5LARGE-USE1",
				Dimensions: `{"unit":"Hrs","pricePerUnit":{"USD":"0.0960"}}`},
		},
	},
	{
		provider: ProviderAWS, code: "AmazonS3", name: "Amazon Simple Storage Service",
		products: []Product{
			{SKU: "S3-STANDARD-USE1", ServiceCode: "AmazonS3",
				Attributes: `{"storageClass":"General Purpose","location":"US East (N. Virginia)"}`},
		},
		terms: []OfferTerm{
			{ID: "S3-STANDARD-USE1.ONDEMAND", SKU: "S3-STANDARD-USE1",
				Dimensions: `{"unit":"GB-Mo","pricePerUnit":{"USD":"0.0230"}}`},
		},
	},
	{
		provider: ProviderGCP, code: "6F81-5844-456A", name: "Compute Engine",
		products: []Product{
			{SKU: "GCE-E2MICRO-USC1", ServiceCode: "6F81-5844-456A",
				Attributes: `{"resourceFamily":"Compute","machineType":"e2-micro","region":"us-central1"}`},
			{SKU: "GCE-N2STD4-USC1", ServiceCode: "6F81-5844-456A",
				Attributes: `{"resourceFamily":"Compute","machineType":"n2-standard-4","region":"us-central1"}`},
		},
		terms: []OfferTerm{
			{ID: "GCE-E2MICRO-USC1.ONDEMAND", SKU: "GCE-E2MICRO-USC1",
				Dimensions: `{"unit":"h","pricePerUnit":{"USD":"0.0076"}}`},
			{ID: "GCE-N2STD4-USC1.ONDEMAND", SKU: "GCE-N2STD4-USC1",
				Dimensions: `{"unit":"h","pricePerUnit":{"USD":"0.1940"}}`},
		},
	},
}

// ensurePricingSeeded populates the catalog once per process; rows are
// read-only afterwards.
func (s *Store) ensurePricingSeeded() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pricingSeeded {
		return nil
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM pricing_services`).Scan(&n); err != nil {
		return cmn.NewDatabase(err)
	}
	if n > 0 {
		s.pricingSeeded = true
		return nil
	}
	for _, svc := range pricingSeed {
		if _, err := s.db.Exec(`
			INSERT INTO pricing_services (provider, code, name) VALUES (?, ?, ?)`,
			svc.provider, svc.code, svc.name); err != nil {
			return cmn.NewDatabase(err)
		}
		for _, p := range svc.products {
			if _, err := s.db.Exec(`
				INSERT INTO pricing_products (provider, sku, service_code, attributes)
				VALUES (?, ?, ?, ?)`,
				svc.provider, p.SKU, p.ServiceCode, p.Attributes); err != nil {
				return cmn.NewDatabase(err)
			}
		}
		for _, t := range svc.terms {
			if _, err := s.db.Exec(`
				INSERT INTO pricing_terms (provider, id, sku, dimensions)
				VALUES (?, ?, ?, ?)`,
				svc.provider, t.ID, t.SKU, t.Dimensions); err != nil {
				return cmn.NewDatabase(err)
			}
		}
	}
	s.pricingSeeded = true
	return nil
}

func (s *Store) GetPricingServices(provider string) ([]*PricingService, error) {
	if err := s.ensurePricingSeeded(); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`SELECT provider, code, name FROM pricing_services
		WHERE provider = ? ORDER BY code`, provider)
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	defer rows.Close()
	var services []*PricingService
	for rows.Next() {
		var svc PricingService
		if err := rows.Scan(&svc.Provider, &svc.Code, &svc.Name); err != nil {
			return nil, cmn.NewDatabase(err)
		}
		services = append(services, &svc)
	}
	return services, rows.Err()
}

// GetProducts filters by service code and, when given, by exact-match
// attribute values.
func (s *Store) GetProducts(provider, serviceCode string, filters map[string]string) ([]*Product, error) {
	if err := s.ensurePricingSeeded(); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`SELECT provider, sku, service_code, attributes FROM pricing_products
		WHERE provider = ? AND service_code = ? ORDER BY sku`, provider, serviceCode)
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	defer rows.Close()
	var products []*Product
	for rows.Next() {
		var (
			p     Product
			attrs sql.NullString
		)
		if err := rows.Scan(&p.Provider, &p.SKU, &p.ServiceCode, &attrs); err != nil {
			return nil, cmn.NewDatabase(err)
		}
		p.Attributes = strOrEmpty(attrs)
		if matchAttributes(p.Attributes, filters) {
			products = append(products, &p)
		}
	}
	return products, rows.Err()
}

func matchAttributes(attrsJSON string, filters map[string]string) bool {
	if len(filters) == 0 {
		return true
	}
	var attrs map[string]string
	if js.UnmarshalFromString(attrsJSON, &attrs) != nil {
		return false
	}
	for k, v := range filters {
		if attrs[k] != v {
			return false
		}
	}
	return true
}

// ListSKUs returns the terms for every product of a service, the shape
// the GCP billing dialect renders from.
func (s *Store) ListSKUs(provider, serviceCode string) ([]*Product, map[string]*OfferTerm, error) {
	products, err := s.GetProducts(provider, serviceCode, nil)
	if err != nil {
		return nil, nil, err
	}
	rows, err := s.db.Query(`SELECT provider, id, sku, dimensions FROM pricing_terms
		WHERE provider = ? ORDER BY id`, provider)
	if err != nil {
		return nil, nil, cmn.NewDatabase(err)
	}
	defer rows.Close()
	terms := make(map[string]*OfferTerm)
	for rows.Next() {
		var (
			t    OfferTerm
			dims sql.NullString
		)
		if err := rows.Scan(&t.Provider, &t.ID, &t.SKU, &dims); err != nil {
			return nil, nil, cmn.NewDatabase(err)
		}
		t.Dimensions = strOrEmpty(dims)
		terms[t.SKU] = &t
	}
	return products, terms, rows.Err()
}

// GetTermsForSKU lists the offer terms of one product.
func (s *Store) GetTermsForSKU(provider, sku string) ([]*OfferTerm, error) {
	if err := s.ensurePricingSeeded(); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`SELECT provider, id, sku, dimensions FROM pricing_terms
		WHERE provider = ? AND sku = ? ORDER BY id`, provider, sku)
	if err != nil {
		return nil, cmn.NewDatabase(err)
	}
	defer rows.Close()
	var terms []*OfferTerm
	for rows.Next() {
		var (
			t    OfferTerm
			dims sql.NullString
		)
		if err := rows.Scan(&t.Provider, &t.ID, &t.SKU, &dims); err != nil {
			return nil, cmn.NewDatabase(err)
		}
		t.Dimensions = strOrEmpty(dims)
		terms = append(terms, &t)
	}
	return terms, rows.Err()
}
