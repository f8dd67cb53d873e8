// Copyright 2026 The Storekeep Authors
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// ListProducts fetches the catalog. menu filters to one menu section;
// empty returns everything.
func (s *Session) ListProducts(ctx context.Context, menu string) ([]Product, error) {
	path := "/products"
	if menu != "" {
		path += "?" + url.Values{"menu": {menu}}.Encode()
	}
	body, err := s.get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("platform: fetching products: %w", err)
	}
	var products []Product
	if err := json.Unmarshal(body, &products); err != nil {
		return nil, fmt.Errorf("platform: failed to parse products response: %w", err)
	}
	return products, nil
}

// GetProduct fetches a single catalog entry.
func (s *Session) GetProduct(ctx context.Context, productID int64) (*Product, error) {
	body, err := s.get(ctx, "/products/"+strconv.FormatInt(productID, 10))
	if err != nil {
		return nil, fmt.Errorf("platform: fetching product %d: %w", productID, err)
	}
	var product Product
	if err := json.Unmarshal(body, &product); err != nil {
		return nil, fmt.Errorf("platform: failed to parse product response: %w", err)
	}
	return &product, nil
}

// CreateProduct adds a catalog entry.
func (s *Session) CreateProduct(ctx context.Context, request CreateProductRequest) (*Product, error) {
	if request.Name == "" {
		return nil, fmt.Errorf("platform: product name is required")
	}
	body, err := s.do(ctx, http.MethodPost, "/products", request)
	if err != nil {
		return nil, fmt.Errorf("platform: creating product %q: %w", request.Name, err)
	}
	var product Product
	if err := json.Unmarshal(body, &product); err != nil {
		return nil, fmt.Errorf("platform: failed to parse product response: %w", err)
	}
	s.client.logger.Info("created product", "product_id", product.ID, "name", product.Name)
	return &product, nil
}

// UpdateProduct replaces a catalog entry's fields.
func (s *Session) UpdateProduct(ctx context.Context, productID int64, request CreateProductRequest) (*Product, error) {
	body, err := s.do(ctx, http.MethodPut, "/products/"+strconv.FormatInt(productID, 10), request)
	if err != nil {
		return nil, fmt.Errorf("platform: updating product %d: %w", productID, err)
	}
	var product Product
	if err := json.Unmarshal(body, &product); err != nil {
		return nil, fmt.Errorf("platform: failed to parse product response: %w", err)
	}
	return &product, nil
}

// DeleteProduct removes a catalog entry.
func (s *Session) DeleteProduct(ctx context.Context, productID int64) error {
	_, err := s.do(ctx, http.MethodDelete, "/products/"+strconv.FormatInt(productID, 10), nil)
	if err != nil {
		return fmt.Errorf("platform: deleting product %d: %w", productID, err)
	}
	s.client.logger.Info("deleted product", "product_id", productID)
	return nil
}
