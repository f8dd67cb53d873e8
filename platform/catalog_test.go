// Copyright 2026 The Storekeep Authors
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
)

func TestListProducts(t *testing.T) {
	t.Run("all products", func(t *testing.T) {
		_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assertAuth(t, request, "test-token")
			if request.URL.Path != "/products" {
				t.Errorf("unexpected path: %s", request.URL.Path)
			}
			if request.URL.RawQuery != "" {
				t.Errorf("unexpected query: %s", request.URL.RawQuery)
			}
			writeJSON(writer, []Product{
				{ID: 1, Name: "Espresso", Price: 3.50, Stock: 100},
				{ID: 2, Name: "Croissant", Price: 4.25, Stock: 12, Menu: "bakery"},
			})
		}))

		products, err := session.ListProducts(context.Background(), "")
		if err != nil {
			t.Fatalf("ListProducts failed: %v", err)
		}
		if len(products) != 2 {
			t.Fatalf("expected 2 products, got %d", len(products))
		}
		if products[1].Menu != "bakery" {
			t.Errorf("unexpected product: %+v", products[1])
		}
	})

	t.Run("menu filter", func(t *testing.T) {
		_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if got := request.URL.Query().Get("menu"); got != "bakery" {
				t.Errorf("unexpected menu filter: %q", got)
			}
			writeJSON(writer, []Product{{ID: 2, Name: "Croissant", Menu: "bakery"}})
		}))

		products, err := session.ListProducts(context.Background(), "bakery")
		if err != nil {
			t.Fatalf("ListProducts failed: %v", err)
		}
		if len(products) != 1 || products[0].ID != 2 {
			t.Errorf("unexpected products: %+v", products)
		}
	})
}

func TestCreateProduct(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/products" || request.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", request.Method, request.URL.Path)
		}
		var body CreateProductRequest
		if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if body.Name != "Espresso" || body.Price != 3.50 {
			t.Errorf("unexpected body: %+v", body)
		}
		writeJSON(writer, Product{ID: 7, Name: body.Name, Price: body.Price, Stock: body.Stock})
	}))

	product, err := session.CreateProduct(context.Background(), CreateProductRequest{
		Name: "Espresso", Price: 3.50, Stock: 100,
	})
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	if product.ID != 7 {
		t.Errorf("unexpected product ID: %d", product.ID)
	}

	t.Run("name required", func(t *testing.T) {
		if _, err := session.CreateProduct(context.Background(), CreateProductRequest{Price: 1}); err == nil {
			t.Error("expected error for missing name")
		}
	})
}

func TestUpdateAndDeleteProduct(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		switch {
		case request.Method == http.MethodPut && request.URL.Path == "/products/7":
			writeJSON(writer, Product{ID: 7, Name: "Double Espresso", Price: 4.50})
		case request.Method == http.MethodDelete && request.URL.Path == "/products/7":
			writer.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request: %s %s", request.Method, request.URL.Path)
		}
	}))

	product, err := session.UpdateProduct(context.Background(), 7, CreateProductRequest{
		Name: "Double Espresso", Price: 4.50,
	})
	if err != nil {
		t.Fatalf("UpdateProduct failed: %v", err)
	}
	if product.Name != "Double Espresso" {
		t.Errorf("unexpected product: %+v", product)
	}

	if err := session.DeleteProduct(context.Background(), 7); err != nil {
		t.Fatalf("DeleteProduct failed: %v", err)
	}
}

func TestGetProductNotFound(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		writer.WriteHeader(http.StatusNotFound)
		json.NewEncoder(writer).Encode(APIError{Code: ErrCodeNotFound, Message: "no such product"})
	}))

	_, err := session.GetProduct(context.Background(), 999)
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNotFound(err) {
		t.Errorf("IsNotFound should report true, got %v", err)
	}
}
