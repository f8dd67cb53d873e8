// Copyright 2026 The Storekeep Authors
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// ListOrders fetches all orders visible to the current identity, with
// product and customer records embedded.
func (s *Session) ListOrders(ctx context.Context) ([]Order, error) {
	body, err := s.get(ctx, "/orders")
	if err != nil {
		return nil, fmt.Errorf("platform: fetching orders: %w", err)
	}
	var orders []Order
	if err := json.Unmarshal(body, &orders); err != nil {
		return nil, fmt.Errorf("platform: failed to parse orders response: %w", err)
	}
	return orders, nil
}

// CreateOrder places an order. Stock decrement and pricing are the
// backend's responsibility.
func (s *Session) CreateOrder(ctx context.Context, request CreateOrderRequest) (*Order, error) {
	if request.ProductID == 0 {
		return nil, fmt.Errorf("platform: order requires a product")
	}
	if request.Quantity <= 0 {
		return nil, fmt.Errorf("platform: order quantity must be positive, got %d", request.Quantity)
	}
	body, err := s.do(ctx, http.MethodPost, "/orders", request)
	if err != nil {
		return nil, fmt.Errorf("platform: creating order: %w", err)
	}
	var order Order
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("platform: failed to parse order response: %w", err)
	}
	s.client.logger.Info("created order",
		"order_id", order.ID,
		"product_id", order.ProductID,
		"quantity", order.Quantity,
	)
	return &order, nil
}

// UpdateOrder replaces an order's fields.
func (s *Session) UpdateOrder(ctx context.Context, orderID int64, request CreateOrderRequest) (*Order, error) {
	body, err := s.do(ctx, http.MethodPut, "/orders/"+strconv.FormatInt(orderID, 10), request)
	if err != nil {
		return nil, fmt.Errorf("platform: updating order %d: %w", orderID, err)
	}
	var order Order
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("platform: failed to parse order response: %w", err)
	}
	return &order, nil
}

// UpdateOrderStatus moves an order through its lifecycle (pending,
// confirmed, delivered, cancelled) without touching other fields.
func (s *Session) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	request := struct {
		Status string `json:"status"`
	}{Status: status}
	_, err := s.do(ctx, http.MethodPut, "/orders/"+strconv.FormatInt(orderID, 10)+"/status", request)
	if err != nil {
		return fmt.Errorf("platform: updating order %d status to %q: %w", orderID, status, err)
	}
	return nil
}

// DeleteOrder removes an order.
func (s *Session) DeleteOrder(ctx context.Context, orderID int64) error {
	_, err := s.do(ctx, http.MethodDelete, "/orders/"+strconv.FormatInt(orderID, 10), nil)
	if err != nil {
		return fmt.Errorf("platform: deleting order %d: %w", orderID, err)
	}
	s.client.logger.Info("deleted order", "order_id", orderID)
	return nil
}

// RevenueReport fetches per-month revenue totals for the reporting
// charts.
func (s *Session) RevenueReport(ctx context.Context) ([]RevenueRow, error) {
	body, err := s.get(ctx, "/revenue-report")
	if err != nil {
		return nil, fmt.Errorf("platform: fetching revenue report: %w", err)
	}
	var rows []RevenueRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("platform: failed to parse revenue report: %w", err)
	}
	return rows, nil
}
