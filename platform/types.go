// Copyright 2026 The Storekeep Authors
// SPDX-License-Identifier: Apache-2.0

package platform

import "time"

// User is a platform account: a customer, an employee, or a company.
type User struct {
	ID        int64  `json:"user_id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// User roles as reported by the backend.
const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
	RoleCustomer = "customer"
	RoleCompany  = "company"
)

// Conversation is a chat thread between the current identity and one
// counterparty. The backend's unread count is advisory: the chat
// synchronizer reconciles it against in-memory and durably stored
// counts (see package chat).
type Conversation struct {
	ID                 int64     `json:"conversation_id"`
	CounterpartyID     int64     `json:"counterparty_id"`
	Counterparty       *User     `json:"counterparty,omitempty"`
	LastMessagePreview string    `json:"last_message_preview,omitempty"`
	LastMessageAt      time.Time `json:"last_message_at"`
	UnreadCount        int       `json:"unread_count"`
}

// Message is a single chat message. Immutable once created except for
// the Read flag, which transitions false to true exactly once.
type Message struct {
	ID             int64     `json:"message_id"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	Sender         *User     `json:"sender,omitempty"`
	Body           string    `json:"body"`
	SentAt         time.Time `json:"sent_at"`
	Read           bool      `json:"read"`
}

// Product is a catalog entry.
type Product struct {
	ID          int64     `json:"product_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	Menu        string    `json:"menu,omitempty"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Order statuses as reported by the backend.
const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
)

// Order is a purchase order. The backend embeds the referenced
// product and customer records when listing so the client does not
// need follow-up fetches.
type Order struct {
	ID         int64     `json:"order_id"`
	ProductID  int64     `json:"product_id"`
	Product    *Product  `json:"product,omitempty"`
	CustomerID int64     `json:"customer_id"`
	Customer   *User     `json:"customer,omitempty"`
	CompanyID  int64     `json:"company_id,omitempty"`
	Quantity   int       `json:"quantity"`
	Status     string    `json:"status"`
	DeliveryAt time.Time `json:"delivery_at"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Total returns the order value: unit price times quantity. Zero when
// the product record was not embedded.
func (o Order) Total() float64 {
	if o.Product == nil {
		return 0
	}
	return o.Product.Price * float64(o.Quantity)
}

// RevenueRow is one month of the revenue report.
type RevenueRow struct {
	Month  string  `json:"month"` // "2026-08"
	Total  float64 `json:"total"`
	Orders int     `json:"orders"`
}

// LoginRequest is the request body for password login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// RegisterRequest holds parameters for creating a new account.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Role     string `json:"role,omitempty"`
	Password string `json:"password"`
}

// CreateConversationRequest opens a thread with a counterparty.
type CreateConversationRequest struct {
	CounterpartyID int64 `json:"counterparty_id"`
}

// CreateOrderRequest is the request body for creating or updating an
// order.
type CreateOrderRequest struct {
	ProductID  int64     `json:"product_id"`
	CustomerID int64     `json:"customer_id"`
	CompanyID  int64     `json:"company_id,omitempty"`
	Quantity   int       `json:"quantity"`
	Status     string    `json:"status,omitempty"`
	DeliveryAt time.Time `json:"delivery_at,omitempty"`
	Note       string    `json:"note,omitempty"`
}

// CreateProductRequest is the request body for creating or updating a
// catalog entry.
type CreateProductRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Menu        string  `json:"menu,omitempty"`
	PhotoURL    string  `json:"photo_url,omitempty"`
}
