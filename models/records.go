// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kiosk App Authors

package models

import (
	"encoding/json"
	"sync/atomic"
	"time"
)

// Record is implemented by every record type kept in a local collection.
// WithID returns a copy of the record keyed by id.
type Record[T any] interface {
	RecordID() int64
	WithID(id int64) T
}

// StoredRecord is a record as kept in a durable collection: its key and the
// JSON document.
type StoredRecord struct {
	ID   int64
	Data json.RawMessage
}

// IsTempID reports whether id is a locally synthesized placeholder id.
func IsTempID(id int64) bool {
	return id < 0
}

var lastTempID atomic.Int64

// NewTempID returns a negative id derived from the current time in
// milliseconds. Ids are strictly decreasing within the process so two
// records created in the same millisecond do not collide.
func NewTempID() int64 {
	for {
		candidate := -time.Now().UnixMilli()
		prev := lastTempID.Load()
		if prev != 0 && candidate >= prev {
			candidate = prev - 1
		}
		if lastTempID.CompareAndSwap(prev, candidate) {
			return candidate
		}
	}
}

// Customer is a buyer known to the point of sale.
type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

func (c Customer) RecordID() int64 { return c.ID }

func (c Customer) WithID(id int64) Customer {
	c.ID = id
	return c
}

// Product is an inventory item that can be sold.
type Product struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	SKU      string  `json:"sku,omitempty"`
	Category string  `json:"category,omitempty"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
}

func (p Product) RecordID() int64 { return p.ID }

func (p Product) WithID(id int64) Product {
	p.ID = id
	return p
}

// SaleItem is a single line of a sale.
type SaleItem struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name,omitempty"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// Sale is a completed sales order.
type Sale struct {
	ID         int64      `json:"id"`
	CustomerID *int64     `json:"customer_id,omitempty"`
	Items      []SaleItem `json:"items"`
	Total      float64    `json:"total"`
	Status     string     `json:"status,omitempty"`
	SaleDate   time.Time  `json:"sale_date"`
}

func (s Sale) RecordID() int64 { return s.ID }

func (s Sale) WithID(id int64) Sale {
	s.ID = id
	return s
}

// ComputeTotal returns the sum of quantity * unit price over all items.
func (s Sale) ComputeTotal() float64 {
	var total float64
	for _, it := range s.Items {
		total += float64(it.Quantity) * it.UnitPrice
	}
	return total
}
