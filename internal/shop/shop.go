// Package shop implements the storefront and admin-panel services: settings,
// users, products, carts, and orders. All state lives in the embedded
// document store; services consume only its collection operations and add no
// storage semantics of their own.
package shop

import (
	"errors"
	"time"

	"shopfront/internal/docstore"
)

// databaseName is the logical database grouping all storefront collections.
const databaseName = "shop"

var (
	ErrNotFound           = errors.New("shop: not found")
	ErrDuplicateEmail     = errors.New("shop: email already registered")
	ErrBadCredentials     = errors.New("shop: invalid email or password")
	ErrDuplicatePermalink = errors.New("shop: permalink already in use")
	ErrEmptyCart          = errors.New("shop: cart is empty")
	ErrOutOfStock         = errors.New("shop: insufficient stock")
	ErrInvalidInput       = errors.New("shop: invalid input")
	ErrInvalidStatus      = errors.New("shop: invalid order status")
)

// Shop bundles the storefront services over one document store.
type Shop struct {
	Settings *SettingsService
	Users    *UserService
	Products *ProductService
	Carts    *CartService
	Orders   *OrderService
}

// New wires every service against its collection.
func New(db *docstore.DB) *Shop {
	products := &ProductService{col: db.Collection(databaseName, "products")}
	carts := &CartService{col: db.Collection(databaseName, "carts"), products: products}
	return &Shop{
		Settings: &SettingsService{col: db.Collection(databaseName, "settings")},
		Users:    &UserService{col: db.Collection(databaseName, "users")},
		Products: products,
		Carts:    carts,
		Orders: &OrderService{
			col:      db.Collection(databaseName, "orders"),
			products: products,
			carts:    carts,
		},
	}
}

// nowStamp is the timestamp format stored on documents.
func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// collectDocs drains a find sequence with optional offset/limit paging.
// limit <= 0 means no limit.
func collectDocs(col *docstore.Collection, filter map[string]any, offset, limit int) ([]docstore.Document, error) {
	seq, err := col.FindMany(filter)
	if err != nil {
		return nil, err
	}
	var docs []docstore.Document
	skipped := 0
	for doc := range seq {
		if skipped < offset {
			skipped++
			continue
		}
		docs = append(docs, doc)
		if limit > 0 && len(docs) == limit {
			break
		}
	}
	return docs, nil
}
