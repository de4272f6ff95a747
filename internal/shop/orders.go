package shop

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"

	"shopfront/internal/docstore"
)

// Order lifecycle. Transitions are not enforced beyond membership in this
// set; an operator can move an order to any known status.
const (
	StatusCreated   = "created"
	StatusPaid      = "paid"
	StatusShipped   = "shipped"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var orderStatuses = map[string]bool{
	StatusCreated:   true,
	StatusPaid:      true,
	StatusShipped:   true,
	StatusCompleted: true,
	StatusCancelled: true,
}

// OrderService turns carts into orders. Placing an order decrements catalog
// stock and clears the cart; the order keeps its own copy of the purchased
// lines so later catalog edits never rewrite history.
type OrderService struct {
	col      *docstore.Collection
	products *ProductService
	carts    *CartService
}

// Place checks stock for every cart line, decrements it, records the order
// and clears the cart. userID may be empty for guest checkout.
func (s *OrderService) Place(token, email, userID string) (docstore.Document, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	cart, err := s.carts.Get(token)
	if err != nil {
		return nil, err
	}
	items := cartItems(cart)
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	// Verify everything is still in stock before touching the catalog,
	// so a failed checkout leaves stock untouched.
	type decrement struct {
		productID string
		remaining float64
	}
	decrements := make([]decrement, 0, len(items))
	for _, item := range items {
		line, ok := item.(docstore.Document)
		if !ok {
			continue
		}
		product, err := s.products.Get(lineProductID(line))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: product %s no longer exists", ErrOutOfStock, lineProductID(line))
			}
			return nil, err
		}
		stock, _ := product["stock"].(float64)
		quantity := float64(lineQuantity(line))
		if quantity > stock {
			return nil, fmt.Errorf("%w: product %s", ErrOutOfStock, lineProductID(line))
		}
		decrements = append(decrements, decrement{lineProductID(line), stock - quantity})
	}

	for _, d := range decrements {
		update := docstore.Document{"$set": map[string]any{"stock": d.remaining, "updated_at": nowStamp()}}
		if _, err := s.products.col.UpdateOne(map[string]any{docstore.IDField: d.productID}, update); err != nil {
			return nil, err
		}
	}

	order := docstore.Document{
		"ref":        uuid.NewString(),
		"email":      email,
		"user_id":    userID,
		"items":      append([]any(nil), items...),
		"total":      cart["total"],
		"status":     StatusCreated,
		"created_at": nowStamp(),
	}
	id, err := s.col.InsertOne(order)
	if err != nil {
		return nil, err
	}
	order[docstore.IDField] = id

	if err := s.carts.Clear(token); err != nil {
		return nil, err
	}
	return order, nil
}

// Get looks an order up by identifier.
func (s *OrderService) Get(id string) (docstore.Document, error) {
	order, err := s.col.FindOne(map[string]any{docstore.IDField: id})
	if errors.Is(err, docstore.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	return order, err
}

// ByRef looks an order up by its public reference.
func (s *OrderService) ByRef(ref string) (docstore.Document, error) {
	order, err := s.col.FindOne(map[string]any{"ref": ref})
	if errors.Is(err, docstore.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	return order, err
}

// ListAll returns orders for the admin view, newest last.
func (s *OrderService) ListAll(offset, limit int) ([]docstore.Document, error) {
	return collectDocs(s.col, map[string]any{}, offset, limit)
}

// ListByUser returns the orders placed by a registered customer.
func (s *OrderService) ListByUser(userID string) ([]docstore.Document, error) {
	return collectDocs(s.col, map[string]any{"user_id": userID}, 0, 0)
}

// Count reports the number of orders, optionally restricted to one status.
func (s *OrderService) Count(status string) (int, error) {
	filter := map[string]any{}
	if status != "" {
		filter["status"] = status
	}
	return s.col.CountDocuments(filter)
}

// UpdateStatus moves an order to a new lifecycle status.
func (s *OrderService) UpdateStatus(id, status string) (docstore.Document, error) {
	if !orderStatuses[status] {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	filter := map[string]any{docstore.IDField: id}
	update := map[string]any{"$set": map[string]any{"status": status, "updated_at": nowStamp()}}
	matched, err := s.col.UpdateOne(filter, update)
	if err != nil {
		return nil, err
	}
	if matched == 0 {
		return nil, ErrNotFound
	}
	return s.col.FindOne(filter)
}

// Search finds orders by exact reference or by customer email substring.
// Two scans merged by identifier, same approach as the catalog search.
func (s *OrderService) Search(query string) ([]docstore.Document, error) {
	if query == "" {
		return nil, nil
	}
	seen := make(map[docstore.ObjectID]bool)
	var results []docstore.Document

	if order, err := s.ByRef(query); err == nil {
		if id, ok := order.ID(); ok {
			seen[id] = true
		}
		results = append(results, order)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	pattern := regexp.QuoteMeta(query)
	byEmail, err := collectDocs(s.col, map[string]any{
		"email": map[string]any{"$regex": pattern, "$options": "i"},
	}, 0, 0)
	if err != nil {
		return nil, err
	}
	for _, order := range byEmail {
		if id, ok := order.ID(); ok && seen[id] {
			continue
		}
		results = append(results, order)
	}
	return results, nil
}
