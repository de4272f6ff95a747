package shop

import (
	"errors"
	"fmt"
	"math"

	"shopfront/internal/docstore"
)

// CartService keeps one cart document per session token. Item prices are
// copied from the catalog at add time and totals are recomputed server-side;
// nothing money-related is ever trusted from the client.
type CartService struct {
	col      *docstore.Collection
	products *ProductService
}

func emptyCart(token string) docstore.Document {
	return docstore.Document{
		"session_token": token,
		"items":         []any{},
		"total":         0.0,
	}
}

// Get returns the cart for a session. A session with no cart yet gets an
// empty, not-yet-persisted cart document.
func (s *CartService) Get(token string) (docstore.Document, error) {
	cart, err := s.col.FindOne(map[string]any{"session_token": token})
	if errors.Is(err, docstore.ErrNoDocuments) {
		return emptyCart(token), nil
	}
	return cart, err
}

// AddItem puts quantity units of a published product into the session's cart,
// merging with an existing line for the same product.
func (s *CartService) AddItem(token, productID string, quantity int) (docstore.Document, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}
	product, err := s.products.Get(productID)
	if err != nil {
		return nil, err
	}
	if published, _ := product["published"].(bool); !published {
		return nil, ErrNotFound
	}

	cart, err := s.Get(token)
	if err != nil {
		return nil, err
	}

	items := cartItems(cart)
	line := findLine(items, productID)
	newQuantity := quantity
	if line != nil {
		newQuantity += lineQuantity(line)
	}
	if stock, _ := product["stock"].(float64); float64(newQuantity) > stock {
		return nil, fmt.Errorf("%w: product %s", ErrOutOfStock, productID)
	}

	if line != nil {
		line["quantity"] = float64(newQuantity)
	} else {
		price, _ := product["price"].(float64)
		items = append(items, any(docstore.Document{
			"product_id": productID,
			"title":      product["title"],
			"price":      price,
			"quantity":   float64(quantity),
		}))
	}
	cart["items"] = items
	return s.persist(cart)
}

// SetQuantity fixes the quantity of an existing cart line. Zero or negative
// removes the line.
func (s *CartService) SetQuantity(token, productID string, quantity int) (docstore.Document, error) {
	if quantity <= 0 {
		return s.RemoveItem(token, productID)
	}
	cart, err := s.Get(token)
	if err != nil {
		return nil, err
	}
	line := findLine(cartItems(cart), productID)
	if line == nil {
		return nil, ErrNotFound
	}

	product, err := s.products.Get(productID)
	if err != nil {
		return nil, err
	}
	if stock, _ := product["stock"].(float64); float64(quantity) > stock {
		return nil, fmt.Errorf("%w: product %s", ErrOutOfStock, productID)
	}

	line["quantity"] = float64(quantity)
	return s.persist(cart)
}

// RemoveItem drops a product's line from the cart.
func (s *CartService) RemoveItem(token, productID string) (docstore.Document, error) {
	cart, err := s.Get(token)
	if err != nil {
		return nil, err
	}
	items := cartItems(cart)
	kept := make([]any, 0, len(items))
	removed := false
	for _, item := range items {
		if line, ok := item.(docstore.Document); ok && lineProductID(line) == productID {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	if !removed {
		return nil, ErrNotFound
	}
	cart["items"] = kept
	return s.persist(cart)
}

// Clear deletes the session's cart document entirely.
func (s *CartService) Clear(token string) error {
	_, err := s.col.DeleteOne(map[string]any{"session_token": token})
	return err
}

// persist recomputes the total and writes the cart back, inserting on first
// use of the session.
func (s *CartService) persist(cart docstore.Document) (docstore.Document, error) {
	total := 0.0
	for _, item := range cartItems(cart) {
		line, ok := item.(docstore.Document)
		if !ok {
			continue
		}
		price, _ := line["price"].(float64)
		total += price * float64(lineQuantity(line))
	}
	cart["total"] = round2(total)
	cart["updated_at"] = nowStamp()

	if id, ok := cart.ID(); ok {
		if _, err := s.col.UpdateOne(map[string]any{docstore.IDField: id}, cart); err != nil {
			return nil, err
		}
		return cart, nil
	}
	id, err := s.col.InsertOne(cart)
	if err != nil {
		return nil, err
	}
	cart[docstore.IDField] = id
	return cart, nil
}

func cartItems(cart docstore.Document) []any {
	items, _ := cart["items"].([]any)
	return items
}

func findLine(items []any, productID string) docstore.Document {
	for _, item := range items {
		if line, ok := item.(docstore.Document); ok && lineProductID(line) == productID {
			return line
		}
	}
	return nil
}

func lineProductID(line docstore.Document) string {
	id, _ := line["product_id"].(string)
	return id
}

func lineQuantity(line docstore.Document) int {
	q, _ := line["quantity"].(float64)
	return int(q)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
