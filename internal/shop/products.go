package shop

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"shopfront/internal/docstore"
)

// ProductService manages the product catalog. Listing order is insertion
// order; free-text search is a case-insensitive substring scan over title
// and description.
type ProductService struct {
	col *docstore.Collection
}

// Create validates and stores a new product, returning its identifier.
// Expected fields: title (required), price (required, >= 0), permalink,
// description, stock, published.
func (s *ProductService) Create(doc docstore.Document) (docstore.ObjectID, error) {
	title, _ := doc["title"].(string)
	if strings.TrimSpace(title) == "" {
		return "", fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	price, ok := doc["price"].(float64)
	if !ok || price < 0 {
		return "", fmt.Errorf("%w: price must be a non-negative number", ErrInvalidInput)
	}
	if permalink, _ := doc["permalink"].(string); permalink != "" {
		if err := s.checkPermalink(permalink, ""); err != nil {
			return "", err
		}
	}

	stored := doc.Clone()
	if _, ok := stored["published"].(bool); !ok {
		stored["published"] = false
	}
	if _, ok := stored["stock"].(float64); !ok {
		stored["stock"] = 0.0
	}
	stored["created_at"] = nowStamp()

	id, err := s.col.InsertOne(stored)
	if err != nil {
		return "", err
	}
	slog.Info("Product created", "id", id.Hex(), "title", title)
	return id, nil
}

// Update applies field-level changes to a product.
func (s *ProductService) Update(id string, fields map[string]any) error {
	if len(fields) == 0 {
		return ErrInvalidInput
	}
	if permalink, _ := fields["permalink"].(string); permalink != "" {
		if err := s.checkPermalink(permalink, id); err != nil {
			return err
		}
	}
	fields["updated_at"] = nowStamp()
	matched, err := s.col.UpdateOne(
		map[string]any{docstore.IDField: id},
		docstore.Document{"$set": fields},
	)
	if err != nil {
		return err
	}
	if matched == 0 {
		return ErrNotFound
	}
	return nil
}

// checkPermalink enforces permalink uniqueness across all other products.
func (s *ProductService) checkPermalink(permalink, excludeID string) error {
	filter := map[string]any{"permalink": permalink}
	if excludeID != "" {
		filter[docstore.IDField] = map[string]any{"$ne": excludeID}
	}
	_, err := s.col.FindOne(filter)
	if err == nil {
		return ErrDuplicatePermalink
	}
	if errors.Is(err, docstore.ErrNoDocuments) {
		return nil
	}
	return err
}

// Get returns a product by identifier.
func (s *ProductService) Get(id string) (docstore.Document, error) {
	doc, err := s.col.FindOne(map[string]any{docstore.IDField: id})
	if errors.Is(err, docstore.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	return doc, err
}

// ByPermalink returns a product by its permalink.
func (s *ProductService) ByPermalink(permalink string) (docstore.Document, error) {
	doc, err := s.col.FindOne(map[string]any{"permalink": permalink})
	if errors.Is(err, docstore.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	return doc, err
}

// List pages through products in insertion order. publishedOnly limits the
// listing to the storefront-visible subset.
func (s *ProductService) List(publishedOnly bool, offset, limit int) ([]docstore.Document, error) {
	filter := map[string]any{}
	if publishedOnly {
		filter["published"] = true
	}
	return collectDocs(s.col, filter, offset, limit)
}

// Count returns the catalog size, optionally restricted to published items.
func (s *ProductService) Count(publishedOnly bool) (int, error) {
	filter := map[string]any{}
	if publishedOnly {
		filter["published"] = true
	}
	return s.col.CountDocuments(filter)
}

// Search runs a case-insensitive substring match over title and description.
// The filter dialect is conjunction-only, so the two fields are scanned
// separately and merged by identifier.
func (s *ProductService) Search(query string, publishedOnly bool) ([]docstore.Document, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	pattern := regexp.QuoteMeta(query)

	var results []docstore.Document
	seen := make(map[docstore.ObjectID]struct{})
	for _, field := range []string{"title", "description"} {
		filter := map[string]any{
			field: map[string]any{"$regex": pattern, "$options": "i"},
		}
		if publishedOnly {
			filter["published"] = true
		}
		docs, err := collectDocs(s.col, filter, 0, 0)
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			id, ok := doc.ID()
			if !ok {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			results = append(results, doc)
		}
	}
	return results, nil
}

// Delete removes a product from the catalog.
func (s *ProductService) Delete(id string) error {
	deleted, err := s.col.DeleteOne(map[string]any{docstore.IDField: id})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrNotFound
	}
	slog.Info("Product deleted", "id", id)
	return nil
}
