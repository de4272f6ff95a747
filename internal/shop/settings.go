package shop

import (
	"errors"
	"log/slog"

	"shopfront/internal/docstore"
)

// SettingsService owns the single settings document. The first read seeds it
// with defaults so a fresh store is immediately usable.
type SettingsService struct {
	col *docstore.Collection
}

func defaultSettings() docstore.Document {
	return docstore.Document{
		"store_name":      "Shopfront",
		"store_email":     "owner@example.com",
		"currency_symbol": "$",
		"items_per_page":  12.0,
		"payment_gateway": "manual",
		"created_at":      nowStamp(),
	}
}

// Get returns the settings document, seeding defaults on first access.
func (s *SettingsService) Get() (docstore.Document, error) {
	doc, err := s.col.FindOne(map[string]any{})
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, docstore.ErrNoDocuments) {
		return nil, err
	}

	seeded := defaultSettings()
	id, err := s.col.InsertOne(seeded)
	if err != nil {
		return nil, err
	}
	seeded[docstore.IDField] = id
	slog.Info("Seeded default store settings")
	return seeded, nil
}

// Update applies field-level changes to the settings document.
func (s *SettingsService) Update(fields map[string]any) (docstore.Document, error) {
	if len(fields) == 0 {
		return nil, ErrInvalidInput
	}
	current, err := s.Get()
	if err != nil {
		return nil, err
	}
	id, _ := current.ID()
	fields["updated_at"] = nowStamp()
	if _, err := s.col.UpdateOne(
		map[string]any{docstore.IDField: id},
		docstore.Document{"$set": fields},
	); err != nil {
		return nil, err
	}
	return s.col.FindOne(map[string]any{docstore.IDField: id})
}
