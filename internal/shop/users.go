package shop

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"shopfront/internal/docstore"
)

// User roles stored on the user document.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// UserService manages customer and admin accounts in the users collection.
// Passwords are stored only as bcrypt hashes.
type UserService struct {
	col *docstore.Collection
}

// Register creates an account. Emails are unique, case-insensitively.
func (s *UserService) Register(email, password, role string) (docstore.Document, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email", ErrInvalidInput)
	}
	if len(password) < 6 {
		return nil, fmt.Errorf("%w: password too short", ErrInvalidInput)
	}
	if role != RoleCustomer && role != RoleAdmin {
		return nil, fmt.Errorf("%w: role %q", ErrInvalidInput, role)
	}

	if _, err := s.col.FindOne(map[string]any{"email": email}); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, docstore.ErrNoDocuments) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	doc := docstore.Document{
		"email":         email,
		"password_hash": string(hash),
		"role":          role,
		"created_at":    nowStamp(),
	}
	id, err := s.col.InsertOne(doc)
	if err != nil {
		return nil, err
	}
	doc[docstore.IDField] = id
	slog.Info("User registered", "email", email, "role", role)
	return doc, nil
}

// Authenticate verifies credentials and returns the user document.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *UserService) Authenticate(email, password string) (docstore.Document, error) {
	user, err := s.col.FindOne(map[string]any{"email": normalizeEmail(email)})
	if err != nil {
		if errors.Is(err, docstore.ErrNoDocuments) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	hash, _ := user["password_hash"].(string)
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	return user, nil
}

// ByID returns the user document for an identifier supplied as a hex string.
func (s *UserService) ByID(id string) (docstore.Document, error) {
	user, err := s.col.FindOne(map[string]any{docstore.IDField: id})
	if errors.Is(err, docstore.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	return user, err
}

// UpdatePassword replaces a user's password hash.
func (s *UserService) UpdatePassword(id, newPassword string) error {
	if len(newPassword) < 6 {
		return fmt.Errorf("%w: password too short", ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	matched, err := s.col.UpdateOne(
		map[string]any{docstore.IDField: id},
		docstore.Document{"$set": map[string]any{
			"password_hash": string(hash),
			"updated_at":    nowStamp(),
		}},
	)
	if err != nil {
		return err
	}
	if matched == 0 {
		return ErrNotFound
	}
	return nil
}

// EnsureAdmin seeds the default admin account when no admin exists yet, so a
// fresh deployment always has a way into the admin panel.
func (s *UserService) EnsureAdmin(email, password string) error {
	count, err := s.col.CountDocuments(map[string]any{"role": RoleAdmin})
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if _, err := s.Register(email, password, RoleAdmin); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	slog.Info("Seeded default admin user", "email", normalizeEmail(email))
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
