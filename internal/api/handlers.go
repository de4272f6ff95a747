// Package api exposes the storefront and admin HTTP endpoints as JSON.
package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"shopfront/internal/session"
	"shopfront/internal/shop"
)

// Configure jsoniter for standard library compatibility.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxBodyBytes = 1 * 1024 * 1024

// APIResponse defines the base structure for all JSON responses.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// SendJSONResponse is a helper function to send any JSON response.
func SendJSONResponse(w http.ResponseWriter, success bool, message string, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)

	resp := APIResponse{
		Success: success,
		Message: message,
		Data:    data,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// Handlers groups the API handlers over the shop services and the session
// manager.
type Handlers struct {
	Shop     *shop.Shop
	Sessions *session.Manager
}

// NewHandlers creates a new instance of Handlers.
func NewHandlers(s *shop.Shop, sessions *session.Manager) *Handlers {
	return &Handlers{Shop: s, Sessions: sessions}
}

// Routes builds the full route table, storefront and admin.
func (h *Handlers) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Storefront.
	mux.HandleFunc("GET /api/products", h.ListProductsHandler)
	mux.HandleFunc("GET /api/products/{key}", h.GetProductHandler)
	mux.HandleFunc("GET /api/cart", h.GetCartHandler)
	mux.HandleFunc("POST /api/cart/items", h.AddCartItemHandler)
	mux.HandleFunc("PUT /api/cart/items/{productID}", h.SetCartItemHandler)
	mux.HandleFunc("DELETE /api/cart/items/{productID}", h.RemoveCartItemHandler)
	mux.HandleFunc("POST /api/checkout", h.CheckoutHandler)
	mux.HandleFunc("GET /api/orders/{ref}", h.OrderByRefHandler)

	// Accounts.
	mux.HandleFunc("POST /api/register", h.RegisterHandler)
	mux.HandleFunc("POST /api/login", h.LoginHandler)
	mux.HandleFunc("POST /api/logout", h.LogoutHandler)
	mux.HandleFunc("GET /api/me", h.MeHandler)
	mux.HandleFunc("GET /api/orders", h.MyOrdersHandler)

	// Admin.
	mux.Handle("GET /api/admin/products", h.requireAdmin(h.AdminListProductsHandler))
	mux.Handle("POST /api/admin/products", h.requireAdmin(h.AdminCreateProductHandler))
	mux.Handle("PUT /api/admin/products/{id}", h.requireAdmin(h.AdminUpdateProductHandler))
	mux.Handle("DELETE /api/admin/products/{id}", h.requireAdmin(h.AdminDeleteProductHandler))
	mux.Handle("GET /api/admin/orders", h.requireAdmin(h.AdminListOrdersHandler))
	mux.Handle("PUT /api/admin/orders/{id}/status", h.requireAdmin(h.AdminOrderStatusHandler))
	mux.Handle("GET /api/admin/settings", h.requireAdmin(h.AdminGetSettingsHandler))
	mux.Handle("PUT /api/admin/settings", h.requireAdmin(h.AdminUpdateSettingsHandler))

	return mux
}

// LogRequest is a middleware for logging incoming HTTP requests.
func LogRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Info("Request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// currentSession resolves the caller's session from the cookie, if any.
func (h *Handlers) currentSession(r *http.Request) (session.Session, bool) {
	token, ok := session.TokenFromRequest(r)
	if !ok {
		return session.Session{}, false
	}
	return h.Sessions.Get(token)
}

// ensureSession returns the caller's session, creating an anonymous one and
// setting its cookie when the caller has none yet. Carts hang off this token.
func (h *Handlers) ensureSession(w http.ResponseWriter, r *http.Request) session.Session {
	if sess, ok := h.currentSession(r); ok {
		return sess
	}
	sess := h.Sessions.Create()
	session.SetCookie(w, sess)
	return sess
}

// requireAdmin guards the admin routes.
func (h *Handlers) requireAdmin(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := h.currentSession(r)
		if !ok || !sess.IsAdmin() {
			SendJSONResponse(w, false, "Admin access required", nil, http.StatusForbidden)
			return
		}
		next(w, r)
	})
}

// decodeBody parses a JSON request body into dst, rejecting oversized bodies
// and unknown fields. An empty body leaves dst untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		slog.Warn("Bad request: invalid JSON body", "path", r.URL.Path, "error", err)
		SendJSONResponse(w, false, "Invalid JSON request body or unknown fields", nil, http.StatusBadRequest)
		return false
	}
	return true
}
