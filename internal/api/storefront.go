package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"shopfront/internal/docstore"
	"shopfront/internal/session"
	"shopfront/internal/shop"
)

const defaultPageSize = 12

// sendShopError maps service errors onto HTTP statuses.
func sendShopError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shop.ErrNotFound):
		SendJSONResponse(w, false, "Not found", nil, http.StatusNotFound)
	case errors.Is(err, shop.ErrBadCredentials):
		SendJSONResponse(w, false, "Invalid email or password", nil, http.StatusUnauthorized)
	case errors.Is(err, shop.ErrDuplicateEmail), errors.Is(err, shop.ErrDuplicatePermalink):
		SendJSONResponse(w, false, err.Error(), nil, http.StatusConflict)
	case errors.Is(err, shop.ErrOutOfStock):
		SendJSONResponse(w, false, err.Error(), nil, http.StatusConflict)
	case errors.Is(err, shop.ErrInvalidInput),
		errors.Is(err, shop.ErrInvalidStatus),
		errors.Is(err, shop.ErrEmptyCart):
		SendJSONResponse(w, false, err.Error(), nil, http.StatusBadRequest)
	default:
		slog.Error("Request failed", "error", err)
		SendJSONResponse(w, false, "Internal server error", nil, http.StatusInternalServerError)
	}
}

// queryInt reads an integer query parameter, falling back on bad input.
func queryInt(r *http.Request, name string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

// pageSize reads the storefront page size from the store settings.
func (h *Handlers) pageSize() int {
	settings, err := h.Shop.Settings.Get()
	if err != nil {
		return defaultPageSize
	}
	if n, ok := settings["items_per_page"].(float64); ok && n > 0 {
		return int(n)
	}
	return defaultPageSize
}

// ListProductsHandler serves the published catalog. ?q= switches to search,
// ?page= pages through the listing.
func (h *Handlers) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	if query := r.URL.Query().Get("q"); query != "" {
		products, err := h.Shop.Products.Search(query, true)
		if err != nil {
			sendShopError(w, err)
			return
		}
		SendJSONResponse(w, true, "", map[string]any{"products": products, "query": query}, http.StatusOK)
		return
	}

	perPage := h.pageSize()
	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	products, err := h.Shop.Products.List(true, (page-1)*perPage, perPage)
	if err != nil {
		sendShopError(w, err)
		return
	}
	total, err := h.Shop.Products.Count(true)
	if err != nil {
		sendShopError(w, err)
		return
	}
	SendJSONResponse(w, true, "", map[string]any{
		"products": products,
		"page":     page,
		"total":    total,
	}, http.StatusOK)
}

// GetProductHandler serves one published product by permalink, falling back
// to lookup by identifier.
func (h *Handlers) GetProductHandler(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	product, err := h.Shop.Products.ByPermalink(key)
	if errors.Is(err, shop.ErrNotFound) && docstore.IsValidObjectID(key) {
		product, err = h.Shop.Products.Get(key)
	}
	if err != nil {
		sendShopError(w, err)
		return
	}
	if published, _ := product["published"].(bool); !published {
		SendJSONResponse(w, false, "Not found", nil, http.StatusNotFound)
		return
	}
	SendJSONResponse(w, true, "", product, http.StatusOK)
}

// GetCartHandler returns the caller's cart.
func (h *Handlers) GetCartHandler(w http.ResponseWriter, r *http.Request) {
	sess := h.ensureSession(w, r)
	cart, err := h.Shop.Carts.Get(sess.Token)
	if err != nil {
		sendShopError(w, err)
		return
	}
	SendJSONResponse(w, true, "", cart, http.StatusOK)
}

// AddCartItemHandler puts a product into the caller's cart.
func (h *Handlers) AddCartItemHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	sess := h.ensureSession(w, r)
	cart, err := h.Shop.Carts.AddItem(sess.Token, req.ProductID, req.Quantity)
	if err != nil {
		sendShopError(w, err)
		return
	}
	SendJSONResponse(w, true, "Item added to cart", cart, http.StatusOK)
}

// SetCartItemHandler fixes the quantity of one cart line.
func (h *Handlers) SetCartItemHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	sess := h.ensureSession(w, r)
	cart, err := h.Shop.Carts.SetQuantity(sess.Token, r.PathValue("productID"), req.Quantity)
	if err != nil {
		sendShopError(w, err)
		return
	}
	SendJSONResponse(w, true, "Cart updated", cart, http.StatusOK)
}

// RemoveCartItemHandler drops one line from the caller's cart.
func (h *Handlers) RemoveCartItemHandler(w http.ResponseWriter, r *http.Request) {
	sess := h.ensureSession(w, r)
	cart, err := h.Shop.Carts.RemoveItem(sess.Token, r.PathValue("productID"))
	if err != nil {
		sendShopError(w, err)
		return
	}
	SendJSONResponse(w, true, "Item removed from cart", cart, http.StatusOK)
}

// CheckoutHandler turns the caller's cart into an order. Logged-in customers
// order under their account email; guests must supply one.
func (h *Handlers) CheckoutHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	sess := h.ensureSession(w, r)
	email, userID := req.Email, ""
	if sess.Authenticated() {
		email, userID = sess.Email, sess.UserID
	}
	order, err := h.Shop.Orders.Place(sess.Token, email, userID)
	if err != nil {
		sendShopError(w, err)
		return
	}
	SendJSONResponse(w, true, "Order placed", order, http.StatusCreated)
}

// OrderByRefHandler serves an order confirmation by public reference.
func (h *Handlers) OrderByRefHandler(w http.ResponseWriter, r *http.Request) {
	order, err := h.Shop.Orders.ByRef(r.PathValue("ref"))
	if err != nil {
		sendShopError(w, err)
		return
	}
	SendJSONResponse(w, true, "", order, http.StatusOK)
}

// publicUser strips credentials from a user document before it leaves the
// server.
func publicUser(user docstore.Document) map[string]any {
	out := map[string]any{
		"email": user["email"],
		"role":  user["role"],
	}
	if id, ok := user.ID(); ok {
		out["id"] = id.Hex()
	}
	return out
}

// RegisterHandler creates a customer account and logs the session in.
func (h *Handlers) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	user, err := h.Shop.Users.Register(req.Email, req.Password, shop.RoleCustomer)
	if err != nil {
		sendShopError(w, err)
		return
	}
	sess := h.ensureSession(w, r)
	h.loginSession(w, sess.Token, user)
	SendJSONResponse(w, true, "Account created", publicUser(user), http.StatusCreated)
}

// LoginHandler authenticates a user and binds it to the caller's session.
func (h *Handlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	user, err := h.Shop.Users.Authenticate(req.Email, req.Password)
	if err != nil {
		sendShopError(w, err)
		return
	}
	sess := h.ensureSession(w, r)
	h.loginSession(w, sess.Token, user)
	SendJSONResponse(w, true, "Logged in", publicUser(user), http.StatusOK)
}

func (h *Handlers) loginSession(w http.ResponseWriter, token string, user docstore.Document) {
	id, _ := user.ID()
	email, _ := user["email"].(string)
	role, _ := user["role"].(string)
	if sess, ok := h.Sessions.Login(token, id.Hex(), email, role); ok {
		session.SetCookie(w, sess)
	}
}

// LogoutHandler detaches the user from the session. The session itself, and
// its cart, survive.
func (h *Handlers) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if token, ok := session.TokenFromRequest(r); ok {
		h.Sessions.Logout(token)
	}
	SendJSONResponse(w, true, "Logged out", nil, http.StatusOK)
}

// MeHandler reports the logged-in user.
func (h *Handlers) MeHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.currentSession(r)
	if !ok || !sess.Authenticated() {
		SendJSONResponse(w, false, "Not logged in", nil, http.StatusUnauthorized)
		return
	}
	user, err := h.Shop.Users.ByID(sess.UserID)
	if err != nil {
		sendShopError(w, err)
		return
	}
	SendJSONResponse(w, true, "", publicUser(user), http.StatusOK)
}

// MyOrdersHandler lists the logged-in customer's orders.
func (h *Handlers) MyOrdersHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.currentSession(r)
	if !ok || !sess.Authenticated() {
		SendJSONResponse(w, false, "Not logged in", nil, http.StatusUnauthorized)
		return
	}
	orders, err := h.Shop.Orders.ListByUser(sess.UserID)
	if err != nil {
		sendShopError(w, err)
		return
	}
	SendJSONResponse(w, true, "", map[string]any{"orders": orders}, http.StatusOK)
}
