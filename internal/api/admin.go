package api

import (
	"net/http"

	"shopfront/internal/docstore"
)

// AdminListProductsHandler lists the whole catalog, drafts included.
func (h *Handlers) AdminListProductsHandler(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 0)
	products, err := h.Shop.Products.List(false, offset, limit)
	if err != nil {
		sendShopError(w, err)
		return
	}
	total, err := h.Shop.Products.Count(false)
	if err != nil {
		sendShopError(w, err)
		return
	}
	SendJSONResponse(w, true, "", map[string]any{"products": products, "total": total}, http.StatusOK)
}

// AdminCreateProductHandler stores a new product document.
func (h *Handlers) AdminCreateProductHandler(w http.ResponseWriter, r *http.Request) {
	var doc docstore.Document
	if !decodeBody(w, r, &doc) {
		return
	}
	id, err := h.Shop.Products.Create(doc)
	if err != nil {
		sendShopError(w, err)
		return
	}
	SendJSONResponse(w, true, "Product created", map[string]any{"id": id.Hex()}, http.StatusCreated)
}

// AdminUpdateProductHandler applies field-level changes to a product.
func (h *Handlers) AdminUpdateProductHandler(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if !decodeBody(w, r, &fields) {
		return
	}
	id := r.PathValue("id")
	if err := h.Shop.Products.Update(id, fields); err != nil {
		sendShopError(w, err)
		return
	}
	product, err := h.Shop.Products.Get(id)
	if err != nil {
		sendShopError(w, err)
		return
	}
	SendJSONResponse(w, true, "Product updated", product, http.StatusOK)
}

// AdminDeleteProductHandler removes a product from the catalog.
func (h *Handlers) AdminDeleteProductHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Shop.Products.Delete(r.PathValue("id")); err != nil {
		sendShopError(w, err)
		return
	}
	SendJSONResponse(w, true, "Product deleted", nil, http.StatusOK)
}

// AdminListOrdersHandler lists orders. ?q= searches by reference or customer
// email, ?status= filters by lifecycle status.
func (h *Handlers) AdminListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	if query := r.URL.Query().Get("q"); query != "" {
		orders, err := h.Shop.Orders.Search(query)
		if err != nil {
			sendShopError(w, err)
			return
		}
		SendJSONResponse(w, true, "", map[string]any{"orders": orders}, http.StatusOK)
		return
	}

	status := r.URL.Query().Get("status")
	orders, err := h.Shop.Orders.ListAll(queryInt(r, "offset", 0), queryInt(r, "limit", 0))
	if err != nil {
		sendShopError(w, err)
		return
	}
	if status != "" {
		filtered := orders[:0]
		for _, order := range orders {
			if order["status"] == status {
				filtered = append(filtered, order)
			}
		}
		orders = filtered
	}
	SendJSONResponse(w, true, "", map[string]any{"orders": orders}, http.StatusOK)
}

// AdminOrderStatusHandler moves an order to a new status.
func (h *Handlers) AdminOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	order, err := h.Shop.Orders.UpdateStatus(r.PathValue("id"), req.Status)
	if err != nil {
		sendShopError(w, err)
		return
	}
	SendJSONResponse(w, true, "Order updated", order, http.StatusOK)
}

// AdminGetSettingsHandler returns the store settings.
func (h *Handlers) AdminGetSettingsHandler(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Shop.Settings.Get()
	if err != nil {
		sendShopError(w, err)
		return
	}
	SendJSONResponse(w, true, "", settings, http.StatusOK)
}

// AdminUpdateSettingsHandler applies field-level changes to the settings.
func (h *Handlers) AdminUpdateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if !decodeBody(w, r, &fields) {
		return
	}
	settings, err := h.Shop.Settings.Update(fields)
	if err != nil {
		sendShopError(w, err)
		return
	}
	SendJSONResponse(w, true, "Settings updated", settings, http.StatusOK)
}
