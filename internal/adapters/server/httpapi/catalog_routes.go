package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hylla/shopfloor/internal/adapters/server/common"
)

// handleListClients serves GET `/clients`.
func (h *Handler) handleListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.production.ListClients(r.Context(), strings.TrimSpace(r.URL.Query().Get("q")))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"clients": clients})
}

// handleGetClient serves GET `/clients/{id}`.
func (h *Handler) handleGetClient(w http.ResponseWriter, r *http.Request) {
	client, err := h.production.GetClient(r.Context(), chi.URLParam(r, "clientID"))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

// handleCreateClient serves POST `/clients`.
func (h *Handler) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var req common.ClientRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	client, err := h.production.CreateClient(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, client)
}

// handleUpdateClient serves PUT `/clients/{id}`.
func (h *Handler) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	var req common.ClientRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	client, err := h.production.UpdateClient(r.Context(), chi.URLParam(r, "clientID"), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

// handleDeleteClient serves DELETE `/clients/{id}`.
func (h *Handler) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	if err := h.production.DeleteClient(r.Context(), chi.URLParam(r, "clientID")); err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeNoContent(w)
}

// handleListProducts serves GET `/products`.
func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.production.ListProducts(r.Context(), strings.TrimSpace(r.URL.Query().Get("q")))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

// handleGetProduct serves GET `/products/{id}`.
func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.production.GetProduct(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// handleCreateProduct serves POST `/products`.
func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req common.ProductRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	product, err := h.production.CreateProduct(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

// handleUpdateProduct serves PUT `/products/{id}`.
func (h *Handler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req common.ProductRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	product, err := h.production.UpdateProduct(r.Context(), chi.URLParam(r, "productID"), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// handleDeleteProduct serves DELETE `/products/{id}`.
func (h *Handler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.production.DeleteProduct(r.Context(), chi.URLParam(r, "productID")); err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeNoContent(w)
}
