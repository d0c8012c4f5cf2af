package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hylla/shopfloor/internal/app"
	"github.com/hylla/shopfloor/internal/render"
)

// handleListOrders serves GET `/orders`.
func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	includeArchived, err := queryBool(r, "include_archived")
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	orders, err := h.production.ListOrders(r.Context(), includeArchived)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// handleGetOrder serves GET `/orders/{id}`.
func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.production.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// handleCreateOrder serves POST `/orders`.
func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req app.CreateOrderInput
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	order, err := h.production.CreateOrder(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// orderStatusRequest is the PATCH `/orders/{id}/status` payload.
type orderStatusRequest struct {
	Status string `json:"status"`
}

// handleSetOrderStatus serves PATCH `/orders/{id}/status`.
func (h *Handler) handleSetOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req orderStatusRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	order, err := h.production.SetOrderStatus(r.Context(), chi.URLParam(r, "orderID"), req.Status)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// handleArchiveOrder serves POST `/orders/{id}/archive`.
func (h *Handler) handleArchiveOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.production.ArchiveOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// handleRestoreOrder serves POST `/orders/{id}/restore`.
func (h *Handler) handleRestoreOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.production.RestoreOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// handleDeleteOrder serves DELETE `/orders/{id}`.
func (h *Handler) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.production.DeleteOrder(r.Context(), chi.URLParam(r, "orderID")); err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeNoContent(w)
}

// handleOrderReport serves GET `/orders/{id}/report`, as JSON or markdown.
func (h *Handler) handleOrderReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.production.OrderReport(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	if wantsMarkdown(r) {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(render.OrderReportMarkdown(report)))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// wantsMarkdown reports whether the caller asked for markdown via `format` or Accept.
func wantsMarkdown(r *http.Request) bool {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))) {
	case "markdown", "md":
		return true
	case "json":
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "text/markdown")
}
