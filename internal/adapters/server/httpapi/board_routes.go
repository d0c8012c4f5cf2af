package httpapi

import (
	"net/http"
	"strings"

	"github.com/hylla/shopfloor/internal/adapters/server/common"
	"github.com/hylla/shopfloor/internal/app"
)

// handleBoard serves GET `/board`.
func (h *Handler) handleBoard(w http.ResponseWriter, r *http.Request) {
	overdue, err := queryBool(r, "overdue")
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	board, err := h.production.Board(r.Context(), app.CardFilter{
		Query:       strings.TrimSpace(r.URL.Query().Get("q")),
		OverdueOnly: overdue,
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// handleMoveCard serves POST `/board/move`.
func (h *Handler) handleMoveCard(w http.ResponseWriter, r *http.Request) {
	var req common.MoveCardRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	stage, err := h.production.MoveCard(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stage)
}

// handleDashboard serves GET `/dashboard`.
func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.production.Dashboard(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

// handleExportSnapshot serves GET `/snapshot`.
func (h *Handler) handleExportSnapshot(w http.ResponseWriter, r *http.Request) {
	includeArchived, err := queryBool(r, "include_archived")
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	snap, err := h.production.ExportSnapshot(r.Context(), includeArchived)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleImportSnapshot serves POST `/snapshot`.
func (h *Handler) handleImportSnapshot(w http.ResponseWriter, r *http.Request) {
	var snap app.Snapshot
	if err := decodeJSONBody(r.Context(), w, r, &snap); err != nil {
		writeErrorFrom(w, err)
		return
	}
	if err := h.production.ImportSnapshot(r.Context(), snap); err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"clients":  len(snap.Clients),
		"products": len(snap.Products),
		"orders":   len(snap.Orders),
		"runs":     len(snap.Runs),
	})
}
