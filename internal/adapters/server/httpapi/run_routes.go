package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hylla/shopfloor/internal/adapters/server/common"
	"github.com/hylla/shopfloor/internal/app"
)

// stageRef reads the run, item, and stage ids from the route.
func stageRef(r *http.Request) app.StageRef {
	return app.StageRef{
		RunID:   chi.URLParam(r, "runID"),
		ItemID:  chi.URLParam(r, "itemID"),
		StageID: chi.URLParam(r, "stageID"),
	}
}

// handleListRuns serves GET `/runs`.
func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	published, err := queryBool(r, "published")
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	includeArchived, err := queryBool(r, "include_archived")
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	runs, err := h.production.ListRuns(r.Context(), app.RunFilter{
		OrderID:         strings.TrimSpace(r.URL.Query().Get("order_id")),
		PublishedOnly:   published,
		IncludeArchived: includeArchived,
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// createRunRequest is the POST `/runs` payload.
type createRunRequest struct {
	OrderID string `json:"order_id"`
}

// handleCreateRun serves POST `/runs`.
func (h *Handler) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	run, err := h.production.CreateRunFromOrder(r.Context(), req.OrderID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

// handleGetRun serves GET `/runs/{id}`.
func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.production.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleDeleteRun serves DELETE `/runs/{id}`.
func (h *Handler) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if err := h.production.DeleteRun(r.Context(), chi.URLParam(r, "runID")); err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeNoContent(w)
}

// handlePublishRun serves POST `/runs/{id}/publish`.
func (h *Handler) handlePublishRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.production.PublishRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleUnpublishRun serves POST `/runs/{id}/unpublish`.
func (h *Handler) handleUnpublishRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.production.UnpublishRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleListStageEvents serves GET `/runs/{id}/events`.
func (h *Handler) handleListStageEvents(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	events, err := h.production.ListStageEvents(r.Context(), chi.URLParam(r, "runID"), limit)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// handleStageTemplates serves GET `/stage-templates`.
func (h *Handler) handleStageTemplates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"templates": h.production.StageTemplates()})
}

// handleAddStage serves POST `/runs/{run}/items/{item}/stages`.
func (h *Handler) handleAddStage(w http.ResponseWriter, r *http.Request) {
	var req common.AddStageRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	req.RunID = chi.URLParam(r, "runID")
	req.ItemID = chi.URLParam(r, "itemID")
	stage, err := h.production.AddStage(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stage)
}

// handleUpdateStage serves PUT `/runs/{run}/items/{item}/stages/{stage}`.
func (h *Handler) handleUpdateStage(w http.ResponseWriter, r *http.Request) {
	var req common.StageDetailsRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	stage, err := h.production.UpdateStage(r.Context(), stageRef(r), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stage)
}

// handleRemoveStage serves DELETE `/runs/{run}/items/{item}/stages/{stage}`.
func (h *Handler) handleRemoveStage(w http.ResponseWriter, r *http.Request) {
	run, err := h.production.RemoveStage(r.Context(), stageRef(r))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleStageCommand serves POST `/runs/{run}/items/{item}/stages/{stage}/{command}`.
func (h *Handler) handleStageCommand(w http.ResponseWriter, r *http.Request) {
	stage, err := h.production.StageCommand(r.Context(), stageRef(r), chi.URLParam(r, "command"))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stage)
}

// checklistTextRequest carries checklist item text.
type checklistTextRequest struct {
	Text string `json:"text"`
}

// handleAddChecklistItem serves POST `.../checklist`.
func (h *Handler) handleAddChecklistItem(w http.ResponseWriter, r *http.Request) {
	var req checklistTextRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	h.checklist(w, r, http.StatusCreated, common.ChecklistRequest{Op: common.ChecklistAdd, Text: req.Text})
}

// handleToggleChecklistItem serves POST `.../checklist/{id}/toggle`.
func (h *Handler) handleToggleChecklistItem(w http.ResponseWriter, r *http.Request) {
	h.checklist(w, r, http.StatusOK, common.ChecklistRequest{Op: common.ChecklistToggle, ItemID: chi.URLParam(r, "checkID")})
}

// handleRenameChecklistItem serves PATCH `.../checklist/{id}`.
func (h *Handler) handleRenameChecklistItem(w http.ResponseWriter, r *http.Request) {
	var req checklistTextRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	h.checklist(w, r, http.StatusOK, common.ChecklistRequest{Op: common.ChecklistRename, ItemID: chi.URLParam(r, "checkID"), Text: req.Text})
}

// handleRemoveChecklistItem serves DELETE `.../checklist/{id}`.
func (h *Handler) handleRemoveChecklistItem(w http.ResponseWriter, r *http.Request) {
	h.checklist(w, r, http.StatusOK, common.ChecklistRequest{Op: common.ChecklistRemove, ItemID: chi.URLParam(r, "checkID")})
}

// markAllRequest is the POST `.../checklist/mark-all` payload.
type markAllRequest struct {
	Done *bool `json:"done"`
}

// handleMarkAllChecklist serves POST `.../checklist/mark-all`. Done defaults to true.
func (h *Handler) handleMarkAllChecklist(w http.ResponseWriter, r *http.Request) {
	var req markAllRequest
	if err := decodeOptionalJSONBody(w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	done := true
	if req.Done != nil {
		done = *req.Done
	}
	h.checklist(w, r, http.StatusOK, common.ChecklistRequest{Op: common.ChecklistMarkAll, Done: done})
}

func (h *Handler) checklist(w http.ResponseWriter, r *http.Request, status int, req common.ChecklistRequest) {
	req.Stage = stageRef(r)
	stage, err := h.production.ChecklistCommand(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, status, stage)
}
