package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Imd11/DataPrism/internal/domain"
)

func (h *Handler) cleanTable(w http.ResponseWriter, r *http.Request) {
	var req domain.CleanRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, domain.ErrValidation("invalid request body: %v", err))
		return
	}
	tableID := chi.URLParam(r, "tableID")

	result, err := h.clean.Clean(r.Context(), tableID, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.inference.RefreshTable(r.Context(), tableID); err != nil {
		h.writeError(w, err)
		return
	}
	meta, err := h.catalog.GetTableMeta(r.Context(), tableID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"result": result,
		"table":  meta,
	})
}

func (h *Handler) previewClean(w http.ResponseWriter, r *http.Request) {
	var req struct {
		domain.CleanRequest
		Limit int `json:"limit"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, domain.ErrValidation("invalid request body: %v", err))
		return
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}
	preview, err := h.clean.Preview(r.Context(), chi.URLParam(r, "tableID"), req.CleanRequest, req.Limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (h *Handler) undoLastClean(w http.ResponseWriter, r *http.Request) {
	result, err := h.clean.UndoLastClean(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.inference.RefreshTable(r.Context(), result.TableID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) mergeTables(w http.ResponseWriter, r *http.Request) {
	var req domain.MergeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, domain.ErrValidation("invalid request body: %v", err))
		return
	}

	resultTableID, report, lineage, err := h.merge.Merge(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.inference.RefreshProfiles(r.Context(), resultTableID); err != nil {
		h.writeError(w, err)
		return
	}
	meta, err := h.catalog.GetTableMeta(r.Context(), resultTableID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"table":    meta,
		"report":   report,
		"lineages": []*domain.LineageEdge{lineage},
	})
}

func (h *Handler) reshapeTable(w http.ResponseWriter, r *http.Request) {
	var req domain.ReshapeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, domain.ErrValidation("invalid request body: %v", err))
		return
	}

	resultTableID, report, lineage, err := h.reshape.Reshape(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.inference.RefreshProfiles(r.Context(), resultTableID); err != nil {
		h.writeError(w, err)
		return
	}
	meta, err := h.catalog.GetTableMeta(r.Context(), resultTableID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"table":    meta,
		"report":   report,
		"lineages": []*domain.LineageEdge{lineage},
	})
}
