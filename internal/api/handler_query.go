package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Imd11/DataPrism/internal/domain"
)

func (h *Handler) queryRows(w http.ResponseWriter, r *http.Request) {
	var q domain.RowsQuery
	if err := decodeJSON(r, &q); err != nil {
		h.writeError(w, domain.ErrValidation("invalid request body: %v", err))
		return
	}
	page, err := h.query.Rows(r.Context(), chi.URLParam(r, "tableID"), q)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) tableSummary(w http.ResponseWriter, r *http.Request) {
	report, err := h.report.Summary(r.Context(), chi.URLParam(r, "tableID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) tableQuality(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Keys []string `json:"keys"`
	}
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &body); err != nil {
			h.writeError(w, domain.ErrValidation("invalid request body: %v", err))
			return
		}
	}
	report, err := h.report.Quality(r.Context(), chi.URLParam(r, "tableID"), body.Keys)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) tableChart(w http.ResponseWriter, r *http.Request) {
	var req domain.ChartRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, domain.ErrValidation("invalid request body: %v", err))
		return
	}
	chart, err := h.report.Chart(r.Context(), chi.URLParam(r, "tableID"), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chart)
}

func (h *Handler) exportTable(w http.ResponseWriter, r *http.Request) {
	name, err := h.query.ExportCSV(r.Context(), chi.URLParam(r, "tableID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"filename":    name,
		"downloadUrl": "/api/exports/" + name,
	})
}

func (h *Handler) downloadExport(w http.ResponseWriter, r *http.Request) {
	path, err := h.query.ExportPath(chi.URLParam(r, "filename"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	http.ServeFile(w, r, path)
}
