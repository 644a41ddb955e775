package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Imd11/DataPrism/internal/domain"
)

// maxUploadBytes caps import uploads at 512 MiB.
const maxUploadBytes = 512 << 20

func (h *Handler) listFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.catalog.ListFiles(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (h *Handler) importFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.writeError(w, domain.ErrValidation("invalid multipart body: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, domain.ErrValidation("missing file field"))
		return
	}
	defer file.Close()

	res, err := h.importer.ImportCSV(r.Context(), header.Filename, file)
	if err != nil {
		h.writeError(w, err)
		return
	}

	// Profiles and relation edges derive from the new data immediately so
	// the first metadata read is already facts-based.
	if err := h.inference.RefreshTable(r.Context(), res.TableID); err != nil {
		h.writeError(w, err)
		return
	}
	meta, err := h.catalog.GetTableMeta(r.Context(), res.TableID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"fileId": res.File.ID,
		"table":  meta,
	})
}

func (h *Handler) listTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.catalog.ListTables(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tables)
}

func (h *Handler) getTable(w http.ResponseWriter, r *http.Request) {
	meta, err := h.catalog.GetTableMeta(r.Context(), chi.URLParam(r, "tableID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (h *Handler) getCanvas(w http.ResponseWriter, r *http.Request) {
	threshold := 0.0
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 || v > 1 {
			h.writeError(w, domain.ErrValidation("threshold must be in (0, 1]"))
			return
		}
		threshold = v
	}
	// The canvas always reflects current data, so inference runs first.
	if err := h.inference.RefreshInferredRelations(r.Context(), threshold); err != nil {
		h.writeError(w, err)
		return
	}
	tables, err := h.catalog.ListTables(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	relations, err := h.catalog.ListRelations(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	lineages, err := h.catalog.ListLineages(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tables":    tables,
		"relations": relations,
		"lineages":  lineages,
	})
}

func (h *Handler) setPrimaryKey(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Fields []string `json:"fields"`
	}
	if err := decodeJSON(r, &body); err != nil {
		h.writeError(w, domain.ErrValidation("invalid request body: %v", err))
		return
	}
	tableID := chi.URLParam(r, "tableID")
	if err := h.catalog.SetPrimaryKey(r.Context(), tableID, body.Fields); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tableId": tableID,
		"fields":  body.Fields,
	})
}

func (h *Handler) listRelations(w http.ResponseWriter, r *http.Request) {
	relations, err := h.catalog.ListRelations(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, relations)
}

func (h *Handler) createRelation(w http.ResponseWriter, r *http.Request) {
	var edge domain.RelationEdge
	if err := decodeJSON(r, &edge); err != nil {
		h.writeError(w, domain.ErrValidation("invalid request body: %v", err))
		return
	}
	created, err := h.catalog.CreateRelation(r.Context(), &edge)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) relationReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.catalog.RelationReport(r.Context(), chi.URLParam(r, "relationID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) listLineages(w http.ResponseWriter, r *http.Request) {
	lineages, err := h.catalog.ListLineages(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lineages)
}

func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.catalog.History(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}
