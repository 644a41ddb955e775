// Package api provides the HTTP surface of the data catalog.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Imd11/DataPrism/internal/service"
)

// Handler bundles the service dependencies behind the REST routes.
type Handler struct {
	catalog   *service.CatalogService
	inference *service.InferenceService
	importer  *service.ImportService
	clean     *service.CleanService
	merge     *service.MergeService
	reshape   *service.ReshapeService
	query     *service.QueryService
	report    *service.ReportService
	log       *slog.Logger
}

func NewHandler(
	catalog *service.CatalogService,
	inference *service.InferenceService,
	importer *service.ImportService,
	clean *service.CleanService,
	merge *service.MergeService,
	reshape *service.ReshapeService,
	query *service.QueryService,
	report *service.ReportService,
	log *slog.Logger,
) *Handler {
	return &Handler{
		catalog:   catalog,
		inference: inference,
		importer:  importer,
		clean:     clean,
		merge:     merge,
		reshape:   reshape,
		query:     query,
		report:    report,
		log:       log,
	}
}

// Router builds the chi mux with the full route table.
func (h *Handler) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/files", h.listFiles)
		r.Post("/files/import", h.importFile)

		r.Get("/tables", h.listTables)
		r.Get("/tables/{tableID}", h.getTable)
		r.Post("/tables/{tableID}/rows:query", h.queryRows)
		r.Post("/tables/{tableID}/summary", h.tableSummary)
		r.Post("/tables/{tableID}/quality", h.tableQuality)
		r.Post("/tables/{tableID}/chart", h.tableChart)
		r.Post("/tables/{tableID}/primary-key", h.setPrimaryKey)
		r.Post("/tables/{tableID}/clean", h.cleanTable)
		r.Post("/tables/{tableID}/clean:preview", h.previewClean)
		r.Post("/tables/{tableID}/export", h.exportTable)

		r.Get("/canvas", h.getCanvas)
		r.Get("/relations", h.listRelations)
		r.Post("/relations", h.createRelation)
		r.Get("/relations/{relationID}/report", h.relationReport)

		r.Get("/lineages", h.listLineages)
		r.Get("/history", h.getHistory)
		r.Post("/undo", h.undoLastClean)

		r.Post("/merge", h.mergeTables)
		r.Post("/reshape", h.reshapeTable)

		r.Get("/exports/{filename}", h.downloadExport)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := httpStatusFromDomainError(err)
	body := errorBodyFromError(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "error", err, "correlationId", body.CorrelationID)
	}
	writeJSON(w, status, body)
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
