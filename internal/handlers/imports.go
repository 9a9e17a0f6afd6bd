package handlers

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"helpdesk-api/internal/auth"
	"helpdesk-api/internal/tenant"
	"helpdesk-api/pkg/importer"
)

// ImportsHandler handles Excel import operations
type ImportsHandler struct {
	DB          *pgxpool.Pool
	MaxBytes    int64
	MappingPath string
	Logger      *zap.Logger
}

// NewImportsHandler creates a new imports handler
func NewImportsHandler(db *pgxpool.Pool, mappingPath string, logger *zap.Logger) *ImportsHandler {
	if mappingPath == "" {
		mappingPath = importer.DefaultMappingPath
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportsHandler{
		DB:          db,
		MaxBytes:    20 << 20, // 20 MB
		MappingPath: mappingPath,
		Logger:      logger,
	}
}

// UploadExcel imports assets from an uploaded workbook into the caller's scope
func (h *ImportsHandler) UploadExcel(w http.ResponseWriter, r *http.Request) {
	scope, ok := tenant.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, auth.ErrorResponse{Error: "authentication required", Code: "UNAUTHENTICATED"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)

	if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
		http.Error(w, "content-type must be multipart/form-data", http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		http.Error(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	dryRun := r.FormValue("dry_run") == "true"
	maxErrors := 50
	if v := r.FormValue("max_errors"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxErrors = n
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !isXLSX(header) {
		http.Error(w, "only .xlsx files are accepted", http.StatusBadRequest)
		return
	}

	sum, impErr := importer.ImportExcel(r.Context(), h.DB, file, importer.ImportOptions{
		Scope:       scope,
		MappingPath: h.MappingPath,
		DryRun:      dryRun,
		MaxErrors:   maxErrors,
	})
	if impErr != nil {
		h.Logger.Warn("asset import failed",
			zap.String("scope", scope.String()),
			zap.String("file", header.Filename),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(impErr))
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   "IMPORT_FAILED",
			"details": impErr.Error(),
			"data":    sum,
		})
		return
	}

	h.Logger.Info("asset import finished",
		zap.String("scope", scope.String()),
		zap.Bool("dry_run", dryRun),
		zap.Int("inserted", sum.Inserted),
		zap.Int("updated", sum.Updated),
		zap.Int("errors", sum.Errors))

	writeJSON(w, http.StatusOK, map[string]any{
		"data": sum,
		"meta": map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func isXLSX(h *multipart.FileHeader) bool {
	return strings.HasSuffix(strings.ToLower(h.Filename), ".xlsx")
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
