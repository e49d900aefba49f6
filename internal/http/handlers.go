package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"perfreport/internal/agent"
	"perfreport/internal/domain"
	"perfreport/internal/report"
	"perfreport/internal/repository"
	"perfreport/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const defaultUploadMaxBytes = 32 << 20

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Service is what the handlers call. *service.Service satisfies it.
type Service interface {
	UploadFile(ctx context.Context, kind service.UploadKind, input domain.UploadInput, fileName string, r io.Reader) (service.UploadResult, error)
	UploadRecords(ctx context.Context, kind service.UploadKind, input domain.UploadInput, records []map[string]any) (service.UploadResult, error)
	ListUploads(ctx context.Context, kind service.UploadKind, limit, offset int) ([]domain.Upload, error)
	GetUpload(ctx context.Context, kind service.UploadKind, id int64) (service.UploadDetail, error)
	LatestUploads(ctx context.Context) (domain.LatestUploads, error)

	GenerateReport(ctx context.Context, ids []int64, name string) (service.GeneratedReport, error)
	GenerateLatestReport(ctx context.Context, name string) (service.GeneratedReport, error)
	GetReport(ctx context.Context, id int64) (*domain.Report, error)
	LatestReport(ctx context.Context) (*domain.Report, error)
	ListReports(ctx context.Context, limit, offset int) ([]domain.Report, error)
	ExportReport(ctx context.Context, id int64, w io.Writer) (*domain.Report, error)

	ChatReport(ctx context.Context, req service.ChatRequest) (service.ChatResult, error)
	CompareReports(ctx context.Context, req service.CompareRequest) (domain.Comparison, error)
	FollowUp(ctx context.Context, req service.CompareRequest) (domain.Comparison, error)
	GetComparison(ctx context.Context, id string) (*domain.Comparison, error)
	ListComparisons(ctx context.Context, sessionID string, limit, offset int) ([]domain.Comparison, error)
}

type Options struct {
	// Ping checks the database for /healthz. Optional.
	Ping           func(ctx context.Context) error
	UploadMaxBytes int64
	Logger         *zap.Logger
}

type Handler struct {
	svc            Service
	ping           func(ctx context.Context) error
	uploadMaxBytes int64
	log            *zap.Logger
}

func NewHandler(svc Service, opts Options) *Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	maxBytes := opts.UploadMaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultUploadMaxBytes
	}
	return &Handler{svc: svc, ping: opts.Ping, uploadMaxBytes: maxBytes, log: log}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		if err := h.ping(r.Context()); err != nil {
			h.log.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "error": "database unreachable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

type uploadRequest struct {
	FileName    string           `json:"file_name"`
	Name        string           `json:"name"`
	Month       string           `json:"month"`
	Year        string           `json:"year"`
	Description *string          `json:"description"`
	Records     []map[string]any `json:"records"`
}

// uploadHandler accepts either a multipart form with a "file" field or a
// JSON body carrying the records inline.
func (h *Handler) uploadHandler(kind service.UploadKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, h.uploadMaxBytes)

		var (
			result service.UploadResult
			err    error
		)
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			if err := r.ParseMultipartForm(h.uploadMaxBytes); err != nil {
				writeError(w, http.StatusBadRequest, "failed to parse multipart form")
				return
			}
			file, header, ferr := r.FormFile("file")
			if ferr != nil {
				writeError(w, http.StatusBadRequest, "file field is required")
				return
			}
			defer file.Close()

			input := domain.UploadInput{
				FileName: r.FormValue("file_name"),
				Name:     r.FormValue("name"),
				Month:    r.FormValue("month"),
				Year:     r.FormValue("year"),
			}
			if description := r.FormValue("description"); description != "" {
				input.Description = &description
			}
			result, err = h.svc.UploadFile(r.Context(), kind, input, header.Filename, file)
		} else {
			var req uploadRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			input := domain.UploadInput{
				FileName:    req.FileName,
				Name:        req.Name,
				Month:       req.Month,
				Year:        req.Year,
				Description: req.Description,
			}
			result, err = h.svc.UploadRecords(r.Context(), kind, input, req.Records)
		}
		if err != nil {
			h.writeServiceError(w, r, err, "upload not found")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"message":   "upload stored",
			"upload_id": result.Upload.UploadID,
			"records":   result.Records,
			"upload":    result.Upload,
		})
	}
}

func (h *Handler) ListUploads(w http.ResponseWriter, r *http.Request) {
	kind, err := service.ParseUploadKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown upload kind")
		return
	}
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}
	uploads, err := h.svc.ListUploads(r.Context(), kind, limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(uploads))
}

func (h *Handler) GetUpload(w http.ResponseWriter, r *http.Request) {
	kind, err := service.ParseUploadKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown upload kind")
		return
	}
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	detail, err := h.svc.GetUpload(r.Context(), kind, id)
	if err != nil {
		h.writeServiceError(w, r, err, string(kind.Type())+" upload not found")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) LatestUploads(w http.ResponseWriter, r *http.Request) {
	latest, err := h.svc.LatestUploads(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

type generateReportRequest struct {
	UploadIDs []int64 `json:"upload_ids"`
	Name      string  `json:"name"`
}

func (h *Handler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	var req generateReportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	generated, err := h.svc.GenerateReport(r.Context(), req.UploadIDs, req.Name)
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, generated)
}

func (h *Handler) GenerateLatestReport(w http.ResponseWriter, r *http.Request) {
	generated, err := h.svc.GenerateLatestReport(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, generated)
}

func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}
	reports, err := h.svc.ListReports(r.Context(), limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(reports))
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	stored, err := h.svc.GetReport(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, "report not found")
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (h *Handler) LatestReport(w http.ResponseWriter, r *http.Request) {
	stored, err := h.svc.LatestReport(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, "report not found")
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

// ExportReport renders into a buffer first so a failed export still gets a
// JSON error instead of a truncated workbook.
func (h *Handler) ExportReport(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var buf bytes.Buffer
	if _, err := h.svc.ExportReport(r.Context(), id, &buf); err != nil {
		h.writeServiceError(w, r, err, "report not found")
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="report-%d.xlsx"`, id))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) ChatReport(w http.ResponseWriter, r *http.Request) {
	var req service.ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.svc.ChatReport(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) CompareReports(w http.ResponseWriter, r *http.Request) {
	h.compare(w, r, h.svc.CompareReports)
}

func (h *Handler) FollowUp(w http.ResponseWriter, r *http.Request) {
	h.compare(w, r, h.svc.FollowUp)
}

// compare answers 200 with the finished comparison. When the agent fails the
// recorded comparison is still returned, with a 502.
func (h *Handler) compare(w http.ResponseWriter, r *http.Request, run func(context.Context, service.CompareRequest) (domain.Comparison, error)) {
	var req service.CompareRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	comparison, err := run(r.Context(), req)
	if err != nil {
		if comparison.Status == domain.ComparisonError {
			h.log.Warn("comparison failed",
				zap.String("comparison_id", comparison.ComparisonID),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Error(err),
			)
			writeJSON(w, http.StatusBadGateway, comparison)
			return
		}
		h.writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, comparison)
}

func (h *Handler) GetComparison(w http.ResponseWriter, r *http.Request) {
	comparison, err := h.svc.GetComparison(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err, "comparison not found")
		return
	}
	writeJSON(w, http.StatusOK, comparison)
}

func (h *Handler) ListComparisons(w http.ResponseWriter, r *http.Request) {
	h.listComparisons(w, r, "")
}

func (h *Handler) ListSessionComparisons(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "id"))
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session id is required")
		return
	}
	h.listComparisons(w, r, sessionID)
}

func (h *Handler) listComparisons(w http.ResponseWriter, r *http.Request, sessionID string) {
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}
	comparisons, err := h.svc.ListComparisons(r.Context(), sessionID, limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(comparisons))
}

// writeServiceError maps service sentinels to status codes. Anything
// unrecognised is logged and reported as a 500 without details.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		if notFound == "" {
			notFound = "not found"
		}
		writeError(w, http.StatusNotFound, notFound)
	case errors.As(err, &maxBytes):
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", maxBytes.Limit))
	case errors.Is(err, service.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrAgentDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, agent.ErrUpstream),
		errors.Is(err, report.ErrUnparseableReport),
		errors.Is(err, report.ErrInvalidReport):
		h.log.Warn("agent reply rejected", zap.String("request_id", middleware.GetReqID(r.Context())), zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func pagination(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	query := r.URL.Query()
	limit, err := parseOptionalInt(query.Get("limit"), 200)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	offset, err := parseOptionalInt(query.Get("offset"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	return limit, offset, true
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return fmt.Errorf("request body exceeds %d bytes", maxBytes.Limit)
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func parseOptionalInt(raw string, defaultValue int) (int, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %s", raw)
	}
	if parsed < 0 {
		return 0, fmt.Errorf("value cannot be negative")
	}
	return parsed, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id")
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
