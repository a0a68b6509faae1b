package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Bahjat/page-agent/backend/internal/model"
	"github.com/Bahjat/page-agent/backend/internal/platform/errs"
)

// DefaultRequestTimeout bounds one analysis when none is configured.
const DefaultRequestTimeout = 120 * time.Second

// API identity reported by GET /api.
const (
	apiName    = "AI Agent Browser Automation API"
	apiVersion = "1.0.0"
)

var errURLRequired = errors.New("the \"url\" field is required")

// Transport handles HTTP requests for page analysis.
type Transport struct {
	service        *Service
	requestTimeout time.Duration
	logger         *slog.Logger
}

// NewTransport creates an HTTP transport backed by the given service. A
// non-positive requestTimeout selects DefaultRequestTimeout.
func NewTransport(service *Service, requestTimeout time.Duration, logger *slog.Logger) *Transport {
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	return &Transport{service: service, requestTimeout: requestTimeout, logger: logger}
}

// RegisterRoutes attaches the transport's handlers to the given mux.
func (t *Transport) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", t.handleHealth)
	mux.HandleFunc("GET /api", t.handleInfo)
	mux.HandleFunc("POST /api/analyze", t.handleAnalyze)
}

func (t *Transport) handleHealth(w http.ResponseWriter, _ *http.Request) {
	t.renderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (t *Transport) handleInfo(w http.ResponseWriter, _ *http.Request) {
	t.renderJSON(w, http.StatusOK, map[string]string{"message": apiName, "version": apiVersion})
}

func (t *Transport) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	const maxRequestBody = 1 << 20 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req model.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.renderError(w, http.StatusBadRequest, "Invalid request body. Please send a JSON object with a \"url\" field.")
		return
	}
	if req.URL == "" {
		t.renderError(w, http.StatusBadRequest, errURLRequired.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), t.requestTimeout)
	defer cancel()

	result, err := t.service.Analyze(ctx, req.URL)
	if err != nil {
		t.handleServiceError(w, err)
		return
	}

	t.renderJSON(w, http.StatusOK, result)
}

func (t *Transport) handleServiceError(w http.ResponseWriter, err error) {
	var appErr *errs.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		switch appErr.Kind {
		case errs.InvalidInput:
			status = http.StatusBadRequest
		case errs.Unreachable, errs.AgentFailed:
			status = http.StatusBadGateway
		case errs.Timeout:
			status = http.StatusGatewayTimeout
		case errs.ParsingFailed, errs.Unknown:
			// 500 Internal Server Error
		}
		t.renderError(w, status, appErr.Message)
		return
	}

	t.renderError(w, http.StatusInternalServerError, "An unexpected error occurred.")
}

func (t *Transport) renderJSON(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		t.logger.Error("failed to encode response", "error", err)
		http.Error(w, `{"success":false,"error":"Internal Server Error","status_code":500}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (t *Transport) renderError(w http.ResponseWriter, status int, message string) {
	t.renderJSON(w, status, model.ErrorResponse{
		Success:    false,
		Error:      message,
		StatusCode: status,
	})
}
