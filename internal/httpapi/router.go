// Package httpapi exposes the comparison engine over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Shaizy-S/AutoSentiment/internal/domain"
)

const maxBodyBytes = 1 << 20

// Comparer runs one comparison.
type Comparer interface {
	Compare(ctx context.Context, req domain.ComparisonRequest) (domain.ComparisonResult, error)
}

type handler struct {
	comparer Comparer
	version  string
	logger   *slog.Logger
}

// NewRouter wires the API routes. requestTimeout bounds a whole request; zero disables the bound.
func NewRouter(comparer Comparer, version string, requestTimeout time.Duration, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{comparer: comparer, version: version, logger: logger}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	if requestTimeout > 0 {
		r.Use(chimiddleware.Timeout(requestTimeout))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)
		r.Post("/compare", h.compare)
	})
	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Version: h.version})
}

func (h *handler) compare(w http.ResponseWriter, r *http.Request) {
	var body compareRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeError(w, domain.InvalidRequestf("malformed request body: %v", err))
		return
	}

	res, err := h.comparer.Compare(r.Context(), body.toDomain())
	if err != nil {
		if domain.Code(err) == domain.CodeInternal {
			h.logger.Error("comparison failed", "request_id", chimiddleware.GetReqID(r.Context()), "error", err)
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(res))
}

// StatusFor maps a boundary error code to its HTTP status.
func StatusFor(code string) int {
	switch code {
	case domain.CodeOK:
		return http.StatusOK
	case domain.CodeInvalidRequest:
		return http.StatusBadRequest
	case domain.CodeInsufficientData:
		return http.StatusUnprocessableEntity
	case domain.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := domain.Code(err)
	msg := err.Error()
	if code == domain.CodeInternal && !errors.Is(err, domain.ErrInternal) {
		msg = "internal error"
	}
	writeJSON(w, StatusFor(code), errorResponse{Error: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
