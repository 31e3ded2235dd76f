package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/s2sql/s2sql/internal/auth"
	"github.com/s2sql/s2sql/internal/chat"
	"github.com/s2sql/s2sql/internal/config"
	"github.com/s2sql/s2sql/internal/observability"
	"github.com/s2sql/s2sql/internal/parser/llm"
	"github.com/s2sql/s2sql/internal/semantic"
)

type ReadinessCheck func(ctx context.Context) error

// QueryParser runs a single query turn to a generation result.
type QueryParser interface {
	Parse(ctx context.Context, qctx *chat.QueryContext) (llm.Result, error)
}

// ExemplarFlusher drains buffered generation traces to the object store.
type ExemplarFlusher interface {
	Flush(ctx context.Context) error
	Pending() int
}

type Dependencies struct {
	Logger           *slog.Logger
	Readiness        ReadinessCheck
	AuthMiddleware   func(http.Handler) http.Handler
	DependencyTimout time.Duration
	Schema           semantic.Source
	Parser           QueryParser
	Exemplars        ExemplarFlusher
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	protected := http.NewServeMux()
	protected.HandleFunc("POST /v1/parse", func(w http.ResponseWriter, r *http.Request) {
		handleParse(deps, w, r)
	})
	protected.HandleFunc("GET /v1/datasets", func(w http.ResponseWriter, r *http.Request) {
		handleListDataSets(deps, w, r)
	})
	protected.HandleFunc("POST /v1/exemplars/flush", func(w http.ResponseWriter, r *http.Request) {
		handleFlushExemplars(deps, w, r)
	})

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	mux.Handle("POST /v1/parse", protectedHandler)
	mux.Handle("GET /v1/datasets", protectedHandler)
	mux.Handle("POST /v1/exemplars/flush", protectedHandler)

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

// CheckSemanticSource verifies that the registry yields a schema.
func CheckSemanticSource(source semantic.Source) ReadinessCheck {
	return func(ctx context.Context) error {
		if source == nil {
			return errors.New("semantic source is not configured")
		}
		if _, err := source.Load(ctx); err != nil {
			return fmt.Errorf("semantic source: %w", err)
		}
		return nil
	}
}

// BucketChecker is implemented by object stores that can verify their bucket.
type BucketChecker interface {
	Check(ctx context.Context) error
}

// CheckObjectStore verifies the exemplar bucket is reachable.
func CheckObjectStore(store BucketChecker) ReadinessCheck {
	return func(ctx context.Context) error {
		if store == nil {
			return errors.New("object store is not configured")
		}
		if err := store.Check(ctx); err != nil {
			return fmt.Errorf("object store: %w", err)
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func requireRole(r *http.Request, role string) error {
	return auth.Authorize(r.Context(), role)
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
