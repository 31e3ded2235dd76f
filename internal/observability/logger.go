package observability

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/s2sql/s2sql/internal/config"
)

type ctxKey string

const (
	traceIDKey      ctxKey = "trace_id"
	requestAttrsKey ctxKey = "request_attrs"
)

func NewLogger(cfg config.Config, writer io.Writer) *slog.Logger {
	if writer == nil {
		writer = io.Discard
	}
	opts := &slog.HandlerOptions{Level: cfg.Observability.LogLevel}
	var handler slog.Handler = slog.NewTextHandler(writer, opts)
	if cfg.Observability.LogJSON {
		handler = slog.NewJSONHandler(writer, opts)
	}
	return slog.New(handler).With(
		slog.String("service", cfg.Service.Name),
		slog.String("profile", string(cfg.Profile)),
	)
}

func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func TraceIDFromContext(ctx context.Context) string {
	value, ok := ctx.Value(traceIDKey).(string)
	if !ok {
		return ""
	}
	return value
}

// requestAttrs collects attributes that handlers deeper in the chain want on
// the access log line, such as the authenticated subject or the data set a
// parse resolved to.
type requestAttrs struct {
	mu    sync.Mutex
	attrs []slog.Attr
}

func contextWithRequestAttrs(ctx context.Context) context.Context {
	if _, ok := ctx.Value(requestAttrsKey).(*requestAttrs); ok {
		return ctx
	}
	return context.WithValue(ctx, requestAttrsKey, &requestAttrs{})
}

// AnnotateRequest adds attrs to the access log line of the current request.
// It is a no-op outside TraceMiddleware.
func AnnotateRequest(ctx context.Context, attrs ...slog.Attr) {
	holder, ok := ctx.Value(requestAttrsKey).(*requestAttrs)
	if !ok {
		return
	}
	holder.mu.Lock()
	holder.attrs = append(holder.attrs, attrs...)
	holder.mu.Unlock()
}

func requestAnnotations(ctx context.Context) []slog.Attr {
	holder, ok := ctx.Value(requestAttrsKey).(*requestAttrs)
	if !ok {
		return nil
	}
	holder.mu.Lock()
	defer holder.mu.Unlock()
	return append([]slog.Attr(nil), holder.attrs...)
}
