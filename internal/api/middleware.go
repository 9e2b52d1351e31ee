package api

import (
	"fmt"
	"net/http"

	"github.com/signalsfoundry/hawki-etc/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName         = "github.com/signalsfoundry/hawki-etc/internal/api"
	requestIDHeaderKey = "X-Request-Id"
)

// RequestIDMiddleware ensures a request_id is present on the context,
// sourcing it from the inbound header if provided, and attaches a
// per-request logger annotated with request_id and route.
func RequestIDMiddleware(base logging.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = logging.Noop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if incoming := r.Header.Get(requestIDHeaderKey); incoming != "" {
				ctx = logging.ContextWithRequestID(ctx, incoming)
			}

			ctx, reqLog := logging.WithRequestLogger(ctx, base.With(
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
			))
			ctx = logging.ContextWithLogger(ctx, reqLog)

			w.Header().Set(requestIDHeaderKey, logging.RequestIDFromContext(ctx))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TracingMiddleware enriches request spans with standard attributes and
// ensures a server span exists when no tracing-aware proxy sits in front.
func TracingMiddleware() func(http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			spanName := fmt.Sprintf("ETC %s %s", r.Method, r.URL.Path)

			span := trace.SpanFromContext(ctx)
			created := false
			if !span.SpanContext().IsValid() {
				ctx, span = tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindServer))
				created = true
			} else {
				span.SetName(spanName)
			}

			attrs := []attribute.KeyValue{
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
			}
			if reqID := logging.RequestIDFromContext(ctx); reqID != "" {
				attrs = append(attrs, attribute.String("request_id", reqID))
			}
			span.SetAttributes(attrs...)

			next.ServeHTTP(w, r.WithContext(ctx))

			if created {
				span.End()
			}
		})
	}
}
