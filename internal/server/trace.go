package server

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "mdview"

// traceMiddleware opens one span per request, tagged with the handler
// class rather than the raw path so asset names don't explode cardinality.
// With no tracer provider installed this is a no-op.
func (e *Engine) traceMiddleware(next http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "http."+routeClass(r.URL.Path),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
			),
		)
		defer span.End()

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func routeClass(urlPath string) string {
	switch {
	case urlPath == "/events":
		return "events"
	case urlPath == "/metrics":
		return "metrics"
	case isImagePath(urlPath):
		return "asset"
	default:
		return "page"
	}
}
