package observability

import (
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/havenhome/storefront-api/internal/platform/requestctx"
)

const cloudTraceHeader = "X-Cloud-Trace-Context"

var tracer = otel.Tracer("github.com/havenhome/storefront-api/internal/platform/observability")

// TraceMiddleware extracts Cloud Trace context from incoming requests,
// starts a server span, and stores trace correlation info on the request
// context. Malformed headers are ignored.
func TraceMiddleware(projectID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			traceID, spanID, sampled, ok := parseCloudTraceHeader(r.Header.Get(cloudTraceHeader))
			if ok {
				var flags trace.TraceFlags
				if sampled {
					flags = trace.FlagsSampled
				}
				remote := trace.NewSpanContext(trace.SpanContextConfig{
					TraceID:    traceID,
					SpanID:     spanID,
					TraceFlags: flags,
					Remote:     true,
				})
				if remote.IsValid() {
					ctx = trace.ContextWithRemoteSpanContext(ctx, remote)
				}
			}

			urlPath := r.URL.Path
			if urlPath == "" {
				urlPath = "/"
			}
			ctx, span := tracer.Start(ctx, r.Method+" "+urlPath, trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()
			span.SetAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", urlPath),
				attribute.String("server.address", r.Host),
			)

			if spanCtx := span.SpanContext(); spanCtx.HasTraceID() {
				ctx = requestctx.WithTrace(ctx, requestctx.TraceInfo{
					TraceID:   spanCtx.TraceID().String(),
					SpanID:    spanCtx.SpanID().String(),
					Sampled:   spanCtx.IsSampled(),
					ProjectID: projectID,
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// parseCloudTraceHeader parses "TRACE_ID/SPAN_ID;o=1". SPAN_ID is a decimal
// uint64 in this header, unlike the hex form used by traceparent.
func parseCloudTraceHeader(value string) (trace.TraceID, trace.SpanID, bool, bool) {
	var zeroTrace trace.TraceID
	var zeroSpan trace.SpanID

	value = strings.TrimSpace(value)
	if value == "" {
		return zeroTrace, zeroSpan, false, false
	}

	sampled := false
	if idx := strings.Index(value, ";"); idx >= 0 {
		options := value[idx+1:]
		value = value[:idx]
		sampled = strings.Contains(options, "o=1")
	}

	tracePart := value
	spanPart := ""
	if idx := strings.Index(value, "/"); idx >= 0 {
		tracePart = value[:idx]
		spanPart = value[idx+1:]
	}

	traceID, err := trace.TraceIDFromHex(strings.ToLower(tracePart))
	if err != nil {
		return zeroTrace, zeroSpan, false, false
	}

	var spanID trace.SpanID
	if spanPart != "" {
		raw, err := strconv.ParseUint(spanPart, 10, 64)
		if err != nil {
			return zeroTrace, zeroSpan, false, false
		}
		for i := 0; i < 8; i++ {
			spanID[i] = byte(raw >> (56 - 8*i))
		}
	}

	return traceID, spanID, sampled, true
}
