package context

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Origin names the entry point that started a unit of work.
type Origin string

const (
	OriginHTTP   Origin = "http"
	OriginCLI    Origin = "cli"
	OriginWorker Origin = "worker"
)

// TraceContext ties log lines and error bodies of one request, CLI run or
// relay batch together.
type TraceContext struct {
	TraceID   string
	RequestID string
	Origin    Origin
}

type traceContextKey struct{}

func WithTrace(ctx context.Context, t *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, t)
}

func GetTrace(ctx context.Context) *TraceContext {
	t, _ := ctx.Value(traceContextKey{}).(*TraceContext)
	return t
}

// GetRequestID returns "" outside a traced unit of work.
func GetRequestID(ctx context.Context) string {
	if t := GetTrace(ctx); t != nil {
		return t.RequestID
	}
	return ""
}

// StartTrace attaches a new TraceContext for work entering at origin.
// Empty ids are filled in: the trace id follows an active OpenTelemetry span
// when there is one.
func StartTrace(ctx context.Context, origin Origin, requestID, traceID string) context.Context {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	if traceID == "" {
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			traceID = sc.TraceID().String()
		} else {
			traceID = uuid.NewString()
		}
	}
	return WithTrace(ctx, &TraceContext{
		TraceID:   traceID,
		RequestID: requestID,
		Origin:    origin,
	})
}
