package observability

import (
	"context"
)

// Context keys for observability data.
type contextKey string

const (
	requestIDKey contextKey = "request_id"
	jobKey       contextKey = "job"
	runIDKey     contextKey = "run_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if not present.
func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// WithJobRun adds a batch job name and run ID to the context.
func WithJobRun(ctx context.Context, job, runID string) context.Context {
	ctx = context.WithValue(ctx, jobKey, job)
	ctx = context.WithValue(ctx, runIDKey, runID)
	return ctx
}

// JobRunFromContext retrieves the job name and run ID from context.
// Returns empty strings if not present.
func JobRunFromContext(ctx context.Context) (job, runID string) {
	return stringValue(ctx, jobKey), stringValue(ctx, runIDKey)
}

// RunContext contains the correlation data carried through a request or
// batch run.
type RunContext struct {
	RequestID string
	Job       string
	RunID     string
}

// WithRunContext adds all non-empty run context fields to the context.
func WithRunContext(ctx context.Context, rc RunContext) context.Context {
	if rc.RequestID != "" {
		ctx = WithRequestID(ctx, rc.RequestID)
	}
	if rc.Job != "" || rc.RunID != "" {
		ctx = WithJobRun(ctx, rc.Job, rc.RunID)
	}
	return ctx
}

// RunContextFromContext extracts all run context from the context.
func RunContextFromContext(ctx context.Context) RunContext {
	job, runID := JobRunFromContext(ctx)
	return RunContext{
		RequestID: RequestIDFromContext(ctx),
		Job:       job,
		RunID:     runID,
	}
}

func stringValue(ctx context.Context, key contextKey) string {
	if v := ctx.Value(key); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
