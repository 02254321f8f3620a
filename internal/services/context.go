package services

import "context"

type contextKey string

const (
	runIDKey     contextKey = "run_id"
	stepKey      contextKey = "step"
	accessionKey contextKey = "accession"
)

// WithRunID annotates context with the run correlation identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run correlation identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStep annotates context with the pipeline step name.
func WithStep(ctx context.Context, step string) context.Context {
	if step == "" {
		return ctx
	}
	return context.WithValue(ctx, stepKey, step)
}

// StepFromContext returns the pipeline step name if present.
func StepFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stepKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithAccession annotates context with the assembly accession being processed.
func WithAccession(ctx context.Context, accession string) context.Context {
	if accession == "" {
		return ctx
	}
	return context.WithValue(ctx, accessionKey, accession)
}

// AccessionFromContext returns the assembly accession if present.
func AccessionFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(accessionKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
