package services

import "context"

// scope is the per-resolution metadata carried through the pipeline. It is
// stored under a single key and copied on every update.
type scope struct {
	requestID string
	stage     string
	queryURL  string
}

type scopeKey struct{}

func scopeFrom(ctx context.Context) scope {
	if ctx == nil {
		return scope{}
	}
	s, _ := ctx.Value(scopeKey{}).(scope)
	return s
}

func withScope(ctx context.Context, update func(*scope)) context.Context {
	s := scopeFrom(ctx)
	update(&s)
	return context.WithValue(ctx, scopeKey{}, s)
}

// WithRequestID tags ctx with the resolution's correlation ID. Blank IDs are ignored.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return withScope(ctx, func(s *scope) { s.requestID = id })
}

// WithStage records the decision stage currently running.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return withScope(ctx, func(s *scope) { s.stage = stage })
}

// WithQueryURL records the URL under resolution.
func WithQueryURL(ctx context.Context, rawURL string) context.Context {
	if rawURL == "" {
		return ctx
	}
	return withScope(ctx, func(s *scope) { s.queryURL = rawURL })
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	id := scopeFrom(ctx).requestID
	return id, id != ""
}

func StageFromContext(ctx context.Context) (string, bool) {
	stage := scopeFrom(ctx).stage
	return stage, stage != ""
}

func QueryURLFromContext(ctx context.Context) (string, bool) {
	u := scopeFrom(ctx).queryURL
	return u, u != ""
}
