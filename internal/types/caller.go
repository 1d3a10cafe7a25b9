package types

import "context"

type callerKey struct{}

// WithCaller attaches the calling user's id to ctx. Every store operation is
// scoped to the tables this user may access.
func WithCaller(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, callerKey{}, userID)
}

// CallerFrom returns the caller id, or an Unauthorized error if none is set.
func CallerFrom(ctx context.Context) (string, error) {
	id, _ := ctx.Value(callerKey{}).(string)
	if id == "" {
		return "", Unauthorizedf("no caller in context")
	}
	return id, nil
}
