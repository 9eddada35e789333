package middleware

import "context"

type contextKey string

const userHolderKey contextKey = "userHolder"

// userHolder is filled in by RecordUser deeper in the chain and read by
// Logger once the handler returns.
type userHolder struct {
	userID string
}

func withUserHolder(ctx context.Context, h *userHolder) context.Context {
	return context.WithValue(ctx, userHolderKey, h)
}
