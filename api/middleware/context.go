package middleware

import "context"

type contextKey string

const (
	ctxSessionID contextKey = "session_id"
	ctxAccountID contextKey = "account_id"
	ctxRole      contextKey = "actor_role"
	ctxToken     contextKey = "access_token"
)

func SessionIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxSessionID)
}

func AccountIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxAccountID)
}

func RoleFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxRole)
}

// TokenFromContext returns the raw bearer token forwarded to the cart service.
func TokenFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxToken)
}

// WithSession injects the authenticated session into the context. Handlers
// under test use it in place of the Auth middleware.
func WithSession(ctx context.Context, sessionID, accountID, role, token string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxSessionID, sessionID)
	ctx = context.WithValue(ctx, ctxAccountID, accountID)
	ctx = context.WithValue(ctx, ctxRole, role)
	return context.WithValue(ctx, ctxToken, token)
}

func stringFromContext(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
