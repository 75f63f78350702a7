package auth

import "context"

type ctxKey struct{}

// WithClaim returns a copy of ctx carrying the authenticated claim.
func WithClaim(ctx context.Context, c Claim) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// ClaimFromContext returns the claim stored by WithClaim.
func ClaimFromContext(ctx context.Context) (Claim, bool) {
	c, ok := ctx.Value(ctxKey{}).(Claim)
	return c, ok
}
