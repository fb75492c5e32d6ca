// Package tokens implements the expiring-token stores behind sessions
// and password resets. Both are the same structure instantiated with a
// different TTL; reset tokens additionally go through Consume for their
// single permitted use.
//
// Expiry is lazy: an expired record is evicted on the access that
// observes it, so correctness never depends on a background sweep. The
// Sweeper exists only to bound memory.
package tokens

import "context"

// Repository is an expiring map from opaque token to owning email.
type Repository interface {
	// Issue creates a token for email expiring TTL from now. Other
	// outstanding tokens for the same email are unaffected.
	Issue(ctx context.Context, email string) (string, error)

	// Resolve returns the email a live token belongs to. Absent and
	// expired tokens both yield common.ErrorNotFound; an expired record
	// is removed on the way out.
	Resolve(ctx context.Context, token string) (string, error)

	// Invalidate removes a token. Removing an absent token is a no-op.
	Invalidate(ctx context.Context, token string) error

	// Consume atomically resolves and removes a token, so exactly one
	// of any number of concurrent callers wins. Absent and expired
	// tokens yield common.ErrorNotFound.
	Consume(ctx context.Context, token string) (string, error)

	// InvalidateAll removes every token belonging to email.
	InvalidateAll(ctx context.Context, email string) error

	// PurgeExpired removes all expired records and reports how many.
	PurgeExpired(ctx context.Context) (int, error)
}
