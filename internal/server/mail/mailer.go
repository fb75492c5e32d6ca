// Package mail delivers password-reset links to users. Delivery is
// best-effort and out-of-band: failures are logged by callers, never
// reported to the requester, so the acknowledgement stays identical
// whether or not the account exists.
package mail

import "context"

// Mailer sends a password-reset link to the given address.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, link string) error
}
