package mail

import (
	"context"

	"github.com/helioview/portal/internal/logging"
)

// LogMailer writes reset links to the application log. It is the
// development fallback used when no SMTP relay is configured.
type LogMailer struct {
	Logger logging.Logger
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, email, link string) error {
	m.Logger.Info(ctx, "password reset link issued", "email", email, "link", link)
	return nil
}
