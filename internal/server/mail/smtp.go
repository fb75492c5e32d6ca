package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPMailer sends reset links through a plain SMTP relay.
type SMTPMailer struct {
	Server   string
	Port     int
	From     string
	User     string
	Password string
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, email, link string) error {
	from := m.From
	if from == "" {
		from = "noreply"
	}
	port := m.Port
	if port == 0 {
		port = 25
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", email)
	b.WriteString("Subject: Password reset\r\n")
	b.WriteString("\r\n")
	b.WriteString("A password reset was requested for your portal account.\r\n\r\n")
	fmt.Fprintf(&b, "To choose a new password, open the link below within one hour:\r\n%s\r\n\r\n", link)
	b.WriteString("If you did not request this, you can ignore this message.\r\n")

	var auth smtp.Auth
	if m.User != "" {
		auth = smtp.PlainAuth("", m.User, m.Password, m.Server)
	}

	addr := fmt.Sprintf("%s:%d", m.Server, port)
	return smtp.SendMail(addr, auth, from, []string{email}, []byte(b.String()))
}
