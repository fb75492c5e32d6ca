package config

import (
	"flag"
	"os"
	"time"

	"github.com/helioview/portal/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN (empty selects in-memory stores)
//	-t int      session token lifetime, minutes
//	-r int      reset token lifetime, minutes
//	-w string   cron spec for the expired-token sweep
//	-l string   external base URL for password reset links
//	-m string   SMTP relay host (empty selects the log mailer)
//	-o int      SMTP relay port
//	-f string   From address on reset mails
//	-u string   SMTP user
//	-p string   SMTP password
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers in minutes and then converted
//     to time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-t", "-r", "-w", "-l", "-m", "-o", "-f", "-u", "-p"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")

	sessionTokenTTL := fs.Int("t", int(config.SessionTokenTTL.Minutes()), "session_token_ttl (in minutes)")
	resetTokenTTL := fs.Int("r", int(config.ResetTokenTTL.Minutes()), "reset_token_ttl (in minutes)")

	fs.StringVar(&config.SweepSchedule, "w", config.SweepSchedule, "expired-token sweep schedule")
	fs.StringVar(&config.ResetBaseURL, "l", config.ResetBaseURL, "base URL for reset links")
	fs.StringVar(&config.SMTPServer, "m", config.SMTPServer, "SMTP relay host")
	fs.IntVar(&config.SMTPPort, "o", config.SMTPPort, "SMTP relay port")
	fs.StringVar(&config.SMTPFrom, "f", config.SMTPFrom, "From address on reset mails")
	fs.StringVar(&config.SMTPUser, "u", config.SMTPUser, "SMTP user")
	fs.StringVar(&config.SMTPPassword, "p", config.SMTPPassword, "SMTP password")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionTokenTTL = time.Duration(*sessionTokenTTL) * time.Minute
	config.ResetTokenTTL = time.Duration(*resetTokenTTL) * time.Minute
}
