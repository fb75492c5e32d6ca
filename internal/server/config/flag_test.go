package config

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {

	// Test cases
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "Test1 OK", args: []string{"cmd",
			"-a", "127.0.0.1:9090", "-d", "db",
			"-t", "480", "-r", "60", "-w", "@every 5m", "-l", "https://portal.example.com",
			"-m", "smtp.example.com", "-o", "587", "-f", "noreply@example.com", "-u", "user", "-p", "password",
		}, expectPanic: false,
			expected: &Config{
				EndpointAddrHTTP: "127.0.0.1:9090",
				DatabaseDSN:      "db",
				SessionTokenTTL:  480 * time.Minute,
				ResetTokenTTL:    60 * time.Minute,
				SweepSchedule:    "@every 5m",
				ResetBaseURL:     "https://portal.example.com",
				SMTPServer:       "smtp.example.com",
				SMTPPort:         587,
				SMTPFrom:         "noreply@example.com",
				SMTPUser:         "user",
				SMTPPassword:     "password",
			}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)

			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {

				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
