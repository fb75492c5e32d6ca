package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/helioview/portal/internal/flagx"
	"github.com/helioview/portal/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "8h" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, its fields are copied into
// the runtime Config struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddrHTTP string         `json:"endpoint_addr_http"`
	DatabaseDSN      string         `json:"database_dsn"`
	SessionTokenTTL  timex.Duration `json:"session_token_ttl"`
	ResetTokenTTL    timex.Duration `json:"reset_token_ttl"`
	SweepSchedule    string         `json:"sweep_schedule"`
	ResetBaseURL     string         `json:"reset_base_url"`
	SMTPServer       string         `json:"smtp_server"`
	SMTPPort         int            `json:"smtp_port"`
	SMTPFrom         string         `json:"smtp_from"`
	SMTPUser         string         `json:"smtp_user"`
	SMTPPassword     string         `json:"smtp_password"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags; if
// neither is set, no JSON file is loaded. If the file cannot be read or
// contains invalid JSON, the function panics.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN
	config.SessionTokenTTL = time.Duration(c.SessionTokenTTL.Duration)
	config.ResetTokenTTL = time.Duration(c.ResetTokenTTL.Duration)
	config.SweepSchedule = c.SweepSchedule
	config.ResetBaseURL = c.ResetBaseURL
	config.SMTPServer = c.SMTPServer
	config.SMTPPort = c.SMTPPort
	config.SMTPFrom = c.SMTPFrom
	config.SMTPUser = c.SMTPUser
	config.SMTPPassword = c.SMTPPassword
}
