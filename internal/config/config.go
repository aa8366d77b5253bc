// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - Defaults live in New; Load layers file, .env and environment on top.
//   - Settings needed only by one feature (image host, backend) are checked
//     with Require when that feature runs, not at startup.
package config

import (
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory ticket job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of ticket workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the request id latch (0 = unbounded).
	DedupeSize int `koanf:"dedupe_size"`

	// CloudName and UploadPreset identify the image hosting account.
	CloudName      string `koanf:"cloud_name"`
	UploadPreset   string `koanf:"upload_preset"`
	UploadEndpoint string `koanf:"upload_endpoint"`

	// APIURL is the backend submission endpoint.
	APIURL string `koanf:"api_url"`

	// GitHubAPIURL and GitHubToken configure the identity service client.
	GitHubAPIURL string `koanf:"github_api_url"`
	GitHubToken  string `koanf:"github_token"`

	// HTTPTimeoutMS caps every outbound request.
	HTTPTimeoutMS int `koanf:"http_timeout_ms"`

	HandleDebounceMS  int `koanf:"handle_debounce_ms"`
	SuggestDebounceMS int `koanf:"suggest_debounce_ms"`
	SuggestionLimit   int `koanf:"suggestion_limit"`

	// Avatar compression bounds.
	AvatarMaxWidth int `koanf:"avatar_max_width"`
	AvatarQuality  int `koanf:"avatar_quality"`
	AvatarMaxBytes int `koanf:"avatar_max_bytes"`

	// Ticket artwork.
	EventDate          string   `koanf:"event_date"`
	EventLocation      string   `koanf:"event_location"`
	TicketBackground   string   `koanf:"ticket_background_url"`
	TicketTrustedHosts []string `koanf:"ticket_trusted_hosts"`
	KeepCaptures       bool     `koanf:"keep_captures"`

	// StorageDriver selects the ticket outcome store: memory or sqlite.
	StorageDriver string `koanf:"storage_driver"`
	SQLitePath    string `koanf:"sqlite_path"`

	// SessionTTLMinutes expires idle form sessions.
	SessionTTLMinutes int `koanf:"session_ttl_minutes"`

	OTelEnabled  bool   `koanf:"otel_enabled"`
	OTelEndpoint string `koanf:"otel_endpoint"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		QueueSize:         1_000,
		WorkerCount:       runtime.NumCPU(),
		DedupeSize:        50_000,
		UploadEndpoint:    "https://api.cloudinary.com/v1_1",
		GitHubAPIURL:      "https://api.github.com/",
		HTTPTimeoutMS:     15_000,
		HandleDebounceMS:  600,
		SuggestDebounceMS: 500,
		SuggestionLimit:   5,
		AvatarMaxWidth:    800,
		AvatarQuality:     70,
		AvatarMaxBytes:    500_000,
		EventDate:         "Jun 19, 2026",
		EventLocation:     "Austin, TX",
		StorageDriver:     "memory",
		SQLitePath:        "conftix.db",
		SessionTTLMinutes: 30,
	}
}
