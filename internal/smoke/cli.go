package smoke

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/conftix/pkg/logger"
)

const logFilePermission = 0o600

// SetupLogging initializes the logger writing to stdout and, when logFile is
// set, to that file as well.
func SetupLogging(logFile string) (io.Closer, error) {
	if logFile == "" {
		if err := logger.Init(); err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		return io.NopCloser(nil), nil
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.Init(logger.WithWriter(io.MultiWriter(os.Stdout, file))); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return file, nil
}

// ShowHelp prints usage information for the smoke tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Conftix Smoke Tool
==================

Submits concurrent registrations to a running conftix service and waits for
every ticket to be captured, uploaded and recorded.

Usage:
  go run ./cmd/smoke [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -n int
        Number of registrations to submit (default 20)
  -workers int
        Number of concurrent browsers (default CPU cores)
  -handles string
        Comma separated GitHub handles to register with (default "@octocat")
  -timeout duration
        HTTP request timeout (default 30s)
  -wait duration
        How long to wait for each ticket (default 2m)
  -output string
        JSON file for per registration results
  -log string
        Also write logs to this file
  -verbose
        Log every finished registration
  -help
        Show this help message

Examples:
  go run ./cmd/smoke -n 100 -workers 16
  go run ./cmd/smoke -url http://localhost:8080 -handles @octocat,@torvalds -output results.json
`)
}
