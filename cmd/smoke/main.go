package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/okian/conftix/internal/smoke"
)

// Default configuration constants.
const (
	defaultRegistrations = 20
	defaultTimeout       = 30 * time.Second
	defaultTicketWait    = 2 * time.Minute
	defaultPollInterval  = time.Second
	defaultRunTimeout    = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		n          = flag.Int("n", defaultRegistrations, "Number of registrations to submit")
		workers    = flag.Int("workers", runtime.NumCPU(), "Number of concurrent browsers")
		handles    = flag.String("handles", "@octocat", "Comma separated GitHub handles to register with")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		wait       = flag.Duration("wait", defaultTicketWait, "How long to wait for each ticket")
		outputFile = flag.String("output", "", "JSON file for per registration results")
		logFile    = flag.String("log", "", "Also write logs to this file")
		verbose    = flag.Bool("verbose", false, "Log every finished registration")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		smoke.ShowHelp()
		return
	}

	closer, err := smoke.SetupLogging(*logFile)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	cfg := &smoke.Config{
		BaseURL:       strings.TrimRight(*baseURL, "/"),
		Registrations: *n,
		Workers:       *workers,
		Timeout:       *timeout,
		TicketWait:    *wait,
		PollInterval:  defaultPollInterval,
		Handles:       splitHandles(*handles),
		OutputFile:    *outputFile,
		Verbose:       *verbose,
	}

	if _, err := smoke.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Smoke run failed: " + err.Error() + "\n")
		closer.Close()
		os.Exit(1)
	}
}

func splitHandles(s string) []string {
	var out []string
	for _, h := range strings.Split(s, ",") {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if !strings.HasPrefix(h, "@") {
			h = "@" + h
		}
		out = append(out, h)
	}
	if len(out) == 0 {
		out = []string{"@octocat"}
	}
	return out
}
