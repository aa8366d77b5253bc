// Package smoke drives a running registration service the way browsers do:
// load the form, submit it, follow the redirect and poll the ticket.
package smoke

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/conftix/pkg/logger"
)

const (
	directoryPermission = 0o750
	percent             = 100
)

// Run executes the complete smoke run and returns ErrSmokeFailed when any
// registration did not end with a stored ticket.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get().Named("smoke")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting conftix smoke run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("registrations", cfg.Registrations),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
		logger.Bool("verbose", cfg.Verbose),
	)

	if err := checkHealth(ctx, cfg); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	regs, err := generate(ctx, cfg.Registrations, cfg.Handles)
	if err != nil {
		return stats, fmt.Errorf("registration generation failed: %w", err)
	}
	stats.Generated = len(regs)

	results, err := submitAll(ctx, cfg, regs)
	if err != nil {
		return stats, err
	}
	tally(stats, results)

	if cfg.OutputFile != "" {
		if err := saveResults(cfg.OutputFile, results); err != nil {
			log.Warn(ctx, "failed to save results", logger.Error(err))
		} else {
			log.Info(ctx, "results saved", logger.String("file", cfg.OutputFile))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if stats.TicketsDone != stats.Generated {
		return stats, fmt.Errorf("%w: %d of %d tickets stored", ErrSmokeFailed, stats.TicketsDone, stats.Generated)
	}
	log.Info(ctx, "smoke run completed successfully")
	return stats, nil
}

func checkHealth(ctx context.Context, cfg *Config) error {
	b, err := newBrowser(cfg.BaseURL, cfg.Timeout)
	if err != nil {
		return err
	}
	resp, err := b.get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// submitAll runs every registration in its own browser, at most cfg.Workers
// at a time.
func submitAll(ctx context.Context, cfg *Config, regs []Registration) ([]Result, error) {
	log := logger.Get().Named("smoke")
	results := make([]Result, len(regs))

	var (
		mu       sync.Mutex
		finished int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for i, reg := range regs {
		g.Go(func() error {
			results[i] = runOne(gctx, cfg, reg)

			mu.Lock()
			finished++
			n := finished
			mu.Unlock()
			if cfg.Verbose {
				log.Info(gctx, "registration finished",
					logger.Int("progress", n),
					logger.Int("total", len(regs)),
					logger.String("requestID", results[i].RequestID),
					logger.String("state", results[i].State),
				)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("smoke run cancelled: %w", err)
	}
	return results, nil
}

func runOne(ctx context.Context, cfg *Config, reg Registration) Result {
	res := Result{Registration: reg}
	start := time.Now()
	defer func() { res.LatencyMS = time.Since(start).Milliseconds() }()

	b, err := newBrowser(cfg.BaseURL, cfg.Timeout)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.Status, res.RequestID, err = b.register(ctx, reg)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if res.RequestID == "" {
		res.Error = fmt.Sprintf("registration not accepted (status %d)", res.Status)
		return res
	}

	st, err := b.waitTicket(ctx, res.RequestID, cfg.TicketWait, cfg.PollInterval)
	res.State, res.TicketURL = st.State, st.TicketURL
	switch {
	case st.Error != "":
		res.Error = st.Error
	case err != nil:
		res.Error = err.Error()
	}
	return res
}

func tally(stats *Stats, results []Result) {
	for _, r := range results {
		switch {
		case r.RequestID != "":
			stats.Accepted++
		case r.Status != 0:
			stats.Rejected++
		default:
			stats.Failed++
		}
		switch r.State {
		case "done":
			stats.TicketsDone++
		case "failed":
			stats.TicketsFailed++
		default:
			if r.RequestID != "" {
				stats.TicketsStuck++
			}
		}
	}
}

func saveResults(path string, results []Result) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, perSecond float64
	if stats.Generated > 0 {
		successRate = float64(stats.TicketsDone) / float64(stats.Generated) * percent
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Generated) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("accepted", stats.Accepted),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Int("ticketsDone", stats.TicketsDone),
		logger.Int("ticketsFailed", stats.TicketsFailed),
		logger.Int("ticketsStuck", stats.TicketsStuck),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("registrationsPerSecond", perSecond),
	)
}
