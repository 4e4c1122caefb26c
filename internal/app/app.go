package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"spam-intake-go/internal/config"
	"spam-intake-go/internal/dispatch"
	"spam-intake-go/internal/fetcher"
	"spam-intake-go/internal/logging"
	"spam-intake-go/internal/metrics"
	"spam-intake-go/internal/optout"
	"spam-intake-go/internal/processor"
	"spam-intake-go/internal/store"
	"spam-intake-go/internal/whois"
)

// Options selects the optional steps around the core intake run
type Options struct {
	Fetch    bool
	Dispatch bool
}

// Run executes one intake batch: optionally pull mailbox messages into the
// intake area, process every artifact found there, write the run summary,
// and optionally dispatch the staged reports.
func Run(opts Options) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := logging.Setup(cfg.Dirs.Logs); err != nil {
		return err
	}

	logrus.Info("Starting Spam Intake Processor")

	st, err := store.New(cfg.Dirs.Consume, cfg.Dirs.Processed, cfg.Dirs.Logs)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}

	m := metrics.NewMetrics()
	ctx := context.Background()

	if cfg.Metrics.ListenAddr != "" {
		go serveMetrics(cfg.Metrics.ListenAddr)
	}

	if opts.Fetch {
		if err := cfg.ValidateMailbox(); err != nil {
			return fmt.Errorf("mailbox configuration invalid: %w", err)
		}
		f, err := fetcher.New(&cfg.Mailbox, cfg.Dirs.Consume)
		if err != nil {
			return fmt.Errorf("failed to create mailbox fetcher: %w", err)
		}
		n, err := f.FetchArtifacts(ctx)
		if closeErr := f.Close(); closeErr != nil {
			logrus.Errorf("Failed to close fetcher: %v", closeErr)
		}
		if err != nil {
			return fmt.Errorf("failed to fetch mailbox artifacts: %w", err)
		}
		logrus.Infof("Fetched %d new artifacts into intake", n)
	}

	attempter := optout.NewAttempter(cfg.HTTP.Timeout, cfg.HTTP.UserAgent)
	domains := whois.NewResolver(cfg.Whois.Server, cfg.Whois.Timeout)

	proc, err := processor.New(cfg.Intake, st, attempter, domains, m)
	if err != nil {
		return fmt.Errorf("failed to create processor: %w", err)
	}

	proc.ProcessAll(ctx)

	summary, err := proc.GenerateSummary()
	if err != nil {
		return fmt.Errorf("failed to generate summary: %w", err)
	}
	if summary != nil {
		logrus.Infof("Processing complete: %d emails, %d unsubscribe attempts (%d successful), %d unique domains, %d companies identified",
			summary.TotalEmailsProcessed,
			summary.TotalUnsubscribeAttempts,
			summary.SuccessfulUnsubscribes,
			len(summary.DomainsEncountered),
			len(summary.CompaniesIdentified),
		)
	}

	if opts.Dispatch {
		if err := cfg.ValidateMailbox(); err != nil {
			return fmt.Errorf("mailbox configuration invalid: %w", err)
		}
		d, err := dispatch.NewDispatcher(&cfg.Mailbox, st)
		if err != nil {
			return fmt.Errorf("failed to create dispatcher: %w", err)
		}
		if err := d.DispatchAll(ctx); err != nil {
			return fmt.Errorf("failed to dispatch reports: %w", err)
		}
	}

	return nil
}

// serveMetrics exposes the Prometheus scrape endpoint for the duration of
// the run
func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	logrus.Infof("Serving metrics on %s/metrics", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logrus.Errorf("Metrics listener failed: %v", err)
	}
}
