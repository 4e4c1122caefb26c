// Package processor drives the email intake pipeline: extraction, opt-out
// discovery and attempts, domain intelligence, brand identification, report
// staging, and durable logging of the result.
package processor

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"spam-intake-go/internal/brand"
	"spam-intake-go/internal/config"
	"spam-intake-go/internal/extractor"
	"spam-intake-go/internal/metrics"
	"spam-intake-go/internal/models"
	"spam-intake-go/internal/optout"
	"spam-intake-go/internal/report"
	"spam-intake-go/internal/store"
)

// DomainResolver resolves registration intelligence for a sender domain
type DomainResolver interface {
	Lookup(ctx context.Context, domain string) *models.WhoisData
}

// OptOutAttempter issues best-effort requests against opt-out candidates
type OptOutAttempter interface {
	Attempt(ctx context.Context, links []string) []models.UnsubscribeAttempt
}

// Processor processes intake artifacts one at a time, strictly
// sequentially, each artifact independent of the others
type Processor struct {
	intake    config.IntakeConfig
	store     *store.Store
	resolver  *optout.Resolver
	attempter OptOutAttempter
	domains   DomainResolver
	metrics   *metrics.Metrics
}

// New creates a processor
func New(intake config.IntakeConfig, st *store.Store, attempter OptOutAttempter, domains DomainResolver, m *metrics.Metrics) (*Processor, error) {
	resolver, err := optout.NewResolver(intake.OptOutPatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to create opt-out resolver: %w", err)
	}

	return &Processor{
		intake:    intake,
		store:     st,
		resolver:  resolver,
		attempter: attempter,
		domains:   domains,
		metrics:   m,
	}, nil
}

// ProcessAll runs the pipeline once for every artifact in the intake area.
// A failing artifact never halts the run.
func (p *Processor) ProcessAll(ctx context.Context) {
	artifacts, err := p.store.ListArtifacts()
	if err != nil {
		logrus.Errorf("Failed to list intake artifacts: %v", err)
		return
	}

	if len(artifacts) == 0 {
		logrus.Info("No email files found in consume directory")
		return
	}

	logrus.Infof("Found %d email files to process", len(artifacts))

	for _, artifact := range artifacts {
		if _, err := p.ProcessArtifact(ctx, artifact); err != nil {
			logrus.Errorf("Error processing %s: %v", artifact, err)
		}
	}
}

// ProcessArtifact runs one artifact through every pipeline stage. External
// call failures become data in the result; the only error that propagates
// is a failure to durably record or relocate, in which case the artifact
// stays in the intake area for the next run.
func (p *Processor) ProcessArtifact(ctx context.Context, path string) (*models.ProcessingResult, error) {
	logrus.Infof("Processing email file: %s", path)
	start := time.Now()

	raw, err := os.ReadFile(path)
	if err != nil {
		p.metrics.ParseFailures.Inc()
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	metadata, content, err := extractor.Extract(raw)
	if err != nil {
		p.metrics.ParseFailures.Inc()
		return nil, err
	}

	links := p.resolver.FindLinks(metadata.ListUnsubscribe, content)

	attempts := []models.UnsubscribeAttempt{}
	if len(links) > 0 {
		attempts = p.attempter.Attempt(ctx, links)
		for _, attempt := range attempts {
			p.metrics.UnsubscribeAttempts.Inc()
			if attempt.Success {
				p.metrics.UnsubscribeSuccesses.Inc()
			}
		}
	}

	var whoisData *models.WhoisData
	if metadata.SenderDomain != "" {
		whoisData = p.domains.Lookup(ctx, metadata.SenderDomain)
		if whoisData != nil && whoisData.Error != "" {
			p.metrics.WhoisFailures.Inc()
		}
	}

	companies := brand.Identify(metadata, content, p.intake.CompanyContacts)
	p.metrics.BrandsIdentified.Add(float64(len(companies)))

	result := &models.ProcessingResult{
		CorrelationID:       uuid.NewString(),
		FilePath:            path,
		Metadata:            metadata,
		UnsubscribeLinks:    links,
		UnsubscribeResults:  attempts,
		WhoisData:           whoisData,
		IdentifiedCompanies: companies,
		AuthorityReports:    report.StageAuthorityReports(),
		CompanyReports:      report.StageCompanyReports(companies, p.intake.CompanyContacts),
		ProcessingTimestamp: models.Now(),
	}

	if _, err := p.store.WriteRecords(result); err != nil {
		return nil, fmt.Errorf("failed to persist result: %w", err)
	}

	// Relocation is the last step: a crash before this point leaves the
	// artifact in the intake area for reprocessing (at-least-once)
	if err := p.store.CompleteArtifact(path); err != nil {
		return nil, err
	}

	p.metrics.ArtifactsProcessed.Inc()
	p.metrics.ProcessingTime.Observe(time.Since(start).Seconds())

	logrus.Infof("Successfully processed %s", path)
	return result, nil
}
