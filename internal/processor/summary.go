package processor

import (
	"github.com/sirupsen/logrus"

	"spam-intake-go/internal/models"
)

// GenerateSummary folds every persisted record pair into a run-level
// statistical summary, re-reading the store rather than live pipeline
// state. A metadata record with no correlated actions record contributes
// only to the domain statistics. Malformed records are skipped with a
// warning. Full-store scan: cost grows with the number of historical runs.
func (p *Processor) GenerateSummary() (*models.RunSummary, error) {
	paths, err := p.store.ListMetadataRecords()
	if err != nil {
		return nil, err
	}

	if len(paths) == 0 {
		logrus.Info("No processed emails found for summary")
		return nil, nil
	}

	summary := &models.RunSummary{
		TotalEmailsProcessed: len(paths),
		ProcessingDate:       models.Now(),
		DomainsEncountered:   []string{},
		CompaniesIdentified:  []string{},
	}

	domains := make(map[string]struct{})
	companies := make(map[string]struct{})

	for _, path := range paths {
		metadata, err := p.store.ReadMetadataRecord(path)
		if err != nil {
			logrus.Warnf("Skipping unreadable record %s: %v", path, err)
			continue
		}

		if metadata.Metadata != nil && metadata.Metadata.SenderDomain != "" {
			domain := metadata.Metadata.SenderDomain
			if _, ok := domains[domain]; !ok {
				domains[domain] = struct{}{}
				summary.DomainsEncountered = append(summary.DomainsEncountered, domain)
			}
		}

		actions, err := p.store.ReadActionsRecord(path)
		if err != nil {
			logrus.Warnf("Skipping unreadable actions record for %s: %v", path, err)
			continue
		}
		if actions == nil {
			// Orphan metadata record: counts toward domains only
			continue
		}

		summary.TotalUnsubscribeAttempts += len(actions.UnsubscribeAttempts)
		for _, attempt := range actions.UnsubscribeAttempts {
			if attempt.Success {
				summary.SuccessfulUnsubscribes++
			}
		}

		for _, cr := range actions.CompanyReports {
			if cr.Company == "" {
				continue
			}
			if _, ok := companies[cr.Company]; !ok {
				companies[cr.Company] = struct{}{}
				summary.CompaniesIdentified = append(summary.CompaniesIdentified, cr.Company)
			}
		}
	}

	path, err := p.store.WriteSummary(summary)
	if err != nil {
		return nil, err
	}

	logrus.Infof("Summary report saved to %s", path)
	return summary, nil
}
