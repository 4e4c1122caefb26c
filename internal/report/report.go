// Package report stages authority and company report descriptors for
// later dispatch. Staging never sends anything: the descriptors are the
// interface consumed by the outbound dispatcher.
package report

import (
	"spam-intake-go/internal/models"
)

// StageAuthorityReports returns the fixed set of authority report
// descriptors for one processed message. FTC and IC3 only accept manual
// form submission; APWG accepts email reports.
func StageAuthorityReports() []models.AuthorityReport {
	now := models.Now()
	return []models.AuthorityReport{
		{
			Authority: "FTC",
			Method:    "Online Form",
			URL:       "https://reportfraud.ftc.gov/",
			Status:    "Manual submission required",
			Timestamp: now,
		},
		{
			Authority: "IC3",
			Method:    "Online Form",
			URL:       "https://www.ic3.gov/Home/FileComplaint",
			Status:    "Manual submission required",
			Timestamp: now,
		},
		{
			Authority: "APWG",
			Method:    "Email",
			Email:     "reportphishing@apwg.org",
			Status:    "Ready for email submission",
			Timestamp: now,
		},
	}
}

// StageCompanyReports returns one report descriptor per identified company
// that has a known abuse contact
func StageCompanyReports(identified []string, contacts map[string]string) []models.CompanyReport {
	reports := make([]models.CompanyReport, 0, len(identified))
	for _, company := range identified {
		email, ok := contacts[company]
		if !ok {
			continue
		}
		reports = append(reports, models.CompanyReport{
			Company:   company,
			Email:     email,
			Status:    "Ready for email submission",
			Timestamp: models.Now(),
		})
	}
	return reports
}
