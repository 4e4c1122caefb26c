package processor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spam-intake-go/internal/models"
)

func TestGenerateSummaryEmptyStore(t *testing.T) {
	proc, _, _ := newTestProcessor(t, &fakeAttempter{}, &fakeDomains{})

	summary, err := proc.GenerateSummary()
	require.NoError(t, err)
	assert.Nil(t, summary)
}

func TestGenerateSummaryFoldsAllRecords(t *testing.T) {
	proc, st, _ := newTestProcessor(t, &fakeAttempter{}, &fakeDomains{})

	first := &models.ProcessingResult{
		CorrelationID: "corr-1",
		FilePath:      "/tmp/first.eml",
		Metadata:      &models.EmailMetadata{SenderDomain: "spammy.example"},
		UnsubscribeResults: []models.UnsubscribeAttempt{
			{Link: "http://spammy.example/unsub", StatusCode: 200, Success: true},
			{Link: "http://spammy.example/optout", StatusCode: 500, Success: false},
		},
		CompanyReports: []models.CompanyReport{
			{Company: "amazon", Email: "stop-spoofing@amazon.com"},
		},
	}
	second := &models.ProcessingResult{
		CorrelationID: "corr-2",
		FilePath:      "/tmp/second.eml",
		Metadata:      &models.EmailMetadata{SenderDomain: "spammy.example"},
		UnsubscribeResults: []models.UnsubscribeAttempt{
			{Link: "http://other.example/unsub", StatusCode: 200, Success: true},
		},
	}

	_, err := st.WriteRecords(first)
	require.NoError(t, err)
	_, err = st.WriteRecords(second)
	require.NoError(t, err)

	summary, err := proc.GenerateSummary()
	require.NoError(t, err)
	require.NotNil(t, summary)

	assert.Equal(t, 2, summary.TotalEmailsProcessed)
	assert.Equal(t, []string{"spammy.example"}, summary.DomainsEncountered)
	assert.Equal(t, []string{"amazon"}, summary.CompaniesIdentified)
	assert.Equal(t, 3, summary.TotalUnsubscribeAttempts)
	assert.Equal(t, 2, summary.SuccessfulUnsubscribes)
}

func TestGenerateSummaryOrphanMetadataCountsDomainsOnly(t *testing.T) {
	proc, st, root := newTestProcessor(t, &fakeAttempter{}, &fakeDomains{})

	result := &models.ProcessingResult{
		CorrelationID: "corr-orphan",
		FilePath:      "/tmp/orphan.eml",
		Metadata:      &models.EmailMetadata{SenderDomain: "orphan.example"},
		UnsubscribeResults: []models.UnsubscribeAttempt{
			{Link: "http://orphan.example/unsub", StatusCode: 200, Success: true},
		},
	}
	ts, err := st.WriteRecords(result)
	require.NoError(t, err)

	actionsPath := filepath.Join(root, "logs", "actions_taken_"+ts+".json")
	require.NoError(t, os.Remove(actionsPath))

	summary, err := proc.GenerateSummary()
	require.NoError(t, err)
	require.NotNil(t, summary)

	assert.Equal(t, 1, summary.TotalEmailsProcessed)
	assert.Equal(t, []string{"orphan.example"}, summary.DomainsEncountered)
	assert.Zero(t, summary.TotalUnsubscribeAttempts)
	assert.Zero(t, summary.SuccessfulUnsubscribes)
	assert.Empty(t, summary.CompaniesIdentified)
}
