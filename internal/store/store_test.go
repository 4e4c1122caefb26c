package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spam-intake-go/internal/models"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	st, err := New(
		filepath.Join(root, "consume"),
		filepath.Join(root, "processed"),
		filepath.Join(root, "logs"),
	)
	require.NoError(t, err)
	return st, root
}

func sampleResult(path string) *models.ProcessingResult {
	return &models.ProcessingResult{
		CorrelationID: "test-correlation",
		FilePath:      path,
		Metadata: &models.EmailMetadata{
			Subject:      "50% OFF!!!",
			From:         "deals@spammy.example",
			SenderDomain: "spammy.example",
			Received:     []string{},
		},
		UnsubscribeLinks: []string{"http://spammy.example/unsub"},
		UnsubscribeResults: []models.UnsubscribeAttempt{
			{Link: "http://spammy.example/unsub", Success: true, StatusCode: 200},
		},
		WhoisData:           &models.WhoisData{Domain: "spammy.example"},
		IdentifiedCompanies: []string{},
		CompanyReports: []models.CompanyReport{
			{Company: "amazon", Email: "stop-spoofing@amazon.com"},
		},
		ProcessingTimestamp: models.Now(),
	}
}

func TestNewCreatesDirectories(t *testing.T) {
	st, root := newTestStore(t)
	for _, dir := range []string{"consume", "processed", "logs"} {
		info, err := os.Stat(filepath.Join(root, dir))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
	assert.Equal(t, filepath.Join(root, "logs"), st.LogsDir())
}

func TestListArtifacts(t *testing.T) {
	st, root := newTestStore(t)
	consume := filepath.Join(root, "consume")

	require.NoError(t, os.WriteFile(filepath.Join(consume, "a.eml"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(consume, "b.msg"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(consume, "notes.txt"), []byte("x"), 0o644))

	artifacts, err := st.ListArtifacts()
	require.NoError(t, err)
	assert.Len(t, artifacts, 2)
}

func TestWriteRecordsRoundTrip(t *testing.T) {
	st, _ := newTestStore(t)
	result := sampleResult("consume/a.eml")

	ts, err := st.WriteRecords(result)
	require.NoError(t, err)
	assert.Regexp(t, `^\d{8}_\d{6}$`, ts)

	paths, err := st.ListMetadataRecords()
	require.NoError(t, err)
	require.Len(t, paths, 1)

	metadata, err := st.ReadMetadataRecord(paths[0])
	require.NoError(t, err)
	assert.Equal(t, result.FilePath, metadata.FilePath)
	assert.Equal(t, result.CorrelationID, metadata.CorrelationID)
	assert.Equal(t, "spammy.example", metadata.Metadata.SenderDomain)
	assert.Equal(t, "spammy.example", metadata.WhoisData.Domain)

	actions, err := st.ReadActionsRecord(paths[0])
	require.NoError(t, err)
	require.NotNil(t, actions)
	assert.Equal(t, result.FilePath, actions.FilePath)
	assert.Equal(t, result.CorrelationID, actions.CorrelationID)
	assert.Len(t, actions.UnsubscribeAttempts, 1)
	assert.Len(t, actions.CompanyReports, 1)
}

func TestWriteRecordsDistinctSuffixesWithinOneSecond(t *testing.T) {
	st, _ := newTestStore(t)

	ts1, err := st.WriteRecords(sampleResult("consume/a.eml"))
	require.NoError(t, err)
	ts2, err := st.WriteRecords(sampleResult("consume/b.eml"))
	require.NoError(t, err)

	assert.NotEqual(t, ts1, ts2)

	paths, err := st.ListMetadataRecords()
	require.NoError(t, err)
	assert.Len(t, paths, 2)
}

func TestReadActionsRecordMissing(t *testing.T) {
	st, root := newTestStore(t)

	ts, err := st.WriteRecords(sampleResult("consume/a.eml"))
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(root, "logs", "actions_taken_"+ts+".json")))

	paths, err := st.ListMetadataRecords()
	require.NoError(t, err)
	require.Len(t, paths, 1)

	actions, err := st.ReadActionsRecord(paths[0])
	require.NoError(t, err)
	assert.Nil(t, actions)
}

func TestCompleteArtifact(t *testing.T) {
	st, root := newTestStore(t)
	artifact := filepath.Join(root, "consume", "a.eml")
	require.NoError(t, os.WriteFile(artifact, []byte("raw"), 0o644))

	require.NoError(t, st.CompleteArtifact(artifact))

	_, err := os.Stat(artifact)
	assert.True(t, os.IsNotExist(err))

	moved, err := os.ReadFile(filepath.Join(root, "processed", "a.eml"))
	require.NoError(t, err)
	assert.Equal(t, "raw", string(moved))

	assert.Equal(t, filepath.Join(root, "processed", "a.eml"), st.ProcessedArtifactPath(artifact))
}

func TestWriteSummary(t *testing.T) {
	st, _ := newTestStore(t)
	summary := &models.RunSummary{
		TotalEmailsProcessed: 3,
		ProcessingDate:       models.Now(),
		DomainsEncountered:   []string{"spammy.example"},
		CompaniesIdentified:  []string{"amazon"},
	}

	path, err := st.WriteSummary(summary)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"total_emails_processed": 3`)
	assert.Contains(t, string(data), "spammy.example")
}

func TestMarkDispatched(t *testing.T) {
	st, root := newTestStore(t)

	ts, err := st.WriteRecords(sampleResult("consume/a.eml"))
	require.NoError(t, err)
	metadataPath := filepath.Join(root, "logs", "email_metadata_"+ts+".json")

	actions, err := st.ReadActionsRecord(metadataPath)
	require.NoError(t, err)
	require.NotNil(t, actions)
	assert.Empty(t, actions.DispatchedAt)

	require.NoError(t, st.MarkDispatched(metadataPath))

	actions, err = st.ReadActionsRecord(metadataPath)
	require.NoError(t, err)
	require.NotNil(t, actions)
	assert.NotEmpty(t, actions.DispatchedAt)
	assert.Equal(t, "test-correlation", actions.CorrelationID)
}

func TestMarkDispatchedMissingActionsRecord(t *testing.T) {
	st, root := newTestStore(t)

	ts, err := st.WriteRecords(sampleResult("consume/a.eml"))
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(root, "logs", "actions_taken_"+ts+".json")))

	err = st.MarkDispatched(filepath.Join(root, "logs", "email_metadata_"+ts+".json"))
	assert.Error(t, err)
}
