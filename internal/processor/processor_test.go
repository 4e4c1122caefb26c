package processor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spam-intake-go/internal/config"
	"spam-intake-go/internal/metrics"
	"spam-intake-go/internal/models"
	"spam-intake-go/internal/optout"
	"spam-intake-go/internal/store"
)

// fakeDomains records lookups and returns a canned registration record
type fakeDomains struct {
	lastDomain string
}

func (f *fakeDomains) Lookup(_ context.Context, domain string) *models.WhoisData {
	f.lastDomain = domain
	return &models.WhoisData{
		Domain:      domain,
		Registrar:   "Test Registrar",
		NameServers: []string{"ns1.test.example"},
		Emails:      []string{"abuse@test.example"},
		Timestamp:   models.Now(),
	}
}

// fakeAttempter records the candidates it was handed and reports success
type fakeAttempter struct {
	links []string
}

func (f *fakeAttempter) Attempt(_ context.Context, links []string) []models.UnsubscribeAttempt {
	f.links = links
	results := make([]models.UnsubscribeAttempt, 0, len(links))
	for _, link := range links {
		results = append(results, models.UnsubscribeAttempt{
			Link:       link,
			StatusCode: 200,
			Success:    true,
			Timestamp:  models.Now(),
		})
	}
	return results
}

var testMetrics = metrics.NewMetrics()

func newTestProcessor(t *testing.T, attempter OptOutAttempter, domains DomainResolver) (*Processor, *store.Store, string) {
	t.Helper()
	root := t.TempDir()
	st, err := store.New(
		filepath.Join(root, "consume"),
		filepath.Join(root, "processed"),
		filepath.Join(root, "logs"),
	)
	require.NoError(t, err)

	intake := config.IntakeConfig{
		CompanyContacts: config.DefaultCompanyContacts(),
		OptOutPatterns:  config.DefaultOptOutPatterns(),
	}

	proc, err := New(intake, st, attempter, domains, testMetrics)
	require.NoError(t, err)
	return proc, st, root
}

func writeArtifact(t *testing.T, root, name, content string) string {
	t.Helper()
	path := filepath.Join(root, "consume", name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const spammyArtifact = "From: deals@spammy.example\r\n" +
	"To: victim@example.com\r\n" +
	"Subject: 50% OFF!!!\r\n" +
	"Content-Type: text/html\r\n" +
	"\r\n" +
	`<html><body><a href="http://spammy.example/unsub">Unsubscribe</a></body></html>`

func TestProcessArtifactEndToEnd(t *testing.T) {
	attempter := &fakeAttempter{}
	domains := &fakeDomains{}
	proc, st, root := newTestProcessor(t, attempter, domains)

	path := writeArtifact(t, root, "spam.eml", spammyArtifact)

	result, err := proc.ProcessArtifact(context.Background(), path)
	require.NoError(t, err)

	// Exactly one opt-out candidate, no List-Unsubscribe header present
	assert.Equal(t, []string{"http://spammy.example/unsub"}, result.UnsubscribeLinks)
	assert.Equal(t, []string{"http://spammy.example/unsub"}, attempter.links)

	// Domain intelligence keyed on the sender domain
	assert.Equal(t, "spammy.example", domains.lastDomain)
	require.NotNil(t, result.WhoisData)
	assert.Equal(t, "spammy.example", result.WhoisData.Domain)

	// No known brand present
	assert.Empty(t, result.IdentifiedCompanies)
	assert.Empty(t, result.CompanyReports)
	assert.Len(t, result.AuthorityReports, 3)

	// Artifact relocated to the processed area
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "processed", "spam.eml"))
	assert.NoError(t, err)

	// Two correlated records persisted
	paths, err := st.ListMetadataRecords()
	require.NoError(t, err)
	require.Len(t, paths, 1)

	metadata, err := st.ReadMetadataRecord(paths[0])
	require.NoError(t, err)
	assert.Equal(t, path, metadata.FilePath)

	actions, err := st.ReadActionsRecord(paths[0])
	require.NoError(t, err)
	require.NotNil(t, actions)
	assert.Equal(t, path, actions.FilePath)
	assert.Equal(t, metadata.CorrelationID, actions.CorrelationID)
	assert.Len(t, actions.UnsubscribeAttempts, 1)
	assert.True(t, actions.UnsubscribeAttempts[0].Success)
}

func TestProcessArtifactWithRealAttempter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	artifact := "From: deals@spammy.example\r\n" +
		"Subject: deals\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		`<a href="` + srv.URL + `/unsub">Click here to unsubscribe</a>`

	proc, _, root := newTestProcessor(t, optout.NewAttempter(2*time.Second, "test-agent"), &fakeDomains{})
	path := writeArtifact(t, root, "live.eml", artifact)

	result, err := proc.ProcessArtifact(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, result.UnsubscribeResults, 1)
	assert.True(t, result.UnsubscribeResults[0].Success)
	assert.Equal(t, 200, result.UnsubscribeResults[0].StatusCode)
}

func TestProcessArtifactMalformedAbandoned(t *testing.T) {
	proc, st, root := newTestProcessor(t, &fakeAttempter{}, &fakeDomains{})
	path := writeArtifact(t, root, "broken.eml", "this is not an email at all")

	_, err := proc.ProcessArtifact(context.Background(), path)
	assert.Error(t, err)

	// Artifact stays in the intake area, no records persisted
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)

	paths, listErr := st.ListMetadataRecords()
	require.NoError(t, listErr)
	assert.Empty(t, paths)
}

func TestProcessAllContinuesPastFailures(t *testing.T) {
	proc, st, root := newTestProcessor(t, &fakeAttempter{}, &fakeDomains{})

	writeArtifact(t, root, "broken.eml", "this is not an email at all")
	goodPath := writeArtifact(t, root, "good.eml", spammyArtifact)

	proc.ProcessAll(context.Background())

	// The malformed artifact never halts the run
	_, err := os.Stat(goodPath)
	assert.True(t, os.IsNotExist(err))

	paths, err := st.ListMetadataRecords()
	require.NoError(t, err)
	assert.Len(t, paths, 1)
}

func TestProcessArtifactBrandIdentification(t *testing.T) {
	artifact := "From: security@arnazon-alerts.example\r\n" +
		"Subject: Your AMAZON order is on hold\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"Confirm your Amazon account now."

	proc, _, root := newTestProcessor(t, &fakeAttempter{}, &fakeDomains{})
	path := writeArtifact(t, root, "phish.eml", artifact)

	result, err := proc.ProcessArtifact(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []string{"amazon"}, result.IdentifiedCompanies)
	require.Len(t, result.CompanyReports, 1)
	assert.Equal(t, "stop-spoofing@amazon.com", result.CompanyReports[0].Email)
}
