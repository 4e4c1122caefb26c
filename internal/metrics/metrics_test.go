package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesPipelineCounters(t *testing.T) {
	m := NewMetrics()
	m.ArtifactsProcessed.Inc()
	m.UnsubscribeAttempts.Inc()
	m.UnsubscribeAttempts.Inc()

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, string(body), "spam_intake_artifacts_processed 1")
	assert.Contains(t, string(body), "spam_intake_unsubscribe_attempts 2")
	assert.Contains(t, string(body), "spam_intake_processing_duration_seconds")
}
