// Package store is the filesystem record store: the intake and processed
// artifact areas plus the append-only directory of structured JSON records.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"spam-intake-go/internal/models"
)

const (
	metadataPrefix = "email_metadata_"
	actionsPrefix  = "actions_taken_"
	summaryPrefix  = "summary_report_"
	recordExt      = ".json"
)

// Store manages the three filesystem areas the pipeline works on
type Store struct {
	consumeDir   string
	processedDir string
	logsDir      string
}

// New creates a store, ensuring all directories exist
func New(consumeDir, processedDir, logsDir string) (*Store, error) {
	for _, dir := range []string{consumeDir, processedDir, logsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return &Store{
		consumeDir:   consumeDir,
		processedDir: processedDir,
		logsDir:      logsDir,
	}, nil
}

// LogsDir returns the directory holding structured records and activity logs
func (s *Store) LogsDir() string {
	return s.logsDir
}

// ListArtifacts returns the email artifacts waiting in the intake area.
// Directory listing order; callers must not rely on processing order.
func (s *Store) ListArtifacts() ([]string, error) {
	var artifacts []string
	for _, pattern := range []string{"*.eml", "*.msg"} {
		matches, err := filepath.Glob(filepath.Join(s.consumeDir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to list artifacts: %w", err)
		}
		artifacts = append(artifacts, matches...)
	}
	return artifacts, nil
}

// WriteRecords persists the two correlated JSON records for one processing
// result, sharing a timestamp suffix. Both writes must succeed: a result
// that cannot be durably recorded must not trigger artifact relocation.
func (s *Store) WriteRecords(result *models.ProcessingResult) (string, error) {
	ts := s.recordTimestamp()

	metadata := &models.MetadataRecord{
		CorrelationID:       result.CorrelationID,
		FilePath:            result.FilePath,
		Metadata:            result.Metadata,
		WhoisData:           result.WhoisData,
		ProcessingTimestamp: result.ProcessingTimestamp,
	}
	if err := s.writeRecord(metadataPrefix+ts+recordExt, metadata); err != nil {
		return "", err
	}

	actions := &models.ActionsRecord{
		CorrelationID:       result.CorrelationID,
		FilePath:            result.FilePath,
		UnsubscribeAttempts: result.UnsubscribeResults,
		AuthorityReports:    result.AuthorityReports,
		CompanyReports:      result.CompanyReports,
		ProcessingTimestamp: result.ProcessingTimestamp,
	}
	if err := s.writeRecord(actionsPrefix+ts+recordExt, actions); err != nil {
		return "", err
	}

	return ts, nil
}

// recordTimestamp returns a YYYYMMDD_HHMMSS suffix that is not yet taken,
// so two artifacts processed within one second keep distinct record pairs
func (s *Store) recordTimestamp() string {
	base := time.Now().Format("20060102_150405")
	ts := base
	for i := 1; ; i++ {
		if _, err := os.Stat(filepath.Join(s.logsDir, metadataPrefix+ts+recordExt)); os.IsNotExist(err) {
			return ts
		}
		ts = fmt.Sprintf("%s_%d", base, i)
	}
}

func (s *Store) writeRecord(name string, record interface{}) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", name, err)
	}
	path := filepath.Join(s.logsDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write record %s: %w", name, err)
	}
	return nil
}

// CompleteArtifact relocates a processed artifact from the intake area to
// the processed area. Must only be called after both records are durable:
// a crash before the move leaves the artifact for reprocessing, never lost.
func (s *Store) CompleteArtifact(path string) error {
	target := filepath.Join(s.processedDir, filepath.Base(path))
	if err := os.Rename(path, target); err != nil {
		return fmt.Errorf("failed to relocate artifact %s: %w", path, err)
	}
	return nil
}

// ProcessedArtifactPath returns where a relocated artifact lives, given
// the intake path recorded at processing time
func (s *Store) ProcessedArtifactPath(intakePath string) string {
	return filepath.Join(s.processedDir, filepath.Base(intakePath))
}

// ListMetadataRecords returns the persisted metadata record paths in
// lexical (and therefore chronological) order
func (s *Store) ListMetadataRecords() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.logsDir, metadataPrefix+"*"+recordExt))
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata records: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}

// ReadMetadataRecord reads one persisted metadata record
func (s *Store) ReadMetadataRecord(path string) (*models.MetadataRecord, error) {
	var record models.MetadataRecord
	if err := s.readRecord(path, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// ReadActionsRecord reads the actions record correlated with the given
// metadata record path via the shared timestamp suffix. Returns nil with
// no error when no correlated record exists.
func (s *Store) ReadActionsRecord(metadataPath string) (*models.ActionsRecord, error) {
	ts := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(metadataPath), metadataPrefix), recordExt)
	path := filepath.Join(s.logsDir, actionsPrefix+ts+recordExt)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	var record models.ActionsRecord
	if err := s.readRecord(path, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// MarkDispatched stamps the actions record correlated with the given
// metadata record path so its reports are not sent again
func (s *Store) MarkDispatched(metadataPath string) error {
	record, err := s.ReadActionsRecord(metadataPath)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("no actions record correlated with %s", metadataPath)
	}

	ts := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(metadataPath), metadataPrefix), recordExt)
	record.DispatchedAt = models.Now()
	return s.writeRecord(actionsPrefix+ts+recordExt, record)
}

func (s *Store) readRecord(path string, record interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read record %s: %w", path, err)
	}
	if err := json.Unmarshal(data, record); err != nil {
		return fmt.Errorf("failed to decode record %s: %w", path, err)
	}
	return nil
}

// WriteSummary persists the daily run summary
func (s *Store) WriteSummary(summary *models.RunSummary) (string, error) {
	name := summaryPrefix + time.Now().Format("20060102") + recordExt
	if err := s.writeRecord(name, summary); err != nil {
		return "", err
	}
	return filepath.Join(s.logsDir, name), nil
}
