// Package fetcher pulls suspect messages out of a mailbox folder and
// deposits them as raw .eml artifacts in the intake area. It is the thin
// glue feeding the pipeline; the pipeline itself only reads the directory.
package fetcher

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/sirupsen/logrus"

	"spam-intake-go/internal/config"
)

// ArtifactFetcher downloads raw messages into the intake directory
type ArtifactFetcher interface {
	FetchArtifacts(ctx context.Context) (int, error)
	Close() error
}

// New creates the fetcher selected by configuration
func New(cfg *config.MailboxConfig, consumeDir string) (ArtifactFetcher, error) {
	if cfg.UseIMAP {
		return NewIMAPFetcher(cfg, consumeDir)
	}
	return NewGmailAPIFetcher(cfg, consumeDir)
}

// GmailAPIFetcher implements ArtifactFetcher using the Gmail API
type GmailAPIFetcher struct {
	service    *gmail.Service
	userEmail  string
	consumeDir string
	sinceDays  int
}

// IMAPFetcher implements ArtifactFetcher using IMAP
type IMAPFetcher struct {
	client     *client.Client
	folder     string
	consumeDir string
	sinceDays  int
}

// NewGmailAPIFetcher creates a new Gmail API fetcher
func NewGmailAPIFetcher(cfg *config.MailboxConfig, consumeDir string) (*GmailAPIFetcher, error) {
	ctx := context.Background()

	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{gmail.GmailReadonlyScope},
		Endpoint:     google.Endpoint,
	}

	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}

	tokenSource := oauth2Config.TokenSource(ctx, token)

	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &GmailAPIFetcher{
		service:    service,
		userEmail:  cfg.UserEmail,
		consumeDir: consumeDir,
		sinceDays:  cfg.SinceDays,
	}, nil
}

// NewIMAPFetcher creates a new IMAP fetcher
func NewIMAPFetcher(cfg *config.MailboxConfig, consumeDir string) (*IMAPFetcher, error) {
	c, err := client.DialTLS(fmt.Sprintf("%s:%d", cfg.IMAPHost, cfg.IMAPPort), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if err := c.Login(cfg.IMAPUser, cfg.IMAPPassword); err != nil {
		c.Logout()
		return nil, fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	return &IMAPFetcher{
		client:     c,
		folder:     cfg.Folder,
		consumeDir: consumeDir,
		sinceDays:  cfg.SinceDays,
	}, nil
}

// FetchArtifacts downloads recent messages from the spam folder via the
// Gmail API and writes each as a raw .eml artifact
func (f *GmailAPIFetcher) FetchArtifacts(ctx context.Context) (int, error) {
	query := fmt.Sprintf("in:spam newer_than:%dd", f.sinceDays)

	response, err := f.service.Users.Messages.List(f.userEmail).Q(query).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to list messages: %w", err)
	}

	saved := 0
	for _, msg := range response.Messages {
		path := filepath.Join(f.consumeDir, fmt.Sprintf("gmail_%s.eml", msg.Id))
		if _, err := os.Stat(path); err == nil {
			continue
		}

		full, err := f.service.Users.Messages.Get(f.userEmail, msg.Id).Format("raw").Do()
		if err != nil {
			logrus.Warnf("Failed to get message %s: %v", msg.Id, err)
			continue
		}

		raw, err := base64.URLEncoding.DecodeString(full.Raw)
		if err != nil {
			raw, err = base64.RawURLEncoding.DecodeString(full.Raw)
			if err != nil {
				logrus.Warnf("Failed to decode message %s: %v", msg.Id, err)
				continue
			}
		}

		if err := os.WriteFile(path, raw, 0o644); err != nil {
			return saved, fmt.Errorf("failed to write artifact %s: %w", path, err)
		}
		saved++
	}

	return saved, nil
}

// Close closes the Gmail API fetcher
func (f *GmailAPIFetcher) Close() error {
	// Gmail API service doesn't need explicit closing
	return nil
}

// FetchArtifacts downloads recent messages from the configured folder via
// IMAP and writes each as a raw .eml artifact
func (f *IMAPFetcher) FetchArtifacts(ctx context.Context) (int, error) {
	if _, err := f.client.Select(f.folder, true); err != nil {
		return 0, fmt.Errorf("failed to select folder %s: %w", f.folder, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = time.Now().AddDate(0, 0, -f.sinceDays)

	uids, err := f.client.Search(criteria)
	if err != nil {
		return 0, fmt.Errorf("failed to search messages: %w", err)
	}

	if len(uids) == 0 {
		return 0, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchUid}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)

	go func() {
		done <- f.client.Fetch(seqset, items, messages)
	}()

	saved := 0
	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			logrus.Warnf("No body for IMAP message %d", msg.Uid)
			continue
		}

		raw, err := io.ReadAll(body)
		if err != nil {
			logrus.Warnf("Failed to read IMAP message %d: %v", msg.Uid, err)
			continue
		}

		path := filepath.Join(f.consumeDir, fmt.Sprintf("imap_%d.eml", msg.Uid))
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			return saved, fmt.Errorf("failed to write artifact %s: %w", path, err)
		}
		saved++
	}

	if err := <-done; err != nil {
		return saved, fmt.Errorf("failed to fetch messages: %w", err)
	}

	return saved, nil
}

// Close closes the IMAP fetcher
func (f *IMAPFetcher) Close() error {
	return f.client.Logout()
}
