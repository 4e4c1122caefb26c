// Package dispatch turns staged report descriptors into outbound report
// emails. It consumes the persisted record pairs, never live pipeline
// state, so it can run long after the intake batch finished.
package dispatch

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/sirupsen/logrus"

	"spam-intake-go/internal/config"
	"spam-intake-go/internal/models"
	"spam-intake-go/internal/store"
)

// Dispatcher sends staged company and authority reports via the Gmail API
type Dispatcher struct {
	service   *gmail.Service
	userEmail string
	store     *store.Store
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(cfg *config.MailboxConfig, st *store.Store) (*Dispatcher, error) {
	ctx := context.Background()

	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{gmail.GmailSendScope},
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

	return &Dispatcher{
		service:   service,
		userEmail: cfg.UserEmail,
		store:     st,
	}, nil
}

// DispatchAll walks every persisted record pair and sends the reports that
// are staged for email submission. Fully sent pairs are stamped so repeat
// invocations skip them. A failing record never halts the walk.
func (d *Dispatcher) DispatchAll(ctx context.Context) error {
	paths, err := d.store.ListMetadataRecords()
	if err != nil {
		return err
	}

	for _, path := range paths {
		metadata, err := d.store.ReadMetadataRecord(path)
		if err != nil {
			logrus.Warnf("Skipping unreadable record %s: %v", path, err)
			continue
		}

		actions, err := d.store.ReadActionsRecord(path)
		if err != nil {
			logrus.Warnf("Skipping unreadable actions record for %s: %v", path, err)
			continue
		}
		if actions == nil {
			continue
		}
		if actions.DispatchedAt != "" {
			continue
		}

		sendFailed := false
		for _, cr := range actions.CompanyReports {
			if cr.Email == "" {
				continue
			}
			if err := d.sendReport(ctx, cr.Email, metadata); err != nil {
				logrus.Errorf("Failed to send company report to %s: %v", cr.Email, err)
				sendFailed = true
			}
		}

		for _, ar := range actions.AuthorityReports {
			if ar.Email == "" {
				continue
			}
			if err := d.sendReport(ctx, ar.Email, metadata); err != nil {
				logrus.Errorf("Failed to send authority report to %s: %v", ar.Email, err)
				sendFailed = true
			}
		}

		// A partially failed pair stays unmarked and is retried whole on
		// the next run
		if sendFailed {
			continue
		}
		if err := d.store.MarkDispatched(path); err != nil {
			logrus.Errorf("Failed to mark record %s dispatched: %v", path, err)
		}
	}

	return nil
}

// sendReport composes and sends one spam report email, retrying on rate
// limit errors
func (d *Dispatcher) sendReport(ctx context.Context, toEmail string, record *models.MetadataRecord) error {
	raw := d.composeReport(toEmail, record)
	message := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(raw)),
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		_, err := d.service.Users.Messages.Send(d.userEmail, message).Do()
		if err == nil {
			logrus.Infof("Successfully sent report to %s", toEmail)
			return nil
		}

		lastErr = err
		logrus.Warnf("Failed to send report (attempt %d/%d): %v", attempt, 3, err)

		if strings.Contains(err.Error(), "quota") || strings.Contains(err.Error(), "rate") {
			waitTime := time.Duration(attempt*attempt) * time.Second
			logrus.Infof("Rate limited, waiting %v before retry", waitTime)
			time.Sleep(waitTime)
		} else {
			break
		}
	}

	return fmt.Errorf("failed to send report after retries: %w", lastErr)
}

// composeReport builds the raw RFC 5322 report message, attaching the
// original artifact when it is still available in the processed area
func (d *Dispatcher) composeReport(toEmail string, record *models.MetadataRecord) string {
	metadata := record.Metadata
	if metadata == nil {
		metadata = &models.EmailMetadata{}
	}

	var b strings.Builder
	boundary := fmt.Sprintf("spam-report-%d", time.Now().UnixNano())

	original, attachErr := os.ReadFile(d.store.ProcessedArtifactPath(record.FilePath))
	hasAttachment := attachErr == nil

	b.WriteString(fmt.Sprintf("From: %s\r\n", d.userEmail))
	b.WriteString(fmt.Sprintf("To: %s\r\n", toEmail))
	b.WriteString(fmt.Sprintf("Subject: Spam Report - %s\r\n", metadata.Subject))
	b.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	b.WriteString("MIME-Version: 1.0\r\n")

	if hasAttachment {
		b.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=\"%s\"\r\n", boundary))
	} else {
		b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
		b.WriteString("Content-Transfer-Encoding: 7bit\r\n")
	}
	b.WriteString("\r\n")

	if hasAttachment {
		b.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
		b.WriteString("Content-Transfer-Encoding: 7bit\r\n\r\n")
	}

	b.WriteString("Spam Email Report\r\n")
	b.WriteString("================\r\n\r\n")
	b.WriteString("Original Email Details:\r\n")
	b.WriteString(fmt.Sprintf("- Subject: %s\r\n", metadata.Subject))
	b.WriteString(fmt.Sprintf("- From: %s\r\n", metadata.From))
	b.WriteString(fmt.Sprintf("- Date: %s\r\n", metadata.Date))
	b.WriteString(fmt.Sprintf("- Sender Domain: %s\r\n", metadata.SenderDomain))
	b.WriteString(fmt.Sprintf("- Message ID: %s\r\n", metadata.MessageID))
	b.WriteString(fmt.Sprintf("- Return Path: %s\r\n", metadata.ReturnPath))
	b.WriteString("\r\nAnalysis:\r\n")
	b.WriteString(fmt.Sprintf("- Report Generated: %s\r\n", time.Now().Format("2006-01-02 15:04:05")))
	b.WriteString("- Classification: Unsolicited Commercial Email (Spam)\r\n\r\n")
	b.WriteString("Please investigate this email for potential violations of anti-spam regulations.\r\n")
	b.WriteString("\r\nReceived Headers:\r\n")
	for _, received := range metadata.Received {
		b.WriteString(received)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\nThis report was generated automatically as part of spam email processing.\r\n")

	if hasAttachment {
		filename := fmt.Sprintf("spam_email_%s.eml", time.Now().Format("20060102_150405"))
		b.WriteString(fmt.Sprintf("\r\n--%s\r\n", boundary))
		b.WriteString(fmt.Sprintf("Content-Type: message/rfc822; name=\"%s\"\r\n", filename))
		b.WriteString("Content-Transfer-Encoding: base64\r\n")
		b.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=\"%s\"\r\n\r\n", filename))
		b.WriteString(base64.StdEncoding.EncodeToString(original))
		b.WriteString(fmt.Sprintf("\r\n--%s--\r\n", boundary))
	}

	return b.String()
}
