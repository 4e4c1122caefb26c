package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/sirupsen/logrus"

	"spam-intake-go/internal/models"
)

// ErrMalformedArtifact marks an artifact that cannot be interpreted as an
// email message at all. The processor abandons such artifacts.
var ErrMalformedArtifact = errors.New("malformed email artifact")

var senderDomainRe = regexp.MustCompile(`@([a-zA-Z0-9.-]+)`)

// Extract parses a raw email artifact into header metadata and body content.
// Header values with MIME encoded words are decoded; decoding failures keep
// the best-effort value go-message produces. Attachment and non-text parts
// are skipped,
// inline text and HTML parts are concatenated in document order.
func Extract(raw []byte) (*models.EmailMetadata, *models.EmailContent, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && mr == nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedArtifact, err)
	}
	if err != nil {
		// Unknown charset or similar: the reader is still usable
		logrus.Warnf("Degraded message parse: %v", err)
	}

	metadata := extractMetadata(&mr.Header)
	content := extractContent(mr)

	return metadata, content, nil
}

// extractMetadata pulls the header fields of interest, decoding MIME
// encoded words where present
func extractMetadata(header *mail.Header) *models.EmailMetadata {
	metadata := &models.EmailMetadata{
		Timestamp:       models.Now(),
		Subject:         headerText(header, "Subject"),
		From:            headerText(header, "From"),
		To:              headerText(header, "To"),
		Date:            header.Get("Date"),
		MessageID:       header.Get("Message-Id"),
		ReturnPath:      header.Get("Return-Path"),
		XMailer:         header.Get("X-Mailer"),
		XOriginatingIP:  header.Get("X-Originating-Ip"),
		ListUnsubscribe: header.Get("List-Unsubscribe"),
		Received:        []string{},
	}

	fields := header.FieldsByKey("Received")
	for fields.Next() {
		metadata.Received = append(metadata.Received, fields.Value())
	}

	if m := senderDomainRe.FindStringSubmatch(metadata.From); m != nil {
		metadata.SenderDomain = m[1]
	}

	return metadata
}

// headerText returns the decoded text of a header field. When decoding
// fails the best-effort value is kept.
func headerText(header *mail.Header, key string) string {
	text, err := header.Text(key)
	if err != nil {
		logrus.Debugf("Failed to decode header %s: %v", key, err)
	}
	return text
}

// extractContent walks the message parts and accumulates inline text and
// HTML bodies. Parts flagged as attachments are excluded, and so are
// inline parts whose declared type is not text.
func extractContent(mr *mail.Reader) *models.EmailContent {
	var text, html strings.Builder

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if message.IsUnknownCharset(err) && part != nil {
				logrus.Warnf("Unknown charset in message part: %v", err)
			} else {
				logrus.Warnf("Failed to read message part: %v", err)
				break
			}
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			// Attachment part, skip
			continue
		}

		contentType, _, err := header.ContentType()
		if err != nil {
			contentType = "text/plain"
		}

		// Inline non-text parts (embedded images and the like) carry no
		// analyzable content
		if contentType != "text/html" && !strings.HasPrefix(contentType, "text/") {
			continue
		}

		body, err := io.ReadAll(part.Body)
		if err != nil {
			logrus.Warnf("Failed to read part body: %v", err)
			continue
		}

		if contentType == "text/html" {
			html.WriteString(toValidText(body))
		} else {
			text.WriteString(toValidText(body))
		}
	}

	return &models.EmailContent{
		Text: text.String(),
		HTML: html.String(),
	}
}

// toValidText converts raw part bytes to text, replacing invalid byte
// sequences instead of failing
func toValidText(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}
