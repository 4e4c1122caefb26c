package optout

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"spam-intake-go/internal/models"
)

// Attempter issues a single GET per opt-out candidate. Only URL-triggered
// opt-outs are supported: no form submission, scripting, or sessions.
type Attempter struct {
	client    *http.Client
	userAgent string
}

// NewAttempter creates an attempter with a bounded request timeout and
// redirect following
func NewAttempter(timeout time.Duration, userAgent string) *Attempter {
	return &Attempter{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Attempt issues one GET per candidate URL and records each outcome.
// Success means a 2xx response after redirects, nothing more: whether the
// unsubscription actually happened is not verifiable. A failing candidate
// never aborts the loop.
func (a *Attempter) Attempt(ctx context.Context, links []string) []models.UnsubscribeAttempt {
	results := make([]models.UnsubscribeAttempt, 0, len(links))

	for _, link := range links {
		result := a.attemptOne(ctx, link)
		if result.Success {
			logrus.Infof("Unsubscribe attempt: %s - Status: %d", link, result.StatusCode)
		} else if result.Error != "" {
			logrus.Errorf("Unsubscribe failed for %s: %s", link, result.Error)
		} else {
			logrus.Infof("Unsubscribe attempt: %s - Status: %d", link, result.StatusCode)
		}
		results = append(results, result)
	}

	return results
}

func (a *Attempter) attemptOne(ctx context.Context, link string) models.UnsubscribeAttempt {
	result := models.UnsubscribeAttempt{
		Link:      link,
		Timestamp: models.Now(),
	}

	if _, err := url.ParseRequestURI(link); err != nil {
		result.Error = err.Error()
		result.ErrorKind = models.AttemptErrorMalformedURL
		return result
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		result.Error = err.Error()
		result.ErrorKind = models.AttemptErrorMalformedURL
		return result
	}
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		result.Error = err.Error()
		result.ErrorKind = classifyError(err)
		return result
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	result.Success = resp.StatusCode >= 200 && resp.StatusCode < 300
	if resp.Request != nil && resp.Request.URL != nil {
		result.ResponseURL = resp.Request.URL.String()
	}

	return result
}

// classifyError maps a transport failure to its kind so downstream
// consumers can tell a timeout from a DNS failure
func classifyError(err error) models.AttemptErrorKind {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.AttemptErrorTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return models.AttemptErrorDNS
	}

	var certErr *tls.CertificateVerificationError
	var unknownAuthErr x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	if errors.As(err, &certErr) || errors.As(err, &unknownAuthErr) || errors.As(err, &hostnameErr) {
		return models.AttemptErrorTLS
	}

	return models.AttemptErrorConnection
}
