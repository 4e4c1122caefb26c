// Package whois resolves registration intelligence for sender domains.
package whois

import (
	"context"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"github.com/sirupsen/logrus"

	"spam-intake-go/internal/models"
)

// Resolver performs directory lookups against whois servers. No caching,
// rate limiting, or retry: a lookup either yields data or an error record.
type Resolver struct {
	client *whois.Client
	server string
}

// NewResolver creates a resolver. server may be empty to use the default
// server chain for each TLD.
func NewResolver(server string, timeout time.Duration) *Resolver {
	client := whois.NewClient()
	client.SetTimeout(timeout)
	return &Resolver{
		client: client,
		server: server,
	}
}

// Lookup resolves registration data for a domain. Every failure mode
// (unregistered domain, unreachable server, malformed domain) collapses to
// the same error-shaped record; nothing propagates past this boundary.
func (r *Resolver) Lookup(ctx context.Context, domain string) *models.WhoisData {
	data := &models.WhoisData{
		Domain:      domain,
		NameServers: []string{},
		Emails:      []string{},
		Timestamp:   models.Now(),
	}

	raw, err := r.query(ctx, domain)
	if err != nil {
		logrus.Errorf("WHOIS lookup failed for %s: %v", domain, err)
		data.Error = err.Error()
		return data
	}

	parsed, err := whoisparser.Parse(raw)
	if err != nil {
		logrus.Errorf("WHOIS parse failed for %s: %v", domain, err)
		data.Error = err.Error()
		return data
	}

	if parsed.Domain != nil {
		data.CreationDate = parsed.Domain.CreatedDate
		data.ExpirationDate = parsed.Domain.ExpirationDate
		data.NameServers = append(data.NameServers, parsed.Domain.NameServers...)
	}
	if parsed.Registrar != nil {
		data.Registrar = parsed.Registrar.Name
	}
	if parsed.Registrant != nil {
		data.Org = parsed.Registrant.Organization
		data.Country = parsed.Registrant.Country
	}
	for _, contact := range []*whoisparser.Contact{parsed.Registrant, parsed.Administrative, parsed.Technical} {
		if contact != nil && contact.Email != "" {
			data.Emails = appendUnique(data.Emails, contact.Email)
		}
	}

	return data
}

// query runs the blocking whois call, honoring context cancellation
func (r *Resolver) query(ctx context.Context, domain string) (string, error) {
	type queryResult struct {
		raw string
		err error
	}

	ch := make(chan queryResult, 1)
	go func() {
		var raw string
		var err error
		if r.server != "" {
			raw, err = r.client.Whois(domain, r.server)
		} else {
			raw, err = r.client.Whois(domain)
		}
		ch <- queryResult{raw: raw, err: err}
	}()

	select {
	case res := <-ch:
		return res.raw, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}
