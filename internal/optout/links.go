// Package optout discovers unsubscribe endpoints in email content and
// issues best-effort opt-out requests against them.
package optout

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"spam-intake-go/internal/models"
)

var (
	headerURLRe = regexp.MustCompile(`<(https?://[^>]+)>`)
	textURLRe   = regexp.MustCompile(`(?i)https?://[^\s<>"']+(?:unsubscribe|opt-?out|remove)[^\s<>"']*`)
)

// Resolver finds opt-out candidate URLs using three detectors: the
// List-Unsubscribe header, HTML anchors whose text matches an opt-out
// phrase, and opt-out shaped URLs in plain text.
type Resolver struct {
	patterns []*regexp.Regexp
}

// NewResolver compiles the configured opt-out phrase patterns
func NewResolver(patterns []string) (*Resolver, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, fmt.Errorf("invalid opt-out pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return &Resolver{patterns: compiled}, nil
}

// FindLinks returns the deduplicated set of opt-out candidate URLs found
// in the List-Unsubscribe header value and the message content. Dedup is
// exact-string: near-duplicate URLs with cosmetic differences stay distinct
// so no legitimate opt-out action is merged away.
func (r *Resolver) FindLinks(listUnsubscribe string, content *models.EmailContent) []string {
	var links []string

	links = append(links, r.headerLinks(listUnsubscribe)...)
	links = append(links, r.htmlLinks(content.HTML)...)
	links = append(links, r.textLinks(content.Text)...)

	return dedup(links)
}

// headerLinks extracts every angle-bracketed URL from the standard
// List-Unsubscribe header value
func (r *Resolver) headerLinks(value string) []string {
	if value == "" {
		return nil
	}

	var links []string
	for _, m := range headerURLRe.FindAllStringSubmatch(value, -1) {
		links = append(links, m[1])
	}
	return links
}

// htmlLinks parses the HTML body and collects anchor targets whose text
// matches one of the opt-out phrases
func (r *Resolver) htmlLinks(html string) []string {
	if html == "" {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		logrus.Warnf("Failed to parse HTML content: %v", err)
		return nil
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href == "" {
			return
		}
		text := s.Text()
		for _, re := range r.patterns {
			if re.MatchString(text) {
				links = append(links, href)
				return
			}
		}
	})
	return links
}

// textLinks collects URLs in the plain text body whose path or query
// carries an opt-out keyword
func (r *Resolver) textLinks(text string) []string {
	if text == "" {
		return nil
	}
	return textURLRe.FindAllString(text, -1)
}

// dedup removes exact-string duplicates, keeping first-seen order
func dedup(links []string) []string {
	seen := make(map[string]struct{}, len(links))
	result := make([]string, 0, len(links))
	for _, link := range links {
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		result = append(result, link)
	}
	return result
}
