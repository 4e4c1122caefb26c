// Package brand flags which known organizations a message appears to
// impersonate.
package brand

import (
	"sort"
	"strings"

	"spam-intake-go/internal/models"
)

// Identify returns the brand names whose lowercase form appears as a
// substring in the concatenation of subject, sender, and both content
// bodies. Deliberately permissive: a passing mention matches, since the
// result only stages a manual-review report.
func Identify(metadata *models.EmailMetadata, content *models.EmailContent, contacts map[string]string) []string {
	haystack := strings.ToLower(strings.Join([]string{
		content.Text,
		content.HTML,
		metadata.Subject,
		metadata.From,
	}, " "))

	identified := make([]string, 0)
	for name := range contacts {
		if strings.Contains(haystack, strings.ToLower(name)) {
			identified = append(identified, name)
		}
	}

	// Map iteration order is random; keep the result stable
	sort.Strings(identified)
	return identified
}
