package scenario

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SummarizeDOM condenses a page's HTML into a one-line diagnostic used in
// fatal-abort evidence: the title and counts of a few structural elements.
func SummarizeDOM(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse DOM snapshot: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = "(no title)"
	}

	return fmt.Sprintf("title=%q links=%d forms=%d scripts=%d",
		title,
		doc.Find("a").Length(),
		doc.Find("form").Length(),
		doc.Find("script").Length(),
	), nil
}
