package textutil

import (
	"regexp"
	"strings"
)

var (
	// ![alt](url)
	reImageMD   = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	reImageHTML = regexp.MustCompile(`(?is)<img[^>]*>`)
	reComment   = regexp.MustCompile(`(?s)<!--.*?-->`)
	reTrailing  = regexp.MustCompile(`[ \t]+\n`)
	reBlankRuns = regexp.MustCompile(`\n{3,}`)
)

// CleanDocument strips what a model cannot use from a pasted SOP: images,
// HTML comments, trailing blanks and runs of empty lines. Line structure is
// kept because headings and numbering carry the outline.
func CleanDocument(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = reImageMD.ReplaceAllString(text, "")
	text = reImageHTML.ReplaceAllString(text, "")
	text = reComment.ReplaceAllString(text, "")
	text = reTrailing.ReplaceAllString(text, "\n")
	text = reBlankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
