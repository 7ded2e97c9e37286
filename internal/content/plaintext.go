package content

import (
	"regexp"
	"strings"
)

var (
	lineBreakRe  = regexp.MustCompile(`(?i)<br\s*/?>`)
	divSeamRe    = regexp.MustCompile(`(?i)</div>\s*<div[^>]*>`)
	divTagRe     = regexp.MustCompile(`(?i)</?div[^>]*>`)
	paraSeamRe   = regexp.MustCompile(`(?i)</p>\s*<p[^>]*>`)
	paraTagRe    = regexp.MustCompile(`(?i)</?p[^>]*>`)
	anchorRe     = regexp.MustCompile(`(?i)<a[^>]+href=["']([^"'>]+)["'][^>]*>([^<]*)</a>`)
	anyTagRe     = regexp.MustCompile(`<[^>]+>`)
	blankLinesRe = regexp.MustCompile(`\n\s*\n\s*\n+`)
)

// HTMLToPlainText reduces editor-authored signature HTML to readable text.
// It is a sequence of textual substitutions, not a parser: nested block
// markup and entities pass through imperfectly.
func HTMLToPlainText(html string) string {
	if html == "" {
		return ""
	}
	text := lineBreakRe.ReplaceAllString(html, "\n")

	text = divSeamRe.ReplaceAllString(text, "\n")
	text = divTagRe.ReplaceAllString(text, "")

	text = paraSeamRe.ReplaceAllString(text, "\n\n")
	text = paraTagRe.ReplaceAllString(text, "")

	text = anchorRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := anchorRe.FindStringSubmatch(m)
		href, label := sub[1], sub[2]
		if label == href || strings.TrimSpace(label) == "" {
			return href
		}
		return label + " (" + href + ")"
	})

	text = anyTagRe.ReplaceAllString(text, "")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
