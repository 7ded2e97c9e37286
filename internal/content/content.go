// Package content turns message bodies written as Markdown, HTML, or plain
// text into HTML suitable for mail clients, and reduces HTML signatures to
// plain text.
package content

import (
	"bytes"
	"fmt"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"

	"github.com/joshsymonds/gmail-cli/internal/apperr"
)

// Format is the declared format of a message body.
type Format string

const (
	FormatMarkdown  Format = "markdown"
	FormatHTML      Format = "html"
	FormatPlaintext Format = "plaintext"
)

// Formats lists the accepted formats in help-text order.
var Formats = []Format{FormatMarkdown, FormatHTML, FormatPlaintext}

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", apperr.Validation("unsupported input format: %s", s)
}

// emailCSS is inlined ahead of rendered Markdown because many mail clients
// drop external stylesheets.
const emailCSS = `<style>
.highlight {
  background: #f6f8fa !important;
  border: 1px solid #d1d9e0 !important;
  border-radius: 6px !important;
  padding: 16px !important;
  margin: 16px 0 !important;
  overflow-x: auto !important;
  font-family: 'Monaco', 'Menlo', 'Ubuntu Mono', monospace !important;
  font-size: 14px !important;
  line-height: 1.45 !important;
}
code {
  background: #f6f8fa !important;
  padding: 2px 4px !important;
  border-radius: 3px !important;
  font-family: 'Monaco', 'Menlo', 'Ubuntu Mono', monospace !important;
  font-size: 85% !important;
  color: #d73a49 !important;
}
pre code {
  background: transparent !important;
  padding: 0 !important;
  border-radius: 0 !important;
  color: inherit !important;
}
table {
  border-collapse: collapse !important;
  width: 100% !important;
  margin: 16px 0 !important;
}
th, td {
  border: 1px solid #d1d9e0 !important;
  padding: 8px 12px !important;
  text-align: left !important;
}
th {
  background: #f6f8fa !important;
  font-weight: bold !important;
}
blockquote {
  border-left: 4px solid #d1d9e0 !important;
  padding: 0 16px !important;
  margin: 16px 0 !important;
  color: #6a737d !important;
}
</style>
`

// Converter renders bodies to HTML.
type Converter struct {
	md goldmark.Markdown
}

// NewConverter configures the Markdown renderer with fenced code, tables,
// heading anchors, inline-styled highlighting, and hard line breaks.
func NewConverter() *Converter {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.Table,
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
				highlighting.WithFormatOptions(chromahtml.WithClasses(false), chromahtml.WithLineNumbers(false)),
				highlighting.WithWrapperRenderer(codeWrapper),
			),
		),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithUnsafe()),
	)
	return &Converter{md: md}
}

var defaultConverter = NewConverter()

// ToHTML converts with the default converter.
func ToHTML(body string, format Format) (string, error) {
	return defaultConverter.ToHTML(body, format)
}

// ToHTML converts body from format to HTML.
func (c *Converter) ToHTML(body string, format Format) (string, error) {
	switch format {
	case FormatHTML:
		return body, nil
	case FormatMarkdown:
		var buf bytes.Buffer
		if err := c.md.Convert([]byte(body), &buf); err != nil {
			return "", fmt.Errorf("render markdown: %w", err)
		}
		return emailCSS + buf.String(), nil
	case FormatPlaintext:
		return plaintextToHTML(body), nil
	default:
		return "", apperr.Validation("unsupported input format: %s", format)
	}
}

var plaintextEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func plaintextToHTML(s string) string {
	return strings.ReplaceAll(plaintextEscaper.Replace(s), "\n", "<br>\n")
}

// codeWrapper wraps highlighted blocks in a .highlight div and keeps plain
// <pre><code> for blocks chroma cannot lex.
func codeWrapper(w util.BufWriter, c highlighting.CodeBlockContext, entering bool) {
	if c.Highlighted() {
		if entering {
			_, _ = w.WriteString(`<div class="highlight">`)
		} else {
			_, _ = w.WriteString("</div>\n")
		}
		return
	}
	if !entering {
		_, _ = w.WriteString("</code></pre>\n")
		return
	}
	_, _ = w.WriteString("<pre><code")
	if lang, ok := c.Language(); ok {
		_, _ = w.WriteString(` class="language-`)
		_, _ = w.Write(util.EscapeHTML(lang))
		_ = w.WriteByte('"')
	}
	_ = w.WriteByte('>')
}
