// Package knowledge fetches and caches external reference material cited in
// a job's knowledge URLs. Fetch failures are recorded per source and never
// fail the pipeline.
package knowledge

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"

	"github.com/traindoc-io/traindoc/pkg/models"
)

// skippedElements are HTML containers whose text is boilerplate rather than
// document content. head is not listed: the walk must reach <title>, and the
// title handler keeps its text out of the content.
var skippedElements = map[string]struct{}{
	"script": {}, "style": {}, "nav": {}, "footer": {}, "aside": {},
	"noscript": {}, "iframe": {}, "svg": {},
}

// ExtractHTML parses an HTML document and returns its title and main textual
// content with entities decoded and boilerplate containers removed.
func ExtractHTML(body []byte) (title, content string, err error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	var text strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if _, skip := skippedElements[n.Data]; skip {
				return
			}
			if n.Data == "title" && title == "" && n.FirstChild != nil {
				title = strings.TrimSpace(n.FirstChild.Data)
				return
			}
		}
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
			text.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return title, NormalizeWhitespace(text.String()), nil
}

// ExtractPDF extracts text from every page of a PDF document.
func ExtractPDF(body []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract PDF text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}
	return NormalizeWhitespace(buf.String()), nil
}

// NormalizeWhitespace collapses all whitespace runs to single spaces and
// trims the result.
func NormalizeWhitespace(text string) string {
	return strings.Join(strings.FieldsFunc(text, unicode.IsSpace), " ")
}

// TruncateAtWord limits content to maxChars, cutting at the last word
// boundary before the limit.
func TruncateAtWord(content string, maxChars int) string {
	if maxChars <= 0 || len(content) <= maxChars {
		return content
	}
	cut := content[:maxChars]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " ")
}

// MediaTypeFor maps a Content-Type header value to a media type.
func MediaTypeFor(contentType string) models.MediaType {
	lowered := strings.ToLower(contentType)
	switch {
	case strings.Contains(lowered, "application/pdf"):
		return models.MediaTypePDF
	case strings.Contains(lowered, "text/html"), strings.Contains(lowered, "application/xhtml"):
		return models.MediaTypeWeb
	default:
		return models.MediaTypeText
	}
}
