package recipe

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// MaxHTMLSize limits page input to 10MB to prevent memory exhaustion on
// hostile or broken markup.
const MaxHTMLSize = 10 * 1024 * 1024

// DetectCharset detects the charset of raw HTML bytes, defaulting to utf-8.
func DetectCharset(data []byte) string {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil || result == nil {
		return "utf-8"
	}
	return strings.ToLower(result.Charset)
}

// LoadHTML parses HTML with automatic charset detection. French recipe
// sites still serve the occasional ISO-8859-1 page.
func LoadHTML(htmlStr string) (*goquery.Document, error) {
	if len(htmlStr) == 0 {
		return nil, fmt.Errorf("html content required")
	}
	if len(htmlStr) > MaxHTMLSize {
		return nil, fmt.Errorf("html exceeds maximum size of %d bytes", MaxHTMLSize)
	}

	data := []byte(htmlStr)
	detected := DetectCharset(data)

	utf8Reader, err := charset.NewReader(bytes.NewReader(data), detected)
	if err != nil {
		// Fallback to direct parsing
		return goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	}
	return goquery.NewDocumentFromReader(utf8Reader)
}

// NormalizeWhitespace collapses runs of whitespace into single spaces.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
