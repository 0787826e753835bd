package recipe

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

var (
	// Leading numeric quantity, optionally followed by a unit token.
	quantityRe = regexp.MustCompile(`(?i)^([\d.,/\s]+(?:g|kg|ml|cl|l|cuillère|c\.|càc|càs)?)`)

	prepTimeRe = regexp.MustCompile(`(?i)pr[eé]paration[:\s]*(\d+)`)
	cookTimeRe = regexp.MustCompile(`(?i)(?:cuisson|cooking)[:\s]*(\d+)`)
	firstIntRe = regexp.MustCompile(`\d+`)
)

// Extractor turns a loaded page and a matched adapter into a Record.
// Extraction is best-effort against uncontrolled third-party markup: the
// only hard requirement is a non-empty title.
type Extractor struct {
	registry  *Registry
	sanitizer *bluemonday.Policy
}

// NewExtractor creates an extractor over the given adapter registry.
func NewExtractor(registry *Registry) *Extractor {
	return &Extractor{
		registry:  registry,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// Registry returns the adapter registry backing this extractor.
func (e *Extractor) Registry() *Registry {
	return e.registry
}

// ExtractFromPage matches an adapter for the page URL's hostname and runs
// extraction. Returns ErrNoAdapter for unsupported sites.
func (e *Extractor) ExtractFromPage(doc *goquery.Document, pageURL string) (*Record, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url %q: %w", pageURL, err)
	}
	adapter, ok := e.registry.Match(parsed.Hostname())
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoAdapter, parsed.Hostname())
	}
	return e.Extract(doc, adapter, pageURL)
}

// Extract produces a Record from the document using the adapter's
// selectors. A selector that panics inside the parser surfaces as an
// extraction error, never as a crash.
func (e *Extractor) Extract(doc *goquery.Document, adapter Adapter, pageURL string) (rec *Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = fmt.Errorf("extraction panicked: %v", r)
		}
	}()

	title := NormalizeWhitespace(doc.Find(adapter.Title).First().Text())
	if title == "" {
		return nil, ErrNoTitle
	}

	host := ""
	if parsed, perr := url.Parse(pageURL); perr == nil {
		host = parsed.Hostname()
	}

	return &Record{
		Title:           title,
		Description:     e.extractDescription(doc, adapter.Description),
		Ingredients:     extractIngredients(doc, adapter.Ingredients),
		Steps:           extractSteps(doc, adapter.Steps),
		ImageURL:        extractImage(doc, adapter.Image),
		SourceURL:       pageURL,
		SourceHost:      host,
		PrepTimeMinutes: extractMarkedInt(doc, adapter.Time, prepTimeRe),
		CookTimeMinutes: extractMarkedInt(doc, adapter.Time, cookTimeRe),
		Difficulty:      extractDifficulty(doc, adapter.Difficulty),
		Servings:        extractServings(doc, adapter.Servings),
		ScrapedAt:       time.Now(),
	}, nil
}

// extractDescription strips any nested markup from the description block.
func (e *Extractor) extractDescription(doc *goquery.Document, selector string) string {
	if selector == "" {
		return ""
	}
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return ""
	}
	inner, err := sel.Html()
	if err != nil {
		return NormalizeWhitespace(sel.Text())
	}
	return NormalizeWhitespace(html.UnescapeString(e.sanitizer.Sanitize(inner)))
}

func extractIngredients(doc *goquery.Document, selector string) []Ingredient {
	ingredients := []Ingredient{}
	if selector == "" {
		return ingredients
	}
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		raw := sel.Text()
		name := NormalizeWhitespace(raw)
		if name == "" {
			return
		}
		ingredients = append(ingredients, Ingredient{
			Name:     name,
			Quantity: ExtractQuantity(raw),
		})
	})
	return ingredients
}

// ExtractQuantity scans the start of an ingredient line for a numeric
// quantity with an optional unit token. Lines with no leading quantity
// yield the empty string.
func ExtractQuantity(text string) string {
	match := quantityRe.FindStringSubmatch(strings.TrimSpace(text))
	if match == nil {
		return ""
	}
	return strings.TrimSpace(match[1])
}

// extractSteps numbers instructions sequentially from 1 in document
// order. Empty candidates are dropped before numbering so the sequence
// never has gaps.
func extractSteps(doc *goquery.Document, selector string) []Step {
	steps := []Step{}
	if selector == "" {
		return steps
	}
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		instruction := NormalizeWhitespace(sel.Text())
		if instruction == "" {
			return
		}
		steps = append(steps, Step{
			Number:      len(steps) + 1,
			Instruction: instruction,
		})
	})
	return steps
}

// extractImage prefers the direct source attribute, falling back to the
// lazy-load data attribute used by client-side galleries.
func extractImage(doc *goquery.Document, selector string) string {
	if selector == "" {
		return ""
	}
	sel := doc.Find(selector).First()
	if src, ok := sel.Attr("src"); ok && src != "" {
		return src
	}
	return sel.AttrOr("data-src", "")
}

func extractMarkedInt(doc *goquery.Document, selector string, marker *regexp.Regexp) int {
	if selector == "" {
		return 0
	}
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return 0
	}
	match := marker.FindStringSubmatch(sel.Text())
	if match == nil {
		return 0
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return n
}

func extractDifficulty(doc *goquery.Document, selector string) Difficulty {
	if selector == "" {
		return DifficultyMedium
	}
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return DifficultyMedium
	}
	text := strings.ToLower(sel.Text())
	switch {
	case strings.Contains(text, "facile"):
		return DifficultyEasy
	case strings.Contains(text, "difficile"):
		return DifficultyHard
	default:
		return DifficultyMedium
	}
}

func extractServings(doc *goquery.Document, selector string) int {
	const defaultServings = 4
	if selector == "" {
		return defaultServings
	}
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return defaultServings
	}
	match := firstIntRe.FindString(sel.Text())
	if match == "" {
		return defaultServings
	}
	n, err := strconv.Atoi(match)
	if err != nil || n <= 0 {
		return defaultServings
	}
	return n
}
