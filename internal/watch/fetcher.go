package watch

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

// Fetcher retrieves page HTML over HTTP.
type Fetcher struct {
	http *resty.Client
}

// NewFetcher creates a page fetcher.
func NewFetcher() *Fetcher {
	client := resty.New().
		SetTimeout(30*time.Second).
		SetHeader("User-Agent", "RecipeAI-Companion/1.0")
	return &Fetcher{http: client}
}

// FetchHTML returns the page body as a string.
func (f *Fetcher) FetchHTML(ctx context.Context, pageURL string) (string, error) {
	resp, err := f.http.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("fetch %s: HTTP %d", pageURL, resp.StatusCode())
	}
	return resp.String(), nil
}

func hostOf(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
