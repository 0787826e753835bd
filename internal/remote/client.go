// Package remote implements the authenticated client for the Recipe AI
// backend. All outbound calls go through here; the bearer token is cached
// in memory for the process lifetime and persisted via the store.
package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/recipeai/companion/internal/logging"
	"github.com/recipeai/companion/internal/recipe"
)

// ErrNetwork marks a transport-level failure, as opposed to an HTTP
// error response.
var ErrNetwork = errors.New("network failure")

// HTTPError is a non-success response from the backend.
type HTTPError struct {
	Status     int
	StatusText string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.StatusText)
}

// TokenStore persists the bearer token across restarts.
type TokenStore interface {
	AuthToken() (string, error)
	SetAuthToken(token string) error
}

// Client issues JSON requests against a fixed base URL. Safe for
// concurrent use.
type Client struct {
	baseURL string
	http    *resty.Client
	limiter *rate.Limiter
	tokens  TokenStore
	log     *logging.Logger

	mu          sync.Mutex
	token       string
	tokenLoaded bool // caches absence too
}

// RequestOptions customizes a single request. Caller headers win over
// the defaults on conflict.
type RequestOptions struct {
	Method  string
	Headers map[string]string
	Body    any
}

// NewClient creates a client for the given base URL. Endpoints are
// joined to it by plain concatenation, matching the backend contract.
func NewClient(baseURL string, tokens TokenStore, log *logging.Logger) *Client {
	httpClient := resty.New().
		SetTimeout(30*time.Second).
		SetHeader("User-Agent", "RecipeAI-Companion/1.0")

	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Inf, 0),
		tokens:  tokens,
		log:     log,
	}
}

// Token returns the cached bearer token, reading it from the store on
// first use. Absence is cached as well: the store is consulted once per
// process lifetime.
func (c *Client) Token() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tokenLoaded {
		return c.token, nil
	}
	token, err := c.tokens.AuthToken()
	if err != nil {
		return "", err
	}
	c.token = token
	c.tokenLoaded = true
	return token, nil
}

// SetToken updates the in-memory cache and the store.
func (c *Client) SetToken(token string) error {
	c.mu.Lock()
	c.token = token
	c.tokenLoaded = true
	c.mu.Unlock()
	return c.tokens.SetAuthToken(token)
}

// Request issues a call against baseURL+endpoint and returns the parsed
// JSON body. Non-2xx responses yield *HTTPError; transport failures wrap
// ErrNetwork.
func (c *Client) Request(ctx context.Context, endpoint string, opts RequestOptions) (any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	token, err := c.Token()
	if err != nil {
		c.log.Warn("token lookup failed, proceeding unauthenticated", zap.Error(err))
	}

	req := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json")
	if token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	for k, v := range opts.Headers {
		req.SetHeader(k, v)
	}
	if opts.Body != nil {
		req.SetBody(opts.Body)
	}

	method := opts.Method
	if method == "" {
		method = resty.MethodGet
	}

	resp, err := req.Execute(method, c.baseURL+endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if resp.IsError() {
		return nil, &HTTPError{Status: resp.StatusCode(), StatusText: resp.Status()}
	}

	var payload any
	if len(resp.Body()) > 0 {
		if err := sonic.Unmarshal(resp.Body(), &payload); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return payload, nil
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, endpoint string) (any, error) {
	return c.Request(ctx, endpoint, RequestOptions{Method: resty.MethodGet})
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, endpoint string, body any) (any, error) {
	return c.Request(ctx, endpoint, RequestOptions{Method: resty.MethodPost, Body: body})
}

// Recommendations fetches personalized recommendations for a user.
func (c *Client) Recommendations(ctx context.Context, userID int) (any, error) {
	return c.Get(ctx, fmt.Sprintf("v1/recommendations/personalized/%d", userID))
}

// SearchSemantic runs a free-text semantic search.
func (c *Client) SearchSemantic(ctx context.Context, query string) (any, error) {
	return c.Post(ctx, "v1/nlp/search/semantic", map[string]any{"query": query})
}

// ImportExternal saves a scraped recipe for the given user.
func (c *Client) ImportExternal(ctx context.Context, rec *recipe.Record, userID int) (any, error) {
	raw, err := sonic.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize recipe: %w", err)
	}
	payload := map[string]any{}
	if err := sonic.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to build import payload: %w", err)
	}
	payload["userId"] = userID
	return c.Post(ctx, "v1/recettes/import-externe", payload)
}
