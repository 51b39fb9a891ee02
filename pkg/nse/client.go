package nse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

// userAgents is rotated on every session bootstrap.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0",
}

// Client talks to the NSE website API. NSE rejects API calls that do not
// carry the cookies set by its HTML pages, so every session starts with a
// priming request against the entry page.
type Client struct {
	baseURL    *url.URL
	entryPath  string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logrus.Logger

	userAgent string
	nextAgent int
	session   bool
}

func NewClient(opts Options, logger *logrus.Logger) (*Client, error) {
	opts = opts.withDefaults()

	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", opts.BaseURL, err)
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &Client{
		baseURL:    base,
		entryPath:  opts.EntryPath,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
	}, nil
}

// HasSession reports whether a bootstrapped session is available.
func (c *Client) HasSession() bool {
	return c.session
}

// Invalidate drops the session so the next call bootstraps again.
func (c *Client) Invalidate() {
	c.session = false
	c.httpClient.Jar = nil
}

// Bootstrap starts a fresh session: new cookie jar, next client identity,
// and a priming GET of the entry page.
func (c *Client) Bootstrap(ctx context.Context) error {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return fmt.Errorf("%w: cookie jar: %w", ErrTransient, err)
	}
	c.httpClient.Jar = jar
	c.userAgent = userAgents[c.nextAgent%len(userAgents)]
	c.nextAgent++

	resp, err := c.do(ctx, c.entryPath, "text/html,application/xhtml+xml")
	if err != nil {
		return fmt.Errorf("bootstrap session: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: bootstrap session: status %d", ErrTransient, resp.StatusCode)
	}

	c.session = true
	c.logger.WithField("user_agent", c.userAgent).Debug("NSE session bootstrapped")
	return nil
}

func (c *Client) do(ctx context.Context, path, accept string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", path, err)
	}
	target := c.baseURL.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", c.baseURL.ResolveReference(&url.URL{Path: c.entryPath}).String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return resp, nil
}

// getJSON fetches path and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	resp, err := c.do(ctx, path, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: status %d", ErrAuthExpired, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s returned status %d", ErrTransient, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrTransient, path, err)
	}
	return nil
}

// SpotPrice returns the last traded value of the named index.
func (c *Client) SpotPrice(ctx context.Context, indexName string) (float64, error) {
	var payload indicesResponse
	if err := c.getJSON(ctx, "/api/allIndices", &payload); err != nil {
		return 0, err
	}
	for _, idx := range payload.Data {
		if idx.Index == indexName {
			if idx.Last <= 0 {
				return 0, fmt.Errorf("%w: non-positive %s value %v", ErrTransient, indexName, idx.Last)
			}
			return idx.Last, nil
		}
	}
	return 0, fmt.Errorf("%w: index %q missing from response", ErrTransient, indexName)
}

// OptionChain returns the full option chain for an index symbol.
func (c *Client) OptionChain(ctx context.Context, symbol string) (*ChainResponse, error) {
	path := "/api/option-chain-indices?" + url.Values{"symbol": {symbol}}.Encode()
	var chain ChainResponse
	if err := c.getJSON(ctx, path, &chain); err != nil {
		return nil, err
	}
	return &chain, nil
}
