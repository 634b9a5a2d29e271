// Package fetch downloads web pages and reduces them to their visible text.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/net/html"
)

var (
	// ErrStatus indicates a non-2xx response.
	ErrStatus = errors.New("unexpected status")
	// ErrNoText indicates a page without visible text.
	ErrNoText = errors.New("page has no text")
)

const maxBodyBytes = 16 << 20

// Config holds configuration for a Fetcher.
type Config struct {
	Timeout   time.Duration
	UserAgent string
	CacheSize int // pages kept in memory; 0 disables caching
	Client    *http.Client
}

// Option is a functional option for configuring a Fetcher.
type Option func(*Config)

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Config) { c.UserAgent = ua }
}

// WithCacheSize sets how many extracted pages are kept, keyed by URL.
func WithCacheSize(n int) Option {
	return func(c *Config) { c.CacheSize = n }
}

// WithClient replaces the HTTP client.
func WithClient(client *http.Client) Option {
	return func(c *Config) { c.Client = client }
}

// Fetcher retrieves page text. It is safe for concurrent use.
type Fetcher struct {
	cfg   Config
	cache *lru.Cache[string, string]
}

// New returns a Fetcher.
func New(opts ...Option) (*Fetcher, error) {
	cfg := Config{
		Timeout:   10 * time.Second,
		UserAgent: "Mozilla/5.0 (compatible; shannon/1.0)",
		Client:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	f := &Fetcher{cfg: cfg}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, string](cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		f.cache = cache
	}
	return f, nil
}

// NormalizeURL prefixes https:// to raw when it names no http(s) scheme.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "https://" + raw
}

// Text returns the visible text of the page at url.
func (f *Fetcher) Text(ctx context.Context, url string) (string, error) {
	url = NormalizeURL(url)
	if f.cache != nil {
		if text, ok := f.cache.Get(url); ok {
			return text, nil
		}
	}

	text, err := f.fetch(ctx, url)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	if f.cache != nil {
		f.cache.Add(url, text)
	}
	return text, nil
}

// Cached reports whether the text of url is in the cache.
func (f *Fetcher) Cached(url string) bool {
	return f.cache != nil && f.cache.Contains(NormalizeURL(url))
}

func (f *Fetcher) fetch(ctx context.Context, url string) (string, error) {
	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	resp, err := f.cfg.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %s", ErrStatus, resp.Status)
	}

	text, err := Extract(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// Extract parses an HTML document and returns its visible text. Script and
// style contents are dropped. Each line is trimmed and split at runs of two
// spaces; the non-empty pieces are joined with newlines.
func Extract(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	var raw strings.Builder
	collectText(doc, &raw)
	return normalize(raw.String()), nil
}

func collectText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		if n.Data == "script" || n.Data == "style" {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

func normalize(text string) string {
	var chunks []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		for _, phrase := range strings.Split(line, "  ") {
			if phrase = strings.TrimSpace(phrase); phrase != "" {
				chunks = append(chunks, phrase)
			}
		}
	}
	return strings.Join(chunks, "\n")
}
