// Package scrape fetches a URL and extracts the readable text of the
// document body, truncated to a fixed word limit so tool output stays
// small.
package scrape

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// ErrParse is returned when fetched content cannot be parsed or yields no
// readable text.
var ErrParse = errors.New("failed to parse fetched content")

// DefaultWordLimit caps extracted text at the first 200 words.
const DefaultWordLimit = 200

// maxResponseSize limits the HTTP response body to 10 MB.
const maxResponseSize = 10 * 1024 * 1024

// Scraper fetches pages over HTTP and extracts readable text.
type Scraper struct {
	client    *http.Client
	wordLimit int
	userAgent string
}

// Config holds scraper configuration.
type Config struct {
	Timeout   time.Duration
	WordLimit int
}

// New creates a scraper. A zero config gets a 30s timeout and the default
// word limit.
func New(cfg Config) *Scraper {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.WordLimit <= 0 {
		cfg.WordLimit = DefaultWordLimit
	}
	return &Scraper{
		client:    &http.Client{Timeout: cfg.Timeout},
		wordLimit: cfg.WordLimit,
		userAgent: "swarmtool/0.1 (scrape_url)",
	}
}

// Scrape fetches the URL and returns the readable text of the body,
// truncated to the scraper's word limit. Network failures come back wrapped;
// unparseable or empty documents return ErrParse.
func (s *Scraper) Scrape(rawURL string) (string, error) {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return "", fmt.Errorf("invalid URL %q: must start with http:// or https://", rawURL)
	}

	body, err := s.fetch(rawURL)
	if err != nil {
		return "", err
	}

	text, err := extract(body, rawURL)
	if err != nil {
		return "", err
	}
	return truncateWords(text, s.wordLimit), nil
}

func (s *Scraper) fetch(rawURL string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch failed: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

// extract strips script/style/noscript tags, then tries readability article
// extraction with a plain-text fallback.
func extract(rawHTML []byte, sourceURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrParse, err)
	}

	doc.Find("script, style, noscript").Each(func(_ int, sel *goquery.Selection) {
		sel.Remove()
	})

	cleaned, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrParse, err)
	}

	if parsedURL, err := url.Parse(sourceURL); err == nil {
		article, err := readability.FromReader(strings.NewReader(cleaned), parsedURL)
		if err == nil && strings.TrimSpace(article.TextContent) != "" {
			return strings.TrimSpace(article.TextContent), nil
		}
	}

	text := strings.TrimSpace(doc.Find("body").Text())
	if text == "" {
		return "", fmt.Errorf("%w: no readable content", ErrParse)
	}
	return text, nil
}

func truncateWords(text string, limit int) string {
	words := strings.Fields(text)
	if len(words) > limit {
		words = words[:limit]
	}
	return strings.Join(words, " ")
}
