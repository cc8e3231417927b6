package extraction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"trendscout/config"
	"trendscout/types"
)

// ErrNonText marks a response whose content type carries no readable text
var ErrNonText = errors.New("non-text content")

// FetchResult is the readable content of one page
type FetchResult struct {
	Title string
	Text  string
	Media []types.MediaRef
}

// Fetcher retrieves and extracts the content behind a URL
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResult, error)
}

// FetchError is an HTTP-level failure. Transient ones are worth one retry.
type FetchError struct {
	Status    int
	Transient bool
	Err       error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("http %d: %v", e.Status, e.Err)
	}
	return e.Err.Error()
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a network failure, timeout, 429 or 5xx
func IsTransient(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Transient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// HTTPFetcher downloads pages and runs readability over them
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

// NewHTTPFetcher creates a fetcher. An empty userAgent uses the browser default.
func NewHTTPFetcher(client *http.Client, userAgent string) *HTTPFetcher {
	if client == nil {
		client = &http.Client{}
	}
	if userAgent == "" {
		userAgent = config.BrowserUserAgent
	}
	return &HTTPFetcher{client: client, userAgent: userAgent, maxBytes: config.MaxDocumentBytes}
}

// Fetch implements Fetcher
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (FetchResult, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil || pageURL.Host == "" {
		return FetchResult{}, &FetchError{Err: fmt.Errorf("invalid url %q", rawURL)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return FetchResult{}, &FetchError{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return FetchResult{}, &FetchError{Transient: true, Err: fmt.Errorf("request page: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		transient := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return FetchResult{}, &FetchError{Status: resp.StatusCode, Transient: transient, Err: errors.New(http.StatusText(resp.StatusCode))}
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch mediaType {
	case "text/html", "application/xhtml+xml", "text/plain", "":
	default:
		return FetchResult{}, fmt.Errorf("%w: %s", ErrNonText, mediaType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return FetchResult{}, &FetchError{Transient: true, Err: fmt.Errorf("read body: %w", err)}
	}

	if mediaType == "text/plain" {
		return FetchResult{Text: strings.TrimSpace(string(body))}, nil
	}
	return extractHTML(body, pageURL)
}

// extractHTML takes the readability main text, falling back to paragraphs and headings
func extractHTML(body []byte, pageURL *url.URL) (FetchResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return FetchResult{}, fmt.Errorf("parse page: %w", err)
	}

	var res FetchResult
	if article, err := readability.FromReader(bytes.NewReader(body), pageURL); err == nil {
		res.Title = strings.TrimSpace(article.Title)
		res.Text = strings.TrimSpace(article.TextContent)
	}
	if res.Text == "" {
		res.Text = fallbackText(doc)
	}
	if res.Title == "" {
		res.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	res.Media = extractMedia(doc, pageURL)
	return res, nil
}

func fallbackText(doc *goquery.Document) string {
	var parts []string
	doc.Find("h1, h2, h3, h4, h5, h6, p").Each(func(i int, s *goquery.Selection) {
		if t := strings.Join(strings.Fields(s.Text()), " "); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, "\n")
}

// extractMedia collects up to MaxMediaPerDocument absolute image URLs, skipping icons and logos
func extractMedia(doc *goquery.Document, base *url.URL) []types.MediaRef {
	media := []types.MediaRef{}
	seen := make(map[string]bool)
	doc.Find("img").EachWithBreak(func(i int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		if src == "" {
			src, _ = s.Attr("data-src")
		}
		alt := strings.TrimSpace(s.AttrOr("alt", ""))
		if src == "" || strings.HasPrefix(src, "data:") || isDecoration(src, alt) {
			return true
		}
		abs, err := base.Parse(strings.TrimSpace(src))
		if err != nil || (abs.Scheme != "http" && abs.Scheme != "https") {
			return true
		}
		if seen[abs.String()] {
			return true
		}
		seen[abs.String()] = true
		media = append(media, types.MediaRef{URL: abs.String(), Alt: alt})
		return len(media) < config.MaxMediaPerDocument
	})
	return media
}

func isDecoration(src, alt string) bool {
	for _, s := range []string{strings.ToLower(alt), strings.ToLower(src)} {
		if strings.Contains(s, "icon") || strings.Contains(s, "logo") {
			return true
		}
	}
	return false
}
