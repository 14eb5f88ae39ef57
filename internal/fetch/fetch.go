// Package fetch retrieves job postings and reduces them to the plain text that
// is handed to the model as the tailoring target.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	// DefaultTimeout bounds one page request
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent identifies the fetcher to job boards
	DefaultUserAgent = "Mozilla/5.0 (compatible; ResumeReview/1.0)"
	// DefaultMaxBytes is the largest page body that is read
	DefaultMaxBytes = 5 << 20
)

// Page is a fetched job page
type Page struct {
	URL         string
	FinalURL    string // after redirects
	Body        string
	ContentType string
	Status      int
}

// IsHTML reports whether the body should be parsed as HTML
func (p *Page) IsHTML() bool {
	return p.ContentType == "" || p.ContentType == "text/html" || p.ContentType == "application/xhtml+xml"
}

// ErrUnsupportedURL is wrapped by an Error for URLs that are never requested
var ErrUnsupportedURL = errors.New("not an http(s) URL")

// Error describes a failed fetch. Status is set when the server answered.
type Error struct {
	URL     string
	Status  int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Getter downloads job pages. The zero value is not usable; use NewGetter.
type Getter struct {
	client    *http.Client
	UserAgent string
	MaxBytes  int64
}

// NewGetter returns a Getter whose requests time out after timeout
func NewGetter(timeout time.Duration) *Getter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Getter{
		client:    &http.Client{Timeout: timeout},
		UserAgent: DefaultUserAgent,
		MaxBytes:  DefaultMaxBytes,
	}
}

// Get fetches an http or https URL. Only HTML and plain text bodies are accepted.
// On a non-200 answer the page is returned together with the error.
func (g *Getter) Get(ctx context.Context, rawURL string) (*Page, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "invalid URL", Cause: fmt.Errorf("%w: %v", ErrUnsupportedURL, err)}
	}
	if parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, &Error{URL: rawURL, Message: "invalid URL", Cause: ErrUnsupportedURL}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", g.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, g.MaxBytes))
	if err != nil {
		return nil, &Error{URL: rawURL, Status: resp.StatusCode, Message: "failed to read body", Cause: err}
	}

	contentType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	page := &Page{
		URL:         rawURL,
		FinalURL:    resp.Request.URL.String(),
		Body:        string(body),
		ContentType: contentType,
		Status:      resp.StatusCode,
	}
	if resp.StatusCode != http.StatusOK {
		return page, &Error{URL: rawURL, Status: resp.StatusCode, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}
	if !page.IsHTML() && contentType != "text/plain" {
		return page, &Error{URL: rawURL, Status: resp.StatusCode, Message: "unsupported content type " + contentType}
	}
	return page, nil
}

// pageNoise is removed from every page before the description is located
const pageNoise = "nav, footer, header, script, style, noscript, svg, iframe, .ad, .ads, .sidebar, .cookie-banner, .popup"

// blockElements end a line in the extracted text
const blockElements = "p, div, section, h1, h2, h3, h4, h5, h6, li, tr, br, ul, ol"

// lineBreak marks block ends; source newlines inside a block are soft wraps
const lineBreak = "\u2029"

// MainText returns the job description text of an HTML page laid out for
// platform. Block elements become lines and list items keep a "- " marker so
// requirement lists survive as lists. Falls back to the body when no content
// selector matches.
func MainText(html string, platform Platform) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find(pageNoise).Remove()
	if noise := strings.Join(append(append([]string{}, commonNoise...), platform.Noise...), ", "); noise != "" {
		doc.Find(noise).Remove()
	}

	content := doc.Find("body")
	for _, selector := range platform.Content {
		if sel := doc.Find(selector); sel.Length() > 0 {
			content = sel.First()
			break
		}
	}

	content.Find("li").PrependHtml("- ")
	content.Find(blockElements).AppendHtml(lineBreak)
	text := strings.ReplaceAll(content.Text(), "\n", " ")
	return normalizeLines(strings.ReplaceAll(text, lineBreak, "\n")), nil
}

// normalizeLines collapses runs of whitespace inside lines and drops empty lines
func normalizeLines(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" && line != "-" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
