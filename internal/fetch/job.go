// Package fetch - job.go turns a job posting URL into description text.
package fetch

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

// Platform is a job board with its own page layout
type Platform struct {
	Name    string
	Hosts   []string // host suffixes
	Content []string // content selectors, most specific first
	Noise   []string // elements removed before extraction
}

// commonNoise is removed on every platform: application forms, EEO text, share buttons.
var commonNoise = []string{
	"form",
	"#application-form",
	".application-form",
	".apply-button-container",
	"[data-testid='application-form']",
	".eeo-statement",
	".eeo-section",
	".voluntary-disclosure",
	".self-identification",
	".social-share",
	".share-buttons",
	".cookie-consent",
	".gdpr-notice",
}

// Platforms are the recognized job boards
var Platforms = []Platform{
	{
		Name:    "greenhouse",
		Hosts:   []string{"greenhouse.io"},
		Content: []string{".job__description.body", ".job__description", ".job-description__content", "#content", ".job-post-container"},
		Noise:   []string{".application--wrapper", ".voluntary-self-id", "#usa_self_id_section", ".post-apply"},
	},
	{
		Name:    "lever",
		Hosts:   []string{"lever.co"},
		Content: []string{".posting-page", ".section-wrapper.page-full-width", ".posting-description", ".content"},
		Noise:   []string{".apply-section", ".lever-application-form", ".posting-apply"},
	},
	{
		Name:    "workday",
		Hosts:   []string{"workday.com", "myworkdayjobs.com"},
		Content: []string{"[data-automation-id='jobDescription']", ".job-description"},
		Noise:   []string{"[data-automation-id='applyButton']", ".application-section"},
	},
	{
		Name:    "ashby",
		Hosts:   []string{"ashbyhq.com"},
		Content: []string{"[class*='_descriptionText']", "main"},
	},
}

// GenericPlatform is used for hosts that match no known job board
var GenericPlatform = Platform{
	Name: "generic",
	Content: []string{
		".job-description",
		"#job-description",
		".job-details",
		".posting-content",
		"[data-testid='job-description']",
		"main",
		"article",
		"#content",
	},
}

// DetectPlatform identifies the job board from a URL
func DetectPlatform(urlStr string) Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return GenericPlatform
	}
	host := strings.ToLower(parsed.Hostname())
	for _, p := range Platforms {
		for _, suffix := range p.Hosts {
			if host == suffix || strings.HasSuffix(host, "."+suffix) {
				return p
			}
		}
	}
	return GenericPlatform
}

// JobFetcher fetches job postings over HTTP and, when enabled, falls back to a
// headless browser for pages whose description is rendered client-side.
type JobFetcher struct {
	Getter         *Getter
	Browser        bool
	BrowserTimeout time.Duration
	Logger         *slog.Logger

	render renderFunc
}

// NewJobFetcher creates a fetcher with default options
func NewJobFetcher(browser bool, logger *slog.Logger) *JobFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobFetcher{
		Getter:         NewGetter(DefaultTimeout),
		Browser:        browser,
		BrowserTimeout: DefaultTimeout,
		Logger:         logger,
		render:         WithBrowser,
	}
}

// JobText returns the description text of the posting at urlStr
func (f *JobFetcher) JobText(ctx context.Context, urlStr string) (string, error) {
	page, err := f.Getter.Get(ctx, urlStr)
	if err != nil {
		return "", err
	}
	if !page.IsHTML() {
		return normalizeLines(page.Body), nil
	}

	// redirects may land on the board that actually hosts the posting
	platform := DetectPlatform(page.FinalURL)
	text, err := MainText(page.Body, platform)
	if err != nil {
		return "", &Error{URL: urlStr, Message: "failed to extract text", Cause: err}
	}

	if !f.Browser || !ShouldUseBrowser(text) {
		return text, nil
	}

	f.Logger.Info("job page looks client-rendered, using browser", "url", urlStr, "platform", platform.Name, "chars", len(text))
	html, err := f.render(ctx, urlStr, platform, f.BrowserTimeout, f.Logger)
	if err != nil {
		// keep the thin HTTP text rather than failing the whole request
		f.Logger.Warn("browser fallback failed", "url", urlStr, "error", err)
		return text, nil
	}
	rendered, err := MainText(html, platform)
	if err != nil || len(rendered) < len(text) {
		return text, nil
	}
	return rendered, nil
}
