package portal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"
	"golang.org/x/net/publicsuffix"

	"github.com/sabis-tools/sabis/internal/errors"
	"github.com/sabis-tools/sabis/internal/extract"
	"github.com/sabis-tools/sabis/internal/metrics"
)

// Portal entry points.
const (
	DefaultHomeURL = "https://obs.sabis.sakarya.edu.tr/"
	DefaultExamURL = "https://esinav.sabis.sakarya.edu.tr/Session/Exam"
)

const (
	defaultTimeout      = 20 * time.Second
	defaultRetryBackoff = 500 * time.Millisecond
	defaultUserAgent    = "sabis/1.0 (+https://github.com/sabis-tools/sabis)"

	// maxBodyBytes caps a single portal response.
	maxBodyBytes = 8 << 20
)

// Options configures a Client. Zero values fall back to the portal defaults.
type Options struct {
	HomeURL   string
	ExamURL   string
	UserAgent string
	Timeout   time.Duration

	// RetryAttempts is the number of tries for transport errors and 5xx
	// responses; values below 1 mean a single try.
	RetryAttempts int
	RetryBackoff  time.Duration

	// Cookies is a raw Cookie header copied from a logged-in browser session.
	Cookies string

	Parser   extract.Parser
	Extract  extract.Options
	Averages AverageCache
}

// Client fetches portal pages with a persistent cookie session.
type Client struct {
	http *http.Client
	opts Options
}

// Page is a fetched document and the URL it ended up at after redirects.
type Page struct {
	URL  string
	Body string
}

// New builds a Client and seeds its cookie jar from opts.Cookies.
func New(opts Options) (*Client, error) {
	if opts.HomeURL == "" {
		opts.HomeURL = DefaultHomeURL
	}
	if opts.ExamURL == "" {
		opts.ExamURL = DefaultExamURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 1
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaultRetryBackoff
	}
	if opts.Parser == nil {
		opts.Parser = extract.HTMLParser
	}
	if opts.Averages == nil {
		opts.Averages = NewMemoryCache()
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	if opts.Cookies != "" {
		if err := seedCookies(jar, opts.Cookies, opts.HomeURL, opts.ExamURL); err != nil {
			return nil, err
		}
	}

	return &Client{
		http: &http.Client{Jar: jar, Timeout: opts.Timeout},
		opts: opts,
	}, nil
}

// seedCookies stores every name=value pair of a Cookie header for each target host.
func seedCookies(jar http.CookieJar, header string, targets ...string) error {
	var cookies []*http.Cookie
	for _, part := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || name == "" {
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: name, Value: value})
	}
	for _, target := range targets {
		u, err := url.Parse(target)
		if err != nil {
			return errors.NewInvalidRequest(fmt.Sprintf("invalid portal URL %q: %v", target, err))
		}
		jar.SetCookies(u, cookies)
	}
	return nil
}

// Get fetches target and follows redirects.
func (c *Client) Get(ctx context.Context, endpoint, target string) (*Page, error) {
	return c.do(ctx, endpoint, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	})
}

// PostForm posts form to target the way the portal's own scripts do.
func (c *Client) PostForm(ctx context.Context, endpoint, target string, form url.Values, ajax bool) (*Page, error) {
	body := form.Encode()
	return c.do(ctx, endpoint, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
		if ajax {
			req.Header.Set("X-Requested-With", "XMLHttpRequest")
		}
		return req, nil
	})
}

// do runs one request with bounded retries. Transport errors and 5xx
// responses are retried with exponential backoff; 4xx fail immediately.
func (c *Client) do(ctx context.Context, endpoint string, build func() (*http.Request, error)) (*Page, error) {
	var lastErr error
	backoff := c.opts.RetryBackoff

	for attempt := 1; attempt <= c.opts.RetryAttempts; attempt++ {
		req, err := build()
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid portal request: %v", err))
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)

		page, status, err := c.roundTrip(endpoint, req)
		if err == nil {
			return page, nil
		}
		lastErr = err
		if status > 0 && status < 500 {
			return nil, err
		}
		if attempt == c.opts.RetryAttempts {
			break
		}

		logger.Debug.Printf("portal %s attempt %d/%d failed: %v", endpoint, attempt, c.opts.RetryAttempts, err)
		select {
		case <-ctx.Done():
			return nil, errors.NewUpstream(req.URL.String(), 0, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, lastErr
}

func (c *Client) roundTrip(endpoint string, req *http.Request) (*Page, int, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.PortalRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PortalRequests.WithLabelValues(endpoint, "error").Inc()
		return nil, 0, errors.NewUpstream(req.URL.String(), 0, err)
	}
	defer resp.Body.Close()
	metrics.PortalRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, errors.NewUpstream(req.URL.String(), resp.StatusCode, nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, 0, errors.NewUpstream(req.URL.String(), resp.StatusCode, err)
	}
	return &Page{URL: resp.Request.URL.String(), Body: string(body)}, resp.StatusCode, nil
}
