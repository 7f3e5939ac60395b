package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/mlsq/internal/core/domain"
	"github.com/custodia-labs/mlsq/internal/logger"
	"github.com/custodia-labs/mlsq/internal/parsers"
)

const (
	// MaxRetryAfter caps how long a 429/503 Retry-After is honoured before
	// the response is handed back to the caller.
	MaxRetryAfter = 30 * time.Second

	// MaxBodySize bounds a single response body.
	MaxBodySize = 256 << 20
)

// ErrBodyTooLarge is returned when a response body exceeds the client limit.
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// Options configures a Client.
type Options struct {
	// Timeout bounds every request. Zero means domain.DefaultTimeout.
	Timeout time.Duration
	// UserAgent is sent on every request.
	UserAgent string
	// Headers are added to every request.
	Headers http.Header
	// RateLimit caps requests per second. Zero disables throttling.
	RateLimit float64
	// Cookies enables a session cookie jar.
	Cookies bool
	// Username and Password enable HTTP Basic auth with a Digest fallback.
	Username string
	Password string
	// TokenSource enables bearer auth through oauth2.Transport.
	TokenSource oauth2.TokenSource
	// Base is the underlying round tripper. Defaults to http.DefaultTransport.
	Base http.RoundTripper
	// MaxBodySize bounds response bodies. Zero means MaxBodySize.
	MaxBodySize int64
}

// Request is one HTTP exchange.
type Request struct {
	Method string
	URL    string
	// Query is merged into the URL's query string.
	Query url.Values
	// Form is sent as an application/x-www-form-urlencoded body.
	Form   url.Values
	Header http.Header
	// NoAuth suppresses Basic/Digest credentials for this request.
	NoAuth bool
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// URL is the final URL after redirects.
	URL string
}

// ContentType returns the response media type without parameters,
// lower-cased, or "" when absent or malformed.
func (r *Response) ContentType() string {
	return parsers.MediaType(r.Header.Get("Content-Type"))
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client owns one connection's HTTP state: timeout, headers, credentials,
// cookie jar and rate limiter. It is safe for concurrent use.
type Client struct {
	http      *http.Client
	limiter   *RateLimiter
	userAgent string
	headers   http.Header
	username  string
	password  string
	maxBody   int64

	mu     sync.Mutex
	digest *digestChallenge
	nc     int
}

// New creates a Client from options.
func New(opts Options) (*Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultTimeout
	}

	base := opts.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if opts.TokenSource != nil {
		base = &oauth2.Transport{Source: opts.TokenSource, Base: base}
	}

	hc := &http.Client{Transport: base, Timeout: timeout}
	if opts.Cookies {
		jar, err := newJar()
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		hc.Jar = jar
	}

	maxBody := opts.MaxBodySize
	if maxBody <= 0 {
		maxBody = MaxBodySize
	}

	headers := http.Header{}
	for k, v := range opts.Headers {
		headers[k] = append([]string(nil), v...)
	}

	return &Client{
		http:      hc,
		limiter:   NewRateLimiter(opts.RateLimit),
		userAgent: opts.UserAgent,
		headers:   headers,
		username:  opts.Username,
		password:  opts.Password,
		maxBody:   maxBody,
	}, nil
}

func newJar() (*sessionJar, error) {
	j := &sessionJar{}
	if err := j.reset(); err != nil {
		return nil, err
	}
	return j, nil
}

// sessionJar is a cookie jar that can be emptied while the client is shared.
type sessionJar struct {
	mu  sync.RWMutex
	jar *cookiejar.Jar
}

func (j *sessionJar) reset() error {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return err
	}
	j.mu.Lock()
	j.jar = jar
	j.mu.Unlock()
	return nil
}

func (j *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	j.jar.SetCookies(u, cookies)
}

func (j *sessionJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.jar.Cookies(u)
}

// HTTPClient returns the underlying http.Client.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// ResetSession discards cookies and any cached Digest challenge.
func (c *Client) ResetSession() error {
	c.mu.Lock()
	c.digest = nil
	c.nc = 0
	c.mu.Unlock()

	jar, ok := c.http.Jar.(*sessionJar)
	if !ok {
		return nil
	}
	if err := jar.reset(); err != nil {
		return fmt.Errorf("reset cookie jar: %w", err)
	}
	return nil
}

// Cookie returns the value of a named cookie the jar would send to rawURL.
func (c *Client) Cookie(rawURL, name string) string {
	if c.http.Jar == nil {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	for _, ck := range c.http.Jar.Cookies(u) {
		if strings.EqualFold(ck.Name, name) {
			return ck.Value
		}
	}
	return ""
}

// Do performs the request and reads the whole body.
// Connectivity failures and timeouts are returned as *domain.NetworkError;
// any HTTP status, including 4xx/5xx, is returned as a Response.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	target, err := buildURL(req.URL, req.Query)
	if err != nil {
		return nil, &domain.NetworkError{Op: req.method(), URL: req.URL, Err: err}
	}

	resp, err := c.send(ctx, req, target)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && c.canAuth(req) {
		if ch, ok := parseDigestChallenge(resp.Header.Get("WWW-Authenticate")); ok {
			logger.Debug("transport: digest challenge from %s", target)
			c.mu.Lock()
			c.digest = ch
			c.nc = 0
			c.mu.Unlock()
			resp, err = c.send(ctx, req, target)
			if err != nil {
				return nil, err
			}
		}
	}

	if wait, limited := c.limiter.CheckResponse(resp.StatusCode, resp.Header); limited && wait <= MaxRetryAfter {
		logger.Debug("transport: %d from %s, retrying after %s", resp.StatusCode, target, wait)
		if err := c.limiter.WaitFor(ctx, wait); err != nil {
			return nil, &domain.NetworkError{Op: req.method(), URL: target, Err: err}
		}
		return c.send(ctx, req, target)
	}

	return resp, nil
}

func (c *Client) canAuth(req *Request) bool {
	return !req.NoAuth && c.username != ""
}

func (c *Client) send(ctx context.Context, req *Request, target string) (*Response, error) {
	method := req.method()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &domain.NetworkError{Op: method, URL: target, Err: err}
	}

	var body io.Reader
	if req.Form != nil {
		body = strings.NewReader(req.Form.Encode())
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, &domain.NetworkError{Op: method, URL: target, Err: err}
	}

	for k, v := range c.headers {
		httpReq.Header[k] = append([]string(nil), v...)
	}
	for k, v := range req.Header {
		httpReq.Header[k] = append([]string(nil), v...)
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if req.Form != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.canAuth(req) {
		c.authorize(httpReq)
	}

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Debug("transport: %s %s failed: %v", method, target, err)
		return nil, &domain.NetworkError{Op: method, URL: target, Err: err}
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, c.maxBody+1))
	if err != nil {
		return nil, &domain.NetworkError{Op: method, URL: target, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(data)) > c.maxBody {
		return nil, fmt.Errorf("%s %s: %w (%d bytes)", method, target, ErrBodyTooLarge, c.maxBody)
	}

	logger.Debug("transport: %s %s -> %d (%d bytes, %s)",
		method, target, httpResp.StatusCode, len(data), time.Since(start).Round(time.Millisecond))

	final := target
	if httpResp.Request != nil && httpResp.Request.URL != nil {
		final = httpResp.Request.URL.String()
	}
	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
		URL:        final,
	}, nil
}

// authorize sets Digest credentials when a challenge is cached, else Basic.
func (c *Client) authorize(r *http.Request) {
	c.mu.Lock()
	ch := c.digest
	if ch != nil {
		c.nc++
	}
	nc := c.nc
	c.mu.Unlock()

	if ch == nil {
		r.SetBasicAuth(c.username, c.password)
		return
	}
	r.Header.Set("Authorization", ch.authorization(c.username, c.password, r.Method, r.URL.RequestURI(), nc))
}

func (r *Request) method() string {
	if r.Method != "" {
		return r.Method
	}
	if r.Form != nil {
		return http.MethodPost
	}
	return http.MethodGet
}

// buildURL merges extra query parameters into rawURL.
func buildURL(rawURL string, query url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q is not absolute", rawURL)
	}
	if len(query) == 0 {
		return u.String(), nil
	}
	q := u.Query()
	for k, v := range query {
		for _, s := range v {
			q.Add(k, s)
		}
	}
	u.RawQuery = encodeQuery(q)
	return u.String(), nil
}

// encodeQuery encodes values like url.Values.Encode but keeps OData's
// "$" and RETS's "," and ":" readable, which some servers require.
func encodeQuery(q url.Values) string {
	enc := q.Encode()
	r := strings.NewReplacer("%24", "$", "%2C", ",", "%3A", ":")
	return r.Replace(enc)
}

// EncodedLength returns the length of the query string values would produce.
func EncodedLength(values url.Values) int {
	return len(encodeQuery(values))
}

// Text returns the body as trimmed text.
func (r *Response) Text() string {
	return string(bytes.TrimSpace(r.Body))
}
