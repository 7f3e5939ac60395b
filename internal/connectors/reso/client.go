package reso

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/custodia-labs/mlsq/internal/connectors/transport"
	"github.com/custodia-labs/mlsq/internal/core/domain"
	"github.com/custodia-labs/mlsq/internal/core/ports/driven"
	"github.com/custodia-labs/mlsq/internal/parsers/odata"
)

// Ensure Client implements the interface.
var _ driven.ProtocolClient = (*Client)(nil)

const (
	// ODataVersion is sent in the OData-Version header.
	ODataVersion = "4.0"

	// AcceptJSON is the preferred representation.
	AcceptJSON = "application/json"

	// AcceptXML is requested when the server rejects JSON with 415.
	AcceptXML = "application/atom+xml, application/xml;q=0.9, text/xml;q=0.8"

	// DefaultSampleSize bounds the rows read when sampling lookup values.
	DefaultSampleSize = 1000
)

// Options tunes a Client.
type Options struct {
	// SampleSize bounds lookup sampling. Zero means DefaultSampleSize.
	SampleSize int
	// Base is the underlying round tripper for API and token requests.
	Base http.RoundTripper
}

// Client speaks the RESO Web API to one service root for one connection.
type Client struct {
	conn       domain.Connection
	root       string
	http       *transport.Client
	tokens     *transport.SwappableTokenSource
	parsers    driven.ParserRegistry
	sampleSize int
	base       http.RoundTripper

	mu       sync.RWMutex
	loggedIn bool
}

// New creates a RESO client. The connection must carry OAuth2 client
// credentials or a bearer token.
func New(conn domain.Connection, parsers driven.ParserRegistry, opts Options) (*Client, error) {
	if conn.OAuth == nil && conn.Token == nil {
		return nil, fmt.Errorf("%w: RESO requires an OAuth2 client or a bearer token", domain.ErrInvalidConnection)
	}
	root := strings.TrimRight(strings.TrimSpace(conn.BaseURL), "/")
	if _, err := url.Parse(root); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConnection, err)
	}

	tokens := transport.NewSwappableTokenSource()
	hc, err := transport.New(transport.Options{
		Timeout:     conn.EffectiveTimeout(),
		UserAgent:   conn.EffectiveUserAgent(),
		Headers:     http.Header{"OData-Version": {ODataVersion}},
		RateLimit:   conn.RateLimit,
		TokenSource: tokens,
		Base:        opts.Base,
	})
	if err != nil {
		return nil, err
	}

	sample := opts.SampleSize
	if sample <= 0 {
		sample = DefaultSampleSize
	}

	return &Client{
		conn:       conn,
		root:       root,
		http:       hc,
		tokens:     tokens,
		parsers:    parsers,
		sampleSize: sample,
		base:       opts.Base,
	}, nil
}

// Kind returns the protocol family.
func (c *Client) Kind() domain.ProtocolKind {
	return domain.ProtocolRESO
}

// ServiceRoot returns the service root URL without a trailing slash.
func (c *Client) ServiceRoot() string {
	return c.root
}

// endpoint joins a path below the service root.
func (c *Client) endpoint(p string) string {
	if p == "" {
		return c.root
	}
	return c.root + "/" + strings.TrimLeft(p, "/")
}

// get performs an authenticated GET. A 401 means the token expired.
func (c *Client) get(ctx context.Context, target, accept string, query url.Values) (*transport.Response, error) {
	c.mu.RLock()
	ok := c.loggedIn
	c.mu.RUnlock()
	if !ok || !c.tokens.Has() {
		return nil, fmt.Errorf("%w: not logged in", ErrNoSession)
	}

	resp, err := c.http.Do(ctx, &transport.Request{
		URL:    target,
		Query:  query,
		Header: http.Header{"Accept": {accept}},
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &domain.AuthError{URL: target, StatusCode: resp.StatusCode, Expired: true, ReplyText: serviceMessage(resp)}
	}
	return resp, nil
}

// statusError builds a StatusError, carrying the OData error message when
// the body holds one.
func statusError(resp *transport.Response) *StatusError {
	return &StatusError{URL: resp.URL, StatusCode: resp.StatusCode, Message: serviceMessage(resp)}
}

func serviceMessage(resp *transport.Response) string {
	if len(resp.Body) == 0 {
		return ""
	}
	var se *odata.ServiceError
	if _, err := odata.Decode(resp.Body); errors.As(err, &se) {
		return se.Message
	}
	return ""
}
