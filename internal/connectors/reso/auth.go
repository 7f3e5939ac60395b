package reso

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/mlsq/internal/connectors/transport"
	"github.com/custodia-labs/mlsq/internal/core/domain"
	"github.com/custodia-labs/mlsq/internal/core/ports/driven"
	"github.com/custodia-labs/mlsq/internal/logger"
)

// Login obtains an access token and checks it against the service root.
// Calling Login again requests a fresh token.
func (c *Client) Login(ctx context.Context) (*driven.LoginResult, error) {
	c.mu.Lock()
	c.loggedIn = false
	c.mu.Unlock()
	c.tokens.Clear()

	tok, err := c.acquireToken(ctx)
	if err != nil {
		return nil, err
	}
	c.tokens.Set(tok)

	c.mu.Lock()
	c.loggedIn = true
	c.mu.Unlock()

	if err := c.discover(ctx); err != nil {
		c.mu.Lock()
		c.loggedIn = false
		c.mu.Unlock()
		c.tokens.Clear()
		return nil, err
	}

	logger.Info("reso: logged in to %s", c.root)
	return &driven.LoginResult{
		LoginURL:     c.loginURL(),
		Capabilities: c.Capabilities(),
		ExpiresAt:    tok.Expiry,
	}, nil
}

// acquireToken returns the static token or runs the password grant.
func (c *Client) acquireToken(ctx context.Context) (*oauth2.Token, error) {
	if c.conn.Token != nil {
		return &oauth2.Token{AccessToken: c.conn.Token.AccessToken, TokenType: "Bearer"}, nil
	}

	o := c.conn.OAuth
	cfg := &oauth2.Config{
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  o.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes: o.EffectiveScopes(),
	}

	base := c.base
	if base == nil {
		base = http.DefaultTransport
	}
	tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, &http.Client{
		Transport: base,
		Timeout:   c.conn.EffectiveTimeout(),
	})

	logger.Debug("reso: requesting token from %s for client %s", o.TokenURL, o.ClientID)
	tok, err := cfg.PasswordCredentialsToken(tokenCtx, o.Username, o.Password)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			authErr := &domain.AuthError{URL: o.TokenURL, ReplyText: re.ErrorDescription}
			if re.Response != nil {
				authErr.StatusCode = re.Response.StatusCode
			}
			if authErr.ReplyText == "" {
				authErr.ReplyText = re.ErrorCode
			}
			return nil, authErr
		}
		if strings.Contains(err.Error(), "server response missing access_token") {
			return nil, &domain.AuthError{URL: o.TokenURL, ReplyText: "token response carried no access_token"}
		}
		return nil, &domain.NetworkError{Op: http.MethodPost, URL: o.TokenURL, Err: err}
	}
	return tok, nil
}

// discover requests the service document. A server that rejects JSON with
// 415 is asked once more for XML.
func (c *Client) discover(ctx context.Context) error {
	resp, err := c.http.Do(ctx, &transport.Request{URL: c.root, Header: http.Header{"Accept": {AcceptJSON}}})
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnsupportedMediaType {
		logger.Debug("reso: service root rejected JSON, retrying with XML")
		resp, err = c.http.Do(ctx, &transport.Request{URL: c.root, Header: http.Header{"Accept": {AcceptXML}}})
		if err != nil {
			return err
		}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &domain.AuthError{URL: c.root, StatusCode: resp.StatusCode, ReplyText: serviceMessage(resp)}
	case resp.StatusCode == http.StatusNotFound:
		return &domain.EndpointNotFoundError{
			BaseURL:  c.root,
			Attempts: []domain.LoginAttempt{{URL: resp.URL, StatusCode: resp.StatusCode, Outcome: "HTTP 404"}},
		}
	case !resp.IsSuccess():
		return statusError(resp)
	}
	return nil
}

// Logout discards the token. RESO has no remote logout.
func (c *Client) Logout(context.Context) error {
	c.mu.Lock()
	c.loggedIn = false
	c.mu.Unlock()
	c.tokens.Clear()
	return nil
}

// Capabilities returns the service root and metadata URLs once logged in.
func (c *Client) Capabilities() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loggedIn {
		return map[string]string{}
	}
	return map[string]string{
		domain.CapabilityServiceRoot: c.root,
		domain.CapabilityMetadata:    c.endpoint("$metadata"),
		domain.CapabilityLogin:       c.loginURL(),
	}
}

func (c *Client) loginURL() string {
	if c.conn.OAuth != nil {
		return c.conn.OAuth.TokenURL
	}
	return c.root
}
