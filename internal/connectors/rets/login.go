package rets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/mlsq/internal/connectors/transport"
	"github.com/custodia-labs/mlsq/internal/core/domain"
	"github.com/custodia-labs/mlsq/internal/core/ports/driven"
	"github.com/custodia-labs/mlsq/internal/logger"
)

// LoginPaths are the login path variants tried in order.
var LoginPaths = []string{
	"/login",
	"/Login",
	"/RETS/Login",
	"/rets/login",
	"/Login.ashx",
	"/login.ashx",
	"/rets/login.ashx",
}

// LoginCandidates returns the login URLs to try for a base URL, in order.
// A base URL that already names a login resource is tried first, as-is,
// and the variants are then tried under its parent path.
func LoginCandidates(baseURL string) []string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")

	var out []string
	seen := map[string]bool{}
	add := func(u string) {
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}

	prefix := base
	if namesLoginResource(base) {
		add(base)
		if i := strings.LastIndex(base, "/"); i > strings.Index(base, "://")+2 {
			prefix = base[:i]
		}
	}
	for _, p := range LoginPaths {
		add(prefix + p)
	}
	return out
}

func namesLoginResource(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	p := strings.ToLower(strings.TrimRight(u.Path, "/"))
	return strings.HasSuffix(p, "/login") || strings.HasSuffix(p, "login.ashx")
}

// Login tries each login path variant until one returns capability URLs.
// Calling Login again discards the previous session cookies first.
func (c *Client) Login(ctx context.Context) (*driven.LoginResult, error) {
	if err := c.http.ResetSession(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	previous := c.loginURL
	c.mu.RUnlock()

	candidates := LoginCandidates(c.conn.BaseURL)
	if previous != "" {
		candidates = append([]string{previous}, without(candidates, previous)...)
	}

	var (
		attempts    []domain.LoginAttempt
		saw401      bool
		networkErrs int
		lastNetErr  error
	)

	for _, candidate := range candidates {
		logger.Debug("rets: trying login %s", candidate)
		resp, err := c.http.Do(ctx, &transport.Request{URL: candidate, Header: c.requestHeaders(candidate)})
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			if domain.IsNetwork(err) {
				networkErrs++
				lastNetErr = err
				attempts = append(attempts, domain.LoginAttempt{URL: candidate, Outcome: "network error"})
				continue
			}
			return nil, err
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			saw401 = true
			attempts = append(attempts, domain.LoginAttempt{URL: candidate, StatusCode: resp.StatusCode, Outcome: "unauthorized"})
			continue
		case !resp.IsSuccess():
			attempts = append(attempts, domain.LoginAttempt{
				URL: candidate, StatusCode: resp.StatusCode, Outcome: fmt.Sprintf("HTTP %d", resp.StatusCode),
			})
			continue
		}

		reply := parseLoginBody(resp.Body)
		if reply.ReplyCode != 0 {
			return nil, &domain.AuthError{
				URL:        candidate,
				StatusCode: resp.StatusCode,
				ReplyCode:  reply.ReplyCode,
				ReplyText:  reply.ReplyText,
			}
		}

		caps := reply.capabilities(resp.URL)
		if len(caps) == 0 {
			attempts = append(attempts, domain.LoginAttempt{
				URL: candidate, StatusCode: resp.StatusCode, Outcome: "no capability URLs",
			})
			continue
		}

		return c.establish(candidate, caps, reply), nil
	}

	switch {
	case saw401:
		return nil, &domain.AuthError{
			URL:        c.conn.BaseURL,
			StatusCode: http.StatusUnauthorized,
			ReplyText:  "credentials rejected by every login endpoint",
		}
	case networkErrs == len(attempts) && lastNetErr != nil:
		return nil, lastNetErr
	default:
		return nil, &domain.EndpointNotFoundError{BaseURL: c.conn.BaseURL, Attempts: attempts}
	}
}

// establish records the session state of a successful login.
func (c *Client) establish(loginURL string, caps map[string]string, reply loginReply) *driven.LoginResult {
	if _, ok := caps[domain.CapabilityLogin]; !ok {
		caps[domain.CapabilityLogin] = loginURL
	}
	if _, ok := caps[domain.CapabilitySearch]; !ok {
		caps[domain.CapabilitySearch] = siblingURL(loginURL, "Search")
		logger.Debug("rets: no Search URL advertised, using %s", caps[domain.CapabilitySearch])
	}
	if _, ok := caps[domain.CapabilityGetMetadata]; !ok {
		caps[domain.CapabilityGetMetadata] = siblingURL(loginURL, "GetMetadata")
		logger.Debug("rets: no GetMetadata URL advertised, using %s", caps[domain.CapabilityGetMetadata])
	}

	sessionID := c.http.Cookie(loginURL, SessionCookie)

	c.mu.Lock()
	c.loginURL = loginURL
	c.caps = caps
	c.sessionID = sessionID
	c.mu.Unlock()

	result := &driven.LoginResult{LoginURL: loginURL, Capabilities: c.Capabilities()}
	if secs := reply.sessionTimeout(); secs > 0 {
		result.ExpiresAt = time.Now().Add(time.Duration(secs) * time.Second)
	}
	logger.Info("rets: logged in at %s (%d capabilities)", loginURL, len(caps))
	return result
}

// Logout ends the remote session and forgets local state.
func (c *Client) Logout(ctx context.Context) error {
	target, capErr := c.capability(domain.CapabilityLogout)

	defer func() {
		c.mu.Lock()
		c.caps = map[string]string{}
		c.sessionID = ""
		c.mu.Unlock()
		_ = c.http.ResetSession()
	}()

	if capErr != nil {
		if errors.Is(capErr, ErrCapabilityMissing) {
			return nil
		}
		return capErr
	}

	resp, err := c.http.Do(ctx, &transport.Request{URL: target, Header: c.requestHeaders(target)})
	if err != nil {
		return fmt.Errorf("rets logout: %w", err)
	}
	if !resp.IsSuccess() {
		return &StatusError{URL: target, StatusCode: resp.StatusCode}
	}
	return nil
}

func without(list []string, s string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
