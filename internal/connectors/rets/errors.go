package rets

import (
	"errors"
	"fmt"

	"github.com/custodia-labs/mlsq/internal/core/domain"
)

// RETS-specific errors.
var (
	// ErrNoSession indicates an operation before a successful login.
	ErrNoSession = errors.New("rets: no session")

	// ErrCapabilityMissing indicates the server did not advertise a capability URL.
	ErrCapabilityMissing = errors.New("rets: capability not advertised")
)

// Reply codes with special meaning.
const (
	ReplyNoRecords       = 20201
	ReplyNotLoggedIn     = 20701
	ReplyMiscLoginError  = 20037
	ReplyNoMetadataFound = 20503
)

// isExpiredReply reports whether a reply code means the session is gone.
func isExpiredReply(code int) bool {
	return code == ReplyNotLoggedIn || code == ReplyMiscLoginError
}

// StatusError reports an unexpected HTTP status on a non-login request.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("rets: unexpected HTTP %d from %s", e.StatusCode, e.URL)
}

// expiredFromParse converts a parse error carrying a not-logged-in reply
// code into an expired AuthError. Other errors pass through unchanged.
func expiredFromParse(err error, target string) error {
	var pe *domain.ParseError
	if errors.As(err, &pe) && isExpiredReply(pe.ReplyCode) {
		return &domain.AuthError{
			URL:       target,
			ReplyCode: pe.ReplyCode,
			ReplyText: pe.ReplyText,
			Expired:   true,
		}
	}
	return err
}
