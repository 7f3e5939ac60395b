package cli

import (
	"errors"
	"fmt"

	"github.com/custodia-labs/mlsq/internal/core/domain"
)

// hints map error kinds to the action most likely to fix them.
var hints = []struct {
	kind error
	hint string
}{
	{domain.ErrEndpointNotFound, "no RETS login endpoint answered; check the profile URL and RETS version"},
	{domain.ErrAuthExpired, "the server dropped the session twice in a row; try again later"},
	{domain.ErrAuth, "login was rejected; check the username, password and user agent credentials"},
	{domain.ErrNetwork, "the server could not be reached; check the URL and your network"},
	{domain.ErrValidation, "the query names something the server does not publish; run 'mlsq resources <profile>'"},
	{domain.ErrInvalidConnection, "the profile is incomplete; remove it and add it again"},
	{domain.ErrMetadata, "metadata could not be fetched; run with --verbose for details"},
	{domain.ErrParse, "the server reply could not be understood; run with --verbose for details"},
	{domain.ErrUnsupportedProtocol, "supported protocols are rets and reso"},
	{domain.ErrAlreadyExists, "choose another name or remove the existing profile first"},
	{domain.ErrNotFound, "run 'mlsq profile list' to see saved profiles"},
	{errNotConfigured, "this build has no services wired"},
}

// Hint returns a suggested next step for err, or "" when none applies.
func Hint(err error) string {
	for _, h := range hints {
		if errors.Is(err, h.kind) {
			return h.hint
		}
	}
	return ""
}

// Describe formats err for the terminal, with its hint when one applies.
func Describe(err error) string {
	msg := errorStyle.Render("Error: " + err.Error())
	if hint := Hint(err); hint != "" {
		msg += "\n" + mutedStyle.Render(fmt.Sprintf("Hint: %s", hint))
	}
	return msg
}
