// Package logger provides leveled logging for mlsq.
// Debug and Info messages are printed to stderr only in verbose mode
// (--verbose); warnings are always printed. Every message is passed
// through Mask so credentials never reach the log.
package logger

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

var (
	rePassword = regexp.MustCompile(`(?i)((?:password|passwd|client_secret|ua_password)=)([^\s&;]+)`)
	reBearer   = regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9._~+/=-]+)`)
	reAuthz    = regexp.MustCompile(`(?i)((?:authorization|rets-ua-authorization):\s*)(\S+(?:\s+\S+)?)`)
	reToken    = regexp.MustCompile(`(?i)((?:access_token|refresh_token|token)"?\s*[=:]\s*"?)([A-Za-z0-9._~+/=-]{6,})`)
	reUserinfo = regexp.MustCompile(`(://)([^/:@\s]+):([^@/\s]+)(@)`)
)

// Mask replaces credentials in s with "***". It recognises key=value
// secrets, bearer tokens, Authorization headers and URL userinfo.
func Mask(s string) string {
	out := rePassword.ReplaceAllString(s, "${1}***")
	out = reAuthz.ReplaceAllString(out, "${1}***")
	out = reBearer.ReplaceAllString(out, "${1}***")
	out = reToken.ReplaceAllString(out, "${1}***")
	out = reUserinfo.ReplaceAllString(out, "${1}${2}:***${4}")
	return out
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func emit(always bool, prefix, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if always || verbose {
		fmt.Fprint(output, prefix+Mask(fmt.Sprintf(format, args...))+"\n")
	}
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	emit(false, "[DEBUG] ", format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	emit(false, "\n=== ", "%s ===", name)
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	emit(false, "[INFO] ", format, args...)
}

// Warn prints a warning message regardless of verbose mode.
func Warn(format string, args ...any) {
	emit(true, "[WARN] ", format, args...)
}
