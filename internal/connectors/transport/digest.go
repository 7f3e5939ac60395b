package transport

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// digestChallenge is a parsed WWW-Authenticate: Digest header (RFC 2617).
type digestChallenge struct {
	realm     string
	nonce     string
	opaque    string
	algorithm string
	qop       string
}

// parseDigestChallenge reads a Digest challenge. Servers may send several
// WWW-Authenticate values joined by commas; only the Digest one is used.
func parseDigestChallenge(header string) (*digestChallenge, bool) {
	idx := strings.Index(strings.ToLower(header), "digest ")
	if idx < 0 {
		return nil, false
	}
	params := parseAuthParams(header[idx+len("digest "):])
	ch := &digestChallenge{
		realm:     params["realm"],
		nonce:     params["nonce"],
		opaque:    params["opaque"],
		algorithm: params["algorithm"],
	}
	if ch.nonce == "" {
		return nil, false
	}
	for _, q := range strings.Split(params["qop"], ",") {
		if strings.TrimSpace(q) == "auth" {
			ch.qop = "auth"
			break
		}
	}
	return ch, true
}

// parseAuthParams splits comma separated key=value pairs, honouring quotes.
func parseAuthParams(s string) map[string]string {
	out := map[string]string{}
	for len(s) > 0 {
		s = strings.TrimLeft(s, " ,\t")
		eq := strings.IndexByte(s, '=')
		if eq < 0 {
			break
		}
		key := strings.ToLower(strings.TrimSpace(s[:eq]))
		s = s[eq+1:]

		var val string
		if strings.HasPrefix(s, `"`) {
			end := strings.IndexByte(s[1:], '"')
			if end < 0 {
				val, s = s[1:], ""
			} else {
				val, s = s[1:end+1], s[end+2:]
			}
		} else {
			comma := strings.IndexByte(s, ',')
			if comma < 0 {
				val, s = s, ""
			} else {
				val, s = s[:comma], s[comma+1:]
			}
		}
		out[key] = strings.TrimSpace(val)
	}
	return out
}

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func cnonce() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// authorization builds the Authorization header value for one request.
func (d *digestChallenge) authorization(username, password, method, uri string, nc int) string {
	cn := cnonce()
	ha1 := md5hex(username + ":" + d.realm + ":" + password)
	if strings.EqualFold(d.algorithm, "MD5-sess") {
		ha1 = md5hex(ha1 + ":" + d.nonce + ":" + cn)
	}
	ha2 := md5hex(method + ":" + uri)

	ncValue := fmt.Sprintf("%08x", nc)
	var response string
	if d.qop == "auth" {
		response = md5hex(strings.Join([]string{ha1, d.nonce, ncValue, cn, d.qop, ha2}, ":"))
	} else {
		response = md5hex(ha1 + ":" + d.nonce + ":" + ha2)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `Digest username="%s", realm="%s", nonce="%s", uri="%s", response="%s"`,
		username, d.realm, d.nonce, uri, response)
	if d.algorithm != "" {
		fmt.Fprintf(&b, ", algorithm=%s", d.algorithm)
	}
	if d.opaque != "" {
		fmt.Fprintf(&b, `, opaque="%s"`, d.opaque)
	}
	if d.qop == "auth" {
		fmt.Fprintf(&b, `, qop=auth, nc=%s, cnonce="%s"`, ncValue, cn)
	}
	return b.String()
}
