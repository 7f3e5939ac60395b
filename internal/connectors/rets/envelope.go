package rets

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"io"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/custodia-labs/mlsq/internal/core/domain"
	"github.com/custodia-labs/mlsq/internal/parsers"
)

// knownCapabilities maps lower-cased login response keys to capability names.
var knownCapabilities = map[string]string{
	"login":          domain.CapabilityLogin,
	"logout":         domain.CapabilityLogout,
	"search":         domain.CapabilitySearch,
	"getmetadata":    domain.CapabilityGetMetadata,
	"getobject":      domain.CapabilityGetObject,
	"update":         "Update",
	"postobject":     "PostObject",
	"changepassword": "ChangePassword",
	"getpayloadlist": "GetPayloadList",
	"action":         "Action",
}

// loginReply is a decoded login response body.
type loginReply struct {
	ReplyCode   int
	ReplyText   string
	HasEnvelope bool
	// Values holds every key=value line of the response body.
	Values map[string]string
}

// parseLoginBody reads a login response: a RETS envelope whose body (or
// RETS-RESPONSE child) holds key=value lines, or a bare key=value body.
func parseLoginBody(body []byte) loginReply {
	reply := loginReply{Values: map[string]string{}}

	var text bytes.Buffer
	dec := parsers.NewXMLDecoder(bytes.NewReader(body))
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			name := strings.ToUpper(t.Name.Local)
			if name == "RETS" || name == "RETS-STATUS" {
				reply.HasEnvelope = true
				if code, err := strconv.Atoi(strings.TrimSpace(parsers.Attr(t.Attr, "ReplyCode"))); err == nil {
					reply.ReplyCode = code
				}
				if rt := parsers.Attr(t.Attr, "ReplyText"); rt != "" {
					reply.ReplyText = rt
				}
			}
			if reply.HasEnvelope {
				depth++
			}
		case xml.EndElement:
			if depth > 0 {
				depth--
			}
		case xml.CharData:
			if reply.HasEnvelope && depth > 0 {
				text.Write(t)
				text.WriteByte('\n')
			}
		}
	}

	if !reply.HasEnvelope {
		text.Reset()
		text.Write(body)
	}

	sc := bufio.NewScanner(&text)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" || strings.ContainsAny(key, " <>") {
			continue
		}
		reply.Values[key] = strings.TrimSpace(value)
	}
	return reply
}

// capabilities extracts capability URLs, resolved against the URL that
// answered the login.
func (r *loginReply) capabilities(responseURL string) map[string]string {
	base, err := url.Parse(responseURL)
	if err != nil {
		return nil
	}
	caps := map[string]string{}
	for key, value := range r.Values {
		name, ok := knownCapabilities[strings.ToLower(key)]
		if !ok || value == "" {
			continue
		}
		ref, err := url.Parse(value)
		if err != nil {
			continue
		}
		caps[name] = base.ResolveReference(ref).String()
	}
	return caps
}

// sessionTimeout returns the TimeoutSeconds value, or 0.
func (r *loginReply) sessionTimeout() int {
	for key, value := range r.Values {
		if strings.EqualFold(key, "TimeoutSeconds") {
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				return n
			}
		}
	}
	return 0
}

// siblingURL replaces the last path segment of loginURL with name, keeping
// its extension: /rets/login.ashx becomes /rets/Search.ashx.
func siblingURL(loginURL, name string) string {
	u, err := url.Parse(loginURL)
	if err != nil {
		return ""
	}
	dir, last := path.Split(u.Path)
	u.Path = dir + name + path.Ext(last)
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
