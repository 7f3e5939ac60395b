package parsers

import (
	"encoding/xml"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// NewXMLDecoder returns a lenient decoder for server XML. Listing servers
// routinely declare ISO-8859-1 or windows-1252, leave entities unescaped and
// omit closing tags, so the decoder is non-strict and transcodes any charset
// label it recognises to UTF-8.
func NewXMLDecoder(r io.Reader) *xml.Decoder {
	d := xml.NewDecoder(r)
	d.Strict = false
	d.AutoClose = xml.HTMLAutoClose
	d.Entity = xml.HTMLEntity
	d.CharsetReader = charset.NewReaderLabel
	return d
}

// Attr returns the value of the named attribute, ignoring namespace and case.
func Attr(attrs []xml.Attr, name string) string {
	for _, a := range attrs {
		if strings.EqualFold(a.Name.Local, name) {
			return a.Value
		}
	}
	return ""
}

// Attrs flattens attributes into a map keyed by local name.
func Attrs(attrs []xml.Attr) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[a.Name.Local] = a.Value
	}
	return m
}
