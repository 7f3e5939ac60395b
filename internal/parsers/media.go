package parsers

import (
	"mime"
	"strings"
)

// MediaType extracts the lower-cased media type from a Content-Type value,
// dropping parameters such as charset or odata.metadata.
func MediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}
