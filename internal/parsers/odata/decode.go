package odata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Field is one key/value pair of a JSON object, in document order.
type Field struct {
	Key string
	Raw json.RawMessage
}

// ServiceError is an OData error body ({"error": {"code", "message"}}).
type ServiceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ServiceError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("service error %s: %s", e.Code, e.Message)
	}
	return "service error: " + e.Message
}

// Payload is a decoded OData JSON response.
type Payload struct {
	// Entities holds each entity's fields in document order.
	Entities [][]Field
	// Count is @odata.count, or -1 when absent.
	Count int
	// NextLink is @odata.nextLink, informational only.
	NextLink string
}

// Decode reads an OData JSON collection ({"value": [...]}) or a single entity.
func Decode(body []byte) (*Payload, error) {
	top, err := decodeObject(body)
	if err != nil {
		return nil, err
	}

	p := &Payload{Count: -1}
	var (
		collection json.RawMessage
		svcErr     *ServiceError
	)
	for _, f := range top {
		switch f.Key {
		case "error":
			var e ServiceError
			if err := json.Unmarshal(f.Raw, &e); err == nil && (e.Code != "" || e.Message != "") {
				svcErr = &e
			}
		case "@odata.count", "odata.count", "@count":
			if n, err := parseCount(f.Raw); err == nil {
				p.Count = n
			}
		case "@odata.nextLink", "odata.nextLink":
			_ = json.Unmarshal(f.Raw, &p.NextLink)
		case "value":
			if isArray(f.Raw) {
				collection = f.Raw
			}
		}
	}

	if collection == nil && svcErr != nil {
		return nil, svcErr
	}
	if collection == nil {
		p.Entities = [][]Field{top}
		return p, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(collection, &items); err != nil {
		return nil, fmt.Errorf("decode value array: %w", err)
	}
	for i, item := range items {
		fields, err := decodeObject(item)
		if err != nil {
			return nil, fmt.Errorf("decode entity %d: %w", i, err)
		}
		p.Entities = append(p.Entities, fields)
	}
	return p, nil
}

// decodeObject reads one JSON object preserving key order.
func decodeObject(data []byte) ([]Field, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	var fields []Field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode %q: %w", key, err)
		}
		fields = append(fields, Field{Key: key, Raw: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return fields, nil
}

// IsAnnotation reports whether key is an OData control or annotation key.
func IsAnnotation(key string) bool {
	return strings.HasPrefix(key, "@") || strings.Contains(key, "@odata.") || strings.HasPrefix(key, "odata.")
}

func isArray(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '['
}

func parseCount(raw json.RawMessage) (int, error) {
	s := strings.Trim(string(bytes.TrimSpace(raw)), `"`)
	return strconv.Atoi(s)
}

// Render converts a JSON value into the flat string form used in result
// rows: null is empty, strings are unquoted, arrays are comma-joined and
// objects are compact JSON.
func Render(raw json.RawMessage) string {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 {
		return ""
	}
	switch t[0] {
	case 'n':
		return ""
	case '"':
		var s string
		if err := json.Unmarshal(t, &s); err != nil {
			return string(t)
		}
		return s
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(t, &items); err != nil {
			return string(t)
		}
		parts := make([]string, 0, len(items))
		for _, it := range items {
			parts = append(parts, Render(it))
		}
		return strings.Join(parts, ",")
	case '{':
		var buf bytes.Buffer
		if err := json.Compact(&buf, t); err != nil {
			return string(t)
		}
		return buf.String()
	default:
		return string(t)
	}
}

// Values flattens a JSON value into its scalar members. Arrays are
// expanded one level deep; null yields nothing.
func Values(raw json.RawMessage) []string {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 || t[0] == 'n' {
		return nil
	}
	if t[0] != '[' {
		return []string{Render(t)}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(t, &items); err != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, Values(it)...)
	}
	return out
}
