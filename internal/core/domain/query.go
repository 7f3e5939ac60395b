package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// QuerySpec selects what to search for.
type QuerySpec struct {
	// ResourceID is the RETS resource or RESO EntitySet.
	ResourceID string `json:"resource"`
	// ClassID is the RETS class. Must be empty for RESO.
	ClassID string `json:"class,omitempty"`
	// Filter is the native query: DMQL2 for RETS, an OData $filter for RESO.
	Filter string `json:"filter,omitempty"`
	// Select limits the returned fields. Empty means all fields.
	Select []string `json:"select,omitempty"`
	// Limit caps the number of rows. Zero leaves it to the server.
	Limit int `json:"limit,omitempty"`
}

// CountUnknown marks a ResultSet whose server did not report a total.
const CountUnknown = -1

// ResultSet is an ordered sequence of rows sharing one fixed header.
type ResultSet struct {
	Columns  []string       `json:"columns"`
	Rows     []Row          `json:"rows"`
	Warnings []ParseWarning `json:"warnings,omitempty"`
	// Count is the server-reported total match count, or CountUnknown.
	Count int `json:"count"`
	// MaxRows is true when the server truncated the result at its row limit.
	MaxRows bool `json:"max_rows,omitempty"`
}

// ParseWarning is a recoverable anomaly found while decoding a response.
type ParseWarning struct {
	// Row is the zero-based row index, or -1 for document-level warnings.
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func (w ParseWarning) String() string {
	if w.Row < 0 {
		return w.Message
	}
	return fmt.Sprintf("row %d: %s", w.Row, w.Message)
}

// NewResultSet creates an empty result set with the given header.
func NewResultSet(columns []string) *ResultSet {
	return &ResultSet{
		Columns: columns,
		Rows:    []Row{},
		Count:   CountUnknown,
	}
}

// AppendRow aligns values to the header and appends the row.
// Missing trailing values become empty strings; values beyond the header
// are dropped. It returns the number of values dropped.
func (rs *ResultSet) AppendRow(values []string) int {
	n := len(rs.Columns)
	aligned := make([]string, n)
	copy(aligned, values)
	dropped := 0
	if len(values) > n {
		dropped = len(values) - n
	}
	rs.Rows = append(rs.Rows, Row{columns: rs.Columns, values: aligned})
	return dropped
}

// Warn records a recoverable anomaly.
func (rs *ResultSet) Warn(row int, format string, args ...any) {
	rs.Warnings = append(rs.Warnings, ParseWarning{Row: row, Message: fmt.Sprintf(format, args...)})
}

// Len returns the number of rows.
func (rs *ResultSet) Len() int {
	return len(rs.Rows)
}

// Column returns every value of one column, in row order.
func (rs *ResultSet) Column(name string) []string {
	idx := -1
	for i, c := range rs.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]string, len(rs.Rows))
	for i := range rs.Rows {
		out[i] = rs.Rows[i].values[idx]
	}
	return out
}

// Row is an ordered mapping of field name to raw string value.
type Row struct {
	columns []string
	values  []string
}

// Get returns the value of a field and whether the field is in the header.
func (r Row) Get(name string) (string, bool) {
	for i, c := range r.columns {
		if c == name {
			return r.values[i], true
		}
	}
	return "", false
}

// Value returns a field's value or "" when absent.
func (r Row) Value(name string) string {
	v, _ := r.Get(name)
	return v
}

// Values returns the row's values in header order.
func (r Row) Values() []string {
	return r.values
}

// Len returns the number of fields, always equal to the header length.
func (r Row) Len() int {
	return len(r.values)
}

// Map returns the row as an unordered map.
func (r Row) Map() map[string]string {
	m := make(map[string]string, len(r.columns))
	for i, c := range r.columns {
		m[c] = r.values[i]
	}
	return m
}

// MarshalJSON encodes the row as a JSON object preserving header order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
