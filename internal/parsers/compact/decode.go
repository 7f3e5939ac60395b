package compact

import (
	"bytes"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/custodia-labs/mlsq/internal/core/domain"
	"github.com/custodia-labs/mlsq/internal/parsers"
)

const (
	// DefaultDelimiter is used when a document carries no DELIMITER element.
	DefaultDelimiter = "\t"

	// ReplyNoRecords is the RETS reply code for a search matching nothing.
	ReplyNoRecords = 20201
)

// ErrNoEnvelope is returned for bodies without a RETS element or COMPACT data.
var ErrNoEnvelope = errors.New("no RETS envelope")

// ErrNoColumns is returned for DATA rows that arrive without a COLUMNS header.
var ErrNoColumns = errors.New("DATA rows without COLUMNS")

// Document is a decoded COMPACT response: a search result or a metadata
// document.
type Document struct {
	ReplyCode int
	ReplyText string
	// Count is the COUNT Records value, or domain.CountUnknown.
	Count    int
	MaxRows  bool
	Sections []Section
	Warnings []string
	// HasEnvelope is true when a RETS element was present.
	HasEnvelope bool
}

// Section is one COLUMNS/DATA block. Search responses have a single
// unnamed section; metadata responses have one per METADATA-* element.
type Section struct {
	// Name is the element name, e.g. METADATA-CLASS. Empty for search data.
	Name string
	// Attrs are the element attributes (Resource, Class, Version...).
	Attrs     map[string]string
	Delimiter string
	Columns   []string
	Rows      [][]string
	// Elements holds non-tabular children such as SYSTEM or COMMENTS.
	Elements []Element
}

// Element is a non-tabular child element of a section.
type Element struct {
	Name  string
	Attrs map[string]string
	Text  string
}

// Decode reads a COMPACT document.
func Decode(body []byte) (*Document, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("empty body: %w", ErrNoEnvelope)
	}

	doc := &Document{Count: domain.CountUnknown}
	dec := parsers.NewXMLDecoder(bytes.NewReader(body))
	delim := DefaultDelimiter

	var (
		cur     *Section
		elem    *Element
		collect string
		text    strings.Builder
	)

	section := func() *Section {
		if cur == nil {
			doc.Sections = append(doc.Sections, Section{Delimiter: delim})
			cur = &doc.Sections[len(doc.Sections)-1]
		}
		return cur
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			if doc.HasEnvelope || len(doc.Sections) > 0 {
				doc.Warnings = append(doc.Warnings, fmt.Sprintf("document truncated: %v", err))
				break
			}
			return nil, fmt.Errorf("decode xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := strings.ToUpper(t.Name.Local)
			switch {
			case name == "RETS":
				doc.HasEnvelope = true
				doc.setReply(t.Attr)
			case name == "RETS-STATUS":
				doc.setReply(t.Attr)
			case name == "COUNT":
				if n, err := strconv.Atoi(strings.TrimSpace(parsers.Attr(t.Attr, "Records"))); err == nil {
					doc.Count = n
				}
			case name == "MAXROWS":
				doc.MaxRows = true
			case name == "DELIMITER":
				d, err := parseDelimiter(parsers.Attr(t.Attr, "value"))
				if err != nil {
					doc.Warnings = append(doc.Warnings, err.Error())
				} else {
					delim = d
					if cur != nil {
						cur.Delimiter = d
					}
				}
			case name == "COLUMNS" || name == "DATA":
				collect = name
				text.Reset()
			case strings.HasPrefix(name, "METADATA-"):
				doc.Sections = append(doc.Sections, Section{
					Name:      name,
					Attrs:     parsers.Attrs(t.Attr),
					Delimiter: delim,
				})
				cur = &doc.Sections[len(doc.Sections)-1]
			case cur != nil && cur.Name != "":
				cur.Elements = append(cur.Elements, Element{Name: t.Name.Local, Attrs: parsers.Attrs(t.Attr)})
				elem = &cur.Elements[len(cur.Elements)-1]
				text.Reset()
			}

		case xml.CharData:
			if collect != "" || elem != nil {
				text.Write(t)
			}

		case xml.EndElement:
			name := strings.ToUpper(t.Name.Local)
			switch {
			case name == "COLUMNS" && collect == name:
				s := section()
				s.Columns = splitRow(text.String(), delim)
				collect = ""
			case name == "DATA" && collect == name:
				s := section()
				s.Rows = append(s.Rows, splitRow(text.String(), delim))
				collect = ""
			case strings.HasPrefix(name, "METADATA-"):
				cur = nil
			case elem != nil && strings.EqualFold(elem.Name, t.Name.Local):
				elem.Text = strings.TrimSpace(text.String())
				elem = nil
			}
		}
	}

	if !doc.HasEnvelope && len(doc.Sections) == 0 {
		return nil, ErrNoEnvelope
	}
	return doc, nil
}

func (d *Document) setReply(attrs []xml.Attr) {
	if code, err := strconv.Atoi(strings.TrimSpace(parsers.Attr(attrs, "ReplyCode"))); err == nil {
		d.ReplyCode = code
	}
	if text := parsers.Attr(attrs, "ReplyText"); text != "" {
		d.ReplyText = text
	}
}

// parseDelimiter decodes the hex DELIMITER value ("09" is a tab).
func parseDelimiter(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("empty DELIMITER value, using tab")
	}
	b, err := hex.DecodeString(v)
	if err != nil || len(b) == 0 {
		return "", fmt.Errorf("invalid DELIMITER value %q, using tab", v)
	}
	return string(b), nil
}

// splitRow splits one delimiter-framed line. One leading and one trailing
// delimiter are stripped when present.
func splitRow(line, delim string) []string {
	line = strings.Trim(line, "\r\n")
	line = strings.TrimPrefix(line, delim)
	line = strings.TrimSuffix(line, delim)
	return strings.Split(line, delim)
}

// Data returns the first section carrying a header.
func (d *Document) Data() (*Section, bool) {
	for i := range d.Sections {
		if len(d.Sections[i].Columns) > 0 {
			return &d.Sections[i], true
		}
	}
	return nil, false
}

// HeaderlessRows reports whether a section carries DATA rows but no header.
func (d *Document) HeaderlessRows() bool {
	for i := range d.Sections {
		if len(d.Sections[i].Columns) == 0 && len(d.Sections[i].Rows) > 0 {
			return true
		}
	}
	return false
}

// SectionsNamed returns every section with the given element name.
func (d *Document) SectionsNamed(name string) []*Section {
	var out []*Section
	for i := range d.Sections {
		if strings.EqualFold(d.Sections[i].Name, name) {
			out = append(out, &d.Sections[i])
		}
	}
	return out
}

// Records returns the section's rows as column-keyed maps. Short rows
// yield empty values; values beyond the header are ignored.
func (s *Section) Records() []map[string]string {
	out := make([]map[string]string, 0, len(s.Rows))
	for _, row := range s.Rows {
		m := make(map[string]string, len(s.Columns))
		for i, col := range s.Columns {
			if i < len(row) {
				m[col] = row[i]
			} else {
				m[col] = ""
			}
		}
		out = append(out, m)
	}
	return out
}

// Element returns the first child element with the given name.
func (s *Section) Element(name string) (*Element, bool) {
	for i := range s.Elements {
		if strings.EqualFold(s.Elements[i].Name, name) {
			return &s.Elements[i], true
		}
	}
	return nil, false
}

// ResultSet aligns the first data section to its header.
func (d *Document) ResultSet() *domain.ResultSet {
	sec, ok := d.Data()
	if !ok {
		rs := domain.NewResultSet([]string{})
		rs.Count = d.Count
		rs.MaxRows = d.MaxRows
		for _, w := range d.Warnings {
			rs.Warn(-1, "%s", w)
		}
		return rs
	}

	rs := domain.NewResultSet(sec.Columns)
	rs.Count = d.Count
	rs.MaxRows = d.MaxRows
	for _, w := range d.Warnings {
		rs.Warn(-1, "%s", w)
	}
	for i, row := range sec.Rows {
		if dropped := rs.AppendRow(row); dropped > 0 {
			rs.Warn(i, "%d value(s) beyond the %d declared columns discarded", dropped, len(sec.Columns))
		}
	}
	return rs
}
