package rets

import (
	"bytes"
	"context"
	"encoding/xml"
	"strings"

	"github.com/custodia-labs/mlsq/internal/core/domain"
	"github.com/custodia-labs/mlsq/internal/logger"
	"github.com/custodia-labs/mlsq/internal/parsers"
	"github.com/custodia-labs/mlsq/internal/parsers/compact"
)

// lookupRequest is one GetMetadata variant tried for a lookup.
type lookupRequest struct {
	Type string
	ID   string
}

// lookupRequests returns the request variants for a lookup, in order.
func lookupRequests(resourceID, lookupName string) []lookupRequest {
	return []lookupRequest{
		{Type: MetadataLookupType, ID: resourceID + ":" + lookupName},
		{Type: MetadataLookupType, ID: lookupName},
		{Type: MetadataLookup, ID: resourceID + ":" + lookupName},
		{Type: MetadataLookup, ID: lookupName},
	}
}

// ResolveLookups resolves every lookup field of the class. Each distinct
// lookup name is fetched once. A lookup that cannot be resolved yields a
// table with Error set.
func (c *Client) ResolveLookups(
	ctx context.Context, graph *domain.MetadataGraph, resourceID, classID string,
) (map[string]domain.LookupTable, error) {
	res, ok := graph.Resource(resourceID)
	if !ok {
		return nil, &domain.ValidationError{Field: "resource", Value: resourceID, Reason: "not in metadata"}
	}

	var fields []domain.FieldDescriptor
	if classID == "" {
		for i := range res.Classes {
			fields = append(fields, res.Classes[i].Fields...)
		}
	} else {
		class, ok := res.Class(classID)
		if !ok {
			return nil, &domain.ValidationError{Field: "class", Value: classID, Reason: "not a class of " + res.ID}
		}
		fields = class.Fields
	}

	tables := map[string]domain.LookupTable{}
	resolved := map[string]domain.LookupTable{}
	for i := range fields {
		f := &fields[i]
		if !f.IsLookup() {
			continue
		}
		if _, done := tables[f.Name]; done {
			continue
		}
		table, ok := resolved[f.LookupName]
		if !ok {
			var err error
			table, err = c.fetchLookup(ctx, res.ID, f.LookupName)
			if err != nil {
				return nil, err
			}
			resolved[f.LookupName] = table
		}
		tables[f.Name] = table
	}
	return tables, nil
}

// fetchLookup tries each request variant until one yields values. Only an
// expired session or a cancelled context is returned as an error.
func (c *Client) fetchLookup(ctx context.Context, resourceID, lookupName string) (domain.LookupTable, error) {
	var lastErr error
	for _, req := range lookupRequests(resourceID, lookupName) {
		md, err := c.getMetadata(ctx, req.Type, req.ID)
		if err != nil {
			if domain.IsAuthExpired(err) || ctx.Err() != nil {
				return domain.LookupTable{}, err
			}
			lastErr = err
			continue
		}
		values := lookupValues(md.doc, md.body)
		if len(values) > 0 {
			return domain.LookupTable{Name: lookupName, Values: values}, nil
		}
	}

	reason := "no values returned"
	if lastErr != nil {
		reason = lastErr.Error()
	}
	logger.Warn("rets: lookup %s:%s unresolved: %s", resourceID, lookupName, reason)
	return domain.LookupTable{Name: lookupName, Values: []domain.LookupValue{}, Error: reason}, nil
}

// lookupValues reads COMPACT METADATA-LOOKUP_TYPE rows, falling back to
// STANDARD-XML <LookupType> elements.
func lookupValues(doc *compact.Document, body []byte) []domain.LookupValue {
	var out []domain.LookupValue
	for i := range doc.Sections {
		s := &doc.Sections[i]
		if !strings.HasPrefix(s.Name, MetadataLookup) {
			continue
		}
		for _, rec := range s.Records() {
			if v, ok := lookupValue(rec); ok {
				out = append(out, v)
			}
		}
	}
	if len(out) > 0 {
		return out
	}
	return standardXMLLookupValues(body)
}

func lookupValue(rec map[string]string) (domain.LookupValue, bool) {
	value := strings.TrimSpace(rec["Value"])
	if value == "" {
		return domain.LookupValue{}, false
	}
	return domain.LookupValue{
		Value: value,
		Label: first(strings.TrimSpace(rec["LongValue"]), strings.TrimSpace(rec["ShortValue"]), value),
	}, true
}

// standardXMLLookupValues reads <LookupType><Value/><LongValue/>...</LookupType>.
func standardXMLLookupValues(body []byte) []domain.LookupValue {
	dec := parsers.NewXMLDecoder(bytes.NewReader(body))

	var (
		out   []domain.LookupValue
		rec   map[string]string
		field string
		text  strings.Builder
	)
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Local == "LookupType":
				rec = map[string]string{}
			case rec != nil:
				field = t.Name.Local
				text.Reset()
			}
		case xml.CharData:
			if field != "" {
				text.Write(t)
			}
		case xml.EndElement:
			switch {
			case t.Name.Local == "LookupType" && rec != nil:
				if v, ok := lookupValue(rec); ok {
					out = append(out, v)
				}
				rec = nil
			case field != "" && t.Name.Local == field:
				rec[field] = text.String()
				field = ""
			}
		}
	}
	return out
}
