package reso

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/custodia-labs/mlsq/internal/core/domain"
	"github.com/custodia-labs/mlsq/internal/logger"
	"github.com/custodia-labs/mlsq/internal/parsers/odata"
)

// ResolveLookups returns a table for every enumerated field of the entity
// set. Enum-typed fields use the declared members. Untyped
// Collection(Edm.String) fields are sampled and marked Approximate.
func (c *Client) ResolveLookups(
	ctx context.Context, graph *domain.MetadataGraph, resourceID, classID string,
) (map[string]domain.LookupTable, error) {
	res, ok := graph.Resource(resourceID)
	if !ok {
		return nil, &domain.ValidationError{Field: "resource", Value: resourceID, Reason: "not an entity set"}
	}
	if classID != "" {
		return nil, &domain.ValidationError{Field: "class", Value: classID, Reason: "RESO entity sets have no classes"}
	}

	tables := map[string]domain.LookupTable{}
	for i := range res.Fields {
		f := &res.Fields[i]
		switch {
		case f.IsLookup():
			table, ok := graph.Enums[f.LookupName]
			if !ok {
				table = domain.LookupTable{Name: f.LookupName, Values: []domain.LookupValue{}, Error: "enum type not declared"}
			}
			tables[f.Name] = table
		case isSampled(f):
			table, err := c.sample(ctx, res.ID, f.Name)
			if err != nil {
				if domain.IsAuthExpired(err) || ctx.Err() != nil {
					return nil, err
				}
				logger.Warn("reso: sampling %s.%s failed: %v", res.ID, f.Name, err)
				table = domain.LookupTable{Name: f.Name, Values: []domain.LookupValue{}, Approximate: true, Error: err.Error()}
			}
			tables[f.Name] = table
		}
	}
	return tables, nil
}

// sample reads up to sampleSize rows of one field and returns the distinct
// non-empty values observed. The table only holds values present in the
// sample, not every value the server accepts. JSON payloads are decoded
// element by element; any other representation goes through the parser
// registry, whose collection cells are comma-joined.
func (c *Client) sample(ctx context.Context, entitySet, fieldName string) (domain.LookupTable, error) {
	params := url.Values{
		"$select": {fieldName},
		"$top":    {strconv.Itoa(c.sampleSize)},
	}
	resp, err := c.query(ctx, entitySet, params)
	if err != nil {
		return domain.LookupTable{}, err
	}
	if !resp.IsSuccess() {
		return domain.LookupTable{}, statusError(resp)
	}

	var (
		observed []string
		rows     int
	)
	if strings.Contains(resp.ContentType(), "json") {
		payload, err := odata.Decode(resp.Body)
		if err != nil {
			var se *odata.ServiceError
			if errors.As(err, &se) {
				return domain.LookupTable{}, fmt.Errorf("reso: %w", se)
			}
			return domain.LookupTable{}, &domain.ParseError{ContentType: resp.ContentType(), Err: err}
		}
		rows = len(payload.Entities)
		for _, entity := range payload.Entities {
			for _, fld := range entity {
				if fld.Key != fieldName {
					continue
				}
				for _, v := range odata.Values(fld.Raw) {
					observed = append(observed, strings.TrimSpace(v))
				}
			}
		}
	} else {
		rs, err := c.parsers.Parse(domain.ProtocolRESO, resp.Body, resp.Header.Get("Content-Type"))
		if err != nil {
			return domain.LookupTable{}, err
		}
		rows = rs.Len()
		for _, cell := range rs.Column(fieldName) {
			for _, v := range strings.Split(cell, ",") {
				observed = append(observed, strings.TrimSpace(v))
			}
		}
	}

	table := domain.SampledLookupTable(fieldName, observed)
	logger.Debug("reso: sampled %d distinct values of %s.%s from %d rows",
		table.Len(), entitySet, fieldName, rows)
	return table, nil
}
