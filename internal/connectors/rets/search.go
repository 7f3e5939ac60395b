package rets

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/custodia-labs/mlsq/internal/core/domain"
	"github.com/custodia-labs/mlsq/internal/logger"
)

// DefaultKeyField is queried when a resource declares no key field.
const DefaultKeyField = "ListingId"

// SearchParams builds the Search request parameters for a validated query.
// An empty filter becomes (<KeyField>=*), or (ListingId=*) when the resource
// declares no key field.
func SearchParams(graph *domain.MetadataGraph, spec domain.QuerySpec) (url.Values, error) {
	res, ok := graph.Resource(spec.ResourceID)
	if !ok {
		return nil, &domain.ValidationError{Field: "resource", Value: spec.ResourceID, Reason: "not in metadata"}
	}
	class, ok := res.Class(spec.ClassID)
	if !ok {
		return nil, &domain.ValidationError{Field: "class", Value: spec.ClassID, Reason: "not a class of " + res.ID}
	}

	query := strings.TrimSpace(spec.Filter)
	if query == "" {
		key := res.KeyField
		if key == "" {
			key = DefaultKeyField
		}
		query = "(" + key + "=*)"
	}

	params := url.Values{
		"SearchType":    {res.ID},
		"Class":         {class.ID},
		"Query":         {query},
		"QueryType":     {"DMQL2"},
		"Format":        {"COMPACT-DECODED"},
		"Count":         {"1"},
		"StandardNames": {"0"},
	}
	if len(spec.Select) > 0 {
		params.Set("Select", strings.Join(spec.Select, ","))
	}
	if spec.Limit > 0 {
		params.Set("Limit", strconv.Itoa(spec.Limit))
	}
	return params, nil
}

// Search runs one DMQL2 query. It sends a single request and never pages.
func (c *Client) Search(ctx context.Context, graph *domain.MetadataGraph, spec domain.QuerySpec) (*domain.ResultSet, error) {
	params, err := SearchParams(graph, spec)
	if err != nil {
		return nil, err
	}

	logger.Debug("rets: search %s:%s query=%s", params.Get("SearchType"), params.Get("Class"), params.Get("Query"))
	resp, err := c.call(ctx, domain.CapabilitySearch, params)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, &domain.QueryError{
			Resource: spec.ResourceID,
			Class:    spec.ClassID,
			Attempts: 1,
			Err:      &StatusError{URL: resp.URL, StatusCode: resp.StatusCode},
		}
	}

	rs, err := c.parsers.Parse(domain.ProtocolRETS, resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, expiredFromParse(err, resp.URL)
	}
	if len(rs.Warnings) > 0 {
		logger.Warn("rets: %d parse warning(s) in %s:%s results", len(rs.Warnings), spec.ResourceID, spec.ClassID)
	}
	return rs, nil
}
