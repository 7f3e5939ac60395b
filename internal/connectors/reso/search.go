package reso

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/custodia-labs/mlsq/internal/connectors/transport"
	"github.com/custodia-labs/mlsq/internal/core/domain"
	"github.com/custodia-labs/mlsq/internal/logger"
)

// QueryParams builds the OData system query options for a validated query.
func QueryParams(graph *domain.MetadataGraph, spec domain.QuerySpec) (string, url.Values, error) {
	res, ok := graph.Resource(spec.ResourceID)
	if !ok {
		return "", nil, &domain.ValidationError{Field: "resource", Value: spec.ResourceID, Reason: "not an entity set"}
	}
	if spec.ClassID != "" {
		return "", nil, &domain.ValidationError{Field: "class", Value: spec.ClassID, Reason: "RESO entity sets have no classes"}
	}

	params := url.Values{}
	if f := strings.TrimSpace(spec.Filter); f != "" {
		params.Set("$filter", f)
	}
	if len(spec.Select) > 0 {
		params.Set("$select", strings.Join(spec.Select, ","))
	}
	if spec.Limit > 0 {
		params.Set("$top", strconv.Itoa(spec.Limit))
	}
	return res.ID, params, nil
}

// Search runs one OData query against an entity set. It never follows
// @odata.nextLink.
func (c *Client) Search(ctx context.Context, graph *domain.MetadataGraph, spec domain.QuerySpec) (*domain.ResultSet, error) {
	entitySet, params, err := QueryParams(graph, spec)
	if err != nil {
		return nil, err
	}

	logger.Debug("reso: query %s %s", entitySet, params.Encode())
	resp, err := c.query(ctx, entitySet, params)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, &domain.QueryError{Resource: entitySet, Attempts: 1, Err: statusError(resp)}
	}

	rs, err := c.parsers.Parse(domain.ProtocolRESO, resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	if len(rs.Warnings) > 0 {
		logger.Warn("reso: %d parse warning(s) in %s results", len(rs.Warnings), entitySet)
	}
	return rs, nil
}

// query requests JSON and falls back to the Atom/XML representation when
// the server answers 415.
func (c *Client) query(ctx context.Context, entitySet string, params url.Values) (*transport.Response, error) {
	target := c.endpoint(entitySet)
	resp, err := c.get(ctx, target, AcceptJSON, params)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		return resp, nil
	}
	logger.Debug("reso: %s rejected JSON, retrying with XML", target)
	return c.get(ctx, target, AcceptXML, params)
}
