package services

import (
	"strconv"
	"strings"

	"github.com/custodia-labs/mlsq/internal/core/domain"
)

// ValidateQuery checks a query against metadata without touching the network.
// The filter itself is passed through unchecked.
func ValidateQuery(graph *domain.MetadataGraph, spec domain.QuerySpec) error {
	if graph == nil {
		return &domain.ValidationError{Field: "metadata", Reason: "not loaded"}
	}
	if strings.TrimSpace(spec.ResourceID) == "" {
		return &domain.ValidationError{Field: "resource", Reason: "required"}
	}
	if spec.Limit < 0 {
		return &domain.ValidationError{Field: "limit", Value: strconv.Itoa(spec.Limit), Reason: "must not be negative"}
	}

	res, ok := graph.Resource(spec.ResourceID)
	if !ok {
		return &domain.ValidationError{Field: "resource", Value: spec.ResourceID, Reason: "not in metadata"}
	}

	var (
		fields   []domain.FieldDescriptor
		complete bool
	)
	switch graph.Protocol {
	case domain.ProtocolRETS:
		if spec.ClassID == "" {
			return &domain.ValidationError{Field: "class", Reason: "required for RETS resource " + res.ID}
		}
		class, ok := res.Class(spec.ClassID)
		if !ok {
			return &domain.ValidationError{Field: "class", Value: spec.ClassID, Reason: "not a class of " + res.ID}
		}
		fields, complete = class.Fields, len(class.Gaps) == 0
	default:
		if spec.ClassID != "" {
			return &domain.ValidationError{Field: "class", Value: spec.ClassID, Reason: "RESO entity sets have no classes"}
		}
		fields, complete = res.Fields, len(res.Gaps) == 0
	}

	// Fields of a branch with a gap are unknown, so any name is accepted.
	if !complete {
		return nil
	}
	for _, name := range spec.Select {
		if _, ok := domain.Field(fields, strings.TrimSpace(name)); !ok {
			return &domain.ValidationError{Field: "select", Value: name, Reason: "not a field of " + target(res.ID, spec.ClassID)}
		}
	}
	return nil
}

func target(resourceID, classID string) string {
	if classID == "" {
		return resourceID
	}
	return resourceID + ":" + classID
}
