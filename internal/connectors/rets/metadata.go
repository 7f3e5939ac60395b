package rets

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/mlsq/internal/core/domain"
	"github.com/custodia-labs/mlsq/internal/logger"
	"github.com/custodia-labs/mlsq/internal/parsers/compact"
)

// Metadata types requested with GetMetadata.
const (
	MetadataSystem     = "METADATA-SYSTEM"
	MetadataResource   = "METADATA-RESOURCE"
	MetadataClass      = "METADATA-CLASS"
	MetadataTable      = "METADATA-TABLE"
	MetadataLookup     = "METADATA-LOOKUP"
	MetadataLookupType = "METADATA-LOOKUP_TYPE"
)

// metadataDoc is one fetched metadata document.
type metadataDoc struct {
	doc  *compact.Document
	body []byte
}

// getMetadata fetches one COMPACT metadata document.
func (c *Client) getMetadata(ctx context.Context, mtype, id string) (*metadataDoc, error) {
	params := url.Values{
		"Type":   {mtype},
		"ID":     {id},
		"Format": {"COMPACT"},
	}
	resp, err := c.call(ctx, domain.CapabilityGetMetadata, params)
	if err != nil {
		return nil, &domain.MetadataError{Type: mtype, ID: id, Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &domain.MetadataError{Type: mtype, ID: id, Err: &StatusError{URL: resp.URL, StatusCode: resp.StatusCode}}
	}

	doc, err := compact.Decode(resp.Body)
	if err != nil {
		return nil, &domain.MetadataError{Type: mtype, ID: id, Err: &domain.ParseError{ContentType: resp.ContentType(), Err: err}}
	}
	if doc.ReplyCode != 0 {
		perr := expiredFromParse(&domain.ParseError{ReplyCode: doc.ReplyCode, ReplyText: doc.ReplyText}, resp.URL)
		return nil, &domain.MetadataError{Type: mtype, ID: id, Err: perr}
	}
	return &metadataDoc{doc: doc, body: resp.Body}, nil
}

// FetchMetadata walks SYSTEM, RESOURCE, then CLASS per resource and TABLE
// per class. SYSTEM and RESOURCE failures are fatal; CLASS and TABLE
// failures are recorded as gaps and the walk continues. An expired session
// always aborts the walk.
func (c *Client) FetchMetadata(ctx context.Context) (*domain.MetadataGraph, error) {
	graph := &domain.MetadataGraph{
		Protocol: domain.ProtocolRETS,
		Raw:      domain.RawMetadata{ContentType: "text/xml"},
	}

	sys, err := c.getMetadata(ctx, MetadataSystem, "*")
	if err != nil {
		return nil, err
	}
	graph.Raw.Parts = append(graph.Raw.Parts, domain.RawMetadataPart{Name: MetadataSystem, Body: sys.body})
	graph.System = systemInfo(sys.doc)

	res, err := c.getMetadata(ctx, MetadataResource, "0")
	if err != nil {
		return nil, err
	}
	graph.Raw.Parts = append(graph.Raw.Parts, domain.RawMetadataPart{Name: MetadataResource, Body: res.body})
	graph.Resources = resources(res.doc)

	for i := range graph.Resources {
		r := &graph.Resources[i]

		classes, err := c.getMetadata(ctx, MetadataClass, r.ID)
		if err != nil {
			if domain.IsAuthExpired(err) || ctx.Err() != nil {
				return nil, err
			}
			logger.Warn("rets: metadata for resource %s incomplete: %v", r.ID, err)
			r.Gaps = append(r.Gaps, gap(MetadataClass, r.ID, err))
			continue
		}
		graph.Raw.Parts = append(graph.Raw.Parts, domain.RawMetadataPart{Name: MetadataClass + ":" + r.ID, Body: classes.body})
		r.Classes = classDescriptors(classes.doc)

		for j := range r.Classes {
			cl := &r.Classes[j]
			id := r.ID + ":" + cl.ID

			table, err := c.getMetadata(ctx, MetadataTable, id)
			if err != nil {
				if domain.IsAuthExpired(err) || ctx.Err() != nil {
					return nil, err
				}
				logger.Warn("rets: fields for %s incomplete: %v", id, err)
				cl.Gaps = append(cl.Gaps, gap(MetadataTable, id, err))
				cl.Fields = []domain.FieldDescriptor{}
				continue
			}
			graph.Raw.Parts = append(graph.Raw.Parts, domain.RawMetadataPart{Name: MetadataTable + ":" + id, Body: table.body})
			cl.Fields = fieldDescriptors(table.doc)
		}
	}

	graph.FetchedAt = time.Now()
	logger.Info("rets: metadata has %d resources, %d fields", len(graph.Resources), graph.FieldCount())
	return graph, nil
}

func gap(mtype, id string, err error) domain.MetadataGap {
	reason := err.Error()
	var me *domain.MetadataError
	if errors.As(err, &me) && me.Err != nil {
		reason = me.Err.Error()
	}
	return domain.MetadataGap{Type: mtype, ID: id, Reason: reason}
}

func systemInfo(doc *compact.Document) domain.SystemInfo {
	var info domain.SystemInfo
	for _, s := range doc.SectionsNamed(MetadataSystem) {
		info.Version = s.Attrs["Version"]
		if el, ok := s.Element("SYSTEM"); ok {
			info.ID = first(el.Attrs["SystemID"], el.Attrs["SystemId"])
			info.Description = el.Attrs["SystemDescription"]
		}
		if info.ID == "" {
			info.ID = s.Attrs["SystemID"]
		}
		if info.Description == "" {
			info.Description = s.Attrs["SystemDescription"]
		}
	}
	return info
}

func resources(doc *compact.Document) []domain.ResourceDescriptor {
	out := []domain.ResourceDescriptor{}
	for _, s := range doc.SectionsNamed(MetadataResource) {
		for _, rec := range s.Records() {
			id := rec["ResourceID"]
			if id == "" {
				continue
			}
			out = append(out, domain.ResourceDescriptor{
				ID:       id,
				Label:    first(rec["VisibleName"], rec["StandardName"], rec["Description"], id),
				KeyField: rec["KeyField"],
			})
		}
	}
	return out
}

func classDescriptors(doc *compact.Document) []domain.ClassDescriptor {
	out := []domain.ClassDescriptor{}
	for _, s := range doc.SectionsNamed(MetadataClass) {
		for _, rec := range s.Records() {
			id := rec["ClassName"]
			if id == "" {
				continue
			}
			out = append(out, domain.ClassDescriptor{
				ID:          id,
				Label:       first(rec["VisibleName"], rec["StandardName"], id),
				Description: rec["Description"],
				Fields:      []domain.FieldDescriptor{},
			})
		}
	}
	return out
}

func fieldDescriptors(doc *compact.Document) []domain.FieldDescriptor {
	out := []domain.FieldDescriptor{}
	for _, s := range doc.SectionsNamed(MetadataTable) {
		for _, rec := range s.Records() {
			name := rec["SystemName"]
			if name == "" {
				continue
			}
			maxLen, _ := strconv.Atoi(strings.TrimSpace(rec["MaximumLength"]))
			required := strings.TrimSpace(rec["Required"])
			f := domain.FieldDescriptor{
				Name:       name,
				SystemName: name,
				LongName:   first(rec["LongName"], rec["StandardName"]),
				DataType:   rec["DataType"],
				MaxLength:  maxLen,
				Required:   required != "" && required != "0",
				Nullable:   required == "" || required == "0",
			}
			interp := strings.ToLower(rec["Interpretation"])
			if rec["LookupName"] != "" && (interp == "" || strings.HasPrefix(interp, "lookup")) {
				f.LookupName = rec["LookupName"]
			}
			out = append(out, f)
		}
	}
	return out
}

func first(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
