package reso

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/mlsq/internal/core/domain"
	"github.com/custodia-labs/mlsq/internal/logger"
	"github.com/custodia-labs/mlsq/internal/parsers"
)

// MetadataPart names the raw $metadata document.
const MetadataPart = "$metadata"

// standardNameTerm is the annotation carrying RESO Data Dictionary names.
const standardNameTerm = "StandardName"

// EDM document model. Element names match in any namespace.
type edmx struct {
	Version      string `xml:"Version,attr"`
	DataServices struct {
		Schemas []edmSchema `xml:"Schema"`
	} `xml:"DataServices"`
}

type edmSchema struct {
	Namespace   string          `xml:"Namespace,attr"`
	Alias       string          `xml:"Alias,attr"`
	EntityTypes []edmEntityType `xml:"EntityType"`
	EnumTypes   []edmEnumType   `xml:"EnumType"`
	Containers  []edmContainer  `xml:"EntityContainer"`
}

type edmEntityType struct {
	Name     string `xml:"Name,attr"`
	BaseType string `xml:"BaseType,attr"`
	Key      struct {
		Refs []struct {
			Name string `xml:"Name,attr"`
		} `xml:"PropertyRef"`
	} `xml:"Key"`
	Properties []edmProperty `xml:"Property"`
}

type edmProperty struct {
	Name        string          `xml:"Name,attr"`
	Type        string          `xml:"Type,attr"`
	Nullable    string          `xml:"Nullable,attr"`
	MaxLength   string          `xml:"MaxLength,attr"`
	Annotations []edmAnnotation `xml:"Annotation"`
}

type edmEnumType struct {
	Name    string      `xml:"Name,attr"`
	Members []edmMember `xml:"Member"`
}

type edmMember struct {
	Name        string          `xml:"Name,attr"`
	Value       string          `xml:"Value,attr"`
	Annotations []edmAnnotation `xml:"Annotation"`
}

type edmAnnotation struct {
	Term   string `xml:"Term,attr"`
	String string `xml:"String,attr"`
	Text   string `xml:"String"`
}

type edmContainer struct {
	Name       string `xml:"Name,attr"`
	EntitySets []struct {
		Name       string `xml:"Name,attr"`
		EntityType string `xml:"EntityType,attr"`
	} `xml:"EntitySet"`
}

// annotation returns the string value of the first annotation whose term
// ends with term.
func annotation(list []edmAnnotation, term string) string {
	for _, a := range list {
		if strings.HasSuffix(a.Term, term) {
			if a.String != "" {
				return a.String
			}
			return strings.TrimSpace(a.Text)
		}
	}
	return ""
}

// FetchMetadata reads $metadata and builds the graph. Any failure is a
// MetadataError.
func (c *Client) FetchMetadata(ctx context.Context) (*domain.MetadataGraph, error) {
	target := c.endpoint(MetadataPart)
	resp, err := c.get(ctx, target, "application/xml, text/xml;q=0.9, */*;q=0.1", nil)
	if err != nil {
		return nil, &domain.MetadataError{Type: MetadataPart, Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &domain.MetadataError{Type: MetadataPart, Err: statusError(resp)}
	}

	graph, err := ParseMetadata(resp.Body)
	if err != nil {
		return nil, &domain.MetadataError{Type: MetadataPart, Err: &domain.ParseError{ContentType: resp.ContentType(), Err: err}}
	}
	graph.Raw = domain.RawMetadata{
		ContentType: firstNonEmpty(resp.ContentType(), "application/xml"),
		Parts:       []domain.RawMetadataPart{{Name: MetadataPart, Body: resp.Body}},
	}
	graph.FetchedAt = time.Now()

	logger.Info("reso: metadata has %d entity sets, %d fields, %d enums",
		len(graph.Resources), graph.FieldCount(), len(graph.Enums))
	return graph, nil
}

// ParseMetadata builds a MetadataGraph from an EDM document. Each EntitySet
// becomes a resource whose fields are its EntityType's properties, base
// type properties first.
func ParseMetadata(body []byte) (*domain.MetadataGraph, error) {
	var doc edmx
	if err := parsers.NewXMLDecoder(bytes.NewReader(body)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode edmx: %w", err)
	}
	schemas := doc.DataServices.Schemas
	if len(schemas) == 0 {
		return nil, fmt.Errorf("edmx has no Schema")
	}

	types := map[string]*edmEntityType{}
	enums := map[string]domain.LookupTable{}
	for i := range schemas {
		s := &schemas[i]
		for j := range s.EntityTypes {
			et := &s.EntityTypes[j]
			for _, name := range qualifiedNames(s, et.Name) {
				types[name] = et
			}
		}
		for _, en := range s.EnumTypes {
			table := enumTable(s.Namespace+"."+en.Name, en)
			for _, name := range qualifiedNames(s, en.Name) {
				if _, dup := enums[name]; !dup {
					enums[name] = table
				}
			}
		}
	}

	graph := &domain.MetadataGraph{
		Protocol:  domain.ProtocolRESO,
		System:    domain.SystemInfo{Version: doc.Version},
		Resources: []domain.ResourceDescriptor{},
		Enums:     enums,
	}

	for i := range schemas {
		s := &schemas[i]
		for _, cont := range s.Containers {
			if graph.System.ID == "" {
				graph.System.ID = s.Namespace
				graph.System.Description = cont.Name
			}
			for _, set := range cont.EntitySets {
				et, ok := types[set.EntityType]
				if !ok {
					logger.Warn("reso: entity set %s names unknown type %s", set.Name, set.EntityType)
					graph.Resources = append(graph.Resources, domain.ResourceDescriptor{
						ID:         set.Name,
						Label:      set.Name,
						EntityType: set.EntityType,
						Fields:     []domain.FieldDescriptor{},
						Gaps: []domain.MetadataGap{{
							Type: "EntityType", ID: set.EntityType, Reason: "type not declared in $metadata",
						}},
					})
					continue
				}
				graph.Resources = append(graph.Resources, resource(set.Name, set.EntityType, et, types, enums))
			}
		}
	}

	// Services without a container still expose their entity types.
	if len(graph.Resources) == 0 {
		for i := range schemas {
			s := &schemas[i]
			for j := range s.EntityTypes {
				et := &s.EntityTypes[j]
				graph.Resources = append(graph.Resources, resource(et.Name, s.Namespace+"."+et.Name, et, types, enums))
			}
		}
	}
	return graph, nil
}

// qualifiedNames returns the namespace-qualified, alias-qualified and
// short names a schema element may be referenced by.
func qualifiedNames(s *edmSchema, name string) []string {
	names := []string{s.Namespace + "." + name}
	if s.Alias != "" {
		names = append(names, s.Alias+"."+name)
	}
	return append(names, name)
}

func enumTable(name string, en edmEnumType) domain.LookupTable {
	values := make([]domain.LookupValue, 0, len(en.Members))
	for _, m := range en.Members {
		if m.Name == "" {
			continue
		}
		values = append(values, domain.LookupValue{
			Value: m.Name,
			Label: firstNonEmpty(annotation(m.Annotations, standardNameTerm), m.Name),
		})
	}
	return domain.LookupTable{Name: name, Values: values}
}

func resource(
	id, typeName string, et *edmEntityType, types map[string]*edmEntityType, enums map[string]domain.LookupTable,
) domain.ResourceDescriptor {
	chain := typeChain(et, types)

	r := domain.ResourceDescriptor{
		ID:         id,
		Label:      id,
		EntityType: typeName,
		Fields:     []domain.FieldDescriptor{},
	}
	for _, t := range chain {
		if r.KeyField == "" && len(t.Key.Refs) > 0 {
			r.KeyField = t.Key.Refs[0].Name
		}
		for _, p := range t.Properties {
			r.Fields = append(r.Fields, field(p, enums))
		}
	}
	return r
}

// typeChain returns et and its base types, base first.
func typeChain(et *edmEntityType, types map[string]*edmEntityType) []*edmEntityType {
	chain := []*edmEntityType{et}
	seen := map[*edmEntityType]bool{et: true}
	for cur := et; cur.BaseType != ""; {
		base, ok := types[cur.BaseType]
		if !ok || seen[base] {
			break
		}
		seen[base] = true
		chain = append([]*edmEntityType{base}, chain...)
		cur = base
	}
	return chain
}

func field(p edmProperty, enums map[string]domain.LookupTable) domain.FieldDescriptor {
	inner, collection := unwrapCollection(p.Type)
	maxLen, _ := strconv.Atoi(p.MaxLength)
	nullable := !strings.EqualFold(p.Nullable, "false")

	f := domain.FieldDescriptor{
		Name:       p.Name,
		SystemName: p.Name,
		LongName:   annotation(p.Annotations, standardNameTerm),
		DataType:   p.Type,
		MaxLength:  maxLen,
		Required:   !nullable,
		Nullable:   nullable,
		Collection: collection,
	}
	if !strings.HasPrefix(inner, "Edm.") {
		if table, ok := enums[inner]; ok {
			f.LookupName = table.Name
		}
	}
	return f
}

// unwrapCollection strips Collection(...) from an EDM type name.
func unwrapCollection(t string) (string, bool) {
	t = strings.TrimSpace(t)
	if strings.HasPrefix(t, "Collection(") && strings.HasSuffix(t, ")") {
		return t[len("Collection(") : len(t)-1], true
	}
	return t, false
}

// isSampled reports whether a field's values must be sampled from data.
func isSampled(f *domain.FieldDescriptor) bool {
	inner, collection := unwrapCollection(f.DataType)
	return collection && inner == "Edm.String" && f.LookupName == ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
