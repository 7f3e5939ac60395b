package domain

import (
	"strings"
	"time"
)

// MetadataGraph is the normalised metadata of one server. A graph is built
// fresh on every fetch and never mutated afterwards; it is replaced wholesale.
type MetadataGraph struct {
	Protocol  ProtocolKind         `json:"protocol"`
	System    SystemInfo           `json:"system"`
	Resources []ResourceDescriptor `json:"resources"`
	// Enums holds RESO EnumType members keyed by qualified and short type name.
	Enums     map[string]LookupTable `json:"enums,omitempty"`
	Raw       RawMetadata            `json:"-"`
	FetchedAt time.Time              `json:"fetched_at"`
}

// SystemInfo describes the server as reported by its metadata.
type SystemInfo struct {
	ID          string `json:"id,omitempty"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
}

// ResourceDescriptor is a RETS resource or a RESO EntitySet.
type ResourceDescriptor struct {
	ID       string `json:"id"`
	Label    string `json:"label,omitempty"`
	KeyField string `json:"key_field,omitempty"`
	// Classes is populated for RETS resources.
	Classes []ClassDescriptor `json:"classes,omitempty"`
	// Fields is populated for RESO entity sets, which have no classes.
	Fields []FieldDescriptor `json:"fields,omitempty"`
	// EntityType is the qualified RESO EntityType name.
	EntityType string `json:"entity_type,omitempty"`
	// Gaps records branches whose metadata could not be fetched.
	Gaps []MetadataGap `json:"gaps,omitempty"`
}

// ClassDescriptor is a RETS class within a resource.
type ClassDescriptor struct {
	ID          string            `json:"id"`
	Label       string            `json:"label,omitempty"`
	Description string            `json:"description,omitempty"`
	Fields      []FieldDescriptor `json:"fields"`
	Gaps        []MetadataGap     `json:"gaps,omitempty"`
}

// FieldDescriptor describes one field (RETS table entry or RESO property).
type FieldDescriptor struct {
	Name       string `json:"name"`
	SystemName string `json:"system_name,omitempty"`
	LongName   string `json:"long_name,omitempty"`
	DataType   string `json:"data_type,omitempty"`
	MaxLength  int    `json:"max_length,omitempty"`
	Required   bool   `json:"required,omitempty"`
	Nullable   bool   `json:"nullable,omitempty"`
	// LookupName names the lookup (RETS) or EnumType (RESO) of enumerated fields.
	LookupName string `json:"lookup_name,omitempty"`
	// Collection is true for RESO Collection(...) properties.
	Collection bool `json:"collection,omitempty"`
}

// IsLookup reports whether the field draws values from an enumerated set.
func (f *FieldDescriptor) IsLookup() bool {
	return f.LookupName != ""
}

// MetadataGap records a partial metadata failure on one branch of the graph.
type MetadataGap struct {
	// Type is the metadata type that failed (e.g. METADATA-CLASS).
	Type string `json:"type"`
	// ID is the metadata ID requested (e.g. "Property:RES").
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// RawMetadata is the server's metadata exactly as received.
type RawMetadata struct {
	ContentType string            `json:"content_type"`
	Parts       []RawMetadataPart `json:"parts"`
}

// RawMetadataPart is one fetched metadata document.
type RawMetadataPart struct {
	Name string `json:"name"`
	Body []byte `json:"body"`
}

// Bytes concatenates all parts in fetch order.
func (r *RawMetadata) Bytes() []byte {
	if len(r.Parts) == 1 {
		return r.Parts[0].Body
	}
	var n int
	for i := range r.Parts {
		n += len(r.Parts[i].Body) + 1
	}
	out := make([]byte, 0, n)
	for i := range r.Parts {
		out = append(out, r.Parts[i].Body...)
		if len(out) > 0 && out[len(out)-1] != '\n' {
			out = append(out, '\n')
		}
	}
	return out
}

// Resource returns the resource with the given ID.
// RETS resource IDs are matched case-sensitively first, then case-insensitively.
func (g *MetadataGraph) Resource(id string) (*ResourceDescriptor, bool) {
	for i := range g.Resources {
		if g.Resources[i].ID == id {
			return &g.Resources[i], true
		}
	}
	for i := range g.Resources {
		if strings.EqualFold(g.Resources[i].ID, id) {
			return &g.Resources[i], true
		}
	}
	return nil, false
}

// Class returns the class with the given ID within the resource.
func (r *ResourceDescriptor) Class(id string) (*ClassDescriptor, bool) {
	for i := range r.Classes {
		if r.Classes[i].ID == id {
			return &r.Classes[i], true
		}
	}
	for i := range r.Classes {
		if strings.EqualFold(r.Classes[i].ID, id) {
			return &r.Classes[i], true
		}
	}
	return nil, false
}

// FieldsFor returns the fields of a class (RETS) or of the resource itself (RESO).
func (r *ResourceDescriptor) FieldsFor(classID string) []FieldDescriptor {
	if classID == "" {
		return r.Fields
	}
	if c, ok := r.Class(classID); ok {
		return c.Fields
	}
	return nil
}

// Field looks up a field by name, system name or long name.
func Field(fields []FieldDescriptor, name string) (*FieldDescriptor, bool) {
	for i := range fields {
		if fields[i].Name == name || fields[i].SystemName == name {
			return &fields[i], true
		}
	}
	for i := range fields {
		if strings.EqualFold(fields[i].Name, name) || strings.EqualFold(fields[i].SystemName, name) ||
			(fields[i].LongName != "" && strings.EqualFold(fields[i].LongName, name)) {
			return &fields[i], true
		}
	}
	return nil, false
}

// HasGaps reports whether any branch of the graph is incomplete.
func (g *MetadataGraph) HasGaps() bool {
	for i := range g.Resources {
		if len(g.Resources[i].Gaps) > 0 {
			return true
		}
		for j := range g.Resources[i].Classes {
			if len(g.Resources[i].Classes[j].Gaps) > 0 {
				return true
			}
		}
	}
	return false
}

// FieldCount returns the total number of fields in the graph.
func (g *MetadataGraph) FieldCount() int {
	n := 0
	for i := range g.Resources {
		n += len(g.Resources[i].Fields)
		for j := range g.Resources[i].Classes {
			n += len(g.Resources[i].Classes[j].Fields)
		}
	}
	return n
}
