package model

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/existflow/oahu/internal/errs"
)

// Kind is the closed set of record kinds mirrored from the remote service
type Kind string

const (
	KindProject      Kind = "Project"
	KindApp          Kind = "App"
	KindPubAccount   Kind = "PubAccount"
	KindImage        Kind = "Image"
	KindVideo        Kind = "Video"
	KindImageList    Kind = "ImageList"
	KindVideoList    Kind = "VideoList"
	KindResourceList Kind = "ResourceList"
	KindProjectList  Kind = "ProjectList"

	// KindIndex is reserved for persisted indexes; it has no constructor
	KindIndex Kind = "Index"
)

type kindInfo struct {
	collection string
	new        func() Record
}

var registry = map[Kind]kindInfo{
	KindProject:      {"projects", func() Record { return &Project{} }},
	KindApp:          {"apps", func() Record { return &App{} }},
	KindPubAccount:   {"pub_accounts", func() Record { return &PubAccount{} }},
	KindImage:        {"images", func() Record { return &Image{} }},
	KindVideo:        {"videos", func() Record { return &Video{} }},
	KindImageList:    {"image_lists", func() Record { return &ImageList{} }},
	KindVideoList:    {"video_lists", func() Record { return &VideoList{} }},
	KindResourceList: {"resource_lists", func() Record { return &ResourceList{} }},
	KindProjectList:  {"project_lists", func() Record { return &ProjectList{} }},
}

// Kinds returns every record kind, sorted
func Kinds() []Kind {
	out := make([]Kind, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Valid reports whether k is a registered record kind
func (k Kind) Valid() bool {
	_, ok := registry[k]
	return ok
}

// Collection returns the remote collection name, e.g. "image_lists"
func (k Kind) Collection() string {
	return registry[k].collection
}

// Depth is 0 for kinds without child lists and otherwise one more than the
// deepest kind they hold. Building children in ascending depth saves every
// record after the children it lists.
func (k Kind) Depth() int {
	rec, err := New(k)
	if err != nil {
		return 0
	}
	p, ok := rec.(Parent)
	if !ok {
		return 0
	}
	depth := 0
	for _, l := range p.Lists() {
		if d := l.Kind.Depth() + 1; d > depth {
			depth = d
		}
	}
	return depth
}

// Path returns the remote path of a single record of this kind
func (k Kind) Path(id string) string {
	return k.Collection() + "/" + url.PathEscape(id)
}

// ParseKind resolves a discriminator such as "Resources::Image" to a kind
func ParseKind(discriminator string) (Kind, bool) {
	d := strings.TrimSpace(discriminator)
	if i := strings.LastIndex(d, "::"); i >= 0 {
		d = d[i+2:]
	}
	k := Kind(d)
	return k, k.Valid()
}

// LookupKind accepts a kind name in any of the forms a user might type:
// "Project", "project", "projects", "image_lists"
func LookupKind(name string) (Kind, bool) {
	if k, ok := ParseKind(name); ok {
		return k, true
	}
	n := strings.ToLower(strings.TrimSpace(name))
	for k, info := range registry {
		if n == info.collection || n == strings.TrimSuffix(info.collection, "s") || n == strings.ToLower(string(k)) {
			return k, true
		}
	}
	return "", false
}

// New constructs an empty record of kind k
func New(k Kind) (Record, error) {
	info, ok := registry[k]
	if !ok {
		return nil, errs.UnrecognizedKind("model.New", string(k))
	}
	rec := info.new()
	rec.Meta().Type = string(k)
	return rec, nil
}

// Attributes is a decoded attribute map as returned by the remote service
type Attributes map[string]any

// Discriminator returns the kind tag carried by attrs ("_type", then "type")
func (a Attributes) Discriminator() string {
	for _, key := range []string{"_type", "type"} {
		if s, ok := a[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// ID returns the record id carried by attrs
func (a Attributes) ID() string {
	switch v := a["id"].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Decode builds a fresh record of kind k from remote attributes. Every
// attribute is overwritten; the stored revision is never taken from attrs.
func Decode(k Kind, attrs Attributes) (Record, error) {
	rec, err := New(k)
	if err != nil {
		return nil, err
	}
	clean := make(Attributes, len(attrs))
	for key, v := range attrs {
		clean[key] = v
	}
	clean["id"] = attrs.ID()
	delete(clean, "_rev")
	raw, err := json.Marshal(clean)
	if err != nil {
		return nil, errs.Invalid("model.Decode", err)
	}
	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, errs.Invalid("model.Decode", fmt.Errorf("%s %s: %w", k, attrs.ID(), err))
	}
	meta := rec.Meta()
	meta.ID = attrs.ID()
	meta.Type = string(k)
	meta.Revision = ""
	return rec, nil
}

// Unmarshal decodes a stored record of kind k
func Unmarshal(k Kind, data []byte) (Record, error) {
	rec, err := New(k)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", k, err)
	}
	return rec, nil
}
