package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Record is a cached, identity-bearing unit of remote data
type Record interface {
	Kind() Kind
	Meta() *Base
}

// Indexed records declare secondary index keys and their current values
type Indexed interface {
	IndexValues() map[string]string
}

// List is a named child collection held by id on its parent
type List struct {
	Name string
	Kind Kind
	IDs  *[]string
}

// Parent records own child lists whose revisions fold into their own
type Parent interface {
	Record
	Lists() []List
}

// Collection is a remote sub-resource fetched during sync. Items whose
// discriminator is unknown fall back to Fallback when it is set. Feeds
// names the parent lists the collection replaces.
type Collection struct {
	Name     string
	Fallback Kind
	Feeds    []string
}

// Synced records have remote child collections
type Synced interface {
	Parent
	RemoteCollections() []Collection
}

// RevisionExtras lets a kind fold additional values into its base revision
type RevisionExtras interface {
	RevisionExtras() []string
}

// Base holds the attributes shared by every kind
type Base struct {
	ID          string         `json:"id"`
	Revision    string         `json:"_rev,omitempty"`
	Type        string         `json:"_type,omitempty"`
	Slug        string         `json:"slug,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Published   bool           `json:"published,omitempty"`
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	CreatedAt   Timestamp      `json:"created_at"`
	UpdatedAt   Timestamp      `json:"updated_at"`
	Likes       int            `json:"likes,omitempty"`
	Stats       map[string]any `json:"stats,omitempty"`
	URL         string         `json:"url,omitempty"`
}

func (b *Base) Meta() *Base { return b }

// ListByName returns the named list of p
func ListByName(p Parent, name string) (List, bool) {
	for _, l := range p.Lists() {
		if l.Name == name {
			return l, true
		}
	}
	return List{}, false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp accepts the date formats the remote service emits
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

// ParseTimestamp parses s with any of the accepted layouts
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewTimestamp(t), nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognized time %q", s)
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" || raw == `""` {
		t.Time = time.Time{}
		return nil
	}
	if !strings.HasPrefix(raw, `"`) {
		secs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("unrecognized time %s", raw)
		}
		*t = NewTimestamp(time.Unix(secs, 0))
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.String())
}

// String is the canonical form used in revisions; empty for the zero time
func (t Timestamp) String() string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
