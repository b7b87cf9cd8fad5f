// Package index maintains per-kind reverse indexes from tags to record ids.
//
// Each index is a single persisted document (kind "Index", id "_idx_<Kind>")
// mapping a tag to the ordered ids carrying it. Every operation re-reads the
// document, so several processes may share one backend. Mutations are
// read-modify-write and are serialized per index within a process.
package index

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/existflow/oahu/internal/backend"
	"github.com/existflow/oahu/internal/errs"
	"github.com/existflow/oahu/internal/model"
)

// AllTag holds every live id of the index's kind
const AllTag = "__all__"

// Tag formats a key/value pair as an index tag, e.g. "slug:foo"
func Tag(key, value string) string {
	return key + ":" + value
}

// ID returns the storage id of the index for kind
func ID(kind model.Kind) string {
	return "_idx_" + string(kind)
}

type document struct {
	ID        string              `json:"id"`
	Type      string              `json:"_type"`
	KlassName string              `json:"klass_name"`
	Idx       map[string][]string `json:"idx"`
}

// Index is the reverse index of one record kind
type Index struct {
	mu     sync.Mutex
	kind   model.Kind
	store backend.Backend
	idx   map[string][]string
}

func New(kind model.Kind, store backend.Backend) *Index {
	return &Index{kind: kind, store: store}
}

// Kind returns the record kind this index covers
func (x *Index) Kind() model.Kind {
	return x.kind
}

// load reads the current document from the backend
func (x *Index) load(ctx context.Context) error {
	data, err := x.store.Get(ctx, string(model.KindIndex), ID(x.kind))
	switch {
	case errs.IsNotFound(err):
		x.idx = make(map[string][]string)
	case err != nil:
		return fmt.Errorf("failed to load index %s: %w", ID(x.kind), err)
	default:
		var doc document
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("failed to decode index %s: %w", ID(x.kind), err)
		}
		x.idx = doc.Idx
		if x.idx == nil {
			x.idx = make(map[string][]string)
		}
	}
	return nil
}

func (x *Index) persist(ctx context.Context) error {
	data, err := json.Marshal(document{
		ID:        ID(x.kind),
		Type:      string(model.KindIndex),
		KlassName: string(x.kind),
		Idx:       x.idx,
	})
	if err != nil {
		return err
	}
	if err := x.store.Put(ctx, string(model.KindIndex), ID(x.kind), data); err != nil {
		return fmt.Errorf("failed to save index %s: %w", ID(x.kind), err)
	}
	return nil
}

// removeLocked drops id from every bucket and reports whether it was present
func (x *Index) removeLocked(id string) bool {
	found := false
	for tag, ids := range x.idx {
		kept := ids[:0]
		for _, v := range ids {
			if v == id {
				found = true
				continue
			}
			kept = append(kept, v)
		}
		if len(kept) == 0 {
			delete(x.idx, tag)
		} else {
			x.idx[tag] = kept
		}
	}
	return found
}

// Add replaces every tag membership of id with tags plus AllTag
func (x *Index) Add(ctx context.Context, id string, tags []string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.load(ctx); err != nil {
		return err
	}

	x.removeLocked(id)

	seen := map[string]bool{AllTag: true}
	x.idx[AllTag] = append(x.idx[AllTag], id)
	for _, t := range tags {
		if seen[t] {
			continue
		}
		seen[t] = true
		x.idx[t] = append(x.idx[t], id)
	}
	return x.persist(ctx)
}

// Remove drops id from every bucket. Removing an absent id is a no-op.
func (x *Index) Remove(ctx context.Context, id string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.load(ctx); err != nil {
		return err
	}

	if !x.removeLocked(id) {
		return nil
	}
	return x.persist(ctx)
}

// IDs returns the ids stored under tag, in insertion order
func (x *Index) IDs(ctx context.Context, tag string) ([]string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.load(ctx); err != nil {
		return nil, err
	}
	return append([]string(nil), x.idx[tag]...), nil
}

// Tags returns the tags currently holding id
func (x *Index) Tags(ctx context.Context, id string) ([]string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.load(ctx); err != nil {
		return nil, err
	}
	var tags []string
	for tag, ids := range x.idx {
		for _, v := range ids {
			if v == id {
				tags = append(tags, tag)
				break
			}
		}
	}
	return tags, nil
}

// Find resolves the ids under tag with get. Ids whose record is gone are
// skipped; the index itself is left as is.
func Find[T any](ctx context.Context, x *Index, tag string, get func(context.Context, string) (T, error)) ([]T, error) {
	ids, err := x.IDs(ctx, tag)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		rec, err := get(ctx, id)
		if errs.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Registry hands out one shared Index per kind
type Registry struct {
	mu      sync.Mutex
	store   backend.Backend
	indexes map[model.Kind]*Index
}

func NewRegistry(store backend.Backend) *Registry {
	return &Registry{store: store, indexes: make(map[model.Kind]*Index)}
}

// For returns the index of kind, creating it on first use
func (r *Registry) For(kind model.Kind) *Index {
	r.mu.Lock()
	defer r.mu.Unlock()
	x, ok := r.indexes[kind]
	if !ok {
		x = New(kind, r.store)
		r.indexes[kind] = x
	}
	return x
}
