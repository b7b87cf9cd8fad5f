package store

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/existflow/oahu/internal/backend"
	"github.com/existflow/oahu/internal/errs"
	"github.com/existflow/oahu/internal/index"
	"github.com/existflow/oahu/internal/logger"
	"github.com/existflow/oahu/internal/model"
	"github.com/existflow/oahu/internal/remote"
	"github.com/existflow/oahu/internal/revision"
)

// Remote is the read side of the remote service
type Remote interface {
	Get(ctx context.Context, path string, params remote.Params) (json.RawMessage, error)
}

// Repo is the shared state behind every typed Store: the backend, one index
// per kind, and the remote used to fill misses.
type Repo struct {
	backend backend.Backend
	indexes *index.Registry
	remote  Remote
	log     *logger.Logger
	fetches singleflight.Group
	locks   *keyedMutex
}

// NewRepo wires a repo. remote may be nil for an offline cache; misses then
// report NotFound.
func NewRepo(b backend.Backend, r Remote, log *logger.Logger) *Repo {
	return &Repo{
		backend: b,
		indexes: index.NewRegistry(b),
		remote:  r,
		log:     log.WithFields(logger.F("component", "store")),
		locks:   newKeyedMutex(),
	}
}

// Lock serializes writers of one record and returns the unlock func. A
// holder saves with SaveLocked. Nested locks are taken parent before child.
func (r *Repo) Lock(kind model.Kind, id string) func() {
	return r.locks.Lock(string(kind) + "/" + id)
}

// Remote returns the remote collaborator, or nil
func (r *Repo) Remote() Remote {
	return r.remote
}

// Index returns the index of kind
func (r *Repo) Index(kind model.Kind) *index.Index {
	return r.indexes.For(kind)
}

// Get loads a cached record without touching the remote
func (r *Repo) Get(ctx context.Context, kind model.Kind, id string) (model.Record, error) {
	data, err := r.backend.Get(ctx, string(kind), id)
	if err != nil {
		if errs.IsNotFound(err) {
			return nil, errs.NotFound("store.Get", fmt.Errorf("%s %s", kind, id))
		}
		return nil, err
	}
	return model.Unmarshal(kind, data)
}

// Find returns the cached record, fetching and saving it on a miss.
// Concurrent misses for the same record share one remote fetch.
func (r *Repo) Find(ctx context.Context, kind model.Kind, id string) (model.Record, error) {
	rec, err := r.Get(ctx, kind, id)
	if err == nil || !errs.IsNotFound(err) || r.remote == nil {
		return rec, err
	}

	v, err, _ := r.fetches.Do(string(kind)+"/"+id, func() (any, error) {
		return r.fetch(ctx, kind, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(model.Record), nil
}

func (r *Repo) fetch(ctx context.Context, kind model.Kind, id string) (model.Record, error) {
	r.log.Debug("Cache miss, fetching", logger.F("kind", kind), logger.F("id", id))
	raw, err := r.remote.Get(ctx, kind.Path(id), nil)
	if err != nil {
		if errs.IsNotFound(err) {
			return nil, errs.NotFound("store.Find", fmt.Errorf("%s %s", kind, id))
		}
		return nil, fmt.Errorf("failed to fetch %s %s: %w", kind, id, err)
	}
	attrs, err := remote.DecodeOne(raw)
	if err != nil {
		return nil, err
	}
	if attrs.ID() == "" {
		attrs["id"] = id
	}
	rec, err := model.Decode(kind, attrs)
	if err != nil {
		return nil, err
	}

	unlock := r.Lock(kind, id)
	defer unlock()
	// a sync may have stored the record while the fetch was in flight
	if cur, err := r.Get(ctx, kind, id); err == nil {
		return cur, nil
	} else if !errs.IsNotFound(err) {
		return nil, err
	}
	if err := r.SaveLocked(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// childRevisions collects the current revisions of a parent's children.
// Children missing from the cache are left out.
func (r *Repo) childRevisions(ctx context.Context, p model.Parent) (map[string][]string, error) {
	out := make(map[string][]string)
	for _, l := range p.Lists() {
		for _, id := range *l.IDs {
			child, err := r.Get(ctx, l.Kind, id)
			if errs.IsNotFound(err) {
				continue
			}
			if err != nil {
				return nil, err
			}
			out[l.Name] = append(out[l.Name], child.Meta().Revision)
		}
	}
	return out, nil
}

// Revision computes the revision rec would be saved with
func (r *Repo) Revision(ctx context.Context, rec model.Record) (string, error) {
	var children map[string][]string
	if p, ok := rec.(model.Parent); ok {
		var err error
		if children, err = r.childRevisions(ctx, p); err != nil {
			return "", err
		}
	}
	return revision.Of(rec, children), nil
}

// Tags returns the index tags rec should carry besides index.AllTag
func Tags(rec model.Record) []string {
	ix, ok := rec.(model.Indexed)
	if !ok {
		return nil
	}
	values := ix.IndexValues()
	tags := make([]string, 0, len(values))
	for k, v := range values {
		tags = append(tags, index.Tag(k, v))
	}
	return tags
}

// Save recomputes the revision, persists rec, then updates its index
func (r *Repo) Save(ctx context.Context, rec model.Record) error {
	unlock := r.Lock(rec.Kind(), rec.Meta().ID)
	defer unlock()
	return r.SaveLocked(ctx, rec)
}

// SaveLocked is Save for a caller already holding the record's Lock
func (r *Repo) SaveLocked(ctx context.Context, rec model.Record) error {
	kind := rec.Kind()
	meta := rec.Meta()
	if meta.ID == "" {
		return errs.Invalid("store.Save", fmt.Errorf("%s without id", kind))
	}
	meta.Type = string(kind)

	rev, err := r.Revision(ctx, rec)
	if err != nil {
		return fmt.Errorf("failed to compute revision of %s %s: %w", kind, meta.ID, err)
	}
	changed := rev != meta.Revision
	meta.Revision = rev

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode %s %s: %w", kind, meta.ID, err)
	}
	if err := r.backend.Put(ctx, string(kind), meta.ID, data); err != nil {
		return err
	}
	if err := r.indexes.For(kind).Add(ctx, meta.ID, Tags(rec)); err != nil {
		return fmt.Errorf("saved %s %s but failed to index it: %w", kind, meta.ID, err)
	}

	r.log.Debug("Saved record",
		logger.F("kind", kind),
		logger.F("id", meta.ID),
		logger.F("rev", rev),
		logger.F("revChanged", changed))
	return nil
}

// Destroy deletes rec, then removes it from its index. An index failure is
// logged only: stale ids are filtered out on read.
func (r *Repo) Destroy(ctx context.Context, rec model.Record) error {
	kind := rec.Kind()
	id := rec.Meta().ID
	unlock := r.Lock(kind, id)
	defer unlock()
	if err := r.backend.Delete(ctx, string(kind), id); err != nil {
		return err
	}
	if err := r.indexes.For(kind).Remove(ctx, id); err != nil {
		r.log.Warn("Failed to remove destroyed record from index",
			logger.F("kind", kind), logger.F("id", id), logger.F("error", err))
	}
	return nil
}

// FindTagged resolves the cached records of kind under tag
func (r *Repo) FindTagged(ctx context.Context, kind model.Kind, tag string) ([]model.Record, error) {
	return index.Find(ctx, r.indexes.For(kind), tag, func(ctx context.Context, id string) (model.Record, error) {
		return r.Get(ctx, kind, id)
	})
}
