// Package sync refreshes cached records from the remote service.
//
// A sync fetches the record itself and every remote collection it declares,
// rebuilds the children from the returned attributes, replaces the parent's
// child lists wholesale and saves the parent with a recomputed revision.
// Nothing of the parent is persisted unless every fetch succeeded.
package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"

	"golang.org/x/sync/errgroup"

	"github.com/existflow/oahu/internal/errs"
	"github.com/existflow/oahu/internal/logger"
	"github.com/existflow/oahu/internal/model"
	"github.com/existflow/oahu/internal/remote"
	"github.com/existflow/oahu/internal/store"
)

// DefaultConcurrency bounds the records SyncAll refreshes at once
const DefaultConcurrency = 4

type Options struct {
	Concurrency int
}

// Engine drives explicit syncs. It is safe for concurrent use; a sync holds
// the repo lock of its record for its whole run.
type Engine struct {
	repo        *store.Repo
	remote      store.Remote
	log         *logger.Logger
	concurrency int
}

func New(repo *store.Repo, log *logger.Logger, opts Options) *Engine {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Engine{
		repo:        repo,
		remote:      repo.Remote(),
		log:         log.WithFields(logger.F("component", "sync")),
		concurrency: opts.Concurrency,
	}
}

// Skipped is an item left out of a sync
type Skipped struct {
	Collection    string
	ID            string
	Discriminator string
	Err           error
}

// Result reports one record sync
type Result struct {
	Record   model.Record
	Previous string
	Changed  bool
	Children int
	Skipped  []Skipped
}

// BulkResult reports a SyncAll. Failed maps record ids to the error that
// aborted their sync.
type BulkResult struct {
	Results []*Result
	Failed  map[string]error
}

// Sync refreshes the record kind/id and its children
func (e *Engine) Sync(ctx context.Context, kind model.Kind, id string) (*Result, error) {
	return e.sync(ctx, kind, id, nil)
}

// SyncRecord refreshes rec. rec itself is not modified; use Result.Record.
func (e *Engine) SyncRecord(ctx context.Context, rec model.Record) (*Result, error) {
	return e.sync(ctx, rec.Kind(), rec.Meta().ID, nil)
}

// SyncAll lists every record of kind matching filters and syncs each one,
// using the listed attributes in place of a fetch of the record itself.
// A failing record does not stop the others.
func (e *Engine) SyncAll(ctx context.Context, kind model.Kind, filters map[string]any) (*BulkResult, error) {
	if !kind.Valid() {
		return nil, errs.UnrecognizedKind("sync.SyncAll", string(kind))
	}
	if e.remote == nil {
		return nil, errs.Transport("sync.SyncAll", 0, errors.New("no remote configured"))
	}

	params := remote.NoLimit()
	if len(filters) > 0 {
		params = params.With("filters", filters)
	}
	e.log.Info("Bulk sync start", logger.F("kind", kind), logger.F("filters", filters))

	raw, err := e.remote.Get(ctx, kind.Collection(), params)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind.Collection(), err)
	}
	items, err := remote.DecodeList(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind.Collection(), err)
	}

	bulk := &BulkResult{Failed: make(map[string]error)}
	results := make([]*Result, len(items))
	var mu gosync.Mutex
	var g errgroup.Group
	g.SetLimit(e.concurrency)

	for i, attrs := range items {
		id := attrs.ID()
		if id == "" {
			e.log.Warn("Skipping listed record without id", logger.F("kind", kind))
			continue
		}
		g.Go(func() error {
			res, err := e.sync(ctx, kind, id, attrs)
			if err != nil {
				e.log.Warn("Record sync failed", logger.F("kind", kind), logger.F("id", id), logger.F("error", err))
				mu.Lock()
				bulk.Failed[id] = err
				mu.Unlock()
				return nil
			}
			results[i] = res
			return nil
		})
	}
	// workers record failures in bulk.Failed and always return nil
	g.Wait()

	for _, res := range results {
		if res != nil {
			bulk.Results = append(bulk.Results, res)
		}
	}
	e.log.Info("Bulk sync done",
		logger.F("kind", kind),
		logger.F("listed", len(items)),
		logger.F("synced", len(bulk.Results)),
		logger.F("failed", len(bulk.Failed)))
	return bulk, nil
}

func (e *Engine) sync(ctx context.Context, kind model.Kind, id string, attrs model.Attributes) (*Result, error) {
	if !kind.Valid() {
		return nil, errs.UnrecognizedKind("sync.Sync", string(kind))
	}
	if id == "" {
		return nil, errs.Invalid("sync.Sync", fmt.Errorf("%s without id", kind))
	}
	if e.remote == nil {
		return nil, errs.Transport("sync.Sync", 0, errors.New("no remote configured"))
	}

	unlock := e.repo.Lock(kind, id)
	defer unlock()

	r := &run{
		Engine: e,
		log:    e.log.WithFields(logger.F("kind", kind), logger.F("id", id)),
		res:    &Result{},
	}
	r.log.Debug("Sync start")

	prev, err := e.repo.Get(ctx, kind, id)
	switch {
	case err == nil:
		r.res.Previous = prev.Meta().Revision
	case !errs.IsNotFound(err):
		return nil, err
	}

	if attrs == nil {
		raw, err := e.remote.Get(ctx, kind.Path(id), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s %s: %w", kind, id, err)
		}
		if attrs, err = remote.DecodeOne(raw); err != nil {
			return nil, fmt.Errorf("failed to fetch %s %s: %w", kind, id, err)
		}
	}
	rec, err := model.Decode(kind, attrs)
	if err != nil {
		return nil, err
	}
	if rec.Meta().ID == "" {
		rec.Meta().ID = id
	}

	if synced, ok := rec.(model.Synced); ok {
		cols := synced.RemoteCollections()
		fetched, err := e.fetchCollections(ctx, kind, id, cols)
		if err != nil {
			return nil, err
		}
		for i, c := range cols {
			if err := r.applyCollection(ctx, synced, c, fetched[i]); err != nil {
				return nil, err
			}
		}
	} else if p, ok := rec.(model.Parent); ok {
		if err := r.applyEmbedded(ctx, p, attrs); err != nil {
			return nil, err
		}
	}

	if err := e.repo.SaveLocked(ctx, rec); err != nil {
		return nil, err
	}
	r.res.Record = rec
	r.res.Changed = r.res.Previous != rec.Meta().Revision

	r.log.Info("Synced record",
		logger.F("rev", rec.Meta().Revision),
		logger.F("changed", r.res.Changed),
		logger.F("children", r.res.Children),
		logger.F("skipped", len(r.res.Skipped)))
	return r.res, nil
}

// fetchCollections fetches every collection concurrently and returns once
// all of them arrived, or with the first failure.
func (e *Engine) fetchCollections(ctx context.Context, kind model.Kind, id string, cols []model.Collection) ([][]model.Attributes, error) {
	out := make([][]model.Attributes, len(cols))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range cols {
		g.Go(func() error {
			raw, err := e.remote.Get(gctx, kind.Path(id)+"/"+c.Name, remote.NoLimit())
			if err != nil {
				return fmt.Errorf("failed to fetch %s of %s %s: %w", c.Name, kind, id, err)
			}
			items, err := remote.DecodeList(raw)
			if err != nil {
				return fmt.Errorf("failed to fetch %s of %s %s: %w", c.Name, kind, id, err)
			}
			out[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
