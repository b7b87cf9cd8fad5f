// Package store is the caller-facing facade over cached records: find,
// findBy, all, save and destroy for one kind at a time, backed by a shared
// Repo holding the backend, the indexes and the remote.
package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/existflow/oahu/internal/errs"
	"github.com/existflow/oahu/internal/index"
	"github.com/existflow/oahu/internal/model"
)

// Store is the typed view of one record kind. T is the pointer type of the
// kind, e.g. *model.Project.
type Store[T model.Record] struct {
	repo *Repo
	kind model.Kind
}

// For returns the store of T's kind
func For[T model.Record](repo *Repo) *Store[T] {
	var zero T
	return &Store[T]{repo: repo, kind: zero.Kind()}
}

// Kind returns the record kind of this store
func (s *Store[T]) Kind() model.Kind {
	return s.kind
}

func (s *Store[T]) cast(rec model.Record) (T, error) {
	v, ok := rec.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("store: %s record has unexpected type %T", s.kind, rec)
	}
	return v, nil
}

// Get returns the cached record without consulting the remote
func (s *Store[T]) Get(ctx context.Context, id string) (T, error) {
	rec, err := s.repo.Get(ctx, s.kind, id)
	if err != nil {
		var zero T
		return zero, err
	}
	return s.cast(rec)
}

// Find returns the cached record, fetching it from the remote on a miss
func (s *Store[T]) Find(ctx context.Context, id string) (T, error) {
	rec, err := s.repo.Find(ctx, s.kind, id)
	if err != nil {
		var zero T
		return zero, err
	}
	return s.cast(rec)
}

// FindMany finds each id in order. The first failure aborts.
func (s *Store[T]) FindMany(ctx context.Context, ids []string) ([]T, error) {
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Find(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store[T]) tagged(ctx context.Context, tag string) ([]T, error) {
	recs, err := s.repo.FindTagged(ctx, s.kind, tag)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		v, err := s.cast(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// FindBy returns the first record whose key attribute equals value
func (s *Store[T]) FindBy(ctx context.Context, key, value string) (T, error) {
	recs, err := s.tagged(ctx, index.Tag(key, value))
	if err != nil {
		var zero T
		return zero, err
	}
	if len(recs) == 0 {
		var zero T
		return zero, errs.NotFound("store.FindBy", fmt.Errorf("%s with %s=%q", s.kind, key, value))
	}
	return recs[0], nil
}

// FindAllBy returns every record whose key attribute equals value
func (s *Store[T]) FindAllBy(ctx context.Context, key, value string) ([]T, error) {
	return s.tagged(ctx, index.Tag(key, value))
}

// All returns every live record of the kind, in index order
func (s *Store[T]) All(ctx context.Context) ([]T, error) {
	return s.tagged(ctx, index.AllTag)
}

// Save recomputes rec's revision, persists it and reindexes it
func (s *Store[T]) Save(ctx context.Context, rec T) error {
	return s.repo.Save(ctx, rec)
}

// Destroy deletes rec and drops it from the index. Children are kept.
func (s *Store[T]) Destroy(ctx context.Context, rec T) error {
	return s.repo.Destroy(ctx, rec)
}

// Projects is the project store with its release-year helpers
type Projects struct {
	*Store[*model.Project]
}

func NewProjects(repo *Repo) Projects {
	return Projects{Store: For[*model.Project](repo)}
}

// BySlug returns the project with the given slug
func (p Projects) BySlug(ctx context.Context, slug string) (*model.Project, error) {
	return p.FindBy(ctx, "slug", slug)
}

// DefaultImage returns the cached default image of proj
func (p Projects) DefaultImage(ctx context.Context, proj *model.Project) (*model.Image, error) {
	if proj.DefaultImageID == "" {
		return nil, errs.NotFound("store.DefaultImage", fmt.Errorf("project %s has no default image", proj.ID))
	}
	return For[*model.Image](p.repo).Get(ctx, proj.DefaultImageID)
}

// DefaultVideo returns the cached default video of proj
func (p Projects) DefaultVideo(ctx context.Context, proj *model.Project) (*model.Video, error) {
	if proj.DefaultVideoID == "" {
		return nil, errs.NotFound("store.DefaultVideo", fmt.Errorf("project %s has no default video", proj.ID))
	}
	return For[*model.Video](p.repo).Get(ctx, proj.DefaultVideoID)
}

// ByYear groups cached projects by release year, most recent first.
// Projects without a release date are left out.
func (p Projects) ByYear(ctx context.Context) ([]int, map[int][]*model.Project, error) {
	all, err := p.All(ctx)
	if err != nil {
		return nil, nil, err
	}
	groups := make(map[int][]*model.Project)
	for _, proj := range all {
		y := proj.ReleaseYear()
		if y == 0 {
			continue
		}
		groups[y] = append(groups[y], proj)
	}
	years := make([]int, 0, len(groups))
	for y := range groups {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, groups, nil
}

// ProjectLists is the store of named project selections
type ProjectLists struct {
	*Store[*model.ProjectList]
}

func NewProjectLists(repo *Repo) ProjectLists {
	return ProjectLists{Store: For[*model.ProjectList](repo)}
}

// ByName returns the list called name
func (l ProjectLists) ByName(ctx context.Context, name string) (*model.ProjectList, error) {
	return l.FindBy(ctx, "name", name)
}

// Projects resolves the cached projects of list, skipping ones no longer cached
func (l ProjectLists) Projects(ctx context.Context, list *model.ProjectList) ([]*model.Project, error) {
	projects := For[*model.Project](l.repo)
	out := make([]*model.Project, 0, len(list.ProjectIDs))
	for _, id := range list.ProjectIDs {
		p, err := projects.Get(ctx, id)
		if errs.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
