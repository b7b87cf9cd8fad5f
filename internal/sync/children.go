package sync

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/existflow/oahu/internal/errs"
	"github.com/existflow/oahu/internal/logger"
	"github.com/existflow/oahu/internal/model"
)

// itemsKey holds a mixed array of embedded children
const itemsKey = "items"

// run is the state of one record sync
type run struct {
	*Engine
	log *logger.Logger
	res *Result
}

func (r *run) skip(source string, item model.Attributes, err error) {
	s := Skipped{Collection: source, ID: item.ID(), Discriminator: item.Discriminator(), Err: err}
	r.res.Skipped = append(r.res.Skipped, s)
	r.log.Warn("Skipped item",
		logger.F("collection", source),
		logger.F("itemId", s.ID),
		logger.F("itemType", s.Discriminator),
		logger.F("error", err))
}

// itemError reports whether err only disqualifies one item
func itemError(err error) bool {
	return errors.Is(err, errs.ErrUnrecognizedKind) || errors.Is(err, errs.ErrInvalid)
}

// applyCollection replaces every list c feeds with the items fetched for it
func (r *run) applyCollection(ctx context.Context, parent model.Parent, c model.Collection, items []model.Attributes) error {
	targets := make(map[model.Kind]model.List, len(c.Feeds))
	for _, name := range c.Feeds {
		l, ok := model.ListByName(parent, name)
		if !ok {
			continue
		}
		*l.IDs = []string{}
		targets[l.Kind] = l
	}
	return r.fill(ctx, c.Name, c.Fallback, targets, items)
}

// applyEmbedded rebuilds the lists of p from child arrays embedded in its
// attributes: one array per list name, or a mixed "items" array. Lists
// without embedded data keep their decoded ids.
func (r *run) applyEmbedded(ctx context.Context, p model.Parent, attrs model.Attributes) error {
	lists := p.Lists()
	byKind := make(map[model.Kind]model.List, len(lists))
	for _, l := range lists {
		byKind[l.Kind] = l
		raw, ok := attrs[l.Name]
		if !ok {
			continue
		}
		*l.IDs = []string{}
		if err := r.fill(ctx, l.Name, l.Kind, map[model.Kind]model.List{l.Kind: l}, asItems(raw)); err != nil {
			return err
		}
	}

	raw, ok := attrs[itemsKey]
	if !ok {
		return nil
	}
	for _, l := range lists {
		if _, embedded := attrs[l.Name]; !embedded {
			*l.IDs = []string{}
		}
	}
	var fallback model.Kind
	if len(lists) == 1 {
		fallback = lists[0].Kind
	}
	return r.fill(ctx, itemsKey, fallback, byKind, asItems(raw))
}

// pending is an item resolved to its kind and target list
type pending struct {
	item model.Attributes
	kind model.Kind
	list model.List
}

// fill builds each item, saves it and appends its id to the list of its
// kind. Leaf kinds are built before lists so a list in the same response
// folds the fresh revisions of its members.
func (r *run) fill(ctx context.Context, source string, fallback model.Kind, targets map[model.Kind]model.List, items []model.Attributes) error {
	queue := make([]pending, 0, len(items))
	for _, item := range items {
		if item == nil {
			r.skip(source, item, errs.Invalid("sync.item", errors.New("item is not an object")))
			continue
		}
		kind, ok := model.ParseKind(item.Discriminator())
		if !ok {
			if fallback == "" {
				r.skip(source, item, errs.UnrecognizedKind("sync.item", item.Discriminator()))
				continue
			}
			kind = fallback
		}
		l, ok := targets[kind]
		if !ok {
			r.skip(source, item, errs.UnrecognizedKind("sync.item", fmt.Sprintf("%s in %s", kind, source)))
			continue
		}
		if item.ID() == "" {
			r.skip(source, item, errs.Invalid("sync.item", errors.New("item without id")))
			continue
		}
		queue = append(queue, pending{item: item, kind: kind, list: l})
	}
	slices.SortStableFunc(queue, func(a, b pending) int {
		return a.kind.Depth() - b.kind.Depth()
	})

	for _, p := range queue {
		id := p.item.ID()
		if slices.Contains(*p.list.IDs, id) {
			continue
		}
		if err := r.build(ctx, p.kind, p.item); err != nil {
			if itemError(err) {
				r.skip(source, p.item, err)
				continue
			}
			return err
		}
		*p.list.IDs = append(*p.list.IDs, id)
	}
	return nil
}

// build decodes one child, rebuilds its own embedded children and saves it
func (r *run) build(ctx context.Context, kind model.Kind, attrs model.Attributes) error {
	rec, err := model.Decode(kind, attrs)
	if err != nil {
		return err
	}

	unlock := r.repo.Lock(kind, rec.Meta().ID)
	defer unlock()

	if p, ok := rec.(model.Parent); ok {
		if err := r.applyEmbedded(ctx, p, attrs); err != nil {
			return err
		}
	}
	if err := r.repo.SaveLocked(ctx, rec); err != nil {
		return err
	}
	r.res.Children++
	return nil
}

func asItems(v any) []model.Attributes {
	switch t := v.(type) {
	case []model.Attributes:
		return t
	case []map[string]any:
		out := make([]model.Attributes, len(t))
		for i, m := range t {
			out[i] = m
		}
		return out
	case []any:
		out := make([]model.Attributes, len(t))
		for i, e := range t {
			switch m := e.(type) {
			case map[string]any:
				out[i] = m
			case model.Attributes:
				out[i] = m
			}
		}
		return out
	}
	return nil
}
