// Package revision derives the opaque fingerprints used to detect stale
// records. Fingerprints are compared for equality only, never ordered.
package revision

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/existflow/oahu/internal/model"
)

// Base hashes kind, id and updated_at plus any kind-specific extras
func Base(kind model.Kind, id string, updatedAt model.Timestamp, extras ...string) string {
	parts := append([]string{string(kind), id, updatedAt.String()}, extras...)
	return digest(strings.Join(parts, ":"))
}

// Collection fingerprints one named child collection. Child revisions are
// sorted first so the result does not depend on fetch order.
func Collection(name string, children []string) string {
	return digest(name + ":" + strings.Join(sorted(children), "-"))
}

// Composite folds collection fingerprints into a base fingerprint
func Composite(base string, collections []string) string {
	return digest(base + "-" + strings.Join(sorted(collections), "-"))
}

// Of computes the revision of rec. children maps each list name of a
// parent record to the current revisions of its resolvable children.
func Of(rec model.Record, children map[string][]string) string {
	meta := rec.Meta()
	var extras []string
	if x, ok := rec.(model.RevisionExtras); ok {
		extras = x.RevisionExtras()
	}
	base := Base(rec.Kind(), meta.ID, meta.UpdatedAt, extras...)

	parent, ok := rec.(model.Parent)
	if !ok {
		return base
	}
	lists := parent.Lists()
	fingerprints := make([]string, 0, len(lists))
	for _, l := range lists {
		fingerprints = append(fingerprints, Collection(l.Name, children[l.Name]))
	}
	return Composite(base, fingerprints)
}

func sorted(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}

func digest(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
