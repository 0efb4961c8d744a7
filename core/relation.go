// Package core provides the fundamental building blocks of the mango ODM.
// This file defines the relation catalog: the closed set of relation kinds,
// the per-relation configuration, and the strategy contract every kind
// implements. Concrete strategies live in the relation_*.go files.
package core

import (
	"context"
	"fmt"
	"reflect"
)

// RelationKind tags one of the supported relation semantics. The set is
// closed: construction dispatches on the tag, never on runtime types.
type RelationKind int

const (
	BelongsTo RelationKind = iota + 1
	BelongsToMany
	HasMany
	HasManyThrough
	HasOne
	MorphMany
	MorphTo
	MorphOne
	EmbedsOne
	EmbedsMany
	ReferMany
)

// String returns the kind name as used in error messages.
func (k RelationKind) String() string {
	switch k {
	case BelongsTo:
		return "belongsTo"
	case BelongsToMany:
		return "belongsToMany"
	case HasMany:
		return "hasMany"
	case HasManyThrough:
		return "hasManyThrough"
	case HasOne:
		return "hasOne"
	case MorphMany:
		return "morphMany"
	case MorphTo:
		return "morphTo"
	case MorphOne:
		return "morphOne"
	case EmbedsOne:
		return "embedsOne"
	case EmbedsMany:
		return "embedsMany"
	case ReferMany:
		return "referMany"
	default:
		return fmt.Sprintf("RelationKind(%d)", int(k))
	}
}

// RelationSpec is the immutable configuration of one registered relation:
// the kind, the parent and related schemas, and the resolved key names.
//
// FromKey is the parent-side key the eager loader groups by; ToKey is the
// related-side key (for embedded kinds, the parent attribute holding the
// embedded data). Kind-specific fields cover pivot collections, through
// schemas, and polymorphic discriminators.
type RelationSpec struct {
	Kind    RelationKind
	Name    string
	Parent  *Schema
	Related *Schema // nil for MorphTo; resolved per document

	FromKey string
	ToKey   string

	// Morph* only: the field storing the model name discriminator.
	TypeField string

	// HasManyThrough only.
	Through    *Schema
	ThroughKey string // key on the through schema referencing the parent

	// BelongsToMany only.
	Pivot        string
	PivotFromKey string
	PivotToKey   string
}

// WithKeys overrides the convention-derived parent-side and related-side
// key names.
func (r *RelationSpec) WithKeys(fromKey, toKey string) *RelationSpec {
	if fromKey != "" {
		r.FromKey = fromKey
	}
	if toKey != "" {
		r.ToKey = toKey
	}
	return r
}

// WithPivot overrides the pivot collection and its key names for a
// BelongsToMany relation.
func (r *RelationSpec) WithPivot(collection, fromKey, toKey string) *RelationSpec {
	if collection != "" {
		r.Pivot = collection
	}
	if fromKey != "" {
		r.PivotFromKey = fromKey
	}
	if toKey != "" {
		r.PivotToKey = toKey
	}
	return r
}

// WithTypeField overrides the discriminator field of a polymorphic relation.
func (r *RelationSpec) WithTypeField(field string) *RelationSpec {
	if field != "" {
		r.TypeField = field
	}
	return r
}

// Scope customizes the related query issued during an eager load. For
// embedded kinds the query it receives is never executed; the parameter
// exists for symmetry with reference relations.
type Scope func(q *Query)

// RelationMap is the result of a batched eager load: related data keyed by
// the parent-side grouping value. Values are *Document for to-one kinds and
// []*Document for to-many kinds.
type RelationMap map[any]any

// Relation is the capability contract shared by every relation kind.
type Relation interface {
	// Spec returns the relation's configuration.
	Spec() *RelationSpec

	// EagerLoad batch-fetches related data for every grouping value in
	// values, issuing at most one query regardless of len(results).
	EagerLoad(ctx context.Context, values []any, scope Scope, results []*Document) (RelationMap, error)

	// EagerLoadSingle is the single-row variant, returning a one-entry
	// map keyed by the supplied value.
	EagerLoadSingle(ctx context.Context, value any, scope Scope, result *Document) (RelationMap, error)

	// Save persists the related document and wires the relation's keys.
	// It returns the (possibly mutated) related document.
	Save(ctx context.Context, related *Document) (*Document, error)

	// Delete removes the related data for the bound parent.
	Delete(ctx context.Context) error

	// keys extracts the grouping values this relation needs from a
	// result set.
	keys(results []*Document) []any

	// attach stores the loaded data for one parent document.
	attach(doc *Document, loaded RelationMap)
}

// relation is the common base embedded by every strategy. It carries the
// spec, the parent model (for driver and prefix context), and, for write
// operations, the bound parent document.
type relation struct {
	spec   *RelationSpec
	model  *Model
	parent *Document
}

func (r *relation) Spec() *RelationSpec { return r.spec }

// relatedModel returns a model for the related schema sharing the parent
// model's connection and prefix settings.
func (r *relation) relatedModel() *Model {
	return r.model.forSchema(r.spec.Related)
}

// keys collects the distinct, non-nil FromKey values across the result set.
func (r *relation) keys(results []*Document) []any {
	seen := map[any]struct{}{}
	values := make([]any, 0, len(results))
	for _, doc := range results {
		v := doc.Get(r.spec.FromKey)
		if v == nil {
			continue
		}
		k := mapKey(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		values = append(values, v)
	}
	return values
}

// attach looks up the loaded entry for the document's FromKey value and
// stores it under the relation name.
func (r *relation) attach(doc *Document, loaded RelationMap) {
	v := doc.Get(r.spec.FromKey)
	if v == nil {
		return
	}
	if data, ok := loaded[mapKey(v)]; ok {
		doc.SetRelated(r.spec.Name, data)
	}
}

// checkRelated verifies that the document passed to a write operation
// belongs to the expected related schema.
func (r *relation) checkRelated(related *Document) error {
	if related == nil || related.schema != r.spec.Related {
		got := "<nil>"
		if related != nil && related.schema != nil {
			got = related.schema.Name
		}
		return relationMismatchf("%s %q expects a %s document, got %s",
			r.spec.Kind, r.spec.Name, r.spec.Related.Name, got)
	}
	return nil
}

// requireSavedParent verifies the bound parent document was persisted
// before a relation write or delete touches it.
func (r *relation) requireSavedParent() error {
	if r.parent == nil || !r.parent.exists {
		return unsavedTargetf("%s %q: parent %s was never saved",
			r.spec.Kind, r.spec.Name, r.spec.Parent.Name)
	}
	return nil
}

// newRelation constructs the strategy for a spec, dispatching on the kind
// tag. The parent document may be nil for read-only (eager load) use.
func newRelation(spec *RelationSpec, model *Model, parent *Document) Relation {
	base := relation{spec: spec, model: model, parent: parent}
	switch spec.Kind {
	case BelongsTo:
		return &belongsToRelation{base}
	case BelongsToMany:
		return &belongsToManyRelation{base}
	case HasMany:
		return &hasManyRelation{base}
	case HasManyThrough:
		return &hasManyThroughRelation{base}
	case HasOne:
		return &hasOneRelation{base}
	case MorphMany:
		return &morphManyRelation{base}
	case MorphTo:
		return &morphToRelation{base}
	case MorphOne:
		return &morphOneRelation{base}
	case EmbedsOne:
		return &embedsOneRelation{base}
	case EmbedsMany:
		return &embedsManyRelation{base}
	case ReferMany:
		return &referManyRelation{base}
	default:
		panic(fmt.Sprintf("core: unknown relation kind %d", spec.Kind))
	}
}

// mapKey normalizes a grouping value into a comparable map key. Integer and
// float widths are folded so values decoded by different drivers still
// match; non-comparable values fall back to their string form.
func mapKey(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		if t := reflect.TypeOf(v); t != nil && t.Comparable() {
			return v
		}
		return fmt.Sprint(v)
	}
}
