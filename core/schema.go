// Package core provides the fundamental building blocks of the mango ODM.
// This file defines the schema system, which binds a model name to a
// collection, a primary key, timestamp behavior, lifecycle hooks, and the
// catalog of relations reachable from the model.
package core

import (
	"strings"
	"sync"

	"github.com/go-openapi/inflect"
)

// Schema describes one model: its collection, primary key, optional
// timestamp and soft-delete fields, registered hooks, and relations.
//
// Schemas are built once at startup and treated as immutable afterwards.
type Schema struct {
	Name       string // model name, e.g. "User"
	Database   string // optional; empty means the connection default
	Collection string // collection name, before any connection prefix
	PrimaryKey string // primary key field, "_id" by default

	// Optional timestamp fields maintained by the model layer.
	CreatedAtField string
	UpdatedAtField string
	DeletedAtField string // enables soft deletes when set

	relations map[string]*RelationSpec
	preHooks  map[PreHook][]HookFunc
	postHooks map[PostHook][]HookFunc
}

// HookFunc is the callback signature for lifecycle hooks. Hooks receive the
// document the operation applies to and may mutate it; returning an error
// aborts the operation.
type HookFunc func(doc *Document) error

// SchemaOption configures a Schema during construction.
type SchemaOption func(*Schema)

// Collection overrides the conventional collection name.
func Collection(name string) SchemaOption {
	return func(s *Schema) { s.Collection = name }
}

// Database binds the schema to a specific database instead of the
// connection default.
func Database(name string) SchemaOption {
	return func(s *Schema) { s.Database = name }
}

// PrimaryKey overrides the conventional "_id" primary key field.
func PrimaryKey(field string) SchemaOption {
	return func(s *Schema) { s.PrimaryKey = field }
}

// Timestamps enables createdAt/updatedAt maintenance on the given fields.
func Timestamps(createdAt, updatedAt string) SchemaOption {
	return func(s *Schema) {
		s.CreatedAtField = createdAt
		s.UpdatedAtField = updatedAt
	}
}

// SoftDeletes enables soft deletion using the given timestamp field.
// Deletes become updates setting the field, and finds exclude documents
// where it is set unless the query opts in.
func SoftDeletes(field string) SchemaOption {
	return func(s *Schema) { s.DeletedAtField = field }
}

// schemaRegistry resolves model names back to schemas. MorphTo relations
// use it to map a stored discriminator string to the related schema.
var schemaRegistry = struct {
	mutex  sync.RWMutex
	byName map[string]*Schema
}{byName: map[string]*Schema{}}

// NewSchema creates a schema for the given model name and registers it for
// discriminator lookup.
//
// By convention the collection name is the pluralized, underscored model
// name ("User" → "users") and the primary key is "_id".
//
// Example:
//
//	userSchema := core.NewSchema("User",
//		core.Timestamps("createdAt", "updatedAt"),
//		core.SoftDeletes("deletedAt"),
//	)
func NewSchema(name string, options ...SchemaOption) *Schema {
	s := &Schema{
		Name:       name,
		Collection: inflect.Pluralize(inflect.Underscore(name)),
		PrimaryKey: "_id",
		relations:  map[string]*RelationSpec{},
		preHooks:   map[PreHook][]HookFunc{},
		postHooks:  map[PostHook][]HookFunc{},
	}
	for _, option := range options {
		option(s)
	}

	schemaRegistry.mutex.Lock()
	schemaRegistry.byName[name] = s
	schemaRegistry.mutex.Unlock()
	return s
}

// lookupSchema resolves a registered schema by model name.
func lookupSchema(name string) *Schema {
	schemaRegistry.mutex.RLock()
	defer schemaRegistry.mutex.RUnlock()
	return schemaRegistry.byName[name]
}

// RegisterPreHook registers a hook executed before the given operation.
func (s *Schema) RegisterPreHook(hook PreHook, fn HookFunc) {
	s.preHooks[hook] = append(s.preHooks[hook], fn)
}

// RegisterPostHook registers a hook executed after the given operation.
func (s *Schema) RegisterPostHook(hook PostHook, fn HookFunc) {
	s.postHooks[hook] = append(s.postHooks[hook], fn)
}

// Relation returns the relation registered under the given name, or nil.
func (s *Schema) Relation(name string) *RelationSpec {
	return s.relations[name]
}

// foreignKeyFor returns the conventional foreign key referencing the given
// model: the camel-cased model name followed by "Id" ("User" → "userId").
func foreignKeyFor(name string) string {
	return inflect.CamelizeDownFirst(name) + "Id"
}

// pivotCollectionFor returns the conventional pivot collection for a
// many-to-many relation: the two underscored, singularized model names in
// lexical order, joined by an underscore ("Role","User" → "role_user").
func pivotCollectionFor(a, b *Schema) string {
	left := inflect.Underscore(a.Name)
	right := inflect.Underscore(b.Name)
	if strings.Compare(left, right) > 0 {
		left, right = right, left
	}
	return left + "_" + right
}

// register installs a relation spec under its name, filling key-name
// defaults by convention.
func (s *Schema) register(spec *RelationSpec) *RelationSpec {
	spec.Parent = s
	if spec.FromKey == "" {
		spec.FromKey = s.PrimaryKey
	}
	s.relations[spec.Name] = spec
	return spec
}

// HasOne registers a to-one relation whose foreign key lives on the related
// side. The foreign key defaults to the camel-cased parent model name plus
// "Id"; the parent-side key defaults to the primary key.
func (s *Schema) HasOne(name string, related *Schema) *RelationSpec {
	return s.register(&RelationSpec{
		Kind:    HasOne,
		Name:    name,
		Related: related,
		ToKey:   foreignKeyFor(s.Name),
	})
}

// HasMany registers a to-many relation whose foreign key lives on the
// related side.
func (s *Schema) HasMany(name string, related *Schema) *RelationSpec {
	return s.register(&RelationSpec{
		Kind:    HasMany,
		Name:    name,
		Related: related,
		ToKey:   foreignKeyFor(s.Name),
	})
}

// BelongsTo registers the inverse of HasOne/HasMany: the foreign key lives
// on the parent and references the related primary key.
func (s *Schema) BelongsTo(name string, related *Schema) *RelationSpec {
	return s.register(&RelationSpec{
		Kind:    BelongsTo,
		Name:    name,
		Related: related,
		FromKey: foreignKeyFor(related.Name),
		ToKey:   related.PrimaryKey,
	})
}

// BelongsToMany registers a many-to-many relation mediated by a pivot
// collection. The pivot collection and its key names default by convention.
func (s *Schema) BelongsToMany(name string, related *Schema) *RelationSpec {
	return s.register(&RelationSpec{
		Kind:         BelongsToMany,
		Name:         name,
		Related:      related,
		ToKey:        related.PrimaryKey,
		Pivot:        pivotCollectionFor(s, related),
		PivotFromKey: foreignKeyFor(s.Name),
		PivotToKey:   foreignKeyFor(related.Name),
	})
}

// HasManyThrough registers an indirect to-many relation reached through an
// intermediate schema: parent → through → related.
func (s *Schema) HasManyThrough(name string, related, through *Schema) *RelationSpec {
	return s.register(&RelationSpec{
		Kind:       HasManyThrough,
		Name:       name,
		Related:    related,
		Through:    through,
		ThroughKey: foreignKeyFor(s.Name),
		ToKey:      foreignKeyFor(through.Name),
	})
}

// MorphOne registers a polymorphic to-one relation. Related documents carry
// a discriminator field naming the parent model next to the foreign key.
func (s *Schema) MorphOne(name string, related *Schema) *RelationSpec {
	return s.register(&RelationSpec{
		Kind:      MorphOne,
		Name:      name,
		Related:   related,
		ToKey:     name + "Id",
		TypeField: name + "Type",
	})
}

// MorphMany registers a polymorphic to-many relation.
func (s *Schema) MorphMany(name string, related *Schema) *RelationSpec {
	return s.register(&RelationSpec{
		Kind:      MorphMany,
		Name:      name,
		Related:   related,
		ToKey:     name + "Id",
		TypeField: name + "Type",
	})
}

// MorphTo registers the inverse polymorphic relation: the parent stores
// both the related document's id and a discriminator naming its model. The
// related schema is resolved per document from the registry.
func (s *Schema) MorphTo(name string) *RelationSpec {
	return s.register(&RelationSpec{
		Kind:      MorphTo,
		Name:      name,
		FromKey:   name + "Id",
		TypeField: name + "Type",
	})
}

// EmbedsOne registers a to-one relation stored inline in a parent
// attribute. The attribute defaults to the camel-cased relation name.
func (s *Schema) EmbedsOne(name string, related *Schema) *RelationSpec {
	return s.register(&RelationSpec{
		Kind:    EmbedsOne,
		Name:    name,
		Related: related,
		ToKey:   inflect.CamelizeDownFirst(name),
	})
}

// EmbedsMany registers a to-many relation stored inline as an array in a
// parent attribute.
func (s *Schema) EmbedsMany(name string, related *Schema) *RelationSpec {
	return s.register(&RelationSpec{
		Kind:    EmbedsMany,
		Name:    name,
		Related: related,
		ToKey:   inflect.CamelizeDownFirst(name),
	})
}

// ReferMany registers a to-many relation where the parent stores an array
// of related primary keys. The array attribute defaults to the camel-cased
// relation name suffixed with "Ids".
func (s *Schema) ReferMany(name string, related *Schema) *RelationSpec {
	return s.register(&RelationSpec{
		Kind:    ReferMany,
		Name:    name,
		Related: related,
		FromKey: inflect.CamelizeDownFirst(inflect.Singularize(name)) + "Ids",
		ToKey:   related.PrimaryKey,
	})
}
