// Package core provides the fundamental building blocks of the mango ODM.
// This file defines the Model, the entry point for working with a specific
// schema. A Model handles persistence, queries, relations, hooks,
// soft-deletes, collection prefixing, and event emission.
package core

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Model represents a repository-like abstraction over one schema.
//
// It binds a Schema to a Driver and exposes high-level operations such as
// Create, Save, Update, Delete, FindOne, FindMany, Count, Paginate, and
// Chunk. Models are cheap value-like objects: the With*/Collection methods
// return adjusted copies, never mutate the receiver.
type Model struct {
	schema     *Schema
	driver     Driver
	prefix     string
	noPrefix   bool
	collection string // overrides the schema collection when set
	database   string // overrides the schema database when set
}

// NewModel creates a new Model bound to a schema and driver.
//
// Example:
//
//	userModel := core.NewModel(userSchema, driver)
func NewModel(schema *Schema, driver Driver) *Model {
	return &Model{schema: schema, driver: driver}
}

// Schema returns the schema this model operates on.
func (m *Model) Schema() *Schema { return m.schema }

// Driver returns the underlying driver handle.
func (m *Model) Driver() Driver { return m.driver }

// clone returns a shallow copy for the With* builder methods.
func (m *Model) clone() *Model {
	c := *m
	return &c
}

// WithPrefix returns a model that prepends the given prefix to every
// collection name it targets.
func (m *Model) WithPrefix(prefix string) *Model {
	c := m.clone()
	c.prefix = prefix
	c.noPrefix = false
	return c
}

// WithoutPrefix returns a model with collection prefixing suppressed.
func (m *Model) WithoutPrefix() *Model {
	c := m.clone()
	c.noPrefix = true
	return c
}

// Collection returns a model targeting the given collection instead of the
// schema's conventional one. The configured prefix still applies.
func (m *Model) Collection(name string) *Model {
	c := m.clone()
	c.collection = name
	return c
}

// From is an alias of Collection, reading naturally in queries.
func (m *Model) From(name string) *Model { return m.Collection(name) }

// Into is an alias of Collection, reading naturally in writes.
func (m *Model) Into(name string) *Model { return m.Collection(name) }

// WithTenant returns a model bound to a different database name. This is
// useful for multi-tenant or sharded architectures.
func (m *Model) WithTenant(database string) *Model {
	c := m.clone()
	c.database = database
	return c
}

// forSchema returns a model for another schema sharing this model's
// connection, prefix, and tenant settings. Used by the relation engine.
func (m *Model) forSchema(schema *Schema) *Model {
	c := m.clone()
	c.schema = schema
	c.collection = ""
	return c
}

// namespace resolves the fully qualified operation target, applying the
// collection prefix unless suppressed.
func (m *Model) namespace() Namespace {
	collection := m.collection
	if collection == "" {
		collection = m.schema.Collection
	}
	if m.prefix != "" && !m.noPrefix && !strings.HasPrefix(collection, m.prefix) {
		collection = m.prefix + collection
	}
	database := m.database
	if database == "" {
		database = m.schema.Database
	}
	return Namespace{Database: database, Collection: collection}
}

// pivotNamespace resolves a pivot collection through the same prefix and
// tenant rules as the model's own collection.
func (m *Model) pivotNamespace(collection string) Namespace {
	ns := m.namespace()
	if m.prefix != "" && !m.noPrefix && !strings.HasPrefix(collection, m.prefix) {
		collection = m.prefix + collection
	}
	ns.Collection = collection
	return ns
}

// Query starts a new query for this model's schema.
func (m *Model) Query() *Query { return NewQuery(m.schema) }

// New creates a fresh, unpersisted document for this model's schema.
func (m *Model) New(attributes map[string]any) *Document {
	return NewDocument(m.schema, attributes)
}

// Relation returns the named relation strategy bound to the given parent
// document. The parent may be nil for read-only (eager load) use.
func (m *Model) Relation(name string, parent *Document) (Relation, error) {
	spec := m.schema.Relation(name)
	if spec == nil {
		return nil, invalidArgumentf("schema %s has no relation %q", m.schema.Name, name)
	}
	return newRelation(spec, m, parent), nil
}

// withSoftDelete applies soft-delete filtering rules to a query. It
// automatically excludes deleted documents unless WithTrashed or
// OnlyTrashed is set in the query options.
func (m *Model) withSoftDelete(where *Where) *Where {
	if where == nil || m.schema.DeletedAtField == "" {
		return where
	}
	eff := *where // shallow copy
	field := m.schema.DeletedAtField

	if where.OnlyTrashed {
		eff.Condition = foldConditionsAnd(
			where.Condition,
			Field(field).Nil().Not(),
		)
		return &eff
	}
	if !where.WithTrashed {
		eff.Condition = foldConditionsAnd(
			where.Condition,
			Field(field).Nil(),
		)
	}
	return &eff
}

// runPre executes all registered PreHooks for the given operation.
func (m *Model) runPre(hook PreHook, doc *Document) error {
	for _, fn := range m.schema.preHooks[hook] {
		if err := fn(doc); err != nil {
			return err
		}
	}
	return nil
}

// runPost executes all registered PostHooks for the given operation.
func (m *Model) runPost(hook PostHook, doc *Document) error {
	for _, fn := range m.schema.postHooks[hook] {
		if err := fn(doc); err != nil {
			return err
		}
	}
	return nil
}

// Create inserts a new document.
//
// It assigns a generated primary key when none is set, maintains the
// createdAt/updatedAt fields declared by the schema, executes PreInsert
// hooks, performs the insert via the driver, executes PostInsert hooks,
// and emits an EventInsert.
func (m *Model) Create(ctx context.Context, doc *Document) error {
	return dispatchOperation(ctx, OperationInsert, doc, func() error {
		now := time.Now()
		if m.schema.CreatedAtField != "" {
			doc.Set(m.schema.CreatedAtField, now)
		}
		if m.schema.UpdatedAtField != "" {
			doc.Set(m.schema.UpdatedAtField, now)
		}
		if err := m.runPre(PreInsert, doc); err != nil {
			return err
		}
		if doc.Get(m.schema.PrimaryKey) == nil {
			doc.Set(m.schema.PrimaryKey, uuid.NewString())
		}
		if err := m.driver.Insert(ctx, m.namespace(), doc.attributes); err != nil {
			return err
		}
		doc.syncOriginal()
		if err := m.runPost(PostInsert, doc); err != nil {
			return err
		}
		Emit(EventInsert, InsertPayload{Schema: m.schema, Doc: doc})
		return nil
	})
}

// Save persists the document: an insert when it was never saved, otherwise
// an update of the dirty fields. Saving a clean, persisted document is a
// no-op.
func (m *Model) Save(ctx context.Context, doc *Document) error {
	if !doc.exists {
		return m.Create(ctx, doc)
	}
	dirty := doc.Dirty()
	if len(dirty) == 0 {
		return nil
	}
	condition := Field(m.schema.PrimaryKey).Eq(doc.PrimaryValue())
	if err := m.Update(ctx, condition, dirty); err != nil {
		return err
	}
	// Update stamped updatedAt into the changes; keep the document in step
	// with the stored row.
	if m.schema.UpdatedAtField != "" {
		if stamped, ok := dirty[m.schema.UpdatedAtField]; ok {
			doc.Set(m.schema.UpdatedAtField, stamped)
		}
	}
	doc.syncOriginal()
	return nil
}

// Update applies changes to documents matching a condition.
//
// It maintains the updatedAt field declared by the schema, performs the
// update via the driver, and emits an EventUpdate.
func (m *Model) Update(ctx context.Context, condition *Condition, changes Changes) error {
	return dispatchOperation(ctx, OperationUpdate, changes, func() error {
		if m.schema.UpdatedAtField != "" {
			changes[m.schema.UpdatedAtField] = time.Now()
		}
		if err := m.driver.Update(ctx, m.namespace(), condition, changes); err != nil {
			return err
		}
		Emit(EventUpdate, UpdatePayload{Schema: m.schema, Condition: condition, Changes: changes})
		return nil
	})
}

// Delete removes documents matching a condition.
//
// If soft deletes are enabled it sets the deletedAt timestamp instead of
// physically removing documents. An EventUpdate or EventDelete is emitted
// depending on the strategy used.
func (m *Model) Delete(ctx context.Context, condition *Condition) error {
	return dispatchOperation(ctx, OperationDelete, condition, func() error {
		if m.schema.DeletedAtField != "" {
			changes := Changes{m.schema.DeletedAtField: time.Now()}
			if err := m.driver.Update(ctx, m.namespace(), condition, changes); err != nil {
				return err
			}
			Emit(EventUpdate, UpdatePayload{Schema: m.schema, Condition: condition, Changes: changes})
			return nil
		}
		if err := m.driver.Delete(ctx, m.namespace(), condition); err != nil {
			return err
		}
		Emit(EventDelete, DeletePayload{Schema: m.schema, Condition: condition})
		return nil
	})
}

// Count returns the number of documents matching the query, applying
// soft-delete rules automatically.
func (m *Model) Count(ctx context.Context, q *Query) (int64, error) {
	where := m.withSoftDelete(q.where)
	var count int64
	err := dispatchOperation(ctx, OperationFind, q, func() error {
		var err error
		count, err = m.driver.Count(ctx, m.namespace(), safeWhere(where).Condition)
		return err
	})
	return count, err
}

// FindOneOp is a pending FindOne operation, allowing relations to be
// requested before execution.
type FindOneOp struct {
	model     *Model
	query     *Query
	relations []string
	scopes    map[string]Scope
}

// FindOne prepares a query for a single document.
func (m *Model) FindOne(q *Query) *FindOneOp {
	return &FindOneOp{model: m, query: q}
}

// With requests eager loading of the named relations.
func (op *FindOneOp) With(names ...string) *FindOneOp {
	op.relations = append(op.relations, names...)
	return op
}

// WithScope requests eager loading of a relation with a query scope
// applied to the related fetch.
func (op *FindOneOp) WithScope(name string, scope Scope) *FindOneOp {
	if op.scopes == nil {
		op.scopes = map[string]Scope{}
	}
	op.relations = append(op.relations, name)
	op.scopes[name] = scope
	return op
}

// Run executes the operation.
func (op *FindOneOp) Run(ctx context.Context) (*Document, error) {
	return op.model.findOneInternal(ctx, op.query, op.relations, op.scopes)
}

// FindManyOp is a pending FindMany operation, allowing relations to be
// requested before execution.
type FindManyOp struct {
	model     *Model
	query     *Query
	relations []string
	scopes    map[string]Scope
}

// FindMany prepares a query for multiple documents.
func (m *Model) FindMany(q *Query) *FindManyOp {
	return &FindManyOp{model: m, query: q}
}

// With requests eager loading of the named relations.
func (op *FindManyOp) With(names ...string) *FindManyOp {
	op.relations = append(op.relations, names...)
	return op
}

// WithScope requests eager loading of a relation with a query scope
// applied to the related fetch.
func (op *FindManyOp) WithScope(name string, scope Scope) *FindManyOp {
	if op.scopes == nil {
		op.scopes = map[string]Scope{}
	}
	op.relations = append(op.relations, name)
	op.scopes[name] = scope
	return op
}

// Run executes the operation.
func (op *FindManyOp) Run(ctx context.Context) ([]*Document, error) {
	return op.model.findManyInternal(ctx, op.query, op.relations, op.scopes)
}

// findOneInternal executes PreFind hooks, applies soft-delete rules, runs
// the driver query, hydrates the document, eager-loads the requested
// relations, executes PostFind hooks, and emits an EventFind.
func (m *Model) findOneInternal(ctx context.Context, q *Query, relations []string, scopes map[string]Scope) (*Document, error) {
	if err := m.runPre(PreFind, nil); err != nil {
		return nil, err
	}
	where := m.withSoftDelete(q.where)

	var result *Document
	err := dispatchOperation(ctx, OperationFind, q, func() error {
		row, err := m.driver.FindOne(ctx, m.namespace(), where)
		if err != nil || row == nil {
			return err
		}
		doc := hydrate(m.schema, row)
		if len(relations) > 0 {
			loader := &EagerLoader{Model: m}
			if err := loader.LoadOne(ctx, doc, relations, scopes); err != nil {
				return err
			}
		}
		if err := m.runPost(PostFind, doc); err != nil {
			return err
		}
		Emit(EventFind, FindPayload{Schema: m.schema, Where: where, Docs: []*Document{doc}})
		result = doc
		return nil
	})
	return result, err
}

// findManyInternal is the multi-document variant of findOneInternal. The
// requested relations are resolved in one batched fetch each, regardless
// of the number of documents returned.
func (m *Model) findManyInternal(ctx context.Context, q *Query, relations []string, scopes map[string]Scope) ([]*Document, error) {
	if err := m.runPre(PreFind, nil); err != nil {
		return nil, err
	}
	where := m.withSoftDelete(q.where)

	var results []*Document
	err := dispatchOperation(ctx, OperationFind, q, func() error {
		rows, err := m.driver.FindMany(ctx, m.namespace(), where)
		if err != nil {
			return err
		}
		docs := make([]*Document, 0, len(rows))
		for _, row := range rows {
			docs = append(docs, hydrate(m.schema, row))
		}
		if len(relations) > 0 {
			loader := &EagerLoader{Model: m}
			if err := loader.Load(ctx, docs, relations, scopes); err != nil {
				return err
			}
		}
		for _, doc := range docs {
			if err := m.runPost(PostFind, doc); err != nil {
				return err
			}
		}
		Emit(EventFind, FindPayload{Schema: m.schema, Where: where, Docs: docs})
		results = docs
		return nil
	})
	return results, err
}

// safeWhere guards against nil query envelopes.
func safeWhere(where *Where) *Where {
	if where == nil {
		return &Where{}
	}
	return where
}
