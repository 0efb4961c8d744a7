// Package core provides the fundamental building blocks of the mango ODM.
// This file implements the polymorphic relation strategies: MorphOne and
// MorphMany, where the related collection stores both a key and a schema
// name discriminator, and MorphTo, the inverse side whose related schema
// is only known per document.
package core

import "context"

//
// MorphOne
//

type morphOneRelation struct{ relation }

// EagerLoad batches the related fetch with the discriminator pinned to the
// parent schema, so rows owned by other schemas never leak in.
func (r *morphOneRelation) EagerLoad(ctx context.Context, values []any, scope Scope, _ []*Document) (RelationMap, error) {
	if len(values) == 0 {
		return RelationMap{}, nil
	}
	docs, err := r.fetchRelated(ctx, scope, Field(r.spec.TypeField).Eq(r.spec.Parent.Name).And(
		Field(r.spec.ToKey).In(values...),
	))
	if err != nil {
		return nil, err
	}
	loaded := RelationMap{}
	for _, doc := range docs {
		key := mapKey(doc.Get(r.spec.ToKey))
		if _, ok := loaded[key]; !ok {
			loaded[key] = doc
		}
	}
	return loaded, nil
}

func (r *morphOneRelation) EagerLoadSingle(ctx context.Context, value any, scope Scope, _ *Document) (RelationMap, error) {
	return r.EagerLoad(ctx, []any{value}, scope, nil)
}

// Save wires the related document's key and discriminator to the parent
// and persists it.
func (r *morphOneRelation) Save(ctx context.Context, related *Document) (*Document, error) {
	if err := r.checkRelated(related); err != nil {
		return nil, err
	}
	if err := r.requireSavedParent(); err != nil {
		return nil, err
	}
	related.Set(r.spec.ToKey, r.parent.Get(r.spec.FromKey))
	related.Set(r.spec.TypeField, r.spec.Parent.Name)
	if err := r.relatedModel().Save(ctx, related); err != nil {
		return nil, err
	}
	return related, nil
}

// Delete removes the related document owned by the parent.
func (r *morphOneRelation) Delete(ctx context.Context) error {
	if err := r.requireSavedParent(); err != nil {
		return err
	}
	return r.relatedModel().Delete(ctx, Field(r.spec.TypeField).Eq(r.spec.Parent.Name).And(
		Field(r.spec.ToKey).Eq(r.parent.Get(r.spec.FromKey)),
	))
}

//
// MorphMany
//

type morphManyRelation struct{ relation }

func (r *morphManyRelation) EagerLoad(ctx context.Context, values []any, scope Scope, _ []*Document) (RelationMap, error) {
	if len(values) == 0 {
		return RelationMap{}, nil
	}
	docs, err := r.fetchRelated(ctx, scope, Field(r.spec.TypeField).Eq(r.spec.Parent.Name).And(
		Field(r.spec.ToKey).In(values...),
	))
	if err != nil {
		return nil, err
	}
	loaded := RelationMap{}
	for _, doc := range docs {
		key := mapKey(doc.Get(r.spec.ToKey))
		group, _ := loaded[key].([]*Document)
		loaded[key] = append(group, doc)
	}
	return loaded, nil
}

func (r *morphManyRelation) EagerLoadSingle(ctx context.Context, value any, scope Scope, _ *Document) (RelationMap, error) {
	return r.EagerLoad(ctx, []any{value}, scope, nil)
}

func (r *morphManyRelation) Save(ctx context.Context, related *Document) (*Document, error) {
	if err := r.checkRelated(related); err != nil {
		return nil, err
	}
	if err := r.requireSavedParent(); err != nil {
		return nil, err
	}
	related.Set(r.spec.ToKey, r.parent.Get(r.spec.FromKey))
	related.Set(r.spec.TypeField, r.spec.Parent.Name)
	if err := r.relatedModel().Save(ctx, related); err != nil {
		return nil, err
	}
	return related, nil
}

// Delete removes every related document owned by the parent.
func (r *morphManyRelation) Delete(ctx context.Context) error {
	if err := r.requireSavedParent(); err != nil {
		return err
	}
	return r.relatedModel().Delete(ctx, Field(r.spec.TypeField).Eq(r.spec.Parent.Name).And(
		Field(r.spec.ToKey).Eq(r.parent.Get(r.spec.FromKey)),
	))
}

//
// MorphTo
//

// morphToRelation is the inverse polymorphic side: each parent stores the
// related key and the schema name it points at, so one batched query is
// issued per distinct schema name in the result set.
type morphToRelation struct{ relation }

// morphKey combines the discriminator and the key value into one
// comparable grouping key.
func morphKey(typeName any, id any) any {
	name, _ := typeName.(string)
	return [2]any{name, mapKey(id)}
}

// keys is unused for MorphTo; grouping needs the result documents, which
// EagerLoad receives directly.
func (r *morphToRelation) keys(results []*Document) []any { return nil }

func (r *morphToRelation) EagerLoad(ctx context.Context, _ []any, scope Scope, results []*Document) (RelationMap, error) {
	idsByType := map[string][]any{}
	for _, doc := range results {
		typeName, _ := doc.Get(r.spec.TypeField).(string)
		id := doc.Get(r.spec.FromKey)
		if typeName == "" || id == nil {
			continue
		}
		seen := false
		for _, existing := range idsByType[typeName] {
			if mapKey(existing) == mapKey(id) {
				seen = true
				break
			}
		}
		if !seen {
			idsByType[typeName] = append(idsByType[typeName], id)
		}
	}

	loaded := RelationMap{}
	for typeName, ids := range idsByType {
		schema := lookupSchema(typeName)
		if schema == nil {
			return nil, invalidArgumentf("morphTo %q: no schema registered as %q", r.spec.Name, typeName)
		}
		q := NewQuery(schema)
		if scope != nil {
			scope(q)
		}
		q.Where(Field(schema.PrimaryKey).In(ids...))
		docs, err := r.model.forSchema(schema).FindMany(q).Run(ctx)
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			loaded[morphKey(typeName, doc.Get(schema.PrimaryKey))] = doc
		}
	}
	return loaded, nil
}

// EagerLoadSingle resolves the relation for one parent document, keyed by
// the supplied value.
func (r *morphToRelation) EagerLoadSingle(ctx context.Context, value any, scope Scope, result *Document) (RelationMap, error) {
	if result == nil {
		return RelationMap{}, nil
	}
	loaded, err := r.EagerLoad(ctx, nil, scope, []*Document{result})
	if err != nil {
		return nil, err
	}
	key := morphKey(result.Get(r.spec.TypeField), result.Get(r.spec.FromKey))
	out := RelationMap{}
	if doc, ok := loaded[key]; ok {
		out[mapKey(value)] = doc
	}
	return out, nil
}

// attach resolves the parent's discriminator and key against the shared
// load.
func (r *morphToRelation) attach(doc *Document, loaded RelationMap) {
	key := morphKey(doc.Get(r.spec.TypeField), doc.Get(r.spec.FromKey))
	if data, ok := loaded[key]; ok {
		doc.SetRelated(r.spec.Name, data)
	}
}

// Save associates the parent with a document of any registered schema: the
// related side is persisted first when new, then the parent's key and
// discriminator are updated.
func (r *morphToRelation) Save(ctx context.Context, related *Document) (*Document, error) {
	if related == nil || related.schema == nil {
		return nil, relationMismatchf("morphTo %q expects a schema-bound document", r.spec.Name)
	}
	if r.parent == nil {
		return nil, unsavedTargetf("morphTo %q: no parent document bound", r.spec.Name)
	}
	relatedModel := r.model.forSchema(related.schema)
	if !related.exists {
		if err := relatedModel.Save(ctx, related); err != nil {
			return nil, err
		}
	}
	r.parent.Set(r.spec.FromKey, related.Get(related.schema.PrimaryKey))
	r.parent.Set(r.spec.TypeField, related.schema.Name)
	if err := r.model.Save(ctx, r.parent); err != nil {
		return nil, err
	}
	return related, nil
}

// Delete removes the document the parent currently points at.
func (r *morphToRelation) Delete(ctx context.Context) error {
	if err := r.requireSavedParent(); err != nil {
		return err
	}
	typeName, _ := r.parent.Get(r.spec.TypeField).(string)
	id := r.parent.Get(r.spec.FromKey)
	if typeName == "" || id == nil {
		return nil
	}
	schema := lookupSchema(typeName)
	if schema == nil {
		return invalidArgumentf("morphTo %q: no schema registered as %q", r.spec.Name, typeName)
	}
	return r.model.forSchema(schema).Delete(ctx, Field(schema.PrimaryKey).Eq(id))
}
