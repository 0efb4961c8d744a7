// Package core provides the fundamental building blocks of the mango ODM.
// This file implements the reference-style relation strategies: HasOne,
// HasMany, BelongsTo, and ReferMany. Reference relations store only a key
// and fetch the related collection separately, so their eager loads batch
// every grouping value into a single In query.
package core

import "context"

// fetchRelated runs one query against the related schema: the optional
// caller scope first, then the relation's own condition ANDed on top.
func (r *relation) fetchRelated(ctx context.Context, scope Scope, condition *Condition) ([]*Document, error) {
	q := NewQuery(r.spec.Related)
	if scope != nil {
		scope(q)
	}
	q.Where(condition)
	return r.relatedModel().FindMany(q).Run(ctx)
}

//
// HasOne
//

type hasOneRelation struct{ relation }

func (r *hasOneRelation) EagerLoad(ctx context.Context, values []any, scope Scope, _ []*Document) (RelationMap, error) {
	if len(values) == 0 {
		return RelationMap{}, nil
	}
	docs, err := r.fetchRelated(ctx, scope, Field(r.spec.ToKey).In(values...))
	if err != nil {
		return nil, err
	}
	loaded := RelationMap{}
	for _, doc := range docs {
		key := mapKey(doc.Get(r.spec.ToKey))
		if _, ok := loaded[key]; !ok { // to-one: first match wins
			loaded[key] = doc
		}
	}
	return loaded, nil
}

func (r *hasOneRelation) EagerLoadSingle(ctx context.Context, value any, scope Scope, _ *Document) (RelationMap, error) {
	return r.EagerLoad(ctx, []any{value}, scope, nil)
}

// Save wires the related document's foreign key to the parent and
// persists it.
func (r *hasOneRelation) Save(ctx context.Context, related *Document) (*Document, error) {
	if err := r.checkRelated(related); err != nil {
		return nil, err
	}
	if err := r.requireSavedParent(); err != nil {
		return nil, err
	}
	related.Set(r.spec.ToKey, r.parent.Get(r.spec.FromKey))
	if err := r.relatedModel().Save(ctx, related); err != nil {
		return nil, err
	}
	return related, nil
}

// Delete removes the related document referencing the parent.
func (r *hasOneRelation) Delete(ctx context.Context) error {
	if err := r.requireSavedParent(); err != nil {
		return err
	}
	return r.relatedModel().Delete(ctx, Field(r.spec.ToKey).Eq(r.parent.Get(r.spec.FromKey)))
}

//
// HasMany
//

type hasManyRelation struct{ relation }

func (r *hasManyRelation) EagerLoad(ctx context.Context, values []any, scope Scope, _ []*Document) (RelationMap, error) {
	if len(values) == 0 {
		return RelationMap{}, nil
	}
	docs, err := r.fetchRelated(ctx, scope, Field(r.spec.ToKey).In(values...))
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

func (r *hasManyRelation) EagerLoadSingle(ctx context.Context, value any, scope Scope, _ *Document) (RelationMap, error) {
	return r.EagerLoad(ctx, []any{value}, scope, nil)
}

func (r *hasManyRelation) Save(ctx context.Context, related *Document) (*Document, error) {
	if err := r.checkRelated(related); err != nil {
		return nil, err
	}
	if err := r.requireSavedParent(); err != nil {
		return nil, err
	}
	related.Set(r.spec.ToKey, r.parent.Get(r.spec.FromKey))
	if err := r.relatedModel().Save(ctx, related); err != nil {
		return nil, err
	}
	return related, nil
}

// Delete removes every related document referencing the parent.
func (r *hasManyRelation) Delete(ctx context.Context) error {
	if err := r.requireSavedParent(); err != nil {
		return err
	}
	return r.relatedModel().Delete(ctx, Field(r.spec.ToKey).Eq(r.parent.Get(r.spec.FromKey)))
}

//
// BelongsTo
//

// belongsToRelation is the inverse side: the grouping key is the foreign
// key stored on the parent, and the batched fetch resolves it against the
// related primary key.
type belongsToRelation struct{ relation }

func (r *belongsToRelation) EagerLoad(ctx context.Context, values []any, scope Scope, _ []*Document) (RelationMap, error) {
	if len(values) == 0 {
		return RelationMap{}, nil
	}
	docs, err := r.fetchRelated(ctx, scope, Field(r.spec.ToKey).In(values...))
	if err != nil {
		return nil, err
	}
	loaded := RelationMap{}
	for _, doc := range docs {
		loaded[mapKey(doc.Get(r.spec.ToKey))] = doc
	}
	return loaded, nil
}

func (r *belongsToRelation) EagerLoadSingle(ctx context.Context, value any, scope Scope, _ *Document) (RelationMap, error) {
	return r.EagerLoad(ctx, []any{value}, scope, nil)
}

// Save associates the parent with the related document: the related side
// is persisted first when new, then the parent's foreign key is updated.
func (r *belongsToRelation) Save(ctx context.Context, related *Document) (*Document, error) {
	if err := r.checkRelated(related); err != nil {
		return nil, err
	}
	if r.parent == nil {
		return nil, unsavedTargetf("belongsTo %q: no parent document bound", r.spec.Name)
	}
	relatedModel := r.relatedModel()
	if !related.exists {
		if err := relatedModel.Save(ctx, related); err != nil {
			return nil, err
		}
	}
	r.parent.Set(r.spec.FromKey, related.Get(r.spec.ToKey))
	if err := r.model.Save(ctx, r.parent); err != nil {
		return nil, err
	}
	return related, nil
}

// Delete removes the referenced related document.
func (r *belongsToRelation) Delete(ctx context.Context) error {
	if err := r.requireSavedParent(); err != nil {
		return err
	}
	return r.relatedModel().Delete(ctx, Field(r.spec.ToKey).Eq(r.parent.Get(r.spec.FromKey)))
}

//
// ReferMany
//

// referManyRelation resolves an array of related primary keys stored on
// the parent. The batched fetch uses the union of every parent's array;
// attachment filters the shared load back per parent.
type referManyRelation struct{ relation }

// keys flattens and deduplicates the id arrays across the result set.
func (r *referManyRelation) keys(results []*Document) []any {
	seen := map[any]struct{}{}
	var values []any
	for _, doc := range results {
		for _, id := range anySlice(doc.Get(r.spec.FromKey)) {
			k := mapKey(id)
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			values = append(values, id)
		}
	}
	return values
}

func (r *referManyRelation) EagerLoad(ctx context.Context, values []any, scope Scope, _ []*Document) (RelationMap, error) {
	if len(values) == 0 {
		return RelationMap{}, nil
	}
	docs, err := r.fetchRelated(ctx, scope, Field(r.spec.ToKey).In(values...))
	if err != nil {
		return nil, err
	}
	loaded := RelationMap{}
	for _, doc := range docs {
		loaded[mapKey(doc.Get(r.spec.ToKey))] = doc
	}
	return loaded, nil
}

// EagerLoadSingle fetches the documents referenced by the single parent's
// id array, keyed by the supplied value.
func (r *referManyRelation) EagerLoadSingle(ctx context.Context, value any, scope Scope, result *Document) (RelationMap, error) {
	if result == nil {
		return RelationMap{}, nil
	}
	ids := anySlice(result.Get(r.spec.FromKey))
	loaded, err := r.EagerLoad(ctx, ids, scope, nil)
	if err != nil {
		return nil, err
	}
	docs := make([]*Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := loaded[mapKey(id)].(*Document); ok {
			docs = append(docs, doc)
		}
	}
	return RelationMap{mapKey(value): docs}, nil
}

// attach resolves the parent's id array against the shared load, keeping
// the array's order.
func (r *referManyRelation) attach(doc *Document, loaded RelationMap) {
	ids := anySlice(doc.Get(r.spec.FromKey))
	docs := make([]*Document, 0, len(ids))
	for _, id := range ids {
		if related, ok := loaded[mapKey(id)].(*Document); ok {
			docs = append(docs, related)
		}
	}
	doc.SetRelated(r.spec.Name, docs)
}

// Save persists the related document when new and appends its primary key
// to the parent's id array.
func (r *referManyRelation) Save(ctx context.Context, related *Document) (*Document, error) {
	if err := r.checkRelated(related); err != nil {
		return nil, err
	}
	if err := r.requireSavedParent(); err != nil {
		return nil, err
	}
	relatedModel := r.relatedModel()
	if !related.exists {
		if err := relatedModel.Save(ctx, related); err != nil {
			return nil, err
		}
	}
	id := related.Get(r.spec.ToKey)
	ids := anySlice(r.parent.Get(r.spec.FromKey))
	for _, existing := range ids {
		if mapKey(existing) == mapKey(id) {
			return related, nil
		}
	}
	r.parent.Set(r.spec.FromKey, append(ids, id))
	if err := r.model.Save(ctx, r.parent); err != nil {
		return nil, err
	}
	return related, nil
}

// Delete clears the parent's id array. The referenced documents themselves
// are left untouched.
func (r *referManyRelation) Delete(ctx context.Context) error {
	if err := r.requireSavedParent(); err != nil {
		return err
	}
	r.parent.Set(r.spec.FromKey, []any{})
	return r.model.Save(ctx, r.parent)
}

// anySlice normalizes an attribute holding a list into []any.
func anySlice(v any) []any {
	switch tv := v.(type) {
	case nil:
		return nil
	case []any:
		return tv
	case []string:
		out := make([]any, len(tv))
		for i, s := range tv {
			out[i] = s
		}
		return out
	default:
		return []any{v}
	}
}
