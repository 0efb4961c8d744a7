// Package core provides the fundamental building blocks of the mango ODM.
// This file implements the mediated relation strategies: BelongsToMany,
// which joins two collections through a pivot collection, and
// HasManyThrough, which reaches the related collection via an intermediate
// schema. Both resolve in a fixed number of queries per eager load,
// independent of the parent result set size.
package core

import "context"

//
// BelongsToMany
//

type belongsToManyRelation struct{ relation }

// EagerLoad fetches the pivot rows for every parent key, then the related
// documents referenced by those rows, and groups the related documents
// back per parent key.
func (r *belongsToManyRelation) EagerLoad(ctx context.Context, values []any, scope Scope, _ []*Document) (RelationMap, error) {
	if len(values) == 0 {
		return RelationMap{}, nil
	}
	pivotNS := r.model.pivotNamespace(r.spec.Pivot)
	pivotRows, err := r.model.driver.FindMany(ctx, pivotNS, &Where{
		Condition: Field(r.spec.PivotFromKey).In(values...),
	})
	if err != nil {
		return nil, err
	}
	if len(pivotRows) == 0 {
		return RelationMap{}, nil
	}

	seen := map[any]struct{}{}
	relatedIDs := make([]any, 0, len(pivotRows))
	for _, row := range pivotRows {
		id := row[r.spec.PivotToKey]
		if id == nil {
			continue
		}
		k := mapKey(id)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		relatedIDs = append(relatedIDs, id)
	}

	docs, err := r.fetchRelated(ctx, scope, Field(r.spec.ToKey).In(relatedIDs...))
	if err != nil {
		return nil, err
	}
	byID := make(map[any]*Document, len(docs))
	for _, doc := range docs {
		byID[mapKey(doc.Get(r.spec.ToKey))] = doc
	}

	loaded := RelationMap{}
	for _, row := range pivotRows {
		doc, ok := byID[mapKey(row[r.spec.PivotToKey])]
		if !ok {
			continue
		}
		key := mapKey(row[r.spec.PivotFromKey])
		group, _ := loaded[key].([]*Document)
		loaded[key] = append(group, doc)
	}
	return loaded, nil
}

func (r *belongsToManyRelation) EagerLoadSingle(ctx context.Context, value any, scope Scope, _ *Document) (RelationMap, error) {
	return r.EagerLoad(ctx, []any{value}, scope, nil)
}

// Save persists the related document when new and inserts a pivot row
// linking it to the parent. An existing link is not duplicated.
func (r *belongsToManyRelation) Save(ctx context.Context, related *Document) (*Document, error) {
	if err := r.checkRelated(related); err != nil {
		return nil, err
	}
	if err := r.requireSavedParent(); err != nil {
		return nil, err
	}
	if !related.exists {
		if err := r.relatedModel().Save(ctx, related); err != nil {
			return nil, err
		}
	}
	parentKey := r.parent.Get(r.spec.FromKey)
	relatedKey := related.Get(r.spec.ToKey)
	pivotNS := r.model.pivotNamespace(r.spec.Pivot)
	existing, err := r.model.driver.Count(ctx, pivotNS, Field(r.spec.PivotFromKey).Eq(parentKey).And(
		Field(r.spec.PivotToKey).Eq(relatedKey),
	))
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return related, nil
	}
	err = r.model.driver.Insert(ctx, pivotNS, map[string]any{
		r.spec.PivotFromKey: parentKey,
		r.spec.PivotToKey:   relatedKey,
	})
	if err != nil {
		return nil, err
	}
	return related, nil
}

// Delete detaches every related document by removing the parent's pivot
// rows. The related documents themselves are left untouched.
func (r *belongsToManyRelation) Delete(ctx context.Context) error {
	if err := r.requireSavedParent(); err != nil {
		return err
	}
	pivotNS := r.model.pivotNamespace(r.spec.Pivot)
	return r.model.driver.Delete(ctx, pivotNS, Field(r.spec.PivotFromKey).Eq(r.parent.Get(r.spec.FromKey)))
}

//
// HasManyThrough
//

// hasManyThroughRelation reaches the related collection via an
// intermediate schema: the through documents reference the parent, and
// the related documents reference the through documents.
type hasManyThroughRelation struct{ relation }

func (r *hasManyThroughRelation) EagerLoad(ctx context.Context, values []any, scope Scope, _ []*Document) (RelationMap, error) {
	if len(values) == 0 {
		return RelationMap{}, nil
	}
	throughModel := r.model.forSchema(r.spec.Through)
	throughRows, err := r.model.driver.FindMany(ctx, throughModel.namespace(), &Where{
		Condition: Field(r.spec.ThroughKey).In(values...),
	})
	if err != nil {
		return nil, err
	}
	if len(throughRows) == 0 {
		return RelationMap{}, nil
	}

	parentByThrough := map[any]any{}
	throughIDs := make([]any, 0, len(throughRows))
	for _, row := range throughRows {
		id := row[r.spec.Through.PrimaryKey]
		if id == nil {
			continue
		}
		parentByThrough[mapKey(id)] = row[r.spec.ThroughKey]
		throughIDs = append(throughIDs, id)
	}

	docs, err := r.fetchRelated(ctx, scope, Field(r.spec.ToKey).In(throughIDs...))
	if err != nil {
		return nil, err
	}
	loaded := RelationMap{}
	for _, doc := range docs {
		parentKey, ok := parentByThrough[mapKey(doc.Get(r.spec.ToKey))]
		if !ok {
			continue
		}
		key := mapKey(parentKey)
		group, _ := loaded[key].([]*Document)
		loaded[key] = append(group, doc)
	}
	return loaded, nil
}

func (r *hasManyThroughRelation) EagerLoadSingle(ctx context.Context, value any, scope Scope, _ *Document) (RelationMap, error) {
	return r.EagerLoad(ctx, []any{value}, scope, nil)
}

// Save is not supported: the intermediate document owns both links, so a
// direct write through the relation would be ambiguous.
func (r *hasManyThroughRelation) Save(ctx context.Context, related *Document) (*Document, error) {
	return nil, invalidArgumentf("hasManyThrough %q: save through the %s schema instead",
		r.spec.Name, r.spec.Through.Name)
}

// Delete is not supported for the same reason as Save.
func (r *hasManyThroughRelation) Delete(ctx context.Context) error {
	return invalidArgumentf("hasManyThrough %q: delete through the %s schema instead",
		r.spec.Name, r.spec.Through.Name)
}
