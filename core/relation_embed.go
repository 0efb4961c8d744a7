// Package core provides the fundamental building blocks of the mango ODM.
// This file implements the embedded relation strategies: EmbedsOne and
// EmbedsMany, whose related data lives inside the parent document itself.
// Loading them never issues a query; writes persist by saving the parent.
package core

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

//
// EmbedsOne
//

type embedsOneRelation struct{ relation }

// embeddedDocument materializes an embedded attribute map as a persisted
// document of the related schema.
func embeddedDocument(schema *Schema, raw any) *Document {
	attrs, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	return hydrate(schema, attrs)
}

// EagerLoad materializes the embedded data already present on each result.
// The scope, when given, is applied to a related query that is never
// executed; embedded data cannot be filtered server-side.
func (r *embedsOneRelation) EagerLoad(ctx context.Context, _ []any, scope Scope, results []*Document) (RelationMap, error) {
	if scope != nil {
		scope(NewQuery(r.spec.Related))
	}
	loaded := RelationMap{}
	for _, doc := range results {
		key := doc.Get(r.spec.FromKey)
		if key == nil {
			continue
		}
		if embedded := embeddedDocument(r.spec.Related, doc.Get(r.spec.ToKey)); embedded != nil {
			loaded[mapKey(key)] = embedded
		}
	}
	return loaded, nil
}

func (r *embedsOneRelation) EagerLoadSingle(ctx context.Context, value any, scope Scope, result *Document) (RelationMap, error) {
	if scope != nil {
		scope(NewQuery(r.spec.Related))
	}
	loaded := RelationMap{}
	if result != nil {
		if embedded := embeddedDocument(r.spec.Related, result.Get(r.spec.ToKey)); embedded != nil {
			loaded[mapKey(value)] = embedded
		}
	}
	return loaded, nil
}

// Save writes the related document into the parent's embedded field and
// persists the parent. A missing related primary key is assigned a
// generated id first, so embedded documents stay addressable.
func (r *embedsOneRelation) Save(ctx context.Context, related *Document) (*Document, error) {
	if err := r.checkRelated(related); err != nil {
		return nil, err
	}
	if err := r.requireSavedParent(); err != nil {
		return nil, err
	}
	if isZeroValue(r.parent.Get(r.spec.FromKey)) {
		slog.Warn("embedded save on a parent with an empty key",
			"relation", r.spec.Name,
			"schema", r.spec.Parent.Name,
			"key", r.spec.FromKey)
	}
	if related.Get(r.spec.Related.PrimaryKey) == nil {
		related.Set(r.spec.Related.PrimaryKey, uuid.NewString())
	}
	r.parent.Set(r.spec.ToKey, related.ToMap())
	if err := r.model.Save(ctx, r.parent); err != nil {
		return nil, err
	}
	related.syncOriginal()
	return related, nil
}

// Delete clears the parent's embedded field and persists the parent.
func (r *embedsOneRelation) Delete(ctx context.Context) error {
	if err := r.requireSavedParent(); err != nil {
		return err
	}
	r.parent.Set(r.spec.ToKey, nil)
	return r.model.Save(ctx, r.parent)
}

//
// EmbedsMany
//

type embedsManyRelation struct{ relation }

// embeddedDocuments materializes an embedded array attribute as persisted
// documents of the related schema. Non-map entries are skipped.
func embeddedDocuments(schema *Schema, raw any) []*Document {
	entries, ok := raw.([]any)
	if !ok {
		return nil
	}
	docs := make([]*Document, 0, len(entries))
	for _, entry := range entries {
		if doc := embeddedDocument(schema, entry); doc != nil {
			docs = append(docs, doc)
		}
	}
	return docs
}

func (r *embedsManyRelation) EagerLoad(ctx context.Context, _ []any, scope Scope, results []*Document) (RelationMap, error) {
	if scope != nil {
		scope(NewQuery(r.spec.Related))
	}
	loaded := RelationMap{}
	for _, doc := range results {
		key := doc.Get(r.spec.FromKey)
		if key == nil {
			continue
		}
		loaded[mapKey(key)] = embeddedDocuments(r.spec.Related, doc.Get(r.spec.ToKey))
	}
	return loaded, nil
}

func (r *embedsManyRelation) EagerLoadSingle(ctx context.Context, value any, scope Scope, result *Document) (RelationMap, error) {
	if scope != nil {
		scope(NewQuery(r.spec.Related))
	}
	loaded := RelationMap{}
	if result != nil {
		loaded[mapKey(value)] = embeddedDocuments(r.spec.Related, result.Get(r.spec.ToKey))
	}
	return loaded, nil
}

// Save upserts the related document into the parent's embedded array,
// matching entries by the related primary key, and persists the parent.
func (r *embedsManyRelation) Save(ctx context.Context, related *Document) (*Document, error) {
	if err := r.checkRelated(related); err != nil {
		return nil, err
	}
	if err := r.requireSavedParent(); err != nil {
		return nil, err
	}
	if isZeroValue(r.parent.Get(r.spec.FromKey)) {
		slog.Warn("embedded save on a parent with an empty key",
			"relation", r.spec.Name,
			"schema", r.spec.Parent.Name,
			"key", r.spec.FromKey)
	}
	pk := r.spec.Related.PrimaryKey
	if related.Get(pk) == nil {
		related.Set(pk, uuid.NewString())
	}

	entries := anySlice(r.parent.Get(r.spec.ToKey))
	replaced := false
	for i, entry := range entries {
		attrs, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if mapKey(attrs[pk]) == mapKey(related.Get(pk)) {
			entries[i] = related.ToMap()
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, related.ToMap())
	}
	r.parent.Set(r.spec.ToKey, entries)
	if err := r.model.Save(ctx, r.parent); err != nil {
		return nil, err
	}
	related.syncOriginal()
	return related, nil
}

// Delete clears the parent's embedded array and persists the parent.
func (r *embedsManyRelation) Delete(ctx context.Context) error {
	if err := r.requireSavedParent(); err != nil {
		return err
	}
	r.parent.Set(r.spec.ToKey, nil)
	return r.model.Save(ctx, r.parent)
}

// isZeroValue reports whether an attribute value is absent or the zero of
// its scalar type.
func isZeroValue(v any) bool {
	switch tv := v.(type) {
	case nil:
		return true
	case string:
		return tv == ""
	case bool:
		return !tv
	case int:
		return tv == 0
	case int32:
		return tv == 0
	case int64:
		return tv == 0
	case float32:
		return tv == 0
	case float64:
		return tv == 0
	default:
		return false
	}
}
