// Package core provides the fundamental building blocks of the mango ODM.
// This file implements the eager loader, which resolves requested relations
// for a result set. Each relation is loaded with a fixed number of batched
// queries, independent of the number of documents in the result set, and
// the loaded data is attached per document as transient side data.
package core

import "context"

// EagerLoader resolves relations for documents fetched through a model.
type EagerLoader struct {
	Model *Model
}

// Load resolves the named relations for the whole result set. Relations
// are loaded in request order; the first failure aborts the load and no
// data from the failed relation is attached.
func (l *EagerLoader) Load(ctx context.Context, docs []*Document, relations []string, scopes map[string]Scope) error {
	if len(docs) == 0 {
		return nil
	}
	for _, name := range relations {
		rel, err := l.Model.Relation(name, nil)
		if err != nil {
			return err
		}
		loaded, err := rel.EagerLoad(ctx, rel.keys(docs), scopes[name], docs)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			rel.attach(doc, loaded)
		}
	}
	return nil
}

// LoadOne resolves the named relations for a single document.
func (l *EagerLoader) LoadOne(ctx context.Context, doc *Document, relations []string, scopes map[string]Scope) error {
	if doc == nil {
		return nil
	}
	return l.Load(ctx, []*Document{doc}, relations, scopes)
}
