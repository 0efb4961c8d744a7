// Package core provides the fundamental building blocks of the mango ODM.
// This file implements the schema builder: collection lifecycle operations
// and the Blueprint, which batches index declarations and applies them in
// order. Field-level declarations are accepted for migration compatibility
// but are inert on a schemaless document database.
package core

import "context"

// Blueprint collects index changes for one collection. Creates and drops
// are applied by Build in declaration order: all creates first, then all
// drops.
type Blueprint struct {
	model   *Model
	creates []IndexDeclaration
	drops   []string
	err     error
}

// Blueprint starts an index change set for this model's collection.
func (m *Model) Blueprint() *Blueprint {
	return &Blueprint{model: m}
}

// Index declares a named secondary index over the given keys. Options
// carries driver options such as "unique" or "sparse"; the index name is
// always set.
//
// A missing name or an empty key list fails the whole change set with
// ErrInvalidArgument when Build runs.
func (b *Blueprint) Index(name string, keys []Sort, options map[string]any) *Blueprint {
	if name == "" {
		b.fail(invalidArgumentf("index declaration requires a name"))
		return b
	}
	if len(keys) == 0 {
		b.fail(invalidArgumentf("index %q declares no keys", name))
		return b
	}
	opts := make(map[string]any, len(options)+1)
	for k, v := range options {
		opts[k] = v
	}
	opts["name"] = name
	b.creates = append(b.creates, IndexDeclaration{Keys: keys, Options: opts})
	return b
}

// Unique declares a named unique index over the given keys.
func (b *Blueprint) Unique(name string, keys ...Sort) *Blueprint {
	return b.Index(name, keys, map[string]any{"unique": true})
}

// DropIndex schedules removal of a named index.
func (b *Blueprint) DropIndex(name string) *Blueprint {
	if name == "" {
		b.fail(invalidArgumentf("index drop requires a name"))
		return b
	}
	b.drops = append(b.drops, name)
	return b
}

// Field declares a document field. Collections are schemaless, so the
// declaration carries no effect; it exists so migrations written against
// relational builders keep reading naturally.
func (b *Blueprint) Field(name, kind string) *Blueprint { return b }

// Timestamps declares createdAt/updatedAt fields. Inert, like Field.
func (b *Blueprint) Timestamps() *Blueprint { return b }

func (b *Blueprint) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Build applies the collected changes: every declared index is created in
// order, then every scheduled drop runs. A recorded validation error
// aborts before anything is applied.
func (b *Blueprint) Build(ctx context.Context) error {
	if b.err != nil {
		return b.err
	}
	ns := b.model.namespace()
	for _, index := range b.creates {
		if err := b.model.driver.CreateIndex(ctx, ns, index); err != nil {
			return err
		}
	}
	for _, name := range b.drops {
		if err := b.model.driver.DropIndex(ctx, ns, name); err != nil {
			return err
		}
	}
	return nil
}

// CreateCollection creates this model's collection.
func (m *Model) CreateCollection(ctx context.Context) error {
	return m.driver.CreateCollection(ctx, m.namespace())
}

// CreateCollectionIfNotExists creates the collection only when absent.
func (m *Model) CreateCollectionIfNotExists(ctx context.Context) error {
	exists, err := m.driver.HasCollection(ctx, m.namespace())
	if err != nil || exists {
		return err
	}
	return m.driver.CreateCollection(ctx, m.namespace())
}

// HasCollection reports whether this model's collection exists.
func (m *Model) HasCollection(ctx context.Context) (bool, error) {
	return m.driver.HasCollection(ctx, m.namespace())
}

// DropCollection removes this model's collection.
func (m *Model) DropCollection(ctx context.Context) error {
	return m.driver.DropCollection(ctx, m.namespace())
}

// DropCollectionIfExists removes the collection only when present.
func (m *Model) DropCollectionIfExists(ctx context.Context) error {
	exists, err := m.driver.HasCollection(ctx, m.namespace())
	if err != nil || !exists {
		return err
	}
	return m.driver.DropCollection(ctx, m.namespace())
}

// RenameCollection renames this model's collection. The configured prefix
// applies to the new name as well.
func (m *Model) RenameCollection(ctx context.Context, newName string) error {
	target := m.pivotNamespace(newName)
	return m.driver.RenameCollection(ctx, m.namespace(), target.Collection)
}
