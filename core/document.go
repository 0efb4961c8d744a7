// Package core provides the fundamental building blocks of the mango ODM.
// This file defines the Document, the mutable record every model operation
// works with: a mapping of field names to values plus the bookkeeping needed
// for dirty tracking and relation attachment.
package core

import "reflect"

// Document is a single database record bound to a Schema.
//
// Attributes hold the current field values. A snapshot of the attributes is
// kept as the original state at load/save time, so Dirty can report what
// changed since. The exists flag distinguishes persisted documents from ones
// that were never saved.
//
// Related documents are never stored inside the attributes; eager loading
// attaches them as transient side data keyed by relation name, readable
// through Related and RelatedMany.
type Document struct {
	schema     *Schema
	attributes map[string]any
	original   map[string]any
	exists     bool
	relations  map[string]any
}

// NewDocument creates a new, unpersisted document for the given schema.
func NewDocument(schema *Schema, attributes map[string]any) *Document {
	if attributes == nil {
		attributes = map[string]any{}
	}
	return &Document{
		schema:     schema,
		attributes: attributes,
		original:   map[string]any{},
	}
}

// hydrate builds a document from a database row. The original snapshot is a
// deep copy of the attributes and the document is marked as persisted.
func hydrate(schema *Schema, row map[string]any) *Document {
	return &Document{
		schema:     schema,
		attributes: row,
		original:   deepCopyMap(row),
		exists:     true,
	}
}

// Schema returns the schema this document is bound to.
func (d *Document) Schema() *Schema { return d.schema }

// Exists reports whether the document has been persisted.
func (d *Document) Exists() bool { return d.exists }

// Get returns the value of a field, or nil if unset.
func (d *Document) Get(field string) any { return d.attributes[field] }

// Set assigns a field value.
func (d *Document) Set(field string, value any) { d.attributes[field] = value }

// Unset removes a field from the attributes.
func (d *Document) Unset(field string) { delete(d.attributes, field) }

// Fill assigns multiple field values at once.
func (d *Document) Fill(values map[string]any) {
	for k, v := range values {
		d.attributes[k] = v
	}
}

// PrimaryValue returns the value of the schema's primary key field.
func (d *Document) PrimaryValue() any { return d.attributes[d.schema.PrimaryKey] }

// Attributes returns the current field values. The returned map is the
// document's own state; callers should treat it as read-only.
func (d *Document) Attributes() map[string]any { return d.attributes }

// Original returns the snapshot taken at load/save time.
func (d *Document) Original() map[string]any { return d.original }

// Dirty returns the fields whose values differ from the original snapshot,
// including fields that were removed (reported with a nil value).
func (d *Document) Dirty() Changes {
	dirty := Changes{}
	for field, value := range d.attributes {
		if orig, ok := d.original[field]; !ok || !looseEqual(orig, value) {
			dirty[field] = value
		}
	}
	for field := range d.original {
		if _, ok := d.attributes[field]; !ok {
			dirty[field] = nil
		}
	}
	return dirty
}

// syncOriginal resets the original snapshot to the current attributes and
// marks the document as persisted. Called after a successful save.
func (d *Document) syncOriginal() {
	d.original = deepCopyMap(d.attributes)
	d.exists = true
}

// SetRelated attaches eagerly loaded relation data under the given name.
func (d *Document) SetRelated(name string, value any) {
	if d.relations == nil {
		d.relations = map[string]any{}
	}
	d.relations[name] = value
}

// Related returns the single document attached under the given relation
// name, or nil when the relation was not loaded or holds no value.
func (d *Document) Related(name string) *Document {
	if doc, ok := d.relations[name].(*Document); ok {
		return doc
	}
	return nil
}

// RelatedMany returns the documents attached under the given relation name.
func (d *Document) RelatedMany(name string) []*Document {
	if docs, ok := d.relations[name].([]*Document); ok {
		return docs
	}
	return nil
}

// ToMap serializes the document into a plain attribute map (a deep copy,
// detached from the document's own state).
func (d *Document) ToMap() map[string]any {
	return deepCopyMap(d.attributes)
}

// deepCopyMap copies a document attribute map, recursing into nested maps
// and slices so snapshots cannot alias live state.
func deepCopyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return deepCopyMap(tv)
	case []any:
		out := make([]any, len(tv))
		for i, item := range tv {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}

// looseEqual compares two attribute values, descending into nested maps and
// slices. Scalars compare with ==; mismatched shapes are unequal.
func looseEqual(a, b any) bool {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			ov, ok := bv[k]
			if !ok || !looseEqual(v, ov) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !looseEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		if !comparableValue(a) || !comparableValue(b) {
			return reflect.DeepEqual(a, b)
		}
		return a == b
	}
}

// comparableValue reports whether == is safe for the value's dynamic type.
// Typed slices and other non-comparable values fall back to DeepEqual.
func comparableValue(v any) bool {
	t := reflect.TypeOf(v)
	return t == nil || t.Comparable()
}
