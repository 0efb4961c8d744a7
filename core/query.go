// Package core provides the fundamental building blocks of the mango ODM.
// This file defines the fluent query builder used to express filtering,
// ordering, pagination, and soft-delete options.
package core

// Query represents a fluent query builder for documents of one schema.
//
// Example:
//
//	q := core.NewQuery(userSchema).
//		Filter(
//			core.Field("email").Like("%gmail.com"),
//			core.Field("active").Eq(true),
//		).
//		OrderBy("createdAt", -1).
//		Limit(10)
type Query struct {
	schema *Schema
	where  *Where
}

// NewQuery creates a new Query for the given schema.
func NewQuery(schema *Schema) *Query {
	return &Query{
		schema: schema,
		where:  &Where{},
	}
}

// Schema returns the schema this query targets.
func (q *Query) Schema() *Schema { return q.schema }

// WithTrashed includes soft-deleted documents in the results.
func (q *Query) WithTrashed() *Query {
	q.where.WithTrashed = true
	return q
}

// OnlyTrashed restricts the results to soft-deleted documents only.
func (q *Query) OnlyTrashed() *Query {
	q.where.OnlyTrashed = true
	return q
}

// Filter sets the query's root condition. Multiple conditions are combined
// with AND; calling Filter again replaces the previous condition.
func (q *Query) Filter(conditions ...*Condition) *Query {
	q.where.Condition = foldConditionsAnd(conditions...)
	return q
}

// Where ANDs an additional condition onto the query.
func (q *Query) Where(condition *Condition) *Query {
	q.where.Condition = foldConditionsAnd(q.where.Condition, condition)
	return q
}

// Select restricts the fields returned by the query. An empty call resets
// the projection.
func (q *Query) Select(fields ...string) *Query {
	q.where.Fields = fields
	return q
}

// OrderBy adds an ordering rule to the query.
//
// Field is the document field name, and order is 1 (ASC) or -1 (DESC).
func (q *Query) OrderBy(field string, order int) *Query {
	q.where.Sort = append(q.where.Sort, Sort{FieldName: field, Order: order})
	return q
}

// Limit sets the maximum number of results to return.
func (q *Query) Limit(limit int) *Query {
	q.where.Limit = limit
	return q
}

// Offset sets the number of documents to skip before returning results.
func (q *Query) Offset(offset int) *Query {
	q.where.Offset = offset
	return q
}

// ForPage restricts the query to one page of results: it skips
// (page-1)*perPage documents and limits the result to perPage.
//
// It fails with ErrInvalidArgument when page is not a positive integer.
func (q *Query) ForPage(page, perPage int) (*Query, error) {
	if page < 1 {
		return nil, invalidArgumentf("page must be a positive integer, got %d", page)
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	q.where.Offset = (page - 1) * perPage
	q.where.Limit = perPage
	return q, nil
}

// Clone returns an independent copy of the query. The condition tree is
// shared (conditions are treated as immutable once built); the Where
// envelope and sort list are copied.
func (q *Query) Clone() *Query {
	where := *q.where
	where.Sort = append([]Sort(nil), q.where.Sort...)
	where.Fields = append([]string(nil), q.where.Fields...)
	return &Query{
		schema: q.schema,
		where:  &where,
	}
}

// withoutSort returns a copy of the query with ordering stripped. Used to
// derive count queries, since ordering does not affect a count; every other
// clause is preserved.
func (q *Query) withoutSort() *Query {
	clone := q.Clone()
	clone.where.Sort = nil
	return clone
}
