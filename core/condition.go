// Package core provides the fundamental building blocks of the mango ODM.
// It defines abstractions for queries, documents, schema handling, and drivers.
package core

// Condition represents a single clause in a query filter.
//
// A condition targets a document field (FieldName) with a given operator
// (Eq, Gt, In, etc.) and a comparison value. Conditions can also be nested
// using Children, enabling composition of complex logical expressions with
// AND, OR, and NOT.
//
// Example:
//
//	cond := core.Field("age").Gt(18).
//		And(core.Field("status").Eq("active"))
//
// The above creates a condition equivalent to:
//
//	(age > 18) AND (status = "active")
type Condition struct {
	FieldName string       // The document field this condition applies to
	Operator  *Operator    // The comparison operator (Eq, Gt, In, etc.)
	Value     any          // The comparison value
	Children  []*Condition // Nested conditions (for AND, OR, NOT expressions)
}

// Field starts a new condition targeting the given document field.
func Field(name string) *Condition {
	return &Condition{FieldName: name}
}

// And combines this condition with others using logical AND.
func (c *Condition) And(conditions ...*Condition) *Condition {
	return &Condition{
		Operator: &OpAnd,
		Children: append([]*Condition{c}, conditions...),
	}
}

// Or combines this condition with others using logical OR.
func (c *Condition) Or(conditions ...*Condition) *Condition {
	return &Condition{
		Operator: &OpOr,
		Children: append([]*Condition{c}, conditions...),
	}
}

// Not negates this condition.
func (c *Condition) Not() *Condition {
	return &Condition{
		Operator: &OpNot,
		Children: []*Condition{c},
	}
}

// Nil matches documents where the field is null.
func (c *Condition) Nil() *Condition {
	c.Operator = &OpNil
	c.Value = nil
	return c
}

// Eq matches documents where the field equals v.
func (c *Condition) Eq(v any) *Condition {
	c.Operator = &OpEq
	c.Value = v
	return c
}

// Ne matches documents where the field differs from v.
func (c *Condition) Ne(v any) *Condition {
	c.Operator = &OpNe
	c.Value = v
	return c
}

// Gt matches documents where the field is greater than v.
func (c *Condition) Gt(v any) *Condition {
	c.Operator = &OpGt
	c.Value = v
	return c
}

// Gte matches documents where the field is greater than or equal to v.
func (c *Condition) Gte(v any) *Condition {
	c.Operator = &OpGte
	c.Value = v
	return c
}

// Lt matches documents where the field is less than v.
func (c *Condition) Lt(v any) *Condition {
	c.Operator = &OpLt
	c.Value = v
	return c
}

// Lte matches documents where the field is less than or equal to v.
func (c *Condition) Lte(v any) *Condition {
	c.Operator = &OpLte
	c.Value = v
	return c
}

// Like matches documents where the field matches a SQL-style pattern
// (% and _ wildcards). Drivers translate the pattern into their native
// matching primitive.
func (c *Condition) Like(v any) *Condition {
	c.Operator = &OpLike
	c.Value = v
	return c
}

// In matches documents where the field equals any of the given values.
func (c *Condition) In(values ...any) *Condition {
	c.Operator = &OpIn
	c.Value = values
	return c
}

// Exists matches documents where the field is present (v = true) or
// absent (v = false).
func (c *Condition) Exists(v bool) *Condition {
	c.Operator = &OpExists
	c.Value = v
	return c
}

// foldConditionsAnd reduces a list of conditions into a single AND tree.
// Nil entries are skipped; an empty list yields nil.
func foldConditionsAnd(conds ...*Condition) *Condition {
	var acc *Condition
	for _, cond := range conds {
		if cond == nil {
			continue
		}
		if acc == nil {
			acc = cond
			continue
		}
		acc = acc.And(cond)
	}
	return acc
}
