package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// fakeDriver is an in-memory Driver used by the package tests. It stores
// rows per collection, evaluates a useful subset of the condition language,
// and counts calls so tests can assert how many queries an operation issued.
type fakeDriver struct {
	mutex sync.Mutex

	rows map[string][]map[string]any

	connectCalls int
	closeCalls   int
	insertCalls  int
	findCalls    int
	countCalls   int
	updateCalls  int
	deleteCalls  int

	lastWhere *Where
	ddlOps    []string

	connectErr error
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{rows: map[string][]map[string]any{}}
}

func (d *fakeDriver) seed(collection string, rows ...map[string]any) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.rows[collection] = append(d.rows[collection], rows...)
}

func (d *fakeDriver) Connect(ctx context.Context) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.connectCalls++
	return d.connectErr
}

func (d *fakeDriver) Ping(ctx context.Context) error { return nil }

func (d *fakeDriver) Close(ctx context.Context) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.closeCalls++
	return nil
}

func (d *fakeDriver) Transaction(ctx context.Context) (Transaction, error) {
	return &fakeTransaction{}, nil
}

type fakeTransaction struct {
	committed  bool
	rolledBack bool
}

func (t *fakeTransaction) Commit(ctx context.Context) error   { t.committed = true; return nil }
func (t *fakeTransaction) Rollback(ctx context.Context) error { t.rolledBack = true; return nil }

func (d *fakeDriver) Insert(ctx context.Context, ns Namespace, documents ...map[string]any) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.insertCalls++
	for _, doc := range documents {
		d.rows[ns.Collection] = append(d.rows[ns.Collection], deepCopyMap(doc))
	}
	return nil
}

func (d *fakeDriver) FindOne(ctx context.Context, ns Namespace, options *Where) (map[string]any, error) {
	rows, err := d.FindMany(ctx, ns, options)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (d *fakeDriver) FindMany(ctx context.Context, ns Namespace, options *Where) ([]map[string]any, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.findCalls++
	d.lastWhere = options

	matched := d.match(ns.Collection, options)
	if options != nil && len(options.Sort) > 0 {
		rule := options.Sort[0]
		sort.SliceStable(matched, func(i, j int) bool {
			a := fmt.Sprint(matched[i][rule.FieldName])
			b := fmt.Sprint(matched[j][rule.FieldName])
			if rule.Order < 0 {
				return a > b
			}
			return a < b
		})
	}
	if options != nil && options.Offset > 0 {
		if options.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[options.Offset:]
		}
	}
	if options != nil && options.Limit > 0 && options.Limit < len(matched) {
		matched = matched[:options.Limit]
	}

	out := make([]map[string]any, 0, len(matched))
	for _, row := range matched {
		out = append(out, deepCopyMap(row))
	}
	return out, nil
}

func (d *fakeDriver) match(collection string, options *Where) []map[string]any {
	var condition *Condition
	if options != nil {
		condition = options.Condition
	}
	var matched []map[string]any
	for _, row := range d.rows[collection] {
		if conditionMatches(condition, row) {
			matched = append(matched, row)
		}
	}
	return matched
}

func (d *fakeDriver) Update(ctx context.Context, ns Namespace, condition *Condition, changes Changes) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.updateCalls++
	for _, row := range d.rows[ns.Collection] {
		if conditionMatches(condition, row) {
			for field, value := range changes {
				row[field] = value
			}
		}
	}
	return nil
}

func (d *fakeDriver) Delete(ctx context.Context, ns Namespace, condition *Condition) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.deleteCalls++
	kept := d.rows[ns.Collection][:0]
	for _, row := range d.rows[ns.Collection] {
		if !conditionMatches(condition, row) {
			kept = append(kept, row)
		}
	}
	d.rows[ns.Collection] = kept
	return nil
}

func (d *fakeDriver) Count(ctx context.Context, ns Namespace, condition *Condition) (int64, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.countCalls++
	var count int64
	for _, row := range d.rows[ns.Collection] {
		if conditionMatches(condition, row) {
			count++
		}
	}
	return count, nil
}

func (d *fakeDriver) CreateCollection(ctx context.Context, ns Namespace) error {
	d.recordDDL("create collection " + ns.Collection)
	return nil
}

func (d *fakeDriver) HasCollection(ctx context.Context, ns Namespace) (bool, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	_, ok := d.rows[ns.Collection]
	return ok, nil
}

func (d *fakeDriver) DropCollection(ctx context.Context, ns Namespace) error {
	d.recordDDL("drop collection " + ns.Collection)
	return nil
}

func (d *fakeDriver) RenameCollection(ctx context.Context, ns Namespace, newName string) error {
	d.recordDDL("rename collection " + ns.Collection + " to " + newName)
	return nil
}

func (d *fakeDriver) CreateIndex(ctx context.Context, ns Namespace, index IndexDeclaration) error {
	name, _ := index.Options["name"].(string)
	d.recordDDL("create index " + name)
	return nil
}

func (d *fakeDriver) DropIndex(ctx context.Context, ns Namespace, name string) error {
	d.recordDDL("drop index " + name)
	return nil
}

func (d *fakeDriver) recordDDL(op string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.ddlOps = append(d.ddlOps, op)
}

// conditionMatches evaluates the subset of the condition language the tests
// exercise against one row.
func conditionMatches(condition *Condition, row map[string]any) bool {
	if condition == nil || condition.Operator == nil {
		return true
	}
	if len(condition.Children) > 0 {
		switch *condition.Operator {
		case OpAnd:
			for _, child := range condition.Children {
				if !conditionMatches(child, row) {
					return false
				}
			}
			return true
		case OpOr:
			for _, child := range condition.Children {
				if conditionMatches(child, row) {
					return true
				}
			}
			return false
		case OpNot:
			for _, child := range condition.Children {
				if conditionMatches(child, row) {
					return false
				}
			}
			return true
		default:
			return false
		}
	}

	value := row[condition.FieldName]
	switch *condition.Operator {
	case OpNil:
		return value == nil
	case OpEq:
		return looseEqual(value, condition.Value)
	case OpNe:
		return !looseEqual(value, condition.Value)
	case OpIn:
		values, _ := condition.Value.([]any)
		for _, candidate := range values {
			if looseEqual(value, candidate) {
				return true
			}
		}
		return false
	case OpExists:
		_, present := row[condition.FieldName]
		want, _ := condition.Value.(bool)
		return present == want
	case OpLike:
		pattern, _ := condition.Value.(string)
		return strings.Contains(fmt.Sprint(value), strings.Trim(pattern, "%"))
	default:
		return false
	}
}
