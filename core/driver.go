// Package core provides the fundamental building blocks of the mango ODM.
// It defines abstractions for queries, documents, schema handling, and drivers.
package core

import "context"

// Sort represents an ordering rule used in queries and index declarations.
//
// FieldName specifies which document field to sort by.
// Order determines the direction: 1 for ascending, -1 for descending.
type Sort struct {
	FieldName string
	Order     int // 1 = ASC, -1 = DESC
}

// Where encapsulates filtering and pagination options for queries.
//
// It contains:
//   - Condition: the root filter condition (composed of one or more *Condition).
//   - Limit: maximum number of results to return.
//   - Offset: number of documents to skip.
//   - Sort: list of Sort rules to apply.
//   - Fields: projection; when non-empty only these fields are returned.
//   - WithTrashed: whether to include soft-deleted documents.
//   - OnlyTrashed: whether to return only soft-deleted documents.
type Where struct {
	Condition   *Condition
	Limit       int
	Offset      int
	Sort        []Sort
	Fields      []string
	WithTrashed bool
	OnlyTrashed bool
}

// Changes represents a set of field updates, mapping field names to new values.
// It is typically used in Update operations.
type Changes map[string]any

// Namespace identifies the fully resolved target of a driver operation:
// the database and the collection name with any configured prefix already
// applied. Drivers never apply prefixing themselves.
type Namespace struct {
	Database   string
	Collection string
}

// IndexDeclaration describes a single secondary index to create.
//
// Keys are applied in declaration order. Options carries driver options by
// name; the "name" option is always present.
type IndexDeclaration struct {
	Keys    []Sort
	Options map[string]any
}

// Transaction defines the contract for database transaction management.
//
// Implementations must provide atomic commit and rollback semantics.
type Transaction interface {
	// Commit finalizes the transaction and makes all changes permanent.
	Commit(ctx context.Context) error
	// Rollback reverts the transaction, discarding all changes.
	Rollback(ctx context.Context) error
}

// Driver defines the contract for database backends supported by the ODM.
//
// The surface is enumerated explicitly: anything the engine needs from a
// backend is a named method here, never forwarded dynamically.
type Driver interface {
	// Connect establishes a new connection or validates connectivity.
	Connect(ctx context.Context) error
	// Ping checks if the underlying database is reachable.
	Ping(ctx context.Context) error
	// Close terminates the connection and releases resources.
	Close(ctx context.Context) error

	// Transaction starts a new database transaction.
	Transaction(ctx context.Context) (Transaction, error)

	// Insert persists one or more documents.
	Insert(ctx context.Context, ns Namespace, documents ...map[string]any) error
	// FindOne retrieves a single document matching the given options,
	// or nil when none matches.
	FindOne(ctx context.Context, ns Namespace, options *Where) (map[string]any, error)
	// FindMany retrieves all documents matching the given options.
	FindMany(ctx context.Context, ns Namespace, options *Where) ([]map[string]any, error)
	// Update modifies existing documents matching the condition.
	Update(ctx context.Context, ns Namespace, condition *Condition, changes Changes) error
	// Delete removes documents matching the condition.
	Delete(ctx context.Context, ns Namespace, condition *Condition) error
	// Count returns the number of documents matching the condition.
	Count(ctx context.Context, ns Namespace, condition *Condition) (int64, error)

	// CreateCollection creates the collection named by ns.
	CreateCollection(ctx context.Context, ns Namespace) error
	// HasCollection reports whether the collection named by ns exists.
	HasCollection(ctx context.Context, ns Namespace) (bool, error)
	// DropCollection removes the collection named by ns.
	DropCollection(ctx context.Context, ns Namespace) error
	// RenameCollection renames the collection named by ns to newName.
	RenameCollection(ctx context.Context, ns Namespace, newName string) error
	// CreateIndex creates a single secondary index on the collection.
	CreateIndex(ctx context.Context, ns Namespace, index IndexDeclaration) error
	// DropIndex removes a secondary index from the collection by name.
	DropIndex(ctx context.Context, ns Namespace, name string) error
}
