// Package ports defines interfaces for dependency inversion.
// These interfaces allow the core business logic to remain independent of external frameworks.
package ports

import "time"

// Document is the contract every persisted entity satisfies.
// domain.Entity provides the implementation; store adapters use it to
// read and assign identity, revision, and tombstone state.
type Document interface {
	DocID() string
	DocRev() string
	SetRev(rev string)
	IsDeleted() bool
	MarkDeleted()
}

// LatestQuery describes a bounded range query over a date field.
type LatestQuery struct {
	// Since is the exclusive lower bound (dateField > Since)
	Since time.Time

	// DateField is the JSON field holding the timestamp ("created" by default)
	DateField string

	// Limit bounds the result size (a store default applies when 0)
	Limit int

	// Descending selects newest-first ordering
	Descending bool
}

// BulkResult reports the outcome of one entity within a bulk write.
// Bulk operations are best-effort: callers must inspect every element
// rather than assume all-or-nothing.
type BulkResult struct {
	// ID is the entity the result refers to
	ID string

	// Rev is the new revision on success
	Rev string

	// OK reports whether the write succeeded
	OK bool

	// Err is the per-item failure (nil when OK)
	Err error
}

// DocumentStore is durable, queryable storage for one collection of
// entities with optimistic concurrency control.
//
// Thread-safety: implementations must be safe for concurrent use; the
// revision check is the only guard against lost updates across callers.
type DocumentStore[T any] interface {
	// Get returns the document with the given ID, or a zero document
	// (never an error) when the ID is absent or tombstoned. Callers
	// branch on emptiness, not on error.
	Get(id string) (T, error)

	// GetMany resolves several IDs at once. IDs that are absent or
	// tombstoned are silently dropped, so the result may be shorter
	// than the input.
	GetMany(ids []string) ([]T, error)

	// Find returns documents matching every field of the selector
	// exactly. An index over the involved fields is created lazily
	// before the query executes and maintained on subsequent writes.
	Find(selector map[string]any) ([]T, error)

	// Search runs a free-text relevance query over the given fields.
	// Results are ordered by relevance score, not insertion order.
	Search(query string, fields []string) ([]T, error)

	// FindAll returns every live (non-tombstoned) document.
	FindAll() ([]T, error)

	// GetLatest returns documents whose date field is newer than the
	// query bound, sorted and limited.
	GetLatest(q LatestQuery) ([]T, error)

	// Save inserts the document when it carries no revision and none is
	// stored, updates it when the carried revision matches the stored
	// one, and fails with domain.ErrConflict otherwise. The returned
	// document carries the new revision.
	Save(doc T) (T, error)

	// SaveBulk writes several documents best-effort, one result per input.
	SaveBulk(docs []T) []BulkResult

	// Delete writes a tombstone for the document using the currently
	// stored revision and returns the tombstone with its new revision.
	Delete(doc T) (T, error)

	// DeleteBulk tombstones several documents best-effort, one result
	// per input.
	DeleteBulk(docs []T) []BulkResult

	// Close releases storage resources.
	Close() error
}
