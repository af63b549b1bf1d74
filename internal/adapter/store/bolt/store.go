// Package bolt implements the DocumentStore interface on an embedded
// bbolt key/value file, with a bleve index alongside for free-text search.
// Each collection owns one directory holding both.
//
// Concurrency control is optimistic: every successful write replaces the
// document's revision token, and a write carrying a stale revision is
// rejected with domain.ErrConflict. This is the sole safety net against
// lost updates; there are no locks spanning calls and no transactions
// spanning collections.
package bolt

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/google/uuid"
	bbolt "go.etcd.io/bbolt"

	"github.com/ruckert/canto/internal/domain"
	"github.com/ruckert/canto/internal/ports"
)

var docsBucket = []byte("docs")

// Doc constrains the store to pointer types implementing ports.Document.
// The value type T is what callers pass around; the store takes its
// address internally to read and assign identity and revisions.
type Doc[T any] interface {
	*T
	ports.Document
}

// Store is a DocumentStore for one collection.
//
// Thread-safety: bbolt serializes writers internally; the in-memory
// field indexes are guarded by an explicit mutex.
type Store[T any, PT Doc[T]] struct {
	name   string
	db     *bbolt.DB
	index  bleve.Index
	logger *slog.Logger

	// mu guards fields below
	mu     sync.Mutex
	fields map[string]*fieldIndex
	closed bool
}

// Options configures a Store.
type Options struct {
	// Dir is the collection directory (created if missing)
	Dir string

	// Name is the collection name, used for the database filename and
	// error context
	Name string

	// Logger receives store diagnostics
	Logger *slog.Logger
}

// New opens (or creates) the collection at opts.Dir.
func New[T any, PT Doc[T]](opts Options) (*Store[T, PT], error) {
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, domain.NewStoreError("open", opts.Name, err)
	}

	db, err := bbolt.Open(filepath.Join(opts.Dir, opts.Name+".db"), 0o600, nil)
	if err != nil {
		return nil, domain.NewStoreError("open", opts.Name, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(docsBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, domain.NewStoreError("open", opts.Name, err)
	}

	index, err := openIndex(filepath.Join(opts.Dir, "index.bleve"))
	if err != nil {
		_ = db.Close()
		return nil, domain.NewStoreError("open", opts.Name, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Store[T, PT]{
		name:   opts.Name,
		db:     db,
		index:  index,
		logger: logger.With(slog.String("collection", opts.Name)),
		fields: make(map[string]*fieldIndex),
	}, nil
}

// openIndex opens an existing bleve index or creates a fresh one with the
// default mapping.
func openIndex(path string) (bleve.Index, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return bleve.New(path, bleve.NewIndexMapping())
	}
	return bleve.Open(path)
}

// Get returns the document with the given ID. Absent or tombstoned IDs
// yield a zero document and no error; callers branch on emptiness.
func (s *Store[T, PT]) Get(id string) (T, error) {
	var zero T
	var doc T
	found := false

	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(docsBucket).Get([]byte(id))
		if raw == nil || isTombstone(raw) {
			return nil
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return zero, domain.NewStoreError("get", s.name, err)
	}
	if !found {
		return zero, nil
	}
	return doc, nil
}

// GetMany resolves several IDs, silently dropping those that are absent
// or tombstoned. The result may therefore be shorter than the input.
func (s *Store[T, PT]) GetMany(ids []string) ([]T, error) {
	docs := make([]T, 0, len(ids))

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(docsBucket)
		for _, id := range ids {
			raw := b.Get([]byte(id))
			if raw == nil || isTombstone(raw) {
				continue
			}
			var doc T
			if err := json.Unmarshal(raw, &doc); err != nil {
				return err
			}
			docs = append(docs, doc)
		}
		return nil
	})
	if err != nil {
		return nil, domain.NewStoreError("getMany", s.name, err)
	}
	return docs, nil
}

// FindAll returns every live document in the collection.
func (s *Store[T, PT]) FindAll() ([]T, error) {
	docs := make([]T, 0)

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(docsBucket).ForEach(func(_, raw []byte) error {
			if isTombstone(raw) {
				return nil
			}
			var doc T
			if err := json.Unmarshal(raw, &doc); err != nil {
				return err
			}
			docs = append(docs, doc)
			return nil
		})
	})
	if err != nil {
		return nil, domain.NewStoreError("findAll", s.name, err)
	}
	return docs, nil
}

// Save writes the document and returns it carrying the new revision.
//
// Rules: no stored document and no carried revision is an insert; a
// carried revision equal to the stored one is an update; a tombstoned
// document accepts a revision-less write as a fresh insert (the ID is
// reusable); anything else is a conflict.
func (s *Store[T, PT]) Save(doc T) (T, error) {
	var zero T
	saved := doc

	err := s.db.Update(func(tx *bbolt.Tx) error {
		var err error
		saved, err = s.saveTx(tx, doc)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return zero, err
		}
		return zero, domain.NewStoreError("save", s.name, err)
	}

	s.afterWrite(saved)
	return saved, nil
}

// saveTx performs the revision check and the write inside a transaction.
func (s *Store[T, PT]) saveTx(tx *bbolt.Tx, doc T) (T, error) {
	var zero T
	p := PT(&doc)

	if p.DocID() == "" {
		return zero, fmt.Errorf("document has no ID")
	}

	b := tx.Bucket(docsBucket)
	key := []byte(p.DocID())
	raw := b.Get(key)

	storedRev := ""
	storedDeleted := false
	if raw != nil {
		var stored struct {
			Rev     string `json:"_rev"`
			Deleted bool   `json:"_deleted"`
		}
		if err := json.Unmarshal(raw, &stored); err != nil {
			return zero, err
		}
		storedRev = stored.Rev
		storedDeleted = stored.Deleted
	}

	switch {
	case raw == nil && p.DocRev() == "":
		// fresh insert
	case storedDeleted && p.DocRev() == "":
		// tombstoned ID reused by a fresh insert
	case raw != nil && !storedDeleted && p.DocRev() == storedRev:
		// update with the current revision
	default:
		return zero, domain.ErrConflict
	}

	p.SetRev(nextRev(storedRev))

	data, err := json.Marshal(&doc)
	if err != nil {
		return zero, err
	}
	if err := b.Put(key, data); err != nil {
		return zero, err
	}
	return doc, nil
}

// Delete writes a tombstone for the document. The currently stored
// revision is re-fetched and used, so deleting after a concurrent update
// tombstones the latest state rather than failing spuriously. Deleting
// an already-tombstoned (or absent) document writes a fresh tombstone,
// leaving visible query results unchanged.
func (s *Store[T, PT]) Delete(doc T) (T, error) {
	var zero T
	p := PT(&doc)
	if p.DocID() == "" {
		return zero, domain.NewStoreError("delete", s.name, fmt.Errorf("document has no ID"))
	}

	deleted := doc
	err := s.db.Update(func(tx *bbolt.Tx) error {
		var err error
		deleted, err = s.deleteTx(tx, doc)
		return err
	})
	if err != nil {
		return zero, domain.NewStoreError("delete", s.name, err)
	}

	s.afterWrite(deleted)
	return deleted, nil
}

// deleteTx writes the tombstone inside a transaction, continuing the
// stored revision chain.
func (s *Store[T, PT]) deleteTx(tx *bbolt.Tx, doc T) (T, error) {
	var zero T
	p := PT(&doc)

	b := tx.Bucket(docsBucket)
	key := []byte(p.DocID())

	storedRev := ""
	if raw := b.Get(key); raw != nil {
		// Tombstone the stored state, not the caller's copy
		if err := json.Unmarshal(raw, &doc); err != nil {
			return zero, err
		}
		storedRev = PT(&doc).DocRev()
	}

	p = PT(&doc)
	p.MarkDeleted()
	p.SetRev(nextRev(storedRev))

	data, err := json.Marshal(&doc)
	if err != nil {
		return zero, err
	}
	if err := b.Put(key, data); err != nil {
		return zero, err
	}
	return doc, nil
}

// SaveBulk writes several documents best-effort within one transaction.
// Each element of the result reports its own outcome; a conflict on one
// document does not prevent the others from committing.
func (s *Store[T, PT]) SaveBulk(docs []T) []ports.BulkResult {
	results := make([]ports.BulkResult, len(docs))
	written := make([]T, 0, len(docs))

	err := s.db.Update(func(tx *bbolt.Tx) error {
		for i, doc := range docs {
			saved, err := s.saveTx(tx, doc)
			id := PT(&doc).DocID()
			if err != nil {
				results[i] = ports.BulkResult{ID: id, Err: err}
				continue
			}
			results[i] = ports.BulkResult{ID: id, Rev: PT(&saved).DocRev(), OK: true}
			written = append(written, saved)
		}
		return nil
	})
	if err != nil {
		// Transaction-level failure voids every outcome
		for i, doc := range docs {
			results[i] = ports.BulkResult{ID: PT(&doc).DocID(), Err: err}
		}
		return results
	}

	for _, doc := range written {
		s.afterWrite(doc)
	}
	return results
}

// DeleteBulk tombstones several documents best-effort within one
// transaction, one result per input.
func (s *Store[T, PT]) DeleteBulk(docs []T) []ports.BulkResult {
	results := make([]ports.BulkResult, len(docs))
	written := make([]T, 0, len(docs))

	err := s.db.Update(func(tx *bbolt.Tx) error {
		for i, doc := range docs {
			id := PT(&doc).DocID()
			if id == "" {
				results[i] = ports.BulkResult{Err: fmt.Errorf("document has no ID")}
				continue
			}
			deleted, err := s.deleteTx(tx, doc)
			if err != nil {
				results[i] = ports.BulkResult{ID: id, Err: err}
				continue
			}
			results[i] = ports.BulkResult{ID: id, Rev: PT(&deleted).DocRev(), OK: true}
			written = append(written, deleted)
		}
		return nil
	})
	if err != nil {
		for i, doc := range docs {
			results[i] = ports.BulkResult{ID: PT(&doc).DocID(), Err: err}
		}
		return results
	}

	for _, doc := range written {
		s.afterWrite(doc)
	}
	return results
}

// Close releases the database and the search index.
func (s *Store[T, PT]) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrStoreClosed
	}
	s.closed = true
	s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		s.logger.Warn("failed to close search index", slog.Any("error", err))
	}
	return s.db.Close()
}

// afterWrite propagates a committed write to the search index and the
// lazy field indexes. Index maintenance is best-effort: a failure is
// logged, not surfaced, since the document itself is durable.
func (s *Store[T, PT]) afterWrite(doc T) {
	p := PT(&doc)
	id := p.DocID()

	if p.IsDeleted() {
		if err := s.index.Delete(id); err != nil {
			s.logger.Warn("failed to remove document from search index",
				slog.String("id", id), slog.Any("error", err))
		}
		s.updateFieldIndexes(id, nil)
		return
	}

	if err := s.index.Index(id, doc); err != nil {
		s.logger.Warn("failed to index document",
			slog.String("id", id), slog.Any("error", err))
	}
	s.updateFieldIndexes(id, docFields(&doc))
}

// isTombstone inspects raw JSON for the deleted flag without decoding
// the full document.
func isTombstone(raw []byte) bool {
	var probe struct {
		Deleted bool `json:"_deleted"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	return probe.Deleted
}

// nextRev continues a revision chain: the sequence number increments and
// the suffix is freshly random, so the token is opaque but orderable
// within one document's history.
func nextRev(prev string) string {
	seq := 0
	if prev != "" {
		if head, _, ok := strings.Cut(prev, "-"); ok {
			if n, err := strconv.Atoi(head); err == nil {
				seq = n
			}
		}
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%d-%s", seq+1, suffix)
}

// docFields flattens a document to its JSON field values for selector
// matching and field indexing.
func docFields(doc any) map[string]any {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}
	return fields
}
