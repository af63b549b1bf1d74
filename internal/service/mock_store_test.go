package service

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ruckert/canto/internal/domain"
	"github.com/ruckert/canto/internal/ports"
)

// mockStore is an in-memory DocumentStore for service tests. It applies
// the same revision and tombstone rules as the real store but keeps
// everything in a map.
type mockStore[T any, PT interface {
	*T
	ports.Document
}] struct {
	mu     sync.Mutex
	docs   map[string]T
	revSeq int

	// Failure injection
	saveErr error
	findErr error

	// Call recording
	findCalls []map[string]any

	// searchFn overrides Search when set
	searchFn func(query string, fields []string) ([]T, error)
}

func newMockStore[T any, PT interface {
	*T
	ports.Document
}]() *mockStore[T, PT] {
	return &mockStore[T, PT]{docs: make(map[string]T)}
}

func (m *mockStore[T, PT]) nextRev() string {
	m.revSeq++
	return fmt.Sprintf("%d-mock", m.revSeq)
}

func (m *mockStore[T, PT]) Get(id string) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	doc, ok := m.docs[id]
	if !ok || PT(&doc).IsDeleted() {
		return zero, nil
	}
	return doc, nil
}

func (m *mockStore[T, PT]) GetMany(ids []string) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		doc, ok := m.docs[id]
		if !ok || PT(&doc).IsDeleted() {
			continue
		}
		out = append(out, doc)
	}
	return out, nil
}

func (m *mockStore[T, PT]) Find(selector map[string]any) ([]T, error) {
	m.mu.Lock()
	m.findCalls = append(m.findCalls, selector)
	err := m.findErr
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	all, _ := m.FindAll()
	out := make([]T, 0)
	for _, doc := range all {
		fields := docJSON(&doc)
		match := true
		for field, want := range selector {
			if fmt.Sprintf("%v", fields[field]) != fmt.Sprintf("%v", want) {
				match = false
				break
			}
		}
		if match {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (m *mockStore[T, PT]) Search(query string, fields []string) ([]T, error) {
	if m.searchFn != nil {
		return m.searchFn(query, fields)
	}

	// Naive substring relevance over the requested fields
	all, _ := m.FindAll()
	out := make([]T, 0)
	for _, doc := range all {
		values := docJSON(&doc)
		for _, field := range fields {
			str, _ := values[field].(string)
			if strings.Contains(strings.ToLower(str), strings.ToLower(query)) {
				out = append(out, doc)
				break
			}
		}
	}
	return out, nil
}

func (m *mockStore[T, PT]) FindAll() ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		doc := m.docs[id]
		if PT(&doc).IsDeleted() {
			continue
		}
		out = append(out, doc)
	}
	return out, nil
}

func (m *mockStore[T, PT]) GetLatest(q ports.LatestQuery) ([]T, error) {
	dateField := q.DateField
	if dateField == "" {
		dateField = "created"
	}

	all, _ := m.FindAll()
	type dated struct {
		doc T
		at  time.Time
	}
	matched := make([]dated, 0)
	for _, doc := range all {
		stamp, _ := docJSON(&doc)[dateField].(string)
		at, err := time.Parse(time.RFC3339Nano, stamp)
		if err != nil || !at.After(q.Since) {
			continue
		}
		matched = append(matched, dated{doc: doc, at: at})
	}
	sort.Slice(matched, func(i, j int) bool {
		if q.Descending {
			return matched[i].at.After(matched[j].at)
		}
		return matched[i].at.Before(matched[j].at)
	})
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]T, 0, len(matched))
	for _, d := range matched {
		out = append(out, d.doc)
	}
	return out, nil
}

func (m *mockStore[T, PT]) Save(doc T) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	if m.saveErr != nil {
		return zero, m.saveErr
	}

	p := PT(&doc)
	stored, exists := m.docs[p.DocID()]
	storedRev := ""
	storedDeleted := false
	if exists {
		storedRev = PT(&stored).DocRev()
		storedDeleted = PT(&stored).IsDeleted()
	}

	switch {
	case !exists && p.DocRev() == "":
	case storedDeleted && p.DocRev() == "":
	case exists && !storedDeleted && p.DocRev() == storedRev:
	default:
		return zero, domain.ErrConflict
	}

	p.SetRev(m.nextRev())
	m.docs[p.DocID()] = doc
	return doc, nil
}

func (m *mockStore[T, PT]) SaveBulk(docs []T) []ports.BulkResult {
	results := make([]ports.BulkResult, len(docs))
	for i, doc := range docs {
		saved, err := m.Save(doc)
		id := PT(&doc).DocID()
		if err != nil {
			results[i] = ports.BulkResult{ID: id, Err: err}
			continue
		}
		results[i] = ports.BulkResult{ID: id, Rev: PT(&saved).DocRev(), OK: true}
	}
	return results
}

func (m *mockStore[T, PT]) Delete(doc T) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := PT(&doc)
	if stored, ok := m.docs[p.DocID()]; ok {
		doc = stored
		p = PT(&doc)
	}
	p.MarkDeleted()
	p.SetRev(m.nextRev())
	m.docs[p.DocID()] = doc
	return doc, nil
}

func (m *mockStore[T, PT]) DeleteBulk(docs []T) []ports.BulkResult {
	results := make([]ports.BulkResult, len(docs))
	for i, doc := range docs {
		deleted, err := m.Delete(doc)
		id := PT(&doc).DocID()
		if err != nil {
			results[i] = ports.BulkResult{ID: id, Err: err}
			continue
		}
		results[i] = ports.BulkResult{ID: id, Rev: PT(&deleted).DocRev(), OK: true}
	}
	return results
}

func (m *mockStore[T, PT]) Close() error { return nil }

// docJSON flattens a document to its JSON field values.
func docJSON(doc any) map[string]any {
	data, _ := json.Marshal(doc)
	var fields map[string]any
	_ = json.Unmarshal(data, &fields)
	return fields
}

// Collection aliases used across the service tests.
type mockAlbumStore = mockStore[domain.Album, *domain.Album]

type mockTrackStore = mockStore[domain.Track, *domain.Track]

type mockPlaylistStore = mockStore[domain.Playlist, *domain.Playlist]
