package bolt

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	bbolt "go.etcd.io/bbolt"

	"github.com/ruckert/canto/internal/domain"
	"github.com/ruckert/canto/internal/ports"
)

// defaultLatestLimit bounds GetLatest when the caller passes no limit.
const defaultLatestLimit = 20

// searchLimit caps free-text result sets; a desktop library does not
// need paging beyond this.
const searchLimit = 1000

// fieldIndex maps each observed value of one JSON field to the set of
// document IDs holding it. byID tracks the value currently indexed for
// each ID so writes can unlink the old value first.
type fieldIndex struct {
	values map[string]map[string]struct{}
	byID   map[string]string
}

// Find returns live documents matching every field of the selector
// exactly. Field indexes for the involved fields are built on first use
// and kept current by subsequent writes. Results are ordered by ID for
// determinism.
func (s *Store[T, PT]) Find(selector map[string]any) ([]T, error) {
	if len(selector) == 0 {
		return s.FindAll()
	}

	s.mu.Lock()
	for field := range selector {
		if _, ok := s.fields[field]; ok {
			continue
		}
		idx, err := s.buildFieldIndex(field)
		if err != nil {
			s.mu.Unlock()
			return nil, domain.NewStoreError("find", s.name, err)
		}
		s.fields[field] = idx
	}

	// Intersect the per-field ID sets
	var candidates map[string]struct{}
	for field, want := range selector {
		ids := s.fields[field].values[fieldKey(want)]
		if len(ids) == 0 {
			s.mu.Unlock()
			return []T{}, nil
		}
		if candidates == nil {
			candidates = make(map[string]struct{}, len(ids))
			for id := range ids {
				candidates[id] = struct{}{}
			}
			continue
		}
		for id := range candidates {
			if _, ok := ids[id]; !ok {
				delete(candidates, id)
			}
		}
	}
	s.mu.Unlock()

	ids := make([]string, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return s.GetMany(ids)
}

// buildFieldIndex scans every live document once and indexes the given
// field. Caller holds s.mu.
func (s *Store[T, PT]) buildFieldIndex(field string) (*fieldIndex, error) {
	idx := &fieldIndex{
		values: make(map[string]map[string]struct{}),
		byID:   make(map[string]string),
	}

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(docsBucket).ForEach(func(key, raw []byte) error {
			if isTombstone(raw) {
				return nil
			}
			var fields map[string]any
			if err := json.Unmarshal(raw, &fields); err != nil {
				return err
			}
			idx.add(string(key), fieldKey(fields[field]))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// updateFieldIndexes reconciles every built field index with one write.
// A nil fields map means the document was tombstoned.
func (s *Store[T, PT]) updateFieldIndexes(id string, fields map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for field, idx := range s.fields {
		idx.remove(id)
		if fields != nil {
			idx.add(id, fieldKey(fields[field]))
		}
	}
}

func (idx *fieldIndex) add(id, value string) {
	set, ok := idx.values[value]
	if !ok {
		set = make(map[string]struct{})
		idx.values[value] = set
	}
	set[id] = struct{}{}
	idx.byID[id] = value
}

func (idx *fieldIndex) remove(id string) {
	old, ok := idx.byID[id]
	if !ok {
		return
	}
	delete(idx.values[old], id)
	if len(idx.values[old]) == 0 {
		delete(idx.values, old)
	}
	delete(idx.byID, id)
}

// fieldKey normalizes a selector or document value for exact matching.
// JSON decoding turns every number into float64, so stringifying both
// sides makes 1969 match 1969.0.
func fieldKey(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		// Trim the trailing .0 of whole numbers
		if val == float64(int64(val)) {
			return jsonNumber(int64(val))
		}
		return jsonFloat(val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

func jsonNumber(n int64) string {
	data, _ := json.Marshal(n)
	return string(data)
}

func jsonFloat(f float64) string {
	data, _ := json.Marshal(f)
	return string(data)
}

// Search runs a free-text relevance query over the given fields (or all
// indexed fields when none are given) and returns matching documents in
// score order. An empty query matches nothing.
func (s *Store[T, PT]) Search(q string, fields []string) ([]T, error) {
	if q == "" {
		return []T{}, nil
	}

	var bq query.Query
	if len(fields) == 0 {
		bq = bleve.NewMatchQuery(q)
	} else {
		parts := make([]query.Query, 0, len(fields))
		for _, field := range fields {
			mq := bleve.NewMatchQuery(q)
			mq.SetField(field)
			parts = append(parts, mq)
		}
		bq = bleve.NewDisjunctionQuery(parts...)
	}

	req := bleve.NewSearchRequest(bq)
	req.Size = searchLimit

	res, err := s.index.Search(req)
	if err != nil {
		return nil, domain.NewStoreError("search", s.name, err)
	}

	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}

	// GetMany drops stale hits whose documents were tombstoned after
	// indexing, and preserves the score order of the rest
	return s.GetMany(ids)
}

// GetLatest returns live documents whose date field is strictly newer
// than q.Since, sorted by that field and truncated to the limit.
func (s *Store[T, PT]) GetLatest(q ports.LatestQuery) ([]T, error) {
	dateField := q.DateField
	if dateField == "" {
		dateField = "created"
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLatestLimit
	}

	type dated struct {
		doc T
		at  time.Time
	}
	var matched []dated

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(docsBucket).ForEach(func(_, raw []byte) error {
			if isTombstone(raw) {
				return nil
			}
			var fields map[string]any
			if err := json.Unmarshal(raw, &fields); err != nil {
				return err
			}
			stamp, ok := fields[dateField].(string)
			if !ok {
				return nil
			}
			at, err := time.Parse(time.RFC3339Nano, stamp)
			if err != nil || !at.After(q.Since) {
				return nil
			}
			var doc T
			if err := json.Unmarshal(raw, &doc); err != nil {
				return err
			}
			matched = append(matched, dated{doc: doc, at: at})
			return nil
		})
	})
	if err != nil {
		return nil, domain.NewStoreError("getLatest", s.name, err)
	}

	sort.Slice(matched, func(i, j int) bool {
		if q.Descending {
			return matched[i].at.After(matched[j].at)
		}
		return matched[i].at.Before(matched[j].at)
	})

	if len(matched) > limit {
		matched = matched[:limit]
	}

	docs := make([]T, 0, len(matched))
	for _, m := range matched {
		docs = append(docs, m.doc)
	}
	return docs, nil
}

// Compile-time checks for the representative entity types.
var (
	_ ports.DocumentStore[domain.Album]    = (*Store[domain.Album, *domain.Album])(nil)
	_ ports.DocumentStore[domain.Track]    = (*Store[domain.Track, *domain.Track])(nil)
	_ ports.DocumentStore[domain.Playlist] = (*Store[domain.Playlist, *domain.Playlist])(nil)
)
