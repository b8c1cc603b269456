package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and the "memory" dev
// backend. Transactions are optimistic: reads record per-document versions,
// writes are buffered, and the commit re-checks every recorded version under
// the lock, retrying the whole function on a mismatch.
type MemoryStore struct {
	mu       sync.Mutex
	docs     map[string]map[string]interface{}
	versions map[string]int64
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:     make(map[string]map[string]interface{}),
		versions: make(map[string]int64),
		now:      time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, path string) (Doc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(path), nil
}

func (s *MemoryStore) Merge(ctx context.Context, path string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(path, fields)
	return nil
}

func (s *MemoryStore) ListCollection(ctx context.Context, path string) ([]Doc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Doc
	prefix := path + "/"
	for p := range s.docs {
		if strings.HasPrefix(p, prefix) && !strings.Contains(p[len(prefix):], "/") {
			out = append(out, s.snapshotLocked(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (s *MemoryStore) RunQuery(ctx context.Context, q Query) ([]Doc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Doc
	for p := range s.docs {
		if collectionGroupOf(p) != q.CollectionGroup {
			continue
		}
		if !matchesFilters(s.docs[p], q.Filters) {
			continue
		}
		out = append(out, s.snapshotLocked(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// RunTransaction retries on conflict until the commit lands or the context
// ends. Every failed commit means some other transaction committed, so the
// system as a whole always makes progress.
func (s *MemoryStore) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		tx := &memTx{store: s, reads: make(map[string]int64)}
		if err := fn(tx); err != nil {
			return err
		}
		if s.tryCommit(tx) {
			return nil
		}
	}
}

func (s *MemoryStore) NewBatch() Batch {
	return &memBatch{store: s}
}

func (s *MemoryStore) tryCommit(tx *memTx) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for path, version := range tx.reads {
		if s.versions[path] != version {
			return false
		}
	}
	for _, w := range tx.writes {
		s.applyLocked(w.path, w.fields)
	}
	return true
}

func (s *MemoryStore) snapshotLocked(path string) Doc {
	data, ok := s.docs[path]
	if !ok {
		return Doc{Path: path, ID: DocID(path), Data: map[string]interface{}{}}
	}
	return Doc{Path: path, ID: DocID(path), Exists: true, Data: cloneMap(data)}
}

func (s *MemoryStore) applyLocked(path string, fields map[string]interface{}) {
	doc, ok := s.docs[path]
	if !ok {
		doc = make(map[string]interface{})
		s.docs[path] = doc
	}
	for k, v := range fields {
		if _, isServerTime := v.(serverTimestamp); isServerTime {
			doc[k] = s.now()
			continue
		}
		doc[k] = cloneValue(v)
	}
	s.versions[path]++
}

type write struct {
	path   string
	fields map[string]interface{}
}

type memTx struct {
	store  *MemoryStore
	reads  map[string]int64
	writes []write
}

func (t *memTx) Get(path string) (Doc, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.reads[path] = t.store.versions[path]
	return t.store.snapshotLocked(path), nil
}

func (t *memTx) Merge(path string, fields map[string]interface{}) error {
	t.writes = append(t.writes, write{path: path, fields: fields})
	return nil
}

type memBatch struct {
	store  *MemoryStore
	writes []write
}

func (b *memBatch) Merge(path string, fields map[string]interface{}) {
	b.writes = append(b.writes, write{path: path, fields: fields})
}

func (b *memBatch) Commit(ctx context.Context) error {
	if len(b.writes) == 0 {
		return nil
	}
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	for _, w := range b.writes {
		b.store.applyLocked(w.path, w.fields)
	}
	return nil
}

func matchesFilters(data map[string]interface{}, filters []Filter) bool {
	for _, f := range filters {
		value, present := data[f.Field]
		switch f.Op {
		case FilterOpEqual:
			if !present || !valuesEqual(value, f.Value) {
				return false
			}
		case FilterOpNotEqual:
			// Absent fields count as "not equal".
			if present && valuesEqual(value, f.Value) {
				return false
			}
		case FilterOpLessEq:
			if !present || !lessOrEqual(value, f.Value) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func valuesEqual(a, b interface{}) bool {
	if at, aok := a.(time.Time); aok {
		bt, bok := b.(time.Time)
		return bok && at.Equal(bt)
	}
	return a == b
}

func lessOrEqual(a, b interface{}) bool {
	if at, aok := a.(time.Time); aok {
		bt, bok := b.(time.Time)
		return bok && !at.After(bt)
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	return aok && bok && af <= bf
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return cloneMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	}
	return v
}
