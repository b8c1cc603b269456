package store

import (
	"context"
	"strings"
	"time"
)

// Filter operators supported by RunQuery.
const (
	FilterOpEqual    = "=="
	FilterOpLessEq   = "<="
	// FilterOpNotEqual matches documents where the field differs from the
	// value, including documents where the field is absent. The memory and
	// Mongo backends implement that directly; Firestore delegates to the
	// backend's own "!=" semantics.
	FilterOpNotEqual = "!="
)

// ServerTimestamp is a sentinel merge value. Backends replace it with a
// server-assigned timestamp at write time.
var ServerTimestamp = serverTimestamp{}

type serverTimestamp struct{}

// Doc is a point-in-time snapshot of a document. A missing document is
// returned with Exists=false rather than an error.
type Doc struct {
	Path   string
	ID     string
	Exists bool
	Data   map[string]interface{}
}

// Filter is a single field predicate in a query.
type Filter struct {
	Field string
	Op    string
	Value interface{}
}

// Query selects documents across every collection named CollectionGroup,
// regardless of parent, with an optional result cap.
type Query struct {
	CollectionGroup string
	Filters         []Filter
	Limit           int
}

// Tx exposes reads and merge-writes inside a store transaction.
type Tx interface {
	Get(path string) (Doc, error)
	Merge(path string, fields map[string]interface{}) error
}

// Batch accumulates merge-writes and commits them in one shot. Committing an
// empty batch is a no-op.
type Batch interface {
	Merge(path string, fields map[string]interface{})
	Commit(ctx context.Context) error
}

// Store is the document store consumed by the engagement pipeline. All writes
// are field-level merges; full-document overwrites are never issued so
// concurrent writers on other fields are not clobbered.
type Store interface {
	Get(ctx context.Context, path string) (Doc, error)
	Merge(ctx context.Context, path string, fields map[string]interface{}) error
	ListCollection(ctx context.Context, path string) ([]Doc, error)
	RunQuery(ctx context.Context, q Query) ([]Doc, error)
	// RunTransaction runs fn with read-then-conditional-write semantics and
	// retries the whole function on write conflicts until it commits.
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error
	NewBatch() Batch
}

// DocID returns the final path segment.
func DocID(path string) string {
	segs := strings.Split(path, "/")
	return segs[len(segs)-1]
}

// ParentDocPath returns the document path owning the collection that contains
// the given document, or "" for top-level documents.
// e.g. "spaces/s1/notes/n1" -> "spaces/s1".
func ParentDocPath(path string) string {
	segs := strings.Split(path, "/")
	if len(segs) < 4 {
		return ""
	}
	return strings.Join(segs[:len(segs)-2], "/")
}

// collectionGroupOf returns the name of the collection a document path sits
// in, e.g. "spaces/s1/notes/n1" -> "notes".
func collectionGroupOf(path string) string {
	segs := strings.Split(path, "/")
	if len(segs) < 2 {
		return ""
	}
	return segs[len(segs)-2]
}

// String reads a string field; missing or mistyped fields yield "".
func (d Doc) String(field string) string {
	if s, ok := d.Data[field].(string); ok {
		return s
	}
	return ""
}

// Int reads an integer field, tolerating the numeric types the backends
// deserialize to.
func (d Doc) Int(field string) int {
	switch v := d.Data[field].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Bool reads a boolean field; anything else is false.
func (d Doc) Bool(field string) bool {
	b, _ := d.Data[field].(bool)
	return b
}

// Time reads a timestamp field. The second return reports whether the field
// was present as a time value.
func (d Doc) Time(field string) (time.Time, bool) {
	t, ok := d.Data[field].(time.Time)
	return t, ok
}

// Strings reads a string-array field, tolerating []interface{} as the
// backends deserialize arrays to.
func (d Doc) Strings(field string) []string {
	switch v := d.Data[field].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
