package store

import (
	"context"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore adapts a Firestore client to the Store interface. This is
// the production backend; the trigger infrastructure and the clients read the
// same documents, so every write goes through set-with-merge.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) Get(ctx context.Context, path string) (Doc, error) {
	snap, err := s.client.Doc(path).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Doc{Path: path, ID: DocID(path), Data: map[string]interface{}{}}, nil
	}
	if err != nil {
		return Doc{}, err
	}
	return Doc{Path: path, ID: snap.Ref.ID, Exists: true, Data: snap.Data()}, nil
}

func (s *FirestoreStore) Merge(ctx context.Context, path string, fields map[string]interface{}) error {
	_, err := s.client.Doc(path).Set(ctx, translateSentinels(fields), firestore.MergeAll)
	return err
}

func (s *FirestoreStore) ListCollection(ctx context.Context, path string) ([]Doc, error) {
	snaps, err := s.client.Collection(path).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	docs := make([]Doc, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, Doc{
			Path:   relativePath(snap.Ref),
			ID:     snap.Ref.ID,
			Exists: true,
			Data:   snap.Data(),
		})
	}
	return docs, nil
}

func (s *FirestoreStore) RunQuery(ctx context.Context, q Query) ([]Doc, error) {
	fq := s.client.CollectionGroup(q.CollectionGroup).Query
	for _, f := range q.Filters {
		fq = fq.Where(f.Field, f.Op, f.Value)
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}
	snaps, err := fq.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	docs := make([]Doc, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, Doc{
			Path:   relativePath(snap.Ref),
			ID:     snap.Ref.ID,
			Exists: true,
			Data:   snap.Data(),
		})
	}
	return docs, nil
}

func (s *FirestoreStore) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, t *firestore.Transaction) error {
		return fn(&firestoreTx{store: s, tx: t})
	})
}

func (s *FirestoreStore) NewBatch() Batch {
	return &firestoreBatch{store: s, batch: s.client.Batch()}
}

type firestoreTx struct {
	store *FirestoreStore
	tx    *firestore.Transaction
}

func (t *firestoreTx) Get(path string) (Doc, error) {
	snap, err := t.tx.Get(t.store.client.Doc(path))
	if status.Code(err) == codes.NotFound {
		return Doc{Path: path, ID: DocID(path), Data: map[string]interface{}{}}, nil
	}
	if err != nil {
		return Doc{}, err
	}
	return Doc{Path: path, ID: snap.Ref.ID, Exists: true, Data: snap.Data()}, nil
}

func (t *firestoreTx) Merge(path string, fields map[string]interface{}) error {
	return t.tx.Set(t.store.client.Doc(path), translateSentinels(fields), firestore.MergeAll)
}

type firestoreBatch struct {
	store *FirestoreStore
	batch *firestore.WriteBatch
	size  int
}

func (b *firestoreBatch) Merge(path string, fields map[string]interface{}) {
	b.batch.Set(b.store.client.Doc(path), translateSentinels(fields), firestore.MergeAll)
	b.size++
}

func (b *firestoreBatch) Commit(ctx context.Context) error {
	if b.size == 0 {
		return nil
	}
	_, err := b.batch.Commit(ctx)
	return err
}

func translateSentinels(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if _, ok := v.(serverTimestamp); ok {
			out[k] = firestore.ServerTimestamp
			continue
		}
		out[k] = v
	}
	return out
}

// relativePath strips the "projects/{p}/databases/{d}/documents/" prefix from
// a document ref's full resource name.
func relativePath(ref *firestore.DocumentRef) string {
	const marker = "/documents/"
	if i := strings.Index(ref.Path, marker); i >= 0 {
		return ref.Path[i+len(marker):]
	}
	return ref.Path
}
