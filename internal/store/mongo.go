package store

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo documents are keyed by the full logical path so the slash-path store
// contract maps cleanly onto flat collections: a document lives in the
// collection named after its collection group (the last collection segment),
// with _id holding the path and _collectionPath its parent collection path.
// Collection-group queries then become plain finds on one collection.
const metaCollectionPath = "_collectionPath"

// MongoStore adapts a Mongo database to the Store interface. Merges are $set
// upserts, transactions use sessions (the driver retries transient conflicts
// itself), and batches go through BulkWrite.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

func (s *MongoStore) Get(ctx context.Context, path string) (Doc, error) {
	return s.getWith(ctx, path)
}

func (s *MongoStore) getWith(ctx context.Context, path string) (Doc, error) {
	var raw bson.M
	err := s.db.Collection(collectionGroupOf(path)).FindOne(ctx, bson.M{"_id": path}).Decode(&raw)
	if err == mongo.ErrNoDocuments {
		return Doc{Path: path, ID: DocID(path), Data: map[string]interface{}{}}, nil
	}
	if err != nil {
		return Doc{}, err
	}
	return Doc{Path: path, ID: DocID(path), Exists: true, Data: normalizeDoc(raw)}, nil
}

func (s *MongoStore) Merge(ctx context.Context, path string, fields map[string]interface{}) error {
	filter, update := mergeUpdate(path, fields)
	_, err := s.db.Collection(collectionGroupOf(path)).
		UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (s *MongoStore) ListCollection(ctx context.Context, path string) ([]Doc, error) {
	segs := strings.Split(path, "/")
	group := segs[len(segs)-1]
	cursor, err := s.db.Collection(group).Find(ctx, bson.M{metaCollectionPath: path})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	return decodeAll(ctx, cursor)
}

func (s *MongoStore) RunQuery(ctx context.Context, q Query) ([]Doc, error) {
	filter := bson.M{}
	for _, f := range q.Filters {
		switch f.Op {
		case FilterOpEqual:
			filter[f.Field] = f.Value
		case FilterOpLessEq:
			filter[f.Field] = bson.M{"$lte": f.Value}
		case FilterOpNotEqual:
			// $ne matches absent fields, which is what the sweep needs for
			// never-notified notes.
			filter[f.Field] = bson.M{"$ne": f.Value}
		}
	}
	opts := options.Find()
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	cursor, err := s.db.Collection(q.CollectionGroup).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	return decodeAll(ctx, cursor)
}

func (s *MongoStore) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	session, err := s.db.Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(&mongoTx{store: s, ctx: sc})
	})
	return err
}

func (s *MongoStore) NewBatch() Batch {
	return &mongoBatch{store: s, models: make(map[string][]mongo.WriteModel)}
}

type mongoTx struct {
	store *MongoStore
	ctx   mongo.SessionContext
}

func (t *mongoTx) Get(path string) (Doc, error) {
	return t.store.getWith(t.ctx, path)
}

func (t *mongoTx) Merge(path string, fields map[string]interface{}) error {
	return t.store.Merge(t.ctx, path, fields)
}

type mongoBatch struct {
	store  *MongoStore
	models map[string][]mongo.WriteModel
	size   int
}

func (b *mongoBatch) Merge(path string, fields map[string]interface{}) {
	filter, update := mergeUpdate(path, fields)
	model := mongo.NewUpdateOneModel().SetFilter(filter).SetUpdate(update).SetUpsert(true)
	group := collectionGroupOf(path)
	b.models[group] = append(b.models[group], model)
	b.size++
}

func (b *mongoBatch) Commit(ctx context.Context) error {
	if b.size == 0 {
		return nil
	}
	for group, models := range b.models {
		if _, err := b.store.db.Collection(group).BulkWrite(ctx, models); err != nil {
			return err
		}
	}
	return nil
}

func mergeUpdate(path string, fields map[string]interface{}) (bson.M, bson.M) {
	segs := strings.Split(path, "/")
	set := bson.M{metaCollectionPath: strings.Join(segs[:len(segs)-1], "/")}
	current := bson.M{}
	for k, v := range fields {
		if _, ok := v.(serverTimestamp); ok {
			current[k] = true
			continue
		}
		set[k] = v
	}
	update := bson.M{"$set": set}
	if len(current) > 0 {
		update["$currentDate"] = current
	}
	return bson.M{"_id": path}, update
}

func decodeAll(ctx context.Context, cursor *mongo.Cursor) ([]Doc, error) {
	var raws []bson.M
	if err := cursor.All(ctx, &raws); err != nil {
		return nil, err
	}
	docs := make([]Doc, 0, len(raws))
	for _, raw := range raws {
		path, _ := raw["_id"].(string)
		docs = append(docs, Doc{Path: path, ID: DocID(path), Exists: true, Data: normalizeDoc(raw)})
	}
	return docs, nil
}

// normalizeDoc strips store metadata and converts bson types to the generic
// forms the Doc accessors understand.
func normalizeDoc(raw bson.M) map[string]interface{} {
	out := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		if k == "_id" || k == metaCollectionPath {
			continue
		}
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time()
	case primitive.A:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	case bson.M:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = normalizeValue(e)
		}
		return out
	}
	return v
}
