// Package mongostore is the MongoDB docstore.Store.
package mongostore

import (
	"context"
	stderrors "errors"

	"github.com/kart-io/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kart-io/docbench/internal/docstore"
	"github.com/kart-io/docbench/pkg/component/mongodb"
	"github.com/kart-io/docbench/pkg/errors"
	mongoopts "github.com/kart-io/docbench/pkg/options/mongodb"
)

const profileCollection = "system.profile"

// Store runs every docstore operation against one MongoDB database.
type Store struct {
	client *mongodb.Client
	db     *mongo.Database
}

var _ docstore.Store = (*Store)(nil)

// New wraps a connected client.
func New(c *mongodb.Client) *Store {
	return &Store{client: c, db: c.Database()}
}

// Connector connects with opts each time the shared handle is created. A
// connection string that cannot be used is reported as docstore.ErrConfig.
func Connector(opts *mongoopts.Options) docstore.Connector {
	return func(ctx context.Context) (docstore.Store, error) {
		c, err := mongodb.New(ctx, opts)
		if err != nil {
			if errors.GetCategory(errors.GetCode(err)) == errors.CategoryConfig {
				return nil, docstore.ErrConfig.WithCause(err).WithMessage(err.Error())
			}
			return nil, err
		}
		info := c.Info()
		logger.Debugw("Connected to mongodb",
			"url", mongoopts.RedactURL(info.URL),
			"database", info.Database,
		)
		return New(c), nil
	}
}

func (s *Store) coll(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func (s *Store) Defaults() docstore.Defaults {
	info := s.client.Info()
	return docstore.Defaults{
		ReadPreference: info.ReadPreference,
		WriteConcern:   info.WriteConcern,
	}
}

func (s *Store) Collections(ctx context.Context) ([]string, error) {
	return s.db.ListCollectionNames(ctx, bson.D{})
}

func (s *Store) Get(ctx context.Context, coll, id string, fields []string) (docstore.Document, bool, error) {
	opts := options.FindOne()
	if p := projection(fields); p != nil {
		opts.SetProjection(p)
	}
	var m bson.M
	err := s.coll(coll).FindOne(ctx, byID(id), opts).Decode(&m)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return docstore.Document{}, false, nil
	}
	if err != nil {
		return docstore.Document{}, false, err
	}
	return decode(m), true, nil
}

// Scan returns at most limit live documents. A non-positive limit returns
// nothing, where the driver would read it as no limit.
func (s *Store) Scan(ctx context.Context, coll, start string, limit int, fields []string, now int64) ([]docstore.Document, error) {
	if limit <= 0 {
		return []docstore.Document{}, nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: docstore.FieldID, Value: 1}}).
		SetLimit(int64(limit))
	if p := projection(fields); p != nil {
		opts.SetProjection(p)
	}
	return s.find(ctx, coll, liveRange(start, now), opts)
}

func (s *Store) find(ctx context.Context, coll string, filter bson.D, opts *options.FindOptions) ([]docstore.Document, error) {
	cur, err := s.coll(coll).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, err
	}
	out := make([]docstore.Document, 0, len(raw))
	for _, m := range raw {
		out = append(out, decode(m))
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, coll string, doc docstore.Document) error {
	_, err := s.coll(coll).InsertOne(ctx, encode(doc))
	return err
}

func (s *Store) InsertMany(ctx context.Context, coll string, docs []docstore.Document) error {
	if len(docs) == 0 {
		return nil
	}
	batch := make([]interface{}, 0, len(docs))
	for _, d := range docs {
		batch = append(batch, encode(d))
	}
	_, err := s.coll(coll).InsertMany(ctx, batch, options.InsertMany().SetOrdered(false))
	return err
}

func (s *Store) Replace(ctx context.Context, coll string, doc docstore.Document) error {
	_, err := s.coll(coll).ReplaceOne(ctx, byID(doc.ID), encode(doc), options.Replace().SetUpsert(true))
	return err
}

func (s *Store) UpsertMany(ctx context.Context, coll string, docs []docstore.Document) error {
	if len(docs) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(docs))
	for _, d := range docs {
		set := setFields(d)
		if len(set) == 0 {
			// $set rejects an empty document.
			models = append(models, mongo.NewReplaceOneModel().
				SetFilter(byID(d.ID)).
				SetReplacement(encode(d)).
				SetUpsert(true))
			continue
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(byID(d.ID)).
			SetUpdate(bson.D{{Key: "$set", Value: set}}).
			SetUpsert(true))
	}
	_, err := s.coll(coll).BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	return err
}

func (s *Store) Update(ctx context.Context, coll, id string, values map[string][]byte) (int64, error) {
	if len(values) == 0 {
		return s.coll(coll).CountDocuments(ctx, byID(id))
	}
	res, err := s.coll(coll).UpdateOne(ctx, byID(id), bson.D{{Key: "$set", Value: valuesSet(values)}})
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

func (s *Store) Delete(ctx context.Context, coll, id string) (int64, error) {
	res, err := s.coll(coll).DeleteOne(ctx, byID(id))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *Store) DeleteExpired(ctx context.Context, coll string, now int64) (int64, error) {
	res, err := s.coll(coll).DeleteMany(ctx, expiredAt(now))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *Store) FindMeta(ctx context.Context, coll string, q docstore.MetaQuery) ([]docstore.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: docstore.FieldID, Value: 1}})
	return s.find(ctx, coll, metaFilter(q), opts)
}

func (s *Store) UpdateMeta(ctx context.Context, coll string, q docstore.MetaQuery, field, value string) (int64, error) {
	update := bson.D{{Key: "$set", Value: bson.D{{Key: field, Value: value}}}}
	res, err := s.coll(coll).UpdateMany(ctx, metaFilter(q), update)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

func (s *Store) DeleteMeta(ctx context.Context, coll string, q docstore.MetaQuery) (int64, error) {
	res, err := s.coll(coll).DeleteMany(ctx, metaFilter(q))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// RecentProfile reads the database profiler collection, newest first. Each
// entry is rendered as extended JSON.
func (s *Store) RecentProfile(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return []string{}, nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "ts", Value: -1}}).
		SetLimit(int64(n))
	cur, err := s.coll(profileCollection).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()

	out := make([]string, 0, n)
	for cur.Next(ctx) {
		out = append(out, cur.Current.String())
	}
	return out, cur.Err()
}

// Sync issues fsync against the admin database.
func (s *Store) Sync(ctx context.Context) error {
	return s.client.Raw().Database("admin").RunCommand(ctx, bson.D{{Key: "fsync", Value: 1}}).Err()
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
