package storage

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	logx "evara/pkg/logx"
)

const runsCollection = "broadcasts"

type mongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	log    logx.Logger
}

// memberDoc is the whole schema of a users/groups document.
type memberDoc struct {
	ID int64 `bson:"_id"`
}

func openMongo(ctx context.Context, cfg Config, log logx.Logger) (Store, error) {
	uri := strings.TrimSpace(cfg.URL)
	if uri == "" {
		return nil, errors.New("mongo url is required")
	}
	cctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(cfg.ConnectTimeout))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(cctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	name := cfg.Database
	if name == "" {
		name = "EvaraBotDB"
	}
	log.Info("mongo store ready", logx.String("database", name))
	return &mongoStore{client: client, db: client.Database(name), log: log}, nil
}

func (s *mongoStore) coll(c Collection) (*mongo.Collection, error) {
	if err := c.valid(); err != nil {
		return nil, err
	}
	return s.db.Collection(string(c)), nil
}

func (s *mongoStore) Insert(ctx context.Context, c Collection, id int64) (bool, error) {
	coll, err := s.coll(c)
	if err != nil {
		return false, err
	}
	err = coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Err()
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, mongo.ErrNoDocuments):
		return false, err
	}
	if _, err := coll.InsertOne(ctx, memberDoc{ID: id}); err != nil {
		// lost a race with a concurrent insert of the same id
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *mongoStore) Delete(ctx context.Context, c Collection, id int64) error {
	coll, err := s.coll(c)
	if err != nil {
		return err
	}
	_, err = coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	return err
}

func (s *mongoStore) Count(ctx context.Context, c Collection) (int64, error) {
	coll, err := s.coll(c)
	if err != nil {
		return 0, err
	}
	return coll.CountDocuments(ctx, bson.D{})
}

// IDs streams from a live cursor.
func (s *mongoStore) IDs(ctx context.Context, c Collection) iter.Seq2[int64, error] {
	return func(yield func(int64, error) bool) {
		coll, err := s.coll(c)
		if err != nil {
			yield(0, err)
			return
		}
		cur, err := coll.Find(ctx, bson.D{}, options.Find().SetProjection(bson.D{{Key: "_id", Value: 1}}))
		if err != nil {
			yield(0, err)
			return
		}
		defer cur.Close(context.WithoutCancel(ctx))

		for cur.Next(ctx) {
			var doc memberDoc
			if err := cur.Decode(&doc); err != nil {
				// foreign document shape; skip it
				s.log.Warn("skipping undecodable member", logx.String("collection", string(c)), logx.Err(err))
				continue
			}
			if !yield(doc.ID, nil) {
				return
			}
		}
		if err := cur.Err(); err != nil {
			yield(0, err)
		}
	}
}

func (s *mongoStore) AppendRun(ctx context.Context, r BroadcastRun) error {
	_, err := s.db.Collection(runsCollection).InsertOne(ctx, r)
	return err
}

func (s *mongoStore) LastRun(ctx context.Context) (BroadcastRun, bool, error) {
	var r BroadcastRun
	err := s.db.Collection(runsCollection).
		FindOne(ctx, bson.D{}, options.FindOne().SetSort(bson.D{{Key: "finished_at", Value: -1}})).
		Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return BroadcastRun{}, false, nil
	}
	if err != nil {
		return BroadcastRun{}, false, err
	}
	return r, true, nil
}

func (s *mongoStore) Ping(ctx context.Context) error { return s.client.Ping(ctx, readpref.Primary()) }

func (s *mongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}
