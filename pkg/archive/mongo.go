package archive

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/pglocktrace/pkg/errors"
	"github.com/matzehuels/pglocktrace/pkg/trace"
)

// Default MongoDB names.
const (
	DefaultDatabase   = "pglocktrace"
	DefaultCollection = "sessions"
)

// MongoStore writes summaries into a MongoDB collection keyed by session id.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to uri and verifies the connection. Empty database
// or collection names use the defaults.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if database == "" {
		database = DefaultDatabase
	}
	if collection == "" {
		collection = DefaultCollection
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "ping mongodb")
	}
	return &MongoStore{client: client, coll: client.Database(database).Collection(collection)}, nil
}

// Save upserts s.
func (m *MongoStore) Save(ctx context.Context, s trace.Summary) error {
	_, err := m.coll.ReplaceOne(ctx, bson.M{"_id": s.ID}, s, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}
	return nil
}

// Load reads the summary with the given id.
func (m *MongoStore) Load(ctx context.Context, id string) (trace.Summary, error) {
	var s trace.Summary
	err := m.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&s)
	if err == mongo.ErrNoDocuments {
		return s, errors.New(errors.ErrCodeFileNotFound, "no archived session %s", id)
	}
	if err != nil {
		return s, fmt.Errorf("load session %s: %w", id, err)
	}
	return s, nil
}

// Close disconnects the client.
func (m *MongoStore) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
