package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	apperrors "github.com/matzehuels/inkgrid/pkg/errors"
	"github.com/matzehuels/inkgrid/pkg/raster"
)

// Mongo defaults.
const (
	DefaultDatabase   = "inkgrid"
	DefaultCollection = "vectors"

	// insertBatch bounds the documents sent per InsertMany call.
	insertBatch = 1000
)

// MongoConfig configures a [MongoSink].
type MongoConfig struct {
	URI        string
	Database   string
	Collection string

	// RunID tags every document. Empty generates a random UUID.
	RunID string
}

// MongoSink inserts one document per vector.
type MongoSink struct {
	client *mongo.Client
	coll   *mongo.Collection
	runID  string
	now    func() time.Time
}

// vectorDoc is the stored document shape.
type vectorDoc struct {
	RunID     string    `bson:"run_id"`
	Category  string    `bson:"category"`
	Split     string    `bson:"split"`
	Mode      string    `bson:"mode"`
	Size      int       `bson:"size"`
	Index     int       `bson:"index"`
	Vector    []float64 `bson:"vector"`
	CreatedAt time.Time `bson:"created_at"`
}

// NewMongoSink connects to MongoDB, verifies the connection and ensures
// the lookup index exists.
func NewMongoSink(ctx context.Context, cfg MongoConfig) (*MongoSink, error) {
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "connect mongodb")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "ping mongodb")
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "run_id", Value: 1},
			{Key: "category", Value: 1},
			{Key: "split", Value: 1},
			{Key: "size", Value: 1},
		},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "create index")
	}

	return &MongoSink{client: client, coll: coll, runID: cfg.RunID, now: time.Now}, nil
}

// Name implements Sink.
func (s *MongoSink) Name() string { return "mongo" }

// RunID returns the identifier attached to documents written by s.
func (s *MongoSink) RunID() string { return s.runID }

// Write implements Sink.
func (s *MongoSink) Write(ctx context.Context, key Key, vectors []raster.Vector) error {
	if err := key.Validate(); err != nil {
		return err
	}
	docs := documents(s.runID, key, vectors, s.now())
	for start := 0; start < len(docs); start += insertBatch {
		end := min(start+insertBatch, len(docs))
		if _, err := s.coll.InsertMany(ctx, docs[start:end]); err != nil {
			return apperrors.Wrap(apperrors.ErrCodeStore, err, "insert %s", key.FileName())
		}
	}
	return nil
}

// Close disconnects the client.
func (s *MongoSink) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func documents(runID string, key Key, vectors []raster.Vector, now time.Time) []any {
	docs := make([]any, len(vectors))
	for i, v := range vectors {
		docs[i] = vectorDoc{
			RunID:     runID,
			Category:  key.Category,
			Split:     key.Split,
			Mode:      key.Mode,
			Size:      key.Size,
			Index:     i,
			Vector:    v,
			CreatedAt: now,
		}
	}
	return docs
}

var _ Sink = (*MongoSink)(nil)
