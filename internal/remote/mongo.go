package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"radius-go/internal/radius"
)

// leafDocument is the stored form of one remote path.
type leafDocument struct {
	Path  string `bson:"_id"`
	Value string `bson:"value"`
}

// newLeafDocument encodes value as the document stored for path.
func newLeafDocument(path string, value any) (leafDocument, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return leafDocument{}, fmt.Errorf("encoding value for %s: %w", path, err)
	}
	return leafDocument{Path: path, Value: string(data)}, nil
}

// leavesFromDocuments maps stored documents back to leaf values by path.
func leavesFromDocuments(docs []leafDocument) map[string][]byte {
	leaves := make(map[string][]byte, len(docs))
	for _, d := range docs {
		leaves[d.Path] = []byte(d.Value)
	}
	return leaves
}

// MongoStore keeps each remote path as one document in a collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore connects to uri, verifies the connection and selects
// database.collection.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	clientOptions.SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

// childrenFilter matches every document stored below path.
func childrenFilter(path string) bson.M {
	return bson.M{"_id": bson.M{"$regex": "^" + regexp.QuoteMeta(path+"/")}}
}

// ReadSnapshot loads every document below path.
func (m *MongoStore) ReadSnapshot(ctx context.Context, path string) (map[string]json.RawMessage, error) {
	p, err := cleanPath(path)
	if err != nil {
		return nil, err
	}

	cursor, err := m.collection.Find(ctx, childrenFilter(p))
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", p, err)
	}

	var docs []leafDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("reading %s: %w", p, err)
	}

	return AssembleChildren(p, leavesFromDocuments(docs)), nil
}

// Write upserts the document for path with the JSON encoding of value.
func (m *MongoStore) Write(ctx context.Context, path string, value any) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	doc, err := newLeafDocument(p, value)
	if err != nil {
		return err
	}

	_, err = m.collection.UpdateOne(ctx,
		bson.M{"_id": doc.Path},
		bson.M{"$set": bson.M{"value": doc.Value}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("writing %s: %w", p, err)
	}
	return nil
}

// Close disconnects the client.
func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// Compile-time check that MongoStore implements radius.RemoteStore interface
var _ radius.RemoteStore = (*MongoStore)(nil)
