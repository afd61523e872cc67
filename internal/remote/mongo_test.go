package remote

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestChildrenFilter(t *testing.T) {
	filter := childrenFilter("users/u.1/venues")

	cond, ok := filter["_id"].(bson.M)
	if !ok {
		t.Fatalf("filter[_id] = %T, want bson.M", filter["_id"])
	}
	pattern, ok := cond["$regex"].(string)
	if !ok {
		t.Fatalf("$regex = %T, want string", cond["$regex"])
	}

	re := regexp.MustCompile(pattern)
	tests := []struct {
		id   string
		want bool
	}{
		{"users/u.1/venues/v1/visited", true},
		{"users/uX1/venues/v1/visited", false},
		{"users/u.1/venues", false},
		{"prefix/users/u.1/venues/v1", false},
	}
	for _, tt := range tests {
		if got := re.MatchString(tt.id); got != tt.want {
			t.Errorf("pattern %q matches %q = %v, want %v", pattern, tt.id, got, tt.want)
		}
	}
}

func TestLeafDocuments(t *testing.T) {
	writes := []struct {
		path  string
		value any
	}{
		{"users/u1/venues/v1/venueId", "v1"},
		{"users/u1/venues/v1/visited", true},
		{"users/u1/venues/v1/lastUpdated", int64(1700000000)},
		{"users/u1/venues/v2/hidden", false},
	}

	var docs []leafDocument
	for _, w := range writes {
		doc, err := newLeafDocument(w.path, w.value)
		if err != nil {
			t.Fatalf("newLeafDocument(%q) error = %v", w.path, err)
		}
		if doc.Path != w.path {
			t.Errorf("Path = %q, want %q", doc.Path, w.path)
		}
		docs = append(docs, doc)
	}

	if docs[1].Value != "true" {
		t.Errorf("visited Value = %q, want %q", docs[1].Value, "true")
	}

	snap := AssembleChildren("users/u1/venues", leavesFromDocuments(docs))
	var v1 struct {
		VenueID     string `json:"venueId"`
		Visited     bool   `json:"visited"`
		LastUpdated int64  `json:"lastUpdated"`
	}
	if err := json.Unmarshal(snap["v1"], &v1); err != nil {
		t.Fatalf("decoding v1: %v", err)
	}
	if v1.VenueID != "v1" || !v1.Visited || v1.LastUpdated != 1700000000 {
		t.Errorf("v1 = %+v", v1)
	}
	if string(snap["v2"]) != `{"hidden":false}` {
		t.Errorf("v2 = %s", snap["v2"])
	}

	if _, err := newLeafDocument("users/u1/bad", make(chan int)); err == nil {
		t.Error("newLeafDocument() expected error for an unencodable value")
	}
}

func TestMongoStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("snapshot from documents", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "users/u1/venues/v1/visited"}, {Key: "value", Value: "true"}},
			bson.D{{Key: "_id", Value: "users/u1/venues/v1/lastUpdated"}, {Key: "value", Value: "42"}},
			bson.D{{Key: "_id", Value: "users/u1/venues/v2/hidden"}, {Key: "value", Value: "true"}},
		))
		store := &MongoStore{client: mt.Client, collection: mt.Coll}

		snap, err := store.ReadSnapshot(context.Background(), "users/u1/venues")
		if err != nil {
			mt.Fatalf("ReadSnapshot() error = %v", err)
		}
		if len(snap) != 2 {
			mt.Fatalf("ReadSnapshot() returned %d children, want 2", len(snap))
		}
		var v1 struct {
			Visited     bool  `json:"visited"`
			LastUpdated int64 `json:"lastUpdated"`
		}
		if err := json.Unmarshal(snap["v1"], &v1); err != nil {
			mt.Fatalf("decoding v1: %v", err)
		}
		if !v1.Visited || v1.LastUpdated != 42 {
			mt.Errorf("v1 = %+v, want visited with lastUpdated 42", v1)
		}

		started := mt.GetStartedEvent()
		if started == nil || started.CommandName != "find" {
			mt.Fatalf("started event = %v, want find", started)
		}
	})

	mt.Run("write upserts the leaf", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		store := &MongoStore{client: mt.Client, collection: mt.Coll}

		if err := store.Write(context.Background(), "/users/u1/venues/v1/visited/", true); err != nil {
			mt.Fatalf("Write() error = %v", err)
		}

		started := mt.GetStartedEvent()
		if started == nil || started.CommandName != "update" {
			mt.Fatalf("started event = %v, want update", started)
		}
		cmd := started.Command
		if got := cmd.Lookup("updates", "0", "q", "_id").StringValue(); got != "users/u1/venues/v1/visited" {
			mt.Errorf("_id = %q, want %q", got, "users/u1/venues/v1/visited")
		}
		if got := cmd.Lookup("updates", "0", "u", "$set", "value").StringValue(); got != "true" {
			mt.Errorf("value = %q, want %q", got, "true")
		}
		if !cmd.Lookup("updates", "0", "upsert").Boolean() {
			mt.Error("update should upsert")
		}
	})

	mt.Run("invalid path", func(mt *mtest.T) {
		store := &MongoStore{client: mt.Client, collection: mt.Coll}

		if err := store.Write(context.Background(), "users//venues", true); err == nil {
			mt.Error("Write() expected error for an empty segment")
		}
	})
}
