package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fakeS3 is an in-memory bucket that pages listings pageSize keys at a time.
type fakeS3 struct {
	mu       sync.Mutex
	objects  map[string][]byte
	pageSize int
	lists    int
}

func newFakeS3(pageSize int) *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte), pageSize: pageSize}
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if in.ContinuationToken != nil {
		start, _ = strconv.Atoi(*in.ContinuationToken)
	}
	end := min(start+f.pageSize, len(keys))

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, fmt.Errorf("no such key: %s", aws.ToString(in.Key))
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store_WriteAndSnapshot(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3(2)
	store := NewS3StoreFromClient(fake, "radius-sync", "prod")

	writes := map[string]any{
		"users/u1/venues/v1/visited":     true,
		"users/u1/venues/v1/lastUpdated": int64(7),
		"users/u1/venues/v2/hidden":      true,
		"users/u1/venues/v3/visited":     false,
		"users/u1/address/address":       "1 Market St",
	}
	for path, value := range writes {
		if err := store.Write(ctx, path, value); err != nil {
			t.Fatalf("Write(%q) error = %v", path, err)
		}
	}

	if got := string(fake.objects["prod/users/u1/venues/v1/visited"]); got != "true" {
		t.Errorf("object body = %q, want %q", got, "true")
	}

	snap, err := store.ReadSnapshot(ctx, "users/u1/venues")
	if err != nil {
		t.Fatalf("ReadSnapshot() error = %v", err)
	}
	if len(snap) != 3 {
		t.Fatalf("ReadSnapshot() returned %d children, want 3", len(snap))
	}
	if fake.lists < 2 {
		t.Errorf("ListObjectsV2 called %d times, want paging across pages", fake.lists)
	}

	var v1 struct {
		Visited     bool  `json:"visited"`
		LastUpdated int64 `json:"lastUpdated"`
	}
	if err := json.Unmarshal(snap["v1"], &v1); err != nil {
		t.Fatalf("decoding v1: %v", err)
	}
	if !v1.Visited || v1.LastUpdated != 7 {
		t.Errorf("v1 = %+v, want visited with lastUpdated 7", v1)
	}
}

func TestNewS3StoreFromClient_Prefix(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"", "users/u1"},
		{"prod", "prod/users/u1"},
		{"prod/", "prod/users/u1"},
	}

	for _, tt := range tests {
		store := NewS3StoreFromClient(newFakeS3(10), "b", tt.prefix)
		if got := store.key("users/u1"); got != tt.want {
			t.Errorf("key() with prefix %q = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestNewS3Store_RequiresBucket(t *testing.T) {
	if _, err := NewS3Store(context.Background(), S3Options{}); err == nil {
		t.Error("NewS3Store() without bucket should fail")
	}
}
