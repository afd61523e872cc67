package remote

import (
	"encoding/json"
	"testing"
)

func TestCleanPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "plain", path: "users/u1/venues", want: "users/u1/venues"},
		{name: "surrounding slashes", path: "/users/u1/", want: "users/u1"},
		{name: "empty", path: "", wantErr: true},
		{name: "only slashes", path: "//", wantErr: true},
		{name: "empty segment", path: "users//venues", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cleanPath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("cleanPath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("cleanPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestAssembleChildren(t *testing.T) {
	t.Run("groups leaves per child", func(t *testing.T) {
		leaves := map[string][]byte{
			"users/u1/venues/v1/visited":     []byte(`true`),
			"users/u1/venues/v1/lastUpdated": []byte(`100`),
			"users/u1/venues/v2/hidden":      []byte(`false`),
			"users/u1/address/address":       []byte(`"1 Market St"`),
			"users/u2/venues/v9/visited":     []byte(`true`),
		}

		got := AssembleChildren("users/u1/venues", leaves)
		if len(got) != 2 {
			t.Fatalf("AssembleChildren() returned %d children, want 2", len(got))
		}

		var v1 struct {
			Visited     bool  `json:"visited"`
			LastUpdated int64 `json:"lastUpdated"`
		}
		if err := json.Unmarshal(got["v1"], &v1); err != nil {
			t.Fatalf("decoding v1: %v", err)
		}
		if !v1.Visited || v1.LastUpdated != 100 {
			t.Errorf("v1 = %+v, want visited with lastUpdated 100", v1)
		}
		if string(got["v2"]) != `{"hidden":false}` {
			t.Errorf("v2 = %s, want {\"hidden\":false}", got["v2"])
		}
	})

	t.Run("does not match sibling prefixes", func(t *testing.T) {
		leaves := map[string][]byte{
			"users/u1/venues-archive/v1/visited": []byte(`true`),
			"users/u1/venues":                    []byte(`"scalar"`),
		}

		got := AssembleChildren("users/u1/venues", leaves)
		if len(got) != 0 {
			t.Errorf("AssembleChildren() = %v, want empty", got)
		}
	})

	t.Run("merges descendants over an object value", func(t *testing.T) {
		leaves := map[string][]byte{
			"users/u1/venues/v1":         []byte(`{"visited":false,"hidden":true}`),
			"users/u1/venues/v1/visited": []byte(`true`),
		}

		got := AssembleChildren("users/u1/venues", leaves)

		var v1 map[string]bool
		if err := json.Unmarshal(got["v1"], &v1); err != nil {
			t.Fatalf("decoding v1: %v", err)
		}
		if !v1["visited"] || !v1["hidden"] {
			t.Errorf("v1 = %v, want visited and hidden true", v1)
		}
	})

	t.Run("malformed leaf only spoils its child", func(t *testing.T) {
		leaves := map[string][]byte{
			"users/u1/venues/bad/visited":  []byte(`not json`),
			"users/u1/venues/good/visited": []byte(`true`),
		}

		got := AssembleChildren("users/u1/venues", leaves)

		var rec map[string]any
		if err := json.Unmarshal(got["bad"], &rec); err == nil {
			t.Error("decoding malformed child should fail")
		}
		if err := json.Unmarshal(got["good"], &rec); err != nil {
			t.Errorf("decoding good child: %v", err)
		}
	})
}
