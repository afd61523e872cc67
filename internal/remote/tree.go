package remote

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Every backend stores one entry per written path with a JSON-encoded value.
// Reads rebuild the hierarchy from those entries.

// cleanPath trims surrounding slashes and rejects empty segments.
func cleanPath(path string) (string, error) {
	p := strings.Trim(path, "/")
	if p == "" {
		return "", fmt.Errorf("empty remote path")
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" {
			return "", fmt.Errorf("invalid remote path %q: empty segment", path)
		}
	}
	return p, nil
}

type node struct {
	value    json.RawMessage
	children map[string]*node
}

func (n *node) child(name string) *node {
	if n.children == nil {
		n.children = make(map[string]*node)
	}
	c, ok := n.children[name]
	if !ok {
		c = &node{}
		n.children[name] = c
	}
	return c
}

// MarshalJSON renders a node as its own value, or as an object when values
// were also written below it. Descendants override keys of an object value.
func (n *node) MarshalJSON() ([]byte, error) {
	if len(n.children) == 0 {
		if n.value == nil {
			return []byte("null"), nil
		}
		return n.value, nil
	}

	obj := make(map[string]json.RawMessage)
	if n.value != nil {
		// A scalar value is shadowed by its descendants.
		_ = json.Unmarshal(n.value, &obj)
	}
	for name, c := range n.children {
		data, err := c.MarshalJSON()
		if err != nil {
			return nil, err
		}
		obj[name] = data
	}
	return json.Marshal(obj)
}

// AssembleChildren groups the leaves stored under parent into one JSON value
// per direct child. Keys of leaves are full paths relative to the store root;
// leaves outside parent are ignored. A child holding malformed values below
// it is returned as an empty message, so decoding that child fails on its own.
func AssembleChildren(parent string, leaves map[string][]byte) map[string]json.RawMessage {
	root := &node{}
	prefix := parent + "/"

	// Sorted so a shadowed object value is always merged the same way.
	paths := make([]string, 0, len(leaves))
	for p := range leaves {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		rest, ok := strings.CutPrefix(p, prefix)
		if !ok || rest == "" {
			continue
		}
		n := root
		for _, seg := range strings.Split(rest, "/") {
			n = n.child(seg)
		}
		n.value = json.RawMessage(leaves[p])
	}

	out := make(map[string]json.RawMessage, len(root.children))
	for name, c := range root.children {
		data, err := c.MarshalJSON()
		if err != nil {
			data = json.RawMessage{}
		}
		out[name] = data
	}
	return out
}
