package testutil

import (
	"io"
	"net/http"
	"strings"
	"sync"
)

// FakeDoer answers HTTP requests with a scripted handler and records every
// request it sees. Safe for concurrent use.
type FakeDoer struct {
	mu       sync.Mutex
	handle   func(req *http.Request) (*http.Response, error)
	requests []*http.Request
}

// NewFakeDoer creates a FakeDoer that delegates to handle.
func NewFakeDoer(handle func(req *http.Request) (*http.Response, error)) *FakeDoer {
	return &FakeDoer{handle: handle}
}

func (d *FakeDoer) Do(req *http.Request) (*http.Response, error) {
	d.mu.Lock()
	d.requests = append(d.requests, req)
	d.mu.Unlock()
	return d.handle(req)
}

// Requests returns a copy of the recorded requests in arrival order.
func (d *FakeDoer) Requests() []*http.Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*http.Request(nil), d.requests...)
}

// RequestsFor returns the recorded requests whose query has key=value.
func (d *FakeDoer) RequestsFor(key, value string) []*http.Request {
	var out []*http.Request
	for _, r := range d.Requests() {
		if r.URL.Query().Get(key) == value {
			out = append(out, r)
		}
	}
	return out
}

// JSONResponse builds a response with the given status and body.
func JSONResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}
