// Package places queries the nearby-venue search API and normalizes its
// results into radius.ExternalVenue values.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"radius-go/internal/radius"
)

// Doer executes HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures a Client.
type Config struct {
	BaseURL string
	APIKey  string
	// Terms are queried concurrently; results keep this order when merged.
	Terms    []string
	MaxPages int
	// PageDelay is waited before every request that carries a page token.
	PageDelay time.Duration
	// Timeout bounds each HTTP request when the Client builds its own Doer.
	Timeout time.Duration
}

// Client fetches nearby venues page by page for each configured term.
type Client struct {
	cfg    Config
	http   Doer
	logger radius.Logger
}

// NewClient creates a Client. When doer is nil an *http.Client with
// cfg.Timeout is used.
func NewClient(cfg Config, doer Doer, logger radius.Logger) *Client {
	if cfg.MaxPages < 1 {
		cfg.MaxPages = 1
	}
	if doer == nil {
		doer = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		cfg:    cfg,
		http:   doer,
		logger: logger,
	}
}

type responseMetadata struct {
	QueryID         string `json:"queryId"`
	ResultsComplete bool   `json:"resultsComplete"`
}

type apiVenue struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	ImageURL  *string  `json:"imageUrl"`
	Reviews   *int     `json:"reviews"`
	Rating    *float64 `json:"rating"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
}

type searchResponse struct {
	Metadata      *responseMetadata `json:"metadata"`
	Venues        []apiVenue        `json:"venues"`
	NextPageToken string            `json:"next_page_token"`
}

// FetchNearbyVenues returns the venues around lat/lng for every term,
// deduplicated by id with the first occurrence kept. Failures only shorten
// the result; an empty slice is returned when nothing could be fetched.
func (c *Client) FetchNearbyVenues(ctx context.Context, lat, lng float64) []radius.ExternalVenue {
	perTerm := make([][]radius.ExternalVenue, len(c.cfg.Terms))

	var g errgroup.Group
	for i, term := range c.cfg.Terms {
		g.Go(func() error {
			perTerm[i] = c.fetchTerm(ctx, lat, lng, term)
			return nil
		})
	}
	// fetchTerm never fails; page errors end that term only.
	_ = g.Wait()

	seen := make(map[string]bool)
	venues := []radius.ExternalVenue{}
	for _, batch := range perTerm {
		for _, v := range batch {
			if seen[v.ID] {
				continue
			}
			seen[v.ID] = true
			venues = append(venues, v)
		}
	}

	c.logger.Info("fetched nearby venues", "terms", len(c.cfg.Terms), "venues", len(venues))
	return venues
}

// fetchTerm follows the page cursor for one term until it runs out,
// MaxPages is reached, or a page fails.
func (c *Client) fetchTerm(ctx context.Context, lat, lng float64, term string) []radius.ExternalVenue {
	var (
		venues []radius.ExternalVenue
		token  string
	)
	for page := 1; page <= c.cfg.MaxPages; page++ {
		if token != "" {
			// The cursor is rejected until the upstream API has warmed it up.
			if err := sleepContext(ctx, c.cfg.PageDelay); err != nil {
				c.logger.Warn("page wait interrupted", "term", term, "page", page, "error", err)
				break
			}
		}

		resp, err := c.fetchPage(ctx, lat, lng, term, token)
		if err != nil {
			c.logger.Warn("places page failed", "term", term, "page", page, "error", err)
			break
		}

		for _, v := range resp.Venues {
			if v.ID == "" {
				continue
			}
			venues = append(venues, v.toExternal())
		}
		if resp.Metadata != nil {
			c.logger.Debug("places page fetched", "term", term, "page", page,
				"query", resp.Metadata.QueryID, "venues", len(resp.Venues))
		}

		token = resp.NextPageToken
		if token == "" {
			break
		}
	}
	return venues
}

func (c *Client) fetchPage(ctx context.Context, lat, lng float64, term, token string) (*searchResponse, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	q := u.Query()
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("term", term)
	if c.cfg.APIKey != "" {
		q.Set("key", c.cfg.APIKey)
	}
	if token != "" {
		q.Set("pagetoken", token)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("places api returned status %d: %s", resp.StatusCode, string(body))
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

func (v apiVenue) toExternal() radius.ExternalVenue {
	return radius.ExternalVenue{
		ID:          v.ID,
		Name:        v.Name,
		ImageURL:    v.ImageURL,
		Rating:      v.Rating,
		ReviewCount: v.Reviews,
		Lat:         v.Latitude,
		Lng:         v.Longitude,
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Compile-time check that Client implements radius.PlacesFetcher interface
var _ radius.PlacesFetcher = (*Client)(nil)
