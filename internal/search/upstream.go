package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/utafrali/partsquote/pkg/httpclient"
)

// Getter performs HTTP GETs, usually through a circuit breaker.
type Getter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// UpstreamSearcher queries an external search endpoint that answers
// GET ?q=&limit= with {"results":[...]}.
type UpstreamSearcher struct {
	http    Getter
	baseURL string
}

// NewUpstreamSearcher creates a searcher for baseURL.
func NewUpstreamSearcher(getter Getter, baseURL string) *UpstreamSearcher {
	return &UpstreamSearcher{http: getter, baseURL: baseURL}
}

type upstreamResponse struct {
	Results []Result `json:"results"`
}

// Search calls the upstream endpoint.
func (s *UpstreamSearcher) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse search upstream url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	u.RawQuery = q.Encode()

	resp, err := s.http.Get(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("search upstream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "search upstream")
	}
	defer func() { _ = resp.Body.Close() }()

	var body upstreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if limit > 0 && len(body.Results) > limit {
		body.Results = body.Results[:limit]
	}
	return body.Results, nil
}
