package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"confide/internal/ratelimit/models"
)

// RESTStore talks to a hosted PostgREST-style table endpoint.
//
//	count:  HEAD {base}/{table}?source_address=eq.A&action_class=eq.C&occurred_at=gte.T
//	        with Prefer: count=exact, total read from Content-Range "*/N"
//	insert: POST {base}/{table} with Prefer: return=minimal
//
// Both calls carry the service credential as apikey and bearer token.
type RESTStore struct {
	endpoint   string
	serviceKey string
	client     *http.Client
}

// RESTOption configures a RESTStore.
type RESTOption func(*RESTStore)

// WithHTTPClient overrides the HTTP client; its Timeout bounds every call.
func WithHTTPClient(c *http.Client) RESTOption {
	return func(s *RESTStore) {
		s.client = c
	}
}

// NewREST builds a store for table under baseURL (e.g. https://x.example.co/rest/v1).
func NewREST(baseURL, table, serviceKey string, opts ...RESTOption) *RESTStore {
	s := &RESTStore{
		endpoint:   strings.TrimRight(baseURL, "/") + "/" + url.PathEscape(table),
		serviceKey: serviceKey,
		client:     &http.Client{Timeout: 3 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CountSince issues a count-only HEAD request. A missing or unparseable
// Content-Range total counts as zero.
func (s *RESTStore) CountSince(ctx context.Context, address string, class models.ClassName, since time.Time) (int, error) {
	q := url.Values{}
	q.Set("select", "id")
	q.Set("source_address", "eq."+address)
	q.Set("action_class", "eq."+string(class))
	q.Set("occurred_at", "gte."+since.UTC().Format(time.RFC3339Nano))

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("build count request: %w", err)
	}
	s.authorize(req)
	req.Header.Set("Prefer", "count=exact")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("count action events: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("count action events: unexpected status %d", resp.StatusCode)
	}
	return ParseContentRangeTotal(resp.Header.Get("Content-Range")), nil
}

type insertRow struct {
	SourceAddress string `json:"source_address"`
	ActionClass   string `json:"action_class"`
}

// Record inserts one row; the table default assigns occurred_at.
func (s *RESTStore) Record(ctx context.Context, address string, class models.ClassName) error {
	body, err := json.Marshal(insertRow{SourceAddress: address, ActionClass: string(class)})
	if err != nil {
		return fmt.Errorf("encode action event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build insert request: %w", err)
	}
	s.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("insert action event: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("insert action event: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (s *RESTStore) authorize(req *http.Request) {
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
}

// ParseContentRangeTotal extracts N from "a-b/N" or "*/N". Anything else is 0.
func ParseContentRangeTotal(header string) int {
	i := strings.LastIndexByte(header, '/')
	if i < 0 {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(header[i+1:]))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10)) //nolint:errcheck // best-effort for connection reuse
	resp.Body.Close()                                                //nolint:errcheck,gosec // read-only body
}
