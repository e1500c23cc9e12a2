package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"confide/internal/platform/health"
	"confide/internal/platform/logger"
	ratelimitconfig "confide/internal/ratelimit/config"
	ratelimithandler "confide/internal/ratelimit/handler"
	"confide/internal/ratelimit/metrics"
	"confide/internal/ratelimit/models"
	"confide/internal/ratelimit/service/admission"
	"confide/internal/ratelimit/store/events"
	httptransport "confide/internal/transport/http"
	"confide/pkg/platform/audit/publisher"
	auditmemory "confide/pkg/platform/audit/store/memory"
	"confide/pkg/platform/circuit"
	"confide/pkg/platform/middleware/metadata"
)

// RateLimitPath is where the in-process server mounts the check endpoint.
const RateLimitPath = "/rate-limit"

// TestContext holds state between test steps
type TestContext struct {
	BaseURL          string
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte
	ClientAddress    string

	server  *httptest.Server
	events  *events.InMemoryStore
	faults  *faultyEventLog
	audits  *auditmemory.InMemoryStore
	breaker *circuit.Breaker
}

// NewTestContext starts an in-process server backed by the in-memory event
// log, unless BASE_URL points the suite at a running instance.
func NewTestContext() *TestContext {
	tc := &TestContext{
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}

	if baseURL := os.Getenv("BASE_URL"); baseURL != "" {
		tc.BaseURL = baseURL
		return tc
	}

	tc.events = events.NewInMemory()
	tc.faults = &faultyEventLog{next: tc.events}
	tc.audits = auditmemory.NewInMemoryStore()
	tc.breaker = circuit.New("event_log", circuit.WithFailureThreshold(3))

	log := logger.NewWithWriter(io.Discard, "error")
	svc, err := admission.New(tc.faults, ratelimitconfig.DefaultRules(),
		admission.WithLogger(log),
		admission.WithAuditPublisher(publisher.NewPublisher(tc.audits)),
		admission.WithMetrics(metrics.NewWithRegistry(prometheus.NewRegistry())),
		admission.WithBreaker(tc.breaker),
		admission.WithCallTimeout(time.Second),
	)
	if err != nil {
		panic(err)
	}

	reg := prometheus.NewRegistry()
	tc.server = httptest.NewServer(httptransport.NewRouter(httptransport.Dependencies{
		Logger:         log,
		RateLimit:      ratelimithandler.New(svc, log),
		RateLimitPath:  RateLimitPath,
		Health:         health.New("e2e"),
		Metadata:       metadata.NewMiddleware(metadata.DefaultConfig()),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}))
	tc.BaseURL = tc.server.URL
	return tc
}

// Close stops the in-process server.
func (tc *TestContext) Close() {
	if tc.server != nil {
		tc.server.Close()
	}
}

// InProcess reports whether steps may reach into the server's stores.
func (tc *TestContext) InProcess() bool {
	return tc.server != nil
}

// POST makes a POST request and stores the response
func (tc *TestContext) POST(path string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	return tc.Do(http.MethodPost, path, data)
}

// Do sends raw bytes with the current client address and stores the response.
func (tc *TestContext) Do(method, path string, body []byte) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, tc.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if tc.ClientAddress != "" {
		req.Header.Set(metadata.DefaultAddressHeader, tc.ClientAddress)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	return nil
}

// GetResponseField extracts a field from the JSON response
func (tc *TestContext) GetResponseField(field string) (interface{}, error) {
	var data map[string]interface{}
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	value, ok := data[field]
	if !ok {
		return nil, fmt.Errorf("field %s not found in response", field)
	}

	return value, nil
}

// ResponseContains checks if the response body contains a field or text
func (tc *TestContext) ResponseContains(text string) bool {
	return strings.Contains(string(tc.LastResponseBody), text)
}

// Getter methods for step package interfaces

func (tc *TestContext) GetLastResponseStatus() int {
	if tc.LastResponse == nil {
		return 0
	}
	return tc.LastResponse.StatusCode
}

func (tc *TestContext) GetLastResponseHeader(name string) string {
	if tc.LastResponse == nil {
		return ""
	}
	return tc.LastResponse.Header.Get(name)
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.LastResponseBody
}

func (tc *TestContext) SetClientAddress(address string) {
	tc.ClientAddress = address
}

func (tc *TestContext) GetClientAddress() string {
	return tc.ClientAddress
}

// SeedEvents writes prior admitted actions for address, occurring ago before now.
func (tc *TestContext) SeedEvents(address string, class models.ClassName, n int, ago time.Duration) error {
	if !tc.InProcess() {
		return fmt.Errorf("seeding requires the in-process server")
	}
	at := time.Now().Add(-ago)
	for range n {
		tc.events.Seed(address, class, at)
	}
	return nil
}

// RecordedEvents counts stored events for address in class.
func (tc *TestContext) RecordedEvents(address string, class models.ClassName) int {
	if !tc.InProcess() {
		return -1
	}
	return len(tc.events.Events(address, class))
}

// TotalRecordedEvents counts every stored event.
func (tc *TestContext) TotalRecordedEvents() int {
	if !tc.InProcess() {
		return -1
	}
	return tc.events.Len()
}

// FailEventLog makes the named operation ("count" or "record") fail.
func (tc *TestContext) FailEventLog(op string) error {
	if !tc.InProcess() {
		return fmt.Errorf("fault injection requires the in-process server")
	}
	switch op {
	case "count":
		tc.faults.failCount.Store(true)
	case "record":
		tc.faults.failRecord.Store(true)
	default:
		return fmt.Errorf("unknown event log operation %q", op)
	}
	return nil
}

// AuditActions lists the audit actions emitted so far.
func (tc *TestContext) AuditActions() []string {
	if !tc.InProcess() {
		return nil
	}
	var out []string
	for _, e := range tc.audits.ListAll() {
		out = append(out, e.Action)
	}
	return out
}

// faultyEventLog fails on demand in front of the in-memory store.
type faultyEventLog struct {
	next       *events.InMemoryStore
	failCount  atomic.Bool
	failRecord atomic.Bool
}

func (f *faultyEventLog) CountSince(ctx context.Context, address string, class models.ClassName, since time.Time) (int, error) {
	if f.failCount.Load() {
		return 0, fmt.Errorf("event log unreachable")
	}
	return f.next.CountSince(ctx, address, class, since)
}

func (f *faultyEventLog) Record(ctx context.Context, address string, class models.ClassName) error {
	if f.failRecord.Load() {
		return fmt.Errorf("event log rejected insert")
	}
	return f.next.Record(ctx, address, class)
}
