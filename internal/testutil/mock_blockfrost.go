// Package testutil provides testing utilities for the Blockfrost client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/Sternrassler/blockfrost-client/pkg/network"
)

// TestAPIKey is the project id returned by MockBlockfrost.Auth.
const TestAPIKey = "preview-test-key"

// DefaultPageSize matches Blockfrost's page size.
const DefaultPageSize = 100

// MockResponse defines the behavior for a mock Blockfrost endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockBlockfrost is a configurable mock Blockfrost server for testing. Paged
// resources honour the order, page and count query parameters.
type MockBlockfrost struct {
	server *httptest.Server

	// PageSize is the page size used for paged resources.
	PageSize int

	mu        sync.RWMutex
	handlers  map[string]http.HandlerFunc
	datasets  map[string][]json.RawMessage
	sequences map[string][]MockResponse

	requestCount  int
	lastProjectID string
	requests      []string
}

// NewMockBlockfrost creates a new mock Blockfrost server.
func NewMockBlockfrost() *MockBlockfrost {
	mock := &MockBlockfrost{
		PageSize:  DefaultPageSize,
		handlers:  make(map[string]http.HandlerFunc),
		datasets:  make(map[string][]json.RawMessage),
		sequences: make(map[string][]MockResponse),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.serve))
	return mock
}

func (m *MockBlockfrost) serve(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	m.mu.Lock()
	m.requestCount++
	m.lastProjectID = r.Header.Get("project_id")
	m.requests = append(m.requests, r.URL.RequestURI())

	// Scripted responses are consumed before anything else.
	if queue := m.sequences[path]; len(queue) > 0 {
		next := queue[0]
		m.sequences[path] = queue[1:]
		m.mu.Unlock()
		writeResponse(w, next)
		return
	}

	handler, hasHandler := m.handlers[path]
	records, hasDataset := m.datasets[path]
	pageSize := m.PageSize
	m.mu.Unlock()

	switch {
	case hasHandler:
		handler(w, r)
	case hasDataset:
		m.servePage(w, r, records, pageSize)
	default:
		writeResponse(w, NewNotFoundResponse())
	}
}

func (m *MockBlockfrost) servePage(w http.ResponseWriter, r *http.Request, records []json.RawMessage, pageSize int) {
	query := r.URL.Query()

	page := 1
	if v := query.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeResponse(w, NewBadRequestResponse("Invalid page"))
			return
		}
		page = n
	}

	count := pageSize
	if v := query.Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > pageSize {
			writeResponse(w, NewBadRequestResponse("Invalid count"))
			return
		}
		count = n
	}

	ordered := records
	switch query.Get("order") {
	case "", "asc":
	case "desc":
		ordered = make([]json.RawMessage, len(records))
		for i, rec := range records {
			ordered[len(records)-1-i] = rec
		}
	default:
		writeResponse(w, NewBadRequestResponse("Invalid order"))
		return
	}

	start := (page - 1) * count
	end := start + count
	if start > len(ordered) {
		start = len(ordered)
	}
	if end > len(ordered) {
		end = len(ordered)
	}

	body, err := json.Marshal(append([]json.RawMessage{}, ordered[start:end]...))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeResponse(w, NewOKResponse(string(body)))
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// URL returns the mock server URL.
func (m *MockBlockfrost) URL() string {
	return m.server.URL
}

// Client returns an HTTP client wired to the mock server.
func (m *MockBlockfrost) Client() *http.Client {
	return m.server.Client()
}

// Auth resolves credentials for the named network pointed at the mock.
func (m *MockBlockfrost) Auth(networkName string) network.Auth {
	auth, err := network.Resolver{BaseURL: m.URL()}.Resolve(networkName, TestAPIKey, nil)
	if err != nil {
		panic(fmt.Sprintf("testutil: resolve %q: %v", networkName, err))
	}
	return auth
}

// Close shuts down the mock server.
func (m *MockBlockfrost) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockBlockfrost) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.lastProjectID = ""
	m.requests = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockBlockfrost) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockBlockfrost) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, resp)
	})
}

// SetJSON serves v as a 200 response for a path.
func (m *MockBlockfrost) SetJSON(path string, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal %s: %v", path, err))
	}
	m.SetResponse(path, NewOKResponse(string(body)))
}

// SetPaged registers a paged resource. Records are stored in ascending order.
func (m *MockBlockfrost) SetPaged(path string, records []json.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.datasets[path] = records
}

// QueueResponses makes the next requests to path answer with resps, in
// order, before normal handling resumes.
func (m *MockBlockfrost) QueueResponses(path string, resps ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequences[path] = append(m.sequences[path], resps...)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockBlockfrost) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// LastProjectID returns the project_id header of the last request.
func (m *MockBlockfrost) LastProjectID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastProjectID
}

// Requests returns the request URIs (path and query) seen so far.
func (m *MockBlockfrost) Requests() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.requests))
	copy(out, m.requests)
	return out
}

// NumberedRecords returns n records of the form {"id": i} for i in 1..n.
func NumberedRecords(n int) []json.RawMessage {
	records := make([]json.RawMessage, n)
	for i := range records {
		records[i] = json.RawMessage(fmt.Sprintf(`{"id":%d}`, i+1))
	}
	return records
}

// NewOKResponse creates a standard 200 OK JSON response.
func NewOKResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return newErrorResponse(http.StatusTooManyRequests, "Project Over Limit",
		"Usage is over limit.")
}

// NewNotFoundResponse creates Blockfrost's 404 response.
func NewNotFoundResponse() MockResponse {
	return newErrorResponse(http.StatusNotFound, "Not Found",
		"The requested component has not been found.")
}

// NewBadRequestResponse creates a 400 response with message.
func NewBadRequestResponse(message string) MockResponse {
	return newErrorResponse(http.StatusBadRequest, "Bad Request", message)
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return newErrorResponse(http.StatusInternalServerError, "Internal Server Error",
		"An unexpected response was received from the backend.")
}

func newErrorResponse(status int, errText, message string) MockResponse {
	body, _ := json.Marshal(map[string]any{
		"status_code": status,
		"error":       errText,
		"message":     message,
	})
	return MockResponse{
		StatusCode: status,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
