// Package e2e drives black-box scenarios against a running policyd instance.
//
// The suite expects the service (and its fraud mock) to already be up; point
// POLICYD_E2E_URL at the API base, e.g. http://localhost:8080/api/v1.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// TestContext carries shared state between steps of a scenario: the HTTP
// client, the last response, and values captured from earlier steps.
type TestContext struct {
	baseURL string
	client  *http.Client

	lastStatus int
	lastBody   []byte

	// Captured identifiers, keyed by a name the scenario chooses.
	captured map[string]string
}

// NewTestContext builds a context from the environment.
func NewTestContext() *TestContext {
	baseURL := os.Getenv("POLICYD_E2E_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080/api/v1"
	}
	return &TestContext{
		baseURL:  baseURL,
		client:   &http.Client{Timeout: 10 * time.Second},
		captured: make(map[string]string),
	}
}

// Reset clears per-scenario state.
func (tc *TestContext) Reset() {
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.captured = make(map[string]string)
}

func (tc *TestContext) do(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, tc.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	return nil
}

// POST sends a JSON request to the API.
func (tc *TestContext) POST(path string, body any) error { return tc.do(http.MethodPost, path, body) }

// GET fetches a resource from the API.
func (tc *TestContext) GET(path string) error { return tc.do(http.MethodGet, path, nil) }

// PATCH sends a bodyless state-change request to the API.
func (tc *TestContext) PATCH(path string) error { return tc.do(http.MethodPatch, path, nil) }

// LastStatus returns the HTTP status of the most recent response.
func (tc *TestContext) LastStatus() int { return tc.lastStatus }

// ResponseField returns a top-level field from the last JSON response.
func (tc *TestContext) ResponseField(field string) (any, error) {
	var parsed map[string]any
	if err := json.Unmarshal(tc.lastBody, &parsed); err != nil {
		return nil, fmt.Errorf("last response is not a JSON object: %w", err)
	}
	value, ok := parsed[field]
	if !ok {
		return nil, fmt.Errorf("field %q not present in response", field)
	}
	return value, nil
}

// Capture stores a value under a name for later steps.
func (tc *TestContext) Capture(name, value string) { tc.captured[name] = value }

// Captured returns a previously stored value.
func (tc *TestContext) Captured(name string) (string, bool) {
	v, ok := tc.captured[name]
	return v, ok
}
