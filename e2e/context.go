// Package e2e drives a running screener over HTTP with godog scenarios.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TestContext carries HTTP state between the steps of one scenario.
type TestContext struct {
	BaseURL    string
	AdminToken string
	client     *http.Client

	apiKey   string
	status   int
	header   http.Header
	body     []byte
	statuses []int
}

func NewTestContext(baseURL, adminToken string) *TestContext {
	return &TestContext{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		AdminToken: adminToken,
		client:     &http.Client{Timeout: 3 * time.Minute},
	}
}

// Reset clears per-scenario state.
func (tc *TestContext) Reset() {
	tc.apiKey = ""
	tc.status = 0
	tc.header = nil
	tc.body = nil
	tc.statuses = nil
}

func (tc *TestContext) APIKey() string         { return tc.apiKey }
func (tc *TestContext) SetAPIKey(key string)   { tc.apiKey = key }
func (tc *TestContext) LastStatus() int        { return tc.status }
func (tc *TestContext) LastBody() []byte       { return tc.body }
func (tc *TestContext) Statuses() []int        { return tc.statuses }
func (tc *TestContext) Header(k string) string { return tc.header.Get(k) }

func (tc *TestContext) POST(path string, body any, headers map[string]string) error {
	return tc.do(http.MethodPost, path, body, headers)
}

func (tc *TestContext) DELETE(path string, body any, headers map[string]string) error {
	return tc.do(http.MethodDelete, path, body, headers)
}

func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.do(http.MethodGet, path, nil, headers)
}

func (tc *TestContext) do(method, path string, body any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, tc.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.body, err = io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	tc.status = resp.StatusCode
	tc.header = resp.Header
	tc.statuses = append(tc.statuses, resp.StatusCode)
	return nil
}

// Field reads a top-level field from the last JSON response.
func (tc *TestContext) Field(name string) (any, error) {
	var doc map[string]any
	if err := json.Unmarshal(tc.body, &doc); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %s", tc.body)
	}
	v, ok := doc[name]
	if !ok {
		return nil, fmt.Errorf("field %q missing from %s", name, tc.body)
	}
	return v, nil
}
