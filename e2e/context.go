// Package e2e runs black-box scenarios against a live bridge daemon. The
// daemon's base URL and an operator token come from the environment; the
// daemon must be started with a seeded simulator wallet.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// TestContext carries shared state across steps of one scenario: the HTTP
// client, the last response, and values captured by earlier steps.
type TestContext struct {
	BaseURL string
	Token   string

	client *http.Client

	LastStatus int
	LastBody   map[string]any
	LastList   []map[string]any

	// Captured captures values by name for later steps, identity IDs mostly.
	Captured map[string]string
}

// NewTestContext reads BRIDGE_URL and BRIDGE_TOKEN from the environment.
func NewTestContext() (*TestContext, error) {
	baseURL := os.Getenv("BRIDGE_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("BRIDGE_URL is not set")
	}
	return &TestContext{
		BaseURL:  baseURL,
		Token:    os.Getenv("BRIDGE_TOKEN"),
		client:   &http.Client{Timeout: 30 * time.Second},
		Captured: make(map[string]string),
	}, nil
}

// Reset clears per-scenario state.
func (tc *TestContext) Reset() {
	tc.LastStatus = 0
	tc.LastBody = nil
	tc.LastList = nil
	tc.Captured = make(map[string]string)
}

// POST sends a JSON body to the given path and records the response.
func (tc *TestContext) POST(path string, body any) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(http.MethodPost, tc.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return tc.do(req)
}

// GET fetches the given path and records the response.
func (tc *TestContext) GET(path string) error {
	req, err := http.NewRequest(http.MethodGet, tc.BaseURL+path, nil)
	if err != nil {
		return err
	}
	return tc.do(req)
}

func (tc *TestContext) do(req *http.Request) error {
	if tc.Token != "" {
		req.Header.Set("Authorization", "Bearer "+tc.Token)
	}
	resp, err := tc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tc.LastStatus = resp.StatusCode
	tc.LastBody = nil
	tc.LastList = nil

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil // empty or non-JSON body is fine for some endpoints
	}
	if len(raw) > 0 && raw[0] == '[' {
		return json.Unmarshal(raw, &tc.LastList)
	}
	return json.Unmarshal(raw, &tc.LastBody)
}

// Status returns the last response status code.
func (tc *TestContext) Status() int {
	return tc.LastStatus
}

// Capture stores a value for later steps of the same scenario.
func (tc *TestContext) Capture(name, value string) {
	tc.Captured[name] = value
}

// Recall returns a value captured by an earlier step.
func (tc *TestContext) Recall(name string) (string, error) {
	v, ok := tc.Captured[name]
	if !ok {
		return "", fmt.Errorf("nothing captured under %q", name)
	}
	return v, nil
}

// ListLen returns the length of the last JSON array response.
func (tc *TestContext) ListLen() int {
	return len(tc.LastList)
}

// ObjectList returns an array-valued field of the last JSON object.
func (tc *TestContext) ObjectList(field string) ([]map[string]any, error) {
	if tc.LastBody == nil {
		return nil, fmt.Errorf("last response had no JSON object body")
	}
	raw, ok := tc.LastBody[field]
	if !ok {
		return nil, fmt.Errorf("field %q not present in response", field)
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("field %q is not an array", field)
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q holds a non-object element", field)
		}
		out = append(out, obj)
	}
	return out, nil
}

// Field returns a string rendering of a field of the last JSON object.
func (tc *TestContext) Field(name string) (string, error) {
	if tc.LastBody == nil {
		return "", fmt.Errorf("last response had no JSON object body")
	}
	v, ok := tc.LastBody[name]
	if !ok {
		return "", fmt.Errorf("field %q not present in response", name)
	}
	switch val := v.(type) {
	case string:
		return val, nil
	case float64:
		return fmt.Sprintf("%d", int64(val)), nil
	case bool:
		return fmt.Sprintf("%t", val), nil
	default:
		return fmt.Sprintf("%v", val), nil
	}
}
