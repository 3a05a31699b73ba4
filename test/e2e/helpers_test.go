//go:build e2e

package e2e_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

// Environment variable names for E2E test configuration.
const (
	EnvServerURL = "INTEGRATION_SERVER_URL"
	EnvProbeURL  = "INTEGRATION_PROBE_URL"
)

// Default configuration values.
const (
	DefaultServerURL = "http://localhost:8080"
	DefaultProbeURL  = "http://localhost:9090"
	DefaultTimeout   = 15 * time.Second
)

// getEnvOrDefault returns the value of the environment variable
// identified by key, or defaultVal if the variable is not set.
func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// e2eServerURL returns the base URL of the server under test.
func e2eServerURL() string {
	return getEnvOrDefault(EnvServerURL, DefaultServerURL)
}

// e2eProbeURL returns the base URL of the probe server under test.
func e2eProbeURL() string {
	return getEnvOrDefault(EnvProbeURL, DefaultProbeURL)
}

// skipIfServerUnavailable checks whether the server is reachable
// and skips the test if it is not.
func skipIfServerUnavailable(t *testing.T) {
	t.Helper()

	base := e2eServerURL()
	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(base + "/health")
	if err != nil {
		t.Skipf("Server unavailable at %s: %v", base, err)
	}
	resp.Body.Close()
}

// skipIfProbeUnavailable checks whether the probe server is reachable
// and skips the test if it is not.
func skipIfProbeUnavailable(t *testing.T) {
	t.Helper()

	base := e2eProbeURL()
	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(base + "/health")
	if err != nil {
		t.Skipf("Probe server unavailable at %s: %v", base, err)
	}
	resp.Body.Close()
}

// newHTTPClient returns an *http.Client with a sensible timeout.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}

// apiResponse is a generic API response envelope.
type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// errorResponse represents an error response from the API.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// itemResponse represents an item returned by the API.
type itemResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"created_at"`
}

// messageResponse represents a mutation confirmation.
type messageResponse struct {
	Message string `json:"message"`
}

// registerResponse represents a registration confirmation.
type registerResponse struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

// eventMessage represents an event delivered on the WebSocket stream.
type eventMessage struct {
	Type      string        `json:"type"`
	ItemID    string        `json:"item_id"`
	Item      *itemResponse `json:"item,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// createItemRequest is the payload for creating an item.
type createItemRequest struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// updateItemRequest is the payload for a partial item update.
type updateItemRequest struct {
	Name  *string  `json:"name,omitempty"`
	Price *float64 `json:"price,omitempty"`
}

// registerUserRequest is the payload for registering a user.
type registerUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// jsonHeaders returns the default headers for JSON requests.
func jsonHeaders() map[string]string {
	return map[string]string{
		"Content-Type": "application/json",
	}
}

// uniqueName returns a name that no earlier test run can have left
// behind on the deployed instance.
func uniqueName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// doRequest performs an HTTP request and returns status code and body.
func doRequest(
	t *testing.T,
	client *http.Client,
	method, url string,
	body io.Reader,
	headers map[string]string,
) (int, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Request %s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}

	return resp.StatusCode, respBody
}

// createItem is a helper that creates an item and returns its parsed
// response. It fails the test on error.
func createItem(
	t *testing.T,
	client *http.Client,
	base string,
	item createItemRequest,
) itemResponse {
	t.Helper()

	payload, _ := json.Marshal(item)
	status, body := doRequest(
		t, client, http.MethodPost,
		base+"/items",
		bytes.NewReader(payload), jsonHeaders(),
	)

	if status != http.StatusCreated {
		t.Fatalf(
			"createItem: expected 201, got %d. Body: %s",
			status, body,
		)
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("createItem: failed to parse response: %v", err)
	}

	var created itemResponse
	if err := json.Unmarshal(resp.Data, &created); err != nil {
		t.Fatalf("createItem: failed to parse item: %v", err)
	}

	return created
}

// deleteItem is a helper that deletes an item by ID.
func deleteItem(
	t *testing.T,
	client *http.Client,
	base, id string,
) {
	t.Helper()

	url := fmt.Sprintf("%s/items/%s", base, id)
	status, body := doRequest(
		t, client, http.MethodDelete, url, nil, nil,
	)

	if status != http.StatusOK {
		t.Logf(
			"deleteItem cleanup: expected 200, got %d. Body: %s",
			status, body,
		)
	}
}
