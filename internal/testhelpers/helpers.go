// Package testhelpers provides common utilities and helper functions for testing the roomchat server.
//
// It provides functions for creating test servers, dialing WebSockets, and
// reading and asserting envelopes to reduce code duplication in test files.
package testhelpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// TestOrigin is the Origin header sent by ConnectWebSocket.
const TestOrigin = "http://localhost:8080"

// DefaultReadTimeout bounds how long ReadEnvelope waits for a frame.
const DefaultReadTimeout = 2 * time.Second

// CreateTestServer creates a test HTTP server with the given handler.
// It returns a running httptest.Server that should be closed after use.
func CreateTestServer(handler http.Handler) *httptest.Server {
	return httptest.NewServer(handler)
}

// WebSocketURL converts an http:// test server URL into the ws:// URL of the
// /ws endpoint.
func WebSocketURL(serverURL string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
}

// AssertStatusCode checks if the HTTP response has the expected status code.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// AssertContentType checks if the HTTP response has the expected Content-Type header.
func AssertContentType(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	contentType := resp.Header.Get("Content-Type")
	if contentType != expected {
		t.Errorf("Expected content type %s, got %s", expected, contentType)
	}
}

// MakeRequest creates and executes an HTTP request, returning the response.
// It includes a 5-second timeout and fails the test if the request cannot be
// created or executed successfully.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, url, http.NoBody)
	require.NoError(t, err, "create request")

	resp, err := client.Do(req)
	require.NoError(t, err, "make request")

	return resp
}

// ConnectWebSocket creates a WebSocket connection to the specified URL with
// the given Origin header.
func ConnectWebSocket(url, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// Connect dials url with TestOrigin, reads the welcome envelope and returns
// the connection together with the assigned user id. The connection is
// closed when the test ends.
func Connect(t *testing.T, url string) (*websocket.Conn, string) {
	t.Helper()

	conn, err := ConnectWebSocket(url, TestOrigin)
	require.NoError(t, err, "dial websocket")
	t.Cleanup(func() { _ = conn.Close() })

	welcome := ExpectEnvelope(t, conn, "welcome")
	id, _ := welcome["userId"].(string)
	require.NotEmpty(t, id, "welcome carries a user id")
	require.Equal(t, "", welcome["displayName"])
	return conn, id
}

// SendJoin sends a join envelope.
func SendJoin(t *testing.T, conn *websocket.Conn, room, displayName string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]string{
		"type":        "join",
		"room":        room,
		"displayName": displayName,
	}))
}

// SendChat sends a chat envelope.
func SendChat(t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]string{
		"type": "message",
		"text": text,
	}))
}

// SendRaw sends a raw text frame.
func SendRaw(t *testing.T, conn *websocket.Conn, data string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(data)))
}

// ReadEnvelope reads one frame and decodes it as a JSON object.
func ReadEnvelope(conn *websocket.Conn, timeout time.Duration) (map[string]any, error) {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	var envelope map[string]any
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}
	return envelope, nil
}

// ExpectEnvelope reads the next envelope and requires its type to match.
func ExpectEnvelope(t *testing.T, conn *websocket.Conn, envelopeType string) map[string]any {
	t.Helper()

	envelope, err := ReadEnvelope(conn, DefaultReadTimeout)
	require.NoError(t, err, "waiting for %q envelope", envelopeType)
	require.Equal(t, envelopeType, envelope["type"], "unexpected envelope %v", envelope)
	return envelope
}

// ExpectNoMessage requires that nothing arrives on conn within timeout. A
// timed-out gorilla connection cannot be read again, so call it last.
func ExpectNoMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()

	envelope, err := ReadEnvelope(conn, timeout)
	if err == nil {
		t.Fatalf("Expected no message, got %v", envelope)
	}
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}
