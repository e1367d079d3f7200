package http

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// maxErrorMessageLength caps plain-text bodies surfaced as error messages
const maxErrorMessageLength = 200

// ReadResponseBody reads and closes HTTP response body
func ReadResponseBody(resp *http.Response) ([]byte, error) {
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Error("Failed to close response body", "error", closeErr)
		}
	}()
	return io.ReadAll(resp.Body)
}

// DecodeJSONResponse decodes a 2xx JSON response into target
func DecodeJSONResponse(resp *http.Response, target any) error {
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Error("Failed to close response body", "error", closeErr)
		}
	}()

	if !IsSuccess(resp.StatusCode) {
		return fmt.Errorf("HTTP error: %s", resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(target)
}

// GetContentType returns the content type of the response
func GetContentType(resp *http.Response) string {
	return resp.Header.Get("Content-Type")
}

// EnsureSuccess checks that the response status is 2xx
func EnsureSuccess(resp *http.Response) error {
	if !IsSuccess(resp.StatusCode) {
		return fmt.Errorf("unexpected status code: %d %s", resp.StatusCode, resp.Status)
	}
	return nil
}

// ErrorMessage extracts a human readable message from an error body.
// JSON bodies use their "error" or "message" field, anything else is trimmed text.
func ErrorMessage(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"error", "message", "errorMessage"} {
			if s, ok := payload[key].(string); ok && s != "" {
				return s
			}
		}
		// {"error": {"message": "..."}}
		if nested, ok := payload["error"].(map[string]any); ok {
			if s, ok := nested["message"].(string); ok {
				return s
			}
		}
		return ""
	}

	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorMessageLength {
		text = text[:maxErrorMessageLength] + "..."
	}
	return text
}
