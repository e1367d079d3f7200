package http

import (
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestGetContentType(t *testing.T) {
	resp := &http.Response{Header: make(http.Header)}
	resp.Header.Set("Content-Type", "application/json; charset=utf-8")

	if got := GetContentType(resp); got != "application/json; charset=utf-8" {
		t.Errorf("GetContentType() = %q", got)
	}
}

func TestEnsureSuccess(t *testing.T) {
	tests := []struct {
		name        string
		statusCode  int
		expectError bool
	}{
		{"200 OK", http.StatusOK, false},
		{"201 Created", http.StatusCreated, false},
		{"204 No Content", http.StatusNoContent, false},
		{"400 Bad Request", http.StatusBadRequest, true},
		{"500 Internal Server Error", http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := EnsureSuccess(&http.Response{StatusCode: tt.statusCode, Status: tt.name})
			if (err != nil) != tt.expectError {
				t.Errorf("EnsureSuccess() error = %v, expectError = %v", err, tt.expectError)
			}
		})
	}
}

func TestDecodeJSONResponse(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(`{"success":true}`)),
	}

	var target struct {
		Success bool `json:"success"`
	}
	if err := DecodeJSONResponse(resp, &target); err != nil {
		t.Fatalf("DecodeJSONResponse() error = %v", err)
	}
	if !target.Success {
		t.Error("DecodeJSONResponse() did not decode success flag")
	}

	failed := &http.Response{
		StatusCode: http.StatusBadRequest,
		Status:     "400 Bad Request",
		Body:       io.NopCloser(strings.NewReader(`{}`)),
	}
	if err := DecodeJSONResponse(failed, &target); err == nil {
		t.Error("DecodeJSONResponse() should fail on 400")
	}
}

func TestReadResponseBody(t *testing.T) {
	resp := &http.Response{Body: io.NopCloser(strings.NewReader("hello"))}

	body, err := ReadResponseBody(resp)
	if err != nil {
		t.Fatalf("ReadResponseBody() error = %v", err)
	}
	if string(body) != "hello" {
		t.Errorf("ReadResponseBody() = %q", body)
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{"error field", `{"error":"bad url"}`, "bad url"},
		{"message field", `{"message":"Internal server error"}`, "Internal server error"},
		{"nested error", `{"error":{"message":"quota"}}`, "quota"},
		{"json without message", `{"success":false}`, ""},
		{"plain text", "  Service Unavailable \n", "Service Unavailable"},
		{"empty", "", ""},
		{"long text is truncated", strings.Repeat("x", 300), strings.Repeat("x", 200) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorMessage([]byte(tt.body)); got != tt.expected {
				t.Errorf("ErrorMessage() = %q, want %q", got, tt.expected)
			}
		})
	}
}
