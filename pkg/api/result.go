package api

import (
	"bytes"
	"context"
	"encoding/json"
)

// Result is a backend reply reduced to one shape, whatever the wire form was
type Result struct {
	Success bool
	Data    json.RawMessage
	Error   string
}

// envelope is the {success, data, error} wrapper some actions reply with
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

// Do sends a request and normalizes the reply
func (c *Client) Do(ctx context.Context, method string, params map[string]any) (*Result, error) {
	raw, err := c.Request(ctx, method, params)
	if err != nil {
		return nil, err
	}
	return normalize(raw), nil
}

// normalize is the only place that guesses at reply shapes.
// An object with a boolean "success" field is an envelope; anything else
// (bare array, bare object, scalar) is successful data.
func normalize(raw json.RawMessage) *Result {
	trimmed := bytes.TrimSpace(raw)

	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err == nil && env.Success != nil {
			return &Result{
				Success: *env.Success,
				Data:    env.Data,
				Error:   envelopeError(env),
			}
		}
	}

	return &Result{Success: true, Data: json.RawMessage(trimmed)}
}

func envelopeError(env envelope) string {
	if len(env.Error) > 0 {
		var s string
		if err := json.Unmarshal(env.Error, &s); err == nil {
			return s
		}
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(env.Error, &nested); err == nil && nested.Message != "" {
			return nested.Message
		}
	}
	if !*env.Success {
		return env.Message
	}
	return ""
}

// Items returns the elements of an array payload, or the payload itself as the
// single item when it is an object. null and empty payloads have no items.
func (r *Result) Items() []json.RawMessage {
	data := bytes.TrimSpace(r.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil
		}
		return items
	}

	return []json.RawMessage{json.RawMessage(data)}
}
