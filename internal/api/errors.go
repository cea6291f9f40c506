package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/zombor/scanly/internal/common"
)

// StatusError is returned for any non-2xx response from the remote API
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is maps well-known statuses onto the shared sentinel errors.
func (e *StatusError) Is(target error) bool {
	switch target {
	case common.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case common.ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}

// DisplayMessage returns the server's explanation, if it sent one.
func (e *StatusError) DisplayMessage() string {
	return e.Detail
}

// newStatusError builds a StatusError, pulling a message out of the usual
// error bodies: {"detail": "..."}, {"detail": [{"msg": "..."}]} or {"error": "..."}.
func newStatusError(method, path string, code int, body []byte) *StatusError {
	return &StatusError{
		Method:     method,
		Path:       path,
		StatusCode: code,
		Detail:     errorDetail(body),
	}
}

func errorDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		text := strings.TrimSpace(string(body))
		if len(text) > 200 {
			text = text[:200]
		}
		return text
	}
	if payload.Error != "" {
		return payload.Error
	}
	if len(payload.Detail) == 0 {
		return ""
	}

	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err == nil {
		return detail
	}

	var details []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &details); err == nil {
		msgs := make([]string, 0, len(details))
		for _, d := range details {
			if d.Msg != "" {
				msgs = append(msgs, d.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
