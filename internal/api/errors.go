package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Error is an HTTP error status returned by the API.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	// Detail is the backend's "detail" message, if any.
	Detail string
	// Fields holds per-field validation messages ({"email": ["..."]}).
	Fields map[string][]string
	Body   []byte
}

func (e *Error) Error() string {
	msg := e.Message()
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, msg)
}

// Message returns text suitable for showing to the user.
func (e *Error) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		k := keys[0]
		msg := strings.Join(e.Fields[k], " ")
		if k == "non_field_errors" {
			return msg
		}
		return k + ": " + msg
	}
	if text := http.StatusText(e.StatusCode); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// FieldError returns the first message for field, or "".
func (e *Error) FieldError(field string) string {
	if msgs := e.Fields[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

func (e *Error) IsUnauthorized() bool { return e.StatusCode == http.StatusUnauthorized }
func (e *Error) IsForbidden() bool    { return e.StatusCode == http.StatusForbidden }
func (e *Error) IsNotFound() bool     { return e.StatusCode == http.StatusNotFound }

// IsStatus reports whether err is an *Error with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// Message returns the user-facing text for any error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrSessionTerminated) {
		return "Your session has expired. Please log in again."
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	return err.Error()
}

func newError(req *Request, resp *Response) *Error {
	e := &Error{
		Method:     req.Method,
		Path:       req.Path,
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return e
	}
	for k, raw := range payload {
		if k == "detail" {
			var detail string
			if json.Unmarshal(raw, &detail) == nil {
				e.Detail = detail
			}
			continue
		}
		if msgs := fieldMessages(raw); len(msgs) > 0 {
			if e.Fields == nil {
				e.Fields = make(map[string][]string)
			}
			e.Fields[k] = msgs
		}
	}
	return e
}

// fieldMessages accepts "msg", ["msg", ...] or {"nested": ...}.
func fieldMessages(raw json.RawMessage) []string {
	var one string
	if json.Unmarshal(raw, &one) == nil {
		return []string{one}
	}
	var many []string
	if json.Unmarshal(raw, &many) == nil {
		return many
	}
	var nested map[string]json.RawMessage
	if json.Unmarshal(raw, &nested) == nil {
		var out []string
		for _, v := range nested {
			out = append(out, fieldMessages(v)...)
		}
		return out
	}
	return nil
}
