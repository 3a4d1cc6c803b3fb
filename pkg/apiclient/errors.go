package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrSessionExpired is returned for 401 responses; the stored token is already cleared
	ErrSessionExpired = errors.New("session expired")
	// ErrForbidden is returned for 403 responses
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned for 404 responses
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned for 409 responses
	ErrConflict = errors.New("conflict")
	// ErrBadRequest is returned for 400 and 422 responses
	ErrBadRequest = errors.New("bad request")
	// ErrServer is returned for 5xx responses
	ErrServer = errors.New("backend error")
	// ErrUnavailable is returned when the backend could not be reached
	ErrUnavailable = errors.New("backend unavailable")
)

// APIError describes a failed backend call
type APIError struct {
	Status  int
	Method  string
	Path    string
	Message string
	Fields  map[string][]string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %v: %s", e.Method, e.Path, e.Err, e.Message)
	}
	if e.Message == "" {
		return fmt.Sprintf("%s %s: %d %v", e.Method, e.Path, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the call may succeed if repeated
func (e *APIError) Retryable() bool {
	return errors.Is(e.Err, ErrUnavailable) || errors.Is(e.Err, ErrServer)
}

// FieldMessage joins the messages reported for a field
func (e *APIError) FieldMessage(field string) string {
	for k, msgs := range e.Fields {
		if strings.EqualFold(k, field) {
			return strings.Join(msgs, "; ")
		}
	}
	return ""
}

// IsSessionError reports whether err requires sending the user back to login
func IsSessionError(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}

// IsNotFound reports whether err is a backend 404
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports whether err is a backend 409
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func sentinelFor(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrSessionExpired
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusConflict:
		return ErrConflict
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return ErrBadRequest
	case status >= 500:
		return ErrServer
	default:
		return ErrBadRequest
	}
}

// errorBody covers the shapes the backend uses for failures: a plain message,
// an ASP.NET problem document with an errors map, or a list of messages.
type errorBody struct {
	Message string          `json:"message"`
	Title   string          `json:"title"`
	Error   string          `json:"error"`
	Detail  string          `json:"detail"`
	Errors  json.RawMessage `json:"errors"`
}

func parseErrorBody(body []byte) (string, map[string][]string) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "", nil
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		// text/plain response
		if len(trimmed) > 300 {
			trimmed = trimmed[:300]
		}
		return trimmed, nil
	}

	msg := firstNonEmpty(eb.Message, eb.Detail, eb.Error, eb.Title)
	fields := map[string][]string{}

	if len(eb.Errors) > 0 {
		var byField map[string][]string
		var list []string
		switch {
		case json.Unmarshal(eb.Errors, &byField) == nil:
			for k, v := range byField {
				fields[k] = v
			}
		case json.Unmarshal(eb.Errors, &list) == nil:
			if msg == "" {
				msg = strings.Join(list, "; ")
			}
		}
	}

	if len(fields) == 0 {
		return msg, nil
	}
	if msg == "" {
		msg = aggregate(fields)
	}
	return msg, fields
}

func aggregate(fields map[string][]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(fields[k], ", ")))
	}
	return strings.Join(parts, "; ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
