package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// RemoteError is a response outside 2xx, or a 2xx response whose body could
// not be decoded or failed shape validation (Malformed). Body is kept
// verbatim so callers can branch on the backend's own error payload.
type RemoteError struct {
	StatusCode int
	Body       []byte
	Malformed  bool
	Err        error
}

func (e *RemoteError) Error() string {
	if e.Malformed {
		return fmt.Sprintf("malformed response (status %d): %v", e.StatusCode, e.Err)
	}
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("remote error %d: %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("remote error %d", e.StatusCode)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Message returns the "message" field of the error payload, if any.
func (e *RemoteError) Message() string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Body, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Message)
}

// FieldError is one entry of the backend's validation error map.
type FieldError struct {
	Field   string
	Message string
}

// FieldErrors returns the entries of {"errors":{field:msg}} in payload
// order. A field whose value is a list contributes its first message.
func (e *RemoteError) FieldErrors() []FieldError {
	var payload struct {
		Errors json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(e.Body, &payload); err != nil || len(payload.Errors) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(payload.Errors))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil
	}
	var out []FieldError
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		field, _ := tok.(string)
		var value any
		if err := dec.Decode(&value); err != nil {
			return out
		}
		if msg := firstMessage(value); msg != "" {
			out = append(out, FieldError{Field: field, Message: msg})
		}
	}
	return out
}

// FirstFieldError returns the first validation message of the payload.
func (e *RemoteError) FirstFieldError() (FieldError, bool) {
	fe := e.FieldErrors()
	if len(fe) == 0 {
		return FieldError{}, false
	}
	return fe[0], true
}

func firstMessage(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		for _, item := range t {
			if msg := firstMessage(item); msg != "" {
				return msg
			}
		}
	}
	return ""
}

// NetworkError means no response arrived: dial, DNS, TLS, timeout or
// cancellation.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error on %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StatusCode returns the status of a RemoteError in err's chain, or 0.
func StatusCode(err error) int {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsForbidden reports whether err is a 403 from the backend.
func IsForbidden(err error) bool {
	return StatusCode(err) == http.StatusForbidden
}

// IsNetwork reports whether err means the backend could not be reached.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
