package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNotFound is matched by *NotFoundError via errors.Is.
var ErrNotFound = errors.New("rule not found")

var errEmptyResponse = errors.New("empty response")

// maxErrorBody bounds how much of an error body is echoed back to the operator.
const maxErrorBody = 200

// ServiceError is a non-success response from the rule service.
type ServiceError struct {
	Op         string
	StatusCode int
	Message    string
}

// Status returns the status code and its text, e.g. "400 Bad Request".
func (e *ServiceError) Status() string {
	return fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: rule service returned %s", e.Op, e.Status())
	}
	return fmt.Sprintf("%s: rule service returned %s: %s", e.Op, e.Status(), e.Message)
}

// NotFoundError is a 404 for an operation that targets a named rule.
type NotFoundError struct {
	Op   string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: rule %q not found", e.Op, e.Name)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// TransportError is a failure to reach the service or to read its response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// AsServiceError extracts a *ServiceError from err.
func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	ok := errors.As(err, &se)
	return se, ok
}

// errorMessage pulls a readable message out of an error body. The service answers
// with {"error": "..."} on validation failures; other bodies are echoed truncated.
func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Message != "":
			return payload.Message
		case payload.Error != "":
			return payload.Error
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody] + "..."
	}
	return msg
}
