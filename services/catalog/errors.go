package catalog

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrNotConfigured = errors.New("catalog token not configured")

// TransportError covers network failures, non-2xx responses and payloads that
// could not be decoded.
type TransportError struct {
	Op         string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("catalog %s: HTTP %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("catalog %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ApplicationError is a 2xx response whose body reports failure in-band.
type ApplicationError struct {
	Op      string
	Message string // may be empty
}

func (e *ApplicationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("catalog %s: service reported failure", e.Op)
	}
	return fmt.Sprintf("catalog %s: %s", e.Op, e.Message)
}

// IsNotFound reports whether err is a 404 from the catalog.
func IsNotFound(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.StatusCode == http.StatusNotFound
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
