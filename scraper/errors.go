package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Error kind labels used in metrics, logs and the manifest.
const (
	KindTimeout     = "timeout"
	KindConnection  = "connection"
	KindForbidden   = "forbidden"
	KindNotFound    = "not_found"
	KindRateLimited = "rate_limited"
	KindStatus      = "status"
	KindFilesystem  = "filesystem"
	KindTooLarge    = "too_large"
	KindCancelled   = "cancelled"
	KindOther       = "other"
	KindUnknown     = "unknown"
)

// ErrTimeout indicates a timeout while issuing a request.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrForbidden indicates a forbidden response (HTTP 403).
type ErrForbidden struct {
	Err error
}

func (e ErrForbidden) Error() string {
	return fmt.Errorf("forbidden: %w", e.Err).Error()
}

func (e ErrForbidden) Unwrap() error {
	return e.Err
}

// ErrNotFound indicates a missing resource (HTTP 404).
type ErrNotFound struct {
	Err error
}

func (e ErrNotFound) Error() string {
	return fmt.Errorf("not_found: %w", e.Err).Error()
}

func (e ErrNotFound) Unwrap() error {
	return e.Err
}

// ErrRateLimited indicates the CDN rate-limited the request.
type ErrRateLimited struct {
	Err error
}

func (e ErrRateLimited) Error() string {
	return fmt.Errorf("rate_limited: %w", e.Err).Error()
}

func (e ErrRateLimited) Unwrap() error {
	return e.Err
}

// ErrStatus indicates any other non-200 response.
type ErrStatus struct {
	Code int
}

func (e ErrStatus) Error() string {
	return fmt.Sprintf("status %d %s", e.Code, http.StatusText(e.Code))
}

// ErrTooLarge indicates a response body longer than the configured limit.
type ErrTooLarge struct {
	Limit int
}

func (e ErrTooLarge) Error() string {
	return fmt.Sprintf("body exceeds %d bytes", e.Limit)
}

// ErrFilesystem indicates the asset could not be written to disk.
type ErrFilesystem struct {
	Err error
}

func (e ErrFilesystem) Error() string {
	return fmt.Errorf("filesystem: %w", e.Err).Error()
}

func (e ErrFilesystem) Unwrap() error {
	return e.Err
}

// ErrorKind maps an error to its label.
func ErrorKind(err error) string {
	if err == nil {
		return KindUnknown
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return KindConnection
	}
	var forbidden ErrForbidden
	if errors.As(err, &forbidden) {
		return KindForbidden
	}
	var notFound ErrNotFound
	if errors.As(err, &notFound) {
		return KindNotFound
	}
	var rateLimited ErrRateLimited
	if errors.As(err, &rateLimited) {
		return KindRateLimited
	}
	var status ErrStatus
	if errors.As(err, &status) {
		return KindStatus
	}
	var tooLarge ErrTooLarge
	if errors.As(err, &tooLarge) {
		return KindTooLarge
	}
	var fsErr ErrFilesystem
	if errors.As(err, &fsErr) {
		return KindFilesystem
	}
	return KindOther
}

// classifyError wraps a transport error or a non-200 status in a typed error.
func classifyError(err error, statusCode int) error {
	if err == nil && (statusCode == 0 || statusCode == http.StatusOK) {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 && statusCode != http.StatusOK {
		wrapped := err
		if wrapped == nil {
			wrapped = ErrStatus{Code: statusCode}
		}
		switch statusCode {
		case http.StatusForbidden:
			return ErrForbidden{Err: wrapped}
		case http.StatusNotFound:
			return ErrNotFound{Err: wrapped}
		case http.StatusTooManyRequests:
			return ErrRateLimited{Err: wrapped}
		}
		return ErrStatus{Code: statusCode}
	}

	return err
}
