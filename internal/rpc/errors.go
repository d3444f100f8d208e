package rpc

import (
	"errors"
	"fmt"
)

// ErrNoSnapshot indicates no cached response exists for a method
var ErrNoSnapshot = errors.New("no cached snapshot")

// Error is a JSON-RPC error object returned by the node.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// RequestError wraps a transport-level failure for a specific method call.
type RequestError struct {
	Method string
	Err    error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("rpc request %s failed: %v", e.Method, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// retryableStatus reports whether an HTTP status is worth retrying
func retryableStatus(statusCode int) bool {
	switch statusCode {
	case 429, 502, 503, 504:
		return true
	}
	return false
}
