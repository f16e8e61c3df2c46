package models

import "fmt"

// TransportError is a call-level failure: the wire round trip itself
// failed (connection refused, timeout, bad HTTP status). No element of
// the batch can be assumed delivered.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return "transport: " + e.Op + ": " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError is a call-level failure: the response transported but
// its shape cannot be trusted (length mismatch, misaligned paths, type
// code not matching the populated field).
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string { return "protocol: " + e.Msg }

// RemoteRejection is an element-level failure: the device refused one
// value of an otherwise successful batch.
type RemoteRejection struct {
	Path string
	Code int
}

func (e *RemoteRejection) Error() string {
	return fmt.Sprintf("device rejected %s (result=%d)", e.Path, e.Code)
}

// ValidationError rejects an operation whose inputs are out of range or
// malformed.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// StorageError is a persistence failure. The in-memory preset
// collection is never left corrupted by one.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return "storage: " + e.Op + ": " + e.Err.Error() }
func (e *StorageError) Unwrap() error { return e.Err }

// AppError is a structured application error with HTTP status code,
// used at the API boundary.
type AppError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *AppError) Error() string { return e.Message }

// Error constructors.
var (
	ErrNotFound = func(msg string) *AppError {
		return &AppError{Code: "NOT_FOUND", Message: msg, Status: 404}
	}
	ErrBadRequest = func(msg string) *AppError {
		return &AppError{Code: "BAD_REQUEST", Message: msg, Status: 400}
	}
	ErrUnavailable = func(msg string) *AppError {
		return &AppError{Code: "DEVICE_UNAVAILABLE", Message: msg, Status: 502}
	}
	ErrInternal = func(msg string) *AppError {
		return &AppError{Code: "INTERNAL", Message: msg, Status: 500}
	}
)
