package domain

import "errors"

var (
	// ErrInvalidConfig indicates invalid construction parameters, such as a
	// chunk overlap that is not smaller than the chunk size.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyInput indicates a document or file without usable text.
	ErrEmptyInput = errors.New("empty input")

	// ErrStorage indicates that persisted state could not be written or removed.
	// In-memory state may be ahead of durable state after this error.
	ErrStorage = errors.New("storage failure")

	// ErrJobRunning is returned when a batch job is started while another one
	// is still active.
	ErrJobRunning = errors.New("a batch job is already running")

	// ErrUnsupportedType indicates a file extension no loader handles.
	ErrUnsupportedType = errors.New("unsupported document type")
)
