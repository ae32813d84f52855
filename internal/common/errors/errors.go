// Package errors holds the error catalogue shared by the image, defrag and command layers
package errors

import (
	"errors"
	"fmt"
)

var (
	// Usage Errors
	ErrUsage           = errors.New("usage error")
	ErrInvalidArgument = errors.New("invalid argument")

	// I/O Errors
	ErrIO                     = errors.New("I/O error")
	ErrFileNotFound           = errors.New("file not found")
	ErrShortRead              = errors.New("short read")
	ErrFileWriteError         = errors.New("error writing to file")
	ErrUnsupportedCompression = errors.New("unsupported compression format")
	ErrInsufficientDiskSpace  = errors.New("insufficient disk space")

	// Structural Errors
	ErrInvalidBlockSize = errors.New("invalid block size")
	ErrInvalidGeometry  = errors.New("invalid region geometry")
	ErrImageTooSmall    = errors.New("image smaller than declared regions")
	ErrStructTooShort   = errors.New("data too short for structure")
	ErrMissingInput     = errors.New("missing pipeline input")

	// Corruption Errors
	ErrCorruptImage     = errors.New("corrupt image")
	ErrBlockOutOfRange  = errors.New("block index outside data region")
	ErrBlockCollision   = errors.New("block claimed more than once")
	ErrLayoutDivergence = errors.New("enumerated blocks diverge from planned layout")
	ErrNoSpace          = errors.New("data region too small for defragmented layout")

	// Configuration Errors
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrConfigParseError = errors.New("error parsing configuration")
)

// DefragError carries the pipeline stage and object an error relates to
type DefragError struct {
	Err    error  // The underlying error
	Stage  string // The pipeline stage or operation that failed
	Object string // The object involved (path, inode, block)
	Detail string // Additional details about the error
}

// Error implements the error interface
func (e *DefragError) Error() string {
	if e.Object != "" && e.Detail != "" {
		return fmt.Sprintf("%s: %s [%s]: %v", e.Stage, e.Object, e.Detail, e.Err)
	} else if e.Object != "" {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Object, e.Err)
	} else if e.Detail != "" {
		return fmt.Sprintf("%s: %v [%s]", e.Stage, e.Err, e.Detail)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error
func (e *DefragError) Unwrap() error {
	return e.Err
}

// NewDefragError creates a new DefragError with the given details
func NewDefragError(err error, stage string, object string, detail string) error {
	return &DefragError{
		Err:    err,
		Stage:  stage,
		Object: object,
		Detail: detail,
	}
}

// IsUsageError returns true if the error came from bad command input
func IsUsageError(err error) bool {
	return errors.Is(err, ErrUsage) || errors.Is(err, ErrInvalidArgument)
}

// IsIOError returns true if the error is related to reading or writing images
func IsIOError(err error) bool {
	return errors.Is(err, ErrIO) || errors.Is(err, ErrFileNotFound) ||
		errors.Is(err, ErrShortRead) || errors.Is(err, ErrFileWriteError) ||
		errors.Is(err, ErrUnsupportedCompression) || errors.Is(err, ErrInsufficientDiskSpace)
}

// IsStructuralError returns true if the image geometry or pipeline state is unusable
func IsStructuralError(err error) bool {
	return errors.Is(err, ErrInvalidBlockSize) || errors.Is(err, ErrInvalidGeometry) ||
		errors.Is(err, ErrImageTooSmall) || errors.Is(err, ErrStructTooShort) ||
		errors.Is(err, ErrMissingInput)
}

// IsCorruption returns true if the image metadata is inconsistent
func IsCorruption(err error) bool {
	return errors.Is(err, ErrCorruptImage) || errors.Is(err, ErrBlockOutOfRange) ||
		errors.Is(err, ErrBlockCollision) || errors.Is(err, ErrLayoutDivergence) ||
		errors.Is(err, ErrNoSpace)
}
