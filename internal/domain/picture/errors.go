package picture

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors
var (
	ErrDecode            = errors.New("image decode failed")
	ErrEncode            = errors.New("image encode failed")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrFieldNotFound     = errors.New("metadata field not found")
	ErrInvalidGeometry   = errors.New("invalid geometry")

	// ErrMetadata marks an embedded block that could not be parsed. Reads
	// return it alongside whatever else was recovered.
	ErrMetadata = errors.New("metadata block unreadable")
)

// PathError records a failed operation against an image file.
// Kind is one of the domain sentinels; Err is the underlying cause.
type PathError struct {
	Op   string
	Path string
	Kind error
	Err  error
}

func (e *PathError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Path, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As
func (e *PathError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewPathError builds a PathError
func NewPathError(op, path string, kind, err error) *PathError {
	return &PathError{Op: op, Path: path, Kind: kind, Err: err}
}

// FieldNotFoundError lists metadata fields that could not be resolved to a tag
type FieldNotFoundError struct {
	Fields []string
}

func (e *FieldNotFoundError) Error() string {
	return fmt.Sprintf("%v: %s", ErrFieldNotFound, strings.Join(e.Fields, ", "))
}

// Is matches ErrFieldNotFound
func (e *FieldNotFoundError) Is(target error) bool {
	return target == ErrFieldNotFound
}
