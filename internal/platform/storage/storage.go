package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

var (
	// ErrNotFound indicates the requested object does not exist.
	ErrNotFound = errors.New("platform/storage: object not found")
	// ErrInvalidName indicates an object name that could escape the archive root.
	ErrInvalidName = errors.New("platform/storage: invalid object name")
)

// Object describes a stored artefact.
type Object struct {
	Name     string
	Location string
	Size     int64
}

// Store archives rendered reports.
type Store interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (Object, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// ValidateName accepts flat file names only.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed != name {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." || path.Clean(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
