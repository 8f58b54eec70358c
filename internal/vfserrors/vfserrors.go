// Package vfserrors defines the sentinel error kinds shared across the
// versioned filesystem engine. Every component wraps one of these with
// %w and path context rather than inventing its own error type.
package vfserrors

import "errors"

var (
	// ErrFileNotFound reports that a path, or a required parent, does not exist.
	ErrFileNotFound = errors.New("file not found")
	// ErrNotADirectory reports that a path step expected to be a directory is a file.
	ErrNotADirectory = errors.New("not a directory")
	// ErrIsADirectory reports that an operation needing a file found a directory.
	ErrIsADirectory = errors.New("is a directory")
	// ErrAlreadyExists reports that mkdir's target already exists as a file.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotSupported reports a deliberately out-of-scope operation.
	ErrNotSupported = errors.New("not supported")
	// ErrStorageFault reports an underlying storage or blob I/O failure.
	ErrStorageFault = errors.New("storage fault")
	// ErrDocumentNotFound reports a referenced text-doc handle that cannot be loaded.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrEngineClosed reports an invocation after Close.
	ErrEngineClosed = errors.New("engine closed")
)

// Is reports whether err wraps target, delegating to errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
