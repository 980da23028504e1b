package analytics

import "fmt"

// StorageError reports a failed store read or append. Op names the engine
// operation; Err is the underlying driver error.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: storage: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// InputError reports a request that is malformed before any store access.
type InputError string

func (e InputError) Error() string { return string(e) }
