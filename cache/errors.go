package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidName reports an empty name or one that could leave the cache
	// directory.
	ErrInvalidName = errors.New("invalid cache entry name")

	// ErrNotFound is returned by Inspect when no file exists for the entry.
	ErrNotFound = errors.New("cache entry not found")
)

// Step names the filesystem operation a StoreError failed in.
type Step string

const (
	StepResolve Step = "resolve"
	StepMkdir   Step = "mkdir"
	StepIndex   Step = "index"
	StepStage   Step = "stage"
	StepWrite   Step = "write"
	StepTouch   Step = "touch"
	StepRename  Step = "rename"
	StepStat    Step = "stat"
	StepRead    Step = "read"
)

// UnsupportedFormatError reports a format tag with no registered codec.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("cache format %q is not supported", e.Format)
}

// Codec operations reported by CodecError.
const (
	OpEncode = "encode"
	OpDecode = "decode"
)

// CodecError wraps an encode or decode failure.
type CodecError struct {
	Format string
	Op     string
	Err    error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Format, e.Op, e.Err)
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

// StoreError wraps a failed filesystem operation. Target is only set for
// StepRename.
type StoreError struct {
	Step   Step
	Path   string
	Target string
	Err    error
}

func (e *StoreError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("cache %s %s -> %s: %v", e.Step, e.Path, e.Target, e.Err)
	}
	return fmt.Sprintf("cache %s %s: %v", e.Step, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
