package engine

import (
	"errors"
	"fmt"
)

// ErrAborted is returned on a worker that received an Abort status.
var ErrAborted = errors.New("run aborted by coordinator")

// ConfigurationError reports dimensions that cannot be split evenly across
// the process set.
type ConfigurationError struct {
	Dims  Dims
	Procs int
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("matrix dimensions %dx%dx%d are not divisible by the number of processes (%d)",
		e.Dims.M, e.Dims.N, e.Dims.Q, e.Procs)
}

// ResourceError reports an output file the coordinator could not open or write.
type ResourceError struct {
	Path string
	Err  error
}

func (e ResourceError) Error() string {
	return fmt.Sprintf("error accessing %s: %v", e.Path, e.Err)
}

func (e ResourceError) Unwrap() error { return e.Err }

// CorrectnessError reports the first cell where a distributed result
// differs from the sequential reference. Row and Col are -1 on a shape mismatch.
type CorrectnessError struct {
	Variant string
	Row     int
	Col     int
	Want    int64
	Got     int64
}

func (e CorrectnessError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("%s result has the wrong shape", e.Variant)
	}
	return fmt.Sprintf("%s result differs at (%d, %d): want %d, got %d", e.Variant, e.Row, e.Col, e.Want, e.Got)
}

// ExitCode maps the outcome of Run to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
