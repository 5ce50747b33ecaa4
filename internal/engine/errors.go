package engine

import (
	"errors"
	"fmt"

	"github.com/ivlev/scrollloop/internal/pool"
)

var (
	ErrTilingFailed          = errors.New("tiling failed")
	ErrFrameGenerationFailed = errors.New("frame generation failed")
	ErrFlattenFailed         = errors.New("flatten failed")
	ErrAssemblyFailed        = errors.New("assembly failed")

	errFrameMissing = errors.New("no file written")
)

// StageError reports a pooled stage that did not produce every frame. It
// matches its Kind with errors.Is.
type StageError struct {
	Kind    error
	Total   int
	Failed  int
	Missing int           // frames absent on disk
	First   *pool.Failure // first failed item, else first missing frame
	Name    string        // frame file of First
}

func (e *StageError) Error() string {
	msg := fmt.Sprintf("%v: %d of %d frames failed", e.Kind, e.Failed, e.Total)
	if e.Missing > 0 {
		msg += fmt.Sprintf(", %d missing on disk", e.Missing)
	}
	if e.First != nil {
		msg += fmt.Sprintf(" (first: %s: %v)", e.Name, e.First.Err)
	}
	return msg
}

func (e *StageError) Unwrap() error {
	return e.Kind
}

// OutputError is the failure of one requested artifact.
type OutputError struct {
	Path string
	Err  error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrAssemblyFailed, e.Path, e.Err)
}

func (e *OutputError) Unwrap() []error {
	return []error{ErrAssemblyFailed, e.Err}
}
