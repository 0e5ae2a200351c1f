// Package errs holds the error taxonomy shared by the pipeline stages.
package errs

import (
	"fmt"

	"github.com/rotisserie/eris"
)

var (
	// ErrProvider covers network, timeout and non-2xx failures from completion or embedding calls.
	ErrProvider = eris.New("provider error")
	// ErrSchema means the provider answered but the payload failed structural validation.
	ErrSchema = eris.New("schema error")
	// ErrEmptyIndex is returned by a similarity search against zero vectors.
	ErrEmptyIndex = eris.New("similarity index is empty")
	// ErrExhaustedRetries is the content generator's failure sentinel.
	ErrExhaustedRetries = eris.New("retries exhausted")

	ErrEmptyInput = eris.New("input text is empty")
	ErrNotFound   = eris.New("not found")
)

// Stage names reported by StageError.
const (
	StageClassify = "classify"
	StageMatch    = "match"
	StageDecide   = "decide"
	StageGenerate = "generate"
	StagePersist  = "persist"
)

// StageError aborts a pipeline run. Callers may retry the whole run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
