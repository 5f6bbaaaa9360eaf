package entities

import (
	"errors"
	"fmt"
)

var (
	ErrCorpusNotFound    = errors.New("corpus not found")
	ErrCorpusEmpty       = errors.New("corpus has no passages")
	ErrIndexBuild        = errors.New("index build failed")
	ErrIndexStale        = errors.New("index snapshot is stale")
	ErrIndexNotFound     = errors.New("index snapshot not found")
	ErrCredentialMissing = errors.New("generator credential missing")
	ErrGeneration        = errors.New("generation failed")
	ErrBackendTimeout    = errors.New("generation backend timed out")
)

// InitializationError is fatal for the engine: it moves it to StateFailed.
type InitializationError struct {
	Stage string
	Err   error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("initializing %s: %v", e.Stage, e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }

// QueryError is scoped to a single call and never changes engine state.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }
