package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedKind = errors.New("unsupported artifact kind")
	ErrNoJSONObject    = errors.New("no json object in model response")
	ErrEmptyInput      = errors.New("no files and no manual text")
)

type UnsupportedKindError struct {
	Name string
	Ext  string
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("unsupported file %q (extension %q)", e.Name, e.Ext)
}

func (e *UnsupportedKindError) Unwrap() error { return ErrUnsupportedKind }

// TranscodeError: the container could not be read or the target codec is unavailable.
type TranscodeError struct {
	Op   string
	Path string
	Err  error
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("transcode %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *TranscodeError) Unwrap() error { return e.Err }

type TranscriptionError struct {
	Path string
	Err  error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcribe %s: %v", e.Path, e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

type ExtractionError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s text from %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ArtifactError reports one file whose text block was left out of the corpus.
type ArtifactError struct {
	Name  string       `json:"name"`
	Kind  ArtifactKind `json:"kind"`
	Stage string       `json:"stage"`
	Err   error        `json:"-"`
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("%s (%s) failed at %s: %v", e.Name, e.Kind, e.Stage, e.Err)
}

func (e *ArtifactError) Unwrap() error { return e.Err }

// RefinementTransientError marks a generation failure that is worth retrying.
type RefinementTransientError struct {
	Attempt int
	Err     error
}

func (e *RefinementTransientError) Error() string {
	return fmt.Sprintf("refinement attempt %d: service unavailable: %v", e.Attempt, e.Err)
}

func (e *RefinementTransientError) Unwrap() error { return e.Err }

type RefinementFatalError struct {
	Attempt int
	Err     error
}

func (e *RefinementFatalError) Error() string {
	return fmt.Sprintf("refinement attempt %d: %v", e.Attempt, e.Err)
}

func (e *RefinementFatalError) Unwrap() error { return e.Err }
