package convert

import (
	"errors"
	"fmt"
)

var (
	// ErrSceneBuildFailed is returned when the scene builder fails, returns
	// nothing or panics.
	ErrSceneBuildFailed = errors.New("convert: scene build failed")

	// ErrNotNote marks inputs that are skipped because they are not note
	// containers.
	ErrNotNote = errors.New("convert: not a note file")
)

// Stage names the pipeline step an error came from.
type Stage string

const (
	StageExtract Stage = "extract"
	StageDecode  Stage = "decode"
	StageBuild   Stage = "build"
	StageRender  Stage = "render"
)

// Error is a failure of one file at one stage.
type Error struct {
	Path  string
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Path, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
