package pipeline

import (
	"errors"
	"fmt"
)

// Stage names a pipeline step.
type Stage string

const (
	StageManifest       Stage = "manifest"
	StageCompose        Stage = "compose"
	StageUploadImage    Stage = "upload-image"
	StageUploadMetadata Stage = "upload-metadata"
	StageReserve        Stage = "reserve"
	StageSubmit         Stage = "submit"
	StageConfirm        Stage = "confirm"
)

var (
	ErrParamsChanged   = errors.New("pipeline: run parameters changed since the run started")
	ErrReserveMismatch = errors.New("pipeline: reserve address does not match submitted transaction")
)

// StageError reports which step failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func fail(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}
