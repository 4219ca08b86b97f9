package models

import (
	"errors"
	"fmt"
)

type UploadState string

const (
	UploadWaiting   UploadState = "waiting"
	UploadUploading UploadState = "uploading"
	UploadDone      UploadState = "done"
	UploadError     UploadState = "error"
)

type UploadStrategy string

const (
	StrategyDirect    UploadStrategy = "direct"
	StrategyMultipart UploadStrategy = "multipart"
)

var ErrInvalidTransition = errors.New("invalid upload state transition")

// UploadTask tracks one file of an upload session.
//
// Progress is a synthetic estimate in [0, 100]; it does not reflect bytes
// actually sent. Size is -1 when unknown.
type UploadTask struct {
	ID       string
	Name     string
	Path     string
	Size     int64
	State    UploadState
	Progress float64
	Err      string
	Strategy UploadStrategy
}

var transitions = map[UploadState][]UploadState{
	UploadWaiting:   {UploadUploading},
	UploadUploading: {UploadDone, UploadError},
}

// Transition moves the task to next. Only waiting -> uploading,
// uploading -> done and uploading -> error are allowed.
func (t *UploadTask) Transition(next UploadState) error {
	for _, s := range transitions[t.State] {
		if s == next {
			t.State = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.State, next)
}

// Terminal reports whether the task reached done or error.
func (t *UploadTask) Terminal() bool {
	return t.State == UploadDone || t.State == UploadError
}
