package client

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownDriver = errors.New("unknown storage driver")
	ErrNotText       = errors.New("file content is not valid UTF-8 text")
	ErrNoUploadID    = errors.New("backend returned no upload id")
)

// MultipartError reports a multipart upload that failed after it was
// created. The upload is left open; pass UploadID to AbortMultipartUpload
// to release the stored parts.
type MultipartError struct {
	UploadID string
	Part     int32
	Err      error
}

func (e *MultipartError) Error() string {
	if e.Part > 0 {
		return fmt.Sprintf("multipart upload %s failed at part %d: %v", e.UploadID, e.Part, e.Err)
	}
	return fmt.Sprintf("multipart upload %s failed: %v", e.UploadID, e.Err)
}

func (e *MultipartError) Unwrap() error { return e.Err }
