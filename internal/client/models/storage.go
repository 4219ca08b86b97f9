package models

import "time"

type BucketInfo struct {
	Name         string    `json:"name"`
	CreationDate time.Time `json:"creation_date"`
	Region       string    `json:"region,omitempty"`
}

type ObjectMetadata struct {
	Key          string    `json:"key"`
	LastModified time.Time `json:"last_modified"`
	Size         int64     `json:"size"`
	ETag         string    `json:"etag"`
	StorageClass string    `json:"storage_class"`
	ContentType  string    `json:"content_type,omitempty"`
	IsFolder     bool      `json:"is_folder"`
}

// ListObjectsInput selects one page of a listing. Zero values mean
// "not set": no prefix, no delimiter, first page, backend default page size.
type ListObjectsInput struct {
	Bucket            string
	Prefix            string
	Delimiter         string
	ContinuationToken string
	MaxKeys           int32
}

type ListObjectsResult struct {
	Objects               []ObjectMetadata `json:"objects"`
	CommonPrefixes        []string         `json:"common_prefixes"`
	IsTruncated           bool             `json:"is_truncated"`
	NextContinuationToken string           `json:"next_continuation_token,omitempty"`
}

// Clone deep-copies r so callers cannot mutate a shared (cached) result.
func (r *ListObjectsResult) Clone() *ListObjectsResult {
	if r == nil {
		return nil
	}
	c := *r
	if r.Objects != nil {
		c.Objects = append([]ObjectMetadata(nil), r.Objects...)
	}
	if r.CommonPrefixes != nil {
		c.CommonPrefixes = append([]string(nil), r.CommonPrefixes...)
	}
	return &c
}

// FileTransfer pairs a remote key with a local path for batch uploads and
// downloads.
type FileTransfer struct {
	Key       string
	LocalPath string
}
