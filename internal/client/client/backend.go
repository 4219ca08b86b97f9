package client

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/s3keeper/internal/client/models"
)

// Backend is a storage driver. Every call receives the already decrypted
// profile it should authenticate with.
type Backend interface {
	ListBuckets(ctx context.Context, p *models.ConnectionProfile) ([]models.BucketInfo, error)
	CreateBucket(ctx context.Context, p *models.ConnectionProfile, name, region string) error
	DeleteBucket(ctx context.Context, p *models.ConnectionProfile, name string) error
	// HeadBucket reports false, nil when the bucket does not exist.
	HeadBucket(ctx context.Context, p *models.ConnectionProfile, name string) (bool, error)

	ListObjects(ctx context.Context, p *models.ConnectionProfile, in models.ListObjectsInput) (*models.ListObjectsResult, error)
	DeleteObject(ctx context.Context, p *models.ConnectionProfile, bucket, key string) error
	// DeleteObjects returns the keys the backend failed to delete.
	DeleteObjects(ctx context.Context, p *models.ConnectionProfile, bucket string, keys []string) ([]string, error)
	CopyObject(ctx context.Context, p *models.ConnectionProfile, bucket, srcKey, dstKey string) error
	MoveObject(ctx context.Context, p *models.ConnectionProfile, bucket, srcKey, dstKey string) error
	RenameObject(ctx context.Context, p *models.ConnectionProfile, bucket, oldKey, newKey string) error
	HeadObject(ctx context.Context, p *models.ConnectionProfile, bucket, key string) (*models.ObjectMetadata, error)

	// UploadFile returns an identifier of the stored object (ETag when the
	// backend reports one, the key otherwise). An empty contentType is
	// guessed from the file extension.
	UploadFile(ctx context.Context, p *models.ConnectionProfile, bucket, key, localPath, contentType string) (string, error)
	UploadFiles(ctx context.Context, p *models.ConnectionProfile, bucket string, files []models.FileTransfer) ([]string, error)
	// UploadMultipart splits the file into partSizeMB parts (5 when <= 0).
	UploadMultipart(ctx context.Context, p *models.ConnectionProfile, bucket, key, localPath string, partSizeMB int) (string, error)
	AbortMultipartUpload(ctx context.Context, p *models.ConnectionProfile, bucket, key, uploadID string) error

	// DownloadFile writes the object to localPath, creating parent
	// directories, and returns localPath.
	DownloadFile(ctx context.Context, p *models.ConnectionProfile, bucket, key, localPath string) (string, error)
	DownloadFiles(ctx context.Context, p *models.ConnectionProfile, bucket string, files []models.FileTransfer) ([]string, error)

	// GetFileContent fails with ErrNotText for non UTF-8 content.
	GetFileContent(ctx context.Context, p *models.ConnectionProfile, bucket, key string) (string, error)
	// GetFileBytes returns the object body base64 encoded.
	GetFileBytes(ctx context.Context, p *models.ConnectionProfile, bucket, key string) (string, error)
}

const (
	DriverS3    = "s3"
	DriverMinio = "minio"
)

// NewBackend returns the driver registered under name.
func NewBackend(name string) (Backend, error) {
	switch name {
	case "", DriverS3:
		return NewS3Client(), nil
	case DriverMinio:
		return NewMinioClient(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, name)
}
