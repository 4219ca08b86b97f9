package client

import (
	"context"
	"time"

	"github.com/dmitrijs2005/s3keeper/internal/client/models"
)

// OpObserver receives one event per backend call.
type OpObserver interface {
	Observe(op string, err error, dur time.Duration)
}

// Instrumented wraps b so every call is reported to o.
func Instrumented(b Backend, o OpObserver) Backend {
	return &instrumented{next: b, obs: o, now: time.Now}
}

type instrumented struct {
	next Backend
	obs  OpObserver
	now  func() time.Time
}

// track starts timing op; call the result with a pointer to the named error
// result in a defer.
func (i *instrumented) track(op string) func(*error) {
	start := i.now()
	return func(err *error) {
		i.obs.Observe(op, *err, i.now().Sub(start))
	}
}

func (i *instrumented) ListBuckets(ctx context.Context, p *models.ConnectionProfile) (_ []models.BucketInfo, err error) {
	defer i.track("ListBuckets")(&err)
	return i.next.ListBuckets(ctx, p)
}

func (i *instrumented) CreateBucket(ctx context.Context, p *models.ConnectionProfile, name, region string) (err error) {
	defer i.track("CreateBucket")(&err)
	return i.next.CreateBucket(ctx, p, name, region)
}

func (i *instrumented) DeleteBucket(ctx context.Context, p *models.ConnectionProfile, name string) (err error) {
	defer i.track("DeleteBucket")(&err)
	return i.next.DeleteBucket(ctx, p, name)
}

func (i *instrumented) HeadBucket(ctx context.Context, p *models.ConnectionProfile, name string) (_ bool, err error) {
	defer i.track("HeadBucket")(&err)
	return i.next.HeadBucket(ctx, p, name)
}

func (i *instrumented) ListObjects(ctx context.Context, p *models.ConnectionProfile, in models.ListObjectsInput) (_ *models.ListObjectsResult, err error) {
	defer i.track("ListObjects")(&err)
	return i.next.ListObjects(ctx, p, in)
}

func (i *instrumented) DeleteObject(ctx context.Context, p *models.ConnectionProfile, bucket, key string) (err error) {
	defer i.track("DeleteObject")(&err)
	return i.next.DeleteObject(ctx, p, bucket, key)
}

func (i *instrumented) DeleteObjects(ctx context.Context, p *models.ConnectionProfile, bucket string, keys []string) (_ []string, err error) {
	defer i.track("DeleteObjects")(&err)
	return i.next.DeleteObjects(ctx, p, bucket, keys)
}

func (i *instrumented) CopyObject(ctx context.Context, p *models.ConnectionProfile, bucket, srcKey, dstKey string) (err error) {
	defer i.track("CopyObject")(&err)
	return i.next.CopyObject(ctx, p, bucket, srcKey, dstKey)
}

func (i *instrumented) MoveObject(ctx context.Context, p *models.ConnectionProfile, bucket, srcKey, dstKey string) (err error) {
	defer i.track("MoveObject")(&err)
	return i.next.MoveObject(ctx, p, bucket, srcKey, dstKey)
}

func (i *instrumented) RenameObject(ctx context.Context, p *models.ConnectionProfile, bucket, oldKey, newKey string) (err error) {
	defer i.track("RenameObject")(&err)
	return i.next.RenameObject(ctx, p, bucket, oldKey, newKey)
}

func (i *instrumented) HeadObject(ctx context.Context, p *models.ConnectionProfile, bucket, key string) (_ *models.ObjectMetadata, err error) {
	defer i.track("HeadObject")(&err)
	return i.next.HeadObject(ctx, p, bucket, key)
}

func (i *instrumented) UploadFile(ctx context.Context, p *models.ConnectionProfile, bucket, key, localPath, contentType string) (_ string, err error) {
	defer i.track("UploadFile")(&err)
	return i.next.UploadFile(ctx, p, bucket, key, localPath, contentType)
}

func (i *instrumented) UploadFiles(ctx context.Context, p *models.ConnectionProfile, bucket string, files []models.FileTransfer) (_ []string, err error) {
	defer i.track("UploadFiles")(&err)
	return i.next.UploadFiles(ctx, p, bucket, files)
}

func (i *instrumented) UploadMultipart(ctx context.Context, p *models.ConnectionProfile, bucket, key, localPath string, partSizeMB int) (_ string, err error) {
	defer i.track("UploadMultipart")(&err)
	return i.next.UploadMultipart(ctx, p, bucket, key, localPath, partSizeMB)
}

func (i *instrumented) AbortMultipartUpload(ctx context.Context, p *models.ConnectionProfile, bucket, key, uploadID string) (err error) {
	defer i.track("AbortMultipartUpload")(&err)
	return i.next.AbortMultipartUpload(ctx, p, bucket, key, uploadID)
}

func (i *instrumented) DownloadFile(ctx context.Context, p *models.ConnectionProfile, bucket, key, localPath string) (_ string, err error) {
	defer i.track("DownloadFile")(&err)
	return i.next.DownloadFile(ctx, p, bucket, key, localPath)
}

func (i *instrumented) DownloadFiles(ctx context.Context, p *models.ConnectionProfile, bucket string, files []models.FileTransfer) (_ []string, err error) {
	defer i.track("DownloadFiles")(&err)
	return i.next.DownloadFiles(ctx, p, bucket, files)
}

func (i *instrumented) GetFileContent(ctx context.Context, p *models.ConnectionProfile, bucket, key string) (_ string, err error) {
	defer i.track("GetFileContent")(&err)
	return i.next.GetFileContent(ctx, p, bucket, key)
}

func (i *instrumented) GetFileBytes(ctx context.Context, p *models.ConnectionProfile, bucket, key string) (_ string, err error) {
	defer i.track("GetFileBytes")(&err)
	return i.next.GetFileBytes(ctx, p, bucket, key)
}
