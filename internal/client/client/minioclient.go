package client

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/s3keeper/internal/client/models"
	"github.com/dmitrijs2005/s3keeper/internal/common"
	"github.com/dmitrijs2005/s3keeper/internal/filex"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const defaultMinioHost = "s3.amazonaws.com"

// MinioClient is the minio-go driver.
//
// Listings are emulated on top of the SDK iterator: the continuation token
// is the last entry of the previous page (start-after), and only "/" is
// supported as a delimiter. A delimited listing reads the whole level and
// sorts it before cutting a page.
type MinioClient struct{}

func NewMinioClient() *MinioClient {
	return &MinioClient{}
}

// minioEndpoint turns a profile endpoint URL into the host and TLS flag
// minio-go expects. A bare host defaults to TLS.
func minioEndpoint(endpoint string) (host string, secure bool, err error) {
	if endpoint == "" {
		return defaultMinioHost, true, nil
	}
	if !strings.Contains(endpoint, "://") {
		return strings.TrimSuffix(endpoint, "/"), true, nil
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("endpoint %q has no host", endpoint)
	}
	switch u.Scheme {
	case "http":
		return u.Host, false, nil
	case "https":
		return u.Host, true, nil
	}
	return "", false, fmt.Errorf("endpoint %q: unsupported scheme %q", endpoint, u.Scheme)
}

func (c *MinioClient) sdk(p *models.ConnectionProfile) (*miniogo.Client, error) {
	host, secure, err := minioEndpoint(p.Endpoint)
	if err != nil {
		return nil, err
	}

	region := p.Region
	if region == "" {
		region = common.DefaultRegion
	}

	cl, err := miniogo.New(host, &miniogo.Options{
		Creds:  credentials.NewStaticV4(p.AccessKeyID, p.SecretAccessKey, p.SessionToken),
		Secure: secure,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return cl, nil
}

func (c *MinioClient) ListBuckets(ctx context.Context, p *models.ConnectionProfile) ([]models.BucketInfo, error) {
	cl, err := c.sdk(p)
	if err != nil {
		return nil, err
	}

	raw, err := cl.ListBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}

	buckets := make([]models.BucketInfo, len(raw))
	for i, b := range raw {
		buckets[i] = models.BucketInfo{Name: b.Name, CreationDate: b.CreationDate}
	}
	return buckets, nil
}

func (c *MinioClient) CreateBucket(ctx context.Context, p *models.ConnectionProfile, name, region string) error {
	cl, err := c.sdk(p)
	if err != nil {
		return err
	}
	if err := cl.MakeBucket(ctx, name, miniogo.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", name, err)
	}
	return nil
}

func (c *MinioClient) DeleteBucket(ctx context.Context, p *models.ConnectionProfile, name string) error {
	cl, err := c.sdk(p)
	if err != nil {
		return err
	}
	if err := cl.RemoveBucket(ctx, name); err != nil {
		return fmt.Errorf("delete bucket %s: %w", name, err)
	}
	return nil
}

func (c *MinioClient) HeadBucket(ctx context.Context, p *models.ConnectionProfile, name string) (bool, error) {
	cl, err := c.sdk(p)
	if err != nil {
		return false, err
	}
	ok, err := cl.BucketExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("head bucket %s: %w", name, err)
	}
	return ok, nil
}

func (c *MinioClient) ListObjects(ctx context.Context, p *models.ConnectionProfile, in models.ListObjectsInput) (*models.ListObjectsResult, error) {
	if in.Delimiter != "" && in.Delimiter != "/" {
		return nil, fmt.Errorf("list objects: unsupported delimiter %q", in.Delimiter)
	}

	cl, err := c.sdk(p)
	if err != nil {
		return nil, err
	}

	// a recursive listing stops the SDK iterator one item past the page
	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := cl.ListObjects(listCtx, in.Bucket, miniogo.ListObjectsOptions{
		Prefix:     in.Prefix,
		Recursive:  in.Delimiter == "",
		StartAfter: in.ContinuationToken,
	})

	var entries []miniogo.ObjectInfo
	for obj := range ch {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects %s/%s: %w", in.Bucket, in.Prefix, obj.Err)
		}
		entries = append(entries, obj)
		if in.Delimiter == "" && in.MaxKeys > 0 && int32(len(entries)) > in.MaxKeys {
			break
		}
	}
	if in.Delimiter != "" {
		// the SDK yields the objects of a response page before its prefixes
		slices.SortFunc(entries, func(a, b miniogo.ObjectInfo) int {
			return strings.Compare(a.Key, b.Key)
		})
	}
	isPrefix := func(obj miniogo.ObjectInfo) bool {
		return in.Delimiter != "" && strings.HasSuffix(obj.Key, "/") && obj.Size == 0 && obj.ETag == ""
	}

	res := &models.ListObjectsResult{
		Objects:        []models.ObjectMetadata{},
		CommonPrefixes: []string{},
	}
	for n, obj := range entries {
		if in.MaxKeys > 0 && int32(n) == in.MaxKeys {
			prev := entries[n-1]
			res.IsTruncated = true
			res.NextContinuationToken = pageToken(prev.Key, isPrefix(prev))
			break
		}
		if isPrefix(obj) {
			res.CommonPrefixes = append(res.CommonPrefixes, obj.Key)
			continue
		}
		res.Objects = append(res.Objects, models.ObjectMetadata{
			Key:          obj.Key,
			LastModified: obj.LastModified,
			Size:         obj.Size,
			ETag:         obj.ETag,
			StorageClass: obj.StorageClass,
			ContentType:  obj.ContentType,
			IsFolder:     strings.HasSuffix(obj.Key, "/"),
		})
	}
	return res, nil
}

func (c *MinioClient) DeleteObject(ctx context.Context, p *models.ConnectionProfile, bucket, key string) error {
	cl, err := c.sdk(p)
	if err != nil {
		return err
	}
	if err := cl.RemoveObject(ctx, bucket, key, miniogo.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete object %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (c *MinioClient) DeleteObjects(ctx context.Context, p *models.ConnectionProfile, bucket string, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	cl, err := c.sdk(p)
	if err != nil {
		return nil, err
	}

	objects := make(chan miniogo.ObjectInfo, len(keys))
	for _, k := range keys {
		objects <- miniogo.ObjectInfo{Key: k}
	}
	close(objects)

	failed := []string{}
	for e := range cl.RemoveObjects(ctx, bucket, objects, miniogo.RemoveObjectsOptions{}) {
		if e.Err != nil {
			failed = append(failed, e.ObjectName)
		}
	}
	return failed, nil
}

func (c *MinioClient) CopyObject(ctx context.Context, p *models.ConnectionProfile, bucket, srcKey, dstKey string) error {
	cl, err := c.sdk(p)
	if err != nil {
		return err
	}
	return minioCopy(ctx, cl, bucket, srcKey, dstKey)
}

func minioCopy(ctx context.Context, cl *miniogo.Client, bucket, srcKey, dstKey string) error {
	_, err := cl.CopyObject(ctx,
		miniogo.CopyDestOptions{Bucket: bucket, Object: dstKey},
		miniogo.CopySrcOptions{Bucket: bucket, Object: srcKey},
	)
	if err != nil {
		return fmt.Errorf("copy object %s -> %s: %w", srcKey, dstKey, err)
	}
	return nil
}

func (c *MinioClient) MoveObject(ctx context.Context, p *models.ConnectionProfile, bucket, srcKey, dstKey string) error {
	cl, err := c.sdk(p)
	if err != nil {
		return err
	}
	if err := minioCopy(ctx, cl, bucket, srcKey, dstKey); err != nil {
		return err
	}
	if err := cl.RemoveObject(ctx, bucket, srcKey, miniogo.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete source %s after copy: %w", srcKey, err)
	}
	return nil
}

func (c *MinioClient) RenameObject(ctx context.Context, p *models.ConnectionProfile, bucket, oldKey, newKey string) error {
	return c.MoveObject(ctx, p, bucket, oldKey, newKey)
}

func (c *MinioClient) HeadObject(ctx context.Context, p *models.ConnectionProfile, bucket, key string) (*models.ObjectMetadata, error) {
	cl, err := c.sdk(p)
	if err != nil {
		return nil, err
	}

	stat, err := cl.StatObject(ctx, bucket, key, miniogo.StatObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("head object %s/%s: %w", bucket, key, err)
	}
	return &models.ObjectMetadata{
		Key:          key,
		LastModified: stat.LastModified,
		Size:         stat.Size,
		ETag:         stat.ETag,
		StorageClass: stat.StorageClass,
		ContentType:  stat.ContentType,
		IsFolder:     strings.HasSuffix(key, "/"),
	}, nil
}

func minioPut(ctx context.Context, cl *miniogo.Client, bucket, key, localPath string, opts miniogo.PutObjectOptions) (string, error) {
	if opts.ContentType == "" {
		opts.ContentType = guessContentType(localPath)
	}
	info, err := cl.FPutObject(ctx, bucket, key, localPath, opts)
	if err != nil {
		return "", fmt.Errorf("put object %s/%s: %w", bucket, key, err)
	}
	if info.ETag != "" {
		return info.ETag, nil
	}
	return key, nil
}

func (c *MinioClient) UploadFile(ctx context.Context, p *models.ConnectionProfile, bucket, key, localPath, contentType string) (string, error) {
	cl, err := c.sdk(p)
	if err != nil {
		return "", err
	}
	return minioPut(ctx, cl, bucket, key, localPath, miniogo.PutObjectOptions{
		ContentType:      contentType,
		DisableMultipart: true,
	})
}

func (c *MinioClient) UploadFiles(ctx context.Context, p *models.ConnectionProfile, bucket string, files []models.FileTransfer) ([]string, error) {
	cl, err := c.sdk(p)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(files))
	for _, f := range files {
		id, err := minioPut(ctx, cl, bucket, f.Key, f.LocalPath, miniogo.PutObjectOptions{DisableMultipart: true})
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// UploadMultipart lets minio-go drive the parts. Unlike S3Client the
// upload id is not exposed on failure.
func (c *MinioClient) UploadMultipart(ctx context.Context, p *models.ConnectionProfile, bucket, key, localPath string, partSizeMB int) (string, error) {
	if partSizeMB <= 0 {
		partSizeMB = 5
	}
	cl, err := c.sdk(p)
	if err != nil {
		return "", err
	}
	if _, err := minioPut(ctx, cl, bucket, key, localPath, miniogo.PutObjectOptions{
		PartSize: uint64(partSizeMB) * common.MiB,
	}); err != nil {
		return "", err
	}
	return key, nil
}

func (c *MinioClient) AbortMultipartUpload(ctx context.Context, p *models.ConnectionProfile, bucket, key, uploadID string) error {
	cl, err := c.sdk(p)
	if err != nil {
		return err
	}
	core := miniogo.Core{Client: cl}
	if err := core.AbortMultipartUpload(ctx, bucket, key, uploadID); err != nil {
		return fmt.Errorf("abort multipart upload %s: %w", uploadID, err)
	}
	return nil
}

func (c *MinioClient) DownloadFile(ctx context.Context, p *models.ConnectionProfile, bucket, key, localPath string) (string, error) {
	cl, err := c.sdk(p)
	if err != nil {
		return "", err
	}
	return minioDownload(ctx, cl, bucket, key, localPath)
}

func minioDownload(ctx context.Context, cl *miniogo.Client, bucket, key, localPath string) (string, error) {
	if err := filex.EnsureParentDir(localPath); err != nil {
		return "", err
	}
	if err := cl.FGetObject(ctx, bucket, key, localPath, miniogo.GetObjectOptions{}); err != nil {
		return "", fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}
	return localPath, nil
}

func (c *MinioClient) DownloadFiles(ctx context.Context, p *models.ConnectionProfile, bucket string, files []models.FileTransfer) ([]string, error) {
	cl, err := c.sdk(p)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path, err := minioDownload(ctx, cl, bucket, f.Key, f.LocalPath)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (c *MinioClient) readAll(ctx context.Context, p *models.ConnectionProfile, bucket, key string) ([]byte, error) {
	cl, err := c.sdk(p)
	if err != nil {
		return nil, err
	}

	obj, err := cl.GetObject(ctx, bucket, key, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read object %s/%s: %w", bucket, key, err)
	}
	return data, nil
}

func (c *MinioClient) GetFileContent(ctx context.Context, p *models.ConnectionProfile, bucket, key string) (string, error) {
	data, err := c.readAll(ctx, p, bucket, key)
	if err != nil {
		return "", err
	}
	return textContent(data)
}

func (c *MinioClient) GetFileBytes(ctx context.Context, p *models.ConnectionProfile, bucket, key string) (string, error) {
	data, err := c.readAll(ctx, p, bucket, key)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// pageToken is the StartAfter value resuming a listing after key. A common
// prefix must be skipped as a whole, so the token sorts after every key
// below it.
func pageToken(key string, isPrefix bool) string {
	if isPrefix {
		return key + string(utf8.MaxRune)
	}
	return key
}
