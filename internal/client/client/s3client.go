package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/s3keeper/internal/client/models"
	"github.com/dmitrijs2005/s3keeper/internal/common"
	"github.com/dmitrijs2005/s3keeper/internal/filex"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// minMultipartSize is the smallest file UploadMultipart splits into parts;
// smaller files go through a single PUT.
const minMultipartSize = 5 * common.MiB

// S3Client is the aws-sdk-go-v2 driver. It works with AWS and any
// S3-compatible endpoint (path-style addressing is used when the profile
// has a custom endpoint).
type S3Client struct{}

func NewS3Client() *S3Client {
	return &S3Client{}
}

func (c *S3Client) sdk(ctx context.Context, p *models.ConnectionProfile) (*s3.Client, error) {
	region := p.Region
	if region == "" {
		region = common.DefaultRegion
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			p.AccessKeyID,
			p.SecretAccessKey,
			p.SessionToken,
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if p.Endpoint != "" {
			o.BaseEndpoint = aws.String(p.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func (c *S3Client) ListBuckets(ctx context.Context, p *models.ConnectionProfile) ([]models.BucketInfo, error) {
	cl, err := c.sdk(ctx, p)
	if err != nil {
		return nil, err
	}

	out, err := cl.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}

	buckets := make([]models.BucketInfo, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		buckets = append(buckets, models.BucketInfo{
			Name:         aws.ToString(b.Name),
			CreationDate: aws.ToTime(b.CreationDate),
			Region:       aws.ToString(b.BucketRegion),
		})
	}
	return buckets, nil
}

func (c *S3Client) CreateBucket(ctx context.Context, p *models.ConnectionProfile, name, region string) error {
	cl, err := c.sdk(ctx, p)
	if err != nil {
		return err
	}

	in := &s3.CreateBucketInput{Bucket: aws.String(name)}
	// us-east-1 rejects an explicit location constraint
	if region != "" && region != common.DefaultRegion {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(region),
		}
	}

	if _, err := cl.CreateBucket(ctx, in); err != nil {
		return fmt.Errorf("create bucket %s: %w", name, err)
	}
	return nil
}

func (c *S3Client) DeleteBucket(ctx context.Context, p *models.ConnectionProfile, name string) error {
	cl, err := c.sdk(ctx, p)
	if err != nil {
		return err
	}
	if _, err := cl.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(name)}); err != nil {
		return fmt.Errorf("delete bucket %s: %w", name, err)
	}
	return nil
}

func (c *S3Client) HeadBucket(ctx context.Context, p *models.ConnectionProfile, name string) (bool, error) {
	cl, err := c.sdk(ctx, p)
	if err != nil {
		return false, err
	}

	_, err = cl.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(name)})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("head bucket %s: %w", name, err)
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}

func (c *S3Client) ListObjects(ctx context.Context, p *models.ConnectionProfile, in models.ListObjectsInput) (*models.ListObjectsResult, error) {
	cl, err := c.sdk(ctx, p)
	if err != nil {
		return nil, err
	}

	req := &s3.ListObjectsV2Input{Bucket: aws.String(in.Bucket)}
	if in.Prefix != "" {
		req.Prefix = aws.String(in.Prefix)
	}
	if in.Delimiter != "" {
		req.Delimiter = aws.String(in.Delimiter)
	}
	if in.ContinuationToken != "" {
		req.ContinuationToken = aws.String(in.ContinuationToken)
	}
	if in.MaxKeys > 0 {
		req.MaxKeys = aws.Int32(in.MaxKeys)
	}

	out, err := cl.ListObjectsV2(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("list objects %s/%s: %w", in.Bucket, in.Prefix, err)
	}

	res := &models.ListObjectsResult{
		Objects:               make([]models.ObjectMetadata, 0, len(out.Contents)),
		CommonPrefixes:        make([]string, 0, len(out.CommonPrefixes)),
		IsTruncated:           aws.ToBool(out.IsTruncated),
		NextContinuationToken: aws.ToString(out.NextContinuationToken),
	}
	for _, o := range out.Contents {
		key := aws.ToString(o.Key)
		res.Objects = append(res.Objects, models.ObjectMetadata{
			Key:          key,
			LastModified: aws.ToTime(o.LastModified),
			Size:         aws.ToInt64(o.Size),
			ETag:         aws.ToString(o.ETag),
			StorageClass: string(o.StorageClass),
			IsFolder:     strings.HasSuffix(key, "/"),
		})
	}
	for _, cp := range out.CommonPrefixes {
		if cp.Prefix != nil {
			res.CommonPrefixes = append(res.CommonPrefixes, *cp.Prefix)
		}
	}
	return res, nil
}

func (c *S3Client) DeleteObject(ctx context.Context, p *models.ConnectionProfile, bucket, key string) error {
	cl, err := c.sdk(ctx, p)
	if err != nil {
		return err
	}
	if _, err := cl.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)}); err != nil {
		return fmt.Errorf("delete object %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (c *S3Client) DeleteObjects(ctx context.Context, p *models.ConnectionProfile, bucket string, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	cl, err := c.sdk(ctx, p)
	if err != nil {
		return nil, err
	}

	ids := make([]types.ObjectIdentifier, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, types.ObjectIdentifier{Key: aws.String(k)})
	}

	out, err := cl.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(bucket),
		Delete: &types.Delete{Objects: ids},
	})
	if err != nil {
		return nil, fmt.Errorf("delete objects in %s: %w", bucket, err)
	}

	failed := make([]string, 0, len(out.Errors))
	for _, e := range out.Errors {
		failed = append(failed, aws.ToString(e.Key))
	}
	return failed, nil
}

func (c *S3Client) CopyObject(ctx context.Context, p *models.ConnectionProfile, bucket, srcKey, dstKey string) error {
	cl, err := c.sdk(ctx, p)
	if err != nil {
		return err
	}
	return c.copyWith(ctx, cl, bucket, srcKey, dstKey)
}

func (c *S3Client) copyWith(ctx context.Context, cl *s3.Client, bucket, srcKey, dstKey string) error {
	_, err := cl.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(bucket),
		CopySource: aws.String(copySource(bucket, srcKey)),
		Key:        aws.String(dstKey),
	})
	if err != nil {
		return fmt.Errorf("copy object %s -> %s: %w", srcKey, dstKey, err)
	}
	return nil
}

// copySource builds the x-amz-copy-source value, escaping each key segment.
func copySource(bucket, key string) string {
	parts := strings.Split(key, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return bucket + "/" + strings.Join(parts, "/")
}

// MoveObject copies then deletes the source. A failed delete leaves both
// objects in place.
func (c *S3Client) MoveObject(ctx context.Context, p *models.ConnectionProfile, bucket, srcKey, dstKey string) error {
	cl, err := c.sdk(ctx, p)
	if err != nil {
		return err
	}
	if err := c.copyWith(ctx, cl, bucket, srcKey, dstKey); err != nil {
		return err
	}
	if _, err := cl.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucket), Key: aws.String(srcKey)}); err != nil {
		return fmt.Errorf("delete source %s after copy: %w", srcKey, err)
	}
	return nil
}

func (c *S3Client) RenameObject(ctx context.Context, p *models.ConnectionProfile, bucket, oldKey, newKey string) error {
	return c.MoveObject(ctx, p, bucket, oldKey, newKey)
}

func (c *S3Client) HeadObject(ctx context.Context, p *models.ConnectionProfile, bucket, key string) (*models.ObjectMetadata, error) {
	cl, err := c.sdk(ctx, p)
	if err != nil {
		return nil, err
	}

	out, err := cl.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return nil, fmt.Errorf("head object %s/%s: %w", bucket, key, err)
	}

	return &models.ObjectMetadata{
		Key:          key,
		LastModified: aws.ToTime(out.LastModified),
		Size:         aws.ToInt64(out.ContentLength),
		ETag:         aws.ToString(out.ETag),
		StorageClass: string(out.StorageClass),
		ContentType:  aws.ToString(out.ContentType),
		IsFolder:     strings.HasSuffix(key, "/"),
	}, nil
}

func guessContentType(path string) string {
	return mime.TypeByExtension(filepath.Ext(path))
}

func (c *S3Client) UploadFile(ctx context.Context, p *models.ConnectionProfile, bucket, key, localPath, contentType string) (string, error) {
	cl, err := c.sdk(ctx, p)
	if err != nil {
		return "", err
	}
	return c.put(ctx, cl, bucket, key, localPath, contentType)
}

func (c *S3Client) put(ctx context.Context, cl *s3.Client, bucket, key, localPath, contentType string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	if contentType == "" {
		contentType = guessContentType(localPath)
	}

	in := &s3.PutObjectInput{Bucket: aws.String(bucket), Key: aws.String(key), Body: f}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	out, err := cl.PutObject(ctx, in)
	if err != nil {
		return "", fmt.Errorf("put object %s/%s: %w", bucket, key, err)
	}
	if etag := aws.ToString(out.ETag); etag != "" {
		return etag, nil
	}
	return key, nil
}

// UploadFiles stops at the first failure and returns it; identifiers of the
// files uploaded before it are returned alongside.
func (c *S3Client) UploadFiles(ctx context.Context, p *models.ConnectionProfile, bucket string, files []models.FileTransfer) ([]string, error) {
	cl, err := c.sdk(ctx, p)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(files))
	for _, f := range files {
		id, err := c.put(ctx, cl, bucket, f.Key, f.LocalPath, "")
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *S3Client) UploadMultipart(ctx context.Context, p *models.ConnectionProfile, bucket, key, localPath string, partSizeMB int) (string, error) {
	if partSizeMB <= 0 {
		partSizeMB = 5
	}
	partSize := int64(partSizeMB) * common.MiB

	size, err := filex.FileSize(localPath)
	if err != nil {
		return "", err
	}

	cl, err := c.sdk(ctx, p)
	if err != nil {
		return "", err
	}

	if size < minMultipartSize {
		if _, err := c.put(ctx, cl, bucket, key, localPath, ""); err != nil {
			return "", err
		}
		return key, nil
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	created, err := cl.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("create multipart upload %s/%s: %w", bucket, key, err)
	}
	uploadID := aws.ToString(created.UploadId)
	if uploadID == "" {
		return "", ErrNoUploadID
	}

	var parts []types.CompletedPart
	buf := make([]byte, partSize)
	for partNumber := int32(1); ; partNumber++ {
		n, rerr := io.ReadFull(f, buf)
		if n == 0 {
			break
		}
		if rerr != nil && !errors.Is(rerr, io.ErrUnexpectedEOF) {
			return "", &MultipartError{UploadID: uploadID, Part: partNumber, Err: rerr}
		}

		out, err := cl.UploadPart(ctx, &s3.UploadPartInput{
			Bucket:     aws.String(bucket),
			Key:        aws.String(key),
			UploadId:   aws.String(uploadID),
			PartNumber: aws.Int32(partNumber),
			Body:       bytes.NewReader(buf[:n]),
		})
		if err != nil {
			return "", &MultipartError{UploadID: uploadID, Part: partNumber, Err: err}
		}
		parts = append(parts, types.CompletedPart{ETag: out.ETag, PartNumber: aws.Int32(partNumber)})

		if int64(n) < partSize {
			break
		}
	}

	_, err = cl.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: parts},
	})
	if err != nil {
		return "", &MultipartError{UploadID: uploadID, Err: err}
	}
	return key, nil
}

func (c *S3Client) AbortMultipartUpload(ctx context.Context, p *models.ConnectionProfile, bucket, key, uploadID string) error {
	cl, err := c.sdk(ctx, p)
	if err != nil {
		return err
	}
	_, err = cl.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		return fmt.Errorf("abort multipart upload %s: %w", uploadID, err)
	}
	return nil
}

func (c *S3Client) getObject(ctx context.Context, cl *s3.Client, bucket, key string) (io.ReadCloser, error) {
	out, err := cl.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}
	return out.Body, nil
}

func (c *S3Client) download(ctx context.Context, cl *s3.Client, bucket, key, localPath string) (string, error) {
	body, err := c.getObject(ctx, cl, bucket, key)
	if err != nil {
		return "", err
	}
	defer body.Close()

	if err := writeLocal(localPath, body); err != nil {
		return "", err
	}
	return localPath, nil
}

// writeLocal streams r into path, creating parent directories.
func writeLocal(path string, r io.Reader) error {
	if err := filex.EnsureParentDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func (c *S3Client) DownloadFile(ctx context.Context, p *models.ConnectionProfile, bucket, key, localPath string) (string, error) {
	cl, err := c.sdk(ctx, p)
	if err != nil {
		return "", err
	}
	return c.download(ctx, cl, bucket, key, localPath)
}

func (c *S3Client) DownloadFiles(ctx context.Context, p *models.ConnectionProfile, bucket string, files []models.FileTransfer) ([]string, error) {
	cl, err := c.sdk(ctx, p)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path, err := c.download(ctx, cl, bucket, f.Key, f.LocalPath)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (c *S3Client) readAll(ctx context.Context, p *models.ConnectionProfile, bucket, key string) ([]byte, error) {
	cl, err := c.sdk(ctx, p)
	if err != nil {
		return nil, err
	}
	body, err := c.getObject(ctx, cl, bucket, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read object %s/%s: %w", bucket, key, err)
	}
	return data, nil
}

func (c *S3Client) GetFileContent(ctx context.Context, p *models.ConnectionProfile, bucket, key string) (string, error) {
	data, err := c.readAll(ctx, p, bucket, key)
	if err != nil {
		return "", err
	}
	return textContent(data)
}

func (c *S3Client) GetFileBytes(ctx context.Context, p *models.ConnectionProfile, bucket, key string) (string, error) {
	data, err := c.readAll(ctx, p, bucket, key)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func textContent(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", ErrNotText
	}
	return string(data), nil
}
