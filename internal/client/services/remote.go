package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/s3keeper/internal/client/cache"
	"github.com/dmitrijs2005/s3keeper/internal/client/client"
	"github.com/dmitrijs2005/s3keeper/internal/client/models"
	"github.com/dmitrijs2005/s3keeper/internal/logging"
)

// CacheTTLs are the lifetimes of cached read results per operation.
type CacheTTLs struct {
	ListObjects time.Duration
	ListBuckets time.Duration
	Metadata    time.Duration // HeadObject and HeadBucket
	Content     time.Duration // GetFileContent and GetFileBytes
}

func DefaultCacheTTLs() CacheTTLs {
	return CacheTTLs{
		ListObjects: 2 * time.Minute,
		ListBuckets: 5 * time.Minute,
		Metadata:    2 * time.Minute,
		Content:     time.Minute,
	}
}

// RemoteService is the single entry point to remote storage.
//
// Reads consult the cache when useCache is true; useCache false skips the
// lookup but still refreshes the entry. Paginated listings (a continuation
// token) never touch the cache. Mutations drop the affected entries only
// after the backend reports success. Backend errors are returned unchanged
// and never cached.
type RemoteService interface {
	ListBuckets(ctx context.Context, p *models.ConnectionProfile, useCache bool) ([]models.BucketInfo, error)
	CreateBucket(ctx context.Context, p *models.ConnectionProfile, name, region string) error
	DeleteBucket(ctx context.Context, p *models.ConnectionProfile, name string) error
	HeadBucket(ctx context.Context, p *models.ConnectionProfile, name string, useCache bool) (bool, error)

	ListObjects(ctx context.Context, p *models.ConnectionProfile, in models.ListObjectsInput, useCache bool) (*models.ListObjectsResult, error)
	HeadObject(ctx context.Context, p *models.ConnectionProfile, bucket, key string, useCache bool) (*models.ObjectMetadata, error)
	GetFileContent(ctx context.Context, p *models.ConnectionProfile, bucket, key string, useCache bool) (string, error)
	GetFileBytes(ctx context.Context, p *models.ConnectionProfile, bucket, key string, useCache bool) (string, error)

	DeleteObject(ctx context.Context, p *models.ConnectionProfile, bucket, key string) error
	DeleteObjects(ctx context.Context, p *models.ConnectionProfile, bucket string, keys []string) ([]string, error)
	CopyObject(ctx context.Context, p *models.ConnectionProfile, bucket, srcKey, dstKey string) error
	MoveObject(ctx context.Context, p *models.ConnectionProfile, bucket, srcKey, dstKey string) error
	RenameObject(ctx context.Context, p *models.ConnectionProfile, bucket, oldKey, newKey string) error

	UploadFile(ctx context.Context, p *models.ConnectionProfile, bucket, key, localPath, contentType string) (string, error)
	UploadFiles(ctx context.Context, p *models.ConnectionProfile, bucket string, files []models.FileTransfer) ([]string, error)
	UploadMultipart(ctx context.Context, p *models.ConnectionProfile, bucket, key, localPath string, partSizeMB int) (string, error)
	AbortMultipartUpload(ctx context.Context, p *models.ConnectionProfile, bucket, key, uploadID string) error

	DownloadFile(ctx context.Context, p *models.ConnectionProfile, bucket, key, localPath string) (string, error)
	DownloadFiles(ctx context.Context, p *models.ConnectionProfile, bucket string, files []models.FileTransfer) ([]string, error)

	// Reset drops every cached entry, e.g. after switching profiles.
	Reset()
	// Prune drops expired entries and returns how many were removed.
	Prune() int
}

type remoteService struct {
	backend client.Backend
	cache   *cache.Cache
	ttl     CacheTTLs
	log     logging.Logger
}

func NewRemoteService(backend client.Backend, c *cache.Cache, ttl CacheTTLs, log logging.Logger) RemoteService {
	return &remoteService{backend: backend, cache: c, ttl: ttl, log: log}
}

// failed logs a backend error and returns it unchanged.
func (s *remoteService) failed(ctx context.Context, op string, err error) error {
	s.log.Error(ctx, "storage call failed", "op", op, "err", err)
	return err
}

func requireProfile(p *models.ConnectionProfile) error {
	if p == nil {
		return ErrNoActiveProfile
	}
	return nil
}

func requireBucket(p *models.ConnectionProfile, bucket string) error {
	if err := requireProfile(p); err != nil {
		return err
	}
	if bucket == "" {
		return ErrNoBucket
	}
	return nil
}

func requireObject(p *models.ConnectionProfile, bucket string, keys ...string) error {
	if err := requireBucket(p, bucket); err != nil {
		return err
	}
	for _, k := range keys {
		if k == "" {
			return emptyField("key")
		}
	}
	return nil
}

// cached runs fetch unless a live entry exists (and useCache is set), and
// stores a successful result. clone isolates callers from the stored value.
func cached[V any](ctx context.Context, s *remoteService, key cache.Key[V], ttl time.Duration, useCache bool, clone func(V) V, fetch func() (V, error)) (V, error) {
	if useCache {
		if v, ok := cache.Load(s.cache, key); ok {
			s.log.Debug(ctx, "cache hit", "key", key.String())
			return clone(v), nil
		}
	}

	v, err := fetch()
	if err != nil {
		var zero V
		return zero, s.failed(ctx, key.String(), err)
	}
	cache.Store(s.cache, key, clone(v), ttl)
	return v, nil
}

func same[V any](v V) V { return v }

func cloneBuckets(b []models.BucketInfo) []models.BucketInfo {
	if b == nil {
		return nil
	}
	return append([]models.BucketInfo(nil), b...)
}

func (s *remoteService) ListBuckets(ctx context.Context, p *models.ConnectionProfile, useCache bool) ([]models.BucketInfo, error) {
	if err := requireProfile(p); err != nil {
		return nil, err
	}
	return cached(ctx, s, listBucketsKey(p.ID), s.ttl.ListBuckets, useCache, cloneBuckets, func() ([]models.BucketInfo, error) {
		return s.backend.ListBuckets(ctx, p)
	})
}

func (s *remoteService) HeadBucket(ctx context.Context, p *models.ConnectionProfile, name string, useCache bool) (bool, error) {
	if err := requireBucket(p, name); err != nil {
		return false, err
	}
	return cached(ctx, s, headBucketKey(name), s.ttl.Metadata, useCache, same[bool], func() (bool, error) {
		return s.backend.HeadBucket(ctx, p, name)
	})
}

func (s *remoteService) ListObjects(ctx context.Context, p *models.ConnectionProfile, in models.ListObjectsInput, useCache bool) (*models.ListObjectsResult, error) {
	if err := requireBucket(p, in.Bucket); err != nil {
		return nil, err
	}
	if in.ContinuationToken != "" {
		return s.backend.ListObjects(ctx, p, in)
	}

	clone := func(r *models.ListObjectsResult) *models.ListObjectsResult { return r.Clone() }
	return cached(ctx, s, listObjectsKey(in.Bucket, in.Prefix), s.ttl.ListObjects, useCache, clone, func() (*models.ListObjectsResult, error) {
		return s.backend.ListObjects(ctx, p, in)
	})
}

func (s *remoteService) HeadObject(ctx context.Context, p *models.ConnectionProfile, bucket, key string, useCache bool) (*models.ObjectMetadata, error) {
	if err := requireObject(p, bucket, key); err != nil {
		return nil, err
	}
	meta, err := cached(ctx, s, objectMetadataKey(bucket, key), s.ttl.Metadata, useCache, same[models.ObjectMetadata], func() (models.ObjectMetadata, error) {
		m, err := s.backend.HeadObject(ctx, p, bucket, key)
		if err != nil {
			return models.ObjectMetadata{}, err
		}
		return *m, nil
	})
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *remoteService) GetFileContent(ctx context.Context, p *models.ConnectionProfile, bucket, key string, useCache bool) (string, error) {
	if err := requireObject(p, bucket, key); err != nil {
		return "", err
	}
	return cached(ctx, s, objectContentKey(bucket, key), s.ttl.Content, useCache, same[string], func() (string, error) {
		return s.backend.GetFileContent(ctx, p, bucket, key)
	})
}

func (s *remoteService) GetFileBytes(ctx context.Context, p *models.ConnectionProfile, bucket, key string, useCache bool) (string, error) {
	if err := requireObject(p, bucket, key); err != nil {
		return "", err
	}
	return cached(ctx, s, objectBytesKey(bucket, key), s.ttl.Content, useCache, same[string], func() (string, error) {
		return s.backend.GetFileBytes(ctx, p, bucket, key)
	})
}

// invalidateObject drops the listings that may show key (bucket root and
// every ancestor directory) and the cached reads of key itself.
func (s *remoteService) invalidateObject(bucket, key string) {
	s.cache.Delete(listObjectsKey(bucket, "").String())
	for _, prefix := range ancestorPrefixes(key) {
		s.cache.Delete(listObjectsKey(bucket, prefix).String())
	}
	s.cache.Delete(objectMetadataKey(bucket, key).String())
	s.cache.Delete(objectContentKey(bucket, key).String())
	s.cache.Delete(objectBytesKey(bucket, key).String())
}

func (s *remoteService) CreateBucket(ctx context.Context, p *models.ConnectionProfile, name, region string) error {
	if err := requireProfile(p); err != nil {
		return err
	}
	if name == "" {
		return emptyField("bucket name")
	}
	if err := s.backend.CreateBucket(ctx, p, name, region); err != nil {
		return s.failed(ctx, "CreateBucket", err)
	}
	s.cache.Delete(listBucketsKey(p.ID).String())
	s.cache.Delete(headBucketKey(name).String())
	return nil
}

func (s *remoteService) DeleteBucket(ctx context.Context, p *models.ConnectionProfile, name string) error {
	if err := requireProfile(p); err != nil {
		return err
	}
	if name == "" {
		return emptyField("bucket name")
	}
	if err := s.backend.DeleteBucket(ctx, p, name); err != nil {
		return s.failed(ctx, "DeleteBucket", err)
	}

	s.cache.Delete(listBucketsKey(p.ID).String())
	dropped := 0
	for _, ns := range bucketNamespaces {
		root := cache.JoinKey(ns, name)
		if s.cache.Has(root) {
			dropped++
		}
		s.cache.Delete(root)
		dropped += s.cache.ClearByPrefix(root + ":")
	}
	s.log.Debug(ctx, "bucket deleted, cache entries dropped", "bucket", name, "entries", dropped)
	return nil
}

func (s *remoteService) DeleteObject(ctx context.Context, p *models.ConnectionProfile, bucket, key string) error {
	if err := requireObject(p, bucket, key); err != nil {
		return err
	}
	if err := s.backend.DeleteObject(ctx, p, bucket, key); err != nil {
		return s.failed(ctx, "DeleteObject", err)
	}
	s.invalidateObject(bucket, key)
	return nil
}

func (s *remoteService) DeleteObjects(ctx context.Context, p *models.ConnectionProfile, bucket string, keys []string) ([]string, error) {
	if err := requireBucket(p, bucket); err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, emptyField("keys")
	}
	if err := requireObject(p, bucket, keys...); err != nil {
		return nil, err
	}

	failed, err := s.backend.DeleteObjects(ctx, p, bucket, keys)
	if err != nil {
		return nil, s.failed(ctx, "DeleteObjects", err)
	}
	for _, k := range keys {
		s.invalidateObject(bucket, k)
	}
	return failed, nil
}

func (s *remoteService) CopyObject(ctx context.Context, p *models.ConnectionProfile, bucket, srcKey, dstKey string) error {
	if err := requireObject(p, bucket, srcKey, dstKey); err != nil {
		return err
	}
	if err := s.backend.CopyObject(ctx, p, bucket, srcKey, dstKey); err != nil {
		return s.failed(ctx, "CopyObject", err)
	}
	s.invalidateObject(bucket, srcKey)
	s.invalidateObject(bucket, dstKey)
	return nil
}

func (s *remoteService) MoveObject(ctx context.Context, p *models.ConnectionProfile, bucket, srcKey, dstKey string) error {
	if err := requireObject(p, bucket, srcKey, dstKey); err != nil {
		return err
	}
	if err := s.backend.MoveObject(ctx, p, bucket, srcKey, dstKey); err != nil {
		return s.failed(ctx, "MoveObject", err)
	}
	s.invalidateObject(bucket, srcKey)
	s.invalidateObject(bucket, dstKey)
	return nil
}

func (s *remoteService) RenameObject(ctx context.Context, p *models.ConnectionProfile, bucket, oldKey, newKey string) error {
	if err := requireObject(p, bucket, oldKey, newKey); err != nil {
		return err
	}
	if err := s.backend.RenameObject(ctx, p, bucket, oldKey, newKey); err != nil {
		return s.failed(ctx, "RenameObject", err)
	}
	s.invalidateObject(bucket, oldKey)
	s.invalidateObject(bucket, newKey)
	return nil
}

func (s *remoteService) UploadFile(ctx context.Context, p *models.ConnectionProfile, bucket, key, localPath, contentType string) (string, error) {
	if err := requireObject(p, bucket, key); err != nil {
		return "", err
	}
	if localPath == "" {
		return "", emptyField("local path")
	}
	id, err := s.backend.UploadFile(ctx, p, bucket, key, localPath, contentType)
	if err != nil {
		return "", s.failed(ctx, "UploadFile", err)
	}
	s.invalidateObject(bucket, key)
	return id, nil
}

// UploadFiles invalidates the files the backend reports as uploaded, even
// when a later file fails.
func (s *remoteService) UploadFiles(ctx context.Context, p *models.ConnectionProfile, bucket string, files []models.FileTransfer) ([]string, error) {
	if err := requireBucket(p, bucket); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, emptyField("files")
	}
	for _, f := range files {
		if f.Key == "" || f.LocalPath == "" {
			return nil, emptyField("file transfer")
		}
	}

	ids, err := s.backend.UploadFiles(ctx, p, bucket, files)
	for i := 0; i < len(ids) && i < len(files); i++ {
		s.invalidateObject(bucket, files[i].Key)
	}
	if err != nil {
		return ids, s.failed(ctx, "UploadFiles", err)
	}
	return ids, nil
}

func (s *remoteService) UploadMultipart(ctx context.Context, p *models.ConnectionProfile, bucket, key, localPath string, partSizeMB int) (string, error) {
	if err := requireObject(p, bucket, key); err != nil {
		return "", err
	}
	if localPath == "" {
		return "", emptyField("local path")
	}
	id, err := s.backend.UploadMultipart(ctx, p, bucket, key, localPath, partSizeMB)
	if err != nil {
		return "", s.failed(ctx, "UploadMultipart", err)
	}
	s.invalidateObject(bucket, key)
	return id, nil
}

func (s *remoteService) AbortMultipartUpload(ctx context.Context, p *models.ConnectionProfile, bucket, key, uploadID string) error {
	if err := requireObject(p, bucket, key); err != nil {
		return err
	}
	if uploadID == "" {
		return emptyField("upload id")
	}
	return s.backend.AbortMultipartUpload(ctx, p, bucket, key, uploadID)
}

func (s *remoteService) DownloadFile(ctx context.Context, p *models.ConnectionProfile, bucket, key, localPath string) (string, error) {
	if err := requireObject(p, bucket, key); err != nil {
		return "", err
	}
	if localPath == "" {
		return "", emptyField("local path")
	}
	return s.backend.DownloadFile(ctx, p, bucket, key, localPath)
}

func (s *remoteService) DownloadFiles(ctx context.Context, p *models.ConnectionProfile, bucket string, files []models.FileTransfer) ([]string, error) {
	if err := requireBucket(p, bucket); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, emptyField("files")
	}
	return s.backend.DownloadFiles(ctx, p, bucket, files)
}

func (s *remoteService) Reset() {
	s.cache.Clear()
}

func (s *remoteService) Prune() int {
	return s.cache.Purge()
}
