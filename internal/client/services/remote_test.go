package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/s3keeper/internal/client/cache"
	"github.com/dmitrijs2005/s3keeper/internal/client/client"
	"github.com/dmitrijs2005/s3keeper/internal/client/models"
	"github.com/dmitrijs2005/s3keeper/internal/logging"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend failure")

// fakeBackend counts calls and serves canned results. Methods not
// overridden panic through the embedded nil interface.
type fakeBackend struct {
	client.Backend

	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error

	buckets []models.BucketInfo
	listing *models.ListObjectsResult
	meta    *models.ObjectMetadata
	content string
	upload  []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		calls:   map[string]int{},
		fail:    map[string]error{},
		buckets: []models.BucketInfo{{Name: "b"}},
		listing: &models.ListObjectsResult{
			Objects: []models.ObjectMetadata{{Key: "photos/img.png", Size: 10}},
		},
		meta:    &models.ObjectMetadata{Key: "photos/img.png", Size: 10},
		content: "hello",
	}
}

func (f *fakeBackend) hit(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.fail[op]
}

func (f *fakeBackend) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeBackend) setFail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = err
}

func (f *fakeBackend) ListBuckets(context.Context, *models.ConnectionProfile) ([]models.BucketInfo, error) {
	if err := f.hit("ListBuckets"); err != nil {
		return nil, err
	}
	return append([]models.BucketInfo(nil), f.buckets...), nil
}

func (f *fakeBackend) CreateBucket(context.Context, *models.ConnectionProfile, string, string) error {
	return f.hit("CreateBucket")
}

func (f *fakeBackend) DeleteBucket(context.Context, *models.ConnectionProfile, string) error {
	return f.hit("DeleteBucket")
}

func (f *fakeBackend) HeadBucket(context.Context, *models.ConnectionProfile, string) (bool, error) {
	if err := f.hit("HeadBucket"); err != nil {
		return false, err
	}
	return true, nil
}

func (f *fakeBackend) ListObjects(_ context.Context, _ *models.ConnectionProfile, _ models.ListObjectsInput) (*models.ListObjectsResult, error) {
	if err := f.hit("ListObjects"); err != nil {
		return nil, err
	}
	return f.listing.Clone(), nil
}

func (f *fakeBackend) HeadObject(context.Context, *models.ConnectionProfile, string, string) (*models.ObjectMetadata, error) {
	if err := f.hit("HeadObject"); err != nil {
		return nil, err
	}
	m := *f.meta
	return &m, nil
}

func (f *fakeBackend) GetFileContent(context.Context, *models.ConnectionProfile, string, string) (string, error) {
	if err := f.hit("GetFileContent"); err != nil {
		return "", err
	}
	return f.content, nil
}

func (f *fakeBackend) GetFileBytes(context.Context, *models.ConnectionProfile, string, string) (string, error) {
	if err := f.hit("GetFileBytes"); err != nil {
		return "", err
	}
	return "aGVsbG8=", nil
}

func (f *fakeBackend) DeleteObject(context.Context, *models.ConnectionProfile, string, string) error {
	return f.hit("DeleteObject")
}

func (f *fakeBackend) DeleteObjects(context.Context, *models.ConnectionProfile, string, []string) ([]string, error) {
	return nil, f.hit("DeleteObjects")
}

func (f *fakeBackend) CopyObject(context.Context, *models.ConnectionProfile, string, string, string) error {
	return f.hit("CopyObject")
}

func (f *fakeBackend) MoveObject(context.Context, *models.ConnectionProfile, string, string, string) error {
	return f.hit("MoveObject")
}

func (f *fakeBackend) RenameObject(context.Context, *models.ConnectionProfile, string, string, string) error {
	return f.hit("RenameObject")
}

func (f *fakeBackend) UploadFile(_ context.Context, _ *models.ConnectionProfile, _, key, _, _ string) (string, error) {
	if err := f.hit("UploadFile"); err != nil {
		return "", err
	}
	return key, nil
}

func (f *fakeBackend) UploadFiles(context.Context, *models.ConnectionProfile, string, []models.FileTransfer) ([]string, error) {
	err := f.hit("UploadFiles")
	return f.upload, err
}

func (f *fakeBackend) UploadMultipart(_ context.Context, _ *models.ConnectionProfile, _, key, _ string, _ int) (string, error) {
	if err := f.hit("UploadMultipart"); err != nil {
		return "", err
	}
	return key, nil
}

func (f *fakeBackend) AbortMultipartUpload(context.Context, *models.ConnectionProfile, string, string, string) error {
	return f.hit("AbortMultipartUpload")
}

func (f *fakeBackend) DownloadFile(_ context.Context, _ *models.ConnectionProfile, _, _, localPath string) (string, error) {
	if err := f.hit("DownloadFile"); err != nil {
		return "", err
	}
	return localPath, nil
}

var testProfile = &models.ConnectionProfile{ID: "p1", Name: "test", AccessKeyID: "a", SecretAccessKey: "s"}

func newRemote(t *testing.T) (RemoteService, *fakeBackend, *cache.Cache) {
	t.Helper()
	fb := newFakeBackend()
	c := cache.New()
	return NewRemoteService(fb, c, DefaultCacheTTLs(), logging.Nop()), fb, c
}

func TestRemote_ListObjectsCached(t *testing.T) {
	svc, fb, _ := newRemote(t)
	ctx := context.Background()
	in := models.ListObjectsInput{Bucket: "b", Prefix: "photos/"}

	first, err := svc.ListObjects(ctx, testProfile, in, true)
	require.NoError(t, err)
	second, err := svc.ListObjects(ctx, testProfile, in, true)
	require.NoError(t, err)

	assert.Equal(t, 1, fb.count("ListObjects"))
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("cached listing mismatch (-first +second):\n%s", diff)
	}

	// callers cannot corrupt the cached copy
	second.Objects[0].Key = "mutated"
	third, err := svc.ListObjects(ctx, testProfile, in, true)
	require.NoError(t, err)
	assert.Equal(t, "photos/img.png", third.Objects[0].Key)
}

func TestRemote_UseCacheFalseRefreshes(t *testing.T) {
	svc, fb, _ := newRemote(t)
	ctx := context.Background()
	in := models.ListObjectsInput{Bucket: "b"}

	_, err := svc.ListObjects(ctx, testProfile, in, true)
	require.NoError(t, err)

	fb.listing = &models.ListObjectsResult{Objects: []models.ObjectMetadata{{Key: "new.txt"}}}
	got, err := svc.ListObjects(ctx, testProfile, in, false)
	require.NoError(t, err)
	assert.Equal(t, "new.txt", got.Objects[0].Key)

	got, err = svc.ListObjects(ctx, testProfile, in, true)
	require.NoError(t, err)
	assert.Equal(t, "new.txt", got.Objects[0].Key)
	assert.Equal(t, 2, fb.count("ListObjects"))
}

func TestRemote_ContinuationTokenBypassesCache(t *testing.T) {
	svc, fb, c := newRemote(t)
	ctx := context.Background()
	in := models.ListObjectsInput{Bucket: "b", ContinuationToken: "next"}

	_, err := svc.ListObjects(ctx, testProfile, in, true)
	require.NoError(t, err)
	_, err = svc.ListObjects(ctx, testProfile, in, true)
	require.NoError(t, err)

	assert.Equal(t, 2, fb.count("ListObjects"))
	assert.Equal(t, 0, c.Len())
}

func TestRemote_FailedReadNotCached(t *testing.T) {
	svc, fb, c := newRemote(t)
	ctx := context.Background()
	fb.setFail("ListBuckets", errBackend)

	_, err := svc.ListBuckets(ctx, testProfile, true)
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, 0, c.Len())

	fb.setFail("ListBuckets", nil)
	got, err := svc.ListBuckets(ctx, testProfile, true)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 2, fb.count("ListBuckets"))
}

func TestRemote_CachedReads(t *testing.T) {
	svc, fb, _ := newRemote(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.ListBuckets(ctx, testProfile, true)
		require.NoError(t, err)
		ok, err := svc.HeadBucket(ctx, testProfile, "b", true)
		require.NoError(t, err)
		assert.True(t, ok)
		meta, err := svc.HeadObject(ctx, testProfile, "b", "photos/img.png", true)
		require.NoError(t, err)
		assert.Equal(t, int64(10), meta.Size)
		text, err := svc.GetFileContent(ctx, testProfile, "b", "photos/img.png", true)
		require.NoError(t, err)
		assert.Equal(t, "hello", text)
		_, err = svc.GetFileBytes(ctx, testProfile, "b", "photos/img.png", true)
		require.NoError(t, err)
	}

	for _, op := range []string{"ListBuckets", "HeadBucket", "HeadObject", "GetFileContent", "GetFileBytes"} {
		assert.Equal(t, 1, fb.count(op), op)
	}
}

func TestRemote_DeleteObjectInvalidatesAncestors(t *testing.T) {
	svc, _, c := newRemote(t)
	ctx := context.Background()

	for _, prefix := range []string{"", "photos/", "other/"} {
		_, err := svc.ListObjects(ctx, testProfile, models.ListObjectsInput{Bucket: "b", Prefix: prefix}, true)
		require.NoError(t, err)
	}
	_, err := svc.HeadObject(ctx, testProfile, "b", "photos/img.png", true)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteObject(ctx, testProfile, "b", "photos/img.png"))

	assert.False(t, c.Has(listObjectsKey("b", "").String()))
	assert.False(t, c.Has(listObjectsKey("b", "photos/").String()))
	assert.False(t, c.Has(objectMetadataKey("b", "photos/img.png").String()))
	assert.True(t, c.Has(listObjectsKey("b", "other/").String()))
}

func TestRemote_RenameInvalidatesBothSides(t *testing.T) {
	svc, fb, c := newRemote(t)
	ctx := context.Background()

	for _, prefix := range []string{"", "a/", "c/"} {
		_, err := svc.ListObjects(ctx, testProfile, models.ListObjectsInput{Bucket: "demo", Prefix: prefix}, true)
		require.NoError(t, err)
	}
	_, err := svc.ListObjects(ctx, testProfile, models.ListObjectsInput{Bucket: "other"}, true)
	require.NoError(t, err)

	require.NoError(t, svc.RenameObject(ctx, testProfile, "demo", "a/b.txt", "c/b.txt"))
	assert.Equal(t, 1, fb.count("RenameObject"))

	for _, prefix := range []string{"", "a/", "c/"} {
		assert.False(t, c.Has(listObjectsKey("demo", prefix).String()), prefix)
	}
	assert.True(t, c.Has(listObjectsKey("other", "").String()))
}

func TestRemote_RenameThenRelist(t *testing.T) {
	svc, fb, _ := newRemote(t)
	ctx := context.Background()
	in := models.ListObjectsInput{Bucket: "demo", Prefix: "a/"}

	_, err := svc.ListObjects(ctx, testProfile, in, true)
	require.NoError(t, err)
	_, err = svc.ListObjects(ctx, testProfile, in, true)
	require.NoError(t, err)
	assert.Equal(t, 1, fb.count("ListObjects"), "second listing is served from cache")

	require.NoError(t, svc.RenameObject(ctx, testProfile, "demo", "a/b.txt", "a/c.txt"))

	_, err = svc.ListObjects(ctx, testProfile, in, true)
	require.NoError(t, err)
	assert.Equal(t, 2, fb.count("ListObjects"), "listing after rename goes to the backend")
}

func TestRemote_FailedMutationKeepsCache(t *testing.T) {
	svc, fb, c := newRemote(t)
	ctx := context.Background()

	_, err := svc.ListObjects(ctx, testProfile, models.ListObjectsInput{Bucket: "b"}, true)
	require.NoError(t, err)

	fb.setFail("DeleteObject", errBackend)
	err = svc.DeleteObject(ctx, testProfile, "b", "x.txt")
	assert.ErrorIs(t, err, errBackend)
	assert.True(t, c.Has(listObjectsKey("b", "").String()))
}

func TestRemote_DeleteBucketCascade(t *testing.T) {
	svc, _, c := newRemote(t)
	ctx := context.Background()

	_, err := svc.ListBuckets(ctx, testProfile, true)
	require.NoError(t, err)
	_, err = svc.HeadBucket(ctx, testProfile, "b", true)
	require.NoError(t, err)
	_, err = svc.ListObjects(ctx, testProfile, models.ListObjectsInput{Bucket: "b", Prefix: "photos/"}, true)
	require.NoError(t, err)
	_, err = svc.GetFileContent(ctx, testProfile, "b", "photos/img.png", true)
	require.NoError(t, err)
	_, err = svc.ListObjects(ctx, testProfile, models.ListObjectsInput{Bucket: "bb"}, true)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteBucket(ctx, testProfile, "b"))

	assert.False(t, c.Has(listBucketsKey("p1").String()))
	assert.False(t, c.Has(headBucketKey("b").String()))
	assert.False(t, c.Has(listObjectsKey("b", "photos/").String()))
	assert.False(t, c.Has(objectContentKey("b", "photos/img.png").String()))
	assert.True(t, c.Has(listObjectsKey("bb", "").String()))
}

func TestRemote_CreateBucketInvalidatesList(t *testing.T) {
	svc, fb, _ := newRemote(t)
	ctx := context.Background()

	_, err := svc.ListBuckets(ctx, testProfile, true)
	require.NoError(t, err)
	require.NoError(t, svc.CreateBucket(ctx, testProfile, "fresh", ""))
	_, err = svc.ListBuckets(ctx, testProfile, true)
	require.NoError(t, err)

	assert.Equal(t, 2, fb.count("ListBuckets"))
}

func TestRemote_UploadFilesPartialInvalidates(t *testing.T) {
	svc, fb, c := newRemote(t)
	ctx := context.Background()

	for _, prefix := range []string{"a/", "z/"} {
		_, err := svc.ListObjects(ctx, testProfile, models.ListObjectsInput{Bucket: "b", Prefix: prefix}, true)
		require.NoError(t, err)
	}

	fb.upload = []string{"a/1.txt"}
	fb.setFail("UploadFiles", errBackend)

	ids, err := svc.UploadFiles(ctx, testProfile, "b", []models.FileTransfer{
		{Key: "a/1.txt", LocalPath: "/tmp/1.txt"},
		{Key: "z/2.txt", LocalPath: "/tmp/2.txt"},
	})
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, []string{"a/1.txt"}, ids)
	assert.False(t, c.Has(listObjectsKey("b", "a/").String()))
	assert.True(t, c.Has(listObjectsKey("b", "z/").String()))
}

func TestRemote_Validation(t *testing.T) {
	svc, fb, _ := newRemote(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{name: "list buckets without profile", want: ErrNoActiveProfile, call: func() error {
			_, err := svc.ListBuckets(ctx, nil, true)
			return err
		}},
		{name: "list objects without bucket", want: ErrNoBucket, call: func() error {
			_, err := svc.ListObjects(ctx, testProfile, models.ListObjectsInput{}, true)
			return err
		}},
		{name: "delete with empty key", want: ErrEmptyInput, call: func() error {
			return svc.DeleteObject(ctx, testProfile, "b", "")
		}},
		{name: "rename with empty target", want: ErrEmptyInput, call: func() error {
			return svc.RenameObject(ctx, testProfile, "b", "a", "")
		}},
		{name: "create bucket without name", want: ErrEmptyInput, call: func() error {
			return svc.CreateBucket(ctx, testProfile, "", "")
		}},
		{name: "delete objects without keys", want: ErrEmptyInput, call: func() error {
			_, err := svc.DeleteObjects(ctx, testProfile, "b", nil)
			return err
		}},
		{name: "upload without path", want: ErrEmptyInput, call: func() error {
			_, err := svc.UploadFile(ctx, testProfile, "b", "k", "", "")
			return err
		}},
		{name: "abort without upload id", want: ErrEmptyInput, call: func() error {
			return svc.AbortMultipartUpload(ctx, testProfile, "b", "k", "")
		}},
		{name: "download without profile", want: ErrNoActiveProfile, call: func() error {
			_, err := svc.DownloadFile(ctx, nil, "b", "k", "/tmp/k")
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.Empty(t, fb.calls)
}

func TestRemote_TTLExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	fb := newFakeBackend()
	c := cache.New(cache.WithClock(func() time.Time { return now }))
	svc := NewRemoteService(fb, c, DefaultCacheTTLs(), logging.Nop())
	ctx := context.Background()

	_, err := svc.GetFileContent(ctx, testProfile, "b", "k", true)
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	_, err = svc.GetFileContent(ctx, testProfile, "b", "k", true)
	require.NoError(t, err)
	assert.Equal(t, 1, fb.count("GetFileContent"))

	now = now.Add(time.Minute)
	_, err = svc.GetFileContent(ctx, testProfile, "b", "k", true)
	require.NoError(t, err)
	assert.Equal(t, 2, fb.count("GetFileContent"))
}

func TestRemote_Reset(t *testing.T) {
	svc, _, c := newRemote(t)
	ctx := context.Background()

	_, err := svc.ListBuckets(ctx, testProfile, true)
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())

	svc.Reset()
	assert.Equal(t, 0, c.Len())
}

func TestRemote_Prune(t *testing.T) {
	fb := newFakeBackend()
	now := time.Now()
	c := cache.New(cache.WithClock(func() time.Time { return now }))
	svc := NewRemoteService(fb, c, DefaultCacheTTLs(), logging.Nop())
	ctx := context.Background()

	_, err := svc.ListBuckets(ctx, testProfile, true)
	require.NoError(t, err)
	_, err = svc.GetFileContent(ctx, testProfile, "b", "k", true)
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	assert.Equal(t, 0, svc.Prune())

	now = now.Add(DefaultCacheTTLs().Content + time.Second)
	assert.Equal(t, 1, svc.Prune(), "content expires before the bucket list")
	assert.Equal(t, 1, c.Len())
}

func TestKeysHelpers(t *testing.T) {
	assert.Equal(t, "list-objects:b:photos/", listObjectsKey("b", "photos/").String())
	assert.Equal(t, "list-objects:b", listObjectsKey("b", "").String())
	assert.Equal(t, "photos/", dirPrefix("photos/img.png"))
	assert.Equal(t, "", dirPrefix("img.png"))
	assert.Equal(t, []string{"a/", "a/b/"}, ancestorPrefixes("a/b/c.txt"))
	assert.Nil(t, ancestorPrefixes("c.txt"))
}
