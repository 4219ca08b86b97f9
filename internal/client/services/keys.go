package services

import (
	"strings"

	"github.com/dmitrijs2005/s3keeper/internal/client/cache"
	"github.com/dmitrijs2005/s3keeper/internal/client/models"
)

const (
	nsListBuckets    = "list-buckets"
	nsListObjects    = "list-objects"
	nsHeadBucket     = "head-bucket"
	nsObjectMetadata = "object-metadata"
	nsObjectContent  = "object-content"
	nsObjectBytes    = "object-bytes"
)

// bucketNamespaces are the namespaces whose keys start with "<ns>:<bucket>".
var bucketNamespaces = []string{nsListObjects, nsHeadBucket, nsObjectMetadata, nsObjectContent, nsObjectBytes}

func listBucketsKey(profileID string) cache.Key[[]models.BucketInfo] {
	return cache.Key[[]models.BucketInfo](cache.JoinKey(nsListBuckets, profileID))
}

func listObjectsKey(bucket, prefix string) cache.Key[*models.ListObjectsResult] {
	return cache.Key[*models.ListObjectsResult](cache.JoinKey(nsListObjects, bucket, prefix))
}

func headBucketKey(bucket string) cache.Key[bool] {
	return cache.Key[bool](cache.JoinKey(nsHeadBucket, bucket))
}

func objectMetadataKey(bucket, key string) cache.Key[models.ObjectMetadata] {
	return cache.Key[models.ObjectMetadata](cache.JoinKey(nsObjectMetadata, bucket, key))
}

func objectContentKey(bucket, key string) cache.Key[string] {
	return cache.Key[string](cache.JoinKey(nsObjectContent, bucket, key))
}

func objectBytesKey(bucket, key string) cache.Key[string] {
	return cache.Key[string](cache.JoinKey(nsObjectBytes, bucket, key))
}

// dirPrefix returns key up to and including its last "/", or "".
func dirPrefix(key string) string {
	i := strings.LastIndex(key, "/")
	if i < 0 {
		return ""
	}
	return key[:i+1]
}

// ancestorPrefixes lists every directory prefix of key, shortest first:
// "a/b/c.txt" -> ["a/", "a/b/"].
func ancestorPrefixes(key string) []string {
	var out []string
	for i, r := range key {
		if r == '/' {
			out = append(out, key[:i+1])
		}
	}
	return out
}
