// Package client contains the storage side of the S3Keeper client.
//
// # Overview
//
//  1. A driver-agnostic contract (Backend) covering buckets, objects,
//     uploads (direct and multipart), downloads and content retrieval.
//  2. Two drivers: S3Client on aws-sdk-go-v2 and MinioClient on minio-go.
//     Both build a fresh SDK client per call from the profile they are given;
//     neither keeps credentials around.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// SDK errors are returned wrapped with the failing operation, so callers can
// still match them with errors.As. Driver-level conditions use sentinels:
// ErrUnknownDriver, ErrNotText, ErrNoUploadID; a multipart upload that
// fails after creation returns *MultipartError.
package client
