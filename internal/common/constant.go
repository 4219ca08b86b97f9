// Package common contains shared constants and sentinel errors used across
// S3Keeper components.
package common

// MiB is one mebibyte in bytes.
const MiB = 1024 * 1024

// DefaultRegion is used when a connection profile leaves the region empty.
// S3-compatible servers (MinIO, Ceph RGW) accept it as well.
const DefaultRegion = "us-east-1"
