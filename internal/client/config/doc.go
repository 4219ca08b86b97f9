// Package config loads runtime configuration for the S3Keeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected with -c or -config. JSON by default,
//     YAML when the name ends in .yaml or .yml.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # File schema
//
// Durations accept strings like "2m" or integer nanoseconds:
//
//	{
//	  "database_path": "/home/me/.config/s3keeper/s3keeper.db",
//	  "driver": "minio",
//	  "list_objects_ttl": "2m",
//	  "content_ttl": "30s",
//	  "multipart_threshold": 5242880,
//	  "part_size_mb": 8,
//	  "require_passphrase": true,
//	  "log_backend": "zerolog",
//	  "log_level": "debug",
//	  "metrics_addr": "127.0.0.1:9464"
//	}
//
// This package does not read environment variables; the storage drivers
// pick up the usual AWS ones through the SDK.
package config
