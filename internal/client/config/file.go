package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/s3keeper/internal/flagx"
	"github.com/dmitrijs2005/s3keeper/internal/timex"
	"gopkg.in/yaml.v3"
)

// fileConfig is a DTO used exclusively for file unmarshalling. Durations
// use timex.Duration so a file can say "2m" or give integer nanoseconds.
type fileConfig struct {
	DatabasePath       string         `json:"database_path" yaml:"database_path"`
	Driver             string         `json:"driver" yaml:"driver"`
	ListObjectsTTL     timex.Duration `json:"list_objects_ttl" yaml:"list_objects_ttl"`
	ListBucketsTTL     timex.Duration `json:"list_buckets_ttl" yaml:"list_buckets_ttl"`
	MetadataTTL        timex.Duration `json:"metadata_ttl" yaml:"metadata_ttl"`
	ContentTTL         timex.Duration `json:"content_ttl" yaml:"content_ttl"`
	MultipartThreshold int64          `json:"multipart_threshold" yaml:"multipart_threshold"`
	PartSizeMB         int            `json:"part_size_mb" yaml:"part_size_mb"`
	ProgressInterval   timex.Duration `json:"progress_interval" yaml:"progress_interval"`
	RequirePassphrase  bool           `json:"require_passphrase" yaml:"require_passphrase"`
	LogBackend         string         `json:"log_backend" yaml:"log_backend"`
	LogLevel           string         `json:"log_level" yaml:"log_level"`
	MetricsAddr        string         `json:"metrics_addr" yaml:"metrics_addr"`
}

func toFile(c *Config) fileConfig {
	return fileConfig{
		DatabasePath:       c.DatabasePath,
		Driver:             c.Driver,
		ListObjectsTTL:     timex.Duration{Duration: c.ListObjectsTTL},
		ListBucketsTTL:     timex.Duration{Duration: c.ListBucketsTTL},
		MetadataTTL:        timex.Duration{Duration: c.MetadataTTL},
		ContentTTL:         timex.Duration{Duration: c.ContentTTL},
		MultipartThreshold: c.MultipartThreshold,
		PartSizeMB:         c.PartSizeMB,
		ProgressInterval:   timex.Duration{Duration: c.ProgressInterval},
		RequirePassphrase:  c.RequirePassphrase,
		LogBackend:         c.LogBackend,
		LogLevel:           c.LogLevel,
		MetricsAddr:        c.MetricsAddr,
	}
}

func (f fileConfig) apply(c *Config) {
	c.DatabasePath = f.DatabasePath
	c.Driver = f.Driver
	c.ListObjectsTTL = f.ListObjectsTTL.D()
	c.ListBucketsTTL = f.ListBucketsTTL.D()
	c.MetadataTTL = f.MetadataTTL.D()
	c.ContentTTL = f.ContentTTL.D()
	c.MultipartThreshold = f.MultipartThreshold
	c.PartSizeMB = f.PartSizeMB
	c.ProgressInterval = f.ProgressInterval.D()
	c.RequirePassphrase = f.RequirePassphrase
	c.LogBackend = f.LogBackend
	c.LogLevel = f.LogLevel
	c.MetricsAddr = f.MetricsAddr
}

// parseFile overlays cfg with the file named by -c or -config. Keys missing
// from the file keep their current values. Files ending in .yaml or .yml
// are read as YAML, anything else as JSON.
func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	fc := toFile(cfg)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}
