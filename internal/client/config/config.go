package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/s3keeper/internal/client/client"
	"github.com/dmitrijs2005/s3keeper/internal/common"
	"github.com/dmitrijs2005/s3keeper/internal/logging"
)

// Config holds runtime settings for the S3Keeper CLI.
//
// Units: TTLs and ProgressInterval are time.Duration, MultipartThreshold is
// in bytes, PartSizeMB in mebibytes.
type Config struct {
	DatabasePath string
	Driver       string

	ListObjectsTTL time.Duration
	ListBucketsTTL time.Duration
	MetadataTTL    time.Duration
	ContentTTL     time.Duration

	MultipartThreshold int64
	PartSizeMB         int
	ProgressInterval   time.Duration

	RequirePassphrase bool

	LogBackend string
	LogLevel   string

	// MetricsAddr enables the Prometheus endpoint when non-empty.
	MetricsAddr string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabasePath = defaultDatabasePath()
	c.Driver = client.DriverS3

	c.ListObjectsTTL = 2 * time.Minute
	c.ListBucketsTTL = 5 * time.Minute
	c.MetadataTTL = 2 * time.Minute
	c.ContentTTL = time.Minute

	c.MultipartThreshold = 5 * common.MiB
	c.PartSizeMB = 5
	c.ProgressInterval = 300 * time.Millisecond

	c.RequirePassphrase = false

	c.LogBackend = logging.BackendSlog
	c.LogLevel = "info"
	c.MetricsAddr = ""
}

func defaultDatabasePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "s3keeper.db"
	}
	return filepath.Join(dir, "s3keeper", "s3keeper.db")
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// a config file (if -c/-config is given) and command-line flags. Later
// sources take precedence over earlier ones. args excludes the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
