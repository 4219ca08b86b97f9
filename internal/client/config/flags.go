package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/s3keeper/internal/flagx"
)

var knownFlags = []string{"-d", "-driver", "-l", "-lb", "-m", "-mt", "-ps", "-strict"}

// parseFlags populates Config fields from command-line flags.
//
//	-d string       path of the local state database
//	-driver string  storage driver: s3 or minio
//	-l string       log level
//	-lb string      log backend: slog or zerolog
//	-m string       address to serve /metrics on
//	-mt int         multipart threshold in bytes
//	-ps int         multipart part size in MiB
//	-strict         refuse to generate a master passphrase
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("s3keeper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path of the local state database")
	fs.StringVar(&cfg.Driver, "driver", cfg.Driver, "storage driver (s3, minio)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogBackend, "lb", cfg.LogBackend, "log backend (slog, zerolog)")
	fs.StringVar(&cfg.MetricsAddr, "m", cfg.MetricsAddr, "address to serve /metrics on")
	fs.Int64Var(&cfg.MultipartThreshold, "mt", cfg.MultipartThreshold, "multipart threshold in bytes")
	fs.IntVar(&cfg.PartSizeMB, "ps", cfg.PartSizeMB, "multipart part size in MiB")
	fs.BoolVar(&cfg.RequirePassphrase, "strict", cfg.RequirePassphrase, "refuse to generate a master passphrase")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
