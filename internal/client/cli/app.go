package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/s3keeper/internal/client/cache"
	"github.com/dmitrijs2005/s3keeper/internal/client/client"
	"github.com/dmitrijs2005/s3keeper/internal/client/config"
	"github.com/dmitrijs2005/s3keeper/internal/client/models"
	"github.com/dmitrijs2005/s3keeper/internal/client/repositories/profiles"
	"github.com/dmitrijs2005/s3keeper/internal/client/services"
	"github.com/dmitrijs2005/s3keeper/internal/cryptox"
	"github.com/dmitrijs2005/s3keeper/internal/logging"
	"github.com/dmitrijs2005/s3keeper/internal/obs/metrics"
)

const cacheSweepInterval = time.Minute

type App struct {
	config     *config.Config
	log        logging.Logger
	db         *sql.DB
	profiles   services.ProfileService
	passphrase services.PassphraseService
	remote     services.RemoteService
	uploads    services.UploadService

	// session state, secrets are resolved per command and never kept here
	activeID   string
	activeName string
	bucket     string
	prefix     string

	reader *bufio.Reader
	out    io.Writer
}

// NewApp opens the local state, builds the storage driver and the services
// on top of it. m may be nil, in which case nothing is instrumented.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger, m *metrics.Metrics) (*App, error) {
	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	backend, err := client.NewBackend(c.Driver)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	var cacheOpts []cache.Option
	uploadOpts := []services.UploadOption{
		services.WithMultipartThreshold(c.MultipartThreshold),
		services.WithPartSizeMB(c.PartSizeMB),
		services.WithProgressInterval(c.ProgressInterval),
	}
	if m != nil {
		backend = client.Instrumented(backend, m.Backend)
		cacheOpts = append(cacheOpts, cache.WithObserver(m.Cache))
		uploadOpts = append(uploadOpts, services.WithUploadObserver(m.Upload))
	}

	a := &App{
		config: c,
		log:    log,
		db:     db,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}

	repo := profiles.NewSQLiteRepository(db)
	a.passphrase = services.NewPassphraseService(repo, c.RequirePassphrase, log)
	a.profiles = services.NewProfileService(repo, a.passphrase, cryptox.NewAESGCM(), log)

	ttl := services.CacheTTLs{
		ListObjects: c.ListObjectsTTL,
		ListBuckets: c.ListBucketsTTL,
		Metadata:    c.MetadataTTL,
		Content:     c.ContentTTL,
	}
	store := cache.New(cacheOpts...)
	if m != nil {
		m.Cache.TrackEntries(store.Len)
	}
	a.remote = services.NewRemoteService(backend, store, ttl, log)

	uploadOpts = append(uploadOpts, services.WithProgressHandler(a.reportProgress))
	a.uploads = services.NewUploadService(a.remote, log, uploadOpts...)

	return a, nil
}

// Run restores the active profile and blocks in the REPL until the user
// exits or stdin is closed.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	fmt.Fprintln(a.out, "Welcome to S3Keeper CLI (type 'help' for commands)")
	if err := a.activate(ctx); err != nil {
		a.log.Error(ctx, "failed to restore active profile", "err", err)
	}

	sweepCtx, stop := context.WithCancel(ctx)
	defer stop()
	go a.sweep(sweepCtx, cacheSweepInterval)

	runREPL(ctx, a, a.status, bufio.NewScanner(a.reader))
}

// sweep drops expired cache entries every interval until ctx is done.
func (a *App) sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.remote.Prune(); n > 0 {
				a.log.Debug(ctx, "expired cache entries dropped", "count", n)
			}
		}
	}
}

func (a *App) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *App) status() string {
	if a.activeID == "" {
		return "(no profile) "
	}
	s := a.activeName
	if a.bucket != "" {
		s += " " + a.bucket + "/" + a.prefix
	}
	return "(" + s + ") "
}

// activate loads the active profile and resets everything derived from the
// previous one.
func (a *App) activate(ctx context.Context) error {
	a.remote.Reset()
	a.activeID, a.activeName, a.bucket, a.prefix = "", "", "", ""

	p, err := a.resolve(ctx)
	if err != nil || p == nil {
		return err
	}
	a.activeID, a.activeName = p.ID, p.Name
	a.bucket = p.Bucket
	return nil
}

func (a *App) resolve(ctx context.Context) (*models.ConnectionProfile, error) {
	p, err := a.profiles.ResolveActive(ctx)
	if err != nil || p == nil {
		return nil, err
	}
	if p.Encrypted {
		fmt.Fprintf(a.out, "Warning: secrets of profile %q cannot be decrypted with the current passphrase\n", p.Name)
	}
	return p, nil
}

// profile returns the decrypted active profile for a single remote call.
func (a *App) profile(ctx context.Context) (*models.ConnectionProfile, error) {
	p, err := a.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, services.ErrNoActiveProfile
	}
	return p, nil
}

func (a *App) reportProgress(t models.UploadTask) {
	switch t.State {
	case models.UploadDone:
		fmt.Fprintf(a.out, "  %s: done (%s)\n", t.Name, t.Strategy)
	case models.UploadError:
		fmt.Fprintf(a.out, "  %s: failed at ~%.0f%%: %s\n", t.Name, t.Progress, t.Err)
	case models.UploadUploading:
		fmt.Fprintf(a.out, "  %s: %.0f%%\n", t.Name, t.Progress)
	}
}
