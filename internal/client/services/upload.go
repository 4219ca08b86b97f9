package services

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"sync"
	"time"

	"github.com/dmitrijs2005/s3keeper/internal/client/models"
	"github.com/dmitrijs2005/s3keeper/internal/common"
	"github.com/dmitrijs2005/s3keeper/internal/filex"
	"github.com/dmitrijs2005/s3keeper/internal/logging"
	"github.com/google/uuid"
)

const (
	DefaultMultipartThreshold = 5 * common.MiB
	DefaultPartSizeMB         = 5
	DefaultProgressInterval   = 300 * time.Millisecond

	progressCap = 95.0
)

// UploadObserver is told about every task that reached a terminal state.
type UploadObserver interface {
	TaskFinished(strategy string, err error)
}

// UploadService queues local files and uploads them one by one, choosing
// a direct or multipart transfer per file.
//
// Progress is an estimate: while a transfer is outstanding it grows by a
// random step every tick and never passes 95% until the transfer returns.
type UploadService interface {
	Decide(size int64) models.UploadStrategy
	// Enqueue adds a waiting task. A negative size makes the file be
	// stat'ed; if that fails too the size stays unknown (-1).
	Enqueue(path string, size int64) models.UploadTask
	// Run uploads every waiting task to bucket under prefix. A failed task
	// does not stop the queue; the first error is returned at the end.
	Run(ctx context.Context, p *models.ConnectionProfile, bucket, prefix string) error
	Tasks() []models.UploadTask
	Clear()
}

type UploadOption func(*uploadService)

func WithMultipartThreshold(n int64) UploadOption {
	return func(s *uploadService) {
		if n > 0 {
			s.threshold = n
		}
	}
}

func WithPartSizeMB(n int) UploadOption {
	return func(s *uploadService) {
		if n > 0 {
			s.partSizeMB = n
		}
	}
}

func WithProgressInterval(d time.Duration) UploadOption {
	return func(s *uploadService) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithProgressHandler registers fn to receive a copy of a task whenever its
// state or progress changes.
func WithProgressHandler(fn func(models.UploadTask)) UploadOption {
	return func(s *uploadService) { s.onProgress = fn }
}

func WithUploadObserver(o UploadObserver) UploadOption {
	return func(s *uploadService) { s.observer = o }
}

type uploadService struct {
	remote RemoteService
	log    logging.Logger

	threshold  int64
	partSizeMB int
	interval   time.Duration
	increment  func() float64
	onProgress func(models.UploadTask)
	observer   UploadObserver

	mu    sync.Mutex
	tasks []*models.UploadTask
}

func NewUploadService(remote RemoteService, log logging.Logger, opts ...UploadOption) UploadService {
	s := &uploadService{
		remote:     remote,
		log:        log,
		threshold:  DefaultMultipartThreshold,
		partSizeMB: DefaultPartSizeMB,
		interval:   DefaultProgressInterval,
		increment:  randomIncrement,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// randomIncrement returns a step in [5, 20).
func randomIncrement() float64 {
	return 5 + rand.Float64()*15
}

func (s *uploadService) Decide(size int64) models.UploadStrategy {
	if size > s.threshold {
		return models.StrategyMultipart
	}
	return models.StrategyDirect
}

func (s *uploadService) Enqueue(path string, size int64) models.UploadTask {
	if size < 0 {
		if n, err := filex.FileSize(path); err == nil {
			size = n
		} else {
			size = -1
		}
	}

	t := &models.UploadTask{
		ID:       uuid.NewString(),
		Name:     filepath.Base(path),
		Path:     path,
		Size:     size,
		State:    models.UploadWaiting,
		Strategy: s.Decide(size),
	}

	s.mu.Lock()
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()

	s.notify(*t)
	return *t
}

func (s *uploadService) Tasks() []models.UploadTask {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.UploadTask, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = *t
	}
	return out
}

func (s *uploadService) Clear() {
	s.mu.Lock()
	s.tasks = nil
	s.mu.Unlock()
}

func (s *uploadService) notify(t models.UploadTask) {
	if s.onProgress != nil {
		s.onProgress(t)
	}
}

// update applies fn to the task under the lock and publishes the result.
func (s *uploadService) update(t *models.UploadTask, fn func(t *models.UploadTask) error) error {
	s.mu.Lock()
	err := fn(t)
	snapshot := *t
	s.mu.Unlock()

	if err == nil {
		s.notify(snapshot)
	}
	return err
}

func (s *uploadService) waiting() []*models.UploadTask {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.UploadTask
	for _, t := range s.tasks {
		if t.State == models.UploadWaiting {
			out = append(out, t)
		}
	}
	return out
}

func (s *uploadService) Run(ctx context.Context, p *models.ConnectionProfile, bucket, prefix string) error {
	if err := requireBucket(p, bucket); err != nil {
		return err
	}

	var firstErr error
	for _, t := range s.waiting() {
		if err := ctx.Err(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			break
		}
		if err := s.runTask(ctx, p, bucket, prefix, t); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *uploadService) runTask(ctx context.Context, p *models.ConnectionProfile, bucket, prefix string, t *models.UploadTask) error {
	if err := s.update(t, func(t *models.UploadTask) error {
		return t.Transition(models.UploadUploading)
	}); err != nil {
		return err
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.tick(t, stop)
	}()

	key := prefix + t.Name
	var err error
	if t.Strategy == models.StrategyMultipart {
		_, err = s.remote.UploadMultipart(ctx, p, bucket, key, t.Path, s.partSizeMB)
	} else {
		_, err = s.remote.UploadFile(ctx, p, bucket, key, t.Path, "")
	}

	close(stop)
	wg.Wait()

	if s.observer != nil {
		s.observer.TaskFinished(string(t.Strategy), err)
	}

	if err != nil {
		s.log.Error(ctx, "upload failed", "key", key, "strategy", string(t.Strategy), "err", err)
		_ = s.update(t, func(t *models.UploadTask) error {
			t.Err = err.Error()
			return t.Transition(models.UploadError)
		})
		return fmt.Errorf("upload %s: %w", t.Name, err)
	}

	s.log.Info(ctx, "uploaded", "key", key, "strategy", string(t.Strategy))
	return s.update(t, func(t *models.UploadTask) error {
		t.Progress = 100
		return t.Transition(models.UploadDone)
	})
}

func (s *uploadService) tick(t *models.UploadTask, stop <-chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			_ = s.update(t, func(t *models.UploadTask) error {
				t.Progress = min(t.Progress+s.increment(), progressCap)
				return nil
			})
		}
	}
}
