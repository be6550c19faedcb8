package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/viant/odbview/index"
)

// ErrBuildInProgress is returned when an index build for the same database
// is already running.
var ErrBuildInProgress = errors.New("index build already in progress")

// BuildJob tracks one asynchronous index build.
type BuildJob struct {
	ID      string    `json:"id"`
	DBPath  string    `json:"dbPath"`
	Started time.Time `json:"started"`

	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex
	info   *index.Info
	err    error
}

// Cancel requests the build to stop. The partial index is removed.
func (j *BuildJob) Cancel() { j.cancel() }

// Done is closed once the build finished, failed or was cancelled.
func (j *BuildJob) Done() <-chan struct{} { return j.done }

// Result returns the build outcome; both are nil while running.
func (j *BuildJob) Result() (*index.Info, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.info, j.err
}

// Wait blocks until the build ends or ctx is done.
func (j *BuildJob) Wait(ctx context.Context) (*index.Info, error) {
	select {
	case <-j.done:
		return j.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (j *BuildJob) finish(info *index.Info, err error) {
	j.mu.Lock()
	j.info, j.err = info, err
	j.mu.Unlock()
	close(j.done)
}

// BuildCache starts a background index build. The build outlives ctx and
// stops only through BuildJob.Cancel or Close.
func (s *Service) BuildCache(ctx context.Context, req *BuildRequest) (*BuildJob, error) {
	if req == nil || req.DBPath == "" {
		return nil, errors.New("db path is required")
	}
	dbPath := normalizePath(req.DBPath)
	buildCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	job := &BuildJob{
		ID:      uuid.New().String(),
		DBPath:  dbPath,
		Started: time.Now(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	s.mu.Lock()
	if _, ok := s.builds[dbPath]; ok {
		s.mu.Unlock()
		cancel()
		return nil, errors.Wrap(ErrBuildInProgress, dbPath)
	}
	s.builds[dbPath] = job
	s.mu.Unlock()
	s.invalidate(dbPath)

	logger := s.logger.With().Str("build", job.ID).Logger()
	go func() {
		defer cancel()
		info, err := index.Build(buildCtx, dbPath, s.scanner(dbPath), index.BuildOptions{
			BatchSize: s.batchSize,
			Logger:    logger,
			Progress:  req.Progress,
		})
		if buildCtx.Err() != nil {
			if err == nil {
				if rmErr := index.Remove(dbPath); rmErr != nil {
					logger.Error().Err(rmErr).Msg("failed to remove cancelled index")
				}
			}
			err = context.Canceled
		}
		if err != nil {
			info = nil
			logger.Warn().Err(err).Str("db", dbPath).Msg("index build did not complete")
		}
		s.mu.Lock()
		delete(s.builds, dbPath)
		s.mu.Unlock()
		s.invalidate(dbPath)
		job.finish(info, err)
	}()
	return job, nil
}

// DeleteCache removes the index of a database.
func (s *Service) DeleteCache(ctx context.Context, req *CacheRequest) error {
	if req == nil || req.DBPath == "" {
		return errors.New("db path is required")
	}
	dbPath := normalizePath(req.DBPath)
	if s.building(dbPath) != nil {
		return errors.Wrap(ErrBuildInProgress, dbPath)
	}
	s.invalidate(dbPath)
	if err := index.Remove(dbPath); err != nil {
		return err
	}
	s.logger.Info().Str("db", dbPath).Msg("index deleted")
	return nil
}

// CacheInfo reports the index state of a database.
func (s *Service) CacheInfo(ctx context.Context, req *CacheRequest) (*CacheInfo, error) {
	if req == nil || req.DBPath == "" {
		return nil, errors.New("db path is required")
	}
	dbPath := normalizePath(req.DBPath)
	ret := &CacheInfo{}
	if job := s.building(dbPath); job != nil {
		ret.Building = true
		ret.BuildID = job.ID
		ret.Path = index.PathFor(dbPath)
		return ret, nil
	}
	info, err := index.Stat(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	ret.Info = *info
	return ret, nil
}
