package service

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/viant/odbview/dump"
	"github.com/viant/odbview/field"
	"github.com/viant/odbview/index"
	"github.com/viant/odbview/scan"
)

// DefaultStatsTimeout bounds the stat utility call.
const DefaultStatsTimeout = 10 * time.Second

// Option configures the Service.
type Option func(*Service)

// WithTool sets the external utility locations.
func WithTool(tool dump.Tool) Option {
	return func(s *Service) { s.tool = tool }
}

// WithDictionary sets the field dictionary.
func WithDictionary(dict *field.Dictionary) Option {
	return func(s *Service) { s.dict = dict }
}

// WithTimeouts sets the scan ceilings.
func WithTimeouts(timeouts scan.Timeouts) Option {
	return func(s *Service) { s.timeouts = timeouts }
}

// WithStatsTimeout sets the stat utility ceiling.
func WithStatsTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.statsTimeout = timeout
		}
	}
}

// WithBatchSize sets the number of index rows per transaction.
func WithBatchSize(size int) Option {
	return func(s *Service) { s.batchSize = size }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithDumpFiles treats database paths as captured dump output files.
func WithDumpFiles(enabled bool) Option {
	return func(s *Service) { s.fromFile = enabled }
}

// WithOpener overrides how streams are opened for a database path.
func WithOpener(opener func(dbPath string) scan.Opener) Option {
	return func(s *Service) { s.opener = opener }
}

// Service exposes browse, lookup and index operations.
type Service struct {
	tool         dump.Tool
	dict         *field.Dictionary
	timeouts     scan.Timeouts
	statsTimeout time.Duration
	batchSize    int
	fromFile     bool
	logger       zerolog.Logger
	opener       func(dbPath string) scan.Opener

	mu      sync.Mutex
	builds  map[string]*BuildJob
	classes *Map[string, ClassesResult]
	keys    *Map[string, classKeys]
}

type classKeys struct {
	keys  []string
	total int
}

// NewService creates a new Service.
func NewService(opts ...Option) (*Service, error) {
	s := &Service{
		timeouts:     scan.DefaultTimeouts(),
		statsTimeout: DefaultStatsTimeout,
		batchSize:    index.DefaultBatchSize,
		logger:       zerolog.Nop(),
		builds:       map[string]*BuildJob{},
		classes:      NewMap[string, ClassesResult](),
		keys:         NewMap[string, classKeys](),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dict == nil {
		s.dict = field.NewDictionary()
	}
	if s.opener == nil {
		s.opener = s.defaultOpener
	}
	return s, nil
}

// Close cancels in-flight builds and waits for them to finish.
func (s *Service) Close() error {
	s.mu.Lock()
	jobs := make([]*BuildJob, 0, len(s.builds))
	for _, job := range s.builds {
		jobs = append(jobs, job)
	}
	s.mu.Unlock()
	for _, job := range jobs {
		job.Cancel()
		<-job.Done()
	}
	return nil
}

func (s *Service) defaultOpener(dbPath string) scan.Opener {
	return func(ctx context.Context) (*dump.Stream, error) {
		if s.fromFile {
			return s.tool.DumpFile(ctx, dbPath)
		}
		return s.tool.Dump(ctx, dbPath)
	}
}

func (s *Service) scanner(dbPath string) *scan.Scanner {
	return scan.New(s.opener(dbPath), s.dict, s.timeouts)
}

func normalizePath(dbPath string) string {
	if abs, err := filepath.Abs(dbPath); err == nil {
		return abs
	}
	return filepath.Clean(dbPath)
}

// building reports whether an index build for dbPath is in flight.
func (s *Service) building(dbPath string) *BuildJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builds[dbPath]
}

// indexed reports whether queries can be answered from the index.
func (s *Service) indexed(dbPath string) bool {
	return s.building(dbPath) == nil && index.Exists(dbPath)
}

func (s *Service) invalidate(dbPath string) {
	match := keyOf(dbPath)
	removed := s.classes.DeleteIf(match) + s.keys.DeleteIf(match)
	if removed > 0 {
		s.logger.Debug().Str("db", dbPath).Int("entries", removed).Msg("query cache invalidated")
	}
}
