package index

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/viant/odbview/oid"
	"github.com/viant/odbview/record"
)

// ErrBuildTimeout is returned when the source pass exceeds its ceiling.
var ErrBuildTimeout = errors.New("index: build timed out")

// Source produces one summary per record in stream order.
type Source interface {
	Summaries(ctx context.Context, visit func(index int, id oid.ID, summary record.Summary) error) (timedOut bool, err error)
}

// BuildOptions tunes a build.
type BuildOptions struct {
	BatchSize int
	Logger    zerolog.Logger
	// Progress, when set, is called after every committed batch.
	Progress func(rows int)
	now      func() time.Time
}

type batchWriter struct {
	db    *sql.DB
	tx    *sql.Tx
	stmt  *sql.Stmt
	size  int
	count int
}

func (w *batchWriter) begin(ctx context.Context) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records(rownum, oid, class_name, field_count, compressed_size, decompressed_size) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	w.tx, w.stmt = tx, stmt
	return nil
}

func (w *batchWriter) commit() error {
	if w.tx == nil {
		return nil
	}
	_ = w.stmt.Close()
	err := w.tx.Commit()
	w.tx, w.stmt = nil, nil
	return err
}

func (w *batchWriter) rollback() {
	if w.tx == nil {
		return
	}
	_ = w.stmt.Close()
	_ = w.tx.Rollback()
	w.tx, w.stmt = nil, nil
}

// add inserts a row; it reports true when a batch was committed.
func (w *batchWriter) add(ctx context.Context, rownum int, id oid.ID, summary record.Summary) (bool, error) {
	if w.tx == nil {
		if err := w.begin(ctx); err != nil {
			return false, err
		}
	}
	if _, err := w.stmt.ExecContext(ctx, rownum, id.String(), summary.ClassName, summary.FieldCount, summary.CompressedSize, summary.DecompressedSize); err != nil {
		return false, err
	}
	w.count++
	if w.count%w.size != 0 {
		return false, nil
	}
	return true, w.commit()
}

// Build replaces the index of sourcePath with one full pass over source.
// On failure or cancellation every index file is removed.
func Build(ctx context.Context, sourcePath string, source Source, opts BuildOptions) (info *Info, err error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.now == nil {
		opts.now = time.Now
	}
	logger := opts.Logger.With().Str("source", sourcePath).Logger()
	if err := Remove(sourcePath); err != nil {
		return nil, err
	}
	path := PathFor(sourcePath)
	db, err := openDB(path, "OFF")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	writer := &batchWriter{db: db, size: opts.BatchSize}
	defer func() {
		writer.rollback()
		closeErr := db.Close()
		if err == nil && closeErr != nil {
			err = errors.Wrap(closeErr, "index: close failed")
		}
		if err != nil {
			if rmErr := Remove(sourcePath); rmErr != nil {
				logger.Error().Err(rmErr).Msg("failed to remove partial index")
			}
			info = nil
		}
	}()

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, errors.Wrap(err, "index: failed to create schema")
		}
	}
	started := opts.now()
	logger.Info().Str("index", path).Msg("index build started")
	timedOut, err := source.Summaries(ctx, func(index int, id oid.ID, summary record.Summary) error {
		committed, err := writer.add(ctx, index+1, id, summary)
		if err != nil {
			return errors.Wrap(err, "index: insert failed")
		}
		if committed {
			logger.Debug().Int("rows", writer.count).Msg("index batch committed")
			if opts.Progress != nil {
				opts.Progress(writer.count)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if timedOut {
		return nil, ErrBuildTimeout
	}
	if err := writer.commit(); err != nil {
		return nil, errors.Wrap(err, "index: commit failed")
	}
	if _, err := db.ExecContext(ctx, classIndex); err != nil {
		return nil, errors.Wrap(err, "index: failed to create class index")
	}
	fingerprint, err := Fingerprint(sourcePath)
	if err != nil {
		logger.Warn().Err(err).Msg("source fingerprint unavailable")
		fingerprint = ""
	}
	built := opts.now().UTC()
	meta := map[string]string{
		"build_time":         built.Format(time.RFC3339Nano),
		"total_records":      strconv.Itoa(writer.count),
		"version":            Version,
		"source_fingerprint": fingerprint,
	}
	if err := writeMeta(ctx, db, meta); err != nil {
		return nil, err
	}
	logger.Info().Int("rows", writer.count).Dur("elapsed", opts.now().Sub(started)).Msg("index build finished")
	return &Info{
		Path:         path,
		Exists:       true,
		BuildTime:    built,
		TotalRecords: int64(writer.count),
		Version:      Version,
		Fingerprint:  fingerprint,
	}, nil
}

// writeMeta commits all meta rows at once; their presence marks the index complete.
func writeMeta(ctx context.Context, db *sql.DB, meta map[string]string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "index: failed to begin meta")
	}
	for key, value := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO meta(key, value) VALUES(?, ?)`, key, value); err != nil {
			_ = tx.Rollback()
			return errors.Wrap(err, "index: failed to write meta")
		}
	}
	return errors.Wrap(tx.Commit(), "index: failed to commit meta")
}
