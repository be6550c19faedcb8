// Package index builds and queries the persistent per-record summary index.
package index

import (
	"context"
	"database/sql"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/viant/odbview/db/sqliteutil"
	"github.com/viant/odbview/oid"

	_ "modernc.org/sqlite" // pure Go sqlite driver
)

const (
	// Suffix is appended to the source database path to name the index file.
	Suffix = ".odbcache"
	// Version is the index format version recorded in meta.
	Version = "1"
	// DefaultBatchSize is the number of rows inserted per transaction.
	DefaultBatchSize = 5000
)

// ErrNotBuilt is returned when querying a source without an index.
var ErrNotBuilt = errors.New("index: not built")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS meta (
            key TEXT PRIMARY KEY,
            value TEXT
        );`,
	`CREATE TABLE IF NOT EXISTS records (
            rownum INTEGER PRIMARY KEY,
            oid TEXT NOT NULL,
            class_name TEXT NOT NULL,
            field_count INTEGER NOT NULL,
            compressed_size INTEGER NOT NULL,
            decompressed_size INTEGER NOT NULL
        );`,
}

const classIndex = `CREATE INDEX IF NOT EXISTS idx_records_class ON records(class_name);`

// Row is one indexed record summary.
type Row struct {
	RowNum           int64  `json:"rownum"`
	OID              oid.ID `json:"oid"`
	ClassName        string `json:"className"`
	FieldCount       int    `json:"fieldCount"`
	CompressedSize   int    `json:"compressedSize"`
	DecompressedSize int    `json:"decompressedSize"`
}

// Info describes the index of one source database.
type Info struct {
	Path         string    `json:"path"`
	Exists       bool      `json:"exists"`
	BuildTime    time.Time `json:"buildTime,omitempty"`
	TotalRecords int64     `json:"totalRecords"`
	Version      string    `json:"version,omitempty"`
	Fingerprint  string    `json:"fingerprint,omitempty"`
	// Stale is set when the source changed after the build.
	Stale bool `json:"stale"`
}

// PathFor returns the index file path for a source database.
func PathFor(sourcePath string) string { return sourcePath + Suffix }

// Files returns the index file and its WAL companions.
func Files(sourcePath string) []string {
	path := PathFor(sourcePath)
	return []string{path, path + "-wal", path + "-shm"}
}

// Exists reports whether a completely built index is present.
func Exists(sourcePath string) bool {
	if _, err := os.Stat(PathFor(sourcePath)); err != nil {
		return false
	}
	store, err := Open(sourcePath)
	if err != nil {
		return false
	}
	_ = store.Close()
	return true
}

// Remove deletes the index and its companions.
func Remove(sourcePath string) error {
	for _, file := range Files(sourcePath) {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "index: failed to remove %s", file)
		}
	}
	return nil
}

func openDB(path string, sync string) (*sql.DB, error) {
	dsn := sqliteutil.DSN(path, sqliteutil.Options{WAL: true, BusyTimeoutMS: 5000, Synchronous: sync})
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "index: failed to open %s", path)
	}
	return db, nil
}

// Stat returns index metadata; a missing index is reported with Exists unset.
func Stat(ctx context.Context, sourcePath string) (*Info, error) {
	store, err := Open(sourcePath)
	if errors.Is(err, ErrNotBuilt) {
		return &Info{Path: PathFor(sourcePath)}, nil
	}
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Info(ctx)
}
