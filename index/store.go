package index

import (
	"context"
	"database/sql"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/viant/odbview/oid"
	"github.com/viant/odbview/record"
)

// Store queries a built index.
type Store struct {
	sourcePath string
	db         *sql.DB
}

// Open opens the index of sourcePath; ErrNotBuilt when absent or incomplete.
func Open(sourcePath string) (*Store, error) {
	path := PathFor(sourcePath)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotBuilt
		}
		return nil, errors.Wrapf(err, "index: failed to stat %s", path)
	}
	db, err := openDB(path, "")
	if err != nil {
		return nil, err
	}
	if err := checkComplete(db); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(ErrNotBuilt, "%s: %v", path, err)
	}
	return &Store{sourcePath: sourcePath, db: db}, nil
}

// requiredMeta are written by the last step of a build.
var requiredMeta = []string{"build_time", "total_records", "version"}

// checkComplete rejects an index left behind by an interrupted build.
func checkComplete(db *sql.DB) error {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM meta WHERE key IN (?, ?, ?)`,
		requiredMeta[0], requiredMeta[1], requiredMeta[2]).Scan(&count)
	if err != nil {
		return errors.Wrap(err, "incomplete index")
	}
	if count != len(requiredMeta) {
		return errors.New("incomplete index: build metadata missing")
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Info reads build metadata.
func (s *Store) Info(ctx context.Context) (*Info, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return nil, errors.Wrap(err, "index: failed to read meta")
	}
	defer rows.Close()
	meta := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		meta[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	ret := &Info{Path: PathFor(s.sourcePath), Exists: true, Version: meta["version"], Fingerprint: meta["source_fingerprint"]}
	if v, ok := meta["build_time"]; ok {
		ret.BuildTime, _ = time.Parse(time.RFC3339Nano, v)
	}
	if v, ok := meta["total_records"]; ok {
		ret.TotalRecords, _ = strconv.ParseInt(v, 10, 64)
	}
	if ret.Fingerprint != "" {
		if current, err := Fingerprint(s.sourcePath); err == nil && current != ret.Fingerprint {
			ret.Stale = true
		}
	}
	return ret, nil
}

func offset(page, pageSize int) int {
	if page < 0 {
		page = 0
	}
	return page * pageSize
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	defer rows.Close()
	out := []Row{}
	for rows.Next() {
		var row Row
		var id string
		if err := rows.Scan(&row.RowNum, &id, &row.ClassName, &row.FieldCount, &row.CompressedSize, &row.DecompressedSize); err != nil {
			return nil, err
		}
		parsed, err := oid.Parse(id)
		if err != nil {
			return nil, err
		}
		row.OID = parsed
		out = append(out, row)
	}
	return out, rows.Err()
}

const rowColumns = `rownum, oid, class_name, field_count, compressed_size, decompressed_size`

// Page returns rows in stream order.
func (s *Store) Page(ctx context.Context, page, pageSize int) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+rowColumns+` FROM records ORDER BY rownum LIMIT ? OFFSET ?`, pageSize, offset(page, pageSize))
	if err != nil {
		return nil, errors.Wrap(err, "index: page query failed")
	}
	return scanRows(rows)
}

// Classes groups rows by class, most frequent first.
func (s *Store) Classes(ctx context.Context) ([]record.ClassStat, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT class_name, COUNT(*) AS cnt, AVG(decompressed_size)
FROM records GROUP BY class_name ORDER BY cnt DESC, class_name`)
	if err != nil {
		return nil, errors.Wrap(err, "index: class query failed")
	}
	defer rows.Close()
	out := []record.ClassStat{}
	for rows.Next() {
		var stat record.ClassStat
		if err := rows.Scan(&stat.ClassName, &stat.Count, &stat.AvgSize); err != nil {
			return nil, err
		}
		out = append(out, stat)
	}
	return out, rows.Err()
}

// ClassCount returns the number of rows of a class.
func (s *Store) ClassCount(ctx context.Context, class string) (int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE class_name = ?`, class).Scan(&total); err != nil {
		return 0, errors.Wrap(err, "index: count query failed")
	}
	return total, nil
}

// ClassPage returns one page of rows of a class and the class total.
func (s *Store) ClassPage(ctx context.Context, class string, page, pageSize int) ([]Row, int, error) {
	total, err := s.ClassCount(ctx, class)
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+rowColumns+` FROM records WHERE class_name = ? ORDER BY rownum LIMIT ? OFFSET ?`, class, pageSize, offset(page, pageSize))
	if err != nil {
		return nil, 0, errors.Wrap(err, "index: class page query failed")
	}
	out, err := scanRows(rows)
	return out, total, err
}

// ClassKeys returns one page of dump-protocol keys of a class and the class total.
func (s *Store) ClassKeys(ctx context.Context, class string, page, pageSize int) ([]string, int, error) {
	rows, total, err := s.ClassPage(ctx, class, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	keys := make([]string, len(rows))
	for i, row := range rows {
		keys[i] = row.OID.KeyHex()
	}
	return keys, total, nil
}
