// Package sqliteutil builds SQLite DSNs for the pure-Go driver.
package sqliteutil

import (
	"fmt"
	"strings"
)

// Options selects pragmas applied through the DSN.
type Options struct {
	WAL           bool
	BusyTimeoutMS int
	// Synchronous is one of OFF, NORMAL, FULL; empty keeps the default.
	Synchronous string
}

// DSN returns a file: DSN for path with the requested pragmas.
func DSN(path string, opts Options) string {
	dsn := path
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		dsn = "file:" + path
	}
	return EnsurePragmas(dsn, opts)
}

// EnsurePragmas appends SQLite pragmas to the DSN when missing.
// It is a no-op for in-memory databases.
func EnsurePragmas(dsn string, opts Options) string {
	if dsn == "" {
		return dsn
	}
	lower := strings.ToLower(dsn)
	if dsn == ":memory:" || strings.HasPrefix(lower, "file::memory:") {
		return dsn
	}
	if opts.BusyTimeoutMS > 0 && !strings.Contains(lower, "_pragma=busy_timeout") {
		dsn = addPragma(dsn, fmt.Sprintf("busy_timeout(%d)", opts.BusyTimeoutMS))
	}
	if opts.WAL && !strings.Contains(lower, "_pragma=journal_mode") {
		dsn = addPragma(dsn, "journal_mode(WAL)")
	}
	if opts.Synchronous != "" && !strings.Contains(lower, "_pragma=synchronous") {
		dsn = addPragma(dsn, fmt.Sprintf("synchronous(%s)", strings.ToUpper(opts.Synchronous)))
	}
	return dsn
}

func addPragma(dsn, pragma string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=" + pragma
}
