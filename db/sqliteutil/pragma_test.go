package sqliteutil

import "testing"

func TestDSN(t *testing.T) {
	got := DSN("/tmp/a.db", Options{WAL: true, BusyTimeoutMS: 5000, Synchronous: "normal"})
	want := "file:/tmp/a.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got := DSN(":memory:", Options{WAL: true}); got != ":memory:" {
		t.Fatalf("memory dsn changed: %q", got)
	}
	if got := EnsurePragmas("file:x.db?_pragma=journal_mode(DELETE)", Options{WAL: true}); got != "file:x.db?_pragma=journal_mode(DELETE)" {
		t.Fatalf("existing pragma overridden: %q", got)
	}
}
