package index

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/odbview/dump"
	"github.com/viant/odbview/field"
	"github.com/viant/odbview/internal/testdump"
	"github.com/viant/odbview/oid"
	"github.com/viant/odbview/record"
	"github.com/viant/odbview/scan"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.ErrorLevel)
}

func fixtureSource(t *testing.T) (string, *scan.Scanner) {
	t.Helper()
	text := testdump.Text(testdump.Fixture()...)
	sourcePath := filepath.Join(t.TempDir(), "objects.db")
	require.NoError(t, os.WriteFile(sourcePath, []byte(text), 0o644))
	opener := func(ctx context.Context) (*dump.Stream, error) {
		return dump.Tool{}.DumpFile(ctx, sourcePath)
	}
	dict := field.NewDictionary(field.Entry{Name: "SceneObject.containerVolume", Type: field.ParseType("int")})
	return sourcePath, scan.New(opener, dict, scan.DefaultTimeouts())
}

func TestBuildAndQuery(t *testing.T) {
	ctx := context.Background()
	sourcePath, scanner := fixtureSource(t)

	var progress []int
	info, err := Build(ctx, sourcePath, scanner, BuildOptions{BatchSize: 3, Progress: func(rows int) { progress = append(progress, rows) }})
	require.NoError(t, err)
	assert.EqualValues(t, 10, info.TotalRecords)
	assert.Equal(t, []int{3, 6, 9}, progress)
	assert.True(t, Exists(sourcePath))

	stat, err := Stat(ctx, sourcePath)
	require.NoError(t, err)
	assert.True(t, stat.Exists)
	assert.EqualValues(t, 10, stat.TotalRecords)
	assert.Equal(t, Version, stat.Version)
	assert.False(t, stat.Stale)
	assert.False(t, stat.BuildTime.IsZero())

	store, err := Open(sourcePath)
	require.NoError(t, err)
	defer store.Close()

	rows, err := store.Page(ctx, 1, 4)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.EqualValues(t, 5, rows[0].RowNum)
	assert.Equal(t, oid.New(1, 5), rows[0].OID)
	assert.Equal(t, 3, rows[0].FieldCount)

	classes, err := store.Classes(ctx)
	require.NoError(t, err)
	require.Len(t, classes, 3)
	assert.Equal(t, "CreatureObject", classes[0].ClassName)
	assert.Equal(t, 6, classes[0].Count)
	assert.Greater(t, classes[0].AvgSize, 0.0)

	classRows, total, err := store.ClassPage(ctx, "PlayerObject", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, classRows, 2)
	assert.Equal(t, oid.New(1, 4), classRows[0].OID)
	assert.Equal(t, oid.New(1, 8), classRows[1].OID)

	keys, total, err := store.ClassKeys(ctx, "CreatureObject", 1, 4)
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	assert.Equal(t, []string{oid.New(1, 9).KeyHex(), oid.New(1, 10).KeyHex()}, keys)
}

func TestClassFilteredMatchesKeyMatched(t *testing.T) {
	ctx := context.Background()
	sourcePath, scanner := fixtureSource(t)
	_, err := Build(ctx, sourcePath, scanner, BuildOptions{})
	require.NoError(t, err)
	store, err := Open(sourcePath)
	require.NoError(t, err)
	defer store.Close()

	for _, class := range []string{"CreatureObject", "BuildingObject", "PlayerObject"} {
		for page := 0; page < 3; page++ {
			filtered, err := scanner.ClassFiltered(ctx, scan.ClassQuery{Class: class, Page: page, PageSize: 2})
			require.NoError(t, err)
			keys, total, err := store.ClassKeys(ctx, class, page, 2)
			require.NoError(t, err)
			matched, err := scanner.KeyMatched(ctx, keys)
			require.NoError(t, err)

			assert.Equal(t, filtered.TotalMatching, total)
			require.Equal(t, len(filtered.Records), len(matched.Records), "%s page %d", class, page)
			for i := range filtered.Records {
				assert.Equal(t, filtered.Records[i].OID, matched.Records[i].OID)
				assert.Equal(t, filtered.Records[i].Fields, matched.Records[i].Fields)
			}
		}
	}
}

func TestRebuildConsistency(t *testing.T) {
	ctx := context.Background()
	sourcePath, scanner := fixtureSource(t)
	var snapshots [][]record.ClassStat
	for i := 0; i < 2; i++ {
		info, err := Build(ctx, sourcePath, scanner, BuildOptions{})
		require.NoError(t, err)
		assert.EqualValues(t, 10, info.TotalRecords)
		store, err := Open(sourcePath)
		require.NoError(t, err)
		classes, err := store.Classes(ctx)
		require.NoError(t, err)
		require.NoError(t, store.Close())
		snapshots = append(snapshots, classes)
	}
	assert.Equal(t, snapshots[0], snapshots[1])
}

type failingSource struct {
	after int
	err   error
}

func (f failingSource) Summaries(ctx context.Context, visit func(index int, id oid.ID, summary record.Summary) error) (bool, error) {
	for i := 0; ; i++ {
		if i == f.after {
			return false, f.err
		}
		if err := visit(i, oid.New(1, uint64(i)), record.Summary{ClassName: "X"}); err != nil {
			return false, err
		}
	}
}

type timeoutSource struct{}

func (timeoutSource) Summaries(ctx context.Context, visit func(index int, id oid.ID, summary record.Summary) error) (bool, error) {
	return true, visit(0, 1, record.Summary{ClassName: "X"})
}

func TestBuild_FailureRemovesFiles(t *testing.T) {
	ctx := context.Background()
	sourcePath, scanner := fixtureSource(t)
	_, err := Build(ctx, sourcePath, scanner, BuildOptions{})
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = Build(ctx, sourcePath, failingSource{after: 7, err: boom}, BuildOptions{BatchSize: 2})
	assert.True(t, errors.Is(err, boom))
	for _, file := range Files(sourcePath) {
		_, statErr := os.Stat(file)
		assert.True(t, os.IsNotExist(statErr), file)
	}

	_, err = Build(ctx, sourcePath, timeoutSource{}, BuildOptions{})
	assert.Equal(t, ErrBuildTimeout, err)
	assert.False(t, Exists(sourcePath))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = Build(cancelled, sourcePath, scanner, BuildOptions{})
	assert.Error(t, err)
	assert.False(t, Exists(sourcePath))

	_, err = Open(sourcePath)
	assert.Equal(t, ErrNotBuilt, err)
	info, err := Stat(ctx, sourcePath)
	require.NoError(t, err)
	assert.False(t, info.Exists)
}

func TestInfo_Stale(t *testing.T) {
	ctx := context.Background()
	sourcePath, scanner := fixtureSource(t)
	_, err := Build(ctx, sourcePath, scanner, BuildOptions{})
	require.NoError(t, err)

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(sourcePath, later, later))
	info, err := Stat(ctx, sourcePath)
	require.NoError(t, err)
	assert.True(t, info.Stale)
	assert.True(t, strings.HasSuffix(info.Path, Suffix))
}

func TestOpen_IncompleteIndex(t *testing.T) {
	ctx := context.Background()
	var testCases = []struct {
		description string
		statements  []string
	}{
		{
			description: "rows without meta",
			statements: append(append([]string{}, schema...),
				`INSERT INTO records(rownum, oid, class_name, field_count, compressed_size, decompressed_size) VALUES(1, '0x0001000000000001', 'CreatureObject', 3, 10, 10)`),
		},
		{
			description: "partial meta",
			statements: append(append([]string{}, schema...),
				`INSERT INTO meta(key, value) VALUES('version', '1')`),
		},
		{
			description: "no tables",
		},
	}
	for _, testCase := range testCases {
		sourcePath, scanner := fixtureSource(t)
		db, err := openDB(PathFor(sourcePath), "")
		require.NoError(t, err, testCase.description)
		_, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS placeholder(id INTEGER)`)
		require.NoError(t, err, testCase.description)
		for _, stmt := range testCase.statements {
			_, err := db.ExecContext(ctx, stmt)
			require.NoError(t, err, testCase.description)
		}
		require.NoError(t, db.Close())

		assert.False(t, Exists(sourcePath), testCase.description)
		_, err = Open(sourcePath)
		assert.True(t, errors.Is(err, ErrNotBuilt), testCase.description)
		info, err := Stat(ctx, sourcePath)
		require.NoError(t, err, testCase.description)
		assert.False(t, info.Exists, testCase.description)

		_, err = Build(ctx, sourcePath, scanner, BuildOptions{})
		require.NoError(t, err, testCase.description)
		assert.True(t, Exists(sourcePath), testCase.description)
	}
}
