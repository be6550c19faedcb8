package dump

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/odbview/internal/testdump"
)

func TestParseStats(t *testing.T) {
	btree := `Sat Oct 19 10:00:00 2026	Local time
53162	Btree magic number
9	Btree version number
Little-endian	Byte order
	Flags
16384	Underlying database page size
3	Number of levels in the tree
125K	Number of unique keys in the tree
125338	Number of data items in the tree
`
	stats := ParseStats(btree)
	assert.Equal(t, EngineBtree, stats.Engine)
	assert.EqualValues(t, 16384, stats.PageSize)
	assert.Equal(t, "Little-endian", stats.ByteOrder)
	assert.EqualValues(t, 125000, stats.RecordCount)

	hash := `61561	Hash magic number
8	Hash version number
Big-endian	Byte order
4096	Underlying database page size
4211	Number of keys in the database
4211	Number of data items in the database
`
	stats = ParseStats(hash)
	assert.Equal(t, EngineHash, stats.Engine)
	assert.Equal(t, "Big-endian", stats.ByteOrder)
	assert.EqualValues(t, 4211, stats.RecordCount)

	assert.Equal(t, EngineUnknown, ParseStats("garbage").Engine)
}

func TestStatsFromStream(t *testing.T) {
	s := NewStream(context.Background(), strings.NewReader(testdump.Text(testdump.Fixture()...)), nil)
	stats, err := StatsFromStream(s)
	require.NoError(t, err)
	assert.Equal(t, EngineBtree, stats.Engine)
	assert.EqualValues(t, 16384, stats.PageSize)
	assert.EqualValues(t, 10, stats.RecordCount)
}
