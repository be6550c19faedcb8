package dump

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/odbview/internal/testdump"
)

func collect(t *testing.T, s *Stream) []Pair {
	t.Helper()
	var out []Pair
	for {
		pair, err := s.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, pair)
	}
}

func TestStream_Next(t *testing.T) {
	var testCases = []struct {
		description string
		input       string
		expect      []Pair
	}{
		{
			description: "header and data",
			input:       "VERSION=3\ntype=hash\nHEADER=END\n 0100\n 0a0b\n 0200\n 0c0d\nDATA=END\n",
			expect:      []Pair{{Key: "0100", Value: "0a0b"}, {Key: "0200", Value: "0c0d"}},
		},
		{
			description: "dangling key dropped",
			input:       "HEADER=END\n 0100\n 0a0b\n 0200\nDATA=END\n",
			expect:      []Pair{{Key: "0100", Value: "0a0b"}},
		},
		{
			description: "early exit without sentinel",
			input:       "HEADER=END\n 0100\n 0a0b\n 0200",
			expect:      []Pair{{Key: "0100", Value: "0a0b"}},
		},
		{
			description: "no header end",
			input:       "VERSION=3\n 0100\n 0a0b\n",
		},
		{
			description: "empty value keeps pairing",
			input:       "HEADER=END\n 0100000000000000\n \n 0200000000000000\n 0a0b\n 0300000000000000\n 0c0d\nDATA=END\n",
			expect: []Pair{
				{Key: "0100000000000000", Value: ""},
				{Key: "0200000000000000", Value: "0a0b"},
				{Key: "0300000000000000", Value: "0c0d"},
			},
		},
		{
			description: "empty key keeps pairing",
			input:       "HEADER=END\n \n 0a0b\n 0200\n 0c0d\nDATA=END\n",
			expect:      []Pair{{Key: "", Value: "0a0b"}, {Key: "0200", Value: "0c0d"}},
		},
		{
			description: "lines after data end ignored",
			input:       "HEADER=END\n 01\n 02\nDATA=END\n 03\n 04\n",
			expect:      []Pair{{Key: "01", Value: "02"}},
		},
	}
	for _, testCase := range testCases {
		s := NewStream(context.Background(), strings.NewReader(testCase.input), nil)
		assert.Equal(t, testCase.expect, collect(t, s), testCase.description)
	}
}

func TestStream_Header(t *testing.T) {
	s := NewStream(context.Background(), strings.NewReader(testdump.Text(testdump.Fixture()...)), nil)
	pairs := collect(t, s)
	assert.Len(t, pairs, len(testdump.Fixture()))
	assert.Equal(t, "btree", s.Header()["type"])
	assert.Equal(t, len(pairs), s.Records())
}

func TestStream_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewStream(ctx, strings.NewReader(testdump.Text(testdump.Fixture()...)), nil)
	_, err := s.Next()
	require.NoError(t, err)
	cancel()
	_, err = s.Next()
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestTool_DumpProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.txt")
	require.NoError(t, os.WriteFile(path, []byte(testdump.Text(testdump.Fixture()...)), 0o644))

	tool := Tool{DumpPath: "cat"}
	s, err := tool.Dump(context.Background(), path)
	require.NoError(t, err)
	first, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, testdump.Fixture()[0].ID.KeyHex()+"0000", first.Key)
	require.NoError(t, s.Close())

	s, err = tool.Dump(context.Background(), path)
	require.NoError(t, err)
	defer s.Close()
	assert.Len(t, collect(t, s), len(testdump.Fixture()))

	f, err := tool.DumpFile(context.Background(), path)
	require.NoError(t, err)
	defer f.Close()
	assert.Len(t, collect(t, f), len(testdump.Fixture()))
}

func TestTool_DumpFailure(t *testing.T) {
	tool := Tool{DumpPath: "cat"}
	s, err := tool.Dump(context.Background(), filepath.Join(t.TempDir(), "missing.db"))
	require.NoError(t, err)
	defer s.Close()
	_, err = s.Next()
	require.Error(t, err)
	assert.NotEqual(t, io.EOF, err)
}

func TestTool_Missing(t *testing.T) {
	tool := Tool{DumpPath: "/nonexistent/db_dump", StatPath: "/nonexistent/db_stat"}
	_, err := tool.Dump(context.Background(), "x.db")
	assert.True(t, errors.Is(err, ErrToolMissing), err)
	_, err = tool.Stats(context.Background(), "x.db")
	assert.True(t, errors.Is(err, ErrToolMissing), err)
}

func TestTool_StatsTimeout(t *testing.T) {
	script := filepath.Join(t.TempDir(), "slow_stat")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nexec sleep 5\n"), 0o755))
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := Tool{StatPath: script}.Stats(ctx, "x.db")
	assert.Equal(t, ErrStatsTimeout, err)
}
