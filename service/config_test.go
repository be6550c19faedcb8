package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/odbview/field"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	dictPath := filepath.Join(dir, "fields.yaml")
	require.NoError(t, os.WriteFile(dictPath, []byte("fields:\n  - name: SceneObject.objectName\n    type: StringId\n"), 0o644))
	cfgPath := filepath.Join(dir, "odbview.yaml")
	cfgText := `dump:
  dumpPath: /opt/db/bin/db_dump
  args: ["-p"]
dictionary: ` + dictPath + `
timeouts:
  pageSeconds: 5
  statsSeconds: 3
cache:
  batchSize: 100
log:
  level: debug
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgText), 0o644))

	cfg, err := LoadConfig(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "/opt/db/bin/db_dump", cfg.Dump.DumpPath)
	assert.Equal(t, []string{"-p"}, cfg.Dump.Args)
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())

	timeouts, stats := cfg.Durations()
	assert.Equal(t, 5*time.Second, timeouts.Page)
	assert.Equal(t, 2*time.Minute, timeouts.Filter)
	assert.Equal(t, 10*time.Minute, timeouts.Full)
	assert.Equal(t, 3*time.Second, stats)

	opts, err := cfg.Options(context.Background())
	require.NoError(t, err)
	svc, err := NewService(opts...)
	require.NoError(t, err)
	assert.Equal(t, 100, svc.batchSize)
	assert.Equal(t, "/opt/db/bin/db_dump", svc.tool.DumpPath)
	assert.Equal(t, "SceneObject.objectName", svc.dict.Name(field.Hash("SceneObject.objectName")))
}

func TestConfig_Defaults(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())
	timeouts, stats := cfg.Durations()
	assert.Equal(t, 30*time.Second, timeouts.Page)
	assert.Equal(t, DefaultStatsTimeout, stats)
}

func TestExpandUserPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	var testCases = []struct {
		description string
		input       string
		expect      string
		expectErr   bool
	}{
		{description: "plain", input: "/tmp/x", expect: "/tmp/x"},
		{description: "home", input: "~", expect: home},
		{description: "home child", input: "~/a/b", expect: filepath.Join(home, "a/b")},
		{description: "other user", input: "~bob/a", expectErr: true},
	}
	for _, testCase := range testCases {
		actual, err := expandUserPath(testCase.input)
		if testCase.expectErr {
			assert.Error(t, err, testCase.description)
			continue
		}
		assert.NoError(t, err, testCase.description)
		assert.Equal(t, testCase.expect, actual, testCase.description)
	}
}
