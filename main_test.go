package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidscrape/internal/config"
)

func TestParseParams(t *testing.T) {
	got, err := parseParams([]string{"passcode=a=b", " play =button.go"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"passcode": "a=b", "play": "button.go"}, got)

	_, err = parseParams([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseParams([]string{"=x"})
	assert.Error(t, err)
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://example.com/v", normalizeURL(" example.com/v "))
	assert.Equal(t, "http://example.com", normalizeURL("http://example.com"))
	assert.Equal(t, "file:///tmp/v.html", normalizeURL("file:///tmp/v.html"))
	assert.Equal(t, "", normalizeURL(""))
}

func TestDestination(t *testing.T) {
	dir := t.TempDir()

	t.Run("no output uses a fresh name", func(t *testing.T) {
		a, err := destination("", 1)
		require.NoError(t, err)
		b, err := destination("", 1)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(a, ".webm"))
		assert.NotEqual(t, a, b)
	})

	t.Run("single url writes the file", func(t *testing.T) {
		out := filepath.Join(dir, "talk.webm")
		got, err := destination(out, 1)
		require.NoError(t, err)
		assert.Equal(t, out, got)
	})

	t.Run("existing directory", func(t *testing.T) {
		got, err := destination(dir, 1)
		require.NoError(t, err)
		assert.Equal(t, dir, filepath.Dir(got))
	})

	t.Run("several urls create the directory", func(t *testing.T) {
		out := filepath.Join(dir, "batch")
		got, err := destination(out, 3)
		require.NoError(t, err)
		assert.Equal(t, out, filepath.Dir(got))

		info, err := os.Stat(out)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func TestBuildOptionsLayering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("browser:\n  headless: false\nscraping:\n  duration: 10m\n"), 0o644))

	cmd := &cobra.Command{}
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "")
	cmd.Flags().BoolVar(&showUI, "showui", false, "")
	require.NoError(t, cmd.Flags().Parse([]string{"--duration", "20m"}))

	configFile = path
	defer func() { configFile = "" }()

	cfg := &config.Config{Browser: config.BrowserConfig{Headless: true, Timeout: time.Minute}}
	b, s, err := buildOptions(cmd, cfg)
	require.NoError(t, err)

	assert.False(t, *b.Headless)
	assert.Equal(t, time.Minute, *b.Timeout)
	assert.Equal(t, 20*time.Minute, *s.Duration)
}
