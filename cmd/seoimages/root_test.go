package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize_LoadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SEO_IMAGES_PER_PAGE=21\nSEO_IMAGES_APP_URL=https://img.example.com\n"), 0o644))
	t.Setenv("SEO_IMAGES_APP_URL", "https://override.example.com")
	t.Cleanup(func() { os.Unsetenv("SEO_IMAGES_PER_PAGE") })

	envFile, logLevel = path, "debug"
	require.NoError(t, initialize(rootCmd, nil))

	assert.Equal(t, 21, cfg.PerPage)
	assert.Equal(t, "https://override.example.com", cfg.AppURL)
}

func TestInitialize_MissingEnvFileIsFine(t *testing.T) {
	envFile, logLevel = filepath.Join(t.TempDir(), "absent.env"), "info"
	assert.NoError(t, initialize(rootCmd, nil))
}

func TestInitialize_BadLogLevel(t *testing.T) {
	envFile, logLevel = filepath.Join(t.TempDir(), "absent.env"), "loud"
	assert.Error(t, initialize(rootCmd, nil))
}

func TestRenderKeyValue(t *testing.T) {
	assert.Contains(t, RenderKeyValue("Updated", "3"), "3")
	assert.Contains(t, FormatError("boom"), "boom")
}
