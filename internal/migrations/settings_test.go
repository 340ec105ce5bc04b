package migrations

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/botfront/authoring-service/internal/config"
	registrymigrate "github.com/botfront/authoring-service/internal/registry/migrate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func settingsConfig(dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.AssetsDir = dir
	cfg.Orchestrator = "kubernetes"
	return &cfg
}

func TestLoadDefaultSettings_PrefersOrchestratorFile(t *testing.T) {
	dir := t.TempDir()
	writeSettings(t, dir, "default-settings.kubernetes.json", `{"settings":{"private":{"defaultDefaultDomain":"k8s"}}}`)
	writeSettings(t, dir, "default-settings.json", `{"settings":{"private":{"defaultDefaultDomain":"generic"}}}`)

	s, path, err := loadDefaultSettings(settingsConfig(dir))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "default-settings.kubernetes.json"), path)
	assert.Equal(t, "k8s", *s.Settings.Private.DefaultDefaultDomain)
}

func TestLoadDefaultSettings_FallsBackOnBadJSON(t *testing.T) {
	dir := t.TempDir()
	writeSettings(t, dir, "default-settings.kubernetes.json", `{"settings":`)
	writeSettings(t, dir, "default-settings.json", `{"settings":{"private":{"defaultDefaultDomain":"generic"}}}`)

	s, path, err := loadDefaultSettings(settingsConfig(dir))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "default-settings.json"), path)
	assert.Equal(t, "generic", *s.Settings.Private.DefaultDefaultDomain)
}

func TestLoadDefaultSettings_NoUsableFile(t *testing.T) {
	dir := t.TempDir()
	writeSettings(t, dir, "default-settings.json", `not json`)

	_, _, err := loadDefaultSettings(settingsConfig(dir))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable default settings file")
}

func TestSetDefaultDomain_MissingKey(t *testing.T) {
	dir := t.TempDir()
	writeSettings(t, dir, "default-settings.json", `{"settings":{"private":{}}}`)

	err := setDefaultDomain(context.Background(), &registrymigrate.Env{Config: settingsConfig(dir)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "defaultDefaultDomain is missing")
}
