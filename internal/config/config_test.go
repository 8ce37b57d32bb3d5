package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-swms/internal/config"
)

func writeFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "swms.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
server:
  addr: ":9090"
renderers:
  external:
    endpoint: "https://pdf.example.com/render"
    timeout: 5s
  chromium:
    enabled: false
risk:
  jitter: false
  seed: 42
theme:
  variant: high-contrast
`)

	cfg, err := config.Load(config.NewViper(), path)
	require.NoError(t, err)

	want := config.Default()
	want.Server.Addr = ":9090"
	want.Renderers.External.Endpoint = "https://pdf.example.com/render"
	want.Renderers.External.Timeout = 5 * time.Second
	want.Renderers.Chromium.Enabled = false
	want.Risk.Jitter = false
	want.Risk.Seed = 42
	want.Theme.Variant = "high-contrast"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SWMS_SERVER_ADDR", ":7070")
	t.Setenv("SWMS_CACHE_ADDR", "localhost:6379")
	t.Setenv("SWMS_RENDERERS_PRIMITIVE_TIMEOUT", "3s")

	cfg, err := config.Load(config.NewViper(), writeFile(t, "log:\n  level: debug\n"))
	require.NoError(t, err)
	require.Equal(t, ":7070", cfg.Server.Addr)
	require.Equal(t, "localhost:6379", cfg.Cache.Addr)
	require.Equal(t, 3*time.Second, cfg.Renderers.Primitive.Timeout)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := config.Load(config.NewViper(), filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoad_MissingDefaultFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := config.Load(nil, "")
	require.NoError(t, err)
	if diff := cmp.Diff(config.Default(), cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	cfg.Renderers.External.Endpoint = "not a url"
	require.Error(t, cfg.Validate())

	cfg = config.Default()
	cfg.Renderers.Chromium.Timeout = 0
	require.Error(t, cfg.Validate())

	require.NoError(t, config.Default().Validate())
}

func TestYAML_RoundTrip(t *testing.T) {
	data, err := config.Default().YAML()
	require.NoError(t, err)

	cfg, err := config.Load(config.NewViper(), writeFile(t, string(data)))
	require.NoError(t, err)
	if diff := cmp.Diff(config.Default(), cfg); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}
