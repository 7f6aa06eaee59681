package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "http://localhost:8080", cfg.Target.BaseURL)
	assert.Equal(t, "/admin", cfg.Target.AdminPath)
	assert.Equal(t, "chromedp", cfg.Browser.Driver)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 100*time.Millisecond, cfg.Timeouts.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.Timeouts.Locate)
	assert.Equal(t, "artifacts", cfg.Artifacts.Dir)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sablcheck.yaml")
	content := []byte(`
target:
  baseURL: http://localhost:8082/
  adminEmail: admin@example.com
  adminPath: /#/admin
browser:
  driver: playwright
  headless: false
timeouts:
  assertion: 3s
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	t.Setenv("SABLCHECK_TARGET_ADMINPASSWORD", "from-env")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8082/", cfg.Target.BaseURL)
	assert.Equal(t, "admin@example.com", cfg.Target.AdminEmail)
	assert.Equal(t, "/#/admin", cfg.Target.AdminPath)
	assert.Equal(t, "from-env", cfg.Target.AdminPassword)
	assert.Equal(t, "playwright", cfg.Browser.Driver)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 3*time.Second, cfg.Timeouts.Assertion)
	assert.Equal(t, 30*time.Second, cfg.Timeouts.Navigation)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Browser.Driver = "selenium"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Timeouts.Locate = time.Millisecond
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Target.BaseURL = ""
	assert.Error(t, cfg.Validate())
}
