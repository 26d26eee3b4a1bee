package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useConfigFile(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flowbase.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	prev := cfgFile
	cfgFile = path
	t.Cleanup(func() {
		cfgFile = prev
		viper.Set("prism.host", nil)
	})
}

func TestLoadConfigHostFromOverride(t *testing.T) {
	useConfigFile(t, "prism:\n  user: admin\n")
	viper.Set("prism.host", "pc.example.local")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "pc.example.local", cfg.Prism.Host)
	assert.Equal(t, "admin", cfg.Prism.User)
}

func TestLoadConfigStillValidates(t *testing.T) {
	useConfigFile(t, "prism:\n  user: admin\n")

	_, err := loadConfig()
	assert.ErrorContains(t, err, "host and user are required")
}
