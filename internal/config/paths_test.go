package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigDirEnvOverride(t *testing.T) {
	t.Setenv("IKIGAI_CONFIG_DIR", "/tmp/custom-ikigai-config")
	require.Equal(t, "/tmp/custom-ikigai-config", ConfigDir())
}

func TestConfigPath(t *testing.T) {
	t.Setenv("IKIGAI_CONFIG_DIR", "/tmp/test-ikigai")
	require.Equal(t, "/tmp/test-ikigai/config.jsonc", ConfigPath())
}

func TestDotenvPath(t *testing.T) {
	t.Setenv("IKIGAI_CONFIG_DIR", "/tmp/test-ikigai")
	require.Equal(t, "/tmp/test-ikigai/.env", DotenvPath())
}

func TestCredentialsPath(t *testing.T) {
	t.Setenv("IKIGAI_CONFIG_DIR", "/tmp/test-ikigai")
	require.Equal(t, "/tmp/test-ikigai/credentials", CredentialsPath())
}

func TestMigrationsDirEnvOverride(t *testing.T) {
	t.Setenv("IKIGAI_DATA_DIR", "/tmp/test-ikigai-data")
	require.Equal(t, "/tmp/test-ikigai-data/migrations", MigrationsDir())
}

func TestBinDirEnvOverride(t *testing.T) {
	t.Setenv("IKIGAI_BIN_DIR", "/tmp/test-ikigai-bin")
	require.Equal(t, "/tmp/test-ikigai-bin", BinDir())
}
