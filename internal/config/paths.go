package config

import (
	"os"
	"path/filepath"
)

// The four directory roles, each overridable by an IKIGAI_* environment
// variable per spec §6.

// BinDir returns the directory holding per-tool executables.
func BinDir() string {
	if v := os.Getenv("IKIGAI_BIN_DIR"); v != "" {
		return v
	}
	return filepath.Join(ikigaiPath(), "bin")
}

// ConfigDir returns the directory holding config.jsonc and credentials.
func ConfigDir() string {
	if v := os.Getenv("IKIGAI_CONFIG_DIR"); v != "" {
		return v
	}
	return ikigaiPath()
}

// DataDir returns the directory holding migrations and prompts.
func DataDir() string {
	if v := os.Getenv("IKIGAI_DATA_DIR"); v != "" {
		return v
	}
	return ikigaiPath()
}

// LibexecDir returns the directory holding internal helper binaries.
func LibexecDir() string {
	if v := os.Getenv("IKIGAI_LIBEXEC_DIR"); v != "" {
		return v
	}
	return filepath.Join(ikigaiPath(), "libexec")
}

func ikigaiPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".ikigai")
	}
	return filepath.Join(home, ".ikigai")
}

// ConfigPath returns the path to the ikigai config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.jsonc")
}

// DotenvPath returns the path to the ikigai .env file.
func DotenvPath() string {
	return filepath.Join(ConfigDir(), ".env")
}

// CredentialsPath returns the path to the credentials key=value file (§6).
func CredentialsPath() string {
	return filepath.Join(ConfigDir(), "credentials")
}

// SystemPromptPath returns the fallback system-prompt file used when
// openai_system_message is absent from config.
func SystemPromptPath() string {
	return filepath.Join(DataDir(), "prompts", "system.md")
}

// MigrationsDir returns the directory of lexically-ordered SQL migrations.
func MigrationsDir() string {
	return filepath.Join(DataDir(), "migrations")
}
