package config

import (
	"encoding/json"
	"os"
	"regexp"

	"github.com/tailscale/hujson"

	"github.com/dohr-michael/ikigai/internal/ikerr"
)

var envTemplateRe = regexp.MustCompile(`\$\{\{\s*\.Env\.(\w+)\s*\}\}`)

// Load reads a JSONC config file, strips comments, expands
// ${{ .Env.VAR }} templates, unmarshals into Config, applies defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, ikerr.Wrap(ikerr.IO, "read config file", err)
	}

	expanded := expandEnvTemplates(string(raw))

	std, err := hujson.Standardize([]byte(expanded))
	if err != nil {
		return nil, ikerr.Wrap(ikerr.Parse, "strip jsonc comments", err)
	}

	cfg := defaultConfig()
	if err := json.Unmarshal(std, &cfg); err != nil {
		return nil, ikerr.Wrap(ikerr.Parse, "unmarshal config", err)
	}

	if cfg.OpenAISystemMessage == nil {
		if contents, readErr := os.ReadFile(SystemPromptPath()); readErr == nil {
			s := string(contents)
			cfg.OpenAISystemMessage = &s
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func expandEnvTemplates(s string) string {
	return envTemplateRe.ReplaceAllStringFunc(s, func(match string) string {
		parts := envTemplateRe.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		return os.Getenv(parts[1])
	})
}
