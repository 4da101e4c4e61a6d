// Package credentials specifies (and stubs) the credential-file loader
// interface that spec §1 places out of scope beyond its interface: loading
// "key=value, one per line" from <config_dir>/credentials, with an env-var
// override per provider, and optional at-rest encryption of stored values.
//
// Adapted from the teacher's internal/secrets/dotenv.go key=value parser.
package credentials

import (
	"bufio"
	"os"
	"strings"

	"github.com/dohr-michael/ikigai/internal/ikerr"
)

// Store holds resolved provider credentials loaded from a credentials file,
// with environment variables taking precedence per provider.
type Store struct {
	values map[string]string
}

// envOverride maps a provider name to the environment variable that
// overrides its credentials-file entry.
var envOverride = map[string]string{
	"anthropic": "ANTHROPIC_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"google":    "GOOGLE_API_KEY",
}

// Load reads a key=value credentials file. A missing file yields an empty
// Store rather than an error, since env-var overrides may fully cover the
// configured providers.
func Load(path string) (*Store, error) {
	values := map[string]string{}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Store{values: values}, nil
		}
		return nil, ikerr.Wrap(ikerr.IO, "open credentials file", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		values[strings.TrimSpace(key)] = unquote(strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, ikerr.Wrap(ikerr.IO, "scan credentials file", err)
	}
	return &Store{values: values}, nil
}

// Get resolves the credential for provider, preferring the provider's
// environment-variable override over the credentials-file entry.
func (s *Store) Get(provider string) (string, bool) {
	if envVar, ok := envOverride[provider]; ok {
		if v := os.Getenv(envVar); v != "" {
			return v, true
		}
	}
	v, ok := s.values[provider]
	return v, ok
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
