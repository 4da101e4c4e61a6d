// Vault adds optional at-rest encryption of credential values using
// filippo.io/age, mirroring the teacher's internal/secrets/age.go almost
// exactly: the encryption concern is identical, only the path and package
// name move to the ikigai credential store.
package credentials

import (
	"bytes"
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"

	"github.com/dohr-michael/ikigai/internal/config"
	"github.com/dohr-michael/ikigai/internal/ikerr"
)

const encPrefix = "ENC[age:"
const encSuffix = "]"

// KeyPath returns the default age identity path: <config_dir>/.age-key.
func KeyPath() string {
	return filepath.Join(config.ConfigDir(), ".age-key")
}

// GenerateIdentity creates an X25519 key pair at path if one does not
// already exist.
func GenerateIdentity(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return ikerr.Wrap(ikerr.IO, "generate age identity", err)
	}

	content := "# ikigai credential key\n# public key: " + identity.Recipient().String() + "\n" + identity.String() + "\n"

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ikerr.Wrap(ikerr.IO, "create key directory", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return ikerr.Wrap(ikerr.IO, "write age key", err)
	}
	return nil
}

// LoadIdentity reads an age private key from path.
func LoadIdentity(path string) (*age.X25519Identity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ikerr.Wrap(ikerr.IO, "open age key", err)
	}
	defer f.Close()

	identities, err := age.ParseIdentities(f)
	if err != nil {
		return nil, ikerr.Wrap(ikerr.Parse, "parse age identities", err)
	}
	if len(identities) == 0 {
		return nil, ikerr.New(ikerr.Parse, "no identities found in key file")
	}
	id, ok := identities[0].(*age.X25519Identity)
	if !ok {
		return nil, ikerr.New(ikerr.Parse, "unexpected identity type in key file")
	}
	return id, nil
}

// Encrypt encrypts plaintext for recipient and returns an ENC[age:...] blob
// suitable for storage in a credentials file.
func Encrypt(plaintext string, recipient *age.X25519Recipient) (string, error) {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return "", ikerr.Wrap(ikerr.IO, "age encrypt init", err)
	}
	if _, err := io.WriteString(w, plaintext); err != nil {
		return "", ikerr.Wrap(ikerr.IO, "age encrypt write", err)
	}
	if err := w.Close(); err != nil {
		return "", ikerr.Wrap(ikerr.IO, "age encrypt close", err)
	}
	return encPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()) + encSuffix, nil
}

// Decrypt decrypts an ENC[age:...] blob back to plaintext.
func Decrypt(blob string, identity *age.X25519Identity) (string, error) {
	if !IsEncrypted(blob) {
		return "", ikerr.New(ikerr.InvalidArg, "not an encrypted credential blob")
	}

	encoded := blob[len(encPrefix) : len(blob)-len(encSuffix)]
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ikerr.Wrap(ikerr.Parse, "base64 decode credential blob", err)
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return "", ikerr.Wrap(ikerr.IO, "age decrypt", err)
	}
	plainBytes, err := io.ReadAll(r)
	if err != nil {
		return "", ikerr.Wrap(ikerr.IO, "read decrypted credential", err)
	}
	return string(plainBytes), nil
}

// IsEncrypted reports whether s is an ENC[age:...] blob.
func IsEncrypted(s string) bool {
	return strings.HasPrefix(s, encPrefix) && strings.HasSuffix(s, encSuffix)
}
