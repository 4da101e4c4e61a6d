package credentials

import (
	"path/filepath"
	"testing"

	"filippo.io/age"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndLoadIdentity(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".age-key")
	require.NoError(t, GenerateIdentity(path))

	id, err := LoadIdentity(path)
	require.NoError(t, err)
	require.NotNil(t, id)

	// idempotent
	require.NoError(t, GenerateIdentity(path))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	identity, err := age.GenerateX25519Identity()
	require.NoError(t, err)

	blob, err := Encrypt("sk-super-secret", identity.Recipient())
	require.NoError(t, err)
	require.True(t, IsEncrypted(blob))

	plain, err := Decrypt(blob, identity)
	require.NoError(t, err)
	require.Equal(t, "sk-super-secret", plain)
}

func TestDecryptRejectsPlaintext(t *testing.T) {
	identity, err := age.GenerateX25519Identity()
	require.NoError(t, err)

	_, err = Decrypt("not-encrypted", identity)
	require.Error(t, err)
}
