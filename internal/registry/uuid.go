package registry

import (
	"encoding/base64"

	"github.com/google/uuid"
)

// NewUUID returns a unique 22-character base64url identifier (spec §3),
// the unpadded base64url encoding of a random uuid's 16 raw bytes.
func NewUUID() string {
	id := uuid.New()
	return base64.RawURLEncoding.EncodeToString(id[:])
}
