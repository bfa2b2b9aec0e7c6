package booking

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// maxCodeAttempts bounds the generate-insert-retry loop on confirmation
// code collisions before giving up.
const maxCodeAttempts = 5

// NewConfirmationCode returns a short human-rememberable code: 8 uppercase
// hex characters, e.g. "3F9A01BC". Uniqueness is enforced by the ledger's
// unique index; callers retry on collision.
func NewConfirmationCode() string {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand never fails on supported platforms.
		panic("confirmation code entropy unavailable: " + err.Error())
	}
	return strings.ToUpper(hex.EncodeToString(buf[:]))
}
