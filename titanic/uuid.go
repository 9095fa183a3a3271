package titanic

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
)

// NewUUID returns a 32-character uppercase hexadecimal identifier derived
// from 16 bytes of crypto/rand entropy, per spec.md §4.1. Collisions are
// treated as a non-issue at any plausible request volume (128 bits of
// entropy, birthday bound well beyond this system's scale).
func NewUUID() (string, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", errors.Wrap(err, "reading UUID entropy")
	}
	return strings.ToUpper(hex.EncodeToString(raw[:])), nil
}
