package dicom

import (
	"math/big"
	"regexp"

	"github.com/google/uuid"
)

// NewUID mints a UID of the form 2.25.<decimal value of a random UUID>,
// as described in PS3.5 Annex B.2.
func NewUID() string {
	id := uuid.New()
	n := new(big.Int).SetBytes(id[:])
	return "2.25." + n.String()
}

var uidPattern = regexp.MustCompile(`^(0|[1-9][0-9]*)(\.(0|[1-9][0-9]*))*$`)

// IsValidUID checks the UI syntax: at most 64 characters, dot-separated
// numeric components without leading zeros.
func IsValidUID(uid string) bool {
	return len(uid) > 0 && len(uid) <= 64 && uidPattern.MatchString(uid)
}
