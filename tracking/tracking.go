// Package tracking produces the public case identifiers handed to
// reporters, e.g. "PR-3F2A91BC".
package tracking

import (
	"strings"

	"github.com/google/uuid"
)

const (
	// Prefix marks every tracking id.
	Prefix = "PR-"

	suffixLen = 8
)

// CodeGen produces one candidate identifier. Injectable for tests.
type CodeGen func() string

// NewCode returns a fresh candidate tracking id: the fixed prefix plus
// 8 uppercase hex characters from a random UUID. Collisions are
// possible in principle, so callers check uniqueness and regenerate.
func NewCode() string {
	return Prefix + strings.ToUpper(uuid.NewString()[:suffixLen])
}

// OrgCode produces candidate organization codes, e.g. "PR-NGO-X4T9QZ".
// Random and collision-checked by the caller; never derived from row
// counts.
func OrgCode() string {
	const alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	raw := uuid.New()
	var b strings.Builder
	b.WriteString("PR-NGO-")
	for i := 0; i < 6; i++ {
		b.WriteByte(alphabet[int(raw[i])%len(alphabet)])
	}
	return b.String()
}
