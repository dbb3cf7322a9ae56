package engine

import (
	"strings"

	"github.com/google/uuid"
)

// newRequestID returns a short id carried by one order attempt in logs and
// in the order's link id.
func newRequestID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
