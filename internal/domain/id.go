package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID produces an opaque identifier combining a short category prefix,
// the current time, and a random component. Two calls are overwhelmingly
// unlikely to collide; collisions are treated as theoretical and are not
// checked by the store.
func NewID(prefix string) string {
	if prefix == "" {
		prefix = "id"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixMilli(), suffix)
}
