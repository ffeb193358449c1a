package attempt

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GuestPrefix marks attempt ids that were never persisted.
const GuestPrefix = "guest-"

// NewGuestID returns "guest-<unix millis>-<random hex>".
func NewGuestID(now time.Time) string {
	sfx := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	return GuestPrefix + strconv.FormatInt(now.UnixMilli(), 10) + "-" + sfx
}

func IsGuestID(id string) bool {
	return strings.HasPrefix(id, GuestPrefix)
}
