package engine

import (
	"time"

	"github.com/google/uuid"
)

// Clock supplies event timestamps. Sequence numbers, not time, are
// authoritative for ordering; the clock only annotates payloads.
type Clock interface {
	Now() time.Time
}

// SystemClock 默认时钟。
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// IDSource hands out globally unique opaque identifiers for orders and
// trades.
type IDSource interface {
	NewID() string
}

// UUIDSource 默认 ID 来源。
type UUIDSource struct{}

func (UUIDSource) NewID() string {
	return uuid.NewString()
}
