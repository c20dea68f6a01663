package mcpgo

import (
	"context"
	"sync"
	"time"
)

const healthTTL = 10 * time.Second

// healthCache holds the last health result for ttl
type healthCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	checked time.Time
	err     error
}

// get returns the cached result, or runs check when it has expired. Callers
// arriving while a check runs wait for it and share its result.
func (h *healthCache) get(ctx context.Context, check func(context.Context) error) (cached bool, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.checked.IsZero() && time.Since(h.checked) < h.ttl {
		return true, h.err
	}
	h.err = check(ctx)
	h.checked = time.Now()
	return false, h.err
}

