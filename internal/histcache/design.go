package histcache

import (
	"encoding/json"
	"time"

	"github.com/oakline/wallbed-studio/internal/domain"
)

const (
	designHistoryKey = "wallbed_design_history"

	// DesignRetention is how long a cached design stays loadable.
	DesignRetention = 30 * 24 * time.Hour

	// DesignCap bounds the cached designs to the most recent
	// generations, independent of the time-based expiry.
	DesignCap = 3
)

// DesignCache is the sliding window of recent design generations.
type DesignCache struct {
	store Store
	now   func() time.Time
}

// NewDesignCache creates a design cache over the given store.
func NewDesignCache(store Store) *DesignCache {
	return &DesignCache{store: store, now: time.Now}
}

// Load returns cached designs still within the retention window,
// newest last, at most DesignCap of them.
func (c *DesignCache) Load() []domain.WallbedConfig {
	raw, ok := c.store.Get(designHistoryKey)
	if !ok {
		return nil
	}

	var designs []domain.WallbedConfig
	if err := json.Unmarshal([]byte(raw), &designs); err != nil {
		// A corrupt slot is dropped rather than surfaced.
		c.store.Clear(designHistoryKey)
		return nil
	}

	return c.trim(designs)
}

// Append adds a frozen design snapshot and rewrites the slot.
func (c *DesignCache) Append(design domain.WallbedConfig) {
	if design.Timestamp.IsZero() {
		design.Timestamp = c.now()
	}
	designs := append(c.Load(), design)
	c.save(designs)
}

// Clear drops the cached designs.
func (c *DesignCache) Clear() {
	c.store.Clear(designHistoryKey)
}

func (c *DesignCache) save(designs []domain.WallbedConfig) {
	raw, err := json.Marshal(c.trim(designs))
	if err != nil {
		return
	}
	c.store.Set(designHistoryKey, string(raw), DesignRetention)
}

func (c *DesignCache) trim(designs []domain.WallbedConfig) []domain.WallbedConfig {
	cutoff := c.now().Add(-DesignRetention)
	kept := make([]domain.WallbedConfig, 0, len(designs))
	for _, d := range designs {
		if d.Timestamp.IsZero() || d.Timestamp.Before(cutoff) {
			continue
		}
		kept = append(kept, d)
	}
	if len(kept) > DesignCap {
		kept = kept[len(kept)-DesignCap:]
	}
	return kept
}
