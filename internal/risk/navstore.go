package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NAVSnapshot is the durable form of a HardLimits session, keyed by trading
// day so a process restart mid-session does not forget the drawdown fuse
// and re-open a trade stream that should stay halted.
type NAVSnapshot struct {
	NAV         float64   `json:"nav"`
	DayStartNAV float64   `json:"day_start_nav"`
	Breached    bool      `json:"breached"`
	BreachMsg   string    `json:"breach_msg,omitempty"`
	SavedAt     time.Time `json:"saved_at"`
}

// NAVStore persists NAV snapshots to Redis, following this codebase's
// Redis-cache idiom (JSON-marshaled value under a prefixed key with a TTL)
// rather than a bespoke wire format.
type NAVStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewNAVStore builds a NAVStore against an existing Redis client.
func NewNAVStore(client *redis.Client) *NAVStore {
	return &NAVStore{client: client, keyPrefix: "execcore:nav:", ttl: 48 * time.Hour}
}

// Save writes the current HardLimits state under the given session key
// (typically the trading day, e.g. "2026-07-31").
func (s *NAVStore) Save(ctx context.Context, sessionKey string, h *HardLimits) error {
	snap := NAVSnapshot{
		NAV:         h.nav,
		DayStartNAV: h.dayStartNAV,
		Breached:    h.breached,
		BreachMsg:   h.breachMsg,
		SavedAt:     time.Now(),
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal nav snapshot: %w", err)
	}
	return s.client.Set(ctx, s.keyPrefix+sessionKey, data, s.ttl).Err()
}

// Load restores a HardLimits state saved earlier in the same session. It
// returns (false, nil) on a cache miss rather than an error, since a missing
// snapshot just means a fresh session.
func (s *NAVStore) Load(ctx context.Context, sessionKey string) (NAVSnapshot, bool, error) {
	raw, err := s.client.Get(ctx, s.keyPrefix+sessionKey).Result()
	if err == redis.Nil {
		return NAVSnapshot{}, false, nil
	}
	if err != nil {
		return NAVSnapshot{}, false, fmt.Errorf("load nav snapshot: %w", err)
	}
	var snap NAVSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return NAVSnapshot{}, false, fmt.Errorf("unmarshal nav snapshot: %w", err)
	}
	return snap, true, nil
}

// Restore applies a loaded snapshot onto a freshly constructed HardLimits,
// used at startup before the engine begins taking ticks.
func (h *HardLimits) Restore(snap NAVSnapshot) {
	h.nav = snap.NAV
	h.dayStartNAV = snap.DayStartNAV
	h.breached = snap.Breached
	h.breachMsg = snap.BreachMsg
}
