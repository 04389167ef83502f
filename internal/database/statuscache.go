package database

import (
	"context"
	"encoding/json"
	"time"
)

const (
	pppoeCachePrefix = "naps:pppoe:"
	pppoeCacheTTL    = 30 * time.Second
)

// CachedPPPoEStatus is the per-username ONLINE/OFFLINE aggregate kept hot in
// Redis for dashboards. The core read API itself never caches; this is the
// caller-side cache in front of it.
type CachedPPPoEStatus struct {
	Username        string     `json:"username"`
	Online          bool       `json:"online"`
	NasIPAddress    string     `json:"nasipaddress"`
	FramedIPAddress string     `json:"framedipaddress"`
	AcctStartTime   *time.Time `json:"acctstarttime"`
	RefreshedAt     time.Time  `json:"refreshed_at"`
}

// GetCachedPPPoEStatus retrieves a status row from cache or returns nil.
func GetCachedPPPoEStatus(username string) *CachedPPPoEStatus {
	if Redis == nil {
		return nil
	}

	ctx := context.Background()
	data, err := Redis.Get(ctx, pppoeCachePrefix+username).Bytes()
	if err != nil {
		return nil // Cache miss
	}

	var st CachedPPPoEStatus
	if err := json.Unmarshal(data, &st); err != nil {
		return nil
	}
	return &st
}

// SetCachedPPPoEStatus stores a status row in cache.
func SetCachedPPPoEStatus(st *CachedPPPoEStatus) {
	if Redis == nil || st == nil {
		return
	}

	st.RefreshedAt = time.Now()
	data, err := json.Marshal(st)
	if err != nil {
		return
	}
	Redis.Set(context.Background(), pppoeCachePrefix+st.Username, data, pppoeCacheTTL)
}

// InvalidatePPPoEStatus drops a cached status row, used after state-changing
// intents so the next read reflects the database.
func InvalidatePPPoEStatus(username string) {
	if Redis == nil {
		return
	}
	Redis.Del(context.Background(), pppoeCachePrefix+username)
}
