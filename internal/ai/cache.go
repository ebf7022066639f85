package ai

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/paperprofit/internal/modules/settings"
)

// CacheTTL is how long a generated stock list stays fresh.
const CacheTTL = 24 * time.Hour

// cachePayload is the JSON document stored in the settings row.
type cachePayload struct {
	StockList []string `json:"stock_list"`
	CachedAt  string   `json:"cached_at"`
	CacheKey  string   `json:"cache_key"`
}

// Cache stores generated stock lists in the settings table under the
// ai_cache category, keyed deterministically by (prompt, platform).
type Cache struct {
	settings *settings.Repository
	log      zerolog.Logger
}

// NewCache creates the cache.
func NewCache(repo *settings.Repository, log zerolog.Logger) *Cache {
	return &Cache{
		settings: repo,
		log:      log.With().Str("component", "ai_cache").Logger(),
	}
}

// Key derives the deterministic cache key for a prompt/platform pair.
func Key(prompt, platform string) string {
	h := fnv.New64a()
	h.Write([]byte(prompt))
	return fmt.Sprintf("ai_stock_list_cache_%d_%s", h.Sum64(), platform)
}

// Get returns the cached list if present and younger than CacheTTL.
func (c *Cache) Get(prompt, platform string) ([]string, bool) {
	key := Key(prompt, platform)
	setting, err := c.settings.GetByName(key)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache lookup failed")
		return nil, false
	}
	if setting == nil || setting.Parameters == "" {
		return nil, false
	}

	var payload cachePayload
	if err := json.Unmarshal([]byte(setting.Parameters), &payload); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache entry is not valid JSON")
		return nil, false
	}

	cachedAt, err := time.Parse(time.RFC3339, payload.CachedAt)
	if err != nil || time.Since(cachedAt) >= CacheTTL {
		return nil, false
	}
	if len(payload.StockList) == 0 {
		return nil, false
	}
	return payload.StockList, true
}

// Put upserts the cache entry; concurrent bot cycles race safely on the
// settings upsert.
func (c *Cache) Put(prompt, platform string, stockList []string) error {
	key := Key(prompt, platform)
	payload, err := json.Marshal(cachePayload{
		StockList: stockList,
		CachedAt:  time.Now().UTC().Format(time.RFC3339),
		CacheKey:  key,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cache payload: %w", err)
	}
	return c.settings.Upsert(key, string(payload), settings.CategoryAICache, true)
}
