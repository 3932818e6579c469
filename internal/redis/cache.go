package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/barangay-nit/eservices/internal/schedule"
)

// generationTTL keeps a generation counter alive well past any cached entry.
const generationTTL = 24 * time.Hour

// SlotCache stores computed free slots per (date, service) for a short TTL.
// Redis failures degrade to a cache miss.
type SlotCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSlotCache(client *redis.Client, ttl time.Duration) *SlotCache {
	return &SlotCache{client: client, ttl: ttl}
}

func slotCacheKey(date time.Time, service string) string {
	return "slots:" + date.Format(schedule.DateLayout) + ":" + service
}

func slotGenerationKey(date time.Time, service string) string {
	return "slots-gen:" + date.Format(schedule.DateLayout) + ":" + service
}

func (c *SlotCache) GetSlots(ctx context.Context, date time.Time, service string) ([]schedule.TimeOfDay, bool) {
	raw, err := c.client.Get(ctx, slotCacheKey(date, service)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("slot cache get failed: %v", err)
		}
		return nil, false
	}

	var slots []schedule.TimeOfDay
	if err := json.Unmarshal(raw, &slots); err != nil {
		log.Printf("slot cache entry corrupt key=%s: %v", slotCacheKey(date, service), err)
		return nil, false
	}
	return slots, true
}

// Generation reports the current invalidation count. A missing counter is 0.
func (c *SlotCache) Generation(ctx context.Context, date time.Time, service string) (int64, bool) {
	gen, err := c.client.Get(ctx, slotGenerationKey(date, service)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, true
		}
		log.Printf("slot cache generation read failed: %v", err)
		return 0, false
	}
	return gen, true
}

// setIfGeneration writes KEYS[2] only while KEYS[1] still holds ARGV[1].
var setIfGeneration = redis.NewScript(`
local gen = redis.call("GET", KEYS[1])
if not gen then
  gen = "0"
end
if gen ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
return 1
`)

func (c *SlotCache) SetSlots(ctx context.Context, date time.Time, service string, gen int64, slots []schedule.TimeOfDay) {
	raw, err := json.Marshal(slots)
	if err != nil {
		return
	}

	keys := []string{slotGenerationKey(date, service), slotCacheKey(date, service)}
	stored, err := setIfGeneration.Run(ctx, c.client, keys, strconv.FormatInt(gen, 10), raw, c.ttl.Milliseconds()).Int()
	if err != nil {
		log.Printf("slot cache set failed: %v", err)
		return
	}
	if stored == 0 {
		log.Printf("slot cache set skipped key=%s: invalidated during read", keys[1])
	}
}

func (c *SlotCache) Invalidate(ctx context.Context, date time.Time, service string) {
	genKey := slotGenerationKey(date, service)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		pipe.Del(ctx, slotCacheKey(date, service))
		return nil
	})
	if err != nil {
		log.Printf("slot cache invalidate failed: %v", err)
	}
}

var _ schedule.SlotCache = (*SlotCache)(nil)
