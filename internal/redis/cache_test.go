package redisclient

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/barangay-nit/eservices/internal/schedule"
)

func TestSlotCacheSkipsWriteAfterInvalidate(t *testing.T) {
	rdb := testRedis(t)
	c := NewSlotCache(rdb, time.Minute)
	ctx := context.Background()
	day := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)
	before := []schedule.TimeOfDay{schedule.NewTimeOfDay(13, 0), schedule.NewTimeOfDay(14, 0)}

	gen, ok := c.Generation(ctx, day, "Mental Health")
	if !ok || gen != 0 {
		t.Fatalf("generation = %d, %t", gen, ok)
	}

	c.Invalidate(ctx, day, "Mental Health")
	c.SetSlots(ctx, day, "Mental Health", gen, before)

	if got, hit := c.GetSlots(ctx, day, "Mental Health"); hit {
		t.Fatalf("stale list cached: %v", got)
	}

	gen, _ = c.Generation(ctx, day, "Mental Health")
	if gen != 1 {
		t.Fatalf("generation after invalidate = %d", gen)
	}
	after := before[1:]
	c.SetSlots(ctx, day, "Mental Health", gen, after)

	got, hit := c.GetSlots(ctx, day, "Mental Health")
	if !hit || !reflect.DeepEqual(got, after) {
		t.Fatalf("cached = %v, %t", got, hit)
	}
}

func TestSlotCacheMissWhenRedisUnreachable(t *testing.T) {
	rdb := unreachableRedis()
	defer rdb.Close()
	c := NewSlotCache(rdb, time.Minute)
	day := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)

	if _, ok := c.Generation(context.Background(), day, "Other"); ok {
		t.Fatal("generation should be unusable without redis")
	}
	if _, hit := c.GetSlots(context.Background(), day, "Other"); hit {
		t.Fatal("expected miss")
	}
}
