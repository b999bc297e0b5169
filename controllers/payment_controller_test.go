package controllers

import (
	"context"
	"os"
	"testing"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCallbackDedupeWithoutRedis(t *testing.T) {
	pc := NewPaymentController(nil, nil, nil)
	ctx := context.Background()

	if pc.callbackSeen(ctx, "ref") {
		t.Error("callbackSeen reported true without a Redis client")
	}
	// Must not panic.
	pc.markCallbackSeen(ctx, "ref")
}

func TestCallbackDedupeMarkedOnlyAfterSettlement(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Fatalf("pinging test Redis: %v", err)
	}

	pc := NewPaymentController(nil, rdb, nil)
	reference := "cb-" + primitive.NewObjectID().Hex()
	defer rdb.Del(ctx, "opay_cb:"+reference)

	// The check itself must leave no trace, so a retry after a failed
	// settlement is processed again rather than short-circuited.
	if pc.callbackSeen(ctx, reference) {
		t.Fatal("fresh reference reported as seen")
	}
	if pc.callbackSeen(ctx, reference) {
		t.Fatal("checking the reference marked it as seen")
	}

	pc.markCallbackSeen(ctx, reference)
	if !pc.callbackSeen(ctx, reference) {
		t.Error("reference not seen after marking")
	}
}
