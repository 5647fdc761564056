package server

import (
	"testing"
	"time"
)

func TestClientLimitersPerIP(t *testing.T) {
	limiters := newClientLimiters(1, 1)

	if !limiters.get("10.0.0.1").Allow() {
		t.Fatal("Expected the first request from an IP to pass")
	}
	if limiters.get("10.0.0.1").Allow() {
		t.Error("Expected the burst to be exhausted for that IP")
	}
	if !limiters.get("10.0.0.2").Allow() {
		t.Error("Expected a different IP to have its own bucket")
	}
}

func TestClientLimitersEvictIdle(t *testing.T) {
	limiters := newClientLimiters(1, 1)
	limiters.get("10.0.0.1")
	limiters.get("10.0.0.2")

	if limiters.size() != 2 {
		t.Fatalf("Expected 2 buckets, got %d", limiters.size())
	}

	// Age one entry past the idle window.
	limiters.mu.Lock()
	limiters.limiters["10.0.0.1"].lastSeen = time.Now().Add(-time.Hour)
	limiters.mu.Unlock()

	limiters.evictIdle(limiterIdleTTL)

	if limiters.size() != 1 {
		t.Fatalf("Expected the idle bucket to be evicted, got %d", limiters.size())
	}
	limiters.mu.Lock()
	_, kept := limiters.limiters["10.0.0.2"]
	limiters.mu.Unlock()
	if !kept {
		t.Error("Expected the recently seen bucket to survive")
	}
}
