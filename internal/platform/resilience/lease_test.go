package resilience

import (
	"testing"
	"time"
)

func TestLeaseGuard_AcquireAndRelease(t *testing.T) {
	g := NewLeaseGuard()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	if !g.Acquire("sync-live", time.Minute) {
		t.Fatal("expected first acquire to succeed")
	}
	if g.Acquire("sync-live", time.Minute) {
		t.Fatal("expected second acquire to be rejected while held")
	}
	if !g.Held("sync-live") {
		t.Fatal("expected lease to be held")
	}

	// A different job name is an independent lease.
	if !g.Acquire("sync-matches", time.Minute) {
		t.Fatal("expected unrelated lease to succeed")
	}

	g.Release("sync-live")
	if g.Held("sync-live") {
		t.Fatal("expected lease released")
	}
	if !g.Acquire("sync-live", time.Minute) {
		t.Fatal("expected acquire after release to succeed")
	}
}

func TestLeaseGuard_ExpiryFreesTheLease(t *testing.T) {
	g := NewLeaseGuard()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	if !g.Acquire("sync-live", time.Minute) {
		t.Fatal("expected acquire to succeed")
	}

	now = now.Add(59 * time.Second)
	if g.Acquire("sync-live", time.Minute) {
		t.Fatal("expected acquire before expiry to be rejected")
	}

	now = now.Add(2 * time.Second)
	if g.Held("sync-live") {
		t.Fatal("expected expired lease to read as free")
	}
	if !g.Acquire("sync-live", time.Minute) {
		t.Fatal("expected acquire after expiry to succeed")
	}
}

func TestLeaseGuard_RejectsInvalidInput(t *testing.T) {
	g := NewLeaseGuard()

	if g.Acquire("", time.Minute) {
		t.Fatal("expected empty name to be rejected")
	}
	if g.Acquire("sync-live", 0) {
		t.Fatal("expected zero ttl to be rejected")
	}
}
