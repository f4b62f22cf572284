package handlers

import (
	"testing"
	"time"
)

func TestPendingCheckinsPutTake(t *testing.T) {
	t.Parallel()

	p := NewPendingCheckins()
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)

	p.Put(1, -100, "file-1", "uniq-1", now)

	photo, ok := p.Take(1, -100)
	if !ok {
		t.Fatal("expected a pending photo")
	}
	if photo.FileID != "file-1" || photo.UniqueID != "uniq-1" {
		t.Fatalf("photo = %+v", photo)
	}

	if _, ok := p.Take(1, -100); ok {
		t.Fatal("Take must consume the entry")
	}
}

// A photo whose confirmation never arrives is dropped once it ages out,
// instead of sitting in the map forever.
func TestPendingCheckinsPurgesStaleEntries(t *testing.T) {
	t.Parallel()

	p := NewPendingCheckins()
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)

	p.Put(1, -100, "abandoned", "uniq-1", now)
	p.Put(2, -100, "fresh", "uniq-2", now.Add(pendingTTL))

	// The second insert is past the first entry's staleness window.
	p.Put(3, -100, "later", "uniq-3", now.Add(pendingTTL+time.Second))

	if _, ok := p.Take(1, -100); ok {
		t.Fatal("stale entry must have been purged")
	}
	if photo, ok := p.Take(2, -100); !ok || photo.FileID != "fresh" {
		t.Fatalf("fresh entry lost: ok=%v photo=%+v", ok, photo)
	}
	if _, ok := p.Take(3, -100); !ok {
		t.Fatal("newest entry must survive")
	}
}
