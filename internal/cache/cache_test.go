package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/kikuchi0790/ukfr-smbc-app-sub000/pkg/types"
)

func samplePassages() []types.RetrievedPassage {
	return []types.RetrievedPassage{
		{MaterialID: "Checkpoint", Page: 12, Quote: "the FSCS protects deposits", Score: 0.91, Offset: 120},
		{MaterialID: "Checkpoint", Page: 45, Quote: "compensation limits apply", Score: 0.84, Offset: 0},
	}
}

func TestKey(t *testing.T) {
	if Key("q1", "anything") != Key("q1", "something else") {
		t.Error("stable ID should determine the key regardless of query text")
	}
	if Key("", "what is fscs") != Key("", "what is fscs") {
		t.Error("same normalized query must produce the same key")
	}
	if Key("", "what is fscs") == Key("", "what is fos") {
		t.Error("different queries must produce different keys")
	}
	if Key("q1", "") == Key("q2", "") {
		t.Error("different stable IDs must produce different keys")
	}
}

func TestGetSetRoundTrip(t *testing.T) {
	c := New(10, time.Minute)
	key := Key("q1", "")

	if _, ok := c.Get(key); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Set(key, samplePassages())
	got, ok := c.Get(key)
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if len(got) != 2 || got[0].Page != 12 {
		t.Errorf("unexpected cached passages: %+v", got)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	c := New(10, time.Minute)
	key := Key("q1", "")
	c.Set(key, samplePassages())

	first, _ := c.Get(key)
	first[0].Quote = "mutated"

	second, _ := c.Get(key)
	if second[0].Quote == "mutated" {
		t.Error("cache returned a shared slice; callers can corrupt entries")
	}
}

func TestTTLExpiry(t *testing.T) {
	c := New(10, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	key := Key("q1", "")
	c.Set(key, samplePassages())

	// Still inside the TTL window.
	now = now.Add(59 * time.Second)
	if _, ok := c.Get(key); !ok {
		t.Fatal("expected hit inside TTL window")
	}

	// Past the TTL: the hit becomes a miss and the entry is evicted.
	now = now.Add(2 * time.Minute)
	if _, ok := c.Get(key); ok {
		t.Fatal("expected miss after TTL elapsed")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry was not evicted, len = %d", c.Len())
	}
}

func TestCapacityBound(t *testing.T) {
	c := New(5, time.Minute)
	for i := 0; i < 100; i++ {
		c.Set(Key(fmt.Sprintf("q%d", i), ""), samplePassages())
	}
	if c.Len() > 5 {
		t.Errorf("cache exceeded capacity: len = %d", c.Len())
	}
}

func TestLRUEviction(t *testing.T) {
	c := New(2, time.Minute)
	k1, k2, k3 := Key("q1", ""), Key("q2", ""), Key("q3", "")

	c.Set(k1, samplePassages())
	c.Set(k2, samplePassages())

	// Touch k1 so k2 becomes the eviction candidate.
	if _, ok := c.Get(k1); !ok {
		t.Fatal("expected hit for q1")
	}

	c.Set(k3, samplePassages())
	if _, ok := c.Get(k2); ok {
		t.Error("expected q2 to be evicted as least recently used")
	}
	if _, ok := c.Get(k1); !ok {
		t.Error("expected q1 to survive after promotion")
	}
}

func TestDefaults(t *testing.T) {
	c := New(0, 0)
	if c.ttl != DefaultTTL {
		t.Errorf("ttl = %v, want %v", c.ttl, DefaultTTL)
	}
	c.Set(Key("q", ""), nil)
	if c.Len() != 1 {
		t.Errorf("len = %d, want 1", c.Len())
	}
}
