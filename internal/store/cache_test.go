package store

import (
	"fmt"
	"testing"
	"time"
)

type record struct {
	ID   string
	Name string
}

func TestRecordCache_Basic(t *testing.T) {
	cache := NewRecordCache[*record](100, time.Hour)

	// Test empty cache
	if _, ok := cache.Get("track1"); ok {
		t.Error("Empty cache should not have any records")
	}

	cache.Add("track1", &record{ID: "track1", Name: "Song"})
	got, ok := cache.Get("track1")
	if !ok {
		t.Fatal("Cache should have track1 after adding")
	}
	if got.Name != "Song" {
		t.Errorf("Expected name Song, got %s", got.Name)
	}

	// Overwriting replaces the record
	cache.Add("track1", &record{ID: "track1", Name: "Renamed"})
	if got, _ := cache.Get("track1"); got.Name != "Renamed" {
		t.Errorf("Expected overwritten name Renamed, got %s", got.Name)
	}
}

func TestRecordCache_IgnoresEmptyID(t *testing.T) {
	cache := NewRecordCache[*record](100, time.Hour)

	cache.Add("", &record{})
	if _, ok := cache.Get(""); ok {
		t.Error("Cache should ignore empty ids")
	}
}

func TestRecordCache_MaxCapacity(t *testing.T) {
	maxRecords := 5
	cache := NewRecordCache[*record](maxRecords, time.Hour)

	for i := 0; i < maxRecords+3; i++ {
		id := fmt.Sprintf("track%d", i)
		cache.Add(id, &record{ID: id})
	}

	// The most recently added records should be present
	for _, id := range []string{"track5", "track6", "track7"} {
		if _, ok := cache.Get(id); !ok {
			t.Errorf("Cache should have recent record %s", id)
		}
	}

	for _, id := range []string{"track0", "track1", "track2"} {
		if _, ok := cache.Get(id); ok {
			t.Errorf("Oldest record %s should have been evicted", id)
		}
	}
}

func TestRecordCache_Expiry(t *testing.T) {
	cache := NewRecordCache[*record](10, 20*time.Millisecond)

	cache.Add("user1", &record{ID: "user1"})
	if _, ok := cache.Get("user1"); !ok {
		t.Fatal("Record should be present before expiry")
	}

	time.Sleep(60 * time.Millisecond)

	if _, ok := cache.Get("user1"); ok {
		t.Error("Record should have expired")
	}
}

func TestRecordCache_Disabled(t *testing.T) {
	for _, cache := range []*RecordCache[*record]{
		NewRecordCache[*record](0, time.Hour),
		NewRecordCache[*record](10, 0),
	} {
		cache.Add("track1", &record{ID: "track1"})
		if _, ok := cache.Get("track1"); ok {
			t.Error("Disabled cache should never return records")
		}
	}
}

func BenchmarkRecordCache_Get(b *testing.B) {
	cache := NewRecordCache[*record](10000, time.Hour)

	for i := 0; i < 1000; i++ {
		id := fmt.Sprintf("track_%d", i)
		cache.Add(id, &record{ID: id})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Get(fmt.Sprintf("track_%d", i%1000))
	}
}
