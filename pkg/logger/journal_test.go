package logger

import (
	"testing"
	"time"
)

func TestJournalAggregatesRepeats(t *testing.T) {
	j := NewJournal(10)
	j.Add("error", "boom", map[string]interface{}{"conn_id": 1}, "a.go:10")
	j.Add("error", "boom", map[string]interface{}{"conn_id": 1}, "a.go:10")

	if j.Len() != 1 {
		t.Fatalf("expected 1 aggregated entry, got %d", j.Len())
	}
	entries := j.Recent(10)
	if entries[0].Count != 2 {
		t.Fatalf("count %d", entries[0].Count)
	}
	if entries[0].LastSeen.Before(entries[0].FirstSeen) {
		t.Fatalf("last seen precedes first seen")
	}
}

func TestJournalDistinguishesFields(t *testing.T) {
	j := NewJournal(10)
	j.Add("error", "boom", map[string]interface{}{"conn_id": 1}, "a.go:10")
	j.Add("error", "boom", map[string]interface{}{"conn_id": 2}, "a.go:10")

	if j.Len() != 2 {
		t.Fatalf("expected distinct entries per field set, got %d", j.Len())
	}
}

func TestJournalEvictsOldest(t *testing.T) {
	j := NewJournal(2)
	j.Add("warn", "first", nil, "a.go:1")
	time.Sleep(2 * time.Millisecond)
	j.Add("warn", "second", nil, "a.go:2")
	time.Sleep(2 * time.Millisecond)
	j.Add("warn", "third", nil, "a.go:3")

	if j.Len() != 2 {
		t.Fatalf("expected bounded size 2, got %d", j.Len())
	}
	for _, e := range j.Recent(0) {
		if e.Message == "first" {
			t.Fatalf("oldest entry survived eviction")
		}
	}
}

func TestJournalRecentOrderAndLimit(t *testing.T) {
	j := NewJournal(10)
	j.Add("warn", "older", nil, "a.go:1")
	time.Sleep(2 * time.Millisecond)
	j.Add("error", "newer", nil, "a.go:2")

	entries := j.Recent(0)
	if len(entries) != 2 || entries[0].Message != "newer" {
		t.Fatalf("expected newest first, got %+v", entries)
	}

	entries = j.Recent(1)
	if len(entries) != 1 || entries[0].Message != "newer" {
		t.Fatalf("limit not applied, got %+v", entries)
	}
}

func TestLoggerFeedsJournal(t *testing.T) {
	j := NewJournal(10)
	l, err := New(&Config{Level: "debug", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	l.AttachJournal(j)

	l.Warn("slow frame", Int("conn_id", 2))
	l.Error("bad frame", String("why", "decode"))
	l.Info("routine line")

	// info lines stay out of the journal
	if j.Len() != 2 {
		t.Fatalf("expected 2 journaled entries, got %d", j.Len())
	}
	levels := map[string]bool{}
	for _, e := range j.Recent(0) {
		levels[e.Level] = true
	}
	if !levels["warn"] || !levels["error"] {
		t.Fatalf("unexpected levels %v", levels)
	}
}
