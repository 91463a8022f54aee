package logger

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// JournalEntry is one aggregated warn or error line.
type JournalEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// Journal keeps a bounded in-memory view of recent warn and error logs,
// aggregated by level, message, fields, and caller. Nothing leaves the
// process; the events endpoint reads it on demand.
type Journal struct {
	maxEntries int
	logMap     map[string]*JournalEntry
	mutex      sync.Mutex
}

func NewJournal(maxEntries int) *Journal {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	return &Journal{
		maxEntries: maxEntries,
		logMap:     make(map[string]*JournalEntry),
	}
}

// Add records one log line, folding repeats into their existing entry.
func (j *Journal) Add(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := j.generateKey(level, message, fields, caller)

	j.mutex.Lock()
	defer j.mutex.Unlock()

	if entry, exists := j.logMap[key]; exists {
		// Update existing entry
		entry.Count++
		entry.LastSeen = now
		return
	}

	if len(j.logMap) >= j.maxEntries {
		j.evictOldest()
	}

	j.logMap[key] = &JournalEntry{
		Level:     level,
		Message:   message,
		Fields:    fields,
		Caller:    caller,
		Count:     1,
		FirstSeen: now,
		LastSeen:  now,
	}
}

// evictOldest drops the entry whose LastSeen is stalest. Callers hold the
// mutex.
func (j *Journal) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for key, entry := range j.logMap {
		if oldestKey == "" || entry.LastSeen.Before(oldest) {
			oldestKey = key
			oldest = entry.LastSeen
		}
	}
	if oldestKey != "" {
		delete(j.logMap, oldestKey)
	}
}

// Recent returns up to limit entries, most recently seen first.
func (j *Journal) Recent(limit int) []JournalEntry {
	j.mutex.Lock()
	entries := make([]JournalEntry, 0, len(j.logMap))
	for _, entry := range j.logMap {
		entries = append(entries, *entry)
	}
	j.mutex.Unlock()

	sort.Slice(entries, func(a, b int) bool {
		return entries[a].LastSeen.After(entries[b].LastSeen)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// Len reports the number of distinct entries currently held.
func (j *Journal) Len() int {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	return len(j.logMap)
}

func (j *Journal) generateKey(level, message string, fields map[string]interface{}, caller string) string {
	// Create a consistent hash from level + message + fields + caller
	data := struct {
		Level   string                 `json:"level"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields"`
		Caller  string                 `json:"caller"`
	}{
		Level:   level,
		Message: message,
		Fields:  fields,
		Caller:  caller,
	}

	jsonData, _ := json.Marshal(data)
	hash := sha256.Sum256(jsonData)
	return fmt.Sprintf("%x", hash)
}
