package stage

import "time"

// EntryStats describes one registered stage
type EntryStats struct {
	Handle      Handle    `json:"handle"`
	SourcePath  string    `json:"source_path"`
	Modified    bool      `json:"modified"`
	LastAccess  time.Time `json:"last_access"`
	IdleSeconds float64   `json:"idle_seconds"`
}

// Stats is a point-in-time view of the registry
type Stats struct {
	Count         int          `json:"count"`
	MaxEntries    int          `json:"max_entries"`
	ModifiedCount int          `json:"modified_count"`
	Handles       []Handle     `json:"handles"`
	Entries       []EntryStats `json:"entries"`
}

// Stats lists entries least recently used first
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	s := Stats{
		Count:      len(r.entries),
		MaxEntries: r.maxEntries,
		Handles:    make([]Handle, 0, len(r.entries)),
		Entries:    make([]EntryStats, 0, len(r.entries)),
	}
	for _, e := range r.sortedLocked() {
		if e.modified {
			s.ModifiedCount++
		}
		s.Handles = append(s.Handles, e.handle)
		s.Entries = append(s.Entries, EntryStats{
			Handle:      e.handle,
			SourcePath:  e.sourcePath,
			Modified:    e.modified,
			LastAccess:  e.lastAccess,
			IdleSeconds: now.Sub(e.lastAccess).Seconds(),
		})
	}
	return s
}

// ToMap renders the stats as an envelope payload
func (s Stats) ToMap() map[string]interface{} {
	handles := make([]string, len(s.Handles))
	for i, h := range s.Handles {
		handles[i] = h.String()
	}
	entries := make([]map[string]interface{}, len(s.Entries))
	for i, e := range s.Entries {
		entries[i] = map[string]interface{}{
			"handle":       e.Handle.String(),
			"source_path":  e.SourcePath,
			"modified":     e.Modified,
			"last_access":  e.LastAccess.UTC().Format(time.RFC3339Nano),
			"idle_seconds": e.IdleSeconds,
		}
	}
	return map[string]interface{}{
		"count":          s.Count,
		"max_entries":    s.MaxEntries,
		"modified_count": s.ModifiedCount,
		"handles":        handles,
		"entries":        entries,
	}
}
