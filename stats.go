package incremental

import "time"

// Stats represents per-session counters for one pipeline.
type Stats struct {
	Cycles       int           // completed watch-driven build cycles
	Filtered     int           // files moved aside by the filter stage, cumulative
	Restored     int           // files restored from cache, cumulative
	Dropped      int           // filtered files with no cache entry, cumulative
	CacheEntries int           // current cache size in entries
	CacheBytes   int64         // current cache size in content bytes
	OldestEntry  time.Duration // age of the oldest cached snapshot
	NewestEntry  time.Duration // age of the newest cached snapshot
}

// Stats returns a snapshot of the session counters.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := p.stats
	stats.CacheEntries = len(p.cache)

	var oldest, newest time.Time
	for _, s := range p.cache {
		stats.CacheBytes += int64(len(s.file.Contents))
		if oldest.IsZero() || s.at.Before(oldest) {
			oldest = s.at
		}
		if newest.IsZero() || s.at.After(newest) {
			newest = s.at
		}
	}

	now := p.nowFunc()
	if !oldest.IsZero() {
		stats.OldestEntry = now.Sub(oldest)
	}
	if !newest.IsZero() {
		stats.NewestEntry = now.Sub(newest)
	}
	return stats
}
