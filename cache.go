package incremental

import "time"

// snapshot is one cached file: a deep copy of its state at the end of
// a cycle plus a content fingerprint for cheap change detection.
type snapshot struct {
	file *File
	sum  uint64
	at   time.Time
}

// Cache runs after the slow stage, whether or not it succeeded. It
// snapshots the just-built batch, reconciles removals and renames
// against the session cache, splices the filtered-aside files' prior
// outputs back into the batch, and merges the snapshot into the cache.
// Invokes done exactly once; the stage itself never fails.
func (p *Pipeline) Cache(batch Batch, host Host, done func(error)) {
	p.mu.Lock()

	// Snapshot first, before restored entries are spliced in, so the
	// cache only ever holds output the slow stage actually produced.
	now := p.nowFunc()
	snap := make(map[string]*snapshot, len(batch))
	for path, file := range batch {
		c := file.clone()
		snap[path] = &snapshot{file: c, sum: c.fingerprint(), at: now}
	}

	if p.primed {
		p.reconcileRemovals()
		p.restoreAside(batch)
	}
	p.aside = make(map[string]*File)

	skipped := 0
	for path, s := range snap {
		if old, ok := p.cache[path]; ok && old.sum == s.sum {
			skipped++
			continue
		}
		p.cache[path] = s
	}
	p.primed = true
	p.log.Debug("cache merged", "entries", len(p.cache), "unchanged", skipped)
	p.mu.Unlock()
	// Signalled outside the lock: hosts advance the cycle from inside
	// the callback.
	signal(done, nil)
}

// reconcileRemovals drops cache entries for files and directories
// deleted since the last cycle. A removed path absent from the cache
// is retried under its renamed form.
func (p *Pipeline) reconcileRemovals() {
	for path := range p.changes.removedFiles {
		key := path
		if _, ok := p.cache[key]; !ok {
			key = p.rename.apply(path)
			if _, ok := p.cache[key]; !ok {
				// Nothing to resolve against; the entry stays until
				// the cycle-boundary clear.
				continue
			}
		}
		delete(p.cache, key)
		delete(p.changes.removedFiles, path)
	}
	if len(p.changes.removedDirs) == 0 {
		return
	}
	for path := range p.cache {
		if underAny(path, p.changes.removedDirs) {
			delete(p.cache, path)
		}
	}
}

// restoreAside copies the configured properties from the cached
// snapshot onto each filtered-aside record and re-inserts it into the
// batch under the resolved path. Entries with no cache counterpart
// cannot be restored and are dropped.
func (p *Pipeline) restoreAside(batch Batch) {
	for path, file := range p.aside {
		key := path
		cached, ok := p.cache[key]
		if !ok {
			key = p.rename.apply(path)
			cached, ok = p.cache[key]
		}
		if !ok {
			p.stats.Dropped++
			p.log.Debug("no cached output, dropping", "path", path)
			continue
		}
		for _, prop := range p.props {
			copyProperty(file, cached.file, prop)
		}
		batch[key] = file
		p.stats.Restored++
	}
}
