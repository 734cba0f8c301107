package incremental

// Filter removes provably-unchanged files from the batch before the
// slow stage runs, moving them into the session's filtered-aside set
// for the cache stage to restore afterward. It mutates batch in place,
// only ever narrowing it, and invokes done exactly once with a nil
// error: filtering never fails.
//
// Until the watcher's initial scan completes the stage passes
// everything through, so the first build is always a full one.
func (p *Pipeline) Filter(batch Batch, host Host, done func(error)) {
	p.mu.Lock()

	if !p.ready {
		p.log.Debug("filter pass-through: initial scan not complete")
		p.mu.Unlock()
		// Signalled outside the lock: hosts advance the cycle from
		// inside the callback.
		signal(done, nil)
		return
	}

	p.expandForceGlobs(batch)
	propagate(batch, p.changes, p.resolvers, p.baseDir)

	kept, moved := 0, 0
	for path, file := range batch {
		if p.keepInBatch(path) {
			kept++
			continue
		}
		p.aside[path] = file
		delete(batch, path)
		moved++
	}
	p.stats.Filtered += moved
	p.log.Debug("filter complete", "kept", kept, "filtered", moved)
	p.mu.Unlock()
	signal(done, nil)
}

// keepInBatch reports whether a batch path must go through the slow
// stage this cycle.
func (p *Pipeline) keepInBatch(path string) bool {
	if p.changes.fileModified(path) || p.changes.underChangedDir(path) {
		return true
	}
	for _, target := range p.changes.forceTargets {
		if path == target || matchGlob(path, target) {
			return true
		}
	}
	return false
}

// expandForceGlobs applies the configured force-rebuild pairs: when a
// batch file matching a source glob is modified this cycle, every
// batch file matching the paired target glob is marked modified too.
func (p *Pipeline) expandForceGlobs(batch Batch) {
	for srcGlob, targetGlob := range p.forceGlobs {
		triggered := false
		for path := range batch {
			if !matchGlob(path, srcGlob) {
				continue
			}
			if p.changes.fileModified(path) || p.changes.underChangedDir(path) {
				triggered = true
				break
			}
		}
		if !triggered {
			continue
		}
		for path := range batch {
			if matchGlob(path, targetGlob) {
				p.changes.MarkModified(path)
			}
		}
	}
}
