package incremental

// ChangeSet accumulates filesystem changes between build cycles. The
// watcher feeds it; the filter and cache stages consume it. It is
// cleared exactly once, at the end of a completed cycle.
//
// A path never appears as both modified and removed at the same time:
// removal wins.
type ChangeSet struct {
	modifiedFiles map[string]struct{}
	removedFiles  map[string]struct{}
	modifiedDirs  []string
	removedDirs   []string
	forceTargets  []string
}

// NewChangeSet returns an empty change set.
func NewChangeSet() *ChangeSet {
	return &ChangeSet{
		modifiedFiles: make(map[string]struct{}),
		removedFiles:  make(map[string]struct{}),
	}
}

// MarkModified records a created or modified file. Ignored if the path
// is already recorded as removed.
func (cs *ChangeSet) MarkModified(path string) {
	if _, gone := cs.removedFiles[path]; gone {
		return
	}
	cs.modifiedFiles[path] = struct{}{}
}

// MarkRemoved records a deleted file, displacing any modified mark.
func (cs *ChangeSet) MarkRemoved(path string) {
	delete(cs.modifiedFiles, path)
	cs.removedFiles[path] = struct{}{}
}

// MarkDirModified records a created directory prefix.
func (cs *ChangeSet) MarkDirModified(dir string) {
	cs.modifiedDirs = appendDir(cs.modifiedDirs, dir)
}

// MarkDirRemoved records a deleted directory prefix.
func (cs *ChangeSet) MarkDirRemoved(dir string) {
	cs.removedDirs = appendDir(cs.removedDirs, dir)
}

// ForceTarget records a path whose rebuild is forced this cycle
// regardless of detected changes.
func (cs *ChangeSet) ForceTarget(path string) {
	cs.forceTargets = append(cs.forceTargets, path)
}

// fileModified reports whether the path itself carries a modified mark.
func (cs *ChangeSet) fileModified(path string) bool {
	_, ok := cs.modifiedFiles[path]
	return ok
}

// fileRemoved reports whether the path itself carries a removed mark.
func (cs *ChangeSet) fileRemoved(path string) bool {
	_, ok := cs.removedFiles[path]
	return ok
}

// underChangedDir reports whether the path lies under any modified or
// removed directory prefix.
func (cs *ChangeSet) underChangedDir(path string) bool {
	return underAny(path, cs.modifiedDirs) || underAny(path, cs.removedDirs)
}

// affected reports whether a referenced path should invalidate its
// referrer: modified, removed, or inside a changed directory.
func (cs *ChangeSet) affected(path string) bool {
	return cs.fileModified(path) || cs.fileRemoved(path) || cs.underChangedDir(path)
}

// empty reports whether nothing has been recorded since the last reset.
func (cs *ChangeSet) empty() bool {
	return len(cs.modifiedFiles) == 0 && len(cs.removedFiles) == 0 &&
		len(cs.modifiedDirs) == 0 && len(cs.removedDirs) == 0
}

// reset clears every collection for the next cycle.
func (cs *ChangeSet) reset() {
	cs.modifiedFiles = make(map[string]struct{})
	cs.removedFiles = make(map[string]struct{})
	cs.modifiedDirs = nil
	cs.removedDirs = nil
	cs.forceTargets = nil
}

func appendDir(dirs []string, dir string) []string {
	for _, d := range dirs {
		if d == dir {
			return dirs
		}
	}
	return append(dirs, dir)
}
