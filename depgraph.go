package incremental

// propagate marks every batch file whose content transitively
// references a modified or removed path as modified itself, in place
// on the change set.
//
// It runs full passes over a worklist of candidate paths until a pass
// produces no new marks. Marking is monotonic over a finite path set,
// so the loop always terminates; chains of any depth are handled, and
// reference cycles simply get marked as a block once any member is
// reachable from a change.
func propagate(batch Batch, cs *ChangeSet, resolvers *resolverTable, baseDir string) {
	worklist := make(map[string]struct{}, len(batch))
	for p := range batch {
		if cs.fileModified(p) || cs.underChangedDir(p) {
			continue
		}
		worklist[p] = struct{}{}
	}

	for changed := true; changed; {
		changed = false
		for p := range worklist {
			r := resolvers.forPath(p)
			if r == nil {
				// Exempt from scanning; never reconsidered.
				delete(worklist, p)
				continue
			}
			for _, ref := range r.references(batch[p], baseDir) {
				key := resolveReference(ref, p, baseDir)
				if key == "" {
					continue
				}
				if cs.affected(key) {
					cs.MarkModified(p)
					delete(worklist, p)
					changed = true
					break
				}
			}
		}
	}
}
