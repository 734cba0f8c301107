package incremental

import (
	"bytes"
	"testing"
)

// runCycle drives one full build cycle by hand: filter, transform,
// cache, then the cycle-boundary change-set clear the watcher would
// normally perform.
func runCycle(t *testing.T, p *Pipeline, batch Batch, transform func(Batch)) {
	t.Helper()
	runStage(t, p.Filter, batch)
	if transform != nil {
		transform(batch)
	}
	runStage(t, p.Cache, batch)
	p.changes.reset()
}

func TestCacheRoundTrip(t *testing.T) {
	p := New()

	// Cycle 1 runs before the watcher is ready: full build, cache primed.
	cycle1 := pugBatch(map[string]string{
		"index.md":   "# hi",
		"layout.pug": "rendered layout",
	})
	runCycle(t, p, cycle1, nil)
	p.markReady()

	// Cycle 2: only index.md changed. layout.pug skips the slow stage
	// and comes back with its prior output untouched.
	p.Changes().MarkModified("index.md")
	cycle2 := pugBatch(map[string]string{
		"index.md":   "# hi v2",
		"layout.pug": "SHOULD NOT SURVIVE", // slow stage never sees this
	})
	runCycle(t, p, cycle2, func(batch Batch) {
		if _, ok := batch["layout.pug"]; ok {
			t.Fatal("filtered file reached the slow stage")
		}
	})

	layout, ok := cycle2["layout.pug"]
	if !ok {
		t.Fatal("layout.pug not restored into final batch")
	}
	if !bytes.Equal(layout.Contents, []byte("rendered layout")) {
		t.Errorf("restored contents = %q, want prior output", layout.Contents)
	}
	if _, ok := cycle2["index.md"]; !ok {
		t.Error("processed file missing from final batch")
	}
	if len(p.aside) != 0 {
		t.Error("filtered-aside set not drained")
	}
}

func TestCacheRenameContinuity(t *testing.T) {
	p := New(WithRenameRule(RenameRule{Pattern: `\.pug$`, Replacement: ".html"}))

	// Cycle 1: the slow stage renders a.pug into a.html.
	cycle1 := Batch{"a.pug": &File{Contents: []byte("p hello")}}
	runCycle(t, p, cycle1, func(batch Batch) {
		batch["a.html"] = &File{Contents: []byte("<p>hello</p>")}
		delete(batch, "a.pug")
	})
	p.markReady()

	// Cycle 2: a.pug unchanged, filtered aside. The restore request for
	// a.pug must resolve through the rename rule to the a.html entry.
	cycle2 := Batch{"a.pug": &File{Contents: []byte("p hello")}}
	runCycle(t, p, cycle2, nil)

	restored, ok := cycle2["a.html"]
	if !ok {
		t.Fatal("renamed output not restored into batch")
	}
	if !bytes.Equal(restored.Contents, []byte("<p>hello</p>")) {
		t.Errorf("restored contents = %q", restored.Contents)
	}
	if _, ok := cycle2["a.pug"]; ok {
		t.Error("source path re-inserted instead of resolved path")
	}
}

func TestCacheRemovedFileReconciliation(t *testing.T) {
	p := New()
	runCycle(t, p, pugBatch(map[string]string{"old.md": "bye", "keep.md": "hi"}), nil)
	p.markReady()

	p.Changes().MarkRemoved("old.md")
	runCycle(t, p, pugBatch(map[string]string{"keep.md": "hi"}), nil)

	if _, ok := p.cache["old.md"]; ok {
		t.Error("removed file still cached")
	}
	if _, ok := p.cache["keep.md"]; !ok {
		t.Error("surviving file evicted")
	}
}

func TestCacheRemovedFileResolvesViaRename(t *testing.T) {
	p := New(WithRenameRule(RenameRule{Pattern: `\.pug$`, Replacement: ".html"}))

	cycle1 := Batch{"a.pug": &File{Contents: []byte("p hello")}}
	runCycle(t, p, cycle1, func(batch Batch) {
		batch["a.html"] = &File{Contents: []byte("<p>hello</p>")}
		delete(batch, "a.pug")
	})
	p.markReady()

	// a.pug was deleted on disk; only a.html is cached. The removal
	// must reach the cache entry through the rename rule.
	p.Changes().MarkRemoved("a.pug")
	runCycle(t, p, Batch{}, nil)

	if _, ok := p.cache["a.html"]; ok {
		t.Error("renamed cache entry survived source removal")
	}
}

func TestCacheKeepsUnresolvedRemovals(t *testing.T) {
	p := New()
	runCycle(t, p, pugBatch(map[string]string{"keep.md": "hi"}), nil)
	p.markReady()

	// keep.md resolves to a cache entry and is cleared; phantom.md
	// resolves to nothing and stays until the cycle-boundary clear.
	p.Changes().MarkRemoved("keep.md")
	p.Changes().MarkRemoved("phantom.md")
	runStage(t, p.Cache, Batch{})

	if _, ok := p.cache["keep.md"]; ok {
		t.Error("resolved removal left its cache entry")
	}
	if p.changes.fileRemoved("keep.md") {
		t.Error("resolved removal not cleared from removedFiles")
	}
	if !p.changes.fileRemoved("phantom.md") {
		t.Error("unresolved removal cleared before cycle end")
	}
}

func TestCacheRemovedDirPrune(t *testing.T) {
	p := New()
	runCycle(t, p, pugBatch(map[string]string{
		"docs/a.md": "a",
		"docs/b.md": "b",
		"index.md":  "# hi",
	}), nil)
	p.markReady()

	p.Changes().MarkDirRemoved("docs")
	runCycle(t, p, pugBatch(map[string]string{"index.md": "# hi"}), nil)

	if len(p.cache) != 1 {
		t.Errorf("cache holds %d entries, want 1", len(p.cache))
	}
	if _, ok := p.cache["index.md"]; !ok {
		t.Error("entry outside removed directory pruned")
	}
}

func TestCachePropertyPaths(t *testing.T) {
	p := New(WithProperties(
		PropertyPath{"contents"},
		PropertyPath{"title"},
		PropertyPath{"pagination", "total"},
	))

	cycle1 := Batch{"a.md": &File{
		Contents: []byte("built"),
		Meta: map[string]any{
			"title":      "Hello",
			"pagination": map[string]any{"total": 3, "page": 1},
			"secret":     "not copied",
		},
	}}
	runCycle(t, p, cycle1, nil)
	p.markReady()

	cycle2 := Batch{"a.md": &File{Contents: []byte("raw")}}
	runCycle(t, p, cycle2, nil)

	restored := cycle2["a.md"]
	if restored == nil {
		t.Fatal("a.md not restored")
	}
	if !bytes.Equal(restored.Contents, []byte("built")) {
		t.Errorf("contents = %q, want cached output", restored.Contents)
	}
	if restored.Meta["title"] != "Hello" {
		t.Errorf("title = %v", restored.Meta["title"])
	}
	pagination, _ := restored.Meta["pagination"].(map[string]any)
	if pagination == nil || pagination["total"] != 3 {
		t.Errorf("pagination.total not copied: %v", restored.Meta["pagination"])
	}
	if pagination != nil && pagination["page"] != nil {
		t.Error("field outside the configured paths was copied")
	}
	if restored.Meta["secret"] != nil {
		t.Error("unlisted property copied")
	}
}

func TestCacheDropsUnrestorable(t *testing.T) {
	p := New()
	runCycle(t, p, pugBatch(map[string]string{"known.md": "hi"}), nil)
	p.markReady()

	// ghost.md was never cached; once filtered aside it cannot come back.
	batch := pugBatch(map[string]string{"known.md": "hi", "ghost.md": "boo"})
	runCycle(t, p, batch, nil)

	if _, ok := batch["ghost.md"]; ok {
		t.Error("unrestorable file reappeared in batch")
	}
	if got := p.Stats().Dropped; got != 1 {
		t.Errorf("Dropped = %d, want 1", got)
	}
}

func TestCacheUnchangedContentKeepsSnapshot(t *testing.T) {
	p := New()
	batch := pugBatch(map[string]string{"a.md": "same"})
	runCycle(t, p, batch, nil)
	before := p.cache["a.md"]

	p.markReady()
	p.Changes().MarkModified("a.md")
	runCycle(t, p, pugBatch(map[string]string{"a.md": "same"}), nil)

	if p.cache["a.md"] != before {
		t.Error("fingerprint-equal snapshot was replaced")
	}
}

func TestCacheEveryBatchPathCached(t *testing.T) {
	p := New()
	batch := pugBatch(map[string]string{"a.md": "a", "b/c.md": "c"})
	runCycle(t, p, batch, nil)

	for path := range batch {
		if _, ok := p.cache[path]; !ok {
			t.Errorf("batch path %s missing from cache", path)
		}
	}
}
