/*
	Package incremental accelerates repeated builds of a file-processing pipeline.

It skips unchanged files past slow transformation stages and restores their
previously computed outputs from a per-session cache.

# Overview

incremental sits between a build orchestrator and its transformation stages.
The orchestrator owns a mutable batch of file records and re-runs the full
stage sequence on every build. incremental shrinks that work: a filter stage
removes every file it can prove unchanged, the slow stages see only the
remainder, and a cache stage splices the filtered files' prior outputs back
into the final batch.

# Core Architecture

One Pipeline holds all per-session state:

  - ChangeSet  - filesystem changes accumulated between build cycles
  - cache      - deep-copied output snapshots from previous cycles
  - aside set  - files temporarily removed from the current batch
  - watcher    - fsnotify-driven cycle trigger with debouncing

Data flow per cycle:

	watcher accumulates changes
	  -> Filter splits the batch into {kept, aside}
	  -> the host's slow stages transform {kept}
	  -> Cache snapshots the output, reconciles removals and renames,
	     and restores {aside} from prior snapshots
	  -> cycle state is cleared

# Change Detection

Files are invalidated by filesystem events, by lying under a created or
removed directory, by forced-rebuild glob pairs, or transitively: a
dependency resolver (a pattern capturing include-style references, or a
callback) discovers which files reference which, and a fixed-point pass
marks every file that transitively references a change. Reference chains of
any depth and reference cycles are handled.

# Basic Usage

	p := incremental.New(
	    incremental.WithRenameRule(incremental.RenameRule{
	        Pattern: `\.pug$`, Replacement: ".html",
	    }),
	)

	// inside the host's build sequence:
	p.Filter(batch, host, nil)
	slowStages(batch)
	p.Cache(batch, host, nil)

	// drive rebuilds from filesystem changes:
	p.Watch(batch, host, func(err error) { ... })
	defer p.Close()

Until the watcher's initial scan completes the filter passes everything
through, so the first build is always a full one.

# Configuration Options

	p := incremental.New(
	    incremental.WithDepSpec(incremental.DepSpec{...}),
	    incremental.WithForceGlobs(map[string]string{"templates/*": "**"}),
	    incremental.WithDebounce(250*time.Millisecond),
	    incremental.WithFs(afero.NewMemMapFs()),
	)

# Error Handling

Filtering and caching never fail; a build error reported by the host is
logged and surfaced to that cycle's completion callback while the watcher
keeps running. Malformed configuration (an unparseable rename pattern, a
resolver for an unknown extension) silently disables that feature for the
cycle instead of raising.
*/
package incremental
