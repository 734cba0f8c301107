package incremental

import (
	"log/slog"
	"time"

	"github.com/spf13/afero"
)

// WithFs sets a custom filesystem for the pipeline.
// This is primarily useful for testing with in-memory filesystems.
//
// Example:
//
//	p := incremental.New(incremental.WithFs(afero.NewMemMapFs()))
func WithFs(fs afero.Fs) Option {
	return func(p *Pipeline) {
		p.fs = fs
	}
}

// WithLogger sets the logger used for stage traces and watcher
// diagnostics. The default logger discards everything.
func WithLogger(log *slog.Logger) Option {
	return func(p *Pipeline) {
		if log != nil {
			p.log = log
		}
	}
}

// WithNowFunc sets a custom time function.
// This is primarily useful for testing with deterministic timestamps.
func WithNowFunc(nowFunc func() time.Time) Option {
	return func(p *Pipeline) {
		p.nowFunc = nowFunc
	}
}

// WithBaseDir sets the directory, relative to the source root, against
// which dependency references written with a leading separator are
// resolved.
func WithBaseDir(dir string) Option {
	return func(p *Pipeline) {
		p.baseDir = dir
	}
}

// WithDepSpec configures dependency discovery for the filter stage.
// Without it, only the built-in per-extension resolvers apply — which
// is the same as passing an empty DepSpec.
func WithDepSpec(spec DepSpec) Option {
	return func(p *Pipeline) {
		p.resolvers = newResolverTable(&spec)
	}
}

// WithRenameRule tells the cache stage how output paths relate to the
// paths that were cached, so restores survive renames such as
// .pug → .html. A malformed rule silently disables renaming.
func WithRenameRule(rule RenameRule) Option {
	return func(p *Pipeline) {
		p.rename = &rule
	}
}

// WithProperties sets the field paths copied from a cached snapshot
// onto a restored file. The default copies the content blob only.
func WithProperties(props ...PropertyPath) Option {
	return func(p *Pipeline) {
		if len(props) > 0 {
			p.props = props
		}
	}
}

// WithForceGlobs configures forced-rebuild pairs: when a modified file
// matches a source glob (key), every batch file matching the paired
// target glob (value) is rebuilt regardless of detected changes.
func WithForceGlobs(globs map[string]string) Option {
	return func(p *Pipeline) {
		p.forceGlobs = globs
	}
}

// WithForceGlob is the single-glob shorthand: any modified file
// matching the glob forces a full rebuild.
func WithForceGlob(glob string) Option {
	return WithForceGlobs(map[string]string{glob: "**"})
}

// WithDebounce sets the quiet interval the watcher waits for after the
// last filesystem event before triggering a rebuild.
func WithDebounce(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.debounce = d
		}
	}
}
