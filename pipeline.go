package incremental

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// defaultDebounce is the quiet interval the watcher waits for before
// triggering a rebuild.
const defaultDebounce = 100 * time.Millisecond

// Host is the build orchestrator the pipeline accelerates. It owns the
// batch, knows the source root, and can run one full build on demand.
type Host interface {
	// Source returns the source root directory.
	Source() string

	// Build runs one full build and reports completion through done,
	// carrying the build error if any. done is invoked exactly once.
	Build(done func(error))
}

// Pipeline holds all per-session state: the accumulated change set,
// the output cache, the filtered-aside set, and the watcher. Every
// stage call goes through the same Pipeline so several independent
// pipelines can coexist in one process.
//
// All shared state is serialized behind one mutex; stages themselves
// run strictly in sequence within a cycle.
type Pipeline struct {
	fs      afero.Fs
	log     *slog.Logger
	nowFunc func() time.Time

	baseDir    string
	resolvers  *resolverTable
	rename     *RenameRule
	props      []PropertyPath
	forceGlobs map[string]string
	debounce   time.Duration

	mu      sync.Mutex
	changes *ChangeSet
	cache   map[string]*snapshot
	aside   map[string]*File
	primed  bool // a previous cycle has populated the cache
	ready   bool // initial watch scan completed
	stats   Stats

	watch *watchState
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// New creates a pipeline session. Malformed configuration never fails
// construction: an unusable rename rule or resolver pattern silently
// disables that feature.
func New(options ...Option) *Pipeline {
	p := &Pipeline{
		fs:       afero.NewOsFs(),
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		nowFunc:  time.Now,
		props:    DefaultProperties,
		debounce: defaultDebounce,
		changes:  NewChangeSet(),
		cache:    make(map[string]*snapshot),
		aside:    make(map[string]*File),
	}
	for _, option := range options {
		option(p)
	}
	if p.resolvers == nil {
		p.resolvers = newResolverTable(nil)
	}
	p.rename.compile()
	return p
}

// Changes exposes the session change set so hosts without a watcher
// can record modifications themselves.
func (p *Pipeline) Changes() *ChangeSet {
	return p.changes
}

// markReady flips the session out of the initial pass-through state.
func (p *Pipeline) markReady() {
	p.mu.Lock()
	p.ready = true
	p.mu.Unlock()
}

// signal invokes a stage completion callback, tolerating nil.
func signal(done func(error), err error) {
	if done != nil {
		done(err)
	}
}
