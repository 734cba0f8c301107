package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"incremental"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "incrwatch",
	Short: "Watch a source tree and rebuild it incrementally",
	Long: `incrwatch runs a copy-through build over a source directory and keeps
it up to date: filesystem changes trigger rebuilds in which unchanged
files skip the transformation step and have their previous outputs
restored from cache.`,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "incrwatch.toml", "path to configuration file")
}

// fileConfig is the on-disk TOML configuration.
type fileConfig struct {
	Source     string            `toml:"source"`
	Output     string            `toml:"output"`
	BaseDir    string            `toml:"base_dir"`
	DebounceMs int               `toml:"debounce_ms"`
	Properties []string          `toml:"properties"`
	Resolve    map[string]string `toml:"resolve"`
	Force      map[string]string `toml:"force"`
	ForceAll   string            `toml:"force_all"` // shorthand: this glob forces a full rebuild
	Rename     renameConfig      `toml:"rename"`
}

type renameConfig struct {
	Pattern     string `toml:"pattern"`
	Replacement string `toml:"replacement"`
}

func readConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{Source: "src", Output: "out"}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// options translates the file config into pipeline options.
func (cfg *fileConfig) options() []incremental.Option {
	opts := []incremental.Option{
		incremental.WithBaseDir(cfg.BaseDir),
		incremental.WithLogger(slog.Default()),
	}
	if cfg.DebounceMs > 0 {
		opts = append(opts, incremental.WithDebounce(time.Duration(cfg.DebounceMs)*time.Millisecond))
	}
	if len(cfg.Resolve) > 0 {
		byExt := make(map[string]incremental.DepRule, len(cfg.Resolve))
		for ext, pattern := range cfg.Resolve {
			byExt[ext] = incremental.DepRule{Pattern: pattern}
		}
		opts = append(opts, incremental.WithDepSpec(incremental.DepSpec{ByExt: byExt}))
	}
	if len(cfg.Force) > 0 {
		opts = append(opts, incremental.WithForceGlobs(cfg.Force))
	} else if cfg.ForceAll != "" {
		opts = append(opts, incremental.WithForceGlob(cfg.ForceAll))
	}
	if cfg.Rename.Pattern != "" {
		opts = append(opts, incremental.WithRenameRule(incremental.RenameRule{
			Pattern:     cfg.Rename.Pattern,
			Replacement: cfg.Rename.Replacement,
		}))
	}
	if len(cfg.Properties) > 0 {
		props := make([]incremental.PropertyPath, 0, len(cfg.Properties))
		for _, prop := range cfg.Properties {
			props = append(props, incremental.PropertyPath(strings.Split(prop, ".")))
		}
		opts = append(opts, incremental.WithProperties(props...))
	}
	return opts
}

func run(cmd *cobra.Command, args []string) error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	cfg, err := readConfig(cfgPath)
	if err != nil {
		return err
	}

	host := &copyHost{
		fs:     afero.NewOsFs(),
		source: cfg.Source,
		output: cfg.Output,
		log:    slog.Default(),
	}
	host.pipeline = incremental.New(cfg.options()...)

	// Full initial build before the watcher takes over.
	buildErr := make(chan error, 1)
	host.Build(func(err error) { buildErr <- err })
	if err := <-buildErr; err != nil {
		return fmt.Errorf("initial build: %w", err)
	}

	watchErr := make(chan error, 1)
	host.pipeline.Watch(nil, host, func(err error) { watchErr <- err })
	if err := <-watchErr; err != nil {
		return fmt.Errorf("starting watch: %w", err)
	}
	defer host.pipeline.Close()

	host.log.Info("watching", "source", cfg.Source, "output", cfg.Output)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	stats := host.pipeline.Stats()
	host.log.Info("stopping",
		"cycles", stats.Cycles,
		"filtered", stats.Filtered,
		"restored", stats.Restored,
		"cache_entries", stats.CacheEntries,
	)
	return nil
}

// copyHost is a minimal build orchestrator: it reads the source tree
// into a batch, runs the pipeline stages around a copy-through
// transformation, and writes the final batch to the output directory.
type copyHost struct {
	fs       afero.Fs
	source   string
	output   string
	pipeline *incremental.Pipeline
	log      *slog.Logger
}

func (h *copyHost) Source() string { return h.source }

// Build runs one full cycle: read, filter, transform, cache, write.
// A transform error still lets the cache stage complete before it is
// reported through done.
func (h *copyHost) Build(done func(error)) {
	batch, err := h.readBatch()
	if err != nil {
		done(err)
		return
	}

	h.pipeline.Filter(batch, h, nil)
	transformErr := h.transform(batch)
	h.pipeline.Cache(batch, h, nil)

	if transformErr == nil {
		transformErr = h.writeBatch(batch)
	}
	done(transformErr)
}

// readBatch loads every file under the source root.
func (h *copyHost) readBatch() (incremental.Batch, error) {
	batch := make(incremental.Batch)
	err := afero.Walk(h.fs, h.source, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(h.source, path)
		if err != nil {
			return err
		}
		contents, err := afero.ReadFile(h.fs, path)
		if err != nil {
			return err
		}
		batch[filepath.ToSlash(rel)] = &incremental.File{Contents: contents}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", h.source, err)
	}
	return batch, nil
}

// transform is the stand-in slow stage. It only annotates each record;
// real hosts would render templates, compile assets, and so on.
func (h *copyHost) transform(batch incremental.Batch) error {
	for path, file := range batch {
		if file.Meta == nil {
			file.Meta = make(map[string]any)
		}
		file.Meta["built_from"] = path
		h.log.Debug("transformed", "path", path)
	}
	return nil
}

// writeBatch mirrors the final batch into the output directory.
func (h *copyHost) writeBatch(batch incremental.Batch) error {
	for path, file := range batch {
		dst := filepath.Join(h.output, filepath.FromSlash(path))
		if err := h.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(dst), err)
		}
		if err := afero.WriteFile(h.fs, dst, file.Contents, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", dst, err)
		}
	}
	return nil
}
