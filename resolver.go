package incremental

import (
	"path"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DepFunc extracts the raw references a file's content makes to other
// files. References are normalized by the caller, so the function may
// return them exactly as written in the source.
type DepFunc func(file *File, baseDir string) []string

// DepRule is one resolver for a single extension: a pattern whose
// first capture group is the referenced path, or a callback.
type DepRule struct {
	Pattern string
	Func    DepFunc
}

// DepSpec configures dependency discovery. Func or Pattern, when set,
// apply to every file; otherwise ByExt is consulted, keyed by file
// extension without the leading dot. Files with no matching rule are
// exempt from dependency scanning.
type DepSpec struct {
	Pattern string
	Func    DepFunc
	ByExt   map[string]DepRule
}

// defaultResolverPatterns are the built-in per-extension resolvers,
// consulted after the user's ByExt map.
var defaultResolverPatterns = map[string]string{
	// include/extends directives, capturing the referenced path.
	"pug": `^\s*(?:include|extends)\s+(\S+)\s*$`,
}

// depResolver is a DepRule compiled for repeated use.
type depResolver struct {
	re *regexp.Regexp
	fn DepFunc
}

// references returns the raw reference list for one file.
func (r *depResolver) references(f *File, baseDir string) []string {
	if r.fn != nil {
		return r.fn(f, baseDir)
	}
	var refs []string
	for _, m := range r.re.FindAllSubmatch(f.Contents, -1) {
		if len(m) > 1 {
			refs = append(refs, string(m[1]))
		}
	}
	return refs
}

// resolverCacheSize bounds the per-extension compiled resolver cache.
const resolverCacheSize = 64

// resolverTable resolves a file path to its compiled dependency
// resolver. Per-extension lookups are compiled once and cached.
type resolverTable struct {
	global *depResolver
	byExt  map[string]DepRule
	cache  *lru.Cache[string, *depResolver]
}

// newResolverTable compiles a DepSpec. An absent spec still consults
// the built-in per-extension defaults; a global pattern that does not
// compile yields a table that resolves nothing.
func newResolverTable(spec *DepSpec) *resolverTable {
	t := &resolverTable{}
	if spec == nil {
		spec = &DepSpec{}
	}
	if spec.Func != nil {
		t.global = &depResolver{fn: spec.Func}
		return t
	}
	if spec.Pattern != "" {
		if re := compileMultiline(spec.Pattern); re != nil {
			t.global = &depResolver{re: re}
		}
		return t
	}
	t.byExt = spec.ByExt
	t.cache, _ = lru.New[string, *depResolver](resolverCacheSize)
	return t
}

// forPath returns the resolver for a file path, or nil when the file
// is exempt from dependency scanning.
func (t *resolverTable) forPath(p string) *depResolver {
	if t.global != nil {
		return t.global
	}
	if t.cache == nil {
		return nil
	}

	key := extensionKey(p)
	if key == "" {
		return nil
	}
	if r, ok := t.cache.Get(key); ok {
		return r
	}

	r := t.compileForKey(key)
	t.cache.Add(key, r)
	return r
}

func (t *resolverTable) compileForKey(key string) *depResolver {
	if rule, ok := t.byExt[key]; ok {
		if rule.Func != nil {
			return &depResolver{fn: rule.Func}
		}
		if re := compileMultiline(rule.Pattern); re != nil {
			return &depResolver{re: re}
		}
		return nil
	}
	if pattern, ok := defaultResolverPatterns[key]; ok {
		return &depResolver{re: compileMultiline(pattern)}
	}
	return nil
}

// extensionKey derives the lookup key from a file path: the extension
// without its dot, with the legacy "jade" name aliased to "pug".
func extensionKey(p string) string {
	ext := strings.TrimPrefix(path.Ext(p), ".")
	if ext == "jade" {
		return "pug"
	}
	return ext
}

// compileMultiline compiles a pattern with multi-line semantics.
// Malformed patterns yield nil: scanning is disabled rather than the
// cycle failing.
func compileMultiline(pattern string) *regexp.Regexp {
	if !strings.HasPrefix(pattern, "(?m)") {
		pattern = "(?m)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil
	}
	return re
}
