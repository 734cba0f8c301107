package incremental

import (
	"github.com/cespare/xxhash/v2"
)

// File is a single record flowing through the host pipeline: an opaque
// content blob plus arbitrary metadata. Files are owned by the host;
// this package reads, copies, restores, or removes them, but never
// fabricates new ones.
type File struct {
	Contents []byte
	Meta     map[string]any
}

// Batch is the full set of files under consideration in one build
// cycle, keyed by slash-separated path relative to the source root.
type Batch map[string]*File

// PropertyPath names a field to copy from a cached snapshot onto a
// restored file. The head "contents" targets the content blob; any
// other head walks nested maps inside Meta, one element per level.
type PropertyPath []string

// DefaultProperties is the property list used when none is configured:
// the content blob only.
var DefaultProperties = []PropertyPath{{"contents"}}

// clone returns a deep copy of the file. Metadata maps and slices are
// copied recursively; other values are copied by assignment.
func (f *File) clone() *File {
	if f == nil {
		return nil
	}
	c := &File{}
	if f.Contents != nil {
		c.Contents = make([]byte, len(f.Contents))
		copy(c.Contents, f.Contents)
	}
	if f.Meta != nil {
		c.Meta = cloneMap(f.Meta)
	}
	return c
}

// fingerprint returns a cheap content hash, used to skip redundant
// snapshot overwrites when a file's output did not change.
func (f *File) fingerprint() uint64 {
	return xxhash.Sum64(f.Contents)
}

func cloneMap(m map[string]any) map[string]any {
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = cloneValue(v)
	}
	return c
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		c := make([]any, len(t))
		for i, e := range t {
			c[i] = cloneValue(e)
		}
		return c
	case []byte:
		c := make([]byte, len(t))
		copy(c, t)
		return c
	default:
		return v
	}
}

// copyProperty copies one field path from src onto dst. A path whose
// source value is absent is a no-op; intermediate maps on the
// destination are created as needed.
func copyProperty(dst, src *File, p PropertyPath) {
	if len(p) == 0 {
		return
	}
	if p[0] == "contents" {
		dst.Contents = make([]byte, len(src.Contents))
		copy(dst.Contents, src.Contents)
		return
	}

	// Walk the source metadata down to the addressed value.
	cur := any(src.Meta)
	for _, field := range p {
		m, ok := cur.(map[string]any)
		if !ok {
			return
		}
		cur, ok = m[field]
		if !ok {
			return
		}
	}

	if dst.Meta == nil {
		dst.Meta = make(map[string]any)
	}
	target := dst.Meta
	for _, field := range p[:len(p)-1] {
		next, ok := target[field].(map[string]any)
		if !ok {
			next = make(map[string]any)
			target[field] = next
		}
		target = next
	}
	target[p[len(p)-1]] = cloneValue(cur)
}
