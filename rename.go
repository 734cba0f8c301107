package incremental

import (
	"path"
	"regexp"
	"strings"
)

// RenameFunc maps a decomposed path (directory, base name without
// extension, extension with leading dot) to a new decomposition.
type RenameFunc func(dir, name, ext string) (newDir, newName, newExt string)

// RenameRule describes how paths produced by the slow stage relate to
// the paths that were cached: either a callback over a decomposed path
// or a pattern/replacement substitution. The zero value, or any rule
// whose pattern does not compile, performs no rename.
type RenameRule struct {
	Func        RenameFunc
	Pattern     string
	Replacement string

	re *regexp.Regexp
}

// compile prepares the pattern form. A malformed pattern silently
// disables the rule rather than failing the cycle.
func (r *RenameRule) compile() {
	if r == nil || r.Func != nil || r.Pattern == "" {
		return
	}
	re, err := regexp.Compile(r.Pattern)
	if err != nil {
		return
	}
	r.re = re
}

// apply resolves a rename for one path. Unrecognized rule shapes
// return the input unchanged.
func (r *RenameRule) apply(p string) string {
	if r == nil {
		return p
	}
	if r.Func != nil {
		dir := path.Dir(p)
		ext := path.Ext(p)
		name := strings.TrimSuffix(path.Base(p), ext)
		newDir, newName, newExt := r.Func(dir, name, ext)
		return path.Join(newDir, newName+newExt)
	}
	if r.re != nil {
		return replaceFirst(r.re, p, r.Replacement)
	}
	return p
}

// replaceFirst substitutes only the first match, expanding $1-style
// group references in the replacement.
func replaceFirst(re *regexp.Regexp, s, replacement string) string {
	m := re.FindStringSubmatchIndex(s)
	if m == nil {
		return s
	}
	out := make([]byte, 0, len(s))
	out = append(out, s[:m[0]]...)
	out = re.ExpandString(out, replacement, s, m)
	out = append(out, s[m[1]:]...)
	return string(out)
}
