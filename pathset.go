package incremental

import (
	"path"
	"path/filepath"
	"strings"
)

// underAny reports whether p lies under any of the given directory
// prefixes. Paths and prefixes are slash-separated and relative to the
// source root; a prefix equal to p itself also counts.
func underAny(p string, dirs []string) bool {
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			return true
		}
		if p == dir || strings.HasPrefix(p, dir+"/") {
			return true
		}
	}
	return false
}

// resolveReference normalizes a dependency reference found in a file
// into a batch key. A reference with a leading separator is resolved
// against baseDir (itself relative to the source root); anything else
// is resolved against the referencing file's own directory.
func resolveReference(ref, from, baseDir string) string {
	ref = filepath.ToSlash(strings.TrimSpace(ref))
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "/") {
		return path.Clean(path.Join(baseDir, strings.TrimPrefix(ref, "/")))
	}
	return path.Clean(path.Join(path.Dir(from), ref))
}

// matchGlob checks if a path matches a glob pattern that may include
// "**", which matches any number of directories.
func matchGlob(p, pattern string) bool {
	patternParts := strings.Split(filepath.ToSlash(pattern), "/")
	pathParts := strings.Split(filepath.ToSlash(p), "/")
	return matchGlobParts(pathParts, patternParts, 0, 0)
}

// matchGlobParts matches path segments against pattern segments
// recursively so "**" can expand to zero or more directories.
func matchGlobParts(pathParts, patternParts []string, pathIndex, patternIndex int) bool {
	// End of pattern: success only at end of path.
	if patternIndex >= len(patternParts) {
		return pathIndex >= len(pathParts)
	}

	// End of path: success only if the remaining pattern is all "**".
	if pathIndex >= len(pathParts) {
		for i := patternIndex; i < len(patternParts); i++ {
			if patternParts[i] != "**" {
				return false
			}
		}
		return true
	}

	if patternParts[patternIndex] == "**" {
		// "**" matches zero directories here, or consumes one and stays.
		if matchGlobParts(pathParts, patternParts, pathIndex, patternIndex+1) {
			return true
		}
		return matchGlobParts(pathParts, patternParts, pathIndex+1, patternIndex)
	}

	matched, err := path.Match(patternParts[patternIndex], pathParts[pathIndex])
	if err != nil || !matched {
		return false
	}
	return matchGlobParts(pathParts, patternParts, pathIndex+1, patternIndex+1)
}
