package incremental

import "testing"

func TestUnderAny(t *testing.T) {
	tests := []struct {
		name string
		path string
		dirs []string
		want bool
	}{
		{"direct child", "docs/a.md", []string{"docs"}, true},
		{"nested child", "docs/sub/a.md", []string{"docs"}, true},
		{"path equals prefix", "docs", []string{"docs"}, true},
		{"sibling with shared prefix", "docs-old/a.md", []string{"docs"}, false},
		{"no prefixes", "docs/a.md", nil, false},
		{"second prefix matches", "lib/x.js", []string{"docs", "lib"}, true},
		{"root prefix matches everything", "anything/at/all", []string{"."}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := underAny(tt.path, tt.dirs); got != tt.want {
				t.Errorf("underAny(%q, %v) = %v, want %v", tt.path, tt.dirs, got, tt.want)
			}
		})
	}
}

func TestResolveReference(t *testing.T) {
	tests := []struct {
		name    string
		ref     string
		from    string
		baseDir string
		want    string
	}{
		{"sibling", "parent.pug", "pages/child.pug", "", "pages/parent.pug"},
		{"parent dir", "../layout.pug", "pages/child.pug", "", "layout.pug"},
		{"top-level referrer", "layout.pug", "index.pug", "", "layout.pug"},
		{"absolute against base dir", "/layout.pug", "pages/child.pug", "templates", "templates/layout.pug"},
		{"absolute without base dir", "/layout.pug", "pages/child.pug", "", "layout.pug"},
		{"whitespace trimmed", "  parent.pug\r", "pages/child.pug", "", "pages/parent.pug"},
		{"empty reference", "", "pages/child.pug", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveReference(tt.ref, tt.from, tt.baseDir)
			if got != tt.want {
				t.Errorf("resolveReference(%q, %q, %q) = %q, want %q", tt.ref, tt.from, tt.baseDir, got, tt.want)
			}
		})
	}
}

func TestMatchGlob(t *testing.T) {
	tests := []struct {
		path    string
		pattern string
		want    bool
	}{
		{"templates/base.pug", "templates/*", true},
		{"templates/sub/base.pug", "templates/*", false},
		{"templates/sub/base.pug", "templates/**", true},
		{"index.md", "*", true},
		{"docs/index.md", "*", false},
		{"docs/index.md", "**", true},
		{"docs/index.md", "**/*.md", true},
		{"index.md", "**/*.md", true},
		{"docs/index.md", "**/*.css", false},
		{"a/b/c/d.txt", "a/**/d.txt", true},
		{"a/d.txt", "a/**/d.txt", true},
	}
	for _, tt := range tests {
		if got := matchGlob(tt.path, tt.pattern); got != tt.want {
			t.Errorf("matchGlob(%q, %q) = %v, want %v", tt.path, tt.pattern, got, tt.want)
		}
	}
}
