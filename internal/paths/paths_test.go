package paths_test

import (
	"testing"

	"github.com/e9kdbg/e9kdbg/internal/paths"
)

func TestResourcePath(t *testing.T) {
	cases := []struct {
		subdir, file, want string
	}{
		{"foo/bar", "baz", ".e9k-debugger/foo/bar/baz"},
		{"foo/bar", "", ".e9k-debugger/foo/bar"},
		{"", "baz", ".e9k-debugger/baz"},
		{"", "", ".e9k-debugger"},
	}
	for _, c := range cases {
		got, err := paths.ResourcePath(c.subdir, c.file)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != c.want {
			t.Errorf("ResourcePath(%q, %q) = %q, want %q", c.subdir, c.file, got, c.want)
		}
	}
}
