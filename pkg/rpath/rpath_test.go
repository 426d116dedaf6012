package rpath

import (
	"testing"
)

// TestNormalize tests Normalize.
func TestNormalize(t *testing.T) {
	tests := []struct {
		base     string
		path     string
		expected string
	}{
		{"/", "/", "/"},
		{"/", "foo", "/foo"},
		{"/a/b", "foo", "/a/b/foo"},
		{"/", "/a/./b", "/a/b"},
		{"/", "/a/b/../c", "/a/c"},
		{"/", "/a/../../b", "/b"},
		{"/", "//a///b", "/a/b"},
		{"/a/b/c", "..", "/a/b"},
	}

	for i, test := range tests {
		result, err := Normalize(test.base, test.path)
		if err != nil {
			t.Errorf("test index %d: unexpected error: %v", i, err)
			continue
		}
		if result != test.expected {
			t.Errorf("test index %d: Normalize(%q, %q) = %q, expected %q", i, test.base, test.path, result, test.expected)
		}
	}
}

// TestNormalizeEmptyPathInvalid tests that an empty path is rejected.
func TestNormalizeEmptyPathInvalid(t *testing.T) {
	if _, err := Normalize("/", ""); err == nil {
		t.Error("expected error for empty path")
	}
}

// TestJoin tests Join, including top-level (direct child of root) joins
// where the first component is exactly the root separator: Join("/", "x")
// must produce the canonical "/x", not a doubled-slash "//x".
func TestJoin(t *testing.T) {
	tests := []struct {
		components []string
		expected   string
	}{
		{[]string{"/", "x"}, "/x"},
		{[]string{"/", ""}, "/"},
		{[]string{"/a", "b"}, "/a/b"},
		{[]string{"a", "b"}, "a/b"},
		{[]string{"/a/", "/b/"}, "/a/b"},
	}

	for i, test := range tests {
		if result := Join(test.components...); result != test.expected {
			t.Errorf("test index %d: Join(%v) = %q, expected %q", i, test.components, result, test.expected)
		}
	}
}

// TestSplit tests Split.
func TestSplit(t *testing.T) {
	tests := []struct {
		path        string
		expectedDir string
		expectedBase string
	}{
		{"/", "/", ""},
		{"/foo", "/", "foo"},
		{"/a/b/c", "/a/b", "c"},
	}

	for i, test := range tests {
		dir, base := Split(test.path)
		if dir != test.expectedDir || base != test.expectedBase {
			t.Errorf("test index %d: Split(%q) = (%q, %q), expected (%q, %q)", i, test.path, dir, base, test.expectedDir, test.expectedBase)
		}
	}
}

// TestExtname tests Extname.
func TestExtname(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/a/b.js", ".js"},
		{"/a/b.test.ts", ".ts"},
		{"/a/.gitignore", ""},
		{"/a/b", ""},
	}

	for i, test := range tests {
		if result := Extname(test.path); result != test.expected {
			t.Errorf("test index %d: Extname(%q) = %q, expected %q", i, test.path, result, test.expected)
		}
	}
}

// TestRelative tests Relative.
func TestRelative(t *testing.T) {
	tests := []struct {
		base     string
		target   string
		expected string
	}{
		{"/a/b", "/a/b", "."},
		{"/a/b", "/a/b/c", "c"},
		{"/a/b/c", "/a/b", ".."},
		{"/a/b", "/a/c", "../c"},
	}

	for i, test := range tests {
		if result := Relative(test.base, test.target); result != test.expected {
			t.Errorf("test index %d: Relative(%q, %q) = %q, expected %q", i, test.base, test.target, result, test.expected)
		}
	}
}
