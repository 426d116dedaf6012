// Package rpath implements the virtual filesystem's path algebra (spec
// §4.1): POSIX-shaped join/split/dirname/basename/extname/normalize
// operations that always use forward slashes regardless of the host OS,
// since the VFS tree has no relation to the host's native path conventions.
//
// The fast root-relative component-splitting style here is grounded on the
// teacher's pkg/synchronization/core/path.go (pathJoin/pathDir/PathBase),
// generalized from that package's root-relative (no leading slash) paths to
// this package's always-absolute (leading slash) VFS paths. Tilde/home
// expansion, which core/path.go's sibling pkg/filesystem/normalize.go
// handles for host paths, has no analog here: a VFS path is never
// expanded against a host home directory.
package rpath

import (
	"strings"

	"github.com/ersinkoc/webruntime/pkg/rterror"
)

// Separator is the path component separator used throughout the VFS.
const Separator = "/"

// Root is the path of the filesystem root.
const Root = "/"

// Normalize cleans path into an absolute, slash-separated canonical form:
// it resolves "." and ".." components lexically, collapses repeated
// slashes, and ensures a single leading slash and no trailing slash
// (except for the root itself, which normalizes to "/"). It does not touch
// the host filesystem and does not resolve symlinks; symlink resolution is
// a VFS-level operation layered on top of this pure string algorithm.
//
// A relative path is normalized as if resolved against base, which must
// itself already be normalized (callers typically pass a cwd). An empty
// path is invalid.
func Normalize(base, path string) (string, error) {
	if path == "" {
		return "", rterror.New(rterror.KindInvalidArgument, "path must not be empty", path)
	}

	var absolute string
	if strings.HasPrefix(path, Separator) {
		absolute = path
	} else {
		if base == "" {
			base = Root
		}
		absolute = Join(base, path)
	}

	segments := strings.Split(absolute, Separator)
	stack := make([]string, 0, len(segments))
	for _, segment := range segments {
		switch segment {
		case "", ".":
			continue
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, segment)
		}
	}

	if len(stack) == 0 {
		return Root, nil
	}
	return Separator + strings.Join(stack, Separator), nil
}

// Join concatenates path components with a single separator between them,
// without performing any "." or ".." resolution. Callers that need a
// canonical result should pass the output through Normalize.
func Join(components ...string) string {
	var nonEmpty []string
	for _, c := range components {
		if c != "" {
			nonEmpty = append(nonEmpty, strings.Trim(c, Separator))
		}
	}
	if len(nonEmpty) == 0 {
		return ""
	}
	joined := strings.Join(nonEmpty, Separator)
	if strings.HasPrefix(components[0], Separator) && !strings.HasPrefix(joined, Separator) {
		return Separator + joined
	}
	return joined
}

// Split divides an absolute path into its parent directory and its final
// component. Split("/") returns ("/", "").
func Split(path string) (dir string, base string) {
	if path == Root || path == "" {
		return Root, ""
	}
	trimmed := strings.TrimSuffix(path, Separator)
	lastSlash := strings.LastIndexByte(trimmed, '/')
	if lastSlash <= 0 {
		return Root, trimmed[lastSlash+1:]
	}
	return trimmed[:lastSlash], trimmed[lastSlash+1:]
}

// Dirname returns the parent directory of path, equivalent to the first
// return value of Split.
func Dirname(path string) string {
	dir, _ := Split(path)
	return dir
}

// Basename returns the final path component, equivalent to the second
// return value of Split.
func Basename(path string) string {
	_, base := Split(path)
	return base
}

// Extname returns the extension of the final path component, including
// the leading dot, or "" if there is none. A leading dot on the base name
// itself (a dotfile like ".gitignore") is not treated as an extension,
// matching Node's path.extname behavior.
func Extname(path string) string {
	base := Basename(path)
	dot := strings.LastIndexByte(base, '.')
	if dot <= 0 {
		return ""
	}
	return base[dot:]
}

// IsAbsolute reports whether path begins with the root separator.
func IsAbsolute(path string) bool {
	return strings.HasPrefix(path, Separator)
}

// Segments splits a normalized absolute path into its non-empty
// components; Segments("/") returns an empty slice.
func Segments(path string) []string {
	trimmed := strings.Trim(path, Separator)
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, Separator)
}

// Relative expresses target relative to base, both of which must be
// normalized absolute paths, joining with "../" as needed. The result
// never has a trailing slash and uses "." for target == base.
func Relative(base, target string) string {
	baseSegs := Segments(base)
	targetSegs := Segments(target)

	common := 0
	for common < len(baseSegs) && common < len(targetSegs) && baseSegs[common] == targetSegs[common] {
		common++
	}

	ups := len(baseSegs) - common
	var parts []string
	for i := 0; i < ups; i++ {
		parts = append(parts, "..")
	}
	parts = append(parts, targetSegs[common:]...)

	if len(parts) == 0 {
		return "."
	}
	return strings.Join(parts, Separator)
}
