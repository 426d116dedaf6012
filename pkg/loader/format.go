// Package loader implements the module resolver and hybrid CJS/ESM
// loader (spec §4.5-§4.9): Node-compatible specifier resolution
// (resolve.go, exports.go), the module cache (cache.go), the transform
// pipeline (transform.go), and the two execution strategies (cjs.go,
// esm.go).
package loader

import (
	"encoding/json"
	"strings"

	"github.com/ersinkoc/webruntime/pkg/rpath"
	"github.com/ersinkoc/webruntime/pkg/rterror"
	"github.com/ersinkoc/webruntime/pkg/vfs"
)

// Format identifies the execution strategy a resolved module should use.
type Format int

const (
	// FormatCJS executes a module through the CJS wrap-and-invoke strategy.
	FormatCJS Format = iota
	// FormatESM executes a module through the ESM specifier-rewrite and
	// host dynamic-import strategy.
	FormatESM
	// FormatJSON parses a module as a JSON value rather than executing it.
	FormatJSON
)

// String returns a human-readable name for the format.
func (f Format) String() string {
	switch f {
	case FormatCJS:
		return "commonjs"
	case FormatESM:
		return "module"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// packageJSON is the subset of package.json fields the resolver and
// format detector consult.
type packageJSON struct {
	Name    string          `json:"name"`
	Main    string          `json:"main"`
	Module  string          `json:"module"`
	Type    string          `json:"type"`
	Exports json.RawMessage `json:"exports"`
}

// readPackageJSON loads and parses the package.json at path, which must
// name the package.json file itself (not its containing directory).
func readPackageJSON(fs *vfs.VFS, path string) (*packageJSON, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, rterror.Wrap(rterror.KindParse, err, path)
	}
	return &pkg, nil
}

// findNearestPackageJSON walks upward from dir (inclusive) looking for a
// package.json, returning nil if the filesystem root is reached first. A
// malformed package.json is treated the same as a missing one (spec §7:
// "invalid package.json treated as absent") rather than propagated as a
// resolution failure.
func findNearestPackageJSON(fs *vfs.VFS, dir string) (*packageJSON, string, error) {
	current := dir
	for {
		candidate := rpath.Join(current, "package.json")
		if fs.Exists(candidate) {
			if pkg, err := readPackageJSON(fs, candidate); err == nil {
				return pkg, candidate, nil
			}
		}
		if current == "/" {
			return nil, "", nil
		}
		current = rpath.Dirname(current)
	}
}

// FormatOf determines the execution format for the file at path: an
// explicit .mjs/.mts extension always means ESM, .cjs/.cts always means
// CJS, .json always means JSON, and a plain .js/.ts/.jsx/.tsx defers to
// the nearest ancestor package.json's "type" field (ESM if "module",
// CJS otherwise, matching Node's own algorithm).
func FormatOf(fs *vfs.VFS, path string) (Format, error) {
	ext := rpath.Extname(path)
	switch ext {
	case ".mjs", ".mts":
		return FormatESM, nil
	case ".cjs", ".cts":
		return FormatCJS, nil
	case ".json":
		return FormatJSON, nil
	}

	pkg, _, err := findNearestPackageJSON(fs, rpath.Dirname(path))
	if err != nil {
		return FormatCJS, err
	}
	if pkg != nil && strings.TrimSpace(pkg.Type) == "module" {
		return FormatESM, nil
	}
	return FormatCJS, nil
}
