package loader

import (
	"fmt"

	"github.com/golang/groupcache/lru"

	"github.com/ersinkoc/webruntime/pkg/builtin"
	"github.com/ersinkoc/webruntime/pkg/rpath"
	"github.com/ersinkoc/webruntime/pkg/rterror"
	"github.com/ersinkoc/webruntime/pkg/vfs"
)

// candidateExtensions is the order in which bare and extension-less
// specifiers are probed against the filesystem (spec §4.5).
var candidateExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".json", ".mjs", ".cjs"}

// DefaultConditions is the host condition list consulted by package.json
// "exports" resolution, in priority order (spec §4.5).
var DefaultConditions = []string{"browser", "import", "require", "default"}

// resolveCacheCapacity bounds the resolver's specifier cache. Resolution
// results are small (a path and a format tag), so a generous capacity
// costs little memory while avoiding repeat node_modules walks for
// frequently re-required specifiers.
const resolveCacheCapacity = 4096

// Resolved is the outcome of resolving a specifier.
type Resolved struct {
	// Builtin is true when the specifier named a registered builtin
	// module; Path and Format are meaningless in that case.
	Builtin bool
	// Path is the canonical absolute VFS path the specifier resolved to.
	Path string
	// Format is the execution strategy that should be used to load Path.
	Format Format
}

// Resolver implements the module resolution algorithm (C5), combining
// builtin lookup, relative/absolute file resolution, and a Node-style
// node_modules walk with package.json "exports" support.
//
// Resolver caches resolution results keyed by (specifier, fromPath),
// using golang/groupcache/lru as its backing store - the same cache
// implementation the transform pipeline in transform.go uses, repurposed
// here for specifier resolution rather than the rclone-style remote
// directory-listing cache it was originally written for.
type Resolver struct {
	fs        *vfs.VFS
	builtins  *builtin.Registry
	cache     *lru.Cache
	conditions []string
}

// NewResolver constructs a Resolver backed by fs and builtins, using
// DefaultConditions as the condition list.
func NewResolver(fs *vfs.VFS, builtins *builtin.Registry) *Resolver {
	return &Resolver{
		fs:         fs,
		builtins:   builtins,
		cache:      lru.New(resolveCacheCapacity),
		conditions: DefaultConditions,
	}
}

type resolveCacheKey struct {
	specifier string
	from      string
}

// Resolve resolves specifier as it would be required or imported from
// the module at fromPath.
func (r *Resolver) Resolve(specifier, fromPath string) (Resolved, error) {
	if r.builtins.Has(specifier) {
		return Resolved{Builtin: true}, nil
	}

	// A requester ending in "/" (such as the facade's cwd + "/") names a
	// directory: resolve from that directory itself, not from its parent.
	if len(fromPath) > 1 && fromPath[len(fromPath)-1] == '/' {
		fromPath += "."
	}

	key := resolveCacheKey{specifier: specifier, from: fromPath}
	if cached, ok := r.cache.Get(key); ok {
		return cached.(Resolved), nil
	}

	var resolved Resolved
	var err error
	if isRelativeOrAbsolute(specifier) {
		resolved, err = r.resolveFileOrDirectory(r.absoluteSpecifierPath(specifier, fromPath))
	} else {
		resolved, err = r.resolveBare(specifier, fromPath)
	}
	if err != nil {
		return Resolved{}, err
	}

	r.cache.Add(key, resolved)
	return resolved, nil
}

// ClearCache discards all cached resolution results.
func (r *Resolver) ClearCache() {
	r.cache.Clear()
}

func isRelativeOrAbsolute(specifier string) bool {
	return specifier == "." || specifier == ".." ||
		len(specifier) > 0 && (specifier[0] == '/' ||
			(len(specifier) > 1 && specifier[0] == '.' && (specifier[1] == '/' || specifier[1] == '.')))
}

func (r *Resolver) absoluteSpecifierPath(specifier, fromPath string) string {
	if rpath.IsAbsolute(specifier) {
		return specifier
	}
	return rpath.Join(rpath.Dirname(fromPath), specifier)
}

// resolveFileOrDirectory resolves a relative/absolute specifier that has
// already been joined against its requester's directory: it probes the
// path as a file (with extension fallback), then as a directory (main/
// exports/index fallback).
func (r *Resolver) resolveFileOrDirectory(path string) (Resolved, error) {
	if found, ok := r.probeFile(path); ok {
		format, err := FormatOf(r.fs, found)
		return Resolved{Path: found, Format: format}, err
	}

	if stat, err := r.fs.Stat(path); err == nil && stat.IsDirectory() {
		return r.resolveDirectory(path)
	}

	return Resolved{}, rterror.ModuleNotFound(path)
}

// probeFile checks whether path (or path with one of candidateExtensions
// appended) names a file.
func (r *Resolver) probeFile(path string) (string, bool) {
	if stat, err := r.fs.Stat(path); err == nil && stat.IsFile() {
		return canonicalPath(path), true
	}
	for _, ext := range candidateExtensions {
		candidate := path + ext
		if stat, err := r.fs.Stat(candidate); err == nil && stat.IsFile() {
			return canonicalPath(candidate), true
		}
	}
	return "", false
}

// canonicalPath normalizes path, which has already been confirmed to
// resolve to an existing node by a prior Stat call, so that every path
// this resolver hands back (as a Resolved.Path, a module cache key) is
// canonical per spec §3 - even though rpath.Join's candidate-building
// along the way may have produced a path with redundant "." segments or
// doubled separators that Stat's own internal normalization tolerated.
func canonicalPath(path string) string {
	normalized, err := rpath.Normalize("/", path)
	if err != nil {
		return path
	}
	return normalized
}

// resolveDirectory resolves a directory specifier via its package.json
// ("exports" first, then "main"/"module"), falling back to an index file.
func (r *Resolver) resolveDirectory(dir string) (Resolved, error) {
	pkgPath := rpath.Join(dir, "package.json")
	if r.fs.Exists(pkgPath) {
		// A malformed package.json falls through to index-file probing
		// (spec §7: "invalid package.json treated as absent") rather than
		// failing resolution outright.
		if pkg, err := readPackageJSON(r.fs, pkgPath); err == nil {
			if len(pkg.Exports) > 0 {
				target, err := resolveExportsMain(pkg.Exports, r.conditions)
				if err != nil {
					return Resolved{}, err
				}
				if target != "" {
					resolvedPath := rpath.Join(dir, target)
					if found, ok := r.probeFile(resolvedPath); ok {
						format, err := FormatOf(r.fs, found)
						return Resolved{Path: found, Format: format}, err
					}
					return Resolved{}, rterror.ModuleNotFound(resolvedPath)
				}
			}

			for _, field := range []string{pkg.Main, pkg.Module} {
				if field == "" {
					continue
				}
				candidate := rpath.Join(dir, field)
				if found, ok := r.probeFile(candidate); ok {
					format, err := FormatOf(r.fs, found)
					return Resolved{Path: found, Format: format}, err
				}
			}
		}
	}

	for _, ext := range candidateExtensions {
		candidate := rpath.Join(dir, "index"+ext)
		if stat, err := r.fs.Stat(candidate); err == nil && stat.IsFile() {
			candidate = canonicalPath(candidate)
			format, err := FormatOf(r.fs, candidate)
			return Resolved{Path: candidate, Format: format}, err
		}
	}

	return Resolved{}, rterror.ModuleNotFound(dir)
}

// resolveBare resolves a bare specifier (e.g. "lodash" or
// "@scope/pkg/subpath") by walking node_modules directories upward from
// fromPath's directory, per Node's module resolution algorithm.
func (r *Resolver) resolveBare(specifier, fromPath string) (Resolved, error) {
	packageName, subpath := splitPackageSpecifier(specifier)

	dir := rpath.Dirname(fromPath)
	for {
		nodeModules := rpath.Join(dir, "node_modules")
		packageDir := rpath.Join(nodeModules, packageName)

		if stat, err := r.fs.Stat(packageDir); err == nil && stat.IsDirectory() {
			if resolved, err := r.resolvePackage(packageDir, subpath); err == nil {
				return resolved, nil
			}
		}

		if dir == "/" {
			break
		}
		dir = rpath.Dirname(dir)
	}

	return Resolved{}, rterror.ModuleNotFound(specifier)
}

// resolvePackage resolves subpath within the package rooted at
// packageDir, consulting "exports" subpath/pattern mappings when present
// and otherwise falling back to direct file resolution.
func (r *Resolver) resolvePackage(packageDir, subpath string) (Resolved, error) {
	pkgPath := rpath.Join(packageDir, "package.json")
	if r.fs.Exists(pkgPath) {
		// A malformed package.json falls through to direct subpath
		// resolution (spec §7) rather than failing outright.
		if pkg, err := readPackageJSON(r.fs, pkgPath); err == nil && len(pkg.Exports) > 0 {
			target, err := resolveExportsSubpath(pkg.Exports, subpath, r.conditions)
			if err != nil {
				return Resolved{}, err
			}
			resolvedPath := rpath.Join(packageDir, target)
			if found, ok := r.probeFile(resolvedPath); ok {
				format, err := FormatOf(r.fs, found)
				return Resolved{Path: found, Format: format}, err
			}
			return Resolved{}, rterror.ModuleNotFound(resolvedPath)
		}
	}

	if subpath == "" {
		return r.resolveDirectory(packageDir)
	}
	return r.resolveFileOrDirectory(rpath.Join(packageDir, subpath))
}

// splitPackageSpecifier divides a bare specifier into its package name
// (including a leading "@scope/" if present) and the remaining subpath.
func splitPackageSpecifier(specifier string) (packageName string, subpath string) {
	segments := rpath.Segments("/" + specifier)
	if len(segments) == 0 {
		return specifier, ""
	}

	if segments[0][0] == '@' {
		if len(segments) < 2 {
			return specifier, ""
		}
		packageName = fmt.Sprintf("%s/%s", segments[0], segments[1])
		if len(segments) > 2 {
			subpath = "./" + joinSegments(segments[2:])
		}
		return packageName, subpath
	}

	packageName = segments[0]
	if len(segments) > 1 {
		subpath = "./" + joinSegments(segments[1:])
	}
	return packageName, subpath
}

func joinSegments(segments []string) string {
	out := ""
	for i, s := range segments {
		if i > 0 {
			out += "/"
		}
		out += s
	}
	return out
}
