package loader

import (
	"hash/fnv"
	"strings"

	"github.com/golang/groupcache/lru"

	"github.com/ersinkoc/webruntime/pkg/rterror"
)

// transformCacheCapacity bounds the transform pipeline's result cache.
const transformCacheCapacity = 1024

// transformableExtensions lists the source extensions the loader always
// routes through the transform collaborator before execution; plain
// ".js" is treated as already script-style and skips transformation
// (spec §4.8 step 5).
var transformableExtensions = map[string]bool{
	".ts":  true,
	".tsx": true,
	".jsx": true,
	".mjs": true,
	".mts": true,
	".cts": true,
}

// sourceURLPrefix is the comment marker the transform pipeline appends
// when a transformed source doesn't already end with one, so host
// debuggers can attribute the text to a VFS path (spec §4.7).
const sourceURLPrefix = "//# sourceURL="

// Transformer is the pluggable collaborator interface for source
// transforms (C7): strip types, convert JSX, rewrite ESM to
// script-style, or anything else the host wants, so long as it's pure
// and deterministic for a given (src, filename) pair. The core never
// inspects what a Transformer does internally.
type Transformer interface {
	Transform(src []byte, filename string) (out []byte, sourcemap []byte, err error)
}

// TransformerFunc adapts a plain function to the Transformer interface.
type TransformerFunc func(src []byte, filename string) ([]byte, []byte, error)

// Transform implements Transformer.
func (f TransformerFunc) Transform(src []byte, filename string) ([]byte, []byte, error) {
	return f(src, filename)
}

// IdentityTransformer returns src unchanged with no sourcemap. It's the
// default used when no host transform collaborator is configured, which
// is sufficient for sources that are already plain CJS/ESM JavaScript.
var IdentityTransformer Transformer = TransformerFunc(func(src []byte, filename string) ([]byte, []byte, error) {
	return src, nil, nil
})

// TransformPipeline wraps a Transformer with the transformed-source cache
// keyed by a 32-bit FNV-1a hash of the raw source (spec §4.7). The cache
// is deliberately a separate golang/groupcache/lru instance from the
// module cache in cache.go - clearing one must never affect the other.
type TransformPipeline struct {
	transformer Transformer
	cache       *lru.Cache
}

// NewTransformPipeline constructs a pipeline around transformer. A nil
// transformer defaults to IdentityTransformer.
func NewTransformPipeline(transformer Transformer) *TransformPipeline {
	if transformer == nil {
		transformer = IdentityTransformer
	}
	return &TransformPipeline{
		transformer: transformer,
		cache:       lru.New(transformCacheCapacity),
	}
}

// IsTransformable reports whether filename's extension routes through
// the transform collaborator rather than being treated as already
// script-style.
func IsTransformable(filename string, formatIsESM bool) bool {
	for ext := range transformableExtensions {
		if strings.HasSuffix(filename, ext) {
			return true
		}
	}
	return formatIsESM
}

type transformCacheEntry struct {
	out       []byte
	sourcemap []byte
}

// Transform applies the configured Transformer to src, short-circuiting
// on a cache hit keyed by fnv1a(src). On a miss, the result ends with a
// sourceURL comment pointing at filename, appended if the transformer
// didn't already produce one. The key does not include filename, so a hit
// returns the output (sourceURL included) cached for whichever file first
// had that exact source.
func (p *TransformPipeline) Transform(src []byte, filename string) ([]byte, []byte, error) {
	key := fnv1a(src)
	if cached, ok := p.cache.Get(key); ok {
		entry := cached.(transformCacheEntry)
		return entry.out, entry.sourcemap, nil
	}

	out, sourcemap, err := p.transformer.Transform(src, filename)
	if err != nil {
		return nil, nil, rterror.Wrap(rterror.KindTransformError, err, filename)
	}

	out = ensureSourceURL(out, filename)

	p.cache.Add(key, transformCacheEntry{out: out, sourcemap: sourcemap})
	return out, sourcemap, nil
}

// ClearCache discards all cached transform results.
func (p *TransformPipeline) ClearCache() {
	p.cache.Clear()
}

// ensureSourceURL appends a "//# sourceURL=vfs://<path>" comment to src
// as its final line, unless src already contains a sourceURL comment
// anywhere.
func ensureSourceURL(src []byte, filename string) []byte {
	text := string(src)
	if strings.Contains(text, sourceURLPrefix) {
		return src
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	text += sourceURLPrefix + "vfs://" + filename
	return []byte(text)
}

// fnv1a computes the 32-bit FNV-1a hash of data.
func fnv1a(data []byte) uint32 {
	h := fnv.New32a()
	h.Write(data)
	return h.Sum32()
}
