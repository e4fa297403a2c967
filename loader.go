// loader.go: resolving dotted module names to .ddmm files and caching their
// transformed text.
//
// Resolution order for "pkg.mod" is the importer's directory, the working
// directory, any roots the Loader was constructed with, then each entry of
// DDMMPATH. A name resolves to <root>/pkg/mod.ddmm, or to
// <root>/pkg/mod/__init__.ddmm when it names a package.
//
// The transformed text is cached next to the source under __ddmmcache__/,
// keyed by the source's modification time and an fnv1a digest of its bytes;
// either changing invalidates the entry. Cache I/O failures are soft: the
// loader just transforms again.
package ddmm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/segmentio/fasthash/fnv1a"
)

const (
	// SearchPathEnv names the environment variable holding extra module
	// search roots, separated by the OS list separator.
	SearchPathEnv = "DDMMPATH"

	sourceExt    = ".ddmm"
	cacheDirName = "__ddmmcache__"
	cacheExt     = ".ddmm.out"
)

var cacheMagic = []byte("ddmm1")

// ModuleFile is a resolved and transformed module, ready for an Engine.
type ModuleFile struct {
	Name      string // dotted name as requested
	Path      string // resolved source path (cleaned, absolute)
	IsPackage bool   // resolved via __init__.ddmm
	Source    string // transformed host source
}

// Loader resolves dotted module names and caches successful loads. It is not
// safe for concurrent use; give each goroutine its own Loader.
type Loader struct {
	roots  []string
	loaded map[string]*loadedModule
}

type loadedModule struct {
	mtime int64 // unix nanoseconds at load
	mod   *ModuleFile
}

// NewLoader returns a Loader that searches the given roots after the
// importer's directory and the working directory, and before DDMMPATH.
func NewLoader(roots ...string) *Loader {
	return &Loader{roots: roots, loaded: make(map[string]*loadedModule)}
}

// Resolve maps a dotted module name to a source file path without loading
// it. importer, when non-empty, is the path of the file doing the import;
// its directory is searched first.
func (l *Loader) Resolve(name, importer string) (path string, isPkg bool, err error) {
	parts := strings.Split(name, ".")
	for _, p := range parts {
		if p == "" {
			return "", false, fmt.Errorf("invalid module name %q", name)
		}
	}
	rel := filepath.Join(parts...)

	for _, base := range l.searchRoots(importer) {
		mod := filepath.Join(base, rel+sourceExt)
		if fi, err := os.Stat(mod); err == nil && !fi.IsDir() {
			return absClean(mod), false, nil
		}
		pkg := filepath.Join(base, rel, "__init__"+sourceExt)
		if fi, err := os.Stat(pkg); err == nil && !fi.IsDir() {
			return absClean(pkg), true, nil
		}
	}
	return "", false, fmt.Errorf("module not found: %s", name)
}

// Load resolves name, reads the source, and returns its transformed text,
// consulting the on-disk cache first. Successful loads are also memoized in
// memory until the source's mtime changes. Failures are never cached.
func (l *Loader) Load(name, importer string) (*ModuleFile, error) {
	path, isPkg, err := l.Resolve(name, importer)
	if err != nil {
		return nil, err
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("module not found: %s", name)
	}
	mtime := fi.ModTime().UnixNano()

	if rec, ok := l.loaded[path]; ok && rec.mtime == mtime {
		return rec.mod, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read module %s: %w", name, err)
	}
	digest := sourceDigest(raw)

	cacheFile := cachePath(path)
	src, hit := readCache(cacheFile, mtime, digest)
	if !hit {
		src = Transform(string(raw))
		// Best effort; a read-only tree still loads fine.
		_ = writeCache(cacheFile, mtime, digest, src)
	}

	mod := &ModuleFile{Name: name, Path: path, IsPackage: isPkg, Source: src}
	l.loaded[path] = &loadedModule{mtime: mtime, mod: mod}
	return mod, nil
}

func (l *Loader) searchRoots(importer string) []string {
	var bases []string
	if importer != "" {
		bases = append(bases, filepath.Dir(importer))
	}
	if cwd, err := os.Getwd(); err == nil {
		bases = append(bases, cwd)
	}
	bases = append(bases, l.roots...)
	if sp := os.Getenv(SearchPathEnv); sp != "" {
		for _, root := range filepath.SplitList(sp) {
			if root != "" {
				bases = append(bases, root)
			}
		}
	}
	return bases
}

func absClean(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return filepath.Clean(abs)
	}
	return filepath.Clean(p)
}

func sourceDigest(raw []byte) uint64 {
	return fnv1a.HashBytes64(raw)
}

// cachePath maps <dir>/<stem>.ddmm to <dir>/__ddmmcache__/<stem>.ddmm.out.
func cachePath(sourcePath string) string {
	dir := filepath.Dir(sourcePath)
	stem := strings.TrimSuffix(filepath.Base(sourcePath), sourceExt)
	return filepath.Join(dir, cacheDirName, stem+cacheExt)
}

// Cache layout: magic, little-endian int64 source mtime (unixnano),
// little-endian uint64 fnv1a source digest, gzip-compressed transformed text.

func readCache(path string, mtime int64, digest uint64) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	hdr := make([]byte, len(cacheMagic)+16)
	if _, err := io.ReadFull(f, hdr); err != nil {
		return "", false
	}
	if !bytes.Equal(hdr[:len(cacheMagic)], cacheMagic) {
		return "", false
	}
	if int64(binary.LittleEndian.Uint64(hdr[len(cacheMagic):])) != mtime {
		return "", false
	}
	if binary.LittleEndian.Uint64(hdr[len(cacheMagic)+8:]) != digest {
		return "", false
	}

	zr, err := gzip.NewReader(f)
	if err != nil {
		return "", false
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return "", false
	}
	return string(out), true
}

func writeCache(path string, mtime int64, digest uint64, src string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	hdr := make([]byte, len(cacheMagic)+16)
	copy(hdr, cacheMagic)
	binary.LittleEndian.PutUint64(hdr[len(cacheMagic):], uint64(mtime))
	binary.LittleEndian.PutUint64(hdr[len(cacheMagic)+8:], digest)
	if _, err := f.Write(hdr); err != nil {
		return err
	}

	zw := gzip.NewWriter(f)
	if _, err := zw.Write([]byte(src)); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}
