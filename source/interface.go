// Package source implements the read-only virtual filesystem a service's
// code is evaluated against: a single uploaded Lua file, a directory tree,
// or a random-access archive. The entry point a service is always prepared
// from is the literal path "main.lua".
package source

import (
	"io"
	"strings"
	"time"
)

const MainEntry = "main.lua"

// Info describes one path inside a Source, mirroring fs.FileInfo closely
// enough for callers that only need size/dir/mod-time.
type Info interface {
	IsDir() bool
	Size() int64
	ModTime() time.Time
}

// File is a read-only file handle opened from a Source. Callers must Close it.
type File interface {
	io.Reader
	io.Closer
	io.ReaderAt
}

// Source is a read-only, clonable virtual filesystem rooted at some backing
// store (a single file, a directory, or an archive). Implementations must
// tolerate concurrent Open/Exists/Metadata calls from multiple workers.
type Source interface {
	// Open returns a read handle for path, or ErrorNotFound if absent.
	Open(path string) (File, error)
	// Exists reports whether path resolves to an entry in this source.
	Exists(path string) bool
	// Metadata returns size/dir info for path.
	Metadata(path string) (Info, error)
	// Clone returns a handle sharing the same backing store, safe to hand
	// to another isolate build without racing this one's lifecycle.
	Clone() Source
	// Close releases any OS resources (open archive file, etc). Single-file
	// and directory sources are no-ops.
	Close() error
}

type fileInfo struct {
	dir  bool
	size int64
	mod  time.Time
}

func (f fileInfo) IsDir() bool      { return f.dir }
func (f fileInfo) Size() int64      { return f.size }
func (f fileInfo) ModTime() time.Time { return f.mod }

// Normalize cleans a slash-separated path the way a service's require()
// resolves module names against the source root: split on '/', drop '.'
// segments, pop one segment per '..', and fail (ok=false) if the result
// would escape the root. The returned path never begins with '/' and never
// contains '..' segments.
func Normalize(path string) (clean string, ok bool) {
	parts := strings.Split(path, "/")
	stack := make([]string, 0, len(parts))

	for _, p := range parts {
		switch p {
		case "", ".":
			continue
		case "..":
			if len(stack) == 0 {
				return "", false
			}
			stack = stack[:len(stack)-1]
		default:
			stack = append(stack, p)
		}
	}

	return strings.Join(stack, "/"), true
}
