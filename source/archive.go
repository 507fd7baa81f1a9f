package source

import (
	"bytes"
	"io"
	"os"

	arczip "github.com/nabbar/abel/archive/archive/zip"
	arctps "github.com/nabbar/abel/archive/archive/types"
)

// archiveSource is a random-access bundle reader over the zip reader in
// archive/archive/zip: the archive is opened once and kept open for the
// lifetime of the source, entries are read on demand via Reader.Get rather
// than extracted up front.
type archiveSource struct {
	path string
	f    *os.File
	r    arctps.Reader
}

// NewArchive opens path (a zip-format ASAR-style bundle) as a Source. The
// archive must contain an entry at the literal path "main.lua".
func NewArchive(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ErrorArchiveOpen.Error(err)
	}

	r, err := arczip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, ErrorArchiveOpen.Error(err)
	}

	if !r.Has(MainEntry) {
		_ = r.Close()
		_ = f.Close()
		return nil, ErrorMainEntryMissing.Error(nil)
	}

	return &archiveSource{path: path, f: f, r: r}, nil
}

func (a *archiveSource) Open(path string) (File, error) {
	p, ok := Normalize(path)
	if !ok {
		return nil, ErrorPathEscape.Error(nil)
	}

	rc, err := a.r.Get(p)
	if err != nil {
		return nil, ErrorNotFound.Error(err)
	}

	buf, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return nil, ErrorArchiveEntry.Error(err)
	}

	return &memFile{r: bytes.NewReader(buf)}, nil
}

func (a *archiveSource) Exists(path string) bool {
	p, ok := Normalize(path)
	return ok && a.r.Has(p)
}

func (a *archiveSource) Metadata(path string) (Info, error) {
	p, ok := Normalize(path)
	if !ok {
		return nil, ErrorPathEscape.Error(nil)
	}

	st, err := a.r.Info(p)
	if err != nil {
		return nil, ErrorNotFound.Error(err)
	}

	return fileInfo{dir: st.IsDir(), size: st.Size(), mod: st.ModTime()}, nil
}

// Clone re-opens the same archive file independently so the clone's Close
// does not invalidate the original's handle.
func (a *archiveSource) Clone() Source {
	s, err := NewArchive(a.path)
	if err != nil {
		return a
	}
	return s
}

func (a *archiveSource) Close() error {
	_ = a.r.Close()
	return a.f.Close()
}
