package source

import (
	"bytes"
	"time"
)

// singleFile mounts one blob of Lua source at MainEntry regardless of the
// name it was uploaded under, per the canonical main.lua resolution rule.
type singleFile struct {
	body []byte
	mod  time.Time
}

// NewSingleFile builds a Source serving body as the literal path "main.lua".
func NewSingleFile(body []byte) Source {
	return &singleFile{body: body, mod: time.Now()}
}

func (s *singleFile) Open(path string) (File, error) {
	p, ok := Normalize(path)
	if !ok {
		return nil, ErrorPathEscape.Error(nil)
	}
	if p != MainEntry {
		return nil, ErrorNotFound.Error(nil)
	}
	return &memFile{r: bytes.NewReader(s.body)}, nil
}

func (s *singleFile) Exists(path string) bool {
	p, ok := Normalize(path)
	return ok && p == MainEntry
}

func (s *singleFile) Metadata(path string) (Info, error) {
	p, ok := Normalize(path)
	if !ok {
		return nil, ErrorPathEscape.Error(nil)
	}
	if p != MainEntry {
		return nil, ErrorNotFound.Error(nil)
	}
	return fileInfo{dir: false, size: int64(len(s.body)), mod: s.mod}, nil
}

func (s *singleFile) Clone() Source {
	cp := make([]byte, len(s.body))
	copy(cp, s.body)
	return &singleFile{body: cp, mod: s.mod}
}

func (s *singleFile) Close() error { return nil }

type memFile struct {
	r *bytes.Reader
}

func (m *memFile) Read(p []byte) (int, error)             { return m.r.Read(p) }
func (m *memFile) ReadAt(p []byte, off int64) (int, error) { return m.r.ReadAt(p, off) }
func (m *memFile) Close() error                           { return nil }
