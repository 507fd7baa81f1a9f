package hostconfig

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/nabbar/abel/source"
)

const (
	dirServices = "services"
	dirStorage  = "storage"
	dirTmp      = "tmp"
	dirCache    = "cache"

	fileMetadata = "metadata.json"
	fileSingle   = "source.lua"
	fileArchive  = "source.asar"
)

// Metadata mirrors <root>/services/<name>/metadata.json: the uuid and
// started flag boot-time reconstitution reads.
type Metadata struct {
	UUID    string `json:"uuid"`
	Started bool   `json:"started"`
}

// Store implements lifecycle.Storage, httpapi.SourceStore and
// httpapi.Recorder against one root directory.
type Store struct {
	root string
}

// NewStore builds a Store rooted at root. EnsureLayout should be called
// once at boot before anything else touches it.
func NewStore(root string) *Store {
	return &Store{root: root}
}

func (s *Store) serviceDir(name string) string { return filepath.Join(s.root, dirServices, name) }
func (s *Store) storageDir(name string) string { return filepath.Join(s.root, dirStorage, name) }

// EnsureLayout creates services/, storage/, cache/ if absent and
// recreates tmp/ empty.
func (s *Store) EnsureLayout() error {
	for _, d := range []string{dirServices, dirStorage, dirCache} {
		if err := os.MkdirAll(filepath.Join(s.root, d), 0o755); err != nil {
			return ErrorStorageIO.Error(err)
		}
	}

	tmp := filepath.Join(s.root, dirTmp)
	if err := os.RemoveAll(tmp); err != nil {
		return ErrorStorageIO.Error(err)
	}
	if err := os.MkdirAll(tmp, 0o755); err != nil {
		return ErrorStorageIO.Error(err)
	}

	return nil
}

// EnsureDir implements lifecycle.Storage: creates the per-service
// writable local-storage directory storage/<name>/.
func (s *Store) EnsureDir(name string) error {
	if err := os.MkdirAll(s.storageDir(name), 0o755); err != nil {
		return ErrorStorageIO.Error(err)
	}
	return nil
}

// RemoveDir implements lifecycle.Storage: best-effort recursive delete of
// name's local-storage directory and its persisted source/metadata.
// os.RemoveAll never dereferences a symlink it removes, so a symlink
// pointing outside the root is unlinked, not traversed into.
func (s *Store) RemoveDir(name string) error {
	if err := os.RemoveAll(s.storageDir(name)); err != nil {
		return ErrorStorageIO.Error(err)
	}
	if err := os.RemoveAll(s.serviceDir(name)); err != nil {
		return ErrorStorageIO.Error(err)
	}
	return nil
}

// SaveSingle implements httpapi.SourceStore: persists body as
// services/<name>/source.lua, removing any stale source.asar from a prior
// upload under a different mode. The source kind is decided once, at
// upload time.
func (s *Store) SaveSingle(name string, body []byte) (source.Source, error) {
	dir := s.serviceDir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, ErrorStorageIO.Error(err)
	}
	if err := os.WriteFile(filepath.Join(dir, fileSingle), body, 0o644); err != nil {
		return nil, ErrorStorageIO.Error(err)
	}
	_ = os.Remove(filepath.Join(dir, fileArchive))

	return source.NewSingleFile(body), nil
}

// SaveArchive implements httpapi.SourceStore: persists body as
// services/<name>/source.asar and opens it as a random-access Source.
func (s *Store) SaveArchive(name string, body []byte) (source.Source, error) {
	dir := s.serviceDir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, ErrorStorageIO.Error(err)
	}

	path := filepath.Join(dir, fileArchive)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return nil, ErrorStorageIO.Error(err)
	}
	_ = os.Remove(filepath.Join(dir, fileSingle))

	return source.NewArchive(path)
}

// LoadSource reopens whichever source kind name was last persisted under;
// resolution is a simple file-existence check at the two canonical names.
func (s *Store) LoadSource(name string) (source.Source, error) {
	dir := s.serviceDir(name)

	if _, err := os.Stat(filepath.Join(dir, fileSingle)); err == nil {
		body, rerr := os.ReadFile(filepath.Join(dir, fileSingle))
		if rerr != nil {
			return nil, ErrorStorageIO.Error(rerr)
		}
		return source.NewSingleFile(body), nil
	}

	if _, err := os.Stat(filepath.Join(dir, fileArchive)); err == nil {
		return source.NewArchive(filepath.Join(dir, fileArchive))
	}

	return nil, ErrorUnknownSourceKind.Error(nil)
}

// Record implements httpapi.Recorder: writes metadata.json with the
// service's current uuid and started state.
func (s *Store) Record(name, uuid string, started bool) error {
	dir := s.serviceDir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ErrorStorageIO.Error(err)
	}

	body, err := json.Marshal(Metadata{UUID: uuid, Started: started})
	if err != nil {
		return ErrorMetadataWrite.Error(err)
	}
	if err := os.WriteFile(filepath.Join(dir, fileMetadata), body, 0o644); err != nil {
		return ErrorMetadataWrite.Error(err)
	}
	return nil
}

// Forget implements httpapi.Recorder: removes name's metadata.json as
// part of a full remove.
func (s *Store) Forget(name string) error {
	if err := os.Remove(filepath.Join(s.serviceDir(name), fileMetadata)); err != nil && !os.IsNotExist(err) {
		return ErrorMetadataWrite.Error(err)
	}
	return nil
}

// ReadMetadata parses services/<name>/metadata.json.
func (s *Store) ReadMetadata(name string) (Metadata, error) {
	body, err := os.ReadFile(filepath.Join(s.serviceDir(name), fileMetadata))
	if err != nil {
		return Metadata{}, ErrorMetadataRead.Error(err)
	}

	var m Metadata
	if jerr := json.Unmarshal(body, &m); jerr != nil {
		return Metadata{}, ErrorMetadataParse.Error(jerr)
	}
	return m, nil
}

// ListServices returns every name with a services/<name> directory,
// regardless of whether it still carries valid metadata (the boot sequence
// skips and logs any that don't).
func (s *Store) ListServices() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, dirServices))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, ErrorStorageIO.Error(err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
