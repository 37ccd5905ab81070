package keys

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// FileStore persists the credential collection as a single JSON file.
// Saves write to a temp file in the same directory and rename over the
// target, so readers never observe a partial write.
type FileStore struct {
	path string
	now  func() time.Time
}

// NewFileStore creates a FileStore backed by the JSON file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// Load reads the full collection. Expired credentials are removed and the
// pruned set is persisted back before returning, so a second Load never
// re-prunes the same entries. A missing file is initialized to an empty
// collection.
func (s *FileStore) Load(ctx context.Context) ([]Credential, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := s.Save(ctx, []Credential{}); err != nil {
			return nil, err
		}
		return []Credential{}, nil
	}
	if err != nil {
		return nil, storeErr("read key file", err)
	}

	var creds []Credential
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, &Error{Kind: KindCorruptStore, Message: "decode key file", cause: err}
	}

	live := pruneExpired(creds, s.now())
	if len(live) != len(creds) {
		if err := s.Save(ctx, live); err != nil {
			return nil, err
		}
	}
	return live, nil
}

// Save atomically overwrites the collection on disk.
func (s *FileStore) Save(_ context.Context, creds []Credential) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return storeErr("create key directory", err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return storeErr("encode keys", err)
	}

	tmp, err := os.CreateTemp(dir, ".keys-*.json")
	if err != nil {
		return storeErr("create temp key file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return storeErr("write temp key file", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return storeErr("close temp key file", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return storeErr(fmt.Sprintf("replace %s", s.path), err)
	}
	return nil
}

// pruneExpired filters out expired credentials, preserving the relative order
// of survivors.
func pruneExpired(creds []Credential, now time.Time) []Credential {
	live := make([]Credential, 0, len(creds))
	for _, c := range creds {
		if c.Expired(now) {
			continue
		}
		live = append(live, c)
	}
	return live
}
