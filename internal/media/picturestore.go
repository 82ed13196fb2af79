// Package media handles the picture side of sharing: downsizing images for
// the wire and storing received bytes content-addressed on disk.
package media

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/reflecta/backend/internal/errors"
)

// Wire events carry peer-supplied hashes; the shape is checked before any
// path is built from one.
var hashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// PictureStore stores received picture bytes by their SHA-256 content hash.
// Identical bytes are stored once; two peers sending different images under
// the same basename land in different files instead of clobbering each
// other. A basename index keeps wire references resolvable.
//
// Like the reflection store, the index is confined to the session loop and
// carries no locks.
type PictureStore struct {
	baseDir string
	index   map[string]string // basename -> content hash
}

// NewPictureStore creates a PictureStore rooted at baseDir.
func NewPictureStore(baseDir string) *PictureStore {
	return &PictureStore{
		baseDir: baseDir,
		index:   map[string]string{},
	}
}

// Hash calculates the SHA-256 hash of data.
func Hash(data []byte) string {
	h := sha256.New()
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// path returns the storage path for a hash:
// baseDir/{hash[0:2]}/{hash[2:4]}/{hash}. Two directory levels keep any one
// directory small.
func (s *PictureStore) path(hash string) string {
	return filepath.Join(s.baseDir, hash[0:2], hash[2:4], hash)
}

// Put stores picture bytes under their content hash and points basename at
// them. Returns the content hash.
func (s *PictureStore) Put(basename string, data []byte) (string, error) {
	hash := Hash(data)

	dir := filepath.Dir(s.path(hash))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	path := s.path(hash)
	if _, err := os.Stat(path); err != nil {
		// not stored yet
		if err := os.WriteFile(path, data, 0644); err != nil {
			return "", fmt.Errorf("failed to write picture: %w", err)
		}
	}

	s.index[basename] = hash
	return hash, nil
}

// Resolve returns the on-disk path for a wire reference. The content hash
// wins when the sender supplied one; the basename index is the fallback for
// peers that did not.
func (s *PictureStore) Resolve(basename, hash string) (string, error) {
	if hash == "" {
		var ok bool
		hash, ok = s.index[basename]
		if !ok {
			return "", errors.New(errors.ErrPictureNotFound,
				fmt.Sprintf("no picture received for %q", basename))
		}
	}
	if !hashPattern.MatchString(hash) {
		return "", errors.New(errors.ErrPictureNotFound,
			fmt.Sprintf("malformed picture hash for %q", basename))
	}
	path := s.path(hash)
	if _, err := os.Stat(path); err != nil {
		return "", errors.Wrap(errors.ErrPictureNotFound, "picture bytes missing", err)
	}
	return path, nil
}

// Has reports whether bytes for the given reference are present locally.
func (s *PictureStore) Has(basename, hash string) bool {
	_, err := s.Resolve(basename, hash)
	return err == nil
}

// Retrieve reads stored picture bytes by content hash.
func (s *PictureStore) Retrieve(hash string) ([]byte, error) {
	if !hashPattern.MatchString(hash) {
		return nil, errors.New(errors.ErrPictureNotFound, "malformed picture hash")
	}
	data, err := os.ReadFile(s.path(hash))
	if err != nil {
		return nil, errors.Wrap(errors.ErrPictureNotFound, "picture not found", err)
	}
	return data, nil
}
