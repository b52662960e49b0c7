package cases

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DefaultMaxUploadBytes is the evidence upload limit when none is configured.
const DefaultMaxUploadBytes = 10 << 20

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// StoredFile describes a file written by FileStore.
type StoredFile struct {
	Path string
	Size int64
	Hash string
}

// FileStore keeps uploaded evidence under a root directory, one folder per
// case.
type FileStore struct {
	root     string
	maxBytes int64
}

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string, maxBytes int64) *FileStore {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &FileStore{root: dir, maxBytes: maxBytes}
}

// MaxBytes is the largest accepted upload.
func (f *FileStore) MaxBytes() int64 { return f.maxBytes }

// ErrTooLarge is returned when an upload exceeds the limit.
type ErrTooLarge struct{ Limit int64 }

func (e ErrTooLarge) Error() string {
	return fmt.Sprintf("File too large. Maximum size is %gMB", float64(e.Limit)/1024/1024)
}

// SafeName strips directory parts and unusual characters from a client file
// name.
func SafeName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = unsafeName.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		return "upload"
	}
	return base
}

// Save streams r to case_{caseID}/{timestamp}_{name} and hashes it on the
// way. Oversized uploads are removed and reported as ErrTooLarge.
func (f *FileStore) Save(caseID int64, name string, r io.Reader, at time.Time) (StoredFile, error) {
	dir := filepath.Join(f.root, fmt.Sprintf("case_%d", caseID))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return StoredFile{}, fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(dir, at.UTC().Format("20060102_150405")+"_"+SafeName(name))
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return StoredFile{}, fmt.Errorf("create upload file: %w", err)
	}

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(out, h), io.LimitReader(r, f.maxBytes+1))
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return StoredFile{}, fmt.Errorf("write upload: %w", err)
	}
	if n > f.maxBytes {
		os.Remove(path)
		return StoredFile{}, ErrTooLarge{Limit: f.maxBytes}
	}
	return StoredFile{Path: path, Size: n, Hash: hex.EncodeToString(h.Sum(nil))}, nil
}

// Remove deletes a stored file if it lives under the root.
func (f *FileStore) Remove(path string) error {
	rel, err := filepath.Rel(f.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// HashRef is the digest recorded for evidence registered by reference.
func HashRef(ref string) string {
	sum := sha256.Sum256([]byte(ref))
	return hex.EncodeToString(sum[:])
}
