// Package storage holds attachment blobs on the local filesystem and
// resolves public URLs for them. It fills the role of the hosted object
// storage bucket: upload a blob by path, resolve a public URL, remove by
// handle.
package storage

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

type LocalBlobStore struct {
	rootDir string
	baseURL string // public URL prefix the files route is mounted under
}

func NewLocalBlobStore(rootDir, baseURL string) (*LocalBlobStore, error) {
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create attachment directory: %w", err)
	}
	return &LocalBlobStore{
		rootDir: rootDir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// RootDir is the directory the public files route serves from.
func (s *LocalBlobStore) RootDir() string {
	return s.rootDir
}

// Upload writes the blob under the given relative path and returns the
// path as the blob's handle.
func (s *LocalBlobStore) Upload(path string, blob []byte) (string, error) {
	cleaned, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(cleaned), 0o755); err != nil {
		return "", fmt.Errorf("failed to create blob directory: %w", err)
	}
	if err := os.WriteFile(cleaned, blob, 0o644); err != nil {
		return "", fmt.Errorf("failed to write blob %s: %w", path, err)
	}
	return path, nil
}

// PublicURL returns the resolvable URL for an uploaded path.
func (s *LocalBlobStore) PublicURL(path string) string {
	escaped := make([]string, 0, 4)
	for _, part := range strings.Split(path, "/") {
		escaped = append(escaped, url.PathEscape(part))
	}
	return s.baseURL + "/files/" + strings.Join(escaped, "/")
}

// Remove deletes blobs by handle. Missing blobs are ignored so removal is
// idempotent.
func (s *LocalBlobStore) Remove(paths []string) error {
	for _, path := range paths {
		cleaned, err := s.resolve(path)
		if err != nil {
			return err
		}
		if err := os.Remove(cleaned); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove blob %s: %w", path, err)
		}
	}
	return nil
}

// resolve maps a handle to an absolute path, rejecting traversal outside
// the root directory.
func (s *LocalBlobStore) resolve(path string) (string, error) {
	cleaned := filepath.Join(s.rootDir, filepath.FromSlash(path))
	rootAbs, err := filepath.Abs(s.rootDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve root directory: %w", err)
	}
	cleanedAbs, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("failed to resolve blob path: %w", err)
	}
	if cleanedAbs != rootAbs && !strings.HasPrefix(cleanedAbs, rootAbs+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid blob path: %s", path)
	}
	return cleanedAbs, nil
}
