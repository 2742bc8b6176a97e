package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
)

// LocalStorage is a filesystem-backed Provider keyed directly by the
// storage key grammar (no UUID renaming, no year/month bucketing): the key
// itself is the relative path under basePath.
type LocalStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) (Provider, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

func (s *LocalStorage) fullPath(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	return filepath.Join(s.basePath, clean), nil
}

func (s *LocalStorage) Put(ctx context.Context, key string, r io.Reader) error {
	fullPath, err := s.fullPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	tmp := fullPath + ".tmp"
	dst, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		os.Remove(tmp)
		return fmt.Errorf("write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close file: %w", err)
	}
	// Rename so a reader never observes a partially-written key.
	if err := os.Rename(tmp, fullPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("finalize file: %w", err)
	}
	return nil
}

func (s *LocalStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := s.fullPath(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	return f, nil
}

func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	fullPath, err := s.fullPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	fullPath, err := s.fullPath(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(fullPath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", key, err)
}

func (s *LocalStorage) Stat(ctx context.Context, key string) (Info, error) {
	fullPath, err := s.fullPath(key)
	if err != nil {
		return Info{}, err
	}
	fi, err := os.Stat(fullPath)
	if err != nil {
		return Info{}, fmt.Errorf("stat %s: %w", key, err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(fullPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return Info{
		Key:         key,
		Size:        fi.Size(),
		ContentType: contentType,
		ModTime:     fi.ModTime(),
	}, nil
}
