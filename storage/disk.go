package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gallery/metrics"
)

// DiskStorage keeps objects as files below BasePath. It stands in for either
// provider when no bucket is configured.
type DiskStorage struct {
	// BasePath is a directory (usually mount point of a disk) that is writable by the current process
	BasePath  string
	provider  Provider
	publicURL string
	dirs      map[string]bool
	dirsMutex sync.Mutex
}

func NewDiskStorage(provider Provider, basePath, publicURL string) *DiskStorage {
	return &DiskStorage{
		BasePath:  basePath,
		provider:  provider,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		dirs:      make(map[string]bool, 10),
	}
}

func (s *DiskStorage) Provider() Provider {
	return s.provider
}

func (s *DiskStorage) PublicURL(key string) string {
	return s.publicURL + "/" + escapeKey(key)
}

func (s *DiskStorage) createDir(dir string) error {
	s.dirsMutex.Lock()
	defer s.dirsMutex.Unlock()

	if ok := s.dirs[dir]; ok {
		return nil
	}
	if err := os.MkdirAll(dir, 0777); err != nil {
		return err
	}
	s.dirs[dir] = true
	return nil
}

func (s *DiskStorage) getFullPath(key string) string {
	return filepath.Join(s.BasePath, filepath.FromSlash(filepath.Clean("/"+key)))
}

func (s *DiskStorage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	done := metrics.StorageTimer(string(s.provider), "put")
	fileName := s.getFullPath(key)
	err := s.createDir(filepath.Dir(fileName))
	if err == nil {
		err = os.WriteFile(fileName, data, 0666)
	}
	done(err)
	return err
}

func (s *DiskStorage) Get(ctx context.Context, key string) ([]byte, error) {
	done := metrics.StorageTimer(string(s.provider), "get")
	data, err := os.ReadFile(s.getFullPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		done(nil)
		return nil, ErrNotFound
	}
	done(err)
	return data, err
}

func (s *DiskStorage) Delete(ctx context.Context, key string) error {
	done := metrics.StorageTimer(string(s.provider), "delete")
	err := os.Remove(s.getFullPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		err = nil
	}
	done(err)
	return err
}

func (s *DiskStorage) List(ctx context.Context, fn func(Object) error) error {
	done := metrics.StorageTimer(string(s.provider), "list")
	err := filepath.WalkDir(s.BasePath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == s.BasePath {
				return filepath.SkipAll
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.BasePath, p)
		if err != nil {
			return err
		}
		return fn(Object{Key: filepath.ToSlash(rel), Size: info.Size()})
	})
	done(err)
	return err
}

func (s *DiskStorage) TotalStoredBytes(ctx context.Context) (int64, error) {
	return sumSizes(ctx, s)
}
