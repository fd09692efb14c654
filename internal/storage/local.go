package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// folderMarkerFile holds a "prefix/" marker object on disk.
const folderMarkerFile = ".folder"

// LocalStore implements ObjectStore on a directory tree: one directory per
// bucket under Root, one file per object.
type LocalStore struct {
	Root string
}

// NewLocalStore creates a store rooted at dir.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{Root: dir}
}

func (s *LocalStore) path(loc Location) string {
	p := filepath.Join(s.Root, loc.Bucket, filepath.FromSlash(loc.Key))
	if loc.IsFolderMarker() {
		p = filepath.Join(p, folderMarkerFile)
	}
	return p
}

func (s *LocalStore) Get(ctx context.Context, loc Location) ([]byte, error) {
	const op = "Get"
	if err := validate(loc); err != nil {
		return nil, WrapStorageError(op, err, "")
	}

	data, err := os.ReadFile(s.path(loc))
	if err != nil {
		return nil, WrapStorageError(op, mapFSError(err), loc.String())
	}
	return data, nil
}

func (s *LocalStore) Put(ctx context.Context, loc Location, data []byte) error {
	const op = "Put"
	if err := validate(loc); err != nil {
		return WrapStorageError(op, err, "")
	}

	p := s.path(loc)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return WrapStorageError(op, err, loc.String())
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return WrapStorageError(op, err, loc.String())
	}
	return nil
}

func (s *LocalStore) Copy(ctx context.Context, src, dst Location) error {
	const op = "Copy"

	data, err := s.Get(ctx, src)
	if err != nil {
		return WrapStorageError(op, err, src.String())
	}
	return s.Put(ctx, dst, data)
}

func (s *LocalStore) Delete(ctx context.Context, loc Location) error {
	const op = "Delete"
	if err := validate(loc); err != nil {
		return WrapStorageError(op, err, "")
	}

	if err := os.Remove(s.path(loc)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return WrapStorageError(op, err, loc.String())
	}
	return nil
}

func (s *LocalStore) List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	const op = "List"
	if bucket == "" {
		return nil, WrapStorageError(op, ErrInvalidLocation, "empty bucket")
	}

	root := filepath.Join(s.Root, bucket)
	var objects []ObjectInfo
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if d.Name() == folderMarkerFile {
			key = strings.TrimSuffix(key, folderMarkerFile)
		}
		if !strings.HasPrefix(key, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, ObjectInfo{
			Key:          key,
			LastModified: info.ModTime(),
			Size:         info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, WrapStorageError(op, err, bucket+"/"+prefix)
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

func mapFSError(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return errors.Join(ErrNotFound, err)
	}
	return err
}
