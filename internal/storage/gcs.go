package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"

	gcs "cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"intake/internal/logger"
)

// GCSStore implements ObjectStore on Google Cloud Storage.
type GCSStore struct {
	client *gcs.Client
	log    zerolog.Logger
}

// NewGCSStore creates a store with a new Cloud Storage client.
func NewGCSStore(ctx context.Context, opts ...option.ClientOption) (*GCSStore, error) {
	const op = "NewGCSStore"

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, WrapStorageError(op, err, "failed to create Cloud Storage client")
	}
	return NewGCSStoreWithClient(client), nil
}

// NewGCSStoreWithClient wraps an existing client.
func NewGCSStoreWithClient(client *gcs.Client) *GCSStore {
	return &GCSStore{
		client: client,
		log:    logger.WithComponent("gcs-store"),
	}
}

func (s *GCSStore) Get(ctx context.Context, loc Location) ([]byte, error) {
	const op = "Get"
	if err := validate(loc); err != nil {
		return nil, WrapStorageError(op, err, "")
	}

	r, err := s.client.Bucket(loc.Bucket).Object(loc.Key).NewReader(ctx)
	if err != nil {
		return nil, WrapStorageError(op, mapGCSError(err), loc.String())
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, WrapStorageError(op, err, "failed to read "+loc.String())
	}
	return data, nil
}

func (s *GCSStore) Put(ctx context.Context, loc Location, data []byte) error {
	const op = "Put"
	if err := validate(loc); err != nil {
		return WrapStorageError(op, err, "")
	}

	w := s.client.Bucket(loc.Bucket).Object(loc.Key).NewWriter(ctx)
	if ct := mime.TypeByExtension(path.Ext(loc.Key)); ct != "" {
		w.ContentType = ct
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return WrapStorageError(op, err, loc.String())
	}
	if err := w.Close(); err != nil {
		return WrapStorageError(op, err, loc.String())
	}

	s.log.Debug().
		Str("location", loc.String()).
		Int("bytes", len(data)).
		Msg("Object written")
	return nil
}

func (s *GCSStore) Copy(ctx context.Context, src, dst Location) error {
	const op = "Copy"
	if err := validate(src); err != nil {
		return WrapStorageError(op, err, "source")
	}
	if err := validate(dst); err != nil {
		return WrapStorageError(op, err, "destination")
	}

	srcObj := s.client.Bucket(src.Bucket).Object(src.Key)
	dstObj := s.client.Bucket(dst.Bucket).Object(dst.Key)
	if _, err := dstObj.CopierFrom(srcObj).Run(ctx); err != nil {
		return WrapStorageError(op, mapGCSError(err), fmt.Sprintf("%s -> %s", src, dst))
	}
	return nil
}

func (s *GCSStore) Delete(ctx context.Context, loc Location) error {
	const op = "Delete"
	if err := validate(loc); err != nil {
		return WrapStorageError(op, err, "")
	}

	err := s.client.Bucket(loc.Bucket).Object(loc.Key).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return WrapStorageError(op, err, loc.String())
	}
	return nil
}

func (s *GCSStore) List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	const op = "List"
	if bucket == "" {
		return nil, WrapStorageError(op, ErrInvalidLocation, "empty bucket")
	}

	var objects []ObjectInfo
	it := s.client.Bucket(bucket).Objects(ctx, &gcs.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, WrapStorageError(op, err, bucket+"/"+prefix)
		}
		objects = append(objects, ObjectInfo{
			Key:          attrs.Name,
			LastModified: attrs.Updated,
			Size:         attrs.Size,
		})
	}
	return objects, nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func mapGCSError(err error) error {
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
