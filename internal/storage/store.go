// Package storage provides the object store used by the intake pipeline.
//
// Objects are addressed by bucket and key. Keys ending in "/" are folder
// markers and are stored as empty objects. Two backends are available:
// Google Cloud Storage and a local directory tree for development runs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Location addresses a single object.
type Location struct {
	Bucket string
	Key    string
}

func (l Location) String() string {
	return "gs://" + l.Bucket + "/" + l.Key
}

// IsFolderMarker reports whether the key is a folder marker.
func (l Location) IsFolderMarker() bool {
	return strings.HasSuffix(l.Key, "/")
}

// ObjectInfo describes a listed object.
type ObjectInfo struct {
	Key          string
	LastModified time.Time
	Size         int64
}

// ObjectStore is the object storage contract. Delete of a missing object is
// not an error. List returns objects ordered by key.
type ObjectStore interface {
	Get(ctx context.Context, loc Location) ([]byte, error)
	Put(ctx context.Context, loc Location, data []byte) error
	Copy(ctx context.Context, src, dst Location) error
	Delete(ctx context.Context, loc Location) error
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
}

// ParseGCSURI splits gs://bucket/key into a Location.
func ParseGCSURI(uri string) (Location, error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return Location{}, fmt.Errorf("%w: %q is not a gs:// URI", ErrInvalidLocation, uri)
	}
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Location{}, fmt.Errorf("%w: %q has no bucket", ErrInvalidLocation, uri)
	}
	return Location{Bucket: bucket, Key: key}, nil
}

func validate(loc Location) error {
	if loc.Bucket == "" || loc.Key == "" {
		return fmt.Errorf("%w: %q", ErrInvalidLocation, loc.String())
	}
	return nil
}

// Move copies src to dst and then deletes src.
func Move(ctx context.Context, store ObjectStore, src, dst Location) error {
	const op = "Move"

	if err := store.Copy(ctx, src, dst); err != nil {
		return WrapStorageError(op, err, src.String())
	}
	if err := store.Delete(ctx, src); err != nil {
		return WrapStorageError(op, err, "copied but could not delete "+src.String())
	}
	return nil
}

// MoveFolder moves every object under prefix from srcBucket to dstBucket,
// keeping keys. It returns the number of objects moved.
func MoveFolder(ctx context.Context, store ObjectStore, srcBucket, dstBucket, prefix string) (int, error) {
	const op = "MoveFolder"

	objects, err := store.List(ctx, srcBucket, prefix)
	if err != nil {
		return 0, WrapStorageError(op, err, srcBucket+"/"+prefix)
	}

	moved := 0
	var errs []error
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return moved, err
		}
		src := Location{Bucket: srcBucket, Key: obj.Key}
		dst := Location{Bucket: dstBucket, Key: obj.Key}
		if err := Move(ctx, store, src, dst); err != nil {
			errs = append(errs, err)
			continue
		}
		moved++
	}
	if len(errs) > 0 {
		return moved, WrapStorageError(op, errors.Join(errs...), fmt.Sprintf("%d of %d objects failed", len(errs), len(objects)))
	}
	return moved, nil
}

// DeletePrefix removes every object under prefix in bucket and returns the
// number of objects deleted.
func DeletePrefix(ctx context.Context, store ObjectStore, bucket, prefix string) (int, error) {
	const op = "DeletePrefix"

	objects, err := store.List(ctx, bucket, prefix)
	if err != nil {
		return 0, WrapStorageError(op, err, bucket+"/"+prefix)
	}

	deleted := 0
	for _, obj := range objects {
		if err := store.Delete(ctx, Location{Bucket: bucket, Key: obj.Key}); err != nil {
			return deleted, WrapStorageError(op, err, obj.Key)
		}
		deleted++
	}
	return deleted, nil
}
