// Package artifacts reads and writes the derived files kept next to each
// staged document in the text bucket:
//
//	<key>.txt   the page text, lines joined by single spaces
//	<key>.json  the raw key/value mapping, an object of string arrays
//	            indented with four spaces
//
// Downstream readers depend on the exact shape of the .json file.
package artifacts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"intake/internal/storage"
	"intake/pkg/models"
)

const (
	TextSuffix = ".txt"
	JSONSuffix = ".json"
)

// ErrInvalidKeyValues is returned when a .json artifact does not match the contract.
var ErrInvalidKeyValues = errors.New("key/value artifact does not match schema")

// keyValueSchema accepts string arrays and, for older writers, bare strings.
const keyValueSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"additionalProperties": {
		"oneOf": [
			{"type": "string"},
			{"type": "array", "items": {"type": "string"}}
		]
	}
}`

var compiledSchema = jsonschema.MustCompileString("keyvalues.schema.json", keyValueSchema)

// TextKey is the key of the text artifact for a document key.
func TextKey(key string) string { return key + TextSuffix }

// JSONKey is the key of the key/value artifact for a document key.
func JSONKey(key string) string { return key + JSONSuffix }

// SourceKey strips an artifact suffix, returning the document key.
func SourceKey(artifactKey string) string {
	if k, ok := strings.CutSuffix(artifactKey, TextSuffix); ok {
		return k
	}
	if k, ok := strings.CutSuffix(artifactKey, JSONSuffix); ok {
		return k
	}
	return artifactKey
}

// EncodeKeyValues renders the mapping in artifact form.
func EncodeKeyValues(kvs *models.KeyValueMapping) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(kvs); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// DecodeKeyValues validates data against the artifact schema and decodes it.
func DecodeKeyValues(data []byte) (*models.KeyValueMapping, error) {
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyValues, err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyValues, err)
	}

	kvs := models.NewKeyValueMapping()
	if err := json.Unmarshal(data, kvs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyValues, err)
	}
	return kvs, nil
}

// Store keeps artifacts in one bucket.
type Store struct {
	objects storage.ObjectStore
	bucket  string
}

func NewStore(objects storage.ObjectStore, bucket string) *Store {
	return &Store{objects: objects, bucket: bucket}
}

func (s *Store) loc(key string) storage.Location {
	return storage.Location{Bucket: s.bucket, Key: key}
}

// Write stores both artifacts of a document.
func (s *Store) Write(ctx context.Context, key, text string, kvs *models.KeyValueMapping) error {
	if err := s.objects.Put(ctx, s.loc(TextKey(key)), []byte(text)); err != nil {
		return fmt.Errorf("write text artifact: %w", err)
	}

	data, err := EncodeKeyValues(kvs)
	if err != nil {
		return fmt.Errorf("encode key/values: %w", err)
	}
	if err := s.objects.Put(ctx, s.loc(JSONKey(key)), data); err != nil {
		return fmt.Errorf("write key/value artifact: %w", err)
	}
	return nil
}

// ReadText returns the text artifact of a document.
func (s *Store) ReadText(ctx context.Context, key string) (string, error) {
	data, err := s.objects.Get(ctx, s.loc(TextKey(key)))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadKeyValues returns the key/value artifact of a document.
func (s *Store) ReadKeyValues(ctx context.Context, key string) (*models.KeyValueMapping, error) {
	data, err := s.objects.Get(ctx, s.loc(JSONKey(key)))
	if err != nil {
		return nil, err
	}
	return DecodeKeyValues(data)
}

// Delete removes both artifacts. Missing artifacts are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	var errs []error
	for _, k := range []string{TextKey(key), JSONKey(key)} {
		if err := s.objects.Delete(ctx, s.loc(k)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MirrorMarker creates an empty folder marker in the artifact bucket.
func (s *Store) MirrorMarker(ctx context.Context, key string) error {
	return s.objects.Put(ctx, s.loc(key), nil)
}

// DeleteMarker removes a folder marker from the artifact bucket.
func (s *Store) DeleteMarker(ctx context.Context, key string) error {
	return s.objects.Delete(ctx, s.loc(key))
}

// List returns the objects under prefix in the artifact bucket.
func (s *Store) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	return s.objects.List(ctx, s.bucket, prefix)
}

// Bucket is the artifact bucket name.
func (s *Store) Bucket() string { return s.bucket }
