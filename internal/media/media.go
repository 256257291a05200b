// Package media stores the binary blobs behind file-type entity fields.
// Blobs arrive base64-inlined in change payloads and are served back as
// absolute URLs; the hub keeps them on local disk or in an S3-compatible
// bucket depending on configuration.
package media

import (
	"context"
	"path"
	"strings"
)

// Store is the blob backend the sync engine writes file fields through.
type Store interface {
	// Save writes content under key, replacing any existing blob.
	Save(ctx context.Context, key string, content []byte) error
	// Delete removes the blob under key. Deleting a missing key is not an
	// error; replace and delete must stay idempotent for task retries.
	Delete(ctx context.Context, key string) error
	// URL renders the public address of a stored key.
	URL(key string) string
}

// Key builds the storage key for one file field value. Keys are scoped by
// entity type, field and primary key so a replaced upload can never collide
// with another row's blob: "drivers/driver/photo/42/portrait.jpg".
func Key(tag, field, pk, filename string) string {
	parts := strings.SplitN(strings.ToLower(tag), ".", 2)
	// path.Base strips any directory components a pushing station smuggled
	// into the filename.
	return path.Join(path.Join(parts...), field, pk, path.Base(filename))
}

// Resolver adapts a Store into the URL renderer snapshots use. An empty
// stored key resolves to nil so payloads carry explicit nulls for absent
// files.
type Resolver struct {
	Store Store
}

func (r Resolver) Resolve(key string) any {
	if key == "" {
		return nil
	}
	return r.Store.URL(key)
}
