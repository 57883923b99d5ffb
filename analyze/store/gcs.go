/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"github.com/arnavk-polka/gavin-ai/analyze"
	"github.com/chainguard-dev/clog"
)

// GCS writes snapshots to a Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
}

// NewGCS connects to bucket with application default credentials. Objects
// are written under prefix.
func NewGCS(ctx context.Context, bucket, prefix string) (*GCS, error) {
	if bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	return &GCS{client: client, bucket: client.Bucket(bucket), prefix: prefix}, nil
}

// Put uploads snap as gs://<bucket>/<prefix>/<id>.json.
func (g *GCS) Put(ctx context.Context, snap *analyze.Snapshot) error {
	b, err := encode(snap)
	if err != nil {
		return err
	}
	key := Key(g.prefix, snap.ID)
	w := g.bucket.Object(key).NewWriter(ctx)
	w.ContentType = "application/json"
	w.Metadata = map[string]string{
		"kind":   string(snap.Kind),
		"status": string(snap.Status),
	}
	if _, err := w.Write(b); err != nil {
		_ = w.Close()
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	clog.FromContext(ctx).With("object", key, "bytes", len(b)).Info("Stored session snapshot")
	return nil
}

// Get downloads the snapshot for id.
func (g *GCS) Get(ctx context.Context, id string) (*analyze.Snapshot, error) {
	key := Key(g.prefix, id)
	r, err := g.bucket.Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", key, err)
	}
	defer r.Close()
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return decode(id, b)
}

// Close releases the storage client.
func (g *GCS) Close() error {
	return g.client.Close()
}
