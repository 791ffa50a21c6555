package blobstore

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("blob not found")

// BlobStore holds small claim receipt objects addressed by key.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
}
