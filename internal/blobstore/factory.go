package blobstore

import (
	"context"
	"fmt"
	"log"
)

func NewBlobStoreFromEnv(ctx context.Context, storeType, bucket, region string) (BlobStore, error) {
	switch storeType {
	case "s3":
		if bucket == "" {
			return nil, fmt.Errorf("blobstore: s3 requires a non-empty bucket name")
		}
		client, err := newAWSS3Client(ctx, region)
		if err != nil {
			return nil, fmt.Errorf("blobstore: create s3 client: %w", err)
		}
		log.Printf("blobstore: using S3 backend bucket=%s region=%s", bucket, region)
		return NewS3BlobStore(client, bucket), nil
	case "memory", "":
		log.Println("blobstore: using in-memory backend (development only)")
		return NewInMemoryBlobStore(), nil
	default:
		return nil, fmt.Errorf("blobstore: unknown store type %q", storeType)
	}
}
