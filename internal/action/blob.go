package action

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jdiitm/graphrag-architect/workers/submitguard/internal/blobstore"
)

// BlobMarker writes a receipt object for each claimed key.
type BlobMarker struct {
	store  blobstore.BlobStore
	prefix string
	now    func() time.Time
}

func NewBlobMarker(store blobstore.BlobStore, prefix string) *BlobMarker {
	return &BlobMarker{store: store, prefix: prefix, now: time.Now}
}

func (b *BlobMarker) Perform(ctx context.Context, key string) error {
	data, err := json.Marshal(claimPayload{Key: key, ClaimedAt: b.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal claim receipt: %w", err)
	}
	if err := b.store.Put(ctx, b.prefix+key, data); err != nil {
		return fmt.Errorf("write claim receipt %s: %w", key, err)
	}
	return nil
}
