package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/lumadocs/driveline/internal/blob"
	"github.com/lumadocs/driveline/internal/domain"
)

// MetadataKey is the blob key holding the synced file records
const MetadataKey = "sync_metadata.json"

// MetadataStore persists the map of synced file records between passes
type MetadataStore struct {
	store blob.Store
}

// NewMetadataStore creates a metadata store on top of a blob store
func NewMetadataStore(store blob.Store) *MetadataStore {
	return &MetadataStore{store: store}
}

// Load reads the synced file records. A missing metadata object yields
// an empty map, so the first pass treats every remote file as new.
func (m *MetadataStore) Load(ctx context.Context) (map[string]domain.LocalFileRecord, error) {
	rc, err := m.store.Get(ctx, MetadataKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return make(map[string]domain.LocalFileRecord), nil
		}
		return nil, fmt.Errorf("failed to read sync metadata: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read sync metadata: %w", err)
	}

	records := make(map[string]domain.LocalFileRecord)
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("corrupt sync metadata: %w", err)
	}
	return records, nil
}

// Save replaces the synced file records. The blob store writes
// atomically, so a crash never leaves torn metadata behind.
func (m *MetadataStore) Save(ctx context.Context, records map[string]domain.LocalFileRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode sync metadata: %w", err)
	}
	if err := m.store.Put(ctx, MetadataKey, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write sync metadata: %w", err)
	}
	return nil
}
