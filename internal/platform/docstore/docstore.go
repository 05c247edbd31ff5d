// Package docstore provides a small document store keyed by collection and id,
// the shape the profile adapter consumes. Implementations are interface-driven
// so the in-memory, redis, and postgres backends can be swapped without
// rewiring business code.
package docstore

import (
	"context"
	"encoding/json"
)

// Document is a JSON-shaped record. Values survive a JSON round trip in every
// backend, so readers must expect []any rather than concrete slice types.
type Document map[string]any

// Store is the document-store surface. Get returns sentinel.ErrNotFound for
// absent documents; Update fails with sentinel.ErrNotFound rather than
// creating the document.
type Store interface {
	// Get fetches a document by collection and id.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Set writes a document. With merge set, top-level fields are merged into
	// any existing document instead of replacing it wholesale.
	Set(ctx context.Context, collection, id string, doc Document, merge bool) error

	// Update merges partial top-level fields into an existing document.
	Update(ctx context.Context, collection, id string, partial Document) error
}

// clone deep-copies a document through JSON so callers can never alias store
// internals. It also normalizes value types to match what the redis and
// postgres backends return.
func clone(doc Document) (Document, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var out Document
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// merged returns base with the top-level fields of overlay applied.
func merged(base, overlay Document) Document {
	out := make(Document, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}
