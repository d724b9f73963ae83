// Package archive persists normalized, redacted atom rows to object
// storage as an audit trail. Archival is best-effort and sits outside the
// ingestion happy path: a failed archive never blocks a batch.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"github.com/golang/snappy"
	"github.com/google/uuid"
)

// Common errors for archive storage operations.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrPutFailed      = errors.New("put failed")
	ErrGetFailed      = errors.New("get failed")
)

// ObjectStorage abstracts the blob store archives are written to.
// Implementations include S3 and the local filesystem for testing.
type ObjectStorage interface {
	// Put writes data at objectPath, overwriting any existing object.
	Put(ctx context.Context, objectPath string, data []byte) error

	// Get reads the object at objectPath.
	// Returns ErrObjectNotFound if no such object exists.
	Get(ctx context.Context, objectPath string) ([]byte, error)

	// Exists checks if an object exists at objectPath.
	Exists(ctx context.Context, objectPath string) (bool, error)

	// ListObjects returns all object paths under the given prefix.
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}

// Archiver writes row batches to object storage as snappy-compressed
// JSON. Object keys are archive/{team}/{table}/{uuid}.json.sz, so a batch
// is never overwritten by a later one. Callers archive rows after the
// redaction pass; nothing scrubbed from the warehouse copy may survive in
// the archived one.
type Archiver struct {
	store  ObjectStorage
	prefix string
}

// NewArchiver creates an archiver writing under the "archive/" prefix.
func NewArchiver(store ObjectStorage) *Archiver {
	return &Archiver{store: store, prefix: "archive"}
}

// Archive persists one batch of rows for a team and table.
func (a *Archiver) Archive(ctx context.Context, teamID, tableID string, rows []map[string]interface{}) error {
	if len(rows) == 0 {
		return nil
	}

	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("archive: marshal batch for team %s: %w", teamID, err)
	}

	key := path.Join(a.prefix, teamID, tableID, uuid.NewString()+".json.sz")
	if err := a.store.Put(ctx, key, snappy.Encode(nil, data)); err != nil {
		return fmt.Errorf("archive: put %s: %w", key, err)
	}
	return nil
}

// Read fetches and decompresses an archived batch by its object key.
func (a *Archiver) Read(ctx context.Context, objectPath string) ([]map[string]interface{}, error) {
	compressed, err := a.store.Get(ctx, objectPath)
	if err != nil {
		return nil, fmt.Errorf("archive: get %s: %w", objectPath, err)
	}

	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("archive: decompress %s: %w", objectPath, err)
	}

	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("archive: unmarshal %s: %w", objectPath, err)
	}
	return rows, nil
}

// List returns the object keys archived for a team, optionally narrowed
// to one table.
func (a *Archiver) List(ctx context.Context, teamID, tableID string) ([]string, error) {
	prefix := path.Join(a.prefix, teamID)
	if tableID != "" {
		prefix = path.Join(prefix, tableID)
	}
	return a.store.ListObjects(ctx, prefix)
}
