// Package storage stores uploaded files in an S3-compatible blob store.
package storage

import "context"

// FileStore is the blob-storage collaborator. Upload returns the public URL
// of the stored object; Delete is best-effort and implementations must not
// fail the caller's request on delete errors.
type FileStore interface {
	Upload(ctx context.Context, data []byte, contentType, originalName string) (string, error)
	Delete(ctx context.Context, fileURL string) error
}
