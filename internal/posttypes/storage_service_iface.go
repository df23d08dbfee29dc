// internal/posttypes/storage_service_iface.go
package posttypes

import (
	"context"
	"io"
)

// StorageService stores the attachments of a post.
// Kept in posttypes so storage and services do not import each other.
type StorageService interface {
	// SaveAttachment writes reader to folder/fileName. An empty fileName gets
	// a generated one; ext is appended in that case.
	SaveAttachment(ctx context.Context, folder, fileName, ext string, reader io.Reader, fileSize int64, mimeType string) (*FileInfo, error)

	// RemoveFolder deletes a post folder and everything in it.
	RemoveFolder(ctx context.Context, folder string) error
}
