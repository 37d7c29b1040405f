package domain

import (
	"context"
	"io"
)

// BlobWriter uploads a named object to blob storage.
type BlobWriter interface {
	// Put uploads data to the given path with the given content type.
	Put(ctx context.Context, path string, data io.Reader, contentType string) error

	// PutMultipart uploads data using multipart upload with the given part
	// size in bytes. Intended for large payloads.
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}
