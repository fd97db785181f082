package storage

import (
	"context"
	"io"
)

// Service stores profile photos in remote object storage. One object per
// member; keys are derived from the member's nis.
type Service interface {
	Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) error
	Remove(ctx context.Context, bucket string, keys []string) error
	PublicURL(bucket, key string) string
}
