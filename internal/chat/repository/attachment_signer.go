package repository

import (
	"context"
	"strings"
	"time"

	"old_vibes/pkg/database"
)

// AttachmentSigner turns stored attachment references into URLs clients can fetch
type AttachmentSigner interface {
	Sign(ctx context.Context, ref string) (string, error)
}

func isAbsoluteURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

type minioAttachmentSigner struct {
	client *database.MinIOClient
	ttl    time.Duration
}

// NewMinIOAttachmentSigner presigns object keys of the attachment bucket, absolute URLs pass through
func NewMinIOAttachmentSigner(client *database.MinIOClient, ttl time.Duration) AttachmentSigner {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &minioAttachmentSigner{client: client, ttl: ttl}
}

func (s *minioAttachmentSigner) Sign(ctx context.Context, ref string) (string, error) {
	if isAbsoluteURL(ref) {
		return ref, nil
	}
	return s.client.PresignGetURL(ctx, strings.TrimPrefix(ref, "/"), s.ttl)
}

type passthroughSigner struct{}

// NewPassthroughSigner AttachmentSigner returning references unchanged
func NewPassthroughSigner() AttachmentSigner {
	return passthroughSigner{}
}

func (passthroughSigner) Sign(_ context.Context, ref string) (string, error) {
	return ref, nil
}
