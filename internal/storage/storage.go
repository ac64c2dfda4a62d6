// Package storage writes finished transcripts to local disk and, when
// configured, archives them to S3.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for transcript persistence.
type Storage interface {
	// WriteTranscript writes content to path, creating parent directories.
	// An existing file at path is replaced.
	WriteTranscript(ctx context.Context, path, content string) error

	// Archive uploads data under key and returns the object URL.
	// Returns ErrS3NotConfigured if no archive is configured.
	Archive(ctx context.Context, key string, data io.Reader) (url string, err error)
}
