package storage

import (
	"context"
	"io"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader stores tournament archives in object storage.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
	GetPublicURL(key string) string
}

// ArchiveKeys returns the object keys of a tournament's archived CSV export and
// JSON snapshot.
func ArchiveKeys(tournamentID string) (csvKey, jsonKey string) {
	prefix := "archives/" + tournamentID + "/"
	return prefix + "results.csv", prefix + "snapshot.json"
}
