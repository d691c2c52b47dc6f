package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// ContentTypeJSON is used for artifact snapshots.
const ContentTypeJSON = "application/json"

var ErrObjectNotFound = errors.New("object not found in storage")

// FileStorage defines the interface for object storage operations.
type FileStorage interface {
	// PutObject writes body under objectKey, replacing any existing object.
	PutObject(ctx context.Context, objectKey string, contentType string, body []byte) error

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET requests
	// for downloading an object directly from the storage provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// DeleteObject removes an object from the storage provider.
	DeleteObject(ctx context.Context, objectKey string) error
}

// ArtifactObjectKey builds the snapshot key of one protocol instance.
// The random suffix keeps presigned URLs of re-exported snapshots unguessable.
func ArtifactObjectKey(trainerID, instanceID primitive.ObjectID) string {
	return fmt.Sprintf("protocols/%s/%s/%s.json", trainerID.Hex(), instanceID.Hex(), uuid.NewString())
}
