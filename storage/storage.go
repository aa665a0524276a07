// Package storage holds the storage areas of dicomcore: attachments are
// opaque blobs keyed by a UUID, kept on the local filesystem, in memory or
// in a Google Cloud Storage bucket.
package storage

import (
	"context"
	"path"

	"github.com/google/uuid"

	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/interfaces"
)

// Backend names accepted by Open.
const (
	BackendFilesystem = "filesystem"
	BackendMemory     = "memory"
	BackendGCS        = "gcs"
)

// Options selects and configures a storage area.
type Options struct {
	Backend string
	// Root is the directory of the filesystem backend.
	Root string
	// Bucket, Prefix and CredentialsFile configure the GCS backend. An
	// empty CredentialsFile uses the application default credentials; a
	// value starting with '{' is the service account key itself.
	Bucket          string
	Prefix          string
	CredentialsFile string
}

// Open returns the storage area described by opts.
func Open(ctx context.Context, opts Options) (interfaces.StorageArea, error) {
	switch opts.Backend {
	case BackendFilesystem, "":
		if opts.Root == "" {
			return nil, dcmerr.New(dcmerr.KindParameterOutOfRange, "filesystem storage needs a root directory")
		}
		return NewFilesystem(opts.Root)
	case BackendMemory:
		return NewMemory(), nil
	case BackendGCS:
		return NewGCS(ctx, opts.Bucket, opts.Prefix, opts.CredentialsFile)
	default:
		return nil, dcmerr.New(dcmerr.KindParameterOutOfRange, "unknown storage backend %q", opts.Backend)
	}
}

// NewUUID returns an identifier for a new attachment.
func NewUUID() string {
	return uuid.NewString()
}

func checkUUID(id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil || parsed.String() != id {
		return dcmerr.New(dcmerr.KindParameterOutOfRange, "not a canonical UUID: %q", id)
	}
	return nil
}

// relativePath spreads attachments over two levels of directories named
// after the first four hexadecimal digits of their UUID.
func relativePath(id string) string {
	return path.Join(id[0:2], id[2:4], id)
}
