package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/interfaces"
)

// GCS keeps attachments as objects of a Google Cloud Storage bucket,
// named prefix/aa/bb/uuid.
type GCS struct {
	client *gcs.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// NewGCS connects to bucket. credentials is either the path of a service
// account key or the key itself, as read from a secret; empty uses the
// application default credentials.
func NewGCS(ctx context.Context, bucket, prefix, credentials string) (*GCS, error) {
	if bucket == "" {
		return nil, dcmerr.New(dcmerr.KindParameterOutOfRange, "GCS storage needs a bucket")
	}
	var opts []option.ClientOption
	switch {
	case strings.HasPrefix(strings.TrimSpace(credentials), "{"):
		opts = append(opts, option.WithCredentialsJSON([]byte(credentials)))
	case credentials != "":
		opts = append(opts, option.WithCredentialsFile(credentials))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return NewGCSWithClient(client, bucket, prefix), nil
}

// NewGCSWithClient uses an existing client, for instance one pointed at
// an emulator.
func NewGCSWithClient(client *gcs.Client, bucket, prefix string) *GCS {
	return &GCS{client: client, bucket: bucket, prefix: prefix, logger: slog.Default()}
}

// Close releases the client.
func (g *GCS) Close() error {
	return g.client.Close()
}

func (g *GCS) objectName(id string) (string, error) {
	if err := checkUUID(id); err != nil {
		return "", err
	}
	return path.Join(g.prefix, relativePath(id)), nil
}

// Create uploads content. The precondition makes a second upload of the
// same UUID fail instead of overwriting the first.
func (g *GCS) Create(ctx context.Context, id string, content []byte, contentType interfaces.ContentType) error {
	name, err := g.objectName(id)
	if err != nil {
		return err
	}
	w := g.client.Bucket(g.bucket).Object(name).If(gcs.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	w.Metadata = map[string]string{"content-type": contentType.String()}
	if _, err := w.Write(content); err != nil {
		w.Close()
		return fmt.Errorf("upload attachment %s: %w", id, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("upload attachment %s: %w", id, err)
	}
	g.logger.DebugContext(ctx, "Uploaded attachment",
		"bucket", g.bucket,
		"object", name,
		"size", len(content))
	return nil
}

func (g *GCS) Read(ctx context.Context, id string, contentType interfaces.ContentType) ([]byte, error) {
	name, err := g.objectName(id)
	if err != nil {
		return nil, err
	}
	rc, err := g.client.Bucket(g.bucket).Object(name).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, dcmerr.New(dcmerr.KindInexistentFile, "no attachment %s in bucket %s", id, g.bucket)
	}
	if err != nil {
		return nil, fmt.Errorf("open attachment %s: %w", id, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read attachment %s: %w", id, err)
	}
	return data, nil
}

func (g *GCS) Remove(ctx context.Context, id string, contentType interfaces.ContentType) error {
	name, err := g.objectName(id)
	if err != nil {
		return err
	}
	err = g.client.Bucket(g.bucket).Object(name).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		g.logger.WarnContext(ctx, "Removing an attachment that does not exist", "bucket", g.bucket, "object", name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("remove attachment %s: %w", id, err)
	}
	return nil
}

// List returns the UUIDs of the attachments under the prefix.
func (g *GCS) List(ctx context.Context) ([]string, error) {
	query := &gcs.Query{Prefix: g.prefix}
	if err := query.SetAttrSelection([]string{"Name"}); err != nil {
		return nil, err
	}
	var ids []string
	it := g.client.Bucket(g.bucket).Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list bucket %s: %w", g.bucket, err)
		}
		id := path.Base(attrs.Name)
		if checkUUID(id) == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
