package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/interfaces"
)

// Filesystem keeps attachments under a root directory. The content type
// does not take part in the path: one UUID names one attachment.
type Filesystem struct {
	root   string
	logger *slog.Logger
}

// NewFilesystem creates root if needed.
func NewFilesystem(root string) (*Filesystem, error) {
	root = filepath.Clean(root)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root %s: %w", root, err)
	}
	return &Filesystem{root: root, logger: slog.Default()}, nil
}

func (f *Filesystem) path(id string) (string, error) {
	if err := checkUUID(id); err != nil {
		return "", err
	}
	return filepath.Join(f.root, filepath.FromSlash(relativePath(id))), nil
}

// Create writes content through a temporary file so that a reader never
// sees a partial attachment.
func (f *Filesystem) Create(ctx context.Context, id string, content []byte, contentType interfaces.ContentType) error {
	p, err := f.path(id)
	if err != nil {
		return err
	}
	if _, err := os.Stat(p); err == nil {
		return dcmerr.New(dcmerr.KindBadSequenceOfCalls, "attachment %s already exists", id)
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create storage directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+id+"-*")
	if err != nil {
		return fmt.Errorf("create attachment %s: %w", id, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write attachment %s: %w", id, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync attachment %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close attachment %s: %w", id, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("commit attachment %s: %w", id, err)
	}

	f.logger.DebugContext(ctx, "Created attachment",
		"uuid", id,
		"content_type", contentType.String(),
		"size", len(content))
	return nil
}

func (f *Filesystem) Read(ctx context.Context, id string, contentType interfaces.ContentType) ([]byte, error) {
	p, err := f.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, dcmerr.New(dcmerr.KindInexistentFile, "no attachment %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("read attachment %s: %w", id, err)
	}
	return data, nil
}

// Remove deletes the attachment, then the directories it leaves empty.
// Removing a missing attachment is logged and ignored.
func (f *Filesystem) Remove(ctx context.Context, id string, contentType interfaces.ContentType) error {
	p, err := f.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			f.logger.WarnContext(ctx, "Removing an attachment that does not exist", "uuid", id)
			return nil
		}
		return fmt.Errorf("remove attachment %s: %w", id, err)
	}

	// Fails harmlessly on non-empty directories.
	for dir := filepath.Dir(p); dir != f.root && len(dir) > len(f.root); dir = filepath.Dir(dir) {
		if os.Remove(dir) != nil {
			break
		}
	}
	return nil
}
