package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/interfaces"
)

func areas(t *testing.T) map[string]interfaces.StorageArea {
	fsArea, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)
	return map[string]interfaces.StorageArea{
		"filesystem": fsArea,
		"memory":     NewMemory(),
	}
}

func TestStorageAreaRoundTrip(t *testing.T) {
	for name, area := range areas(t) {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			id := NewUUID()
			content := []byte("DICM payload")

			require.NoError(t, area.Create(ctx, id, content, interfaces.ContentDicom))
			got, err := area.Read(ctx, id, interfaces.ContentDicom)
			require.NoError(t, err)
			assert.Equal(t, content, got)

			err = area.Create(ctx, id, content, interfaces.ContentDicom)
			assert.Equal(t, dcmerr.KindBadSequenceOfCalls, dcmerr.KindOf(err), "a UUID names one attachment")

			require.NoError(t, area.Remove(ctx, id, interfaces.ContentDicom))
			_, err = area.Read(ctx, id, interfaces.ContentDicom)
			assert.ErrorIs(t, err, dcmerr.KindInexistentFile)

			assert.NoError(t, area.Remove(ctx, id, interfaces.ContentDicom), "removing twice is harmless")
		})
	}
}

func TestStorageAreaRejectsInvalidUUID(t *testing.T) {
	for name, area := range areas(t) {
		t.Run(name, func(t *testing.T) {
			for _, id := range []string{"", "../../etc/passwd", "not-a-uuid", "6BA7B810-9DAD-11D1-80B4-00C04FD430C8"} {
				err := area.Create(t.Context(), id, []byte("x"), interfaces.ContentDicom)
				assert.Equal(t, dcmerr.KindParameterOutOfRange, dcmerr.KindOf(err), "uuid %q", id)
			}
		})
	}
}

func TestFilesystemLayout(t *testing.T) {
	root := t.TempDir()
	area, err := NewFilesystem(root)
	require.NoError(t, err)

	id := "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	require.NoError(t, area.Create(t.Context(), id, []byte("x"), interfaces.ContentDicom))
	_, err = os.Stat(filepath.Join(root, "6b", "a7", id))
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(root, "6b", "a7"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary file is left behind")

	require.NoError(t, area.Remove(t.Context(), id, interfaces.ContentDicom))
	_, err = os.Stat(filepath.Join(root, "6b"))
	assert.True(t, os.IsNotExist(err), "empty directories are removed")
	_, err = os.Stat(root)
	assert.NoError(t, err, "the root stays")
}

func TestOpen(t *testing.T) {
	area, err := Open(t.Context(), Options{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, area)

	area, err = Open(t.Context(), Options{Backend: BackendFilesystem, Root: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &Filesystem{}, area)

	_, err = Open(t.Context(), Options{Backend: BackendFilesystem})
	assert.ErrorIs(t, err, dcmerr.KindParameterOutOfRange)

	_, err = Open(t.Context(), Options{Backend: "tape"})
	assert.ErrorIs(t, err, dcmerr.KindParameterOutOfRange)

	_, err = Open(t.Context(), Options{Backend: BackendGCS})
	assert.ErrorIs(t, err, dcmerr.KindParameterOutOfRange, "a bucket is required")
}

func TestGCSObjectName(t *testing.T) {
	g := &GCS{prefix: "dicom/attachments"}
	name, err := g.objectName("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	require.NoError(t, err)
	assert.Equal(t, "dicom/attachments/6b/a7/6ba7b810-9dad-11d1-80b4-00c04fd430c8", name)

	_, err = g.objectName("bucket/escape")
	assert.Error(t, err)
}
