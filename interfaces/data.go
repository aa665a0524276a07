package interfaces

import (
	"context"

	"github.com/caio-sobreiro/dicomcore/dicom"
	"github.com/caio-sobreiro/dicomcore/types"
)

// ContentType tells what an attachment of the storage area holds.
type ContentType int

const (
	ContentDicom ContentType = iota + 1
	ContentDicomAsJSON
	ContentDicomUntilPixelData
)

func (c ContentType) String() string {
	switch c {
	case ContentDicom:
		return "dicom"
	case ContentDicomAsJSON:
		return "dicom-as-json"
	case ContentDicomUntilPixelData:
		return "dicom-until-pixel-data"
	default:
		return "unknown"
	}
}

// StorageArea persists opaque attachments keyed by UUID. Missing
// attachments are reported with errors.KindInexistentFile.
type StorageArea interface {
	Create(ctx context.Context, uuid string, content []byte, contentType ContentType) error
	Read(ctx context.Context, uuid string, contentType ContentType) ([]byte, error)
	Remove(ctx context.Context, uuid string, contentType ContentType) error
}

// FileInfo links a resource to one attachment of the storage area.
type FileInfo struct {
	UUID        string
	ContentType ContentType
	Size        int64
	MD5         string
}

// Resource is one patient, study, series or instance of the index.
// MainTags are keyed by "gggg,eeee".
type Resource struct {
	ID       string
	Level    types.ResourceLevel
	ParentID string
	MainTags map[string]string
	Metadata map[string]string
	Files    []FileInfo
}

// ResourceIndex records the patient/study/series/instance hierarchy.
// Create is idempotent: creating an existing resource leaves it untouched
// and reports false. Unknown identifiers are reported with
// errors.KindInexistentItem.
type ResourceIndex interface {
	Create(ctx context.Context, id, parentID string, level types.ResourceLevel, mainTags *dicom.Dataset, metadata map[string]string) (bool, error)
	Attach(ctx context.Context, id string, file FileInfo) error
	Get(ctx context.Context, id string) (*Resource, error)
	// Lookup returns the resources of level whose main tag equals value.
	Lookup(ctx context.Context, level types.ResourceLevel, tag dicom.Tag, value string) ([]string, error)
	// Children returns the resources one level below id.
	Children(ctx context.Context, id string) ([]string, error)
	// List returns every resource of level.
	List(ctx context.Context, level types.ResourceLevel) ([]string, error)
}
