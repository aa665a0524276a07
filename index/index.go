// Package index records the patient/study/series/instance hierarchy of
// the stored instances, in memory or in Firestore.
package index

import (
	"context"
	"slices"

	"github.com/caio-sobreiro/dicomcore/dicom"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/interfaces"
	"github.com/caio-sobreiro/dicomcore/types"
)

// Backend names accepted by Open.
const (
	BackendMemory    = "memory"
	BackendFirestore = "firestore"
)

// DefaultCollection is the Firestore collection of the resources.
const DefaultCollection = "dicom_resources"

// Options selects and configures a resource index.
type Options struct {
	Backend    string
	Project    string
	Collection string
}

// Open returns the index described by opts.
func Open(ctx context.Context, opts Options) (interfaces.ResourceIndex, error) {
	switch opts.Backend {
	case BackendMemory, "":
		return NewMemory(), nil
	case BackendFirestore:
		if opts.Project == "" {
			return nil, dcmerr.New(dcmerr.KindParameterOutOfRange, "firestore index needs a project")
		}
		collection := opts.Collection
		if collection == "" {
			collection = DefaultCollection
		}
		return NewFirestore(ctx, opts.Project, collection)
	default:
		return nil, dcmerr.New(dcmerr.KindParameterOutOfRange, "unknown index backend %q", opts.Backend)
	}
}

// mainTagMap keeps the text value of each main tag, keyed by "gggg,eeee".
func mainTagMap(ds *dicom.Dataset) map[string]string {
	out := make(map[string]string)
	if ds == nil {
		return out
	}
	for tag, value := range dicom.Summary(ds, 0) {
		out[tag.Format()] = value
	}
	return out
}

func checkLevel(id, parentID string, level types.ResourceLevel) error {
	if id == "" {
		return dcmerr.New(dcmerr.KindParameterOutOfRange, "empty resource identifier")
	}
	if level < types.LevelPatient || level > types.LevelInstance {
		return dcmerr.New(dcmerr.KindParameterOutOfRange, "invalid resource level %d", level)
	}
	if level == types.LevelPatient && parentID != "" {
		return dcmerr.New(dcmerr.KindParameterOutOfRange, "patient %s cannot have a parent", id)
	}
	if level != types.LevelPatient && parentID == "" {
		return dcmerr.New(dcmerr.KindParameterOutOfRange, "%s %s needs a parent", level, id)
	}
	return nil
}

// Instances returns the instances at or below id, sorted.
func Instances(ctx context.Context, idx interfaces.ResourceIndex, id string) ([]string, error) {
	r, err := idx.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Level == types.LevelInstance {
		return []string{id}, nil
	}
	children, err := idx.Children(ctx, id)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, child := range children {
		instances, err := Instances(ctx, idx, child)
		if err != nil {
			return nil, err
		}
		out = append(out, instances...)
	}
	slices.Sort(out)
	return out, nil
}
