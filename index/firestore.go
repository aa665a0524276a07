package index

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/caio-sobreiro/dicomcore/dicom"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/interfaces"
	"github.com/caio-sobreiro/dicomcore/types"
)

// resourceDoc is the Firestore document of one resource. The document ID
// is the resource identifier.
type resourceDoc struct {
	Level    int               `firestore:"level"`
	Parent   string            `firestore:"parent"`
	MainTags map[string]string `firestore:"main_tags"`
	Metadata map[string]string `firestore:"metadata"`
	Files    []fileDoc         `firestore:"files"`
}

type fileDoc struct {
	UUID        string `firestore:"uuid"`
	ContentType int    `firestore:"content_type"`
	Size        int64  `firestore:"size"`
	MD5         string `firestore:"md5"`
}

func toFileDoc(f interfaces.FileInfo) fileDoc {
	return fileDoc{UUID: f.UUID, ContentType: int(f.ContentType), Size: f.Size, MD5: f.MD5}
}

func (d *resourceDoc) resource(id string) *interfaces.Resource {
	r := &interfaces.Resource{
		ID:       id,
		Level:    types.ResourceLevel(d.Level),
		ParentID: d.Parent,
		MainTags: d.MainTags,
		Metadata: d.Metadata,
	}
	for _, f := range d.Files {
		r.Files = append(r.Files, interfaces.FileInfo{
			UUID:        f.UUID,
			ContentType: interfaces.ContentType(f.ContentType),
			Size:        f.Size,
			MD5:         f.MD5,
		})
	}
	return r
}

// Firestore is a ResourceIndex stored as one document per resource.
type Firestore struct {
	client     *firestore.Client
	collection string
	logger     *slog.Logger
}

// NewFirestore connects to the Firestore database of project.
func NewFirestore(ctx context.Context, project, collection string) (*Firestore, error) {
	client, err := firestore.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient: %w", err)
	}
	return NewFirestoreWithClient(client, collection), nil
}

// NewFirestoreWithClient uses an existing client, for instance one pointed
// at the emulator.
func NewFirestoreWithClient(client *firestore.Client, collection string) *Firestore {
	return &Firestore{client: client, collection: collection, logger: slog.Default()}
}

// Close releases the client.
func (f *Firestore) Close() error {
	return f.client.Close()
}

func (f *Firestore) col() *firestore.CollectionRef {
	return f.client.Collection(f.collection)
}

func isCode(err error, code codes.Code) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == code
}

func (f *Firestore) Create(ctx context.Context, id, parentID string, level types.ResourceLevel, mainTags *dicom.Dataset, metadata map[string]string) (bool, error) {
	if err := checkLevel(id, parentID, level); err != nil {
		return false, err
	}
	doc := resourceDoc{
		Level:    int(level),
		Parent:   parentID,
		MainTags: mainTagMap(mainTags),
		Metadata: metadata,
		Files:    []fileDoc{},
	}
	if doc.Metadata == nil {
		doc.Metadata = map[string]string{}
	}

	_, err := f.col().Doc(id).Create(ctx, doc)
	if isCode(err, codes.AlreadyExists) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create resource (%s): %w", id, err)
	}
	f.logger.DebugContext(ctx, "Indexed resource", "id", id, "level", level.String(), "parent", parentID)
	return true, nil
}

func (f *Firestore) Attach(ctx context.Context, id string, file interfaces.FileInfo) error {
	_, err := f.col().Doc(id).Update(ctx, []firestore.Update{
		{Path: "files", Value: firestore.ArrayUnion(toFileDoc(file))},
	})
	if isCode(err, codes.NotFound) {
		return dcmerr.New(dcmerr.KindInexistentItem, "no resource %s", id)
	}
	if err != nil {
		return fmt.Errorf("attach file to resource (%s): %w", id, err)
	}
	return nil
}

func (f *Firestore) Get(ctx context.Context, id string) (*interfaces.Resource, error) {
	snap, err := f.col().Doc(id).Get(ctx)
	if isCode(err, codes.NotFound) {
		return nil, dcmerr.New(dcmerr.KindInexistentItem, "no resource %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get resource (%s): %w", id, err)
	}
	var doc resourceDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode resource (%s): %w", id, err)
	}
	return doc.resource(id), nil
}

func (f *Firestore) ids(ctx context.Context, q firestore.Query) ([]string, error) {
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Ref.ID)
	}
	slices.Sort(out)
	return out, nil
}

func (f *Firestore) Lookup(ctx context.Context, level types.ResourceLevel, tag dicom.Tag, value string) ([]string, error) {
	// The tag key holds a comma, hence the explicit field path.
	q := f.col().Where("level", "==", int(level)).
		WherePath(firestore.FieldPath{"main_tags", tag.Format()}, "==", value)
	out, err := f.ids(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("lookup %s %s: %w", level, tag, err)
	}
	return out, nil
}

func (f *Firestore) Children(ctx context.Context, id string) ([]string, error) {
	if _, err := f.col().Doc(id).Get(ctx); err != nil {
		if isCode(err, codes.NotFound) {
			return nil, dcmerr.New(dcmerr.KindInexistentItem, "no resource %s", id)
		}
		return nil, fmt.Errorf("get resource (%s): %w", id, err)
	}
	out, err := f.ids(ctx, f.col().Where("parent", "==", id))
	if err != nil {
		return nil, fmt.Errorf("children of %s: %w", id, err)
	}
	return out, nil
}

func (f *Firestore) List(ctx context.Context, level types.ResourceLevel) ([]string, error) {
	out, err := f.ids(ctx, f.col().Where("level", "==", int(level)))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", level, err)
	}
	return out, nil
}
