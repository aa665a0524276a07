package services

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caio-sobreiro/dicomcore/cache"
	"github.com/caio-sobreiro/dicomcore/dicom"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/interfaces"
	"github.com/caio-sobreiro/dicomcore/storage"
	"github.com/caio-sobreiro/dicomcore/types"
)

// Metadata recorded on stored instances.
const (
	MetadataRemoteAET      = "RemoteAET"
	MetadataCalledAET      = "CalledAET"
	MetadataTransferSyntax = "TransferSyntax"
	MetadataSOPClassUID    = "SOPClassUID"
	MetadataReceptionDate  = "ReceptionDate"
)

var levels = []types.ResourceLevel{types.LevelPatient, types.LevelStudy, types.LevelSeries, types.LevelInstance}

// StoreService handles C-STORE requests: the received instance is written
// to a storage area as a Part 10 file and recorded in a resource index.
type StoreService struct {
	area   interfaces.StorageArea
	index  interfaces.ResourceIndex
	cache  *cache.ParsedCache
	env    *dicom.Environment
	logger *slog.Logger
	now    func() time.Time
}

// StoreOption configures a StoreService.
type StoreOption func(*StoreService)

// WithParsedCache makes the service invalidate and serve instances
// through c.
func WithParsedCache(c *cache.ParsedCache) StoreOption {
	return func(s *StoreService) { s.cache = c }
}

// WithEnvironment parses received datasets with env instead of
// dicom.Default().
func WithEnvironment(env *dicom.Environment) StoreOption {
	return func(s *StoreService) { s.env = env }
}

// WithStoreLogger sets the logger.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *StoreService) { s.logger = logger }
}

// NewStoreService creates a C-STORE service over area and index.
func NewStoreService(area interfaces.StorageArea, index interfaces.ResourceIndex, opts ...StoreOption) *StoreService {
	s := &StoreService{
		area:   area,
		index:  index,
		env:    dicom.Default(),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StoreResult tells what Store did with an instance.
type StoreResult struct {
	InstanceID string
	// AlreadyStored is set when the index already held the instance; the
	// new copy is then discarded.
	AlreadyStored bool
}

// HandleDIMSE answers a C-STORE-RQ.
func (s *StoreService) HandleDIMSE(ctx context.Context, msg *types.Message, data []byte, meta interfaces.MessageContext) (*types.Message, *dicom.Dataset, error) {
	logger := s.logger.With("message_id", msg.MessageID, "calling_aet", meta.CallingAETitle,
		"sop_instance_uid", msg.AffectedSOPInstanceUID)

	var inst *dicom.ParsedInstance
	if meta.Dataset != nil {
		inst = s.env.NewInstance(meta.Dataset, meta.TransferSyntaxUID)
	} else {
		var err error
		inst, err = s.env.ParseRawDataset(data, meta.TransferSyntaxUID)
		if err != nil {
			logger.WarnContext(ctx, "Cannot parse the received instance", "error", err)
			return NewCStoreResponse(msg, types.StatusCannotUnderstand), nil, nil
		}
	}

	if inst.SOPInstanceUID() != msg.AffectedSOPInstanceUID || inst.SOPClassUID() != msg.AffectedSOPClassUID {
		logger.WarnContext(ctx, "C-STORE command does not match its dataset",
			"dataset_sop_class_uid", inst.SOPClassUID(),
			"dataset_sop_instance_uid", inst.SOPInstanceUID())
		return NewCStoreResponse(msg, types.StatusDataSetMismatch), nil, nil
	}

	result, err := s.Store(ctx, inst, map[string]string{
		MetadataRemoteAET: meta.CallingAETitle,
		MetadataCalledAET: meta.CalledAETitle,
	})
	if err != nil {
		status := storeFailureStatus(err)
		logger.ErrorContext(ctx, "C-STORE failed", "error", err, "status", fmt.Sprintf("0x%04X", status))
		return NewCStoreResponse(msg, status), nil, nil
	}

	logger.InfoContext(ctx, "C-STORE request successful",
		"instance_id", result.InstanceID,
		"already_stored", result.AlreadyStored)
	return NewCStoreResponse(msg, types.StatusSuccess), nil, nil
}

func storeFailureStatus(err error) uint16 {
	switch dcmerr.KindOf(err) {
	case dcmerr.KindBadFileFormat, dcmerr.KindCorruptedFile:
		return types.StatusCannotUnderstand
	case dcmerr.KindInexistentFile, dcmerr.KindTimeout:
		return types.StatusOutOfResources
	}
	return types.StatusProcessingFailure
}

// Store writes inst and indexes its four resources. The extra metadata
// is recorded on the instance.
func (s *StoreService) Store(ctx context.Context, inst *dicom.ParsedInstance, metadata map[string]string) (StoreResult, error) {
	ds := inst.Dataset()
	hasher, err := dicom.NewInstanceHasher(ds)
	if err != nil {
		return StoreResult{}, err
	}
	result := StoreResult{InstanceID: hasher.InstanceHash()}

	if _, err := s.index.Get(ctx, result.InstanceID); err == nil {
		result.AlreadyStored = true
		return result, nil
	} else if !errors.Is(err, dcmerr.KindInexistentItem) {
		return result, fmt.Errorf("look up instance %s: %w", result.InstanceID, err)
	}

	content, err := inst.Serialize()
	if err != nil {
		return result, fmt.Errorf("serialize instance: %w", err)
	}
	sum := md5.Sum(content)
	file := interfaces.FileInfo{
		UUID:        storage.NewUUID(),
		ContentType: interfaces.ContentDicom,
		Size:        int64(len(content)),
		MD5:         hex.EncodeToString(sum[:]),
	}
	if err := s.area.Create(ctx, file.UUID, content, file.ContentType); err != nil {
		return result, fmt.Errorf("write attachment %s: %w", file.UUID, err)
	}

	instanceMeta := map[string]string{
		MetadataTransferSyntax: inst.TransferSyntax(),
		MetadataSOPClassUID:    inst.SOPClassUID(),
		MetadataReceptionDate:  s.now().UTC().Format(time.RFC3339),
	}
	for k, v := range metadata {
		if v != "" {
			instanceMeta[k] = v
		}
	}

	parent := ""
	for _, level := range levels {
		id := hasher.Hash(level)
		var md map[string]string
		if level == types.LevelInstance {
			md = instanceMeta
		}
		created, err := s.index.Create(ctx, id, parent, level, dicom.ExtractMainTags(ds, level), md)
		if err != nil {
			s.discard(ctx, file)
			return result, fmt.Errorf("index %s %s: %w", level, id, err)
		}
		if level == types.LevelInstance && !created {
			// Stored concurrently by another association.
			s.discard(ctx, file)
			result.AlreadyStored = true
			return result, nil
		}
		parent = id
	}

	if err := s.index.Attach(ctx, result.InstanceID, file); err != nil {
		s.discard(ctx, file)
		return result, fmt.Errorf("attach %s to %s: %w", file.UUID, result.InstanceID, err)
	}
	if s.cache != nil {
		s.cache.Invalidate(result.InstanceID)
	}
	return result, nil
}

func (s *StoreService) discard(ctx context.Context, file interfaces.FileInfo) {
	if err := s.area.Remove(ctx, file.UUID, file.ContentType); err != nil {
		s.logger.WarnContext(ctx, "Cannot remove orphan attachment", "uuid", file.UUID, "error", err)
	}
}

// LoadInstance reads and parses the stored Part 10 file of an instance.
// It has the signature of a cache.Loader.
func (s *StoreService) LoadInstance(ctx context.Context, instanceID string) (*dicom.ParsedInstance, int64, error) {
	r, err := s.index.Get(ctx, instanceID)
	if err != nil {
		return nil, 0, err
	}
	if r.Level != types.LevelInstance {
		return nil, 0, dcmerr.New(dcmerr.KindParameterOutOfRange, "resource %s is a %s, not an instance", instanceID, r.Level)
	}
	for _, f := range r.Files {
		if f.ContentType != interfaces.ContentDicom {
			continue
		}
		content, err := s.area.Read(ctx, f.UUID, f.ContentType)
		if err != nil {
			return nil, 0, err
		}
		inst, err := s.env.ParseInstance(content)
		if err != nil {
			return nil, 0, fmt.Errorf("parse attachment %s: %w", f.UUID, err)
		}
		return inst, int64(len(content)), nil
	}
	return nil, 0, dcmerr.New(dcmerr.KindInexistentFile, "instance %s has no DICOM attachment", instanceID)
}

// Access runs fn on a stored instance, going through the parsed cache
// when one is configured.
func (s *StoreService) Access(ctx context.Context, instanceID string, fn func(*dicom.ParsedInstance) error) error {
	if s.cache != nil {
		return s.cache.Access(ctx, instanceID, s.LoadInstance, fn)
	}
	inst, _, err := s.LoadInstance(ctx, instanceID)
	if err != nil {
		return err
	}
	return fn(inst)
}

// FindInstance returns the instance ID of a SOP instance UID.
func (s *StoreService) FindInstance(ctx context.Context, sopInstanceUID string) (string, error) {
	ids, err := s.index.Lookup(ctx, types.LevelInstance, dicom.TagSOPInstanceUID, sopInstanceUID)
	if err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", dcmerr.New(dcmerr.KindInexistentItem, "no instance with SOPInstanceUID %s", sopInstanceUID)
	case 1:
		return ids[0], nil
	}
	return "", dcmerr.New(dcmerr.KindInternalError, "SOPInstanceUID %s is stored %d times", sopInstanceUID, len(ids))
}
