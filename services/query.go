package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/caio-sobreiro/dicomcore/client"
	"github.com/caio-sobreiro/dicomcore/dicom"
	"github.com/caio-sobreiro/dicomcore/index"
	"github.com/caio-sobreiro/dicomcore/interfaces"
	"github.com/caio-sobreiro/dicomcore/types"
)

// Keys of a query that never take part in matching.
var queryControlTags = map[dicom.Tag]bool{
	dicom.TagQueryRetrieveLevel:   true,
	dicom.TagSpecificCharacterSet: true,
	dicom.TagRetrieveAETitle:      true,
}

func requestIdentifier(data []byte, meta interfaces.MessageContext) (*dicom.Dataset, error) {
	if meta.Dataset != nil {
		return meta.Dataset, nil
	}
	return dicom.ParseDatasetWithTransferSyntax(data, meta.TransferSyntaxUID)
}

func requestLevel(ds *dicom.Dataset) (types.ResourceLevel, bool) {
	q, ok := types.ParseQueryLevel(ds.GetString(dicom.TagQueryRetrieveLevel))
	if !ok {
		return 0, false
	}
	return q.ResourceLevel(), true
}

// FindService answers C-FIND requests from the resource index. Keys are
// matched against the main tags of the resource and of its ancestors.
type FindService struct {
	index    interfaces.ResourceIndex
	localAET string
	logger   *slog.Logger
}

// NewFindService creates a C-FIND service. localAET fills RetrieveAETitle
// in the answers.
func NewFindService(idx interfaces.ResourceIndex, localAET string, logger *slog.Logger) *FindService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FindService{index: idx, localAET: localAET, logger: logger}
}

// HandleDIMSE only exists to satisfy interfaces.ServiceHandler: C-FIND
// always goes through HandleDIMSEStreaming.
func (s *FindService) HandleDIMSE(ctx context.Context, msg *types.Message, data []byte, meta interfaces.MessageContext) (*types.Message, *dicom.Dataset, error) {
	return NewCFindErrorResponse(msg, types.StatusUnrecognizedOperation), nil, nil
}

// HandleDIMSEStreaming sends one pending response per match and a final
// success response.
func (s *FindService) HandleDIMSEStreaming(ctx context.Context, msg *types.Message, data []byte, meta interfaces.MessageContext, responder interfaces.ResponseSender) error {
	logger := s.logger.With("message_id", msg.MessageID, "calling_aet", meta.CallingAETitle)

	query, err := requestIdentifier(data, meta)
	if err != nil {
		logger.WarnContext(ctx, "Cannot parse C-FIND identifier", "error", err)
		return responder.SendResponse(NewCFindErrorResponse(msg, types.StatusCannotUnderstand), nil, meta.TransferSyntaxUID)
	}
	level, ok := requestLevel(query)
	if !ok {
		logger.WarnContext(ctx, "C-FIND without a valid QueryRetrieveLevel",
			"level", query.GetString(dicom.TagQueryRetrieveLevel))
		return responder.SendResponse(NewCFindErrorResponse(msg, types.StatusDataSetMismatch), nil, meta.TransferSyntaxUID)
	}

	answers, warning, err := s.Find(ctx, level, query)
	if err != nil {
		logger.ErrorContext(ctx, "C-FIND failed", "error", err)
		return responder.SendResponse(NewCFindErrorResponse(msg, types.StatusProcessingFailure), nil, meta.TransferSyntaxUID)
	}

	pending := NewCFindPendingResponse(msg)
	if warning {
		pending.Status = types.StatusPendingWarning
	}
	for _, answer := range answers {
		if err := ctx.Err(); err != nil {
			return responder.SendResponse(NewCFindErrorResponse(msg, types.StatusCancel), nil, meta.TransferSyntaxUID)
		}
		if err := responder.SendResponse(pending, answer, meta.TransferSyntaxUID); err != nil {
			return err
		}
	}

	logger.InfoContext(ctx, "C-FIND request successful", "level", level, "matches", len(answers))
	return responder.SendResponse(NewCFindSuccessResponse(msg), nil, meta.TransferSyntaxUID)
}

// Find returns the answers to query at level. warning is set when the
// query holds keys the index cannot match.
func (s *FindService) Find(ctx context.Context, level types.ResourceLevel, query *dicom.Dataset) (answers []*dicom.Dataset, warning bool, err error) {
	candidates, err := s.candidates(ctx, level, query)
	if err != nil {
		return nil, false, err
	}

	for _, id := range candidates {
		tags, err := s.chainTags(ctx, id)
		if err != nil {
			return nil, false, err
		}
		answer, unsupported, ok := s.match(level, query, tags)
		warning = warning || unsupported
		if ok {
			answers = append(answers, answer)
		}
	}
	return answers, warning, nil
}

// candidates uses the identifier of level when it is an exact value, and
// lists the whole level otherwise.
func (s *FindService) candidates(ctx context.Context, level types.ResourceLevel, query *dicom.Dataset) ([]string, error) {
	tag := dicom.IdentifierTag(level)
	if key := query.GetString(tag); key != "" && !strings.ContainsAny(key, `*?\-`) {
		return s.index.Lookup(ctx, level, tag, key)
	}
	return s.index.List(ctx, level)
}

// chainTags merges the main tags of id and of its ancestors.
func (s *FindService) chainTags(ctx context.Context, id string) (map[string]string, error) {
	tags := make(map[string]string)
	for id != "" {
		r, err := s.index.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		for k, v := range r.MainTags {
			if _, ok := tags[k]; !ok {
				tags[k] = v
			}
		}
		id = r.ParentID
	}
	return tags, nil
}

func (s *FindService) match(level types.ResourceLevel, query *dicom.Dataset, tags map[string]string) (*dicom.Dataset, bool, bool) {
	answer := dicom.NewDataset()
	answer.SetString(dicom.TagSpecificCharacterSet, "ISO_IR 192")
	answer.SetString(dicom.TagQueryRetrieveLevel, string(level.QueryLevel()))
	if s.localAET != "" {
		answer.SetString(dicom.TagRetrieveAETitle, s.localAET)
	}

	unsupported := false
	for _, e := range query.Elements() {
		if queryControlTags[e.Tag] || e.Value.IsSequence() || e.Value.IsBinary() {
			continue
		}
		key := ""
		if !e.Value.IsNull() {
			key = e.Value.String()
		}
		value, known := tags[e.Tag.Format()]
		if !known && strings.TrimSpace(key) != "" && strings.TrimSpace(key) != "*" {
			unsupported = true
		}
		if known && !matchKey(e.VR, key, value) {
			return nil, unsupported, false
		}
		answer.AddElement(e.Tag, e.VR, dicom.StringValue(value))
	}
	return answer, unsupported, true
}

// MoveService answers C-MOVE requests: the matching instances are sent
// to the move destination over a new association, with C-STORE
// sub-operations reported as pending responses.
type MoveService struct {
	store   *StoreService
	resolve ModalityResolver
	params  client.Parameters
	logger  *slog.Logger
}

// NewMoveService creates a C-MOVE service. params is the template of the
// sub-operation associations; its Remote is the resolved destination.
func NewMoveService(store *StoreService, resolve ModalityResolver, params client.Parameters) *MoveService {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &MoveService{store: store, resolve: resolve, params: params, logger: logger}
}

// HandleDIMSE only exists to satisfy interfaces.ServiceHandler.
func (s *MoveService) HandleDIMSE(ctx context.Context, msg *types.Message, data []byte, meta interfaces.MessageContext) (*types.Message, *dicom.Dataset, error) {
	return NewCMoveResponse(msg, types.StatusUnrecognizedOperation, nil), nil, nil
}

// Instances returns the instance IDs a C-MOVE identifier designates.
func (s *MoveService) Instances(ctx context.Context, level types.ResourceLevel, identifier *dicom.Dataset) ([]string, error) {
	tag := dicom.IdentifierTag(level)
	var ids []string
	for _, uid := range identifier.GetStrings(tag) {
		if uid == "" {
			continue
		}
		found, err := s.store.index.Lookup(ctx, level, tag, uid)
		if err != nil {
			return nil, err
		}
		for _, id := range found {
			instances, err := index.Instances(ctx, s.store.index, id)
			if err != nil {
				return nil, err
			}
			ids = append(ids, instances...)
		}
	}
	return ids, nil
}

// HandleDIMSEStreaming performs the sub-operations.
func (s *MoveService) HandleDIMSEStreaming(ctx context.Context, msg *types.Message, data []byte, meta interfaces.MessageContext, responder interfaces.ResponseSender) error {
	logger := s.logger.With("message_id", msg.MessageID, "calling_aet", meta.CallingAETitle,
		"move_destination", msg.MoveDestination)
	send := func(rsp *types.Message) error {
		return responder.SendResponse(rsp, nil, meta.TransferSyntaxUID)
	}

	identifier, err := requestIdentifier(data, meta)
	if err != nil {
		logger.WarnContext(ctx, "Cannot parse C-MOVE identifier", "error", err)
		return send(NewCMoveResponse(msg, types.StatusCannotUnderstand, nil))
	}
	level, ok := requestLevel(identifier)
	if !ok {
		return send(NewCMoveResponse(msg, types.StatusDataSetMismatch, nil))
	}

	remote, err := s.resolve(msg.MoveDestination)
	if err != nil {
		logger.WarnContext(ctx, "Unknown move destination", "error", err)
		return send(NewCMoveResponse(msg, types.StatusMoveDestinationUnknown, nil))
	}

	instances, err := s.Instances(ctx, level, identifier)
	if err != nil {
		logger.ErrorContext(ctx, "C-MOVE lookup failed", "error", err)
		return send(NewCMoveResponse(msg, types.StatusProcessingFailure, nil))
	}
	logger.InfoContext(ctx, "Found matching instances", "count", len(instances))

	params := s.params
	params.Remote = remote
	conn := client.NewStoreConnection(params)
	defer conn.Close()
	originator := &client.MoveOriginator{AETitle: meta.CallingAETitle, MessageID: msg.MessageID}

	counts := SubOperations{Remaining: uint16(len(instances))}
	for _, id := range instances {
		if ctx.Err() != nil {
			return send(NewCMoveResponse(msg, types.StatusCancel, &counts))
		}
		if err := send(NewCMoveResponse(msg, types.StatusPending, &counts)); err != nil {
			return err
		}

		var status uint16
		err := s.store.Access(ctx, id, func(inst *dicom.ParsedInstance) error {
			result, err := conn.Store(ctx, inst, originator)
			if err == nil {
				status = result.Status
			}
			return err
		})
		if err != nil {
			logger.ErrorContext(ctx, "C-STORE sub-operation failed", "instance_id", id, "error", err)
		}
		counts.Record(status, err)
	}

	final := NewCMoveResponse(msg, counts.FinalStatus(), &counts)
	logger.InfoContext(ctx, "C-MOVE request complete",
		"completed", counts.Completed, "failed", counts.Failed, "warning", counts.Warning,
		"status", fmt.Sprintf("0x%04X", final.Status))
	return send(final)
}

var (
	_ interfaces.StreamingServiceHandler = (*FindService)(nil)
	_ interfaces.StreamingServiceHandler = (*MoveService)(nil)
)
