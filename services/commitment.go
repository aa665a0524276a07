package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/caio-sobreiro/dicomcore/client"
	"github.com/caio-sobreiro/dicomcore/dicom"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/interfaces"
	"github.com/caio-sobreiro/dicomcore/types"
)

// ModalityResolver returns the remote modality behind a calling AE title.
type ModalityResolver func(aet string) (client.RemoteModality, error)

// CommitmentService answers N-ACTION requests of the Storage Commitment
// Push Model. The request is acknowledged at once; the instances are then
// checked against the store and the outcome is sent back to the requesting
// modality as an N-EVENT-REPORT, on a new association queued on a funnel.
type CommitmentService struct {
	store   *StoreService
	funnel  *client.Funnel
	resolve ModalityResolver
	params  client.Parameters
	logger  *slog.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewCommitmentService creates the service. params is the template of the
// report associations: its Remote is replaced by the resolved modality and
// its LocalAETitle is used as RetrieveAETitle for committed instances.
func NewCommitmentService(store *StoreService, funnel *client.Funnel, resolve ModalityResolver, params client.Parameters) *CommitmentService {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CommitmentService{
		store:   store,
		funnel:  funnel,
		resolve: resolve,
		params:  params,
		logger:  logger,
		seen:    make(map[string]struct{}),
	}
}

// HandleDIMSE answers an N-ACTION-RQ and schedules the report.
func (s *CommitmentService) HandleDIMSE(ctx context.Context, msg *types.Message, data []byte, meta interfaces.MessageContext) (*types.Message, *dicom.Dataset, error) {
	logger := s.logger.With("message_id", msg.MessageID, "calling_aet", meta.CallingAETitle)

	if msg.RequestedSOPClassUID != types.StorageCommitmentPushModelSOPClass {
		logger.WarnContext(ctx, "N-ACTION on an unsupported SOP class", "sop_class_uid", msg.RequestedSOPClassUID)
		return NewNActionResponse(msg, types.StatusNoSuchSOPClass), nil, nil
	}
	if msg.ActionTypeID == nil || *msg.ActionTypeID != types.CommitmentActionRequest {
		logger.WarnContext(ctx, "Unsupported storage commitment action type")
		return NewNActionResponse(msg, types.StatusNoSuchActionType), nil, nil
	}

	ds := meta.Dataset
	if ds == nil {
		var err error
		if ds, err = dicom.ParseDatasetWithTransferSyntax(data, meta.TransferSyntaxUID); err != nil {
			logger.WarnContext(ctx, "Cannot parse storage commitment request", "error", err)
			return NewNActionResponse(msg, types.StatusProcessingFailure), nil, nil
		}
	}
	transactionUID, refs, err := parseCommitmentRequest(ds)
	if err != nil {
		logger.WarnContext(ctx, "Invalid storage commitment request", "error", err)
		return NewNActionResponse(msg, types.StatusProcessingFailure), nil, nil
	}

	remote, err := s.resolve(meta.CallingAETitle)
	if err != nil {
		logger.ErrorContext(ctx, "Storage commitment requested by an unknown modality", "error", err)
		return NewNActionResponse(msg, types.StatusProcessingFailure), nil, nil
	}

	params := s.params
	params.Remote = remote
	// The report outlives the association that carried the request.
	reportCtx := context.WithoutCancel(ctx)
	err = s.funnel.Go(reportCtx, remote.AETitle, func(ctx context.Context) error {
		report := client.CommitmentReport{
			TransactionUID:  transactionUID,
			RetrieveAETitle: s.params.LocalAETitle,
			Outcomes:        s.Commit(ctx, transactionUID, refs),
		}
		return client.ReportStorageCommitment(ctx, params, report)
	})
	if err != nil {
		logger.ErrorContext(ctx, "Cannot schedule storage commitment report", "error", err)
		return NewNActionResponse(msg, types.StatusProcessingFailure), nil, nil
	}

	logger.InfoContext(ctx, "Storage commitment request accepted",
		"transaction_uid", transactionUID,
		"instances", len(refs))
	return NewNActionResponse(msg, types.StatusSuccess), nil, nil
}

func parseCommitmentRequest(ds *dicom.Dataset) (string, []client.SOPReference, error) {
	transactionUID := ds.GetString(dicom.TagTransactionUID)
	if transactionUID == "" {
		return "", nil, dcmerr.New(dcmerr.KindBadRequest, "missing TransactionUID")
	}
	var refs []client.SOPReference
	for _, item := range ds.Items(dicom.TagReferencedSOPSequence) {
		ref := client.SOPReference{
			SOPClassUID:    item.GetString(dicom.TagReferencedSOPClassUID),
			SOPInstanceUID: item.GetString(dicom.TagReferencedSOPInstanceUID),
		}
		if ref.SOPClassUID == "" || ref.SOPInstanceUID == "" {
			return "", nil, dcmerr.New(dcmerr.KindBadRequest, "incomplete item in ReferencedSOPSequence")
		}
		refs = append(refs, ref)
	}
	return transactionUID, refs, nil
}

// Commit checks every referenced instance and returns one outcome each.
// A transaction UID seen before fails all its instances.
func (s *CommitmentService) Commit(ctx context.Context, transactionUID string, refs []client.SOPReference) []client.CommitmentOutcome {
	s.mu.Lock()
	_, duplicate := s.seen[transactionUID]
	s.seen[transactionUID] = struct{}{}
	s.mu.Unlock()

	outcomes := make([]client.CommitmentOutcome, 0, len(refs))
	for _, ref := range refs {
		reason := uint16(types.FailureReasonDuplicateTransactionUID)
		if !duplicate {
			reason = s.check(ctx, ref)
		}
		if reason != 0 {
			s.logger.WarnContext(ctx, "Instance not committed",
				"transaction_uid", transactionUID,
				"sop_instance_uid", ref.SOPInstanceUID,
				"failure_reason", fmt.Sprintf("0x%04X", reason))
		}
		outcomes = append(outcomes, client.CommitmentOutcome{SOPReference: ref, FailureReason: reason})
	}
	return outcomes
}

func (s *CommitmentService) check(ctx context.Context, ref client.SOPReference) uint16 {
	id, err := s.store.FindInstance(ctx, ref.SOPInstanceUID)
	if errors.Is(err, dcmerr.KindInexistentItem) {
		return types.FailureReasonNoSuchObjectInstance
	} else if err != nil {
		return types.FailureReasonProcessingFailure
	}

	var sopClass string
	err = s.store.Access(ctx, id, func(inst *dicom.ParsedInstance) error {
		sopClass = inst.SOPClassUID()
		return nil
	})
	switch {
	case errors.Is(err, dcmerr.KindInexistentFile):
		return types.FailureReasonNoSuchObjectInstance
	case err != nil:
		return types.FailureReasonProcessingFailure
	case sopClass != ref.SOPClassUID:
		return types.FailureReasonClassInstanceConflict
	}
	return 0
}

// CommitmentReportService answers the N-EVENT-REPORT sent by a remote that
// was asked to commit instances, and hands each report to a callback.
type CommitmentReportService struct {
	onReport func(from string, report client.CommitmentReport)
	logger   *slog.Logger
}

// NewCommitmentReportService creates the service. onReport may be nil.
func NewCommitmentReportService(onReport func(from string, report client.CommitmentReport), logger *slog.Logger) *CommitmentReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommitmentReportService{onReport: onReport, logger: logger}
}

// HandleDIMSE answers an N-EVENT-REPORT-RQ.
func (s *CommitmentReportService) HandleDIMSE(ctx context.Context, msg *types.Message, data []byte, meta interfaces.MessageContext) (*types.Message, *dicom.Dataset, error) {
	if msg.AffectedSOPClassUID != types.StorageCommitmentPushModelSOPClass {
		return NewNEventReportResponse(msg, types.StatusNoSuchSOPClass), nil, nil
	}
	ds := meta.Dataset
	if ds == nil {
		var err error
		if ds, err = dicom.ParseDatasetWithTransferSyntax(data, meta.TransferSyntaxUID); err != nil {
			s.logger.WarnContext(ctx, "Cannot parse storage commitment report", "error", err)
			return NewNEventReportResponse(msg, types.StatusProcessingFailure), nil, nil
		}
	}
	report, err := parseCommitmentReport(ds)
	if err != nil {
		s.logger.WarnContext(ctx, "Invalid storage commitment report", "error", err)
		return NewNEventReportResponse(msg, types.StatusProcessingFailure), nil, nil
	}

	failures := 0
	for _, o := range report.Outcomes {
		if o.FailureReason != 0 {
			failures++
		}
	}
	s.logger.InfoContext(ctx, "Storage commitment report received",
		"calling_aet", meta.CallingAETitle,
		"transaction_uid", report.TransactionUID,
		"instances", len(report.Outcomes),
		"failures", failures)
	if s.onReport != nil {
		s.onReport(meta.CallingAETitle, report)
	}
	return NewNEventReportResponse(msg, types.StatusSuccess), nil, nil
}

func parseCommitmentReport(ds *dicom.Dataset) (client.CommitmentReport, error) {
	report := client.CommitmentReport{
		TransactionUID:  ds.GetString(dicom.TagTransactionUID),
		RetrieveAETitle: ds.GetString(dicom.TagRetrieveAETitle),
	}
	if report.TransactionUID == "" {
		return report, dcmerr.New(dcmerr.KindBadRequest, "missing TransactionUID")
	}
	for _, item := range ds.Items(dicom.TagReferencedSOPSequence) {
		report.Outcomes = append(report.Outcomes, client.CommitmentOutcome{SOPReference: itemReference(item)})
	}
	for _, item := range ds.Items(dicom.TagFailedSOPSequence) {
		reason, err := strconv.ParseUint(item.GetString(dicom.TagFailureReason), 10, 16)
		if err != nil || reason == 0 {
			return report, dcmerr.New(dcmerr.KindBadRequest, "invalid FailureReason %q", item.GetString(dicom.TagFailureReason))
		}
		report.Outcomes = append(report.Outcomes, client.CommitmentOutcome{SOPReference: itemReference(item), FailureReason: uint16(reason)})
	}
	return report, nil
}

func itemReference(item *dicom.Dataset) client.SOPReference {
	return client.SOPReference{
		SOPClassUID:    item.GetString(dicom.TagReferencedSOPClassUID),
		SOPInstanceUID: item.GetString(dicom.TagReferencedSOPInstanceUID),
	}
}
