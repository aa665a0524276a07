package client

import (
	"context"
	"strconv"
	"strings"

	"github.com/caio-sobreiro/dicomcore/dicom"
	"github.com/caio-sobreiro/dicomcore/dimse"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/types"
)

// SOPReference names an instance in a storage commitment transaction.
type SOPReference struct {
	SOPClassUID    string
	SOPInstanceUID string
}

// CommitmentOutcome is the result of committing one instance. A zero
// FailureReason means the instance is committed.
type CommitmentOutcome struct {
	SOPReference
	FailureReason uint16
}

// CommitmentReport is the N-EVENT-REPORT content of a transaction.
type CommitmentReport struct {
	TransactionUID string
	// RetrieveAETitle, when set, tells where committed instances can be
	// retrieved from.
	RetrieveAETitle string
	Outcomes        []CommitmentOutcome
}

// NewTransactionUID mints a storage commitment transaction UID.
func NewTransactionUID() string {
	return dicom.NewUID()
}

func commitmentSyntaxes() []string {
	return []string{types.ExplicitVRLittleEndian, types.ImplicitVRLittleEndian}
}

func checkTransactionUID(uid string) error {
	if !strings.HasPrefix(uid, "2.25.") || !dicom.IsValidUID(uid) {
		return dcmerr.New(dcmerr.KindParameterOutOfRange, "invalid storage commitment transaction UID %q", uid)
	}
	return nil
}

func referenceItem(ref SOPReference, retrieveAET string) *dicom.Dataset {
	item := dicom.NewDataset()
	if retrieveAET != "" {
		item.SetString(dicom.TagRetrieveAETitle, retrieveAET)
	}
	item.SetString(dicom.TagReferencedSOPClassUID, ref.SOPClassUID)
	item.SetString(dicom.TagReferencedSOPInstanceUID, ref.SOPInstanceUID)
	return item
}

// RequestStorageCommitment asks the remote to commit the given instances
// with an N-ACTION on the Storage Commitment Push Model. The outcome comes
// later, as an N-EVENT-REPORT on another association.
func RequestStorageCommitment(ctx context.Context, params Parameters, transactionUID string, refs []SOPReference) error {
	for _, ref := range refs {
		if ref.SOPClassUID == "" || ref.SOPInstanceUID == "" {
			return dcmerr.New(dcmerr.KindParameterOutOfRange,
				"the SOP class/instance UIDs cannot be empty, found: %q / %q", ref.SOPClassUID, ref.SOPInstanceUID)
		}
	}
	if err := checkTransactionUID(transactionUID); err != nil {
		return err
	}

	ds := dicom.NewDataset()
	ds.SetString(dicom.TagTransactionUID, transactionUID)
	items := make([]*dicom.Dataset, 0, len(refs))
	for _, ref := range refs {
		items = append(items, referenceItem(ref, ""))
	}
	ds.SetSequence(dicom.TagReferencedSOPSequence, items...)

	a := NewAssociation()
	a.ProposePresentationContext(types.StorageCommitmentPushModelSOPClass, commitmentSyntaxes(), types.RoleDefault)
	if err := a.Open(ctx, params); err != nil {
		return err
	}
	defer a.Close()

	contextID, ok := a.acceptedContext(types.StorageCommitmentPushModelSOPClass)
	if !ok {
		return dcmerr.New(dcmerr.KindNetworkProtocol,
			"storage commitment - unable to send N-ACTION request to AET: %s", params.Remote.AETitle)
	}
	data, err := dicom.EncodeDatasetWithTransferSyntax(ds, a.TransferSyntax(contextID))
	if err != nil {
		return err
	}

	actionType := uint16(types.CommitmentActionRequest)
	messageID := a.NextMessageID()
	command := &types.Message{
		CommandField:            dimse.NActionRQ,
		MessageID:               messageID,
		RequestedSOPClassUID:    types.StorageCommitmentPushModelSOPClass,
		RequestedSOPInstanceUID: types.StorageCommitmentPushModelSOPInstance,
		ActionTypeID:            &actionType,
	}
	if err := a.send(ctx, "N-ACTION", contextID, command, data); err != nil {
		return err
	}

	env, err := a.receive(ctx, "N-ACTION")
	if err != nil {
		return err
	}
	rsp := env.Command
	if rsp.CommandField != dimse.NActionRSP ||
		rsp.MessageIDBeingRespondedTo != messageID ||
		rsp.AffectedSOPClassUID != types.StorageCommitmentPushModelSOPClass ||
		rsp.AffectedSOPInstanceUID != types.StorageCommitmentPushModelSOPInstance ||
		rsp.HasDataset() {
		return dcmerr.New(dcmerr.KindNetworkProtocol,
			"storage commitment - unable to read N-ACTION response from AET: %s", params.Remote.AETitle)
	}
	if rsp.Status != types.StatusSuccess {
		return a.statusError(dcmerr.KindNetworkProtocol, "N-ACTION", rsp.Status, "storage commitment request refused")
	}

	a.logger.Info("Storage commitment requested", "transaction_uid", transactionUID, "instances", len(refs))
	return nil
}

// ReportStorageCommitment sends the outcome of a transaction to the
// modality that requested it. The report goes over a new association in
// which the local AE plays the SCP role of the push model.
func ReportStorageCommitment(ctx context.Context, params Parameters, report CommitmentReport) error {
	if err := checkTransactionUID(report.TransactionUID); err != nil {
		return err
	}

	var successes, failures []*dicom.Dataset
	for _, outcome := range report.Outcomes {
		if outcome.FailureReason == 0 {
			successes = append(successes, referenceItem(outcome.SOPReference, report.RetrieveAETitle))
			continue
		}
		if !types.IsCommitmentFailureReason(outcome.FailureReason) {
			return dcmerr.New(dcmerr.KindParameterOutOfRange,
				"unsupported storage commitment failure reason 0x%04X", outcome.FailureReason)
		}
		item := referenceItem(outcome.SOPReference, "")
		item.SetString(dicom.TagFailureReason, strconv.Itoa(int(outcome.FailureReason)))
		failures = append(failures, item)
	}

	ds := dicom.NewDataset()
	ds.SetString(dicom.TagTransactionUID, report.TransactionUID)
	if report.RetrieveAETitle != "" && len(successes) > 0 {
		ds.SetString(dicom.TagRetrieveAETitle, report.RetrieveAETitle)
	}
	// The referenced sequence is present, possibly empty.
	ds.SetSequence(dicom.TagReferencedSOPSequence, successes...)
	eventType := uint16(types.CommitmentEventAllSuccess)
	if len(failures) > 0 {
		eventType = types.CommitmentEventFailuresPresent
		ds.SetSequence(dicom.TagFailedSOPSequence, failures...)
	}

	a := NewAssociation()
	a.ProposePresentationContext(types.StorageCommitmentPushModelSOPClass, commitmentSyntaxes(), types.RoleSCP)
	if err := a.Open(ctx, params); err != nil {
		return err
	}
	defer a.Close()

	contextID, ok := a.acceptedContext(types.StorageCommitmentPushModelSOPClass)
	if !ok {
		return dcmerr.New(dcmerr.KindNetworkProtocol,
			"storage commitment - unable to send N-EVENT-REPORT request to AET: %s", params.Remote.AETitle)
	}
	data, err := dicom.EncodeDatasetWithTransferSyntax(ds, a.TransferSyntax(contextID))
	if err != nil {
		return err
	}

	messageID := a.NextMessageID()
	command := &types.Message{
		CommandField:           dimse.NEventReportRQ,
		MessageID:              messageID,
		AffectedSOPClassUID:    types.StorageCommitmentPushModelSOPClass,
		AffectedSOPInstanceUID: types.StorageCommitmentPushModelSOPInstance,
		EventTypeID:            &eventType,
	}
	if err := a.send(ctx, "N-EVENT-REPORT", contextID, command, data); err != nil {
		return err
	}

	env, err := a.receive(ctx, "N-EVENT-REPORT")
	if err != nil {
		return err
	}
	rsp := env.Command
	if rsp.CommandField != dimse.NEventReportRSP || rsp.MessageIDBeingRespondedTo != messageID {
		return dcmerr.New(dcmerr.KindNetworkProtocol,
			"storage commitment - unable to read N-EVENT-REPORT response from AET: %s", params.Remote.AETitle)
	}
	if rsp.Status != types.StatusSuccess {
		return a.statusError(dcmerr.KindNetworkProtocol, "N-EVENT-REPORT", rsp.Status, "storage commitment report refused")
	}

	a.logger.Info("Storage commitment reported",
		"transaction_uid", report.TransactionUID,
		"event_type", eventType,
		"successes", len(successes),
		"failures", len(failures))
	return nil
}
