package client

import (
	"testing"

	"github.com/caio-sobreiro/dicomcore/dicom"
	"github.com/caio-sobreiro/dicomcore/dimse"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/interfaces"
	"github.com/caio-sobreiro/dicomcore/pdu"
	"github.com/caio-sobreiro/dicomcore/types"
)

func commitmentSCP() *testSCP {
	return &testSCP{
		acceptor: pdu.DefaultAcceptor(),
		respond: func(msg *types.Message, _ interfaces.MessageContext) (*types.Message, *dicom.Dataset) {
			rsp := answer(msg, types.StatusSuccess)
			if msg.CommandField == dimse.NActionRQ {
				rsp.AffectedSOPClassUID = msg.RequestedSOPClassUID
				rsp.AffectedSOPInstanceUID = msg.RequestedSOPInstanceUID
				rsp.ActionTypeID = msg.ActionTypeID
			}
			return rsp, nil
		},
	}
}

func TestNewTransactionUID(t *testing.T) {
	uid := NewTransactionUID()
	if err := checkTransactionUID(uid); err != nil {
		t.Fatalf("NewTransactionUID() = %q: %v", uid, err)
	}
	if uid == NewTransactionUID() {
		t.Error("transaction UIDs must be unique")
	}
}

func TestRequestStorageCommitment(t *testing.T) {
	scp := commitmentSCP()
	params := scp.start(t)
	txUID := NewTransactionUID()
	refs := []SOPReference{
		{SOPClassUID: types.CTImageStorage, SOPInstanceUID: "1.2.3.1"},
		{SOPClassUID: types.CTImageStorage, SOPInstanceUID: "1.2.3.2"},
	}

	if err := RequestStorageCommitment(t.Context(), params, txUID, refs); err != nil {
		t.Fatalf("RequestStorageCommitment failed: %v", err)
	}

	requests := scp.requestsSeen()
	if len(requests) != 1 {
		t.Fatalf("SCP received %d requests, want 1", len(requests))
	}
	msg := requests[0].msg
	if msg.CommandField != dimse.NActionRQ || msg.ActionTypeID == nil || *msg.ActionTypeID != types.CommitmentActionRequest {
		t.Errorf("request = %s, action type %v", dimse.CommandName(msg.CommandField), msg.ActionTypeID)
	}
	if msg.RequestedSOPInstanceUID != types.StorageCommitmentPushModelSOPInstance {
		t.Errorf("RequestedSOPInstanceUID = %s", msg.RequestedSOPInstanceUID)
	}
	ds := requests[0].meta.Dataset
	if ds == nil {
		t.Fatal("N-ACTION carried no dataset")
	}
	if got := ds.GetString(dicom.TagTransactionUID); got != txUID {
		t.Errorf("TransactionUID = %q, want %q", got, txUID)
	}
	items := ds.Items(dicom.TagReferencedSOPSequence)
	if len(items) != 2 || items[1].GetString(dicom.TagReferencedSOPInstanceUID) != "1.2.3.2" {
		t.Errorf("ReferencedSOPSequence has %d items", len(items))
	}
}

func TestRequestStorageCommitmentInvalid(t *testing.T) {
	params := testParameters()
	valid := []SOPReference{{SOPClassUID: types.CTImageStorage, SOPInstanceUID: "1.2.3"}}

	if err := RequestStorageCommitment(t.Context(), params, "1.2.3", valid); dcmerr.KindOf(err) != dcmerr.KindParameterOutOfRange {
		t.Errorf("transaction UID outside 2.25: got %v", err)
	}
	empty := []SOPReference{{SOPClassUID: types.CTImageStorage}}
	if err := RequestStorageCommitment(t.Context(), params, NewTransactionUID(), empty); dcmerr.KindOf(err) != dcmerr.KindParameterOutOfRange {
		t.Errorf("empty SOP instance UID: got %v", err)
	}
}

func TestReportStorageCommitment(t *testing.T) {
	tests := []struct {
		name      string
		outcomes  []CommitmentOutcome
		wantEvent uint16
		wantOK    int
		wantFail  int
	}{
		{
			name: "all committed",
			outcomes: []CommitmentOutcome{
				{SOPReference: SOPReference{types.CTImageStorage, "1.2.3.1"}},
				{SOPReference: SOPReference{types.CTImageStorage, "1.2.3.2"}},
			},
			wantEvent: types.CommitmentEventAllSuccess,
			wantOK:    2,
		},
		{
			name: "with failures",
			outcomes: []CommitmentOutcome{
				{SOPReference: SOPReference{types.CTImageStorage, "1.2.3.1"}},
				{SOPReference: SOPReference{types.CTImageStorage, "1.2.3.2"}, FailureReason: types.FailureReasonNoSuchObjectInstance},
			},
			wantEvent: types.CommitmentEventFailuresPresent,
			wantOK:    1,
			wantFail:  1,
		},
		{
			name: "nothing committed",
			outcomes: []CommitmentOutcome{
				{SOPReference: SOPReference{types.CTImageStorage, "1.2.3.1"}, FailureReason: types.FailureReasonProcessingFailure},
			},
			wantEvent: types.CommitmentEventFailuresPresent,
			wantFail:  1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scp := commitmentSCP()
			params := scp.start(t)
			report := CommitmentReport{
				TransactionUID:  NewTransactionUID(),
				RetrieveAETitle: "ARCHIVE",
				Outcomes:        tt.outcomes,
			}
			if err := ReportStorageCommitment(t.Context(), params, report); err != nil {
				t.Fatalf("ReportStorageCommitment failed: %v", err)
			}

			requests := scp.requestsSeen()
			if len(requests) != 1 {
				t.Fatalf("SCP received %d requests, want 1", len(requests))
			}
			msg := requests[0].msg
			if msg.CommandField != dimse.NEventReportRQ || msg.EventTypeID == nil || *msg.EventTypeID != tt.wantEvent {
				t.Fatalf("request = %s, event type %v, want %d", dimse.CommandName(msg.CommandField), msg.EventTypeID, tt.wantEvent)
			}

			ds := requests[0].meta.Dataset
			if ds == nil {
				t.Fatal("N-EVENT-REPORT carried no dataset")
			}
			if !ds.Has(dicom.TagReferencedSOPSequence) {
				t.Error("ReferencedSOPSequence must always be present")
			}
			committed := ds.Items(dicom.TagReferencedSOPSequence)
			if len(committed) != tt.wantOK {
				t.Errorf("%d committed items, want %d", len(committed), tt.wantOK)
			}
			for _, item := range committed {
				if item.GetString(dicom.TagRetrieveAETitle) != "ARCHIVE" {
					t.Error("committed items must carry the RetrieveAETitle")
				}
			}
			failed := ds.Items(dicom.TagFailedSOPSequence)
			if len(failed) != tt.wantFail {
				t.Errorf("%d failed items, want %d", len(failed), tt.wantFail)
			}
			if tt.wantFail == 0 && ds.Has(dicom.TagFailedSOPSequence) {
				t.Error("FailedSOPSequence must be absent when everything is committed")
			}
			for _, item := range failed {
				if item.GetString(dicom.TagFailureReason) == "" {
					t.Error("failed items must carry a FailureReason")
				}
			}
		})
	}
}

func TestReportStorageCommitmentInvalidReason(t *testing.T) {
	report := CommitmentReport{
		TransactionUID: NewTransactionUID(),
		Outcomes:       []CommitmentOutcome{{SOPReference: SOPReference{types.CTImageStorage, "1.2.3"}, FailureReason: 0x0999}},
	}
	err := ReportStorageCommitment(t.Context(), testParameters(), report)
	if dcmerr.KindOf(err) != dcmerr.KindParameterOutOfRange {
		t.Fatalf("ReportStorageCommitment = %v, want ParameterOutOfRange", err)
	}
}
