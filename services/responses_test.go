package services

import (
	"errors"
	"testing"

	"github.com/caio-sobreiro/dicomcore/dimse"
	"github.com/caio-sobreiro/dicomcore/types"
)

func ctStoreRequest() *types.Message {
	return &types.Message{
		CommandField:           dimse.CStoreRQ,
		MessageID:              17,
		AffectedSOPClassUID:    types.CTImageStorage,
		AffectedSOPInstanceUID: "1.2.840.1.1.1",
	}
}

func TestResponsesEchoTheRequest(t *testing.T) {
	req := ctStoreRequest()

	tests := []struct {
		name        string
		rsp         *types.Message
		command     uint16
		status      uint16
		sopClass    string
		sopInstance string
		hasDataset  bool
	}{
		{"C-ECHO", NewCEchoResponse(req, dimse.StatusSuccess), dimse.CEchoRSP, dimse.StatusSuccess, types.VerificationSOPClass, "", false},
		{"C-STORE", NewCStoreResponse(req, types.StatusOutOfResources), dimse.CStoreRSP, types.StatusOutOfResources, types.CTImageStorage, "1.2.840.1.1.1", false},
		{"C-FIND pending", NewCFindPendingResponse(req), dimse.CFindRSP, dimse.StatusPending, types.CTImageStorage, "", true},
		{"C-FIND final", NewCFindSuccessResponse(req), dimse.CFindRSP, dimse.StatusSuccess, types.CTImageStorage, "", false},
		{"C-FIND error", NewCFindErrorResponse(req, types.StatusCancel), dimse.CFindRSP, types.StatusCancel, types.CTImageStorage, "", false},
		{"C-MOVE", NewCMoveResponse(req, types.StatusMoveDestinationUnknown, nil), dimse.CMoveRSP, types.StatusMoveDestinationUnknown, types.CTImageStorage, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.rsp.CommandField != tt.command {
				t.Errorf("CommandField = 0x%04x, want 0x%04x", tt.rsp.CommandField, tt.command)
			}
			if tt.rsp.Status != tt.status {
				t.Errorf("Status = 0x%04x, want 0x%04x", tt.rsp.Status, tt.status)
			}
			if tt.rsp.MessageIDBeingRespondedTo != req.MessageID {
				t.Errorf("MessageIDBeingRespondedTo = %d", tt.rsp.MessageIDBeingRespondedTo)
			}
			if tt.rsp.AffectedSOPClassUID != tt.sopClass {
				t.Errorf("AffectedSOPClassUID = %q, want %q", tt.rsp.AffectedSOPClassUID, tt.sopClass)
			}
			if tt.rsp.AffectedSOPInstanceUID != tt.sopInstance {
				t.Errorf("AffectedSOPInstanceUID = %q, want %q", tt.rsp.AffectedSOPInstanceUID, tt.sopInstance)
			}
			if tt.rsp.HasDataset() != tt.hasDataset {
				t.Errorf("HasDataset() = %v", tt.rsp.HasDataset())
			}
		})
	}
}

func TestCMoveResponseCounts(t *testing.T) {
	req := &types.Message{CommandField: dimse.CMoveRQ, MessageID: 3, AffectedSOPClassUID: types.StudyRootQueryRetrieveInformationModelMove}

	refused := NewCMoveResponse(req, types.StatusProcessingFailure, nil)
	if refused.NumberOfCompletedSuboperations != nil || refused.NumberOfRemainingSuboperations != nil {
		t.Error("a refused C-MOVE carries no counts")
	}

	counts := SubOperations{Remaining: 2, Completed: 1}
	pending := NewCMoveResponse(req, dimse.StatusPending, &counts)
	counts.Completed = 9
	if *pending.NumberOfCompletedSuboperations != 1 || *pending.NumberOfRemainingSuboperations != 2 {
		t.Error("the response must not alias the live counters")
	}
	if *pending.NumberOfFailedSuboperations != 0 || *pending.NumberOfWarningSuboperations != 0 {
		t.Error("zero counts must still be present")
	}
}

func TestSubOperations(t *testing.T) {
	tests := []struct {
		name   string
		status []uint16
		errs   []error
		want   SubOperations
		final  uint16
	}{
		{"all stored", []uint16{0, 0}, []error{nil, nil}, SubOperations{Completed: 2}, types.StatusSuccess},
		{"coerced counts as warning", []uint16{0, types.StatusCoercionOfDataElements}, []error{nil, nil}, SubOperations{Completed: 1, Warning: 1}, 0xB000},
		{"failure status", []uint16{types.StatusOutOfResources, 0}, []error{nil, nil}, SubOperations{Completed: 1, Failed: 1}, 0xB000},
		{"network error", []uint16{0, 0}, []error{errors.New("reset"), nil}, SubOperations{Completed: 1, Failed: 1}, 0xB000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counts := SubOperations{Remaining: uint16(len(tt.status))}
			for i := range tt.status {
				counts.Record(tt.status[i], tt.errs[i])
			}
			if counts != tt.want {
				t.Errorf("counts = %+v, want %+v", counts, tt.want)
			}
			if got := counts.FinalStatus(); got != tt.final {
				t.Errorf("FinalStatus() = 0x%04x, want 0x%04x", got, tt.final)
			}
		})
	}
}

func TestNActionResponse(t *testing.T) {
	action := uint16(types.CommitmentActionRequest)
	req := &types.Message{
		CommandField:            dimse.NActionRQ,
		MessageID:               8,
		RequestedSOPClassUID:    types.StorageCommitmentPushModelSOPClass,
		RequestedSOPInstanceUID: types.StorageCommitmentPushModelSOPInstance,
		ActionTypeID:            &action,
	}

	rsp := NewNActionResponse(req, dimse.StatusSuccess)
	if rsp.CommandField != dimse.NActionRSP || rsp.Status != dimse.StatusSuccess {
		t.Errorf("response = 0x%04x/0x%04x", rsp.CommandField, rsp.Status)
	}
	if rsp.AffectedSOPClassUID != types.StorageCommitmentPushModelSOPClass ||
		rsp.AffectedSOPInstanceUID != types.StorageCommitmentPushModelSOPInstance {
		t.Errorf("affected SOP = %s/%s, want the requested ones", rsp.AffectedSOPClassUID, rsp.AffectedSOPInstanceUID)
	}
	if rsp.ActionTypeID == nil || *rsp.ActionTypeID != action || rsp.ActionTypeID == req.ActionTypeID {
		t.Error("action type ID should be copied")
	}
}

func TestNEventReportResponse(t *testing.T) {
	event := uint16(types.CommitmentEventFailuresPresent)
	req := &types.Message{
		CommandField:           dimse.NEventReportRQ,
		MessageID:              4,
		AffectedSOPClassUID:    types.StorageCommitmentPushModelSOPClass,
		AffectedSOPInstanceUID: types.StorageCommitmentPushModelSOPInstance,
		EventTypeID:            &event,
	}

	rsp := NewNEventReportResponse(req, types.StatusProcessingFailure)
	if rsp.CommandField != dimse.NEventReportRSP || rsp.Status != types.StatusProcessingFailure {
		t.Errorf("response = 0x%04x/0x%04x", rsp.CommandField, rsp.Status)
	}
	if rsp.AffectedSOPInstanceUID != types.StorageCommitmentPushModelSOPInstance {
		t.Errorf("AffectedSOPInstanceUID = %s", rsp.AffectedSOPInstanceUID)
	}
	if rsp.EventTypeID == nil || *rsp.EventTypeID != event {
		t.Error("event type ID should be copied")
	}

	req.EventTypeID = nil
	if NewNEventReportResponse(req, 0).EventTypeID != nil {
		t.Error("no event type ID to copy")
	}
}
