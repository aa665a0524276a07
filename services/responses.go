package services

import (
	"github.com/caio-sobreiro/dicomcore/dimse"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/types"
)

// baseResponse answers request with command and status, without a
// dataset. The affected SOP class and instance are echoed.
func baseResponse(request *types.Message, command, status uint16) *types.Message {
	return &types.Message{
		CommandField:              command,
		MessageIDBeingRespondedTo: request.MessageID,
		AffectedSOPClassUID:       request.AffectedSOPClassUID,
		AffectedSOPInstanceUID:    request.AffectedSOPInstanceUID,
		CommandDataSetType:        types.CommandDataSetTypeNone,
		Status:                    status,
	}
}

// NewCEchoResponse creates a C-ECHO-RSP.
func NewCEchoResponse(request *types.Message, status uint16) *types.Message {
	rsp := baseResponse(request, dimse.CEchoRSP, status)
	rsp.AffectedSOPClassUID = types.VerificationSOPClass
	rsp.AffectedSOPInstanceUID = ""
	return rsp
}

// NewCStoreResponse creates a C-STORE-RSP.
func NewCStoreResponse(request *types.Message, status uint16) *types.Message {
	return baseResponse(request, dimse.CStoreRSP, status)
}

// NewCFindPendingResponse announces one match; the identifier follows.
func NewCFindPendingResponse(request *types.Message) *types.Message {
	rsp := baseResponse(request, dimse.CFindRSP, dimse.StatusPending)
	rsp.AffectedSOPInstanceUID = ""
	rsp.CommandDataSetType = 0x0000
	return rsp
}

// NewCFindSuccessResponse ends a C-FIND.
func NewCFindSuccessResponse(request *types.Message) *types.Message {
	return NewCFindErrorResponse(request, dimse.StatusSuccess)
}

// NewCFindErrorResponse ends a C-FIND with status.
func NewCFindErrorResponse(request *types.Message, status uint16) *types.Message {
	rsp := baseResponse(request, dimse.CFindRSP, status)
	rsp.AffectedSOPInstanceUID = ""
	return rsp
}

// SubOperations counts the C-STORE sub-operations of a C-MOVE.
type SubOperations struct {
	Remaining uint16
	Completed uint16
	Failed    uint16
	Warning   uint16
}

// Record accounts for one finished sub-operation: err or a failure status
// counts as failed, any other non-success status as warning.
func (c *SubOperations) Record(status uint16, err error) {
	if c.Remaining > 0 {
		c.Remaining--
	}
	switch {
	case err != nil, !types.IsStoreSuccess(status):
		c.Failed++
	case (&dcmerr.DIMSEError{Status: status}).IsWarning():
		c.Warning++
	default:
		c.Completed++
	}
}

// FinalStatus is success when every sub-operation completed, and 0xB000
// (sub-operations complete, one or more failures or warnings) otherwise.
func (c SubOperations) FinalStatus() uint16 {
	if c.Failed > 0 || c.Warning > 0 {
		return types.StatusCoercionOfDataElements
	}
	return types.StatusSuccess
}

// NewCMoveResponse creates a C-MOVE-RSP. Nil counts are left out of the
// command, as for a C-MOVE refused before any sub-operation.
func NewCMoveResponse(request *types.Message, status uint16, counts *SubOperations) *types.Message {
	rsp := baseResponse(request, dimse.CMoveRSP, status)
	rsp.AffectedSOPInstanceUID = ""
	if counts != nil {
		c := *counts
		rsp.NumberOfRemainingSuboperations = &c.Remaining
		rsp.NumberOfCompletedSuboperations = &c.Completed
		rsp.NumberOfFailedSuboperations = &c.Failed
		rsp.NumberOfWarningSuboperations = &c.Warning
	}
	return rsp
}

// NewNActionResponse creates an N-ACTION-RSP. The affected SOP class and
// instance are the requested ones of the request.
func NewNActionResponse(request *types.Message, status uint16) *types.Message {
	rsp := baseResponse(request, dimse.NActionRSP, status)
	rsp.AffectedSOPClassUID = request.RequestedSOPClassUID
	rsp.AffectedSOPInstanceUID = request.RequestedSOPInstanceUID
	if request.ActionTypeID != nil {
		id := *request.ActionTypeID
		rsp.ActionTypeID = &id
	}
	return rsp
}

// NewNEventReportResponse creates an N-EVENT-REPORT-RSP.
func NewNEventReportResponse(request *types.Message, status uint16) *types.Message {
	rsp := baseResponse(request, dimse.NEventReportRSP, status)
	if request.EventTypeID != nil {
		id := *request.EventTypeID
		rsp.EventTypeID = &id
	}
	return rsp
}
