// Package interfaces contains the service, handler and collaborator
// interfaces shared by the network layers and the storage backends.
package interfaces

import (
	"context"

	"github.com/caio-sobreiro/dicomcore/dicom"
	"github.com/caio-sobreiro/dicomcore/types"
)

// MessageContext describes the association and presentation context a
// DIMSE request arrived on.
type MessageContext struct {
	PresentationContextID byte
	AbstractSyntax        string
	TransferSyntaxUID     string
	CallingAETitle        string
	CalledAETitle         string
	RemoteAddr            string

	// Dataset is the request dataset parsed with TransferSyntaxUID, or nil
	// when the request carried none or could not be parsed.
	Dataset *dicom.Dataset
}

// ServiceHandler interface for handling DIMSE operations
type ServiceHandler interface {
	HandleDIMSE(ctx context.Context, msg *types.Message, data []byte, meta MessageContext) (*types.Message, *dicom.Dataset, error)
}

// StreamingServiceHandler interface for multi-response DIMSE operations
type StreamingServiceHandler interface {
	HandleDIMSEStreaming(ctx context.Context, msg *types.Message, data []byte, meta MessageContext, responder ResponseSender) error
}

// ResponseSender interface for sending intermediate responses
type ResponseSender interface {
	SendResponse(msg *types.Message, dataset *dicom.Dataset, transferSyntaxUID string) error
}

// DIMSEHandler interface for PDU layer to communicate with DIMSE layer
type DIMSEHandler interface {
	HandleDIMSEMessage(presContextID byte, msgCtrlHeader byte, data []byte, pduLayer PDULayer) error
}

// PDULayer interface for DIMSE layer to communicate with PDU layer
type PDULayer interface {
	SendDIMSEResponse(presContextID byte, commandData []byte) error
	SendDIMSEResponseWithDataset(presContextID byte, commandData []byte, dataset []byte) error
	GetTransferSyntax(presContextID byte) (string, error)
}

// AssociationInfo is implemented by PDU layers that can describe the
// association they carry.
type AssociationInfo interface {
	CallingAETitle() string
	CalledAETitle() string
	AbstractSyntax(presContextID byte) string
	RemoteAddr() string
}
