package client

import (
	"context"

	"github.com/caio-sobreiro/dicomcore/dicom"
	"github.com/caio-sobreiro/dicomcore/dimse"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/types"
)

// RetrievedInstance is one C-STORE sub-operation of a C-GET.
type RetrievedInstance struct {
	SOPClassUID    string
	SOPInstanceUID string
	TransferSyntax string
	Dataset        []byte
}

// StoreHandler receives the instances of a C-GET and returns the C-STORE
// status to answer with.
type StoreHandler func(ctx context.Context, instance *RetrievedInstance) uint16

// RetrieveResult summarizes the sub-operations of a C-GET.
type RetrieveResult struct {
	Status    uint16
	Completed uint16
	Failed    uint16
	Warning   uint16
}

// Get retrieves the resources at level matching the identifiers of answer
// over this association. Storage classes must have been proposed with
// ProposeRetrieveStorageClasses so that the remote can send them.
func (c *ControlConnection) Get(ctx context.Context, level types.ResourceLevel, answer *dicom.Dataset, handler StoreHandler) (*RetrieveResult, error) {
	if handler == nil {
		return nil, dcmerr.New(dcmerr.KindNullPointer, "C-GET needs a store handler")
	}
	keys, err := RetrieveKeys(level, answer)
	if err != nil {
		return nil, err
	}
	keys.SetString(dicom.TagQueryRetrieveLevel, string(level.QueryLevel()))

	sopClass := types.StudyRootQueryRetrieveInformationModelGet
	if level == types.LevelPatient {
		sopClass = types.PatientRootQueryRetrieveInformationModelGet
	}
	contextID, err := c.contextFor(ctx, sopClass, dcmerr.KindDicomMoveUnavailable)
	if err != nil {
		return nil, err
	}
	identifier, err := c.encodeIdentifier(contextID, keys)
	if err != nil {
		return nil, err
	}

	a := c.association
	messageID := a.NextMessageID()
	command := &types.Message{
		CommandField:        dimse.CGetRQ,
		MessageID:           messageID,
		Priority:            types.PriorityMedium,
		AffectedSOPClassUID: sopClass,
	}
	if err := a.send(ctx, "C-GET", contextID, command, identifier); err != nil {
		return nil, err
	}

	result := &RetrieveResult{}
	for {
		env, err := a.receive(ctx, "C-GET")
		if err != nil {
			return nil, err
		}
		msg := env.Command

		if msg.CommandField == dimse.CStoreRQ {
			if err := c.storeSubOperation(ctx, env, handler); err != nil {
				return nil, err
			}
			continue
		}
		if msg.CommandField != dimse.CGetRSP || msg.MessageIDBeingRespondedTo != messageID {
			return nil, dcmerr.New(dcmerr.KindNetworkProtocol, "unexpected %s in answer to C-GET from AET %q",
				dimse.CommandName(msg.CommandField), a.RemoteAETitle())
		}

		result.Status = msg.Status
		if msg.NumberOfCompletedSuboperations != nil {
			result.Completed = *msg.NumberOfCompletedSuboperations
		}
		if msg.NumberOfFailedSuboperations != nil {
			result.Failed = *msg.NumberOfFailedSuboperations
		}
		if msg.NumberOfWarningSuboperations != nil {
			result.Warning = *msg.NumberOfWarningSuboperations
		}

		switch {
		case msg.Status == types.StatusPending:
			continue
		case msg.Status == types.StatusSuccess, msg.Status&0xF000 == 0xB000:
			return result, nil
		default:
			return result, a.statusError(dcmerr.KindNetworkProtocol, "C-GET", msg.Status, "")
		}
	}
}

// storeSubOperation answers a C-STORE-RQ received during a C-GET.
func (c *ControlConnection) storeSubOperation(ctx context.Context, env *dimse.Envelope, handler StoreHandler) error {
	a := c.association
	msg := env.Command
	status := handler(ctx, &RetrievedInstance{
		SOPClassUID:    msg.AffectedSOPClassUID,
		SOPInstanceUID: msg.AffectedSOPInstanceUID,
		TransferSyntax: a.TransferSyntax(env.PresentationContextID),
		Dataset:        env.Data,
	})
	response := &types.Message{
		CommandField:              dimse.CStoreRSP,
		MessageIDBeingRespondedTo: msg.MessageID,
		AffectedSOPClassUID:       msg.AffectedSOPClassUID,
		AffectedSOPInstanceUID:    msg.AffectedSOPInstanceUID,
		Status:                    status,
	}
	return a.send(ctx, "C-STORE-RSP", env.PresentationContextID, response, nil)
}
