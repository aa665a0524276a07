package dimse

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/caio-sobreiro/dicomcore/dicom"
	"github.com/caio-sobreiro/dicomcore/interfaces"
	"github.com/caio-sobreiro/dicomcore/types"
)

// PDULayer interface for sending responses
type PDULayer = interfaces.PDULayer

// Service reassembles the DIMSE messages of one association and routes
// them to a handler. The PDU layer feeds it one PDV at a time.
type Service struct {
	handler     interfaces.ServiceHandler
	commandData []byte
	datasetData []byte
	currentMsg  *types.Message
	logger      *slog.Logger
	ctx         context.Context
}

// responseHandler implements ResponseSender for streaming responses
type responseHandler struct {
	service       *Service
	presContextID byte
	pduLayer      PDULayer
}

// SendResponse implements ResponseSender interface
func (r *responseHandler) SendResponse(msg *types.Message, dataset *dicom.Dataset, transferSyntaxUID string) error {
	return r.service.sendDIMSEResponse(msg, dataset, transferSyntaxUID, r.presContextID, r.pduLayer)
}

// NewService creates a new DIMSE service with a handler
func NewService(handler interfaces.ServiceHandler, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		handler: handler,
		logger:  logger,
		ctx:     context.Background(),
	}
}

// WithContext sets the context handed to the handler, typically the
// lifetime of the connection.
func (d *Service) WithContext(ctx context.Context) *Service {
	d.ctx = ctx
	return d
}

// HandleDIMSEMessage processes DIMSE messages and routes to appropriate service
func (d *Service) HandleDIMSEMessage(presContextID byte, msgCtrlHeader byte, data []byte, pduLayer PDULayer) error {
	d.logger.Debug("Processing DIMSE message",
		"context_id", presContextID,
		"control_header", fmt.Sprintf("0x%02x", msgCtrlHeader))

	isCommand := msgCtrlHeader&pdvCommand != 0
	isLastFragment := msgCtrlHeader&pdvLast != 0

	if isCommand {
		d.commandData = append(d.commandData, data...)
		if !isLastFragment {
			return nil
		}

		msg, err := DecodeCommand(d.commandData)
		d.commandData = nil
		if err != nil {
			d.reset()
			return fmt.Errorf("failed to parse DIMSE command: %w", err)
		}
		d.currentMsg = msg

		d.logger.Debug("Received command", "command", CommandName(msg.CommandField), "message_id", msg.MessageID)
		if !msg.HasDataset() {
			return d.processCompleteMessage(presContextID, pduLayer)
		}
		return nil
	}

	d.logger.Debug("Received dataset data", "size_bytes", len(data))
	d.datasetData = append(d.datasetData, data...)
	if isLastFragment {
		return d.processCompleteMessage(presContextID, pduLayer)
	}
	return nil
}

func (d *Service) reset() {
	d.commandData = nil
	d.datasetData = nil
	d.currentMsg = nil
}

func (d *Service) messageContext(presContextID byte, pduLayer PDULayer) interfaces.MessageContext {
	meta := interfaces.MessageContext{PresentationContextID: presContextID}

	ts, err := pduLayer.GetTransferSyntax(presContextID)
	if err != nil {
		d.logger.Warn("No transfer syntax for presentation context", "context_id", presContextID, "error", err)
	}
	meta.TransferSyntaxUID = ts

	if info, ok := pduLayer.(interfaces.AssociationInfo); ok {
		meta.CallingAETitle = info.CallingAETitle()
		meta.CalledAETitle = info.CalledAETitle()
		meta.AbstractSyntax = info.AbstractSyntax(presContextID)
		meta.RemoteAddr = info.RemoteAddr()
	}
	return meta
}

// processCompleteMessage processes a complete DIMSE message (command + optional dataset)
func (d *Service) processCompleteMessage(presContextID byte, pduLayer PDULayer) error {
	if d.currentMsg == nil {
		d.reset()
		return fmt.Errorf("dataset received before its command on context %d", presContextID)
	}
	msg, data := d.currentMsg, d.datasetData
	d.reset()

	ctx := d.ctx
	meta := d.messageContext(presContextID, pduLayer)
	msg.TransferSyntaxUID = meta.TransferSyntaxUID

	if len(data) > 0 {
		ds, err := dicom.ParseDatasetWithTransferSyntax(data, meta.TransferSyntaxUID)
		if err != nil {
			d.logger.WarnContext(ctx, "Cannot parse request dataset",
				"command", CommandName(msg.CommandField),
				"transfer_syntax", meta.TransferSyntaxUID,
				"error", err)
		} else {
			meta.Dataset = ds
		}
	}

	d.logger.InfoContext(ctx, "Processing complete DIMSE message",
		"command", CommandName(msg.CommandField),
		"message_id", msg.MessageID,
		"calling_aet", meta.CallingAETitle,
		"dataset_size", len(data))

	// Multi-response operations such as C-FIND go through the streaming handler
	if streamingHandler, ok := d.handler.(interfaces.StreamingServiceHandler); ok {
		responder := &responseHandler{
			service:       d,
			presContextID: presContextID,
			pduLayer:      pduLayer,
		}
		return streamingHandler.HandleDIMSEStreaming(ctx, msg, data, meta, responder)
	}

	responseMsg, responseData, err := d.handler.HandleDIMSE(ctx, msg, data, meta)
	if err != nil {
		return fmt.Errorf("service handler failed: %w", err)
	}
	if responseMsg == nil {
		// C-CANCEL and the like have no response
		return nil
	}

	return d.sendDIMSEResponse(responseMsg, responseData, meta.TransferSyntaxUID, presContextID, pduLayer)
}

// sendDIMSEResponse encodes a response and its optional dataset. The
// dataset is written with transferSyntaxUID, or with the transfer syntax
// of the presentation context when empty.
func (d *Service) sendDIMSEResponse(msg *types.Message, dataset *dicom.Dataset, transferSyntaxUID string, presContextID byte, pduLayer PDULayer) error {
	response := *msg
	var datasetData []byte

	if dataset != nil {
		if transferSyntaxUID == "" {
			ts, err := pduLayer.GetTransferSyntax(presContextID)
			if err != nil {
				return err
			}
			transferSyntaxUID = ts
		}
		encoded, err := dicom.EncodeDatasetWithTransferSyntax(dataset, transferSyntaxUID)
		if err != nil {
			return fmt.Errorf("failed to encode response dataset: %w", err)
		}
		datasetData = encoded
		if !response.HasDataset() {
			response.CommandDataSetType = 0x0000
		}
	} else {
		response.CommandDataSetType = types.CommandDataSetTypeNone
	}

	commandData, err := EncodeCommand(&response)
	if err != nil {
		return err
	}

	d.logger.Debug("Sending DIMSE response",
		"command", CommandName(response.CommandField),
		"status", fmt.Sprintf("0x%04X", response.Status),
		"message_id_responded_to", response.MessageIDBeingRespondedTo)

	return pduLayer.SendDIMSEResponseWithDataset(presContextID, commandData, datasetData)
}
