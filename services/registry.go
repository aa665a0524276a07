package services

import (
	"context"
	"log/slog"
	"slices"

	"github.com/caio-sobreiro/dicomcore/dicom"
	"github.com/caio-sobreiro/dicomcore/dimse"
	"github.com/caio-sobreiro/dicomcore/interfaces"
	"github.com/caio-sobreiro/dicomcore/types"
)

// Registry routes incoming DIMSE requests to the service registered for
// their command field. It is the interfaces.ServiceHandler handed to the
// server, and it is itself streaming so that C-FIND and C-MOVE handlers
// can send their pending responses.
//
//	registry := services.NewRegistry()
//	registry.RegisterHandler(dimse.CEchoRQ, services.NewEchoService(logger))
//	registry.RegisterHandler(dimse.CStoreRQ, storeService)
//	registry.RegisterHandler(dimse.NActionRQ, commitmentService)
type Registry struct {
	handlers map[uint16]interfaces.ServiceHandler
	logger   *slog.Logger
}

// NewRegistry creates an empty registry that logs through slog.Default().
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[uint16]interfaces.ServiceHandler),
		logger:   slog.Default(),
	}
}

// RegisterHandler installs handler for commandField, replacing any
// previous one.
func (r *Registry) RegisterHandler(commandField uint16, handler interfaces.ServiceHandler) {
	r.handlers[commandField] = handler
}

// HandleDIMSE dispatches a single-response request. A command without a
// handler is answered with an "unrecognized operation" failure.
func (r *Registry) HandleDIMSE(ctx context.Context, msg *types.Message, data []byte, meta interfaces.MessageContext) (*types.Message, *dicom.Dataset, error) {
	handler, ok := r.lookup(ctx, msg, meta)
	if !ok {
		return r.unsupported(msg), nil, nil
	}
	return handler.HandleDIMSE(ctx, msg, data, meta)
}

// HandleDIMSEStreaming dispatches a request to a streaming handler, or
// sends the single response of a plain one. A nil response from a plain
// handler is not sent.
func (r *Registry) HandleDIMSEStreaming(ctx context.Context, msg *types.Message, data []byte, meta interfaces.MessageContext, responder interfaces.ResponseSender) error {
	handler, ok := r.lookup(ctx, msg, meta)
	if !ok {
		if rsp := r.unsupported(msg); rsp != nil {
			return responder.SendResponse(rsp, nil, meta.TransferSyntaxUID)
		}
		return nil
	}

	if streamingHandler, ok := handler.(interfaces.StreamingServiceHandler); ok {
		return streamingHandler.HandleDIMSEStreaming(ctx, msg, data, meta, responder)
	}

	responseMsg, responseData, err := handler.HandleDIMSE(ctx, msg, data, meta)
	if err != nil {
		return err
	}
	if responseMsg == nil {
		return nil
	}
	return responder.SendResponse(responseMsg, responseData, meta.TransferSyntaxUID)
}

func (r *Registry) lookup(ctx context.Context, msg *types.Message, meta interfaces.MessageContext) (interfaces.ServiceHandler, bool) {
	handler, ok := r.handlers[msg.CommandField]
	if !ok {
		r.logger.WarnContext(ctx, "No handler registered for DIMSE command",
			"command", dimse.CommandName(msg.CommandField),
			"message_id", msg.MessageID,
			"calling_aet", meta.CallingAETitle)
		return nil, false
	}
	r.logger.DebugContext(ctx, "Routing DIMSE message",
		"command", dimse.CommandName(msg.CommandField),
		"message_id", msg.MessageID)
	return handler, true
}

// unsupported is the answer to a command nobody handles. C-CANCEL is
// never answered.
func (r *Registry) unsupported(msg *types.Message) *types.Message {
	if msg.CommandField == types.CCancelRQ {
		return nil
	}
	return CreateErrorResponse(msg, types.StatusUnrecognizedOperation)
}

// HasHandler reports whether commandField has a registered handler.
func (r *Registry) HasHandler(commandField uint16) bool {
	_, ok := r.handlers[commandField]
	return ok
}

// RegisteredCommands returns the handled command fields in ascending order.
func (r *Registry) RegisteredCommands() []uint16 {
	commands := make([]uint16, 0, len(r.handlers))
	for cmd := range r.handlers {
		commands = append(commands, cmd)
	}
	slices.Sort(commands)
	return commands
}

// CreateErrorResponse builds the dataset-less response to req carrying
// status.
func CreateErrorResponse(req *types.Message, status uint16) *types.Message {
	return &types.Message{
		CommandField:              types.ResponseCommandFor(req.CommandField),
		MessageIDBeingRespondedTo: req.MessageID,
		AffectedSOPClassUID:       req.AffectedSOPClassUID,
		AffectedSOPInstanceUID:    req.AffectedSOPInstanceUID,
		CommandDataSetType:        types.CommandDataSetTypeNone,
		Status:                    status,
	}
}
