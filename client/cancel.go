package client

import (
	"context"

	"github.com/caio-sobreiro/dicomcore/dimse"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/types"
)

// Cancel sends a C-CANCEL-RQ for a pending C-FIND, C-MOVE or C-GET.
// messageID must match the MessageID of the operation being canceled.
// C-CANCEL has no response: the canceled operation ends with status
// 0xFE00. Cancel is the one call allowed while another exchange is in
// progress on the association.
func (c *ControlConnection) Cancel(ctx context.Context, messageID uint16, sopClass string) error {
	if messageID == 0 {
		return dcmerr.New(dcmerr.KindParameterOutOfRange, "messageID must be non-zero for C-CANCEL")
	}
	if sopClass == "" {
		return dcmerr.New(dcmerr.KindParameterOutOfRange, "sopClass must be provided for C-CANCEL")
	}
	contextID, ok := c.association.acceptedContext(sopClass)
	if !ok {
		return dcmerr.New(dcmerr.KindNoPresentationContext, "no accepted presentation context for %s", sopClass)
	}
	return c.cancel(ctx, contextID, messageID)
}

func (c *ControlConnection) cancel(ctx context.Context, contextID byte, messageID uint16) error {
	command := &types.Message{
		CommandField:              dimse.CCancelRQ,
		MessageIDBeingRespondedTo: messageID,
	}
	if err := c.association.send(ctx, "C-CANCEL", contextID, command, nil); err != nil {
		return err
	}
	c.association.logger.Debug("C-CANCEL sent", "message_id", messageID, "context_id", contextID)
	return nil
}
