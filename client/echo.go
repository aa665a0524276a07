package client

import (
	"context"

	"github.com/caio-sobreiro/dicomcore/dimse"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/types"
)

// Echo performs a C-ECHO. It succeeds iff the remote answers with status
// 0x0000.
func (c *ControlConnection) Echo(ctx context.Context) error {
	contextID, err := c.contextFor(ctx, types.VerificationSOPClass, dcmerr.KindNoPresentationContext)
	if err != nil {
		return err
	}

	a := c.association
	messageID := a.NextMessageID()
	command := &types.Message{
		CommandField:        dimse.CEchoRQ,
		MessageID:           messageID,
		AffectedSOPClassUID: types.VerificationSOPClass,
	}
	if err := a.send(ctx, "C-ECHO", contextID, command, nil); err != nil {
		return err
	}

	env, err := a.receive(ctx, "C-ECHO")
	if err != nil {
		return err
	}
	msg := env.Command
	if msg.CommandField != dimse.CEchoRSP || msg.MessageIDBeingRespondedTo != messageID {
		return dcmerr.New(dcmerr.KindNetworkProtocol, "unexpected %s in answer to C-ECHO from AET %q",
			dimse.CommandName(msg.CommandField), a.RemoteAETitle())
	}
	if msg.Status != types.StatusSuccess {
		return a.statusError(dcmerr.KindNetworkProtocol, "C-ECHO", msg.Status, "")
	}
	return nil
}
