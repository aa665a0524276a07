package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/caio-sobreiro/dicomcore/dimse"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/pdu"
	"github.com/caio-sobreiro/dicomcore/types"
)

// proposal is a presentation context waiting to be negotiated.
type proposal struct {
	abstractSyntax   string
	transferSyntaxes []string
	role             types.Role
}

// Association is the requestor side of a DICOM association. Presentation
// contexts are proposed first, then Open negotiates them all at once.
// Proposing a context on an open association closes it.
//
// An Association serves one DIMSE exchange at a time. Only Cancel may be
// called while another exchange is in progress.
type Association struct {
	proposed []proposal

	params   Parameters
	conn     net.Conn
	open     bool
	accepted map[string]map[string]byte // SOP class -> transfer syntax -> context ID
	syntaxes map[byte]string            // context ID -> transfer syntax
	peerPDU  uint32
	nextID   uint16
	logger   *slog.Logger
	writeMu  sync.Mutex
}

// NewAssociation returns a closed association with nothing proposed.
func NewAssociation() *Association {
	return &Association{logger: slog.Default()}
}

// IsOpen reports whether the association is established.
func (a *Association) IsOpen() bool {
	return a.open
}

// RemainingPropositions is the number of contexts that can still be proposed.
func (a *Association) RemainingPropositions() int {
	return types.MaxPresentationContexts - len(a.proposed)
}

// ClearPresentationContexts closes the association and forgets the proposals.
func (a *Association) ClearPresentationContexts() {
	a.Close()
	a.proposed = a.proposed[:0]
}

// ProposePresentationContext adds a context for abstractSyntax offering
// transferSyntaxes in order. Context IDs follow proposal order: 1, 3, 5...
func (a *Association) ProposePresentationContext(abstractSyntax string, transferSyntaxes []string, role types.Role) error {
	if len(transferSyntaxes) == 0 {
		return dcmerr.New(dcmerr.KindParameterOutOfRange, "no transfer syntax proposed for %s", abstractSyntax)
	}
	if a.RemainingPropositions() <= 0 {
		return dcmerr.New(dcmerr.KindParameterOutOfRange,
			"too many presentation contexts, at most %d can be proposed", types.MaxPresentationContexts)
	}
	if a.open {
		a.Close()
	}
	a.proposed = append(a.proposed, proposal{
		abstractSyntax:   abstractSyntax,
		transferSyntaxes: slices.Clone(transferSyntaxes),
		role:             role,
	})
	return nil
}

// ProposeGenericPresentationContext proposes abstractSyntax with the
// uncompressed transfer syntaxes and the default role.
func (a *Association) ProposeGenericPresentationContext(abstractSyntax string) error {
	return a.ProposePresentationContext(abstractSyntax, types.UncompressedTransferSyntaxes(), types.RoleDefault)
}

// Open negotiates the proposed contexts with the remote modality. It is
// a no-op when the association is already open on the same endpoint.
func (a *Association) Open(ctx context.Context, params Parameters) error {
	if a.open {
		if a.params.sameEndpoint(params) {
			return nil
		}
		a.Close()
	}
	if len(a.proposed) == 0 {
		return dcmerr.New(dcmerr.KindBadSequenceOfCalls, "no presentation context was proposed")
	}

	logger := params.logger().With("remote_aet", params.Remote.AETitle, "remote_addr", params.Remote.Address())
	logger.Debug("Opening DICOM association",
		"local_aet", params.LocalAETitle,
		"proposed_contexts", len(a.proposed),
		"timeout", params.Timeout)

	conn, err := params.dial(ctx)
	if err != nil {
		return dcmerr.Wrap(dcmerr.KindNetworkProtocol, err, "cannot connect to AET %q", params.Remote.AETitle).
			WithDetail(params.Remote.Address())
	}

	accepted, syntaxes, peerPDU, err := a.negotiate(ctx, conn, params)
	if err != nil {
		conn.Close()
		return err
	}

	a.params = params
	a.conn = conn
	a.accepted = accepted
	a.syntaxes = syntaxes
	a.peerPDU = peerPDU
	a.nextID = 1
	a.logger = logger
	a.open = true

	if len(accepted) == 0 {
		a.Close()
		return dcmerr.New(dcmerr.KindNoPresentationContext,
			"unable to negotiate a presentation context with AET %q", params.Remote.AETitle)
	}

	logger.Info("DICOM association established", "accepted_contexts", len(syntaxes), "peer_max_pdu", peerPDU)
	return nil
}

func (a *Association) negotiate(ctx context.Context, conn net.Conn, params Parameters) (map[string]map[string]byte, map[byte]string, uint32, error) {
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Unix(1, 0)) })
	defer stop()
	if err := conn.SetDeadline(time.Now().Add(params.acseTimeout())); err != nil {
		return nil, nil, 0, dcmerr.NewNetworkError("set ACSE deadline", err)
	}

	rq := &pdu.AssociateRQ{
		CalledAETitle:  params.Remote.AETitle,
		CallingAETitle: params.LocalAETitle,
		UserInfo: pdu.UserInformation{
			MaxPDULength: params.maxPDULength(),
			Roles:        make(map[string]types.Role),
		},
	}
	for i, p := range a.proposed {
		rq.PresentationContexts = append(rq.PresentationContexts, pdu.ProposedContext{
			ID:               byte(2*i + 1),
			AbstractSyntax:   p.abstractSyntax,
			TransferSyntaxes: p.transferSyntaxes,
			Role:             p.role,
		})
		if p.role != types.RoleDefault {
			rq.UserInfo.Roles[p.abstractSyntax] = p.role
		}
	}

	if err := pdu.WritePDU(conn, pdu.TypeAssociateRQ, rq.Encode()); err != nil {
		return nil, nil, 0, a.wrapIO(ctx, params, "A-ASSOCIATE-RQ", err)
	}
	reply, err := pdu.ReadPDU(conn)
	if err != nil {
		return nil, nil, 0, a.wrapIO(ctx, params, "A-ASSOCIATE-RQ", err)
	}

	switch reply.Type {
	case pdu.TypeAssociateAC:
	case pdu.TypeAssociateRJ:
		rj, err := pdu.DecodeAssociateRJ(reply.Data)
		if err != nil {
			return nil, nil, 0, dcmerr.Wrap(dcmerr.KindNetworkProtocol, err, "malformed A-ASSOCIATE-RJ from AET %q", params.Remote.AETitle)
		}
		return nil, nil, 0, dcmerr.Wrap(dcmerr.KindNetworkProtocol, rj.Err(), "association rejected by AET %q", params.Remote.AETitle)
	case pdu.TypeAbort:
		return nil, nil, 0, dcmerr.New(dcmerr.KindNetworkProtocol, "association aborted by AET %q", params.Remote.AETitle)
	default:
		return nil, nil, 0, dcmerr.Wrap(dcmerr.KindNetworkProtocol,
			dcmerr.NewPDUError(reply.Type, "expected A-ASSOCIATE-AC"), "association with AET %q", params.Remote.AETitle)
	}

	ac, err := pdu.DecodeAssociateAC(reply.Data)
	if err != nil {
		return nil, nil, 0, dcmerr.Wrap(dcmerr.KindNetworkProtocol, err, "malformed A-ASSOCIATE-AC from AET %q", params.Remote.AETitle)
	}

	accepted := make(map[string]map[string]byte)
	syntaxes := make(map[byte]string)
	for _, pc := range ac.PresentationContexts {
		index := int(pc.ID-1) / 2
		if pc.ID%2 == 0 || index >= len(a.proposed) {
			params.logger().Warn("Ignoring unknown presentation context in A-ASSOCIATE-AC", "context_id", pc.ID)
			continue
		}
		if !pc.Accepted() {
			continue
		}
		sopClass := a.proposed[index].abstractSyntax
		if accepted[sopClass] == nil {
			accepted[sopClass] = make(map[string]byte)
		}
		accepted[sopClass][pc.TransferSyntax] = pc.ID
		syntaxes[pc.ID] = pc.TransferSyntax
	}

	if err := conn.SetDeadline(time.Time{}); err != nil {
		return nil, nil, 0, dcmerr.NewNetworkError("clear ACSE deadline", err)
	}
	return accepted, syntaxes, ac.UserInfo.MaxPDULength, nil
}

// Close releases the association. Closing a closed association is a no-op.
func (a *Association) Close() error {
	if !a.open {
		return nil
	}
	a.open = false
	defer a.reset()

	a.conn.SetDeadline(time.Now().Add(a.params.acseTimeout()))
	a.writeMu.Lock()
	err := pdu.WritePDU(a.conn, pdu.TypeReleaseRQ, pdu.EncodeReleaseRQ())
	a.writeMu.Unlock()
	if err == nil {
		var reply *pdu.PDU
		reply, err = pdu.ReadPDU(a.conn)
		if err == nil && reply.Type != pdu.TypeReleaseRP {
			err = dcmerr.NewPDUError(reply.Type, "expected A-RELEASE-RP")
		}
	}
	if err != nil {
		a.logger.Warn("DICOM association was not released cleanly", "error", err)
	} else {
		a.logger.Debug("DICOM association released")
	}
	return a.conn.Close()
}

// Abort sends an A-ABORT and drops the connection.
func (a *Association) Abort() {
	if !a.open {
		return
	}
	a.open = false
	a.writeMu.Lock()
	if err := pdu.WritePDU(a.conn, pdu.TypeAbort, pdu.EncodeAbort(0, 0)); err != nil {
		a.logger.Debug("Failed to send A-ABORT", "error", err)
	}
	a.writeMu.Unlock()
	a.conn.Close()
	a.reset()
}

func (a *Association) reset() {
	a.accepted = nil
	a.syntaxes = nil
	a.peerPDU = 0
}

// LookupAcceptedPresentationContext returns the accepted transfer syntaxes
// of sopClass with their context IDs.
func (a *Association) LookupAcceptedPresentationContext(sopClass string) (map[string]byte, bool) {
	if !a.open {
		return nil, false
	}
	contexts, ok := a.accepted[sopClass]
	if !ok {
		return nil, false
	}
	out := make(map[string]byte, len(contexts))
	for ts, id := range contexts {
		out[ts] = id
	}
	return out, true
}

// acceptedContext returns the lowest accepted context ID of sopClass.
func (a *Association) acceptedContext(sopClass string) (byte, bool) {
	contexts, ok := a.LookupAcceptedPresentationContext(sopClass)
	if !ok {
		return 0, false
	}
	var best byte
	for _, id := range contexts {
		if best == 0 || id < best {
			best = id
		}
	}
	return best, true
}

// TransferSyntax returns the syntax negotiated for a context ID.
func (a *Association) TransferSyntax(contextID byte) string {
	return a.syntaxes[contextID]
}

// NextMessageID allocates a message ID. IDs increase monotonically and
// skip zero on wrap-around.
func (a *Association) NextMessageID() uint16 {
	id := a.nextID
	a.nextID++
	if a.nextID == 0 {
		a.nextID = 1
	}
	return id
}

// RemoteAETitle is the AE title of the modality the association targets.
func (a *Association) RemoteAETitle() string {
	return a.params.Remote.AETitle
}

// armDeadline bounds the next exchange by the association timeout and
// interrupts it when ctx is done. The returned func must be called once
// the exchange is over.
func (a *Association) armDeadline(ctx context.Context) func() bool {
	if a.params.HasTimeout() {
		a.conn.SetDeadline(time.Now().Add(a.params.Timeout))
	} else {
		a.conn.SetDeadline(time.Time{})
	}
	conn := a.conn
	return context.AfterFunc(ctx, func() { conn.SetDeadline(time.Unix(1, 0)) })
}

// send writes a command and its optional dataset on a context.
func (a *Association) send(ctx context.Context, operation string, contextID byte, cmd *types.Message, dataset []byte) error {
	if !a.open {
		return dcmerr.New(dcmerr.KindBadSequenceOfCalls, "%s: association with AET %q is not open", operation, a.params.Remote.AETitle)
	}
	if dataset == nil {
		cmd.CommandDataSetType = types.CommandDataSetTypeNone
	} else {
		cmd.CommandDataSetType = 0x0000
	}
	data, err := dimse.EncodeCommand(cmd)
	if err != nil {
		return err
	}

	stop := a.armDeadline(ctx)
	defer stop()

	a.writeMu.Lock()
	err = dimse.SendDIMSEMessage(a.conn, contextID, a.peerPDU, data, dataset)
	a.writeMu.Unlock()
	if err != nil {
		return a.fail(ctx, operation, err)
	}
	a.logger.Debug("Sent DIMSE request",
		"operation", operation,
		"message_id", cmd.MessageID,
		"context_id", contextID,
		"dataset_size", len(dataset))
	return nil
}

// receive reads the next DIMSE message.
func (a *Association) receive(ctx context.Context, operation string) (*dimse.Envelope, error) {
	if !a.open {
		return nil, dcmerr.New(dcmerr.KindBadSequenceOfCalls, "%s: association with AET %q is not open", operation, a.params.Remote.AETitle)
	}
	stop := a.armDeadline(ctx)
	defer stop()

	env, err := dimse.ReceiveMessage(a.conn)
	if err != nil {
		return nil, a.fail(ctx, operation, err)
	}
	return env, nil
}

// fail drops a broken association and converts the I/O error.
func (a *Association) fail(ctx context.Context, operation string, err error) error {
	wrapped := a.wrapIO(ctx, a.params, operation, err)
	a.open = false
	a.conn.Close()
	a.reset()
	return wrapped
}

func (a *Association) wrapIO(ctx context.Context, params Parameters, operation string, err error) error {
	aet := params.Remote.AETitle
	if ctx.Err() != nil {
		return dcmerr.Wrap(dcmerr.KindNetworkProtocol, ctx.Err(), "%s to AET %q was interrupted", operation, aet)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return dcmerr.Wrap(dcmerr.KindTimeout, err, "%s to AET %q", operation, aet)
	}
	var abort *dcmerr.AbortError
	if errors.As(err, &abort) {
		return dcmerr.Wrap(dcmerr.KindNetworkProtocol, err, "%s: association aborted by AET %q", operation, aet)
	}
	return dcmerr.Wrap(dcmerr.KindNetworkProtocol, err, "%s to AET %q", operation, aet)
}

// statusError reports a DIMSE status that ends an operation in failure.
func (a *Association) statusError(kind dcmerr.Kind, operation string, status uint16, hint string) error {
	return dcmerr.Wrap(kind, &dcmerr.DIMSEError{
		Operation: operation,
		Status:    status,
		RemoteAET: a.params.Remote.AETitle,
	}, "%s", hint).WithDetail(fmt.Sprintf("%04X", status))
}
