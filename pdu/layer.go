package pdu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/caio-sobreiro/dicomcore/dimse"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/interfaces"
	"github.com/caio-sobreiro/dicomcore/types"
)

// DIMSEHandler receives the PDVs of an established association.
type DIMSEHandler = interfaces.DIMSEHandler

// PresentationContext represents a negotiated presentation context
type PresentationContext = types.PresentationContext

// Layer handles the DICOM Upper Layer Protocol on the acceptor side
type Layer struct {
	conn           net.Conn
	associationCtx *AssociationContext
	dimseHandler   DIMSEHandler
	serverAETitle  string
	acceptor       *Acceptor
	logger         *slog.Logger
	writeMu        sync.Mutex
}

// AssociationContext holds association state
type AssociationContext struct {
	CalledAETitle    string
	CallingAETitle   string
	MaxPDULength     uint32 // maximum PDU length announced by the peer, 0 for unlimited
	PresentationCtxs map[byte]*PresentationContext
}

// Acceptor decides which presentation contexts are accepted.
type Acceptor struct {
	// AbstractSyntaxes lists the non-storage SOP classes served.
	AbstractSyntaxes []string
	// AcceptStorage accepts every registered storage SOP class.
	AcceptStorage bool
	// TransferSyntaxes accepted for every abstract syntax.
	TransferSyntaxes []string
	// StorageTransferSyntaxes are additionally accepted for storage classes,
	// whose datasets are kept as received.
	StorageTransferSyntaxes []string
	// CheckCalledAETitle rejects associations whose called AE title is not
	// the server's own.
	CheckCalledAETitle bool
	// MaxPDULength announced to the peer.
	MaxPDULength uint32
}

// DefaultAcceptor serves verification, storage and storage commitment.
func DefaultAcceptor() *Acceptor {
	return &Acceptor{
		AbstractSyntaxes: []string{
			types.VerificationSOPClass,
			types.StorageCommitmentPushModelSOPClass,
		},
		AcceptStorage:           true,
		TransferSyntaxes:        types.UncompressedTransferSyntaxes(),
		StorageTransferSyntaxes: types.GetCommonTransferSyntaxes(),
		MaxPDULength:            types.DefaultMaxPDULength,
	}
}

func (a *Acceptor) supportsAbstractSyntax(uid string) bool {
	if a.AcceptStorage && types.IsStorageSOPClass(uid) {
		return true
	}
	for _, s := range a.AbstractSyntaxes {
		if s == uid {
			return true
		}
	}
	return false
}

func (a *Acceptor) supportsTransferSyntax(abstractSyntax, uid string) bool {
	for _, ts := range a.TransferSyntaxes {
		if ts == uid {
			return true
		}
	}
	if types.IsStorageSOPClass(abstractSyntax) {
		for _, ts := range a.StorageTransferSyntaxes {
			if ts == uid {
				return true
			}
		}
	}
	return false
}

// negotiate answers one proposed context. The first proposed transfer
// syntax the acceptor supports wins.
func (a *Acceptor) negotiate(pc ProposedContext) *PresentationContext {
	result := &PresentationContext{
		ID:             pc.ID,
		Result:         types.ResultAbstractSyntaxNotSupported,
		AbstractSyntax: pc.AbstractSyntax,
		Role:           pc.Role,
	}
	if !a.supportsAbstractSyntax(pc.AbstractSyntax) {
		return result
	}

	result.Result = types.ResultTransferSyntaxesNotSupported
	for _, ts := range pc.TransferSyntaxes {
		if a.supportsTransferSyntax(pc.AbstractSyntax, ts) {
			result.Result = types.ResultAcceptance
			result.TransferSyntax = ts
			break
		}
	}
	return result
}

// NewLayer creates a new PDU layer handler. A nil acceptor means
// DefaultAcceptor.
func NewLayer(conn net.Conn, dimseHandler DIMSEHandler, serverAETitle string, logger *slog.Logger, acceptor *Acceptor) *Layer {
	if logger == nil {
		logger = slog.Default()
	}
	if acceptor == nil {
		acceptor = DefaultAcceptor()
	}
	return &Layer{
		conn:          conn,
		dimseHandler:  dimseHandler,
		serverAETitle: serverAETitle,
		acceptor:      acceptor,
		logger:        logger,
	}
}

// HandleConnection manages the complete DICOM connection lifecycle
func (p *Layer) HandleConnection() error {
	defer p.conn.Close()
	p.logger.Info("New DICOM connection", "remote_addr", p.conn.RemoteAddr())

	if err := p.handleAssociationPhase(); err != nil {
		return fmt.Errorf("association failed: %w", err)
	}

	for {
		pdu, err := ReadPDU(p.conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				p.logger.Info("Connection closed by client", "remote_addr", p.conn.RemoteAddr())
				return nil
			}
			p.logger.Warn("Error reading PDU", "error", err, "remote_addr", p.conn.RemoteAddr())
			return nil
		}

		if err := p.handlePDU(pdu); err != nil {
			if err == io.EOF {
				return nil
			}
			p.abort(types.AbortSourceServiceProvider, types.AbortReasonUnspecified)
			return fmt.Errorf("error handling PDU: %w", err)
		}
	}
}

// handlePDU routes PDUs to appropriate handlers
func (p *Layer) handlePDU(pdu *PDU) error {
	p.logger.Debug("Received PDU", "type", fmt.Sprintf("0x%02x", pdu.Type), "length", pdu.Length)

	switch pdu.Type {
	case TypePDataTF:
		return p.handlePDataTF(pdu)
	case TypeReleaseRQ:
		return p.handleReleaseRequest()
	case TypeReleaseRP:
		p.logger.Debug("Received A-RELEASE-RP")
		return io.EOF
	case TypeAbort:
		p.logger.Info("Received A-ABORT", "calling_ae", p.CallingAETitle())
		return io.EOF
	case TypeAssociateRQ:
		return dcmerr.NewPDUError(pdu.Type, "A-ASSOCIATE-RQ on an established association")
	default:
		p.logger.Warn("Unhandled PDU type", "type", fmt.Sprintf("0x%02x", pdu.Type))
		return nil
	}
}

// handleAssociationPhase handles the association establishment
func (p *Layer) handleAssociationPhase() error {
	pdu, err := ReadPDU(p.conn)
	if err != nil {
		return fmt.Errorf("failed to read association request: %w", err)
	}

	if pdu.Type != TypeAssociateRQ {
		return fmt.Errorf("expected A-ASSOCIATE-RQ, got PDU type: 0x%02x", pdu.Type)
	}

	return p.handleAssociateRequest(pdu)
}

// handleAssociateRequest processes A-ASSOCIATE-RQ and answers with
// A-ASSOCIATE-AC or A-ASSOCIATE-RJ
func (p *Layer) handleAssociateRequest(pdu *PDU) error {
	p.logger.Debug("Processing A-ASSOCIATE-RQ", "pdu_length", len(pdu.Data))

	rq, err := DecodeAssociateRQ(pdu.Data)
	if err != nil {
		p.reject(RejectPermanent, dcmerr.RejectSourceServiceUser, dcmerr.RejectReasonNoReasonGiven)
		return err
	}

	p.logger.Info("Extracted AE titles from association request",
		"calling_ae", rq.CallingAETitle,
		"called_ae", rq.CalledAETitle)

	if rq.ApplicationContext != "" && rq.ApplicationContext != types.ApplicationContextName {
		p.reject(RejectPermanent, dcmerr.RejectSourceServiceUser, dcmerr.RejectReasonApplicationContextNotSupported)
		return dcmerr.NewAssociationError(dcmerr.RejectSourceServiceUser, dcmerr.RejectReasonApplicationContextNotSupported,
			fmt.Sprintf("unsupported application context %s", rq.ApplicationContext))
	}
	if p.acceptor.CheckCalledAETitle && rq.CalledAETitle != p.serverAETitle {
		p.reject(RejectPermanent, dcmerr.RejectSourceServiceUser, dcmerr.RejectReasonCalledAETitleNotRecognized)
		return dcmerr.NewAssociationError(dcmerr.RejectSourceServiceUser, dcmerr.RejectReasonCalledAETitleNotRecognized,
			fmt.Sprintf("called AE title %q is not %q", rq.CalledAETitle, p.serverAETitle))
	}

	p.associationCtx = &AssociationContext{
		CalledAETitle:    rq.CalledAETitle,
		CallingAETitle:   rq.CallingAETitle,
		MaxPDULength:     rq.UserInfo.MaxPDULength,
		PresentationCtxs: make(map[byte]*PresentationContext),
	}

	accepted := 0
	for _, proposed := range rq.PresentationContexts {
		ctx := p.acceptor.negotiate(proposed)
		p.associationCtx.PresentationCtxs[ctx.ID] = ctx
		if ctx.Accepted() {
			accepted++
		}
		p.logger.Debug("Presentation context negotiation result",
			"context_id", ctx.ID,
			"abstract_syntax", ctx.AbstractSyntax,
			"proposed_transfer_syntaxes", proposed.TransferSyntaxes,
			"selected_transfer_syntax", ctx.TransferSyntax,
			"role", ctx.Role.String(),
			"result", ctx.Result)
	}

	if len(rq.PresentationContexts) == 0 {
		p.logger.Warn("No presentation contexts found in association request")
	} else {
		p.logger.Info("Negotiated presentation contexts",
			"proposed", len(rq.PresentationContexts),
			"accepted", accepted,
			"max_pdu_length", p.associationCtx.MaxPDULength)
	}

	if err := WritePDU(p.conn, TypeAssociateAC, p.createAssociateAccept().Encode()); err != nil {
		return fmt.Errorf("failed to send A-ASSOCIATE-AC: %w", err)
	}

	p.logger.Debug("Sent A-ASSOCIATE-AC")
	return nil
}

// createAssociateAccept builds the A-ASSOCIATE-AC answering the request
func (p *Layer) createAssociateAccept() *AssociateAC {
	ac := &AssociateAC{
		CalledAETitle:  p.associationCtx.CalledAETitle,
		CallingAETitle: p.associationCtx.CallingAETitle,
		UserInfo: UserInformation{
			MaxPDULength: p.acceptor.MaxPDULength,
			Roles:        make(map[string]types.Role),
		},
	}

	for _, id := range p.contextIDs() {
		ctx := p.associationCtx.PresentationCtxs[id]

		// WORKAROUND: Some DICOM implementations (e.g., DCMTK/Orthanc) incorrectly reject
		// A-ASSOCIATE-AC PDUs that include rejected presentation contexts, even though
		// DICOM PS3.8 Section 9.3.3.3 requires including all contexts from the RQ.
		// Skip rejected contexts to maintain compatibility.
		if !ctx.Accepted() {
			p.logger.Debug("Skipping rejected context (compatibility workaround)",
				"context_id", ctx.ID,
				"result", ctx.Result)
			continue
		}

		ac.PresentationContexts = append(ac.PresentationContexts, *ctx)
		if ctx.Role != types.RoleDefault {
			ac.UserInfo.Roles[ctx.AbstractSyntax] = ctx.Role
		}
	}
	return ac
}

func (p *Layer) contextIDs() []byte {
	ids := make([]byte, 0, len(p.associationCtx.PresentationCtxs))
	for id := range p.associationCtx.PresentationCtxs {
		ids = append(ids, id)
	}
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if ids[i] > ids[j] {
				ids[i], ids[j] = ids[j], ids[i]
			}
		}
	}
	return ids
}

func (p *Layer) reject(result byte, source dcmerr.AssociationRejectSource, reason dcmerr.AssociationRejectReason) {
	rj := &AssociateRJ{Result: result, Source: source, Reason: reason}
	if err := WritePDU(p.conn, TypeAssociateRJ, rj.Encode()); err != nil {
		p.logger.Warn("Failed to send A-ASSOCIATE-RJ", "error", err)
		return
	}
	p.logger.Info("Sent A-ASSOCIATE-RJ", "source", source.String(), "reason", reason.String())
}

func (p *Layer) abort(source, reason byte) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if err := WritePDU(p.conn, TypeAbort, EncodeAbort(source, reason)); err != nil {
		p.logger.Debug("Failed to send A-ABORT", "error", err)
	}
}

// handlePDataTF forwards every PDV of a P-DATA-TF to the DIMSE layer
func (p *Layer) handlePDataTF(pdu *PDU) error {
	data := pdu.Data
	for offset := 0; offset < len(data); {
		if offset+6 > len(data) {
			return dcmerr.NewPDUError(TypePDataTF, "P-DATA-TF too short")
		}
		pdvLength := int(binary.BigEndian.Uint32(data[offset : offset+4]))
		end := offset + 4 + pdvLength
		if pdvLength < 2 || end > len(data) {
			return dcmerr.NewPDUError(TypePDataTF, "incomplete PDV data")
		}

		presContextID := data[offset+4]
		msgCtrlHeader := data[offset+5]
		if _, ok := p.associationCtx.PresentationCtxs[presContextID]; !ok {
			return dcmerr.NewPDUError(TypePDataTF, fmt.Sprintf("PDV on unknown presentation context %d", presContextID))
		}

		p.logger.Debug("Processing DIMSE message",
			"presentation_context_id", presContextID,
			"message_control_header", fmt.Sprintf("0x%02x", msgCtrlHeader))

		if err := p.dimseHandler.HandleDIMSEMessage(presContextID, msgCtrlHeader, data[offset+6:end], p); err != nil {
			return err
		}
		offset = end
	}
	return nil
}

// handleReleaseRequest processes A-RELEASE-RQ and sends A-RELEASE-RP
func (p *Layer) handleReleaseRequest() error {
	p.logger.Debug("Processing A-RELEASE-RQ")

	p.writeMu.Lock()
	err := WritePDU(p.conn, TypeReleaseRP, EncodeReleaseRP())
	p.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to send A-RELEASE-RP: %w", err)
	}

	p.logger.Debug("Sent A-RELEASE-RP")
	return io.EOF
}

// SendDIMSEResponse sends a DIMSE response via P-DATA-TF
func (p *Layer) SendDIMSEResponse(presContextID byte, commandData []byte) error {
	return p.SendDIMSEResponseWithDataset(presContextID, commandData, nil)
}

// SendDIMSEResponseWithDataset sends a DIMSE response with optional
// dataset, fragmented to the maximum PDU length of the peer.
func (p *Layer) SendDIMSEResponseWithDataset(presContextID byte, commandData []byte, datasetData []byte) error {
	var maxPDU uint32
	if p.associationCtx != nil {
		maxPDU = p.associationCtx.MaxPDULength
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if err := dimse.SendDIMSEMessage(p.conn, presContextID, maxPDU, commandData, datasetData); err != nil {
		return fmt.Errorf("failed to send DIMSE response: %w", err)
	}
	return nil
}

// GetTransferSyntax returns the negotiated transfer syntax for the given presentation context.
func (p *Layer) GetTransferSyntax(presContextID byte) (string, error) {
	if p.associationCtx == nil {
		return "", fmt.Errorf("association context not initialized")
	}

	ctx, ok := p.associationCtx.PresentationCtxs[presContextID]
	if !ok {
		return "", fmt.Errorf("presentation context %d not found", presContextID)
	}

	if ctx.TransferSyntax == "" {
		return "", fmt.Errorf("no transfer syntax negotiated for presentation context %d", presContextID)
	}

	return ctx.TransferSyntax, nil
}

// CallingAETitle is the AE title of the requestor.
func (p *Layer) CallingAETitle() string {
	if p.associationCtx == nil {
		return ""
	}
	return p.associationCtx.CallingAETitle
}

// CalledAETitle is the AE title the requestor addressed.
func (p *Layer) CalledAETitle() string {
	if p.associationCtx == nil {
		return ""
	}
	return p.associationCtx.CalledAETitle
}

// AbstractSyntax returns the SOP class of a presentation context.
func (p *Layer) AbstractSyntax(presContextID byte) string {
	if p.associationCtx == nil {
		return ""
	}
	if ctx, ok := p.associationCtx.PresentationCtxs[presContextID]; ok {
		return ctx.AbstractSyntax
	}
	return ""
}

// RemoteAddr is the network address of the requestor.
func (p *Layer) RemoteAddr() string {
	if addr := p.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
