package client

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/caio-sobreiro/dicomcore/dicom"
	"github.com/caio-sobreiro/dicomcore/dimse"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/transcoder"
	"github.com/caio-sobreiro/dicomcore/types"
)

// MoveOriginator identifies the C-MOVE a C-STORE is a sub-operation of.
type MoveOriginator struct {
	AETitle   string
	MessageID uint16
}

// StoreResult describes a stored instance.
type StoreResult struct {
	SOPClassUID    string
	SOPInstanceUID string
	TransferSyntax string
	Status         uint16
	Transcoded     bool
}

type classSyntax struct {
	sopClass string
	syntax   string
}

// StoreConnection sends instances to a remote modality over one
// association, renegotiating it when an instance needs a (SOP class,
// transfer syntax) pair the current association lacks. Pairs the remote
// already rejected are remembered so that renegotiation never loops.
//
// A StoreConnection is safe for concurrent use; stores are serialized.
type StoreConnection struct {
	mu          sync.Mutex
	params      Parameters
	association *Association

	// registered keeps every class seen so far with its syntaxes, in
	// registration order so that proposals are deterministic.
	registered      map[string][]string
	registeredOrder []string

	// proposedOriginal holds the pairs proposed as a single-syntax
	// context on the current association.
	proposedOriginal map[classSyntax]bool

	proposeCommonClasses bool
	proposeUncompressed  bool
}

// NewStoreConnection returns a store connection that proposes the common
// storage classes and the uncompressed syntaxes.
func NewStoreConnection(params Parameters) *StoreConnection {
	return &StoreConnection{
		params:               params,
		association:          NewAssociation(),
		registered:           make(map[string][]string),
		proposedOriginal:     make(map[classSyntax]bool),
		proposeCommonClasses: true,
		proposeUncompressed:  true,
	}
}

// SetCommonClassesProposed controls whether the common storage classes are
// proposed, as room allows, next to the classes actually needed.
func (c *StoreConnection) SetCommonClassesProposed(proposed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.proposeCommonClasses = proposed
}

// SetUncompressedSyntaxesProposed controls whether every proposed class
// also offers the uncompressed syntaxes.
func (c *StoreConnection) SetUncompressedSyntaxesProposed(proposed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.proposeUncompressed = proposed
}

// RegisterStorageClass makes the next negotiations propose sopClass with syntax.
func (c *StoreConnection) RegisterStorageClass(sopClass, syntax string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.register(sopClass, syntax)
}

func (c *StoreConnection) register(sopClass, syntax string) {
	syntaxes, ok := c.registered[sopClass]
	if !ok {
		c.registeredOrder = append(c.registeredOrder, sopClass)
	}
	if !slices.Contains(syntaxes, syntax) {
		c.registered[sopClass] = append(syntaxes, syntax)
	}
}

// Parameters returns the association parameters.
func (c *StoreConnection) Parameters() Parameters {
	return c.params
}

// Close releases the association, if open.
func (c *StoreConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.association.Close()
}

// proposeStorageClass proposes one context per source syntax, one for the
// preferred syntax, then one grouping the remaining uncompressed syntaxes.
// It proposes nothing and returns false when the groups do not all fit.
func (c *StoreConnection) proposeStorageClass(sopClass string, sourceSyntaxes []string, preferred string) bool {
	var groups [][]string
	for _, ts := range sourceSyntaxes {
		groups = append(groups, []string{ts})
	}
	if preferred != "" && !slices.Contains(sourceSyntaxes, preferred) {
		groups = append(groups, []string{preferred})
	}
	if c.proposeUncompressed {
		var group []string
		for _, ts := range types.UncompressedTransferSyntaxes() {
			if !slices.Contains(sourceSyntaxes, ts) && ts != preferred {
				group = append(group, ts)
			}
		}
		if len(group) > 0 {
			groups = append(groups, group)
		}
	}

	if c.association.RemainingPropositions() <= len(groups) {
		return false
	}
	for _, group := range groups {
		// Cannot fail: room was checked above.
		c.association.ProposePresentationContext(sopClass, group, types.RoleDefault)
		if len(group) == 1 {
			c.proposedOriginal[classSyntax{sopClass, group[0]}] = true
		}
	}
	return true
}

func (c *StoreConnection) lookupContext(sopClass, syntax string) (byte, bool) {
	if !c.association.IsOpen() {
		return 0, false
	}
	contexts, ok := c.association.LookupAcceptedPresentationContext(sopClass)
	if !ok {
		return 0, false
	}
	id, ok := contexts[syntax]
	return id, ok
}

// negotiate returns the context accepted for (sopClass, syntax), opening a
// new association when the current one lacks it. It returns false without
// renegotiating when the pair was already proposed on its own to the
// remote and rejected.
func (c *StoreConnection) negotiate(ctx context.Context, sopClass, syntax, preferred string) (byte, bool, error) {
	if id, ok := c.lookupContext(sopClass, syntax); ok {
		return id, true, nil
	}

	if c.association.IsOpen() {
		c.params.logger().Info("Re-negotiating DICOM association", "remote_aet", c.params.Remote.AETitle)
		if c.proposedOriginal[classSyntax{sopClass, syntax}] {
			c.params.logger().Info("The remote modality has already rejected this SOP class and transfer syntax, don't renegotiate",
				"sop_class", sopClass, "transfer_syntax", syntax)
			return 0, false, nil
		}
	}

	c.association.ClearPresentationContexts()
	clear(c.proposedOriginal)
	c.register(sopClass, syntax)

	if !c.proposeStorageClass(sopClass, c.registered[sopClass], preferred) {
		return 0, false, dcmerr.New(dcmerr.KindNotImplemented, "too many transfer syntaxes for SOP class UID %s", sopClass)
	}
	for _, other := range c.registeredOrder {
		if other != sopClass {
			c.proposeStorageClass(other, c.registered[other], preferred)
		}
	}
	if c.proposeCommonClasses {
		for _, common := range types.CommonStorageSOPClasses() {
			if _, seen := c.registered[common]; !seen && common != sopClass {
				c.proposeStorageClass(common, nil, preferred)
			}
		}
	}

	if err := c.association.Open(ctx, c.params); err != nil {
		return 0, false, err
	}
	id, ok := c.lookupContext(sopClass, syntax)
	return id, ok, nil
}

func (c *StoreConnection) preferredSyntax() string {
	if c.proposeUncompressed {
		return types.ExplicitVRLittleEndian
	}
	return ""
}

// Store sends inst as is.
func (c *StoreConnection) Store(ctx context.Context, inst *dicom.ParsedInstance, originator *MoveOriginator) (*StoreResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store(ctx, inst, originator)
}

// StoreBuffer parses a Part 10 file and sends it as is.
func (c *StoreConnection) StoreBuffer(ctx context.Context, data []byte, originator *MoveOriginator) (*StoreResult, error) {
	inst, err := dicom.ParseInstance(data)
	if err != nil {
		return nil, err
	}
	return c.Store(ctx, inst, originator)
}

func lookupIdentifiers(inst *dicom.ParsedInstance, aet string) (string, string, error) {
	sopClass := inst.SOPClassUID()
	sopInstance := inst.SOPInstanceUID()
	if sopClass == "" || sopInstance == "" {
		return "", "", dcmerr.New(dcmerr.KindNoSopClassOrInstance,
			"unable to determine the SOP class/instance for C-STORE with AET %s", aet)
	}
	return sopClass, sopInstance, nil
}

func (c *StoreConnection) store(ctx context.Context, inst *dicom.ParsedInstance, originator *MoveOriginator) (*StoreResult, error) {
	aet := c.params.Remote.AETitle
	sopClass, sopInstance, err := lookupIdentifiers(inst, aet)
	if err != nil {
		return nil, err
	}
	syntax := inst.TransferSyntax()

	contextID, ok, err := c.negotiate(ctx, sopClass, syntax, c.preferredSyntax())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, dcmerr.New(dcmerr.KindNetworkProtocol,
			"no valid presentation context was negotiated for SOP class UID [%s] and transfer syntax [%s] while sending to modality [%s]",
			sopClass, syntax, aet)
	}

	dataset, err := inst.SerializeDataset()
	if err != nil {
		return nil, err
	}

	a := c.association
	messageID := a.NextMessageID()
	command := &types.Message{
		CommandField:           dimse.CStoreRQ,
		MessageID:              messageID,
		Priority:               types.PriorityMedium,
		AffectedSOPClassUID:    sopClass,
		AffectedSOPInstanceUID: sopInstance,
	}
	if originator != nil {
		command.MoveOriginatorAETitle = originator.AETitle
		id := originator.MessageID
		command.MoveOriginatorMessageID = &id
	}
	if err := a.send(ctx, "C-STORE", contextID, command, dataset); err != nil {
		return nil, err
	}

	env, err := a.receive(ctx, "C-STORE")
	if err != nil {
		return nil, err
	}
	msg := env.Command
	if msg.CommandField != dimse.CStoreRSP || msg.MessageIDBeingRespondedTo != messageID {
		return nil, dcmerr.New(dcmerr.KindNetworkProtocol, "unexpected %s in answer to C-STORE from AET %q",
			dimse.CommandName(msg.CommandField), aet)
	}
	if !types.IsStoreSuccess(msg.Status) {
		return nil, a.statusError(dcmerr.KindNetworkProtocol, "C-STORE", msg.Status, "")
	}
	if status := (&dcmerr.DIMSEError{Status: msg.Status}); status.IsWarning() {
		a.logger.Warn("C-STORE accepted with a warning",
			"sop_instance_uid", sopInstance,
			"remote_aet", aet,
			"status", msg.Status)
	}

	a.logger.Debug("C-STORE done",
		"sop_instance_uid", sopInstance,
		"transfer_syntax", syntax,
		"status", msg.Status)
	return &StoreResult{
		SOPClassUID:    sopClass,
		SOPInstanceUID: sopInstance,
		TransferSyntax: syntax,
		Status:         msg.Status,
	}, nil
}

// Transcode sends inst, converting it when the remote does not accept its
// transfer syntax. The preferred syntax is tried first, with lossy
// compression allowed. Otherwise the accepted uncompressed syntaxes are
// tried, which must keep the SOP Instance UID.
func (c *StoreConnection) Transcode(ctx context.Context, tc *transcoder.Transcoder, inst *dicom.ParsedInstance, preferred string, originator *MoveOriginator) (*StoreResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if preferred == "" {
		preferred = types.ExplicitVRLittleEndian
	}
	aet := c.params.Remote.AETitle
	sopClass, sourceUID, err := lookupIdentifiers(inst, aet)
	if err != nil {
		return nil, err
	}
	source := inst.TransferSyntax()

	// The outcome is ignored: transcoding is possible even when the
	// source syntax is rejected.
	if _, _, err := c.negotiate(ctx, sopClass, source, preferred); err != nil {
		return nil, err
	}
	var accepted []string
	if contexts, ok := c.association.LookupAcceptedPresentationContext(sopClass); ok {
		for ts := range contexts {
			accepted = append(accepted, ts)
		}
	}

	if slices.Contains(accepted, source) {
		return c.store(ctx, inst, originator)
	}

	var attempted []string
	var converted *transcoder.Result
	lossyAllowed := false
	if slices.Contains(accepted, preferred) {
		attempted = append(attempted, preferred)
		res, err := tc.Transcode(inst, transcoder.Request{
			Allowed:                []string{preferred},
			Preferred:              preferred,
			AllowNewSOPInstanceUID: true,
		})
		if err == nil {
			converted, lossyAllowed = res, true
		} else if dcmerr.KindOf(err) != dcmerr.KindNotImplemented {
			return nil, err
		}
	}
	if converted == nil {
		var targets []string
		for _, ts := range types.UncompressedTransferSyntaxes() {
			if slices.Contains(accepted, ts) {
				targets = append(targets, ts)
			}
		}
		attempted = append(attempted, targets...)
		if len(targets) > 0 {
			res, err := tc.Transcode(inst, transcoder.Request{Allowed: targets})
			if err == nil {
				converted = res
			} else if dcmerr.KindOf(err) != dcmerr.KindNotImplemented {
				return nil, err
			}
		}
	}

	if converted == nil {
		return nil, dcmerr.New(dcmerr.KindNotImplemented, "cannot transcode from %s to one of [ %s ]",
			source, strings.Join(attempted, " "))
	}

	if targetUID := converted.Instance.SOPInstanceUID(); targetUID != sourceUID {
		if !lossyAllowed {
			return nil, dcmerr.New(dcmerr.KindPlugin,
				"the transcoder has changed the SOP Instance UID while transcoding to an uncompressed transfer syntax")
		}
		c.params.logger().Warn("Lossy preferred transfer syntax changed the SOP Instance UID",
			"source_uid", sourceUID, "target_uid", targetUID, "transfer_syntax", preferred)
	}
	if !slices.Contains(accepted, converted.TransferSyntax) {
		return nil, dcmerr.New(dcmerr.KindInternalError, "transcoded to %s, which the remote did not accept", converted.TransferSyntax)
	}

	result, err := c.store(ctx, converted.Instance, originator)
	if err != nil {
		return nil, err
	}
	result.Transcoded = true
	return result, nil
}
