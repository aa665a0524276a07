// Package errors defines the failure taxonomy of the engine and the
// protocol-level error types raised by the network layers.
package errors

import (
	"errors"
	"fmt"
	"net"
)

// kinded is implemented by the protocol errors below, so that KindOf
// classifies them even when no *Error wraps them.
type kinded interface {
	Kind() Kind
}

// AssociationError is an A-ASSOCIATE-RJ, sent or received.
type AssociationError struct {
	Reason AssociationRejectReason
	Source AssociationRejectSource
	Msg    string
}

func (e *AssociationError) Error() string {
	return fmt.Sprintf("association rejected: %s (source: %s, reason: %s)",
		e.Msg, e.Source, e.Reason)
}

func (e *AssociationError) Kind() Kind { return KindNetworkProtocol }

// AssociationRejectReason is the reason field of an A-ASSOCIATE-RJ.
type AssociationRejectReason byte

const (
	RejectReasonUnknown                        AssociationRejectReason = 0x00
	RejectReasonNoReasonGiven                  AssociationRejectReason = 0x01
	RejectReasonApplicationContextNotSupported AssociationRejectReason = 0x02
	RejectReasonCallingAETitleNotRecognized    AssociationRejectReason = 0x03
	RejectReasonCalledAETitleNotRecognized     AssociationRejectReason = 0x07
)

var rejectReasonNames = map[AssociationRejectReason]string{
	RejectReasonNoReasonGiven:                  "no-reason-given",
	RejectReasonApplicationContextNotSupported: "application-context-not-supported",
	RejectReasonCallingAETitleNotRecognized:    "calling-ae-title-not-recognized",
	RejectReasonCalledAETitleNotRecognized:     "called-ae-title-not-recognized",
}

func (r AssociationRejectReason) String() string {
	if name, ok := rejectReasonNames[r]; ok {
		return name
	}
	return "unknown"
}

// AssociationRejectSource is the source field of an A-ASSOCIATE-RJ.
type AssociationRejectSource byte

const (
	RejectSourceUnknown         AssociationRejectSource = 0x00
	RejectSourceServiceUser     AssociationRejectSource = 0x01
	RejectSourceServiceProvider AssociationRejectSource = 0x02
)

func (s AssociationRejectSource) String() string {
	switch s {
	case RejectSourceServiceUser:
		return "service-user"
	case RejectSourceServiceProvider:
		return "service-provider"
	default:
		return "unknown"
	}
}

// NewAssociationError creates a new association error
func NewAssociationError(source AssociationRejectSource, reason AssociationRejectReason, msg string) *AssociationError {
	return &AssociationError{
		Source: source,
		Reason: reason,
		Msg:    msg,
	}
}

// DIMSEError is a final DIMSE status that ends an SCU operation.
type DIMSEError struct {
	Status    uint16
	Operation string
	Msg       string
	RemoteAET string
}

func (e *DIMSEError) Error() string {
	if e.RemoteAET != "" {
		return fmt.Sprintf("%s SCU to AET %q has failed with DIMSE status 0x%04X", e.Operation, e.RemoteAET, e.Status)
	}
	return fmt.Sprintf("DIMSE %s failed: %s (status: 0x%04X)", e.Operation, e.Msg, e.Status)
}

// Kind is UnprocessableEntity for the 0xCxxx "unable to process" class
// and NetworkProtocol for any other failure.
func (e *DIMSEError) Kind() Kind {
	if e.Status&0xF000 == 0xC000 {
		return KindUnprocessableEntity
	}
	return KindNetworkProtocol
}

// IsSuccess reports a 0x0000 status.
func (e *DIMSEError) IsSuccess() bool {
	return e.Status == 0x0000
}

// IsPending reports 0xFF00, or 0xFF01 when optional keys were not supported.
func (e *DIMSEError) IsPending() bool {
	return e.Status == 0xFF00 || e.Status == 0xFF01
}

// IsCancel reports 0xFE00.
func (e *DIMSEError) IsCancel() bool {
	return e.Status == 0xFE00
}

// IsWarning reports the 0xBxxx class and the 0x0001, 0x0107 and 0x0116
// warnings of PS3.7 Annex C.
func (e *DIMSEError) IsWarning() bool {
	switch e.Status {
	case 0x0001, 0x0107, 0x0116:
		return true
	}
	return e.Status&0xF000 == 0xB000
}

// IsFailure reports every other status.
func (e *DIMSEError) IsFailure() bool {
	return !e.IsSuccess() && !e.IsPending() && !e.IsCancel() && !e.IsWarning()
}

// NetworkError is a failure of the transport under an association.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Kind is Timeout when the transport hit a deadline.
func (e *NetworkError) Kind() Kind {
	var netErr net.Error
	if errors.As(e.Err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindNetworkProtocol
}

// NewNetworkError creates a new network error
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{
		Op:  op,
		Err: err,
	}
}

// PDUError is a malformed or unexpected PDU.
type PDUError struct {
	PDUType byte
	Msg     string
}

func (e *PDUError) Error() string {
	return fmt.Sprintf("PDU error (type: 0x%02X): %s", e.PDUType, e.Msg)
}

func (e *PDUError) Kind() Kind { return KindNetworkProtocol }

// NewPDUError creates a new PDU error
func NewPDUError(pduType byte, msg string) *PDUError {
	return &PDUError{
		PDUType: pduType,
		Msg:     msg,
	}
}

// AbortError is an A-ABORT received from the peer.
type AbortError struct {
	Source byte
	Reason byte
}

func (e *AbortError) Error() string {
	source := "unknown"
	switch e.Source {
	case 0x00:
		source = "service-user"
	case 0x02:
		source = "service-provider"
	}
	return fmt.Sprintf("connection aborted by %s (reason: 0x%02X)", source, e.Reason)
}

func (e *AbortError) Kind() Kind { return KindNetworkProtocol }

// NewAbortError creates a new abort error
func NewAbortError(source, reason byte) *AbortError {
	return &AbortError{
		Source: source,
		Reason: reason,
	}
}
