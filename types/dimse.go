package types

// DIMSE Command types
const (
	CStoreRQ        = 0x0001
	CStoreRSP       = 0x8001
	CGetRQ          = 0x0010
	CGetRSP         = 0x8010
	CFindRQ         = 0x0020
	CFindRSP        = 0x8020
	CMoveRQ         = 0x0021
	CMoveRSP        = 0x8021
	CEchoRQ         = 0x0030
	CEchoRSP        = 0x8030
	NEventReportRQ  = 0x0100
	NEventReportRSP = 0x8100
	NActionRQ       = 0x0130
	NActionRSP      = 0x8130
	CCancelRQ       = 0x0FFF
)

// DIMSE Status codes
const (
	StatusSuccess = 0x0000
	StatusPending = 0xFF00
	StatusFailure = 0xC000

	// StatusPendingWarning is returned by C-FIND SCPs that ignored optional keys.
	StatusPendingWarning = 0xFF01
	StatusCancel         = 0xFE00

	StatusOutOfResources         = 0xA700
	StatusDataSetMismatch        = 0xA900
	StatusCannotUnderstand       = 0xC000
	StatusNoSuchSOPClass         = 0x0118
	StatusNoSuchActionType       = 0x0123
	StatusProcessingFailure      = 0x0110
	StatusUnrecognizedOperation  = 0x0211
	StatusMoveDestinationUnknown = 0xA801

	// C-STORE warnings
	StatusCoercionOfDataElements = 0xB000
	StatusElementsDiscarded      = 0xB006
	StatusDataSetDoesNotMatchSOP = 0xB007
)

// Failure reasons of a storage commitment FailedSOPSequence item
const (
	FailureReasonProcessingFailure              = 0x0110
	FailureReasonNoSuchObjectInstance           = 0x0112
	FailureReasonResourceLimitation             = 0x0213
	FailureReasonReferencedSOPClassNotSupported = 0x0122
	FailureReasonClassInstanceConflict          = 0x0119
	FailureReasonDuplicateTransactionUID        = 0x0131
)

// IsCommitmentFailureReason reports whether reason may appear in a
// storage commitment report.
func IsCommitmentFailureReason(reason uint16) bool {
	switch reason {
	case FailureReasonProcessingFailure, FailureReasonNoSuchObjectInstance,
		FailureReasonResourceLimitation, FailureReasonReferencedSOPClassNotSupported,
		FailureReasonClassInstanceConflict, FailureReasonDuplicateTransactionUID:
		return true
	}
	return false
}

// IsStoreSuccess reports whether a C-STORE-RSP status means the instance
// was stored, possibly with a warning.
func IsStoreSuccess(status uint16) bool {
	switch status {
	case StatusSuccess, StatusCoercionOfDataElements, StatusElementsDiscarded, StatusDataSetDoesNotMatchSOP:
		return true
	}
	return false
}

// Priorities of C-STORE, C-FIND, C-MOVE and C-GET requests
const (
	PriorityMedium = 0x0000
	PriorityHigh   = 0x0001
	PriorityLow    = 0x0002
)

// Storage commitment N-ACTION / N-EVENT-REPORT type IDs
const (
	CommitmentActionRequest        = 1
	CommitmentEventAllSuccess      = 1
	CommitmentEventFailuresPresent = 2
)

// CommandDataSetTypeNone marks a command without a following dataset.
const CommandDataSetTypeNone = 0x0101

// Message represents a parsed DIMSE command
type Message struct {
	CommandField              uint16
	MessageID                 uint16
	AffectedSOPClassUID       string
	AffectedSOPInstanceUID    string
	RequestedSOPClassUID      string
	RequestedSOPInstanceUID   string
	Priority                  uint16
	CommandDataSetType        uint16
	Status                    uint16
	MessageIDBeingRespondedTo uint16
	MoveDestination           string // For C-MOVE-RQ: the AE title of the move destination
	TransferSyntaxUID         string // Negotiated transfer syntax for associated dataset
	ErrorComment              string

	// N-EVENT-REPORT and N-ACTION type identifiers
	EventTypeID  *uint16
	ActionTypeID *uint16

	// C-STORE sub-operations issued on behalf of a C-MOVE
	MoveOriginatorAETitle   string
	MoveOriginatorMessageID *uint16

	// C-MOVE and C-GET response counters
	NumberOfRemainingSuboperations *uint16
	NumberOfCompletedSuboperations *uint16
	NumberOfFailedSuboperations    *uint16
	NumberOfWarningSuboperations   *uint16
}

// HasDataset reports whether a dataset follows the command on the wire.
func (m *Message) HasDataset() bool {
	return m.CommandDataSetType != CommandDataSetTypeNone
}

// ResponseCommandFor maps a DIMSE request command to its corresponding response command.
func ResponseCommandFor(request uint16) uint16 {
	switch request {
	case CStoreRQ:
		return CStoreRSP
	case CGetRQ:
		return CGetRSP
	case CFindRQ:
		return CFindRSP
	case CMoveRQ:
		return CMoveRSP
	case CEchoRQ:
		return CEchoRSP
	case NActionRQ:
		return NActionRSP
	case NEventReportRQ:
		return NEventReportRSP
	default:
		return request | 0x8000
	}
}
