package types

// PDU type constants
const (
	TypeAssociateRQ = 0x01
	TypeAssociateAC = 0x02
	TypeAssociateRJ = 0x03
	TypePDataTF     = 0x04
	TypeReleaseRQ   = 0x05
	TypeReleaseRP   = 0x06
	TypeAbort       = 0x07
)

// Variable item types of A-ASSOCIATE-RQ/AC
const (
	ItemApplicationContext      = 0x10
	ItemPresentationContextRQ   = 0x20
	ItemPresentationContextAC   = 0x21
	ItemAbstractSyntax          = 0x30
	ItemTransferSyntax          = 0x40
	ItemUserInformation         = 0x50
	ItemMaximumLength           = 0x51
	ItemImplementationClassUID  = 0x52
	ItemAsynchronousOperations  = 0x53
	ItemRoleSelection           = 0x54
	ItemImplementationVersion   = 0x55
	ItemUserIdentityRQ          = 0x58
	ItemUserIdentityAC          = 0x59
	ApplicationContextName      = "1.2.840.10008.3.1.1.1"
	DefaultMaxPDULength         = 16384
	MaxPresentationContexts     = 128
	ImplementationClassUID      = "2.25.163298574625410927378431862590174936215"
	ImplementationVersionName   = "DICOMCORE_1"
	PresentationContextAccepted = 0x00
)

// Presentation context results in A-ASSOCIATE-AC
const (
	ResultAcceptance                   = 0x00
	ResultUserRejection                = 0x01
	ResultNoReason                     = 0x02
	ResultAbstractSyntaxNotSupported   = 0x03
	ResultTransferSyntaxesNotSupported = 0x04
)

// Role is the SCU/SCP role requested for a presentation context through
// the SCP/SCU Role Selection sub-item.
type Role int

const (
	RoleDefault Role = iota
	RoleSCU
	RoleSCP
	RoleBoth
)

func (r Role) String() string {
	switch r {
	case RoleSCU:
		return "SCU"
	case RoleSCP:
		return "SCP"
	case RoleBoth:
		return "SCU+SCP"
	default:
		return "default"
	}
}

// Flags returns the (scu-role, scp-role) bytes of a role selection sub-item.
func (r Role) Flags() (scu, scp byte) {
	switch r {
	case RoleSCU:
		return 1, 0
	case RoleSCP:
		return 0, 1
	case RoleBoth:
		return 1, 1
	}
	return 1, 0
}

// RoleFromFlags is the inverse of Flags.
func RoleFromFlags(scu, scp byte) Role {
	switch {
	case scu != 0 && scp != 0:
		return RoleBoth
	case scp != 0:
		return RoleSCP
	case scu != 0:
		return RoleSCU
	}
	return RoleDefault
}

// PDU represents a Protocol Data Unit
type PDU struct {
	Type   byte
	Length uint32
	Data   []byte
}

// PresentationContext represents a negotiated presentation context
type PresentationContext struct {
	ID             byte
	Result         byte
	AbstractSyntax string
	TransferSyntax string
	Role           Role
}

// Accepted reports whether the remote accepted the context.
func (pc *PresentationContext) Accepted() bool {
	return pc.Result == ResultAcceptance
}

// A-ABORT sources and reasons
const (
	AbortSourceServiceUser         = 0x00
	AbortSourceServiceProvider     = 0x02
	AbortReasonUnspecified         = 0x00
	AbortReasonUnrecognizedPDU     = 0x01
	AbortReasonUnexpectedPDU       = 0x02
	AbortReasonInvalidPDUParameter = 0x06
)
