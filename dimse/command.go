package dimse

import (
	"encoding/binary"
	"fmt"
	"strings"

	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/types"
)

// Command types
const (
	CStoreRQ        = types.CStoreRQ
	CStoreRSP       = types.CStoreRSP
	CGetRQ          = types.CGetRQ
	CGetRSP         = types.CGetRSP
	CFindRQ         = types.CFindRQ
	CFindRSP        = types.CFindRSP
	CMoveRQ         = types.CMoveRQ
	CMoveRSP        = types.CMoveRSP
	CEchoRQ         = types.CEchoRQ
	CEchoRSP        = types.CEchoRSP
	NEventReportRQ  = types.NEventReportRQ
	NEventReportRSP = types.NEventReportRSP
	NActionRQ       = types.NActionRQ
	NActionRSP      = types.NActionRSP
	CCancelRQ       = types.CCancelRQ
)

// Status codes
const (
	StatusSuccess = types.StatusSuccess
	StatusPending = types.StatusPending
	StatusFailure = types.StatusFailure
)

// Elements of the command group (0000,eeee)
const (
	elemGroupLength              = 0x0000
	elemAffectedSOPClassUID      = 0x0002
	elemRequestedSOPClassUID     = 0x0003
	elemCommandField             = 0x0100
	elemMessageID                = 0x0110
	elemMessageIDBeingResponded  = 0x0120
	elemMoveDestination          = 0x0600
	elemPriority                 = 0x0700
	elemCommandDataSetType       = 0x0800
	elemStatus                   = 0x0900
	elemErrorComment             = 0x0902
	elemAffectedSOPInstanceUID   = 0x1000
	elemRequestedSOPInstanceUID  = 0x1001
	elemEventTypeID              = 0x1002
	elemActionTypeID             = 0x1008
	elemRemainingSuboperations   = 0x1020
	elemCompletedSuboperations   = 0x1021
	elemFailedSuboperations      = 0x1022
	elemWarningSuboperations     = 0x1023
	elemMoveOriginatorAETitle    = 0x1030
	elemMoveOriginatorMessageID  = 0x1031
	maxCommandElementValueLength = 1 << 16
)

func isResponse(command uint16) bool {
	return command&0x8000 != 0
}

func hasPriority(command uint16) bool {
	switch command {
	case CStoreRQ, CFindRQ, CMoveRQ, CGetRQ:
		return true
	}
	return false
}

// EncodeCommand encodes a DIMSE command message using Implicit VR Little
// Endian, in ascending tag order. Requests always carry a Message ID and
// responses always carry a Status.
func EncodeCommand(msg *types.Message) ([]byte, error) {
	if msg == nil {
		return nil, dcmerr.New(dcmerr.KindNullPointer, "no command to encode")
	}
	response := isResponse(msg.CommandField)

	buf := make([]byte, 0, 256)

	// Command Group Length (0000,0000), patched below
	buf = AppendImplicitElement(buf, 0x0000, elemGroupLength, make([]byte, 4))
	lengthPos := len(buf) - 4

	buf = appendUID(buf, elemAffectedSOPClassUID, msg.AffectedSOPClassUID)
	buf = appendUID(buf, elemRequestedSOPClassUID, msg.RequestedSOPClassUID)
	buf = appendUS(buf, elemCommandField, msg.CommandField)

	if !response && msg.CommandField != CCancelRQ {
		buf = appendUS(buf, elemMessageID, msg.MessageID)
	} else if msg.MessageID != 0 {
		buf = appendUS(buf, elemMessageID, msg.MessageID)
	}
	if response || msg.CommandField == CCancelRQ || msg.MessageIDBeingRespondedTo != 0 {
		buf = appendUS(buf, elemMessageIDBeingResponded, msg.MessageIDBeingRespondedTo)
	}

	if msg.MoveDestination != "" {
		buf = appendText(buf, elemMoveDestination, msg.MoveDestination)
	}
	if hasPriority(msg.CommandField) || msg.Priority != 0 {
		buf = appendUS(buf, elemPriority, msg.Priority)
	}

	buf = appendUS(buf, elemCommandDataSetType, msg.CommandDataSetType)

	if response || msg.Status != 0 {
		buf = appendUS(buf, elemStatus, msg.Status)
	}
	if msg.ErrorComment != "" {
		comment := msg.ErrorComment
		if len(comment) > 64 {
			comment = comment[:64]
		}
		buf = appendText(buf, elemErrorComment, comment)
	}

	buf = appendUID(buf, elemAffectedSOPInstanceUID, msg.AffectedSOPInstanceUID)
	buf = appendUID(buf, elemRequestedSOPInstanceUID, msg.RequestedSOPInstanceUID)
	buf = appendOptionalUS(buf, elemEventTypeID, msg.EventTypeID)
	buf = appendOptionalUS(buf, elemActionTypeID, msg.ActionTypeID)

	// C-MOVE and C-GET response counters
	buf = appendOptionalUS(buf, elemRemainingSuboperations, msg.NumberOfRemainingSuboperations)
	buf = appendOptionalUS(buf, elemCompletedSuboperations, msg.NumberOfCompletedSuboperations)
	buf = appendOptionalUS(buf, elemFailedSuboperations, msg.NumberOfFailedSuboperations)
	buf = appendOptionalUS(buf, elemWarningSuboperations, msg.NumberOfWarningSuboperations)

	if msg.MoveOriginatorAETitle != "" {
		buf = appendText(buf, elemMoveOriginatorAETitle, msg.MoveOriginatorAETitle)
	}
	buf = appendOptionalUS(buf, elemMoveOriginatorMessageID, msg.MoveOriginatorMessageID)

	groupLength := uint32(len(buf) - lengthPos - 4)
	binary.LittleEndian.PutUint32(buf[lengthPos:lengthPos+4], groupLength)

	return buf, nil
}

func appendUS(buf []byte, element uint16, v uint16) []byte {
	return AppendImplicitElement(buf, 0x0000, element, binary.LittleEndian.AppendUint16(nil, v))
}

func appendOptionalUS(buf []byte, element uint16, v *uint16) []byte {
	if v == nil {
		return buf
	}
	return appendUS(buf, element, *v)
}

// appendUID pads with a NUL byte, as UI values require.
func appendUID(buf []byte, element uint16, uid string) []byte {
	if uid == "" {
		return buf
	}
	value := []byte(uid)
	if len(value)%2 == 1 {
		value = append(value, 0x00)
	}
	return AppendImplicitElement(buf, 0x0000, element, value)
}

// appendText pads AE and LO values with a space.
func appendText(buf []byte, element uint16, s string) []byte {
	value := []byte(s)
	if len(value)%2 == 1 {
		value = append(value, ' ')
	}
	return AppendImplicitElement(buf, 0x0000, element, value)
}

// AppendImplicitElement appends a DICOM element using Implicit VR (no VR field)
func AppendImplicitElement(buf []byte, group, element uint16, value []byte) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, group)
	buf = binary.LittleEndian.AppendUint16(buf, element)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(value)))
	return append(buf, value...)
}

// DecodeCommand decodes a DIMSE command message. Elements outside the
// command group are skipped. A command without a Command Field, or whose
// elements overrun the buffer, is rejected.
func DecodeCommand(data []byte) (*types.Message, error) {
	if len(data) < 8 {
		return nil, dcmerr.New(dcmerr.KindNetworkProtocol, "DIMSE command too short: %d bytes", len(data))
	}

	msg := &types.Message{
		CommandDataSetType: types.CommandDataSetTypeNone,
	}
	hasCommandField := false
	offset := 0

	for offset < len(data) {
		if offset+8 > len(data) {
			return nil, dcmerr.New(dcmerr.KindNetworkProtocol, "truncated element header at offset %d of DIMSE command", offset)
		}
		group := binary.LittleEndian.Uint16(data[offset : offset+2])
		element := binary.LittleEndian.Uint16(data[offset+2 : offset+4])
		length := binary.LittleEndian.Uint32(data[offset+4 : offset+8])

		if length > maxCommandElementValueLength || offset+8+int(length) > len(data) {
			return nil, dcmerr.New(dcmerr.KindNetworkProtocol, "element (%04x,%04x) of %d bytes overruns the DIMSE command", group, element, length)
		}
		value := data[offset+8 : offset+8+int(length)]
		offset += 8 + int(length)

		if group != 0x0000 {
			continue
		}

		switch element {
		case elemAffectedSOPClassUID:
			msg.AffectedSOPClassUID = trimValue(value)
		case elemRequestedSOPClassUID:
			msg.RequestedSOPClassUID = trimValue(value)
		case elemCommandField:
			v, err := readUS(element, value)
			if err != nil {
				return nil, err
			}
			msg.CommandField = v
			hasCommandField = true
		case elemMessageID:
			v, err := readUS(element, value)
			if err != nil {
				return nil, err
			}
			msg.MessageID = v
		case elemMessageIDBeingResponded:
			v, err := readUS(element, value)
			if err != nil {
				return nil, err
			}
			msg.MessageIDBeingRespondedTo = v
		case elemMoveDestination:
			msg.MoveDestination = trimValue(value)
		case elemPriority:
			v, err := readUS(element, value)
			if err != nil {
				return nil, err
			}
			msg.Priority = v
		case elemCommandDataSetType:
			v, err := readUS(element, value)
			if err != nil {
				return nil, err
			}
			msg.CommandDataSetType = v
		case elemStatus:
			v, err := readUS(element, value)
			if err != nil {
				return nil, err
			}
			msg.Status = v
		case elemErrorComment:
			msg.ErrorComment = trimValue(value)
		case elemAffectedSOPInstanceUID:
			msg.AffectedSOPInstanceUID = trimValue(value)
		case elemRequestedSOPInstanceUID:
			msg.RequestedSOPInstanceUID = trimValue(value)
		case elemMoveOriginatorAETitle:
			msg.MoveOriginatorAETitle = trimValue(value)
		case elemEventTypeID, elemActionTypeID, elemRemainingSuboperations, elemCompletedSuboperations,
			elemFailedSuboperations, elemWarningSuboperations, elemMoveOriginatorMessageID:
			v, err := readUS(element, value)
			if err != nil {
				return nil, err
			}
			*optionalField(msg, element) = &v
		}
	}

	if !hasCommandField {
		return nil, dcmerr.New(dcmerr.KindNetworkProtocol, "DIMSE command without Command Field (0000,0100)")
	}
	return msg, nil
}

func optionalField(msg *types.Message, element uint16) **uint16 {
	switch element {
	case elemEventTypeID:
		return &msg.EventTypeID
	case elemActionTypeID:
		return &msg.ActionTypeID
	case elemRemainingSuboperations:
		return &msg.NumberOfRemainingSuboperations
	case elemCompletedSuboperations:
		return &msg.NumberOfCompletedSuboperations
	case elemFailedSuboperations:
		return &msg.NumberOfFailedSuboperations
	case elemWarningSuboperations:
		return &msg.NumberOfWarningSuboperations
	default:
		return &msg.MoveOriginatorMessageID
	}
}

func readUS(element uint16, value []byte) (uint16, error) {
	if len(value) != 2 {
		return 0, dcmerr.New(dcmerr.KindNetworkProtocol, "element (0000,%04x) has length %d, expected 2", element, len(value))
	}
	return binary.LittleEndian.Uint16(value), nil
}

func trimValue(value []byte) string {
	return strings.TrimRight(string(value), "\x00 ")
}

// CommandName gives the PS3.7 name of a command field, for logging.
func CommandName(command uint16) string {
	switch command {
	case CStoreRQ:
		return "C-STORE-RQ"
	case CStoreRSP:
		return "C-STORE-RSP"
	case CGetRQ:
		return "C-GET-RQ"
	case CGetRSP:
		return "C-GET-RSP"
	case CFindRQ:
		return "C-FIND-RQ"
	case CFindRSP:
		return "C-FIND-RSP"
	case CMoveRQ:
		return "C-MOVE-RQ"
	case CMoveRSP:
		return "C-MOVE-RSP"
	case CEchoRQ:
		return "C-ECHO-RQ"
	case CEchoRSP:
		return "C-ECHO-RSP"
	case NEventReportRQ:
		return "N-EVENT-REPORT-RQ"
	case NEventReportRSP:
		return "N-EVENT-REPORT-RSP"
	case NActionRQ:
		return "N-ACTION-RQ"
	case NActionRSP:
		return "N-ACTION-RSP"
	case CCancelRQ:
		return "C-CANCEL-RQ"
	default:
		return fmt.Sprintf("0x%04X", command)
	}
}
