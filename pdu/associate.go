package pdu

import (
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"strings"

	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/types"
)

// PDU types, re-exported for callers that only import this package
const (
	TypeAssociateRQ = types.TypeAssociateRQ
	TypeAssociateAC = types.TypeAssociateAC
	TypeAssociateRJ = types.TypeAssociateRJ
	TypePDataTF     = types.TypePDataTF
	TypeReleaseRQ   = types.TypeReleaseRQ
	TypeReleaseRP   = types.TypeReleaseRP
	TypeAbort       = types.TypeAbort
)

// maxPDUBody bounds the length field of incoming PDUs.
const maxPDUBody = 64 << 20

// PDU represents a Protocol Data Unit
type PDU = types.PDU

// ProposedContext is one presentation context of an A-ASSOCIATE-RQ.
type ProposedContext struct {
	ID               byte
	AbstractSyntax   string
	TransferSyntaxes []string
	Role             types.Role
}

// UserInformation carries the user information sub-items both
// association PDUs share. Roles is keyed by SOP class UID.
type UserInformation struct {
	MaxPDULength              uint32
	ImplementationClassUID    string
	ImplementationVersionName string
	Roles                     map[string]types.Role
}

// AssociateRQ is an A-ASSOCIATE-RQ PDU.
type AssociateRQ struct {
	CalledAETitle        string
	CallingAETitle       string
	ApplicationContext   string
	PresentationContexts []ProposedContext
	UserInfo             UserInformation
}

// AssociateAC is an A-ASSOCIATE-AC PDU. The abstract syntax of each
// context is not carried on the wire and is left empty by DecodeAssociateAC.
type AssociateAC struct {
	CalledAETitle        string
	CallingAETitle       string
	ApplicationContext   string
	PresentationContexts []types.PresentationContext
	UserInfo             UserInformation
}

// AssociateRJ is an A-ASSOCIATE-RJ PDU.
type AssociateRJ struct {
	Result byte
	Source dcmerr.AssociationRejectSource
	Reason dcmerr.AssociationRejectReason
}

// Rejection results
const (
	RejectPermanent byte = 0x01
	RejectTransient byte = 0x02
)

// Err converts the rejection into an *errors.AssociationError.
func (rj *AssociateRJ) Err() *dcmerr.AssociationError {
	kind := "permanent"
	if rj.Result == RejectTransient {
		kind = "transient"
	}
	return dcmerr.NewAssociationError(rj.Source, rj.Reason, kind+" rejection")
}

// ReadPDU reads one complete PDU.
func ReadPDU(r io.Reader) (*PDU, error) {
	header := make([]byte, 6)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(header[2:6])
	if length > maxPDUBody {
		return nil, dcmerr.NewPDUError(header[0], fmt.Sprintf("PDU length %d exceeds the supported maximum", length))
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("failed to read PDU data: %w", err)
	}

	return &PDU{Type: header[0], Length: length, Data: data}, nil
}

// WritePDU writes a PDU header followed by body in a single write.
func WritePDU(w io.Writer, pduType byte, body []byte) error {
	full := make([]byte, 0, 6+len(body))
	full = append(full, pduType, 0x00)
	full = binary.BigEndian.AppendUint32(full, uint32(len(body)))
	full = append(full, body...)
	if _, err := w.Write(full); err != nil {
		return dcmerr.NewNetworkError(fmt.Sprintf("write PDU 0x%02x", pduType), err)
	}
	return nil
}

// EncodeReleaseRQ returns the body of an A-RELEASE-RQ.
func EncodeReleaseRQ() []byte { return make([]byte, 4) }

// EncodeReleaseRP returns the body of an A-RELEASE-RP.
func EncodeReleaseRP() []byte { return make([]byte, 4) }

// EncodeAbort returns the body of an A-ABORT.
func EncodeAbort(source, reason byte) []byte {
	return []byte{0x00, 0x00, source, reason}
}

func appendItem(buf []byte, itemType byte, value []byte) []byte {
	buf = append(buf, itemType, 0x00)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(value)))
	return append(buf, value...)
}

func appendAETitle(buf []byte, aet string) []byte {
	if len(aet) > 16 {
		aet = aet[:16]
	}
	return append(buf, fmt.Sprintf("%-16s", aet)...)
}

func appendHeader(buf []byte, called, calling string) []byte {
	buf = binary.BigEndian.AppendUint16(buf, 0x0001)
	buf = append(buf, 0x00, 0x00)
	buf = appendAETitle(buf, called)
	buf = appendAETitle(buf, calling)
	return append(buf, make([]byte, 32)...)
}

func (u *UserInformation) encode() []byte {
	maxLength := u.MaxPDULength
	classUID := u.ImplementationClassUID
	if classUID == "" {
		classUID = types.ImplementationClassUID
	}
	version := u.ImplementationVersionName
	if version == "" {
		version = types.ImplementationVersionName
	}

	var value []byte
	value = appendItem(value, types.ItemMaximumLength, binary.BigEndian.AppendUint32(nil, maxLength))
	value = appendItem(value, types.ItemImplementationClassUID, []byte(classUID))

	uids := make([]string, 0, len(u.Roles))
	for uid, role := range u.Roles {
		if role != types.RoleDefault {
			uids = append(uids, uid)
		}
	}
	sort.Strings(uids)
	for _, uid := range uids {
		scu, scp := u.Roles[uid].Flags()
		item := binary.BigEndian.AppendUint16(nil, uint16(len(uid)))
		item = append(item, uid...)
		item = append(item, scu, scp)
		value = appendItem(value, types.ItemRoleSelection, item)
	}

	value = appendItem(value, types.ItemImplementationVersion, []byte(version))
	return appendItem(nil, types.ItemUserInformation, value)
}

// Encode returns the PDU body (without the 6-byte header).
func (rq *AssociateRQ) Encode() []byte {
	appContext := rq.ApplicationContext
	if appContext == "" {
		appContext = types.ApplicationContextName
	}

	buf := appendHeader(nil, rq.CalledAETitle, rq.CallingAETitle)
	buf = appendItem(buf, types.ItemApplicationContext, []byte(appContext))

	for _, pc := range rq.PresentationContexts {
		value := []byte{pc.ID, 0x00, 0x00, 0x00}
		value = appendItem(value, types.ItemAbstractSyntax, []byte(pc.AbstractSyntax))
		for _, ts := range pc.TransferSyntaxes {
			value = appendItem(value, types.ItemTransferSyntax, []byte(ts))
		}
		buf = appendItem(buf, types.ItemPresentationContextRQ, value)
	}

	return append(buf, rq.UserInfo.encode()...)
}

// Encode returns the PDU body (without the 6-byte header). Contexts that
// were not accepted carry no transfer syntax sub-item.
func (ac *AssociateAC) Encode() []byte {
	appContext := ac.ApplicationContext
	if appContext == "" {
		appContext = types.ApplicationContextName
	}

	buf := appendHeader(nil, ac.CalledAETitle, ac.CallingAETitle)
	buf = appendItem(buf, types.ItemApplicationContext, []byte(appContext))

	for _, pc := range ac.PresentationContexts {
		value := []byte{pc.ID, 0x00, pc.Result, 0x00}
		if pc.Result == types.ResultAcceptance {
			value = appendItem(value, types.ItemTransferSyntax, []byte(pc.TransferSyntax))
		}
		buf = appendItem(buf, types.ItemPresentationContextAC, value)
	}

	return append(buf, ac.UserInfo.encode()...)
}

// Encode returns the PDU body (without the 6-byte header).
func (rj *AssociateRJ) Encode() []byte {
	return []byte{0x00, rj.Result, byte(rj.Source), byte(rj.Reason)}
}

func normalizeUID(raw []byte) string {
	return strings.TrimRight(string(raw), "\x00 ")
}

func normalizeAETitle(raw []byte) string {
	value := string(raw)
	if idx := strings.IndexByte(value, 0); idx != -1 {
		value = value[:idx]
	}
	return strings.TrimSpace(value)
}

// item is one variable item or sub-item.
type item struct {
	Type  byte
	Value []byte
}

func splitItems(data []byte) ([]item, error) {
	var items []item
	for offset := 0; offset < len(data); {
		if offset+4 > len(data) {
			return nil, fmt.Errorf("truncated item header at offset %d", offset)
		}
		length := int(binary.BigEndian.Uint16(data[offset+2 : offset+4]))
		end := offset + 4 + length
		if end > len(data) {
			return nil, fmt.Errorf("item 0x%02x exceeds its parent length", data[offset])
		}
		items = append(items, item{Type: data[offset], Value: data[offset+4 : end]})
		offset = end
	}
	return items, nil
}

func decodeUserInformation(data []byte) (UserInformation, error) {
	var info UserInformation
	items, err := splitItems(data)
	if err != nil {
		return info, fmt.Errorf("user information: %w", err)
	}

	for _, it := range items {
		switch it.Type {
		case types.ItemMaximumLength:
			if len(it.Value) == 4 {
				info.MaxPDULength = binary.BigEndian.Uint32(it.Value)
			}
		case types.ItemImplementationClassUID:
			info.ImplementationClassUID = normalizeUID(it.Value)
		case types.ItemImplementationVersion:
			info.ImplementationVersionName = strings.TrimSpace(string(it.Value))
		case types.ItemRoleSelection:
			if len(it.Value) < 2 {
				return info, fmt.Errorf("role selection sub-item too short")
			}
			uidLength := int(binary.BigEndian.Uint16(it.Value[0:2]))
			if len(it.Value) < 2+uidLength+2 {
				return info, fmt.Errorf("role selection sub-item too short")
			}
			uid := normalizeUID(it.Value[2 : 2+uidLength])
			if info.Roles == nil {
				info.Roles = make(map[string]types.Role)
			}
			info.Roles[uid] = types.RoleFromFlags(it.Value[2+uidLength], it.Value[3+uidLength])
		}
	}
	return info, nil
}

type associateHeader struct {
	called, calling string
	items           []item
}

func decodeAssociateHeader(pduType byte, data []byte) (*associateHeader, error) {
	if len(data) < 68 {
		return nil, dcmerr.NewPDUError(pduType, fmt.Sprintf("association PDU too short: %d bytes", len(data)))
	}
	items, err := splitItems(data[68:])
	if err != nil {
		return nil, dcmerr.NewPDUError(pduType, err.Error())
	}
	return &associateHeader{
		called:  normalizeAETitle(data[4:20]),
		calling: normalizeAETitle(data[20:36]),
		items:   items,
	}, nil
}

// DecodeAssociateRQ parses the body of an A-ASSOCIATE-RQ.
func DecodeAssociateRQ(data []byte) (*AssociateRQ, error) {
	header, err := decodeAssociateHeader(TypeAssociateRQ, data)
	if err != nil {
		return nil, err
	}

	rq := &AssociateRQ{CalledAETitle: header.called, CallingAETitle: header.calling}
	for _, it := range header.items {
		switch it.Type {
		case types.ItemApplicationContext:
			rq.ApplicationContext = normalizeUID(it.Value)
		case types.ItemPresentationContextRQ:
			if len(it.Value) < 4 {
				return nil, dcmerr.NewPDUError(TypeAssociateRQ, "presentation context item too short")
			}
			pc := ProposedContext{ID: it.Value[0]}
			subItems, err := splitItems(it.Value[4:])
			if err != nil {
				return nil, dcmerr.NewPDUError(TypeAssociateRQ, fmt.Sprintf("presentation context %d: %v", pc.ID, err))
			}
			for _, sub := range subItems {
				switch sub.Type {
				case types.ItemAbstractSyntax:
					pc.AbstractSyntax = normalizeUID(sub.Value)
				case types.ItemTransferSyntax:
					pc.TransferSyntaxes = append(pc.TransferSyntaxes, normalizeUID(sub.Value))
				}
			}
			rq.PresentationContexts = append(rq.PresentationContexts, pc)
		case types.ItemUserInformation:
			info, err := decodeUserInformation(it.Value)
			if err != nil {
				return nil, dcmerr.NewPDUError(TypeAssociateRQ, err.Error())
			}
			rq.UserInfo = info
		}
	}

	for i := range rq.PresentationContexts {
		rq.PresentationContexts[i].Role = rq.UserInfo.Roles[rq.PresentationContexts[i].AbstractSyntax]
	}
	return rq, nil
}

// DecodeAssociateAC parses the body of an A-ASSOCIATE-AC.
func DecodeAssociateAC(data []byte) (*AssociateAC, error) {
	header, err := decodeAssociateHeader(TypeAssociateAC, data)
	if err != nil {
		return nil, err
	}

	ac := &AssociateAC{CalledAETitle: header.called, CallingAETitle: header.calling}
	for _, it := range header.items {
		switch it.Type {
		case types.ItemApplicationContext:
			ac.ApplicationContext = normalizeUID(it.Value)
		case types.ItemPresentationContextAC:
			if len(it.Value) < 4 {
				return nil, dcmerr.NewPDUError(TypeAssociateAC, "presentation context item too short")
			}
			pc := types.PresentationContext{ID: it.Value[0], Result: it.Value[2]}
			subItems, err := splitItems(it.Value[4:])
			if err != nil {
				return nil, dcmerr.NewPDUError(TypeAssociateAC, fmt.Sprintf("presentation context %d: %v", pc.ID, err))
			}
			for _, sub := range subItems {
				if sub.Type == types.ItemTransferSyntax {
					pc.TransferSyntax = normalizeUID(sub.Value)
				}
			}
			ac.PresentationContexts = append(ac.PresentationContexts, pc)
		case types.ItemUserInformation:
			info, err := decodeUserInformation(it.Value)
			if err != nil {
				return nil, dcmerr.NewPDUError(TypeAssociateAC, err.Error())
			}
			ac.UserInfo = info
		}
	}
	return ac, nil
}

// DecodeAssociateRJ parses the body of an A-ASSOCIATE-RJ.
func DecodeAssociateRJ(data []byte) (*AssociateRJ, error) {
	if len(data) < 4 {
		return nil, dcmerr.NewPDUError(TypeAssociateRJ, "A-ASSOCIATE-RJ too short")
	}
	return &AssociateRJ{
		Result: data[1],
		Source: dcmerr.AssociationRejectSource(data[2]),
		Reason: dcmerr.AssociationRejectReason(data[3]),
	}, nil
}
