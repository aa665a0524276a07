package dimse

import (
	"encoding/binary"
	"fmt"
	"io"

	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/types"
)

// Connection interface for sending/receiving DICOM data
type Connection interface {
	io.ReadWriter
}

// Message control header bits of a PDV
const (
	pdvCommand = 0x01
	pdvLast    = 0x02
)

// Envelope is a complete DIMSE message read from the wire.
type Envelope struct {
	PresentationContextID byte
	Command               *types.Message
	Data                  []byte
}

// SendDIMSEMessage sends a command and, when datasetData is not nil, the
// dataset that follows it. maxPDULength is the peer's maximum PDU length;
// 0 means unlimited.
func SendDIMSEMessage(conn Connection, presContextID byte, maxPDULength uint32, commandData []byte, datasetData []byte) error {
	if err := SendPDataTF(conn, presContextID, maxPDULength, commandData, true, true); err != nil {
		return err
	}
	if datasetData != nil {
		if err := SendPDataTF(conn, presContextID, maxPDULength, datasetData, false, true); err != nil {
			return err
		}
	}
	return nil
}

// SendPDataTF writes data as P-DATA-TF PDUs holding one PDV each, splitting
// it so that no PDU exceeds maxPDULength. An empty buffer still produces
// one (empty) fragment.
func SendPDataTF(conn Connection, presContextID byte, maxPDULength uint32, data []byte, isCommand bool, isLast bool) error {
	// PDV item header: length (4), context ID (1), control header (1)
	maxPDVData := len(data)
	if maxPDULength > 0 {
		if maxPDULength <= 6 {
			return dcmerr.New(dcmerr.KindParameterOutOfRange, "maximum PDU length %d is too small", maxPDULength)
		}
		maxPDVData = int(maxPDULength) - 6
	}

	offset := 0
	for {
		chunkSize := len(data) - offset
		lastFragment := true
		if chunkSize > maxPDVData {
			chunkSize = maxPDVData
			lastFragment = false
		}

		control := byte(0)
		if isCommand {
			control |= pdvCommand
		}
		if lastFragment && isLast {
			control |= pdvLast
		}

		pduLength := uint32(chunkSize + 6)
		full := make([]byte, 0, 6+pduLength)
		full = append(full, types.TypePDataTF, 0x00)
		full = binary.BigEndian.AppendUint32(full, pduLength)
		full = binary.BigEndian.AppendUint32(full, uint32(chunkSize+2))
		full = append(full, presContextID, control)
		full = append(full, data[offset:offset+chunkSize]...)

		// One write per PDU keeps concurrent writers from interleaving.
		if _, err := conn.Write(full); err != nil {
			return dcmerr.NewNetworkError("write P-DATA-TF", err)
		}

		offset += chunkSize
		if lastFragment {
			return nil
		}
	}
}

// ReceiveDIMSEMessage reads a complete DIMSE message (command and optional dataset)
func ReceiveDIMSEMessage(conn Connection) (*types.Message, []byte, error) {
	env, err := ReceiveMessage(conn)
	if err != nil {
		return nil, nil, err
	}
	return env.Command, env.Data, nil
}

// ReceiveMessage reads P-DATA-TF PDUs until a command, and the dataset it
// announces, are complete. An A-ABORT is returned as *errors.AbortError and
// an A-RELEASE-RQ as a PDUError.
func ReceiveMessage(conn Connection) (*Envelope, error) {
	var commandData []byte
	var datasetData []byte
	var current *types.Message
	datasetComplete := false
	var contextID byte

	for {
		header := make([]byte, 6)
		if _, err := io.ReadFull(conn, header); err != nil {
			return nil, dcmerr.NewNetworkError("read PDU header", err)
		}

		pduType := header[0]
		pduLength := binary.BigEndian.Uint32(header[2:6])
		payload := make([]byte, pduLength)
		if _, err := io.ReadFull(conn, payload); err != nil {
			return nil, dcmerr.NewNetworkError("read PDU data", err)
		}

		switch pduType {
		case types.TypePDataTF:
		case types.TypeAbort:
			var source, reason byte
			if len(payload) >= 4 {
				source = payload[2]
				reason = payload[3]
			}
			return nil, dcmerr.NewAbortError(source, reason)
		case types.TypeReleaseRQ:
			return nil, dcmerr.NewPDUError(pduType, "peer released the association while a DIMSE response was expected")
		default:
			return nil, dcmerr.NewPDUError(pduType, "unexpected PDU while reading a DIMSE message")
		}

		offset := 0
		for offset < len(payload) {
			if offset+6 > len(payload) {
				return nil, dcmerr.NewPDUError(pduType, "malformed PDV encountered")
			}
			pdvLength := binary.BigEndian.Uint32(payload[offset : offset+4])
			end := offset + 4 + int(pdvLength)
			if pdvLength < 2 || end > len(payload) {
				return nil, dcmerr.NewPDUError(pduType, "PDV length exceeds PDU payload")
			}

			pcID := payload[offset+4]
			control := payload[offset+5]
			value := payload[offset+6 : end]
			offset = end

			if contextID == 0 {
				contextID = pcID
			} else if pcID != contextID {
				return nil, dcmerr.NewPDUError(pduType, fmt.Sprintf("PDV on presentation context %d inside a message on context %d", pcID, contextID))
			}

			if control&pdvCommand != 0 {
				commandData = append(commandData, value...)
				if control&pdvLast != 0 {
					decoded, err := DecodeCommand(commandData)
					if err != nil {
						return nil, err
					}
					current = decoded
					if !current.HasDataset() {
						datasetComplete = true
					}
				}
			} else {
				datasetData = append(datasetData, value...)
				if control&pdvLast != 0 {
					datasetComplete = true
				}
			}
		}

		if current != nil && datasetComplete {
			return &Envelope{PresentationContextID: contextID, Command: current, Data: datasetData}, nil
		}
	}
}
