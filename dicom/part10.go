package dicom

import (
	"encoding/binary"
	"log/slog"

	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/types"
)

const (
	preambleLength = 128
	part10Offset   = preambleLength + 4
)

// IsDicomFile reports whether data carries the 128-byte preamble followed
// by "DICM".
func IsDicomFile(data []byte) bool {
	return len(data) >= part10Offset && string(data[preambleLength:part10Offset]) == "DICM"
}

// HasPart10Header checks if the data starts with a DICOM Part 10 header.
func HasPart10Header(data []byte) bool {
	return IsDicomFile(data)
}

// ReadFileMeta parses the File Meta Information of a Part 10 file. It
// returns the meta group and the offset of the main dataset.
//
// The group is delimited by (0002,0000) when present. Files without the
// group length are scanned element by element while the group stays 0002.
func (env *Environment) ReadFileMeta(data []byte) (*Dataset, int, error) {
	if !IsDicomFile(data) {
		return nil, 0, dcmerr.New(dcmerr.KindBadFileFormat, "not a DICOM file (missing DICM prefix at offset 128)")
	}

	end := metaEnd(data)
	if end > len(data) {
		return nil, 0, dcmerr.New(dcmerr.KindBadFileFormat, "file meta information overruns the file")
	}

	r := &reader{
		env:      env,
		logger:   env.logger(),
		data:     data,
		order:    binary.LittleEndian,
		explicit: true,
	}
	meta, _, err := r.readDataset(part10Offset, end, false, Charset{Encoding: EncodingASCII}, false)
	if err != nil {
		return nil, 0, err
	}
	for _, tag := range meta.Tags() {
		if tag.Group != 0x0002 {
			return nil, 0, dcmerr.New(dcmerr.KindBadFileFormat, "element outside group 0002 in file meta information").WithDetail(tag.String())
		}
	}
	return meta, end, nil
}

func metaEnd(data []byte) int {
	pos := part10Offset
	if pos+12 <= len(data) &&
		binary.LittleEndian.Uint16(data[pos:]) == 0x0002 &&
		binary.LittleEndian.Uint16(data[pos+2:]) == 0x0000 &&
		string(data[pos+4:pos+6]) == "UL" {
		return pos + 12 + int(binary.LittleEndian.Uint32(data[pos+8:]))
	}

	for pos+8 <= len(data) && binary.LittleEndian.Uint16(data[pos:]) == 0x0002 {
		vr := VR(data[pos+4 : pos+6])
		if vr.IsLong() {
			if pos+12 > len(data) {
				return len(data) + 1
			}
			pos += 12 + int(binary.LittleEndian.Uint32(data[pos+8:]))
		} else {
			pos += 8 + int(binary.LittleEndian.Uint16(data[pos+6:]))
		}
	}
	return pos
}

// StripPart10Header removes the DICOM Part 10 preamble and File Meta Information
// to extract just the dataset.
//
// This is useful to send a file through C-STORE, which carries the dataset
// without the Part 10 wrapper.
func StripPart10Header(data []byte) ([]byte, error) {
	meta, offset, err := Default().ReadFileMeta(data)
	if err != nil {
		return nil, err
	}
	slog.Debug("Found Transfer Syntax UID in File Meta Information",
		"transfer_syntax", meta.GetString(TagTransferSyntaxUID),
		"dataset_start_offset", offset)
	return data[offset:], nil
}

// NewFileMeta builds the File Meta Information of an instance stored with
// the given transfer syntax.
func NewFileMeta(sopClassUID, sopInstanceUID, transferSyntax string) *Dataset {
	meta := NewDataset()
	meta.AddElement(TagFileMetaInformationVersion, VR_OB, BinaryValue([]byte{0x00, 0x01}))
	meta.AddElement(TagMediaStorageSOPClassUID, VR_UI, StringValue(sopClassUID))
	meta.AddElement(TagMediaStorageSOPInstanceUID, VR_UI, StringValue(sopInstanceUID))
	meta.AddElement(TagTransferSyntaxUID, VR_UI, StringValue(transferSyntax))
	meta.AddElement(TagImplementationClassUID, VR_UI, StringValue(types.ImplementationClassUID))
	meta.AddElement(TagImplementationVersionName, VR_SH, StringValue(types.ImplementationVersionName))
	return meta
}

// WriteFile serializes a Part 10 file. The transfer syntax of the main
// dataset is read from the meta group; the group length is recomputed.
func (env *Environment) WriteFile(meta, ds *Dataset) ([]byte, error) {
	transferSyntax := meta.GetString(TagTransferSyntaxUID)
	if transferSyntax == "" {
		return nil, dcmerr.New(dcmerr.KindBadFileFormat, "file meta information without transfer syntax")
	}

	mw := &writer{env: env, order: binary.LittleEndian, explicit: true}
	body, err := mw.writeDataset(nil, meta, Charset{Encoding: EncodingASCII}, false)
	if err != nil {
		return nil, err
	}

	main, err := env.WriteDataset(ds, transferSyntax, WriteOptions{})
	if err != nil {
		return nil, err
	}

	out := make([]byte, preambleLength, part10Offset+12+len(body)+len(main))
	out = append(out, "DICM"...)
	out = mw.appendTag(out, TagFileMetaInformationGroupLength)
	out = append(out, 'U', 'L')
	out = binary.LittleEndian.AppendUint16(out, 4)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(body)))
	out = append(out, body...)
	return append(out, main...), nil
}
