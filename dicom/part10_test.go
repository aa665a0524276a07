package dicom

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/types"
)

func appendShortElement(data []byte, group, element uint16, vr string, value string) []byte {
	data = binary.LittleEndian.AppendUint16(data, group)
	data = binary.LittleEndian.AppendUint16(data, element)
	data = append(data, vr...)
	data = binary.LittleEndian.AppendUint16(data, uint16(len(value)))
	return append(data, value...)
}

// createValidPart10File creates a minimal valid DICOM Part 10 file for testing
func createValidPart10File() []byte {
	data := make([]byte, 128)
	data = append(data, []byte("DICM")...)
	data = appendShortElement(data, 0x0002, 0x0010, "UI", "1.2.840.10008.1.2.1\x00")
	return appendShortElement(data, 0x0010, 0x0010, "PN", "TEST^PATIENT")
}

func TestIsDicomFile(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"131 bytes", append(make([]byte, 127), "DICM"...), false},
		{"132 bytes with DICM", append(make([]byte, 128), "DICM"...), true},
		{"132 bytes without DICM", make([]byte, 132), false},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDicomFile(tt.data); got != tt.want {
				t.Errorf("IsDicomFile() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReadFileMeta_GroupLength(t *testing.T) {
	ts := "1.2.840.10008.1.2\x00" // 18 bytes, element of 26 bytes

	var group []byte
	group = appendShortElement(group, 0x0002, 0x0010, "UI", ts)

	data := make([]byte, 128)
	data = append(data, "DICM"...)
	data = appendShortElement(data, 0x0002, 0x0000, "UL", string(binary.LittleEndian.AppendUint32(nil, uint32(len(group)))))
	data = append(data, group...)
	data = append(data, 0x10, 0x00, 0x20, 0x00, 0x04, 0x00, 0x00, 0x00)
	data = append(data, "1234"...)

	meta, offset, err := NewEnvironment().ReadFileMeta(data)
	if err != nil {
		t.Fatalf("ReadFileMeta() error = %v", err)
	}
	if got := meta.GetString(TagTransferSyntaxUID); got != types.ImplicitVRLittleEndian {
		t.Errorf("TransferSyntaxUID = %q, want %q", got, types.ImplicitVRLittleEndian)
	}
	if want := 132 + 12 + len(group); offset != want {
		t.Errorf("offset = %d, want %d", offset, want)
	}

	inst, err := NewEnvironment().ParseInstance(data)
	if err != nil {
		t.Fatalf("ParseInstance() error = %v", err)
	}
	if got := inst.Dataset().GetString(TagPatientID); got != "1234" {
		t.Errorf("PatientID = %q, want 1234", got)
	}
}

func TestStripPart10Header_ValidFile(t *testing.T) {
	dataset, err := StripPart10Header(createValidPart10File())
	if err != nil {
		t.Fatalf("StripPart10Header() error = %v", err)
	}

	expectedTag := []byte{0x10, 0x00, 0x10, 0x00}
	if len(dataset) < 4 || !bytes.Equal(dataset[0:4], expectedTag) {
		t.Errorf("Expected dataset to start with tag 0010,0010, got % x", dataset)
	}
}

func TestStripPart10Header_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"too short", []byte{0x01, 0x02, 0x03}},
		{"missing DICM", make([]byte, 200)},
		{"invalid DICM", append(make([]byte, 128), "XXXX"...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := StripPart10Header(tt.data)
			if !errors.Is(err, dcmerr.KindBadFileFormat) {
				t.Errorf("StripPart10Header() error = %v, want BadFileFormat", err)
			}
		})
	}
}

func TestStripPart10Header_EmptyMetaInfo(t *testing.T) {
	data := make([]byte, 128)
	data = append(data, "DICM"...)
	data = appendShortElement(data, 0x0010, 0x0010, "PN", "TEST")

	dataset, err := StripPart10Header(data)
	if err != nil {
		t.Fatalf("StripPart10Header() error = %v", err)
	}
	if !bytes.Equal(dataset[0:4], []byte{0x10, 0x00, 0x10, 0x00}) {
		t.Errorf("Expected dataset to start with tag 0010,0010")
	}
}

func TestStripPart10Header_LongVRElement(t *testing.T) {
	data := make([]byte, 128)
	data = append(data, "DICM"...)

	// (0002,0001) OB has a 32-bit length
	data = append(data, 0x02, 0x00, 0x01, 0x00, 'O', 'B', 0x00, 0x00)
	data = binary.LittleEndian.AppendUint32(data, 100)
	data = append(data, make([]byte, 100)...)
	data = appendShortElement(data, 0x0010, 0x0010, "PN", "TEST")

	dataset, err := StripPart10Header(data)
	if err != nil {
		t.Fatalf("StripPart10Header() error = %v", err)
	}
	if !bytes.Equal(dataset[0:4], []byte{0x10, 0x00, 0x10, 0x00}) {
		t.Errorf("Expected dataset to start with tag 0010,0010")
	}
}

func TestHasPart10Header(t *testing.T) {
	raw := appendShortElement(nil, 0x0010, 0x0010, "PN", "TEST")

	if !HasPart10Header(createValidPart10File()) {
		t.Error("Expected HasPart10Header to return true for valid Part 10 file")
	}
	if HasPart10Header([]byte{0x01, 0x02, 0x03}) {
		t.Error("Expected HasPart10Header to return false for short data")
	}
	if HasPart10Header(raw) {
		t.Error("Expected HasPart10Header to return false for raw dataset")
	}
}

func TestWriteFile_RoundTrip(t *testing.T) {
	env := NewEnvironment()

	ds := NewDataset()
	ds.AddElement(TagSOPClassUID, VR_UI, StringValue(types.CTImageStorage))
	ds.AddElement(TagSOPInstanceUID, VR_UI, StringValue("1.2.3.4"))
	ds.AddElement(TagPatientName, VR_PN, StringValue("DOE^JOHN"))

	for _, ts := range []string{
		types.ImplicitVRLittleEndian,
		types.ExplicitVRLittleEndian,
		types.ExplicitVRBigEndian,
		types.DeflatedExplicitVRLittleEndian,
	} {
		t.Run(ts, func(t *testing.T) {
			inst := env.NewInstance(ds.Clone(), ts)
			data, err := inst.Serialize()
			if err != nil {
				t.Fatalf("Serialize() error = %v", err)
			}
			if !IsDicomFile(data) {
				t.Fatal("serialized instance lacks the DICM prefix")
			}

			parsed, err := env.ParseInstance(data)
			if err != nil {
				t.Fatalf("ParseInstance() error = %v", err)
			}
			if parsed.TransferSyntax() != ts {
				t.Errorf("TransferSyntax() = %q, want %q", parsed.TransferSyntax(), ts)
			}
			if got := parsed.FileMeta().GetString(TagMediaStorageSOPInstanceUID); got != "1.2.3.4" {
				t.Errorf("MediaStorageSOPInstanceUID = %q, want 1.2.3.4", got)
			}
			if !parsed.Dataset().Equal(ds) {
				t.Error("main dataset changed across serialization")
			}
		})
	}
}
