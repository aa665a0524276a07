package dicom

import (
	"encoding/binary"
	"testing"
)

func TestTag_String(t *testing.T) {
	tests := []struct {
		name     string
		tag      Tag
		expected string
	}{
		{"Patient Name", Tag{0x0010, 0x0010}, "(0010,0010)"},
		{"Study Instance UID", Tag{0x0020, 0x000D}, "(0020,000d)"},
		{"Series Instance UID", Tag{0x0020, 0x000E}, "(0020,000e)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.tag.String()
			if result != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestParseTag(t *testing.T) {
	tests := []struct {
		input   string
		want    Tag
		wantErr bool
	}{
		{"0010,0010", TagPatientName, false},
		{"(0020,000D)", TagStudyInstanceUID, false},
		{"00100020", TagPatientID, false},
		{"PatientName", TagPatientName, false},
		{"SOPInstanceUID", TagSOPInstanceUID, false},
		{"NotAKeyword", Tag{}, true},
		{"", Tag{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTag(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTag(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseTag(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewDataset(t *testing.T) {
	ds := NewDataset()
	if ds == nil {
		t.Fatal("NewDataset returned nil")
	}
	if ds.Len() != 0 {
		t.Errorf("Expected empty dataset, got %d elements", ds.Len())
	}
}

func TestDataset_AddElement(t *testing.T) {
	ds := NewDataset()

	tag := Tag{0x0010, 0x0010}
	ds.AddElement(tag, VR_PN, StringValue("DOE^JOHN"))

	element, exists := ds.GetElement(tag)
	if !exists {
		t.Fatal("Element not found after adding")
	}
	if element.Tag != tag {
		t.Errorf("Tag mismatch: expected %v, got %v", tag, element.Tag)
	}
	if element.VR != VR_PN {
		t.Errorf("VR mismatch: expected %s, got %s", VR_PN, element.VR)
	}
	if element.Value.String() != "DOE^JOHN" {
		t.Errorf("Value mismatch: expected DOE^JOHN, got %v", element.Value)
	}

	// replacing keeps a single element
	ds.AddElement(tag, VR_PN, StringValue("DOE^JANE"))
	if ds.Len() != 1 {
		t.Errorf("Expected 1 element after replace, got %d", ds.Len())
	}
	if got := ds.GetString(tag); got != "DOE^JANE" {
		t.Errorf("Expected DOE^JANE, got %s", got)
	}
}

func TestDataset_GetElement(t *testing.T) {
	ds := NewDataset()

	existingTag := Tag{0x0010, 0x0020}
	ds.AddElement(existingTag, VR_LO, StringValue("12345"))

	element, exists := ds.GetElement(existingTag)
	if !exists || element == nil {
		t.Fatal("Expected to find existing element")
	}

	element, exists = ds.GetElement(Tag{0xFFFF, 0xFFFF})
	if exists {
		t.Error("Expected not to find non-existing element")
	}
	if element != nil {
		t.Error("Element should be nil for non-existing tag")
	}
}

func TestDataset_GetString(t *testing.T) {
	ds := NewDataset()
	ds.AddElement(Tag{0x0010, 0x0010}, VR_PN, StringValue("DOE^JOHN"))
	ds.AddElement(Tag{0x0010, 0x0020}, VR_LO, StringValue("  12345  "))
	ds.AddElement(Tag{0x0010, 0x0030}, VR_DA, NullValue())
	ds.AddElement(Tag{0x0009, 0x1001}, VR_OB, BinaryValue([]byte{1, 2}))
	ds.AddElement(Tag{0x0008, 0x1140}, VR_SQ, SequenceValue(NewDataset()))

	tests := []struct {
		name     string
		tag      Tag
		expected string
	}{
		{"String value", Tag{0x0010, 0x0010}, "DOE^JOHN"},
		{"String with spaces", Tag{0x0010, 0x0020}, "12345"},
		{"Null value", Tag{0x0010, 0x0030}, ""},
		{"Binary value", Tag{0x0009, 0x1001}, ""},
		{"Sequence", Tag{0x0008, 0x1140}, ""},
		{"Non-existing tag", Tag{0xFFFF, 0xFFFF}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ds.GetString(tt.tag)
			if result != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestDataset_GetStrings(t *testing.T) {
	ds := NewDataset()
	ds.AddElement(Tag{0x0008, 0x0060}, VR_CS, StringValue("CT"))
	ds.AddElement(Tag{0x0008, 0x0008}, VR_CS, StringValue(`ORIGINAL\PRIMARY\AXIAL`))
	ds.AddElement(Tag{0x0008, 0x0018}, VR_UI, StringsValue("value1", "value2"))

	tests := []struct {
		name     string
		tag      Tag
		expected []string
	}{
		{"Single value", Tag{0x0008, 0x0060}, []string{"CT"}},
		{"Multiple values with backslash", Tag{0x0008, 0x0008}, []string{"ORIGINAL", "PRIMARY", "AXIAL"}},
		{"String slice", Tag{0x0008, 0x0018}, []string{"value1", "value2"}},
		{"Non-existing tag", Tag{0xFFFF, 0xFFFF}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ds.GetStrings(tt.tag)
			if len(result) != len(tt.expected) {
				t.Fatalf("Expected %d strings, got %d", len(tt.expected), len(result))
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("String[%d]: expected %q, got %q", i, tt.expected[i], result[i])
				}
			}
		})
	}
}

func TestDataset_GetInt(t *testing.T) {
	ds := NewDataset()
	ds.AddElement(TagNumberOfFrames, VR_IS, StringValue(" 12 "))
	ds.AddElement(TagSeriesNumber, VR_IS, StringValue("abc"))
	ds.AddElement(TagInstanceNumber, VR_IS, StringValue("3.0"))

	tests := []struct {
		name      string
		tag       Tag
		want      int
		wantFound bool
		wantErr   bool
	}{
		{"integer", TagNumberOfFrames, 12, true, false},
		{"integral decimal", TagInstanceNumber, 3, true, false},
		{"not a number", TagSeriesNumber, 0, true, true},
		{"absent", TagRows, 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found, err := ds.GetInt(tt.tag)
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetInt() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want || found != tt.wantFound {
				t.Errorf("GetInt() = (%d, %v), want (%d, %v)", got, found, tt.want, tt.wantFound)
			}
		})
	}
}

func TestDataset_TagsSorted(t *testing.T) {
	ds := NewDataset()
	ds.AddElement(Tag{0x0020, 0x000D}, VR_UI, StringValue("1.2.3"))
	ds.AddElement(Tag{0x0010, 0x0020}, VR_LO, StringValue("12345"))
	ds.AddElement(Tag{0x0010, 0x0010}, VR_PN, StringValue("DOE^JOHN"))

	tags := ds.Tags()
	for i := 1; i < len(tags); i++ {
		if !tags[i-1].Less(tags[i]) {
			t.Errorf("Tags() not ascending at %d: %v then %v", i, tags[i-1], tags[i])
		}
	}

	if !ds.Remove(Tag{0x0010, 0x0020}) {
		t.Error("Remove() = false for an existing tag")
	}
	if ds.Remove(Tag{0x0010, 0x0020}) {
		t.Error("Remove() = true for a removed tag")
	}
	if ds.Len() != 2 {
		t.Errorf("Len() = %d, want 2", ds.Len())
	}
}

func TestDataset_CloneIsDeep(t *testing.T) {
	item := NewDataset()
	item.SetString(TagReferencedSOPInstanceUID, "1.2.3")

	ds := NewDataset()
	ds.AddElement(TagReferencedImageSequence, VR_SQ, SequenceValue(item))

	c := ds.Clone()
	c.Items(TagReferencedImageSequence)[0].SetString(TagReferencedSOPInstanceUID, "4.5.6")

	if got := ds.Items(TagReferencedImageSequence)[0].GetString(TagReferencedSOPInstanceUID); got != "1.2.3" {
		t.Errorf("original item changed to %q", got)
	}
	if ds.Equal(c) {
		t.Error("Equal() = true after modifying the clone")
	}
}

func TestParseDataset(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		expectedLen int
		checks      func(t *testing.T, ds *Dataset)
	}{
		{
			name:        "Empty dataset",
			data:        []byte{},
			expectedLen: 0,
		},
		{
			name:        "Single element",
			data:        appendShortElement(nil, 0x0010, 0x0010, "PN", "DOE^JOHN"),
			expectedLen: 1,
			checks: func(t *testing.T, ds *Dataset) {
				if value := ds.GetString(Tag{0x0010, 0x0010}); value != "DOE^JOHN" {
					t.Errorf("Expected DOE^JOHN, got %s", value)
				}
			},
		},
		{
			name: "Multiple elements",
			data: func() []byte {
				data := appendShortElement(nil, 0x0010, 0x0010, "PN", "DOE^JOHN")
				return appendShortElement(data, 0x0010, 0x0020, "LO", "12345 ")
			}(),
			expectedLen: 2,
			checks: func(t *testing.T, ds *Dataset) {
				if name := ds.GetString(Tag{0x0010, 0x0010}); name != "DOE^JOHN" {
					t.Errorf("Expected DOE^JOHN, got %s", name)
				}
				if id := ds.GetString(Tag{0x0010, 0x0020}); id != "12345" {
					t.Errorf("Expected 12345, got %s", id)
				}
			},
		},
		{
			name: "Element with odd length (requires padding)",
			data: func() []byte {
				data := make([]byte, 8)
				binary.LittleEndian.PutUint16(data[0:2], 0x0010)
				binary.LittleEndian.PutUint16(data[2:4], 0x0010)
				data[4] = 'P'
				data[5] = 'N'
				binary.LittleEndian.PutUint16(data[6:8], 7)
				data = append(data, []byte("JOHNSON")...)
				return data
			}(),
			expectedLen: 1,
			checks: func(t *testing.T, ds *Dataset) {
				if value := ds.GetString(Tag{0x0010, 0x0010}); value != "JOHNSON" {
					t.Errorf("Expected JOHNSON, got %s", value)
				}
			},
		},
		{
			name: "Binary numeric value",
			data: func() []byte {
				data := []byte{0x28, 0x00, 0x10, 0x00, 'U', 'S', 0x02, 0x00}
				return binary.LittleEndian.AppendUint16(data, 512)
			}(),
			expectedLen: 1,
			checks: func(t *testing.T, ds *Dataset) {
				if rows := ds.GetString(TagRows); rows != "512" {
					t.Errorf("Expected 512, got %s", rows)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := ParseDataset(tt.data)
			if err != nil {
				t.Fatalf("ParseDataset failed: %v", err)
			}
			if ds.Len() != tt.expectedLen {
				t.Errorf("Expected %d elements, got %d", tt.expectedLen, ds.Len())
			}
			if tt.checks != nil {
				tt.checks(t, ds)
			}
		})
	}
}

func TestParseDataset_Truncated(t *testing.T) {
	data := appendShortElement(nil, 0x0010, 0x0010, "PN", "DOE^JOHN")
	if _, err := ParseDataset(data[:len(data)-2]); err == nil {
		t.Error("Expected an error for a value running past the buffer")
	}
}

func TestDataset_EncodeDataset(t *testing.T) {
	tests := []struct {
		name   string
		setup  func() *Dataset
		verify func(t *testing.T, data []byte)
	}{
		{
			name:  "Empty dataset",
			setup: NewDataset,
			verify: func(t *testing.T, data []byte) {
				if len(data) != 0 {
					t.Errorf("Expected empty data, got %d bytes", len(data))
				}
			},
		},
		{
			name: "Single element",
			setup: func() *Dataset {
				ds := NewDataset()
				ds.AddElement(Tag{0x0010, 0x0010}, VR_PN, StringValue("DOE^JOHN"))
				return ds
			},
			verify: func(t *testing.T, data []byte) {
				if len(data) < 8 {
					t.Fatalf("Data too short: %d bytes", len(data))
				}
				group := binary.LittleEndian.Uint16(data[0:2])
				element := binary.LittleEndian.Uint16(data[2:4])
				if group != 0x0010 || element != 0x0010 {
					t.Errorf("Expected tag (0010,0010), got (%04x,%04x)", group, element)
				}
				if vr := string(data[4:6]); vr != "PN" {
					t.Errorf("Expected VR PN, got %s", vr)
				}
				length := binary.LittleEndian.Uint16(data[6:8])
				if length != 8 {
					t.Errorf("Expected length 8, got %d", length)
				}
				if value := string(data[8 : 8+length]); value != "DOE^JOHN" {
					t.Errorf("Expected DOE^JOHN, got %s", value)
				}
			},
		},
		{
			name: "Element with odd length gets padded",
			setup: func() *Dataset {
				ds := NewDataset()
				ds.AddElement(Tag{0x0010, 0x0010}, VR_PN, StringValue("JOHNSON"))
				return ds
			},
			verify: func(t *testing.T, data []byte) {
				length := binary.LittleEndian.Uint16(data[6:8])
				if length != 8 {
					t.Errorf("Expected padded length 8, got %d", length)
				}
				if data[15] != ' ' {
					t.Errorf("Expected space padding, got 0x%02x", data[15])
				}
			},
		},
		{
			name: "UI padded with NUL",
			setup: func() *Dataset {
				ds := NewDataset()
				ds.AddElement(TagStudyInstanceUID, VR_UI, StringValue("1.2.3"))
				return ds
			},
			verify: func(t *testing.T, data []byte) {
				if len(data) != 14 || data[13] != 0x00 {
					t.Errorf("Expected NUL padding to 6 bytes, got % x", data)
				}
			},
		},
		{
			name: "Multiple elements in tag order",
			setup: func() *Dataset {
				ds := NewDataset()
				ds.AddElement(Tag{0x0020, 0x000D}, VR_UI, StringValue("1.2.3"))
				ds.AddElement(Tag{0x0010, 0x0020}, VR_LO, StringValue("12345"))
				ds.AddElement(Tag{0x0010, 0x0010}, VR_PN, StringValue("DOE^JOHN"))
				return ds
			},
			verify: func(t *testing.T, data []byte) {
				group := binary.LittleEndian.Uint16(data[0:2])
				element := binary.LittleEndian.Uint16(data[2:4])
				if group != 0x0010 || element != 0x0010 {
					t.Errorf("First tag should be (0010,0010), got (%04x,%04x)", group, element)
				}
			},
		},
		{
			name: "Numeric value is binary",
			setup: func() *Dataset {
				ds := NewDataset()
				ds.AddElement(TagColumns, VR_US, StringValue("32"))
				return ds
			},
			verify: func(t *testing.T, data []byte) {
				if len(data) != 10 || data[8] != 0x20 || data[9] != 0x00 {
					t.Errorf("Expected [0x20, 0x00] value, got % x", data)
				}
			},
		},
		{
			name: "Long VR uses 32-bit length",
			setup: func() *Dataset {
				ds := NewDataset()
				ds.AddElement(Tag{0x0009, 0x1001}, VR_OB, BinaryValue([]byte{1, 2, 3, 4}))
				return ds
			},
			verify: func(t *testing.T, data []byte) {
				if len(data) != 16 {
					t.Fatalf("Expected 16 bytes, got %d", len(data))
				}
				if length := binary.LittleEndian.Uint32(data[8:12]); length != 4 {
					t.Errorf("Expected length 4, got %d", length)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeDataset(tt.setup())
			if err != nil {
				t.Fatalf("EncodeDataset failed: %v", err)
			}
			tt.verify(t, data)
		})
	}
}

func TestEncodeDataset_InvalidNumeric(t *testing.T) {
	ds := NewDataset()
	ds.AddElement(TagRows, VR_US, StringValue("many"))
	if _, err := EncodeDataset(ds); err == nil {
		t.Error("Expected an error for a non-numeric US value")
	}
}

func TestDataset_RoundTrip(t *testing.T) {
	original := NewDataset()
	original.AddElement(Tag{0x0010, 0x0010}, VR_PN, StringValue("DOE^JOHN"))
	original.AddElement(Tag{0x0010, 0x0020}, VR_LO, StringValue("12345"))
	original.AddElement(Tag{0x0008, 0x0060}, VR_CS, StringValue("CT"))
	original.AddElement(Tag{0x0020, 0x000D}, VR_UI, StringValue("1.2.3.4.5"))
	original.AddElement(Tag{0x0028, 0x0030}, VR_DS, StringValue(`0.5\0.5`))

	encoded, err := EncodeDataset(original)
	if err != nil {
		t.Fatalf("Failed to encode dataset: %v", err)
	}

	parsed, err := ParseDataset(encoded)
	if err != nil {
		t.Fatalf("Failed to parse encoded dataset: %v", err)
	}

	tests := []struct {
		tag      Tag
		expected string
	}{
		{Tag{0x0010, 0x0010}, "DOE^JOHN"},
		{Tag{0x0010, 0x0020}, "12345"},
		{Tag{0x0008, 0x0060}, "CT"},
		{Tag{0x0020, 0x000D}, "1.2.3.4.5"},
		{Tag{0x0028, 0x0030}, `0.5\0.5`},
	}

	for _, tt := range tests {
		if value := parsed.GetString(tt.tag); value != tt.expected {
			t.Errorf("Tag %v: expected %q, got %q", tt.tag, tt.expected, value)
		}
	}
}

func TestDictionaryVR(t *testing.T) {
	dict := NewDictionary()

	tests := []struct {
		name     string
		tag      Tag
		expected VR
	}{
		{"Patient Name", Tag{0x0010, 0x0010}, VR_PN},
		{"Patient ID", Tag{0x0010, 0x0020}, VR_LO},
		{"Study Instance UID", Tag{0x0020, 0x000D}, VR_UI},
		{"Modality", Tag{0x0008, 0x0060}, VR_CS},
		{"Study Date", Tag{0x0008, 0x0020}, VR_DA},
		{"Study Time", Tag{0x0008, 0x0030}, VR_TM},
		{"Accession Number", Tag{0x0008, 0x0050}, VR_SH},
		{"Patient Age", Tag{0x0010, 0x1010}, VR_AS},
		{"Series Number", Tag{0x0020, 0x0011}, VR_IS},
		{"Rows", Tag{0x0028, 0x0010}, VR_US},
		{"Group length", Tag{0x0008, 0x0000}, VR_UL},
		{"Private creator", Tag{0x0009, 0x0010}, VR_LO},
		{"Unknown tag", Tag{0xFFFF, 0xFFFF}, VR_UN},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := dict.VR(tt.tag, ""); result != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, result)
			}
		})
	}
}
