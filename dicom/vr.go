package dicom

import (
	"regexp"

	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
)

// VR is a DICOM Value Representation.
type VR string

// VR (Value Representation) constants
const (
	VR_AE VR = "AE" // Application Entity
	VR_AS VR = "AS" // Age String
	VR_AT VR = "AT" // Attribute Tag
	VR_CS VR = "CS" // Code String
	VR_DA VR = "DA" // Date
	VR_DS VR = "DS" // Decimal String
	VR_DT VR = "DT" // Date Time
	VR_FL VR = "FL" // Floating Point Single
	VR_FD VR = "FD" // Floating Point Double
	VR_IS VR = "IS" // Integer String
	VR_LO VR = "LO" // Long String
	VR_LT VR = "LT" // Long Text
	VR_OB VR = "OB" // Other Byte
	VR_OD VR = "OD" // Other Double
	VR_OF VR = "OF" // Other Float
	VR_OL VR = "OL" // Other Long
	VR_OV VR = "OV" // Other Very Long
	VR_OW VR = "OW" // Other Word
	VR_PN VR = "PN" // Person Name
	VR_SH VR = "SH" // Short String
	VR_SL VR = "SL" // Signed Long
	VR_SQ VR = "SQ" // Sequence of Items
	VR_SS VR = "SS" // Signed Short
	VR_ST VR = "ST" // Short Text
	VR_SV VR = "SV" // Signed Very Long
	VR_TM VR = "TM" // Time
	VR_UC VR = "UC" // Unlimited Characters
	VR_UI VR = "UI" // Unique Identifier
	VR_UL VR = "UL" // Unsigned Long
	VR_UN VR = "UN" // Unknown
	VR_UR VR = "UR" // Universal Resource
	VR_US VR = "US" // Unsigned Short
	VR_UT VR = "UT" // Unlimited Text
	VR_UV VR = "UV" // Unsigned Very Long
)

type vrInfo struct {
	long      bool // 32-bit length with 2 reserved bytes in explicit VR
	binary    bool // stored as raw bytes
	numeric   bool // fixed-size binary numbers, exposed as text
	charset   bool // text affected by SpecificCharacterSet
	word      int  // byte-swap unit for big endian
	maxLength int  // per value, 0 = unbounded
}

var vrTable = map[VR]vrInfo{
	VR_AE: {maxLength: 16},
	VR_AS: {maxLength: 4},
	VR_AT: {numeric: true, word: 2},
	VR_CS: {maxLength: 16},
	VR_DA: {maxLength: 18},
	VR_DS: {maxLength: 16},
	VR_DT: {maxLength: 54},
	VR_FL: {numeric: true, word: 4},
	VR_FD: {numeric: true, word: 8},
	VR_IS: {maxLength: 12},
	VR_LO: {charset: true, maxLength: 64},
	VR_LT: {charset: true, maxLength: 10240},
	VR_OB: {long: true, binary: true, word: 1},
	VR_OD: {long: true, binary: true, word: 8},
	VR_OF: {long: true, binary: true, word: 4},
	VR_OL: {long: true, binary: true, word: 4},
	VR_OV: {long: true, binary: true, word: 8},
	VR_OW: {long: true, binary: true, word: 2},
	VR_PN: {charset: true, maxLength: 64 * 3},
	VR_SH: {charset: true, maxLength: 16},
	VR_SL: {numeric: true, word: 4},
	VR_SQ: {long: true},
	VR_SS: {numeric: true, word: 2},
	VR_ST: {charset: true, maxLength: 1024},
	VR_SV: {long: true, numeric: true, word: 8},
	VR_TM: {maxLength: 28},
	VR_UC: {long: true, charset: true},
	VR_UI: {maxLength: 64},
	VR_UL: {numeric: true, word: 4},
	VR_UN: {long: true, binary: true, word: 1},
	VR_UR: {long: true},
	VR_US: {numeric: true, word: 2},
	VR_UT: {long: true, charset: true},
	VR_UV: {long: true, numeric: true, word: 8},
}

// IsValid reports membership in the closed VR set.
func (vr VR) IsValid() bool {
	_, ok := vrTable[vr]
	return ok
}

// IsLong reports whether explicit VR encoding uses the 12-byte header.
func (vr VR) IsLong() bool { return vrTable[vr].long }

// IsBinary reports the OB/OW/OF/OD/OL/OV/UN family.
func (vr VR) IsBinary() bool { return vrTable[vr].binary }

// IsNumeric reports fixed-size binary numbers (US, SS, UL, SL, FL, FD, AT, SV, UV).
func (vr VR) IsNumeric() bool { return vrTable[vr].numeric }

// IsCharsetDependent reports text VRs decoded through SpecificCharacterSet.
func (vr VR) IsCharsetDependent() bool { return vrTable[vr].charset }

// IsText reports string VRs, i.e. neither binary, numeric nor sequence.
func (vr VR) IsText() bool {
	info, ok := vrTable[vr]
	return ok && !info.binary && !info.numeric && vr != VR_SQ
}

// WordSize is the byte-swap unit used when converting to big endian.
func (vr VR) WordSize() int {
	if w := vrTable[vr].word; w > 0 {
		return w
	}
	return 1
}

// MaxLength returns the maximum length of one value, or 0 when unbounded.
func (vr VR) MaxLength() int { return vrTable[vr].maxLength }

// Padding describes how values of one VR are padded to even length.
type Padding struct {
	Pad  byte
	Trim bool // strip trailing pad bytes when reading
}

// PaddingTable maps each VR to its pad byte. UI is NUL padded, other text VRs
// are space padded, binary VRs are NUL padded and never trimmed.
var PaddingTable = map[VR]Padding{
	VR_AE: {Pad: ' ', Trim: true},
	VR_AS: {Pad: ' ', Trim: true},
	VR_CS: {Pad: ' ', Trim: true},
	VR_DA: {Pad: ' ', Trim: true},
	VR_DS: {Pad: ' ', Trim: true},
	VR_DT: {Pad: ' ', Trim: true},
	VR_IS: {Pad: ' ', Trim: true},
	VR_LO: {Pad: ' ', Trim: true},
	VR_LT: {Pad: ' ', Trim: true},
	VR_PN: {Pad: ' ', Trim: true},
	VR_SH: {Pad: ' ', Trim: true},
	VR_ST: {Pad: ' ', Trim: true},
	VR_TM: {Pad: ' ', Trim: true},
	VR_UC: {Pad: ' ', Trim: true},
	VR_UR: {Pad: ' ', Trim: true},
	VR_UT: {Pad: ' ', Trim: true},
	VR_UI: {Pad: 0x00, Trim: true},
	VR_OB: {Pad: 0x00},
	VR_UN: {Pad: 0x00},
}

// PaddingFor returns the padding rule of vr, NUL without trimming by default.
func PaddingFor(vr VR) Padding {
	if p, ok := PaddingTable[vr]; ok {
		return p
	}
	return Padding{Pad: 0x00}
}

// trimPadding strips trailing pad bytes. Trailing NULs are also removed from
// space-padded text since many writers use them.
func trimPadding(vr VR, b []byte) []byte {
	p := PaddingFor(vr)
	if !p.Trim {
		return b
	}
	n := len(b)
	for n > 0 && (b[n-1] == p.Pad || b[n-1] == 0x00) {
		n--
	}
	return b[:n]
}

var agePattern = regexp.MustCompile(`^\d{3}[DWMY]$`)

// validateRaw enforces the per-VR size and pattern rules on an encoded value.
func validateRaw(tag Tag, vr VR, raw []byte) error {
	bad := func(format string, args ...any) error {
		return dcmerr.New(dcmerr.KindBadFileFormat, format, args...).WithDetail(tag.String())
	}

	switch vr {
	case VR_AT, VR_FL, VR_UL, VR_SL, VR_OF, VR_OL:
		if len(raw)%4 != 0 {
			return bad("%s value length %d is not a multiple of 4", vr, len(raw))
		}
	case VR_FD, VR_SV, VR_UV, VR_OD, VR_OV:
		if len(raw)%8 != 0 {
			return bad("%s value length %d is not a multiple of 8", vr, len(raw))
		}
	case VR_US, VR_SS, VR_OW:
		if len(raw)%2 != 0 {
			return bad("%s value length %d is not a multiple of 2", vr, len(raw))
		}
	case VR_AS:
		v := trimPadding(vr, raw)
		if len(v) > 0 && !agePattern.Match(v) {
			return bad("invalid age string %q", string(v))
		}
	}
	return nil
}
