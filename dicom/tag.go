package dicom

import (
	"fmt"
	"strconv"
	"strings"

	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
)

// Tag represents a DICOM tag (group, element)
type Tag struct {
	Group   uint16
	Element uint16
}

// String returns the tag as a string in (gggg,eeee) format
func (t Tag) String() string {
	return fmt.Sprintf("(%04x,%04x)", t.Group, t.Element)
}

// Format returns the "gggg,eeee" key used by the short, full and human JSON formats.
func (t Tag) Format() string {
	return fmt.Sprintf("%04x,%04x", t.Group, t.Element)
}

// DICOMwebKey returns the "GGGGEEEE" key of the PS3.18 JSON model.
func (t Tag) DICOMwebKey() string {
	return fmt.Sprintf("%04X%04X", t.Group, t.Element)
}

// Uint32 packs the tag as group<<16 | element.
func (t Tag) Uint32() uint32 {
	return uint32(t.Group)<<16 | uint32(t.Element)
}

// Less orders tags the way they must appear in an encoded dataset.
func (t Tag) Less(o Tag) bool {
	return t.Uint32() < o.Uint32()
}

// IsPrivate reports whether the group is odd.
func (t Tag) IsPrivate() bool {
	return t.Group%2 == 1
}

// IsPrivateCreator reports whether t reserves a private block, i.e. (gggg,0010)..(gggg,00ff).
func (t Tag) IsPrivateCreator() bool {
	return t.IsPrivate() && t.Element >= 0x0010 && t.Element <= 0x00FF
}

// IsGroupLength reports element 0000 of any group.
func (t Tag) IsGroupLength() bool {
	return t.Element == 0x0000
}

// CreatorTag returns the reservation tag owning a private element. The
// block of (gggg,xxee) is xx, reserved at (gggg,00xx).
func (t Tag) CreatorTag() (Tag, bool) {
	if !t.IsPrivate() || t.Element < 0x1000 {
		return Tag{}, false
	}
	return Tag{Group: t.Group, Element: (t.Element & 0xFF00) >> 8}, true
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}

// parseHexTag accepts "gggg,eeee", "(gggg,eeee)" and "ggggeeee".
func parseHexTag(s string) (Tag, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	var g, e string
	if i := strings.IndexByte(s, ','); i >= 0 {
		g, e = strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
	} else if len(s) == 8 {
		g, e = s[:4], s[4:]
	} else {
		return Tag{}, false
	}

	if len(g) != 4 || len(e) != 4 || !isHex(g) || !isHex(e) {
		return Tag{}, false
	}
	group, _ := strconv.ParseUint(g, 16, 16)
	element, _ := strconv.ParseUint(e, 16, 16)
	return Tag{Group: uint16(group), Element: uint16(element)}, true
}

// ParseTag parses a hexadecimal tag or a dictionary keyword using the
// default environment.
func ParseTag(s string) (Tag, error) {
	return Default().Dictionary.ParseTag(s)
}

// MustParseTag is like ParseTag but panics on error. Meant for constants in tests.
func MustParseTag(s string) Tag {
	t, err := ParseTag(s)
	if err != nil {
		panic(err)
	}
	return t
}

func unknownTag(s string) error {
	return dcmerr.New(dcmerr.KindUnknownDicomTag, "cannot parse tag").WithDetail(s)
}
