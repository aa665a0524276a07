package dicom

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/suyashkumar/dicom/pkg/tag"

	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
)

// Entry describes one dictionary tag.
type Entry struct {
	Tag            Tag
	VR             VR
	Keyword        string
	VMMin          int
	VMMax          int // 0 means unbounded ("n")
	PrivateCreator string
}

type privateKey struct {
	creator string
	group   uint16
	element uint16 // low byte only, the block is assigned per dataset
}

// Dictionary maps tags to VR, keyword and multiplicity. Public tags come
// from the PS3.6 data dictionary; private tags must be registered.
type Dictionary struct {
	mu        sync.RWMutex
	public    map[Tag]Entry
	private   map[privateKey]Entry
	byKeyword map[string]Entry
}

// NewDictionary creates a dictionary holding only the standard tags.
func NewDictionary() *Dictionary {
	return &Dictionary{
		public:    make(map[Tag]Entry),
		private:   make(map[privateKey]Entry),
		byKeyword: make(map[string]Entry),
	}
}

// Register declares a user tag, typically a private one. Registering the
// same entry twice is a no-op; a conflicting registration fails.
func (d *Dictionary) Register(e Entry) error {
	if !e.VR.IsValid() {
		return dcmerr.New(dcmerr.KindBadParameterType, "invalid VR %q", e.VR).WithDetail(e.Tag.String())
	}
	if e.VMMax != 0 && e.VMMax < e.VMMin {
		return dcmerr.New(dcmerr.KindParameterOutOfRange, "VM max %d below min %d", e.VMMax, e.VMMin).WithDetail(e.Tag.String())
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if e.PrivateCreator != "" {
		if !e.Tag.IsPrivate() {
			return dcmerr.New(dcmerr.KindBadParameterType, "private creator on a public tag").WithDetail(e.Tag.String())
		}
		key := privateKey{creator: e.PrivateCreator, group: e.Tag.Group, element: e.Tag.Element & 0x00FF}
		if existing, ok := d.private[key]; ok {
			if existing != e {
				return dcmerr.New(dcmerr.KindAlreadyExistingTag, "conflicting registration for creator %q", e.PrivateCreator).WithDetail(e.Tag.String())
			}
			return nil
		}
		d.private[key] = e
	} else {
		if existing, ok := d.public[e.Tag]; ok {
			if existing != e {
				return dcmerr.New(dcmerr.KindAlreadyExistingTag, "conflicting registration").WithDetail(e.Tag.String())
			}
			return nil
		}
		d.public[e.Tag] = e
	}

	if e.Keyword != "" {
		if _, taken := d.byKeyword[e.Keyword]; !taken {
			d.byKeyword[e.Keyword] = e
		}
	}
	return nil
}

// Lookup finds a tag that does not need a private creator.
func (d *Dictionary) Lookup(t Tag) (Entry, bool) {
	d.mu.RLock()
	e, ok := d.public[t]
	d.mu.RUnlock()
	if ok {
		return e, true
	}
	return standardEntry(t)
}

// LookupPrivate finds a private tag within the block reserved by creator,
// falling back to the creator-less lookup.
func (d *Dictionary) LookupPrivate(t Tag, creator string) (Entry, bool) {
	if t.IsPrivate() && creator != "" {
		d.mu.RLock()
		e, ok := d.private[privateKey{creator: creator, group: t.Group, element: t.Element & 0x00FF}]
		d.mu.RUnlock()
		if ok {
			e.Tag = t
			return e, true
		}
	}
	return d.Lookup(t)
}

// VR resolves the VR of a tag for implicit VR decoding. Unknown tags are UN.
func (d *Dictionary) VR(t Tag, creator string) VR {
	switch {
	case t.IsGroupLength():
		return VR_UL
	case t.IsPrivateCreator():
		return VR_LO
	}
	if e, ok := d.LookupPrivate(t, creator); ok {
		return e.VR
	}
	return VR_UN
}

// Keyword returns the dictionary keyword, or "" for unknown tags.
func (d *Dictionary) Keyword(t Tag, creator string) string {
	if e, ok := d.LookupPrivate(t, creator); ok {
		return e.Keyword
	}
	return ""
}

// ParseKeyword resolves a keyword such as "PatientName".
func (d *Dictionary) ParseKeyword(name string) (Tag, error) {
	name = strings.TrimSpace(name)
	d.mu.RLock()
	e, ok := d.byKeyword[name]
	d.mu.RUnlock()
	if ok {
		return e.Tag, nil
	}

	info, err := tag.FindByName(name)
	if err != nil {
		return Tag{}, unknownTag(name)
	}
	return Tag{Group: info.Tag.Group, Element: info.Tag.Element}, nil
}

// ParseTag accepts "0010,0010", "(0010,0010)", "00100010" or a keyword.
func (d *Dictionary) ParseTag(s string) (Tag, error) {
	if t, ok := parseHexTag(s); ok {
		return t, nil
	}
	if strings.TrimSpace(s) == "" {
		return Tag{}, unknownTag(s)
	}
	return d.ParseKeyword(s)
}

// repeatingBase masks the curve (50xx) and overlay (60xx) repeating groups.
func repeatingBase(t Tag) (Tag, bool) {
	if t.Group%2 == 0 && (t.Group&0xFF00 == 0x5000 || t.Group&0xFF00 == 0x6000) && t.Group&0x00FF != 0 {
		return Tag{Group: t.Group & 0xFF00, Element: t.Element}, true
	}
	return Tag{}, false
}

func standardEntry(t Tag) (Entry, bool) {
	info, err := tag.Find(tag.Tag{Group: t.Group, Element: t.Element})
	if err != nil {
		base, ok := repeatingBase(t)
		if !ok {
			if t.IsGroupLength() {
				return Entry{Tag: t, VR: VR_UL, Keyword: "GenericGroupLength", VMMin: 1, VMMax: 1}, true
			}
			return Entry{}, false
		}
		if info, err = tag.Find(tag.Tag{Group: base.Group, Element: base.Element}); err != nil {
			return Entry{}, false
		}
	}

	min, max := parseVM(info.VM)
	return Entry{
		Tag:     t,
		VR:      preferredVR(info.VRs),
		Keyword: info.Name,
		VMMin:   min,
		VMMax:   max,
	}, true
}

// preferredVR picks the VR used for implicit decoding when the dictionary
// lists alternatives, e.g. "OB or OW" or "US or SS".
func preferredVR(vrs []string) VR {
	if len(vrs) == 0 {
		return VR_UN
	}
	for _, candidate := range []string{"OW", "US", "SS"} {
		for _, vr := range vrs {
			if vr == candidate {
				return VR(vr)
			}
		}
	}
	if vr := VR(vrs[0]); vr.IsValid() {
		return vr
	}
	return VR_UN
}

// parseVM turns "1", "1-n", "2-2n" or "1-3" into bounds, 0 meaning unbounded.
func parseVM(vm string) (int, int) {
	vm = strings.TrimSpace(vm)
	if vm == "" {
		return 1, 1
	}
	lo, hi, found := strings.Cut(vm, "-")
	min, err := strconv.Atoi(lo)
	if err != nil {
		min = 1
	}
	if !found {
		return min, min
	}
	if strings.Contains(hi, "n") {
		return min, 0
	}
	max, err := strconv.Atoi(hi)
	if err != nil {
		return min, 0
	}
	return min, max
}

func (e Entry) String() string {
	if e.PrivateCreator != "" {
		return fmt.Sprintf("%s %s %s [%s]", e.Tag, e.VR, e.Keyword, e.PrivateCreator)
	}
	return fmt.Sprintf("%s %s %s", e.Tag, e.VR, e.Keyword)
}
