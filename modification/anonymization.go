package modification

import (
	"strings"

	"github.com/caio-sobreiro/dicomcore/dicom"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/types"
)

// DicomVersion names the edition of PS3.15 whose basic profile is used
// for anonymization.
type DicomVersion string

const (
	Version2008  DicomVersion = "2008"
	Version2021b DicomVersion = "2021b"

	// DefaultVersion is used when a request names no edition.
	DefaultVersion = Version2021b
)

// ParseDicomVersion accepts "2008" and "2021b". An empty string gives
// DefaultVersion.
func ParseDicomVersion(s string) (DicomVersion, error) {
	switch strings.TrimSpace(s) {
	case "":
		return DefaultVersion, nil
	case string(Version2008):
		return Version2008, nil
	case string(Version2021b):
		return Version2021b, nil
	}
	return "", dcmerr.New(dcmerr.KindParameterOutOfRange, "unsupported version of the DICOM standard").WithDetail(s)
}

var methodPrefix = types.ProductName + " " + types.ProductVersion + " - PS 3.15-"

// Values of DeidentificationMethod written by the profiles.
var (
	DeidentificationMethod2008  = methodPrefix + "2008 Table E.1-1"
	DeidentificationMethod2021b = methodPrefix + "2021b Table E.1-1 Basic Profile"
)

func isProfileMethod(s string) bool {
	return s == DeidentificationMethod2008 || s == DeidentificationMethod2021b
}

// identifierUIDs are the tags remapped by every profile edition, so that
// studies anonymized with different editions stay consistent.
var identifierUIDs = []dicom.Tag{
	{Group: 0x0008, Element: 0x0014}, // Instance Creator UID
	{Group: 0x0008, Element: 0x1155}, // Referenced SOP Instance UID
	{Group: 0x0020, Element: 0x0052}, // Frame of Reference UID
	{Group: 0x0020, Element: 0x0200}, // Synchronization Frame of Reference UID
	{Group: 0x0040, Element: 0xA124}, // UID
	{Group: 0x0088, Element: 0x0140}, // Storage Media File-set UID
	{Group: 0x3006, Element: 0x0024}, // Referenced Frame of Reference UID
	{Group: 0x3006, Element: 0x00C2}, // Related Frame of Reference UID
}

// profile2008Removals is Table E.1-1 of PS3.15 2008, plus a few tags seen
// holding identifying data in practice.
var profile2008Removals = []dicom.Tag{
	{Group: 0x0008, Element: 0x0050}, // Accession Number
	{Group: 0x0008, Element: 0x0080}, // Institution Name
	{Group: 0x0008, Element: 0x0081}, // Institution Address
	{Group: 0x0008, Element: 0x0090}, // Referring Physician's Name
	{Group: 0x0008, Element: 0x0092}, // Referring Physician's Address
	{Group: 0x0008, Element: 0x0094}, // Referring Physician's Telephone Numbers
	{Group: 0x0008, Element: 0x1010}, // Station Name
	{Group: 0x0008, Element: 0x1030}, // Study Description
	{Group: 0x0008, Element: 0x103E}, // Series Description
	{Group: 0x0008, Element: 0x1040}, // Institutional Department Name
	{Group: 0x0008, Element: 0x1048}, // Physician(s) of Record
	{Group: 0x0008, Element: 0x1050}, // Performing Physicians' Name
	{Group: 0x0008, Element: 0x1060}, // Name of Physician(s) Reading Study
	{Group: 0x0008, Element: 0x1070}, // Operators' Name
	{Group: 0x0008, Element: 0x1080}, // Admitting Diagnoses Description
	{Group: 0x0008, Element: 0x2111}, // Derivation Description
	{Group: 0x0010, Element: 0x0030}, // Patient's Birth Date
	{Group: 0x0010, Element: 0x0032}, // Patient's Birth Time
	{Group: 0x0010, Element: 0x0040}, // Patient's Sex
	{Group: 0x0010, Element: 0x1000}, // Other Patient IDs
	{Group: 0x0010, Element: 0x1001}, // Other Patient Names
	{Group: 0x0010, Element: 0x1010}, // Patient's Age
	{Group: 0x0010, Element: 0x1020}, // Patient's Size
	{Group: 0x0010, Element: 0x1030}, // Patient's Weight
	{Group: 0x0010, Element: 0x1090}, // Medical Record Locator
	{Group: 0x0010, Element: 0x2160}, // Ethnic Group
	{Group: 0x0010, Element: 0x2180}, // Occupation
	{Group: 0x0010, Element: 0x21B0}, // Additional Patient's History
	{Group: 0x0010, Element: 0x4000}, // Patient Comments
	{Group: 0x0018, Element: 0x1000}, // Device Serial Number
	{Group: 0x0018, Element: 0x1030}, // Protocol Name
	{Group: 0x0020, Element: 0x0010}, // Study ID
	{Group: 0x0020, Element: 0x4000}, // Image Comments
	{Group: 0x0040, Element: 0x0275}, // Request Attributes Sequence
	{Group: 0x0040, Element: 0xA730}, // Content Sequence

	{Group: 0x0010, Element: 0x1040}, // Patient's Address
	{Group: 0x0032, Element: 0x1032}, // Requesting Physician
	{Group: 0x0010, Element: 0x2154}, // Patient's Telephone Numbers
	{Group: 0x0010, Element: 0x2000}, // Medical Alerts
}

func (m *Modification) addIdentifierUIDs() {
	for _, tag := range identifierUIDs {
		m.uids[tag] = struct{}{}
		delete(m.removals, tag)
	}
}

func (m *Modification) reset() {
	m.keep = tagSet{}
	m.removals = tagSet{}
	m.clearings = tagSet{}
	m.uids = tagSet{}
	m.privateTagsToKeep = tagSet{}
	m.removedRanges = nil
	m.replacements = map[dicom.Tag]any{}
	m.keepSequences = nil
	m.removeSequences = nil
	m.sequenceReplacements = nil
	m.keepStudyInstanceUID = false
	m.keepSeriesInstanceUID = false
	m.keepSOPInstanceUID = false
	clear(m.uidMap)
}

// SetupAnonymization discards every previous setting and loads the basic
// profile of the given edition: the modification works at the patient
// level, removes private tags, maps the patient name and ID to fresh
// identifiers and sets PatientIdentityRemoved and DeidentificationMethod.
// Later calls to Keep, Remove, Clear or Replace override the profile.
func (m *Modification) SetupAnonymization(version DicomVersion) error {
	m.reset()
	m.isAnonymization = true
	m.removePrivateTags = true
	m.level = types.LevelPatient

	switch version {
	case Version2008:
		m.addIdentifierUIDs()
		for _, tag := range profile2008Removals {
			m.removals[tag] = struct{}{}
		}
		m.replace(dicom.TagDeidentificationMethod, DeidentificationMethod2008, true)

	case Version2021b:
		for _, tag := range profile2021bClearings {
			m.clearings[tag] = struct{}{}
		}
		for _, tag := range profile2021bRemovals {
			m.removals[tag] = struct{}{}
		}
		for _, tag := range profile2021bUIDs {
			m.uids[tag] = struct{}{}
		}
		m.removedRanges = append(m.removedRanges, profile2021bRemovedRanges...)
		m.addIdentifierUIDs()
		m.replace(dicom.TagDeidentificationMethod, DeidentificationMethod2021b, true)

	default:
		return dcmerr.New(dcmerr.KindParameterOutOfRange, "unsupported version of the DICOM standard").WithDetail(string(version))
	}

	m.replace(dicom.TagPatientIdentityRemoved, "YES", true)
	m.uids[dicom.TagPatientID] = struct{}{}
	m.uids[dicom.TagPatientName] = struct{}{}
	return nil
}
