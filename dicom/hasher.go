package dicom

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"

	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/types"
)

// ComputeSHA1 returns the SHA-1 digest of s as five dash-separated groups
// of eight hexadecimal digits.
func ComputeSHA1(s string) string {
	sum := sha1.Sum([]byte(s))
	h := hex.EncodeToString(sum[:])
	return h[0:8] + "-" + h[8:16] + "-" + h[16:24] + "-" + h[24:32] + "-" + h[32:40]
}

// IsSHA1 reports whether s, once trimmed, has the form produced by ComputeSHA1.
func IsSHA1(s string) bool {
	s = strings.Trim(s, " \t\r\n\x00")
	if len(s) != 44 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if i%9 == 8 {
			if c != '-' {
				return false
			}
			continue
		}
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

// InstanceHasher derives the public identifiers of the four resources an
// instance belongs to.
type InstanceHasher struct {
	PatientID         string
	StudyInstanceUID  string
	SeriesInstanceUID string
	SOPInstanceUID    string
}

// NewInstanceHasher reads the identifying tags of ds. An empty PatientID is
// allowed; the three UIDs are mandatory.
func NewInstanceHasher(ds *Dataset) (*InstanceHasher, error) {
	h := &InstanceHasher{
		PatientID:         ds.GetString(TagPatientID),
		StudyInstanceUID:  ds.GetString(TagStudyInstanceUID),
		SeriesInstanceUID: ds.GetString(TagSeriesInstanceUID),
		SOPInstanceUID:    ds.GetString(TagSOPInstanceUID),
	}
	if h.StudyInstanceUID == "" || h.SeriesInstanceUID == "" || h.SOPInstanceUID == "" {
		return nil, dcmerr.New(dcmerr.KindBadFileFormat, "missing StudyInstanceUID, SeriesInstanceUID or SOPInstanceUID")
	}
	return h, nil
}

// PatientHash identifies the patient.
func (h *InstanceHasher) PatientHash() string {
	return ComputeSHA1(h.PatientID)
}

// StudyHash identifies the study.
func (h *InstanceHasher) StudyHash() string {
	return ComputeSHA1(h.PatientID + "|" + h.StudyInstanceUID)
}

// SeriesHash identifies the series.
func (h *InstanceHasher) SeriesHash() string {
	return ComputeSHA1(h.PatientID + "|" + h.StudyInstanceUID + "|" + h.SeriesInstanceUID)
}

// InstanceHash identifies the instance.
func (h *InstanceHasher) InstanceHash() string {
	return ComputeSHA1(h.PatientID + "|" + h.StudyInstanceUID + "|" + h.SeriesInstanceUID + "|" + h.SOPInstanceUID)
}

// Hash returns the identifier at level.
func (h *InstanceHasher) Hash(level types.ResourceLevel) string {
	switch level {
	case types.LevelPatient:
		return h.PatientHash()
	case types.LevelStudy:
		return h.StudyHash()
	case types.LevelSeries:
		return h.SeriesHash()
	}
	return h.InstanceHash()
}
