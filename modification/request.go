package modification

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/caio-sobreiro/dicomcore/dicom"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/types"
)

// Request is the JSON body of a modification or anonymization. Tags in
// Remove, Keep and the keys of Replace are DICOM paths, with tags given
// by keyword or as gggg,eeee.
type Request struct {
	Replace           map[string]any `json:"Replace,omitempty"`
	Remove            []string       `json:"Remove,omitempty"`
	Keep              []string       `json:"Keep,omitempty"`
	Force             bool           `json:"Force,omitempty"`
	RemovePrivateTags bool           `json:"RemovePrivateTags,omitempty"`
	KeepPrivateTags   bool           `json:"KeepPrivateTags,omitempty"`
	PrivateCreator    string         `json:"PrivateCreator,omitempty"`
	DicomVersion      string         `json:"DicomVersion,omitempty"`
}

// DecodeRequest reads a request, keeping numbers as json.Number.
func DecodeRequest(data []byte) (*Request, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var req Request
	if err := dec.Decode(&req); err != nil {
		return nil, dcmerr.Wrap(dcmerr.KindBadFileFormat, err, "malformed modification request")
	}
	return &req, nil
}

func isDatabaseKey(tag dicom.Tag) bool {
	return tag == dicom.TagPatientID ||
		tag == dicom.TagStudyInstanceUID ||
		tag == dicom.TagSeriesInstanceUID ||
		tag == dicom.TagSOPInstanceUID
}

type tagOperation int

const (
	operationRemove tagOperation = iota
	operationKeep
)

func (op tagOperation) String() string {
	if op == operationKeep {
		return "keep"
	}
	return "remove"
}

func (m *Modification) parseTags(env *dicom.Environment, names []string, op tagOperation, force bool) error {
	for _, name := range names {
		path, err := env.ParsePath(name)
		if err != nil {
			return err
		}
		if path.IsTopLevel() && !force && isDatabaseKey(path.Final) {
			verb := "removed"
			if op == operationKeep {
				verb = "kept"
			}
			return dcmerr.New(dcmerr.KindBadRequest,
				"marking tag %q as to be %s requires the \"Force\" option to be set to true", name, verb)
		}

		switch op {
		case operationKeep:
			m.KeepPath(path)
		case operationRemove:
			m.RemovePath(path)
		}
		m.logger.Debug("Modification request", "operation", op, "path", path.Format())
	}
	return nil
}

func (m *Modification) parseReplacements(env *dicom.Environment, replacements map[string]any, force bool) error {
	for name, value := range replacements {
		path, err := env.ParsePath(name)
		if err != nil {
			return err
		}
		if path.IsTopLevel() && !force && isDatabaseKey(path.Final) {
			return dcmerr.New(dcmerr.KindBadRequest,
				"marking tag %q as to be replaced requires the \"Force\" option to be set to true", name)
		}
		m.ReplacePath(path, value)
		m.logger.Debug("Modification request", "operation", "replace", "path", path.Format())
	}
	return nil
}

// ParseModifyRequest loads a modification of a resource at the current
// level. Without Force, DICOM identifiers cannot be named at all, and the
// PatientID must be replaced exactly when modifying a patient.
func (m *Modification) ParseModifyRequest(env *dicom.Environment, req *Request) error {
	if env == nil {
		env = dicom.Default()
	}
	if req.RemovePrivateTags {
		m.SetRemovePrivateTags(true)
	}
	if err := m.parseTags(env, req.Remove, operationRemove, req.Force); err != nil {
		return err
	}
	if err := m.parseReplacements(env, req.Replace, req.Force); err != nil {
		return err
	}
	if err := m.parseTags(env, req.Keep, operationKeep, req.Force); err != nil {
		return err
	}
	if req.PrivateCreator != "" {
		m.privateCreator = req.PrivateCreator
	}

	if req.Force {
		return nil
	}
	return m.checkManualIdentifiers()
}

func (m *Modification) checkManualIdentifiers() error {
	replacedPatientID := m.IsReplaced(dicom.TagPatientID) || m.uids.has(dicom.TagPatientID)
	parentCannot := func(tag string) error {
		return dcmerr.New(dcmerr.KindBadRequest, "when modifying a %s, the parent %s cannot be manually modified",
			strings.ToLower(m.level.String()), tag)
	}

	switch m.level {
	case types.LevelPatient:
		if !replacedPatientID {
			return dcmerr.New(dcmerr.KindBadRequest, "when modifying a patient, the PatientID is required to be modified")
		}
	case types.LevelStudy:
		if replacedPatientID {
			return parentCannot("PatientID")
		}
	case types.LevelSeries:
		if replacedPatientID {
			return parentCannot("PatientID")
		}
		if m.IsReplaced(dicom.TagStudyInstanceUID) {
			return parentCannot("StudyInstanceUID")
		}
	case types.LevelInstance:
		if replacedPatientID {
			return parentCannot("PatientID")
		}
		if m.IsReplaced(dicom.TagStudyInstanceUID) {
			return parentCannot("StudyInstanceUID")
		}
		if m.IsReplaced(dicom.TagSeriesInstanceUID) {
			return parentCannot("SeriesInstanceUID")
		}
	default:
		return dcmerr.New(dcmerr.KindParameterOutOfRange, "unknown resource level %d", int(m.level))
	}
	return nil
}

// ParseAnonymizationRequest sets up the requested profile edition, then
// applies the overrides of the request. The boolean reports whether the
// request gave its own PatientName, which is then not mapped.
func (m *Modification) ParseAnonymizationRequest(env *dicom.Environment, req *Request) (bool, error) {
	if env == nil {
		env = dicom.Default()
	}
	version, err := ParseDicomVersion(req.DicomVersion)
	if err != nil {
		return false, err
	}
	if err := m.SetupAnonymization(version); err != nil {
		return false, err
	}

	if req.KeepPrivateTags {
		m.SetRemovePrivateTags(false)
	}
	if err := m.parseTags(env, req.Remove, operationRemove, req.Force); err != nil {
		return false, err
	}
	if err := m.parseReplacements(env, req.Replace, req.Force); err != nil {
		return false, err
	}
	if err := m.parseTags(env, req.Keep, operationKeep, req.Force); err != nil {
		return false, err
	}
	if req.PrivateCreator != "" {
		m.privateCreator = req.PrivateCreator
	}
	return !m.uids.has(dicom.TagPatientName), nil
}
