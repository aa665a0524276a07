package modification

import (
	"strings"

	"github.com/caio-sobreiro/dicomcore/dicom"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/types"
)

var (
	tagReferencedFrameOfReferenceSequence = dicom.Tag{Group: 0x3006, Element: 0x0010}
	tagRTReferencedStudySequence          = dicom.Tag{Group: 0x3006, Element: 0x0012}
)

// identifiers lists the DICOM identifiers below the patient, outermost first.
var identifiers = []struct {
	tag   dicom.Tag
	level types.ResourceLevel
}{
	{dicom.TagStudyInstanceUID, types.LevelStudy},
	{dicom.TagSeriesInstanceUID, types.LevelSeries},
	{dicom.TagSOPInstanceUID, types.LevelInstance},
}

func (m *Modification) keepsIdentifier(tag dicom.Tag) bool {
	switch tag {
	case dicom.TagStudyInstanceUID:
		return m.keepStudyInstanceUID
	case dicom.TagSeriesInstanceUID:
		return m.keepSeriesInstanceUID
	case dicom.TagSOPInstanceUID:
		return m.keepSOPInstanceUID
	}
	return false
}

func (m *Modification) isManuallyModified(tag dicom.Tag) bool {
	return m.IsCleared(tag) || m.IsRemoved(tag) || m.IsReplaced(tag)
}

func (m *Modification) checkIdentifiers() error {
	for _, tag := range []dicom.Tag{dicom.TagPatientID, dicom.TagStudyInstanceUID, dicom.TagSeriesInstanceUID, dicom.TagSOPInstanceUID} {
		if m.removals.has(tag) {
			return dcmerr.New(dcmerr.KindBadRequest, "cannot remove %s, a DICOM identifier", tag)
		}
	}
	if m.allowManualIdentifiers {
		return nil
	}
	for _, id := range identifiers {
		if id.level > m.level && m.IsReplaced(id.tag) {
			return dcmerr.New(dcmerr.KindBadRequest,
				"when modifying a %s, the %s cannot be manually replaced", strings.ToLower(m.level.String()), id.tag)
		}
	}
	return nil
}

// Apply modifies inst in place. The steps run in a fixed order: private
// tags, clearings, removals, replacements, identifier mapping, references
// to identifiers, then the operations inside sequences. The File Meta
// Information follows the final SOP class and instance UIDs.
func (m *Modification) Apply(inst *dicom.ParsedInstance) error {
	if err := m.checkIdentifiers(); err != nil {
		return err
	}

	ds := inst.Dataset()
	m.currentSource = dicom.Summary(ds, 0)
	defer func() { m.currentSource = nil }()

	editor := NewEditor(inst)
	editor.PrivateCreator = m.privateCreator
	editor.DecodeDataURI = true
	editor.Logger = m.logger

	if m.isAnonymization && m.updateRelationships {
		m.registerManualIdentifiers(ds)
	}

	if m.removePrivateTags {
		keep := make(map[dicom.Tag]bool, len(m.privateTagsToKeep))
		for tag := range m.privateTagsToKeep {
			keep[tag] = true
			if creator, ok := tag.CreatorTag(); ok {
				keep[creator] = true
			}
		}
		editor.RemovePrivateTags(keep)
	}

	for tag := range m.clearings {
		if err := editor.Clear(dicom.NewPath(tag), true); err != nil {
			return err
		}
	}

	for tag := range m.removals {
		if err := editor.Remove(dicom.NewPath(tag)); err != nil {
			return err
		}
	}
	if len(m.removedRanges) > 0 {
		for _, tag := range ds.Tags() {
			if m.IsRemoved(tag) {
				ds.Remove(tag)
			}
		}
	}

	for _, tag := range m.ReplacedTags() {
		if err := editor.Replace(dicom.NewPath(tag), m.replacements[tag], InsertIfAbsent); err != nil {
			return err
		}
	}

	if err := m.mapIdentifiers(editor, ds); err != nil {
		return err
	}

	if m.isAnonymization {
		var err error
		if m.updateRelationships {
			err = m.updateReferences(ds, nil)
		} else {
			err = m.removeReferences(ds)
		}
		if err != nil {
			return err
		}
	}

	for _, path := range m.removeSequences {
		if err := editor.Remove(path); err != nil {
			return err
		}
	}
	for _, r := range m.sequenceReplacements {
		if err := editor.Replace(r.path, r.value, InsertIfAbsent); err != nil {
			return err
		}
	}

	for _, tag := range []dicom.Tag{dicom.TagSOPClassUID, dicom.TagSOPInstanceUID} {
		if el, ok := ds.GetElement(tag); ok {
			editor.syncStorageUID(tag, el.Value)
		}
	}
	return nil
}

// registerManualIdentifiers makes references to an identifier replaced by
// hand follow the replacement.
func (m *Modification) registerManualIdentifiers(ds *dicom.Dataset) {
	for _, id := range identifiers {
		mapped, ok := m.replacements[id.tag].(string)
		if !ok {
			continue
		}
		if original, ok := ds.LookupString(id.tag); ok && original != "" {
			m.RegisterMappedIdentifier(original, mapped, id.level)
		}
	}
}

func (m *Modification) mapIdentifiers(editor *Editor, ds *dicom.Dataset) error {
	for _, id := range identifiers {
		if m.level > id.level || m.IsReplaced(id.tag) {
			continue
		}
		if m.keepsIdentifier(id.tag) {
			if id.level == types.LevelStudy {
				m.logger.Warn("Modifying a study while keeping its original StudyInstanceUID: This should be avoided!")
			}
			continue
		}

		original, _ := ds.LookupString(id.tag)
		mapped, err := m.MapIdentifier(original, id.level)
		if err != nil {
			return err
		}
		if err := editor.Replace(dicom.NewPath(id.tag), mapped, InsertIfAbsent); err != nil {
			return err
		}
	}
	return nil
}

// referenceLevel returns the level at which the nested identifier tag is
// mapped, or false when it is not an identifier.
func (m *Modification) referenceLevel(parents []dicom.PathStep, tag dicom.Tag) (types.ResourceLevel, bool) {
	for _, id := range identifiers {
		if tag == id.tag {
			return id.level, !m.keepsIdentifier(tag)
		}
	}
	if !m.uids.has(tag) {
		return 0, false
	}
	switch {
	case tag == dicom.TagPatientID || tag == dicom.TagPatientName:
		return types.LevelPatient, true
	case tag == dicom.TagReferencedSOPInstanceUID && len(parents) == 2 &&
		parents[0].Tag == tagReferencedFrameOfReferenceSequence &&
		parents[1].Tag == tagRTReferencedStudySequence:
		// RT structure sets reference the study through a SOP instance UID
		return types.LevelStudy, true
	}
	return types.LevelInstance, true
}

func (m *Modification) isKeptPath(path dicom.DicomPath) bool {
	for _, pattern := range m.keepSequences {
		if ok, _ := dicom.IsMatch(pattern, path); ok {
			return true
		}
	}
	return false
}

func (m *Modification) mapValue(el *dicom.Element, level types.ResourceLevel) (dicom.Value, bool, error) {
	if el.Value.Kind() != dicom.ValueString || el.Value.IsBinary() {
		return dicom.Value{}, false, nil
	}
	original := strings.TrimSpace(el.Value.String())
	if original == "" {
		return dicom.Value{}, false, nil
	}
	mapped, err := m.MapIdentifier(original, level)
	if err != nil {
		return dicom.Value{}, false, err
	}
	return dicom.StringValue(mapped), true, nil
}

// updateReferences rewrites the identifiers found in item consistently
// with the top level. Inside sequences the removals, clearings and private
// tag removal of the profile are also applied.
func (m *Modification) updateReferences(item *dicom.Dataset, parents []dicom.PathStep) error {
	nested := len(parents) > 0

	for _, el := range item.Elements() {
		tag := el.Tag
		path := dicom.DicomPath{Prefix: parents, Final: tag}

		if nested && m.isKeptPath(path) {
			continue
		}

		if el.Value.IsSequence() {
			if nested && (m.IsRemoved(tag) || m.IsCleared(tag) || (tag.IsPrivate() && m.removePrivateTags)) {
				item.Remove(tag)
				continue
			}
			if !nested && m.isKeptPath(path) {
				continue
			}
			for i, child := range el.Value.Items() {
				step := dicom.PathStep{Tag: tag, Index: i}
				if err := m.updateReferences(child, append(parents[:len(parents):len(parents)], step)); err != nil {
					return err
				}
				child.Touch()
			}
			continue
		}

		if !nested {
			if tag.Group == 0x0002 || !m.uids.has(tag) || m.isManuallyModified(tag) {
				continue
			}
			level, _ := m.referenceLevel(nil, tag)
			v, ok, err := m.mapValue(el, level)
			if err != nil {
				return err
			}
			if ok {
				item.AddElement(tag, el.VR, v)
			}
			continue
		}

		switch {
		case tag.IsPrivate() && m.removePrivateTags && !m.privateTagsToKeep.has(tag):
			item.Remove(tag)

		case m.IsRemoved(tag):
			item.Remove(tag)

		case m.IsCleared(tag):
			item.AddElement(tag, el.VR, dicom.NullValue())

		default:
			level, ok := m.referenceLevel(parents, tag)
			if !ok {
				continue
			}
			v, ok, err := m.mapValue(el, level)
			if err != nil {
				return err
			}
			if ok {
				item.AddElement(tag, el.VR, v)
			}
		}
	}
	return nil
}

// removeReferences drops the references to identifiers instead of
// rewriting them. The patient identifiers are still mapped.
func (m *Modification) removeReferences(ds *dicom.Dataset) error {
	for _, tag := range []dicom.Tag{dicom.TagReferencedImageSequence, dicom.TagSourceImageSequence} {
		if !m.isManuallyModified(tag) {
			ds.Remove(tag)
		}
	}

	for tag := range m.uids {
		if m.isManuallyModified(tag) {
			continue
		}
		if tag != dicom.TagPatientID && tag != dicom.TagPatientName {
			ds.Remove(tag)
			continue
		}
		el, ok := ds.GetElement(tag)
		if !ok {
			continue
		}
		v, ok, err := m.mapValue(el, types.LevelPatient)
		if err != nil {
			return err
		}
		if ok {
			ds.AddElement(tag, el.VR, v)
		}
	}
	return nil
}
