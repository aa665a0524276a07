package modification

import (
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/caio-sobreiro/dicomcore/dicom"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/types"
)

// IdentifierGenerator mints the replacement of an identifier. source is
// the summary of the instance being modified.
type IdentifierGenerator func(original string, level types.ResourceLevel, source map[dicom.Tag]string) (string, error)

// DefaultIdentifierGenerator returns a UUID for patients and a 2.25 UID
// for the other levels.
func DefaultIdentifierGenerator(_ string, level types.ResourceLevel, _ map[dicom.Tag]string) (string, error) {
	if level == types.LevelPatient {
		return uuid.NewString(), nil
	}
	return dicom.NewUID(), nil
}

type tagRange struct {
	groupFrom, groupTo     uint16
	elementFrom, elementTo uint16
}

func (r tagRange) contains(t dicom.Tag) bool {
	return t.Group >= r.groupFrom && t.Group <= r.groupTo &&
		t.Element >= r.elementFrom && t.Element <= r.elementTo
}

type pathReplacement struct {
	path  dicom.DicomPath
	value any
}

type uidKey struct {
	level    types.ResourceLevel
	original string
}

type tagSet map[dicom.Tag]struct{}

func (s tagSet) has(t dicom.Tag) bool {
	_, ok := s[t]
	return ok
}

// Modification is a reusable description of changes applied to instances:
// tag-level keep/remove/clear/replace, path-level operations inside
// sequences and the mapping of DICOM identifiers. Identifiers are mapped
// consistently across every instance given to Apply, so that one
// Modification can process a whole study.
//
// A Modification is not safe for concurrent use.
type Modification struct {
	level                  types.ResourceLevel
	allowManualIdentifiers bool
	updateRelationships    bool
	removePrivateTags      bool
	isAnonymization        bool
	privateCreator         string

	keep              tagSet
	removals          tagSet
	clearings         tagSet
	uids              tagSet
	privateTagsToKeep tagSet
	removedRanges     []tagRange
	replacements      map[dicom.Tag]any

	keepSequences        []dicom.DicomPath
	removeSequences      []dicom.DicomPath
	sequenceReplacements []pathReplacement

	keepStudyInstanceUID  bool
	keepSeriesInstanceUID bool
	keepSOPInstanceUID    bool

	uidMap        map[uidKey]string
	generator     IdentifierGenerator
	currentSource map[dicom.Tag]string

	logger *slog.Logger
}

// Option configures a Modification.
type Option func(*Modification)

// WithLogger sets the logger used for warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Modification) {
		m.logger = logger
	}
}

// WithIdentifierGenerator replaces the default identifier generator.
func WithIdentifierGenerator(g IdentifierGenerator) Option {
	return func(m *Modification) {
		m.generator = g
	}
}

// New returns a modification at the instance level that changes nothing
// but the SOPInstanceUID.
func New(opts ...Option) *Modification {
	m := &Modification{
		level:                  types.LevelInstance,
		allowManualIdentifiers: true,
		updateRelationships:    true,
		keep:                   tagSet{},
		removals:               tagSet{},
		clearings:              tagSet{},
		uids:                   tagSet{},
		privateTagsToKeep:      tagSet{},
		replacements:           map[dicom.Tag]any{},
		uidMap:                 map[uidKey]string{},
		generator:              DefaultIdentifierGenerator,
		logger:                 slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Modification) cancelReplacement(tag dicom.Tag) {
	delete(m.replacements, tag)
}

// markNotAnonymization drops the DeidentificationMethod written by a
// profile once the user deviates from it.
func (m *Modification) markNotAnonymization() {
	if v, ok := m.replacements[dicom.TagDeidentificationMethod].(string); ok && isProfileMethod(v) {
		delete(m.replacements, dicom.TagDeidentificationMethod)
	}
}

// Keep protects a tag from the profile. Keeping StudyInstanceUID,
// SeriesInstanceUID or SOPInstanceUID disables their remapping.
func (m *Modification) Keep(tag dicom.Tag) {
	m.keep[tag] = struct{}{}
	delete(m.removals, tag)
	delete(m.clearings, tag)
	delete(m.uids, tag)
	m.cancelReplacement(tag)

	switch {
	case tag == dicom.TagStudyInstanceUID:
		m.keepStudyInstanceUID = true
	case tag == dicom.TagSeriesInstanceUID:
		m.keepSeriesInstanceUID = true
	case tag == dicom.TagSOPInstanceUID:
		m.keepSOPInstanceUID = true
	case tag.IsPrivate():
		m.privateTagsToKeep[tag] = struct{}{}
	}
	m.markNotAnonymization()
}

// Remove marks a top-level tag for removal.
func (m *Modification) Remove(tag dicom.Tag) {
	m.removals[tag] = struct{}{}
	delete(m.clearings, tag)
	delete(m.uids, tag)
	m.cancelReplacement(tag)
	delete(m.privateTagsToKeep, tag)
	m.markNotAnonymization()
}

// Clear marks a top-level tag to be emptied when present.
func (m *Modification) Clear(tag dicom.Tag) {
	delete(m.removals, tag)
	m.clearings[tag] = struct{}{}
	delete(m.uids, tag)
	m.cancelReplacement(tag)
	delete(m.privateTagsToKeep, tag)
	m.markNotAnonymization()
}

// Replace sets a top-level tag, inserting it when absent. The value
// follows the conventions of Editor.Replace; data URIs are decoded.
func (m *Modification) Replace(tag dicom.Tag, value any) {
	m.replace(tag, value, false)
}

func (m *Modification) replace(tag dicom.Tag, value any, safeForAnonymization bool) {
	delete(m.clearings, tag)
	delete(m.removals, tag)
	delete(m.uids, tag)
	delete(m.privateTagsToKeep, tag)
	m.replacements[tag] = value
	if !safeForAnonymization {
		m.markNotAnonymization()
	}
}

// KeepPath keeps a tag or a subtree: elements matched by the path are
// left untouched by the relationship remapping.
func (m *Modification) KeepPath(path dicom.DicomPath) {
	if path.IsTopLevel() {
		m.Keep(path.Final)
	}
	m.keepSequences = append(m.keepSequences, path)
	m.markNotAnonymization()
}

// RemovePath removes a tag at any depth.
func (m *Modification) RemovePath(path dicom.DicomPath) {
	if path.IsTopLevel() {
		m.Remove(path.Final)
		return
	}
	m.removeSequences = append(m.removeSequences, path)
	m.markNotAnonymization()
}

// ReplacePath replaces a tag at any depth.
func (m *Modification) ReplacePath(path dicom.DicomPath, value any) {
	if path.IsTopLevel() {
		m.Replace(path.Final, value)
		return
	}
	m.sequenceReplacements = append(m.sequenceReplacements, pathReplacement{path: path, value: value})
	m.markNotAnonymization()
}

// IsRemoved reports removal of tag, including the removed tag ranges.
func (m *Modification) IsRemoved(tag dicom.Tag) bool {
	if m.removals.has(tag) {
		return true
	}
	for _, r := range m.removedRanges {
		if r.contains(tag) {
			return true
		}
	}
	return false
}

// IsCleared reports whether tag is emptied.
func (m *Modification) IsCleared(tag dicom.Tag) bool { return m.clearings.has(tag) }

// IsReplaced reports whether tag has a replacement value.
func (m *Modification) IsReplaced(tag dicom.Tag) bool {
	_, ok := m.replacements[tag]
	return ok
}

// IsKept reports whether tag was explicitly kept.
func (m *Modification) IsKept(tag dicom.Tag) bool { return m.keep.has(tag) }

// Replacement returns the replacement value of tag.
func (m *Modification) Replacement(tag dicom.Tag) (any, bool) {
	v, ok := m.replacements[tag]
	return v, ok
}

// ReplacedTags lists the tags with a replacement value, sorted.
func (m *Modification) ReplacedTags() []dicom.Tag {
	tags := slices.Collect(maps.Keys(m.replacements))
	slices.SortFunc(tags, compareTags)
	return tags
}

func compareTags(a, b dicom.Tag) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	}
	return 0
}

// IsAlteredTag reports whether Apply may change the top-level tag.
func (m *Modification) IsAlteredTag(tag dicom.Tag) bool {
	return m.uids.has(tag) ||
		m.IsCleared(tag) ||
		m.IsRemoved(tag) ||
		m.IsReplaced(tag) ||
		(tag.IsPrivate() && m.removePrivateTags && !m.privateTagsToKeep.has(tag)) ||
		(m.isAnonymization && (tag == dicom.TagPatientName || tag == dicom.TagPatientID)) ||
		(tag == dicom.TagStudyInstanceUID && !m.keepStudyInstanceUID) ||
		(tag == dicom.TagSeriesInstanceUID && !m.keepSeriesInstanceUID) ||
		(tag == dicom.TagSOPInstanceUID && !m.keepSOPInstanceUID)
}

// SetRemovePrivateTags toggles the removal of top-level private tags,
// except those kept explicitly.
func (m *Modification) SetRemovePrivateTags(remove bool) {
	m.removePrivateTags = remove
	if !remove {
		m.markNotAnonymization()
	}
}

// RemovesPrivateTags reports whether private tags are removed.
func (m *Modification) RemovesPrivateTags() bool { return m.removePrivateTags }

// SetLevel sets the resource level being modified. Identifiers at this
// level and below are remapped; the mapping table is reset.
func (m *Modification) SetLevel(level types.ResourceLevel) {
	clear(m.uidMap)
	m.level = level
	if level != types.LevelPatient {
		m.markNotAnonymization()
	}
}

// Level returns the resource level being modified.
func (m *Modification) Level() types.ResourceLevel { return m.level }

// SetAllowManualIdentifiers controls whether identifiers below the level
// may be replaced explicitly.
func (m *Modification) SetAllowManualIdentifiers(allow bool) {
	m.allowManualIdentifiers = allow
}

// SetUpdateReferencedRelationships selects, for anonymization, between
// remapping the UIDs referenced inside the instance (the default) and
// removing them.
func (m *Modification) SetUpdateReferencedRelationships(update bool) {
	m.updateRelationships = update
}

// SetPrivateCreator sets the creator used for private replacements.
func (m *Modification) SetPrivateCreator(creator string) {
	m.privateCreator = creator
}

// PrivateCreator returns the creator used for private replacements.
func (m *Modification) PrivateCreator() string { return m.privateCreator }

// IsAnonymization reports whether a de-identification profile was set up.
func (m *Modification) IsAnonymization() bool { return m.isAnonymization }

// RegisterMappedIdentifier forces the mapping of an identifier, unless one
// is already known.
func (m *Modification) RegisterMappedIdentifier(original, mapped string, level types.ResourceLevel) {
	key := uidKey{level: level, original: strings.TrimSpace(original)}
	if _, ok := m.uidMap[key]; !ok {
		m.uidMap[key] = mapped
	}
}

// MapIdentifier returns the replacement of an identifier at a level,
// generating it on first use.
func (m *Modification) MapIdentifier(original string, level types.ResourceLevel) (string, error) {
	key := uidKey{level: level, original: strings.TrimSpace(original)}
	if mapped, ok := m.uidMap[key]; ok {
		return mapped, nil
	}

	mapped, err := m.generator(key.original, level, m.currentSource)
	if err != nil {
		return "", dcmerr.Wrap(dcmerr.KindInternalError, err, "unable to generate an anonymized identifier")
	}
	m.uidMap[key] = mapped
	return mapped, nil
}
