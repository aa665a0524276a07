package modification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caio-sobreiro/dicomcore/dicom"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/types"
)

var (
	privateCreator = dicom.Tag{Group: 0x0009, Element: 0x0010}
	privateSecret  = dicom.Tag{Group: 0x0009, Element: 0x1001}
	overlayData    = dicom.Tag{Group: 0x6002, Element: 0x3000}
)

func newAnonymization(t *testing.T, version DicomVersion) *Modification {
	t.Helper()
	m := New()
	require.NoError(t, m.SetupAnonymization(version))
	return m
}

func TestModification_InstanceLevelDefaults(t *testing.T) {
	inst := newInstance(t, "1.2.3.4.5")
	m := New()
	m.Replace(dicom.TagPatientName, "Smith^Jane")
	m.Remove(dicom.TagInstitutionName)
	m.Clear(dicom.TagAccessionNumber)

	require.NoError(t, m.Apply(inst))

	ds := inst.Dataset()
	assert.Equal(t, "Smith^Jane", ds.GetString(dicom.TagPatientName))
	assert.False(t, ds.Has(dicom.TagInstitutionName))
	assert.True(t, ds.Has(dicom.TagAccessionNumber))
	assert.Equal(t, "", ds.GetString(dicom.TagAccessionNumber))

	// only the instance identifier is remapped
	assert.Equal(t, "1.2.3", ds.GetString(dicom.TagStudyInstanceUID))
	assert.Equal(t, "1.2.3.4", ds.GetString(dicom.TagSeriesInstanceUID))
	assert.NotEqual(t, "1.2.3.4.5", inst.SOPInstanceUID())
	assert.True(t, dicom.IsValidUID(inst.SOPInstanceUID()))
	assert.Equal(t, inst.SOPInstanceUID(), inst.FileMeta().GetString(dicom.TagMediaStorageSOPInstanceUID))
}

func TestModification_LevelMapsIdentifiersConsistently(t *testing.T) {
	m := New()
	m.SetLevel(types.LevelStudy)

	a := newInstance(t, "1.2.3.4.5")
	b := newInstance(t, "1.2.3.4.6")
	require.NoError(t, m.Apply(a))
	require.NoError(t, m.Apply(b))

	study := a.Dataset().GetString(dicom.TagStudyInstanceUID)
	assert.NotEqual(t, "1.2.3", study)
	assert.Equal(t, study, b.Dataset().GetString(dicom.TagStudyInstanceUID))
	assert.Equal(t, a.Dataset().GetString(dicom.TagSeriesInstanceUID), b.Dataset().GetString(dicom.TagSeriesInstanceUID))
	assert.NotEqual(t, a.SOPInstanceUID(), b.SOPInstanceUID())
}

func TestModification_LastOperationWins(t *testing.T) {
	m := New()
	m.Remove(dicom.TagPatientName)
	m.Replace(dicom.TagPatientName, "X")
	assert.False(t, m.IsRemoved(dicom.TagPatientName))
	assert.True(t, m.IsReplaced(dicom.TagPatientName))

	m.Clear(dicom.TagPatientName)
	assert.False(t, m.IsReplaced(dicom.TagPatientName))
	assert.True(t, m.IsCleared(dicom.TagPatientName))

	m.Keep(dicom.TagPatientName)
	assert.False(t, m.IsCleared(dicom.TagPatientName))
	assert.True(t, m.IsKept(dicom.TagPatientName))
}

func TestModification_Guards(t *testing.T) {
	t.Run("removing an identifier", func(t *testing.T) {
		m := New()
		m.Remove(dicom.TagSeriesInstanceUID)
		assert.ErrorIs(t, m.Apply(newInstance(t, "1.2.3.4.5")), dcmerr.KindBadRequest)
	})

	t.Run("manual identifier below the level", func(t *testing.T) {
		m := New()
		m.SetLevel(types.LevelSeries)
		m.SetAllowManualIdentifiers(false)
		m.Replace(dicom.TagSOPInstanceUID, "1.2.3.9")
		assert.ErrorIs(t, m.Apply(newInstance(t, "1.2.3.4.5")), dcmerr.KindBadRequest)

		m.SetAllowManualIdentifiers(true)
		inst := newInstance(t, "1.2.3.4.5")
		require.NoError(t, m.Apply(inst))
		assert.Equal(t, "1.2.3.9", inst.SOPInstanceUID())
	})
}

func TestModification_KeepStudyInstanceUID(t *testing.T) {
	m := New()
	m.SetLevel(types.LevelStudy)
	m.Keep(dicom.TagStudyInstanceUID)

	inst := newInstance(t, "1.2.3.4.5")
	require.NoError(t, m.Apply(inst))
	assert.Equal(t, "1.2.3", inst.Dataset().GetString(dicom.TagStudyInstanceUID))
	assert.NotEqual(t, "1.2.3.4", inst.Dataset().GetString(dicom.TagSeriesInstanceUID))
}

func TestModification_SequenceOperations(t *testing.T) {
	m := New()
	m.RemovePath(mustPath(t, "ReferencedImageSequence[0].ReferencedSOPClassUID"))
	m.ReplacePath(mustPath(t, "ReferencedImageSequence[*].ReferencedSOPInstanceUID"), "7.7")

	inst := newInstance(t, "1.2.3.4.5", "1.2.3.4.6", "1.2.3.4.7")
	require.NoError(t, m.Apply(inst))

	items := inst.Dataset().Items(dicom.TagReferencedImageSequence)
	require.Len(t, items, 2)
	assert.False(t, items[0].Has(dicom.TagReferencedSOPClassUID))
	assert.True(t, items[1].Has(dicom.TagReferencedSOPClassUID))
	for _, item := range items {
		assert.Equal(t, "7.7", item.GetString(dicom.TagReferencedSOPInstanceUID))
	}
}

func TestModification_CustomGenerator(t *testing.T) {
	var seen []types.ResourceLevel
	m := New(WithIdentifierGenerator(func(original string, level types.ResourceLevel, source map[dicom.Tag]string) (string, error) {
		seen = append(seen, level)
		assert.Equal(t, "P1", source[dicom.TagPatientID])
		return "9." + original, nil
	}))

	inst := newInstance(t, "1.2.3.4.5")
	require.NoError(t, m.Apply(inst))
	assert.Equal(t, "9.1.2.3.4.5", inst.SOPInstanceUID())
	assert.Equal(t, []types.ResourceLevel{types.LevelInstance}, seen)
}

func addIdentifyingNoise(inst *dicom.ParsedInstance) {
	ds := inst.Dataset()
	ds.AddElement(privateCreator, dicom.VR_LO, dicom.StringValue("ACME"))
	ds.AddElement(privateSecret, dicom.VR_LO, dicom.StringValue("secret"))
	ds.AddElement(overlayData, dicom.VR_OW, dicom.BinaryValue([]byte{1, 2}))
	ds.SetString(dicom.TagFrameOfReferenceUID, "1.2.3.100")
}

func TestAnonymization_2021b(t *testing.T) {
	inst := newInstance(t, "1.2.3.4.5", "1.2.3.4.6")
	addIdentifyingNoise(inst)

	m := newAnonymization(t, Version2021b)
	require.NoError(t, m.Apply(inst))

	ds := inst.Dataset()
	assert.Equal(t, "YES", ds.GetString(dicom.TagPatientIdentityRemoved))
	assert.Equal(t, DeidentificationMethod2021b, ds.GetString(dicom.TagDeidentificationMethod))
	assert.Contains(t, DeidentificationMethod2021b, types.ProductName)

	for _, tag := range profile2021bRemovals {
		assert.False(t, ds.Has(tag), "%s should have been removed", tag)
	}
	assert.False(t, ds.Has(overlayData))
	assert.False(t, ds.Has(privateCreator))
	assert.False(t, ds.Has(privateSecret))

	// type 2 attributes are emptied, not removed
	assert.True(t, ds.Has(dicom.TagAccessionNumber))
	assert.Equal(t, "", ds.GetString(dicom.TagAccessionNumber))
	assert.Equal(t, "", ds.GetString(dicom.TagPatientBirthDate))

	assert.NotEqual(t, "P1", ds.GetString(dicom.TagPatientID))
	assert.NotEqual(t, "Doe^John", ds.GetString(dicom.TagPatientName))
	assert.NotEmpty(t, ds.GetString(dicom.TagPatientID))
	assert.NotEqual(t, "1.2.3", ds.GetString(dicom.TagStudyInstanceUID))
	assert.NotEqual(t, "1.2.3.4", ds.GetString(dicom.TagSeriesInstanceUID))
	assert.NotEqual(t, "1.2.3.4.5", inst.SOPInstanceUID())
	assert.NotEqual(t, "1.2.3.100", ds.GetString(dicom.TagFrameOfReferenceUID))
	assert.Equal(t, "OT", ds.GetString(dicom.TagModality))
}

func TestAnonymization_2008(t *testing.T) {
	inst := newInstance(t, "1.2.3.4.5")
	m := newAnonymization(t, Version2008)
	require.NoError(t, m.Apply(inst))

	ds := inst.Dataset()
	assert.Equal(t, DeidentificationMethod2008, ds.GetString(dicom.TagDeidentificationMethod))
	assert.False(t, ds.Has(dicom.TagAccessionNumber))
	assert.False(t, ds.Has(dicom.TagPatientBirthDate))
	assert.False(t, ds.Has(dicom.TagInstitutionName))
	assert.Equal(t, "YES", ds.GetString(dicom.TagPatientIdentityRemoved))
}

func TestAnonymization_UnknownVersion(t *testing.T) {
	_, err := ParseDicomVersion("2017c")
	assert.ErrorIs(t, err, dcmerr.KindParameterOutOfRange)

	v, err := ParseDicomVersion("")
	require.NoError(t, err)
	assert.Equal(t, Version2021b, v)

	assert.ErrorIs(t, New().SetupAnonymization("1999"), dcmerr.KindParameterOutOfRange)
}

func TestAnonymization_ReferencesStayConsistent(t *testing.T) {
	m := newAnonymization(t, Version2021b)

	// a references b inside the same series
	a := newInstance(t, "1.2.3.4.5", "1.2.3.4.6")
	b := newInstance(t, "1.2.3.4.6")
	require.NoError(t, m.Apply(a))
	require.NoError(t, m.Apply(b))

	items := a.Dataset().Items(dicom.TagReferencedImageSequence)
	require.Len(t, items, 1)
	assert.Equal(t, b.SOPInstanceUID(), items[0].GetString(dicom.TagReferencedSOPInstanceUID))
	assert.NotEqual(t, "1.2.3.4.6", b.SOPInstanceUID())

	assert.Equal(t, a.Dataset().GetString(dicom.TagPatientID), b.Dataset().GetString(dicom.TagPatientID))
	assert.Equal(t, a.Dataset().GetString(dicom.TagStudyInstanceUID), b.Dataset().GetString(dicom.TagStudyInstanceUID))
}

func TestAnonymization_WithoutRelationships(t *testing.T) {
	m := newAnonymization(t, Version2021b)
	m.SetUpdateReferencedRelationships(false)

	inst := newInstance(t, "1.2.3.4.5", "1.2.3.4.6")
	addIdentifyingNoise(inst)
	require.NoError(t, m.Apply(inst))

	ds := inst.Dataset()
	assert.False(t, ds.Has(dicom.TagReferencedImageSequence))
	assert.False(t, ds.Has(dicom.TagFrameOfReferenceUID))
	assert.NotEqual(t, "P1", ds.GetString(dicom.TagPatientID))
	assert.NotEmpty(t, ds.GetString(dicom.TagPatientID))
}

func TestAnonymization_Overrides(t *testing.T) {
	m := newAnonymization(t, Version2021b)
	m.Keep(dicom.TagInstitutionName)
	m.Keep(privateSecret)
	m.KeepPath(mustPath(t, "ReferencedImageSequence[*].ReferencedSOPInstanceUID"))
	m.Replace(dicom.TagPatientName, "Anonymous")

	inst := newInstance(t, "1.2.3.4.5", "1.2.3.4.6")
	addIdentifyingNoise(inst)
	require.NoError(t, m.Apply(inst))

	ds := inst.Dataset()
	assert.Equal(t, "General Hospital", ds.GetString(dicom.TagInstitutionName))
	assert.Equal(t, "Anonymous", ds.GetString(dicom.TagPatientName))
	assert.True(t, ds.Has(privateSecret))
	assert.True(t, ds.Has(privateCreator))
	assert.Equal(t, "1.2.3.4.6", ds.Items(dicom.TagReferencedImageSequence)[0].GetString(dicom.TagReferencedSOPInstanceUID))

	// deviating from the profile drops the method it would have claimed
	assert.False(t, ds.Has(dicom.TagDeidentificationMethod))
	assert.Equal(t, "YES", ds.GetString(dicom.TagPatientIdentityRemoved))
}

// Anonymizing an already anonymized instance only changes the freshly
// minted identifiers.
func TestAnonymization_Replay(t *testing.T) {
	src := newInstance(t, "1.2.3.4.5", "1.2.3.4.6")
	addIdentifyingNoise(src)

	anonymize := func(in *dicom.ParsedInstance) *dicom.ParsedInstance {
		out := in.Clone()
		require.NoError(t, newAnonymization(t, Version2021b).Apply(out))
		return out
	}
	first := anonymize(src)
	second := anonymize(first)

	minted := []dicom.Tag{
		dicom.TagPatientID, dicom.TagPatientName,
		dicom.TagStudyInstanceUID, dicom.TagSeriesInstanceUID, dicom.TagSOPInstanceUID,
		dicom.TagFrameOfReferenceUID, dicom.TagReferencedImageSequence,
	}
	assert.NotEqual(t, first.SOPInstanceUID(), second.SOPInstanceUID())

	strip := func(inst *dicom.ParsedInstance) *dicom.Dataset {
		ds := inst.Dataset().Clone()
		for _, tag := range minted {
			ds.Remove(tag)
		}
		return ds
	}
	assert.Equal(t, strip(first).Tags(), strip(second).Tags())
	assert.True(t, strip(first).Equal(strip(second)))
	assert.Len(t, second.Dataset().Items(dicom.TagReferencedImageSequence), 1)
}

func TestParseModifyRequest(t *testing.T) {
	tests := []struct {
		name    string
		level   types.ResourceLevel
		body    string
		wantErr error
	}{
		{"plain instance change", types.LevelInstance, `{"Replace":{"PatientName":"X"},"Remove":["InstitutionName"]}`, nil},
		{"identifier needs force", types.LevelInstance, `{"Remove":["StudyInstanceUID"]}`, dcmerr.KindBadRequest},
		{"keep needs force", types.LevelStudy, `{"Keep":["StudyInstanceUID"]}`, dcmerr.KindBadRequest},
		{"forced keep", types.LevelStudy, `{"Keep":["StudyInstanceUID"],"Force":true}`, nil},
		{"patient level without patient id", types.LevelPatient, `{"Replace":{"PatientName":"X"}}`, dcmerr.KindBadRequest},
		{"nested identifier is fine", types.LevelInstance, `{"Replace":{"ReferencedImageSequence[0].StudyInstanceUID":"1.2"}}`, nil},
		{"unknown keyword", types.LevelInstance, `{"Remove":["NoSuchTag"]}`, dcmerr.KindUnknownDicomTag},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := DecodeRequest([]byte(tt.body))
			require.NoError(t, err)

			m := New()
			m.SetLevel(tt.level)
			err = m.ParseModifyRequest(nil, req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDecodeRequest_Malformed(t *testing.T) {
	_, err := DecodeRequest([]byte(`{"Force":"yes"}`))
	assert.ErrorIs(t, err, dcmerr.KindBadFileFormat)
}

func TestParseAnonymizationRequest(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"DicomVersion":"2008","Replace":{"PatientName":"Anon","StudyDescription":"x"},"KeepPrivateTags":true}`))
	require.NoError(t, err)

	m := New()
	overridden, err := m.ParseAnonymizationRequest(nil, req)
	require.NoError(t, err)
	assert.True(t, overridden)
	assert.True(t, m.IsAnonymization())
	assert.False(t, m.RemovesPrivateTags())
	assert.Equal(t, types.LevelPatient, m.Level())

	inst := newInstance(t, "1.2.3.4.5")
	addIdentifyingNoise(inst)
	require.NoError(t, m.Apply(inst))
	ds := inst.Dataset()
	assert.Equal(t, "Anon", ds.GetString(dicom.TagPatientName))
	assert.Equal(t, "x", ds.GetString(dicom.TagStudyDescription))
	assert.True(t, ds.Has(privateSecret))
}
