package dicom

import (
	"github.com/caio-sobreiro/dicomcore/types"
)

var mainTags = map[types.ResourceLevel][]Tag{
	types.LevelPatient: {
		TagPatientName,
		TagPatientBirthDate,
		TagPatientSex,
		TagOtherPatientIDs,
		TagPatientID,
	},
	types.LevelStudy: {
		TagStudyDate,
		TagStudyTime,
		TagStudyID,
		TagStudyDescription,
		TagAccessionNumber,
		TagStudyInstanceUID,
		TagRequestedProcedureDescription,
		TagInstitutionName,
		TagRequestingPhysician,
		TagReferringPhysicianName,
	},
	types.LevelSeries: {
		TagSeriesDate,
		TagSeriesTime,
		TagModality,
		TagManufacturer,
		TagStationName,
		TagSeriesDescription,
		TagBodyPartExamined,
		TagSequenceName,
		TagProtocolName,
		TagSeriesNumber,
		TagCardiacNumberOfImages,
		TagImagesInAcquisition,
		TagNumberOfTemporalPositions,
		TagNumberOfSlices,
		TagNumberOfTimeSlices,
		TagSeriesInstanceUID,
		TagImageOrientationPatient,
		TagSeriesType,
		TagOperatorsName,
		TagPerformedProcedureStepDescription,
		TagAcquisitionDeviceProcessingDescription,
		TagContrastBolusAgent,
	},
	types.LevelInstance: {
		TagInstanceCreationDate,
		TagInstanceCreationTime,
		TagAcquisitionNumber,
		TagImageIndex,
		TagInstanceNumber,
		TagNumberOfFrames,
		TagTemporalPositionIdentifier,
		TagSOPInstanceUID,
		TagImagePositionPatient,
		TagImageComments,
		TagImageOrientationPatient,
	},
}

// MainTags returns the tags indexed at a resource level.
func MainTags(level types.ResourceLevel) []Tag {
	return append([]Tag(nil), mainTags[level]...)
}

// IsMainTag reports whether tag is indexed at level.
func IsMainTag(level types.ResourceLevel, tag Tag) bool {
	for _, t := range mainTags[level] {
		if t == tag {
			return true
		}
	}
	return false
}

// ExtractMainTags returns the main tags of level found in ds.
func ExtractMainTags(ds *Dataset, level types.ResourceLevel) *Dataset {
	out := NewDataset()
	for _, tag := range mainTags[level] {
		if e, ok := ds.GetElement(tag); ok {
			c := *e
			c.Value = e.Value.Clone()
			out.put(&c)
		}
	}
	return out
}

// IdentifierTag is the tag identifying a resource at level.
func IdentifierTag(level types.ResourceLevel) Tag {
	switch level {
	case types.LevelPatient:
		return TagPatientID
	case types.LevelStudy:
		return TagStudyInstanceUID
	case types.LevelSeries:
		return TagSeriesInstanceUID
	}
	return TagSOPInstanceUID
}
