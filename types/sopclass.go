package types

// DICOM Application Context UID
// The Application Context defines the DICOM application-level message exchange rules.
const ApplicationContextUID = "1.2.840.10008.3.1.1.1"

// DICOM SOP Class UIDs as defined in DICOM Part 4, Annex B
// https://dicom.nema.org/medical/dicom/current/output/chtml/part04/sect_B.5.html

// Verification Service
const (
	VerificationSOPClass = "1.2.840.10008.1.1"
)

// Storage Service - Image Storage SOP Classes
const (
	// Computed Radiography
	ComputedRadiographyImageStorage = "1.2.840.10008.5.1.4.1.1.1"

	// Digital Radiography
	DigitalXRayImageStorageForPresentation            = "1.2.840.10008.5.1.4.1.1.1.1"
	DigitalXRayImageStorageForProcessing              = "1.2.840.10008.5.1.4.1.1.1.1.1"
	DigitalMammographyXRayImageStorageForPresentation = "1.2.840.10008.5.1.4.1.1.1.2"
	DigitalMammographyXRayImageStorageForProcessing   = "1.2.840.10008.5.1.4.1.1.1.2.1"
	DigitalIntraOralXRayImageStorageForPresentation   = "1.2.840.10008.5.1.4.1.1.1.3"
	DigitalIntraOralXRayImageStorageForProcessing     = "1.2.840.10008.5.1.4.1.1.1.3.1"

	// Computed Tomography
	CTImageStorage                        = "1.2.840.10008.5.1.4.1.1.2"
	EnhancedCTImageStorage                = "1.2.840.10008.5.1.4.1.1.2.1"
	LegacyConvertedEnhancedCTImageStorage = "1.2.840.10008.5.1.4.1.1.2.2"

	// Ultrasound
	UltrasoundMultiFrameImageStorage = "1.2.840.10008.5.1.4.1.1.3.1"
	UltrasoundImageStorage           = "1.2.840.10008.5.1.4.1.1.6.1"
	EnhancedUSVolumeStorage          = "1.2.840.10008.5.1.4.1.1.6.2"

	// Magnetic Resonance
	MRImageStorage                        = "1.2.840.10008.5.1.4.1.1.4"
	EnhancedMRImageStorage                = "1.2.840.10008.5.1.4.1.1.4.1"
	MRSpectroscopyStorage                 = "1.2.840.10008.5.1.4.1.1.4.2"
	EnhancedMRColorImageStorage           = "1.2.840.10008.5.1.4.1.1.4.3"
	LegacyConvertedEnhancedMRImageStorage = "1.2.840.10008.5.1.4.1.1.4.4"

	// Nuclear Medicine
	NuclearMedicineImageStorage = "1.2.840.10008.5.1.4.1.1.20"

	// Secondary Capture and Multi-frame
	SecondaryCaptureImageStorage                        = "1.2.840.10008.5.1.4.1.1.7"
	MultiFrameGrayscaleByteSecondaryCaptureImageStorage = "1.2.840.10008.5.1.4.1.1.7.1"
	MultiFrameGrayscaleWordSecondaryCaptureImageStorage = "1.2.840.10008.5.1.4.1.1.7.2"
	MultiFrameTrueColorSecondaryCaptureImageStorage     = "1.2.840.10008.5.1.4.1.1.7.3"
	MultiFrameSingleBitSecondaryCaptureImageStorage     = "1.2.840.10008.5.1.4.1.1.7.4"

	// X-Ray Angiographic
	XRayAngiographicImageStorage      = "1.2.840.10008.5.1.4.1.1.12.1"
	EnhancedXAImageStorage            = "1.2.840.10008.5.1.4.1.1.12.1.1"
	XRayRadiofluoroscopicImageStorage = "1.2.840.10008.5.1.4.1.1.12.2"
	EnhancedXRFImageStorage           = "1.2.840.10008.5.1.4.1.1.12.2.1"

	// X-Ray 3D
	XRay3DAngiographicImageStorage                  = "1.2.840.10008.5.1.4.1.1.13.1.1"
	XRay3DCraniofacialImageStorage                  = "1.2.840.10008.5.1.4.1.1.13.1.2"
	BreastTomosynthesisImageStorage                 = "1.2.840.10008.5.1.4.1.1.13.1.3"
	BreastProjectionXRayImageStorageForPresentation = "1.2.840.10008.5.1.4.1.1.13.1.4"
	BreastProjectionXRayImageStorageForProcessing   = "1.2.840.10008.5.1.4.1.1.13.1.5"

	// Intravascular Optical Coherence Tomography
	IntravascularOpticalCoherenceTomographyImageStorageForPresentation = "1.2.840.10008.5.1.4.1.1.14.1"
	IntravascularOpticalCoherenceTomographyImageStorageForProcessing   = "1.2.840.10008.5.1.4.1.1.14.2"

	// Positron Emission Tomography
	PETImageStorage                        = "1.2.840.10008.5.1.4.1.1.128"
	EnhancedPETImageStorage                = "1.2.840.10008.5.1.4.1.1.130"
	LegacyConvertedEnhancedPETImageStorage = "1.2.840.10008.5.1.4.1.1.128.1"

	// RT (Radiation Therapy)
	RTImageStorage                   = "1.2.840.10008.5.1.4.1.1.481.1"
	RTDoseStorage                    = "1.2.840.10008.5.1.4.1.1.481.2"
	RTStructureSetStorage            = "1.2.840.10008.5.1.4.1.1.481.3"
	RTBeamsTreatmentRecordStorage    = "1.2.840.10008.5.1.4.1.1.481.4"
	RTPlanStorage                    = "1.2.840.10008.5.1.4.1.1.481.5"
	RTBrachyTreatmentRecordStorage   = "1.2.840.10008.5.1.4.1.1.481.6"
	RTTreatmentSummaryRecordStorage  = "1.2.840.10008.5.1.4.1.1.481.7"
	RTIonPlanStorage                 = "1.2.840.10008.5.1.4.1.1.481.8"
	RTIonBeamsTreatmentRecordStorage = "1.2.840.10008.5.1.4.1.1.481.9"

	// Visible Light
	VLEndoscopicImageStorage                  = "1.2.840.10008.5.1.4.1.1.77.1.1"
	VLMicroscopicImageStorage                 = "1.2.840.10008.5.1.4.1.1.77.1.2"
	VLSlideCoordinatesMicroscopicImageStorage = "1.2.840.10008.5.1.4.1.1.77.1.3"
	VLPhotographicImageStorage                = "1.2.840.10008.5.1.4.1.1.77.1.4"
	VLWholeSlideMicroscopyImageStorage        = "1.2.840.10008.5.1.4.1.1.77.1.6"

	// Ophthalmic
	OphthalmicPhotography8BitImageStorage                             = "1.2.840.10008.5.1.4.1.1.77.1.5.1"
	OphthalmicPhotography16BitImageStorage                            = "1.2.840.10008.5.1.4.1.1.77.1.5.2"
	OphthalmicTomographyImageStorage                                  = "1.2.840.10008.5.1.4.1.1.77.1.5.4"
	WideFieldOphthalmicPhotographyStereographicProjectionImageStorage = "1.2.840.10008.5.1.4.1.1.77.1.5.6"
	WideFieldOphthalmicPhotography3DCoordinatesImageStorage           = "1.2.840.10008.5.1.4.1.1.77.1.5.7"
	OphthalmicOpticalCoherenceTomographyEnFaceImageStorage            = "1.2.840.10008.5.1.4.1.1.77.1.5.8"
	OphthalmicOpticalCoherenceTomographyBscanVolumeAnalysisStorage    = "1.2.840.10008.5.1.4.1.1.77.1.5.9"

	// Encapsulated Documents
	EncapsulatedPDFStorage = "1.2.840.10008.5.1.4.1.1.104.1"
	EncapsulatedCDAStorage = "1.2.840.10008.5.1.4.1.1.104.2"
	EncapsulatedSTLStorage = "1.2.840.10008.5.1.4.1.1.104.3"
	EncapsulatedOBJStorage = "1.2.840.10008.5.1.4.1.1.104.4"
	EncapsulatedMTLStorage = "1.2.840.10008.5.1.4.1.1.104.5"
)

// Query/Retrieve Service SOP Classes
const (
	// Study Root Query/Retrieve
	StudyRootQueryRetrieveInformationModelFind = "1.2.840.10008.5.1.4.1.2.2.1"
	StudyRootQueryRetrieveInformationModelMove = "1.2.840.10008.5.1.4.1.2.2.2"
	StudyRootQueryRetrieveInformationModelGet  = "1.2.840.10008.5.1.4.1.2.2.3"

	// Patient Root Query/Retrieve
	PatientRootQueryRetrieveInformationModelFind = "1.2.840.10008.5.1.4.1.2.1.1"
	PatientRootQueryRetrieveInformationModelMove = "1.2.840.10008.5.1.4.1.2.1.2"
	PatientRootQueryRetrieveInformationModelGet  = "1.2.840.10008.5.1.4.1.2.1.3"

	// Patient/Study Only Query/Retrieve
	PatientStudyOnlyQueryRetrieveInformationModelFind = "1.2.840.10008.5.1.4.1.2.3.1"
	PatientStudyOnlyQueryRetrieveInformationModelMove = "1.2.840.10008.5.1.4.1.2.3.2"
	PatientStudyOnlyQueryRetrieveInformationModelGet  = "1.2.840.10008.5.1.4.1.2.3.3"

	// Composite Instance Root Retrieve
	CompositeInstanceRootRetrieveMove = "1.2.840.10008.5.1.4.1.2.4.2"
	CompositeInstanceRootRetrieveGet  = "1.2.840.10008.5.1.4.1.2.4.3"

	// Composite Instance Retrieve Without Bulk Data
	CompositeInstanceRetrieveWithoutBulkDataGet = "1.2.840.10008.5.1.4.1.2.5.3"

	// Defined Procedure Protocol Query/Retrieve
	DefinedProcedureProtocolInformationModelFind = "1.2.840.10008.5.1.4.20.1"
	DefinedProcedureProtocolInformationModelMove = "1.2.840.10008.5.1.4.20.2"
	DefinedProcedureProtocolInformationModelGet  = "1.2.840.10008.5.1.4.20.3"
)

// Worklist Management Service SOP Classes
const (
	ModalityWorklistInformationModelFind         = "1.2.840.10008.5.1.4.31"
	GeneralPurposeWorklistInformationModelFind   = "1.2.840.10008.5.1.4.32.1"
	GeneralPurposeScheduledProcedureStepSOPClass = "1.2.840.10008.5.1.4.32.2"
	GeneralPurposePerformedProcedureStepSOPClass = "1.2.840.10008.5.1.4.32.3"
)

// Modality Performed Procedure Step
const (
	ModalityPerformedProcedureStepSOPClass             = "1.2.840.10008.3.1.2.3.3"
	ModalityPerformedProcedureStepRetrieveSOPClass     = "1.2.840.10008.3.1.2.3.4"
	ModalityPerformedProcedureStepNotificationSOPClass = "1.2.840.10008.3.1.2.3.5"
)

// Storage Commitment
const (
	StorageCommitmentPushModelSOPClass = "1.2.840.10008.1.20.1"
	StorageCommitmentPullModelSOPClass = "1.2.840.10008.1.20.2"

	// StorageCommitmentPushModelSOPInstance is the well-known instance that
	// N-ACTION and N-EVENT-REPORT requests address.
	StorageCommitmentPushModelSOPInstance = "1.2.840.10008.1.20.1.1"
)

// Unified Procedure Step
const (
	UnifiedProcedureStepPushSOPClass  = "1.2.840.10008.5.1.4.34.6.1"
	UnifiedProcedureStepWatchSOPClass = "1.2.840.10008.5.1.4.34.6.2"
	UnifiedProcedureStepPullSOPClass  = "1.2.840.10008.5.1.4.34.6.3"
	UnifiedProcedureStepEventSOPClass = "1.2.840.10008.5.1.4.34.6.4"
	UnifiedProcedureStepQuerySOPClass = "1.2.840.10008.5.1.4.34.6.5"
)

// Hanging Protocol
const (
	HangingProtocolStorage              = "1.2.840.10008.5.1.4.38.1"
	HangingProtocolInformationModelFind = "1.2.840.10008.5.1.4.38.2"
	HangingProtocolInformationModelMove = "1.2.840.10008.5.1.4.38.3"
	HangingProtocolInformationModelGet  = "1.2.840.10008.5.1.4.38.4"
)

// Color Palette
const (
	ColorPaletteStorage              = "1.2.840.10008.5.1.4.39.1"
	ColorPaletteInformationModelFind = "1.2.840.10008.5.1.4.39.2"
	ColorPaletteInformationModelMove = "1.2.840.10008.5.1.4.39.3"
	ColorPaletteInformationModelGet  = "1.2.840.10008.5.1.4.39.4"
)

// Implant Template
const (
	GenericImplantTemplateStorage               = "1.2.840.10008.5.1.4.43.1"
	GenericImplantTemplateInformationModelFind  = "1.2.840.10008.5.1.4.43.2"
	GenericImplantTemplateInformationModelMove  = "1.2.840.10008.5.1.4.43.3"
	GenericImplantTemplateInformationModelGet   = "1.2.840.10008.5.1.4.43.4"
	ImplantAssemblyTemplateStorage              = "1.2.840.10008.5.1.4.44.1"
	ImplantAssemblyTemplateInformationModelFind = "1.2.840.10008.5.1.4.44.2"
	ImplantAssemblyTemplateInformationModelMove = "1.2.840.10008.5.1.4.44.3"
	ImplantAssemblyTemplateInformationModelGet  = "1.2.840.10008.5.1.4.44.4"
	ImplantTemplateGroupStorage                 = "1.2.840.10008.5.1.4.45.1"
	ImplantTemplateGroupInformationModelFind    = "1.2.840.10008.5.1.4.45.2"
	ImplantTemplateGroupInformationModelMove    = "1.2.840.10008.5.1.4.45.3"
	ImplantTemplateGroupInformationModelGet     = "1.2.840.10008.5.1.4.45.4"
)

// SOPClassInfo provides human-readable information about a SOP Class UID
type SOPClassInfo struct {
	UID         string
	Name        string
	Category    string
	Description string
}

const (
	categoryStorage       = "Storage"
	categoryQueryRetrieve = "Query/Retrieve"
)

// GetSOPClassInfo returns information about a SOP Class UID
func GetSOPClassInfo(uid string) *SOPClassInfo {
	info, ok := sopClassRegistry[uid]
	if !ok {
		return &SOPClassInfo{
			UID:      uid,
			Name:     "Unknown",
			Category: "Unknown",
		}
	}
	return &info
}

// IsStorageSOPClass returns true if the UID is a storage SOP class
func IsStorageSOPClass(uid string) bool {
	return GetSOPClassInfo(uid).Category == categoryStorage
}

// IsQueryRetrieveSOPClass returns true if the UID is a query/retrieve SOP class
func IsQueryRetrieveSOPClass(uid string) bool {
	return GetSOPClassInfo(uid).Category == categoryQueryRetrieve
}

// StorageSOPClasses returns every registered storage SOP class, in
// registration order. The C-STORE SCP accepts exactly these.
func StorageSOPClasses() []string {
	out := make([]string, 0, len(sopClassList))
	for _, info := range sopClassList {
		if info.Category == categoryStorage {
			out = append(out, info.UID)
		}
	}
	return out
}

func sop(uid, name, category string) SOPClassInfo {
	return SOPClassInfo{UID: uid, Name: name, Category: category}
}

var sopClassList = []SOPClassInfo{
	sop(VerificationSOPClass, "Verification SOP Class", "Verification"),

	sop(ComputedRadiographyImageStorage, "Computed Radiography Image Storage", categoryStorage),
	sop(DigitalXRayImageStorageForPresentation, "Digital X-Ray Image Storage - For Presentation", categoryStorage),
	sop(DigitalXRayImageStorageForProcessing, "Digital X-Ray Image Storage - For Processing", categoryStorage),
	sop(DigitalMammographyXRayImageStorageForPresentation, "Digital Mammography X-Ray Image Storage - For Presentation", categoryStorage),
	sop(DigitalMammographyXRayImageStorageForProcessing, "Digital Mammography X-Ray Image Storage - For Processing", categoryStorage),
	sop(DigitalIntraOralXRayImageStorageForPresentation, "Digital Intra-Oral X-Ray Image Storage - For Presentation", categoryStorage),
	sop(CTImageStorage, "CT Image Storage", categoryStorage),
	sop(EnhancedCTImageStorage, "Enhanced CT Image Storage", categoryStorage),
	sop(LegacyConvertedEnhancedCTImageStorage, "Legacy Converted Enhanced CT Image Storage", categoryStorage),
	sop(UltrasoundMultiFrameImageStorage, "Ultrasound Multi-frame Image Storage", categoryStorage),
	sop(UltrasoundImageStorage, "Ultrasound Image Storage", categoryStorage),
	sop(EnhancedUSVolumeStorage, "Enhanced US Volume Storage", categoryStorage),
	sop(MRImageStorage, "MR Image Storage", categoryStorage),
	sop(EnhancedMRImageStorage, "Enhanced MR Image Storage", categoryStorage),
	sop(MRSpectroscopyStorage, "MR Spectroscopy Storage", categoryStorage),
	sop(EnhancedMRColorImageStorage, "Enhanced MR Color Image Storage", categoryStorage),
	sop(NuclearMedicineImageStorage, "Nuclear Medicine Image Storage", categoryStorage),
	sop(SecondaryCaptureImageStorage, "Secondary Capture Image Storage", categoryStorage),
	sop(MultiFrameGrayscaleByteSecondaryCaptureImageStorage, "Multi-frame Grayscale Byte Secondary Capture Image Storage", categoryStorage),
	sop(MultiFrameGrayscaleWordSecondaryCaptureImageStorage, "Multi-frame Grayscale Word Secondary Capture Image Storage", categoryStorage),
	sop(MultiFrameTrueColorSecondaryCaptureImageStorage, "Multi-frame True Color Secondary Capture Image Storage", categoryStorage),
	sop(MultiFrameSingleBitSecondaryCaptureImageStorage, "Multi-frame Single Bit Secondary Capture Image Storage", categoryStorage),
	sop(XRayAngiographicImageStorage, "X-Ray Angiographic Image Storage", categoryStorage),
	sop(EnhancedXAImageStorage, "Enhanced XA Image Storage", categoryStorage),
	sop(XRayRadiofluoroscopicImageStorage, "X-Ray Radiofluoroscopic Image Storage", categoryStorage),
	sop(BreastTomosynthesisImageStorage, "Breast Tomosynthesis Image Storage", categoryStorage),
	sop(PETImageStorage, "PET Image Storage", categoryStorage),
	sop(EnhancedPETImageStorage, "Enhanced PET Image Storage", categoryStorage),
	sop(RTImageStorage, "RT Image Storage", categoryStorage),
	sop(RTDoseStorage, "RT Dose Storage", categoryStorage),
	sop(RTStructureSetStorage, "RT Structure Set Storage", categoryStorage),
	sop(RTPlanStorage, "RT Plan Storage", categoryStorage),
	sop(RTIonPlanStorage, "RT Ion Plan Storage", categoryStorage),
	sop(VLEndoscopicImageStorage, "VL Endoscopic Image Storage", categoryStorage),
	sop(VLMicroscopicImageStorage, "VL Microscopic Image Storage", categoryStorage),
	sop(VLPhotographicImageStorage, "VL Photographic Image Storage", categoryStorage),
	sop(VLWholeSlideMicroscopyImageStorage, "VL Whole Slide Microscopy Image Storage", categoryStorage),
	sop(OphthalmicPhotography8BitImageStorage, "Ophthalmic Photography 8 Bit Image Storage", categoryStorage),
	sop(OphthalmicTomographyImageStorage, "Ophthalmic Tomography Image Storage", categoryStorage),
	sop(EncapsulatedPDFStorage, "Encapsulated PDF Storage", categoryStorage),
	sop(EncapsulatedCDAStorage, "Encapsulated CDA Storage", categoryStorage),
	sop(EncapsulatedSTLStorage, "Encapsulated STL Storage", categoryStorage),

	sop(StudyRootQueryRetrieveInformationModelFind, "Study Root Query/Retrieve - FIND", categoryQueryRetrieve),
	sop(StudyRootQueryRetrieveInformationModelMove, "Study Root Query/Retrieve - MOVE", categoryQueryRetrieve),
	sop(StudyRootQueryRetrieveInformationModelGet, "Study Root Query/Retrieve - GET", categoryQueryRetrieve),
	sop(PatientRootQueryRetrieveInformationModelFind, "Patient Root Query/Retrieve - FIND", categoryQueryRetrieve),
	sop(PatientRootQueryRetrieveInformationModelMove, "Patient Root Query/Retrieve - MOVE", categoryQueryRetrieve),
	sop(PatientRootQueryRetrieveInformationModelGet, "Patient Root Query/Retrieve - GET", categoryQueryRetrieve),
	sop(CompositeInstanceRootRetrieveMove, "Composite Instance Root Retrieve - MOVE", categoryQueryRetrieve),
	sop(CompositeInstanceRootRetrieveGet, "Composite Instance Root Retrieve - GET", categoryQueryRetrieve),

	sop(ModalityWorklistInformationModelFind, "Modality Worklist - FIND", "Worklist"),
	sop(ModalityPerformedProcedureStepSOPClass, "Modality Performed Procedure Step", "MPPS"),
	sop(StorageCommitmentPushModelSOPClass, "Storage Commitment Push Model", "Storage Commitment"),
}

// sopClassRegistry maps SOP Class UIDs to their information
var sopClassRegistry = func() map[string]SOPClassInfo {
	registry := make(map[string]SOPClassInfo, len(sopClassList))
	for _, info := range sopClassList {
		registry[info.UID] = info
	}
	return registry
}()

// commonStorageSOPClasses is the short list of storage classes an SCU
// proposes up front so that a single association can carry a whole study.
var commonStorageSOPClasses = []string{
	ComputedRadiographyImageStorage,
	DigitalXRayImageStorageForPresentation,
	DigitalMammographyXRayImageStorageForPresentation,
	CTImageStorage,
	EnhancedCTImageStorage,
	MRImageStorage,
	EnhancedMRImageStorage,
	UltrasoundImageStorage,
	UltrasoundMultiFrameImageStorage,
	NuclearMedicineImageStorage,
	SecondaryCaptureImageStorage,
	MultiFrameGrayscaleByteSecondaryCaptureImageStorage,
	MultiFrameGrayscaleWordSecondaryCaptureImageStorage,
	MultiFrameTrueColorSecondaryCaptureImageStorage,
	XRayAngiographicImageStorage,
	XRayRadiofluoroscopicImageStorage,
	PETImageStorage,
	RTImageStorage,
	RTDoseStorage,
	RTStructureSetStorage,
	RTPlanStorage,
	VLPhotographicImageStorage,
	EncapsulatedPDFStorage,
}

// CommonStorageSOPClasses returns a copy of the storage classes proposed
// by default by the C-STORE SCU.
func CommonStorageSOPClasses() []string {
	return append([]string(nil), commonStorageSOPClasses...)
}
