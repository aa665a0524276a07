package dicom

// Well-known tags used by the engine.
var (
	TagFileMetaInformationGroupLength = Tag{0x0002, 0x0000}
	TagFileMetaInformationVersion     = Tag{0x0002, 0x0001}
	TagMediaStorageSOPClassUID        = Tag{0x0002, 0x0002}
	TagMediaStorageSOPInstanceUID     = Tag{0x0002, 0x0003}
	TagTransferSyntaxUID              = Tag{0x0002, 0x0010}
	TagImplementationClassUID         = Tag{0x0002, 0x0012}
	TagImplementationVersionName      = Tag{0x0002, 0x0013}
	TagSourceApplicationEntityTitle   = Tag{0x0002, 0x0016}

	TagSpecificCharacterSet        = Tag{0x0008, 0x0005}
	TagImageType                   = Tag{0x0008, 0x0008}
	TagInstanceCreationDate        = Tag{0x0008, 0x0012}
	TagInstanceCreationTime        = Tag{0x0008, 0x0013}
	TagSOPClassUID                 = Tag{0x0008, 0x0016}
	TagSOPInstanceUID              = Tag{0x0008, 0x0018}
	TagStudyDate                   = Tag{0x0008, 0x0020}
	TagSeriesDate                  = Tag{0x0008, 0x0021}
	TagStudyTime                   = Tag{0x0008, 0x0030}
	TagSeriesTime                  = Tag{0x0008, 0x0031}
	TagAccessionNumber             = Tag{0x0008, 0x0050}
	TagQueryRetrieveLevel          = Tag{0x0008, 0x0052}
	TagRetrieveAETitle             = Tag{0x0008, 0x0054}
	TagModality                    = Tag{0x0008, 0x0060}
	TagConversionType              = Tag{0x0008, 0x0064}
	TagManufacturer                = Tag{0x0008, 0x0070}
	TagInstitutionName             = Tag{0x0008, 0x0080}
	TagReferringPhysicianName      = Tag{0x0008, 0x0090}
	TagStationName                 = Tag{0x0008, 0x1010}
	TagStudyDescription            = Tag{0x0008, 0x1030}
	TagSeriesDescription           = Tag{0x0008, 0x103E}
	TagOperatorsName               = Tag{0x0008, 0x1070}
	TagReferencedSOPSequence       = Tag{0x0008, 0x1199}
	TagReferencedSOPClassUID       = Tag{0x0008, 0x1150}
	TagReferencedSOPInstanceUID    = Tag{0x0008, 0x1155}
	TagFailedSOPSequence           = Tag{0x0008, 0x1198}
	TagFailureReason               = Tag{0x0008, 0x1197}
	TagTransactionUID              = Tag{0x0008, 0x1195}
	TagReferencedImageSequence     = Tag{0x0008, 0x1140}
	TagSourceImageSequence         = Tag{0x0008, 0x2112}
	TagDerivationDescription       = Tag{0x0008, 0x2111}
	TagLossyImageCompression       = Tag{0x0028, 0x2110}
	TagLossyImageCompressionRatio  = Tag{0x0028, 0x2112}
	TagLossyImageCompressionMethod = Tag{0x0028, 0x2114}

	TagPatientName            = Tag{0x0010, 0x0010}
	TagPatientID              = Tag{0x0010, 0x0020}
	TagPatientBirthDate       = Tag{0x0010, 0x0030}
	TagPatientSex             = Tag{0x0010, 0x0040}
	TagOtherPatientIDs        = Tag{0x0010, 0x1000}
	TagPatientAge             = Tag{0x0010, 0x1010}
	TagPatientIdentityRemoved = Tag{0x0012, 0x0062}
	TagDeidentificationMethod = Tag{0x0012, 0x0063}

	TagBodyPartExamined                       = Tag{0x0018, 0x0015}
	TagSequenceName                           = Tag{0x0018, 0x0024}
	TagContrastBolusAgent                     = Tag{0x0018, 0x0010}
	TagCardiacNumberOfImages                  = Tag{0x0018, 0x1090}
	TagProtocolName                           = Tag{0x0018, 0x1030}
	TagAcquisitionDeviceProcessingDescription = Tag{0x0018, 0x1400}

	TagStudyInstanceUID           = Tag{0x0020, 0x000D}
	TagSeriesInstanceUID          = Tag{0x0020, 0x000E}
	TagStudyID                    = Tag{0x0020, 0x0010}
	TagSeriesNumber               = Tag{0x0020, 0x0011}
	TagAcquisitionNumber          = Tag{0x0020, 0x0012}
	TagInstanceNumber             = Tag{0x0020, 0x0013}
	TagImagePositionPatient       = Tag{0x0020, 0x0032}
	TagImageOrientationPatient    = Tag{0x0020, 0x0037}
	TagFrameOfReferenceUID        = Tag{0x0020, 0x0052}
	TagTemporalPositionIdentifier = Tag{0x0020, 0x0100}
	TagNumberOfTemporalPositions  = Tag{0x0020, 0x0105}
	TagImagesInAcquisition        = Tag{0x0020, 0x1002}
	TagImageComments              = Tag{0x0020, 0x4000}

	TagSamplesPerPixel           = Tag{0x0028, 0x0002}
	TagPhotometricInterpretation = Tag{0x0028, 0x0004}
	TagPlanarConfiguration       = Tag{0x0028, 0x0006}
	TagNumberOfFrames            = Tag{0x0028, 0x0008}
	TagRows                      = Tag{0x0028, 0x0010}
	TagColumns                   = Tag{0x0028, 0x0011}
	TagBitsAllocated             = Tag{0x0028, 0x0100}
	TagBitsStored                = Tag{0x0028, 0x0101}
	TagHighBit                   = Tag{0x0028, 0x0102}
	TagPixelRepresentation       = Tag{0x0028, 0x0103}

	TagRequestingPhysician               = Tag{0x0032, 0x1032}
	TagRequestedProcedureDescription     = Tag{0x0032, 0x1060}
	TagPerformedProcedureStepDescription = Tag{0x0040, 0x0254}
	TagEncapsulatedDocument              = Tag{0x0042, 0x0011}
	TagMIMETypeOfEncapsulatedDocument    = Tag{0x0042, 0x0012}

	TagImageIndex         = Tag{0x0054, 0x1330}
	TagNumberOfSlices     = Tag{0x0054, 0x0081}
	TagNumberOfTimeSlices = Tag{0x0054, 0x0101}
	TagSeriesType         = Tag{0x0054, 0x1000}

	TagPixelData            = Tag{0x7FE0, 0x0010}
	TagFloatPixelData       = Tag{0x7FE0, 0x0008}
	TagDoubleFloatPixelData = Tag{0x7FE0, 0x0009}

	TagItem                     = Tag{0xFFFE, 0xE000}
	TagItemDelimitationItem     = Tag{0xFFFE, 0xE00D}
	TagSequenceDelimitationItem = Tag{0xFFFE, 0xE0DD}
)

// Philips private compression of CT pixel data.
var (
	TagPhilipsPrivateCreator      = Tag{0x07A1, 0x0010}
	TagPhilipsCompressionType     = Tag{0x07A1, 0x1011}
	TagPhilipsCompressedPixelData = Tag{0x07A1, 0x100A}
)

// PhilipsPrivateCreator is the creator reserving block 10 of group 07A1.
const PhilipsPrivateCreator = "ELSCINT1"

// Query/retrieve return keys computed by the SCP.
var (
	TagModalitiesInStudy               = Tag{0x0008, 0x0061}
	TagSOPClassesInStudy               = Tag{0x0008, 0x0062}
	TagNumberOfPatientRelatedStudies   = Tag{0x0020, 0x1200}
	TagNumberOfPatientRelatedSeries    = Tag{0x0020, 0x1202}
	TagNumberOfPatientRelatedInstances = Tag{0x0020, 0x1204}
	TagNumberOfStudyRelatedSeries      = Tag{0x0020, 0x1206}
	TagNumberOfStudyRelatedInstances   = Tag{0x0020, 0x1208}
	TagNumberOfSeriesRelatedInstances  = Tag{0x0020, 0x1209}
)
