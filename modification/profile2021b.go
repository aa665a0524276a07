package modification

import "github.com/caio-sobreiro/dicomcore/dicom"

// Table E.1-1 of PS3.15 2021b, basic profile column. StudyInstanceUID,
// SeriesInstanceUID and SOPInstanceUID are mapped by Apply, the patient
// identifiers are added by setupAnonymization, and MediaStorageSOPInstanceUID
// follows SOPInstanceUID.
var profile2021bClearings = []dicom.Tag{
	{Group: 0x0008, Element: 0x0020}, // Study Date
	{Group: 0x0008, Element: 0x0023}, // Content Date
	{Group: 0x0008, Element: 0x0030}, // Study Time
	{Group: 0x0008, Element: 0x0033}, // Content Time
	{Group: 0x0008, Element: 0x0050}, // Accession Number
	{Group: 0x0008, Element: 0x0090}, // Referring Physician's Name
	{Group: 0x0008, Element: 0x009c}, // Consulting Physician's Name
	{Group: 0x0010, Element: 0x0030}, // Patient's Birth Date
	{Group: 0x0010, Element: 0x0040}, // Patient's Sex
	{Group: 0x0012, Element: 0x0010}, // Clinical Trial Sponsor Name
	{Group: 0x0012, Element: 0x0020}, // Clinical Trial Protocol ID
	{Group: 0x0012, Element: 0x0021}, // Clinical Trial Protocol Name
	{Group: 0x0012, Element: 0x0030}, // Clinical Trial Site ID
	{Group: 0x0012, Element: 0x0031}, // Clinical Trial Site Name
	{Group: 0x0012, Element: 0x0040}, // Clinical Trial Subject ID
	{Group: 0x0012, Element: 0x0042}, // Clinical Trial Subject Reading ID
	{Group: 0x0012, Element: 0x0050}, // Clinical Trial Time Point ID
	{Group: 0x0012, Element: 0x0060}, // Clinical Trial Coordinating Center Name
	{Group: 0x0012, Element: 0x0081}, // Clinical Trial Protocol Ethics Committee Name
	{Group: 0x0018, Element: 0x0010}, // Contrast/Bolus Agent
	{Group: 0x0018, Element: 0x11bb}, // Acquisition Field Of View Label
	{Group: 0x0018, Element: 0x9367}, // X-Ray Source ID
	{Group: 0x0018, Element: 0x9369}, // Source Start DateTime
	{Group: 0x0018, Element: 0x936a}, // Source End DateTime
	{Group: 0x0018, Element: 0x9371}, // X-Ray Detector ID
	{Group: 0x0020, Element: 0x0010}, // Study ID
	{Group: 0x0034, Element: 0x0001}, // Flow Identifier Sequence
	{Group: 0x0034, Element: 0x0002}, // Flow Identifier
	{Group: 0x0034, Element: 0x0005}, // Source Identifier
	{Group: 0x0034, Element: 0x0007}, // Frame Origin Timestamp
	{Group: 0x003a, Element: 0x0314}, // Impedance Measurement DateTime
	{Group: 0x0040, Element: 0x0512}, // Container Identifier
	{Group: 0x0040, Element: 0x0513}, // Issuer of the Container Identifier Sequence
	{Group: 0x0040, Element: 0x0551}, // Specimen Identifier
	{Group: 0x0040, Element: 0x0562}, // Issuer of the Specimen Identifier Sequence
	{Group: 0x0040, Element: 0x0610}, // Specimen Preparation Sequence
	{Group: 0x0040, Element: 0x1101}, // Person Identification Code Sequence
	{Group: 0x0040, Element: 0x2016}, // Placer Order Number / Imaging Service Request
	{Group: 0x0040, Element: 0x2017}, // Filler Order Number / Imaging Service Request
	{Group: 0x0040, Element: 0xa027}, // Verifying Organization
	{Group: 0x0040, Element: 0xa073}, // Verifying Observer Sequence
	{Group: 0x0040, Element: 0xa075}, // Verifying Observer Name
	{Group: 0x0040, Element: 0xa088}, // Verifying Observer Identification Code Sequence
	{Group: 0x0040, Element: 0xa123}, // Person Name
	{Group: 0x0040, Element: 0xa730}, // Content Sequence
	{Group: 0x0070, Element: 0x0001}, // Graphic Annotation Sequence
	{Group: 0x0070, Element: 0x0084}, // Content Creator's Name
	{Group: 0x3006, Element: 0x0002}, // Structure Set Label
	{Group: 0x3006, Element: 0x0008}, // Structure Set Date
	{Group: 0x3006, Element: 0x0009}, // Structure Set Time
	{Group: 0x3006, Element: 0x0026}, // ROI Name
	{Group: 0x3006, Element: 0x00a6}, // ROI Interpreter
	{Group: 0x300a, Element: 0x0002}, // RT Plan Label
	{Group: 0x300a, Element: 0x0608}, // Treatment Position Group Label
	{Group: 0x300a, Element: 0x0611}, // RT Accessory Holder Slot ID
	{Group: 0x300a, Element: 0x0615}, // RT Accessory Device Slot ID
	{Group: 0x300a, Element: 0x0619}, // Radiation Dose Identification Label
	{Group: 0x300a, Element: 0x0623}, // Radiation Dose In-Vivo Measurement Label
	{Group: 0x300a, Element: 0x062a}, // RT Tolerance Set Label
	{Group: 0x300a, Element: 0x067c}, // Radiation Generation Mode Label
	{Group: 0x300a, Element: 0x067d}, // Radiation Generation Mode Description
	{Group: 0x300a, Element: 0x0734}, // Treatment Tolerance Violation Description
	{Group: 0x300a, Element: 0x0736}, // Treatment Tolerance Violation DateTime
	{Group: 0x300a, Element: 0x073a}, // Recorded RT Control Point DateTime
	{Group: 0x300a, Element: 0x0741}, // Interlock DateTime
	{Group: 0x300a, Element: 0x0742}, // Interlock Description
	{Group: 0x300a, Element: 0x0760}, // Override DateTime
	{Group: 0x300a, Element: 0x0783}, // Interlock Origin Description
	{Group: 0x3010, Element: 0x000f}, // Conceptual Volume Combination Description
	{Group: 0x3010, Element: 0x0017}, // Conceptual Volume Description
	{Group: 0x3010, Element: 0x001b}, // Device Alternate Identifier
	{Group: 0x3010, Element: 0x002d}, // Device Label
	{Group: 0x3010, Element: 0x0033}, // User Content Label
	{Group: 0x3010, Element: 0x0034}, // User Content Long Label
	{Group: 0x3010, Element: 0x0035}, // Entity Label
	{Group: 0x3010, Element: 0x0038}, // Entity Long Label
	{Group: 0x3010, Element: 0x0043}, // Manufacturer's Device Identifier
	{Group: 0x3010, Element: 0x0054}, // RT Prescription Label
	{Group: 0x3010, Element: 0x005a}, // RT Physician Intent Narrative
	{Group: 0x3010, Element: 0x005c}, // Reason for Superseding
	{Group: 0x3010, Element: 0x0077}, // Treatment Site
	{Group: 0x3010, Element: 0x007a}, // Treatment Technique Notes
	{Group: 0x3010, Element: 0x007b}, // Prescription Notes
	{Group: 0x3010, Element: 0x007f}, // Fractionation Notes
	{Group: 0x3010, Element: 0x0081}, // Prescription Notes Sequence
}

var profile2021bRemovals = []dicom.Tag{
	{Group: 0x0000, Element: 0x1000}, // Affected SOP Instance UID
	{Group: 0x0008, Element: 0x0015}, // Instance Coercion DateTime
	{Group: 0x0008, Element: 0x0021}, // Series Date
	{Group: 0x0008, Element: 0x0022}, // Acquisition Date
	{Group: 0x0008, Element: 0x0024}, // Overlay Date
	{Group: 0x0008, Element: 0x0025}, // Curve Date
	{Group: 0x0008, Element: 0x002a}, // Acquisition DateTime
	{Group: 0x0008, Element: 0x0031}, // Series Time
	{Group: 0x0008, Element: 0x0032}, // Acquisition Time
	{Group: 0x0008, Element: 0x0034}, // Overlay Time
	{Group: 0x0008, Element: 0x0035}, // Curve Time
	{Group: 0x0008, Element: 0x0080}, // Institution Name
	{Group: 0x0008, Element: 0x0081}, // Institution Address
	{Group: 0x0008, Element: 0x0082}, // Institution Code Sequence
	{Group: 0x0008, Element: 0x0092}, // Referring Physician's Address
	{Group: 0x0008, Element: 0x0094}, // Referring Physician's Telephone Numbers
	{Group: 0x0008, Element: 0x0096}, // Referring Physician Identification Sequence
	{Group: 0x0008, Element: 0x009d}, // Consulting Physician Identification Sequence
	{Group: 0x0008, Element: 0x0201}, // Timezone Offset From UTC
	{Group: 0x0008, Element: 0x1010}, // Station Name
	{Group: 0x0008, Element: 0x1030}, // Study Description
	{Group: 0x0008, Element: 0x103e}, // Series Description
	{Group: 0x0008, Element: 0x1040}, // Institutional Department Name
	{Group: 0x0008, Element: 0x1041}, // Institutional Department Type Code Sequence
	{Group: 0x0008, Element: 0x1048}, // Physician(s) of Record
	{Group: 0x0008, Element: 0x1049}, // Physician(s) of Record Identification Sequence
	{Group: 0x0008, Element: 0x1050}, // Performing Physician's Name
	{Group: 0x0008, Element: 0x1052}, // Performing Physician Identification Sequence
	{Group: 0x0008, Element: 0x1060}, // Name of Physician(s) Reading Study
	{Group: 0x0008, Element: 0x1062}, // Physician(s) Reading Study Identification Sequence
	{Group: 0x0008, Element: 0x1070}, // Operators' Name
	{Group: 0x0008, Element: 0x1072}, // Operator Identification Sequence
	{Group: 0x0008, Element: 0x1080}, // Admitting Diagnoses Description
	{Group: 0x0008, Element: 0x1084}, // Admitting Diagnoses Code Sequence
	{Group: 0x0008, Element: 0x1110}, // Referenced Study Sequence
	{Group: 0x0008, Element: 0x1111}, // Referenced Performed Procedure Step Sequence
	{Group: 0x0008, Element: 0x1120}, // Referenced Patient Sequence
	{Group: 0x0008, Element: 0x2111}, // Derivation Description
	{Group: 0x0008, Element: 0x4000}, // Identifying Comments
	{Group: 0x0010, Element: 0x0021}, // Issuer of Patient ID
	{Group: 0x0010, Element: 0x0032}, // Patient's Birth Time
	{Group: 0x0010, Element: 0x0050}, // Patient's Insurance Plan Code Sequence
	{Group: 0x0010, Element: 0x0101}, // Patient's Primary Language Code Sequence
	{Group: 0x0010, Element: 0x0102}, // Patient's Primary Language Modifier Code Sequence
	{Group: 0x0010, Element: 0x1000}, // Other Patient IDs
	{Group: 0x0010, Element: 0x1001}, // Other Patient Names
	{Group: 0x0010, Element: 0x1002}, // Other Patient IDs Sequence
	{Group: 0x0010, Element: 0x1005}, // Patient's Birth Name
	{Group: 0x0010, Element: 0x1010}, // Patient's Age
	{Group: 0x0010, Element: 0x1020}, // Patient's Size
	{Group: 0x0010, Element: 0x1030}, // Patient's Weight
	{Group: 0x0010, Element: 0x1040}, // Patient's Address
	{Group: 0x0010, Element: 0x1050}, // Insurance Plan Identification
	{Group: 0x0010, Element: 0x1060}, // Patient's Mother's Birth Name
	{Group: 0x0010, Element: 0x1080}, // Military Rank
	{Group: 0x0010, Element: 0x1081}, // Branch of Service
	{Group: 0x0010, Element: 0x1090}, // Medical Record Locator
	{Group: 0x0010, Element: 0x1100}, // Referenced Patient Photo Sequence
	{Group: 0x0010, Element: 0x2000}, // Medical Alerts
	{Group: 0x0010, Element: 0x2110}, // Allergies
	{Group: 0x0010, Element: 0x2150}, // Country of Residence
	{Group: 0x0010, Element: 0x2152}, // Region of Residence
	{Group: 0x0010, Element: 0x2154}, // Patient's Telephone Numbers
	{Group: 0x0010, Element: 0x2155}, // Patient's Telecom Information
	{Group: 0x0010, Element: 0x2160}, // Ethnic Group
	{Group: 0x0010, Element: 0x2180}, // Occupation
	{Group: 0x0010, Element: 0x21a0}, // Smoking Status
	{Group: 0x0010, Element: 0x21b0}, // Additional Patient History
	{Group: 0x0010, Element: 0x21c0}, // Pregnancy Status
	{Group: 0x0010, Element: 0x21d0}, // Last Menstrual Date
	{Group: 0x0010, Element: 0x21f0}, // Patient's Religious Preference
	{Group: 0x0010, Element: 0x2203}, // Patient's Sex Neutered
	{Group: 0x0010, Element: 0x2297}, // Responsible Person
	{Group: 0x0010, Element: 0x2299}, // Responsible Organization
	{Group: 0x0010, Element: 0x4000}, // Patient Comments
	{Group: 0x0012, Element: 0x0051}, // Clinical Trial Time Point Description
	{Group: 0x0012, Element: 0x0071}, // Clinical Trial Series ID
	{Group: 0x0012, Element: 0x0072}, // Clinical Trial Series Description
	{Group: 0x0012, Element: 0x0082}, // Clinical Trial Protocol Ethics Committee Approval Number
	{Group: 0x0016, Element: 0x002b}, // Maker Note
	{Group: 0x0016, Element: 0x004b}, // Device Setting Description
	{Group: 0x0016, Element: 0x004d}, // Camera Owner Name
	{Group: 0x0016, Element: 0x004e}, // Lens Specification
	{Group: 0x0016, Element: 0x004f}, // Lens Make
	{Group: 0x0016, Element: 0x0050}, // Lens Model
	{Group: 0x0016, Element: 0x0051}, // Lens Serial Number
	{Group: 0x0016, Element: 0x0070}, // GPS Version ID
	{Group: 0x0016, Element: 0x0071}, // GPS Latitude Ref
	{Group: 0x0016, Element: 0x0072}, // GPS Latitude
	{Group: 0x0016, Element: 0x0073}, // GPS Longitude Ref
	{Group: 0x0016, Element: 0x0074}, // GPS Longitude
	{Group: 0x0016, Element: 0x0075}, // GPS Altitude Ref
	{Group: 0x0016, Element: 0x0076}, // GPS Altitude
	{Group: 0x0016, Element: 0x0077}, // GPS Time Stamp
	{Group: 0x0016, Element: 0x0078}, // GPS Satellites
	{Group: 0x0016, Element: 0x0079}, // GPS Status
	{Group: 0x0016, Element: 0x007a}, // GPS Measure Mode
	{Group: 0x0016, Element: 0x007b}, // GPS DOP
	{Group: 0x0016, Element: 0x007c}, // GPS Speed Ref
	{Group: 0x0016, Element: 0x007d}, // GPS Speed
	{Group: 0x0016, Element: 0x007e}, // GPS Track Ref
	{Group: 0x0016, Element: 0x007f}, // GPS Track
	{Group: 0x0016, Element: 0x0080}, // GPS Img Direction Ref
	{Group: 0x0016, Element: 0x0081}, // GPS Img Direction
	{Group: 0x0016, Element: 0x0082}, // GPS Map Datum
	{Group: 0x0016, Element: 0x0083}, // GPS Dest Latitude Ref
	{Group: 0x0016, Element: 0x0084}, // GPS Dest Latitude
	{Group: 0x0016, Element: 0x0085}, // GPS Dest Longitude Ref
	{Group: 0x0016, Element: 0x0086}, // GPS Dest Longitude
	{Group: 0x0016, Element: 0x0087}, // GPS Dest Bearing Ref
	{Group: 0x0016, Element: 0x0088}, // GPS Dest Bearing
	{Group: 0x0016, Element: 0x0089}, // GPS Dest Distance Ref
	{Group: 0x0016, Element: 0x008a}, // GPS Dest Distance
	{Group: 0x0016, Element: 0x008b}, // GPS Processing Method
	{Group: 0x0016, Element: 0x008c}, // GPS Area Information
	{Group: 0x0016, Element: 0x008d}, // GPS Date Stamp
	{Group: 0x0016, Element: 0x008e}, // GPS Differential
	{Group: 0x0018, Element: 0x1000}, // Device Serial Number
	{Group: 0x0018, Element: 0x1004}, // Plate ID
	{Group: 0x0018, Element: 0x1005}, // Generator ID
	{Group: 0x0018, Element: 0x1007}, // Cassette ID
	{Group: 0x0018, Element: 0x1008}, // Gantry ID
	{Group: 0x0018, Element: 0x1009}, // Unique Device Identifier
	{Group: 0x0018, Element: 0x100a}, // UDI Sequence
	{Group: 0x0018, Element: 0x1030}, // Protocol Name
	{Group: 0x0018, Element: 0x1400}, // Acquisition Device Processing Description
	{Group: 0x0018, Element: 0x4000}, // Acquisition Comments
	{Group: 0x0018, Element: 0x5011}, // Transducer Identification Sequence
	{Group: 0x0018, Element: 0x700a}, // Detector ID
	{Group: 0x0018, Element: 0x9185}, // Respiratory Motion Compensation Technique Description
	{Group: 0x0018, Element: 0x9373}, // X-Ray Detector Label
	{Group: 0x0018, Element: 0x937b}, // Multi-energy Acquisition Description
	{Group: 0x0018, Element: 0x937f}, // Decomposition Description
	{Group: 0x0018, Element: 0x9424}, // Acquisition Protocol Description
	{Group: 0x0018, Element: 0x9516}, // Start Acquisition DateTime
	{Group: 0x0018, Element: 0x9517}, // End Acquisition DateTime
	{Group: 0x0018, Element: 0x9937}, // Requested Series Description
	{Group: 0x0018, Element: 0xa003}, // Contribution Description
	{Group: 0x0020, Element: 0x3401}, // Modifying Device ID
	{Group: 0x0020, Element: 0x3406}, // Modified Image Description
	{Group: 0x0020, Element: 0x4000}, // Image Comments
	{Group: 0x0020, Element: 0x9158}, // Frame Comments
	{Group: 0x0028, Element: 0x4000}, // Image Presentation Comments
	{Group: 0x0032, Element: 0x0012}, // Study ID Issuer
	{Group: 0x0032, Element: 0x1020}, // Scheduled Study Location
	{Group: 0x0032, Element: 0x1021}, // Scheduled Study Location AE Title
	{Group: 0x0032, Element: 0x1030}, // Reason for Study
	{Group: 0x0032, Element: 0x1032}, // Requesting Physician
	{Group: 0x0032, Element: 0x1033}, // Requesting Service
	{Group: 0x0032, Element: 0x1060}, // Requested Procedure Description
	{Group: 0x0032, Element: 0x1066}, // Reason for Visit
	{Group: 0x0032, Element: 0x1067}, // Reason for Visit Code Sequence
	{Group: 0x0032, Element: 0x1070}, // Requested Contrast Agent
	{Group: 0x0032, Element: 0x4000}, // Study Comments
	{Group: 0x0038, Element: 0x0004}, // Referenced Patient Alias Sequence
	{Group: 0x0038, Element: 0x0010}, // Admission ID
	{Group: 0x0038, Element: 0x0011}, // Issuer of Admission ID
	{Group: 0x0038, Element: 0x0014}, // Issuer of Admission ID Sequence
	{Group: 0x0038, Element: 0x001e}, // Scheduled Patient Institution Residence
	{Group: 0x0038, Element: 0x0020}, // Admitting Date
	{Group: 0x0038, Element: 0x0021}, // Admitting Time
	{Group: 0x0038, Element: 0x0040}, // Discharge Diagnosis Description
	{Group: 0x0038, Element: 0x0050}, // Special Needs
	{Group: 0x0038, Element: 0x0060}, // Service Episode ID
	{Group: 0x0038, Element: 0x0061}, // Issuer of Service Episode ID
	{Group: 0x0038, Element: 0x0062}, // Service Episode Description
	{Group: 0x0038, Element: 0x0064}, // Issuer of Service Episode ID Sequence
	{Group: 0x0038, Element: 0x0300}, // Current Patient Location
	{Group: 0x0038, Element: 0x0400}, // Patient's Institution Residence
	{Group: 0x0038, Element: 0x0500}, // Patient State
	{Group: 0x0038, Element: 0x4000}, // Visit Comments
	{Group: 0x0040, Element: 0x0001}, // Scheduled Station AE Title
	{Group: 0x0040, Element: 0x0002}, // Scheduled Procedure Step Start Date
	{Group: 0x0040, Element: 0x0003}, // Scheduled Procedure Step Start Time
	{Group: 0x0040, Element: 0x0004}, // Scheduled Procedure Step End Date
	{Group: 0x0040, Element: 0x0005}, // Scheduled Procedure Step End Time
	{Group: 0x0040, Element: 0x0006}, // Scheduled Performing Physician's Name
	{Group: 0x0040, Element: 0x0007}, // Scheduled Procedure Step Description
	{Group: 0x0040, Element: 0x0009}, // Scheduled Procedure Step ID
	{Group: 0x0040, Element: 0x000b}, // Scheduled Performing Physician Identification Sequence
	{Group: 0x0040, Element: 0x0010}, // Scheduled Station Name
	{Group: 0x0040, Element: 0x0011}, // Scheduled Procedure Step Location
	{Group: 0x0040, Element: 0x0012}, // Pre-Medication
	{Group: 0x0040, Element: 0x0241}, // Performed Station AE Title
	{Group: 0x0040, Element: 0x0242}, // Performed Station Name
	{Group: 0x0040, Element: 0x0243}, // Performed Location
	{Group: 0x0040, Element: 0x0244}, // Performed Procedure Step Start Date
	{Group: 0x0040, Element: 0x0245}, // Performed Procedure Step Start Time
	{Group: 0x0040, Element: 0x0250}, // Performed Procedure Step End Date
	{Group: 0x0040, Element: 0x0251}, // Performed Procedure Step End Time
	{Group: 0x0040, Element: 0x0253}, // Performed Procedure Step ID
	{Group: 0x0040, Element: 0x0254}, // Performed Procedure Step Description
	{Group: 0x0040, Element: 0x0275}, // Request Attributes Sequence
	{Group: 0x0040, Element: 0x0280}, // Comments on the Performed Procedure Step
	{Group: 0x0040, Element: 0x0310}, // Comments on Radiation Dose
	{Group: 0x0040, Element: 0x050a}, // Specimen Accession Number
	{Group: 0x0040, Element: 0x051a}, // Container Description
	{Group: 0x0040, Element: 0x0555}, // Acquisition Context Sequence
	{Group: 0x0040, Element: 0x0600}, // Specimen Short Description
	{Group: 0x0040, Element: 0x0602}, // Specimen Detailed Description
	{Group: 0x0040, Element: 0x06fa}, // Slide Identifier
	{Group: 0x0040, Element: 0x1001}, // Requested Procedure ID
	{Group: 0x0040, Element: 0x1002}, // Reason for the Requested Procedure
	{Group: 0x0040, Element: 0x1004}, // Patient Transport Arrangements
	{Group: 0x0040, Element: 0x1005}, // Requested Procedure Location
	{Group: 0x0040, Element: 0x100a}, // Reason for Requested Procedure Code Sequence
	{Group: 0x0040, Element: 0x1010}, // Names of Intended Recipients of Results
	{Group: 0x0040, Element: 0x1011}, // Intended Recipients of Results Identification Sequence
	{Group: 0x0040, Element: 0x1102}, // Person's Address
	{Group: 0x0040, Element: 0x1103}, // Person's Telephone Numbers
	{Group: 0x0040, Element: 0x1104}, // Person's Telecom Information
	{Group: 0x0040, Element: 0x1400}, // Requested Procedure Comments
	{Group: 0x0040, Element: 0x2001}, // Reason for the Imaging Service Request
	{Group: 0x0040, Element: 0x2008}, // Order Entered By
	{Group: 0x0040, Element: 0x2009}, // Order Enterer's Location
	{Group: 0x0040, Element: 0x2010}, // Order Callback Phone Number
	{Group: 0x0040, Element: 0x2011}, // Order Callback Telecom Information
	{Group: 0x0040, Element: 0x2400}, // Imaging Service Request Comments
	{Group: 0x0040, Element: 0x3001}, // Confidentiality Constraint on Patient Data Description
	{Group: 0x0040, Element: 0x4005}, // Scheduled Procedure Step Start DateTime
	{Group: 0x0040, Element: 0x4008}, // Scheduled Procedure Step Expiration DateTime
	{Group: 0x0040, Element: 0x4010}, // Scheduled Procedure Step Modification DateTime
	{Group: 0x0040, Element: 0x4011}, // Expected Completion DateTime
	{Group: 0x0040, Element: 0x4025}, // Scheduled Station Name Code Sequence
	{Group: 0x0040, Element: 0x4027}, // Scheduled Station Geographic Location Code Sequence
	{Group: 0x0040, Element: 0x4028}, // Performed Station Name Code Sequence
	{Group: 0x0040, Element: 0x4030}, // Performed Station Geographic Location Code Sequence
	{Group: 0x0040, Element: 0x4034}, // Scheduled Human Performers Sequence
	{Group: 0x0040, Element: 0x4035}, // Actual Human Performers Sequence
	{Group: 0x0040, Element: 0x4036}, // Human Performer's Organization
	{Group: 0x0040, Element: 0x4037}, // Human Performer's Name
	{Group: 0x0040, Element: 0x4050}, // Performed Procedure Step Start DateTime
	{Group: 0x0040, Element: 0x4051}, // Performed Procedure Step End DateTime
	{Group: 0x0040, Element: 0x4052}, // Procedure Step Cancellation DateTime
	{Group: 0x0040, Element: 0xa078}, // Author Observer Sequence
	{Group: 0x0040, Element: 0xa07a}, // Participant Sequence
	{Group: 0x0040, Element: 0xa07c}, // Custodial Organization Sequence
	{Group: 0x0040, Element: 0xa192}, // Observation Date (Trial)
	{Group: 0x0040, Element: 0xa193}, // Observation Time (Trial)
	{Group: 0x0040, Element: 0xa307}, // Current Observer (Trial)
	{Group: 0x0040, Element: 0xa352}, // Verbal Source (Trial)
	{Group: 0x0040, Element: 0xa353}, // Address (Trial)
	{Group: 0x0040, Element: 0xa354}, // Telephone Number (Trial)
	{Group: 0x0040, Element: 0xa358}, // Verbal Source Identifier Code Sequence (Trial)
	{Group: 0x0050, Element: 0x001b}, // Container Component ID
	{Group: 0x0050, Element: 0x0020}, // Device Description
	{Group: 0x0050, Element: 0x0021}, // Long Device Description
	{Group: 0x0070, Element: 0x0086}, // Content Creator's Identification Code Sequence
	{Group: 0x0088, Element: 0x0200}, // Icon Image Sequence
	{Group: 0x0088, Element: 0x0904}, // Topic Title
	{Group: 0x0088, Element: 0x0906}, // Topic Subject
	{Group: 0x0088, Element: 0x0910}, // Topic Author
	{Group: 0x0088, Element: 0x0912}, // Topic Keywords
	{Group: 0x0400, Element: 0x0402}, // Referenced Digital Signature Sequence
	{Group: 0x0400, Element: 0x0403}, // Referenced SOP Instance MAC Sequence
	{Group: 0x0400, Element: 0x0404}, // MAC
	{Group: 0x0400, Element: 0x0550}, // Modified Attributes Sequence
	{Group: 0x0400, Element: 0x0551}, // Nonconforming Modified Attributes Sequence
	{Group: 0x0400, Element: 0x0552}, // Nonconforming Data Element Value
	{Group: 0x0400, Element: 0x0561}, // Original Attributes Sequence
	{Group: 0x0400, Element: 0x0600}, // Instance Origin Status
	{Group: 0x2030, Element: 0x0020}, // Text String
	{Group: 0x2200, Element: 0x0002}, // Label Text
	{Group: 0x2200, Element: 0x0005}, // Barcode Value
	{Group: 0x3006, Element: 0x0004}, // Structure Set Name
	{Group: 0x3006, Element: 0x0006}, // Structure Set Description
	{Group: 0x3006, Element: 0x0028}, // ROI Description
	{Group: 0x3006, Element: 0x0038}, // ROI Generation Description
	{Group: 0x3006, Element: 0x0085}, // ROI Observation Label
	{Group: 0x3006, Element: 0x0088}, // ROI Observation Description
	{Group: 0x3008, Element: 0x0054}, // First Treatment Date
	{Group: 0x3008, Element: 0x0056}, // Most Recent Treatment Date
	{Group: 0x3008, Element: 0x0105}, // Source Serial Number
	{Group: 0x3008, Element: 0x0250}, // Treatment Date
	{Group: 0x3008, Element: 0x0251}, // Treatment Time
	{Group: 0x300a, Element: 0x0003}, // RT Plan Name
	{Group: 0x300a, Element: 0x0004}, // RT Plan Description
	{Group: 0x300a, Element: 0x0006}, // RT Plan Date
	{Group: 0x300a, Element: 0x0007}, // RT Plan Time
	{Group: 0x300a, Element: 0x000e}, // Prescription Description
	{Group: 0x300a, Element: 0x0016}, // Dose Reference Description
	{Group: 0x300a, Element: 0x0072}, // Fraction Group Description
	{Group: 0x300a, Element: 0x00b2}, // Treatment Machine Name
	{Group: 0x300a, Element: 0x00c3}, // Beam Description
	{Group: 0x300a, Element: 0x00dd}, // Bolus Description
	{Group: 0x300a, Element: 0x0196}, // Fixation Device Description
	{Group: 0x300a, Element: 0x01a6}, // Shielding Device Description
	{Group: 0x300a, Element: 0x01b2}, // Setup Technique Description
	{Group: 0x300a, Element: 0x0216}, // Source Manufacturer
	{Group: 0x300a, Element: 0x02eb}, // Compensator Description
	{Group: 0x300a, Element: 0x0676}, // Equipment Frame of Reference Description
	{Group: 0x300c, Element: 0x0113}, // Reason for Omission Description
	{Group: 0x300e, Element: 0x0008}, // Reviewer Name
	{Group: 0x3010, Element: 0x0036}, // Entity Name
	{Group: 0x3010, Element: 0x0037}, // Entity Description
	{Group: 0x3010, Element: 0x004c}, // Intended Phase Start Date
	{Group: 0x3010, Element: 0x004d}, // Intended Phase End Date
	{Group: 0x3010, Element: 0x0056}, // RT Treatment Approach Label
	{Group: 0x3010, Element: 0x0061}, // Prior Treatment Dose Description
	{Group: 0x4000, Element: 0x0010}, // Arbitrary
	{Group: 0x4000, Element: 0x4000}, // Text Comments
	{Group: 0x4008, Element: 0x0042}, // Results ID Issuer
	{Group: 0x4008, Element: 0x0102}, // Interpretation Recorder
	{Group: 0x4008, Element: 0x010a}, // Interpretation Transcriber
	{Group: 0x4008, Element: 0x010b}, // Interpretation Text
	{Group: 0x4008, Element: 0x010c}, // Interpretation Author
	{Group: 0x4008, Element: 0x0111}, // Interpretation Approver Sequence
	{Group: 0x4008, Element: 0x0114}, // Physician Approving Interpretation
	{Group: 0x4008, Element: 0x0115}, // Interpretation Diagnosis Description
	{Group: 0x4008, Element: 0x0118}, // Results Distribution List Sequence
	{Group: 0x4008, Element: 0x0119}, // Distribution Name
	{Group: 0x4008, Element: 0x011a}, // Distribution Address
	{Group: 0x4008, Element: 0x0202}, // Interpretation ID Issuer
	{Group: 0x4008, Element: 0x0300}, // Impressions
	{Group: 0x4008, Element: 0x4000}, // Results Comments
	{Group: 0xfffa, Element: 0xfffa}, // Digital Signatures Sequence
	{Group: 0xfffc, Element: 0xfffc}, // Data Set Trailing Padding
}

var profile2021bUIDs = []dicom.Tag{
	{Group: 0x0000, Element: 0x1001}, // Requested SOP Instance UID
	{Group: 0x0004, Element: 0x1511}, // Referenced SOP Instance UID in File
	{Group: 0x0008, Element: 0x0014}, // Instance Creator UID
	{Group: 0x0008, Element: 0x0058}, // Failed SOP Instance UID List
	{Group: 0x0008, Element: 0x1155}, // Referenced SOP Instance UID
	{Group: 0x0008, Element: 0x1195}, // Transaction UID
	{Group: 0x0008, Element: 0x3010}, // Irradiation Event UID
	{Group: 0x0018, Element: 0x1002}, // Device UID
	{Group: 0x0018, Element: 0x100b}, // Manufacturer's Device Class UID
	{Group: 0x0018, Element: 0x2042}, // Target UID
	{Group: 0x0020, Element: 0x0052}, // Frame of Reference UID
	{Group: 0x0020, Element: 0x0200}, // Synchronization Frame of Reference UID
	{Group: 0x0020, Element: 0x9161}, // Concatenation UID
	{Group: 0x0020, Element: 0x9164}, // Dimension Organization UID
	{Group: 0x0028, Element: 0x1199}, // Palette Color Lookup Table UID
	{Group: 0x0028, Element: 0x1214}, // Large Palette Color Lookup Table UID
	{Group: 0x003a, Element: 0x0310}, // Multiplex Group UID
	{Group: 0x0040, Element: 0x0554}, // Specimen UID
	{Group: 0x0040, Element: 0x4023}, // Referenced General Purpose Scheduled Procedure Step Transaction UID
	{Group: 0x0040, Element: 0xa124}, // UID
	{Group: 0x0040, Element: 0xa171}, // Observation UID
	{Group: 0x0040, Element: 0xa172}, // Referenced Observation UID (Trial)
	{Group: 0x0040, Element: 0xa402}, // Observation Subject UID (Trial)
	{Group: 0x0040, Element: 0xdb0c}, // Template Extension Organization UID
	{Group: 0x0040, Element: 0xdb0d}, // Template Extension Creator UID
	{Group: 0x0062, Element: 0x0021}, // Tracking UID
	{Group: 0x0070, Element: 0x031a}, // Fiducial UID
	{Group: 0x0070, Element: 0x1101}, // Presentation Display Collection UID
	{Group: 0x0070, Element: 0x1102}, // Presentation Sequence Collection UID
	{Group: 0x0088, Element: 0x0140}, // Storage Media File-set UID
	{Group: 0x0400, Element: 0x0100}, // Digital Signature UID
	{Group: 0x3006, Element: 0x0024}, // Referenced Frame of Reference UID
	{Group: 0x3006, Element: 0x00c2}, // Related Frame of Reference UID
	{Group: 0x300a, Element: 0x0013}, // Dose Reference UID
	{Group: 0x300a, Element: 0x0083}, // Referenced Dose Reference UID
	{Group: 0x300a, Element: 0x0609}, // Treatment Position Group UID
	{Group: 0x300a, Element: 0x0650}, // Patient Setup UID
	{Group: 0x300a, Element: 0x0700}, // Treatment Session UID
	{Group: 0x3010, Element: 0x0006}, // Conceptual Volume UID
	{Group: 0x3010, Element: 0x000b}, // Referenced Conceptual Volume UID
	{Group: 0x3010, Element: 0x0013}, // Constituent Conceptual Volume UID
	{Group: 0x3010, Element: 0x0015}, // Source Conceptual Volume UID
	{Group: 0x3010, Element: 0x0031}, // Referenced Fiducials UID
	{Group: 0x3010, Element: 0x003b}, // RT Treatment Phase UID
	{Group: 0x3010, Element: 0x006e}, // Dosimetric Objective UID
	{Group: 0x3010, Element: 0x006f}, // Referenced Dosimetric Objective UID
}

var profile2021bRemovedRanges = []tagRange{
	{groupFrom: 0x5000, groupTo: 0x50ff, elementFrom: 0x0000, elementTo: 0xffff}, // Curve Data
	{groupFrom: 0x6000, groupTo: 0x60ff, elementFrom: 0x3000, elementTo: 0x3000}, // Overlay Data
	{groupFrom: 0x6000, groupTo: 0x60ff, elementFrom: 0x4000, elementTo: 0x4000}, // Overlay Comments
}
