package types

// DICOM Transfer Syntax UIDs as defined in DICOM Part 5, Section 8 and Part 6, Annex A.4
// https://dicom.nema.org/medical/dicom/current/output/chtml/part05/chapter_8.html

// Uncompressed Transfer Syntaxes
const (
	// ImplicitVRLittleEndian - Default Transfer Syntax for DICOM
	// Uses implicit VR encoding with little endian byte ordering
	ImplicitVRLittleEndian = "1.2.840.10008.1.2"

	// ExplicitVRLittleEndian - Explicit VR with little endian byte ordering
	// Recommended for general use due to explicit data types
	ExplicitVRLittleEndian = "1.2.840.10008.1.2.1"

	// ExplicitVRBigEndian - Explicit VR with big endian byte ordering (retired)
	// Rarely used, included for completeness
	ExplicitVRBigEndian = "1.2.840.10008.1.2.2"

	// DeflatedExplicitVRLittleEndian - Deflate compression with explicit VR
	// Uses zlib/deflate compression on top of explicit VR encoding
	DeflatedExplicitVRLittleEndian = "1.2.840.10008.1.2.1.99"
)

// JPEG Lossy Compression Transfer Syntaxes
const (
	// JPEGBaseline8Bit - JPEG Baseline (Process 1)
	// Default lossy JPEG compression, 8-bit samples
	JPEGBaseline8Bit = "1.2.840.10008.1.2.4.50"

	// JPEGExtended12Bit - JPEG Extended (Process 2 & 4)
	// Lossy JPEG compression, 8-12 bit samples
	JPEGExtended12Bit = "1.2.840.10008.1.2.4.51"

	// JPEGSpectralSelectionNonHierarchical68 - JPEG Extended (Process 3 & 5)
	JPEGSpectralSelectionNonHierarchical68 = "1.2.840.10008.1.2.4.52"

	// JPEGSpectralSelectionNonHierarchical79 - JPEG Spectral Selection (Process 6 & 8)
	JPEGSpectralSelectionNonHierarchical79 = "1.2.840.10008.1.2.4.53"

	// JPEGFullProgressionNonHierarchical1012 - JPEG Full Progression (Process 10 & 12)
	JPEGFullProgressionNonHierarchical1012 = "1.2.840.10008.1.2.4.54"

	// JPEGFullProgressionNonHierarchical1113 - JPEG Full Progression (Process 11 & 13)
	JPEGFullProgressionNonHierarchical1113 = "1.2.840.10008.1.2.4.55"
)

// JPEG Lossless Compression Transfer Syntaxes
const (
	// JPEGLossless - JPEG Lossless (Process 14)
	JPEGLossless = "1.2.840.10008.1.2.4.57"

	// JPEGLosslessSV1 - JPEG Lossless (Process 14, Selection Value 1)
	// Most commonly used lossless JPEG variant
	JPEGLosslessSV1 = "1.2.840.10008.1.2.4.70"

	// JPEGLosslessNonHierarchical1517 - JPEG Lossless (Process 15)
	JPEGLosslessNonHierarchical1517 = "1.2.840.10008.1.2.4.58"

	// JPEGLosslessNonHierarchical1618 - JPEG Lossless (Process 16)
	JPEGLosslessNonHierarchical1618 = "1.2.840.10008.1.2.4.59"
)

// JPEG 2000 Transfer Syntaxes
const (
	// JPEG2000Lossless - JPEG 2000 Image Compression (Lossless Only)
	// Modern lossless compression, better compression than JPEG lossless
	JPEG2000Lossless = "1.2.840.10008.1.2.4.90"

	// JPEG2000 - JPEG 2000 Image Compression (lossy or lossless)
	// Supports both lossy and lossless compression
	JPEG2000 = "1.2.840.10008.1.2.4.91"

	// JPEG2000Part2MultiComponentLossless - JPEG 2000 Part 2 Multi-component (Lossless)
	JPEG2000Part2MultiComponentLossless = "1.2.840.10008.1.2.4.92"

	// JPEG2000Part2MultiComponent - JPEG 2000 Part 2 Multi-component
	JPEG2000Part2MultiComponent = "1.2.840.10008.1.2.4.93"
)

// JPEG-LS Transfer Syntaxes
const (
	// JPEGLSLossless - JPEG-LS Lossless Image Compression
	// Lossless compression with good performance
	JPEGLSLossless = "1.2.840.10008.1.2.4.80"

	// JPEGLSNearLossless - JPEG-LS Lossy (Near-Lossless) Image Compression
	// Near-lossless with controlled error bounds
	JPEGLSNearLossless = "1.2.840.10008.1.2.4.81"
)

// RLE Transfer Syntax
const (
	// RLELossless - RLE Lossless Compression
	// Simple run-length encoding, lossless compression
	RLELossless = "1.2.840.10008.1.2.5"
)

// MPEG Video Transfer Syntaxes
const (
	// MPEG2MainProfile - MPEG2 Main Profile @ Main Level
	MPEG2MainProfile = "1.2.840.10008.1.2.4.100"

	// MPEG2MainProfileHighLevel - MPEG2 Main Profile @ High Level
	MPEG2MainProfileHighLevel = "1.2.840.10008.1.2.4.101"

	// MPEG4AVCH264HighProfile - MPEG-4 AVC/H.264 High Profile / Level 4.1
	MPEG4AVCH264HighProfile = "1.2.840.10008.1.2.4.102"

	// MPEG4AVCH264BDCompatibleHighProfile - MPEG-4 AVC/H.264 BD-compatible High Profile / Level 4.1
	MPEG4AVCH264BDCompatibleHighProfile = "1.2.840.10008.1.2.4.103"

	// MPEG4AVCH264HighProfileLevel42 - MPEG-4 AVC/H.264 High Profile / Level 4.2 For 2D Video
	MPEG4AVCH264HighProfileLevel42 = "1.2.840.10008.1.2.4.104"

	// MPEG4AVCH264HighProfileLevel42Stereo - MPEG-4 AVC/H.264 High Profile / Level 4.2 For 3D Video
	MPEG4AVCH264HighProfileLevel42Stereo = "1.2.840.10008.1.2.4.105"

	// MPEG4AVCH264StereoHighProfile - MPEG-4 AVC/H.264 Stereo High Profile / Level 4.2
	MPEG4AVCH264StereoHighProfile = "1.2.840.10008.1.2.4.106"

	// HEVCH265MainProfileLevel51 - HEVC/H.265 Main Profile / Level 5.1
	HEVCH265MainProfileLevel51 = "1.2.840.10008.1.2.4.107"

	// HEVCH265Main10ProfileLevel51 - HEVC/H.265 Main 10 Profile / Level 5.1
	HEVCH265Main10ProfileLevel51 = "1.2.840.10008.1.2.4.108"
)

// JPIP Transfer Syntaxes (Referenced and Deflate)
const (
	// JPIPReferenced - JPIP Referenced
	JPIPReferenced = "1.2.840.10008.1.2.4.94"

	// JPIPReferencedDeflate - JPIP Referenced Deflate
	JPIPReferencedDeflate = "1.2.840.10008.1.2.4.95"
)

// High-Throughput JPEG 2000 Transfer Syntaxes
const (
	// HTJ2KLossless - High-Throughput JPEG 2000 Image Compression (Lossless Only)
	HTJ2KLossless = "1.2.840.10008.1.2.4.201"

	// HTJ2KLosslessRPCL - High-Throughput JPEG 2000 with RPCL Options (Lossless Only)
	HTJ2KLosslessRPCL = "1.2.840.10008.1.2.4.202"

	// HTJ2K - High-Throughput JPEG 2000
	HTJ2K = "1.2.840.10008.1.2.4.203"
)

// TransferSyntaxInfo describes how a transfer syntax lays out a dataset on the wire.
type TransferSyntaxInfo struct {
	UID          string
	Name         string
	IsCompressed bool
	IsLossless   bool
	IsRetired    bool
	ExplicitVR   bool
	BigEndian    bool
	Deflated     bool
	Encapsulated bool
	Video        bool
	Description  string
}

type tsFlag uint16

const (
	tsExplicit tsFlag = 1 << iota
	tsBigEndian
	tsDeflated
	tsEncapsulated
	tsLossy
	tsRetired
	tsVideo
)

func ts(uid, name, description string, flags tsFlag) TransferSyntaxInfo {
	encapsulated := flags&tsEncapsulated != 0
	return TransferSyntaxInfo{
		UID:          uid,
		Name:         name,
		IsCompressed: encapsulated || flags&tsDeflated != 0,
		IsLossless:   flags&tsLossy == 0,
		IsRetired:    flags&tsRetired != 0,
		ExplicitVR:   flags&tsExplicit != 0 || uid != ImplicitVRLittleEndian,
		BigEndian:    flags&tsBigEndian != 0,
		Deflated:     flags&tsDeflated != 0,
		Encapsulated: encapsulated,
		Video:        flags&tsVideo != 0,
		Description:  description,
	}
}

const (
	tsJPEGLossy = tsEncapsulated | tsLossy
	tsMPEG      = tsEncapsulated | tsLossy | tsVideo
)

// transferSyntaxRegistry maps transfer syntax UIDs to their information
var transferSyntaxRegistry = func() map[string]TransferSyntaxInfo {
	list := []TransferSyntaxInfo{
		ts(ImplicitVRLittleEndian, "Implicit VR Little Endian", "Default DICOM transfer syntax with implicit VR encoding", 0),
		ts(ExplicitVRLittleEndian, "Explicit VR Little Endian", "Explicit VR encoding with little endian byte order", tsExplicit),
		ts(ExplicitVRBigEndian, "Explicit VR Big Endian", "Explicit VR encoding with big endian byte order (retired)", tsExplicit|tsBigEndian|tsRetired),
		ts(DeflatedExplicitVRLittleEndian, "Deflated Explicit VR Little Endian", "Raw deflate compression of an explicit VR dataset", tsExplicit|tsDeflated),

		ts(JPEGBaseline8Bit, "JPEG Baseline (Process 1)", "JPEG lossy compression, 8-bit samples", tsJPEGLossy),
		ts(JPEGExtended12Bit, "JPEG Extended (Process 2 & 4)", "JPEG lossy compression, 8-12 bit samples", tsJPEGLossy),
		ts(JPEGSpectralSelectionNonHierarchical68, "JPEG Extended (Process 3 & 5)", "Retired JPEG extended process", tsJPEGLossy|tsRetired),
		ts(JPEGSpectralSelectionNonHierarchical79, "JPEG Spectral Selection (Process 6 & 8)", "Retired JPEG spectral selection", tsJPEGLossy|tsRetired),
		ts(JPEGFullProgressionNonHierarchical1012, "JPEG Full Progression (Process 10 & 12)", "Retired JPEG full progression", tsJPEGLossy|tsRetired),
		ts(JPEGFullProgressionNonHierarchical1113, "JPEG Full Progression (Process 11 & 13)", "Retired JPEG full progression", tsJPEGLossy|tsRetired),

		ts(JPEGLossless, "JPEG Lossless (Process 14)", "JPEG lossless compression", tsEncapsulated),
		ts(JPEGLosslessNonHierarchical1517, "JPEG Lossless (Process 15)", "Retired JPEG lossless process", tsEncapsulated|tsRetired),
		ts(JPEGLosslessNonHierarchical1618, "JPEG Lossless (Process 16)", "Retired JPEG lossless process", tsEncapsulated|tsRetired),
		ts(JPEGLosslessSV1, "JPEG Lossless, Non-Hierarchical, First-Order Prediction", "JPEG lossless compression with prediction (most common)", tsEncapsulated),

		ts(JPEGLSLossless, "JPEG-LS Lossless", "JPEG-LS lossless compression", tsEncapsulated),
		ts(JPEGLSNearLossless, "JPEG-LS Near-Lossless", "JPEG-LS near-lossless compression with bounded error", tsJPEGLossy),

		ts(JPEG2000Lossless, "JPEG 2000 Lossless Only", "JPEG 2000 lossless compression", tsEncapsulated),
		ts(JPEG2000, "JPEG 2000", "JPEG 2000 lossy or lossless compression", tsJPEGLossy),
		ts(JPEG2000Part2MultiComponentLossless, "JPEG 2000 Part 2 Multi-component Lossless Only", "Multi-component JPEG 2000 lossless compression", tsEncapsulated),
		ts(JPEG2000Part2MultiComponent, "JPEG 2000 Part 2 Multi-component", "Multi-component JPEG 2000 compression", tsJPEGLossy),
		ts(JPIPReferenced, "JPIP Referenced", "Pixel data referenced through JPIP", tsExplicit),
		ts(JPIPReferencedDeflate, "JPIP Referenced Deflate", "Deflated dataset with JPIP-referenced pixel data", tsExplicit|tsDeflated),

		ts(RLELossless, "RLE Lossless", "Run-Length Encoding lossless compression", tsEncapsulated),

		ts(MPEG2MainProfile, "MPEG2 Main Profile @ Main Level", "MPEG-2 video compression", tsMPEG),
		ts(MPEG2MainProfileHighLevel, "MPEG2 Main Profile @ High Level", "MPEG-2 high level video compression", tsMPEG),
		ts(MPEG4AVCH264HighProfile, "MPEG-4 AVC/H.264 High Profile", "H.264 video compression", tsMPEG),
		ts(MPEG4AVCH264BDCompatibleHighProfile, "MPEG-4 AVC/H.264 BD-compatible High Profile", "H.264 BD-compatible video compression", tsMPEG),
		ts(MPEG4AVCH264HighProfileLevel42, "MPEG-4 AVC/H.264 High Profile For 2D Video", "H.264 level 4.2 2D video compression", tsMPEG),
		ts(MPEG4AVCH264HighProfileLevel42Stereo, "MPEG-4 AVC/H.264 High Profile For 3D Video", "H.264 level 4.2 3D video compression", tsMPEG),
		ts(MPEG4AVCH264StereoHighProfile, "MPEG-4 AVC/H.264 Stereo High Profile", "H.264 stereo video compression", tsMPEG),
		ts(HEVCH265MainProfileLevel51, "HEVC/H.265 Main Profile", "H.265/HEVC video compression", tsMPEG),
		ts(HEVCH265Main10ProfileLevel51, "HEVC/H.265 Main 10 Profile", "H.265/HEVC 10-bit video compression", tsMPEG),

		ts(HTJ2KLossless, "High-Throughput JPEG 2000 Lossless", "HTJ2K lossless compression (fast JPEG 2000 variant)", tsEncapsulated),
		ts(HTJ2KLosslessRPCL, "High-Throughput JPEG 2000 with RPCL Options Lossless", "HTJ2K lossless compression with RPCL progression", tsEncapsulated),
		ts(HTJ2K, "High-Throughput JPEG 2000", "HTJ2K lossy or lossless compression", tsJPEGLossy),
	}

	registry := make(map[string]TransferSyntaxInfo, len(list))
	for _, info := range list {
		registry[info.UID] = info
	}
	return registry
}()

// LookupTransferSyntax returns the registered information for uid.
func LookupTransferSyntax(uid string) (TransferSyntaxInfo, bool) {
	info, ok := transferSyntaxRegistry[uid]
	return info, ok
}

// GetTransferSyntaxInfo returns information about a transfer syntax UID.
// Unknown syntaxes are reported as explicit little endian, which is how
// PS3.5 section 10 requires them to be read.
func GetTransferSyntaxInfo(uid string) *TransferSyntaxInfo {
	info, ok := transferSyntaxRegistry[uid]
	if !ok {
		return &TransferSyntaxInfo{
			UID:         uid,
			Name:        "Unknown",
			IsLossless:  true,
			ExplicitVR:  true,
			Description: "Unknown transfer syntax",
		}
	}
	return &info
}

// IsCompressed returns true if the transfer syntax uses compression
func IsCompressed(uid string) bool {
	return GetTransferSyntaxInfo(uid).IsCompressed
}

// IsLossless returns true if the transfer syntax is lossless
// Note: Uncompressed transfer syntaxes are considered lossless
func IsLossless(uid string) bool {
	return GetTransferSyntaxInfo(uid).IsLossless
}

// IsRetired returns true if the transfer syntax is retired
func IsRetired(uid string) bool {
	return GetTransferSyntaxInfo(uid).IsRetired
}

// IsVideo reports MPEG-2, H.264 and H.265 syntaxes, whose pixel data is a
// single stream regardless of NumberOfFrames.
func IsVideo(uid string) bool {
	return GetTransferSyntaxInfo(uid).Video
}

// IsEncapsulated reports whether pixel data is stored as fragments.
func IsEncapsulated(uid string) bool {
	return GetTransferSyntaxInfo(uid).Encapsulated
}

// IsUncompressed reports the three native syntaxes.
func IsUncompressed(uid string) bool {
	switch uid {
	case ImplicitVRLittleEndian, ExplicitVRLittleEndian, ExplicitVRBigEndian:
		return true
	}
	return false
}

// UncompressedTransferSyntaxes lists the native syntaxes in proposal order.
func UncompressedTransferSyntaxes() []string {
	return []string{ExplicitVRLittleEndian, ImplicitVRLittleEndian, ExplicitVRBigEndian}
}

// GetCommonTransferSyntaxes returns a list of commonly supported transfer syntaxes
// in recommended negotiation order (uncompressed first, then lossless, then lossy)
func GetCommonTransferSyntaxes() []string {
	return []string{
		ExplicitVRLittleEndian,
		ImplicitVRLittleEndian,
		JPEG2000Lossless,
		JPEGLosslessSV1,
		RLELossless,
		JPEG2000,
		JPEGBaseline8Bit,
	}
}
