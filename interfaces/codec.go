package interfaces

import "github.com/caio-sobreiro/dicomcore/dicom"

// CodedFrame is one frame produced by an ImageCodec. Photometric is set
// when the codec changed the color space of the samples.
type CodedFrame struct {
	Data        []byte
	Photometric string
}

// ImageCodec converts the frames of one family of encapsulated transfer
// syntaxes from and to native pixel data. Native frames hold little-endian
// samples with interleaved color channels.
type ImageCodec interface {
	// Decode returns the native samples of one compressed frame.
	Decode(frame []byte, info *dicom.ImageInfo) (*CodedFrame, error)

	// Encode compresses one native frame. Lossy codecs honor quality
	// (1..100); lossless codecs ignore it.
	Encode(frame []byte, info *dicom.ImageInfo, quality int) (*CodedFrame, error)
}
