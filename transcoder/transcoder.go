// Package transcoder converts DICOM instances between transfer syntaxes.
// Compressed syntaxes are handled by codecs registered per transfer syntax
// UID; the native syntaxes need no codec since the writer re-encodes them.
package transcoder

import (
	"fmt"
	"image"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/caio-sobreiro/dicomcore/dicom"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/imaging"
	"github.com/caio-sobreiro/dicomcore/interfaces"
	"github.com/caio-sobreiro/dicomcore/types"
)

// DefaultQuality is the quality of lossy encoders unless configured.
const DefaultQuality = 90

// Kind classifies a change of transfer syntax.
type Kind int

const (
	Unknown Kind = iota
	Lossless
	Lossy
)

func (k Kind) String() string {
	switch k {
	case Lossless:
		return "Lossless"
	case Lossy:
		return "Lossy"
	}
	return "Unknown"
}

// Classify tells whether transcoding from source to target keeps every
// pixel value. Targets outside both lists, such as RLE, are Unknown.
func Classify(target, source string) Kind {
	if target == source {
		return Lossless
	}
	switch target {
	case types.ImplicitVRLittleEndian, types.ExplicitVRLittleEndian, types.ExplicitVRBigEndian,
		types.DeflatedExplicitVRLittleEndian, types.JPEGLossless, types.JPEGLosslessSV1,
		types.JPEGLSLossless, types.JPEG2000Lossless, types.JPEG2000Part2MultiComponentLossless:
		return Lossless
	case types.JPEGBaseline8Bit, types.JPEGExtended12Bit, types.JPEGLSNearLossless,
		types.JPEG2000, types.JPEG2000Part2MultiComponent:
		return Lossy
	}
	return Unknown
}

// preferenceOrder is the order in which allowed targets are tried after
// the preferred syntax.
var preferenceOrder = []string{
	types.ImplicitVRLittleEndian,
	types.ExplicitVRLittleEndian,
	types.ExplicitVRBigEndian,
	types.DeflatedExplicitVRLittleEndian,
	types.JPEGBaseline8Bit,
	types.JPEGExtended12Bit,
	types.JPEGLossless,
	types.JPEGLosslessSV1,
	types.JPEGLSLossless,
	types.JPEG2000Lossless,
	types.JPEG2000,
	types.RLELossless,
}

// lossyMethods fills Lossy Image Compression Method (0028,2114).
var lossyMethods = map[string]string{
	types.JPEGBaseline8Bit:   "ISO_10918_1",
	types.JPEGExtended12Bit:  "ISO_10918_1",
	types.JPEGLSNearLossless: "ISO_14495_1",
	types.JPEG2000:           "ISO_15444_1",
}

func isNative(ts string) bool {
	return types.IsUncompressed(ts) || ts == types.DeflatedExplicitVRLittleEndian
}

// Transcoder owns the codec registry and the lossy quality. It is safe for
// concurrent use; the instances it converts are not shared.
type Transcoder struct {
	mu      sync.RWMutex
	codecs  map[string]interfaces.ImageCodec
	quality int
	logger  *slog.Logger
}

// Option configures a Transcoder.
type Option func(*Transcoder)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transcoder) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithCodec registers an additional codec, replacing any built-in one.
func WithCodec(transferSyntax string, codec interfaces.ImageCodec) Option {
	return func(t *Transcoder) {
		t.codecs[transferSyntax] = codec
	}
}

// New returns a transcoder with the codecs of BuiltinCodecs: RLE
// Lossless, the JPEG processes, lossless JPEG-LS and JPEG 2000.
func New(opts ...Option) *Transcoder {
	t := &Transcoder{
		codecs:  BuiltinCodecs(),
		quality: DefaultQuality,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Register adds or replaces the codec of a transfer syntax.
func (t *Transcoder) Register(transferSyntax string, codec interfaces.ImageCodec) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.codecs[transferSyntax] = codec
}

// SetQuality sets the quality of lossy encoders, from 1 to 100.
func (t *Transcoder) SetQuality(quality int) error {
	if quality < 1 || quality > 100 {
		return dcmerr.New(dcmerr.KindParameterOutOfRange,
			"the quality for lossy transcoding must be an integer between 1 and 100, received: %d", quality)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.quality = quality
	t.logger.Info("Quality for lossy transcoding set", "quality", quality)
	return nil
}

// Quality returns the quality of lossy encoders.
func (t *Transcoder) Quality() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.quality
}

func (t *Transcoder) codec(transferSyntax string) (interfaces.ImageCodec, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.codecs[transferSyntax]
	return c, ok
}

// IsSupported reports whether instances can be converted from and to the
// transfer syntax.
func (t *Transcoder) IsSupported(transferSyntax string) bool {
	if isNative(transferSyntax) {
		return true
	}
	_, ok := t.codec(transferSyntax)
	return ok
}

// Request describes the acceptable outputs of Transcode.
type Request struct {
	// Allowed lists the acceptable transfer syntaxes.
	Allowed []string

	// Preferred is tried first when it is allowed.
	Preferred string

	// AllowNewSOPInstanceUID permits lossy targets, which mint a new
	// SOP Instance UID.
	AllowNewSOPInstanceUID bool
}

// Result is the outcome of Transcode.
type Result struct {
	// Instance is the source itself when no conversion was needed, or
	// the reparsed output otherwise.
	Instance *dicom.ParsedInstance

	// Data is the Part 10 serialization of Instance.
	Data []byte

	TransferSyntax string
	Kind           Kind
	Transcoded     bool
}

// Transcode converts inst to one of the allowed transfer syntaxes. The
// source is returned unchanged when its syntax is allowed. Otherwise the
// preferred syntax is tried, then the allowed syntaxes in a fixed order
// that puts native syntaxes first. Lossy targets are only tried when a
// new SOP Instance UID is allowed. The source is never modified.
func (t *Transcoder) Transcode(inst *dicom.ParsedInstance, req Request) (*Result, error) {
	source := inst.TransferSyntax()
	if slices.Contains(req.Allowed, source) {
		data, err := inst.Serialize()
		if err != nil {
			return nil, err
		}
		return &Result{Instance: inst, Data: data, TransferSyntax: source, Kind: Lossless}, nil
	}

	hasPixels := inst.Dataset().Has(dicom.TagPixelData)
	sourceUID := inst.SOPInstanceUID()

	t.logger.Debug("Transcoding", "source", source, "allowed", strings.Join(req.Allowed, ", "))

	for _, target := range t.candidates(req) {
		kind := Classify(target, source)
		if hasPixels && kind == Lossy && !req.AllowNewSOPInstanceUID {
			continue
		}
		if !t.IsSupported(target) {
			continue
		}

		out, err := t.convert(inst, source, target, hasPixels && kind == Lossy)
		if dcmerr.KindOf(err) == dcmerr.KindNotImplemented {
			t.logger.Debug("Cannot transcode", "source", source, "target", target, "error", err)
			continue
		}
		if err != nil {
			return nil, err
		}

		data, err := out.Serialize()
		if err != nil {
			return nil, err
		}
		reparsed, err := inst.Environment().ParseInstance(data)
		if err != nil {
			return nil, dcmerr.Wrap(dcmerr.KindInternalError, err, "transcoded instance cannot be parsed")
		}
		if err := checkTranscoding(reparsed, source, sourceUID, req); err != nil {
			return nil, err
		}

		t.logger.Info("Transcoded instance", "sop_instance_uid", sourceUID, "source", source, "target", target, "kind", kind)
		return &Result{Instance: reparsed, Data: data, TransferSyntax: target, Kind: kind, Transcoded: true}, nil
	}

	return nil, dcmerr.New(dcmerr.KindNotImplemented, "cannot transcode from %s to any of: %s",
		source, describe(req.Allowed))
}

func describe(syntaxes []string) string {
	if len(syntaxes) == 0 {
		return "<none>"
	}
	return strings.Join(syntaxes, ", ")
}

func (t *Transcoder) candidates(req Request) []string {
	var out []string
	add := func(ts string) {
		if slices.Contains(req.Allowed, ts) && !slices.Contains(out, ts) {
			out = append(out, ts)
		}
	}
	if req.Preferred != "" {
		add(req.Preferred)
	}
	for _, ts := range preferenceOrder {
		add(ts)
	}
	for _, ts := range req.Allowed {
		add(ts)
	}
	return out
}

// checkTranscoding verifies the SOP Instance UID rules on the reparsed
// output. A violation is a bug of the transcoder.
func checkTranscoding(out *dicom.ParsedInstance, source, sourceUID string, req Request) error {
	target := out.TransferSyntax()
	targetUID := out.SOPInstanceUID()
	hasPixels := out.Dataset().Has(dicom.TagPixelData)

	switch {
	case !slices.Contains(req.Allowed, target):
		return dcmerr.New(dcmerr.KindInternalError, "an incorrect output transfer syntax was chosen: %s", target)
	case !hasPixels && targetUID != sourceUID:
		return dcmerr.New(dcmerr.KindInternalError, "no pixel data: transcoding must not change the SOP instance UID")
	case hasPixels && !req.AllowNewSOPInstanceUID && targetUID != sourceUID:
		return dcmerr.New(dcmerr.KindInternalError, "transcoding changed the SOP instance UID")
	}

	if hasPixels {
		switch Classify(target, source) {
		case Lossy:
			if targetUID == sourceUID {
				return dcmerr.New(dcmerr.KindInternalError, "lossy transcoding kept the SOP instance UID")
			}
		case Lossless:
			if targetUID != sourceUID {
				return dcmerr.New(dcmerr.KindInternalError, "lossless transcoding changed the SOP instance UID")
			}
		}
	}
	return nil
}

// convert returns a copy of inst stored with the target syntax.
func (t *Transcoder) convert(inst *dicom.ParsedInstance, source, target string, lossy bool) (*dicom.ParsedInstance, error) {
	if types.IsVideo(source) || types.IsVideo(target) {
		return nil, dcmerr.New(dcmerr.KindNotImplemented, "cannot transcode video")
	}

	out := inst.Clone()
	ds := out.Dataset()

	if ds.Has(dicom.TagPixelData) && !(isNative(source) && isNative(target)) {
		if err := t.recode(inst, out, source, target, lossy); err != nil {
			return nil, err
		}
	} else if el, ok := ds.GetElement(dicom.TagPixelData); ok && el.VR == dicom.VR_OB && target == types.ExplicitVRBigEndian {
		// 16-bit samples must be swapped on a big endian stream
		if bits, _, _ := ds.GetInt(dicom.TagBitsAllocated); bits > 8 {
			ds.AddElement(dicom.TagPixelData, dicom.VR_OW, el.Value)
		}
	}

	out.SetTransferSyntax(target)
	if lossy {
		ds.SetString(dicom.TagSOPInstanceUID, dicom.NewUID())
	}
	return out, nil
}

// recode decodes every frame of inst and stores them into out, encoded
// with the codec of target when it is compressed.
func (t *Transcoder) recode(inst, out *dicom.ParsedInstance, source, target string, lossy bool) error {
	info, err := inst.ImageInfo()
	if err != nil {
		return err
	}
	count, err := inst.FrameCount()
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}

	frames := make([][]byte, count)
	native := *info
	for i := range frames {
		f, err := t.decode(inst, info, source, i)
		if err != nil {
			return err
		}
		frames[i] = f.Data
		native = f.Info
	}

	ds := out.Dataset()
	photometric := native.Photometric
	size := 0

	if isNative(target) {
		pixels := make([]byte, 0, len(frames)*len(frames[0]))
		for _, f := range frames {
			pixels = append(pixels, f...)
		}
		vr := dicom.VR_OB
		if native.BitsAllocated > 8 {
			vr = dicom.VR_OW
		}
		ds.AddElement(dicom.TagPixelData, vr, dicom.BinaryValue(pixels))
	} else {
		codec, ok := t.codec(target)
		if !ok {
			return dcmerr.New(dcmerr.KindNotImplemented, "no encoder for %s", target)
		}
		quality := t.Quality()

		fragments := make([][]byte, 1, count+1)
		offsets := make([]byte, 0, 4*count)
		var offset uint32
		for _, frame := range frames {
			encoded, err := codec.Encode(frame, &native, quality)
			if err != nil {
				return err
			}
			data := encoded.Data
			if len(data)%2 != 0 {
				data = append(data, 0)
			}
			if encoded.Photometric != "" {
				photometric = encoded.Photometric
			}
			offsets = append(offsets, byte(offset), byte(offset>>8), byte(offset>>16), byte(offset>>24))
			offset += uint32(len(data)) + 8
			size += len(data)
			fragments = append(fragments, data)
		}
		fragments[0] = offsets
		ds.AddElement(dicom.TagPixelData, dicom.VR_OB, dicom.EncapsulatedValue(fragments))
	}

	if photometric != info.Photometric {
		ds.SetString(dicom.TagPhotometricInterpretation, photometric)
	}
	if native.SamplesPerPixel > 1 {
		ds.SetString(dicom.TagPlanarConfiguration, "0")
	}

	if lossy {
		ds.SetString(dicom.TagLossyImageCompression, "01")
		if method, ok := lossyMethods[target]; ok {
			ds.SetString(dicom.TagLossyImageCompressionMethod, method)
		}
		if size > 0 {
			frameSize, _ := native.FrameSize()
			ratio := float64(frameSize*count) / float64(size)
			ds.SetString(dicom.TagLossyImageCompressionRatio, fmt.Sprintf("%.2f", ratio))
		}
	}
	return nil
}

// Frame is one decoded frame and the description of its native layout.
type Frame struct {
	Info dicom.ImageInfo
	Data []byte
}

func (t *Transcoder) decode(inst *dicom.ParsedInstance, info *dicom.ImageInfo, source string, i int) (*Frame, error) {
	raw, err := inst.RawFrame(i)
	if err != nil {
		return nil, err
	}

	out := *info
	out.NumberOfFrames = 1
	if !types.IsEncapsulated(source) {
		if out.Planar && out.SamplesPerPixel > 1 {
			raw = imaging.Interleave(raw, out.Width*out.Height, out.SamplesPerPixel, out.BytesPerValue())
			out.Planar = false
		}
		return &Frame{Info: out, Data: raw}, nil
	}

	codec, ok := t.codec(source)
	if !ok {
		return nil, dcmerr.New(dcmerr.KindNotImplemented, "no decoder for transfer syntax %s", source)
	}
	decoded, err := codec.Decode(raw, info)
	if err != nil {
		return nil, err
	}
	out.Planar = false
	if decoded.Photometric != "" {
		out.Photometric = decoded.Photometric
	}
	return &Frame{Info: out, Data: decoded.Data}, nil
}

// DecodeFrame returns frame i of inst as native samples.
func (t *Transcoder) DecodeFrame(inst *dicom.ParsedInstance, i int) (*Frame, error) {
	info, err := inst.ImageInfo()
	if err != nil {
		return nil, err
	}
	return t.decode(inst, info, inst.TransferSyntax(), i)
}

// DecodeImage returns frame i of inst as a Go image.
func (t *Transcoder) DecodeImage(inst *dicom.ParsedInstance, i int) (image.Image, error) {
	f, err := t.DecodeFrame(inst, i)
	if err != nil {
		return nil, err
	}
	return imaging.ToImage(&f.Info, f.Data)
}
