package dicom

import (
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/types"
)

// ParsedInstance is a DICOM instance: its File Meta Information and its
// main dataset. The frame index is computed on first access and rebuilt
// after any mutation of either dataset.
//
// A ParsedInstance is not safe for concurrent use.
type ParsedInstance struct {
	env    *Environment
	meta   *Dataset
	main   *Dataset
	origin string

	frames       *FrameIndex
	framesMeta   uint64
	framesMain   uint64
	framesSyntax string
}

// ParseInstance parses a Part 10 buffer with the default environment.
func ParseInstance(data []byte) (*ParsedInstance, error) {
	return Default().ParseInstance(data)
}

// ParseInstance parses a Part 10 buffer.
func (env *Environment) ParseInstance(data []byte) (*ParsedInstance, error) {
	meta, offset, err := env.ReadFileMeta(data)
	if err != nil {
		return nil, err
	}
	ts := meta.GetString(TagTransferSyntaxUID)
	if ts == "" {
		return nil, dcmerr.New(dcmerr.KindBadFileFormat, "file meta information without transfer syntax")
	}

	main, err := env.ReadDataset(data[offset:], ts, ReadOptions{})
	if err != nil {
		return nil, err
	}
	return &ParsedInstance{env: env, meta: meta, main: main, origin: ts}, nil
}

// ParseRawDataset parses a buffer holding a dataset without Part 10 header,
// such as the payload of a C-STORE request.
func (env *Environment) ParseRawDataset(data []byte, transferSyntax string) (*ParsedInstance, error) {
	main, err := env.ReadDataset(data, transferSyntax, ReadOptions{})
	if err != nil {
		return nil, err
	}
	return env.NewInstance(main, transferSyntax), nil
}

// NewInstance wraps a dataset built in memory. The File Meta Information is
// derived from its SOP class and instance UIDs.
func (env *Environment) NewInstance(main *Dataset, transferSyntax string) *ParsedInstance {
	if transferSyntax == "" {
		transferSyntax = types.ExplicitVRLittleEndian
	}
	meta := NewFileMeta(main.GetString(TagSOPClassUID), main.GetString(TagSOPInstanceUID), transferSyntax)
	return &ParsedInstance{env: env, meta: meta, main: main, origin: transferSyntax}
}

// NewInstance wraps a dataset with the default environment.
func NewInstance(main *Dataset, transferSyntax string) *ParsedInstance {
	return Default().NewInstance(main, transferSyntax)
}

// Environment returns the environment the instance was parsed with.
func (p *ParsedInstance) Environment() *Environment { return p.env }

// FileMeta returns the group 0002 dataset.
func (p *ParsedInstance) FileMeta() *Dataset { return p.meta }

// Dataset returns the main dataset.
func (p *ParsedInstance) Dataset() *Dataset { return p.main }

// OriginTransferSyntax is the transfer syntax the instance was read with.
func (p *ParsedInstance) OriginTransferSyntax() string { return p.origin }

// TransferSyntax is the transfer syntax declared in the File Meta Information.
func (p *ParsedInstance) TransferSyntax() string {
	if ts := p.meta.GetString(TagTransferSyntaxUID); ts != "" {
		return ts
	}
	return p.origin
}

// SOPClassUID returns (0008,0016).
func (p *ParsedInstance) SOPClassUID() string {
	return p.main.GetString(TagSOPClassUID)
}

// SOPInstanceUID returns (0008,0018).
func (p *ParsedInstance) SOPInstanceUID() string {
	return p.main.GetString(TagSOPInstanceUID)
}

func (p *ParsedInstance) target(tag Tag) *Dataset {
	if tag.Group == 0x0002 {
		return p.meta
	}
	return p.main
}

// Get returns an element of the meta group or of the main dataset.
func (p *ParsedInstance) Get(tag Tag) (*Element, bool) {
	return p.target(tag).GetElement(tag)
}

// Set stores an element, routing group 0002 to the File Meta Information.
func (p *ParsedInstance) Set(tag Tag, vr VR, value Value) {
	p.target(tag).AddElement(tag, vr, value)
}

// SetString stores a text element.
func (p *ParsedInstance) SetString(tag Tag, s string) {
	p.target(tag).SetString(tag, s)
}

// Remove deletes an element and reports whether it was present.
func (p *ParsedInstance) Remove(tag Tag) bool {
	return p.target(tag).Remove(tag)
}

// Tags lists the meta tags followed by the main dataset tags.
func (p *ParsedInstance) Tags() []Tag {
	return append(p.meta.Tags(), p.main.Tags()...)
}

// SetTransferSyntax changes the declared transfer syntax. The pixel data
// is not converted: this is the building block of the transcoder.
func (p *ParsedInstance) SetTransferSyntax(ts string) {
	p.meta.AddElement(TagTransferSyntaxUID, VR_UI, StringValue(ts))
}

// Serialize writes the instance as a Part 10 file. MediaStorage UIDs follow
// the SOP class and instance UIDs of the main dataset.
func (p *ParsedInstance) Serialize() ([]byte, error) {
	if uid := p.SOPClassUID(); uid != "" && uid != p.meta.GetString(TagMediaStorageSOPClassUID) {
		p.meta.AddElement(TagMediaStorageSOPClassUID, VR_UI, StringValue(uid))
	}
	if uid := p.SOPInstanceUID(); uid != "" && uid != p.meta.GetString(TagMediaStorageSOPInstanceUID) {
		p.meta.AddElement(TagMediaStorageSOPInstanceUID, VR_UI, StringValue(uid))
	}
	return p.env.WriteFile(p.meta, p.main)
}

// SerializeDataset writes the main dataset alone with its transfer syntax.
func (p *ParsedInstance) SerializeDataset() ([]byte, error) {
	return p.env.WriteDataset(p.main, p.TransferSyntax(), WriteOptions{})
}

// Clone returns a deep copy.
func (p *ParsedInstance) Clone() *ParsedInstance {
	return &ParsedInstance{env: p.env, meta: p.meta.Clone(), main: p.main.Clone(), origin: p.origin}
}

// InvalidateFrames drops the cached frame index. Mutations through the
// instance do this implicitly; callers editing nested items directly must
// call it or Dataset().Touch().
func (p *ParsedInstance) InvalidateFrames() {
	p.frames = nil
}

func (p *ParsedInstance) frameIndex() (*FrameIndex, error) {
	ts := p.TransferSyntax()
	if p.frames != nil && p.framesMeta == p.meta.Version() &&
		p.framesMain == p.main.Version() && p.framesSyntax == ts {
		return p.frames, nil
	}

	idx, err := NewFrameIndex(p.main, ts)
	if err != nil {
		return nil, err
	}
	p.frames = idx
	p.framesMeta = p.meta.Version()
	p.framesMain = p.main.Version()
	p.framesSyntax = ts
	return idx, nil
}

// FrameCount returns the number of frames of the image.
func (p *ParsedInstance) FrameCount() (int, error) {
	idx, err := p.frameIndex()
	if err != nil {
		return 0, err
	}
	return idx.Count(), nil
}

// RawFrame returns the raw bytes of frame i.
func (p *ParsedInstance) RawFrame(i int) ([]byte, error) {
	idx, err := p.frameIndex()
	if err != nil {
		return nil, err
	}
	return idx.RawFrame(i)
}

// ImageInfo describes the pixel layout of the main dataset.
func (p *ParsedInstance) ImageInfo() (*ImageInfo, error) {
	return NewImageInfo(p.main)
}
