package dicom

import (
	"encoding/binary"

	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/types"
)

// FrameIndex gives random access to the frames of an image.
type FrameIndex struct {
	count int

	// native and PMSCT_RLE1 images
	pixels    []byte
	frameSize int

	// encapsulated images: fragments of each frame, in order
	frames [][][]byte

	hasPixels bool
}

// CountFrames returns the number of frames declared by ds. Video transfer
// syntaxes always hold one frame. An absent NumberOfFrames means one frame.
func CountFrames(ds *Dataset, transferSyntax string) (int, error) {
	if types.IsVideo(transferSyntax) {
		return 1, nil
	}
	s, ok := ds.LookupString(TagNumberOfFrames)
	if !ok {
		return 1, nil
	}
	n, present, err := ds.GetInt(TagNumberOfFrames)
	if err != nil || (present && n < 0) {
		return 0, dcmerr.New(dcmerr.KindBadFileFormat, "invalid NumberOfFrames %q", s).WithDetail(TagNumberOfFrames.String())
	}
	if !present {
		return 1, nil
	}
	return n, nil
}

// NewFrameIndex builds the frame index of ds stored with transferSyntax.
func NewFrameIndex(ds *Dataset, transferSyntax string) (*FrameIndex, error) {
	count, err := CountFrames(ds, transferSyntax)
	if err != nil {
		return nil, err
	}
	idx := &FrameIndex{count: count}
	if count == 0 {
		return idx, nil
	}

	if e, ok := ds.GetElement(TagPixelData); ok {
		idx.hasPixels = true
		if e.Value.IsEncapsulated() {
			if types.IsVideo(transferSyntax) {
				idx.frames = [][][]byte{e.Value.Fragments()[1:]}
				return idx, nil
			}
			idx.frames, err = indexFragments(e.Value.Fragments(), count)
			return idx, err
		}

		info, err := NewImageInfo(ds)
		if err != nil {
			return nil, err
		}
		if idx.frameSize, err = info.FrameSize(); err != nil {
			return nil, err
		}
		idx.pixels = e.Value.Bytes()
		if len(idx.pixels) < idx.frameSize*count {
			return nil, dcmerr.New(dcmerr.KindBadFileFormat,
				"pixel data holds %d bytes, %d frames of %d bytes expected", len(idx.pixels), count, idx.frameSize)
		}
		return idx, nil
	}

	if IsPsmctRLE1(ds) {
		info, err := NewImageInfo(ds)
		if err != nil {
			return nil, err
		}
		if idx.frameSize, err = info.FrameSize(); err != nil {
			return nil, err
		}
		if idx.pixels, err = DecodePsmctRLE1(ds); err != nil {
			return nil, err
		}
		if len(idx.pixels) < idx.frameSize*count {
			return nil, dcmerr.New(dcmerr.KindBadFileFormat, "PMSCT_RLE1 pixel data too short")
		}
		idx.hasPixels = true
	}
	return idx, nil
}

// indexFragments assigns fragments to frames. fragments[0] is the Basic
// Offset Table.
func indexFragments(fragments [][]byte, count int) ([][][]byte, error) {
	if len(fragments) < count+1 {
		return nil, dcmerr.New(dcmerr.KindBadFileFormat, "%d fragments cannot hold %d frames", len(fragments)-1, count)
	}

	frames := make([][][]byte, count)
	if len(fragments) == count+1 {
		for i := range frames {
			frames[i] = fragments[i+1 : i+2]
		}
		return frames, nil
	}

	table, err := offsetTable(fragments[0])
	if err != nil {
		return nil, err
	}
	if len(table) != count || table[0] != 0 {
		return nil, dcmerr.New(dcmerr.KindBadFileFormat, "offset table of %d entries does not index %d frames", len(table), count)
	}

	var offset uint32
	current := 0
	for _, fragment := range fragments[1:] {
		if current+1 < count && offset == table[current+1] {
			current++
		}
		frames[current] = append(frames[current], fragment)
		// 8 bytes of item tag and length precede each fragment
		offset += uint32(len(fragment)) + 8
	}
	if current+1 != count {
		return nil, dcmerr.New(dcmerr.KindBadFileFormat, "offset table does not match the fragments")
	}
	return frames, nil
}

func offsetTable(bot []byte) ([]uint32, error) {
	if len(bot) == 0 {
		return []uint32{0}, nil
	}
	if len(bot)%4 != 0 {
		return nil, dcmerr.New(dcmerr.KindBadFileFormat, "basic offset table of %d bytes", len(bot))
	}
	table := make([]uint32, len(bot)/4)
	for i := range table {
		table[i] = binary.LittleEndian.Uint32(bot[4*i:])
	}
	return table, nil
}

// Count returns the number of frames.
func (idx *FrameIndex) Count() int {
	return idx.count
}

// RawFrame returns the bytes of frame i: a slice of the native buffer, or
// the concatenation of the fragments of an encapsulated frame.
func (idx *FrameIndex) RawFrame(i int) ([]byte, error) {
	if i < 0 || i >= idx.count {
		return nil, dcmerr.New(dcmerr.KindParameterOutOfRange, "frame %d out of %d", i, idx.count)
	}
	if !idx.hasPixels {
		return nil, dcmerr.New(dcmerr.KindBadFileFormat, "cannot access a raw frame")
	}

	if idx.frames != nil {
		size := 0
		for _, f := range idx.frames[i] {
			size += len(f)
		}
		out := make([]byte, 0, size)
		for _, f := range idx.frames[i] {
			out = append(out, f...)
		}
		return out, nil
	}

	out := make([]byte, idx.frameSize)
	copy(out, idx.pixels[i*idx.frameSize:])
	return out, nil
}
