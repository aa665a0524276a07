package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/caio-sobreiro/dicomcore/dicom"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecode_PNGGray(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 3, 2))
	for i := range src.Pix {
		src.Pix[i] = byte(10 * i)
	}

	img, err := Decode("image/png", encodePNG(t, src))
	require.NoError(t, err)

	p, err := FromImage(img, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Width)
	assert.Equal(t, 2, p.Height)
	assert.Equal(t, 1, p.SamplesPerPixel)
	assert.Equal(t, 8, p.BitsAllocated)
	assert.Equal(t, []byte{0, 10, 20, 30, 40, 50}, p.Data)
	assert.Equal(t, dicom.PixelFormatGrayscale8, p.Format())
}

func TestDecode_BMPColor(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.RGBA{R: 255, A: 255})
	src.Set(1, 0, color.RGBA{B: 255, A: 255})

	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, src))

	img, err := Decode("image/bmp", buf.Bytes())
	require.NoError(t, err)

	p, err := FromImage(img, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, p.SamplesPerPixel)
	assert.Equal(t, []byte{255, 0, 0, 0, 0, 255}, p.Data)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode("image/gif", []byte("GIF89a"))
	assert.ErrorIs(t, err, dcmerr.KindNotImplemented)

	_, err = Decode("image/png", []byte("not a png"))
	assert.ErrorIs(t, err, dcmerr.KindBadFileFormat)
}

func TestFromImage_Gray16IsLittleEndian(t *testing.T) {
	src := image.NewGray16(image.Rect(0, 0, 1, 1))
	src.SetGray16(0, 0, color.Gray16{Y: 0x1234})

	p, err := FromImage(src, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x34, 0x12}, p.Data)
	assert.Equal(t, 16, p.BitsAllocated)
}

func TestEmbed_SetsImageAttributes(t *testing.T) {
	ds := dicom.NewDataset()
	ds.SetString(dicom.TagNumberOfFrames, "5")

	p := &PixelData{Width: 2, Height: 1, SamplesPerPixel: 3, BitsAllocated: 8, Data: []byte{1, 2, 3, 4, 5, 6}}
	p.Embed(ds)

	assert.Equal(t, "2", ds.GetString(dicom.TagColumns))
	assert.Equal(t, "1", ds.GetString(dicom.TagRows))
	assert.Equal(t, "3", ds.GetString(dicom.TagSamplesPerPixel))
	assert.Equal(t, "RGB", ds.GetString(dicom.TagPhotometricInterpretation))
	assert.Equal(t, "0", ds.GetString(dicom.TagPlanarConfiguration))
	assert.False(t, ds.Has(dicom.TagNumberOfFrames))

	e, ok := ds.GetElement(dicom.TagPixelData)
	require.True(t, ok)
	assert.Equal(t, dicom.VR_OB, e.VR)

	info, err := dicom.NewImageInfo(ds)
	require.NoError(t, err)
	size, err := info.FrameSize()
	require.NoError(t, err)
	assert.Equal(t, len(p.Data), size)
}

func TestToImage_RoundTrip(t *testing.T) {
	ds := dicom.NewDataset()
	p := &PixelData{Width: 2, Height: 2, SamplesPerPixel: 1, BitsAllocated: 16, Data: []byte{1, 0, 2, 0, 3, 0, 0xff, 0xff}}
	p.Embed(ds)

	info, err := dicom.NewImageInfo(ds)
	require.NoError(t, err)

	img, err := ToImage(info, p.Data)
	require.NoError(t, err)

	back, err := FromImage(img, nil)
	require.NoError(t, err)
	assert.Equal(t, p.Data, back.Data)
}

func TestToImage_PlanarRGB(t *testing.T) {
	info := &dicom.ImageInfo{
		Photometric: "RGB", Width: 2, Height: 1, BitsAllocated: 8, BitsStored: 8, HighBit: 7,
		SamplesPerPixel: 3, Planar: true, NumberOfFrames: 1,
	}
	// R plane, G plane, B plane
	img, err := ToImage(info, []byte{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	r, g, b, _ := img.At(1, 0).RGBA()
	assert.Equal(t, uint32(2), r>>8)
	assert.Equal(t, uint32(4), g>>8)
	assert.Equal(t, uint32(6), b>>8)
}

func TestFit(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 400, 100))
	dst := Fit(src, 200)
	assert.Equal(t, 200, dst.Bounds().Dx())
	assert.Equal(t, 50, dst.Bounds().Dy())

	assert.Same(t, src, Fit(src, 1000))
}

func TestEncodeJPEG_Quality(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 8, 8))
	_, err := EncodeJPEG(src, 0)
	assert.ErrorIs(t, err, dcmerr.KindParameterOutOfRange)

	data, err := EncodeJPEG(src, 90)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8}, data[:2])
}
