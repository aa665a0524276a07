// Package imaging converts between Go images and uncompressed DICOM pixel
// data. It backs the data-URI image payloads of the modification engine
// and the frame previews of the CLI.
package imaging

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
)

// MIME types understood by Decode.
const (
	MimePNG  = "image/png"
	MimeJPEG = "image/jpeg"
	MimeBMP  = "image/bmp"
	MimeTIFF = "image/tiff"
)

// IsImageMime reports whether Decode accepts the MIME type.
func IsImageMime(mime string) bool {
	switch normalizeMime(mime) {
	case MimePNG, MimeJPEG, MimeBMP, MimeTIFF:
		return true
	}
	return false
}

func normalizeMime(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if mime == "image/jpg" {
		return MimeJPEG
	}
	return mime
}

// Decode reads a PNG, JPEG, BMP or TIFF image.
func Decode(mime string, data []byte) (image.Image, error) {
	var (
		img image.Image
		err error
	)
	r := bytes.NewReader(data)

	switch normalizeMime(mime) {
	case MimePNG:
		img, err = png.Decode(r)
	case MimeJPEG:
		img, err = jpeg.Decode(r)
	case MimeBMP:
		img, err = bmp.Decode(r)
	case MimeTIFF:
		img, err = tiff.Decode(r)
	default:
		return nil, dcmerr.New(dcmerr.KindNotImplemented, "unsupported image type").WithDetail(mime)
	}
	if err != nil {
		return nil, dcmerr.Wrap(dcmerr.KindBadFileFormat, err, "cannot decode %s image", mime)
	}
	return img, nil
}

// EncodePNG writes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, dcmerr.Wrap(dcmerr.KindInternalError, err, "cannot encode PNG")
	}
	return buf.Bytes(), nil
}

// EncodeJPEG writes img as baseline JPEG with the given quality (1..100).
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality < 1 || quality > 100 {
		return nil, dcmerr.New(dcmerr.KindParameterOutOfRange, "JPEG quality must be between 1 and 100, got %d", quality)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, dcmerr.Wrap(dcmerr.KindInternalError, err, "cannot encode JPEG")
	}
	return buf.Bytes(), nil
}

// Fit scales img down so that neither side exceeds maxSize, keeping the
// aspect ratio. Smaller images are returned unchanged.
func Fit(img image.Image, maxSize int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSize <= 0 || (w <= maxSize && h <= maxSize) {
		return img
	}

	if w >= h {
		h = max(1, h*maxSize/w)
		w = maxSize
	} else {
		w = max(1, w*maxSize/h)
		h = maxSize
	}

	var dst draw.Image
	switch img.(type) {
	case *image.Gray:
		dst = image.NewGray(image.Rect(0, 0, w, h))
	case *image.Gray16:
		dst = image.NewGray16(image.Rect(0, 0, w, h))
	default:
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
