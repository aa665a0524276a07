package modification

import (
	"bytes"
	"strings"

	"github.com/caio-sobreiro/dicomcore/dicom"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/imaging"
	"github.com/caio-sobreiro/dicomcore/types"
)

// Encapsulated document MIME types and the SOP classes they produce.
var documentClasses = map[string]struct {
	sopClass string
	modality string
}{
	"application/pdf": {types.EncapsulatedPDFStorage, "OT"},
	"model/stl":       {types.EncapsulatedSTLStorage, "M3D"},
	"model/obj":       {types.EncapsulatedOBJStorage, "M3D"},
	"model/mtl":       {types.EncapsulatedMTLStorage, "M3D"},
}

// EmbedContent stores the payload of a data URI in the instance: images
// become uncompressed PixelData, application/octet-stream is copied as raw
// PixelData, and PDF or 3D models are encapsulated documents. The boolean
// is false when uri is not a base64 data URI.
func (e *Editor) EmbedContent(uri string) (bool, error) {
	mime, content, ok := dicom.ParseDataURI(uri)
	if !ok {
		return false, nil
	}
	mime = strings.ToLower(mime)
	ds := e.inst.Dataset()
	defer e.inst.InvalidateFrames()

	switch {
	case imaging.IsImageMime(mime):
		img, err := imaging.Decode(mime, content)
		if err != nil {
			return true, err
		}
		pixels, err := imaging.FromImage(img, e.logger())
		if err != nil {
			return true, err
		}
		pixels.Embed(ds)

	case mime == "application/octet-stream":
		ds.AddElement(dicom.TagPixelData, dicom.VR_OB, dicom.BinaryValue(content))

	case mime == "application/pdf":
		if !bytes.HasPrefix(content, []byte("%PDF-")) {
			return true, dcmerr.New(dcmerr.KindBadFileFormat, "not a PDF file")
		}
		e.encapsulate(mime, content)
		ds.AddElement(dicom.TagConversionType, dicom.VR_CS, dicom.StringValue("WSD"))

	default:
		if _, known := documentClasses[mime]; !known {
			return true, dcmerr.New(dcmerr.KindNotImplemented, "unsupported MIME type for the content of a DICOM file").WithDetail(mime)
		}
		e.encapsulate(mime, content)
	}
	return true, nil
}

// encapsulate stores document in EncapsulatedDocument, padded to an even
// length with a zero byte, and sets the matching SOP class. Modality is
// only filled when absent.
func (e *Editor) encapsulate(mime string, document []byte) {
	ds := e.inst.Dataset()
	class := documentClasses[mime]

	buf := make([]byte, len(document), len(document)+1)
	copy(buf, document)
	if len(buf)%2 == 1 {
		buf = append(buf, 0)
	}

	ds.AddElement(dicom.TagMIMETypeOfEncapsulatedDocument, dicom.VR_LO, dicom.StringValue(mime))
	ds.AddElement(dicom.TagEncapsulatedDocument, dicom.VR_OB, dicom.BinaryValue(buf))
	ds.AddElement(dicom.TagSOPClassUID, dicom.VR_UI, dicom.StringValue(class.sopClass))
	e.syncStorageUID(dicom.TagSOPClassUID, dicom.StringValue(class.sopClass))
	if ds.GetString(dicom.TagModality) == "" {
		ds.AddElement(dicom.TagModality, dicom.VR_CS, dicom.StringValue(class.modality))
	}
}
