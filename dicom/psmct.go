package dicom

import (
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
)

const psmctRLE1 = "PMSCT_RLE1"

// IsPsmctRLE1 reports whether ds holds Philips PMSCT_RLE1 compressed pixels
// in its private group 07A1.
func IsPsmctRLE1(ds *Dataset) bool {
	if ds.GetString(TagPhilipsCompressionType) != psmctRLE1 {
		return false
	}
	e, ok := ds.GetElement(TagPhilipsCompressedPixelData)
	return ok && !e.Value.IsNull() && e.Value.Len() > 0
}

// DecodePsmctRLE1 expands PMSCT_RLE1 pixel data into 16-bit little-endian
// samples. The first pass expands runs introduced by 0xA5 (count, value);
// the second pass reads 0x5A as an absolute 16-bit value and any other
// byte as a signed delta from the previous sample.
func DecodePsmctRLE1(ds *Dataset) ([]byte, error) {
	if !IsPsmctRLE1(ds) {
		return nil, dcmerr.New(dcmerr.KindBadFileFormat, "no PMSCT_RLE1 pixel data")
	}
	e, _ := ds.GetElement(TagPhilipsCompressedPixelData)
	in := e.Value.Bytes()

	expanded := make([]byte, 0, len(in))
	for i := 0; i < len(in); i++ {
		if in[i] != 0xA5 {
			expanded = append(expanded, in[i])
			continue
		}
		if i+2 >= len(in) {
			return nil, dcmerr.New(dcmerr.KindBadFileFormat, "truncated PMSCT_RLE1 run at offset %d", i)
		}
		value := in[i+2]
		for n := int(in[i+1]); n >= 0; n-- {
			expanded = append(expanded, value)
		}
		i += 2
	}

	out := make([]byte, 0, 2*len(expanded))
	var previous uint16
	for i := 0; i < len(expanded); i++ {
		var value uint16
		if expanded[i] == 0x5A {
			if i+2 >= len(expanded) {
				return nil, dcmerr.New(dcmerr.KindBadFileFormat, "truncated PMSCT_RLE1 absolute value")
			}
			value = uint16(expanded[i+1]) | uint16(expanded[i+2])<<8
			i += 2
		} else {
			value = previous + uint16(int16(int8(expanded[i])))
		}
		out = append(out, byte(value), byte(value>>8))
		previous = value
	}
	return out, nil
}
