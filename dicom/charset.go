package dicom

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"

	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
)

// Encoding is the internal kind of a SpecificCharacterSet.
type Encoding int

const (
	EncodingASCII Encoding = iota
	EncodingUTF8
	EncodingLatin1
	EncodingLatin2
	EncodingLatin3
	EncodingLatin4
	EncodingLatin5
	EncodingCyrillic
	EncodingArabic
	EncodingGreek
	EncodingHebrew
	EncodingThai
	EncodingJapanese
	EncodingChinese
	EncodingJapaneseKanji
	EncodingKorean
	EncodingSimplifiedChinese
)

var encodingNames = map[Encoding]string{
	EncodingASCII:             "Ascii",
	EncodingUTF8:              "Utf8",
	EncodingLatin1:            "Latin1",
	EncodingLatin2:            "Latin2",
	EncodingLatin3:            "Latin3",
	EncodingLatin4:            "Latin4",
	EncodingLatin5:            "Latin5",
	EncodingCyrillic:          "Cyrillic",
	EncodingArabic:            "Arabic",
	EncodingGreek:             "Greek",
	EncodingHebrew:            "Hebrew",
	EncodingThai:              "Thai",
	EncodingJapanese:          "Japanese",
	EncodingChinese:           "Chinese",
	EncodingJapaneseKanji:     "JapaneseKanji",
	EncodingKorean:            "Korean",
	EncodingSimplifiedChinese: "SimplifiedChinese",
}

func (e Encoding) String() string {
	if name, ok := encodingNames[e]; ok {
		return name
	}
	return "Unknown"
}

// ParseEncodingName parses the names printed by Encoding.String, as found
// in configuration files.
func ParseEncodingName(name string) (Encoding, error) {
	for enc, n := range encodingNames {
		if strings.EqualFold(n, name) {
			return enc, nil
		}
	}
	return 0, dcmerr.New(dcmerr.KindBadParameterType, "unknown encoding").WithDetail(name)
}

// definedTerms maps SpecificCharacterSet defined terms to encodings.
var definedTerms = map[string]Encoding{
	"ISO_IR 6":        EncodingASCII,
	"ISO 2022 IR 6":   EncodingASCII,
	"ISO_IR 192":      EncodingUTF8,
	"ISO_IR 100":      EncodingLatin1,
	"ISO 2022 IR 100": EncodingLatin1,
	"ISO_IR 101":      EncodingLatin2,
	"ISO 2022 IR 101": EncodingLatin2,
	"ISO_IR 109":      EncodingLatin3,
	"ISO 2022 IR 109": EncodingLatin3,
	"ISO_IR 110":      EncodingLatin4,
	"ISO 2022 IR 110": EncodingLatin4,
	"ISO_IR 148":      EncodingLatin5,
	"ISO 2022 IR 148": EncodingLatin5,
	"ISO_IR 144":      EncodingCyrillic,
	"ISO 2022 IR 144": EncodingCyrillic,
	"ISO_IR 127":      EncodingArabic,
	"ISO 2022 IR 127": EncodingArabic,
	"ISO_IR 126":      EncodingGreek,
	"ISO 2022 IR 126": EncodingGreek,
	"ISO_IR 138":      EncodingHebrew,
	"ISO 2022 IR 138": EncodingHebrew,
	"ISO_IR 166":      EncodingThai,
	"ISO 2022 IR 166": EncodingThai,
	"ISO_IR 13":       EncodingJapanese,
	"ISO 2022 IR 13":  EncodingJapanese,
	"GB18030":         EncodingChinese,
	"GBK":             EncodingChinese,
	"ISO 2022 IR 87":  EncodingJapaneseKanji,
	"ISO 2022 IR 159": EncodingJapaneseKanji,
	"ISO 2022 IR 149": EncodingKorean,
	"ISO 2022 IR 58":  EncodingSimplifiedChinese,
}

// LookupEncoding maps one defined term to its encoding.
func LookupEncoding(term string) (Encoding, error) {
	enc, ok := definedTerms[strings.ToUpper(strings.TrimSpace(term))]
	if !ok {
		return EncodingASCII, dcmerr.New(dcmerr.KindBadParameterType, "unsupported specific character set").WithDetail(term)
	}
	return enc, nil
}

// SpecificCharacterSet returns the value written to (0008,0005) for e.
func (e Encoding) SpecificCharacterSet() string {
	switch e {
	case EncodingASCII:
		return "ISO_IR 6"
	case EncodingUTF8:
		return "ISO_IR 192"
	case EncodingLatin1:
		return "ISO_IR 100"
	case EncodingLatin2:
		return "ISO_IR 101"
	case EncodingLatin3:
		return "ISO_IR 109"
	case EncodingLatin4:
		return "ISO_IR 110"
	case EncodingLatin5:
		return "ISO_IR 148"
	case EncodingCyrillic:
		return "ISO_IR 144"
	case EncodingArabic:
		return "ISO_IR 127"
	case EncodingGreek:
		return "ISO_IR 126"
	case EncodingHebrew:
		return "ISO_IR 138"
	case EncodingThai:
		return "ISO_IR 166"
	case EncodingJapanese:
		return "ISO_IR 13"
	case EncodingChinese:
		return "GB18030"
	case EncodingJapaneseKanji:
		return `\ISO 2022 IR 87`
	case EncodingKorean:
		return `\ISO 2022 IR 149`
	case EncodingSimplifiedChinese:
		return `\ISO 2022 IR 58`
	}
	return ""
}

// Charset is a decoded SpecificCharacterSet: the encoding named by its
// first non-empty defined term, and the raw terms driving ISO 2022 code
// extensions.
type Charset struct {
	Encoding Encoding
	terms    []string
}

// CharsetFor returns the charset written for enc.
func CharsetFor(enc Encoding) Charset {
	c, _ := ParseCharset(enc.SpecificCharacterSet(), enc)
	return c
}

// ParseCharset parses a SpecificCharacterSet value. An empty value yields
// the fallback encoding; an unsupported term fails with BadParameterType.
func ParseCharset(value string, fallback Encoding) (Charset, error) {
	value = strings.TrimRight(value, " \x00")
	if strings.TrimSpace(value) == "" {
		return Charset{Encoding: fallback}, nil
	}

	terms := strings.Split(value, `\`)
	for i := range terms {
		terms[i] = strings.ToUpper(strings.TrimSpace(terms[i]))
	}

	for _, term := range terms {
		if term == "" {
			continue
		}
		enc, err := LookupEncoding(term)
		if err != nil {
			return Charset{Encoding: EncodingASCII}, err
		}
		return Charset{Encoding: enc, terms: terms}, nil
	}
	return Charset{Encoding: EncodingASCII, terms: terms}, nil
}

// DetectEncoding reads (0008,0005) of ds. It returns the encoding and
// whether ISO 2022 code extensions are in use.
func DetectEncoding(ds *Dataset, fallback Encoding) (Encoding, bool, error) {
	c, err := DetectCharset(ds, fallback)
	return c.Encoding, c.HasCodeExtensions(), err
}

// DetectCharset is DetectEncoding returning the full charset.
func DetectCharset(ds *Dataset, fallback Encoding) (Charset, error) {
	value, ok := ds.LookupString(TagSpecificCharacterSet)
	if !ok {
		return Charset{Encoding: fallback}, nil
	}
	return ParseCharset(value, fallback)
}

// HasCodeExtensions reports a multi-valued SpecificCharacterSet.
func (c Charset) HasCodeExtensions() bool {
	return len(c.terms) > 1
}

// String is the canonical SpecificCharacterSet value of the charset.
func (c Charset) String() string {
	if c.terms == nil {
		return c.Encoding.SpecificCharacterSet()
	}
	return strings.Join(c.terms, `\`)
}

func (c Charset) usesISO2022() bool {
	if c.HasCodeExtensions() {
		return true
	}
	for _, t := range c.terms {
		if strings.HasPrefix(t, "ISO 2022") {
			return true
		}
	}
	return false
}

func simpleEncoding(e Encoding) encoding.Encoding {
	switch e {
	case EncodingLatin1:
		return charmap.ISO8859_1
	case EncodingLatin2:
		return charmap.ISO8859_2
	case EncodingLatin3:
		return charmap.ISO8859_3
	case EncodingLatin4:
		return charmap.ISO8859_4
	case EncodingLatin5:
		return charmap.ISO8859_9
	case EncodingCyrillic:
		return charmap.ISO8859_5
	case EncodingArabic:
		return charmap.ISO8859_6
	case EncodingGreek:
		return charmap.ISO8859_7
	case EncodingHebrew:
		return charmap.ISO8859_8
	case EncodingThai:
		return charmap.Windows874
	case EncodingJapanese:
		return japanese.ShiftJIS
	case EncodingChinese:
		return simplifiedchinese.GB18030
	case EncodingJapaneseKanji:
		return japanese.ISO2022JP
	case EncodingKorean:
		return korean.EUCKR
	case EncodingSimplifiedChinese:
		return simplifiedchinese.GBK
	}
	return nil
}

// Decode converts encoded text to UTF-8. Malformed input never fails: the
// offending bytes become U+FFFD and a warning is logged.
func (c Charset) Decode(b []byte, logger *slog.Logger) string {
	if len(b) == 0 {
		return ""
	}

	var s string
	switch {
	case c.usesISO2022():
		s = decodeISO2022(b, c.terms)
	case c.Encoding == EncodingUTF8:
		s = strings.ToValidUTF8(string(b), "�")
	case c.Encoding == EncodingASCII:
		s = decodeASCII(b)
	default:
		out, err := simpleEncoding(c.Encoding).NewDecoder().Bytes(b)
		if err != nil {
			s = decodeASCII(b)
		} else {
			s = string(out)
		}
	}

	if strings.ContainsRune(s, utf8.RuneError) && !strings.Contains(string(b), "�") {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("Invalid characters replaced while decoding",
			"charset", c.String(),
			"length", len(b))
	}
	return s
}

func decodeASCII(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		if c < 0x80 {
			sb.WriteByte(c)
		} else {
			sb.WriteRune(utf8.RuneError)
		}
	}
	return sb.String()
}

// Encode converts UTF-8 text to the charset. Characters that cannot be
// represented become '?' when lossy is set, and fail with
// NotAcceptableCharacter otherwise.
func (c Charset) Encode(s string, lossy bool) ([]byte, error) {
	switch {
	case s == "":
		return []byte{}, nil
	case c.usesISO2022():
		return encodeISO2022(s, c.terms, lossy)
	case c.Encoding == EncodingUTF8:
		return []byte(s), nil
	case c.Encoding == EncodingASCII:
		return encodeRunes(s, lossy, func(r rune) ([]byte, bool) {
			return []byte{byte(r)}, r < 0x80
		})
	}

	enc := simpleEncoding(c.Encoding)
	if out, err := enc.NewEncoder().Bytes([]byte(s)); err == nil {
		return out, nil
	}
	return encodeRunes(s, lossy, func(r rune) ([]byte, bool) {
		out, err := enc.NewEncoder().Bytes([]byte(string(r)))
		return out, err == nil
	})
}

func encodeRunes(s string, lossy bool, one func(rune) ([]byte, bool)) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		b, ok := one(r)
		if !ok {
			if !lossy {
				return nil, dcmerr.New(dcmerr.KindNotAcceptableCharacter, "character %q cannot be encoded", r)
			}
			b = []byte{'?'}
		}
		out = append(out, b...)
	}
	return out, nil
}

// ConvertToUTF8 decodes b with the encoding alone, without code extensions.
func ConvertToUTF8(b []byte, enc Encoding) string {
	return Charset{Encoding: enc}.Decode(b, nil)
}

// ConvertFromUTF8 encodes s with the encoding alone, lossy.
func ConvertFromUTF8(s string, enc Encoding) []byte {
	out, _ := Charset{Encoding: enc}.Encode(s, true)
	return out
}
