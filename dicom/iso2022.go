package dicom

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"

	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
)

// codeElement is one graphic set reachable through ISO 2022 designation.
type codeElement struct {
	escape string
	g0     bool // designates G0 (otherwise G1)
	twoG0  bool // 94x94 set in G0: bytes 0x21..0x7E pair up, delimiters are not special
	decode func([]byte) string
	encode func(string) ([]byte, bool)
}

func decodeWith(enc encoding.Encoding) func([]byte) string {
	return func(b []byte) string {
		out, err := enc.NewDecoder().Bytes(b)
		if err != nil {
			return strings.Repeat(string(utf8.RuneError), len(b))
		}
		return string(out)
	}
}

func encodeWith(enc encoding.Encoding) func(string) ([]byte, bool) {
	return func(s string) ([]byte, bool) {
		out, err := enc.NewEncoder().Bytes([]byte(s))
		return out, err == nil
	}
}

func jisDecoder(designation string) func([]byte) string {
	return func(b []byte) string {
		wrapped := append([]byte(designation), b...)
		wrapped = append(wrapped, "\x1b(B"...)
		return decodeWith(japanese.ISO2022JP)(wrapped)
	}
}

func encodeLatin(cm *charmap.Charmap) func(string) ([]byte, bool) {
	return func(s string) ([]byte, bool) {
		out, err := cm.NewEncoder().Bytes([]byte(s))
		return out, err == nil
	}
}

var (
	asciiElement = &codeElement{
		escape: "\x1b(B",
		g0:     true,
		decode: decodeASCII,
		encode: func(s string) ([]byte, bool) {
			for i := 0; i < len(s); i++ {
				if s[i] >= 0x80 {
					return nil, false
				}
			}
			return []byte(s), true
		},
	}

	katakanaElement = &codeElement{
		escape: "\x1b)I",
		decode: decodeWith(japanese.ShiftJIS),
		encode: func(s string) ([]byte, bool) {
			out, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(s))
			if err != nil || len(out) != utf8.RuneCountInString(s) {
				return nil, false
			}
			return out, true
		},
	}

	jisX0208Element = &codeElement{
		escape: "\x1b$B",
		g0:     true,
		twoG0:  true,
		decode: jisDecoder("\x1b$B"),
		encode: encodeWith(japanese.ISO2022JP),
	}

	jisX0212Element = &codeElement{
		escape: "\x1b$(D",
		g0:     true,
		twoG0:  true,
		decode: jisDecoder("\x1b$(D"),
	}

	ksX1001Element = &codeElement{
		escape: "\x1b$)C",
		decode: decodeWith(korean.EUCKR),
		encode: encodeWith(korean.EUCKR),
	}

	gb2312Element = &codeElement{
		escape: "\x1b$)A",
		decode: decodeWith(simplifiedchinese.GBK),
		encode: func(s string) ([]byte, bool) {
			out, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(s))
			if err != nil {
				return nil, false
			}
			for i := 0; i < len(out); i++ {
				if out[i] >= 0x80 {
					if out[i] < 0xA1 || i+1 >= len(out) || out[i+1] < 0xA1 {
						return nil, false
					}
					i++
				}
			}
			return out, true
		},
	}
)

func latinElement(final byte, cm *charmap.Charmap) *codeElement {
	return &codeElement{
		escape: "\x1b-" + string(final),
		decode: decodeWith(cm),
		encode: encodeLatin(cm),
	}
}

var iso2022Terms = map[string]*codeElement{
	"":                asciiElement,
	"ISO 2022 IR 6":   asciiElement,
	"ISO_IR 6":        asciiElement,
	"ISO 2022 IR 13":  katakanaElement,
	"ISO_IR 13":       katakanaElement,
	"ISO 2022 IR 87":  jisX0208Element,
	"ISO 2022 IR 159": jisX0212Element,
	"ISO 2022 IR 149": ksX1001Element,
	"ISO 2022 IR 58":  gb2312Element,
	"ISO 2022 IR 100": latinElement('A', charmap.ISO8859_1),
	"ISO 2022 IR 101": latinElement('B', charmap.ISO8859_2),
	"ISO 2022 IR 109": latinElement('C', charmap.ISO8859_3),
	"ISO 2022 IR 110": latinElement('D', charmap.ISO8859_4),
	"ISO 2022 IR 148": latinElement('M', charmap.ISO8859_9),
	"ISO 2022 IR 144": latinElement('L', charmap.ISO8859_5),
	"ISO 2022 IR 127": latinElement('G', charmap.ISO8859_6),
	"ISO 2022 IR 126": latinElement('F', charmap.ISO8859_7),
	"ISO 2022 IR 138": latinElement('H', charmap.ISO8859_8),
	"ISO 2022 IR 166": latinElement('T', charmap.Windows874),
}

// escapeTable lists every designation sequence the decoder understands.
var escapeTable = func() map[string]*codeElement {
	table := map[string]*codeElement{
		"\x1b(J": asciiElement, // JIS X 0201 romaji
	}
	for _, e := range iso2022Terms {
		table[e.escape] = e
	}
	return table
}()

type codeState struct {
	g0, g1 *codeElement
}

func initialState(terms []string) codeState {
	state := codeState{g0: asciiElement}
	if len(terms) == 0 {
		return state
	}
	e, ok := iso2022Terms[terms[0]]
	if !ok {
		e, ok = iso2022Terms[strings.Replace(terms[0], "ISO_IR ", "ISO 2022 IR ", 1)]
	}
	if ok {
		if e.g0 && !e.twoG0 {
			state.g0 = e
		} else if !e.g0 {
			state.g1 = e
		}
	}
	return state
}

func matchEscape(b []byte) (*codeElement, int) {
	for seq, e := range escapeTable {
		if bytes.HasPrefix(b, []byte(seq)) {
			return e, len(seq)
		}
	}
	return nil, 0
}

func isResetControl(c byte) bool {
	return c < 0x20 && c != 0x1B
}

func isDelimiter(c byte) bool {
	return c == '^' || c == '=' || c == '\\'
}

func (s codeState) decodeSegment(b []byte, out *strings.Builder) {
	if len(b) == 0 {
		return
	}
	if s.g0.twoG0 {
		out.WriteString(s.g0.decode(b))
		return
	}
	for i := 0; i < len(b); {
		j := i
		high := b[i] >= 0x80
		for j < len(b) && (b[j] >= 0x80) == high {
			j++
		}
		switch {
		case !high:
			out.WriteString(s.g0.decode(b[i:j]))
		case s.g1 != nil:
			out.WriteString(s.g1.decode(b[i:j]))
		default:
			out.WriteString(strings.Repeat(string(utf8.RuneError), j-i))
		}
		i = j
	}
}

// decodeISO2022 decodes text using ISO 2022 escape sequences as in PS3.5
// section 6.1.2.5. Delimiters and control characters switch back to the
// sets of the first value.
func decodeISO2022(b []byte, terms []string) string {
	initial := initialState(terms)
	state := initial

	var out strings.Builder
	start := 0
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c == 0x1B:
			state.decodeSegment(b[start:i], &out)
			e, n := matchEscape(b[i:])
			if e == nil {
				out.WriteRune(utf8.RuneError)
				i++
			} else {
				if e.g0 {
					state.g0 = e
				} else {
					state.g1 = e
				}
				i += n
			}
			start = i
		case isResetControl(c) || (!state.g0.twoG0 && isDelimiter(c)):
			state.decodeSegment(b[start:i], &out)
			out.WriteByte(c)
			state = initial
			i++
			start = i
		default:
			i++
		}
	}
	state.decodeSegment(b[start:], &out)
	return out.String()
}

// encodeISO2022 encodes each run between delimiters with the first set of
// the charset able to represent it, emitting designations as needed.
func encodeISO2022(s string, terms []string, lossy bool) ([]byte, error) {
	initial := initialState(terms)

	var candidates []*codeElement
	for _, term := range terms {
		if e, ok := iso2022Terms[term]; ok && e.encode != nil {
			candidates = append(candidates, e)
		}
	}

	var out []byte
	run := func(r string) error {
		if r == "" {
			return nil
		}
		if b, ok := asciiElement.encode(r); ok {
			out = append(out, b...)
			return nil
		}
		if initial.g1 != nil {
			if b, ok := initial.g1.encode(r); ok {
				out = append(out, b...)
				return nil
			}
		}
		for _, e := range candidates {
			b, ok := e.encode(r)
			if !ok {
				continue
			}
			if e != jisX0208Element {
				out = append(out, e.escape...)
			}
			out = append(out, b...)
			return nil
		}
		if !lossy {
			return dcmerr.New(dcmerr.KindNotAcceptableCharacter, "text cannot be encoded").WithDetail(r)
		}
		encoded, _ := encodeRunes(r, true, func(c rune) ([]byte, bool) {
			return []byte{byte(c)}, c < 0x80
		})
		out = append(out, encoded...)
		return nil
	}

	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isDelimiter(c) || isResetControl(c) {
			if err := run(s[start:i]); err != nil {
				return nil, err
			}
			out = append(out, c)
			start = i + 1
		}
	}
	if err := run(s[start:]); err != nil {
		return nil, err
	}
	return out, nil
}
