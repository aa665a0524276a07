package dicom

import (
	"strconv"
	"strings"

	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
)

// PathStep is one sequence step of a DicomPath: a sequence tag and either
// an item index or the universal index "*".
type PathStep struct {
	Tag       Tag
	Index     int
	Universal bool
}

// DicomPath locates an element inside nested sequences, such as
// (0008,1140)[0].(0008,1155). With a universal step it is a pattern.
type DicomPath struct {
	Prefix []PathStep
	Final  Tag
}

// NewPath returns the path of a top-level tag.
func NewPath(tag Tag) DicomPath {
	return DicomPath{Final: tag}
}

// Child returns the path of tag inside item index of the sequence at the end of p.
func (p DicomPath) Child(index int, tag Tag) DicomPath {
	prefix := append(append([]PathStep(nil), p.Prefix...), PathStep{Tag: p.Final, Index: index})
	return DicomPath{Prefix: prefix, Final: tag}
}

// AllItems returns the pattern of tag inside every item of the sequence at the end of p.
func (p DicomPath) AllItems(tag Tag) DicomPath {
	prefix := append(append([]PathStep(nil), p.Prefix...), PathStep{Tag: p.Final, Universal: true})
	return DicomPath{Prefix: prefix, Final: tag}
}

// HasUniversal reports whether any step uses "*".
func (p DicomPath) HasUniversal() bool {
	for _, s := range p.Prefix {
		if s.Universal {
			return true
		}
	}
	return false
}

// IsTopLevel reports a path without sequence steps.
func (p DicomPath) IsTopLevel() bool {
	return len(p.Prefix) == 0
}

// Format renders the path as (gggg,eeee)[n].(gggg,eeee).
func (p DicomPath) Format() string {
	var sb strings.Builder
	for _, s := range p.Prefix {
		sb.WriteString("(" + s.Tag.Format() + ")")
		if s.Universal {
			sb.WriteString("[*].")
		} else {
			sb.WriteString("[" + strconv.Itoa(s.Index) + "].")
		}
	}
	sb.WriteString("(" + p.Final.Format() + ")")
	return sb.String()
}

func (p DicomPath) String() string { return p.Format() }

// Equal compares two paths step by step.
func (p DicomPath) Equal(o DicomPath) bool {
	if p.Final != o.Final || len(p.Prefix) != len(o.Prefix) {
		return false
	}
	for i := range p.Prefix {
		if p.Prefix[i] != o.Prefix[i] {
			return false
		}
	}
	return true
}

func (env *Environment) parsePathTag(token string) (Tag, error) {
	if strings.HasPrefix(token, "(") && strings.HasSuffix(token, ")") {
		if t, ok := parseHexTag(token); ok {
			return t, nil
		}
		return Tag{}, unknownTag(token)
	}
	return env.Dictionary.ParseTag(token)
}

// ParsePath parses a path with the default environment.
func ParsePath(s string) (DicomPath, error) {
	return Default().ParsePath(s)
}

// ParsePath parses the textual form of a path. Steps may name tags by
// keyword; whitespace around tokens is ignored.
func (env *Environment) ParsePath(s string) (DicomPath, error) {
	outOfRange := func(msg string, token string) error {
		return dcmerr.New(dcmerr.KindParameterOutOfRange, "%s", msg).WithDetail(token)
	}

	tokens := strings.Split(s, ".")
	if strings.TrimSpace(s) == "" {
		return DicomPath{}, outOfRange("empty path to DICOM tags", s)
	}

	final, err := env.parsePathTag(strings.TrimSpace(tokens[len(tokens)-1]))
	if err != nil {
		return DicomPath{}, err
	}
	path := DicomPath{Final: final}

	for _, token := range tokens[:len(tokens)-1] {
		pos := strings.IndexByte(token, '[')
		if pos < 0 {
			return DicomPath{}, outOfRange("parent path doesn't contain an index", token)
		}
		left := strings.TrimSpace(token[:pos])
		right := strings.TrimSpace(token[pos+1:])
		switch {
		case left == "":
			return DicomPath{}, outOfRange("parent path doesn't contain a tag", token)
		case right == "" || !strings.HasSuffix(right, "]"):
			return DicomPath{}, outOfRange("parent path doesn't contain the end of the index", token)
		}

		tag, err := env.parsePathTag(left)
		if err != nil {
			return DicomPath{}, err
		}

		index := strings.TrimSpace(strings.TrimSuffix(right, "]"))
		if index == "*" {
			path.Prefix = append(path.Prefix, PathStep{Tag: tag, Universal: true})
			continue
		}
		n, err := strconv.Atoi(index)
		if err != nil {
			return DicomPath{}, outOfRange("not a valid index in parent path", token)
		}
		if n < 0 {
			return DicomPath{}, outOfRange("negative index in parent path", token)
		}
		path.Prefix = append(path.Prefix, PathStep{Tag: tag, Index: n})
	}
	return path, nil
}

// IsMatch reports whether path is selected by pattern: each pattern step
// has the tag of the path step and either a universal or the same index.
// A path longer than the pattern matches when it lies below the pattern's
// final tag. The path itself must not contain universal steps.
func IsMatch(pattern, path DicomPath) (bool, error) {
	if path.HasUniversal() {
		return false, dcmerr.New(dcmerr.KindBadParameterType, "cannot match a pattern against a pattern").WithDetail(path.Format())
	}
	if len(path.Prefix) < len(pattern.Prefix) {
		return false, nil
	}
	for i, step := range pattern.Prefix {
		if path.Prefix[i].Tag != step.Tag || (!step.Universal && path.Prefix[i].Index != step.Index) {
			return false, nil
		}
	}
	if len(path.Prefix) == len(pattern.Prefix) {
		return path.Final == pattern.Final, nil
	}
	return path.Prefix[len(pattern.Prefix)].Tag == pattern.Final, nil
}
