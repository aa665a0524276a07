package services

import (
	"strings"

	"github.com/caio-sobreiro/dicomcore/dicom"
)

// matchKey applies C-FIND attribute matching of one query key to a stored
// value: universal, UID list, range (dates and times), and wildcard
// matching. Person names compare case-insensitively.
func matchKey(vr dicom.VR, key, value string) bool {
	key = strings.TrimSpace(key)
	if key == "" || key == "*" {
		return true
	}

	switch vr {
	case dicom.VR_UI:
		for _, uid := range strings.Split(key, `\`) {
			if strings.TrimSpace(uid) == value {
				return true
			}
		}
		return false
	case dicom.VR_DA, dicom.VR_TM, dicom.VR_DT:
		if lo, hi, ok := strings.Cut(key, "-"); ok {
			return inRange(lo, hi, value)
		}
	case dicom.VR_PN:
		key, value = strings.ToUpper(key), strings.ToUpper(value)
	}

	if strings.ContainsAny(key, `\`) {
		for _, k := range strings.Split(key, `\`) {
			if wildcardMatch(k, value) {
				return true
			}
		}
		return false
	}
	return wildcardMatch(key, value)
}

// inRange compares fixed-width DA/TM/DT strings lexically. An empty bound
// is open.
func inRange(lo, hi, value string) bool {
	lo, hi = strings.TrimSpace(lo), strings.TrimSpace(hi)
	if value == "" {
		return false
	}
	if lo != "" && value < lo {
		return false
	}
	if hi != "" && value > hi && !strings.HasPrefix(value, hi) {
		return false
	}
	return true
}

// wildcardMatch matches '*' (any run) and '?' (one character).
func wildcardMatch(pattern, s string) bool {
	p, v := []rune(pattern), []rune(s)
	pi, vi := 0, 0
	star, mark := -1, 0
	for vi < len(v) {
		switch {
		case pi < len(p) && (p[pi] == '?' || p[pi] == v[vi]):
			pi++
			vi++
		case pi < len(p) && p[pi] == '*':
			star, mark = pi, vi
			pi++
		case star >= 0:
			pi = star + 1
			mark++
			vi = mark
		default:
			return false
		}
	}
	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}
