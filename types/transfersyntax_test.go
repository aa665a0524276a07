package types

import (
	"slices"
	"testing"
)

func TestTransferSyntaxLayout(t *testing.T) {
	tests := []struct {
		uid          string
		explicit     bool
		bigEndian    bool
		deflated     bool
		encapsulated bool
		lossless     bool
		video        bool
	}{
		{ImplicitVRLittleEndian, false, false, false, false, true, false},
		{ExplicitVRLittleEndian, true, false, false, false, true, false},
		{ExplicitVRBigEndian, true, true, false, false, true, false},
		{DeflatedExplicitVRLittleEndian, true, false, true, false, true, false},
		{JPEGBaseline8Bit, true, false, false, true, false, false},
		{JPEGLosslessSV1, true, false, false, true, true, false},
		{JPEGLSNearLossless, true, false, false, true, false, false},
		{JPEG2000Lossless, true, false, false, true, true, false},
		{RLELossless, true, false, false, true, true, false},
		{JPIPReferencedDeflate, true, false, true, false, true, false},
		{MPEG4AVCH264HighProfile, true, false, false, true, false, true},
		{HEVCH265Main10ProfileLevel51, true, false, false, true, false, true},
		{HTJ2KLosslessRPCL, true, false, false, true, true, false},
	}

	for _, tt := range tests {
		info, ok := LookupTransferSyntax(tt.uid)
		if !ok {
			t.Errorf("%s is not registered", tt.uid)
			continue
		}
		t.Run(info.Name, func(t *testing.T) {
			if info.ExplicitVR != tt.explicit {
				t.Errorf("ExplicitVR = %v", info.ExplicitVR)
			}
			if info.BigEndian != tt.bigEndian {
				t.Errorf("BigEndian = %v", info.BigEndian)
			}
			if info.Deflated != tt.deflated {
				t.Errorf("Deflated = %v", info.Deflated)
			}
			if IsEncapsulated(tt.uid) != tt.encapsulated {
				t.Errorf("IsEncapsulated = %v", !tt.encapsulated)
			}
			if IsLossless(tt.uid) != tt.lossless {
				t.Errorf("IsLossless = %v", !tt.lossless)
			}
			if IsVideo(tt.uid) != tt.video {
				t.Errorf("IsVideo = %v", !tt.video)
			}
			if IsCompressed(tt.uid) != (tt.encapsulated || tt.deflated) {
				t.Errorf("IsCompressed = %v", IsCompressed(tt.uid))
			}
		})
	}
}

func TestRetiredTransferSyntaxes(t *testing.T) {
	for _, uid := range []string{ExplicitVRBigEndian, JPEGSpectralSelectionNonHierarchical68, JPEGLosslessNonHierarchical1517} {
		if !IsRetired(uid) {
			t.Errorf("%s should be retired", uid)
		}
	}
	for _, uid := range []string{ExplicitVRLittleEndian, JPEGLosslessSV1, JPEG2000} {
		if IsRetired(uid) {
			t.Errorf("%s should not be retired", uid)
		}
	}
}

func TestUnknownTransferSyntax(t *testing.T) {
	const uid = "1.2.826.0.1.3680043.9.9999"
	if _, ok := LookupTransferSyntax(uid); ok {
		t.Fatal("private UID should not be registered")
	}

	// Unknown syntaxes are read as explicit little endian.
	info := GetTransferSyntaxInfo(uid)
	if info.UID != uid || info.Name != "Unknown" {
		t.Errorf("info = %+v", info)
	}
	if !info.ExplicitVR || info.BigEndian || info.Encapsulated || info.Deflated {
		t.Errorf("unknown syntax layout = %+v, want explicit little endian", info)
	}
	if IsCompressed(uid) || IsRetired(uid) || !IsLossless(uid) {
		t.Error("unknown syntax should look like a native lossless one")
	}
}

func TestRegistryConsistency(t *testing.T) {
	for uid, info := range transferSyntaxRegistry {
		if info.UID != uid {
			t.Errorf("%s registered under %s", info.UID, uid)
		}
		if info.Name == "" || info.Description == "" {
			t.Errorf("%s lacks a name or description", uid)
		}
		if info.Video && (!info.Encapsulated || info.IsLossless) {
			t.Errorf("%s: video syntaxes are encapsulated and lossy", uid)
		}
		if info.Encapsulated && info.Deflated {
			t.Errorf("%s cannot be both encapsulated and deflated", uid)
		}
		if !info.ExplicitVR && uid != ImplicitVRLittleEndian {
			t.Errorf("%s: only the default syntax is implicit VR", uid)
		}
	}
}

func TestUncompressedTransferSyntaxes(t *testing.T) {
	native := UncompressedTransferSyntaxes()
	if native[0] != ExplicitVRLittleEndian {
		t.Errorf("first proposed native syntax = %s", native[0])
	}
	for _, uid := range native {
		if !IsUncompressed(uid) || IsEncapsulated(uid) {
			t.Errorf("%s should be native", uid)
		}
	}
	if IsUncompressed(DeflatedExplicitVRLittleEndian) || IsUncompressed(RLELossless) {
		t.Error("deflate and RLE are not native")
	}
}

func TestCommonTransferSyntaxes(t *testing.T) {
	common := GetCommonTransferSyntaxes()
	for _, uid := range common {
		if _, ok := LookupTransferSyntax(uid); !ok {
			t.Errorf("%s is proposed but not registered", uid)
		}
	}

	// Native first, then lossless, then lossy.
	firstLossy := slices.IndexFunc(common, func(uid string) bool { return !IsLossless(uid) })
	if firstLossy < 0 {
		t.Fatal("no lossy syntax proposed")
	}
	for _, uid := range common[firstLossy:] {
		if IsLossless(uid) {
			t.Errorf("lossless %s proposed after lossy %s", uid, common[firstLossy])
		}
	}
	if !IsUncompressed(common[0]) || !IsUncompressed(common[1]) {
		t.Error("native syntaxes should be proposed first")
	}
}

func BenchmarkLookupTransferSyntax(b *testing.B) {
	for b.Loop() {
		LookupTransferSyntax(JPEGLosslessSV1)
	}
}
