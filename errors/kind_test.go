package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindBadFileFormat, "BadFileFormat"},
		{KindInexistentItem, "InexistentItem"},
		{KindNoPresentationContext, "NoPresentationContext"},
		{Kind(999), "Kind(999)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorIsKind(t *testing.T) {
	err := fmt.Errorf("parsing: %w", New(KindBadFileFormat, "truncated element"))

	if !errors.Is(err, KindBadFileFormat) {
		t.Error("errors.Is(err, KindBadFileFormat) = false, want true")
	}
	if errors.Is(err, KindCorruptedFile) {
		t.Error("errors.Is(err, KindCorruptedFile) = true, want false")
	}
	if !errors.Is(err, &Error{Kind: KindBadFileFormat}) {
		t.Error("errors.Is against *Error of same kind should match")
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(nil); got != KindNone {
		t.Errorf("KindOf(nil) = %v, want %v", got, KindNone)
	}
	if got := KindOf(errors.New("boom")); got != KindInternalError {
		t.Errorf("KindOf(foreign) = %v, want %v", got, KindInternalError)
	}
	wrapped := fmt.Errorf("outer: %w", Wrap(KindNetworkProtocol, NewNetworkError("read", errors.New("reset")), "C-ECHO"))
	if got := KindOf(wrapped); got != KindNetworkProtocol {
		t.Errorf("KindOf(wrapped) = %v, want %v", got, KindNetworkProtocol)
	}

	var netErr *NetworkError
	if !errors.As(wrapped, &netErr) {
		t.Error("network error should remain reachable through Unwrap")
	}
}

func TestErrorMessageCarriesDetail(t *testing.T) {
	err := New(KindUnknownDicomTag, "cannot parse tag").WithDetail("FooBar")
	want := "UnknownDicomTag: cannot parse tag [FooBar]"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestDIMSEErrorWithRemote(t *testing.T) {
	err := &DIMSEError{Operation: "C-STORE", Status: 0xA700, RemoteAET: "PACS"}
	want := `C-STORE SCU to AET "PACS" has failed with DIMSE status 0xA700`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	warn := &DIMSEError{Status: 0xB007}
	if !warn.IsWarning() {
		t.Error("0xB007 should be a warning")
	}
}

func TestDIMSEStatusClasses(t *testing.T) {
	tests := []struct {
		status  uint16
		success bool
		pending bool
		cancel  bool
		warning bool
		failure bool
	}{
		{0x0000, true, false, false, false, false},
		{0xFF00, false, true, false, false, false},
		{0xFF01, false, true, false, false, false},
		{0xFE00, false, false, true, false, false},
		{0x0001, false, false, false, true, false},
		{0x0107, false, false, false, true, false},
		{0x0116, false, false, false, true, false},
		{0xB000, false, false, false, true, false},
		{0xB007, false, false, false, true, false},
		{0xA700, false, false, false, false, true},
		{0xA801, false, false, false, false, true},
		{0xC000, false, false, false, false, true},
		{0x0110, false, false, false, false, true},
		{0x0211, false, false, false, false, true},
	}

	for _, tt := range tests {
		e := &DIMSEError{Status: tt.status}
		got := [5]bool{e.IsSuccess(), e.IsPending(), e.IsCancel(), e.IsWarning(), e.IsFailure()}
		want := [5]bool{tt.success, tt.pending, tt.cancel, tt.warning, tt.failure}
		if got != want {
			t.Errorf("0x%04X: success/pending/cancel/warning/failure = %v, want %v", tt.status, got, want)
		}
	}
}
