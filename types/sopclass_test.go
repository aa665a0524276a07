package types

import (
	"strings"
	"testing"
)

func TestSOPClassCategories(t *testing.T) {
	tests := []struct {
		uid           string
		category      string
		storage       bool
		queryRetrieve bool
	}{
		{CTImageStorage, "Storage", true, false},
		{SecondaryCaptureImageStorage, "Storage", true, false},
		{RTDoseStorage, "Storage", true, false},
		{EncapsulatedPDFStorage, "Storage", true, false},
		{VerificationSOPClass, "Verification", false, false},
		{StudyRootQueryRetrieveInformationModelFind, "Query/Retrieve", false, true},
		{PatientRootQueryRetrieveInformationModelMove, "Query/Retrieve", false, true},
		{StorageCommitmentPushModelSOPClass, "Storage Commitment", false, false},
		{"1.2.826.0.1.3680043.9.1", "Unknown", false, false},
	}

	for _, tt := range tests {
		info := GetSOPClassInfo(tt.uid)
		if info.UID != tt.uid || info.Category != tt.category {
			t.Errorf("GetSOPClassInfo(%s) = %+v, want category %q", tt.uid, info, tt.category)
		}
		if IsStorageSOPClass(tt.uid) != tt.storage {
			t.Errorf("IsStorageSOPClass(%s) = %v", tt.uid, !tt.storage)
		}
		if IsQueryRetrieveSOPClass(tt.uid) != tt.queryRetrieve {
			t.Errorf("IsQueryRetrieveSOPClass(%s) = %v", tt.uid, !tt.queryRetrieve)
		}
	}
}

func TestSOPClassRegistry(t *testing.T) {
	if len(sopClassRegistry) != len(sopClassList) {
		t.Errorf("%d classes registered from a list of %d, some UID is listed twice",
			len(sopClassRegistry), len(sopClassList))
	}
	for _, info := range sopClassList {
		if !strings.HasPrefix(info.UID, "1.2.840.10008.") {
			t.Errorf("%s (%s) is not a DICOM UID", info.Name, info.UID)
		}
		if info.Name == "" || info.Category == "" {
			t.Errorf("%s lacks a name or category", info.UID)
		}
	}
}

func TestStorageCommitmentInstance(t *testing.T) {
	if !strings.HasPrefix(StorageCommitmentPushModelSOPInstance, StorageCommitmentPushModelSOPClass+".") {
		t.Errorf("well-known instance %s should live under %s",
			StorageCommitmentPushModelSOPInstance, StorageCommitmentPushModelSOPClass)
	}
}

func TestStorageSOPClasses(t *testing.T) {
	classes := StorageSOPClasses()
	if len(classes) == 0 {
		t.Fatal("StorageSOPClasses() returned empty list")
	}
	seen := make(map[string]bool)
	for _, uid := range classes {
		if !IsStorageSOPClass(uid) {
			t.Errorf("%s listed but IsStorageSOPClass = false", uid)
		}
		if seen[uid] {
			t.Errorf("%s listed twice", uid)
		}
		seen[uid] = true
	}
	if seen[StorageCommitmentPushModelSOPClass] {
		t.Error("storage commitment is not a storage SOP class")
	}
}

func TestCommonStorageSOPClasses(t *testing.T) {
	classes := CommonStorageSOPClasses()
	if len(classes) == 0 || len(classes) > MaxPresentationContexts {
		t.Fatalf("unexpected number of common classes: %d", len(classes))
	}
	seen := make(map[string]bool)
	for _, uid := range classes {
		if !IsStorageSOPClass(uid) {
			t.Errorf("%s is not a registered storage class", uid)
		}
		if seen[uid] {
			t.Errorf("%s listed twice", uid)
		}
		seen[uid] = true
	}

	classes[0] = "mutated"
	if CommonStorageSOPClasses()[0] == "mutated" {
		t.Error("CommonStorageSOPClasses must return a copy")
	}
}
