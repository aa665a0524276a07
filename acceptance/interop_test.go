package acceptance

import (
	"bytes"
	"strings"
	"testing"

	suyash "github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/caio-sobreiro/dicomcore/dicom"
	"github.com/caio-sobreiro/dicomcore/types"
)

// Files written by the engine must be readable by an independent parser.
func TestWrittenFilesParseWithSuyashkumarDicom(t *testing.T) {
	for _, ts := range []string{types.ExplicitVRLittleEndian, types.ImplicitVRLittleEndian} {
		t.Run(ts, func(t *testing.T) {
			ds := dicom.NewDataset()
			ds.SetString(dicom.TagSOPClassUID, types.CTImageStorage)
			ds.SetString(dicom.TagSOPInstanceUID, "1.2.826.0.1.3680043.2.1143.11")
			ds.SetString(dicom.TagPatientID, "PAT-1")
			ds.SetString(dicom.TagPatientName, "DOE^JANE")
			ds.SetString(dicom.TagStudyInstanceUID, "1.2.826.0.1.3680043.2.1143")
			ds.SetString(dicom.TagModality, "CT")
			ds.SetString(dicom.TagRows, "2")
			ds.SetString(dicom.TagColumns, "2")

			data, err := dicom.NewInstance(ds, ts).Serialize()
			if err != nil {
				t.Fatalf("Serialize failed: %v", err)
			}

			parsed, err := suyash.Parse(bytes.NewReader(data), int64(len(data)), nil)
			if err != nil {
				t.Fatalf("suyashkumar/dicom cannot parse the file: %v", err)
			}

			checks := map[tag.Tag]string{
				tag.TransferSyntaxUID: ts,
				tag.SOPInstanceUID:    "1.2.826.0.1.3680043.2.1143.11",
				tag.PatientName:       "DOE^JANE",
				tag.PatientID:         "PAT-1",
				tag.Modality:          "CT",
			}
			for tg, want := range checks {
				e, err := parsed.FindElementByTag(tg)
				if err != nil {
					t.Errorf("tag %v missing: %v", tg, err)
					continue
				}
				values := suyash.MustGetStrings(e.Value)
				if len(values) == 0 {
					t.Errorf("tag %v has no value", tg)
					continue
				}
				if got := strings.TrimRight(values[0], " \x00"); got != want {
					t.Errorf("tag %v = %q, want %q", tg, got, want)
				}
			}

			rows, err := parsed.FindElementByTag(tag.Rows)
			if err != nil {
				t.Fatalf("Rows missing: %v", err)
			}
			if ints := suyash.MustGetInts(rows.Value); len(ints) != 1 || ints[0] != 2 {
				t.Errorf("Rows = %v", ints)
			}
		})
	}
}
