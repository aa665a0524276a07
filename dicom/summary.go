package dicom

// Summary returns the top-level leaf elements of ds as text. Sequences and
// binary values are skipped, and so are values longer than maxLength
// unless maxLength is 0.
func Summary(ds *Dataset, maxLength int) map[Tag]string {
	out := make(map[Tag]string, ds.Len())
	for _, tag := range ds.Tags() {
		e := ds.elements[tag]
		if e.Value.IsSequence() || isBinaryElement(e) {
			continue
		}
		s := e.Value.String()
		if maxLength > 0 && len(s) > maxLength {
			continue
		}
		out[tag] = s
	}
	return out
}

// SummaryDataset is Summary returned as a dataset, keeping the VRs.
func SummaryDataset(ds *Dataset, maxLength int) *Dataset {
	out := NewDataset()
	for tag := range Summary(ds, maxLength) {
		e := ds.elements[tag]
		out.AddElement(tag, e.VR, e.Value.Clone())
	}
	return out
}
