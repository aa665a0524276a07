package types

// Product identification written into generated attributes such as
// DeidentificationMethod.
const (
	ProductName    = "dicomcore"
	ProductVersion = "1.0.0"
)
