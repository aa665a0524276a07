package main

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caio-sobreiro/dicomcore/config"
	"github.com/caio-sobreiro/dicomcore/dicom"
	"github.com/caio-sobreiro/dicomcore/server"
	"github.com/caio-sobreiro/dicomcore/types"
)

func writeCTFile(t *testing.T, dir, sopInstanceUID string) string {
	t.Helper()
	ds := dicom.NewDataset()
	ds.SetString(dicom.TagSOPClassUID, types.CTImageStorage)
	ds.SetString(dicom.TagSOPInstanceUID, sopInstanceUID)
	ds.SetString(dicom.TagPatientID, "PAT-1")
	ds.SetString(dicom.TagPatientName, "DOE^JANE")
	ds.SetString(dicom.TagStudyInstanceUID, "1.2.840.1")
	ds.SetString(dicom.TagSeriesInstanceUID, "1.2.840.1.1")
	ds.SetString(dicom.TagModality, "CT")
	data, err := dicom.NewInstance(ds, types.ExplicitVRLittleEndian).Serialize()
	require.NoError(t, err)

	path := filepath.Join(dir, sopInstanceUID+".dcm")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// Flags keep their values between executions of rootCmd.
	configPath, remoteName, outputPath = "", "", ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(t.Context())
	return out.String(), err
}

// startNode serves the node built from the configuration at path on a
// loopback listener whose port the configuration already names.
func startNode(t *testing.T, path string, listener net.Listener) {
	t.Helper()
	var err error
	cfg, err = config.Load(t.Context(), path, config.Options{})
	require.NoError(t, err)
	logger = cfg.Logger(os.Stderr)
	env, err = cfg.Environment()
	require.NoError(t, err)

	registry, closeNode, err := buildNode(t.Context())
	require.NoError(t, err)
	t.Cleanup(closeNode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	srv := server.New(cfg.DICOM.AETitle, registry, server.WithAcceptor(cfg.Acceptor()), server.WithLogger(logger))
	go srv.Serve(ctx, listener)
}

func TestCommandsAgainstNode(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port

	dir := t.TempDir()
	path := filepath.Join(dir, "dicomcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(`
dicom:
  aet: NODE
  port: %d
modalities:
  self:
    aet: NODE
    host: 127.0.0.1
    port: %d
storage:
  backend: memory
log:
  level: warn
`, port, port)), 0o600))
	startNode(t, path, listener)

	_, err = run(t, "--config", path, "echo", "-m", "self")
	require.NoError(t, err)

	files := []string{writeCTFile(t, dir, "1.2.840.1.1.1"), writeCTFile(t, dir, "1.2.840.1.1.2")}
	_, err = run(t, append([]string{"--config", path, "store", "-m", "self"}, files...)...)
	require.NoError(t, err)

	out, err := run(t, "--config", path, "find", "-m", "self", "-l", "IMAGE", "--format", "Short",
		"StudyInstanceUID=1.2.840.1", "SOPInstanceUID=")
	require.NoError(t, err)
	assert.Contains(t, out, "1.2.840.1.1.1")
	assert.Contains(t, out, "1.2.840.1.1.2")

	_, err = run(t, "--config", path, "echo", "-m", "nobody")
	assert.Error(t, err)
}

func TestDumpAndAnonymize(t *testing.T) {
	dir := t.TempDir()
	file := writeCTFile(t, dir, "1.2.840.1.1.1")

	out, err := run(t, "dump", "--format", "Human", file)
	require.NoError(t, err)
	assert.Contains(t, out, "DOE^JANE")

	anonymized := filepath.Join(dir, "anonymized.dcm")
	_, err = run(t, "anonymize", "-o", anonymized, file)
	require.NoError(t, err)

	out, err = run(t, "dump", "--format", "Human", anonymized)
	require.NoError(t, err)
	assert.NotContains(t, out, "DOE^JANE")
	assert.NotContains(t, out, "1.2.840.1.1.1")
}

func TestPreview(t *testing.T) {
	dir := t.TempDir()
	ds := dicom.NewDataset()
	ds.SetString(dicom.TagSOPClassUID, types.SecondaryCaptureImageStorage)
	ds.SetString(dicom.TagSOPInstanceUID, "1.2.840.1.1.9")
	ds.SetString(dicom.TagRows, "4")
	ds.SetString(dicom.TagColumns, "8")
	ds.SetString(dicom.TagSamplesPerPixel, "1")
	ds.SetString(dicom.TagPhotometricInterpretation, "MONOCHROME2")
	ds.SetString(dicom.TagBitsAllocated, "8")
	ds.SetString(dicom.TagBitsStored, "8")
	ds.SetString(dicom.TagHighBit, "7")
	ds.SetString(dicom.TagPixelRepresentation, "0")
	ds.AddElement(dicom.TagPixelData, dicom.VR_OB, dicom.BinaryValue(bytes.Repeat([]byte{0x40, 0xC0}, 16)))
	data, err := dicom.NewInstance(ds, types.ExplicitVRLittleEndian).Serialize()
	require.NoError(t, err)
	file := filepath.Join(dir, "image.dcm")
	require.NoError(t, os.WriteFile(file, data, 0o600))

	frameIndex, previewSize = 0, 0
	pngPath := filepath.Join(dir, "frame.png")
	_, err = run(t, "preview", "-o", pngPath, file)
	require.NoError(t, err)
	written, err := os.ReadFile(pngPath)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(written))
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.Equal(t, 4, img.Bounds().Dy())

	jpegPath := filepath.Join(dir, "frame.jpg")
	_, err = run(t, "preview", "--size", "4", "-o", jpegPath, file)
	require.NoError(t, err)
	written, err = os.ReadFile(jpegPath)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8}, written[:2])

	_, err = run(t, "preview", "--frame", "3", "-o", pngPath, file)
	assert.Error(t, err)
	frameIndex, previewSize = 0, 0
}

func TestParseKeys(t *testing.T) {
	env = dicom.NewEnvironment()
	ds, err := parseKeys([]string{"PatientID=PAT*", "0008,0060=CT", "StudyDate="})
	require.NoError(t, err)
	assert.Equal(t, "PAT*", ds.GetString(dicom.TagPatientID))
	assert.Equal(t, "CT", ds.GetString(dicom.TagModality))
	assert.True(t, ds.Has(dicom.TagStudyDate))

	_, err = parseKeys([]string{"NoSuchKeyword=1"})
	assert.Error(t, err)

	level, err := parseLevel("series")
	require.NoError(t, err)
	assert.Equal(t, types.LevelSeries, level)
	_, err = parseLevel("WORKLIST")
	assert.Error(t, err)
}
