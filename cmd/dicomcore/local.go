package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/caio-sobreiro/dicomcore/dicom"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/imaging"
	"github.com/caio-sobreiro/dicomcore/modification"
	"github.com/caio-sobreiro/dicomcore/transcoder"
	"github.com/caio-sobreiro/dicomcore/types"
)

var (
	outputPath   string
	requestPath  string
	modify       bool
	dicomVersion string
	allowLossy   bool
	dumpBinary   bool
	maxLength    int
	dumpFormat   string
	frameIndex   int
	previewSize  int
)

var anonymizeCmd = &cobra.Command{
	Use:   "anonymize FILE",
	Short: "Anonymize or modify a DICOM file",
	Long: `Apply the basic confidentiality profile of PS 3.15 to a DICOM file, or
the anonymization/modification request of --request, a JSON object with
Replace, Remove, Keep, Force, KeepPrivateTags, PrivateCreator and
DicomVersion.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputPath == "" {
			return fmt.Errorf("--output is required")
		}
		inst, err := readInstance(args[0])
		if err != nil {
			return err
		}
		m, err := buildModification()
		if err != nil {
			return err
		}
		if err := m.Apply(inst); err != nil {
			return err
		}
		if err := writeInstance(outputPath, inst); err != nil {
			return err
		}
		logger.Info("Instance written", "file", outputPath, "sop_instance_uid", inst.SOPInstanceUID())
		return nil
	},
}

var transcodeCmd = &cobra.Command{
	Use:   "transcode FILE SYNTAX",
	Short: "Change the transfer syntax of a DICOM file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputPath == "" {
			return fmt.Errorf("--output is required")
		}
		target := args[1]
		if _, ok := types.LookupTransferSyntax(target); !ok {
			return dcmerr.New(dcmerr.KindParameterOutOfRange, "unknown transfer syntax %s", target)
		}
		inst, err := readInstance(args[0])
		if err != nil {
			return err
		}
		tc, err := newTranscoder()
		if err != nil {
			return err
		}
		result, err := tc.Transcode(inst, transcoder.Request{
			Allowed:                []string{target},
			Preferred:              target,
			AllowNewSOPInstanceUID: allowLossy,
		})
		if err != nil {
			return err
		}
		if err := os.WriteFile(outputPath, result.Data, 0o644); err != nil {
			return err
		}
		logger.Info("Instance transcoded", "file", outputPath,
			"source", inst.TransferSyntax(), "target", result.TransferSyntax, "kind", result.Kind)
		return nil
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump FILE...",
	Short: "Print DICOM files as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, ok := dicom.ParseJSONFormat(dumpFormat)
		if !ok {
			return dcmerr.New(dcmerr.KindParameterOutOfRange, "unknown JSON format %q", dumpFormat)
		}
		opts := dicom.JSONOptions{Format: format, MaxStringLength: maxLength}
		if dumpBinary {
			opts.Flags |= dicom.JSONIncludeBinary
		}
		for _, path := range args {
			inst, err := readInstance(path)
			if err != nil {
				return err
			}
			out, err := env.EncodeJSON(inst.Dataset(), opts)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), string(out)); err != nil {
				return err
			}
		}
		return nil
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview FILE",
	Short: "Write one frame of a DICOM file as PNG or JPEG",
	Long: `Decode a frame, through the transcoder codecs when the file is
compressed, and write it to --output. The image format follows the
extension of the output file: .jpg or .jpeg for JPEG, PNG otherwise.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputPath == "" {
			return fmt.Errorf("--output is required")
		}
		inst, err := readInstance(args[0])
		if err != nil {
			return err
		}
		tc, err := newTranscoder()
		if err != nil {
			return err
		}
		img, err := tc.DecodeImage(inst, frameIndex)
		if err != nil {
			return err
		}
		img = imaging.Fit(img, previewSize)

		var data []byte
		switch strings.ToLower(filepath.Ext(outputPath)) {
		case ".jpg", ".jpeg":
			data, err = imaging.EncodeJPEG(img, tc.Quality())
		default:
			data, err = imaging.EncodePNG(img)
		}
		if err != nil {
			return err
		}
		if err := os.WriteFile(outputPath, data, 0o644); err != nil {
			return err
		}
		logger.Info("Preview written", "file", outputPath, "frame", frameIndex,
			"width", img.Bounds().Dx(), "height", img.Bounds().Dy())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(anonymizeCmd, transcodeCmd, dumpCmd, previewCmd)

	anonymizeCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output `file`")
	anonymizeCmd.Flags().StringVarP(&requestPath, "request", "r", "", "JSON request `file`")
	anonymizeCmd.Flags().BoolVar(&modify, "modify", false, "treat the request as a modification, not an anonymization")
	anonymizeCmd.Flags().StringVar(&dicomVersion, "dicom-version", "", "edition of the profile: 2008 or 2021b (default: 2021b)")

	transcodeCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output `file`")
	transcodeCmd.Flags().BoolVar(&allowLossy, "allow-lossy", false, "allow a lossy target, which gets a new SOP Instance UID")

	dumpCmd.Flags().StringVar(&dumpFormat, "format", "Full", "JSON format: Short, Full or Human")
	dumpCmd.Flags().BoolVar(&dumpBinary, "binary", false, "include binary values as data URIs")
	dumpCmd.Flags().IntVar(&maxLength, "max-length", 256, "values longer than this are marked TooLong, 0 disables the cap")

	previewCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output `file` (.png, .jpg)")
	previewCmd.Flags().IntVar(&frameIndex, "frame", 0, "index of the frame")
	previewCmd.Flags().IntVar(&previewSize, "size", 0, "longest side of the preview, 0 keeps the image size")
}

// buildModification reads --request, or sets up a plain anonymization.
func buildModification() (*modification.Modification, error) {
	m := modification.New(modification.WithLogger(logger))
	if requestPath == "" {
		if modify {
			return nil, fmt.Errorf("--modify needs --request")
		}
		version, err := modification.ParseDicomVersion(dicomVersion)
		if err != nil {
			return nil, err
		}
		return m, m.SetupAnonymization(version)
	}

	data, err := os.ReadFile(requestPath)
	if err != nil {
		return nil, err
	}
	req, err := modification.DecodeRequest(data)
	if err != nil {
		return nil, err
	}
	if dicomVersion != "" && req.DicomVersion == "" {
		req.DicomVersion = dicomVersion
	}
	if modify {
		return m, m.ParseModifyRequest(env, req)
	}
	if _, err := m.ParseAnonymizationRequest(env, req); err != nil {
		return nil, err
	}
	return m, nil
}

func writeInstance(path string, inst *dicom.ParsedInstance) error {
	data, err := inst.Serialize()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
