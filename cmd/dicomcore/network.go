package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/caio-sobreiro/dicomcore/client"
	"github.com/caio-sobreiro/dicomcore/dicom"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/transcoder"
	"github.com/caio-sobreiro/dicomcore/types"
)

var (
	queryLevel  string
	findFormat  string
	normalize   bool
	moveTarget  string
	transcode   bool
	syntax      string
	transaction string
)

var echoCmd = &cobra.Command{
	Use:   "echo",
	Short: "Send a C-ECHO to a modality",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := remoteParameters()
		if err != nil {
			return err
		}
		conn := client.NewControlConnection(params)
		defer conn.Close()
		if err := conn.Echo(cmd.Context()); err != nil {
			return err
		}
		logger.Info("C-ECHO succeeded", "remote_aet", params.Remote.AETitle)
		return nil
	},
}

var findCmd = &cobra.Command{
	Use:   "find [TAG=VALUE]...",
	Short: "Query a modality with C-FIND",
	Long: `Query a modality with C-FIND at the given level. Each argument is a
tag, given as a keyword or as "gggg,eeee", with its matching value. An
empty value asks for the tag to be returned. Answers are printed as JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := remoteParameters()
		if err != nil {
			return err
		}
		level, err := parseLevel(queryLevel)
		if err != nil {
			return err
		}
		format, ok := dicom.ParseJSONFormat(findFormat)
		if !ok {
			return dcmerr.New(dcmerr.KindParameterOutOfRange, "unknown JSON format %q", findFormat)
		}
		query, err := parseKeys(args)
		if err != nil {
			return err
		}

		conn := client.NewControlConnection(params)
		defer conn.Close()
		return conn.FindFunc(cmd.Context(), level, query, normalize, func(answer *dicom.Dataset) error {
			out, err := env.EncodeJSON(answer, dicom.JSONOptions{Format: format})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		})
	},
}

var moveCmd = &cobra.Command{
	Use:   "move TAG=VALUE...",
	Short: "Ask a modality to send resources with C-MOVE",
	Long: `Ask a modality to send the resources matching the identifiers given as
arguments to the --to AE title, which defaults to the local AE title.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := remoteParameters()
		if err != nil {
			return err
		}
		level, err := parseLevel(queryLevel)
		if err != nil {
			return err
		}
		keys, err := parseKeys(args)
		if err != nil {
			return err
		}
		target := moveTarget
		if target == "" {
			target = cfg.DICOM.AETitle
		}

		conn := client.NewControlConnection(params)
		defer conn.Close()
		if err := conn.Move(cmd.Context(), target, level, keys); err != nil {
			return err
		}
		logger.Info("C-MOVE complete", "remote_aet", params.Remote.AETitle, "target_aet", target)
		return nil
	},
}

var storeCmd = &cobra.Command{
	Use:   "store FILE...",
	Short: "Send DICOM files to a modality with C-STORE",
	Long: `Send DICOM files to a modality over one association. With --transcode,
instances are converted when the modality does not accept their transfer
syntax, preferring --syntax.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := remoteParameters()
		if err != nil {
			return err
		}
		conn := client.NewStoreConnection(params)
		defer conn.Close()
		conn.SetCommonClassesProposed(cfg.DICOM.ProposeCommonClasses)

		var tc *transcoder.Transcoder
		if transcode {
			tc, err = newTranscoder()
			if err != nil {
				return err
			}
		}
		preferred := syntax
		if preferred == "" {
			preferred = cfg.DICOM.PreferredTransferSyntax
		}

		failed := 0
		for _, path := range args {
			inst, err := readInstance(path)
			if err != nil {
				return err
			}
			var result *client.StoreResult
			if tc != nil {
				result, err = conn.Transcode(cmd.Context(), tc, inst, preferred, nil)
			} else {
				result, err = conn.Store(cmd.Context(), inst, nil)
			}
			if err != nil {
				logger.Error("C-STORE failed", "file", path, "error", err)
				failed++
				continue
			}
			logger.Info("C-STORE done", "file", path,
				"sop_instance_uid", result.SOPInstanceUID,
				"transfer_syntax", result.TransferSyntax,
				"transcoded", result.Transcoded,
				"status", fmt.Sprintf("0x%04X", result.Status))
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files could not be stored", failed, len(args))
		}
		return nil
	},
}

var commitCmd = &cobra.Command{
	Use:   "commit FILE...",
	Short: "Request storage commitment of DICOM files",
	Long: `Send an N-ACTION storage commitment request for the instances of the
given files. The outcome is reported asynchronously to the local node,
which must be running "serve" to receive it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := remoteParameters()
		if err != nil {
			return err
		}
		refs := make([]client.SOPReference, 0, len(args))
		for _, path := range args {
			inst, err := readInstance(path)
			if err != nil {
				return err
			}
			refs = append(refs, client.SOPReference{
				SOPClassUID:    inst.SOPClassUID(),
				SOPInstanceUID: inst.SOPInstanceUID(),
			})
		}
		txUID := transaction
		if txUID == "" {
			txUID = client.NewTransactionUID()
		}
		if err := client.RequestStorageCommitment(cmd.Context(), params, txUID, refs); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), txUID)
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{echoCmd, findCmd, moveCmd, storeCmd, commitCmd} {
		addModalityFlag(cmd)
		rootCmd.AddCommand(cmd)
	}

	findCmd.Flags().StringVarP(&queryLevel, "level", "l", "STUDY", "query level: PATIENT, STUDY, SERIES or IMAGE")
	findCmd.Flags().StringVar(&findFormat, "format", "Human", "JSON format of the answers: Short, Full or Human")
	findCmd.Flags().BoolVar(&normalize, "normalize", true, "adapt the query to the level and to the modality manufacturer")

	moveCmd.Flags().StringVarP(&queryLevel, "level", "l", "STUDY", "retrieve level: PATIENT, STUDY, SERIES or IMAGE")
	moveCmd.Flags().StringVar(&moveTarget, "to", "", "destination AE title")

	storeCmd.Flags().BoolVar(&transcode, "transcode", false, "transcode instances the modality does not accept")
	storeCmd.Flags().StringVar(&syntax, "syntax", "", "preferred transfer syntax UID when transcoding")

	commitCmd.Flags().StringVar(&transaction, "transaction", "", "transaction UID (default: a new one)")
}

func parseLevel(s string) (types.ResourceLevel, error) {
	level, ok := types.ParseQueryLevel(s)
	if !ok {
		return 0, dcmerr.New(dcmerr.KindParameterOutOfRange, "unknown query level %q", s)
	}
	return level.ResourceLevel(), nil
}

// parseKeys turns TAG=VALUE arguments into a query dataset.
func parseKeys(args []string) (*dicom.Dataset, error) {
	ds := dicom.NewDataset()
	for _, arg := range args {
		name, value, _ := strings.Cut(arg, "=")
		tag, err := env.Dictionary.ParseTag(strings.TrimSpace(name))
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", arg, err)
		}
		ds.SetString(tag, value)
	}
	return ds, nil
}

func readInstance(path string) (*dicom.ParsedInstance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	inst, err := env.ParseInstance(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return inst, nil
}

func newTranscoder() (*transcoder.Transcoder, error) {
	tc := transcoder.New(transcoder.WithLogger(logger))
	if err := tc.SetQuality(cfg.DICOM.LossyQuality); err != nil {
		return nil, err
	}
	return tc, nil
}
