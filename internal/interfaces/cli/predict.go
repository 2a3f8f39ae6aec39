package cli

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/metaborank/metaborank/internal/application/prediction"
	"github.com/metaborank/metaborank/internal/infrastructure/fileio"
	"github.com/metaborank/metaborank/pkg/errors"
)

func newPredictCmd() *cobra.Command {
	var (
		inputPath string
		smiles    []string
		outputDir string
		workers   int
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict metabolites for a set of input molecules",
		Long: "Read molecules from a SMILES or SDF file, or from --smiles flags, run the\n" +
			"prediction pipeline and write predictions.csv and failed_molecules.csv to\n" +
			"the output directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getAppContext(cmd)
			if workers > 0 {
				app.cfg.Pipeline.Workers = workers
			}

			inputs, err := readInputs(inputPath, smiles)
			if err != nil {
				return err
			}

			service, err := buildService(app, nil)
			if err != nil {
				return err
			}

			result, err := service.PredictBatch(cmd.Context(), inputs)
			if err != nil {
				return err
			}
			if err := fileio.WriteBatchResult(outputDir, result); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s finished in %s\n", result.RunID, result.Took.Round(time.Millisecond))
			fmt.Fprintf(out, "  molecules:   %d\n", result.Molecules)
			fmt.Fprintf(out, "  predictions: %d\n", len(result.Rows))
			fmt.Fprintf(out, "  failed:      %d\n", len(result.Failed))
			fmt.Fprintf(out, "  output:      %s\n", filepath.Join(outputDir, fileio.PredictionsFileName))
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "input file (.smi, .smiles, .txt or .sdf)")
	cmd.Flags().StringArrayVarP(&smiles, "smiles", "s", nil, "inline input molecule, repeatable (SMILES or \"SMILES name\")")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "results", "output directory")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel workers override (0 keeps the configured value)")

	return cmd
}

// readInputs collects molecules from the input file and inline flags.
// The file format is chosen by extension; anything that is not an SDF is
// treated as a SMILES list.
func readInputs(inputPath string, smiles []string) ([]prediction.MoleculeInput, error) {
	var inputs []prediction.MoleculeInput

	if inputPath != "" {
		var (
			fromFile []prediction.MoleculeInput
			err      error
		)
		if strings.EqualFold(filepath.Ext(inputPath), ".sdf") {
			fromFile, err = fileio.ReadSDFFile(inputPath)
		} else {
			fromFile, err = fileio.ReadSMILESFile(inputPath)
		}
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, fromFile...)
	}

	for _, entry := range smiles {
		fields := strings.Fields(entry)
		if len(fields) == 0 {
			continue
		}
		name := "mol_" + strconv.Itoa(len(inputs)+1)
		if len(fields) > 1 {
			name = strings.Join(fields[1:], " ")
		}
		inputs = append(inputs, prediction.MoleculeInput{Name: name, SMILES: fields[0]})
	}

	if len(inputs) == 0 {
		return nil, errors.New(errors.CodeInvalidParam, "no input molecules: pass --input or --smiles")
	}
	return inputs, nil
}
