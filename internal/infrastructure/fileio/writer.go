package fileio

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/metaborank/metaborank/internal/application/prediction"
	"github.com/metaborank/metaborank/pkg/errors"
)

// Output file names of a batch run.
const (
	PredictionsFileName = "predictions.csv"
	FailedFileName      = "failed_molecules.csv"
)

var predictionHeader = []string{
	"parent_identity", "product_identity", "rule_name",
	"rule_subset", "site_representation", "score",
}

// WritePredictions writes prediction rows as CSV.  Scores use the shortest
// round-trippable decimal form; a missing score renders as NaN.
func WritePredictions(w io.Writer, rows []prediction.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(predictionHeader); err != nil {
		return errors.Wrap(err, errors.CodeIO, "failed to write predictions header")
	}
	for _, row := range rows {
		record := []string{
			row.ParentIdentity,
			row.ProductIdentity,
			row.RuleName,
			row.RuleSubset,
			row.SiteRepresentation,
			strconv.FormatFloat(row.Score, 'g', -1, 64),
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrap(err, errors.CodeIO, "failed to write prediction row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, errors.CodeIO, "failed to flush predictions")
	}
	return nil
}

// WriteFailed writes the failed-molecule records as CSV.
func WriteFailed(w io.Writer, failed []prediction.FailedMolecule) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"index", "name", "smiles", "reason"}); err != nil {
		return errors.Wrap(err, errors.CodeIO, "failed to write failures header")
	}
	for _, f := range failed {
		record := []string{strconv.Itoa(f.Index), f.Name, f.SMILES, f.Reason}
		if err := cw.Write(record); err != nil {
			return errors.Wrap(err, errors.CodeIO, "failed to write failure row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, errors.CodeIO, "failed to flush failures")
	}
	return nil
}

// WriteBatchResult writes both output files of a batch run into dir,
// creating it if needed.
func WriteBatchResult(dir string, result *prediction.BatchResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, errors.CodeIO, "failed to create output directory").WithDetail(dir)
	}

	write := func(name string, fn func(io.Writer) error) error {
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrap(err, errors.CodeIO, "failed to create output file").WithDetail(path)
		}
		defer f.Close()
		if err := fn(f); err != nil {
			return err
		}
		return f.Close()
	}

	if err := write(PredictionsFileName, func(w io.Writer) error {
		return WritePredictions(w, result.Rows)
	}); err != nil {
		return err
	}
	return write(FailedFileName, func(w io.Writer) error {
		return WriteFailed(w, result.Failed)
	})
}
