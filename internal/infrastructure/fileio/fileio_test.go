package fileio

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metaborank/metaborank/internal/application/prediction"
	"github.com/metaborank/metaborank/internal/chem"
	"github.com/metaborank/metaborank/pkg/errors"
)

func TestReadSMILES(t *testing.T) {
	input := `# drugs under study
c1ccccc1 benzene
CCO

CC(=O)Oc1ccccc1C(=O)O aspirin
CCCC
`
	mols, err := ReadSMILES(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, mols, 4)

	assert.Equal(t, "benzene", mols[0].Name)
	assert.Equal(t, "c1ccccc1", mols[0].SMILES)
	assert.Equal(t, "mol_3", mols[1].Name)
	assert.Equal(t, "aspirin", mols[2].Name)
	assert.Equal(t, "mol_6", mols[3].Name)
}

func TestReadSMILESEmpty(t *testing.T) {
	_, err := ReadSMILES(strings.NewReader("# nothing here\n"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeMoleculeEmptyInput))
}

const ethanolSDF = `ethanol
  comment line

  3  2  0  0  0  0  0  0  0  0999 V2000
    0.0000    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
    0.0000    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
    0.0000    0.0000    0.0000 O   0  0  0  0  0  0  0  0  0  0  0  0
  1  2  1  0
  2  3  1  0
M  END
$$$$
`

func TestReadSDF(t *testing.T) {
	mols, err := ReadSDF(strings.NewReader(ethanolSDF))
	require.NoError(t, err)
	require.Len(t, mols, 1)
	assert.Equal(t, "ethanol", mols[0].Name)
	assert.Equal(t, chem.Canonical(chem.MustParseSMILES("CCO")), mols[0].SMILES)
}

const acetateSDF = `acetate


  4  3  0  0  0  0  0  0  0  0999 V2000
    0.0000    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
    0.0000    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
    0.0000    0.0000    0.0000 O   0  0  0  0  0  0  0  0  0  0  0  0
    0.0000    0.0000    0.0000 O   0  0  0  0  0  0  0  0  0  0  0  0
  1  2  1  0
  2  3  2  0
  2  4  1  0
M  CHG  1   4  -1
M  END
$$$$
`

func TestReadSDFCharges(t *testing.T) {
	mols, err := ReadSDF(strings.NewReader(acetateSDF))
	require.NoError(t, err)
	require.Len(t, mols, 1)
	assert.Equal(t, chem.Canonical(chem.MustParseSMILES("CC(=O)[O-]")), mols[0].SMILES)
}

func TestReadSDFBrokenRecordBecomesFailedInput(t *testing.T) {
	broken := "nameless\n\n\n  1  0\nM  END\n$$$$\n"
	mols, err := ReadSDF(strings.NewReader(broken))
	require.NoError(t, err)
	require.Len(t, mols, 1)
	assert.Equal(t, "nameless", mols[0].Name)
	assert.Empty(t, mols[0].SMILES)
}

func TestWritePredictionsGolden(t *testing.T) {
	rows := []prediction.Row{
		{
			ParentIdentity:     "c1ccccc1",
			ProductIdentity:    "Oc1ccccc1",
			RuleName:           "aromatic hydroxylation",
			RuleSubset:         "cyp",
			SiteRepresentation: "[cH:1]1ccccc1",
			Score:              0.5,
		},
		{
			ParentIdentity:     "CCO",
			ProductIdentity:    "CC=O",
			RuleName:           "alcohol oxidation",
			RuleSubset:         "oxidoreductase",
			SiteRepresentation: "CC[OH:1]",
			Score:              0.125,
		},
		{
			ParentIdentity:     "CCO",
			ProductIdentity:    "OCCO",
			RuleName:           "aliphatic hydroxylation",
			RuleSubset:         "cyp",
			SiteRepresentation: "C[CH2:1]O",
			Score:              math.NaN(),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WritePredictions(&buf, rows))

	g := goldie.New(t)
	g.Assert(t, "predictions", buf.Bytes())
}

func TestWriteFailed(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFailed(&buf, []prediction.FailedMolecule{
		{Index: 1, Name: "broken", SMILES: "C1CC", Reason: "unclosed ring bond"},
	}))
	assert.Equal(t,
		"index,name,smiles,reason\n1,broken,C1CC,unclosed ring bond\n",
		buf.String())
}

func TestWriteBatchResult(t *testing.T) {
	dir := t.TempDir()
	result := &prediction.BatchResult{
		RunID: "test",
		Rows: []prediction.Row{{
			ParentIdentity:  "c1ccccc1",
			ProductIdentity: "Oc1ccccc1",
			RuleName:        "aromatic hydroxylation",
			RuleSubset:      "cyp",
			Score:           0.5,
		}},
	}
	require.NoError(t, WriteBatchResult(dir, result))

	for _, name := range []string{PredictionsFileName, FailedFileName} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.NotEmpty(t, data)
	}
}
