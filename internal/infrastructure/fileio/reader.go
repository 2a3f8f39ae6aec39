// Package fileio reads molecule inputs (SMILES lists, SDF) and writes the
// pipeline's CSV outputs.
package fileio

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/metaborank/metaborank/internal/application/prediction"
	"github.com/metaborank/metaborank/internal/chem"
	"github.com/metaborank/metaborank/pkg/errors"
)

// ReadSMILES parses a SMILES list: one molecule per line, the SMILES first,
// optionally followed by whitespace and a name.  Empty lines and lines
// starting with '#' are skipped.  Names default to "mol_<line>".
func ReadSMILES(r io.Reader) ([]prediction.MoleculeInput, error) {
	var out []prediction.MoleculeInput
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		name := "mol_" + strconv.Itoa(line)
		if len(fields) > 1 {
			name = strings.Join(fields[1:], " ")
		}
		out = append(out, prediction.MoleculeInput{Name: name, SMILES: fields[0]})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "failed to read SMILES input")
	}
	if len(out) == 0 {
		return nil, errors.New(errors.CodeMoleculeEmptyInput, "input contains no molecules")
	}
	return out, nil
}

// ReadSMILESFile reads a SMILES list from a file.
func ReadSMILESFile(path string) ([]prediction.MoleculeInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "failed to open input file").WithDetail(path)
	}
	defer f.Close()
	return ReadSMILES(f)
}

// ReadSDF parses a V2000 SD file into molecule inputs.  Each record's
// structure is rendered to canonical SMILES; records whose molblock cannot
// be parsed are returned as inputs with an empty SMILES so the pipeline can
// report them as failed rather than silently dropping them.
func ReadSDF(r io.Reader) ([]prediction.MoleculeInput, error) {
	var out []prediction.MoleculeInput
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var record []string
	flush := func() {
		if len(record) == 0 {
			return
		}
		out = append(out, molblockToInput(record, len(out)+1))
		record = nil
	}
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "$$$$") {
			flush()
			continue
		}
		record = append(record, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "failed to read SDF input")
	}
	flush()

	if len(out) == 0 {
		return nil, errors.New(errors.CodeMoleculeEmptyInput, "input contains no molecules")
	}
	return out, nil
}

// ReadSDFFile reads a V2000 SD file from disk.
func ReadSDFFile(path string) ([]prediction.MoleculeInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "failed to open input file").WithDetail(path)
	}
	defer f.Close()
	return ReadSDF(f)
}

func molblockToInput(record []string, position int) prediction.MoleculeInput {
	name := ""
	if len(record) > 0 {
		name = strings.TrimSpace(record[0])
	}
	if name == "" {
		name = "mol_" + strconv.Itoa(position)
	}
	mol, err := parseMolblock(record)
	if err != nil {
		return prediction.MoleculeInput{Name: name}
	}
	return prediction.MoleculeInput{Name: name, SMILES: chem.Canonical(mol)}
}

// parseMolblock reads the ctab of a V2000 record: counts line, atom block,
// bond block and M CHG properties.  Coordinates are ignored.
func parseMolblock(record []string) (*chem.Mol, error) {
	if len(record) < 4 {
		return nil, errors.New(errors.CodeMoleculeParseFailed, "molblock too short")
	}
	counts := record[3]
	if len(counts) < 6 {
		return nil, errors.New(errors.CodeMoleculeParseFailed, "malformed counts line")
	}
	numAtoms, err1 := strconv.Atoi(strings.TrimSpace(counts[0:3]))
	numBonds, err2 := strconv.Atoi(strings.TrimSpace(counts[3:6]))
	if err1 != nil || err2 != nil || numAtoms <= 0 {
		return nil, errors.New(errors.CodeMoleculeParseFailed, "malformed counts line")
	}
	if len(record) < 4+numAtoms+numBonds {
		return nil, errors.New(errors.CodeMoleculeParseFailed, "truncated molblock")
	}

	mol := chem.NewMol()
	for i := 0; i < numAtoms; i++ {
		line := record[4+i]
		var symbol string
		if len(line) >= 34 {
			symbol = strings.TrimSpace(line[31:34])
		} else {
			fields := strings.Fields(line)
			if len(fields) < 4 {
				return nil, errors.New(errors.CodeMoleculeParseFailed, "malformed atom line")
			}
			symbol = fields[3]
		}
		num := chem.AtomicNumberFor(symbol)
		if num == 0 {
			return nil, errors.New(errors.CodeMoleculeParseFailed, "unknown element in molblock").
				WithDetail(symbol)
		}
		mol.AddAtom(chem.NewAtom(num))
	}

	for i := 0; i < numBonds; i++ {
		line := record[4+numAtoms+i]
		var a, b, kind int
		var err error
		if len(line) >= 9 {
			a, err = strconv.Atoi(strings.TrimSpace(line[0:3]))
			if err == nil {
				b, err = strconv.Atoi(strings.TrimSpace(line[3:6]))
			}
			if err == nil {
				kind, err = strconv.Atoi(strings.TrimSpace(line[6:9]))
			}
		} else {
			err = errors.New(errors.CodeMoleculeParseFailed, "malformed bond line")
		}
		if err != nil || a < 1 || b < 1 || a > numAtoms || b > numAtoms {
			return nil, errors.New(errors.CodeMoleculeParseFailed, "malformed bond line")
		}
		order := chem.Single
		switch kind {
		case 2:
			order = chem.Double
		case 3:
			order = chem.Triple
		case 4:
			order = chem.Aromatic
			mol.Atom(a - 1).Aromatic = true
			mol.Atom(b - 1).Aromatic = true
		}
		mol.AddBond(a-1, b-1, order)
	}

	for _, line := range record[4+numAtoms+numBonds:] {
		if !strings.HasPrefix(line, "M  CHG") {
			continue
		}
		fields := strings.Fields(line)
		// M CHG n (atom charge) pairs
		for i := 3; i+1 < len(fields); i += 2 {
			idx, err1 := strconv.Atoi(fields[i])
			charge, err2 := strconv.Atoi(fields[i+1])
			if err1 != nil || err2 != nil || idx < 1 || idx > numAtoms {
				return nil, errors.New(errors.CodeMoleculeParseFailed, "malformed charge property")
			}
			mol.Atom(idx - 1).Charge = charge
		}
	}

	mol.PerceiveHydrogens()
	if err := mol.Sanitize(); err != nil {
		return nil, err
	}
	return mol, nil
}
