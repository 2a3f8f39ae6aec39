package chem

import (
	"strconv"
	"strings"

	"github.com/metaborank/metaborank/pkg/errors"
)

// Transform is a compiled graph rewrite rule of the form "reactant>>product"
// (SMIRKS).  The reactant side is a Pattern; the product side is a concrete
// template whose mapped atoms correspond to mapped reactant atoms.
//
// Application semantics follow reaction-engine convention:
//
//   - reactant atoms whose map number also appears on the product side are
//     retained, rewritten to the product template's element, aromaticity and
//     hydrogen count
//   - reactant atoms that are unmapped, or mapped but absent from the product
//     side, are removed together with all their bonds
//   - product-side atoms without a reactant counterpart are created fresh
//   - bonds between two matched atoms are governed entirely by the product
//     template; bonds to unmatched spectator atoms are carried over
//
// Every product atom records provenance: EductIdx is the index of the educt
// atom it derives from (-1 for created atoms) and TemplateMap is the map
// number it matched under (0 for spectators and created unmapped atoms).
type Transform struct {
	lhs *Pattern
	rhs *rhsTemplate
}

// ParseTransform compiles a SMIRKS-subset string.
func ParseTransform(smirks string) (*Transform, error) {
	parts := strings.Split(smirks, ">>")
	if len(parts) != 2 {
		return nil, errors.New(errors.CodeRuleInvalidPattern,
			"transform must contain exactly one '>>'").WithDetail(smirks)
	}
	lhs, err := ParsePattern(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, err
	}
	rhs, err := parseRHSTemplate(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, err
	}
	for _, ra := range rhs.atoms {
		if ra.mapNum > 0 && lhs.MapIndex(ra.mapNum) < 0 {
			return nil, errors.New(errors.CodeRuleInvalidPattern,
				"product map number missing on reactant side").
				WithDetail(smirks + " map=" + strconv.Itoa(ra.mapNum))
		}
	}
	return &Transform{lhs: lhs, rhs: rhs}, nil
}

// Pattern returns the compiled reactant-side query.
func (t *Transform) Pattern() *Pattern { return t.lhs }

// Apply matches the transform against an educt and returns one product per
// embedding, in deterministic order.  The educt should carry explicit
// hydrogens when the reactant side references them.  Products are returned
// unsanitized and unsplit; the caller validates valences and separates
// fragments.
func (t *Transform) Apply(educt *Mol) []*Mol {
	matches := t.lhs.Matches(educt)
	products := make([]*Mol, 0, len(matches))
	for _, match := range matches {
		products = append(products, t.buildProduct(educt, match))
	}
	return products
}

func (t *Transform) buildProduct(educt *Mol, match []int) *Mol {
	prod := NewMol()

	// matchedBy[eductIdx] = lhs pattern atom index, -1 for spectators.
	matchedBy := make([]int, educt.NumAtoms())
	for i := range matchedBy {
		matchedBy[i] = -1
	}
	for pi, ei := range match {
		matchedBy[ei] = pi
	}

	// eductToProd[eductIdx] = product atom index, -1 when the atom is removed.
	eductToProd := make([]int, educt.NumAtoms())
	for i := range eductToProd {
		eductToProd[i] = -1
	}
	rhsToProd := make([]int, len(t.rhs.atoms))

	// Product-template atoms first, mapped ones inheriting from their educt
	// counterpart.
	for ri, ra := range t.rhs.atoms {
		a := Atom{
			AtomicNum: ra.atomicNum,
			Aromatic:  ra.aromatic,
			Charge:    ra.charge,
			EductIdx:  -1,
		}
		if ra.hSpecified {
			a.ImplicitH = ra.hCount
		}
		if ra.mapNum > 0 {
			ei := match[t.lhs.MapIndex(ra.mapNum)]
			src := educt.Atom(ei)
			if !ra.chargeSpecified {
				a.Charge = src.Charge
			}
			if !ra.hSpecified {
				a.ImplicitH = src.ImplicitH
			}
			a.EductIdx = ei
			a.TemplateMap = ra.mapNum
			eductToProd[ei] = len(prod.atoms)
		}
		rhsToProd[ri] = prod.AddAtom(a)
	}

	// Spectator atoms keep their attributes; site labels are reset because
	// labeling happens downstream.
	for ei := 0; ei < educt.NumAtoms(); ei++ {
		if matchedBy[ei] >= 0 {
			continue
		}
		a := *educt.Atom(ei)
		a.MapNum = 0
		a.EductIdx = ei
		a.TemplateMap = 0
		eductToProd[ei] = prod.AddAtom(a)
	}

	// Template bonds.
	for _, rb := range t.rhs.bonds {
		a, b := rhsToProd[rb.a], rhsToProd[rb.b]
		order := rb.order
		if order == 0 {
			if prod.Atom(a).Aromatic && prod.Atom(b).Aromatic {
				order = Aromatic
			} else {
				order = Single
			}
		}
		prod.AddBond(a, b, order)
	}

	// Educt bonds: spectator-spectator and spectator-retained carry over.
	// Bonds between two matched atoms belong to the template when the
	// reactant pattern bonds them; otherwise the educt bond survives
	// untouched.
	for _, b := range educt.bonds {
		pa, pb := eductToProd[b.A], eductToProd[b.B]
		if pa < 0 || pb < 0 {
			continue
		}
		if matchedBy[b.A] >= 0 && matchedBy[b.B] >= 0 &&
			t.lhs.bondBetween(matchedBy[b.A], matchedBy[b.B]) != nil {
			continue
		}
		prod.AddBond(pa, pb, b.Order)
	}

	// Created atoms written bare perceive their hydrogen count from the
	// assembled environment.
	for ri, ra := range t.rhs.atoms {
		if ra.hSpecified || ra.mapNum > 0 {
			continue
		}
		pi := rhsToProd[ri]
		a := prod.Atom(pi)
		if a.Aromatic {
			if a.AtomicNum == C && prod.Degree(pi) == 2 {
				a.ImplicitH = 1
			}
			continue
		}
		a.ImplicitH = perceivedAliphaticH(a.AtomicNum, a.Charge, prod.valenceSum(pi))
	}

	return prod
}

// ─────────────────────────────────────────────────────────────────────────────
// Product-side template
// ─────────────────────────────────────────────────────────────────────────────

// rhsTemplate is the concrete product-side graph of a Transform.  It reuses
// the molecule parser and keeps per-atom flags for which attributes the
// template spells out versus which are inherited from the educt.
type rhsTemplate struct {
	atoms []rhsAtom
	bonds []rhsBond
}

type rhsAtom struct {
	atomicNum       int
	aromatic        bool
	charge          int
	chargeSpecified bool
	hCount          int
	hSpecified      bool
	mapNum          int
}

type rhsBond struct {
	a, b  int
	order BondOrder // 0 = unwritten, resolved against aromaticity at build time
}

func parseRHSTemplate(s string) (*rhsTemplate, error) {
	// The product side is plain SMILES with atom maps; reuse the molecule
	// parser and recover which attributes were written explicitly by
	// re-scanning bracket atoms.
	mol, err := ParseSMILES(s)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeRuleInvalidPattern,
			"product template does not parse")
	}

	bracketed := bracketFlags(s, mol.NumAtoms())
	chargeWritten := chargeFlags(s, mol.NumAtoms())

	tpl := &rhsTemplate{atoms: make([]rhsAtom, mol.NumAtoms())}
	for i := 0; i < mol.NumAtoms(); i++ {
		a := mol.Atom(i)
		tpl.atoms[i] = rhsAtom{
			atomicNum:       a.AtomicNum,
			aromatic:        a.Aromatic,
			charge:          a.Charge,
			chargeSpecified: chargeWritten[i],
			hCount:          a.ImplicitH,
			hSpecified:      bracketed[i],
			mapNum:          a.MapNum,
		}
	}
	for bi := 0; bi < mol.NumBonds(); bi++ {
		b := mol.Bond(bi)
		tpl.bonds = append(tpl.bonds, rhsBond{a: b.A, b: b.B, order: b.Order})
	}
	return tpl, nil
}

// bracketFlags re-tokenizes a SMILES string and reports, per atom, whether it
// was written in bracket form (and hence carries an authoritative H count).
func bracketFlags(s string, numAtoms int) []bool {
	flags := make([]bool, 0, numAtoms)
	scanAtoms(s, func(bracket bool, _ string) {
		flags = append(flags, bracket)
	})
	return flags
}

// chargeFlags reports, per atom, whether a charge sign was written.
func chargeFlags(s string, numAtoms int) []bool {
	flags := make([]bool, 0, numAtoms)
	scanAtoms(s, func(bracket bool, body string) {
		flags = append(flags, bracket && strings.ContainsAny(body, "+-"))
	})
	return flags
}

// scanAtoms walks SMILES atom tokens in source order, invoking fn with the
// bracket flag and, for bracket atoms, the bracket body.
func scanAtoms(s string, fn func(bracket bool, body string)) {
	i := 0
	for i < len(s) {
		ch := s[i]
		switch {
		case ch == '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return
			}
			fn(true, s[i+1:i+end])
			i += end + 1
		case ch == 'C' && i+1 < len(s) && s[i+1] == 'l',
			ch == 'B' && i+1 < len(s) && s[i+1] == 'r':
			fn(false, "")
			i += 2
		case ch >= 'A' && ch <= 'Z' || ch == 'b' || ch == 'c' || ch == 'n' ||
			ch == 'o' || ch == 'p' || ch == 's':
			fn(false, "")
			i++
		default:
			i++
		}
	}
}
