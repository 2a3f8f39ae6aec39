package chem

import (
	"strconv"
	"strings"

	"github.com/metaborank/metaborank/pkg/errors"
)

// ParseSMILES parses a SMILES string into a molecular graph and perceives
// implicit hydrogens.  The supported subset covers the organic subset,
// bracket atoms (charge, explicit H count, atom maps), aromatic lowercase
// forms, branches, ring closures (including %nn), and dot-separated
// fragments.  Isotope prefixes and stereo markers are accepted and ignored.
func ParseSMILES(s string) (*Mol, error) {
	p := &smilesParser{src: s, mol: NewMol(), prev: -1}
	if err := p.run(); err != nil {
		return nil, err
	}
	p.mol.perceiveImplicitH(p.bracketed)
	return p.mol, nil
}

// MustParseSMILES is a test helper that panics on parse failure.
func MustParseSMILES(s string) *Mol {
	m, err := ParseSMILES(s)
	if err != nil {
		panic(err)
	}
	return m
}

type ringOpening struct {
	atom  int
	order BondOrder // 0 = unspecified at opening
}

type smilesParser struct {
	src string
	pos int

	mol  *Mol
	prev int // last atom emitted, -1 after '.' or at start

	// stack holds prev-atom indices for open branches.
	stack []int

	// pending is the bond order announced before the next atom/ring digit;
	// 0 means "unspecified" (single, or aromatic between aromatic atoms).
	pending BondOrder

	// rings maps ring-closure number → opening.
	rings map[int]ringOpening

	// bracketed marks atoms whose hydrogen count was given explicitly;
	// implicit-H perception must not touch them.
	bracketed []bool
}

func (p *smilesParser) fail(msg string) error {
	return errors.New(errors.CodeMoleculeParseFailed, msg).
		WithDetail("smiles=" + p.src + " pos=" + strconv.Itoa(p.pos))
}

func (p *smilesParser) run() error {
	p.rings = map[int]ringOpening{}
	for p.pos < len(p.src) {
		ch := p.src[p.pos]
		switch {
		case ch == ' ' || ch == '\t':
			// SMILES proper ends at whitespace (trailing names are the
			// reader's concern); stop here.
			p.pos = len(p.src)
		case ch == '(':
			if p.prev < 0 {
				return p.fail("branch opened before any atom")
			}
			p.stack = append(p.stack, p.prev)
			p.pos++
		case ch == ')':
			if len(p.stack) == 0 {
				return p.fail("unmatched closing parenthesis")
			}
			p.prev = p.stack[len(p.stack)-1]
			p.stack = p.stack[:len(p.stack)-1]
			p.pos++
		case ch == '.':
			p.prev = -1
			p.pending = 0
			p.pos++
		case ch == '-':
			p.pending = Single
			p.pos++
		case ch == '=':
			p.pending = Double
			p.pos++
		case ch == '#':
			p.pending = Triple
			p.pos++
		case ch == ':':
			p.pending = Aromatic
			p.pos++
		case ch == '/' || ch == '\\':
			// Directional bonds degrade to single; stereochemistry is out of
			// the engine's model.
			p.pending = Single
			p.pos++
		case ch >= '0' && ch <= '9':
			if err := p.ringBond(int(ch - '0')); err != nil {
				return err
			}
			p.pos++
		case ch == '%':
			if p.pos+2 >= len(p.src) {
				return p.fail("truncated %nn ring closure")
			}
			n, err := strconv.Atoi(p.src[p.pos+1 : p.pos+3])
			if err != nil {
				return p.fail("malformed %nn ring closure")
			}
			if err := p.ringBond(n); err != nil {
				return err
			}
			p.pos += 3
		case ch == '[':
			if err := p.bracketAtom(); err != nil {
				return err
			}
		default:
			if err := p.organicAtom(); err != nil {
				return err
			}
		}
	}
	if len(p.stack) != 0 {
		return p.fail("unclosed branch")
	}
	if len(p.rings) != 0 {
		return p.fail("unclosed ring bond")
	}
	if p.mol.NumAtoms() == 0 {
		return errors.New(errors.CodeMoleculeEmptyInput, "empty SMILES")
	}
	return nil
}

// bondTo connects a freshly added atom to the running chain.
func (p *smilesParser) bondTo(idx int) {
	if p.prev >= 0 {
		order := p.pending
		if order == 0 {
			if p.mol.Atom(p.prev).Aromatic && p.mol.Atom(idx).Aromatic {
				order = Aromatic
			} else {
				order = Single
			}
		}
		p.mol.AddBond(p.prev, idx, order)
	}
	p.prev = idx
	p.pending = 0
}

func (p *smilesParser) ringBond(n int) error {
	if p.prev < 0 {
		return p.fail("ring closure before any atom")
	}
	if open, ok := p.rings[n]; ok {
		delete(p.rings, n)
		order := p.pending
		if order == 0 {
			order = open.order
		}
		if order == 0 {
			if p.mol.Atom(open.atom).Aromatic && p.mol.Atom(p.prev).Aromatic {
				order = Aromatic
			} else {
				order = Single
			}
		}
		if open.atom == p.prev {
			return p.fail("ring closure bonds atom to itself")
		}
		p.mol.AddBond(open.atom, p.prev, order)
	} else {
		p.rings[n] = ringOpening{atom: p.prev, order: p.pending}
	}
	p.pending = 0
	return nil
}

// organicAtom consumes an organic-subset atom token (Cl and Br are the only
// two-letter forms).
func (p *smilesParser) organicAtom() error {
	rest := p.src[p.pos:]
	var sym string
	switch {
	case strings.HasPrefix(rest, "Cl"):
		sym = "Cl"
	case strings.HasPrefix(rest, "Br"):
		sym = "Br"
	default:
		sym = rest[:1]
	}

	aromatic := sym[0] >= 'a' && sym[0] <= 'z'
	lookup := sym
	if aromatic {
		if !isAromaticSymbol(sym) {
			return p.fail("element cannot be aromatic: " + sym)
		}
		lookup = strings.ToUpper(sym[:1]) + sym[1:]
	}
	num := AtomicNumberFor(lookup)
	if num == 0 || !organicSubset[num] {
		return p.fail("unexpected symbol: " + sym)
	}

	idx := p.mol.AddAtom(Atom{AtomicNum: num, Aromatic: aromatic, EductIdx: -1})
	p.bracketed = append(p.bracketed, false)
	p.bondTo(idx)
	p.pos += len(sym)
	return nil
}

// bracketAtom consumes a [ ... ] atom token.
func (p *smilesParser) bracketAtom() error {
	end := strings.IndexByte(p.src[p.pos:], ']')
	if end < 0 {
		return p.fail("unterminated bracket atom")
	}
	body := p.src[p.pos+1 : p.pos+end]
	advance := end + 1

	i := 0
	// Isotope prefix: digits before the symbol, ignored.
	for i < len(body) && body[i] >= '0' && body[i] <= '9' {
		i++
	}
	if i >= len(body) {
		return p.fail("bracket atom without element symbol")
	}

	var num int
	var aromatic bool
	switch {
	case body[i] == '*':
		return p.fail("wildcard atoms are pattern syntax, not molecule syntax")
	case body[i] == '#':
		// [#6] style is pattern syntax; reject in plain SMILES.
		return p.fail("atomic-number atoms are pattern syntax, not molecule syntax")
	default:
		sym := body[i : i+1]
		if i+1 < len(body) && body[i+1] >= 'a' && body[i+1] <= 'z' {
			if two := AtomicNumberFor(strings.ToUpper(body[i:i+1]) + body[i+1:i+2]); two != 0 && body[i] >= 'A' && body[i] <= 'Z' {
				sym = body[i : i+2]
			}
		}
		if sym[0] >= 'a' && sym[0] <= 'z' {
			if !isAromaticSymbol(sym) {
				return p.fail("element cannot be aromatic: " + sym)
			}
			aromatic = true
			sym = strings.ToUpper(sym[:1]) + sym[1:]
		}
		num = AtomicNumberFor(sym)
		if num == 0 {
			return p.fail("unknown element: " + sym)
		}
		i += len(sym)
		if aromatic {
			// length counted on the original lowercase token
		}
	}

	hCount := 0
	charge := 0
	mapNum := 0
	for i < len(body) {
		switch body[i] {
		case '@':
			// Chirality markers are ignored.
			i++
		case 'H':
			hCount = 1
			i++
			j := i
			for j < len(body) && body[j] >= '0' && body[j] <= '9' {
				j++
			}
			if j > i {
				hCount, _ = strconv.Atoi(body[i:j])
				i = j
			}
		case '+', '-':
			sign := 1
			if body[i] == '-' {
				sign = -1
			}
			mag := 1
			i++
			// Either repeated signs (++) or an explicit magnitude (+2).
			for i < len(body) && (body[i] == '+' || body[i] == '-') {
				mag++
				i++
			}
			j := i
			for j < len(body) && body[j] >= '0' && body[j] <= '9' {
				j++
			}
			if j > i {
				mag, _ = strconv.Atoi(body[i:j])
				i = j
			}
			charge = sign * mag
		case ':':
			j := i + 1
			for j < len(body) && body[j] >= '0' && body[j] <= '9' {
				j++
			}
			if j == i+1 {
				return p.fail("bracket atom map without digits")
			}
			mapNum, _ = strconv.Atoi(body[i+1 : j])
			i = j
		default:
			return p.fail("unexpected bracket atom token: " + string(body[i]))
		}
	}

	idx := p.mol.AddAtom(Atom{
		AtomicNum: num,
		Charge:    charge,
		Aromatic:  aromatic,
		ImplicitH: hCount,
		MapNum:    mapNum,
		EductIdx:  -1,
	})
	p.bracketed = append(p.bracketed, true)
	p.bondTo(idx)
	p.pos += advance
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Implicit hydrogen perception
// ─────────────────────────────────────────────────────────────────────────────

// perceiveImplicitH fills in implicit hydrogen counts for atoms written
// without brackets.  Aliphatic atoms receive the difference between their
// lowest admissible valence state and their bond-order sum.  Aromatic atoms
// use the ring convention: an aromatic carbon with exactly two ring neighbors
// carries one hydrogen, every other aromatic atom carries none (pyrrole-type
// NH must be written [nH], as in standard SMILES).
func (m *Mol) perceiveImplicitH(bracketed []bool) {
	for i := range m.atoms {
		if bracketed[i] {
			continue
		}
		a := &m.atoms[i]
		if a.Aromatic {
			if a.AtomicNum == C && m.Degree(i) == 2 {
				a.ImplicitH = 1
			} else {
				a.ImplicitH = 0
			}
			continue
		}
		a.ImplicitH = perceivedAliphaticH(a.AtomicNum, a.Charge, m.valenceSum(i))
	}
}

// PerceiveHydrogens fills the implicit hydrogen count of every atom from the
// valence model, the way bare SMILES atoms are perceived.  Readers of formats
// that omit hydrogen counts (molblocks) call this after assembling the graph.
func (m *Mol) PerceiveHydrogens() {
	m.perceiveImplicitH(make([]bool, m.NumAtoms()))
}

// perceivedAliphaticH returns the implicit hydrogen count for an aliphatic
// atom given its doubled bond-order sum.
func perceivedAliphaticH(atomicNum, charge, doubledSum int) int {
	for _, v := range allowedValences(atomicNum, charge) {
		if 2*v >= doubledSum {
			return (2*v - doubledSum) / 2
		}
	}
	return 0
}
