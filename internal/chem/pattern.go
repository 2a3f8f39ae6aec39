package chem

import (
	"strconv"
	"strings"

	"github.com/metaborank/metaborank/pkg/errors"
)

// Pattern is a compiled substructure query over molecular graphs.  The query
// language is the SMARTS subset the transformation rules require:
//
//   - element atoms, aliphatic (C, N, Cl, ...) and aromatic (c, n, s, ...)
//   - [#6] atomic-number atoms, * any atom, a / A aromatic / aliphatic any
//   - bracket primitives: Hn (total hydrogen count), Xn (total connectivity,
//     implicit hydrogens included),
//     +/- charge, :n atom map; '&' and ';' combine primitives conjunctively
//   - bonds: - = # : and ~ (any); an unwritten bond matches single or
//     aromatic, following SMARTS defaults
//
// Disjunction (','), negation ('!') and recursive queries ('$(...)') are not
// part of the subset and are rejected at parse time.
type Pattern struct {
	atoms []PatternAtom
	bonds []PatternBond
	adj   [][]int
}

// PatternAtom is one query atom.  Nil constraint pointers mean "unconstrained".
type PatternAtom struct {
	AtomicNum int   // 0 = any element
	Aromatic  *bool // nil = either
	Charge    *int
	HCount    *int // total hydrogen count (implicit + explicit neighbors)
	Degree    *int // total connectivity, implicit H included (X primitive)
	MapNum    int  // 0 = unmapped
}

// Bond query orders.  Zero is invalid; parsers always set one.
type PatternBondOrder int

const (
	PatternAny PatternBondOrder = iota + 1
	PatternSingle
	PatternDouble
	PatternTriple
	PatternAromatic
	// PatternDefault is the unwritten bond: single or aromatic.
	PatternDefault
)

type PatternBond struct {
	A, B  int
	Order PatternBondOrder
}

// NumAtoms returns the number of query atoms.
func (p *Pattern) NumAtoms() int { return len(p.atoms) }

// AtomPattern returns the query atom at idx.
func (p *Pattern) AtomPattern(idx int) *PatternAtom { return &p.atoms[idx] }

// MapIndex returns the pattern atom index carrying the given map number, or
// -1 when absent.
func (p *Pattern) MapIndex(mapNum int) int {
	for i := range p.atoms {
		if p.atoms[i].MapNum == mapNum {
			return i
		}
	}
	return -1
}

func (p *Pattern) bondBetween(a, b int) *PatternBond {
	for _, bi := range p.adj[a] {
		pb := &p.bonds[bi]
		if pb.A == a && pb.B == b || pb.A == b && pb.B == a {
			return pb
		}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Parsing
// ─────────────────────────────────────────────────────────────────────────────

// ParsePattern compiles a SMARTS-subset query.
func ParsePattern(s string) (*Pattern, error) {
	p := &patternParser{src: s, pat: &Pattern{}, prev: -1, rings: map[int]patRingOpening{}}
	if err := p.run(); err != nil {
		return nil, err
	}
	return p.pat, nil
}

type patRingOpening struct {
	atom  int
	order PatternBondOrder
}

type patternParser struct {
	src     string
	pos     int
	pat     *Pattern
	prev    int
	stack   []int
	pending PatternBondOrder
	rings   map[int]patRingOpening
}

func (p *patternParser) fail(msg string) error {
	return errors.New(errors.CodeRuleInvalidPattern, msg).
		WithDetail("pattern=" + p.src + " pos=" + strconv.Itoa(p.pos))
}

func (p *patternParser) addAtom(a PatternAtom) {
	idx := len(p.pat.atoms)
	p.pat.atoms = append(p.pat.atoms, a)
	p.pat.adj = append(p.pat.adj, nil)
	if p.prev >= 0 {
		order := p.pending
		if order == 0 {
			order = PatternDefault
		}
		p.addBond(p.prev, idx, order)
	}
	p.prev = idx
	p.pending = 0
}

func (p *patternParser) addBond(a, b int, order PatternBondOrder) {
	bi := len(p.pat.bonds)
	p.pat.bonds = append(p.pat.bonds, PatternBond{A: a, B: b, Order: order})
	p.pat.adj[a] = append(p.pat.adj[a], bi)
	p.pat.adj[b] = append(p.pat.adj[b], bi)
}

func (p *patternParser) run() error {
	for p.pos < len(p.src) {
		ch := p.src[p.pos]
		switch {
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
		case ch == '-':
			p.pending = PatternSingle
			p.pos++
		case ch == '=':
			p.pending = PatternDouble
			p.pos++
		case ch == '#':
			p.pending = PatternTriple
			p.pos++
		case ch == ':':
			p.pending = PatternAromatic
			p.pos++
		case ch == '~':
			p.pending = PatternAny
			p.pos++
		case ch == ',' || ch == '!':
			return p.fail("unsupported query operator: " + string(ch))
		case ch == '$':
			return p.fail("recursive queries are not supported")
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
		case ch == '*':
			p.addAtom(PatternAtom{})
			p.pos++
		case ch == 'a':
			p.addAtom(PatternAtom{Aromatic: boolPtr(true)})
			p.pos++
		case ch == 'A':
			p.addAtom(PatternAtom{Aromatic: boolPtr(false)})
			p.pos++
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
	if len(p.pat.atoms) == 0 {
		return p.fail("empty pattern")
	}
	return nil
}

func (p *patternParser) ringBond(n int) error {
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
			order = PatternDefault
		}
		p.addBond(open.atom, p.prev, order)
	} else {
		p.rings[n] = patRingOpening{atom: p.prev, order: p.pending}
	}
	p.pending = 0
	return nil
}

func (p *patternParser) organicAtom() error {
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
	p.addAtom(PatternAtom{AtomicNum: num, Aromatic: boolPtr(aromatic)})
	p.pos += len(sym)
	return nil
}

// bracketAtom consumes a [ ... ] query atom.
func (p *patternParser) bracketAtom() error {
	end := strings.IndexByte(p.src[p.pos:], ']')
	if end < 0 {
		return p.fail("unterminated bracket atom")
	}
	body := p.src[p.pos+1 : p.pos+end]
	advance := end + 1

	var a PatternAtom
	sawElement := false

	i := 0
	for i < len(body) {
		ch := body[i]
		switch {
		case ch == '&' || ch == ';':
			i++
		case ch == ',' || ch == '!':
			return p.fail("unsupported query operator: " + string(ch))
		case ch == '$':
			return p.fail("recursive queries are not supported")
		case ch == '*':
			sawElement = true
			i++
		case ch == '@':
			i++ // chirality ignored
		case ch == '#':
			j := i + 1
			for j < len(body) && body[j] >= '0' && body[j] <= '9' {
				j++
			}
			if j == i+1 {
				return p.fail("atomic-number primitive without digits")
			}
			a.AtomicNum, _ = strconv.Atoi(body[i+1 : j])
			sawElement = true
			i = j
		case ch == 'H' && sawElement:
			n := 1
			j := i + 1
			for j < len(body) && body[j] >= '0' && body[j] <= '9' {
				j++
			}
			if j > i+1 {
				n, _ = strconv.Atoi(body[i+1 : j])
			}
			a.HCount = intPtr(n)
			i = j
		case ch == 'X':
			j := i + 1
			for j < len(body) && body[j] >= '0' && body[j] <= '9' {
				j++
			}
			if j == i+1 {
				return p.fail("connectivity primitive without digits")
			}
			n, _ := strconv.Atoi(body[i+1 : j])
			a.Degree = intPtr(n)
			i = j
		case ch == '+' || ch == '-':
			sign := 1
			if ch == '-' {
				sign = -1
			}
			mag := 1
			i++
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
			a.Charge = intPtr(sign * mag)
		case ch == ':':
			j := i + 1
			for j < len(body) && body[j] >= '0' && body[j] <= '9' {
				j++
			}
			if j == i+1 {
				return p.fail("atom map without digits")
			}
			a.MapNum, _ = strconv.Atoi(body[i+1 : j])
			i = j
		case ch == 'a' && !sawElement:
			a.Aromatic = boolPtr(true)
			sawElement = true
			i++
		case ch == 'A' && !sawElement:
			a.Aromatic = boolPtr(false)
			sawElement = true
			i++
		case ch >= 'A' && ch <= 'Z' || ch >= 'a' && ch <= 'z':
			sym := body[i : i+1]
			if i+1 < len(body) && body[i+1] >= 'a' && body[i+1] <= 'z' && ch >= 'A' && ch <= 'Z' {
				if AtomicNumberFor(body[i:i+2]) != 0 {
					sym = body[i : i+2]
				}
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
			if num == 0 {
				return p.fail("unknown element: " + sym)
			}
			a.AtomicNum = num
			if num != H {
				a.Aromatic = boolPtr(aromatic)
			}
			sawElement = true
			i += len(sym)
		default:
			return p.fail("unexpected bracket token: " + string(ch))
		}
	}
	if !sawElement {
		return p.fail("bracket atom without element or wildcard")
	}
	p.addAtom(a)
	p.pos += advance
	return nil
}

func boolPtr(v bool) *bool { return &v }
func intPtr(v int) *int    { return &v }

// ─────────────────────────────────────────────────────────────────────────────
// Matching
// ─────────────────────────────────────────────────────────────────────────────

// atomMatches checks a query atom against a target atom.
func (p *Pattern) atomMatches(pi int, m *Mol, ti int) bool {
	q := &p.atoms[pi]
	a := m.Atom(ti)
	if q.AtomicNum != 0 && q.AtomicNum != a.AtomicNum {
		return false
	}
	if q.Aromatic != nil && *q.Aromatic != a.Aromatic {
		return false
	}
	if q.Charge != nil && *q.Charge != a.Charge {
		return false
	}
	if q.HCount != nil && *q.HCount != m.TotalHCount(ti) {
		return false
	}
	if q.Degree != nil && *q.Degree != m.Degree(ti)+a.ImplicitH {
		return false
	}
	return true
}

func bondMatches(order PatternBondOrder, b *Bond, m *Mol) bool {
	switch order {
	case PatternAny:
		return true
	case PatternSingle:
		return b.Order == Single
	case PatternDouble:
		return b.Order == Double
	case PatternTriple:
		return b.Order == Triple
	case PatternAromatic:
		return b.Order == Aromatic
	case PatternDefault:
		return b.Order == Single || b.Order == Aromatic
	}
	return false
}

// Matches returns every embedding of the pattern in the molecule.  Each match
// maps pattern atom index → target atom index.  Symmetric embeddings are all
// reported; downstream deduplication operates on products, not on matches.
// Enumeration order is deterministic (ascending target indices).
func (p *Pattern) Matches(m *Mol) [][]int {
	n := len(p.atoms)
	order := p.searchOrder()
	assigned := make([]int, n)
	for i := range assigned {
		assigned[i] = -1
	}
	used := make([]bool, m.NumAtoms())
	var out [][]int

	var recurse func(step int)
	recurse = func(step int) {
		if step == len(order) {
			match := make([]int, n)
			copy(match, assigned)
			out = append(out, match)
			return
		}
		pi := order[step]
		for ti := 0; ti < m.NumAtoms(); ti++ {
			if used[ti] || !p.atomMatches(pi, m, ti) {
				continue
			}
			ok := true
			for _, bi := range p.adj[pi] {
				pb := &p.bonds[bi]
				other := pb.A
				if other == pi {
					other = pb.B
				}
				if assigned[other] < 0 {
					continue
				}
				tb := m.BondBetween(ti, assigned[other])
				if tb == nil || !bondMatches(pb.Order, tb, m) {
					ok = false
					break
				}
			}
			if !ok {
				continue
			}
			assigned[pi] = ti
			used[ti] = true
			recurse(step + 1)
			assigned[pi] = -1
			used[ti] = false
		}
	}
	recurse(0)
	return out
}

// HasMatch reports whether at least one embedding exists.
func (p *Pattern) HasMatch(m *Mol) bool {
	// Matches is fast enough at rule-pattern sizes; early exit is not worth a
	// second code path.
	return len(p.Matches(m)) > 0
}

// searchOrder returns pattern atom indices in a connectivity-first order so
// each step after the first is bond-constrained against an assigned atom.
func (p *Pattern) searchOrder() []int {
	n := len(p.atoms)
	seen := make([]bool, n)
	var order []int
	for start := 0; start < n; start++ {
		if seen[start] {
			continue
		}
		stack := []int{start}
		seen[start] = true
		for len(stack) > 0 {
			at := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			order = append(order, at)
			for _, bi := range p.adj[at] {
				pb := &p.bonds[bi]
				other := pb.A
				if other == at {
					other = pb.B
				}
				if !seen[other] {
					seen[other] = true
					stack = append(stack, other)
				}
			}
		}
	}
	return order
}
