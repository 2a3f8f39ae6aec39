// Package chem implements the molecular graph capability consumed by the
// prediction pipeline: a mutable atom/bond graph with SMILES input/output,
// canonical identity, explicit-hydrogen handling, valence sanitization,
// topological distances, fragment decomposition, and a SMIRKS-subset
// transformation engine.
//
// The implementation is deliberately self-contained.  A production deployment
// could swap in an RDKit binding behind the same surface; everything outside
// this package depends only on exported methods, never on graph internals.
package chem

import "strings"

// Atomic numbers for the elements this engine handles natively.  Other
// elements parse and round-trip but carry no implicit-hydrogen model.
const (
	H  = 1
	B  = 5
	C  = 6
	N  = 7
	O  = 8
	F  = 9
	P  = 15
	S  = 16
	Cl = 17
	Br = 35
	I  = 53
)

// elementSymbols maps atomic number → IUPAC symbol for the supported range.
var elementSymbols = map[int]string{
	H: "H", B: "B", C: "C", N: "N", O: "O", F: "F",
	P: "P", S: "S", Cl: "Cl", Br: "Br", I: "I",
	3: "Li", 11: "Na", 12: "Mg", 14: "Si", 19: "K", 20: "Ca",
	26: "Fe", 29: "Cu", 30: "Zn", 34: "Se", 78: "Pt",
}

// symbolNumbers is the inverse of elementSymbols.
var symbolNumbers = func() map[string]int {
	m := make(map[string]int, len(elementSymbols))
	for num, sym := range elementSymbols {
		m[sym] = num
	}
	return m
}()

// organicSubset lists elements writable without brackets in SMILES.
var organicSubset = map[int]bool{
	B: true, C: true, N: true, O: true, F: true,
	P: true, S: true, Cl: true, Br: true, I: true,
}

// aromaticCapable lists elements that may carry the aromatic flag.
var aromaticCapable = map[int]bool{
	B: true, C: true, N: true, O: true, P: true, S: true, 34: true,
}

// defaultValences lists the allowed valence states per element, ascending.
// Used both for implicit-hydrogen perception and for sanitization.
var defaultValences = map[int][]int{
	H: {1}, B: {3}, C: {4}, N: {3}, O: {2}, F: {1},
	P: {3, 5}, S: {2, 4, 6}, Cl: {1}, Br: {1}, I: {1},
}

// SymbolFor returns the element symbol for an atomic number, or "*" when the
// element is unknown to this engine.
func SymbolFor(atomicNum int) string {
	if sym, ok := elementSymbols[atomicNum]; ok {
		return sym
	}
	return "*"
}

// AtomicNumberFor returns the atomic number for an element symbol (exact
// case), or 0 when unknown.
func AtomicNumberFor(symbol string) int {
	return symbolNumbers[symbol]
}

// allowedValences returns the valence states permitted for an atom with the
// given atomic number and formal charge.  Charge shifts the neutral states:
// N+ supports 4, O- supports 1, C- supports 3.  Elements without a valence
// model return nil, which sanitization treats as "anything goes".
func allowedValences(atomicNum, charge int) []int {
	base, ok := defaultValences[atomicNum]
	if !ok {
		return nil
	}
	if charge == 0 {
		return base
	}
	shift := charge
	// Anions of electronegative elements lose a bonding slot per negative
	// charge; cations of N/P/O/S gain one.  Halogen and hydrogen cations are
	// left to sanitization to reject via the shifted value going negative.
	shifted := make([]int, 0, len(base))
	for _, v := range base {
		if s := v + shift; s >= 0 {
			shifted = append(shifted, s)
		}
	}
	return shifted
}

// isAromaticSymbol reports whether a lowercase SMILES token denotes a valid
// aromatic element.
func isAromaticSymbol(sym string) bool {
	num := symbolNumbers[strings.ToUpper(sym[:1])+sym[1:]]
	return aromaticCapable[num]
}
