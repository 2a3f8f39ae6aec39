package chem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metaborank/metaborank/pkg/errors"
)

func TestParsePattern(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		atoms   int
	}{
		{"aliphatic_carbon", "[CX4]", 1},
		{"hydroxyl", "[OX2H1]", 1},
		{"aromatic_ch", "[cH1]", 1},
		{"atomic_number", "[#7]", 1},
		{"mapped_pair", "[C:1][O:2]", 2},
		{"explicit_h", "[c:1][H]", 2},
		{"any_bond", "C~O", 2},
		{"ring", "c1ccccc1", 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePattern(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.atoms, p.NumAtoms())
		})
	}
}

func TestParsePatternRejectsUnsupported(t *testing.T) {
	for _, bad := range []string{"[C,N]", "[!C]", "[$(CO)]", ""} {
		_, err := ParsePattern(bad)
		require.Error(t, err, bad)
		assert.True(t, errors.IsCode(err, errors.CodeRuleInvalidPattern))
	}
}

func TestPatternMatches(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		smiles  string
		withHs  bool
		count   int
	}{
		{"hydroxyl_in_ethanol", "[OX2H1]", "CCO", false, 1},
		{"no_hydroxyl_in_ether", "[OX2H1]", "COC", false, 0},
		{"aromatic_ch_benzene", "[cH1]", "c1ccccc1", false, 6},
		{"aromatic_ch_toluene", "[cH1]", "Cc1ccccc1", false, 5},
		{"methyl_carbons", "[CH3]", "CC(C)C", false, 3},
		{"explicit_h_on_ring", "[c:1][H]", "c1ccccc1", true, 6},
		{"carbonyl", "[CX3]=[OX1]", "CC(=O)O", false, 1},
		{"nitrogen_by_number", "[#7]", "c1ccncc1", false, 1},
		{"any_bond_pair", "C~C", "C=C", false, 2}, // both directions
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePattern(tt.pattern)
			require.NoError(t, err)
			m := MustParseSMILES(tt.smiles)
			if tt.withHs {
				m = m.AddHs()
			}
			assert.Len(t, p.Matches(m), tt.count)
			assert.Equal(t, tt.count > 0, p.HasMatch(m))
		})
	}
}

func TestParseTransformValidation(t *testing.T) {
	_, err := ParseTransform("[C:1]O")
	require.Error(t, err)

	_, err = ParseTransform("[C:1]>>[C:1][O:9]")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeRuleInvalidPattern))

	tr, err := ParseTransform("[C:1][H]>>[C:1]O[H]")
	require.NoError(t, err)
	assert.Equal(t, 2, tr.Pattern().NumAtoms())
}

func TestTransformHydroxylation(t *testing.T) {
	tr, err := ParseTransform("[C:1][H]>>[C:1]O[H]")
	require.NoError(t, err)

	educt := MustParseSMILES("C").AddHs()
	products := tr.Apply(educt)
	require.Len(t, products, 4) // one per hydrogen

	for _, p := range products {
		require.NoError(t, p.Sanitize())
		assert.Equal(t, Canonical(MustParseSMILES("CO")), CanonicalIdentity(p.RemoveHs()))
	}
}

func TestTransformProvenance(t *testing.T) {
	tr, err := ParseTransform("[C:1][H]>>[C:1]O[H]")
	require.NoError(t, err)

	educt := MustParseSMILES("CC").AddHs()
	products := tr.Apply(educt)
	require.NotEmpty(t, products)

	p := products[0]
	carbon := p.Atom(0)
	assert.Equal(t, C, carbon.AtomicNum)
	assert.GreaterOrEqual(t, carbon.EductIdx, 0)
	assert.Equal(t, 1, carbon.TemplateMap)

	oxygen := p.Atom(1)
	assert.Equal(t, O, oxygen.AtomicNum)
	assert.Equal(t, -1, oxygen.EductIdx) // created by the transform

	// Spectator atoms keep their own provenance.
	spectators := 0
	for i := 0; i < p.NumAtoms(); i++ {
		a := p.Atom(i)
		if a.TemplateMap == 0 && a.EductIdx >= 0 {
			spectators++
		}
	}
	assert.Greater(t, spectators, 0)
}

func TestTransformCleavageProducesFragments(t *testing.T) {
	// Ether cleavage: the C-O bond between the mapped atoms breaks because
	// the product side keeps both atoms without a bond.
	tr, err := ParseTransform("[CH3:1][O:2]>>[C:1]O.[O:2]")
	require.NoError(t, err)

	educt := MustParseSMILES("COC").AddHs()
	products := tr.Apply(educt)
	require.Len(t, products, 2) // the ether is symmetric

	frags := products[0].RemoveHs().Fragments()
	require.Len(t, frags, 2)

	ids := []string{CanonicalIdentity(frags[0]), CanonicalIdentity(frags[1])}
	assert.Contains(t, ids, Canonical(MustParseSMILES("CO")))
}

func TestTransformRemovesUnmappedAtoms(t *testing.T) {
	// Demethylation: the methyl disappears entirely along with its hydrogens.
	tr, err := ParseTransform("[O:1][CH3]>>[O:1][H]")
	require.NoError(t, err)

	educt := MustParseSMILES("COc1ccccc1").AddHs()
	products := tr.Apply(educt)
	require.Len(t, products, 1)

	// The methyl's hydrogens are left behind as free atoms when their carbon
	// is removed; fragment handling downstream discards them.
	got := CanonicalIdentity(products[0].RemoveHs().LargestFragment())
	assert.Equal(t, Canonical(MustParseSMILES("Oc1ccccc1")), got)
}

func TestTransformDeterministicOrder(t *testing.T) {
	tr, err := ParseTransform("[C:1][H]>>[C:1]O[H]")
	require.NoError(t, err)
	educt := MustParseSMILES("CCC").AddHs()

	first := tr.Apply(educt)
	second := tr.Apply(educt)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, Canonical(first[i]), Canonical(second[i]))
	}
}
