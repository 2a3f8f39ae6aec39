package rules

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metaborank/metaborank/pkg/errors"
)

const sampleCSV = `SMIRKS,Reaction name,Priority level,Name of rule subset
[C:1][H]>>[C:1]O[H],aliphatic hydroxylation,common,cyp
[c:1][H]>>[c:1]O[H],aromatic hydroxylation,common,cyp
[O:1][CH3]>>[O:1][H],O-demethylation,uncommon,cyp
[CX4:1][OX2H1:2]>>[C:1]=[O:2],alcohol oxidation,common,oxidoreductase
`

func TestLoad(t *testing.T) {
	table, err := Load(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Equal(t, 4, table.Len())

	r := table.Rules()[0]
	assert.Equal(t, "aliphatic hydroxylation", r.Name)
	assert.Equal(t, "[C:1][H]>>[C:1]O[H]", r.SMIRKS)
	assert.Equal(t, PriorityCommon, r.Priority)
	assert.Equal(t, "cyp", r.Subset)
	assert.NotNil(t, r.Transform)

	assert.Equal(t, []string{"cyp", "oxidoreductase"}, table.Subsets())
}

func TestLoadColumnOrderIndependent(t *testing.T) {
	csv := `Name of rule subset,Priority level,Reaction name,SMIRKS,Extra
cyp,uncommon,aliphatic hydroxylation,[C:1][H]>>[C:1]O[H],ignored
`
	table, err := Load(strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, PriorityUncommon, table.Rules()[0].Priority)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		code errors.ErrorCode
	}{
		{
			"missing_column",
			"SMIRKS,Reaction name,Priority level\na>>b,x,common\n",
			errors.CodeRuleTableRead,
		},
		{
			"empty_table",
			"SMIRKS,Reaction name,Priority level,Name of rule subset\n",
			errors.CodeRuleTableEmpty,
		},
		{
			"bad_smirks",
			sampleHeader() + "[C:1>>[C:1]O,broken,common,cyp\n",
			errors.CodeRuleInvalidPattern,
		},
		{
			"bad_priority",
			sampleHeader() + "[C:1][H]>>[C:1]O[H],x,sometimes,cyp\n",
			errors.CodeRuleInvalidPriority,
		},
		{
			"duplicate_name",
			sampleHeader() +
				"[C:1][H]>>[C:1]O[H],x,common,cyp\n" +
				"[c:1][H]>>[c:1]O[H],x,common,cyp\n",
			errors.CodeRuleDuplicateName,
		},
		{
			"missing_subset",
			sampleHeader() + "[C:1][H]>>[C:1]O[H],x,common,\n",
			errors.CodeRuleTableRead,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.csv))
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.code), "got %v", err)
		})
	}
}

func sampleHeader() string {
	return "SMIRKS,Reaction name,Priority level,Name of rule subset\n"
}

func TestPriorityWeight(t *testing.T) {
	assert.Equal(t, 1.0, PriorityCommon.Weight())
	assert.Equal(t, 0.2, PriorityUncommon.Weight())
}
