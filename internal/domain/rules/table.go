package rules

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/metaborank/metaborank/internal/chem"
	"github.com/metaborank/metaborank/pkg/errors"
)

// CSV column headers of a rule table.
const (
	colSMIRKS   = "SMIRKS"
	colName     = "Reaction name"
	colPriority = "Priority level"
	colSubset   = "Name of rule subset"
)

// Table is an immutable, ordered collection of rules.  Order follows the
// source file, which makes downstream enumeration deterministic.
type Table struct {
	rules []*Rule
}

// Rules returns the rules in table order.  The slice must not be modified.
func (t *Table) Rules() []*Rule { return t.rules }

// Len returns the number of rules.
func (t *Table) Len() int { return len(t.rules) }

// Subsets returns the distinct subset names in first-seen order.
func (t *Table) Subsets() []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range t.rules {
		if !seen[r.Subset] {
			seen[r.Subset] = true
			out = append(out, r.Subset)
		}
	}
	return out
}

// Load reads a rule table from CSV.  The header row must contain the four
// rule columns in any order; extra columns are ignored.  Any malformed row
// is a configuration error: a rule table is trusted input and a bad entry
// means the deployment is broken, so loading fails rather than skipping.
func Load(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeRuleTableRead, "failed to read rule table header")
	}
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	for _, required := range []string{colSMIRKS, colName, colPriority, colSubset} {
		if _, ok := cols[required]; !ok {
			return nil, errors.New(errors.CodeRuleTableRead, "rule table is missing a required column").
				WithDetail(required)
		}
	}

	var table Table
	names := map[string]bool{}
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeRuleTableRead, "failed to read rule table row").
				WithDetail("line=" + strconv.Itoa(line))
		}

		rule, err := parseRow(record, cols, line)
		if err != nil {
			return nil, err
		}
		if names[rule.Name] {
			return nil, errors.New(errors.CodeRuleDuplicateName, "duplicate reaction name").
				WithDetail(rule.Name)
		}
		names[rule.Name] = true
		table.rules = append(table.rules, rule)
	}

	if len(table.rules) == 0 {
		return nil, errors.New(errors.CodeRuleTableEmpty, "rule table contains no rules")
	}
	return &table, nil
}

// LoadFile reads a rule table from a CSV file.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeRuleTableRead, "failed to open rule table").
			WithDetail(path)
	}
	defer f.Close()
	return Load(f)
}

func parseRow(record []string, cols map[string]int, line int) (*Rule, error) {
	field := func(name string) string {
		idx := cols[name]
		if idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	name := field(colName)
	smirks := field(colSMIRKS)
	if name == "" || smirks == "" {
		return nil, errors.New(errors.CodeRuleTableRead, "rule row is missing a name or SMIRKS").
			WithDetail("line=" + strconv.Itoa(line))
	}

	transform, err := chem.ParseTransform(smirks)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeRuleInvalidPattern, "rule SMIRKS does not compile").
			WithDetail("rule=" + name)
	}

	priority := Priority(strings.ToLower(field(colPriority)))
	if !priority.Valid() {
		return nil, errors.New(errors.CodeRuleInvalidPriority, "unknown priority level").
			WithDetail("rule=" + name + " priority=" + field(colPriority))
	}

	subset := field(colSubset)
	if subset == "" {
		return nil, errors.New(errors.CodeRuleTableRead, "rule row is missing a subset name").
			WithDetail("rule=" + name)
	}

	return &Rule{
		Name:      name,
		SMIRKS:    smirks,
		Transform: transform,
		Priority:  priority,
		Subset:    subset,
	}, nil
}
