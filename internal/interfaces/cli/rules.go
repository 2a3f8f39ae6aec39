package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/metaborank/metaborank/internal/domain/rules"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect the biotransformation rule table",
	}
	cmd.AddCommand(newRulesValidateCmd(), newRulesListCmd())
	return cmd
}

func newRulesValidateCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Parse the rule table and report problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getAppContext(cmd)
			path := file
			if path == "" {
				path = app.cfg.Rules.Path
			}

			table, err := rules.LoadFile(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "OK: %s\n", path)
			fmt.Fprintf(out, "  rules:   %d\n", table.Len())
			fmt.Fprintf(out, "  subsets: %s\n", strings.Join(table.Subsets(), ", "))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "rule table CSV (default: the configured rules.path)")
	return cmd
}

func newRulesListCmd() *cobra.Command {
	var (
		file   string
		subset string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the rules in the rule table",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getAppContext(cmd)
			path := file
			if path == "" {
				path = app.cfg.Rules.Path
			}

			table, err := rules.LoadFile(path)
			if err != nil {
				return err
			}

			headers := []string{"NAME", "PRIORITY", "SUBSET", "SMIRKS"}
			var tableRows [][]string
			for _, r := range table.Rules() {
				if subset != "" && r.Subset != subset {
					continue
				}
				tableRows = append(tableRows, []string{
					r.Name, string(r.Priority), r.Subset, r.SMIRKS,
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), formatTable(headers, tableRows))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "rule table CSV (default: the configured rules.path)")
	cmd.Flags().StringVar(&subset, "subset", "", "only list rules of this subset")
	return cmd
}

// formatTable renders headers and rows as an aligned ASCII table.
func formatTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if len(row[i]) > widths[i] {
				widths[i] = len(row[i])
			}
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string) {
		for i, w := range widths {
			if i > 0 {
				sb.WriteString("  ")
			}
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			sb.WriteString(cell)
			if pad := w - len(cell); pad > 0 && i < len(widths)-1 {
				sb.WriteString(strings.Repeat(" ", pad))
			}
		}
		sb.WriteString("\n")
	}

	writeRow(headers)
	for i, w := range widths {
		if i > 0 {
			sb.WriteString("  ")
		}
		sb.WriteString(strings.Repeat("-", w))
	}
	sb.WriteString("\n")
	for _, row := range rows {
		writeRow(row)
	}
	return sb.String()
}
