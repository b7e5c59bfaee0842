// Package summaryfmt renders a function's FormulaMap — the post-state
// symbolic expression for every variable a driver run touched — as
// either a table for a human reading terminal output or a flat
// S-expression listing for a property checker or the cache to consume.
package summaryfmt

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/bossjoker1/formula/formula"
	"github.com/bossjoker1/formula/symvalue"
	"github.com/bossjoker1/formula/varident"
)

// Row is one variable's summarized post-state expression.
type Row struct {
	Var   varident.VarId
	Value string
}

// Rows extracts every binding in m, collapsing each Formula to a single
// nested if-expression via formula.ExpandIf, and sorts by the
// variable's display name so repeated runs over the same summary
// produce byte-identical output.
func Rows(m *formula.Map) []Row {
	ids := m.Ids()
	rows := make([]Row, 0, len(ids))
	for _, id := range ids {
		f := m.Get(id)
		if f == nil {
			continue
		}
		rows = append(rows, Row{Var: id, Value: formula.ExpandIf(f, symvalue.Bool(true)).String()})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Var.String() < rows[j].Var.String() })
	return rows
}

// WriteTable renders rows as an aligned table, preceded by title if
// non-empty.
func WriteTable(w io.Writer, title string, rows []Row) {
	if title != "" {
		fmt.Fprintln(w, title)
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Variable", "Post-state Expression"})
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, r := range rows {
		table.Append([]string{r.Var.String(), r.Value})
	}
	table.Render()
}

// WriteSExpr renders rows as one `(= var expr)` line per variable, the
// machine-readable counterpart to WriteTable.
func WriteSExpr(w io.Writer, rows []Row) {
	for _, r := range rows {
		fmt.Fprintf(w, "(= %s %s)\n", r.Var.String(), r.Value)
	}
}

// SExpr is WriteSExpr rendered to a string, for callers (like
// cache.Store.SaveSummary) that want the text rather than a stream.
func SExpr(rows []Row) string {
	var b strings.Builder
	WriteSExpr(&b, rows)
	return strings.TrimRight(b.String(), "\n")
}
