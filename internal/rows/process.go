package rows

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/convert"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/table"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/template"
)

// RunColumns maps a candidate column name to the actual input column
// carrying it for one specific run (e.g. SWLS02 -> SWLS02run02).
type RunColumns map[string]string

// RowOutput is the processed form of one input row for one (task, run)
type RowOutput struct {
	// Items holds the normalized value per expected item ID.
	Items table.Row
	// MissingCount counts items with no usable source column.
	MissingCount int
}

// ProcessRow populates the expected items of a template from one input
// row. Per item the candidate list [item] + aliases is scanned in order
// and the first non-missing cell wins; runCols, when set, redirects each
// candidate through the per-run column table before falling back to the
// bare name.
func (v *Validator) ProcessRow(row table.Row, tpl *template.SurveyTemplate, runCols RunColumns, subject string, tolerance convert.ToleranceSet) (RowOutput, error) {
	out := RowOutput{Items: make(table.Row, len(tpl.Items))}

	for _, itemID := range tpl.ExpectedItems() {
		raw, found := "", false
		for _, cand := range tpl.Candidates(itemID) {
			col := cand
			if actual, ok := runCols[cand]; ok {
				col = actual
			}
			if cell := row[col]; !table.IsMissing(cell) {
				raw, found = cell, true
				break
			}
		}

		if !found {
			out.Items[itemID] = table.MissingToken
			out.MissingCount++
			continue
		}

		normalized := NormalizeValue(raw)
		if err := v.ValidateItem(tpl.Task, subject, itemID, normalized, tpl.Items[itemID], tolerance); err != nil {
			return RowOutput{}, err
		}
		out.Items[itemID] = normalized
	}
	return out, nil
}

// ProcessTable processes every row of a table for one (task, run).
// Rows are independent and validated on a bounded worker pool, but the
// output order, the tolerance-set contents and the reported error are
// deterministic: the error of the lowest failing row index wins and a
// fatal validation error aborts the whole conversion.
func (v *Validator) ProcessTable(ctx context.Context, t *table.Table, tpl *template.SurveyTemplate, runCols RunColumns, idColumn string, tolerance convert.ToleranceSet) ([]RowOutput, error) {
	outputs := make([]RowOutput, t.Len())
	rowErrs := make([]error, t.Len())
	rowTolerance := make([]convert.ToleranceSet, t.Len())

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := range t.Rows {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return nil
			}
			row := t.Rows[i]
			local := convert.ToleranceSet{}
			out, err := v.ProcessRow(row, tpl, runCols, row[idColumn], local)
			if err != nil {
				rowErrs[i] = err
				return nil
			}
			outputs[i] = out
			rowTolerance[i] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range t.Rows {
		if rowErrs[i] != nil {
			return nil, rowErrs[i]
		}
		tolerance.Merge(rowTolerance[i])
	}
	return outputs, nil
}
