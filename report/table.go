// Package report renders the console and text reports of the pipeline with
// tablewriter, and computes the describe() summary with montanaflynn/stats.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/YuminosukeSato/churnlab/explain"
	"github.com/YuminosukeSato/churnlab/metrics"
)

// Table writes an ASCII table.
func Table(w io.Writer, header []string, rows [][]string) {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.SetAlignment(tablewriter.ALIGN_RIGHT)
	t.AppendBulk(rows)
	t.Render()
}

func f4(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }

// Scorecards writes the bench comparison in the given order.
func Scorecards(w io.Writer, cards []*metrics.Scorecard) {
	rows := make([][]string, len(cards))
	for i, c := range cards {
		rows[i] = []string{c.Model, f4(c.Accuracy), f4(c.Precision), f4(c.Recall), f4(c.F1), f4(c.AUC),
			strconv.FormatFloat(c.TrainSeconds, 'f', 3, 64)}
	}
	Table(w, []string{"Model", "Accuracy", "Precision", "Recall", "F1-Score", "AUC-ROC", "Training Time (s)"}, rows)
}

// Importances writes a mean |SHAP| ranking.
func Importances(w io.Writer, imp []explain.FeatureImportance) {
	rows := make([][]string, len(imp))
	for i, f := range imp {
		rows[i] = []string{strconv.Itoa(i + 1), f.Feature, strconv.FormatFloat(f.MeanAbsSHAP, 'f', 6, 64)}
	}
	Table(w, []string{"Rank", "Feature", "Mean |SHAP|"}, rows)
}

// Loadings writes the top-weighted features of one component.
func Loadings(w io.Writer, component int, ls []explain.Loading) {
	rows := make([][]string, len(ls))
	for i, l := range ls {
		rows[i] = []string{strconv.Itoa(i + 1), l.Feature, strconv.FormatFloat(l.Weight, 'f', 6, 64)}
	}
	Table(w, []string{"Rank", "Feature", fmt.Sprintf("PLS_%d weight", component)}, rows)
}

// ClassificationReport writes the per-class report as a table.
func ClassificationReport(w io.Writer, r *metrics.Report) {
	var rows [][]string
	for _, c := range r.Classes {
		rows = append(rows, []string{c.Label, f4(c.Precision), f4(c.Recall), f4(c.F1), strconv.Itoa(c.Support)})
	}
	rows = append(rows, []string{"accuracy", "", "", f4(r.Accuracy), strconv.Itoa(r.MacroAvg.Support)})
	for _, c := range []metrics.ClassScores{r.MacroAvg, r.WeightedAvg} {
		rows = append(rows, []string{c.Label, f4(c.Precision), f4(c.Recall), f4(c.F1), strconv.Itoa(c.Support)})
	}
	Table(w, []string{"", "precision", "recall", "f1-score", "support"}, rows)
}

// Counts writes value counts, optionally split by a second key.
func Counts(w io.Writer, title string, keys []string, groups []string, counts [][]int) {
	header := append([]string{title}, groups...)
	rows := make([][]string, len(keys))
	for i, k := range keys {
		rows[i] = []string{k}
		for g := range groups {
			rows[i] = append(rows[i], strconv.Itoa(counts[g][i]))
		}
	}
	Table(w, header, rows)
}
