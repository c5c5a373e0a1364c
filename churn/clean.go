package churn

import (
	"github.com/YuminosukeSato/churnlab/dataset"
	"github.com/YuminosukeSato/churnlab/pkg/errors"
	"github.com/YuminosukeSato/churnlab/pkg/log"
)

// Clean drops the deprecated columns, replaces the ±1,000,000 sentinels with
// zero, fills nulls of the numeric features with zero and of the hiring
// channel with unknown. Applied to its own output it changes nothing.
func Clean(t *dataset.Table, unknown string) (*dataset.Table, error) {
	out := t.Drop(Deprecated...)
	required := append(append([]string(nil), NumericFeatures...), ColHiring)
	if err := out.Require("Clean", required...); err != nil {
		return nil, err
	}

	sentinel := make(map[string]bool, len(SentinelColumns))
	for _, name := range SentinelColumns {
		sentinel[name] = true
	}
	var replaced, filled int
	for _, name := range NumericFeatures {
		c, _ := out.Column(name)
		num, ok := c.AsNumeric()
		if !ok {
			return nil, errors.NewValidationError(name, "column is not numeric", c.Kind.String())
		}
		vals := num.Nums
		for i := range vals {
			switch {
			case num.IsNull(i):
				vals[i] = 0
				filled++
			case sentinel[name] && (vals[i] == Sentinel || vals[i] == -Sentinel):
				vals[i] = 0
				replaced++
			}
		}
		var err error
		if out, err = out.WithColumn(dataset.NewNumeric(name, vals)); err != nil {
			return nil, errors.Wrapf(err, "clean %s", name)
		}
	}

	hc, _ := out.Column(ColHiring)
	hiring := hc.AsStrings()
	for i := range hiring.Valid {
		if !hiring.Valid[i] {
			hiring.Strs[i] = unknown
			hiring.Valid[i] = true
		}
	}
	out, err := out.WithColumn(hiring)
	if err != nil {
		return nil, errors.Wrapf(err, "clean %s", ColHiring)
	}

	log.GetLoggerWithName("clean").Info("table cleaned",
		log.RowsKey, out.NumRows(),
		log.ColumnsKey, out.NumCols(),
		"clean.sentinels_replaced", replaced,
		"clean.nulls_filled", filled,
		log.FingerprintKey, out.FingerprintHex())
	return out, nil
}
