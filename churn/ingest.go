package churn

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/YuminosukeSato/churnlab/dataset"
	"github.com/YuminosukeSato/churnlab/pkg/errors"
	"github.com/YuminosukeSato/churnlab/pkg/log"
)

var epoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// OffsetToDate converts a day offset from 1970-01-01 to a date. Fractional
// offsets keep their time of day, rounded to the second (the resolution of
// workbook date cells).
func OffsetToDate(days float64) time.Time {
	whole, frac := math.Modf(days)
	d := time.Duration(frac * float64(24*time.Hour)).Round(time.Second)
	return epoch.AddDate(0, 0, int(whole)).Add(d)
}

// RepairDates converts the day-offset column first_order_delivered into a
// calendar date. Null offsets stay null; a value that is not a number is a
// ValueError. A column that already holds dates is returned unchanged.
func RepairDates(ctx context.Context, t *dataset.Table) (*dataset.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	col, ok := t.Column(ColFirstOrder)
	if !ok {
		return nil, errors.NewColumnError("RepairDates", ColFirstOrder)
	}
	if col.Kind == dataset.Time {
		return t, nil
	}
	nums, ok := col.AsNumeric()
	if !ok {
		return nil, errors.NewValueError("RepairDates", fmt.Sprintf("column %q holds values that are not day offsets", ColFirstOrder))
	}

	times := make([]time.Time, nums.Len())
	valid := make([]bool, nums.Len())
	for i := range times {
		if nums.IsNull(i) {
			continue
		}
		times[i] = OffsetToDate(nums.Nums[i])
		valid[i] = true
	}
	out, err := t.WithColumn(dataset.NewTimes(ColFirstOrder, times, valid))
	if err != nil {
		return nil, errors.Wrap(err, "replace date column")
	}

	dates, _ := out.Column(ColFirstOrder)
	preview := make([]string, 0, 5)
	for i := 0; i < min(5, dates.Len()); i++ {
		preview = append(preview, dates.Text(i))
	}
	log.GetLoggerWithName("ingest").Info("dates repaired",
		log.RowsKey, out.NumRows(),
		"ingest.preview", preview,
		"ingest.nulls", dates.NullCount())
	return out, nil
}

// RepairWorkbook reads the raw workbook, repairs the date column and writes
// the result to out with a yyyy-mm-dd cell format.
func RepairWorkbook(ctx context.Context, in, out string) (*dataset.Table, error) {
	raw, err := dataset.ReadWorkbook(in)
	if err != nil {
		return nil, errors.Wrap(err, "read raw workbook")
	}
	fixed, err := RepairDates(ctx, raw)
	if err != nil {
		return nil, err
	}
	if err := dataset.WriteWorkbook(out, fixed); err != nil {
		return nil, errors.Wrap(err, "write repaired workbook")
	}
	return fixed, nil
}
