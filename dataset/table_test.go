package dataset

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/churnlab/pkg/errors"
)

func fixture(t *testing.T) *Table {
	t.Helper()
	return MustNew(
		NewNumeric("courier_id", []float64{3, 1, 2}),
		NewStrings("movement_type", []string{"bike", "", "car"}, []bool{true, false, true}),
		NewNumeric("age", []float64{31, math.NaN(), 24.5}),
		NewTimes("first_order_delivered", []time.Time{
			time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
			time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC),
		}, nil),
	)
}

func TestNewRejectsRaggedAndDuplicate(t *testing.T) {
	_, err := New(NewNumeric("a", []float64{1, 2}), NewNumeric("b", []float64{1}))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))

	_, err = New(NewNumeric("a", []float64{1}), NewNumeric("a", []float64{2}))
	var valErr *errors.ValidationError
	assert.True(t, errors.As(err, &valErr))
}

func TestDropIgnoresMissing(t *testing.T) {
	tbl := fixture(t)
	out := tbl.Drop("age", "churn_days")
	assert.Equal(t, []string{"courier_id", "movement_type", "first_order_delivered"}, out.Columns())
	assert.Equal(t, 3, out.NumRows())
	assert.True(t, tbl.Has("age"), "receiver is not modified")
}

func TestSelectMissingColumn(t *testing.T) {
	_, err := fixture(t).Select("test", "age", "region_id")
	var colErr *errors.ColumnError
	require.True(t, errors.As(err, &colErr))
	assert.Equal(t, []string{"region_id"}, colErr.Columns)
}

func TestSortByAndTake(t *testing.T) {
	sorted, err := fixture(t).SortBy("courier_id")
	require.NoError(t, err)
	ids, _ := sorted.Column("courier_id")
	assert.Equal(t, []float64{1, 2, 3}, ids.Nums)
	mt, _ := sorted.Column("movement_type")
	assert.True(t, mt.IsNull(0))
	assert.Equal(t, "car", mt.Strs[1])
}

func TestWithColumnReplacesInPlace(t *testing.T) {
	tbl := fixture(t)
	out, err := tbl.WithColumn(NewNumeric("age", []float64{1, 2, 3}))
	require.NoError(t, err)
	assert.Equal(t, tbl.Columns(), out.Columns())
	age, _ := out.Column("age")
	assert.Equal(t, 0, age.NullCount())

	out, err = tbl.WithColumn(NewNumeric("extra", []float64{0, 0, 0}))
	require.NoError(t, err)
	assert.Equal(t, "extra", out.Columns()[out.NumCols()-1])
}

func TestMatrix(t *testing.T) {
	tbl := fixture(t)
	_, err := tbl.Matrix([]string{"courier_id", "age"})
	var valueErr *errors.ValueError
	assert.True(t, errors.As(err, &valueErr), "null cell must be rejected")

	_, err = tbl.Matrix([]string{"movement_type"})
	var valErr *errors.ValidationError
	assert.True(t, errors.As(err, &valErr), "string column must be rejected")

	m, err := tbl.Matrix([]string{"courier_id"})
	require.NoError(t, err)
	r, c := m.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 1, c)
}

func TestCategories(t *testing.T) {
	c := NewNumeric("region_id", []float64{10, 2, 10, math.NaN(), 7})
	assert.Equal(t, []string{"2", "7", "10"}, c.Categories())

	s := NewStrings("hiring_channel_name", []string{"b", "a", "b"}, nil)
	assert.Equal(t, []string{"a", "b"}, s.Categories())
}

func TestCSVRoundTripIsStable(t *testing.T) {
	var first bytes.Buffer
	require.NoError(t, WriteCSVTo(&first, fixture(t)))

	back, err := ReadCSVFrom(bytes.NewReader(first.Bytes()))
	require.NoError(t, err)

	fd, _ := back.Column("first_order_delivered")
	assert.Equal(t, Time, fd.Kind)
	mt, _ := back.Column("movement_type")
	assert.Equal(t, String, mt.Kind)
	assert.True(t, mt.IsNull(1))

	var second bytes.Buffer
	require.NoError(t, WriteCSVTo(&second, back))
	assert.Equal(t, first.String(), second.String())

	fp1, err := fixture(t).Fingerprint()
	require.NoError(t, err)
	fp2, err := back.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)
}

func TestReadCSVInference(t *testing.T) {
	in := "\ufeffcourier_id,hiring_channel_name,weekend_orders_ratio\n1,referral,0.5\n2,NA,\n"
	tbl, err := ReadCSVFrom(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, "courier_id", tbl.Columns()[0])

	hc, _ := tbl.Column("hiring_channel_name")
	assert.Equal(t, String, hc.Kind)
	assert.Equal(t, 1, hc.NullCount())

	w, _ := tbl.Column("weekend_orders_ratio")
	assert.Equal(t, Numeric, w.Kind)
	assert.True(t, math.IsNaN(w.Nums[1]))
}

func TestWorkbookRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixed.xlsx")
	require.NoError(t, Write(path, fixture(t)))

	back, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, fixture(t).Columns(), back.Columns())
	assert.Equal(t, 3, back.NumRows())

	ids, _ := back.Column("courier_id")
	assert.Equal(t, Numeric, ids.Kind)
	assert.Equal(t, []float64{3, 1, 2}, ids.Nums)

	fd, _ := back.Column("first_order_delivered")
	require.Equal(t, Time, fd.Kind)
	assert.Equal(t, "2024-01-05", fd.Text(0))
}

func TestWorkbookRoundTripKeepsTimeOfDay(t *testing.T) {
	want := []time.Time{
		time.Date(2023, 9, 16, 16, 6, 34, 0, time.UTC),
		{},
		time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		time.Date(2021, 12, 31, 23, 59, 59, 0, time.UTC),
	}
	in := MustNew(
		NewNumeric("courier_id", []float64{1, 2, 3, 4}),
		NewTimes("first_order_delivered", want, []bool{true, false, true, true}),
	)
	path := filepath.Join(t.TempDir(), "fixed.xlsx")
	require.NoError(t, WriteWorkbook(path, in))

	back, err := ReadWorkbook(path)
	require.NoError(t, err)
	fd, _ := back.Column("first_order_delivered")
	require.Equal(t, Time, fd.Kind)
	for i, w := range want {
		if i == 1 {
			assert.True(t, fd.IsNull(i))
			continue
		}
		assert.True(t, w.Equal(fd.Times[i]), "row %d: got %v, want %v", i, fd.Times[i], w)
	}
}
