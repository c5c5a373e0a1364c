// Package dataset provides the in-memory table used between pipeline stages,
// with CSV and xlsx readers and writers.
//
// A Table is an ordered list of typed columns of equal length. Operations
// return new tables and never modify their receiver, so each stage can treat
// its input as an immutable snapshot.
package dataset

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnlab/pkg/errors"
)

// Table is an ordered collection of named columns.
type Table struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// New builds a table, rejecting duplicate names and ragged columns.
func New(cols ...*Column) (*Table, error) {
	t := &Table{index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if _, dup := t.index[c.Name]; dup {
			return nil, errors.NewValidationError("column", "duplicate column name", c.Name)
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, errors.NewDimensionError("dataset.New", t.rows, c.Len(), 0)
		}
		t.index[c.Name] = i
		t.cols = append(t.cols, c)
	}
	return t, nil
}

// MustNew is New for fixtures; it panics on error.
func MustNew(cols ...*Column) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return t.rows }

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.cols) }

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// Has reports whether a column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column. The column is shared with the table and
// must not be modified.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// Col returns column i.
func (t *Table) Col(i int) *Column { return t.cols[i] }

// Require returns a ColumnError naming every absent column.
func (t *Table) Require(op string, names ...string) error {
	var missing []string
	for _, n := range names {
		if !t.Has(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return errors.NewColumnError(op, missing...)
	}
	return nil
}

// Drop removes the named columns; absent names are ignored.
func (t *Table) Drop(names ...string) *Table {
	skip := make(map[string]bool, len(names))
	for _, n := range names {
		skip[n] = true
	}
	var keep []*Column
	for _, c := range t.cols {
		if !skip[c.Name] {
			keep = append(keep, c)
		}
	}
	out, _ := New(keep...)
	if len(keep) == 0 {
		out.rows = t.rows
	}
	return out
}

// Select returns the named columns in the given order.
func (t *Table) Select(op string, names ...string) (*Table, error) {
	if err := t.Require(op, names...); err != nil {
		return nil, err
	}
	cols := make([]*Column, len(names))
	for i, n := range names {
		cols[i] = t.cols[t.index[n]]
	}
	return New(cols...)
}

// WithColumn returns a table where c replaces the column of the same name in
// place, or is appended when no such column exists.
func (t *Table) WithColumn(c *Column) (*Table, error) {
	if c.Len() != t.rows && len(t.cols) > 0 {
		return nil, errors.NewDimensionError("Table.WithColumn", t.rows, c.Len(), 0)
	}
	cols := append([]*Column(nil), t.cols...)
	if i, ok := t.index[c.Name]; ok {
		cols[i] = c
	} else {
		cols = append(cols, c)
	}
	return New(cols...)
}

// Concat places the columns of others after those of t. Row counts must match.
func (t *Table) Concat(others ...*Table) (*Table, error) {
	cols := append([]*Column(nil), t.cols...)
	for _, o := range others {
		cols = append(cols, o.cols...)
	}
	return New(cols...)
}

// Take returns the rows at idx, in that order.
func (t *Table) Take(idx []int) *Table {
	cols := make([]*Column, len(t.cols))
	for i, c := range t.cols {
		cols[i] = c.take(idx)
	}
	out, _ := New(cols...)
	out.rows = len(idx)
	return out
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	cols := make([]*Column, len(t.cols))
	for i, c := range t.cols {
		cols[i] = c.Clone()
	}
	out, _ := New(cols...)
	out.rows = t.rows
	return out
}

// SortBy returns the rows stably ordered by the named column. Nulls sort last.
func (t *Table) SortBy(name string) (*Table, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, errors.NewColumnError("Table.SortBy", name)
	}
	idx := make([]int, t.rows)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		i, j := idx[a], idx[b]
		if !c.Valid[i] || !c.Valid[j] {
			return c.Valid[i] && !c.Valid[j]
		}
		switch c.Kind {
		case Numeric:
			return c.Nums[i] < c.Nums[j]
		case Time:
			return c.Times[i].Before(c.Times[j])
		default:
			return c.Strs[i] < c.Strs[j]
		}
	})
	return t.Take(idx), nil
}

// Matrix returns the named columns as an n×len(names) matrix. Every column
// must be numeric and free of nulls.
func (t *Table) Matrix(names []string) (*mat.Dense, error) {
	if err := t.Require("Table.Matrix", names...); err != nil {
		return nil, err
	}
	if t.rows == 0 || len(names) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "Table.Matrix")
	}
	out := mat.NewDense(t.rows, len(names), nil)
	for j, n := range names {
		c := t.cols[t.index[n]]
		if c.Kind != Numeric {
			return nil, errors.NewValidationError(n, "column is not numeric", c.Kind.String())
		}
		for i := 0; i < t.rows; i++ {
			if !c.Valid[i] || math.IsNaN(c.Nums[i]) {
				return nil, errors.NewValueError("Table.Matrix", fmt.Sprintf("column %q has a missing value at row %d", n, i))
			}
			out.Set(i, j, c.Nums[i])
		}
	}
	return out, nil
}

// FromMatrix builds numeric columns from the columns of m.
func FromMatrix(m mat.Matrix, names []string) (*Table, error) {
	r, c := m.Dims()
	if c != len(names) {
		return nil, errors.NewDimensionError("dataset.FromMatrix", c, len(names), 1)
	}
	cols := make([]*Column, c)
	for j := 0; j < c; j++ {
		vals := make([]float64, r)
		for i := 0; i < r; i++ {
			vals[i] = m.At(i, j)
		}
		cols[j] = NewNumeric(names[j], vals)
	}
	return New(cols...)
}

// Labels returns a numeric column as an n×1 matrix.
func (t *Table) Labels(name string) (*mat.Dense, error) {
	return t.Matrix([]string{name})
}

// Fingerprint hashes the CSV rendering of the table with xxhash. Two tables
// with the same fingerprint write byte-identical CSV files.
func (t *Table) Fingerprint() (uint64, error) {
	h := xxhash.New()
	if err := WriteCSVTo(h, t); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

// FingerprintHex is Fingerprint formatted for logs.
func (t *Table) FingerprintHex() string {
	fp, err := t.Fingerprint()
	if err != nil {
		return "error"
	}
	return strconv.FormatUint(fp, 16)
}
