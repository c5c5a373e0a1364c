package dataset

import (
	"math"
	"sort"
	"strconv"
	"time"
)

// Kind is the storage type of a column.
type Kind int

const (
	// Numeric columns hold float64 values; null cells hold NaN.
	Numeric Kind = iota
	// String columns hold text.
	String
	// Time columns hold calendar timestamps.
	Time
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "float64"
	case String:
		return "string"
	case Time:
		return "datetime"
	default:
		return "unknown"
	}
}

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// Column is a named, typed vector with a validity mask. Exactly one of Nums,
// Strs or Times is populated, according to Kind.
type Column struct {
	Name  string
	Kind  Kind
	Nums  []float64
	Strs  []string
	Times []time.Time
	Valid []bool
}

// NewNumeric builds a numeric column; NaN values are treated as null.
func NewNumeric(name string, values []float64) *Column {
	valid := make([]bool, len(values))
	for i, v := range values {
		valid[i] = !math.IsNaN(v)
	}
	return &Column{Name: name, Kind: Numeric, Nums: values, Valid: valid}
}

// NewStrings builds a string column; valid may be nil meaning all present.
func NewStrings(name string, values []string, valid []bool) *Column {
	if valid == nil {
		valid = allValid(len(values))
	}
	return &Column{Name: name, Kind: String, Strs: values, Valid: valid}
}

// NewTimes builds a time column; valid may be nil meaning all present.
func NewTimes(name string, values []time.Time, valid []bool) *Column {
	if valid == nil {
		valid = allValid(len(values))
	}
	return &Column{Name: name, Kind: Time, Times: values, Valid: valid}
}

func allValid(n int) []bool {
	v := make([]bool, n)
	for i := range v {
		v[i] = true
	}
	return v
}

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.Valid) }

// IsNull reports whether cell i is missing.
func (c *Column) IsNull(i int) bool { return !c.Valid[i] }

// NullCount returns the number of missing cells.
func (c *Column) NullCount() int {
	n := 0
	for _, ok := range c.Valid {
		if !ok {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (c *Column) Clone() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind, Valid: append([]bool(nil), c.Valid...)}
	switch c.Kind {
	case Numeric:
		out.Nums = append([]float64(nil), c.Nums...)
	case String:
		out.Strs = append([]string(nil), c.Strs...)
	case Time:
		out.Times = append([]time.Time(nil), c.Times...)
	}
	return out
}

// Renamed returns a shallow copy with a new name.
func (c *Column) Renamed(name string) *Column {
	out := *c
	out.Name = name
	return &out
}

// Text renders cell i the way it is written to CSV; null cells render empty.
func (c *Column) Text(i int) string {
	if !c.Valid[i] {
		return ""
	}
	switch c.Kind {
	case Numeric:
		return strconv.FormatFloat(c.Nums[i], 'f', -1, 64)
	case Time:
		if !isClock(c.Times[i]) {
			return c.Times[i].Format(dateLayout)
		}
		return c.Times[i].Format(dateTimeLayout)
	default:
		return c.Strs[i]
	}
}

func isClock(t time.Time) bool {
	return t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 || t.Nanosecond() != 0
}

// hasClock reports whether any valid cell of a time column has a time of day.
func (c *Column) hasClock() bool {
	for i, t := range c.Times {
		if c.Valid[i] && isClock(t) {
			return true
		}
	}
	return false
}

// Value returns cell i as an interface value (float64, string, time.Time or nil).
func (c *Column) Value(i int) interface{} {
	if !c.Valid[i] {
		return nil
	}
	switch c.Kind {
	case Numeric:
		return c.Nums[i]
	case Time:
		return c.Times[i]
	default:
		return c.Strs[i]
	}
}

// AsStrings converts the column to String kind, keeping nulls.
func (c *Column) AsStrings() *Column {
	if c.Kind == String {
		return c.Clone()
	}
	vals := make([]string, c.Len())
	for i := range vals {
		if c.Valid[i] {
			vals[i] = c.Text(i)
		}
	}
	return NewStrings(c.Name, vals, append([]bool(nil), c.Valid...))
}

// AsNumeric converts a column to Numeric kind. Text that does not parse as a
// number is reported through ok=false.
func (c *Column) AsNumeric() (*Column, bool) {
	switch c.Kind {
	case Numeric:
		return c.Clone(), true
	case Time:
		return nil, false
	}
	vals := make([]float64, c.Len())
	for i := range vals {
		if !c.Valid[i] {
			vals[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(c.Strs[i], 64)
		if err != nil {
			return nil, false
		}
		vals[i] = v
	}
	return NewNumeric(c.Name, vals), true
}

// Categories returns the sorted distinct non-null values as text. Numeric
// categories sort numerically.
func (c *Column) Categories() []string {
	seen := make(map[string]struct{})
	var nums []float64
	var strs []string
	for i := 0; i < c.Len(); i++ {
		if !c.Valid[i] {
			continue
		}
		key := c.Text(i)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if c.Kind == Numeric {
			nums = append(nums, c.Nums[i])
		} else {
			strs = append(strs, key)
		}
	}
	if c.Kind == Numeric {
		sort.Float64s(nums)
		out := make([]string, len(nums))
		for i, v := range nums {
			out[i] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		return out
	}
	sort.Strings(strs)
	return strs
}

// take returns the cells at idx as a new column.
func (c *Column) take(idx []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind, Valid: make([]bool, len(idx))}
	switch c.Kind {
	case Numeric:
		out.Nums = make([]float64, len(idx))
	case String:
		out.Strs = make([]string, len(idx))
	case Time:
		out.Times = make([]time.Time, len(idx))
	}
	for k, i := range idx {
		out.Valid[k] = c.Valid[i]
		switch c.Kind {
		case Numeric:
			out.Nums[k] = c.Nums[i]
		case String:
			out.Strs[k] = c.Strs[i]
		case Time:
			out.Times[k] = c.Times[i]
		}
	}
	return out
}
