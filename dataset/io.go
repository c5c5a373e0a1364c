package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/YuminosukeSato/churnlab/pkg/errors"
)

// nullTokens are cell texts read as missing values.
var nullTokens = map[string]bool{
	"": true, "NA": true, "N/A": true, "#N/A": true, "NaN": true, "nan": true,
	"null": true, "NULL": true, "None": true, "NaT": true,
}

var timeLayouts = []string{
	dateLayout,
	dateTimeLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"01-02-06",
	"1/2/06 15:04",
	"1/2/2006",
}

// Read loads a table from a .csv, .xlsx or .xls path.
func Read(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xls":
		return ReadWorkbook(path)
	default:
		return ReadCSV(path)
	}
}

// Write stores a table as CSV or xlsx according to the path extension.
func Write(path string, t *Table) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return WriteWorkbook(path, t)
	default:
		return WriteCSV(path, t)
	}
}

// ReadCSV reads a comma-separated file with a header row.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	t, err := ReadCSVFrom(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return t, nil
}

// ReadCSVFrom reads CSV from r.
func ReadCSVFrom(r io.Reader) (*Table, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "parse csv")
	}
	if len(records) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "csv has no header row")
	}
	return fromRecords(records[0], records[1:])
}

// WriteCSV writes the table with a header row.
func WriteCSV(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := WriteCSVTo(f, t); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}

// WriteCSVTo writes CSV to w.
func WriteCSVTo(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return errors.Wrap(err, "write header")
	}
	record := make([]string, t.NumCols())
	for i := 0; i < t.NumRows(); i++ {
		for j, c := range t.cols {
			record[j] = c.Text(i)
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrapf(err, "write row %d", i)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

// ReadWorkbook reads the first sheet of an xlsx workbook. The first row is
// the header; cells are read as displayed, so date cells arrive formatted.
func ReadWorkbook(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open workbook %s", path)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %q of %s", sheet, path)
	}
	if len(rows) == 0 {
		return nil, errors.Wrapf(errors.ErrEmptyData, "workbook %s has no header row", path)
	}
	return fromRecords(rows[0], rows[1:])
}

// WriteWorkbook writes the table to a single-sheet workbook. Time columns get
// a yyyy-mm-dd number format, or yyyy-mm-dd hh:mm:ss when any of their cells
// has a time of day, so that ReadWorkbook gets the same instants back at
// one-second resolution.
func WriteWorkbook(path string, t *Table) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	dateFmt, dateTimeFmt := "yyyy-mm-dd", "yyyy-mm-dd hh:mm:ss"
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFmt})
	if err != nil {
		return errors.Wrap(err, "create date style")
	}
	dateTimeStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateTimeFmt})
	if err != nil {
		return errors.Wrap(err, "create datetime style")
	}
	styles := make([]int, t.NumCols())
	for j, c := range t.cols {
		styles[j] = dateStyle
		if c.Kind == Time && c.hasClock() {
			styles[j] = dateTimeStyle
		}
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return errors.Wrap(err, "create stream writer")
	}

	header := make([]interface{}, t.NumCols())
	for j, name := range t.Columns() {
		header[j] = name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return errors.Wrap(err, "write header")
	}

	row := make([]interface{}, t.NumCols())
	for i := 0; i < t.NumRows(); i++ {
		for j, c := range t.cols {
			switch {
			case !c.Valid[i]:
				row[j] = nil
			case c.Kind == Time:
				row[j] = excelize.Cell{StyleID: styles[j], Value: c.Times[i]}
			default:
				row[j] = c.Value(i)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, "cell name")
		}
		if err := sw.SetRow(cell, row); err != nil {
			return errors.Wrapf(err, "write row %d", i)
		}
	}
	if err := sw.Flush(); err != nil {
		return errors.Wrap(err, "flush workbook")
	}
	return errors.Wrapf(f.SaveAs(path), "save %s", path)
}

// fromRecords infers one kind per column: numeric when every non-null cell
// parses as a number, time when every one parses as a date, string otherwise.
// A column with no values at all is numeric.
func fromRecords(header []string, records [][]string) (*Table, error) {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	cols := make([]*Column, len(header))
	raw := make([]string, len(records))
	for j, name := range header {
		for i, rec := range records {
			if j < len(rec) {
				raw[i] = strings.TrimSpace(rec[j])
			} else {
				raw[i] = ""
			}
		}
		cols[j] = inferColumn(name, raw)
	}
	t, err := New(cols...)
	if err != nil {
		return nil, err
	}
	t.rows = len(records)
	return t, nil
}

func inferColumn(name string, raw []string) *Column {
	n := len(raw)
	valid := make([]bool, n)
	for i, s := range raw {
		valid[i] = !nullTokens[s]
	}

	nums := make([]float64, n)
	numeric := true
	for i, s := range raw {
		if !valid[i] {
			nums[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			numeric = false
			break
		}
		nums[i] = v
	}
	if numeric {
		return &Column{Name: name, Kind: Numeric, Nums: nums, Valid: valid}
	}

	if times, ok := parseTimes(raw, valid); ok {
		return &Column{Name: name, Kind: Time, Times: times, Valid: valid}
	}

	strs := make([]string, n)
	for i, s := range raw {
		if valid[i] {
			strs[i] = s
		}
	}
	return &Column{Name: name, Kind: String, Strs: strs, Valid: valid}
}

func parseTimes(raw []string, valid []bool) ([]time.Time, bool) {
	times := make([]time.Time, len(raw))
	for i, s := range raw {
		if !valid[i] {
			continue
		}
		t, ok := ParseTime(s)
		if !ok {
			return nil, false
		}
		times[i] = t
	}
	return times, true
}

// ParseTime parses the date and datetime layouts produced by this package,
// by spreadsheet tools and by pandas.
func ParseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
