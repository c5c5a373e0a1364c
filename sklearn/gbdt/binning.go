package gbdt

import (
	"sort"
)

// binMapper discretizes each feature into at most maxBin bins. Cuts[f][k] is
// the upper edge of bin k; a value v falls into the first bin whose cut is
// >= v, so "bin <= k" and "v <= Cuts[f][k]" select the same training rows.
type binMapper struct {
	Cuts [][]float64
}

func newBinMapper(rows [][]float64, nFeatures, maxBin int) *binMapper {
	m := &binMapper{Cuts: make([][]float64, nFeatures)}
	values := make([]float64, len(rows))
	for f := 0; f < nFeatures; f++ {
		for i, r := range rows {
			values[i] = r[f]
		}
		m.Cuts[f] = featureCuts(values, maxBin)
	}
	return m
}

// featureCuts returns midpoints between distinct values. With more distinct
// values than maxBin, the cuts follow equal-frequency quantiles of the data.
func featureCuts(values []float64, maxBin int) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	unique := sorted[:1]
	counts := []int{1}
	for _, v := range sorted[1:] {
		if v != unique[len(unique)-1] {
			unique = append(unique, v)
			counts = append(counts, 0)
		}
		counts[len(counts)-1]++
	}
	// unique はsortedと同じ配列を共有しているのでコピーしておく
	unique = append([]float64(nil), unique...)

	if len(unique) <= maxBin {
		cuts := make([]float64, 0, len(unique)-1)
		for k := 0; k+1 < len(unique); k++ {
			cuts = append(cuts, midpoint(unique[k], unique[k+1]))
		}
		return cuts
	}

	perBin := float64(len(sorted)) / float64(maxBin)
	cuts := make([]float64, 0, maxBin-1)
	var seen int
	target := perBin
	for k := 0; k+1 < len(unique) && len(cuts) < maxBin-1; k++ {
		seen += counts[k]
		if float64(seen) >= target {
			cuts = append(cuts, midpoint(unique[k], unique[k+1]))
			for target <= float64(seen) {
				target += perBin
			}
		}
	}
	return cuts
}

func midpoint(a, b float64) float64 {
	m := a + (b-a)/2
	if m >= b {
		return a
	}
	return m
}

func (m *binMapper) bin(f int, v float64) int {
	return sort.SearchFloat64s(m.Cuts[f], v)
}

func (m *binMapper) numBins(f int) int {
	return len(m.Cuts[f]) + 1
}

// transform bins every row; the result is column-major.
func (m *binMapper) transform(rows [][]float64) [][]uint8 {
	out := make([][]uint8, len(m.Cuts))
	for f := range m.Cuts {
		col := make([]uint8, len(rows))
		for i, r := range rows {
			col[i] = uint8(m.bin(f, r[f]))
		}
		out[f] = col
	}
	return out
}
