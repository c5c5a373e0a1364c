package churn

import (
	"math"
	"math/rand"
	"strings"

	"github.com/YuminosukeSato/churnlab/dataset"
)

// Synthetic builds a raw courier table of n rows in the layout of the source
// workbook: integer courier ids, first_order_delivered as day offsets from
// 1970-01-01, the deprecated columns, sentinel values in the cpo extremes,
// missing counters and missing hiring channels. round(n·churnRate) rows
// churn, and churners are less active, so the features carry signal.
func Synthetic(n int, churnRate float64, seed int64) *dataset.Table {
	rng := rand.New(rand.NewSource(seed))
	churned := make([]float64, n)
	for _, i := range rng.Perm(n)[:int(math.Round(float64(n)*churnRate))] {
		churned[i] = 1
	}

	ids := make([]float64, n)
	offsets := make([]float64, n)
	for i := range ids {
		ids[i] = float64(1000 + i)
		// 2022-01-01 .. 2024-12-31, with a time of day
		offsets[i] = 18993 + float64(rng.Intn(1095)) + rng.Float64()
	}
	cols := []*dataset.Column{
		dataset.NewNumeric(ColCourierID, ids),
		dataset.NewNumeric(ColFirstOrder, offsets),
	}

	// activity: churners around 0.35, the rest around 1
	activity := make([]float64, n)
	for i := range activity {
		base := 1.0
		if churned[i] == 1 {
			base = 0.35
		}
		activity[i] = math.Max(0.05, base+0.25*rng.NormFloat64())
	}
	windows := map[string]float64{"3d": 3, "7d": 7, "14d": 14, "30d": 30}
	isSentinel := make(map[string]bool, len(SentinelColumns))
	for _, s := range SentinelColumns {
		isSentinel[s] = true
	}

	for _, name := range NumericFeatures {
		values := make([]float64, n)
		for i := range values {
			a := activity[i]
			days := 30.0
			for suffix, d := range windows {
				if strings.HasSuffix(name, "_"+suffix) {
					days = d
				}
			}
			switch {
			case strings.HasPrefix(name, "active_days_"):
				values[i] = math.Min(days, math.Round(days*0.6*a+rng.Float64()))
			case name == "num_orders_total":
				values[i] = math.Round(400 * a * (0.5 + rng.Float64()))
			case strings.HasPrefix(name, "num_orders_"):
				values[i] = math.Round(days * 2.5 * a * (0.8 + 0.4*rng.Float64()))
			case strings.HasPrefix(name, "total_income_"):
				values[i] = math.Round(days*2.5*a*(40+20*rng.Float64())*100) / 100
			case strings.HasPrefix(name, "avg_trip_distance_"):
				values[i] = 2 + 3*rng.Float64()
			case strings.Contains(name, "order_cpo_"):
				values[i] = 30 + 20*rng.Float64()
			case strings.HasPrefix(name, "orders_"):
				values[i] = math.Round(60 * a * rng.Float64())
			case name == "age":
				values[i] = float64(18 + rng.Intn(45))
			case name == "weekend_orders_ratio":
				values[i] = rng.Float64() * 0.5
			}
			if isSentinel[name] && rng.Intn(9) == 0 {
				values[i] = Sentinel
				if strings.HasPrefix(name, "min_") {
					values[i] = -Sentinel
				}
				continue
			}
			if name != "age" && rng.Intn(25) == 0 {
				values[i] = math.NaN()
			}
		}
		cols = append(cols, dataset.NewNumeric(name, values))
	}

	for _, name := range Deprecated {
		values := make([]float64, n)
		for i := range values {
			values[i] = float64(rng.Intn(300))
		}
		cols = append(cols, dataset.NewNumeric(name, values))
	}

	movements := []string{"bicycle", "motorbike", "car", "walking"}
	channels := []string{"Referral", "Online Ads", "Job Board"}
	movement := make([]string, n)
	hiring := make([]string, n)
	hiringValid := make([]bool, n)
	region := make([]float64, n)
	most := make([]float64, n)
	least := make([]float64, n)
	for i := 0; i < n; i++ {
		movement[i] = movements[rng.Intn(len(movements))]
		if rng.Intn(8) != 0 {
			hiring[i] = channels[rng.Intn(len(channels))]
			hiringValid[i] = true
		}
		region[i] = float64(1 + i%4)
		most[i] = float64(rng.Intn(7))
		least[i] = float64(rng.Intn(7))
	}
	cols = append(cols,
		dataset.NewStrings(ColMovement, movement, nil),
		dataset.NewStrings(ColHiring, hiring, hiringValid),
		dataset.NewNumeric(ColRegion, region),
		dataset.NewNumeric(ColMostActive, most),
		dataset.NewNumeric(ColLeastActive, least),
		dataset.NewNumeric(ColChurn, churned),
	)
	return dataset.MustNew(cols...)
}
