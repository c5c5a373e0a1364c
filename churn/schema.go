// Package churn implements the stages of the courier churn pipeline: date
// repair, cleaning, exploratory reports, PLS projection, stratified split,
// the model bench, explanations, hyperparameter search and the final model.
//
// Every stage takes tables and returns new ones; Pipeline chains them with
// the file names of pkg/config.
package churn

// Column names of the courier table.
const (
	ColCourierID   = "courier_id"
	ColChurn       = "churn_flag"
	ColFirstOrder  = "first_order_delivered"
	ColHiring      = "hiring_channel_name"
	ColMovement    = "movement_type"
	ColRegion      = "region_id"
	ColMostActive  = "most_active_weekday"
	ColLeastActive = "least_active_weekday"
	ColAccountAge  = "account_age_days"
)

// Deprecated columns leak the label (they are computed after churn) and are
// dropped when present.
var Deprecated = []string{"churn_days", "days_since_last_order", "life_time_days_cnt", "life_time_order_cnt"}

// SentinelColumns use ±1,000,000 for "not applicable".
var SentinelColumns = []string{
	"max_order_cpo_14d", "max_order_cpo_30d", "max_order_cpo_3d", "max_order_cpo_7d",
	"min_order_cpo_14d", "min_order_cpo_30d", "min_order_cpo_3d", "min_order_cpo_7d",
}

// Sentinel is the placeholder magnitude.
const Sentinel = 1_000_000

// NumericFeatures are the rolling-window counters imputed with zero and
// projected by PLS.
var NumericFeatures = []string{
	"active_days_14d", "active_days_30d", "active_days_3d", "active_days_7d",
	"age",
	"avg_order_cpo_14d", "avg_order_cpo_30d", "avg_order_cpo_3d", "avg_order_cpo_7d",
	"avg_trip_distance_14d", "avg_trip_distance_30d", "avg_trip_distance_3d", "avg_trip_distance_7d",
	"max_order_cpo_14d", "max_order_cpo_30d", "max_order_cpo_3d", "max_order_cpo_7d",
	"min_order_cpo_14d", "min_order_cpo_30d", "min_order_cpo_3d", "min_order_cpo_7d",
	"num_orders_14d", "num_orders_30d", "num_orders_3d", "num_orders_7d",
	"num_orders_total",
	"orders_friday", "orders_monday", "orders_saturday", "orders_sunday",
	"orders_thursday", "orders_tuesday", "orders_wednesday",
	"total_income_14d", "total_income_30d", "total_income_3d", "total_income_7d",
	"weekend_orders_ratio",
}

// CategoricalFeatures are reported by churn in the exploratory stage.
var CategoricalFeatures = []string{ColMovement, ColHiring, ColRegion}

// OneHotFeatures are encoded with drop-first dummies before modelling.
var OneHotFeatures = []string{ColMovement, ColHiring}

// WeekdayFeatures are compared against churn with box plots.
var WeekdayFeatures = []string{ColMostActive, ColLeastActive}

// ClassLabels name the two classes in reports.
var ClassLabels = [2]string{"Not Churn", "Churn"}
