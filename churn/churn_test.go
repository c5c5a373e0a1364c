package churn

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnlab/core/model"
	"github.com/YuminosukeSato/churnlab/dataset"
	"github.com/YuminosukeSato/churnlab/pkg/config"
	"github.com/YuminosukeSato/churnlab/pkg/errors"
	"github.com/YuminosukeSato/churnlab/sklearn/xgboost"
)

var refDate = time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)

func cleaned(t *testing.T, n int) *dataset.Table {
	t.Helper()
	raw, err := RepairDates(context.Background(), Synthetic(n, 0.3, 42))
	require.NoError(t, err)
	out, err := Clean(raw, config.DefaultUnknownLabel)
	require.NoError(t, err)
	return out
}

func splitTables(t *testing.T, components int) (*Projection, *dataset.Table, *dataset.Table) {
	t.Helper()
	proj, err := Project(cleaned(t, 100), components)
	require.NoError(t, err)
	train, test, err := Split(proj.Table, 0.2, 42)
	require.NoError(t, err)
	return proj, train, test
}

func TestOffsetToDate(t *testing.T) {
	assert.Equal(t, time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), OffsetToDate(0))
	assert.Equal(t, time.Date(1970, 1, 2, 12, 0, 0, 0, time.UTC), OffsetToDate(1.5))
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), OffsetToDate(18262))
	// 1/3 日 = 8h、秒未満は丸める
	assert.Equal(t, time.Date(1970, 1, 1, 8, 0, 0, 0, time.UTC), OffsetToDate(1.0/3))
}

func TestRepairWorkbookKeepsTimestamps(t *testing.T) {
	dir := t.TempDir()
	in, out := filepath.Join(dir, "raw.xlsx"), filepath.Join(dir, "fixed.xlsx")
	require.NoError(t, dataset.WriteWorkbook(in, Synthetic(50, 0.3, 42)))

	repaired, err := RepairWorkbook(context.Background(), in, out)
	require.NoError(t, err)
	back, err := dataset.ReadWorkbook(out)
	require.NoError(t, err)

	want, _ := repaired.Column(ColFirstOrder)
	got, _ := back.Column(ColFirstOrder)
	require.Equal(t, dataset.Time, got.Kind)
	require.Equal(t, want.Len(), got.Len())
	for i := 0; i < want.Len(); i++ {
		require.Equal(t, want.IsNull(i), got.IsNull(i), "row %d", i)
		if !want.IsNull(i) {
			assert.True(t, want.Times[i].Equal(got.Times[i]), "row %d: got %v, want %v", i, got.Times[i], want.Times[i])
		}
	}

	ageWant, err := AccountAge(repaired, refDate)
	require.NoError(t, err)
	ageGot, err := AccountAge(back, refDate)
	require.NoError(t, err)
	a, _ := ageWant.Column(ColAccountAge)
	b, _ := ageGot.Column(ColAccountAge)
	for i := range a.Nums {
		if math.IsNaN(a.Nums[i]) {
			assert.True(t, math.IsNaN(b.Nums[i]), "row %d", i)
			continue
		}
		assert.Equal(t, a.Nums[i], b.Nums[i], "row %d", i)
	}
}

func TestRepairDatesKeepsNulls(t *testing.T) {
	in := dataset.MustNew(
		dataset.NewNumeric(ColCourierID, []float64{1, 2}),
		dataset.NewNumeric(ColFirstOrder, []float64{18262, math.NaN()}),
	)
	out, err := RepairDates(context.Background(), in)
	require.NoError(t, err)
	c, _ := out.Column(ColFirstOrder)
	assert.Equal(t, dataset.Time, c.Kind)
	assert.True(t, c.IsNull(1))

	_, err = RepairDates(context.Background(), dataset.MustNew(dataset.NewNumeric(ColCourierID, []float64{1})))
	var colErr *errors.ColumnError
	assert.True(t, errors.As(err, &colErr))
}

func TestCleanImputes(t *testing.T) {
	out := cleaned(t, 100)
	for _, name := range Deprecated {
		assert.False(t, out.Has(name), name)
	}
	for _, name := range NumericFeatures {
		c, _ := out.Column(name)
		assert.Zero(t, c.NullCount(), name)
		for _, v := range c.Nums {
			assert.NotEqual(t, float64(Sentinel), math.Abs(v), name)
		}
	}
	hiring, _ := out.Column(ColHiring)
	assert.Zero(t, hiring.NullCount())
	assert.Contains(t, hiring.Categories(), config.DefaultUnknownLabel)
}

func TestCleanIsIdempotent(t *testing.T) {
	once := cleaned(t, 60)
	twice, err := Clean(once, config.DefaultUnknownLabel)
	require.NoError(t, err)

	var a, b bytes.Buffer
	require.NoError(t, dataset.WriteCSVTo(&a, once))
	require.NoError(t, dataset.WriteCSVTo(&b, twice))
	assert.Equal(t, a.String(), b.String())
}

func TestCleanMissingColumns(t *testing.T) {
	_, err := Clean(Synthetic(10, 0.3, 1).Drop("age", ColHiring), "Unknown")
	var colErr *errors.ColumnError
	require.True(t, errors.As(err, &colErr))
	assert.ElementsMatch(t, []string{"age", ColHiring}, colErr.Columns)
}

func TestProjectKeepsEveryCourier(t *testing.T) {
	in := cleaned(t, 100)
	proj, err := Project(in, 5)
	require.NoError(t, err)

	assert.Equal(t, []string{"PLS_1", "PLS_2", "PLS_3", "PLS_4", "PLS_5"}, proj.Components)
	assert.Len(t, proj.Features, len(NumericFeatures))
	assert.Equal(t, in.NumRows(), proj.Table.NumRows())
	assert.False(t, proj.Realigned)
	for _, name := range NumericFeatures {
		assert.False(t, proj.Table.Has(name), name)
	}
	for _, name := range []string{ColChurn, ColRegion, ColMovement, ColHiring, ColFirstOrder, ColMostActive} {
		assert.True(t, proj.Table.Has(name), name)
	}

	ids := func(tb *dataset.Table) []string {
		c, _ := tb.Column(ColCourierID)
		out := append([]string(nil), c.AsStrings().Strs...)
		sort.Strings(out)
		return out
	}
	assert.Equal(t, ids(in), ids(proj.Table))
}

func TestProjectValidation(t *testing.T) {
	_, err := Project(cleaned(t, 20), 0)
	var vErr *errors.ValidationError
	assert.True(t, errors.As(err, &vErr))

	dup := cleaned(t, 20)
	ids, _ := dup.Column(ColCourierID)
	ids = ids.Clone()
	ids.Nums[1] = ids.Nums[0]
	dup, err = dup.WithColumn(ids)
	require.NoError(t, err)
	_, err = Project(dup, 3)
	assert.True(t, errors.As(err, &vErr))
}

func TestSplitIsStratified(t *testing.T) {
	_, train, test := splitTables(t, 5)
	assert.Equal(t, 80, train.NumRows())
	assert.Equal(t, 20, test.NumRows())

	y, err := labelValues(test)
	require.NoError(t, err)
	var pos float64
	for _, v := range y {
		pos += v
	}
	assert.InDelta(t, 0.3, pos/float64(len(y)), 1e-9)
}

func TestAccountAge(t *testing.T) {
	tb := dataset.MustNew(
		dataset.NewNumeric(ColCourierID, []float64{1, 2}),
		dataset.NewTimes(ColFirstOrder, []time.Time{
			time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC),
		}, nil),
	)
	out, err := AccountAge(tb, refDate)
	require.NoError(t, err)
	assert.False(t, out.Has(ColFirstOrder))
	assert.Equal(t, []string{ColCourierID, ColAccountAge}, out.Columns())
	c, _ := out.Column(ColAccountAge)
	assert.Equal(t, []float64{10, 0}, c.Nums)
}

func TestPrepareFeaturesAlignsColumns(t *testing.T) {
	_, train, test := splitTables(t, 5)
	// test sees a single movement type, so its dummies must be reindexed
	walk := make([]string, test.NumRows())
	for i := range walk {
		walk[i] = "walking"
	}
	test, err := test.WithColumn(dataset.NewStrings(ColMovement, walk, nil))
	require.NoError(t, err)

	f, err := PrepareFeatures(train, test, refDate)
	require.NoError(t, err)
	_, trainCols := f.XTrain.Dims()
	testRows, testCols := f.XTest.Dims()
	assert.Equal(t, len(f.Names), trainCols)
	assert.Equal(t, trainCols, testCols)
	assert.Equal(t, 20, testRows)
	assert.Contains(t, f.Names, ColAccountAge)
	assert.Contains(t, f.Names, ColRegion)
	assert.NotContains(t, f.Names, ColCourierID)
	assert.NotContains(t, f.Names, ColChurn)
	assert.NotContains(t, f.Names, ColMovement)
	assert.Len(t, f.TestIDs, 20)
}

func TestPrepareFeaturesUnseenRegion(t *testing.T) {
	_, train, test := splitTables(t, 3)
	regions := make([]float64, test.NumRows())
	for i := range regions {
		regions[i] = 99
	}
	test, err := test.WithColumn(dataset.NewNumeric(ColRegion, regions))
	require.NoError(t, err)

	_, err = PrepareFeatures(train, test, refDate)
	var unseen *errors.UnseenCategoryError
	require.True(t, errors.As(err, &unseen))
	assert.Equal(t, ColRegion, unseen.Column)
}

func TestNewModel(t *testing.T) {
	m, err := NewModel(config.NewConfig().Final.Params, 42)
	require.NoError(t, err)
	xgb, ok := m.(*xgboost.XGBClassifier)
	require.True(t, ok)
	assert.Equal(t, 53, xgb.Config.NEstimators)
	assert.Equal(t, 15, xgb.Config.MaxDepth)
	assert.InDelta(t, 0.11486744748271062, xgb.Config.LearningRate, 1e-15)
	assert.True(t, IsTreeModel(m))

	m, err = NewModel(map[string]interface{}{"model": SVM, "C": 0.5}, 42)
	require.NoError(t, err)
	assert.False(t, IsTreeModel(m))

	var vErr *errors.ValidationError
	_, err = NewModel(map[string]interface{}{"model": "Naive Bayes"}, 42)
	assert.True(t, errors.As(err, &vErr))
	_, err = NewModel(map[string]interface{}{"C": 1.0}, 42)
	assert.True(t, errors.As(err, &vErr))
	_, err = NewModel(map[string]interface{}{"model": DecisionTree, "learning_rate": 0.1}, 42)
	assert.True(t, errors.As(err, &vErr))
}

func TestBenchExplainFinal(t *testing.T) {
	proj, train, test := splitTables(t, 5)
	f, err := PrepareFeatures(train, test, refDate)
	require.NoError(t, err)
	dir := t.TempDir()
	ctx := context.Background()

	var out bytes.Buffer
	bench, err := Bench(ctx, f, nil, 42, dir, &out)
	require.NoError(t, err)
	require.Len(t, bench.Scorecards, len(Families))
	for i, c := range bench.Scorecards {
		assert.GreaterOrEqual(t, c.AUC, 0.0, c.Model)
		assert.LessOrEqual(t, c.AUC, 1.0, c.Model)
		if i > 0 {
			assert.GreaterOrEqual(t, bench.Scorecards[i-1].AUC, c.AUC)
		}
		assert.FileExists(t, filepath.Join(dir, "confusion_"+slug(c.Model)+".png"))
	}
	assert.FileExists(t, filepath.Join(dir, "roc_curves.png"))
	assert.FileExists(t, filepath.Join(dir, "model_metrics.txt"))
	assert.Contains(t, out.String(), "CatBoost")

	e, err := Explain(ctx, ExplainOptions{Model: AutoModel, Component: 5, TopN: 10}, bench, f, proj, dir, &out)
	require.NoError(t, err)
	assert.Len(t, e.Importances, 5)
	assert.Len(t, e.Loadings, 10)
	for i := 1; i < len(e.Loadings); i++ {
		assert.GreaterOrEqual(t, math.Abs(e.Loadings[i-1].Weight), math.Abs(e.Loadings[i].Weight))
	}
	assert.FileExists(t, filepath.Join(dir, "shap_summary.png"))

	var vErr *errors.ValidationError
	_, err = Explain(ctx, ExplainOptions{Model: SVM, Component: 1, TopN: 5}, bench, f, proj, dir, nil)
	assert.True(t, errors.As(err, &vErr))
	_, err = Explain(ctx, ExplainOptions{Model: CatBoost, Component: 6, TopN: 5}, bench, f, proj, dir, nil)
	assert.True(t, errors.As(err, &vErr))

	res, err := Final(ctx, config.NewConfig().Final.Params, f, 42, "run-1", dir, &out)
	require.NoError(t, err)
	assert.Equal(t, XGBoost, res.Family)
	assert.Equal(t, 20, res.Report.MacroAvg.Support)
	for _, name := range []string{"final_roc.png", "final_confusion.png", "final_model.gob", "final_model.json"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	var loaded xgboost.XGBClassifier
	require.NoError(t, model.LoadModel(&loaded, filepath.Join(dir, "final_model.gob")))
	want, err := res.Model.PredictProba(f.XTest)
	require.NoError(t, err)
	got, err := loaded.PredictProba(f.XTest)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-12))
}

func TestTuneSearchesGivenFamilies(t *testing.T) {
	_, train, test := splitTables(t, 4)
	f, err := PrepareFeatures(train, test, refDate)
	require.NoError(t, err)

	families := []string{DecisionTree, LogisticRegression}
	res, err := Tune(context.Background(), f, TuneOptions{
		Trials:         6,
		ValidationSize: 0.2,
		Sampler:        "random",
		Seed:           42,
		Families:       families,
	})
	require.NoError(t, err)
	assert.Len(t, res.Study.Trials, 6)
	assert.Contains(t, families, res.BestParams[ModelKey])
	assert.GreaterOrEqual(t, res.BestValue, 0.0)
	assert.LessOrEqual(t, res.BestValue, 1.0)

	path := filepath.Join(t.TempDir(), "best_params.json")
	require.NoError(t, WriteParams(path, res.BestParams))
	loaded, err := ReadParams(path)
	require.NoError(t, err)
	_, err = NewModel(loaded, 42)
	assert.NoError(t, err)

	_, err = Tune(context.Background(), f, TuneOptions{Trials: 1, ValidationSize: 0.2, Sampler: "grid"})
	var vErr *errors.ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestPipelineRun(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.ArtifactsDir = filepath.Join(cfg.Paths.DataDir, "artifacts")
	cfg.PLS.MaxComponents = 4
	cfg.Bench.Models = []string{LogisticRegression, DecisionTree, RandomForest}
	cfg.Explain.Model = AutoModel
	cfg.Explain.Component = 2
	cfg.Explain.TopN = 5
	cfg.Tune.Trials = 3
	cfg.Tune.Sampler = "random"

	require.NoError(t, os.MkdirAll(cfg.Paths.DataDir, 0o755))
	require.NoError(t, dataset.WriteWorkbook(cfg.DataPath(cfg.Paths.RawWorkbook), Synthetic(100, 0.3, 7)))

	p, err := NewPipeline(cfg, nil, "test-run")
	require.NoError(t, err)
	require.NoError(t, p.Run(context.Background()))

	for _, name := range []string{cfg.Paths.FixedWorkbook, cfg.Paths.Cleaned, cfg.Paths.Projected, cfg.Paths.Train, cfg.Paths.Test, cfg.Paths.BestParams} {
		assert.FileExists(t, cfg.DataPath(name))
	}
	assert.FileExists(t, cfg.ArtifactPath("eda/churn_distribution.png"))
	assert.FileExists(t, cfg.ArtifactPath("bench/roc_curves.png"))
	assert.FileExists(t, cfg.ArtifactPath("explain/shap_summary.png"))
	assert.FileExists(t, cfg.ArtifactPath("final/final_model.json"))

	params, err := p.FinalParams()
	require.NoError(t, err)
	assert.Contains(t, cfg.Bench.Models, params[ModelKey])
}

func TestFinalParamsFallback(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Paths.DataDir = t.TempDir()
	p := &Pipeline{Config: cfg}
	params, err := p.FinalParams()
	require.NoError(t, err)
	assert.Equal(t, XGBoost, params[ModelKey])
}
