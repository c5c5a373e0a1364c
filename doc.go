// Package churnlab predicts courier churn: it repairs and cleans the courier
// extract, projects the numeric activity features with PLS, compares seven
// classifier families, explains the tree models with TreeSHAP and searches
// the best family and hyperparameters with a TPE sampler.
//
// The models follow scikit-learn's API shape (Fit, Predict, PredictProba,
// GetParams, SetParams) on gonum matrices, so data scientists used to the
// Python stack can read the pipeline stage by stage.
//
// # Quick Start
//
// Write a synthetic extract and run every stage:
//
//	churnlab synth --rows 1000
//	churnlab run
//
// Or drive the stages from Go:
//
//	cfg := config.NewConfig()
//	p, err := churn.NewPipeline(cfg, os.Stdout, uuid.NewString())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := p.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Packages
//
//   - churn: the pipeline stages and the Pipeline that chains them
//   - dataset: typed columnar tables with CSV and xlsx I/O
//   - preprocessing: StandardScaler, LabelEncoder, one-hot dummies
//   - sklearn/...: LogisticRegression, DecisionTree, RandomForest, XGBoost,
//     LightGBM and CatBoost style boosting, SVC, PLSRegression,
//     StratifiedSplit
//   - metrics: classification metrics, ROC and AUC, classification report
//   - explain: TreeSHAP and PLS loadings
//   - tune: studies, trials, TPE and random samplers
//   - viz, report: figures (gonum/plot) and console tables
//   - core/model, core/parallel: shared interfaces, persistence, parallel loops
//   - pkg/config, pkg/errors, pkg/log: configuration, errors, logging
//
// # Configuration
//
// Defaults reproduce the original analysis (seed 42, reference date
// 2025-03-11, at most 15 PLS components, 50 search trials). They can be
// overridden with a YAML file (--config), a .env file or CHURNLAB_*
// environment variables.
package churnlab
