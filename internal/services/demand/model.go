package demand

import (
	"fmt"

	"PricePulse/internal/domain/models"
	"PricePulse/internal/services/features"
)

// Defaults mirror the production estimator configuration.
const (
	DefaultEstimators      = 200
	DefaultMaxDepth        = 10
	DefaultMinSamplesSplit = 5
	DefaultMinSamplesLeaf  = 2
	DefaultSeed            = 42
)

// Option configures a Model.
type Option func(*Model)

// WithEstimators sets the number of trees in the ensemble.
func WithEstimators(n int) Option {
	return func(m *Model) {
		if n > 0 {
			m.nEstimators = n
		}
	}
}

// WithSeed sets the bootstrap sampling seed.
func WithSeed(seed int64) Option {
	return func(m *Model) {
		m.seed = seed
	}
}

// Model predicts units sold for one product. It owns the fitted scaler and
// forest together: the scaler parameters are distribution-specific, so a
// Model must never be shared across products without retraining.
type Model struct {
	forest      *Forest
	scaler      *StandardScaler
	importances map[string]float64

	nEstimators int
	seed        int64
	trained     bool
}

// New creates an untrained demand model.
func New(opts ...Option) *Model {
	m := &Model{
		nEstimators: DefaultEstimators,
		seed:        DefaultSeed,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Train builds the training table, fits the scaler and the ensemble, and
// stores feature importances. Below the minimum history size it returns
// models.ErrInsufficientData without touching existing model state.
func (m *Model) Train(history []models.SaleRecord, product *models.Product, competitorPrice float64) error {
	X, y, err := features.TrainingTable(history, product, competitorPrice)
	if err != nil {
		return err
	}

	scaler := &StandardScaler{}
	scaler.Fit(X)

	forest := newForest(m.nEstimators, DefaultMaxDepth, DefaultMinSamplesSplit, DefaultMinSamplesLeaf, m.seed)
	forest.Fit(scaler.TransformAll(X), y)

	imp := make(map[string]float64, len(models.FeatureNames))
	for j, name := range models.FeatureNames {
		imp[name] = forest.Importances()[j]
	}

	m.scaler = scaler
	m.forest = forest
	m.importances = imp
	m.trained = true
	return nil
}

// PredictDemand standardizes the vector with the already-fitted parameters
// and returns the ensemble prediction.
func (m *Model) PredictDemand(vec models.FeatureVector) (float64, error) {
	if !m.trained {
		return 0, fmt.Errorf("%w: train before predicting", models.ErrModelNotTrained)
	}
	return m.forest.Predict(m.scaler.Transform(vec.Values())), nil
}

// Importances returns the per-feature importance mapping from the last
// successful train, nil before training.
func (m *Model) Importances() map[string]float64 {
	return m.importances
}
