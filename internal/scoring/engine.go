package scoring

import (
	"math"

	"github.com/tupakrantina/backoffice/internal/contracts"
	"github.com/tupakrantina/backoffice/pkg/logger"
)

// Engine computes the Tupak score of a batch of loan records
// ⭐ SSOT: ICE normalization and tier mapping live only here
type Engine struct {
	weights WeightConfig
	cutoffs TierCutoffs
	logger  *logger.Logger
}

// EngineOption customizes an Engine
type EngineOption func(*Engine)

// WithCutoffs replaces the default tier boundaries
func WithCutoffs(c TierCutoffs) EngineOption {
	return func(e *Engine) {
		e.cutoffs = c
	}
}

// WeightConfig defines feature weights of the composite index (ICE)
type WeightConfig struct {
	Amount float64 // monto (default 0.25)
	Term   float64 // plazo, inverted (default 0.20)
	Return float64 // retorno mensual (default 0.40)
	Rate   float64 // tasa (default 0.15)
}

// DefaultWeightConfig returns the production weights
func DefaultWeightConfig() WeightConfig {
	return WeightConfig{
		Amount: 0.25,
		Term:   0.20,
		Return: 0.40,
		Rate:   0.15,
	}
}

// ValidateWeights checks that weights are non-negative and sum to 1.0
func (w *WeightConfig) ValidateWeights() bool {
	if w.Amount < 0 || w.Term < 0 || w.Return < 0 || w.Rate < 0 {
		return false
	}
	sum := w.Amount + w.Term + w.Return + w.Rate
	return sum >= 0.99 && sum <= 1.01
}

// NewEngine creates a score engine
func NewEngine(weights WeightConfig, log *logger.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		weights: weights,
		cutoffs: DefaultTierCutoffs(),
		logger:  log.WithComponent("scoring"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// bounds is the normalization range of one feature
type bounds struct {
	min, max float64
}

// normalize maps v into the batch range. A range with max <= min
// (all equal, or no positive value for a positive-only min) yields 0.5.
func (b bounds) normalize(v float64) float64 {
	if !(b.max > b.min) {
		return 0.5
	}
	return (v - b.min) / (b.max - b.min)
}

// Score enriches every record with features, ICE and tier.
// Output order matches input order. Empty input returns an empty slice.
//
// The minimum of term, return and rate is taken over positive values only
// while the maximum uses every value, so a record at 0 can normalize
// below 0. Published scores depend on this; do not "fix" it here.
func (e *Engine) Score(records []contracts.LoanRecord) []contracts.ScoredRecord {
	scored := make([]contracts.ScoredRecord, len(records))
	if len(records) == 0 {
		return scored
	}

	features := make([]contracts.FeatureVector, len(records))
	for i, rec := range records {
		features[i] = Extract(rec)
	}

	amountB := batchBounds(features, func(f contracts.FeatureVector) float64 { return f.Amount }, false)
	termB := batchBounds(features, func(f contracts.FeatureVector) float64 { return f.Term }, true)
	returnB := batchBounds(features, func(f contracts.FeatureVector) float64 { return f.Return }, true)
	rateB := batchBounds(features, func(f contracts.FeatureVector) float64 { return f.Rate }, true)

	for i, rec := range records {
		f := features[i]
		norm := contracts.FeatureVector{
			Amount: amountB.normalize(f.Amount),
			Term:   termB.normalize(f.Term),
			Return: returnB.normalize(f.Return),
			Rate:   rateB.normalize(f.Rate),
		}

		ice := e.ICE(norm)

		scored[i] = contracts.ScoredRecord{
			Record:        rec,
			AmountValue:   f.Amount,
			TermMonths:    int(f.Term),
			MonthlyReturn: f.Return,
			EffectiveRate: f.Rate,
			Normalized:    norm,
			ICE:           ice,
			Score:         e.cutoffs.Tier(ice),
		}
	}

	e.logger.WithFields(map[string]interface{}{
		"records":    len(scored),
		"amount_min": amountB.min,
		"amount_max": amountB.max,
	}).Debug("Batch scored")

	return scored
}

// ICE is the weighted composite of normalized features. Term is inverted:
// a shorter term scores higher.
func (e *Engine) ICE(norm contracts.FeatureVector) float64 {
	return e.weights.Amount*norm.Amount +
		e.weights.Term*(1-norm.Term) +
		e.weights.Return*norm.Return +
		e.weights.Rate*norm.Rate
}

// Extract parses the raw features of one record.
// Monthly return is 0 when the term is not positive.
func Extract(rec contracts.LoanRecord) contracts.FeatureVector {
	amount := rec.AmountValue()
	term := rec.TermValue()

	var monthly float64
	if term > 0 {
		monthly = amount / float64(term)
	}

	return contracts.FeatureVector{
		Amount: amount,
		Term:   float64(term),
		Return: monthly,
		Rate:   rec.RateValue(),
	}
}

func batchBounds(features []contracts.FeatureVector, get func(contracts.FeatureVector) float64, positiveMin bool) bounds {
	b := bounds{min: math.Inf(1), max: math.Inf(-1)}
	for _, f := range features {
		v := get(f)
		if v > b.max {
			b.max = v
		}
		if positiveMin && v <= 0 {
			continue
		}
		if v < b.min {
			b.min = v
		}
	}
	return b
}

// TierCutoffs holds the inclusive lower ICE bound of tiers 5, 4, 3 and 2,
// strictly descending. Anything below the last bound is tier 1.
type TierCutoffs [4]float64

// DefaultTierCutoffs returns the production boundaries (0.2 apart)
func DefaultTierCutoffs() TierCutoffs {
	return TierCutoffs{0.8, 0.6, 0.4, 0.2}
}

// Valid reports whether every bound is in (0,1) and strictly descending
func (c TierCutoffs) Valid() bool {
	for i, v := range c {
		if v <= 0 || v >= 1 {
			return false
		}
		if i > 0 && v >= c[i-1] {
			return false
		}
	}
	return true
}

// Tier buckets an ICE into 1..5
func (c TierCutoffs) Tier(ice float64) int {
	for i, bound := range c {
		if ice >= bound {
			return 5 - i
		}
	}
	return 1
}

// TierFor buckets an ICE with the default cutoffs
func TierFor(ice float64) int {
	return DefaultTierCutoffs().Tier(ice)
}
