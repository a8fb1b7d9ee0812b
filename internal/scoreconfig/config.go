package scoreconfig

import "github.com/tupakrantina/backoffice/internal/scoring"

// Config is a scoring profile: ICE weights and tier boundaries.
// ⭐ SSOT: a profile file replaces scoring.DefaultWeightConfig and
// scoring.DefaultTierCutoffs as a whole, never field by field.
type Config struct {
	Meta        Meta       `yaml:"meta" json:"meta"`
	WeightsPct  WeightsPct `yaml:"weights_pct" json:"weights_pct"`
	TierCutoffs []float64  `yaml:"tier_cutoffs" json:"tier_cutoffs"`
}

// Meta identifies a profile in logs and reports
type Meta struct {
	ProfileID   string `yaml:"profile_id" json:"profile_id"`
	Version     string `yaml:"version" json:"version"`
	Description string `yaml:"description" json:"description"`
}

// WeightsPct holds feature weights as integer percentages (sum = 100)
type WeightsPct struct {
	Amount int `yaml:"amount" json:"amount"`
	Term   int `yaml:"term" json:"term"`
	Return int `yaml:"return" json:"return"`
	Rate   int `yaml:"rate" json:"rate"`
}

// Default returns the production profile
func Default() *Config {
	return &Config{
		Meta: Meta{
			ProfileID:   "tupak_default",
			Version:     "1",
			Description: "Pesos de produccion",
		},
		WeightsPct: WeightsPct{
			Amount: 25,
			Term:   20,
			Return: 40,
			Rate:   15,
		},
		TierCutoffs: []float64{0.8, 0.6, 0.4, 0.2},
	}
}

// Weights converts percentages to the engine's fractional weights
func (c *Config) Weights() scoring.WeightConfig {
	return scoring.WeightConfig{
		Amount: float64(c.WeightsPct.Amount) / 100,
		Term:   float64(c.WeightsPct.Term) / 100,
		Return: float64(c.WeightsPct.Return) / 100,
		Rate:   float64(c.WeightsPct.Rate) / 100,
	}
}

// Cutoffs returns the tier boundaries. Call only on a validated config.
func (c *Config) Cutoffs() scoring.TierCutoffs {
	var out scoring.TierCutoffs
	copy(out[:], c.TierCutoffs)
	return out
}

// EngineOptions returns the options that apply this profile to scoring.NewEngine
func (c *Config) EngineOptions() []scoring.EngineOption {
	return []scoring.EngineOption{scoring.WithCutoffs(c.Cutoffs())}
}
