package scoreconfig

import (
	"fmt"

	"github.com/tupakrantina/backoffice/internal/scoring"
)

// ValidationError rejects a profile
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning flags a legal but suspicious profile
type Warning struct {
	Code    string
	Message string
}

// Validate checks every hard constraint of a profile
func Validate(cfg *Config) error {
	if cfg.Meta.ProfileID == "" {
		return ValidationError{"meta.profile_id", "required"}
	}

	w := cfg.WeightsPct
	for _, f := range []struct {
		name string
		v    int
	}{
		{"weights_pct.amount", w.Amount},
		{"weights_pct.term", w.Term},
		{"weights_pct.return", w.Return},
		{"weights_pct.rate", w.Rate},
	} {
		if f.v < 0 || f.v > 100 {
			return ValidationError{f.name, "must be in [0, 100]"}
		}
	}
	if sum := w.Amount + w.Term + w.Return + w.Rate; sum != 100 {
		return ValidationError{"weights_pct", fmt.Sprintf("must sum to 100, got %d", sum)}
	}

	if len(cfg.TierCutoffs) != len(scoring.TierCutoffs{}) {
		return ValidationError{"tier_cutoffs", fmt.Sprintf("need exactly %d values", len(scoring.TierCutoffs{}))}
	}
	if !cfg.Cutoffs().Valid() {
		return ValidationError{"tier_cutoffs", "values must be in (0, 1) and strictly descending"}
	}

	return nil
}

// Warn returns recommendations a valid profile does not follow
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	w := cfg.WeightsPct
	for _, f := range []struct {
		name string
		v    int
	}{
		{"amount", w.Amount},
		{"term", w.Term},
		{"return", w.Return},
		{"rate", w.Rate},
	} {
		if f.v == 0 {
			warnings = append(warnings, Warning{
				Code:    "ZERO_WEIGHT",
				Message: fmt.Sprintf("%s has weight 0 and does not affect the ICE", f.name),
			})
		}
		if f.v > 60 {
			warnings = append(warnings, Warning{
				Code:    "DOMINANT_WEIGHT",
				Message: fmt.Sprintf("%s carries %d%% of the ICE", f.name, f.v),
			})
		}
	}

	if cfg.Meta.Version == "" {
		warnings = append(warnings, Warning{
			Code:    "NO_VERSION",
			Message: "meta.version is empty, reports cannot be traced to a profile revision",
		})
	}

	return warnings
}
