package scoreconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tupakrantina/backoffice/internal/scoring"
)

const sampleProfile = `
meta:
  profile_id: conservador
  version: "2"
  description: Prioriza plazos cortos
weights_pct:
  amount: 20
  term: 40
  return: 30
  rate: 10
tier_cutoffs: [0.85, 0.65, 0.45, 0.25]
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte(sampleProfile), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Meta.ProfileID != "conservador" {
		t.Errorf("expected profile_id=conservador, got %s", cfg.Meta.ProfileID)
	}

	want := scoring.WeightConfig{Amount: 0.2, Term: 0.4, Return: 0.3, Rate: 0.1}
	if got := cfg.Weights(); got != want {
		t.Errorf("weights: expected %+v, got %+v", want, got)
	}
	w := cfg.Weights()
	if !w.ValidateWeights() {
		t.Error("converted weights should validate")
	}

	if got := cfg.Cutoffs(); got != (scoring.TierCutoffs{0.85, 0.65, 0.45, 0.25}) {
		t.Errorf("unexpected cutoffs %v", got)
	}
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte(sampleProfile + "extra: 1\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing id", func(c *Config) { c.Meta.ProfileID = "" }, "meta.profile_id"},
		{"sum not 100", func(c *Config) { c.WeightsPct.Rate = 20 }, "weights_pct"},
		{"negative weight", func(c *Config) { c.WeightsPct.Amount = -5; c.WeightsPct.Return = 70 }, "weights_pct.amount"},
		{"three cutoffs", func(c *Config) { c.TierCutoffs = []float64{0.8, 0.6, 0.4} }, "tier_cutoffs"},
		{"ascending cutoffs", func(c *Config) { c.TierCutoffs = []float64{0.2, 0.4, 0.6, 0.8} }, "tier_cutoffs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, verr.Field)
			}
		})
	}
}

func TestDefault_MatchesEngineDefaults(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default profile invalid: %v", err)
	}

	def := scoring.DefaultWeightConfig()
	got := cfg.Weights()
	const eps = 1e-9
	for _, pair := range [][2]float64{
		{got.Amount, def.Amount}, {got.Term, def.Term}, {got.Return, def.Return}, {got.Rate, def.Rate},
	} {
		if d := pair[0] - pair[1]; d > eps || d < -eps {
			t.Errorf("weight mismatch: %v vs %v", pair[0], pair[1])
		}
	}

	if cfg.Cutoffs() != scoring.DefaultTierCutoffs() {
		t.Errorf("cutoff mismatch: %v", cfg.Cutoffs())
	}
}

func TestWarn(t *testing.T) {
	cfg := Default()
	if w := Warn(cfg); len(w) != 0 {
		t.Errorf("expected no warnings, got %v", w)
	}

	cfg.WeightsPct = WeightsPct{Amount: 0, Term: 10, Return: 75, Rate: 15}
	cfg.Meta.Version = ""

	codes := map[string]bool{}
	for _, w := range Warn(cfg) {
		codes[w.Code] = true
	}
	for _, code := range []string{"ZERO_WEIGHT", "DOMINANT_WEIGHT", "NO_VERSION"} {
		if !codes[code] {
			t.Errorf("expected warning %s", code)
		}
	}
}

func TestHash(t *testing.T) {
	a, err := Hash(Default())
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 char hash, got %d", len(a))
	}

	b, _ := Hash(Default())
	if a != b {
		t.Error("hash not deterministic")
	}

	changed := Default()
	changed.WeightsPct.Amount, changed.WeightsPct.Rate = 20, 20
	c, _ := Hash(changed)
	if a == c {
		t.Error("different profiles share a hash")
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault("")
	if err != nil || cfg.Meta.ProfileID != "tupak_default" {
		t.Fatalf("expected default profile, got %v, %v", cfg, err)
	}

	if _, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
