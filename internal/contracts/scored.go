package contracts

// FeatureVector holds the four scoring features of one record
type FeatureVector struct {
	Amount float64 `json:"amount"`
	Term   float64 `json:"term"`
	Return float64 `json:"return"` // monthly return = amount / term
	Rate   float64 `json:"rate"`
}

// ScoredRecord is a LoanRecord enriched by the score engine
// ⭐ SSOT: score engine → aggregator
type ScoredRecord struct {
	Record LoanRecord `json:"record"`

	AmountValue   float64       `json:"amount_value"`
	TermMonths    int           `json:"term_months"`    // parsed term, may be 0
	MonthlyReturn float64       `json:"monthly_return"` // 0 when term <= 0
	EffectiveRate float64       `json:"effective_rate"`
	Normalized    FeatureVector `json:"normalized"`
	ICE           float64       `json:"ice"`
	Score         int           `json:"score"` // 1..5
}

// Score tiers
const (
	MinScore = 1
	MaxScore = 5
)

// ScoreLabels indexed by score-1
var ScoreLabels = [MaxScore]string{"Muy Bajo", "Bajo", "Regular", "Bueno", "Excelente"}

// ScoreLabel returns the Spanish label of a tier, or "" when out of range
func ScoreLabel(score int) string {
	if score < MinScore || score > MaxScore {
		return ""
	}
	return ScoreLabels[score-1]
}
