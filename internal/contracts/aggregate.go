package contracts

import "time"

// AdvisorStats compares one advisor's current period with all time
type AdvisorStats struct {
	Advisor         string  `json:"advisor"`
	PeriodCount     int     `json:"period_count"`
	PeriodAmount    float64 `json:"period_amount"`
	TotalCount      int     `json:"total_count"`
	TotalAmount     float64 `json:"total_amount"`
	DelinquentCount int     `json:"delinquent_count"`
	DelinquencyRate float64 `json:"delinquency_rate"` // percent of TotalCount
}

// AdvisorGroup is the current-period records of one advisor
type AdvisorGroup struct {
	Advisor string         `json:"advisor"`
	Records []ScoredRecord `json:"records"`
}

// DailyPlacement counts current-period records per calendar day.
// Index i is day i+1; every slice has length Days.
type DailyPlacement struct {
	Days      int              `json:"days"`
	Advisors  []string         `json:"advisors"` // first-seen order
	ByAdvisor map[string][]int `json:"by_advisor"`
	Total     []int            `json:"total"`
}

// PeriodTotals are the batch level KPIs
type PeriodTotals struct {
	PeriodCount      int     `json:"period_count"`
	PeriodAmount     float64 `json:"period_amount"`
	PeriodAvgAmount  float64 `json:"period_avg_amount"`
	PeriodAvgScore   float64 `json:"period_avg_score"`
	PeriodAvgTerm    float64 `json:"period_avg_term"`
	RecordsPerDay    float64 `json:"records_per_day"` // period count / elapsed days
	AllTimeCount     int     `json:"all_time_count"`
	AllTimeAmount    float64 `json:"all_time_amount"`
	AllTimeAvgAmount float64 `json:"all_time_avg_amount"`
	AllTimeAvgTerm   float64 `json:"all_time_avg_term"`
}

// TierCount is one bar of the score distribution
type TierCount struct {
	Score   int     `json:"score"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// AggregateResult is everything the report composer needs
// ⭐ SSOT: aggregator → composer
type AggregateResult struct {
	ReferenceDate time.Time      `json:"reference_date"`
	Period        []ScoredRecord `json:"period"`
	Groups        []AdvisorGroup `json:"groups"`
	Stats         []AdvisorStats `json:"stats"` // sorted by PeriodAmount desc
	Daily         DailyPlacement `json:"daily"`
	Totals        PeriodTotals   `json:"totals"`
	Distribution  []TierCount    `json:"distribution"` // score 5 → 1
}
