package aggregation

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/tupakrantina/backoffice/internal/contracts"
)

// Aggregator groups scored records by period, advisor and day of month
type Aggregator struct {
	log zerolog.Logger
}

// NewAggregator creates an aggregator
func NewAggregator(log zerolog.Logger) *Aggregator {
	return &Aggregator{
		log: log.With().Str("component", "aggregation").Logger(),
	}
}

// InPeriod reports whether t falls in the calendar month and year of ref,
// compared in ref's location. The zero time is never in a period.
func InPeriod(t, ref time.Time) bool {
	if t.IsZero() {
		return false
	}
	t = t.In(ref.Location())
	return t.Year() == ref.Year() && t.Month() == ref.Month()
}

// FilterPeriod keeps the scored records created in ref's month
func FilterPeriod(scored []contracts.ScoredRecord, ref time.Time) []contracts.ScoredRecord {
	out := make([]contracts.ScoredRecord, 0, len(scored))
	for _, s := range scored {
		if InPeriod(s.Record.CreatedAt, ref) {
			out = append(out, s)
		}
	}
	return out
}

// DaysInMonth returns the number of days of ref's month
func DaysInMonth(ref time.Time) int {
	return time.Date(ref.Year(), ref.Month()+1, 0, 0, 0, 0, 0, ref.Location()).Day()
}

// Aggregate builds the report data. scored is the scored batch, all is
// every record ever placed (historical totals and delinquency).
func (a *Aggregator) Aggregate(scored []contracts.ScoredRecord, all []contracts.LoanRecord, ref time.Time) *contracts.AggregateResult {
	period := FilterPeriod(scored, ref)
	groups := groupByAdvisor(period)

	result := &contracts.AggregateResult{
		ReferenceDate: ref,
		Period:        period,
		Groups:        groups,
		Stats:         advisorStats(groups, all),
		Daily:         dailyPlacement(groups, ref),
		Totals:        periodTotals(period, all, ref),
		Distribution:  Distribution(period),
	}

	a.log.Info().
		Int("records", len(scored)).
		Int("period_records", len(period)).
		Int("advisors", len(groups)).
		Str("period", ref.Format("2006-01")).
		Msg("aggregation completed")

	return result
}

// groupByAdvisor keeps advisors in first-seen order
func groupByAdvisor(period []contracts.ScoredRecord) []contracts.AdvisorGroup {
	index := make(map[string]int)
	var groups []contracts.AdvisorGroup

	for _, s := range period {
		key := s.Record.AdvisorKey()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, contracts.AdvisorGroup{Advisor: key})
		}
		groups[i].Records = append(groups[i].Records, s)
	}
	return groups
}

// advisorStats compares each current-period advisor with its all-time
// history, sorted by period amount descending (ties keep first-seen order)
func advisorStats(groups []contracts.AdvisorGroup, all []contracts.LoanRecord) []contracts.AdvisorStats {
	stats := make([]contracts.AdvisorStats, len(groups))
	index := make(map[string]int, len(groups))

	for i, g := range groups {
		st := contracts.AdvisorStats{Advisor: g.Advisor, PeriodCount: len(g.Records)}
		for _, s := range g.Records {
			st.PeriodAmount += s.AmountValue
		}
		stats[i] = st
		index[g.Advisor] = i
	}

	for _, rec := range all {
		i, ok := index[rec.AdvisorKey()]
		if !ok {
			continue
		}
		stats[i].TotalCount++
		stats[i].TotalAmount += rec.AmountValue()
		if rec.IsDelinquent() {
			stats[i].DelinquentCount++
		}
	}

	for i := range stats {
		if stats[i].TotalCount > 0 {
			stats[i].DelinquencyRate = float64(stats[i].DelinquentCount) / float64(stats[i].TotalCount) * 100
		}
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].PeriodAmount > stats[j].PeriodAmount
	})
	return stats
}

// dailyPlacement counts records per day of ref's month. Days outside
// the month are dropped.
func dailyPlacement(groups []contracts.AdvisorGroup, ref time.Time) contracts.DailyPlacement {
	days := DaysInMonth(ref)
	daily := contracts.DailyPlacement{
		Days:      days,
		Advisors:  make([]string, 0, len(groups)),
		ByAdvisor: make(map[string][]int, len(groups)),
		Total:     make([]int, days),
	}

	for _, g := range groups {
		counts := make([]int, days)
		for _, s := range g.Records {
			day := s.Record.CreatedAt.In(ref.Location()).Day() - 1
			if day < 0 || day >= days {
				continue
			}
			counts[day]++
			daily.Total[day]++
		}
		daily.Advisors = append(daily.Advisors, g.Advisor)
		daily.ByAdvisor[g.Advisor] = counts
	}
	return daily
}

func periodTotals(period []contracts.ScoredRecord, all []contracts.LoanRecord, ref time.Time) contracts.PeriodTotals {
	var t contracts.PeriodTotals

	var scoreSum, termSum float64
	for _, s := range period {
		t.PeriodAmount += s.AmountValue
		scoreSum += float64(s.Score)
		termSum += float64(s.TermMonths)
	}
	t.PeriodCount = len(period)
	t.PeriodAvgAmount = mean(t.PeriodAmount, t.PeriodCount)
	t.PeriodAvgScore = mean(scoreSum, t.PeriodCount)
	t.PeriodAvgTerm = mean(termSum, t.PeriodCount)
	t.RecordsPerDay = mean(float64(t.PeriodCount), ref.Day())

	var allTermSum float64
	for _, rec := range all {
		t.AllTimeAmount += rec.AmountValue()
		allTermSum += float64(rec.TermValue())
	}
	t.AllTimeCount = len(all)
	t.AllTimeAvgAmount = mean(t.AllTimeAmount, t.AllTimeCount)
	t.AllTimeAvgTerm = mean(allTermSum, t.AllTimeCount)

	return t
}

// Distribution counts records per tier, from 5 down to 1
func Distribution(records []contracts.ScoredRecord) []contracts.TierCount {
	var counts [contracts.MaxScore + 1]int
	for _, s := range records {
		if s.Score >= contracts.MinScore && s.Score <= contracts.MaxScore {
			counts[s.Score]++
		}
	}

	out := make([]contracts.TierCount, 0, contracts.MaxScore)
	for score := contracts.MaxScore; score >= contracts.MinScore; score-- {
		out = append(out, contracts.TierCount{
			Score:   score,
			Count:   counts[score],
			Percent: mean(float64(counts[score])*100, len(records)),
		})
	}
	return out
}

// mean returns 0 for an empty denominator
func mean(sum float64, n int) float64 {
	if n <= 0 {
		return 0
	}
	return sum / float64(n)
}
