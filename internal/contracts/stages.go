package contracts

import (
	"context"
	"time"
)

// ScoreEngine enriches records with the Tupak score
type ScoreEngine interface {
	Score(records []LoanRecord) []ScoredRecord
}

// PortfolioAggregator groups scored records by period, advisor and day
type PortfolioAggregator interface {
	Aggregate(scored []ScoredRecord, all []LoanRecord, ref time.Time) *AggregateResult
}

// RecordSource loads loan records from a datastore or file
type RecordSource interface {
	ListRecords(ctx context.Context) ([]LoanRecord, error)
}
