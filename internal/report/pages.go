package report

import "time"

// PageKind tags the page variants
type PageKind string

const (
	KindCover        PageKind = "cover"
	KindSummary      PageKind = "summary"
	KindComparison   PageKind = "comparison"
	KindAdvisor      PageKind = "advisor"
	KindDistribution PageKind = "distribution"
)

// Page is one self-contained page of the report. The set of variants
// is closed; renderers switch on the concrete type.
type Page interface {
	Kind() PageKind
	page()
}

// Document is the ordered page list of one report run
// ⭐ SSOT: composer → renderer
type Document struct {
	Title       string    `json:"title"`
	System      string    `json:"system"`
	FileName    string    `json:"file_name"`
	Period      time.Time `json:"period"`
	GeneratedAt time.Time `json:"generated_at"`
	Pages       []Page    `json:"-"`
}

// KPI is a labelled metric card
type KPI struct {
	Label  string      `json:"label"`
	Value  string      `json:"value"`
	Detail string      `json:"detail,omitempty"`
	Stars  *StarRating `json:"stars,omitempty"`
	Color  string      `json:"color"`
}

// CoverPage is the first page
type CoverPage struct {
	Title       string
	PeriodLabel string // "MARZO 2024"
	RecordCount int
	GeneratedOn string // es-ES date
	LogoURL     string
}

// SummaryPage holds current-period and all-time KPIs
type SummaryPage struct {
	Title         string
	PeriodHeading string // "MARZO"
	Period        []KPI
	AllTimeTitle  string
	AllTime       []KPI
}

// ComparisonRow is one advisor line of the comparison table
type ComparisonRow struct {
	Advisor          string
	PeriodCount      int
	PeriodAmount     float64
	TotalCount       int
	TotalAmount      float64
	DelinquencyRate  float64
	PeriodAmountText string
	TotalAmountText  string
	DelinquencyText  string // "12.5%"
	DelinquencyColor string
}

// ScatterSeries is one advisor's placements per day (only days with records)
type ScatterSeries struct {
	Label  string
	Color  string
	Points []ChartPoint
}

// ChartPoint is (day of month, count)
type ChartPoint struct {
	X int
	Y int
}

// ScatterChart is the daily placement chart with a total trend line
type ScatterChart struct {
	Title   string
	XLabel  string
	YLabel  string
	Days    int
	Series  []ScatterSeries
	Trend   ScatterSeries // "Total Diario", drawn as a smoothed line
	Tension float64
	MaxY    int
}

// ComparisonPage is the advisor comparison table and the daily chart
type ComparisonPage struct {
	Title        string
	PeriodHeader string // "MARZO"
	HistoryTitle string
	Rows         []ComparisonRow
	Footer       ComparisonRow
	ChartTitle   string
	Chart        ScatterChart
}

// AdvisorRow is one credit in an advisor page
type AdvisorRow struct {
	Acta       string
	Partner    string
	Amount     string
	Rate       string
	Term       string
	Score      int
	ScoreColor string
	CreatedAt  time.Time
}

// AdvisorPage lists one advisor's current-period credits
type AdvisorPage struct {
	Advisor  string
	Header   string // "ASESOR: ANA"
	Subtitle string // "3 créditos • $6,000.00"
	Columns  []string
	Rows     []AdvisorRow
	Cards    []KPI
}

// DistributionRow is one tier line
type DistributionRow struct {
	Score   int
	Label   string // "●●●●● Excelente (5)"
	Count   int
	Percent float64
	Text    string // "40.0%"
	Color   string
}

// DistributionPage is the score histogram
type DistributionPage struct {
	Title   string
	Columns []string
	Rows    []DistributionRow
}

func (CoverPage) Kind() PageKind        { return KindCover }
func (SummaryPage) Kind() PageKind      { return KindSummary }
func (ComparisonPage) Kind() PageKind   { return KindComparison }
func (AdvisorPage) Kind() PageKind      { return KindAdvisor }
func (DistributionPage) Kind() PageKind { return KindDistribution }

func (CoverPage) page()        {}
func (SummaryPage) page()      {}
func (ComparisonPage) page()   {}
func (AdvisorPage) page()      {}
func (DistributionPage) page() {}
