package report

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tupakrantina/backoffice/internal/contracts"
)

// Options configures the composer
type Options struct {
	System  string // shown in the file name, e.g. "TupakRantina"
	LogoURL string
	Now     func() time.Time
}

// Composer turns aggregated data into the ordered page list
type Composer struct {
	opts Options
	log  zerolog.Logger
}

// NewComposer creates a composer, defaulting System, LogoURL and Now
func NewComposer(opts Options, log zerolog.Logger) *Composer {
	if opts.System == "" {
		opts.System = "TupakRantina"
	}
	if opts.LogoURL == "" {
		opts.LogoURL = LogoURL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Composer{
		opts: opts,
		log:  log.With().Str("component", "report.composer").Logger(),
	}
}

var advisorColumns = []string{"Acta", "Socio", "Monto", "Int.", "Plazo", "Score"}
var distributionColumns = []string{"Calificación", "Cantidad", "Porcentaje", "Barra Visual"}

// Compose builds the document in its fixed order: cover, summary,
// comparison with chart, one page per advisor (first-seen order),
// score distribution.
func (c *Composer) Compose(agg *contracts.AggregateResult) *Document {
	ref := agg.ReferenceDate
	generated := c.opts.Now()
	month := MonthName(ref.Month())

	doc := &Document{
		Title:       "REPORTE DE CARTERA",
		System:      c.opts.System,
		FileName:    FileName(c.opts.System, generated),
		Period:      ref,
		GeneratedAt: generated,
	}

	doc.Pages = append(doc.Pages,
		c.cover(agg, month, generated),
		c.summary(agg, month),
		c.comparison(agg, month),
	)
	for _, g := range agg.Groups {
		doc.Pages = append(doc.Pages, c.advisor(g))
	}
	doc.Pages = append(doc.Pages, c.distribution(agg.Distribution))

	c.log.Debug().
		Int("pages", len(doc.Pages)).
		Str("file", doc.FileName).
		Msg("document composed")

	return doc
}

func (c *Composer) cover(agg *contracts.AggregateResult, month string, generated time.Time) CoverPage {
	return CoverPage{
		Title:       "REPORTE DE CARTERA",
		PeriodLabel: strings.ToUpper(month) + " " + strconv.Itoa(agg.ReferenceDate.Year()),
		RecordCount: len(agg.Period),
		GeneratedOn: FormatDateES(generated.In(agg.ReferenceDate.Location())),
		LogoURL:     c.opts.LogoURL,
	}
}

func (c *Composer) summary(agg *contracts.AggregateResult, month string) SummaryPage {
	t := agg.Totals
	stars := NewStarRating(t.PeriodAvgScore)

	return SummaryPage{
		Title:         "RESUMEN EJECUTIVO",
		PeriodHeading: strings.ToUpper(month),
		Period: []KPI{
			{Label: "Monto Colocado", Value: FormatUSD(t.PeriodAmount), Color: ColorPrimary},
			{Label: "Total Créditos", Value: strconv.Itoa(t.PeriodCount), Color: ColorSecondary},
			{Label: "Score Promedio", Value: Fixed(t.PeriodAvgScore, 2), Stars: &stars, Color: "#f59e0b"},
			{Label: "Monto Promedio", Value: FormatUSD(t.PeriodAvgAmount), Color: ColorAccent1},
			{Label: "Plazo Promedio", Value: Fixed(t.PeriodAvgTerm, 1) + " meses", Color: ColorAccent2},
			{Label: "Créditos por Día", Value: Fixed(t.RecordsPerDay, 1), Color: "#22c55e"},
		},
		AllTimeTitle: "HISTÓRICO GENERAL",
		AllTime: []KPI{
			{Label: "Monto Total", Value: FormatUSD(t.AllTimeAmount), Color: ColorPrimary},
			{Label: "Total Créditos", Value: strconv.Itoa(t.AllTimeCount), Color: ColorSecondary},
			{Label: "Monto Promedio", Value: FormatUSD(t.AllTimeAvgAmount), Color: ColorAccent1},
			{Label: "Plazo Promedio", Value: Fixed(t.AllTimeAvgTerm, 1) + " meses", Color: ColorAccent2},
		},
	}
}

func (c *Composer) comparison(agg *contracts.AggregateResult, month string) ComparisonPage {
	rows := make([]ComparisonRow, 0, len(agg.Stats))
	var footer ComparisonRow
	var weightedMora float64

	for _, st := range agg.Stats {
		rows = append(rows, comparisonRow(st.Advisor, st.PeriodCount, st.PeriodAmount, st.TotalCount, st.TotalAmount, st.DelinquencyRate))

		footer.PeriodCount += st.PeriodCount
		footer.PeriodAmount += st.PeriodAmount
		footer.TotalCount += st.TotalCount
		footer.TotalAmount += st.TotalAmount
		weightedMora += st.DelinquencyRate * float64(st.TotalCount)
	}

	var footerMora float64
	if footer.TotalCount > 0 {
		footerMora = weightedMora / float64(footer.TotalCount)
	}
	footer = comparisonRow("TOTALES", footer.PeriodCount, footer.PeriodAmount, footer.TotalCount, footer.TotalAmount, footerMora)

	return ComparisonPage{
		Title:        "COMPARATIVA POR ASESOR",
		PeriodHeader: strings.ToUpper(month),
		HistoryTitle: "HISTÓRICO GENERAL",
		Rows:         rows,
		Footer:       footer,
		ChartTitle:   "GRÁFICO DE COLOCACIÓN DIARIA",
		Chart:        scatterChart(agg.Daily, month),
	}
}

func comparisonRow(advisor string, pc int, pa float64, tc int, ta float64, mora float64) ComparisonRow {
	return ComparisonRow{
		Advisor:          advisor,
		PeriodCount:      pc,
		PeriodAmount:     pa,
		TotalCount:       tc,
		TotalAmount:      ta,
		DelinquencyRate:  mora,
		PeriodAmountText: FormatUSD(pa),
		TotalAmountText:  FormatUSD(ta),
		DelinquencyText:  Fixed(mora, 1) + "%",
		DelinquencyColor: DelinquencyColor(mora),
	}
}

func scatterChart(daily contracts.DailyPlacement, month string) ScatterChart {
	chart := ScatterChart{
		Title:   "Créditos Colocados por Día - " + month,
		XLabel:  "Día del Mes",
		YLabel:  "Cantidad de Créditos",
		Days:    daily.Days,
		Tension: 0.3,
	}

	for i, advisor := range daily.Advisors {
		series := ScatterSeries{Label: advisor, Color: SeriesColor(i)}
		for d, n := range daily.ByAdvisor[advisor] {
			if n > 0 {
				series.Points = append(series.Points, ChartPoint{X: d + 1, Y: n})
			}
		}
		chart.Series = append(chart.Series, series)
	}

	chart.Trend = ScatterSeries{Label: "Total Diario", Color: ColorPrimary}
	for d, n := range daily.Total {
		if n > 0 {
			chart.Trend.Points = append(chart.Trend.Points, ChartPoint{X: d + 1, Y: n})
		}
		if n > chart.MaxY {
			chart.MaxY = n
		}
	}
	return chart
}

func (c *Composer) advisor(g contracts.AdvisorGroup) AdvisorPage {
	records := make([]contracts.ScoredRecord, len(g.Records))
	copy(records, g.Records)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Record.CreatedAt.Before(records[j].Record.CreatedAt)
	})

	var amount, score, term, monthly float64
	rows := make([]AdvisorRow, 0, len(records))
	for _, s := range records {
		amount += s.AmountValue
		score += float64(s.Score)
		term += float64(s.TermMonths)
		monthly += s.MonthlyReturn

		rows = append(rows, AdvisorRow{
			Acta:       orNA(s.Record.Acta),
			Partner:    orNA(s.Record.PartnerName),
			Amount:     FormatUSD(s.AmountValue),
			Rate:       rateText(s.Record.Rate),
			Term:       orNA(s.Record.Term),
			Score:      s.Score,
			ScoreColor: ScoreColor(s.Score),
			CreatedAt:  s.Record.CreatedAt,
		})
	}

	n := len(records)
	avg := func(sum float64) float64 {
		if n == 0 {
			return 0
		}
		return sum / float64(n)
	}
	stars := NewStarRating(avg(score))

	return AdvisorPage{
		Advisor:  g.Advisor,
		Header:   "ASESOR: " + strings.ToUpper(g.Advisor),
		Subtitle: strconv.Itoa(n) + " " + Plural(n, "crédito", "créditos") + " • " + FormatUSD(amount),
		Columns:  advisorColumns,
		Rows:     rows,
		Cards: []KPI{
			{Label: "Total Créditos", Value: strconv.Itoa(n), Color: "#312e81"},
			{Label: "Monto Total", Value: FormatUSD(amount), Color: "#064e3b"},
			{Label: "Score Promedio", Value: Fixed(avg(score), 2) + " / 5.00", Stars: &stars, Color: "#78350f"},
			{Label: "Monto Promedio", Value: FormatUSD(avg(amount)), Color: "#7f1d1d"},
			{Label: "Plazo Promedio", Value: Fixed(avg(term), 1) + " m", Color: "#581c87"},
			{Label: "Retorno Mensual", Value: FormatUSD(avg(monthly)), Color: "#164e63"},
		},
	}
}

func (c *Composer) distribution(dist []contracts.TierCount) DistributionPage {
	page := DistributionPage{
		Title:   "DISTRIBUCIÓN DE TUPAK SCORE",
		Columns: distributionColumns,
	}
	for _, tc := range dist {
		page.Rows = append(page.Rows, DistributionRow{
			Score:   tc.Score,
			Label:   strings.Repeat("●", tc.Score) + " " + contracts.ScoreLabel(tc.Score) + " (" + strconv.Itoa(tc.Score) + ")",
			Count:   tc.Count,
			Percent: tc.Percent,
			Text:    Fixed(tc.Percent, 1) + "%",
			Color:   ScoreColor(tc.Score),
		})
	}
	return page
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func rateText(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "N/A"
	}
	if strings.HasSuffix(raw, "%") {
		return raw
	}
	return raw + "%"
}
