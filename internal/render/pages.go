package render

import (
	"strconv"

	"github.com/tupakrantina/backoffice/internal/report"
)

const (
	tableHeaderHeight = 28.0

	comparisonTableTop  = Margin + 50
	comparisonRowHeight = 24.0
	chartHeight         = 380.0

	advisorTableTop  = Margin + 115
	advisorRowHeight = 26.0

	distributionTableTop  = Margin + 70
	distributionRowHeight = 44.0

	cardHeight = 90.0
	cardGap    = 15.0
)

// heading draws a page title with a coloured rule underneath, returns the y below it
func heading(c *canvas, title string, y, size float64, rule string) float64 {
	c.text(title, Margin, y+size, size, true, report.ColorPrimary, 0, 0)
	c.rect(Margin, y+size+10, Content, 4, rule)
	return y + size + 30
}

// kpiCard draws a metric card in the card's colour with white text
func kpiCard(c *canvas, k report.KPI, x, y, w, h float64) {
	c.roundRect(x, y, w, h, 8, report.MustHex(k.Color))
	c.text(k.Label, x+12, y+22, 11, false, report.ColorWhite, 0, 0)
	if k.Detail != "" {
		c.text(c.fit(k.Detail, w-24, 9, false), x+12, y+h-10, 9, false, report.ColorWhite, 0, 0)
	}

	if k.Stars != nil {
		c.stars(x+12, y+46, 18, *k.Stars, report.ColorStarOn, report.ColorStarOff)
		c.text(k.Value, x+12, y+h-14, 12, false, report.ColorWhite, 0, 0)
		return
	}
	c.text(c.fit(k.Value, w-24, 18, true), x+12, y+58, 18, true, report.ColorWhite, 0, 0)
}

func drawSummary(c *canvas, p report.SummaryPage) {
	y := heading(c, p.Title, Margin-8, 26, report.ColorPrimary)

	c.gradientRect(Margin, y, Content, 40, 8, report.ColorSecondary, "#f59e0b")
	c.text(p.PeriodHeading, Margin+20, y+20, 18, true, report.ColorWhite, 0, 0.5)
	y += 55

	y = cardGrid(c, p.Period, y, 4) + 10

	c.gradientRect(Margin, y, Content, 40, 8, report.ColorAccent1, "#0ea5e9")
	c.text(p.AllTimeTitle, Margin+20, y+20, 18, true, report.ColorWhite, 0, 0.5)
	y += 55

	cardGrid(c, p.AllTime, y, 4)
}

// cardGrid lays cards out in rows of cols, returns the y below the grid
func cardGrid(c *canvas, cards []report.KPI, y float64, cols int) float64 {
	gap := 12.0
	w := (Content - gap*float64(cols-1)) / float64(cols)
	for i, k := range cards {
		col := i % cols
		row := i / cols
		kpiCard(c, k, Margin+float64(col)*(w+gap), y+float64(row)*(cardHeight+gap), w, cardHeight)
	}
	rows := (len(cards) + cols - 1) / cols
	return y + float64(rows)*(cardHeight+gap)
}

type column struct {
	width float64
	align float64 // 0 left, 0.5 centre, 1 right
}

// cell draws text inside column col of a row starting at x
func cell(c *canvas, s string, x, y, h float64, col column, size float64, bold bool, hex string) {
	pad := 6.0
	s = c.fit(s, col.width-2*pad, size, bold)
	tx := x + pad + col.align*(col.width-2*pad)
	c.text(s, tx, y+h/2, size, bold, hex, col.align, 0.5)
}

var comparisonColumns = []column{
	{190, 0}, {70, 0.5}, {110, 1}, {70, 0.5}, {110, 1}, {92, 0.5},
}

func drawComparison(c *canvas, p report.ComparisonPage) {
	heading(c, p.Title, Margin-16, 20, report.ColorSecondary)

	y := comparisonTableTop
	x := Margin
	cols := comparisonColumns

	// two-level header
	c.rect(x, y, cols[0].width, 2*tableHeaderHeight, report.ColorPrimary)
	cell(c, "ASESOR", x, y, 2*tableHeaderHeight, cols[0], 9, true, report.ColorWhite)

	periodX := x + cols[0].width
	periodW := cols[1].width + cols[2].width
	c.rect(periodX, y, periodW, tableHeaderHeight, report.ColorSecondary)
	c.text(p.PeriodHeader, periodX+periodW/2, y+tableHeaderHeight/2, 9, true, report.ColorWhite, 0.5, 0.5)

	histX := periodX + periodW
	histW := cols[3].width + cols[4].width + cols[5].width
	c.rect(histX, y, histW, tableHeaderHeight, report.ColorAccent1)
	c.text(p.HistoryTitle, histX+histW/2, y+tableHeaderHeight/2, 9, true, report.ColorWhite, 0.5, 0.5)

	sub := []struct{ label, bg, fg string }{
		{"Créditos", "#fef3c7", "#78350f"},
		{"Monto", "#fef3c7", "#78350f"},
		{"Créditos", "#dbeafe", "#1e3a8a"},
		{"Monto", "#dbeafe", "#1e3a8a"},
		{"% Mora", "#fee2e2", "#991b1b"},
	}
	cx := periodX
	for i, h := range sub {
		col := cols[i+1]
		c.rect(cx, y+tableHeaderHeight, col.width, tableHeaderHeight, h.bg)
		cell(c, h.label, cx, y+tableHeaderHeight, tableHeaderHeight, column{col.width, 0.5}, 8, true, h.fg)
		cx += col.width
	}
	y += 2 * tableHeaderHeight

	for i, row := range p.Rows {
		bg := report.ColorWhite
		if i%2 == 0 {
			bg = report.ColorRowAlt
		}
		c.rect(x, y, Content, comparisonRowHeight, bg)
		comparisonCells(c, row, x, y, report.ColorPrimary, row.DelinquencyColor)
		c.line(x, y+comparisonRowHeight, x+Content, y+comparisonRowHeight, 1, report.ColorBorder)
		y += comparisonRowHeight
	}

	c.gradientRect(x, y, Content, comparisonRowHeight, 0, report.ColorPrimary, report.ColorAccent2)
	comparisonCells(c, p.Footer, x, y, report.ColorWhite, report.ColorWhite)
	y += comparisonRowHeight + 40

	heading(c, p.ChartTitle, y-24, 20, report.ColorSecondary)
	drawChart(c, p.Chart, Margin, y+20, Content, chartHeight-20)
}

func comparisonCells(c *canvas, row report.ComparisonRow, x, y float64, text, mora string) {
	values := []string{
		row.Advisor,
		strconv.Itoa(row.PeriodCount),
		row.PeriodAmountText,
		strconv.Itoa(row.TotalCount),
		row.TotalAmountText,
		row.DelinquencyText,
	}
	for i, v := range values {
		hex := text
		if i == len(values)-1 {
			hex = mora
		}
		cell(c, v, x, y, comparisonRowHeight, comparisonColumns[i], 9, i == 0 || i == len(values)-1, hex)
		x += comparisonColumns[i].width
	}
}

var advisorColumnLayout = []column{
	{70, 0.5}, {200, 0}, {110, 1}, {70, 0.5}, {100, 0.5}, {92, 0.5},
}

func drawAdvisor(c *canvas, p report.AdvisorPage) {
	c.gradientRect(Margin, Margin, Content, 85, 12, report.ColorSecondary, "#f59e0b")
	c.text(c.fit(p.Header, Content-40, 24, true), Margin+20, Margin+38, 24, true, report.ColorWhite, 0, 0)
	c.text(p.Subtitle, Margin+20, Margin+66, 14, false, report.ColorWhite, 0, 0)

	y := advisorTableTop
	x := Margin
	c.gradientRect(x, y, Content, tableHeaderHeight, 0, report.ColorPrimary, report.ColorAccent2)
	for i, name := range p.Columns {
		if i >= len(advisorColumnLayout) {
			break
		}
		cell(c, name, x, y, tableHeaderHeight, advisorColumnLayout[i], 10, true, report.ColorWhite)
		x += advisorColumnLayout[i].width
	}
	y += tableHeaderHeight

	for i, row := range p.Rows {
		bg := report.ColorWhite
		if i%2 == 1 {
			bg = "#f8fafc"
		}
		c.rect(Margin, y, Content, advisorRowHeight, bg)

		x = Margin
		for j, v := range []string{row.Acta, row.Partner, row.Amount, row.Rate, row.Term} {
			cell(c, v, x, y, advisorRowHeight, advisorColumnLayout[j], 10, j == 2, report.ColorText)
			x += advisorColumnLayout[j].width
		}
		scoreBadge(c, row, x, y)
		c.line(Margin, y+advisorRowHeight, Margin+Content, y+advisorRowHeight, 1, "#e2e8f0")
		y += advisorRowHeight
	}

	cardGrid(c, p.Cards, y+20, 3)
}

// scoreBadge is a pill in the tier colour with one star per point
func scoreBadge(c *canvas, row report.AdvisorRow, x, y float64) {
	col := advisorColumnLayout[len(advisorColumnLayout)-1]
	starSize := 9.0
	w := float64(row.Score)*starSize*1.15 + 12
	bx := x + (col.width-w)/2
	c.roundRect(bx, y+4, w, advisorRowHeight-8, (advisorRowHeight-8)/2, report.MustHex(row.ScoreColor))

	sx := bx + 6 + starSize/2
	for i := 0; i < row.Score; i++ {
		c.star(sx, y+advisorRowHeight/2, starSize/2, report.ColorWhite)
		sx += starSize * 1.15
	}
}

var distributionColumnLayout = []column{
	{230, 0}, {90, 0.5}, {100, 0.5}, {222, 0},
}

func drawDistribution(c *canvas, p report.DistributionPage) {
	heading(c, p.Title, Margin-8, 28, report.ColorAccent1)

	y := distributionTableTop
	x := Margin
	c.rect(x, y, Content, tableHeaderHeight, report.ColorPrimary)
	for i, name := range p.Columns {
		if i >= len(distributionColumnLayout) {
			break
		}
		cell(c, name, x, y, tableHeaderHeight, distributionColumnLayout[i], 12, true, report.ColorWhite)
		x += distributionColumnLayout[i].width
	}
	y += tableHeaderHeight

	for _, row := range p.Rows {
		bg := report.ColorWhite
		if row.Score%2 == 0 {
			bg = report.ColorRowAlt
		}
		c.rect(Margin, y, Content, distributionRowHeight, bg)
		c.strokeRect(Margin, y, Content, distributionRowHeight, 1, report.ColorBorder)

		x = Margin
		cell(c, row.Label, x, y, distributionRowHeight, distributionColumnLayout[0], 13, true, report.ColorText)
		x += distributionColumnLayout[0].width
		cell(c, strconv.Itoa(row.Count), x, y, distributionRowHeight, distributionColumnLayout[1], 13, false, report.ColorText)
		x += distributionColumnLayout[1].width
		cell(c, row.Text, x, y, distributionRowHeight, distributionColumnLayout[2], 13, false, report.ColorText)
		x += distributionColumnLayout[2].width

		barMax := distributionColumnLayout[3].width - 12
		pct := row.Percent
		if pct > 100 {
			pct = 100
		}
		if w := barMax * pct / 100; w > 0 {
			c.roundRect(x+6, y+12, w, distributionRowHeight-24, 4, report.MustHex(row.Color))
		}
		y += distributionRowHeight
	}
}
