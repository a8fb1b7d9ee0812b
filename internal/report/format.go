package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

var monthNames = [12]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// MonthName returns the Spanish month name ("Marzo")
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthNames[m-1]
}

// FormatUSD renders v as US dollars with two decimals and thousands
// separators ("$1,234.56", "-$5.00") whatever the host locale.
func FormatUSD(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}

	d := decimal.NewFromFloat(v).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}

	whole := d.Truncate(0)
	cents := d.Sub(whole).Shift(2).IntPart()

	return fmt.Sprintf("%s$%s.%02d", sign, humanize.BigComma(whole.BigInt()), cents)
}

// FormatDateES formats t like the es-ES short date ("5/3/2024")
func FormatDateES(t time.Time) string {
	return fmt.Sprintf("%d/%d/%d", t.Day(), int(t.Month()), t.Year())
}

// Fixed formats v with n decimals
func Fixed(v float64, n int) string {
	return strconv.FormatFloat(v, 'f', n, 64)
}

// FileName is the report download name: Reporte_Cartera_<System>_<YYYY-MM-DD>.pdf
func FileName(system string, generated time.Time) string {
	system = strings.Join(strings.Fields(system), "")
	return fmt.Sprintf("Reporte_Cartera_%s_%s.pdf", system, generated.UTC().Format("2006-01-02"))
}

// StarRating splits an average score into full, partial and empty stars
type StarRating struct {
	Full    int     `json:"full"`
	Partial float64 `json:"partial"` // fraction of the next star, 0 when < 0.05
	Empty   int     `json:"empty"`
	Value   float64 `json:"value"`
}

// NewStarRating builds a 5-star rating for score (clamped to 0..5)
func NewStarRating(score float64) StarRating {
	if math.IsNaN(score) || score < 0 {
		score = 0
	}
	if score > 5 {
		score = 5
	}

	full := int(math.Floor(score))
	frac := score - float64(full)

	r := StarRating{Full: full, Value: score}
	used := full
	if full < 5 && frac >= 0.05 {
		r.Partial = frac
		used++
	}
	r.Empty = 5 - used
	return r
}

// Text renders the rating with ★ and ☆; a partial star shows as ☆
func (r StarRating) Text() string {
	var b strings.Builder
	b.WriteString(strings.Repeat("★", r.Full))
	if r.Partial > 0 {
		b.WriteString("☆")
	}
	b.WriteString(strings.Repeat("☆", r.Empty))
	return b.String()
}

// Plural picks the singular or plural Spanish form
func Plural(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
