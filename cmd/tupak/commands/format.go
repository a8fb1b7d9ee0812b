package commands

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/tupakrantina/backoffice/internal/cartera"
	"github.com/tupakrantina/backoffice/internal/contracts"
	"github.com/tupakrantina/backoffice/internal/report"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// every command prints with the same layout
// ═══════════════════════════════════════════════════════════

// printProgress renders one progress event on the terminal
func printProgress(ev cartera.ProgressEvent) {
	switch ev.Stage {
	case cartera.StageRendering:
		if ev.Page > 0 {
			fmt.Printf("[Render] Página %d/%d\n", ev.Page, ev.Total)
		} else {
			fmt.Printf("[Render] %d páginas\n", ev.Total)
		}
	case cartera.StageFailed:
		fmt.Printf("[Error] %s\n", ev.Message)
	case cartera.StageDone:
	default:
		fmt.Printf("[%s]\n", strings.ToUpper(ev.Stage[:1])+ev.Stage[1:])
	}
}

// printAggregate prints the KPIs and the advisor comparison
func printAggregate(agg *contracts.AggregateResult) {
	t := agg.Totals
	month := report.MonthName(agg.ReferenceDate.Month())

	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("  Cartera %s %d\n", month, agg.ReferenceDate.Year())
	fmt.Println("───────────────────────────────────────────────────────────")
	fmt.Printf("  Créditos del mes : %s (%s)\n", humanize.Comma(int64(t.PeriodCount)), report.FormatUSD(t.PeriodAmount))
	fmt.Printf("  Monto promedio   : %s\n", report.FormatUSD(t.PeriodAvgAmount))
	fmt.Printf("  Tupak Score prom.: %s\n", report.Fixed(t.PeriodAvgScore, 2))
	fmt.Printf("  Plazo promedio   : %s meses\n", report.Fixed(t.PeriodAvgTerm, 1))
	fmt.Printf("  Créditos por día : %s\n", report.Fixed(t.RecordsPerDay, 2))
	fmt.Printf("  Histórico        : %s (%s)\n", humanize.Comma(int64(t.AllTimeCount)), report.FormatUSD(t.AllTimeAmount))
	fmt.Println("───────────────────────────────────────────────────────────")

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Asesor\tMes\tMonto mes\tTotal\tMonto total\tMora %\t")
	for _, s := range agg.Stats {
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%s\t%s\t\n",
			s.Advisor, s.PeriodCount, report.FormatUSD(s.PeriodAmount),
			s.TotalCount, report.FormatUSD(s.TotalAmount), report.Fixed(s.DelinquencyRate, 1))
	}
	w.Flush()

	fmt.Println("───────────────────────────────────────────────────────────")
	for _, d := range agg.Distribution {
		fmt.Printf("  %d %-10s %4d  %5s%%\n", d.Score, contracts.ScoreLabel(d.Score), d.Count, report.Fixed(d.Percent, 1))
	}
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// maskPassword hides the password of a connection URL for display
func maskPassword(url string) string {
	scheme, rest, ok := strings.Cut(url, "://")
	if !ok {
		return url
	}
	creds, host, ok := strings.Cut(rest, "@")
	if !ok {
		return url
	}
	user, _, _ := strings.Cut(creds, ":")
	return scheme + "://" + user + ":***@" + host
}
