package report

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/tupakrantina/backoffice/internal/contracts"
)

// emailTopAdvisors caps the advisor table of the e-mail body
const emailTopAdvisors = 5

var emailTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html lang="es">
<body style="font-family: Arial, sans-serif; color: #1f2937;">
<h2 style="color: #1e3a5f;">Reporte de Cartera - {{.Month}} {{.Year}}</h2>
<p>Adjunto el reporte de cartera de {{.Month}} {{.Year}}.</p>
<table id="totales" cellpadding="4">
<tr><td>Créditos del mes</td><td><b>{{.Totals.PeriodCount}}</b></td></tr>
<tr><td>Monto colocado</td><td><b>{{.Amount}}</b></td></tr>
<tr><td>Tupak Score promedio</td><td><b>{{.AvgScore}}</b></td></tr>
<tr><td>Créditos históricos</td><td><b>{{.Totals.AllTimeCount}}</b></td></tr>
</table>
{{if .Advisors}}<h3>Asesores</h3>
<table id="asesores" cellpadding="4">
<tr><th>Asesor</th><th>Créditos</th><th>Monto</th></tr>
{{range .Advisors}}<tr><td>{{.Name}}</td><td>{{.Count}}</td><td>{{.Amount}}</td></tr>
{{end}}</table>
{{end}}<p style="color: #6b7280;">{{.System}}</p>
</body>
</html>
`))

type emailAdvisor struct {
	Name   string
	Count  int
	Amount string
}

// EmailSummary returns the subject and HTML body of the report e-mail
func EmailSummary(system string, agg *contracts.AggregateResult) (string, string, error) {
	ref := agg.ReferenceDate
	month := MonthName(ref.Month())

	var advisors []emailAdvisor
	for _, s := range agg.Stats {
		if s.PeriodCount == 0 {
			continue
		}
		if len(advisors) == emailTopAdvisors {
			break
		}
		advisors = append(advisors, emailAdvisor{
			Name:   s.Advisor,
			Count:  s.PeriodCount,
			Amount: FormatUSD(s.PeriodAmount),
		})
	}

	var buf bytes.Buffer
	err := emailTemplate.Execute(&buf, map[string]interface{}{
		"Month":    month,
		"Year":     ref.Year(),
		"Totals":   agg.Totals,
		"Amount":   FormatUSD(agg.Totals.PeriodAmount),
		"AvgScore": Fixed(agg.Totals.PeriodAvgScore, 2),
		"Advisors": advisors,
		"System":   system,
	})
	if err != nil {
		return "", "", fmt.Errorf("render email body: %w", err)
	}

	subject := fmt.Sprintf("Reporte de Cartera - %s %d", month, ref.Year())
	return subject, buf.String(), nil
}

// Email renders the delivery e-mail for agg
func (c *Composer) Email(agg *contracts.AggregateResult) (string, string, error) {
	return EmailSummary(c.opts.System, agg)
}
