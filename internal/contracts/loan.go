package contracts

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NoAdvisor is the bucket key for records without an assigned advisor
const NoAdvisor = "Sin Asesor"

// delinquencyKeywords mark a status text as delinquent (case-insensitive substring)
var delinquencyKeywords = []string{"mora", "vencido", "atrasado"}

// LoanRecord is one credit as delivered by the back-office datastore.
// Numeric fields stay as raw text; use ParseAmount/ParseTerm/ParseRate.
// ⭐ SSOT: input shape of the cartera pipeline
type LoanRecord struct {
	Acta        string    `json:"acta"`
	PartnerName string    `json:"nombre_socio"`
	Advisor     string    `json:"asesor_credito"`
	Amount      string    `json:"monto_aprobado"`
	Term        string    `json:"plazo"`   // "12 meses"
	Rate        string    `json:"interes"` // "15.5%"
	Status      string    `json:"estado_credito"`
	CreatedAt   time.Time `json:"created_at"`
}

// fieldAliases lists accepted source keys per field, in priority order
var fieldAliases = map[string][]string{
	"acta":           {"acta", "numero_acta"},
	"nombre_socio":   {"nombre_socio", "socio"},
	"asesor_credito": {"asesor_credito", "asesor"},
	"monto_aprobado": {"monto_aprobado", "monto"},
	"plazo":          {"plazo"},
	"interes":        {"interes", "tasa_interes", "tasa"},
	"estado_credito": {"estado_credito", "estado"},
	"created_at":     {"created_at", "fecha_solicitud", "fecha"},
}

// CanonicalField maps a source key (any alias, any case) to its canonical name
func CanonicalField(key string) (string, bool) {
	k := strings.ToLower(strings.TrimSpace(key))
	for canonical, aliases := range fieldAliases {
		for _, alias := range aliases {
			if k == alias {
				return canonical, true
			}
		}
	}
	return "", false
}

// ErrBadTimestamp marks a created_at value no layout accepts
var ErrBadTimestamp = errors.New("unrecognized timestamp")

// RecordFromFields builds a LoanRecord from loosely keyed text fields
// (JSON object, CSV row, spreadsheet row). Unknown keys are ignored.
// Timestamps without a zone are read as wall time in loc.
//
// The returned record is always usable. A non-nil error wraps
// ErrBadTimestamp and means CreatedAt was left zero: the record still
// counts in all-time totals but in no period.
func RecordFromFields(fields map[string]string, loc *time.Location) (LoanRecord, error) {
	pick := func(canonical string) string {
		for _, alias := range fieldAliases[canonical] {
			if v := strings.TrimSpace(fields[alias]); v != "" {
				return v
			}
		}
		return ""
	}

	created, err := ParseTimestamp(pick("created_at"), loc)
	if err != nil {
		err = fmt.Errorf("acta %q: %w", pick("acta"), err)
	}

	rec := LoanRecord{
		Acta:        pick("acta"),
		PartnerName: pick("nombre_socio"),
		Advisor:     pick("asesor_credito"),
		Amount:      pick("monto_aprobado"),
		Term:        pick("plazo"),
		Rate:        pick("interes"),
		Status:      pick("estado_credito"),
		CreatedAt:   created,
	}
	return rec, err
}

// DecodeFields reads one JSON object into lowercased text fields,
// accepting numbers, bools and null where text is expected.
func DecodeFields(data []byte) (map[string]string, error) {
	var raw map[string]flexString
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		fields[strings.ToLower(k)] = string(v)
	}
	return fields, nil
}

// UnmarshalJSON normalizes key fallbacks (interes → tasa_interes,
// estado_credito → estado, created_at → fecha_solicitud → fecha).
// Zoneless timestamps are read as UTC and an unparseable one is left
// zero; use ingest with a location for report input.
func (r *LoanRecord) UnmarshalJSON(data []byte) error {
	fields, err := DecodeFields(data)
	if err != nil {
		return err
	}

	*r, _ = RecordFromFields(fields, time.UTC)
	return nil
}

// MarshalJSON writes the canonical keys only
func (r LoanRecord) MarshalJSON() ([]byte, error) {
	type canonical LoanRecord
	c := canonical(r)
	return json.Marshal(struct {
		canonical
		CreatedAt *time.Time `json:"created_at,omitempty"`
	}{canonical: c, CreatedAt: nonZeroTime(r.CreatedAt)})
}

func nonZeroTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// flexString decodes a JSON string, number, bool or null into text
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	switch {
	case s == "null":
		*f = ""
	case strings.HasPrefix(s, `"`):
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = flexString(v)
	default:
		*f = flexString(s)
	}
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05.999999Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"1/2/2006",
	"1/2/2006 15:04:05",
}

// ParseTimestamp accepts RFC3339, space separated, date-only and
// month-first slash dates ("2/1/2024" is 1 February). Values without a
// zone are wall time in loc (UTC when nil). Empty input yields the zero
// time, which is never inside a period.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w %q", ErrBadTimestamp, s)
}

// ParseAmount reads the leading decimal number of s, or 0
func ParseAmount(s string) float64 {
	return leadingFloat(strings.TrimSpace(s))
}

// ParseTerm keeps only the digits of s ("12 meses" → 12), or 0
func ParseTerm(s string) int {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0
	}
	return n
}

// ParseRate keeps digits and '.' ("15.5%" → 15.5), or 0
func ParseRate(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	return leadingFloat(b.String())
}

// leadingFloat parses the longest numeric prefix of s
func leadingFloat(s string) float64 {
	end := 0
	seenDigit, seenDot, seenExp := false, false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
			end = i + 1
		case (c == '+' || c == '-') && (i == 0 || s[i-1] == 'e' || s[i-1] == 'E'):
		case c == '.' && !seenDot && !seenExp:
			seenDot = true
		case (c == 'e' || c == 'E') && seenDigit && !seenExp:
			seenExp = true
		default:
			i = len(s)
		}
	}
	if !seenDigit {
		return 0
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return v
}

// AmountValue is the parsed approved amount
func (r LoanRecord) AmountValue() float64 { return ParseAmount(r.Amount) }

// TermValue is the parsed term in months
func (r LoanRecord) TermValue() int { return ParseTerm(r.Term) }

// RateValue is the parsed interest rate
func (r LoanRecord) RateValue() float64 { return ParseRate(r.Rate) }

// AdvisorKey returns the advisor or NoAdvisor when unassigned
func (r LoanRecord) AdvisorKey() string {
	if strings.TrimSpace(r.Advisor) == "" {
		return NoAdvisor
	}
	return r.Advisor
}

// IsDelinquent reports whether the status text names a delinquent state
func (r LoanRecord) IsDelinquent() bool {
	return IsDelinquentStatus(r.Status)
}

// IsDelinquentStatus matches mora / vencido / atrasado case-insensitively
func IsDelinquentStatus(status string) bool {
	s := strings.ToLower(status)
	for _, kw := range delinquencyKeywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
