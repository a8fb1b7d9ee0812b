package contracts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"1000", 1000},
		{"1500.75", 1500.75},
		{" 2500 ", 2500},
		{"1,234.56", 1},
		{"-20", -20},
		{"3e2", 300},
		{"12abc", 12},
		{"abc", 0},
		{"", 0},
		{".5", 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParseAmount(tt.in), 1e-9)
		})
	}
}

func TestParseTerm(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"12 meses", 12},
		{"0 meses", 0},
		{"36", 36},
		{"1-2", 12},
		{"sin plazo", 0},
		{"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTerm(tt.in))
		})
	}
}

func TestParseRate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"10%", 10},
		{"15.5 %", 15.5},
		{"tasa 1.2.3", 1.2},
		{"N/A", 0},
		{"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParseRate(tt.in), 1e-9)
		})
	}
}

func TestAdvisorKey(t *testing.T) {
	assert.Equal(t, "ANA", LoanRecord{Advisor: "ANA"}.AdvisorKey())
	assert.Equal(t, NoAdvisor, LoanRecord{}.AdvisorKey())
	assert.Equal(t, NoAdvisor, LoanRecord{Advisor: "   "}.AdvisorKey())
}

func TestIsDelinquentStatus(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"En Mora", true},
		{"VENCIDO", true},
		{"pago atrasado", true},
		{"Moroso", false},
		{"Activo", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsDelinquentStatus(tt.status), tt.status)
	}
}

func TestLoanRecordUnmarshalJSON_Fallbacks(t *testing.T) {
	data := []byte(`{
		"acta": 1024,
		"nombre_socio": "María Quispe",
		"monto_aprobado": 1500.5,
		"plazo": "12 meses",
		"tasa_interes": "14%",
		"estado": "vencido",
		"fecha_solicitud": "2024-03-05 10:30:00"
	}`)

	var rec LoanRecord
	require.NoError(t, json.Unmarshal(data, &rec))

	assert.Equal(t, "1024", rec.Acta)
	assert.Equal(t, "1500.5", rec.Amount)
	assert.Equal(t, "14%", rec.Rate)
	assert.Equal(t, "vencido", rec.Status)
	assert.Equal(t, NoAdvisor, rec.AdvisorKey())
	assert.Equal(t, 5, rec.CreatedAt.Day())
	assert.Equal(t, time.March, rec.CreatedAt.Month())
	assert.True(t, rec.IsDelinquent())
}

func TestLoanRecordUnmarshalJSON_PrimaryKeysWin(t *testing.T) {
	data := []byte(`{
		"interes": "10%", "tasa_interes": "99%",
		"estado_credito": "activo", "estado": "mora",
		"created_at": "2024-01-02T08:00:00Z", "fecha": "2020-01-01"
	}`)

	var rec LoanRecord
	require.NoError(t, json.Unmarshal(data, &rec))

	assert.Equal(t, "10%", rec.Rate)
	assert.Equal(t, "activo", rec.Status)
	assert.Equal(t, 2024, rec.CreatedAt.Year())
}

func TestLoanRecordUnmarshalJSON_NullsAndBadDate(t *testing.T) {
	var rec LoanRecord
	require.NoError(t, json.Unmarshal([]byte(`{"asesor_credito": null, "monto_aprobado": null}`), &rec))
	assert.Equal(t, "", rec.Amount)
	assert.True(t, rec.CreatedAt.IsZero())

	require.NoError(t, json.Unmarshal([]byte(`{"acta": "7", "monto_aprobado": 800, "created_at": "ayer"}`), &rec))
	assert.Equal(t, "7", rec.Acta)
	assert.Equal(t, "800", rec.Amount)
	assert.True(t, rec.CreatedAt.IsZero())
}

func TestParseTimestamp(t *testing.T) {
	guayaquil, err := time.LoadLocation("America/Guayaquil")
	require.NoError(t, err)

	tests := []struct {
		name string
		in   string
		loc  *time.Location
		want time.Time
	}{
		{"zoneless in report location", "2024-03-01 02:00:00", guayaquil, time.Date(2024, 3, 1, 2, 0, 0, 0, guayaquil)},
		{"date only in report location", "2024-03-01", guayaquil, time.Date(2024, 3, 1, 0, 0, 0, 0, guayaquil)},
		{"explicit zone kept", "2024-03-01T02:00:00Z", guayaquil, time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC)},
		{"postgres offset", "2024-03-01 02:00:00.5-05", time.UTC, time.Date(2024, 3, 1, 7, 0, 0, 5e8, time.UTC)},
		{"month first slash", "2/1/2024", time.UTC, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"nil location is utc", "2024-03-01 02:00:00", nil, time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC)},
		{"empty", "  ", guayaquil, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in, tt.loc)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestParseTimestampIgnoresProcessZone(t *testing.T) {
	saved := time.Local
	time.Local = time.UTC
	defer func() { time.Local = saved }()

	guayaquil, err := time.LoadLocation("America/Guayaquil")
	require.NoError(t, err)

	got, err := ParseTimestamp("2024-03-01 02:00:00", guayaquil)
	require.NoError(t, err)

	inReport := got.In(guayaquil)
	assert.Equal(t, time.March, inReport.Month())
	assert.Equal(t, 1, inReport.Day())
}

func TestRecordFromFieldsBadDate(t *testing.T) {
	tests := []struct {
		name    string
		created string
		wantErr bool
	}{
		{"valid", "2024-03-01", false},
		{"missing", "", false},
		{"pending", "pendiente", true},
		{"day first with time zone text", "01-03-2024 GMT", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := RecordFromFields(map[string]string{
				"acta": "2", "monto_aprobado": "1500", "created_at": tt.created,
			}, time.UTC)

			assert.Equal(t, "2", rec.Acta)
			assert.Equal(t, 1500.0, rec.AmountValue())
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadTimestamp)
				assert.True(t, rec.CreatedAt.IsZero())
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoanRecordJSONRoundTrip(t *testing.T) {
	in := LoanRecord{
		Acta:      "1",
		Advisor:   "ANA",
		Amount:    "1000",
		Term:      "12 meses",
		Rate:      "10%",
		Status:    "activo",
		CreatedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out LoanRecord
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in.Acta, out.Acta)
	assert.Equal(t, in.Rate, out.Rate)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
}

func TestCanonicalField(t *testing.T) {
	got, ok := CanonicalField(" Fecha_Solicitud ")
	require.True(t, ok)
	assert.Equal(t, "created_at", got)

	_, ok = CanonicalField("desconocido")
	assert.False(t, ok)
}

func TestScoreLabel(t *testing.T) {
	assert.Equal(t, "Excelente", ScoreLabel(5))
	assert.Equal(t, "Muy Bajo", ScoreLabel(1))
	assert.Equal(t, "", ScoreLabel(0))
	assert.Equal(t, "", ScoreLabel(6))
}
