package ingest

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tupakrantina/backoffice/internal/aggregation"
	"github.com/tupakrantina/backoffice/pkg/config"
	"github.com/tupakrantina/backoffice/pkg/logger"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"creditos.json", FormatJSON},
		{"creditos.CSV", FormatCSV},
		{"cartera.xlsx", FormatXLSX},
		{"-", FormatJSON},
		{"export", FormatJSON},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectFormat(tt.path), tt.path)
	}
}

func TestDecodeJSONShapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		count int
	}{
		{"array", `[{"acta":"1","monto_aprobado":1500},{"acta":"2"}]`, 2},
		{"envelope", `{"data":[{"acta":"1"},{"acta":"2"},{"acta":"3"}]}`, 3},
		{"envelope single", `{"data":{"acta":"1"}}`, 1},
		{"single object", `{"acta":"9","asesor":"ANA"}`, 1},
		{"empty", ``, 0},
		{"null", `null`, 0},
		{"empty array", `[]`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := DecodeJSON([]byte(tt.input), Options{})
			require.NoError(t, err)
			assert.Len(t, records, tt.count)
		})
	}
}

func TestDecodeJSONAliases(t *testing.T) {
	records, err := DecodeJSON([]byte(`{"acta":"9","asesor":"ANA","monto":2500.5,"tasa_interes":"12%","estado":"Vencido","fecha":"2024-03-02"}`), Options{})
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "ANA", r.Advisor)
	assert.Equal(t, 2500.5, r.AmountValue())
	assert.Equal(t, 12.0, r.RateValue())
	assert.True(t, r.IsDelinquent())
	assert.Equal(t, 2, r.CreatedAt.Day())
}

func TestDecodeJSONInvalid(t *testing.T) {
	_, err := DecodeJSON([]byte(`[{"acta":`), Options{})
	assert.Error(t, err)
}

func TestReadCSV(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"comma", "acta,Nombre_Socio,asesor_credito,monto_aprobado,plazo,interes,estado_credito,created_at\n" +
			"1,Juan Perez,ANA,1500.50,12 meses,15%,vigente,2024-03-01T10:00:00Z\n" +
			",,,,,,,\n" +
			"2,Maria,LUIS,\"2,000\",6 meses,10%,En mora,2024-03-02 09:00:00\n"},
		{"semicolon with bom", "\xef\xbb\xbfacta;nombre_socio;asesor;monto;plazo;tasa;estado;fecha\n" +
			"1;Juan Perez;ANA;1500.50;12 meses;15%;vigente;2024-03-01\n" +
			"2;Maria;LUIS;2000;6 meses;10%;En mora;2024-03-02\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := Read(strings.NewReader(tt.input), FormatCSV, Options{})
			require.NoError(t, err)
			require.Len(t, records, 2)

			assert.Equal(t, "1", records[0].Acta)
			assert.Equal(t, "Juan Perez", records[0].PartnerName)
			assert.Equal(t, "ANA", records[0].Advisor)
			assert.Equal(t, 1500.5, records[0].AmountValue())
			assert.Equal(t, 12, records[0].TermValue())
			assert.Equal(t, time.March, records[0].CreatedAt.Month())
			assert.True(t, records[1].IsDelinquent())
		})
	}
}

func TestReadCSVUnknownHeader(t *testing.T) {
	_, err := Read(strings.NewReader("foo,bar\n1,2\n"), FormatCSV, Options{})
	assert.ErrorIs(t, err, ErrNoColumns)
}

func TestReadCSVEmpty(t *testing.T) {
	records, err := Read(strings.NewReader(""), FormatCSV, Options{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Acta", "Socio", "Asesor", "Monto", "Plazo", "Interes", "Estado", "Fecha"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"100", "Juan", "ANA", 1500.25, "12 meses", "15%", "vigente", 45352}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"101", "Maria", "", 800, "6", "10", "atrasado", "2024-03-05"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	records, err := Read(bytes.NewReader(buf.Bytes()), FormatXLSX, Options{})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "100", records[0].Acta)
	assert.Equal(t, 1500.25, records[0].AmountValue())
	assert.Equal(t, 2024, records[0].CreatedAt.Year())
	assert.Equal(t, time.March, records[0].CreatedAt.Month())
	assert.Equal(t, 1, records[0].CreatedAt.Day())

	assert.Equal(t, "Sin Asesor", records[1].AdvisorKey())
	assert.Equal(t, 5, records[1].CreatedAt.Day())
	assert.True(t, records[1].IsDelinquent())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "creditos.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"data":[{"acta":"1"}]}`), 0o600))

	records, err := LoadFile(path, Options{})
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = LoadFile(filepath.Join(dir, "missing.csv"), Options{})
	assert.Error(t, err)
}

func TestReadZonelessDatesInReportLocation(t *testing.T) {
	saved := time.Local
	time.Local = time.UTC
	defer func() { time.Local = saved }()

	guayaquil, err := time.LoadLocation("America/Guayaquil")
	require.NoError(t, err)
	ref := time.Date(2024, 3, 15, 12, 0, 0, 0, guayaquil)
	opts := Options{Location: guayaquil}

	xlsx := excelize.NewFile()
	defer xlsx.Close()
	sheet := xlsx.GetSheetName(0)
	require.NoError(t, xlsx.SetSheetRow(sheet, "A1", &[]interface{}{"acta", "fecha"}))
	// 45352.0833 is 2024-03-01 02:00
	require.NoError(t, xlsx.SetSheetRow(sheet, "A2", &[]interface{}{"1", 45352.08333333333}))
	buf, err := xlsx.WriteToBuffer()
	require.NoError(t, err)

	tests := []struct {
		name   string
		format Format
		input  []byte
	}{
		{"json", FormatJSON, []byte(`[{"acta":"1","created_at":"2024-03-01 02:00:00"}]`)},
		{"json date only", FormatJSON, []byte(`{"acta":"1","fecha":"2024-03-01"}`)},
		{"csv", FormatCSV, []byte("acta,created_at\n1,2024-03-01 02:00:00\n")},
		{"xlsx serial", FormatXLSX, buf.Bytes()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := Read(bytes.NewReader(tt.input), tt.format, opts)
			require.NoError(t, err)
			require.Len(t, records, 1)

			created := records[0].CreatedAt.In(guayaquil)
			assert.Equal(t, time.March, created.Month())
			assert.Equal(t, 1, created.Day())
			assert.True(t, aggregation.InPeriod(records[0].CreatedAt, ref))
		})
	}
}

func TestReadKeepsRecordsWithBadDates(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		input  string
	}{
		{"json", FormatJSON, `[{"acta":"1","monto_aprobado":1000,"created_at":"2024-03-01"},{"acta":"2","monto_aprobado":500,"created_at":"pendiente"}]`},
		{"csv", FormatCSV, "acta,monto_aprobado,created_at\n1,1000,2024-03-01\n2,500,pendiente\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			opts := Options{Location: time.UTC, Logger: logger.NewWithWriter(&config.Config{Env: "development", LogLevel: "info", LogFormat: "json"}, &logs)}

			records, err := Read(strings.NewReader(tt.input), tt.format, opts)
			require.NoError(t, err)
			require.Len(t, records, 2)

			assert.False(t, records[0].CreatedAt.IsZero())
			assert.Equal(t, "2", records[1].Acta)
			assert.Equal(t, 500.0, records[1].AmountValue())
			assert.True(t, records[1].CreatedAt.IsZero())

			var line map[string]interface{}
			require.NoError(t, json.Unmarshal(bytes.TrimSpace(logs.Bytes()), &line))
			assert.Equal(t, "warn", line["level"])
			assert.Contains(t, line["error"], "pendiente")
		})
	}
}
