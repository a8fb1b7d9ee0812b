// Package ingest loads loan records from exported files: JSON (array,
// {"data": [...]} envelope or a single object), CSV and XLSX.
package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tupakrantina/backoffice/internal/contracts"
	"github.com/tupakrantina/backoffice/pkg/logger"
)

// Format of an input file
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ErrNoColumns is returned when a tabular header has no known loan field
var ErrNoColumns = errors.New("header has no recognised loan columns")

// Options controls how rows become records
type Options struct {
	// Location is the zone of timestamps that carry none (UTC when nil)
	Location *time.Location
	// Logger receives a warning per record whose date is unparseable
	Logger *logger.Logger
}

// record builds one record; a bad date is logged and left zero so the
// record still counts outside the period
func (o Options) record(fields map[string]string, where string) contracts.LoanRecord {
	rec, err := contracts.RecordFromFields(fields, o.Location)
	if err != nil && o.Logger != nil {
		o.Logger.WithComponent("ingest").WithError(err).WithField("at", where).
			Warn("Unparseable date, record kept outside every period")
	}
	return rec
}

// DetectFormat picks the format from the file extension (JSON by default)
func DetectFormat(path string) Format {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "csv":
		return FormatCSV
	case "xlsx", "xlsm":
		return FormatXLSX
	default:
		return FormatJSON
	}
}

// LoadFile reads records from path; "-" reads JSON from stdin
func LoadFile(path string, opts Options) ([]contracts.LoanRecord, error) {
	if path == "-" {
		return Read(os.Stdin, FormatJSON, opts)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, err := Read(f, DetectFormat(path), opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return records, nil
}

// Read decodes records of the given format
func Read(r io.Reader, format Format, opts Options) ([]contracts.LoanRecord, error) {
	switch format {
	case FormatCSV:
		return readCSV(r, opts)
	case FormatXLSX:
		return readXLSX(r, opts)
	case FormatJSON:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read json: %w", err)
		}
		return DecodeJSON(data, opts)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// DecodeJSON accepts an array of records, an object with a "data" array,
// or a single record object, and always returns a slice.
func DecodeJSON(data []byte, opts Options) ([]contracts.LoanRecord, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	if data[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
		records := make([]contracts.LoanRecord, 0, len(items))
		for i, item := range items {
			fields, err := contracts.DecodeFields(item)
			if err != nil {
				return nil, fmt.Errorf("decode record %d: %w", i, err)
			}
			records = append(records, opts.record(fields, fmt.Sprintf("item %d", i)))
		}
		return records, nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	if raw := bytes.TrimSpace(envelope.Data); len(raw) > 0 && (raw[0] == '[' || raw[0] == '{') {
		return DecodeJSON(raw, opts)
	}

	fields, err := contracts.DecodeFields(data)
	if err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return []contracts.LoanRecord{opts.record(fields, "item 0")}, nil
}

// toMap pairs a header with a row, lowercasing keys
func toMap(header []string, row []string) map[string]string {
	m := make(map[string]string, len(header))
	for i, key := range header {
		val := ""
		if i < len(row) {
			val = row[i]
		}
		m[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(val)
	}
	return m
}

// checkHeader requires at least one column that maps to a loan field
func checkHeader(header []string) error {
	for _, h := range header {
		if _, ok := contracts.CanonicalField(h); ok {
			return nil
		}
	}
	return fmt.Errorf("%w: %v", ErrNoColumns, header)
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
