package ingest

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/tupakrantina/backoffice/internal/contracts"
)

// readXLSX reads the first sheet; row 1 is the header. Cells are read
// raw so amounts keep their precision and dates arrive as serials.
func readXLSX(r io.Reader, opts Options) ([]contracts.LoanRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("xlsx has no sheets")
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Error()
	}
	header, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read xlsx header: %w", err)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	var records []contracts.LoanRecord
	line := 1
	for rows.Next() {
		line++
		cols, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read xlsx row %d: %w", line, err)
		}
		if blank(cols) {
			continue
		}

		fields := toMap(header, cols)
		for key, val := range fields {
			if canonical, ok := contracts.CanonicalField(key); ok && canonical == "created_at" {
				fields[key] = serialToTimestamp(val)
			}
		}

		records = append(records, opts.record(fields, fmt.Sprintf("xlsx row %d", line)))
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	return records, nil
}

// serialToTimestamp converts an Excel date serial to zoneless wall time,
// so the text parser places it in the report location. Anything else is
// returned unchanged.
func serialToTimestamp(v string) string {
	serial, err := strconv.ParseFloat(v, 64)
	if err != nil || serial <= 0 {
		return v
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return v
	}
	return t.Format("2006-01-02 15:04:05")
}
