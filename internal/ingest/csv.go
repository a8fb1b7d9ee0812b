package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/tupakrantina/backoffice/internal/contracts"
)

// readCSV reads a header row and one record per line. The delimiter is
// ',' unless the header line holds more ';' (spreadsheet exports in
// Spanish locales).
func readCSV(r io.Reader, opts Options) ([]contracts.LoanRecord, error) {
	br := bufio.NewReader(r)
	first, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if i := bytes.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}
	first = bytes.TrimPrefix(first, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	if bytes.Count(first, []byte(";")) > bytes.Count(first, []byte(",")) {
		reader.Comma = ';'
	}

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = string(bytes.TrimPrefix([]byte(header[0]), []byte("\xef\xbb\xbf")))
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	var records []contracts.LoanRecord
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		if blank(row) {
			continue
		}

		records = append(records, opts.record(toMap(header, row), fmt.Sprintf("csv line %d", line)))
	}
	return records, nil
}
