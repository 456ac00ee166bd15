package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// ParseCSV parses CSV bytes whose first record is the header. Short records
// are padded with missing cells; records longer than the header are an error.
func ParseCSV(data []byte) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("no columns to parse")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	t := &Table{Columns: header}
	for line := 2; ; line++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if len(record) > len(header) {
			return nil, fmt.Errorf("line %d: expected %d fields, saw %d", line, len(header), len(record))
		}

		row := make([]any, len(header))
		for i, field := range record {
			row[i] = field
		}
		t.Rows = append(t.Rows, row)
	}

	return t, nil
}
