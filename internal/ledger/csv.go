package ledger

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// csvHeader is the legacy flat-file column layout. Flags serialize as the
// literal strings "true"/"false".
var csvHeader = []string{"item_id", "downstream_sent", "translation_a", "translation_b", "hosting_uploaded"}

// ExportCSV writes every ledger row in the legacy results format.
func (s *Store) ExportCSV(ctx context.Context, w io.Writer) error {
	statuses, err := s.All(ctx)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, status := range statuses {
		record := []string{
			status.ItemID,
			strconv.FormatBool(status.DownstreamSent),
			strconv.FormatBool(status.TranslationA),
			strconv.FormatBool(status.TranslationB),
			strconv.FormatBool(status.HostingUploaded),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row %s: %w", status.ItemID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ImportCSV reads rows in the legacy results format and upserts each one.
// Rows replace existing records wholesale, matching the legacy last-write-wins
// behavior. The row count is returned.
func (s *Store) ImportCSV(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err == io.EOF {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) != len(csvHeader) {
		return 0, fmt.Errorf("unexpected csv header: got %d columns, want %d", len(header), len(csvHeader))
	}
	for i, column := range csvHeader {
		if header[i] != column {
			return 0, fmt.Errorf("unexpected csv column %d: got %q, want %q", i+1, header[i], column)
		}
	}

	imported := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read csv row: %w", err)
		}
		status, err := statusFromRecord(record)
		if err != nil {
			return imported, err
		}
		if err := s.Upsert(ctx, status); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}

func statusFromRecord(record []string) (Status, error) {
	if len(record) != len(csvHeader) {
		return Status{}, fmt.Errorf("csv row has %d fields, want %d", len(record), len(csvHeader))
	}
	if record[0] == "" {
		return Status{}, fmt.Errorf("csv row has empty item id")
	}
	flags := make([]bool, 4)
	for i, field := range record[1:] {
		value, err := strconv.ParseBool(field)
		if err != nil {
			return Status{}, fmt.Errorf("csv row %s: column %s: %w", record[0], csvHeader[i+1], err)
		}
		flags[i] = value
	}
	return Status{
		ItemID:          record[0],
		DownstreamSent:  flags[0],
		TranslationA:    flags[1],
		TranslationB:    flags[2],
		HostingUploaded: flags[3],
	}, nil
}
