package exchange

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/atinyakov/venditori/internal/models"
)

// Separator is the CSV field delimiter, as expected by Italian-locale spreadsheets.
const Separator = ';'

// WriteCSV writes a header row followed by one record per vendor.
func WriteCSV(w io.Writer, vendors []models.Vendor) error {
	cw := csv.NewWriter(w)
	cw.Comma = Separator

	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, v := range vendors {
		if err := cw.Write(record(v)); err != nil {
			return fmt.Errorf("write vendor %d: %w", v.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a semicolon-separated file with a header row.
func ReadCSV(r io.Reader) ([]models.Vendor, error) {
	cr := csv.NewReader(r)
	cr.Comma = Separator
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalid, err)
	}
	return decodeRows(rows)
}
