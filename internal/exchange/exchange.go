// Package exchange converts vendor lists to and from CSV and Excel files.
package exchange

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/atinyakov/venditori/internal/models"
)

// Format is a supported file format.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

// Columns is the header written on export. Import matches these names
// case-insensitively and ignores id and data_creazione.
var Columns = []string{
	"id",
	"nome_cognome",
	"email",
	"telefono",
	"citta",
	"esperienza_vendita",
	"anno_nascita",
	"settore_esperienza",
	"partita_iva",
	"agente_isenarco",
	"cv",
	"note",
	"data_creazione",
}

const createdLayout = "2006-01-02 15:04:05"

// ParseFormat maps a query value to a Format. Empty selects CSV.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return CSV, nil
	case "xlsx", "excel":
		return XLSX, nil
	default:
		return "", fmt.Errorf("%w: unsupported format %q", models.ErrInvalid, s)
	}
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == XLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename returns the download name for an export taken at t.
func (f Format) Filename(t time.Time) string {
	return "venditori_" + t.Format("20060102_150405") + "." + string(f)
}

// Export writes vendors to w in format f.
func Export(w io.Writer, f Format, vendors []models.Vendor) error {
	if f == XLSX {
		return WriteXLSX(w, vendors)
	}
	return WriteCSV(w, vendors)
}

// Import reads vendors from r in format f.
func Import(r io.Reader, f Format) ([]models.Vendor, error) {
	if f == XLSX {
		return ReadXLSX(r)
	}
	return ReadCSV(r)
}

func record(v models.Vendor) []string {
	created := ""
	if !v.CreatedAt.IsZero() {
		created = v.CreatedAt.Format(createdLayout)
	}
	birth := ""
	if v.BirthYear != 0 {
		birth = strconv.Itoa(v.BirthYear)
	}
	return []string{
		strconv.FormatInt(v.ID, 10),
		v.FullName,
		v.Email,
		v.Phone,
		v.City,
		strconv.Itoa(v.SalesExperience),
		birth,
		v.Sector,
		v.VATRegistered,
		v.Enasarco,
		v.CV,
		v.Notes,
		created,
	}
}

// decoder turns data rows into vendors using the column positions of a header row.
type decoder struct {
	index map[string]int
}

func newDecoder(header []string) (*decoder, error) {
	d := &decoder{index: make(map[string]int, len(header))}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if name == "" {
			continue
		}
		if _, dup := d.index[name]; !dup {
			d.index[name] = i
		}
	}
	if _, ok := d.index["email"]; !ok {
		return nil, fmt.Errorf("%w: missing email column", models.ErrInvalid)
	}
	return d, nil
}

func (d *decoder) cell(row []string, name string) string {
	i, ok := d.index[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (d *decoder) number(row []string, name string, line int) (int, error) {
	s := d.cell(row, name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: row %d: %s is not a number: %q", models.ErrInvalid, line, name, s)
	}
	return n, nil
}

func (d *decoder) vendor(row []string, line int) (models.Vendor, error) {
	exp, err := d.number(row, "esperienza_vendita", line)
	if err != nil {
		return models.Vendor{}, err
	}
	birth, err := d.number(row, "anno_nascita", line)
	if err != nil {
		return models.Vendor{}, err
	}
	return models.Vendor{
		FullName:        d.cell(row, "nome_cognome"),
		Email:           d.cell(row, "email"),
		Phone:           d.cell(row, "telefono"),
		City:            d.cell(row, "citta"),
		SalesExperience: exp,
		BirthYear:       birth,
		Sector:          d.cell(row, "settore_esperienza"),
		VATRegistered:   d.cell(row, "partita_iva"),
		Enasarco:        d.cell(row, "agente_isenarco"),
		CV:              d.cell(row, "cv"),
		Notes:           d.cell(row, "note"),
	}, nil
}

// decodeRows converts a header row plus data rows, skipping blank rows.
func decodeRows(rows [][]string) ([]models.Vendor, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty file", models.ErrInvalid)
	}
	d, err := newDecoder(rows[0])
	if err != nil {
		return nil, err
	}

	vendors := make([]models.Vendor, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		v, err := d.vendor(row, i+2)
		if err != nil {
			return nil, err
		}
		vendors = append(vendors, v)
	}
	return vendors, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
