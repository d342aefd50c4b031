package exchange

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/atinyakov/venditori/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleVendors() []models.Vendor {
	created := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	return []models.Vendor{
		{
			ID:              1,
			FullName:        "Mario Rossi",
			Email:           "mario@example.com",
			Phone:           "+39 333 1234567",
			City:            "Milano",
			SalesExperience: 5,
			BirthYear:       1980,
			Sector:          "Retail",
			VATRegistered:   models.Yes,
			Enasarco:        models.No,
			Notes:           "Disponibile; anche weekend",
			CreatedAt:       created,
		},
		{
			ID:              2,
			FullName:        "Anna Bianchi",
			Email:           "anna@example.com",
			City:            "Roma",
			SalesExperience: 0,
			Sector:          "Food",
			VATRegistered:   models.No,
			Enasarco:        models.Yes,
			CV:              "https://example.com/anna.pdf",
			CreatedAt:       created,
		},
	}
}

// imported strips the fields an import never carries.
func imported(vs []models.Vendor) []models.Vendor {
	out := make([]models.Vendor, len(vs))
	for i, v := range vs {
		v.ID = 0
		v.CreatedAt = time.Time{}
		out[i] = v
	}
	return out
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: CSV},
		{in: "CSV", want: CSV},
		{in: "xlsx", want: XLSX},
		{in: " Excel ", want: XLSX},
		{in: "pdf", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat_Filename(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	assert.Equal(t, "venditori_20240309_140507.csv", CSV.Filename(ts))
	assert.Equal(t, "venditori_20240309_140507.xlsx", XLSX.Filename(ts))
	assert.Contains(t, XLSX.ContentType(), "spreadsheetml")
	assert.Equal(t, "text/csv; charset=utf-8", CSV.ContentType())
}

func TestWriteCSV(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, WriteCSV(buf, sampleVendors()[:1]))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(Columns, ";"), lines[0])
	assert.Equal(t,
		`1;Mario Rossi;mario@example.com;+39 333 1234567;Milano;5;1980;Retail;Sì;No;;"Disponibile; anche weekend";2024-05-01 10:30:00`,
		lines[1])
}

func TestCSV_RoundTrip(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, Export(buf, CSV, sampleVendors()))

	got, err := Import(buf, CSV)
	require.NoError(t, err)
	assert.Equal(t, imported(sampleVendors()), got)
}

func TestXLSX_RoundTrip(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, Export(buf, XLSX, sampleVendors()))

	got, err := Import(bytes.NewReader(buf.Bytes()), XLSX)
	require.NoError(t, err)
	assert.Equal(t, imported(sampleVendors()), got)
}

func TestWriteXLSX_Layout(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, WriteXLSX(buf, sampleVendors()))

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	v, err := f.GetCellValue(SheetName, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Mario Rossi", v)

	numeric := []excelize.CellType{excelize.CellTypeUnset, excelize.CellTypeNumber}
	for _, cell := range []string{"A2", "F2", "G2", "F3"} {
		typ, err := f.GetCellType(SheetName, cell)
		require.NoError(t, err)
		assert.Contains(t, numeric, typ, "cell %s should hold a number", cell)
	}
	typ, err := f.GetCellType(SheetName, "C2")
	require.NoError(t, err)
	assert.NotContains(t, numeric, typ, "email should be text")

	year, err := f.GetCellValue(SheetName, "G2")
	require.NoError(t, err)
	assert.Equal(t, "1980", year)
	blank, err := f.GetCellValue(SheetName, "G3")
	require.NoError(t, err)
	assert.Empty(t, blank)

	styleID, err := f.GetCellStyle(SheetName, "A1")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)
}

func TestReadCSV_HeaderMatching(t *testing.T) {
	in := "\ufeffEMAIL; Nome_Cognome ;Citta;Settore_Esperienza;ID;colonna_extra\n" +
		"luca@example.com;Luca Verdi;Torino;Auto;99;ignorata\n" +
		";;;;;\n"

	got, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []models.Vendor{{
		FullName: "Luca Verdi",
		Email:    "luca@example.com",
		City:     "Torino",
		Sector:   "Auto",
	}}, got)
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantMsg string
	}{
		{name: "empty", in: "", wantMsg: "empty file"},
		{name: "no email column", in: "nome_cognome;citta\nLuca;Torino\n", wantMsg: "missing email column"},
		{
			name:    "bad experience",
			in:      "email;esperienza_vendita\na@b.it;5\nc@d.it;tanti\n",
			wantMsg: `row 3: esperienza_vendita is not a number: "tanti"`,
		},
		{name: "broken quoting", in: "email\n\"a@b.it\n", wantMsg: "invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.in))
			assert.ErrorIs(t, err, models.ErrInvalid)
			assert.ErrorContains(t, err, tt.wantMsg)
		})
	}
}

func TestReadXLSX_NotAWorkbook(t *testing.T) {
	_, err := ReadXLSX(strings.NewReader("plain text"))
	assert.ErrorIs(t, err, models.ErrInvalid)
}
