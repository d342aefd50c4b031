package backup

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listTablesSQL = `SELECT table_name FROM information_schema.tables`

func setupEngine(t *testing.T) (*Engine, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewEngine(db), mock
}

func readEntries(t *testing.T, archive []byte) ([]string, map[string]string) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	require.NoError(t, err)

	var names []string
	contents := make(map[string]string)
	for _, f := range zr.File {
		assert.Equal(t, zip.Deflate, f.Method, "entry %s", f.Name)
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		names = append(names, f.Name)
		contents[f.Name] = string(data)
	}
	return names, contents
}

func TestBackup_TwoTablesOneEmpty(t *testing.T) {
	engine, mock := setupEngine(t)

	mock.ExpectQuery(regexp.QuoteMeta(listTablesSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("settori").AddRow("venditori"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "settori"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "nome"}).
			AddRow(int64(1), "Retail").
			AddRow(int64(2), "Food, Beverage").
			AddRow(int64(3), "Auto"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "venditori"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "nome_cognome", "email"}))

	archive, err := engine.Backup(context.Background())
	require.NoError(t, err)

	names, contents := readEntries(t, archive)
	assert.Equal(t, []string{"settori.csv", "venditori.csv"}, names)
	assert.Equal(t, "id,nome\n1,Retail\n2,\"Food, Beverage\"\n3,Auto\n", contents["settori.csv"])
	assert.Equal(t, "id,nome_cognome,email\n", contents["venditori.csv"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackup_FailureReturnsNoArchive(t *testing.T) {
	engine, mock := setupEngine(t)

	mock.ExpectQuery(regexp.QuoteMeta(listTablesSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("settori").AddRow("venditori"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "settori"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "nome"}).AddRow(int64(1), "Retail"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "venditori"`)).
		WillReturnError(errors.New("connection lost"))

	archive, err := engine.Backup(context.Background())
	assert.Nil(t, archive)
	assert.ErrorContains(t, err, "dump venditori")
}

func TestBackup_ListTablesError(t *testing.T) {
	engine, mock := setupEngine(t)

	mock.ExpectQuery(regexp.QuoteMeta(listTablesSQL)).WillReturnError(errors.New("auth failed"))

	_, err := engine.Backup(context.Background())
	assert.ErrorContains(t, err, "list tables")
}

func TestFormatValue(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 30, 0, 500000000, time.UTC)
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{[]byte("abc"), "abc"},
		{"Sì", "Sì"},
		{int64(42), "42"},
		{true, "true"},
		{1.5, "1.5"},
		{ts, "2024-05-01 10:30:00.5+00:00"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, formatValue(c.in))
	}
}
