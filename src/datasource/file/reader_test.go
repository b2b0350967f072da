package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
)

// ---------------------------------------------------------------------------
// Reader
// ---------------------------------------------------------------------------

func TestEnsureInput(t *testing.T) {
	dir := t.TempDir()

	err := EnsureInput(filepath.Join(dir, "missing.csv"))
	assert.ErrorIs(t, err, ErrInputNotFound)

	err = EnsureInput(dir)
	assert.ErrorIs(t, err, ErrInputNotFound)

	path := filepath.Join(dir, "ok.csv")
	require.NoError(t, os.WriteFile(path, []byte("a\n1\n"), 0o644))
	assert.NoError(t, EnsureInput(path))
}

func TestReadCSVDecodesLatin1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voos.csv")
	content := []byte("Companhia.Aerea,Cidade.Origem,LatOrig\nGOL,S\xe3o Paulo,-23.43\nAZUL,Bel\xe9m,\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	df, err := Load(path, "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Companhia.Aerea", "Cidade.Origem", "LatOrig"}, df.Names())
	assert.Equal(t, 2, df.Nrow())

	city := df.Col("Cidade.Origem")
	assert.Equal(t, "São Paulo", city.Elem(0).String())
	assert.Equal(t, "Belém", city.Elem(1).String())

	lat := df.Col("LatOrig")
	assert.Equal(t, series.String, lat.Type())
	assert.Equal(t, "-23.43", lat.Elem(0).String())
	assert.True(t, lat.Elem(1).IsNA())
}

func TestReadCSVUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voos.csv")
	require.NoError(t, os.WriteFile(path, []byte("Cidade\nSão Paulo\n"), 0o644))

	df, err := ReadCSVToDataFrame(path, "utf-8")
	require.NoError(t, err)
	assert.Equal(t, "São Paulo", df.Col("Cidade").Elem(0).String())

	_, err = ReadCSVToDataFrame(path, "ebcdic")
	assert.Error(t, err)
}

func TestLoadMissingAndUnsupported(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "BrFlights2.csv"), "", DefaultEncoding)
	assert.ErrorIs(t, err, ErrInputNotFound)

	path := filepath.Join(dir, "voos.parquet")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	_, err = Load(path, "", "")
	assert.Error(t, err)
}

func writeSheet(t *testing.T, path, name string, rows [][]string) {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(name)
	require.NoError(t, err)
	for _, r := range rows {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().Value = v
		}
	}
	require.NoError(t, f.Save(path))
}

func TestReadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voos.xlsx")
	writeSheet(t, path, "voos", [][]string{
		{"Companhia.Aerea", "Partida.Prevista", "Chegada.Real"},
		{"GOL", "42370.5", "2016-01-01 14:00:00"},
		{"AZUL", "42371.25", ""},
	})

	df, err := Load(path, "voos", "")
	require.NoError(t, err)
	assert.Equal(t, 2, df.Nrow())
	assert.Equal(t, []string{"Companhia.Aerea", "Partida.Prevista", "Chegada.Real"}, df.Names())
	assert.True(t, df.Col("Chegada.Real").Elem(1).IsNA())

	df = NormalizeExcelTimes(df, "Partida.Prevista", "Chegada.Real", "Missing")
	assert.Equal(t, "2016-01-01 12:00:00", df.Col("Partida.Prevista").Elem(0).String())
	assert.Equal(t, "2016-01-02 06:00:00", df.Col("Partida.Prevista").Elem(1).String())
	assert.Equal(t, "2016-01-01 14:00:00", df.Col("Chegada.Real").Elem(0).String())

	_, err = ReadXLSXToDataFrame(path, "other")
	assert.Error(t, err)

	first, err := ReadXLSXToDataFrame(path, "")
	require.NoError(t, err)
	assert.Equal(t, 2, first.Nrow())
}

func TestExcelToTimeLeavesTextAlone(t *testing.T) {
	df := dataframe.New(series.New([]string{"2016-01-01T10:00:00Z", "abc"}, series.String, "t"))
	df = NormalizeExcelTimes(df, "t")
	assert.Equal(t, []string{"2016-01-01T10:00:00Z", "abc"}, df.Col("t").Records())
}

// ---------------------------------------------------------------------------
// Monitor
// ---------------------------------------------------------------------------

func TestFileMonitorDetectsWrites(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "BrFlights2.csv")

	m, err := NewFileMonitor(target, 50*time.Millisecond)
	require.NoError(t, err)
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- m.Watch(ctx, func(path string) { changed <- path })
	}()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.csv"), []byte("x\n"), 0o644))
	require.NoError(t, os.WriteFile(target, []byte("a,b\n1,2\n"), 0o644))

	select {
	case got := <-changed:
		assert.Equal(t, m.Target(), got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
	assert.Empty(t, changed)
}
