package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"FlightOnTime/src/artifact"
	"FlightOnTime/src/config"
	"FlightOnTime/src/datasource/file"
	"FlightOnTime/src/model"
	"FlightOnTime/src/processor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Test Helpers
// ---------------------------------------------------------------------------

type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Info(msg string)    { l.lines = append(l.lines, "INFO "+msg) }
func (l *recordingLogger) Warning(msg string) { l.lines = append(l.lines, "WARNING "+msg) }
func (l *recordingLogger) Error(msg string)   { l.lines = append(l.lines, "ERROR "+msg) }

const csvHeader = "Voos,Companhia.Aerea,Justificativa,Referencia,Partida.Prevista,Partida.Real," +
	"Chegada.Prevista,Chegada.Real,Situacao.Voo,Codigo.Justificativa,Aeroporto.Origem," +
	"Cidade.Origem,Estado.Origem,Pais.Origem,Aeroporto.Destino,Cidade.Destino," +
	"Estado.Destino,Pais.Destino,LongDest,LatDest,LongOrig,LatOrig\n"

// writeDataset 写入 latin1 编码的 BrFlights 格式数据集
//
// 每 4 行中 1 行延误 40 分钟，其余准点；前 5 行为取消航班。
func writeDataset(t *testing.T, dir string, n int, late func(i int) bool) string {
	t.Helper()
	var b strings.Builder
	b.WriteString(csvHeader)
	base := time.Date(2016, 4, 1, 6, 0, 0, 0, time.UTC)
	airlines := []string{"GOL", "AZUL LINHAS A\xc9REAS", "TAM"}
	for i := 0; i < n; i++ {
		sched := base.Add(time.Duration(i) * 37 * time.Minute)
		delay := 2 * time.Minute
		if late(i) {
			delay = 40 * time.Minute
		}
		dep := sched.Add(delay)
		arr := dep.Add(65 * time.Minute)
		status := "Realizado"
		if i < 5 {
			status = "Cancelado"
		}
		layout := "2006-01-02T15:04:05Z"
		fmt.Fprintf(&b, "G3%04d,%s,,%s,%s,%s,%s,%s,%s,N,SBGR,S\xe3o Paulo,SP,Brasil,SBGL,Rio De Janeiro,RJ,Brasil,-43.2436,-22.8089,-46.4731,-23.4356\n",
			i, airlines[i%len(airlines)], sched.Format("2006-01-02"),
			sched.Format(layout), dep.Format(layout),
			arr.Format(layout), arr.Format(layout), status)
	}
	path := filepath.Join(dir, "data", "BrFlights2.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func testOptions(dir, dataPath string) Options {
	p := model.DefaultParams()
	p.Iterations = 15
	p.Depth = 3
	return Options{
		DataPath:  dataPath,
		Encoding:  file.DefaultEncoding,
		ModelPath: filepath.Join(dir, "models", "flight_classifier_mvp.json"),
		Columns:   processor.DefaultColumns(),
		Training:  p,
	}
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	dataPath := writeDataset(t, dir, 120, func(i int) bool { return i%4 == 0 })
	opts := testOptions(dir, dataPath)
	opts.FeatureDump = filepath.Join(dir, "out", "features.xlsx")
	logger := &recordingLogger{}

	report, err := Run(opts, logger)
	require.NoError(t, err)

	assert.Equal(t, 120, report.Clean.Read)
	assert.Equal(t, 5, report.Clean.NotCompleted)
	assert.Equal(t, 115, report.Clean.Kept)
	assert.Equal(t, 115, report.Derive.Kept)
	assert.Equal(t, 28, report.Derive.Positives) // i%4==0 且 i>=5
	assert.Equal(t, 15, report.Trees)
	assert.Equal(t, 0.40, report.Summary.Threshold)
	assert.Equal(t, 3, report.Classes[processor.FieldAirline])
	assert.NotEmpty(t, logger.lines)

	a, err := artifact.Load(opts.ModelPath)
	require.NoError(t, err)
	assert.Equal(t, 0.40, a.Metadata.Threshold)
	assert.Equal(t, 115, a.Metadata.Samples)
	assert.Contains(t, a.Encoders[processor.FieldAirline], "AZUL LINHAS AÉREAS")
	assert.Equal(t, processor.FeatureNames(), a.Features)

	_, err = os.Stat(opts.FeatureDump)
	assert.NoError(t, err)
}

func TestRunIsReproducible(t *testing.T) {
	dir := t.TempDir()
	dataPath := writeDataset(t, dir, 80, func(i int) bool { return i%3 == 0 })
	opts := testOptions(dir, dataPath)

	_, err := Run(opts, &recordingLogger{})
	require.NoError(t, err)
	first, err := artifact.Load(opts.ModelPath)
	require.NoError(t, err)

	_, err = Run(opts, &recordingLogger{})
	require.NoError(t, err)
	second, err := artifact.Load(opts.ModelPath)
	require.NoError(t, err)

	assert.Equal(t, first.Model, second.Model)
	assert.Equal(t, first.Encoders, second.Encoders)
}

func TestRunMissingInput(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions(dir, filepath.Join(dir, "data", "BrFlights2.csv"))

	_, err := Run(opts, &recordingLogger{})
	assert.ErrorIs(t, err, file.ErrInputNotFound)

	_, err = os.Stat(opts.ModelPath)
	assert.True(t, os.IsNotExist(err))
}

func TestRunMissingColumn(t *testing.T) {
	dir := t.TempDir()
	dataPath := writeDataset(t, dir, 20, func(i int) bool { return i%2 == 0 })
	opts := testOptions(dir, dataPath)
	opts.Columns.Status = "Status.Voo"

	_, err := Run(opts, &recordingLogger{})
	assert.ErrorIs(t, err, processor.ErrMissingColumn)
}

func TestRunSingleClassLeavesNoArtifact(t *testing.T) {
	dir := t.TempDir()
	dataPath := writeDataset(t, dir, 30, func(int) bool { return false })
	opts := testOptions(dir, dataPath)

	_, err := Run(opts, &recordingLogger{})
	assert.ErrorIs(t, err, model.ErrSingleClass)

	_, err = os.Stat(opts.ModelPath)
	assert.True(t, os.IsNotExist(err))
}

func TestRunEmptyAfterCleaning(t *testing.T) {
	dir := t.TempDir()
	dataPath := writeDataset(t, dir, 5, func(int) bool { return true })
	opts := testOptions(dir, dataPath)

	_, err := Run(opts, &recordingLogger{})
	assert.ErrorIs(t, err, model.ErrEmptyMatrix)
}

func TestOptionsFrom(t *testing.T) {
	cfg := config.Default()
	dcfg := &config.DataConfig{}
	dcfg.SetFlightData("status", "Status")

	opts := OptionsFrom(cfg, dcfg)
	assert.Equal(t, config.DefaultDataPath, opts.DataPath)
	assert.Equal(t, config.DefaultModelPath, opts.ModelPath)
	assert.Equal(t, "Status", opts.Columns.Status)
	assert.Equal(t, "Companhia.Aerea", opts.Columns.Airline)
	assert.Equal(t, model.DefaultParams(), opts.Training)
}
