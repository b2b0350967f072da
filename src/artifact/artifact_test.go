package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"FlightOnTime/src/model"
	"FlightOnTime/src/processor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Test Helpers
// ---------------------------------------------------------------------------

func trainedArtifact(t *testing.T) *Artifact {
	t.Helper()
	airlines := []string{"GOL", "AZUL", "TAM"}
	airports := []string{"SBGR", "SBGL", "SBKP", "SBBR"}
	base := time.Date(2016, 3, 1, 0, 0, 0, 0, time.UTC)

	records := make([]processor.FeatureRecord, 0, 240)
	for i := 0; i < 240; i++ {
		sched := base.Add(time.Duration(i) * 97 * time.Minute)
		r := processor.FeatureRecord{
			Airline:            airlines[i%len(airlines)],
			Origin:             airports[i%len(airports)],
			Destination:        airports[(i+1)%len(airports)],
			ScheduledDeparture: sched,
			DistanceKm:         float64(300 + i%7*50),
			Hour:               sched.Hour(),
			DayOfWeek:          processor.MondayFirstWeekday(sched),
			Month:              int(sched.Month()),
		}
		if r.Hour >= 18 {
			r.Target = 1
		}
		records = append(records, r)
	}

	es := processor.FitEncoders(records)
	m, err := processor.BuildMatrix(records, es)
	require.NoError(t, err)

	p := model.DefaultParams()
	p.Iterations = 20
	p.Depth = 3
	clf, err := model.NewTrainer(p).Fit(m.X, m.Y)
	require.NoError(t, err)
	return Build(clf, es, m, "data/BrFlights2.csv", nil)
}

// constantArtifact 单棵常数树，任何输入的概率都是 0.5
func constantArtifact() *Artifact {
	es := processor.FitEncoders([]processor.FeatureRecord{
		{Airline: "GOL", Origin: "SBGR", Destination: "SBGL"},
	})
	return &Artifact{
		Model: &model.GradientBoostedClassifier{
			NumFeatures: len(processor.FeatureNames()),
			Trees:       []model.ObliviousTree{{Leaves: []float64{0}}},
		},
		Encoders: es.Mappings(),
		Features: processor.FeatureNames(),
		Metadata: Metadata{Threshold: 0.5},
	}
}

// ---------------------------------------------------------------------------
// Build / Export / Load
// ---------------------------------------------------------------------------

func TestBuildMetadata(t *testing.T) {
	a := trainedArtifact(t)

	assert.Equal(t, 0.40, a.Metadata.Threshold)
	assert.Equal(t, RecommendedThreshold, a.Metadata.Threshold)
	assert.Equal(t, Author, a.Metadata.Author)
	assert.Contains(t, a.Metadata.Note, "0.40")
	assert.Equal(t, 240, a.Metadata.Samples)
	assert.Equal(t, 59, a.Metadata.Positives)
	assert.Equal(t, processor.FeatureNames(), a.Features)
	assert.Len(t, a.Encoders, 3)
	assert.Equal(t, map[string]int{"AZUL": 0, "GOL": 1, "TAM": 2}, a.Encoders[processor.FieldAirline])
}

func TestExportLoadRoundTrip(t *testing.T) {
	a := trainedArtifact(t)
	path := filepath.Join(t.TempDir(), "models", "flight_classifier_mvp.json")
	require.NoError(t, a.Export(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, a.Encoders, loaded.Encoders)
	assert.Equal(t, a.Features, loaded.Features)
	assert.Equal(t, 0.40, loaded.Metadata.Threshold)
	assert.True(t, a.Metadata.TrainedAt.Equal(loaded.Metadata.TrainedAt))
	require.Len(t, loaded.Model.Trees, len(a.Model.Trees))

	flight := Flight{
		Airline:            "GOL",
		Origin:             "SBGR",
		Destination:        "SBGL",
		DistanceKm:         359,
		ScheduledDeparture: time.Date(2016, 3, 2, 19, 30, 0, 0, time.UTC),
	}
	v1, err := a.EncodeRecord(flight)
	require.NoError(t, err)
	v2, err := loaded.EncodeRecord(flight)
	require.NoError(t, err)
	assert.Equal(t, v1, v2)

	p1, _, err := a.Predict(v1)
	require.NoError(t, err)
	p2, _, err := loaded.Predict(v2)
	require.NoError(t, err)
	assert.InDelta(t, p1, p2, 1e-12)
}

func TestArtifactJSONKeys(t *testing.T) {
	a := trainedArtifact(t)
	data, err := json.Marshal(a)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	for _, key := range []string{"model", "encoders", "features", "metadata"} {
		assert.Contains(t, doc, key)
	}

	var meta map[string]any
	require.NoError(t, json.Unmarshal(doc["metadata"], &meta))
	for _, key := range []string{"autor", "versao", "tecnologia", "threshold_recomendado", "nota_tecnica"} {
		assert.Contains(t, meta, key)
	}
	assert.Equal(t, 0.4, meta["threshold_recomendado"])
}

func TestExportOverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	a := constantArtifact()
	require.NoError(t, a.Export(path))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "model.json", entries[0].Name())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, loaded.Model.Trees, 1)
}

func TestExportInvalidLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")

	a := constantArtifact()
	a.Model = nil
	assert.ErrorIs(t, a.Export(path), ErrInvalidArtifact)

	a = constantArtifact()
	a.Features = a.Features[:7]
	assert.ErrorIs(t, a.Export(path), ErrInvalidArtifact)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoadRejectsCorruptFiles(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"model": `), 0o644))
	_, err = Load(bad)
	assert.ErrorIs(t, err, ErrInvalidArtifact)

	a := constantArtifact()
	a.Encoders = map[string]map[string]int{processor.FieldAirline: {"GOL": 0}}
	noEncoders := filepath.Join(dir, "partial.json")
	require.NoError(t, a.Export(noEncoders))
	_, err = Load(noEncoders)
	assert.ErrorIs(t, err, ErrInvalidArtifact)

	// 手工改坏的树结构：Export 会拒绝，直接写文件
	for name, tree := range map[string]model.ObliviousTree{
		"feature.json": {Splits: []model.Split{{Feature: 42}}, Leaves: []float64{0.1, 0.2}},
		"leaves.json":  {Splits: []model.Split{{Feature: 0}}, Leaves: []float64{0.1}},
	} {
		broken := constantArtifact()
		broken.Model.Trees = []model.ObliviousTree{tree}
		assert.ErrorIs(t, broken.Export(filepath.Join(dir, "export-"+name)), ErrInvalidArtifact)

		data, err := json.Marshal(broken)
		require.NoError(t, err)
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, data, 0o644))

		_, err = Load(path)
		assert.ErrorIs(t, err, ErrInvalidArtifact, name)
	}
}

// ---------------------------------------------------------------------------
// Predict / EncodeRecord
// ---------------------------------------------------------------------------

func TestPredictThresholdIsInclusive(t *testing.T) {
	a := constantArtifact()
	v := make([]float64, len(a.Features))

	p, late, err := a.Predict(v)
	require.NoError(t, err)
	assert.Equal(t, 0.5, p)
	assert.True(t, late)

	a.Metadata.Threshold = 0.5000001
	_, late, err = a.Predict(v)
	require.NoError(t, err)
	assert.False(t, late)

	_, _, err = a.Predict(v[:3])
	assert.Error(t, err)
}

func TestEncodeRecord(t *testing.T) {
	a := trainedArtifact(t)

	christmas := Flight{
		Airline:            "TAM",
		Origin:             "SBKP",
		Destination:        "SBBR",
		DistanceKm:         872.5,
		ScheduledDeparture: time.Date(2016, 12, 25, 23, 50, 0, 0, time.UTC),
	}
	v, err := a.EncodeRecord(christmas)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3, 0, 872.5, 23, 6, 12, 1}, v)

	christmas.Airline = "PASSAREDO"
	_, err = a.EncodeRecord(christmas)
	assert.ErrorIs(t, err, processor.ErrUnknownCategory)
}

type dateCalendar map[string]bool

func (c dateCalendar) IsHoliday(t time.Time) bool { return c[t.Format("2006-01-02")] }

func TestEncodeRecordUsesTrainingCalendar(t *testing.T) {
	base := constantArtifact()
	es, err := processor.EncodersFromMappings(base.Encoders)
	require.NoError(t, err)

	f := Flight{
		Airline:            "GOL",
		Origin:             "SBGR",
		Destination:        "SBGL",
		DistanceKm:         338.5,
		ScheduledDeparture: time.Date(2016, 6, 15, 9, 0, 0, 0, time.UTC),
	}
	holidayIdx := len(processor.FeatureNames()) - 1

	a := Build(base.Model, es, processor.Matrix{}, "", dateCalendar{"2016-06-15": true})
	v, err := a.EncodeRecord(f)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v[holidayIdx])

	a = Build(base.Model, es, processor.Matrix{}, "", nil)
	v, err = a.EncodeRecord(f)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v[holidayIdx])

	a.SetCalendar(dateCalendar{"2016-06-15": true})
	v, err = a.EncodeRecord(f)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v[holidayIdx])
}
