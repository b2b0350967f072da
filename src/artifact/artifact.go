package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"FlightOnTime/src/model"
	"FlightOnTime/src/processor"
)

// RecommendedThreshold 业务设定的决策阈值，概率 >= 0.40 判为晚点
//
// 固定值，不从数据推导。
const RecommendedThreshold = 0.40

const (
	Author    = "Time Data Science"
	Version   = "3.0.0-GBT"
	Technique = "Gradient Boosting (oblivious trees, logloss)"
	Note      = "Threshold 0.40 fixado manualmente (Business Override) para garantir Recall > 89%"
)

var ErrInvalidArtifact = errors.New("invalid artifact")

// Metadata 产出物的说明信息
type Metadata struct {
	Author      string    `json:"autor"`
	Version     string    `json:"versao"`
	Technique   string    `json:"tecnologia"`
	Threshold   float64   `json:"threshold_recomendado"`
	Note        string    `json:"nota_tecnica"`
	TrainedAt   time.Time `json:"treinado_em"`
	Samples     int       `json:"amostras"`
	Positives   int       `json:"positivos"`
	DatasetPath string    `json:"dataset,omitempty"`
}

// Artifact 模型、编码表、特征顺序和元数据，整体作为一个文件交付
type Artifact struct {
	Model    *model.GradientBoostedClassifier `json:"model"`
	Encoders map[string]map[string]int        `json:"encoders"`
	Features []string                         `json:"features"`
	Metadata Metadata                         `json:"metadata"`

	encoders processor.Encoders
	calendar processor.HolidayCalendar
}

// Build 组装产出物。calendar 须与训练时派生 is_holiday 所用的一致，nil 取巴西全国节假日
func Build(clf *model.GradientBoostedClassifier, es processor.Encoders, m processor.Matrix, dataset string, calendar processor.HolidayCalendar) *Artifact {
	if calendar == nil {
		calendar = processor.NewBrazilHolidays()
	}
	return &Artifact{
		Model:    clf,
		Encoders: es.Mappings(),
		Features: processor.FeatureNames(),
		Metadata: Metadata{
			Author:      Author,
			Version:     Version,
			Technique:   Technique,
			Threshold:   RecommendedThreshold,
			Note:        Note,
			TrainedAt:   time.Now().UTC().Truncate(time.Second),
			Samples:     m.Rows(),
			Positives:   m.Positives(),
			DatasetPath: dataset,
		},
		encoders: es,
		calendar: calendar,
	}
}

// Export 写入 path，已存在则覆盖。先写同目录临时文件再改名，失败时不留下半成品
func (a *Artifact) Export(path string) error {
	if err := a.check(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // 改名成功后为空操作

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("chmod artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace artifact: %w", err)
	}
	return nil
}

// SetCalendar 替换 EncodeRecord 使用的节假日日历，加载后默认为巴西全国节假日
func (a *Artifact) SetCalendar(calendar processor.HolidayCalendar) {
	if calendar == nil {
		calendar = processor.NewBrazilHolidays()
	}
	a.calendar = calendar
}

// Load 读取并校验产出物
func Load(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	if err := a.check(); err != nil {
		return nil, err
	}
	es, err := processor.EncodersFromMappings(a.Encoders)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	a.encoders = es
	a.calendar = processor.NewBrazilHolidays()
	return &a, nil
}

func (a *Artifact) check() error {
	if a.Model == nil {
		return fmt.Errorf("%w: model missing", ErrInvalidArtifact)
	}
	want := processor.FeatureNames()
	if len(a.Features) != len(want) {
		return fmt.Errorf("%w: expected %d features, got %d", ErrInvalidArtifact, len(want), len(a.Features))
	}
	for i, name := range want {
		if a.Features[i] != name {
			return fmt.Errorf("%w: feature %d is %q, expected %q", ErrInvalidArtifact, i, a.Features[i], name)
		}
	}
	if a.Model.NumFeatures != len(want) {
		return fmt.Errorf("%w: model expects %d features", ErrInvalidArtifact, a.Model.NumFeatures)
	}
	if err := a.Model.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	return nil
}

// Predict 返回晚点概率以及按推荐阈值（含等号）得到的判定
func (a *Artifact) Predict(vector []float64) (float64, bool, error) {
	if len(vector) != len(a.Features) {
		return 0, false, fmt.Errorf("vector has %d values, expected %d", len(vector), len(a.Features))
	}
	p := a.Model.PredictProba(vector)
	return p, p >= a.Metadata.Threshold, nil
}

// Flight 待预测航班的原始信息
type Flight struct {
	Airline            string
	Origin             string
	Destination        string
	DistanceKm         float64
	ScheduledDeparture time.Time
}

// EncodeRecord 按特征顺序构造向量，类别未在训练中出现时返回 processor.ErrUnknownCategory
func (a *Artifact) EncodeRecord(f Flight) ([]float64, error) {
	s := f.ScheduledDeparture
	r := processor.FeatureRecord{
		Airline:            f.Airline,
		Origin:             f.Origin,
		Destination:        f.Destination,
		ScheduledDeparture: s,
		DistanceKm:         f.DistanceKm,
		Hour:               s.Hour(),
		DayOfWeek:          processor.MondayFirstWeekday(s),
		Month:              int(s.Month()),
	}
	if a.calendar.IsHoliday(processor.FlightDate(s)) {
		r.IsHoliday = 1
	}
	return a.encoders.Vector(r)
}
