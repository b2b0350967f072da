package processor

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// featureNames 特征向量的列顺序，产出物的消费方必须按此顺序构造向量
var featureNames = [...]string{
	"companhia_encoded",
	"origem_encoded",
	"destino_encoded",
	"distancia_km",
	"hora",
	"dia_semana",
	"mes",
	"is_holiday",
}

// FeatureNames 返回特征列顺序（副本）
func FeatureNames() []string {
	return append([]string(nil), featureNames[:]...)
}

// Matrix 训练用特征矩阵与标签
type Matrix struct {
	Names []string
	X     [][]float64
	Y     []int
}

func (m Matrix) Rows() int { return len(m.X) }

// Positives 标签为1的行数
func (m Matrix) Positives() int {
	n := 0
	for _, y := range m.Y {
		n += y
	}
	return n
}

// Vector 按特征顺序构造单条记录的向量，类别未见过时返回 ErrUnknownCategory
func (es Encoders) Vector(r FeatureRecord) ([]float64, error) {
	a, ok := es.Airline.Encode(r.Airline)
	if !ok {
		return nil, fmt.Errorf("%w: %s=%q", ErrUnknownCategory, FieldAirline, r.Airline)
	}
	o, ok := es.Origin.Encode(r.Origin)
	if !ok {
		return nil, fmt.Errorf("%w: %s=%q", ErrUnknownCategory, FieldOrigin, r.Origin)
	}
	d, ok := es.Destination.Encode(r.Destination)
	if !ok {
		return nil, fmt.Errorf("%w: %s=%q", ErrUnknownCategory, FieldDestination, r.Destination)
	}
	return []float64{
		float64(a),
		float64(o),
		float64(d),
		r.DistanceKm,
		float64(r.Hour),
		float64(r.DayOfWeek),
		float64(r.Month),
		float64(r.IsHoliday),
	}, nil
}

// BuildMatrix 用拟合好的编码器组装特征矩阵
func BuildMatrix(records []FeatureRecord, es Encoders) (Matrix, error) {
	m := Matrix{
		Names: FeatureNames(),
		X:     make([][]float64, len(records)),
		Y:     make([]int, len(records)),
	}
	for i, r := range records {
		v, err := es.Vector(r)
		if err != nil {
			return Matrix{}, fmt.Errorf("row %d: %w", i, err)
		}
		m.X[i] = v
		m.Y[i] = r.Target
	}
	return m, nil
}

// DataFrame 特征矩阵转为 DataFrame（含 target 列），用于导出检查
func (m Matrix) DataFrame() dataframe.DataFrame {
	cols := make([]series.Series, 0, len(m.Names)+1)
	for j, name := range m.Names {
		values := make([]float64, len(m.X))
		for i, row := range m.X {
			values[i] = row[j]
		}
		cols = append(cols, series.New(values, series.Float, name))
	}
	cols = append(cols, series.New(m.Y, series.Int, "target"))
	return dataframe.New(cols...)
}
