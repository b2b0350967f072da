package processor

import (
	"errors"
	"time"
)

// StatusCompleted 源数据中"已执行"航班的状态字面值
const StatusCompleted = "Realizado"

var ErrMissingColumn = errors.New("required column missing")

// RawFlightRecord 一条历史航段，时间字段保留原始文本
type RawFlightRecord struct {
	Airline            string
	Origin             string
	Destination        string
	OriginCoords       Coordinates
	DestCoords         Coordinates
	ScheduledDeparture string
	ActualDeparture    string
	ActualArrival      string
	Status             string
}

// FeatureRecord 通过全部过滤条件并完成派生计算的记录
type FeatureRecord struct {
	Airline     string
	Origin      string
	Destination string

	ScheduledDeparture time.Time
	ActualDeparture    time.Time
	ActualArrival      time.Time

	DistanceKm      float64
	DelayMinutes    float64
	DurationMinutes float64
	Hour            int
	DayOfWeek       int // 周一为0
	Month           int
	IsHoliday       int
	Target          int
}

// Columns 逻辑字段到源数据列名的映射
type Columns struct {
	Status             string
	Airline            string
	Origin             string
	Destination        string
	OriginLat          string
	OriginLon          string
	DestLat            string
	DestLon            string
	ScheduledDeparture string
	ActualDeparture    string
	ActualArrival      string
}

// DefaultColumns BrFlights 数据集的列名
func DefaultColumns() Columns {
	return Columns{
		Status:             "Situacao.Voo",
		Airline:            "Companhia.Aerea",
		Origin:             "Aeroporto.Origem",
		Destination:        "Aeroporto.Destino",
		OriginLat:          "LatOrig",
		OriginLon:          "LongOrig",
		DestLat:            "LatDest",
		DestLon:            "LongDest",
		ScheduledDeparture: "Partida.Prevista",
		ActualDeparture:    "Partida.Real",
		ActualArrival:      "Chegada.Real",
	}
}

// ColumnSource 提供列名覆盖，例如 config.DataConfig
type ColumnSource interface {
	GetFlightData(key string) string
}

// ColumnsFrom 以默认列名为基础，应用 src 中非空的覆盖项
func ColumnsFrom(src ColumnSource) Columns {
	cols := DefaultColumns()
	if src == nil {
		return cols
	}
	override := func(dst *string, key string) {
		if v := src.GetFlightData(key); v != "" {
			*dst = v
		}
	}
	override(&cols.Status, "status")
	override(&cols.Airline, "airline")
	override(&cols.Origin, "origin")
	override(&cols.Destination, "destination")
	override(&cols.OriginLat, "latOrig")
	override(&cols.OriginLon, "lonOrig")
	override(&cols.DestLat, "latDest")
	override(&cols.DestLon, "lonDest")
	override(&cols.ScheduledDeparture, "scheduledDeparture")
	override(&cols.ActualDeparture, "actualDeparture")
	override(&cols.ActualArrival, "actualArrival")
	return cols
}

func (c Columns) required() []string {
	return []string{
		c.Status, c.Airline, c.Origin, c.Destination,
		c.OriginLat, c.OriginLon, c.DestLat, c.DestLon,
		c.ScheduledDeparture, c.ActualDeparture, c.ActualArrival,
	}
}

func (c Columns) coordinates() []string {
	return []string{c.OriginLat, c.OriginLon, c.DestLat, c.DestLon}
}

func (c Columns) timestamps() []string {
	return []string{c.ScheduledDeparture, c.ActualDeparture, c.ActualArrival}
}
