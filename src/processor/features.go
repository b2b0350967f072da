package processor

import (
	"time"

	"FlightOnTime/src/utils"
)

const (
	// LateThresholdMinutes 起飞延误超过该值即标记为晚点（标签定义，非决策阈值）
	LateThresholdMinutes = 15.0
	// MinDelayMinutes / MaxDelayMinutes 延误合理区间（开区间）
	MinDelayMinutes = -60.0
	MaxDelayMinutes = 1440.0
)

// DeriveStats 特征派生阶段的剔除统计
type DeriveStats struct {
	Input           int
	MissingDistance int
	BadTimestamp    int
	OutOfBand       int
	Kept            int
	Positives       int
}

// FeatureDeriver 计算距离、时间特征、节假日标记与目标标签
type FeatureDeriver struct {
	calendar HolidayCalendar
}

func NewFeatureDeriver(calendar HolidayCalendar) *FeatureDeriver {
	if calendar == nil {
		calendar = NewBrazilHolidays()
	}
	return &FeatureDeriver{calendar: calendar}
}

// Derive 对清洗后的记录派生特征，不满足约束的记录被剔除
func (fd *FeatureDeriver) Derive(records []RawFlightRecord) ([]FeatureRecord, DeriveStats) {
	stats := DeriveStats{Input: len(records)}
	out := make([]FeatureRecord, 0, len(records))

	for _, r := range records {
		// 1. 距离与时间解析
		dist, ok := DistanceKm(r.OriginCoords, r.DestCoords)
		if !ok {
			stats.MissingDistance++
			continue
		}
		sched, ok1 := utils.ParseTime(r.ScheduledDeparture)
		dep, ok2 := utils.ParseTime(r.ActualDeparture)
		arr, ok3 := utils.ParseTime(r.ActualArrival)
		if !ok1 || !ok2 || !ok3 {
			stats.BadTimestamp++
			continue
		}

		// 2. 延误与航程时长
		delay := utils.MinutesBetween(dep, sched)
		duration := utils.MinutesBetween(arr, dep)

		// 3. 异常值直接剔除
		if !InBand(delay, duration) {
			stats.OutOfBand++
			continue
		}

		fr := FeatureRecord{
			Airline:            r.Airline,
			Origin:             r.Origin,
			Destination:        r.Destination,
			ScheduledDeparture: sched,
			ActualDeparture:    dep,
			ActualArrival:      arr,
			DistanceKm:         dist,
			DelayMinutes:       delay,
			DurationMinutes:    duration,
		}
		fd.fillCalendar(&fr)
		fr.Target = Target(delay)
		if fr.Target == 1 {
			stats.Positives++
		}
		out = append(out, fr)
	}
	stats.Kept = len(out)
	return out, stats
}

// fillCalendar 4-5. 节假日与时间特征，全部取自计划起飞时间
func (fd *FeatureDeriver) fillCalendar(fr *FeatureRecord) {
	s := fr.ScheduledDeparture
	if fd.calendar.IsHoliday(FlightDate(s)) {
		fr.IsHoliday = 1
	} else {
		fr.IsHoliday = 0
	}
	fr.Hour = s.Hour()
	fr.DayOfWeek = MondayFirstWeekday(s)
	fr.Month = int(s.Month())
}

// InBand 航程时长为正且延误在 (-60, 1440) 分钟内
func InBand(delayMinutes, durationMinutes float64) bool {
	return durationMinutes > 0 &&
		delayMinutes > MinDelayMinutes &&
		delayMinutes < MaxDelayMinutes
}

// Target 延误严格大于15分钟为1
func Target(delayMinutes float64) int {
	if delayMinutes > LateThresholdMinutes {
		return 1
	}
	return 0
}

// FlightDate 截取日期部分，保留原时区
func FlightDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// MondayFirstWeekday 周一=0 ... 周日=6
func MondayFirstWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
