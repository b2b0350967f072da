package processor

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"FlightOnTime/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// naString 类别字段缺失时的字符串表示
const naString = "nan"

// CleanStats 清洗各步骤保留/剔除的行数
type CleanStats struct {
	Read              int
	Duplicates        int
	NotCompleted      int
	MissingTimestamps int
	Kept              int
}

// RecordCleaner 负责去重、坐标转换、状态过滤和时间字段完整性过滤
type RecordCleaner struct {
	cols Columns
}

func NewRecordCleaner(cols Columns) *RecordCleaner {
	return &RecordCleaner{cols: cols}
}

// Clean 依次执行清洗步骤，返回类型化记录。缺少必需列时返回 ErrMissingColumn
func (rc *RecordCleaner) Clean(df dataframe.DataFrame) ([]RawFlightRecord, CleanStats, error) {
	var stats CleanStats
	if df.Err != nil {
		return nil, stats, fmt.Errorf("dataframe: %w", df.Err)
	}
	for _, col := range rc.cols.required() {
		if !utils.HasColumn(df, col) {
			return nil, stats, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}
	stats.Read = df.Nrow()

	// 1. 去除完全重复的行
	df = dropDuplicates(df)
	stats.Duplicates = stats.Read - df.Nrow()

	// 2. 坐标列转为数值，无法解析的置为缺失
	for _, col := range rc.cols.coordinates() {
		df = df.Mutate(coerceNumeric(df.Col(col)))
	}

	// 3. 只保留已执行航班
	before := df.Nrow()
	df = rc.keepCompleted(df)
	stats.NotCompleted = before - df.Nrow()

	// 4. 三个时间字段必须齐全
	before = df.Nrow()
	df = rc.keepWithTimestamps(df)
	stats.MissingTimestamps = before - df.Nrow()

	records := rc.toRecords(df)
	stats.Kept = len(records)
	return records, stats, nil
}

// dropDuplicates 按整行内容的 md5 去重，保留首次出现的行
func dropDuplicates(df dataframe.DataFrame) dataframe.DataFrame {
	if df.Nrow() == 0 {
		return df
	}
	records := df.Records()[1:] // 跳过列名
	seen := make(map[string]struct{}, len(records))
	keep := make([]int, 0, len(records))
	for i, row := range records {
		hash := md5.Sum([]byte(strings.Join(row, "\x1f")))
		key := hex.EncodeToString(hash[:])
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keep = append(keep, i)
	}
	if len(keep) == len(records) {
		return df
	}
	return df.Subset(keep)
}

// coerceNumeric 逐个元素显式解析，失败的元素成为 NA
func coerceNumeric(s series.Series) series.Series {
	values := make([]string, s.Len())
	for i := 0; i < s.Len(); i++ {
		el := s.Elem(i)
		if el.IsNA() {
			values[i] = "NaN"
			continue
		}
		if _, ok := utils.ParseFloat(el.String()); !ok {
			values[i] = "NaN"
			continue
		}
		values[i] = strings.TrimSpace(el.String())
	}
	return series.New(values, series.Float, s.Name)
}

func (rc *RecordCleaner) keepCompleted(df dataframe.DataFrame) dataframe.DataFrame {
	if df.Nrow() == 0 {
		return df
	}
	return df.Filter(
		dataframe.F{
			Colname:    rc.cols.Status,
			Comparator: series.CompFunc,
			Comparando: func(el series.Element) bool {
				return !el.IsNA() && el.String() == StatusCompleted
			},
		},
	)
}

func (rc *RecordCleaner) keepWithTimestamps(df dataframe.DataFrame) dataframe.DataFrame {
	if df.Nrow() == 0 {
		return df
	}
	present := func(el series.Element) bool {
		return !el.IsNA() && !utils.IsMissing(el.String())
	}
	filters := make([]dataframe.F, 0, 3)
	for _, col := range rc.cols.timestamps() {
		filters = append(filters, dataframe.F{
			Colname:    col,
			Comparator: series.CompFunc,
			Comparando: present,
		})
	}
	return df.FilterAggregation(dataframe.And, filters...)
}

func (rc *RecordCleaner) toRecords(df dataframe.DataFrame) []RawFlightRecord {
	n := df.Nrow()
	if n == 0 {
		return nil
	}
	text := func(col string) []string {
		s := df.Col(col)
		out := make([]string, n)
		for i := 0; i < n; i++ {
			el := s.Elem(i)
			if el.IsNA() {
				out[i] = naString
				continue
			}
			out[i] = el.String()
		}
		return out
	}
	num := func(col string) []NullFloat {
		s := df.Col(col)
		out := make([]NullFloat, n)
		for i := 0; i < n; i++ {
			el := s.Elem(i)
			if el.IsNA() {
				continue
			}
			out[i] = NullFloat{Value: el.Float(), Valid: true}
		}
		return out
	}

	airline, origin, dest := text(rc.cols.Airline), text(rc.cols.Origin), text(rc.cols.Destination)
	status := text(rc.cols.Status)
	sched, dep, arr := text(rc.cols.ScheduledDeparture), text(rc.cols.ActualDeparture), text(rc.cols.ActualArrival)
	latO, lonO := num(rc.cols.OriginLat), num(rc.cols.OriginLon)
	latD, lonD := num(rc.cols.DestLat), num(rc.cols.DestLon)

	records := make([]RawFlightRecord, n)
	for i := 0; i < n; i++ {
		records[i] = RawFlightRecord{
			Airline:            airline[i],
			Origin:             origin[i],
			Destination:        dest[i],
			OriginCoords:       Coordinates{Lat: latO[i], Lon: lonO[i]},
			DestCoords:         Coordinates{Lat: latD[i], Lon: lonD[i]},
			ScheduledDeparture: sched[i],
			ActualDeparture:    dep[i],
			ActualArrival:      arr[i],
			Status:             status[i],
		}
	}
	return records
}
