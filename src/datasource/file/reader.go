// reader.go
package file

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"FlightOnTime/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// DefaultEncoding BrFlights 数据集以 latin1 编码发布
const DefaultEncoding = "latin1"

var ErrInputNotFound = errors.New("input dataset not found")

// naValues 读入时视为缺失的单元格文本
var naValues = []string{"", "NA", "NaN", "nan", "null", "NULL"}

// excelSerial Excel 序列日期（可带小数部分）
var excelSerial = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// EnsureInput 检查数据集是否存在且为普通文件
func EnsureInput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrInputNotFound, path)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInputNotFound, path)
	}
	return nil
}

// Load 按扩展名选择读取方式，所有列均按字符串读入
func Load(path, sheetName, encoding string) (dataframe.DataFrame, error) {
	if err := EnsureInput(path); err != nil {
		return dataframe.DataFrame{}, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadXLSXToDataFrame(path, sheetName)
	case ".csv", ".txt", "":
		return ReadCSVToDataFrame(path, encoding)
	default:
		return dataframe.DataFrame{}, fmt.Errorf("unsupported dataset format: %s", path)
	}
}

// ReadCSVToDataFrame 读取带表头的 CSV，先按 encoding 转为 UTF-8
func ReadCSVToDataFrame(filePath, encoding string) (dataframe.DataFrame, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to open csv file: %w", err)
	}
	defer f.Close()

	r, err := charsetReader(encoding, f)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(naValues),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to parse csv %s: %w", filePath, df.Err)
	}
	return df, nil
}

// charsetReader 字符集转换器，支持 latin1/windows-1252 转 UTF-8
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "latin1", "latin-1", "iso-8859-1", "iso8859-1":
		return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
	case "cp1252", "windows-1252":
		return transform.NewReader(input, charmap.Windows1252.NewDecoder()), nil
	case "utf-8", "utf8":
		return input, nil
	default:
		return nil, fmt.Errorf("unsupported encoding: %s", charset)
	}
}

// ReadXLSXToDataFrame 读取工作表，第一行为表头。sheetName 为空时取第一个工作表
func ReadXLSXToDataFrame(filePath, sheetName string) (dataframe.DataFrame, error) {
	// 1. 使用tealeg/xlsx打开Excel文件
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to open xlsx file: %w", err)
	}
	if len(xlFile.Sheets) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("excel文件中没有工作表: %s", filePath)
	}

	// 2. 定位工作表
	sheet := xlFile.Sheets[0]
	if sheetName != "" {
		s, ok := xlFile.Sheet[sheetName]
		if !ok {
			return dataframe.DataFrame{}, fmt.Errorf("sheet %q not found in %s", sheetName, filePath)
		}
		sheet = s
	}

	// 3. 转换为Gota DataFrame
	df, err := convertSheetToDataFrame(sheet)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("sheet %s: %w", sheet.Name, err)
	}
	return df, nil
}

// convertSheetToDataFrame 将xlsx.Sheet转换为dataframe.DataFrame
func convertSheetToDataFrame(sheet *xlsx.Sheet) (dataframe.DataFrame, error) {
	if len(sheet.Rows) == 0 {
		return dataframe.DataFrame{}, errors.New("empty sheet")
	}

	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, strings.TrimSpace(cell.Value))
	}
	if len(headers) == 0 {
		return dataframe.DataFrame{}, errors.New("header row is empty")
	}

	columns := make([][]string, len(headers))
	for i := range columns {
		columns[i] = make([]string, 0, len(sheet.Rows)-1)
	}

	// 行尾的空单元格会被省略，需要补齐
	for _, row := range sheet.Rows[1:] {
		if row == nil {
			continue
		}
		for i := range headers {
			value := "NaN"
			if i < len(row.Cells) {
				if v := strings.TrimSpace(row.Cells[i].Value); !utils.Contains(naValues, v) {
					value = v
				}
			}
			columns[i] = append(columns[i], value)
		}
	}

	seriesList := make([]series.Series, len(headers))
	for i, colName := range headers {
		seriesList[i] = series.New(columns[i], series.String, colName)
	}
	df := dataframe.New(seriesList...)
	return df, df.Err
}

// NormalizeExcelTimes 将指定列中的 Excel 序列日期转为 "2006-01-02 15:04:05" 文本，其它值保持不变
func NormalizeExcelTimes(df dataframe.DataFrame, cols ...string) dataframe.DataFrame {
	names := make(map[string]bool, len(df.Names()))
	for _, n := range df.Names() {
		names[n] = true
	}
	for _, col := range cols {
		if !names[col] {
			continue
		}
		df = df.Mutate(series.New(df.Col(col).Map(excelToTime), series.String, col))
	}
	return df
}

// excelToTime excel时间类型转文本时间
func excelToTime(v series.Element) series.Element {
	if v.IsNA() || !excelSerial.MatchString(v.String()) {
		return v
	}
	excelDays, err := strconv.ParseFloat(v.String(), 64)
	if err != nil {
		return v
	}

	// 1899-12-30 为基准已抵消 1900 闰年问题（序列号 > 60）
	base := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	days := int(excelDays)
	fraction := excelDays - float64(days)
	result := base.AddDate(0, 0, days).
		Add(time.Duration(fraction * 86400 * float64(time.Second)).Round(time.Second))

	v.Set(result.Format("2006-01-02 15:04:05"))
	return v
}
