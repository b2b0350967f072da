package processor

import (
	"errors"
	"fmt"
	"sort"
)

// 类别字段名，同时作为产出物中编码表的键
const (
	FieldAirline     = "companhia"
	FieldOrigin      = "origem"
	FieldDestination = "destino"
)

var ErrUnknownCategory = errors.New("category not seen during fit")

// CategoricalEncoder 将字符串类别映射为 0..k-1 的整数编码
//
// 编码按字符串排序分配，同一语料重复拟合得到相同编码。
// 拟合后不可修改。
type CategoricalEncoder struct {
	field   string
	classes []string
	index   map[string]int
}

// FitEncoder 基于观测到的全部取值构建编码表
func FitEncoder(field string, values []string) *CategoricalEncoder {
	index := make(map[string]int)
	for _, v := range values {
		index[v] = 0
	}
	classes := make([]string, 0, len(index))
	for v := range index {
		classes = append(classes, v)
	}
	sort.Strings(classes)
	for i, v := range classes {
		index[v] = i
	}
	return &CategoricalEncoder{field: field, classes: classes, index: index}
}

// EncoderFromMapping 从持久化的映射恢复编码器，映射必须覆盖 0..k-1
func EncoderFromMapping(field string, mapping map[string]int) (*CategoricalEncoder, error) {
	classes := make([]string, len(mapping))
	filled := make([]bool, len(mapping))
	index := make(map[string]int, len(mapping))
	for v, code := range mapping {
		if code < 0 || code >= len(mapping) || filled[code] {
			return nil, fmt.Errorf("encoder %s: invalid code %d for %q", field, code, v)
		}
		classes[code] = v
		filled[code] = true
		index[v] = code
	}
	return &CategoricalEncoder{field: field, classes: classes, index: index}, nil
}

func (e *CategoricalEncoder) Field() string { return e.field }

func (e *CategoricalEncoder) Len() int { return len(e.classes) }

// Classes 按编码顺序返回类别（副本）
func (e *CategoricalEncoder) Classes() []string {
	return append([]string(nil), e.classes...)
}

func (e *CategoricalEncoder) Encode(value string) (int, bool) {
	code, ok := e.index[value]
	return code, ok
}

func (e *CategoricalEncoder) Decode(code int) (string, bool) {
	if code < 0 || code >= len(e.classes) {
		return "", false
	}
	return e.classes[code], true
}

// Mapping 字符串 -> 编码（副本），用于持久化
func (e *CategoricalEncoder) Mapping() map[string]int {
	m := make(map[string]int, len(e.index))
	for k, v := range e.index {
		m[k] = v
	}
	return m
}

// Encoders 三个类别字段的编码器
type Encoders struct {
	Airline     *CategoricalEncoder
	Origin      *CategoricalEncoder
	Destination *CategoricalEncoder
}

// FitEncoders 在完整语料上一次性拟合三个编码器
func FitEncoders(records []FeatureRecord) Encoders {
	airline := make([]string, len(records))
	origin := make([]string, len(records))
	dest := make([]string, len(records))
	for i, r := range records {
		airline[i], origin[i], dest[i] = r.Airline, r.Origin, r.Destination
	}
	return Encoders{
		Airline:     FitEncoder(FieldAirline, airline),
		Origin:      FitEncoder(FieldOrigin, origin),
		Destination: FitEncoder(FieldDestination, dest),
	}
}

// Mappings 以字段名为键的编码表
func (es Encoders) Mappings() map[string]map[string]int {
	return map[string]map[string]int{
		FieldAirline:     es.Airline.Mapping(),
		FieldOrigin:      es.Origin.Mapping(),
		FieldDestination: es.Destination.Mapping(),
	}
}

// EncodersFromMappings 从产出物中的编码表恢复
func EncodersFromMappings(m map[string]map[string]int) (Encoders, error) {
	var es Encoders
	var err error
	for _, f := range []struct {
		field string
		dst   **CategoricalEncoder
	}{
		{FieldAirline, &es.Airline},
		{FieldOrigin, &es.Origin},
		{FieldDestination, &es.Destination},
	} {
		mapping, ok := m[f.field]
		if !ok {
			return Encoders{}, fmt.Errorf("encoder %s: mapping missing", f.field)
		}
		if *f.dst, err = EncoderFromMapping(f.field, mapping); err != nil {
			return Encoders{}, err
		}
	}
	return es, nil
}
