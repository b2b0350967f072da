package model

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// computeBorders 为单个特征计算切分边界
//
// 取值种类不超过 maxBorders+1 时使用相邻取值的中点；
// 否则按经验分位数取边界，再移到相邻两个观测值之间。
func computeBorders(values []float64, maxBorders int) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	uniq := uniqueSorted(sorted)
	if len(uniq) <= 1 || maxBorders <= 0 {
		return nil
	}

	if len(uniq)-1 <= maxBorders {
		borders := make([]float64, len(uniq)-1)
		for i := range borders {
			borders[i] = (uniq[i] + uniq[i+1]) / 2
		}
		return borders
	}

	borders := make([]float64, 0, maxBorders)
	for k := 1; k <= maxBorders; k++ {
		q := stat.Quantile(float64(k)/float64(maxBorders+1), stat.Empirical, sorted, nil)
		idx := sort.SearchFloat64s(uniq, q)
		if idx >= len(uniq)-1 {
			continue
		}
		b := (uniq[idx] + uniq[idx+1]) / 2
		if len(borders) == 0 || b > borders[len(borders)-1] {
			borders = append(borders, b)
		}
	}
	return borders
}

func uniqueSorted(sorted []float64) []float64 {
	out := make([]float64, 0, len(sorted))
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return out
}

// binIndex 严格小于 v 的边界个数；v > borders[b] 等价于 binIndex > b
func binIndex(borders []float64, v float64) int {
	return sort.SearchFloat64s(borders, v)
}
