package model

import "gonum.org/v1/gonum/floats"

// Summary 训练集上按给定阈值统计的指标，仅作日志参考，不是留出评估
type Summary struct {
	Rows      int     `json:"rows"`
	Positives int     `json:"positives"`
	Threshold float64 `json:"threshold"`
	Recall    float64 `json:"recall"`
	Precision float64 `json:"precision"`
	Accuracy  float64 `json:"accuracy"`
	MeanProba float64 `json:"mean_proba"`
}

// Summarize 概率 >= threshold 判为正类
func Summarize(c Classifier, x [][]float64, y []int, threshold float64) Summary {
	s := Summary{Rows: len(x), Threshold: threshold}
	if len(x) == 0 {
		return s
	}
	probs := make([]float64, len(x))
	var tp, fp, tn, fn int
	for i, row := range x {
		probs[i] = c.PredictProba(row)
		pred := probs[i] >= threshold
		switch {
		case pred && y[i] == 1:
			tp++
		case pred && y[i] == 0:
			fp++
		case !pred && y[i] == 0:
			tn++
		default:
			fn++
		}
	}
	s.Positives = tp + fn
	if tp+fn > 0 {
		s.Recall = float64(tp) / float64(tp+fn)
	}
	if tp+fp > 0 {
		s.Precision = float64(tp) / float64(tp+fp)
	}
	s.Accuracy = float64(tp+tn) / float64(len(x))
	s.MeanProba = floats.Sum(probs) / float64(len(probs))
	return s
}
