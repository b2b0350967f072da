package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

var (
	ErrEmptyMatrix = errors.New("empty feature matrix")
	ErrSingleClass = errors.New("target has a single class")
)

const (
	ClassWeightsBalanced = "Balanced"
	ClassWeightsNone     = "None"

	maxDepth = 8
)

// Params 梯度提升训练参数
type Params struct {
	Iterations   int     `json:"iterations" yaml:"iterations"`
	LearningRate float64 `json:"learning_rate" yaml:"learning_rate"`
	Depth        int     `json:"depth" yaml:"depth"`
	L2LeafReg    float64 `json:"l2_leaf_reg" yaml:"l2_leaf_reg"`
	BorderCount  int     `json:"border_count" yaml:"border_count"`
	Subsample    float64 `json:"subsample" yaml:"subsample"`
	RandomSeed   *int64  `json:"random_seed" yaml:"random_seed"` // nil 取默认值，0 是合法种子
	ClassWeights string  `json:"class_weights" yaml:"class_weights"`
}

func DefaultParams() Params {
	return Params{
		Iterations:   100,
		LearningRate: 0.1,
		Depth:        6,
		L2LeafReg:    3,
		BorderCount:  254,
		Subsample:    0.8,
		RandomSeed:   Seed(42),
		ClassWeights: ClassWeightsBalanced,
	}
}

// Seed 返回随机种子指针，便于在字面量中设置
func Seed(v int64) *int64 { return &v }

// WithDefaults 零值字段用默认值补齐
func (p Params) WithDefaults() Params {
	d := DefaultParams()
	if p.Iterations == 0 {
		p.Iterations = d.Iterations
	}
	if p.LearningRate == 0 {
		p.LearningRate = d.LearningRate
	}
	if p.Depth == 0 {
		p.Depth = d.Depth
	}
	if p.L2LeafReg == 0 {
		p.L2LeafReg = d.L2LeafReg
	}
	if p.BorderCount == 0 {
		p.BorderCount = d.BorderCount
	}
	if p.Subsample == 0 {
		p.Subsample = d.Subsample
	}
	if p.RandomSeed == nil {
		p.RandomSeed = d.RandomSeed
	}
	if p.ClassWeights == "" {
		p.ClassWeights = d.ClassWeights
	}
	return p
}

// Validate 检查参数取值范围
func (p Params) Validate() error {
	switch {
	case p.Iterations <= 0:
		return fmt.Errorf("iterations must be positive, got %d", p.Iterations)
	case p.LearningRate <= 0:
		return fmt.Errorf("learning_rate must be positive, got %g", p.LearningRate)
	case p.Depth <= 0 || p.Depth > maxDepth:
		return fmt.Errorf("depth must be in 1..%d, got %d", maxDepth, p.Depth)
	case p.L2LeafReg <= 0:
		return fmt.Errorf("l2_leaf_reg must be positive, got %g", p.L2LeafReg)
	case p.BorderCount <= 0 || p.BorderCount > 254:
		return fmt.Errorf("border_count must be in 1..254, got %d", p.BorderCount)
	case p.Subsample <= 0 || p.Subsample > 1:
		return fmt.Errorf("subsample must be in (0, 1], got %g", p.Subsample)
	case p.ClassWeights != ClassWeightsBalanced && p.ClassWeights != ClassWeightsNone:
		return fmt.Errorf("unknown class_weights %q", p.ClassWeights)
	}
	return nil
}

// Classifier 给定特征向量返回正类概率
type Classifier interface {
	PredictProba(x []float64) float64
}

// GradientBoostedClassifier 对称树梯度提升二分类模型（logloss）
type GradientBoostedClassifier struct {
	NumFeatures  int             `json:"num_features"`
	ClassWeights [2]float64      `json:"class_weights"`
	Params       Params          `json:"params"`
	Trees        []ObliviousTree `json:"trees"`
}

// Validate 检查树结构与特征数一致，反序列化得到的模型须先通过校验再预测
func (c *GradientBoostedClassifier) Validate() error {
	if c.NumFeatures <= 0 {
		return fmt.Errorf("num_features must be positive, got %d", c.NumFeatures)
	}
	for i, t := range c.Trees {
		if len(t.Splits) > maxDepth {
			return fmt.Errorf("tree %d: depth %d exceeds %d", i, len(t.Splits), maxDepth)
		}
		if want := 1 << len(t.Splits); len(t.Leaves) != want {
			return fmt.Errorf("tree %d: %d leaves, want %d", i, len(t.Leaves), want)
		}
		for d, s := range t.Splits {
			if s.Feature < 0 || s.Feature >= c.NumFeatures {
				return fmt.Errorf("tree %d level %d: feature %d out of range", i, d, s.Feature)
			}
		}
	}
	return nil
}

// PredictRaw 对数几率
func (c *GradientBoostedClassifier) PredictRaw(x []float64) float64 {
	raw := 0.0
	for _, t := range c.Trees {
		raw += t.Predict(x)
	}
	return raw
}

func (c *GradientBoostedClassifier) PredictProba(x []float64) float64 {
	return sigmoid(c.PredictRaw(x))
}

// Trainer 按固定参数训练模型
type Trainer struct {
	params Params
}

func NewTrainer(p Params) *Trainer {
	return &Trainer{params: p.WithDefaults()}
}

func (t *Trainer) Params() Params { return t.params }

// Fit 在完整数据上训练，不做内部切分。空矩阵或单一类别直接返回错误
func (t *Trainer) Fit(x [][]float64, y []int) (*GradientBoostedClassifier, error) {
	p := t.params
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	n := len(x)
	if n == 0 || len(x[0]) == 0 {
		return nil, ErrEmptyMatrix
	}
	if len(y) != n {
		return nil, fmt.Errorf("feature rows %d != labels %d", n, len(y))
	}
	nf := len(x[0])

	var counts [2]float64
	for i, row := range x {
		if len(row) != nf {
			return nil, fmt.Errorf("row %d has %d features, want %d", i, len(row), nf)
		}
		if y[i] != 0 && y[i] != 1 {
			return nil, fmt.Errorf("row %d: label %d is not 0/1", i, y[i])
		}
		counts[y[i]]++
	}
	if counts[0] == 0 || counts[1] == 0 {
		return nil, ErrSingleClass
	}

	// 类别权重: 多数类计数 / 本类计数
	weights := [2]float64{1, 1}
	if p.ClassWeights == ClassWeightsBalanced {
		maxCount := math.Max(counts[0], counts[1])
		weights = [2]float64{maxCount / counts[0], maxCount / counts[1]}
	}

	// 1. 特征分箱
	borders := make([][]float64, nf)
	binned := make([][]uint8, nf)
	col := make([]float64, n)
	for f := 0; f < nf; f++ {
		for i, row := range x {
			col[i] = row[f]
		}
		borders[f] = computeBorders(col, p.BorderCount)
		binned[f] = make([]uint8, n)
		for i, v := range col {
			binned[f][i] = uint8(binIndex(borders[f], v))
		}
	}

	// 2. 逐轮拟合梯度
	raw := make([]float64, n)
	b := &treeBuilder{
		binned:  binned,
		borders: borders,
		grad:    make([]float64, n),
		hess:    make([]float64, n),
		inBag:   make([]bool, n),
		leaf:    make([]int, n),
		l2:      p.L2LeafReg,
	}
	rng := rand.New(rand.NewSource(*p.RandomSeed))
	clf := &GradientBoostedClassifier{
		NumFeatures:  nf,
		ClassWeights: weights,
		Params:       p,
		Trees:        make([]ObliviousTree, 0, p.Iterations),
	}

	for it := 0; it < p.Iterations; it++ {
		for i := range raw {
			prob := sigmoid(raw[i])
			w := weights[y[i]]
			b.grad[i] = w * (prob - float64(y[i]))
			b.hess[i] = w * prob * (1 - prob)
		}
		sampleBag(rng, b.inBag, p.Subsample)

		tree := b.grow(p.Depth, p.LearningRate)
		for i := range raw {
			raw[i] += tree.Leaves[b.leaf[i]]
		}
		clf.Trees = append(clf.Trees, tree)
	}

	if floats.HasNaN(raw) {
		return nil, errors.New("training diverged: NaN in raw predictions")
	}
	return clf, nil
}

// sampleBag 伯努利行采样；若一行都没抽中则退化为全量
func sampleBag(rng *rand.Rand, inBag []bool, rate float64) {
	picked := false
	for i := range inBag {
		inBag[i] = rate >= 1 || rng.Float64() < rate
		picked = picked || inBag[i]
	}
	if !picked {
		for i := range inBag {
			inBag[i] = true
		}
	}
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
