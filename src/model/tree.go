package model

import "math"

// Split 树的一层：feature 取值大于 border 走右侧
type Split struct {
	Feature int     `json:"feature"`
	Border  float64 `json:"border"`
}

// ObliviousTree 对称树，同一层所有节点使用同一个切分
type ObliviousTree struct {
	Splits []Split   `json:"splits"`
	Leaves []float64 `json:"leaves"`
}

func (t ObliviousTree) leafIndex(x []float64) int {
	idx := 0
	for d, s := range t.Splits {
		if x[s.Feature] > s.Border {
			idx |= 1 << d
		}
	}
	return idx
}

// Predict 叶子值（已乘学习率）
func (t ObliviousTree) Predict(x []float64) float64 {
	return t.Leaves[t.leafIndex(x)]
}

type splitCandidate struct {
	feature int
	bin     int
	score   float64
}

// treeBuilder 单棵树的生长状态，leaf 记录每一行当前所在叶子
type treeBuilder struct {
	binned  [][]uint8
	borders [][]float64
	grad    []float64
	hess    []float64
	inBag   []bool
	leaf    []int
	l2      float64
}

// grow 逐层选择使所有叶子牛顿增益之和最大的 (特征, 边界)
func (b *treeBuilder) grow(depth int, learningRate float64) ObliviousTree {
	var tree ObliviousTree
	for i := range b.leaf {
		b.leaf[i] = 0
	}

	for d := 0; d < depth; d++ {
		nLeaves := 1 << d
		totG, totH := b.leafSums(nLeaves)
		baseline := 0.0
		for l := 0; l < nLeaves; l++ {
			baseline += totG[l] * totG[l] / (totH[l] + b.l2)
		}

		best := splitCandidate{feature: -1, score: math.Inf(-1)}
		for f := range b.binned {
			if c, ok := b.bestForFeature(f, nLeaves, totG, totH); ok && c.score > best.score {
				best = c
			}
		}
		if best.feature < 0 || best.score <= baseline+1e-12 {
			break
		}

		tree.Splits = append(tree.Splits, Split{
			Feature: best.feature,
			Border:  b.borders[best.feature][best.bin],
		})
		col := b.binned[best.feature]
		for i := range b.leaf {
			if int(col[i]) > best.bin {
				b.leaf[i] |= 1 << d
			}
		}
	}

	nLeaves := 1 << len(tree.Splits)
	g, h := b.leafSums(nLeaves)
	tree.Leaves = make([]float64, nLeaves)
	for l := range tree.Leaves {
		tree.Leaves[l] = -learningRate * g[l] / (h[l] + b.l2)
	}
	return tree
}

func (b *treeBuilder) leafSums(nLeaves int) ([]float64, []float64) {
	g := make([]float64, nLeaves)
	h := make([]float64, nLeaves)
	for i, l := range b.leaf {
		if !b.inBag[i] {
			continue
		}
		g[l] += b.grad[i]
		h[l] += b.hess[i]
	}
	return g, h
}

func (b *treeBuilder) bestForFeature(f, nLeaves int, totG, totH []float64) (splitCandidate, bool) {
	nb := len(b.borders[f])
	if nb == 0 {
		return splitCandidate{}, false
	}
	width := nb + 1
	histG := make([]float64, nLeaves*width)
	histH := make([]float64, nLeaves*width)
	for i, bin := range b.binned[f] {
		if !b.inBag[i] {
			continue
		}
		k := b.leaf[i]*width + int(bin)
		histG[k] += b.grad[i]
		histH[k] += b.hess[i]
	}

	leftG := make([]float64, nLeaves)
	leftH := make([]float64, nLeaves)
	best := splitCandidate{feature: -1, score: math.Inf(-1)}
	for bin := 0; bin < nb; bin++ {
		score := 0.0
		for l := 0; l < nLeaves; l++ {
			leftG[l] += histG[l*width+bin]
			leftH[l] += histH[l*width+bin]
			rightG := totG[l] - leftG[l]
			rightH := totH[l] - leftH[l]
			score += leftG[l]*leftG[l]/(leftH[l]+b.l2) + rightG*rightG/(rightH+b.l2)
		}
		if score > best.score {
			best = splitCandidate{feature: f, bin: bin, score: score}
		}
	}
	return best, true
}
