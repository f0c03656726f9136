package model

import (
	"math"
	"math/rand"
	"sort"

	"github.com/Rocosso/titanic-ml-pipeline/pkg/errtypes"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ---------------------------
// Types & options
// ---------------------------

// DecisionTreeClassifier is a CART-style classifier.
type DecisionTreeClassifier struct {
	// Hyperparameters / options
	MaxDepth            int     // maximum depth (root depth = 0). 0 => no limit
	MinSamplesSplit     int     // minimum samples to attempt a split
	MinSamplesLeaf      int     // minimum samples required in each leaf
	Criterion           string  // "gini" (default) or "entropy"
	MaxFeatures         int     // 0 => use all features, >0 => number of features to sample when looking for split
	MinImpurityDecrease float64 // minimal impurity decrease to accept a split
	RandomState         int64   // seed for randomness (feature subsampling)

	// Fitted state. Exported so the tree travels through gob.
	Root        *Node
	Classes     []int     // class labels; probability vectors are aligned with it
	NFeatures   int       // width of the training matrix
	Importances []float64 // total weighted impurity decrease per feature
}

// Node is a split (Leaf == false) or a leaf of a fitted tree.
type Node struct {
	Leaf      bool
	Feature   int
	Threshold float64 // x <= Threshold => Left
	Left      *Node
	Right     *Node

	N      int       // training samples reaching the node
	Probas []float64 // leaf class distribution
}

// Option functional config
type Option func(*DecisionTreeClassifier)

func WithMaxDepth(d int) Option { return func(t *DecisionTreeClassifier) { t.MaxDepth = d } }
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeClassifier) { t.MinSamplesSplit = n }
}
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeClassifier) { t.MinSamplesLeaf = n }
}
func WithCriterion(c string) Option { return func(t *DecisionTreeClassifier) { t.Criterion = c } }
func WithMaxFeatures(k int) Option  { return func(t *DecisionTreeClassifier) { t.MaxFeatures = k } }
func WithMinImpurityDecrease(v float64) Option {
	return func(t *DecisionTreeClassifier) { t.MinImpurityDecrease = v }
}
func WithRandomState(seed int64) Option {
	return func(t *DecisionTreeClassifier) { t.RandomState = seed }
}

// NewDecisionTreeClassifier returns a classifier with sensible defaults.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	d := &DecisionTreeClassifier{
		MaxDepth:            0,
		MinSamplesSplit:     2,
		MinSamplesLeaf:      1,
		Criterion:           "gini",
		MaxFeatures:         0,
		MinImpurityDecrease: 0.0,
		RandomState:         DefaultRandomState,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// ---------------------------
// Public API
// ---------------------------

// Fit trains the tree on X (n x p) and labels y.
func (t *DecisionTreeClassifier) Fit(X mat.Matrix, y []int) error {
	rows, err := rowsOf(X, y)
	if err != nil {
		return err
	}
	classes, yIdx := indexLabels(y)
	sample := make([]int, len(rows))
	for i := range sample {
		sample[i] = i
	}
	t.Classes = classes
	return t.fit(rows, yIdx, sample)
}

// fit grows the tree from the rows listed in sample (repeats allowed).
// y holds class indices into t.Classes.
func (t *DecisionTreeClassifier) fit(rows [][]float64, y []int, sample []int) error {
	if err := t.validate(); err != nil {
		return err
	}
	t.NFeatures = len(rows[0])
	t.Importances = make([]float64, t.NFeatures)
	b := &builder{
		tree:     t,
		rows:     rows,
		y:        y,
		nClasses: len(t.Classes),
		rnd:      rand.New(rand.NewSource(t.RandomState)),
		impurity: giniFromCounts,
	}
	if t.Criterion == "entropy" {
		b.impurity = entropyFromCounts
	}
	t.Root = b.build(sample, 0)
	return nil
}

func (t *DecisionTreeClassifier) validate() error {
	if t.MinSamplesLeaf < 1 {
		return errtypes.InvalidParameter("min_samples_leaf must be positive, got %d", t.MinSamplesLeaf)
	}
	if t.MinSamplesSplit < 2 {
		return errtypes.InvalidParameter("min_samples_split must be at least 2, got %d", t.MinSamplesSplit)
	}
	if t.MaxDepth < 0 || t.MaxFeatures < 0 {
		return errtypes.InvalidParameter("max_depth and max_features must not be negative")
	}
	switch t.Criterion {
	case "gini", "entropy":
	default:
		return errtypes.InvalidParameter("unknown criterion %q", t.Criterion)
	}
	return nil
}

// Predict returns the most probable class label of each row.
func (t *DecisionTreeClassifier) Predict(X mat.Matrix) []int {
	r, _ := X.Dims()
	out := make([]int, r)
	row := make([]float64, t.NFeatures)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		out[i] = t.Classes[floats.MaxIdx(t.predictProbaSingle(row))]
	}
	return out
}

// PredictProba returns the per-class probability vectors for rows in X.
func (t *DecisionTreeClassifier) PredictProba(X mat.Matrix) [][]float64 {
	r, _ := X.Dims()
	out := make([][]float64, r)
	row := make([]float64, t.NFeatures)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		out[i] = append([]float64(nil), t.predictProbaSingle(row)...)
	}
	return out
}

// Labels are the class labels in the order of PredictProba columns.
func (t *DecisionTreeClassifier) Labels() []int { return t.Classes }

// FeatureImportances is the impurity decrease per feature, normalised to sum to 1.
func (t *DecisionTreeClassifier) FeatureImportances() []float64 {
	return normalized(t.Importances)
}

// Depth of the fitted tree. A single leaf has depth 0.
func (t *DecisionTreeClassifier) Depth() int { return depthOf(t.Root) }

// Leaves counts leaf nodes.
func (t *DecisionTreeClassifier) Leaves() int { return leavesOf(t.Root) }

func (t *DecisionTreeClassifier) predictProbaSingle(x []float64) []float64 {
	node := t.Root
	for node != nil && !node.Leaf {
		if x[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	if node == nil {
		p := make([]float64, len(t.Classes))
		for i := range p {
			p[i] = 1.0 / float64(len(p))
		}
		return p
	}
	return node.Probas
}

// ---------------------------
// Internal builders & helpers
// ---------------------------

type builder struct {
	tree     *DecisionTreeClassifier
	rows     [][]float64
	y        []int
	nClasses int
	rnd      *rand.Rand
	impurity func([]int) float64
}

// splitResult is the best split found at a node.
type splitResult struct {
	gain      float64
	feature   int
	threshold float64
	leftIdx   []int
	rightIdx  []int
	leftImp   float64
	rightImp  float64
}

func (b *builder) leaf(node *Node, counts []int) *Node {
	node.Leaf = true
	node.Probas = countsToProbas(counts)
	return node
}

func (b *builder) build(idx []int, depth int) *Node {
	t := b.tree
	node := &Node{N: len(idx)}
	counts := countsFromIndices(b.y, idx, b.nClasses)

	if isPure(counts) ||
		len(idx) < t.MinSamplesSplit ||
		len(idx) < 2*t.MinSamplesLeaf ||
		(t.MaxDepth > 0 && depth >= t.MaxDepth) {
		return b.leaf(node, counts)
	}

	parentImpurity := b.impurity(counts)
	best := b.findBestSplit(idx, counts, parentImpurity)
	if best.feature < 0 || best.gain <= t.MinImpurityDecrease {
		return b.leaf(node, counts)
	}

	n := float64(len(idx))
	t.Importances[best.feature] += n*parentImpurity -
		float64(len(best.leftIdx))*best.leftImp -
		float64(len(best.rightIdx))*best.rightImp

	node.Feature = best.feature
	node.Threshold = best.threshold
	node.Left = b.build(best.leftIdx, depth+1)
	node.Right = b.build(best.rightIdx, depth+1)
	return node
}

// featureOrder is the order in which features are tried at a node: all of
// them in column order, or a fresh random permutation when MaxFeatures
// limits the search.
func (b *builder) featureOrder() []int {
	p := b.tree.NFeatures
	k := b.tree.MaxFeatures
	if k <= 0 || k >= p {
		feats := make([]int, p)
		for j := range feats {
			feats[j] = j
		}
		return feats
	}
	return b.rnd.Perm(p)
}

func (b *builder) findBestSplit(idx []int, counts []int, parentImpurity float64) splitResult {
	best := splitResult{feature: -1}
	n := len(idx)
	minLeaf := b.tree.MinSamplesLeaf
	order := make([]int, n)
	left := make([]int, b.nClasses)
	right := make([]int, b.nClasses)

	limit := b.tree.MaxFeatures
	if limit <= 0 {
		limit = b.tree.NFeatures
	}
	visited := 0

	// constant features do not count against MaxFeatures
	for _, f := range b.featureOrder() {
		if visited >= limit {
			break
		}
		copy(order, idx)
		sort.SliceStable(order, func(a, c int) bool { return b.rows[order[a]][f] < b.rows[order[c]][f] })
		if b.rows[order[0]][f] == b.rows[order[n-1]][f] {
			continue
		}
		visited++
		for k := range left {
			left[k] = 0
		}
		copy(right, counts)

		// move one by one from right to left scanning thresholds between distinct values
		for s := 1; s < n; s++ {
			c := b.y[order[s-1]]
			left[c]++
			right[c]--

			lo, hi := b.rows[order[s-1]][f], b.rows[order[s]][f]
			if lo == hi || s < minLeaf || n-s < minLeaf {
				continue
			}
			impL := b.impurity(left)
			impR := b.impurity(right)
			weighted := float64(s)/float64(n)*impL + float64(n-s)/float64(n)*impR
			gain := parentImpurity - weighted
			if gain > best.gain {
				thr := (lo + hi) / 2.0
				if thr == hi {
					thr = lo
				}
				best = splitResult{gain: gain, feature: f, threshold: thr, leftImp: impL, rightImp: impR}
			}
		}
	}
	if best.feature < 0 {
		return best
	}

	for _, i := range idx {
		if b.rows[i][best.feature] <= best.threshold {
			best.leftIdx = append(best.leftIdx, i)
		} else {
			best.rightIdx = append(best.rightIdx, i)
		}
	}
	return best
}

func countsFromIndices(y []int, idx []int, nClasses int) []int {
	counts := make([]int, nClasses)
	for _, ii := range idx {
		counts[y[ii]]++
	}
	return counts
}

// ---------------------------
// Utilities: impurity & misc
// ---------------------------

func giniFromCounts(counts []int) float64 {
	n := 0.0
	for _, c := range counts {
		n += float64(c)
	}
	if n == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		p := float64(c) / n
		res += p * (1 - p)
	}
	return res
}

func entropyFromCounts(counts []int) float64 {
	n := 0.0
	for _, c := range counts {
		n += float64(c)
	}
	if n == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		res -= p * math.Log2(p)
	}
	return res
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func countsToProbas(counts []int) []float64 {
	n := 0
	for _, c := range counts {
		n += c
	}
	p := make([]float64, len(counts))
	if n == 0 {
		return p
	}
	for i := range counts {
		p[i] = float64(counts[i]) / float64(n)
	}
	return p
}

func normalized(v []float64) []float64 {
	out := append([]float64(nil), v...)
	if s := floats.Sum(out); s > 0 {
		floats.Scale(1/s, out)
	}
	return out
}

func depthOf(n *Node) int {
	if n == nil || n.Leaf {
		return 0
	}
	l, r := depthOf(n.Left), depthOf(n.Right)
	if l > r {
		return l + 1
	}
	return r + 1
}

func leavesOf(n *Node) int {
	if n == nil {
		return 0
	}
	if n.Leaf {
		return 1
	}
	return leavesOf(n.Left) + leavesOf(n.Right)
}

// rowsOf copies X into row slices and checks it against y.
func rowsOf(X mat.Matrix, y []int) ([][]float64, error) {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return nil, errtypes.DataFormat("empty feature matrix")
	}
	if len(y) != r {
		return nil, errtypes.DataFormat("X has %d rows but y has %d labels", r, len(y))
	}
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = mat.Row(nil, i, X)
		for j, v := range rows[i] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errtypes.DataFormat("row %d feature %d is not finite", i, j)
			}
		}
	}
	return rows, nil
}

// indexLabels maps labels onto 0..k-1 following their sorted order.
func indexLabels(y []int) (classes []int, idx []int) {
	seen := map[int]struct{}{}
	for _, v := range y {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			classes = append(classes, v)
		}
	}
	sort.Ints(classes)
	pos := make(map[int]int, len(classes))
	for i, c := range classes {
		pos[c] = i
	}
	idx = make([]int, len(y))
	for i, v := range y {
		idx[i] = pos[v]
	}
	return classes, idx
}
