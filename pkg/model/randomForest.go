package model

import (
	"context"
	"math"
	"math/rand"

	"github.com/Rocosso/titanic-ml-pipeline/pkg/errtypes"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DefaultRandomState seeds models which are not given one.
const DefaultRandomState = 42

// RandomForest for classification
type RandomForest struct {
	// Hyperparameters / options
	NEstimators         int
	MaxDepth            int
	MinSamplesSplit     int
	MinSamplesLeaf      int
	MaxFeatures         int     // 0 => floor(sqrt(p))
	MinImpurityDecrease float64 // passed to every tree
	Criterion           string
	Bootstrap           bool
	RandomState         int64
	NJobs               int // trees fitted concurrently; results do not depend on it

	// Internal state
	Trees     []*DecisionTreeClassifier
	Classes   []int
	NFeatures int
}

// Option functional config for RandomForest
type RandomForestOption func(*RandomForest)

func WithNEstimators(n int) RandomForestOption { return func(rf *RandomForest) { rf.NEstimators = n } }
func WithBootstrap(b bool) RandomForestOption  { return func(rf *RandomForest) { rf.Bootstrap = b } }
func WithSeed(seed int64) RandomForestOption   { return func(rf *RandomForest) { rf.RandomState = seed } }
func WithNJobs(n int) RandomForestOption       { return func(rf *RandomForest) { rf.NJobs = n } }
func WithLeafSize(n int) RandomForestOption    { return func(rf *RandomForest) { rf.MinSamplesLeaf = n } }
func WithTreeDepth(d int) RandomForestOption   { return func(rf *RandomForest) { rf.MaxDepth = d } }
func WithFeatureSample(k int) RandomForestOption {
	return func(rf *RandomForest) { rf.MaxFeatures = k }
}
func WithMinDecrease(v float64) RandomForestOption {
	return func(rf *RandomForest) { rf.MinImpurityDecrease = v }
}

// NewRandomForest initializes the forest with sensible defaults.
func NewRandomForest(opts ...RandomForestOption) *RandomForest {
	rf := &RandomForest{
		NEstimators:     100,
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     0,
		Criterion:       "gini",
		Bootstrap:       true,
		RandomState:     DefaultRandomState,
		NJobs:           1,
	}
	for _, o := range opts {
		o(rf)
	}
	return rf
}

// Fit trains the random forest.
func (rf *RandomForest) Fit(X mat.Matrix, y []int) error {
	return rf.FitContext(context.Background(), X, y)
}

// FitContext trains the forest, checking ctx between trees.
//
// Tree i draws its bootstrap sample and its feature subsets from a source
// seeded with RandomState+i, so the fitted forest is the same for any NJobs.
func (rf *RandomForest) FitContext(ctx context.Context, X mat.Matrix, y []int) error {
	if rf.NEstimators < 1 {
		return errtypes.InvalidParameter("n_estimators must be positive, got %d", rf.NEstimators)
	}
	if rf.MinSamplesLeaf < 1 {
		return errtypes.InvalidParameter("min_samples_leaf must be positive, got %d", rf.MinSamplesLeaf)
	}
	rows, err := rowsOf(X, y)
	if err != nil {
		return err
	}
	n := len(rows)
	classes, yIdx := indexLabels(y)
	rf.Classes = classes
	rf.NFeatures = len(rows[0])

	maxFeatures := rf.MaxFeatures
	if maxFeatures == 0 {
		maxFeatures = int(math.Sqrt(float64(rf.NFeatures)))
	}
	maxFeatures = max(1, min(maxFeatures, rf.NFeatures))

	trees := make([]*DecisionTreeClassifier, rf.NEstimators)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, rf.NJobs))
	for i := range trees {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			treeRand := rand.New(rand.NewSource(rf.RandomState + int64(i)))

			// Bootstrap sampling: an index slice, not a copy of the data.
			sample := make([]int, n)
			for j := range sample {
				if rf.Bootstrap {
					sample[j] = treeRand.Intn(n)
				} else {
					sample[j] = j
				}
			}

			tree := NewDecisionTreeClassifier(
				WithMaxDepth(rf.MaxDepth),
				WithMinSamplesSplit(rf.MinSamplesSplit),
				WithMinSamplesLeaf(rf.MinSamplesLeaf),
				WithCriterion(rf.Criterion),
				WithMaxFeatures(maxFeatures),
				WithMinImpurityDecrease(rf.MinImpurityDecrease),
				WithRandomState(treeRand.Int63()),
			)
			tree.Classes = classes
			if err := tree.fit(rows, yIdx, sample); err != nil {
				return err
			}
			trees[i] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	rf.Trees = trees
	return nil
}

// Predict returns the majority vote of all trees. Ties go to the smallest label.
func (rf *RandomForest) Predict(X mat.Matrix) []int {
	r, _ := X.Dims()
	out := make([]int, r)
	row := make([]float64, rf.NFeatures)
	votes := make([]float64, len(rf.Classes))
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		for k := range votes {
			votes[k] = 0
		}
		for _, t := range rf.Trees {
			votes[floats.MaxIdx(t.predictProbaSingle(row))]++
		}
		out[i] = rf.Classes[floats.MaxIdx(votes)]
	}
	return out
}

// PredictProba averages the leaf distributions of all trees.
func (rf *RandomForest) PredictProba(X mat.Matrix) [][]float64 {
	r, _ := X.Dims()
	out := make([][]float64, r)
	row := make([]float64, rf.NFeatures)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		p := make([]float64, len(rf.Classes))
		for _, t := range rf.Trees {
			floats.Add(p, t.predictProbaSingle(row))
		}
		floats.Scale(1/float64(len(rf.Trees)), p)
		out[i] = p
	}
	return out
}

// Labels are the class labels in the order of PredictProba columns.
func (rf *RandomForest) Labels() []int { return rf.Classes }

// FeatureImportances is the mean of the per-tree normalised importances.
func (rf *RandomForest) FeatureImportances() []float64 {
	sum := make([]float64, rf.NFeatures)
	for _, t := range rf.Trees {
		floats.Add(sum, t.FeatureImportances())
	}
	return normalized(sum)
}
