package loader

import (
	"math"
	"math/rand"
	"sort"

	"github.com/Rocosso/titanic-ml-pipeline/pkg/data"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/errtypes"
)

const (
	DefaultTestSize = 0.2
	DefaultSeed     = 42
)

// TrainTestSplit partitions row indices 0..n-1 into train and test sets.
//
// The test set has ceil(n*testSize) rows and the train set the rest; both
// are non-empty. The assignment depends only on n, testSize and seed.
// Indices keep their permuted order.
func TrainTestSplit(n int, testSize float64, seed int64) (train, test []int, err error) {
	if testSize <= 0 || 1 <= testSize {
		return nil, nil, errtypes.InvalidParameter("test size must be in (0, 1), got %v", testSize)
	}
	if n < 2 {
		return nil, nil, errtypes.DataFormat("cannot split %d rows into train and test", n)
	}
	nTest := int(math.Ceil(float64(n) * testSize))
	if nTest >= n {
		nTest = n - 1
	}

	indices := rand.New(rand.NewSource(seed)).Perm(n)
	return indices[nTest:], indices[:nTest], nil
}

// SplitTable applies TrainTestSplit to the rows of t.
func SplitTable(t *data.Table, testSize float64, seed int64) (train, test *data.Table, err error) {
	trainIdx, testIdx, err := TrainTestSplit(t.Len(), testSize, seed)
	if err != nil {
		return nil, nil, err
	}
	return t.Select(trainIdx), t.Select(testIdx), nil
}

// KFoldSplit yields k folds of row indices, each sorted.
func KFoldSplit(n, k int, seed int64) ([][]int, error) {
	if k < 2 || n < k {
		return nil, errtypes.InvalidParameter("cannot make %d folds of %d rows", k, n)
	}
	indices := rand.New(rand.NewSource(seed)).Perm(n)
	folds := make([][]int, k)
	for i := range n {
		folds[i%k] = append(folds[i%k], indices[i])
	}
	for _, f := range folds {
		sort.Ints(f)
	}
	return folds, nil
}
