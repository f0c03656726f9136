package dataprep

import (
	"github.com/Rocosso/titanic-ml-pipeline/pkg/data"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/errtypes"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/stats"
)

// observedFloats parses the non-missing cells of a numeric column.
func observedFloats(col []string, name string) ([]float64, error) {
	nums := make([]float64, 0, len(col))
	for i, v := range col {
		if data.IsMissing(v) {
			continue
		}
		num, err := data.ParseFloat(v, name, i)
		if err != nil {
			return nil, err
		}
		nums = append(nums, num)
	}
	return nums, nil
}

// MedianOf is the median of the observed values of a numeric column.
func MedianOf(col []string, name string) (float64, error) {
	nums, err := observedFloats(col, name)
	if err != nil {
		return 0, err
	}
	if len(nums) == 0 {
		return 0, errtypes.DataFormat("%s has no observed value to impute from", name)
	}
	return stats.Median(nums), nil
}

// ModeOf is the most frequent observed value of a categorical column.
func ModeOf(col []string, name string) (string, error) {
	observed := make([]string, 0, len(col))
	for _, v := range col {
		if !data.IsMissing(v) {
			observed = append(observed, v)
		}
	}
	mode, ok := stats.ModeString(observed)
	if !ok {
		return "", errtypes.DataFormat("%s has no observed value to impute from", name)
	}
	return mode, nil
}

// ImputeMedian replaces missing numeric values with the column median.
// The input is not modified.
func ImputeMedian(col []string, name string) ([]string, float64, error) {
	median, err := MedianOf(col, name)
	if err != nil {
		return nil, 0, err
	}
	return ImputeConstant(col, data.FormatFloat(median)), median, nil
}

// ImputeMode replaces missing values with the most frequent value.
// The input is not modified.
func ImputeMode(col []string, name string) ([]string, string, error) {
	mode, err := ModeOf(col, name)
	if err != nil {
		return nil, "", err
	}
	return ImputeConstant(col, mode), mode, nil
}

// ImputeConstant returns a copy of col with missing values replaced by constant.
func ImputeConstant(col []string, constant string) []string {
	out := make([]string, len(col))
	for i, v := range col {
		if data.IsMissing(v) {
			out[i] = constant
		} else {
			out[i] = v
		}
	}
	return out
}

// CountMissing counts missing cells per column.
func CountMissing(t *data.Table, cols ...string) map[string]int {
	out := make(map[string]int, len(cols))
	for _, c := range cols {
		j := t.Index(c)
		if j < 0 {
			continue
		}
		n := 0
		for _, row := range t.Rows {
			if j < len(row) && data.IsMissing(row[j]) {
				n++
			}
		}
		out[c] = n
	}
	return out
}

// Describe summarises a numeric column of t.
func Describe(t *data.Table, name string) (stats.Summary, error) {
	col, err := t.Column(name)
	if err != nil {
		return stats.Summary{}, err
	}
	nums, err := observedFloats(col, name)
	if err != nil {
		return stats.Summary{}, err
	}
	return stats.Describe(nums, len(col)-len(nums)), nil
}
