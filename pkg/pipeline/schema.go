package pipeline

import (
	"slices"
	"strings"

	"github.com/Rocosso/titanic-ml-pipeline/pkg/data"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/dataprep"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/errtypes"
)

// Schema describes the structure of a cleaned partition.
type Schema struct {
	Label        string
	FeatureNames []string
}

// SchemaOf reads the schema of a labelled partition: every column other
// than Survived is a feature, in file order.
func SchemaOf(t *data.Table) (Schema, error) {
	if err := t.Require(dataprep.Survived); err != nil {
		return Schema{}, err
	}
	s := Schema{Label: dataprep.Survived}
	for _, h := range t.Header {
		if h = strings.TrimSpace(h); h != dataprep.Survived {
			s.FeatureNames = append(s.FeatureNames, h)
		}
	}
	if len(s.FeatureNames) == 0 {
		return Schema{}, errtypes.DataFormat("partition has no feature columns")
	}
	return s, nil
}

// Check fails unless other has the same features in the same order.
func (s Schema) Check(other Schema) error {
	if !slices.Equal(s.FeatureNames, other.FeatureNames) {
		return errtypes.DataFormat(
			"feature columns differ: [%s] vs [%s]",
			strings.Join(s.FeatureNames, ", "), strings.Join(other.FeatureNames, ", "),
		)
	}
	return nil
}

// Labels parses the label column as integer classes.
func (s Schema) Labels(t *data.Table) ([]int, error) {
	y := make([]int, t.Len())
	for i := range y {
		v, err := t.Float(i, s.Label)
		if err != nil {
			return nil, err
		}
		if v != float64(int(v)) {
			return nil, errtypes.DataFormat("row %d: %s is not a class label: %v", i+1, s.Label, v)
		}
		y[i] = int(v)
	}
	return y, nil
}
