package dataprep

import (
	"github.com/Rocosso/titanic-ml-pipeline/pkg/data"
)

// Clean fits a Transform on the full raw dataset and applies it.
//
// Imputation statistics are taken over every row, before any split.
func Clean(raw *data.Table) (*data.Table, *Transform, error) {
	tr, err := Fit(raw)
	if err != nil {
		return nil, nil, err
	}
	cleaned, err := tr.Apply(raw)
	if err != nil {
		return nil, nil, err
	}
	return cleaned, tr, nil
}
