package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/Rocosso/titanic-ml-pipeline/pkg/data"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/dataprep"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/loader"
	"github.com/pkg/errors"
)

// Locations inside a preprocessing output directory.
const (
	RawFileName   = "titanic.csv"
	TrainFileName = "train.csv"
	TestFileName  = "test.csv"
)

// PreprocessResult reports what Preprocess wrote.
type PreprocessResult struct {
	TrainPath     string
	TestPath      string
	TransformPath string
	TrainRows     int
	TestRows      int
	Transform     *dataprep.Transform
}

// Preprocess cleans the raw dataset at raw (a csv file, or a directory
// holding titanic.csv) and writes out/train/train.csv, out/test/test.csv
// and out/train/transform.json.
//
// The three files are committed together once all of them are written;
// a failed run leaves earlier outputs in out untouched.
func Preprocess(ctx context.Context, raw, out string, opts ...Option) (*PreprocessResult, error) {
	o := buildOptions(opts)
	log := o.logger

	rawPath := resolve(raw, RawFileName)
	log.Infof("reading raw data from %s", rawPath)
	tbl, err := data.ReadCSV(rawPath)
	if err != nil {
		return nil, err
	}
	log.Infof("read %d rows, %d columns", tbl.Len(), len(tbl.Header))

	if err := tbl.Require(dataprep.RawColumns...); err != nil {
		return nil, errors.WithMessage(err, rawPath)
	}
	imputed := []string{dataprep.Age, dataprep.Fare, dataprep.Embarked, dataprep.Cabin}
	missing := dataprep.CountMissing(tbl, imputed...)
	for _, col := range imputed {
		log.Debugf("missing %s: %d", col, missing[col])
	}
	for _, col := range []string{dataprep.Age, dataprep.Fare} {
		s, err := dataprep.Describe(tbl, col)
		if err != nil {
			return nil, errors.WithMessage(err, rawPath)
		}
		log.Infof("%s: count=%d missing=%d mean=%.3f median=%.3f min=%.3f max=%.3f",
			col, s.Count, s.Missing, s.Mean, s.Median, s.Min, s.Max)
	}

	cleaned, tr, err := dataprep.Clean(tbl)
	if err != nil {
		return nil, errors.WithMessage(err, rawPath)
	}
	log.Infof("imputed Age=%v Fare=%v Embarked=%s", tr.AgeMedian, tr.FareMedian, tr.EmbarkedMode)
	log.Infof("encoded Sex as %v, Embarked as %v", tr.Sex, tr.Embarked)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	train, test, err := loader.SplitTable(cleaned, o.testSize, o.seed)
	if err != nil {
		return nil, err
	}
	log.Infof("split: %d train rows, %d test rows (test_size=%v seed=%d)", train.Len(), test.Len(), o.testSize, o.seed)

	res := &PreprocessResult{
		TrainPath:     filepath.Join(out, "train", TrainFileName),
		TestPath:      filepath.Join(out, "test", TestFileName),
		TransformPath: filepath.Join(out, "train", dataprep.TransformFileName),
		TrainRows:     train.Len(),
		TestRows:      test.Len(),
		Transform:     tr,
	}
	st := new(data.Staged)
	defer st.Discard()
	if err := st.Write(res.TrainPath, train.Encode); err != nil {
		return nil, err
	}
	if err := st.Write(res.TestPath, test.Encode); err != nil {
		return nil, err
	}
	if err := st.Write(res.TransformPath, tr.Encode); err != nil {
		return nil, err
	}
	if err := st.Commit(); err != nil {
		return nil, err
	}
	log.Infof("wrote %s and %s", res.TrainPath, res.TestPath)
	return res, nil
}

// resolve turns a directory into the conventional file inside it.
func resolve(location, name string) string {
	if fi, err := os.Stat(location); err == nil && fi.IsDir() {
		return filepath.Join(location, name)
	}
	return location
}
