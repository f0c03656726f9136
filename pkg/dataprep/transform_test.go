package dataprep_test

import (
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Rocosso/titanic-ml-pipeline/internal/testutils"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/data"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/dataprep"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/errtypes"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

func rawTable(t *testing.T) *data.Table {
	t.Helper()
	tbl, err := data.ReadCSVFrom(strings.NewReader(testutils.RawTitanic))
	assert.NilError(t, err)
	return tbl
}

func TestFit(t *testing.T) {
	tr, err := dataprep.Fit(rawTable(t))
	assert.NilError(t, err)

	// observed ages: 2 14 22 26 35 35 38 54
	assert.Equal(t, tr.AgeMedian, 30.5)
	assert.Assert(t, math.Abs(tr.FareMedian-16.10415) < 1e-9)
	assert.Equal(t, tr.EmbarkedMode, "S")
	assert.DeepEqual(t, tr.Sex.Classes, []string{"female", "male"})
	assert.DeepEqual(t, tr.Embarked.Classes, []string{"C", "Q", "S"})
	assert.DeepEqual(t, tr.Features, dataprep.FeatureColumns)
}

func TestFitRequiresRawColumns(t *testing.T) {
	tbl := rawTable(t)
	broken := data.New(
		[]string{"PassengerId", "Survived", "Pclass", "Sex", "Age"},
		[][]string{{"1", "0", "3", "male", "22"}},
	)
	_, err := dataprep.Fit(broken)
	assert.Assert(t, errors.Is(err, errtypes.ErrDataFormat))
	assert.ErrorContains(t, err, "Embarked")

	_, err = dataprep.Fit(data.New(tbl.Header, nil))
	assert.Assert(t, errors.Is(err, errtypes.ErrDataFormat))
}

func TestFitRejectsColumnWithoutObservations(t *testing.T) {
	tbl := rawTable(t)
	age := tbl.Index(dataprep.Age)
	for _, row := range tbl.Rows {
		row[age] = ""
	}
	_, err := dataprep.Fit(tbl)
	assert.Assert(t, errors.Is(err, errtypes.ErrDataFormat))
	assert.ErrorContains(t, err, "Age has no observed value")
}

func TestApply(t *testing.T) {
	raw := rawTable(t)
	cleaned, tr, err := dataprep.Clean(raw)
	assert.NilError(t, err)

	assert.DeepEqual(t, cleaned.Header, append([]string{"Survived"}, dataprep.FeatureColumns...))
	assert.Equal(t, cleaned.Len(), raw.Len())

	t.Run("no nulls remain", func(t *testing.T) {
		for i, row := range cleaned.Rows {
			for j, cell := range row {
				assert.Check(t, !data.IsMissing(cell), "row %d column %s", i, cleaned.Header[j])
			}
		}
	})

	t.Run("dropped columns are gone", func(t *testing.T) {
		for _, c := range dataprep.Dropped {
			assert.Check(t, !cleaned.Has(c), c)
		}
	})

	t.Run("rows are encoded", func(t *testing.T) {
		assert.DeepEqual(t, cleaned.Rows[0], []string{"0", "3", "1", "22", "1", "0", "7.25", "2", "0", "2"})
		assert.DeepEqual(t, cleaned.Rows[1], []string{"1", "1", "0", "38", "1", "0", "71.2833", "0", "1", "2"})
		// row 9: Age and Embarked imputed
		assert.DeepEqual(t, cleaned.Rows[8], []string{"1", "3", "0", "30.5", "0", "2", "11.1333", "2", "0", "3"})
	})

	t.Run("unlabelled data has no Survived column", func(t *testing.T) {
		survived := raw.Index(dataprep.Survived)
		header := append(append([]string(nil), raw.Header[:survived]...), raw.Header[survived+1:]...)
		rows := make([][]string, 0, raw.Len())
		for _, r := range raw.Rows {
			rows = append(rows, append(append([]string(nil), r[:survived]...), r[survived+1:]...))
		}
		out, err := tr.Apply(data.New(header, rows))
		assert.NilError(t, err)
		assert.DeepEqual(t, out.Header, dataprep.FeatureColumns)
		assert.DeepEqual(t, out.Rows[0], cleaned.Rows[0][1:])
	})
}

func TestApplyRejectsNonNumeric(t *testing.T) {
	raw := rawTable(t)
	raw.Rows[3][raw.Index(dataprep.Pclass)] = "first"

	_, _, err := dataprep.Clean(raw)
	assert.Assert(t, errors.Is(err, errtypes.ErrDataFormat))
	assert.ErrorContains(t, err, `"first"`)
}

func TestCountMissing(t *testing.T) {
	got := dataprep.CountMissing(rawTable(t), dataprep.Age, dataprep.Embarked, dataprep.Cabin, "Nope")
	assert.DeepEqual(t, got, map[string]int{"Age": 2, "Embarked": 1, "Cabin": 7})
}

func TestVector(t *testing.T) {
	tr, err := dataprep.Fit(rawTable(t))
	assert.NilError(t, err)

	age := 22.0
	fare := 7.25
	vec, err := tr.Vector(dataprep.Record{
		Pclass: 3, Sex: "male", Age: &age, SibSp: 1, Parch: 0, Fare: &fare,
		Embarked: "S", HasCabin: 0, FamilySize: 2,
	})
	assert.NilError(t, err)
	assert.DeepEqual(t, vec, []float64{3, 1, 22, 1, 0, 7.25, 2, 0, 2})

	t.Run("missing optional values are imputed", func(t *testing.T) {
		vec, err := tr.Vector(dataprep.Record{Pclass: 1, Sex: "female", FamilySize: 1})
		assert.NilError(t, err)
		assert.Equal(t, vec[2], tr.AgeMedian)
		assert.Equal(t, vec[5], tr.FareMedian)
		assert.Equal(t, vec[6], 2.0)
	})

	t.Run("unknown category is a data format error", func(t *testing.T) {
		_, err := tr.Vector(dataprep.Record{Pclass: 1, Sex: "unknown"})
		assert.Assert(t, errors.Is(err, errtypes.ErrDataFormat))
	})
}

func TestTransformSaveLoad(t *testing.T) {
	tr, err := dataprep.Fit(rawTable(t))
	assert.NilError(t, err)

	path := filepath.Join(t.TempDir(), "train", dataprep.TransformFileName)
	assert.NilError(t, tr.Save(path))

	loaded, err := dataprep.LoadTransform(path)
	assert.NilError(t, err)
	assert.DeepEqual(t, loaded, tr)

	_, err = dataprep.LoadTransform(testutils.WriteFile(t, t.TempDir(), "bad.json", `{"age_median": 1}`))
	assert.Assert(t, errors.Is(err, errtypes.ErrDataFormat))

	_, err = dataprep.LoadTransform(filepath.Join(t.TempDir(), "absent.json"))
	assert.Assert(t, errors.Is(err, errtypes.ErrIO))
}

func TestLabelEncoder(t *testing.T) {
	enc := dataprep.FitLabelEncoder([]string{"S", "C", "Q", "S"})
	assert.DeepEqual(t, enc.Classes, []string{"C", "Q", "S"})
	for v, want := range map[string]int{"C": 0, "Q": 1, "S": 2} {
		code, err := enc.Encode(v)
		assert.NilError(t, err)
		assert.Equal(t, code, want)
	}
	assert.Equal(t, enc.String(), "0=C 1=Q 2=S")

	v, err := enc.Decode(1)
	assert.NilError(t, err)
	assert.Equal(t, v, "Q")

	_, err = enc.Decode(3)
	assert.Assert(t, errors.Is(err, errtypes.ErrDataFormat))
}

func TestImpute(t *testing.T) {
	col := []string{"22", "", "NaN", "38"}

	filled, median, err := dataprep.ImputeMedian(col, "Age")
	assert.NilError(t, err)
	assert.Equal(t, median, 30.0)
	assert.DeepEqual(t, filled, []string{"22", "30", "30", "38"})
	assert.DeepEqual(t, col, []string{"22", "", "NaN", "38"})

	filled, mode, err := dataprep.ImputeMode([]string{"S", "", "C", "S"}, "Embarked")
	assert.NilError(t, err)
	assert.Equal(t, mode, "S")
	assert.Assert(t, cmp.DeepEqual(filled, []string{"S", "S", "C", "S"}))
}

func TestDescribe(t *testing.T) {
	s, err := dataprep.Describe(rawTable(t), dataprep.Age)
	assert.NilError(t, err)
	assert.Equal(t, s.Count, 8)
	assert.Equal(t, s.Missing, 2)
	assert.Equal(t, s.Median, 30.5)
	assert.Equal(t, s.Min, 2.0)
	assert.Equal(t, s.Max, 54.0)

	_, err = dataprep.Describe(rawTable(t), "Nope")
	assert.Assert(t, errors.Is(err, errtypes.ErrDataFormat))
}
