package dataprep

import (
	"encoding/json"
	"io"
	"os"

	"github.com/Rocosso/titanic-ml-pipeline/pkg/data"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/errtypes"
	"github.com/pkg/errors"
)

// TransformFileName is the name of a persisted Transform next to the train partition.
const TransformFileName = "transform.json"

// Transform is the fitted cleaning and encoding of passenger records.
//
// It is fitted once on the full raw dataset, then applied unchanged to the
// dataset and to every inference request, so both see identical encodings.
type Transform struct {
	AgeMedian    float64      `json:"age_median"`
	FareMedian   float64      `json:"fare_median"`
	EmbarkedMode string       `json:"embarked_mode"`
	Sex          LabelEncoder `json:"sex"`
	Embarked     LabelEncoder `json:"embarked"`
	Features     []string     `json:"features"`
}

// Fit learns imputation statistics and encoders from a raw dataset.
func Fit(raw *data.Table) (*Transform, error) {
	if err := raw.Require(RawColumns...); err != nil {
		return nil, err
	}
	if raw.Len() == 0 {
		return nil, errtypes.DataFormat("raw dataset has no rows")
	}

	ages, err := raw.Column(Age)
	if err != nil {
		return nil, err
	}
	_, ageMedian, err := ImputeMedian(ages, Age)
	if err != nil {
		return nil, err
	}

	fares, err := raw.Column(Fare)
	if err != nil {
		return nil, err
	}
	_, fareMedian, err := ImputeMedian(fares, Fare)
	if err != nil {
		return nil, err
	}

	embarked, err := raw.Column(Embarked)
	if err != nil {
		return nil, err
	}
	embarked, embarkedMode, err := ImputeMode(embarked, Embarked)
	if err != nil {
		return nil, err
	}

	sex, err := raw.Column(Sex)
	if err != nil {
		return nil, err
	}
	for i, v := range sex {
		if data.IsMissing(v) {
			return nil, errtypes.DataFormat("row %d: %s is missing", i+1, Sex)
		}
	}

	return &Transform{
		AgeMedian:    ageMedian,
		FareMedian:   fareMedian,
		EmbarkedMode: embarkedMode,
		Sex:          FitLabelEncoder(sex),
		Embarked:     FitLabelEncoder(embarked),
		Features:     append([]string(nil), FeatureColumns...),
	}, nil
}

// Apply cleans a raw dataset: identifier columns are dropped, missing values
// imputed, categories encoded and derived columns added. The Survived label
// is kept in front when present.
func (tr *Transform) Apply(raw *data.Table) (*data.Table, error) {
	if err := raw.Require(RawColumns...); err != nil {
		return nil, err
	}
	labelled := raw.Has(Survived)

	header := make([]string, 0, len(tr.Features)+1)
	if labelled {
		header = append(header, Survived)
	}
	header = append(header, tr.Features...)

	cell := func(row []string, col string) string {
		return row[raw.Index(col)]
	}

	rows := make([][]string, 0, raw.Len())
	for i, row := range raw.Rows {
		if len(row) != len(raw.Header) {
			return nil, errtypes.DataFormat("row %d has %d fields, header has %d", i+1, len(row), len(raw.Header))
		}
		rec, err := tr.recordOf(i, func(col string) string { return cell(row, col) })
		if err != nil {
			return nil, err
		}
		vec, err := tr.Vector(rec)
		if err != nil {
			return nil, errors.WithMessagef(err, "row %d", i+1)
		}

		out := make([]string, 0, len(header))
		if labelled {
			label, err := data.ParseFloat(cell(row, Survived), Survived, i)
			if err != nil {
				return nil, err
			}
			out = append(out, data.FormatFloat(label))
		}
		for _, v := range vec {
			out = append(out, data.FormatFloat(v))
		}
		rows = append(rows, out)
	}
	return data.New(header, rows), nil
}

func (tr *Transform) recordOf(i int, get func(string) string) (Record, error) {
	var rec Record
	var err error

	if rec.Pclass, err = data.ParseFloat(get(Pclass), Pclass, i); err != nil {
		return rec, err
	}
	if rec.SibSp, err = data.ParseFloat(get(SibSp), SibSp, i); err != nil {
		return rec, err
	}
	if rec.Parch, err = data.ParseFloat(get(Parch), Parch, i); err != nil {
		return rec, err
	}
	rec.Sex = get(Sex)
	if data.IsMissing(rec.Sex) {
		return rec, errtypes.DataFormat("row %d: %s is missing", i+1, Sex)
	}

	if v := get(Age); !data.IsMissing(v) {
		age, err := data.ParseFloat(v, Age, i)
		if err != nil {
			return rec, err
		}
		rec.Age = &age
	}
	if v := get(Fare); !data.IsMissing(v) {
		fare, err := data.ParseFloat(v, Fare, i)
		if err != nil {
			return rec, err
		}
		rec.Fare = &fare
	}
	if v := get(Embarked); !data.IsMissing(v) {
		rec.Embarked = v
	}
	rec.HasCabin = HasCabinOf(get(Cabin))
	rec.FamilySize = FamilySizeOf(rec.SibSp, rec.Parch)
	return rec, nil
}

// Record is one passenger ready to be vectorised. Nil Age or Fare and
// empty Embarked are imputed.
type Record struct {
	Pclass     float64
	Sex        string
	Age        *float64
	SibSp      float64
	Parch      float64
	Fare       *float64
	Embarked   string
	HasCabin   float64
	FamilySize float64
}

// Vector encodes one record in the order of Features.
func (tr *Transform) Vector(rec Record) ([]float64, error) {
	sex, err := tr.Sex.Encode(rec.Sex)
	if err != nil {
		return nil, errors.WithMessage(err, Sex)
	}

	embarked := rec.Embarked
	if data.IsMissing(embarked) {
		embarked = tr.EmbarkedMode
	}
	embarkedCode, err := tr.Embarked.Encode(embarked)
	if err != nil {
		return nil, errors.WithMessage(err, Embarked)
	}

	age := tr.AgeMedian
	if rec.Age != nil {
		age = *rec.Age
	}
	fare := tr.FareMedian
	if rec.Fare != nil {
		fare = *rec.Fare
	}

	values := map[string]float64{
		Pclass:     rec.Pclass,
		Sex:        float64(sex),
		Age:        age,
		SibSp:      rec.SibSp,
		Parch:      rec.Parch,
		Fare:       fare,
		Embarked:   float64(embarkedCode),
		HasCabin:   rec.HasCabin,
		FamilySize: rec.FamilySize,
	}
	out := make([]float64, len(tr.Features))
	for i, f := range tr.Features {
		v, ok := values[f]
		if !ok {
			return nil, errtypes.DataFormat("transform has unknown feature %q", f)
		}
		out[i] = v
	}
	return out, nil
}

// Save writes the transform as JSON.
func (tr *Transform) Save(path string) error {
	return data.WriteFileAtomic(path, tr.Encode)
}

// Encode writes the transform as indented JSON.
func (tr *Transform) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(tr)
}

// LoadTransform reads a transform written by Save.
func LoadTransform(path string) (*Transform, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errtypes.IO(err, "open %s", path)
	}
	defer f.Close()

	tr := new(Transform)
	if err := json.NewDecoder(f).Decode(tr); err != nil {
		return nil, errtypes.DataFormat("%s is not a transform: %s", path, err)
	}
	if len(tr.Features) == 0 || len(tr.Sex.Classes) == 0 || len(tr.Embarked.Classes) == 0 {
		return nil, errtypes.DataFormat("%s is not a fitted transform", path)
	}
	return tr, nil
}
