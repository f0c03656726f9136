// Package inference serves survival predictions for single passengers.
//
// Requests carry the nine cleaned-record fields. They are validated,
// encoded with the transform stored in the model artifact and scored by its
// forest. Every outcome, including failures, leaves the package as a
// Response.
package inference

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/Rocosso/titanic-ml-pipeline/pkg/dataprep"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/errtypes"
)

// ErrInvalidRequest marks inference errors caused by the request rather
// than the model. Such errors also match errtypes.ErrInference.
var ErrInvalidRequest = errors.New("invalid request")

func invalid(format string, args ...any) error {
	return errtypes.InferenceCause(ErrInvalidRequest, format, args...)
}

// Request is one passenger. Age, Fare and Embarked may be omitted and are
// then imputed; every other field is required.
type Request struct {
	Pclass     *int     `json:"Pclass"`
	Sex        *string  `json:"Sex"`
	Age        *float64 `json:"Age"`
	SibSp      *int     `json:"SibSp"`
	Parch      *int     `json:"Parch"`
	Fare       *float64 `json:"Fare"`
	Embarked   *string  `json:"Embarked"`
	HasCabin   *int     `json:"HasCabin"`
	FamilySize *int     `json:"FamilySize"`
}

// DecodeRequest reads one JSON request and validates it. The body must
// hold exactly one object.
func DecodeRequest(r io.Reader) (Request, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var req Request
	if err := dec.Decode(&req); err != nil {
		return Request{}, invalid("malformed request body: %s", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Request{}, invalid("malformed request body: data after the request object")
	}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Validate checks presence and ranges. Category values are checked when
// the request is encoded.
func (r Request) Validate() error {
	required := []struct {
		name    string
		present bool
	}{
		{dataprep.Pclass, r.Pclass != nil},
		{dataprep.Sex, r.Sex != nil},
		{dataprep.SibSp, r.SibSp != nil},
		{dataprep.Parch, r.Parch != nil},
		{dataprep.HasCabin, r.HasCabin != nil},
		{dataprep.FamilySize, r.FamilySize != nil},
	}
	for _, f := range required {
		if !f.present {
			return invalid("missing required field %s", f.name)
		}
	}

	switch {
	case *r.Pclass < 1 || 3 < *r.Pclass:
		return invalid("Pclass must be 1, 2 or 3, got %d", *r.Pclass)
	case *r.Sex == "":
		return invalid("Sex is empty")
	case *r.SibSp < 0 || *r.Parch < 0:
		return invalid("SibSp and Parch must not be negative")
	case *r.HasCabin != 0 && *r.HasCabin != 1:
		return invalid("HasCabin must be 0 or 1, got %d", *r.HasCabin)
	case *r.FamilySize < 1:
		return invalid("FamilySize must be at least 1, got %d", *r.FamilySize)
	case r.Age != nil && *r.Age < 0:
		return invalid("Age must not be negative, got %v", *r.Age)
	case r.Fare != nil && *r.Fare < 0:
		return invalid("Fare must not be negative, got %v", *r.Fare)
	}
	return nil
}

// Record converts a validated request.
func (r Request) Record() dataprep.Record {
	rec := dataprep.Record{
		Pclass:     float64(*r.Pclass),
		Sex:        *r.Sex,
		Age:        r.Age,
		SibSp:      float64(*r.SibSp),
		Parch:      float64(*r.Parch),
		Fare:       r.Fare,
		HasCabin:   float64(*r.HasCabin),
		FamilySize: float64(*r.FamilySize),
	}
	if r.Embarked != nil {
		rec.Embarked = *r.Embarked
	}
	return rec
}
