package dataprep

import (
	"sort"
	"strconv"
	"strings"

	"github.com/Rocosso/titanic-ml-pipeline/pkg/errtypes"
)

// LabelEncoder encodes categories as integers: the code of a value is its
// position among the sorted distinct values seen at fit time.
type LabelEncoder struct {
	Classes []string `json:"classes"`
}

// FitLabelEncoder learns the distinct values of data.
func FitLabelEncoder(data []string) LabelEncoder {
	unique := map[string]struct{}{}
	for _, v := range data {
		unique[v] = struct{}{}
	}
	classes := make([]string, 0, len(unique))
	for v := range unique {
		classes = append(classes, v)
	}
	sort.Strings(classes)
	return LabelEncoder{Classes: classes}
}

// Encode returns the code of v. Values not seen at fit time are an error.
func (e LabelEncoder) Encode(v string) (int, error) {
	i := sort.SearchStrings(e.Classes, v)
	if i < len(e.Classes) && e.Classes[i] == v {
		return i, nil
	}
	return 0, errtypes.DataFormat("unknown category %q (known: %v)", v, e.Classes)
}

// Decode is the inverse of Encode.
func (e LabelEncoder) Decode(code int) (string, error) {
	if code < 0 || len(e.Classes) <= code {
		return "", errtypes.DataFormat("code %d is out of range [0, %d)", code, len(e.Classes))
	}
	return e.Classes[code], nil
}

// String lists the codes, as in "0=female 1=male".
func (e LabelEncoder) String() string {
	pairs := make([]string, len(e.Classes))
	for code := range e.Classes {
		v, _ := e.Decode(code)
		pairs[code] = strconv.Itoa(code) + "=" + v
	}
	return strings.Join(pairs, " ")
}
