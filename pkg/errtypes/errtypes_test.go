package errtypes_test

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/Rocosso/titanic-ml-pipeline/pkg/errtypes"
	"gotest.tools/v3/assert"
)

func TestKind(t *testing.T) {
	for name, testcase := range map[string]struct {
		err  error
		want string
	}{
		"data format": {
			err:  errtypes.DataFormat("column %q is missing", "Age"),
			want: "DataFormatError",
		},
		"io keeps its cause": {
			err:  errtypes.IO(fs.ErrPermission, "cannot write %s", "/tmp/x"),
			want: "IOError",
		},
		"inference": {
			err:  errtypes.Inference("field %s is required", "Sex"),
			want: "InferenceError",
		},
		"invalid parameter": {
			err:  errtypes.InvalidParameter("n_estimators must be positive"),
			want: "InvalidParameter",
		},
		"foreign error": {
			err:  errors.New("boom"),
			want: "unknown",
		},
		"nil": {
			err:  nil,
			want: "",
		},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, errtypes.Kind(testcase.err), testcase.want)
		})
	}
}

func TestIOUnwrapsCause(t *testing.T) {
	err := errtypes.IO(fs.ErrNotExist, "open %s", "titanic.csv")

	assert.Assert(t, errors.Is(err, errtypes.ErrIO))
	assert.Assert(t, errors.Is(err, fs.ErrNotExist))
	assert.ErrorContains(t, err, "open titanic.csv")
	assert.ErrorContains(t, err, "file does not exist")
}
