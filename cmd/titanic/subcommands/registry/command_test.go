package registry_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	subregistry "github.com/Rocosso/titanic-ml-pipeline/cmd/titanic/subcommands/registry"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/registry"
	"gotest.tools/v3/assert"
)

func TestListAndApprove(t *testing.T) {
	ctx := context.Background()
	flags := subregistry.Flags{DSN: filepath.Join(t.TempDir(), "registry.db"), Group: "titanic"}

	reg, err := registry.Open(ctx, flags.DSN)
	assert.NilError(t, err)
	_, err = reg.Register(ctx, registry.Package{Group: "titanic", ModelID: "abc", Artifact: "/m/model.gob.xz", Accuracy: 0.8})
	assert.NilError(t, err)
	assert.NilError(t, reg.Close())

	assert.NilError(t, subregistry.SetStatus(ctx, flags, 1, registry.Approved))

	var out bytes.Buffer
	assert.NilError(t, subregistry.List(ctx, &out, flags))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, len(lines), 2)
	assert.Assert(t, strings.HasPrefix(lines[0], "VERSION"))
	assert.Assert(t, strings.Contains(lines[1], "Approved"))
	assert.Assert(t, strings.Contains(lines[1], "0.8000"))

	err = subregistry.SetStatus(ctx, flags, 7, registry.Rejected)
	assert.Assert(t, errors.Is(err, registry.ErrNotFound))
}
