package model

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"io"
	"os"
	"time"

	"github.com/Rocosso/titanic-ml-pipeline/pkg/data"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/dataprep"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/errtypes"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"
)

// ArtifactFileName is the name of the model artifact inside a model directory.
const ArtifactFileName = "model.gob.xz"

const artifactVersion byte = 1

var artifactMagic = []byte("TITANICRF")

// Hyperparameters of the training stage. Zero MaxDepth and MaxFeatures
// leave trees unbounded and sample sqrt(p) features.
type Hyperparameters struct {
	NEstimators    int   `json:"n_estimators" yaml:"n_estimators"`
	MinSamplesLeaf int   `json:"min_samples_leaf" yaml:"min_samples_leaf"`
	RandomState    int64 `json:"random_state" yaml:"random_state"`
	NJobs          int   `json:"n_jobs" yaml:"n_jobs"`

	MaxDepth            int     `json:"max_depth,omitempty" yaml:"max_depth"`
	MaxFeatures         int     `json:"max_features,omitempty" yaml:"max_features"`
	MinImpurityDecrease float64 `json:"min_impurity_decrease,omitempty" yaml:"min_impurity_decrease"`
	NoBootstrap         bool    `json:"no_bootstrap,omitempty" yaml:"no_bootstrap"`
}

// DefaultHyperparameters are the values the training stage uses when none are given.
func DefaultHyperparameters() Hyperparameters {
	return Hyperparameters{NEstimators: 100, MinSamplesLeaf: 3, RandomState: DefaultRandomState, NJobs: 1}
}

func (h Hyperparameters) Validate() error {
	if h.NEstimators < 1 {
		return errtypes.InvalidParameter("n_estimators must be positive, got %d", h.NEstimators)
	}
	if h.MinSamplesLeaf < 1 {
		return errtypes.InvalidParameter("min_samples_leaf must be positive, got %d", h.MinSamplesLeaf)
	}
	if h.NJobs < 1 {
		return errtypes.InvalidParameter("n_jobs must be positive, got %d", h.NJobs)
	}
	if h.MaxDepth < 0 {
		return errtypes.InvalidParameter("max_depth must not be negative, got %d", h.MaxDepth)
	}
	if h.MaxFeatures < 0 {
		return errtypes.InvalidParameter("max_features must not be negative, got %d", h.MaxFeatures)
	}
	if h.MinImpurityDecrease < 0 {
		return errtypes.InvalidParameter("min_impurity_decrease must not be negative, got %v", h.MinImpurityDecrease)
	}
	return nil
}

// Forest builds an unfitted forest configured by h.
func (h Hyperparameters) Forest() *RandomForest {
	return NewRandomForest(
		WithNEstimators(h.NEstimators),
		WithLeafSize(h.MinSamplesLeaf),
		WithSeed(h.RandomState),
		WithNJobs(h.NJobs),
		WithTreeDepth(h.MaxDepth),
		WithFeatureSample(h.MaxFeatures),
		WithMinDecrease(h.MinImpurityDecrease),
		WithBootstrap(!h.NoBootstrap),
	)
}

// Meta describes a fitted artifact.
type Meta struct {
	ID              string
	CreatedAt       time.Time
	Hyperparameters Hyperparameters
	Features        []string
	Classes         []int
	TrainRows       int
	TestRows        int
	Scores          Scores
}

// Artifact is a fitted forest together with the transform its inputs need.
// Transform is nil when the forest was trained on pre-cleaned data only.
type Artifact struct {
	Meta      Meta
	Transform *dataprep.Transform
	Forest    *RandomForest
}

// NewArtifact wraps a fitted forest under a fresh id.
func NewArtifact(forest *RandomForest, tr *dataprep.Transform, meta Meta, now time.Time) *Artifact {
	meta.ID = uuid.NewString()
	meta.CreatedAt = now.UTC()
	meta.Classes = forest.Classes
	return &Artifact{Meta: meta, Transform: tr, Forest: forest}
}

// WriteArtifact encodes a to w: magic, version, then an xz stream of gob.
func WriteArtifact(w io.Writer, a *Artifact) error {
	if a == nil || a.Forest == nil || len(a.Forest.Trees) == 0 {
		return errtypes.InvalidParameter("artifact has no fitted forest")
	}
	if _, err := w.Write(append(append([]byte(nil), artifactMagic...), artifactVersion)); err != nil {
		return err
	}
	zw, err := xz.NewWriter(w)
	if err != nil {
		return errors.Wrap(err, "xz writer")
	}
	if err := gob.NewEncoder(zw).Encode(a); err != nil {
		zw.Close()
		return errors.Wrap(err, "gob encode")
	}
	return zw.Close()
}

// ReadArtifact decodes an artifact written by WriteArtifact.
func ReadArtifact(r io.Reader) (*Artifact, error) {
	br := bufio.NewReader(r)
	head := make([]byte, len(artifactMagic)+1)
	if _, err := io.ReadFull(br, head); err != nil {
		return nil, errtypes.DataFormat("artifact header: %s", err)
	}
	if !bytes.Equal(head[:len(artifactMagic)], artifactMagic) {
		return nil, errtypes.DataFormat("not a model artifact")
	}
	if v := head[len(artifactMagic)]; v != artifactVersion {
		return nil, errtypes.DataFormat("unsupported artifact version %d", v)
	}
	zr, err := xz.NewReader(br)
	if err != nil {
		return nil, errtypes.DataFormat("artifact payload: %s", err)
	}
	a := new(Artifact)
	if err := gob.NewDecoder(zr).Decode(a); err != nil {
		return nil, errtypes.DataFormat("artifact payload: %s", err)
	}
	if a.Forest == nil || len(a.Forest.Trees) == 0 {
		return nil, errtypes.DataFormat("artifact has no fitted forest")
	}
	return a, nil
}

// Encode is WriteArtifact(w, a).
func (a *Artifact) Encode(w io.Writer) error { return WriteArtifact(w, a) }

// SaveArtifact writes a to path atomically.
func SaveArtifact(path string, a *Artifact) error {
	return data.WriteFileAtomic(path, a.Encode)
}

// LoadArtifact reads the artifact at path.
func LoadArtifact(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errtypes.IO(err, "open %s", path)
	}
	defer f.Close()
	a, err := ReadArtifact(f)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	return a, nil
}
