package pipeline

import (
	"context"
	"path/filepath"

	"github.com/Rocosso/titanic-ml-pipeline/pkg/configs"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/registry"
)

type RunResult struct {
	Preprocess *PreprocessResult
	Train      *TrainResult
	Package    registry.Package
}

// Run preprocesses cfg.InputData, trains on the result and registers the
// artifact in the model registry.
func Run(ctx context.Context, cfg configs.Pipeline, opts ...Option) (*RunResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts = append([]Option{WithSplit(cfg.Split.TestSize, cfg.Split.Seed)}, opts...)
	o := buildOptions(opts)
	res := &RunResult{}

	p := NewPipeline(
		o.logger,
		Step{Name: "preprocess", Run: func(ctx context.Context) error {
			r, err := Preprocess(ctx, cfg.InputData, cfg.ProcessedDir(), opts...)
			res.Preprocess = r
			return err
		}},
		Step{Name: "train", Run: func(ctx context.Context) error {
			r, err := Train(ctx, TrainInput{
				Train:           filepath.Dir(res.Preprocess.TrainPath),
				Test:            filepath.Dir(res.Preprocess.TestPath),
				ModelDir:        cfg.ModelDir(),
				ReportDir:       cfg.ReportDir(),
				Hyperparameters: cfg.Hyperparameters,
				CVFolds:         cfg.CVFolds,
			}, opts...)
			res.Train = r
			return err
		}},
		Step{Name: "register", Run: func(ctx context.Context) error {
			reg, err := registry.Open(ctx, cfg.RegistryDSN())
			if err != nil {
				return err
			}
			defer reg.Close()

			artifact, err := filepath.Abs(res.Train.ArtifactPath)
			if err != nil {
				artifact = res.Train.ArtifactPath
			}
			pkg, err := reg.Register(ctx, registry.Package{
				Group:     cfg.Registry.Group,
				ModelID:   res.Train.Artifact.Meta.ID,
				Artifact:  artifact,
				Accuracy:  res.Train.Accuracy,
				Status:    cfg.Registry.ApprovalStatus,
				CreatedAt: o.now(),
			})
			if err != nil {
				return err
			}
			res.Package = pkg
			o.logger.Infof("registered %s version %d (%s)", pkg.Group, pkg.Version, pkg.Status)
			return nil
		}},
	)
	if err := p.Run(ctx); err != nil {
		return res, err
	}
	return res, nil
}
