// Package pipeline implements the batch stages of the survival model:
// Preprocess turns a raw passenger csv into encoded train and test
// partitions, Train fits a random forest on them, and Run chains both
// with model registration.
package pipeline

import (
	"context"
	"time"

	"github.com/Rocosso/titanic-ml-pipeline/pkg/loader"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/logging"
	"github.com/pkg/errors"
)

// Step is one stage of a Pipeline.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Pipeline chains steps. They run in order and the first failure stops it.
type Pipeline struct {
	steps  []Step
	logger logging.Logger
}

func NewPipeline(logger logging.Logger, steps ...Step) *Pipeline {
	return &Pipeline{steps: steps, logger: logger}
}

func (p *Pipeline) Run(ctx context.Context) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		p.logger.Infof("step %s: started", step.Name)
		if err := step.Run(ctx); err != nil {
			return errors.WithMessagef(err, "step %s", step.Name)
		}
		p.logger.Infof("step %s: done in %s", step.Name, time.Since(start).Round(time.Millisecond))
	}
	return nil
}

type options struct {
	logger   logging.Logger
	now      func() time.Time
	testSize float64
	seed     int64
}

// Option configures a stage.
type Option func(*options)

// WithLogger sends stage progress to l.
func WithLogger(l logging.Logger) Option { return func(o *options) { o.logger = l } }

// WithClock replaces time.Now for artifact and registry timestamps.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// WithSplit sets the test fraction and the seed of the train/test split.
func WithSplit(testSize float64, seed int64) Option {
	return func(o *options) { o.testSize, o.seed = testSize, seed }
}

func buildOptions(opts []Option) *options {
	o := &options{
		logger:   logging.New("pipeline", "info"),
		now:      time.Now,
		testSize: loader.DefaultTestSize,
		seed:     loader.DefaultSeed,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
