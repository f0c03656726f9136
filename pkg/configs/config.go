// Package configs loads the YAML document which drives a full pipeline run.
package configs

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/Rocosso/titanic-ml-pipeline/pkg/errtypes"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/loader"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/model"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/registry"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Environment variables consulted for flag defaults.
const (
	EnvModelDir     = "SM_MODEL_DIR"
	EnvChannelTrain = "SM_CHANNEL_TRAIN"
	EnvChannelTest  = "SM_CHANNEL_TEST"
	EnvChannelRaw   = "SM_CHANNEL_RAW"
	EnvLogLevel     = "TITANIC_LOG_LEVEL"
)

// Env returns the value of key, or fallback when it is unset or empty.
func Env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type Split struct {
	TestSize float64 `yaml:"test_size"`
	Seed     int64   `yaml:"seed"`
}

type Registry struct {
	// DSN of the registry database. Empty means work_dir/registry.db.
	DSN            string          `yaml:"dsn"`
	Group          string          `yaml:"group"`
	ApprovalStatus registry.Status `yaml:"approval_status"`
}

type Serve struct {
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
}

// Pipeline configures preprocess, train and register.
type Pipeline struct {
	// InputData is a raw csv file, or a directory containing titanic.csv.
	InputData       string                `yaml:"input_data"`
	WorkDir         string                `yaml:"work_dir"`
	Hyperparameters model.Hyperparameters `yaml:"hyperparameters"`
	// CVFolds > 1 cross-validates the train partition. 0 skips it.
	CVFolds  int      `yaml:"cv_folds"`
	Split    Split    `yaml:"split"`
	Registry Registry `yaml:"registry"`
	Serve    Serve    `yaml:"serve"`
}

// Default returns the configuration used for absent keys.
func Default() Pipeline {
	return Pipeline{
		InputData:       "./data/raw",
		WorkDir:         "./out",
		Hyperparameters: model.DefaultHyperparameters(),
		Split:           Split{TestSize: loader.DefaultTestSize, Seed: loader.DefaultSeed},
		Registry:        Registry{Group: "TitanicSurvival", ApprovalStatus: registry.PendingManualApproval},
		Serve:           Serve{Port: 8080, LogLevel: "info"},
	}
}

func (p *Pipeline) UnmarshalYAML(node *yaml.Node) error {
	type plain Pipeline
	raw := plain(Default())
	if err := node.Decode(&raw); err != nil {
		return err
	}
	cfg := Pipeline(raw)
	if err := cfg.Validate(); err != nil {
		return err
	}
	*p = cfg
	return nil
}

var logLevels = []string{"debug", "info", "warn", "error", "off"}

// Validate checks ranges and names. Errors wrap errtypes.ErrInvalidParameter.
func (p Pipeline) Validate() error {
	if p.InputData == "" {
		return errtypes.InvalidParameter("input_data is empty")
	}
	if p.WorkDir == "" {
		return errtypes.InvalidParameter("work_dir is empty")
	}
	if err := p.Hyperparameters.Validate(); err != nil {
		return errors.WithMessage(err, "hyperparameters")
	}
	if p.CVFolds < 0 || p.CVFolds == 1 {
		return errtypes.InvalidParameter("cv_folds must be 0 or at least 2, got %d", p.CVFolds)
	}
	if p.Split.TestSize <= 0 || 1 <= p.Split.TestSize {
		return errtypes.InvalidParameter("split.test_size must be in (0, 1), got %v", p.Split.TestSize)
	}
	if p.Registry.Group == "" {
		return errtypes.InvalidParameter("registry.group is empty")
	}
	if _, err := registry.ParseStatus(string(p.Registry.ApprovalStatus)); err != nil {
		return errors.WithMessage(err, "registry.approval_status")
	}
	if p.Serve.Port < 1 || 65535 < p.Serve.Port {
		return errtypes.InvalidParameter("serve.port out of range: %d", p.Serve.Port)
	}
	known := false
	for _, l := range logLevels {
		known = known || strings.EqualFold(l, p.Serve.LogLevel)
	}
	if !known {
		return errtypes.InvalidParameter("serve.log_level %q is not one of %v", p.Serve.LogLevel, logLevels)
	}
	return nil
}

func (p Pipeline) ProcessedDir() string { return filepath.Join(p.WorkDir, "processed") }
func (p Pipeline) ModelDir() string     { return filepath.Join(p.WorkDir, "model") }
func (p Pipeline) ReportDir() string    { return filepath.Join(p.WorkDir, "report") }

func (p Pipeline) RegistryDSN() string {
	if p.Registry.DSN != "" {
		return p.Registry.DSN
	}
	return filepath.Join(p.WorkDir, "registry.db")
}

// Load reads a Pipeline from a YAML file. An empty file yields Default.
func Load(file string) (Pipeline, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return Pipeline{}, errtypes.IO(err, "read config %s", file)
	}
	cfg := Default()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		if errors.Is(err, errtypes.ErrInvalidParameter) {
			return Pipeline{}, errors.WithMessage(err, file)
		}
		return Pipeline{}, errtypes.InvalidParameter("%s: %s", file, err)
	}
	return cfg, nil
}
