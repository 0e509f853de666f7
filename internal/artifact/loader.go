package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/JakeFAU/salary-predictor/internal/model"
)

// Default object names, relative to the configured source.
const (
	DefaultModelPath        = "salary_predictor_model.json"
	DefaultPreprocessorPath = "salary_predictor_preprocessing.json"
)

// maxArtifactBytes bounds how much of an artifact object is read.
const maxArtifactBytes = 64 << 20

// ArtifactLoadError is fatal: the service cannot start without a model.
type ArtifactLoadError struct {
	Location string
	Err      error
}

func (e *ArtifactLoadError) Error() string {
	return fmt.Sprintf("load model artifact %s: %v", e.Location, e.Err)
}

func (e *ArtifactLoadError) Unwrap() error {
	return e.Err
}

// Config names the objects to load.
type Config struct {
	ModelPath        string
	PreprocessorPath string
}

// Loader reads the model and optional preprocessor from a Source.
type Loader struct {
	source Source
	cfg    Config
	logger *zap.Logger
}

// NewLoader creates a Loader. Empty paths fall back to the defaults.
func NewLoader(source Source, cfg Config, logger *zap.Logger) *Loader {
	if cfg.ModelPath == "" {
		cfg.ModelPath = DefaultModelPath
	}
	if cfg.PreprocessorPath == "" {
		cfg.PreprocessorPath = DefaultPreprocessorPath
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{source: source, cfg: cfg, logger: logger}
}

// Load reads the model artifact, which must succeed, and the preprocessor,
// which may be absent. A nil preprocessor means none was loaded.
func (l *Loader) Load(ctx context.Context) (*model.Artifact, *model.Preprocessor, error) {
	location := l.source.Location(l.cfg.ModelPath)
	data, err := l.read(ctx, l.cfg.ModelPath)
	if err != nil {
		return nil, nil, &ArtifactLoadError{Location: location, Err: err}
	}
	bundle, format, err := decode[model.Bundle](data)
	if err != nil {
		return nil, nil, &ArtifactLoadError{Location: location, Err: err}
	}
	artifact, err := model.FromBundle(bundle)
	if err != nil {
		return nil, nil, &ArtifactLoadError{Location: location, Err: err}
	}
	l.logger.Info("model loaded",
		zap.String("location", location),
		zap.String("format", format),
		zap.String("model", artifact.Name()),
		zap.Int("features", len(bundle.FeatureNames)),
	)

	pre := l.loadPreprocessor(ctx)
	if pre != nil {
		for _, d := range pre.Discrepancies(artifact.Metadata()) {
			l.logger.Warn("preprocessor disagrees with model", zap.String("detail", d))
		}
	}
	return artifact, pre, nil
}

func (l *Loader) loadPreprocessor(ctx context.Context) *model.Preprocessor {
	location := l.source.Location(l.cfg.PreprocessorPath)
	data, err := l.read(ctx, l.cfg.PreprocessorPath)
	if err != nil {
		l.logger.Warn("preprocessor not loaded", zap.String("location", location), zap.Error(err))
		return nil
	}
	pre, format, err := decode[model.Preprocessor](data)
	if err != nil {
		l.logger.Warn("preprocessor not loaded", zap.String("location", location), zap.Error(err))
		return nil
	}
	l.logger.Info("preprocessor loaded", zap.String("location", location), zap.String("format", format))
	return &pre
}

func (l *Loader) read(ctx context.Context, name string) ([]byte, error) {
	rc, err := l.source.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil {
			l.logger.Debug("close artifact reader", zap.Error(cerr))
		}
	}()
	data, err := io.ReadAll(io.LimitReader(rc, maxArtifactBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(data) > maxArtifactBytes {
		return nil, fmt.Errorf("%s exceeds %d bytes", name, maxArtifactBytes)
	}
	return data, nil
}

// decode tries JSON first and YAML second, returning the format that worked.
// Each attempt starts from a zero value.
func decode[T any](data []byte) (T, string, error) {
	var fromJSON T
	jsonErr := json.Unmarshal(data, &fromJSON)
	if jsonErr == nil {
		return fromJSON, "json", nil
	}
	var fromYAML T
	yamlErr := yaml.Unmarshal(data, &fromYAML)
	if yamlErr == nil {
		return fromYAML, "yaml", nil
	}
	var zero T
	return zero, "", errors.Join(
		fmt.Errorf("decode json: %w", jsonErr),
		fmt.Errorf("decode yaml: %w", yamlErr),
	)
}
