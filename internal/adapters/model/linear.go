package model

import (
	"context"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// LinearModel is a multinomial logistic classifier stored as YAML:
//
//	classes:  [Normal, Unbalance, ...]
//	features: [vibration_rms, ...]
//	mean:     [...]            # optional standardization
//	scale:    [...]
//	weights:  [[...], ...]     # n_classes x n_features
//	bias:     [...]            # n_classes
//
// It is immutable after load.
type LinearModel struct {
	Name      string      `yaml:"name"`
	ClassList []string    `yaml:"classes"`
	Columns   []string    `yaml:"features"`
	Mean      []float64   `yaml:"mean"`
	Scale     []float64   `yaml:"scale"`
	Weights   [][]float64 `yaml:"weights"`
	Bias      []float64   `yaml:"bias"`
}

// LoadLinear reads and validates a model artifact from path.
func LoadLinear(path string) (*LinearModel, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrArtifact)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseLinear(b)
}

// ParseLinear decodes and validates a YAML model artifact.
func ParseLinear(b []byte) (*LinearModel, error) {
	var m LinearModel
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArtifact, err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *LinearModel) validate() error {
	nc, nf := len(m.ClassList), len(m.Columns)
	switch {
	case nc < 2:
		return fmt.Errorf("%w: need at least 2 classes, got %d", ErrArtifact, nc)
	case nf == 0:
		return fmt.Errorf("%w: no features", ErrArtifact)
	case len(m.Weights) != nc:
		return fmt.Errorf("%w: %d weight rows for %d classes", ErrArtifact, len(m.Weights), nc)
	case len(m.Bias) != nc:
		return fmt.Errorf("%w: %d biases for %d classes", ErrArtifact, len(m.Bias), nc)
	case len(m.Mean) != 0 && len(m.Mean) != nf:
		return fmt.Errorf("%w: %d means for %d features", ErrArtifact, len(m.Mean), nf)
	case len(m.Scale) != 0 && len(m.Scale) != nf:
		return fmt.Errorf("%w: %d scales for %d features", ErrArtifact, len(m.Scale), nf)
	}
	for i, w := range m.Weights {
		if len(w) != nf {
			return fmt.Errorf("%w: class %q has %d weights, want %d", ErrArtifact, m.ClassList[i], len(w), nf)
		}
	}
	for i, s := range m.Scale {
		if s == 0 {
			return fmt.Errorf("%w: zero scale for %q", ErrArtifact, m.Columns[i])
		}
	}
	return nil
}

func (m *LinearModel) Classes() []string  { return append([]string(nil), m.ClassList...) }
func (m *LinearModel) Features() []string { return append([]string(nil), m.Columns...) }

// PredictProba applies standardization, the linear layer and softmax.
func (m *LinearModel) PredictProba(ctx context.Context, rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	z := make([]float64, len(m.Columns))
	for r, row := range rows {
		if r%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if len(row) != len(m.Columns) {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrWidth, r, len(row), len(m.Columns))
		}
		for j, v := range row {
			if len(m.Mean) > 0 {
				v -= m.Mean[j]
			}
			if len(m.Scale) > 0 {
				v /= m.Scale[j]
			}
			z[j] = v
		}
		logits := make([]float64, len(m.ClassList))
		for c, w := range m.Weights {
			s := m.Bias[c]
			for j, x := range z {
				s += w[j] * x
			}
			logits[c] = s
		}
		out[r] = softmax(logits)
	}
	return out, nil
}

// softmax normalizes logits in place and returns them.
func softmax(logits []float64) []float64 {
	peak := math.Inf(-1)
	for _, l := range logits {
		peak = math.Max(peak, l)
	}
	var sum float64
	for i, l := range logits {
		logits[i] = math.Exp(l - peak)
		sum += logits[i]
	}
	for i := range logits {
		logits[i] /= sum
	}
	return logits
}
