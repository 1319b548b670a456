// Package model loads the pretrained failure classifier.
package model

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/vibrapulse/internal/domain/inference"
)

// Kinds of model backends.
const (
	KindFile   = "file"
	KindRemote = "remote"
)

// Options selects and configures a backend.
type Options struct {
	Kind    string
	Path    string        // KindFile artifact path
	URL     string        // KindRemote base URL
	Timeout time.Duration // KindRemote per-call timeout
	Client  *http.Client  // optional, KindRemote
}

// Load builds the predictor described by opts. Any failure wraps ErrLoadModel.
func Load(ctx context.Context, opts Options) (inference.Predictor, error) {
	switch opts.Kind {
	case KindFile, "":
		m, err := LoadLinear(opts.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadModel, err)
		}
		return m, nil
	case KindRemote:
		m, err := DialRemote(ctx, opts.URL, opts.Timeout, opts.Client)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadModel, err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrLoadModel, opts.Kind)
	}
}
