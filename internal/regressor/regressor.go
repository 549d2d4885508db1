package regressor

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Regressor trains a model on a feature matrix.
// Fit never mutates the receiver; every call returns a new Model.
type Regressor interface {
	Fit(X [][]float64, y []float64) (Model, error)
	Name() string
}

// Model is an immutable trained regressor
type Model interface {
	Predict(X [][]float64) ([]float64, error)
}

// Kinds
const (
	KindRandomForest = "random_forest"
	KindRidge        = "ridge"
)

// ErrBadInput is returned for empty, ragged or non-finite training data
var ErrBadInput = errors.New("bad regressor input")

// Config selects and tunes a regressor
type Config struct {
	Kind       string
	Trees      int
	MaxDepth   int // 0 = unlimited
	MinLeaf    int
	Seed       int64
	RidgeAlpha float64
}

// DefaultConfig returns a 100-tree forest with seed 42
func DefaultConfig() Config {
	return Config{
		Kind:       KindRandomForest,
		Trees:      100,
		MaxDepth:   0,
		MinLeaf:    1,
		Seed:       42,
		RidgeAlpha: 1.0,
	}
}

// New creates the regressor named by cfg.Kind
func New(cfg Config) (Regressor, error) {
	switch strings.ToLower(cfg.Kind) {
	case KindRandomForest, "rf", "forest":
		return NewRandomForest(cfg), nil
	case KindRidge, "linear":
		return NewRidge(cfg.RidgeAlpha), nil
	default:
		return nil, fmt.Errorf("unknown regressor: %s", cfg.Kind)
	}
}

// validateXY checks shape and finiteness, returning the feature count
func validateXY(X [][]float64, y []float64) (int, error) {
	if len(X) == 0 {
		return 0, fmt.Errorf("no training rows: %w", ErrBadInput)
	}
	if len(X) != len(y) {
		return 0, fmt.Errorf("%d rows but %d targets: %w", len(X), len(y), ErrBadInput)
	}
	width := len(X[0])
	if width == 0 {
		return 0, fmt.Errorf("no feature columns: %w", ErrBadInput)
	}
	for i, row := range X {
		if len(row) != width {
			return 0, fmt.Errorf("row %d has %d features, want %d: %w", i, len(row), width, ErrBadInput)
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, fmt.Errorf("non-finite feature in row %d: %w", i, ErrBadInput)
			}
		}
		if math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			return 0, fmt.Errorf("non-finite target in row %d: %w", i, ErrBadInput)
		}
	}
	return width, nil
}

func checkWidth(X [][]float64, width int) error {
	for i, row := range X {
		if len(row) != width {
			return fmt.Errorf("predict row %d has %d features, model expects %d: %w", i, len(row), width, ErrBadInput)
		}
	}
	return nil
}
