package regressor

import (
	"fmt"
	"math"
)

// MAE returns the mean absolute error
func MAE(actual, predicted []float64) (float64, error) {
	if err := checkPairs(actual, predicted); err != nil {
		return 0, err
	}
	var sum float64
	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(len(actual)), nil
}

// RMSE returns the root mean squared error
func RMSE(actual, predicted []float64) (float64, error) {
	if err := checkPairs(actual, predicted); err != nil {
		return 0, err
	}
	var sum float64
	for i := range actual {
		d := actual[i] - predicted[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(actual))), nil
}

// DirectionalAccuracy is the share of points where the predicted move from
// the reference price has the same sign as the actual move.
func DirectionalAccuracy(reference, actual, predicted []float64) float64 {
	if len(reference) == 0 || len(reference) != len(actual) || len(actual) != len(predicted) {
		return 0
	}
	hits := 0
	for i := range reference {
		if sign(actual[i]-reference[i]) == sign(predicted[i]-reference[i]) {
			hits++
		}
	}
	return float64(hits) / float64(len(reference))
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func checkPairs(actual, predicted []float64) error {
	if len(actual) == 0 {
		return fmt.Errorf("no points to score: %w", ErrBadInput)
	}
	if len(actual) != len(predicted) {
		return fmt.Errorf("%d actual vs %d predicted: %w", len(actual), len(predicted), ErrBadInput)
	}
	return nil
}
