package regressor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearData(n int) ([][]float64, []float64) {
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		a := float64(i)
		b := math.Sin(float64(i) / 3)
		X[i] = []float64{a, b}
		y[i] = 3*a - 2*b + 5
	}
	return X, y
}

func TestNew(t *testing.T) {
	tests := []struct {
		kind    string
		want    string
		wantErr bool
	}{
		{"random_forest", KindRandomForest, false},
		{"RF", KindRandomForest, false},
		{"ridge", KindRidge, false},
		{"xgboost", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Kind = tt.kind
			r, err := New(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Name())
		})
	}
}

func TestRandomForest_FitsTrainingData(t *testing.T) {
	X, y := linearData(60)
	cfg := DefaultConfig()
	cfg.Trees = 20

	model, err := NewRandomForest(cfg).Fit(X, y)
	require.NoError(t, err)

	pred, err := model.Predict(X)
	require.NoError(t, err)
	rmse, err := RMSE(y, pred)
	require.NoError(t, err)

	// bagged trees on a smooth target stay close to the training data
	assert.Less(t, rmse, 10.0)
}

func TestRandomForest_Deterministic(t *testing.T) {
	X, y := linearData(40)
	cfg := DefaultConfig()
	cfg.Trees = 15

	m1, err := NewRandomForest(cfg).Fit(X, y)
	require.NoError(t, err)
	m2, err := NewRandomForest(cfg).Fit(X, y)
	require.NoError(t, err)

	queries := [][]float64{{3.5, 0.1}, {17, -0.4}, {39, 0.9}}
	p1, err := m1.Predict(queries)
	require.NoError(t, err)
	p2, err := m2.Predict(queries)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
}

func TestRandomForest_ConstantTarget(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {4}}
	y := []float64{7, 7, 7, 7}

	model, err := NewRandomForest(Config{Trees: 3, MinLeaf: 1, Seed: 1}).Fit(X, y)
	require.NoError(t, err)
	pred, err := model.Predict([][]float64{{100}})
	require.NoError(t, err)
	assert.Equal(t, 7.0, pred[0])
}

func TestRandomForest_SingleRow(t *testing.T) {
	model, err := NewRandomForest(DefaultConfig()).Fit([][]float64{{1, 2}}, []float64{42})
	require.NoError(t, err)
	pred, err := model.Predict([][]float64{{9, 9}})
	require.NoError(t, err)
	assert.Equal(t, 42.0, pred[0])
}

func TestRidge_RecoversLinearRelation(t *testing.T) {
	X, y := linearData(50)
	model, err := NewRidge(1e-9).Fit(X, y)
	require.NoError(t, err)

	pred, err := model.Predict([][]float64{{10, 0.5}})
	require.NoError(t, err)
	assert.InDelta(t, 3*10.0-2*0.5+5, pred[0], 1e-4)
}

func TestRidge_ConstantColumn(t *testing.T) {
	X := [][]float64{{1, 0}, {2, 0}, {3, 0}, {4, 0}}
	y := []float64{2, 4, 6, 8}

	model, err := NewRidge(0).Fit(X, y)
	require.NoError(t, err)
	pred, err := model.Predict([][]float64{{5, 0}})
	require.NoError(t, err)
	assert.InDelta(t, 10.0, pred[0], 1e-9)
}

func TestFit_BadInput(t *testing.T) {
	regs := []Regressor{NewRandomForest(DefaultConfig()), NewRidge(1)}

	cases := []struct {
		name string
		X    [][]float64
		y    []float64
	}{
		{"empty", nil, nil},
		{"length mismatch", [][]float64{{1}, {2}}, []float64{1}},
		{"ragged", [][]float64{{1, 2}, {3}}, []float64{1, 2}},
		{"nan feature", [][]float64{{math.NaN()}}, []float64{1}},
		{"inf target", [][]float64{{1}}, []float64{math.Inf(1)}},
	}

	for _, r := range regs {
		for _, tc := range cases {
			t.Run(r.Name()+"/"+tc.name, func(t *testing.T) {
				_, err := r.Fit(tc.X, tc.y)
				assert.ErrorIs(t, err, ErrBadInput)
			})
		}
	}
}

func TestPredict_WidthMismatch(t *testing.T) {
	model, err := NewRidge(1).Fit([][]float64{{1, 2}, {2, 3}}, []float64{1, 2})
	require.NoError(t, err)
	_, err = model.Predict([][]float64{{1}})
	assert.ErrorIs(t, err, ErrBadInput)
}

func TestMetrics(t *testing.T) {
	actual := []float64{10, 12, 11, 13}
	pred := []float64{11, 12, 9, 13}

	mae, err := MAE(actual, pred)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, mae, 1e-12)

	rmse, err := RMSE(actual, pred)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(5.0/4.0), rmse, 1e-12)

	reference := []float64{9, 13, 10, 13}
	// actual moves: up, down, up, flat. predicted: up, down, down, flat
	assert.InDelta(t, 0.75, DirectionalAccuracy(reference, actual, pred), 1e-12)
	assert.Equal(t, 0.0, DirectionalAccuracy(nil, nil, nil))

	_, err = MAE(nil, nil)
	assert.ErrorIs(t, err, ErrBadInput)
}
