package contracts

import "time"

// PredictionLogEntry is one walk-forward step
type PredictionLogEntry struct {
	Date      time.Time `json:"date"`
	Actual    float64   `json:"actual"`
	Predicted float64   `json:"predicted"`
}

// ModelMetrics holds error metrics of one model variant
type ModelMetrics struct {
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
}

// AblationResult compares technical-only vs technical+sentiment models
type AblationResult struct {
	Baseline           ModelMetrics `json:"baseline"`
	Enhanced           ModelMetrics `json:"enhanced"`
	ImprovementPercent float64      `json:"improvement_percent"`
	TrainRows          int          `json:"train_rows"`
	TestRows           int          `json:"test_rows"`
	FeatureCountBase   int          `json:"feature_count_base"`
	FeatureCountFull   int          `json:"feature_count_full"`
	BaselineColumns    []string     `json:"baseline_columns"`
	FullColumns        []string     `json:"full_columns"`
}

// BacktestSummary aggregates a walk-forward prediction log
type BacktestSummary struct {
	Steps               int     `json:"steps"`
	MAE                 float64 `json:"mae"`
	RMSE                float64 `json:"rmse"`
	DirectionalAccuracy float64 `json:"directional_accuracy"`
}

// StrategyStats scores a long/flat strategy that follows the predicted direction
type StrategyStats struct {
	Trades        int     `json:"trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	TotalReturn   float64 `json:"total_return"`
	BuyAndHold    float64 `json:"buy_and_hold_return"`
	Volatility    float64 `json:"volatility"`
	SharpeRatio   float64 `json:"sharpe_ratio"`
	MaxDrawdown   float64 `json:"max_drawdown"`
}

// BacktestResult is the walk-forward output
type BacktestResult struct {
	MinTrainSize int                  `json:"min_train_size"`
	Log          []PredictionLogEntry `json:"log"`
	Summary      BacktestSummary      `json:"summary"`
	Strategy     StrategyStats        `json:"strategy"`
}

// SourceStatus reports the state of one sentiment source in a run
type SourceStatus struct {
	Source   SourceName `json:"source"`
	Degraded bool       `json:"degraded"`
	Reason   string     `json:"reason,omitempty"`
	Rows     int        `json:"rows"`
}

// PredictionResult is the outward result of one prediction request
type PredictionResult struct {
	RunID             int64              `json:"run_id,omitempty"`
	Symbol            string             `json:"symbol"`
	CompanyName       string             `json:"company_name"`
	StartDate         string             `json:"start_date"`
	EndDate           string             `json:"end_date"`
	AsOf              time.Time          `json:"as_of"`
	LatestClose       float64            `json:"latest_close"`
	PredictedClose    float64            `json:"predicted_close"`
	Sentiment         SentimentBreakdown `json:"sentiment_breakdown"`
	Ablation          *AblationResult    `json:"ablation,omitempty"`
	Backtest          *BacktestResult    `json:"backtest,omitempty"`
	Sources           []SourceStatus     `json:"sources"`
	TrainingRows      int                `json:"training_rows"`
	WindowLoss        int                `json:"window_loss"`
	FeatureColumns    []string           `json:"feature_columns"`
	FeatureCSVPath    string             `json:"feature_csv_path,omitempty"`
	PredictionCSVPath string             `json:"prediction_csv_path,omitempty"`
	LastUpdated       time.Time          `json:"last_updated"`
}
