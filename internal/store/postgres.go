package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/kassandra/internal/contracts"
)

// RunRepository implements contracts.PredictionRepository on PostgreSQL
// ⭐ SSOT: 예측 실행 기록 저장소는 여기서만
type RunRepository struct {
	pool *pgxpool.Pool
}

// NewRunRepository creates a new run repository
func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

// runRecord is the row form of a PredictionResult
type runRecord struct {
	Symbol          string
	CompanyName     string
	StartDate       time.Time
	EndDate         time.Time
	AsOf            time.Time
	LatestClose     float64
	PredictedClose  float64
	Sentiment       []byte
	Ablation        []byte
	MinTrainSize    *int32
	BacktestSummary []byte
	Strategy        []byte
	Sources         []byte
	TrainingRows    int32
	WindowLoss      int32
	FeatureColumns  []string
	FeatureCSV      string
	PredictionCSV   string
	LastUpdated     time.Time
}

// SaveRun inserts the run and its walk-forward log in one transaction
func (r *RunRepository) SaveRun(ctx context.Context, result *contracts.PredictionResult) (int64, error) {
	rec, err := toRecord(result)
	if err != nil {
		return 0, err
	}

	var runID int64
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			INSERT INTO prediction.runs (
				symbol, company_name, start_date, end_date, as_of,
				latest_close, predicted_close, sentiment, ablation,
				min_train_size, backtest_summary, strategy, sources,
				training_rows, window_loss, feature_columns,
				feature_csv_path, prediction_csv_path, last_updated
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
			RETURNING id
		`
		if err := tx.QueryRow(ctx, query,
			rec.Symbol, rec.CompanyName, rec.StartDate, rec.EndDate, rec.AsOf,
			rec.LatestClose, rec.PredictedClose, rec.Sentiment, rec.Ablation,
			rec.MinTrainSize, rec.BacktestSummary, rec.Strategy, rec.Sources,
			rec.TrainingRows, rec.WindowLoss, rec.FeatureColumns,
			rec.FeatureCSV, rec.PredictionCSV, rec.LastUpdated,
		).Scan(&runID); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		if result.Backtest == nil || len(result.Backtest.Log) == 0 {
			return nil
		}
		rows := make([][]interface{}, 0, len(result.Backtest.Log))
		for _, entry := range result.Backtest.Log {
			rows = append(rows, []interface{}{runID, entry.Date, entry.Actual, entry.Predicted})
		}
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"prediction", "run_log"},
			[]string{"run_id", "trade_date", "actual", "predicted"},
			pgx.CopyFromRows(rows),
		); err != nil {
			return fmt.Errorf("copy run log: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("save run for %s: %w", result.Symbol, err)
	}
	return runID, nil
}

// LatestRun loads the most recent run of symbol with its log
func (r *RunRepository) LatestRun(ctx context.Context, symbol string) (*contracts.PredictionResult, error) {
	query := `
		SELECT id, symbol, company_name, start_date, end_date, as_of,
		       latest_close, predicted_close, sentiment, ablation,
		       min_train_size, backtest_summary, strategy, sources,
		       training_rows, window_loss, feature_columns,
		       feature_csv_path, prediction_csv_path, last_updated
		FROM prediction.runs
		WHERE symbol = $1
		ORDER BY last_updated DESC, id DESC
		LIMIT 1
	`

	var runID int64
	var rec runRecord
	err := r.pool.QueryRow(ctx, query, symbol).Scan(
		&runID, &rec.Symbol, &rec.CompanyName, &rec.StartDate, &rec.EndDate, &rec.AsOf,
		&rec.LatestClose, &rec.PredictedClose, &rec.Sentiment, &rec.Ablation,
		&rec.MinTrainSize, &rec.BacktestSummary, &rec.Strategy, &rec.Sources,
		&rec.TrainingRows, &rec.WindowLoss, &rec.FeatureColumns,
		&rec.FeatureCSV, &rec.PredictionCSV, &rec.LastUpdated,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("no prediction run for %s: %w", symbol, contracts.ErrDataUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("load latest run for %s: %w", symbol, err)
	}

	result, err := fromRecord(&rec)
	if err != nil {
		return nil, err
	}
	result.RunID = runID

	if result.Backtest != nil {
		log, err := r.loadLog(ctx, runID)
		if err != nil {
			return nil, err
		}
		result.Backtest.Log = log
	}
	return result, nil
}

func (r *RunRepository) loadLog(ctx context.Context, runID int64) ([]contracts.PredictionLogEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT trade_date, actual, predicted
		FROM prediction.run_log
		WHERE run_id = $1
		ORDER BY trade_date ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("load run log %d: %w", runID, err)
	}
	defer rows.Close()

	var log []contracts.PredictionLogEntry
	for rows.Next() {
		var e contracts.PredictionLogEntry
		if err := rows.Scan(&e.Date, &e.Actual, &e.Predicted); err != nil {
			return nil, err
		}
		e.Date = contracts.NormalizeDate(e.Date)
		log = append(log, e)
	}
	return log, rows.Err()
}

// toRecord flattens a result; the walk-forward log is stored separately
func toRecord(result *contracts.PredictionResult) (*runRecord, error) {
	start, err := time.Parse(contracts.DateLayout, result.StartDate)
	if err != nil {
		return nil, fmt.Errorf("start date: %w", err)
	}
	end, err := time.Parse(contracts.DateLayout, result.EndDate)
	if err != nil {
		return nil, fmt.Errorf("end date: %w", err)
	}

	rec := &runRecord{
		Symbol:         result.Symbol,
		CompanyName:    result.CompanyName,
		StartDate:      start,
		EndDate:        end,
		AsOf:           contracts.NormalizeDate(result.AsOf),
		LatestClose:    result.LatestClose,
		PredictedClose: result.PredictedClose,
		TrainingRows:   int32(result.TrainingRows),
		WindowLoss:     int32(result.WindowLoss),
		FeatureColumns: result.FeatureColumns,
		FeatureCSV:     result.FeatureCSVPath,
		PredictionCSV:  result.PredictionCSVPath,
		LastUpdated:    result.LastUpdated,
	}
	if rec.FeatureColumns == nil {
		rec.FeatureColumns = []string{}
	}

	if rec.Sentiment, err = json.Marshal(result.Sentiment); err != nil {
		return nil, fmt.Errorf("encode sentiment: %w", err)
	}
	sources := result.Sources
	if sources == nil {
		sources = []contracts.SourceStatus{}
	}
	if rec.Sources, err = json.Marshal(sources); err != nil {
		return nil, fmt.Errorf("encode sources: %w", err)
	}
	if result.Ablation != nil {
		if rec.Ablation, err = json.Marshal(result.Ablation); err != nil {
			return nil, fmt.Errorf("encode ablation: %w", err)
		}
	}
	if result.Backtest != nil {
		minTrain := int32(result.Backtest.MinTrainSize)
		rec.MinTrainSize = &minTrain
		if rec.BacktestSummary, err = json.Marshal(result.Backtest.Summary); err != nil {
			return nil, fmt.Errorf("encode backtest summary: %w", err)
		}
		if rec.Strategy, err = json.Marshal(result.Backtest.Strategy); err != nil {
			return nil, fmt.Errorf("encode strategy: %w", err)
		}
	}
	return rec, nil
}

func fromRecord(rec *runRecord) (*contracts.PredictionResult, error) {
	result := &contracts.PredictionResult{
		Symbol:            rec.Symbol,
		CompanyName:       rec.CompanyName,
		StartDate:         contracts.DateKey(rec.StartDate),
		EndDate:           contracts.DateKey(rec.EndDate),
		AsOf:              contracts.NormalizeDate(rec.AsOf),
		LatestClose:       rec.LatestClose,
		PredictedClose:    rec.PredictedClose,
		TrainingRows:      int(rec.TrainingRows),
		WindowLoss:        int(rec.WindowLoss),
		FeatureColumns:    rec.FeatureColumns,
		FeatureCSVPath:    rec.FeatureCSV,
		PredictionCSVPath: rec.PredictionCSV,
		LastUpdated:       rec.LastUpdated,
	}

	if err := json.Unmarshal(rec.Sentiment, &result.Sentiment); err != nil {
		return nil, fmt.Errorf("decode sentiment: %w", err)
	}
	if err := json.Unmarshal(rec.Sources, &result.Sources); err != nil {
		return nil, fmt.Errorf("decode sources: %w", err)
	}
	if len(rec.Ablation) > 0 {
		result.Ablation = &contracts.AblationResult{}
		if err := json.Unmarshal(rec.Ablation, result.Ablation); err != nil {
			return nil, fmt.Errorf("decode ablation: %w", err)
		}
	}
	if len(rec.BacktestSummary) > 0 {
		result.Backtest = &contracts.BacktestResult{}
		if rec.MinTrainSize != nil {
			result.Backtest.MinTrainSize = int(*rec.MinTrainSize)
		}
		if err := json.Unmarshal(rec.BacktestSummary, &result.Backtest.Summary); err != nil {
			return nil, fmt.Errorf("decode backtest summary: %w", err)
		}
		if len(rec.Strategy) > 0 {
			if err := json.Unmarshal(rec.Strategy, &result.Backtest.Strategy); err != nil {
				return nil, fmt.Errorf("decode strategy: %w", err)
			}
		}
	}
	return result, nil
}
