package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/wonny/kassandra/internal/contracts"
)

// MemoryRepository keeps the latest run per symbol in process.
// Used when no database is configured.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	latest map[string]*contracts.PredictionResult
}

// NewMemoryRepository creates an empty repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{latest: make(map[string]*contracts.PredictionResult)}
}

// SaveRun stores a copy of result as the symbol's latest run
func (m *MemoryRepository) SaveRun(ctx context.Context, result *contracts.PredictionResult) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	stored := *result
	stored.RunID = m.nextID
	m.latest[strings.ToUpper(result.Symbol)] = &stored
	return m.nextID, nil
}

// LatestRun returns a copy of the latest run of symbol
func (m *MemoryRepository) LatestRun(ctx context.Context, symbol string) (*contracts.PredictionResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.latest[strings.ToUpper(symbol)]
	if !ok {
		return nil, fmt.Errorf("no prediction run for %s: %w", symbol, contracts.ErrDataUnavailable)
	}
	out := *stored
	return &out, nil
}
