package alignment

import (
	"fmt"
	"time"

	"github.com/wonny/kassandra/internal/contracts"
)

// Dataset is the supervised view of an aligned table.
// Row t pairs the features of day t with close[t+1]; the last aligned row has no target and is dropped.
type Dataset struct {
	Columns []string
	Dates   []time.Time
	X       [][]float64
	Y       []float64
	Close   []float64 // close of day t, for directional scoring
}

// Len returns the number of supervised rows
func (d *Dataset) Len() int {
	return len(d.Y)
}

// Supervise builds (X, y) with target = close on the next date of the table's trading calendar
func Supervise(table *contracts.AlignedTable, includeSentiment bool) (*Dataset, error) {
	if table == nil || len(table.Rows) < 2 {
		rows := 0
		if table != nil {
			rows = len(table.Rows)
		}
		return nil, fmt.Errorf("need at least 2 aligned rows for a next-day target, got %d: %w", rows, contracts.ErrInsufficientData)
	}

	cal := table.TradingDays()
	if cal.Len() != len(table.Rows) {
		return nil, fmt.Errorf("aligned table has %d rows for %d calendar dates: %w", len(table.Rows), cal.Len(), contracts.ErrInvalidSeries)
	}
	for i, row := range table.Rows {
		if !contracts.NormalizeDate(row.Date).Equal(cal.At(i)) {
			return nil, fmt.Errorf("row %d dated %s, calendar expects %s: %w",
				i, contracts.DateKey(row.Date), contracts.DateKey(cal.At(i)), contracts.ErrInvalidSeries)
		}
	}

	n := cal.Len() - 1
	ds := &Dataset{
		Columns: table.FeatureColumns(includeSentiment),
		Dates:   make([]time.Time, n),
		X:       make([][]float64, n),
		Y:       make([]float64, n),
		Close:   make([]float64, n),
	}
	for t := 0; t < n; t++ {
		ds.Dates[t] = cal.At(t)
		ds.X[t] = table.FeatureVector(t, includeSentiment)
		ds.Y[t] = table.Rows[t+1].Bar.Close
		ds.Close[t] = table.Rows[t].Bar.Close
	}
	return ds, nil
}

// Slice returns rows [from, to) sharing no slices with d
func (d *Dataset) Slice(from, to int) ([][]float64, []float64) {
	X := make([][]float64, 0, to-from)
	for _, row := range d.X[from:to] {
		X = append(X, append([]float64{}, row...))
	}
	y := append([]float64{}, d.Y[from:to]...)
	return X, y
}
