package contracts

import "time"

// TechnicalRow is one valid trading day with its price-derived features
type TechnicalRow struct {
	Date     time.Time
	Bar      PriceBar
	Features []float64 // TechnicalTable.Columns 순서
}

// TechnicalTable is the output of the technical feature builder.
// Rows are ordered by date and contain no NaN.
type TechnicalTable struct {
	Columns    []string
	Rows       []TechnicalRow
	WindowLoss int // leading bars dropped for window warm-up
}

// Calendar returns the trading calendar formed by the table's rows
func (t *TechnicalTable) Calendar() TradingCalendar {
	dates := make([]time.Time, len(t.Rows))
	for i, r := range t.Rows {
		dates[i] = r.Date
	}
	return NewTradingCalendar(dates)
}

// AlignedRow is one trading day of the merged feature table
type AlignedRow struct {
	Date      time.Time
	Bar       PriceBar
	Technical []float64
	Sentiment SentimentValues
}

// AlignedTable is the merged technical + sentiment table.
// ⭐ SSOT: 행 집합 = TechnicalTable 행 집합 (날짜 하나도 추가/삭제 없음)
type AlignedTable struct {
	TechnicalColumns []string
	SentimentColumns []string
	Rows             []AlignedRow // Calendar 순서, Rows[i].Date == Calendar.At(i)

	// Calendar is the trading calendar the rows were aligned to
	Calendar TradingCalendar
}

// TradingDays returns the table's calendar, or one derived from the rows
// for tables assembled without a merger.
func (t *AlignedTable) TradingDays() TradingCalendar {
	if t.Calendar.Len() > 0 || len(t.Rows) == 0 {
		return t.Calendar
	}
	dates := make([]time.Time, len(t.Rows))
	for i, r := range t.Rows {
		dates[i] = r.Date
	}
	return NewTradingCalendar(dates)
}

// Len returns the number of rows
func (t *AlignedTable) Len() int {
	return len(t.Rows)
}

// FeatureColumns returns technical then sentiment column names
func (t *AlignedTable) FeatureColumns(includeSentiment bool) []string {
	cols := append([]string{}, t.TechnicalColumns...)
	if includeSentiment {
		cols = append(cols, t.SentimentColumns...)
	}
	return cols
}

// FeatureVector returns row i's features (technical only, or technical + sentiment)
func (t *AlignedTable) FeatureVector(i int, includeSentiment bool) []float64 {
	row := t.Rows[i]
	vec := make([]float64, 0, len(row.Technical)+len(t.SentimentColumns))
	vec = append(vec, row.Technical...)
	if includeSentiment {
		vec = append(vec, row.Sentiment.Vector()...)
	}
	return vec
}

// Latest returns the most recent row
func (t *AlignedTable) Latest() (AlignedRow, bool) {
	if len(t.Rows) == 0 {
		return AlignedRow{}, false
	}
	return t.Rows[len(t.Rows)-1], true
}
