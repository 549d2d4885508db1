package commands

import (
	"fmt"
	"strings"

	"github.com/wonny/kassandra/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintRunHeader prints the symbol and period of a run
func PrintRunHeader(title, symbol, start, end string) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s\n", title)
	PrintSeparator()
	fmt.Printf("  Symbol    : %s\n", strings.ToUpper(symbol))
	fmt.Printf("  Period    : %s ~ %s\n", start, end)
	PrintSeparator()
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Printf("⚠️  %s\n", message)
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Println(strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// printSources lists source status, flagging degraded ones
func printSources(statuses []contracts.SourceStatus) {
	fmt.Println("\n📡 Sources")
	for _, st := range statuses {
		if st.Degraded {
			PrintWarning(fmt.Sprintf("%-10s degraded (%s)", st.Source, st.Reason))
			continue
		}
		fmt.Printf("   %-10s %d rows\n", st.Source, st.Rows)
	}
}

// printAblation prints baseline vs enhanced error metrics
func printAblation(a *contracts.AblationResult) {
	if a == nil {
		return
	}
	fmt.Println("\n🧪 Ablation (time-ordered split)")
	fmt.Printf("   Train / Test rows : %d / %d\n", a.TrainRows, a.TestRows)
	PrintTableHeader([]string{"Model", "Features", "MAE", "RMSE"}, []int{22, 8, 10, 10})
	PrintTableRow([]string{"technical", fmt.Sprint(a.FeatureCountBase),
		fmt.Sprintf("%.4f", a.Baseline.MAE), fmt.Sprintf("%.4f", a.Baseline.RMSE)}, []int{22, 8, 10, 10})
	PrintTableRow([]string{"technical + sentiment", fmt.Sprint(a.FeatureCountFull),
		fmt.Sprintf("%.4f", a.Enhanced.MAE), fmt.Sprintf("%.4f", a.Enhanced.RMSE)}, []int{22, 8, 10, 10})
	fmt.Printf("   RMSE improvement  : %+.2f%%\n", a.ImprovementPercent)
	if verbose {
		fmt.Printf("   Baseline columns  : %s\n", strings.Join(a.BaselineColumns, ", "))
		fmt.Printf("   Full columns      : %s\n", strings.Join(a.FullColumns, ", "))
	}
}

// printBacktest prints walk-forward summary and strategy stats
func printBacktest(label string, b *contracts.BacktestResult) {
	if b == nil {
		PrintWarning(label + ": not enough history for walk-forward")
		return
	}
	fmt.Printf("\n📈 %s (min train %d)\n", label, b.MinTrainSize)
	PrintKeyValue("Steps", fmt.Sprint(b.Summary.Steps), 20)
	PrintKeyValue("MAE", fmt.Sprintf("%.4f", b.Summary.MAE), 20)
	PrintKeyValue("RMSE", fmt.Sprintf("%.4f", b.Summary.RMSE), 20)
	PrintKeyValue("Directional acc.", fmt.Sprintf("%.2f%%", b.Summary.DirectionalAccuracy*100), 20)
	PrintKeyValue("Trades (W/L)", fmt.Sprintf("%d (%d/%d)", b.Strategy.Trades, b.Strategy.WinningTrades, b.Strategy.LosingTrades), 20)
	PrintKeyValue("Strategy return", fmt.Sprintf("%+.2f%%", b.Strategy.TotalReturn*100), 20)
	PrintKeyValue("Buy & hold", fmt.Sprintf("%+.2f%%", b.Strategy.BuyAndHold*100), 20)
	PrintKeyValue("Sharpe", fmt.Sprintf("%.2f", b.Strategy.SharpeRatio), 20)
	PrintKeyValue("Max drawdown", fmt.Sprintf("%.2f%%", b.Strategy.MaxDrawdown*100), 20)
}
