package s2_signals

import (
	"sort"

	"github.com/wonny/quantdash/internal/contracts"
	"github.com/wonny/quantdash/pkg/numeric"
)

// SMAWindows are the rolling mean windows stored per row
var SMAWindows = [4]int{5, 20, 60, 200}

// MomentumLag is the lag of the stored momentum column
const MomentumLag = 5

// ComputeIndicators derives one IndicatorRow per bar
// Input may be unordered and mixed across symbols; output is ordered by (symbol, trade_date)
// ⭐ SSOT: 지표 계산은 여기서만 (pure)
func ComputeIndicators(bars []contracts.Bar) []contracts.IndicatorRow {
	bySymbol := GroupBars(bars)

	symbols := make([]string, 0, len(bySymbol))
	for s := range bySymbol {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	rows := make([]contracts.IndicatorRow, 0, len(bars))
	for _, s := range symbols {
		rows = append(rows, indicatorsForSymbol(bySymbol[s])...)
	}
	return rows
}

// GroupBars splits bars by symbol, each sorted by trade_date ascending
func GroupBars(bars []contracts.Bar) map[string][]contracts.Bar {
	out := make(map[string][]contracts.Bar)
	for _, b := range bars {
		out[b.Symbol] = append(out[b.Symbol], b)
	}
	for s := range out {
		series := out[s]
		sort.SliceStable(series, func(i, j int) bool { return series[i].TradeDate.Before(series[j].TradeDate) })
	}
	return out
}

func indicatorsForSymbol(series []contracts.Bar) []contracts.IndicatorRow {
	closes := make([]float64, len(series))
	for i, b := range series {
		closes[i] = b.Close
	}

	rows := make([]contracts.IndicatorRow, len(series))
	for i, b := range series {
		window := closes[:i+1]
		sma5 := TrailingMean(window, 5)

		momentum := 0.0
		if i >= MomentumLag {
			momentum = numeric.PctChange(closes[i], closes[i-MomentumLag])
		}

		rows[i] = contracts.IndicatorRow{
			Symbol:     b.Symbol,
			TradeDate:  b.TradeDate,
			Close:      b.Close,
			SMA5:       numeric.Round(sma5, numeric.SMAPlaces),
			SMA20:      numeric.Round(TrailingMean(window, 20), numeric.SMAPlaces),
			SMA60:      numeric.Round(TrailingMean(window, 60), numeric.SMAPlaces),
			SMA200:     numeric.Round(TrailingMean(window, 200), numeric.SMAPlaces),
			Momentum5D: numeric.Ratio(momentum),
			Signal:     contracts.SignalFrom(b.Close > sma5 && momentum > 0),
		}
	}
	return rows
}

// TrailingMean averages the last min(window, len(values)) values; 0 for empty input
func TrailingMean(values []float64, window int) float64 {
	n := len(values)
	if n == 0 || window <= 0 {
		return 0
	}
	if window > n {
		window = n
	}
	sum := 0.0
	for _, v := range values[n-window:] {
		sum += v
	}
	return sum / float64(window)
}
