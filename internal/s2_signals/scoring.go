package s2_signals

import (
	"math"
	"sort"

	"github.com/wonny/quantdash/internal/contracts"
	"github.com/wonny/quantdash/pkg/numeric"
)

// Momentum lags and lookbacks used by the horizon scores
const (
	HighLookback       = 252
	VolatilityReturns  = 9
	compositeWeightS   = 0.25
	compositeWeightM   = 0.35
	compositeWeightL   = 0.40
	missingSourceLabel = "-"
)

// Features are the close-series quantities the horizon scores are built from
type Features struct {
	Close float64

	// previous closes; nil when history is not longer than the lag
	Lag1, Lag5, Lag20, Lag60 *float64

	Momentum1D, Momentum5D, Momentum20D, Momentum60D float64

	SMA5, SMA20, SMA60, SMA200 float64

	High252        float64
	DistanceHigh52 float64 // close/high - 1, ≤ 0
	Volatility10D  float64 // population stdev of the last ≤ 9 daily returns
}

// ComputeFeatures derives Features from an ascending close series
// Short history degrades to neutral values; it never fails
func ComputeFeatures(closes []float64) Features {
	n := len(closes)
	if n == 0 {
		return Features{}
	}

	f := Features{Close: closes[n-1]}
	f.Lag1, f.Lag5, f.Lag20, f.Lag60 = lag(closes, 1), lag(closes, 5), lag(closes, 20), lag(closes, 60)
	f.Momentum1D = momentum(f.Close, f.Lag1)
	f.Momentum5D = momentum(f.Close, f.Lag5)
	f.Momentum20D = momentum(f.Close, f.Lag20)
	f.Momentum60D = momentum(f.Close, f.Lag60)

	f.SMA5 = TrailingMean(closes, 5)
	f.SMA20 = TrailingMean(closes, 20)
	f.SMA60 = TrailingMean(closes, 60)
	f.SMA200 = TrailingMean(closes, 200)

	start := n - HighLookback
	if start < 0 {
		start = 0
	}
	for _, c := range closes[start:] {
		if c > f.High252 {
			f.High252 = c
		}
	}
	f.DistanceHigh52 = numeric.PctChange(f.Close, f.High252)

	f.Volatility10D = volatility(closes, VolatilityReturns)
	return f
}

func lag(closes []float64, k int) *float64 {
	n := len(closes)
	if n <= k {
		return nil
	}
	v := closes[n-1-k]
	return &v
}

func momentum(close float64, prev *float64) float64 {
	if prev == nil {
		return 0
	}
	return numeric.PctChange(close, *prev)
}

// volatility is the population stdev of the most recent up to k daily returns
func volatility(closes []float64, k int) float64 {
	n := len(closes)
	if n < 2 {
		return 0
	}
	start := n - 1 - k
	if start < 0 {
		start = 0
	}

	returns := make([]float64, 0, k)
	for i := start + 1; i < n; i++ {
		returns = append(returns, numeric.PctChange(closes[i], closes[i-1]))
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	return math.Sqrt(variance / float64(len(returns)))
}

func bonus(cond bool, points float64) float64 {
	if cond {
		return points
	}
	return -points
}

// ShortScore rewards 5d/1d momentum and penalizes volatility
func ShortScore(f Features) int {
	return numeric.ClampScore(50 + 300*f.Momentum5D + 200*f.Momentum1D + bonus(f.Close > f.SMA5, 6) - 150*f.Volatility10D)
}

// MidScore rewards 20d momentum and the SMA20/SMA60 trend
func MidScore(f Features) int {
	trend := 0.0
	switch {
	case f.SMA20 > f.SMA60:
		trend = 8
	case f.SMA20 < f.SMA60:
		trend = -8
	}
	return numeric.ClampScore(50 + 150*f.Momentum20D + trend + bonus(f.Close > f.SMA20, 7))
}

// LongScore rewards 60d momentum, price above SMA60/SMA200 and proximity to the 52-week high
func LongScore(f Features) int {
	return numeric.ClampScore(50 + 80*f.Momentum60D + bonus(f.Close > f.SMA60, 5) + bonus(f.Close > f.SMA200, 5) + 50*f.DistanceHigh52)
}

// TotalScore blends the horizon scores 0.25/0.35/0.40
func TotalScore(short, mid, long int) int {
	return numeric.ClampScore(compositeWeightS*float64(short) + compositeWeightM*float64(mid) + compositeWeightL*float64(long))
}

// Targets are the derived price targets of a symbol
type Targets struct {
	ExpectedAnnualReturn float64
	PredictedSellPrice   float64
	StopLossPrice        float64
	TakeProfitPrice      float64
}

// PriceTargets derives return and price targets from total score, momentum and the target return
func PriceTargets(f Features, total int, targetReturn float64) Targets {
	ear := numeric.Clamp(0.04+0.8*f.Momentum20D+0.5*f.Momentum60D+0.4*float64(total-50)/100, -0.35, 0.60)
	risk := numeric.Clamp(0.06+2.5*f.Volatility10D, 0.05, 0.18)
	reward := numeric.Clamp(0.5*targetReturn+0.5*f.Momentum20D, 0.08, 0.35)
	upside := numeric.Clamp(0.5*ear, 0.05, 0.30)

	return Targets{
		ExpectedAnnualReturn: numeric.Ratio(ear),
		PredictedSellPrice:   numeric.Price(f.Close * (1 + upside)),
		StopLossPrice:        numeric.Price(f.Close * (1 - risk)),
		TakeProfitPrice:      numeric.Price(f.Close * (1 + reward)),
	}
}

func horizon(score int) contracts.HorizonScore {
	return contracts.HorizonScore{Score: score, Signal: contracts.SignalFrom(score >= contracts.BuyThreshold)}
}

// ScoreInput is everything the scoring engine reads besides indicator history
type ScoreInput struct {
	Meta               map[string]contracts.SymbolMeta
	SourceBySymbol     map[string]string
	TargetAnnualReturn float64
}

// Score computes one ScoredSymbol per symbol in history
// history may mix symbols in any order; output is sorted by total score desc, then symbol
// ⭐ SSOT: 호라이즌 점수 계산은 여기서만 (pure)
func Score(history []contracts.IndicatorRow, in ScoreInput) []contracts.ScoredSymbol {
	bySymbol := make(map[string][]contracts.IndicatorRow)
	for _, row := range history {
		bySymbol[row.Symbol] = append(bySymbol[row.Symbol], row)
	}

	out := make([]contracts.ScoredSymbol, 0, len(bySymbol))
	for symbol, rows := range bySymbol {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].TradeDate.Before(rows[j].TradeDate) })
		out = append(out, ScoreSymbol(symbol, rows, in))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// ScoreSymbol scores one symbol from its ascending indicator history
func ScoreSymbol(symbol string, rows []contracts.IndicatorRow, in ScoreInput) contracts.ScoredSymbol {
	closes := make([]float64, len(rows))
	for i, r := range rows {
		closes[i] = r.Close
	}
	f := ComputeFeatures(closes)

	short, mid, long := ShortScore(f), MidScore(f), LongScore(f)
	total := TotalScore(short, mid, long)
	targets := PriceTargets(f, total, in.TargetAnnualReturn)

	meta, ok := in.Meta[symbol]
	sector := meta.Sector
	if !ok || sector == "" {
		sector = contracts.SectorUnknown
	}
	source := in.SourceBySymbol[symbol]
	if source == "" {
		source = meta.Source
	}
	if source == "" {
		source = missingSourceLabel
	}

	scored := contracts.ScoredSymbol{
		Symbol: symbol,
		Sector: sector,
		Source: source,
		Close:  numeric.Price(f.Close),

		Short: horizon(short),
		Mid:   horizon(mid),
		Long:  horizon(long),
		Total: total,

		Momentum1D:     numeric.Ratio(f.Momentum1D),
		Momentum5D:     numeric.Ratio(f.Momentum5D),
		Momentum20D:    numeric.Ratio(f.Momentum20D),
		Momentum60D:    numeric.Ratio(f.Momentum60D),
		Volatility10D:  numeric.Ratio(f.Volatility10D),
		DistanceHigh52: numeric.Ratio(f.DistanceHigh52),

		ExpectedAnnualReturn: targets.ExpectedAnnualReturn,
		PredictedSellPrice:   targets.PredictedSellPrice,
		StopLossPrice:        targets.StopLossPrice,
		TakeProfitPrice:      targets.TakeProfitPrice,
	}
	if len(rows) > 0 {
		scored.TradeDate = rows[len(rows)-1].TradeDate
	}
	return scored
}
