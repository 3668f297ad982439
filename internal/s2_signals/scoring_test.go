package s2_signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantdash/internal/contracts"
)

func series(n int, next func(i int) float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = next(i)
	}
	return out
}

func TestComputeFeatures_ShortHistory(t *testing.T) {
	f := ComputeFeatures([]float64{100, 102})

	require.NotNil(t, f.Lag1)
	assert.Nil(t, f.Lag5)
	assert.Nil(t, f.Lag60)
	assert.Equal(t, 0.0, f.Momentum60D)
	assert.Equal(t, 0.0, f.Momentum5D)
	assert.InDelta(t, 0.02, f.Momentum1D, 1e-12)
	assert.Equal(t, 101.0, f.SMA200)
	assert.Equal(t, 0.0, f.Volatility10D)
	assert.Equal(t, 102.0, f.High252)
}

func TestComputeFeatures_Empty(t *testing.T) {
	assert.Equal(t, Features{}, ComputeFeatures(nil))
}

func TestComputeFeatures_Volatility(t *testing.T) {
	// returns +10%, -10%: mean 0, population stdev 0.1
	f := ComputeFeatures([]float64{100, 110, 99})
	assert.InDelta(t, 0.1, f.Volatility10D, 1e-12)

	// only the last 9 returns count
	closes := append([]float64{1, 1000}, series(10, func(int) float64 { return 50 })...)
	assert.Equal(t, 0.0, ComputeFeatures(closes).Volatility10D)
}

func TestHorizonScores(t *testing.T) {
	tests := []struct {
		name                    string
		closes                  []float64
		short, mid, long, total int
	}{
		{"single bar", []float64{100}, 44, 43, 40, 42},
		{"two bars up", []float64{100, 102}, 60, 57, 60, 59},
		{"two bars down", []float64{102, 100}, 40, 43, 39, 41},
		{"five increasing", series(5, func(i int) float64 { return float64(100 + i) }), 58, 57, 60, 58},
		{"ten increasing", series(10, func(i int) float64 { return float64(100 + i) }), 72, 57, 60, 62},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := ComputeFeatures(tt.closes)
			s, m, l := ShortScore(f), MidScore(f), LongScore(f)
			assert.Equal(t, tt.short, s)
			assert.Equal(t, tt.mid, m)
			assert.Equal(t, tt.long, l)
			assert.Equal(t, tt.total, TotalScore(s, m, l))
		})
	}
}

func TestScoresClamped(t *testing.T) {
	up := ComputeFeatures(series(70, func(i int) float64 { return 100 * pow(1.01, i) }))
	assert.Equal(t, 100, LongScore(up))

	down := ComputeFeatures(series(70, func(i int) float64 { return 100 * pow(0.99, i) }))
	assert.Equal(t, 0, LongScore(down))

	targets := PriceTargets(up, TotalScore(ShortScore(up), MidScore(up), LongScore(up)), 0.10)
	assert.Equal(t, 0.6, targets.ExpectedAnnualReturn)

	targets = PriceTargets(down, 10, 0.10)
	assert.Equal(t, -0.35, targets.ExpectedAnnualReturn)
}

func pow(b float64, n int) float64 {
	out := 1.0
	for i := 0; i < n; i++ {
		out *= b
	}
	return out
}

func TestPriceTargets(t *testing.T) {
	f := ComputeFeatures([]float64{100, 101})
	targets := PriceTargets(f, 58, 0.10)

	assert.Equal(t, 0.072, targets.ExpectedAnnualReturn)
	assert.Equal(t, 106.05, targets.PredictedSellPrice)
	assert.Equal(t, 94.94, targets.StopLossPrice)
	assert.Equal(t, 109.08, targets.TakeProfitPrice)
}

func TestScore_EndToEndIncreasingSeries(t *testing.T) {
	rows := ComputeIndicators(increasing("X", 10))

	for n := 5; n <= len(rows); n++ {
		scored := Score(rows[:n], ScoreInput{TargetAnnualReturn: 0.10})
		require.Len(t, scored, 1)

		x := scored[0]
		assert.Equal(t, contracts.SignalBuy, x.Short.Signal, "n=%d", n)
		assert.Equal(t, contracts.SignalBuy, x.Mid.Signal, "n=%d", n)
		assert.Equal(t, contracts.SignalBuy, x.Long.Signal, "n=%d", n)
		assert.GreaterOrEqual(t, x.Total, 55, "n=%d", n)
	}
}

func TestScore_RoundingContract(t *testing.T) {
	input := append(increasing("X", 30), bars("Y", 50, 49.37, 51.113, 48.2, 52.771, 53.09, 47.555)...)
	scored := Score(ComputeIndicators(input), ScoreInput{TargetAnnualReturn: 0.12})
	require.Len(t, scored, 2)

	for _, s := range scored {
		for _, h := range []contracts.Horizon{contracts.HorizonShort, contracts.HorizonMid, contracts.HorizonLong} {
			score := s.Horizon(h).Score
			assert.GreaterOrEqual(t, score, 0)
			assert.LessOrEqual(t, score, 100)
			assert.Equal(t, contracts.SignalFrom(score >= 55), s.Horizon(h).Signal)
		}
		for _, p := range []float64{s.Close, s.PredictedSellPrice, s.StopLossPrice, s.TakeProfitPrice} {
			assert.InDelta(t, p, float64(int64(p*100+0.5))/100, 1e-9)
		}
		for _, r := range []float64{s.Momentum1D, s.Momentum5D, s.Volatility10D, s.ExpectedAnnualReturn} {
			assert.InDelta(t, r, float64(int64(r*1e6+sign(r)*0.5))/1e6, 1e-12)
		}
	}
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func TestScore_MetaAndOrdering(t *testing.T) {
	input := append(increasing("AAA", 10), bars("BBB", 110, 108, 106, 104, 102, 100, 98, 96, 94, 92)...)
	input = append(input, increasing("CCC", 10)...)

	scored := Score(ComputeIndicators(input), ScoreInput{
		Meta:               map[string]contracts.SymbolMeta{"AAA": {Sector: "Technology", Source: "sp500"}},
		SourceBySymbol:     map[string]string{"CCC": "stooq"},
		TargetAnnualReturn: 0.10,
	})
	require.Len(t, scored, 3)

	// ties broken by symbol
	assert.Equal(t, "AAA", scored[0].Symbol)
	assert.Equal(t, "CCC", scored[1].Symbol)
	assert.Equal(t, "BBB", scored[2].Symbol)

	assert.Equal(t, "Technology", scored[0].Sector)
	assert.Equal(t, "sp500", scored[0].Source)
	assert.Equal(t, contracts.SectorUnknown, scored[1].Sector)
	assert.Equal(t, "stooq", scored[1].Source)
	assert.Equal(t, "-", scored[2].Source)
}

func TestScore_Deterministic(t *testing.T) {
	rows := ComputeIndicators(append(increasing("X", 40), bars("Y", 50, 49.5, 51.25, 48, 52.75)...))
	in := ScoreInput{TargetAnnualReturn: 0.1}
	assert.Equal(t, Score(rows, in), Score(rows, in))
}
