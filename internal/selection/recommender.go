package selection

import (
	"sort"

	"github.com/wonny/quantdash/internal/contracts"
	"github.com/wonny/quantdash/pkg/logger"
)

// Config defines recommendation hard cuts
type Config struct {
	TargetAnnualReturn float64 // 기대 연수익률 하한 (예: 0.10)
	MaxRecommendations int     // 최대 추천 종목 수 (최소 1)
}

// Recommender filters and ranks scored symbols into buy candidates
// ⭐ SSOT: 추천 필터/정렬은 여기서만
type Recommender struct {
	config Config
	logger *logger.Logger
}

// NewRecommender creates a new recommender
func NewRecommender(config Config, log *logger.Logger) *Recommender {
	return &Recommender{
		config: config,
		logger: log.WithField("module", "recommender"),
	}
}

// Recommend applies the hard cuts and logs the outcome
func (r *Recommender) Recommend(scored []contracts.ScoredSymbol) []contracts.Recommendation {
	out := Recommend(scored, r.config.TargetAnnualReturn, r.config.MaxRecommendations)

	fields := map[string]interface{}{
		"scored":          len(scored),
		"recommendations": len(out),
		"target_return":   r.config.TargetAnnualReturn,
	}
	if len(out) > 0 {
		fields["top_symbol"] = out[0].Symbol
		fields["top_ear"] = out[0].ExpectedAnnualReturn
	}
	r.logger.WithFields(fields).Info("Recommendation completed")

	return out
}

// Eligible reports whether s passes every hard cut
func Eligible(s contracts.ScoredSymbol, targetReturn float64) bool {
	return s.ExpectedAnnualReturn >= targetReturn &&
		s.Total >= contracts.BuyThreshold &&
		s.Mid.Signal == contracts.SignalBuy &&
		s.Long.Signal == contracts.SignalBuy
}

// Recommend keeps eligible symbols, orders them by expected return then total score
// (symbol breaks ties) and caps the list at max(1, limit)
func Recommend(scored []contracts.ScoredSymbol, targetReturn float64, limit int) []contracts.Recommendation {
	if limit < 1 {
		limit = 1
	}

	picked := make([]contracts.ScoredSymbol, 0, len(scored))
	for _, s := range scored {
		if Eligible(s, targetReturn) {
			picked = append(picked, s)
		}
	}

	sort.Slice(picked, func(i, j int) bool {
		a, b := picked[i], picked[j]
		if a.ExpectedAnnualReturn != b.ExpectedAnnualReturn {
			return a.ExpectedAnnualReturn > b.ExpectedAnnualReturn
		}
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.Symbol < b.Symbol
	})

	if len(picked) > limit {
		picked = picked[:limit]
	}

	out := make([]contracts.Recommendation, len(picked))
	for i, s := range picked {
		out[i] = toRecommendation(s)
	}
	return out
}

func toRecommendation(s contracts.ScoredSymbol) contracts.Recommendation {
	return contracts.Recommendation{
		Symbol:               s.Symbol,
		Sector:               s.Sector,
		Close:                s.Close,
		TotalScore:           s.Total,
		ExpectedAnnualReturn: s.ExpectedAnnualReturn,
		PredictedSellPrice:   s.PredictedSellPrice,
		StopLossPrice:        s.StopLossPrice,
		TakeProfitPrice:      s.TakeProfitPrice,
		MidSignal:            s.Mid.Signal,
		LongSignal:           s.Long.Signal,
	}
}
