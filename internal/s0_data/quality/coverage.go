package quality

import (
	"sort"
	"strings"

	"github.com/wonny/quantdash/internal/contracts"
)

// Report summarizes how much of the requested universe the providers covered
type Report struct {
	Requested      int                `json:"requested"`
	PriceCovered   int                `json:"price_covered"`
	VolumeCovered  int                `json:"volume_covered"`
	Coverage       map[string]float64 `json:"coverage"`
	QualityScore   float64            `json:"quality_score"`
	MissingSymbols []string           `json:"missing_symbols"`
}

// weights sum to 1.0
var weights = map[string]float64{
	"price":  0.60,
	"volume": 0.40,
}

// Check compares the fetched bars against the requested symbols
// ⭐ SSOT: 수집 → 저장 전 커버리지 검증 (실패 아님, 로그용)
func Check(symbols []string, bars []contracts.Bar) Report {
	requested := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		requested[strings.ToUpper(strings.TrimSpace(s))] = struct{}{}
	}

	priced := make(map[string]struct{})
	withVolume := make(map[string]struct{})
	for _, b := range bars {
		if _, ok := requested[b.Symbol]; !ok {
			continue
		}
		if b.Close > 0 {
			priced[b.Symbol] = struct{}{}
		}
		if b.Volume > 0 {
			withVolume[b.Symbol] = struct{}{}
		}
	}

	missing := make([]string, 0)
	for s := range requested {
		if _, ok := priced[s]; !ok {
			missing = append(missing, s)
		}
	}
	sort.Strings(missing)

	r := Report{
		Requested:      len(requested),
		PriceCovered:   len(priced),
		VolumeCovered:  len(withVolume),
		Coverage:       map[string]float64{"price": 0, "volume": 0},
		MissingSymbols: missing,
	}
	if r.Requested == 0 {
		return r
	}

	r.Coverage["price"] = float64(r.PriceCovered) / float64(r.Requested)
	r.Coverage["volume"] = float64(r.VolumeCovered) / float64(r.Requested)
	for key, weight := range weights {
		r.QualityScore += r.Coverage[key] * weight
	}
	return r
}

// Complete reports whether every requested symbol has a price
func (r Report) Complete() bool {
	return len(r.MissingSymbols) == 0
}
