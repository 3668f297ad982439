package contracts

import "time"

// Signal is the binary trading signal
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
)

// SignalFrom maps a predicate to BUY/SELL
func SignalFrom(buy bool) Signal {
	if buy {
		return SignalBuy
	}
	return SignalSell
}

// IndicatorRow is one stored row of quant_metrics
// SMAs are rounded to 4 dp, Momentum5D to 6 dp
type IndicatorRow struct {
	Symbol     string    `json:"symbol"`
	TradeDate  time.Time `json:"trade_date"`
	Close      float64   `json:"close"`
	SMA5       float64   `json:"sma_5"`
	SMA20      float64   `json:"sma_20"`
	SMA60      float64   `json:"sma_60"`
	SMA200     float64   `json:"sma_200"`
	Momentum5D float64   `json:"momentum_5d"`
	Signal     Signal    `json:"signal"`
}

// Horizon names a scoring time frame
type Horizon string

const (
	HorizonShort Horizon = "short"
	HorizonMid   Horizon = "mid"
	HorizonLong  Horizon = "long"
)

// BuyThreshold is the score at or above which a horizon signal is BUY
const BuyThreshold = 55

// HorizonScore is one horizon's integer score and signal
type HorizonScore struct {
	Score  int    `json:"score"`
	Signal Signal `json:"signal"`
}

// ScoredSymbol is the per-symbol scoring result; recomputed on every run
type ScoredSymbol struct {
	Symbol    string    `json:"symbol"`
	Sector    string    `json:"sector"`
	Source    string    `json:"source"`
	TradeDate time.Time `json:"trade_date"`
	Close     float64   `json:"close"`

	Short HorizonScore `json:"short"`
	Mid   HorizonScore `json:"mid"`
	Long  HorizonScore `json:"long"`
	Total int          `json:"total_score"`

	Momentum1D     float64 `json:"momentum_1d"`
	Momentum5D     float64 `json:"momentum_5d"`
	Momentum20D    float64 `json:"momentum_20d"`
	Momentum60D    float64 `json:"momentum_60d"`
	Volatility10D  float64 `json:"volatility_10d"`
	DistanceHigh52 float64 `json:"distance_from_high"`

	ExpectedAnnualReturn float64 `json:"expected_annual_return"`
	PredictedSellPrice   float64 `json:"predicted_sell_price"`
	StopLossPrice        float64 `json:"stop_loss_price"`
	TakeProfitPrice      float64 `json:"take_profit_price"`
}

// Horizon returns the score for h
func (s *ScoredSymbol) Horizon(h Horizon) HorizonScore {
	switch h {
	case HorizonShort:
		return s.Short
	case HorizonMid:
		return s.Mid
	default:
		return s.Long
	}
}

// Recommendation is the exported subset of an eligible ScoredSymbol
type Recommendation struct {
	Symbol               string  `json:"symbol"`
	Sector               string  `json:"sector"`
	Close                float64 `json:"close"`
	TotalScore           int     `json:"total_score"`
	ExpectedAnnualReturn float64 `json:"expected_annual_return"`
	PredictedSellPrice   float64 `json:"predicted_sell_price"`
	StopLossPrice        float64 `json:"stop_loss_price"`
	TakeProfitPrice      float64 `json:"take_profit_price"`
	MidSignal            Signal  `json:"mid_signal"`
	LongSignal           Signal  `json:"long_signal"`
}
