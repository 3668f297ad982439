package contracts

import "time"

// Bar is one day's OHLCV for one symbol
// PK (Symbol, TradeDate)
type Bar struct {
	Symbol    string    `json:"symbol"`
	TradeDate time.Time `json:"trade_date"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
	Source    string    `json:"source"` // yahoo, stooq
	UpdatedAt time.Time `json:"updated_at"`
}

// SymbolMeta carries universe metadata for a symbol
type SymbolMeta struct {
	Sector string `json:"sector"`
	Source string `json:"source"` // universe mode that produced the symbol
}

// Sector placeholders used when no classification exists
const (
	SectorManual  = "Manual"
	SectorUnknown = "Unknown"
)
