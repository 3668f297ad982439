package contracts

import "time"

// HorizonEntry is one row of a per-horizon table
type HorizonEntry struct {
	Symbol    string    `json:"symbol"`
	TradeDate time.Time `json:"trade_date"`
	Close     float64   `json:"close"`
	Score     int       `json:"score"`
	Signal    Signal    `json:"signal"`
	Source    string    `json:"source"`
}

// HorizonTables holds the three horizon tables, each sorted by score desc
type HorizonTables struct {
	Short []HorizonEntry `json:"short"`
	Mid   []HorizonEntry `json:"mid"`
	Long  []HorizonEntry `json:"long"`
}

// Dashboard is the exported point-in-time document
// Overwritten wholesale on every successful run
type Dashboard struct {
	RunID           string                 `json:"run_id"`
	GeneratedAt     time.Time              `json:"generated_at"`
	Timezone        string                 `json:"timezone"`
	Details         map[string]interface{} `json:"details"`
	LatestMetrics   []IndicatorRow         `json:"latest_metrics"`
	Scored          []ScoredSymbol         `json:"scored"`
	Recommendations []Recommendation       `json:"recommendations"`
	Sectors         []string               `json:"sectors"`
	Horizons        HorizonTables          `json:"horizons"`
	RecentRuns      []Run                  `json:"recent_runs"`
}
