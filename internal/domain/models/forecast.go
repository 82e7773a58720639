package models

// BankResult carries the per-entity scalars computed for one horizon.
type BankResult struct {
	Name           string  `json:"name"`
	PredictedScore float64 `json:"predicted_score"`
	HubScore       float64 `json:"hub_score"`
	RiskFactor     float64 `json:"risk_factor"`
}

// EdgeResult is the sparse view of one obligation matrix entry.
type EdgeResult struct {
	Source       string  `json:"source"`
	Target       string  `json:"target"`
	WeightBefore float64 `json:"weight_before"`
	WeightAfter  float64 `json:"weight_after"`
}

// HorizonSnapshot is the unit of published output for one forecast horizon.
// Field names are part of the external contract; consumers match them verbatim.
type HorizonSnapshot struct {
	Horizon                      int          `json:"horizon"`
	Banks                        []BankResult `json:"banks"`
	EdgesBefore                  []EdgeResult `json:"edges_before"`
	EdgesAfter                   []EdgeResult `json:"edges_after"`
	Stability                    float64      `json:"stability"`
	IsStable                     bool         `json:"is_stable"`
	PayloadReduction             float64      `json:"payload_reduction"`
	RawLoad                      float64      `json:"raw_load"`
	NetLoad                      float64      `json:"net_load"`
	RiskBuffer                   float64      `json:"risk_buffer"`
	RiskAdjustedNetLoad          float64      `json:"risk_adjusted_net_load"`
	RiskAdjustedPayloadReduction float64      `json:"risk_adjusted_payload_reduction"`
	WorstCaseBuffer              float64      `json:"worst_case_buffer"`
	WorstCaseNetLoad             float64      `json:"worst_case_net_load"`
	WorstCasePayloadReduction    float64      `json:"worst_case_payload_reduction"`
	ObligationsBefore            [][]float64  `json:"obligations_before"`
	ObligationsAfter             [][]float64  `json:"obligations_after"`
}

// DataMeta describes the data window behind a ForecastResult.
type DataMeta struct {
	Tickers     []string `json:"tickers"`
	NumBanks    int      `json:"num_banks"`
	TotalDays   int      `json:"total_days"`
	DateRange   []string `json:"date_range"`
	LastUpdated string   `json:"last_updated"`
	ModelType   string   `json:"model_type"`
}

// ForecastResult is the complete output of one recomputation tick, ordered
// by horizon index (0 = nearest). Published results are immutable.
type ForecastResult struct {
	Horizons []HorizonSnapshot `json:"horizons"`
	Metadata DataMeta          `json:"metadata"`
}

// TickStatus is the lightweight run-status record served alongside results.
type TickStatus struct {
	TickCount                 int64  `json:"tick_count"`
	LastDataRefresh           string `json:"last_data_refresh"`
	LastForecastTime          string `json:"last_forecast_time"`
	DataSourceReachable       bool   `json:"data_source_reachable"`
	ConsecutiveErrors         int64  `json:"consecutive_errors"`
	DataRefreshIntervalSec    int    `json:"data_refresh_interval_s"`
	ForecastRecomputeInterval int    `json:"forecast_recompute_interval_s"`
}

// HorizonInput is one horizon's raw input as delivered by the score source:
// the gross obligation matrix plus the per-entity model signals.
type HorizonInput struct {
	Obligations     [][]float64 `json:"obligations"`
	PredictedScores []float64   `json:"predicted_scores"`
	RiskFactors     []float64   `json:"risk_factors"`
}

// ForecastInput is the full fetch payload for one recomputation tick.
type ForecastInput struct {
	Tickers     []string       `json:"tickers"`
	Horizons    []HorizonInput `json:"horizons"`
	TotalDays   int            `json:"total_days"`
	DateRange   []string       `json:"date_range"`
	ModelType   string         `json:"model_type"`
	LastUpdated string         `json:"last_updated"`
}

// HistoryRow is one archived per-horizon summary served by /api/history.
type HistoryRow struct {
	ComputedAt       string  `json:"computed_at"`
	Horizon          int     `json:"horizon"`
	Stability        float64 `json:"stability"`
	IsStable         bool    `json:"is_stable"`
	RawLoad          float64 `json:"raw_load"`
	NetLoad          float64 `json:"net_load"`
	PayloadReduction float64 `json:"payload_reduction"`
	RiskBuffer       float64 `json:"risk_buffer"`
	WorstCaseBuffer  float64 `json:"worst_case_buffer"`
}
