package models

// Requests for the HTTP API. Defined in domain for consistency and reuse.

// Horizon is a pointer so the zero index survives default filling: nil
// means no filter.
type ForecastRequest struct {
	Horizon *int `query:"horizon" json:"horizon" validate:"omitempty,gte=0,lte=32"`
}

type HistoryRequest struct {
	Limit int `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=1000"`
}

type BacktestRequest struct {
	Runs int `query:"runs" json:"runs" default:"30" validate:"gte=2,lte=365"`
}

type BacktestHistoryRequest struct {
	Limit int `query:"limit" json:"limit" default:"10" validate:"gte=1,lte=100"`
}

type AlertCreateRequest struct {
	Type        string  `json:"type" validate:"required,oneof=stability_threshold payload_change payload_delta hub_shift"`
	Name        string  `json:"name" validate:"required,min=1,max=120"`
	Threshold   float64 `json:"threshold" validate:"gte=0"`
	Description string  `json:"description" validate:"max=500"`
	Enabled     *bool   `json:"enabled"`
}

type TriggeredAlertsRequest struct {
	Since string `query:"since" json:"since"`
}
