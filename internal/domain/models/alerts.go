package models

// Alert types checked against the nearest-horizon snapshot.
const (
	AlertStabilityThreshold = "stability_threshold"
	AlertPayloadChange      = "payload_change"
	AlertPayloadDelta       = "payload_delta"
	AlertHubShift           = "hub_shift"
)

// AlertConfig is one configured alert rule.
type AlertConfig struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Threshold   float64 `json:"threshold"`
	Enabled     bool    `json:"enabled"`
	CreatedAt   string  `json:"created_at"`
}

// AlertTriggered is one firing of an alert rule.
type AlertTriggered struct {
	ID           string  `json:"id"`
	Type         string  `json:"type"`
	Name         string  `json:"name"`
	Message      string  `json:"message"`
	TriggeredAt  string  `json:"triggered_at"`
	CurrentValue float64 `json:"current_value"`
}
