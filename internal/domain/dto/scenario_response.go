package dto

import (
	"time"

	"github.com/guttosm/indexpulse/internal/domain/models"
)

// ScenarioResponse is the API view of one scenario's lifecycle state.
//
// Fields match the API contract and may differ from internal domain
// models, keeping the surface decoupled from business logic.
type ScenarioResponse struct {
	Label        string    `json:"label" example:"5min-15d"`
	Symbol       string    `json:"symbol" example:"000300"`
	Period       string    `json:"period" example:"5"`
	LookbackDays int       `json:"lookback_days,omitempty" example:"15"`
	Range        string    `json:"range,omitempty" example:"2024-02-15..2024-03-01"`
	Phase        string    `json:"phase" example:"ready"`
	Bars         int       `json:"bars,omitempty" example:"342"`
	ErrorKind    string    `json:"error_kind,omitempty" example:"provider_error"`
	Error        string    `json:"error,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewScenarioResponse flattens a state snapshot for the wire.
func NewScenarioResponse(snap models.StateSnapshot) ScenarioResponse {
	resp := ScenarioResponse{
		Label:        snap.Scenario.Label,
		Symbol:       snap.Scenario.Symbol,
		Period:       string(snap.Scenario.Period),
		LookbackDays: snap.Scenario.LookbackDays,
		Phase:        string(snap.Phase),
		UpdatedAt:    snap.UpdatedAt,
	}
	if snap.Scenario.Range != nil {
		resp.Range = snap.Scenario.Range.String()
	}
	if snap.Series != nil {
		resp.Bars = len(snap.Series.Bars)
	}
	if snap.Err != nil {
		resp.ErrorKind = string(snap.Err.Kind)
		resp.Error = snap.Err.Error()
	}
	return resp
}

// SeriesResponse carries a ready scenario's bars.
type SeriesResponse struct {
	Label  string       `json:"label" example:"5min-15d"`
	Symbol string       `json:"symbol" example:"000300"`
	Period string       `json:"period" example:"5"`
	Bars   []models.Bar `json:"bars"`
}

// CustomRunRequest is the body of POST /api/v1/custom. Start and End
// accept MM-DD (year inferred) or YYYY-MM-DD.
type CustomRunRequest struct {
	Label  string `json:"label" example:"my-range"`
	Symbol string `json:"symbol" example:"000300"`
	Period string `json:"period" example:"30"`
	Start  string `json:"start" example:"12-28"`
	End    string `json:"end" example:"01-03"`
}
