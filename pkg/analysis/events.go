package analysis

import "encoding/json"

// EventType enumerates the progress events a valuation job emits. Order
// within one submission: init once, then any interleaving of phase,
// ai_start, ai_complete, price, category, api_start, api_complete, then
// exactly one of complete or error.
type EventType string

const (
	EventInit        EventType = "init"
	EventPhase       EventType = "phase"
	EventAIStart     EventType = "ai_start"
	EventAIComplete  EventType = "ai_complete"
	EventPrice       EventType = "price"
	EventCategory    EventType = "category"
	EventAPIStart    EventType = "api_start"
	EventAPIComplete EventType = "api_complete"
	EventComplete    EventType = "complete"
	EventError       EventType = "error"
)

// Event is one wire frame: {type, timestamp, data}. Timestamp stays raw;
// nothing downstream computes on it and upstream variants disagree on its
// format.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// InitData seeds the progress snapshot with the expected model roster.
type InitData struct {
	Models []string
	Total  int
}

func (e Event) Init() (InitData, bool) {
	var raw struct {
		Models []string `json:"models"`
		Roster []string `json:"model_roster"`
		Total  int      `json:"total"`
		Count  int      `json:"model_count"`
	}
	if len(e.Data) == 0 || json.Unmarshal(e.Data, &raw) != nil {
		return InitData{}, false
	}
	d := InitData{Models: raw.Models, Total: raw.Total}
	if len(d.Models) == 0 {
		d.Models = raw.Roster
	}
	if d.Total == 0 {
		d.Total = raw.Count
	}
	if d.Total == 0 {
		d.Total = len(d.Models)
	}
	return d, true
}

// PhaseData is a coarse phase transition (consensus, market data,
// finalizing).
type PhaseData struct {
	Phase string
}

func (e Event) PhaseInfo() (PhaseData, bool) {
	var raw struct {
		Phase string `json:"phase"`
		Name  string `json:"name"`
		Stage string `json:"stage"`
	}
	if len(e.Data) == 0 || json.Unmarshal(e.Data, &raw) != nil {
		return PhaseData{}, false
	}
	d := PhaseData{Phase: raw.Phase}
	if d.Phase == "" {
		d.Phase = raw.Name
	}
	if d.Phase == "" {
		d.Phase = raw.Stage
	}
	return d, d.Phase != ""
}

// ModelData is a per-model status transition. Success and the estimate are
// only present on ai_complete.
type ModelData struct {
	Model          string
	Success        *bool
	EstimatedValue float64
	ResponseTimeMs int64
}

func (e Event) Model() (ModelData, bool) {
	var raw struct {
		Model          string   `json:"model"`
		Name           string   `json:"name"`
		Provider       string   `json:"provider"`
		Success        *bool    `json:"success"`
		EstimatedValue *float64 `json:"estimated_value"`
		Estimate       *float64 `json:"estimate"`
		ResponseTimeMs int64    `json:"response_time_ms"`
	}
	if len(e.Data) == 0 || json.Unmarshal(e.Data, &raw) != nil {
		return ModelData{}, false
	}
	d := ModelData{Model: raw.Model, Success: raw.Success, ResponseTimeMs: raw.ResponseTimeMs}
	if d.Model == "" {
		d.Model = raw.Name
	}
	if d.Model == "" {
		d.Model = raw.Provider
	}
	if raw.EstimatedValue != nil {
		d.EstimatedValue = *raw.EstimatedValue
	} else if raw.Estimate != nil {
		d.EstimatedValue = *raw.Estimate
	}
	return d, d.Model != ""
}

// PriceData is a running best-estimate update, independent of which model
// produced it.
type PriceData struct {
	Estimate   *float64
	Confidence *float64
}

func (e Event) Price() (PriceData, bool) {
	var raw struct {
		Estimate       *float64 `json:"estimate"`
		EstimatedValue *float64 `json:"estimated_value"`
		Value          *float64 `json:"value"`
		Confidence     *float64 `json:"confidence"`
	}
	if len(e.Data) == 0 || json.Unmarshal(e.Data, &raw) != nil {
		return PriceData{}, false
	}
	d := PriceData{Estimate: raw.Estimate, Confidence: raw.Confidence}
	if d.Estimate == nil {
		d.Estimate = raw.EstimatedValue
	}
	if d.Estimate == nil {
		d.Estimate = raw.Value
	}
	return d, true
}

// CategoryData is a detected item category label.
type CategoryData struct {
	Category string
}

func (e Event) CategoryInfo() (CategoryData, bool) {
	var raw struct {
		Category string `json:"category"`
		Label    string `json:"label"`
		Name     string `json:"name"`
	}
	if len(e.Data) == 0 || json.Unmarshal(e.Data, &raw) != nil {
		return CategoryData{}, false
	}
	d := CategoryData{Category: raw.Category}
	if d.Category == "" {
		d.Category = raw.Label
	}
	if d.Category == "" {
		d.Category = raw.Name
	}
	return d, d.Category != ""
}

// SourceData names an external market-data source. Transparency only; it
// never gates completion.
type SourceData struct {
	Source string
}

func (e Event) Source() (SourceData, bool) {
	var raw struct {
		Source string `json:"source"`
		API    string `json:"api"`
		Name   string `json:"name"`
	}
	if len(e.Data) == 0 || json.Unmarshal(e.Data, &raw) != nil {
		return SourceData{}, false
	}
	d := SourceData{Source: raw.Source}
	if d.Source == "" {
		d.Source = raw.API
	}
	if d.Source == "" {
		d.Source = raw.Name
	}
	return d, d.Source != ""
}

// ErrorData carries the human-readable terminal failure message.
type ErrorData struct {
	Message string
}

func (e Event) ErrorInfo() (ErrorData, bool) {
	var raw struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
	}
	if len(e.Data) == 0 || json.Unmarshal(e.Data, &raw) != nil {
		return ErrorData{}, false
	}
	d := ErrorData{Message: raw.Message}
	if d.Message == "" {
		d.Message = raw.Error
	}
	if d.Message == "" {
		d.Message = raw.Detail
	}
	return d, d.Message != ""
}
