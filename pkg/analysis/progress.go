package analysis

// Coarse display stages. Upstream phase labels pass through verbatim, so the
// stage field is an open string; these are the values we produce ourselves.
const (
	StageWaiting   = "waiting"
	StageAnalyzing = "analyzing"
	StageComplete  = "complete"
	StageFailed    = "failed"
)

// ModelStatus tracks one model through the consensus round.
type ModelStatus string

const (
	ModelWaiting  ModelStatus = "waiting"
	ModelThinking ModelStatus = "thinking"
	ModelComplete ModelStatus = "complete"
	ModelError    ModelStatus = "error"
)

// Snapshot is the projected progress state of one submission. It exists for
// display only; completion is decided by the event stream, never by counters
// reaching a threshold.
type Snapshot struct {
	Stage             string                 `json:"stage"`
	ModelStatuses     map[string]ModelStatus `json:"model_statuses"`
	ModelsComplete    int                    `json:"models_complete"`
	ModelsTotal       int                    `json:"models_total"`
	RunningEstimate   float64                `json:"running_estimate"`
	RunningConfidence float64                `json:"running_confidence"`
	DetectedCategory  string                 `json:"detected_category"`
	MarketSourceNotes []string               `json:"market_source_notes"`
}

// NewSnapshot is the state before any event has been applied.
func NewSnapshot() Snapshot {
	return Snapshot{
		Stage:             StageWaiting,
		ModelStatuses:     map[string]ModelStatus{},
		MarketSourceNotes: []string{},
	}
}

// Reduce applies one event to a snapshot and returns the successor. It is
// pure: the prior snapshot is never mutated, identical inputs give identical
// outputs, and events it cannot interpret leave the state unchanged. Replaying
// a recorded sequence therefore always reproduces the same snapshot.
func Reduce(prior Snapshot, ev Event) Snapshot {
	next := prior
	next.ModelStatuses = make(map[string]ModelStatus, len(prior.ModelStatuses))
	for k, v := range prior.ModelStatuses {
		next.ModelStatuses[k] = v
	}
	next.MarketSourceNotes = append([]string(nil), prior.MarketSourceNotes...)

	switch ev.Type {
	case EventInit:
		d, ok := ev.Init()
		if !ok {
			return next
		}
		next.Stage = StageAnalyzing
		next.ModelsTotal = d.Total
		next.ModelsComplete = 0
		for _, m := range d.Models {
			if m != "" {
				next.ModelStatuses[m] = ModelWaiting
			}
		}
	case EventPhase:
		if d, ok := ev.PhaseInfo(); ok {
			next.Stage = d.Phase
		}
	case EventAIStart:
		if d, ok := ev.Model(); ok {
			next.ModelStatuses[d.Model] = ModelThinking
		}
	case EventAIComplete:
		d, ok := ev.Model()
		if !ok {
			return next
		}
		status := ModelComplete
		if d.Success != nil && !*d.Success {
			status = ModelError
		}
		// A model finishes once; repeated terminal events must not inflate
		// the counter.
		if prev := next.ModelStatuses[d.Model]; prev != ModelComplete && prev != ModelError {
			next.ModelsComplete++
		}
		next.ModelStatuses[d.Model] = status
	case EventPrice:
		d, ok := ev.Price()
		if !ok {
			return next
		}
		if d.Estimate != nil {
			next.RunningEstimate = *d.Estimate
		}
		if d.Confidence != nil {
			next.RunningConfidence = *d.Confidence
		}
	case EventCategory:
		if d, ok := ev.CategoryInfo(); ok {
			next.DetectedCategory = d.Category
		}
	case EventAPIStart:
		if d, ok := ev.Source(); ok {
			next.MarketSourceNotes = append(next.MarketSourceNotes, "querying "+d.Source)
		}
	case EventAPIComplete:
		if d, ok := ev.Source(); ok {
			next.MarketSourceNotes = append(next.MarketSourceNotes, d.Source+" responded")
		}
	case EventComplete:
		next.Stage = StageComplete
	case EventError:
		next.Stage = StageFailed
	default:
		// Unknown event types are ignored, not errors. Newer upstreams may
		// emit types this build has never heard of.
	}
	return next
}
