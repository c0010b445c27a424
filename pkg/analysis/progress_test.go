package analysis

import (
	"encoding/json"
	"fmt"
	"reflect"
	"testing"
)

func rawJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal event payload: %v", err)
	}
	return b
}

// consensusRound is a full five-model run: init, five start/complete pairs
// with running price updates, a category, one market source, a terminal
// complete.
func consensusRound(t *testing.T) []Event {
	t.Helper()
	models := []string{"gpt", "claude", "gemini", "grok", "llama"}
	events := []Event{
		{Type: EventInit, Data: rawJSON(t, map[string]interface{}{"models": models, "total": 5})},
		{Type: EventPhase, Data: rawJSON(t, map[string]string{"phase": "consensus"})},
	}
	for i, m := range models {
		events = append(events,
			Event{Type: EventAIStart, Data: rawJSON(t, map[string]string{"model": m})},
			Event{Type: EventAIComplete, Data: rawJSON(t, map[string]interface{}{"model": m, "success": true, "estimated_value": 40 + float64(i)})},
			Event{Type: EventPrice, Data: rawJSON(t, map[string]float64{"estimate": 40 + float64(i), "confidence": 0.6})},
		)
	}
	events = append(events,
		Event{Type: EventCategory, Data: rawJSON(t, map[string]string{"category": "vintage-electronics"})},
		Event{Type: EventPhase, Data: rawJSON(t, map[string]string{"phase": "market_data"})},
		Event{Type: EventAPIStart, Data: rawJSON(t, map[string]string{"source": "ebay"})},
		Event{Type: EventAPIComplete, Data: rawJSON(t, map[string]string{"source": "ebay"})},
		Event{Type: EventComplete, Data: rawJSON(t, map[string]interface{}{"decision": "SELL"})},
	)
	return events
}

func reduceAll(snap Snapshot, events []Event) Snapshot {
	for _, ev := range events {
		snap = Reduce(snap, ev)
	}
	return snap
}

func TestReduce_FullConsensusRound(t *testing.T) {
	snap := reduceAll(NewSnapshot(), consensusRound(t))

	if snap.ModelsTotal != 5 {
		t.Errorf("ModelsTotal = %d, want 5", snap.ModelsTotal)
	}
	if snap.ModelsComplete != 5 {
		t.Errorf("ModelsComplete = %d, want 5", snap.ModelsComplete)
	}
	if len(snap.ModelStatuses) != 5 {
		t.Errorf("tracked models = %d, want 5", len(snap.ModelStatuses))
	}
	for m, st := range snap.ModelStatuses {
		if st != ModelComplete {
			t.Errorf("model %s status = %s, want %s", m, st, ModelComplete)
		}
	}
	if snap.Stage != StageComplete {
		t.Errorf("Stage = %s, want %s", snap.Stage, StageComplete)
	}
	if snap.RunningEstimate != 44 {
		t.Errorf("RunningEstimate = %v, want 44", snap.RunningEstimate)
	}
	if snap.RunningConfidence != 0.6 {
		t.Errorf("RunningConfidence = %v, want 0.6", snap.RunningConfidence)
	}
	if snap.DetectedCategory != "vintage-electronics" {
		t.Errorf("DetectedCategory = %q", snap.DetectedCategory)
	}
	if len(snap.MarketSourceNotes) != 2 {
		t.Errorf("MarketSourceNotes = %v, want 2 notes", snap.MarketSourceNotes)
	}
}

func TestReduce_Deterministic(t *testing.T) {
	events := consensusRound(t)
	first := reduceAll(NewSnapshot(), events)
	second := reduceAll(NewSnapshot(), events)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("replaying the same sequence diverged:\n%+v\n%+v", first, second)
	}
}

func TestReduce_DoesNotMutatePrior(t *testing.T) {
	prior := Reduce(NewSnapshot(), Event{Type: EventInit, Data: rawJSON(t, map[string]interface{}{"models": []string{"gpt"}, "total": 1})})
	before, _ := json.Marshal(prior)

	_ = Reduce(prior, Event{Type: EventAIComplete, Data: rawJSON(t, map[string]string{"model": "gpt"})})
	_ = Reduce(prior, Event{Type: EventAPIStart, Data: rawJSON(t, map[string]string{"source": "ebay"})})

	after, _ := json.Marshal(prior)
	if string(before) != string(after) {
		t.Errorf("prior snapshot mutated:\nbefore %s\nafter  %s", before, after)
	}
}

func TestReduce_IgnoresUnknownAndMalformed(t *testing.T) {
	base := Reduce(NewSnapshot(), Event{Type: EventInit, Data: rawJSON(t, map[string]interface{}{"models": []string{"gpt"}, "total": 1})})

	tests := []struct {
		name string
		ev   Event
	}{
		{"unknown type", Event{Type: "telemetry", Data: rawJSON(t, map[string]int{"x": 1})}},
		{"empty type", Event{Data: rawJSON(t, map[string]int{"x": 1})}},
		{"ai_complete without model", Event{Type: EventAIComplete, Data: rawJSON(t, map[string]bool{"success": true})}},
		{"price with no payload", Event{Type: EventPrice}},
		{"phase with empty label", Event{Type: EventPhase, Data: rawJSON(t, map[string]string{"phase": ""})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reduce(base, tt.ev)
			if !reflect.DeepEqual(got, base) {
				t.Errorf("snapshot changed:\nbefore %+v\nafter  %+v", base, got)
			}
		})
	}
}

func TestReduce_RepeatedCompletionCountsOnce(t *testing.T) {
	snap := Reduce(NewSnapshot(), Event{Type: EventInit, Data: rawJSON(t, map[string]interface{}{"models": []string{"gpt"}, "total": 1})})
	done := Event{Type: EventAIComplete, Data: rawJSON(t, map[string]string{"model": "gpt"})}
	snap = Reduce(snap, done)
	snap = Reduce(snap, done)
	if snap.ModelsComplete != 1 {
		t.Errorf("ModelsComplete = %d, want 1", snap.ModelsComplete)
	}
}

func TestReduce_FailedModelStillCounts(t *testing.T) {
	snap := Reduce(NewSnapshot(), Event{Type: EventInit, Data: rawJSON(t, map[string]interface{}{"models": []string{"gpt", "claude"}, "total": 2})})
	snap = Reduce(snap, Event{Type: EventAIComplete, Data: rawJSON(t, map[string]interface{}{"model": "gpt", "success": false})})

	if snap.ModelStatuses["gpt"] != ModelError {
		t.Errorf("status = %s, want %s", snap.ModelStatuses["gpt"], ModelError)
	}
	if snap.ModelsComplete != 1 {
		t.Errorf("ModelsComplete = %d, want 1", snap.ModelsComplete)
	}
}

func TestReduce_PhaseLabelPassesThrough(t *testing.T) {
	snap := Reduce(NewSnapshot(), Event{Type: EventPhase, Data: rawJSON(t, map[string]string{"phase": "market_data"})})
	if snap.Stage != "market_data" {
		t.Errorf("Stage = %q, want market_data", snap.Stage)
	}
}

func TestReduce_ErrorEventFailsStage(t *testing.T) {
	snap := reduceAll(NewSnapshot(), []Event{
		{Type: EventInit, Data: rawJSON(t, map[string]interface{}{"models": []string{"gpt"}, "total": 1})},
		{Type: EventError, Data: rawJSON(t, map[string]string{"message": "upstream exploded"})},
	})
	if snap.Stage != StageFailed {
		t.Errorf("Stage = %s, want %s", snap.Stage, StageFailed)
	}
}

func TestReduce_InitWithoutTotalFallsBackToRoster(t *testing.T) {
	snap := Reduce(NewSnapshot(), Event{Type: EventInit, Data: rawJSON(t, map[string]interface{}{"models": []string{"a", "b", "c"}})})
	if snap.ModelsTotal != 3 {
		t.Errorf("ModelsTotal = %d, want 3", snap.ModelsTotal)
	}
}

func TestReduce_LargeRoster(t *testing.T) {
	models := make([]string, 50)
	for i := range models {
		models[i] = fmt.Sprintf("model-%02d", i)
	}
	snap := Reduce(NewSnapshot(), Event{Type: EventInit, Data: rawJSON(t, map[string]interface{}{"models": models, "total": 50})})
	for _, m := range models {
		snap = Reduce(snap, Event{Type: EventAIComplete, Data: rawJSON(t, map[string]string{"model": m})})
	}
	if snap.ModelsComplete != 50 {
		t.Errorf("ModelsComplete = %d, want 50", snap.ModelsComplete)
	}
}
