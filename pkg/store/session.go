package store

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"snapvalue-be/pkg/analysis"
	"snapvalue-be/pkg/capture"
)

var (
	ErrSessionNotFound = errors.New("capture session not found")
	// ErrRunNotFinished is returned when a terminal outcome is requested
	// before any submission has finished.
	ErrRunNotFinished = errors.New("no finished analysis run for session")
)

// RunOutcome is the terminal state of one valuation submission.
type RunOutcome struct {
	Result     *analysis.ConsensusResult `json:"result,omitempty"`
	Err        error                     `json:"-"`
	FinishedAt time.Time                 `json:"finished_at"`
}

// Session is one operator's capture-and-value workflow held in memory: the
// capture batch, the submission pipeline and the projected progress of the
// current run. The camera itself is process-wide and deliberately not here.
type Session struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Batch    *capture.Store     `json:"-"`
	Pipeline *analysis.Pipeline `json:"-"`

	mu       sync.Mutex
	snapshot analysis.Snapshot
	applied  int
	outcome  *RunOutcome
}

func NewSession(batch *capture.Store, pipeline *analysis.Pipeline) *Session {
	return &Session{
		ID:        uuid.New(),
		CreatedAt: time.Now(),
		Batch:     batch,
		Pipeline:  pipeline,
		snapshot:  analysis.NewSnapshot(),
	}
}

// ApplyEvent folds one progress event into the session snapshot and returns
// the updated copy. Events of a single run arrive on one goroutine; the lock
// is for readers polling concurrently.
func (s *Session) ApplyEvent(ev analysis.Event) analysis.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = analysis.Reduce(s.snapshot, ev)
	s.applied++
	return s.snapshot
}

// Progress returns the current projected snapshot.
func (s *Session) Progress() analysis.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// EventsApplied reports how many events the current run has folded in.
func (s *Session) EventsApplied() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied
}

// BeginRun clears progress and outcome for a fresh submission.
func (s *Session) BeginRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = analysis.NewSnapshot()
	s.applied = 0
	s.outcome = nil
}

// FinishRun records the submission's terminal state.
func (s *Session) FinishRun(result *analysis.ConsensusResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcome = &RunOutcome{Result: result, Err: err, FinishedAt: time.Now()}
}

// Outcome returns the terminal state of the last run, if it finished.
func (s *Session) Outcome() (RunOutcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome == nil {
		return RunOutcome{}, false
	}
	return *s.outcome, true
}
