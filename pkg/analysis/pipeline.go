package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"snapvalue-be/internal/pkg/logger"
)

// Submission states, in protocol order. Fallback is only entered when
// streaming dies without a terminal event; from the caller's side the two
// paths are indistinguishable.
type State string

const (
	StateIdle        State = "idle"
	StatePreparing   State = "preparing"
	StateCompressing State = "compressing"
	StateStreaming   State = "streaming"
	StateFallback    State = "fallback"
	StateNormalizing State = "normalizing"
	StateComplete    State = "complete"
	StateCancelled   State = "cancelled"
	StateErrored     State = "errored"
)

var (
	ErrNoSelection          = errors.New("analysis: no items selected")
	ErrNoAuth               = errors.New("analysis: missing auth context")
	ErrIncompleteEnrichment = errors.New("analysis: enrichment details incomplete")
	ErrCancelled            = errors.New("analysis: submission cancelled")
)

// JobError is a terminal failure reported by the backend itself, as opposed
// to a transport problem reaching it.
type JobError struct {
	Message string `json:"message"`
}

func (e *JobError) Error() string {
	return "analysis job failed: " + e.Message
}

// Shrinker is the second-pass compressor applied to items that still exceed
// the upload ceiling at submission time. capture.Compressor satisfies it.
type Shrinker interface {
	Shrink(data []byte, ceilingBytes int) ([]byte, error)
}

// PipelineConfig bounds one submission.
type PipelineConfig struct {
	// UploadCeilingBytes triggers second-pass compression per item.
	UploadCeilingBytes int
	// StreamTimeout caps the whole streaming phase.
	StreamTimeout time.Duration
	// IdleTimeout caps the wait between consecutive events.
	IdleTimeout time.Duration
}

func (c *PipelineConfig) applyDefaults() {
	if c.UploadCeilingBytes <= 0 {
		c.UploadCeilingBytes = 1 << 20
	}
	if c.StreamTimeout <= 0 {
		c.StreamTimeout = 120 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 30 * time.Second
	}
}

// Pipeline drives valuation submissions through the full protocol: prepare,
// compress, stream (or fall back to one blocking request), normalize. One
// submission is in flight at a time; starting a new one implicitly cancels
// its predecessor.
type Pipeline struct {
	client   *Client
	shrinker Shrinker
	cfg      PipelineConfig
	logger   logger.ILogger

	mu     sync.Mutex
	cancel context.CancelFunc
	seq    uint64
	state  State
}

func NewPipeline(client *Client, shrinker Shrinker, cfg PipelineConfig, log logger.ILogger) (*Pipeline, error) {
	if client == nil {
		return nil, fmt.Errorf("analysis pipeline requires a client")
	}
	cfg.applyDefaults()
	return &Pipeline{client: client, shrinker: shrinker, cfg: cfg, logger: log, state: StateIdle}, nil
}

// State reports the current submission state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Cancel aborts the in-flight submission, if any. The submission goroutine
// observes the cancellation at its next step and discards everything that
// arrives afterwards.
func (p *Pipeline) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
}

// Submit runs one submission to completion and returns the normalized
// result. onEvent observes every applied progress event in stream order; on
// the fallback path it sees a single synthesized "analyzing" transition. It
// is called from the submission's own goroutine and must not block for long.
func (p *Pipeline) Submit(ctx context.Context, req *JobRequest, onEvent func(Event)) (*ConsensusResult, error) {
	if onEvent == nil {
		onEvent = func(Event) {}
	}
	subCtx, id := p.begin(ctx)

	emit := func(ev Event) {
		// Nothing mutates observer state once the submission is cancelled.
		if subCtx.Err() == nil {
			onEvent(ev)
		}
	}

	result, err := p.run(subCtx, id, req, emit)
	switch {
	case err == nil:
		p.finish(id, StateComplete)
	case errors.Is(err, ErrCancelled):
		p.finish(id, StateCancelled)
	default:
		p.finish(id, StateErrored)
	}
	return result, err
}

func (p *Pipeline) run(subCtx context.Context, id uint64, req *JobRequest, emit func(Event)) (*ConsensusResult, error) {
	// Preparing: validate before spending anything.
	if len(req.Items) == 0 {
		return nil, ErrNoSelection
	}
	if req.AuthToken == "" {
		return nil, ErrNoAuth
	}
	if req.Enrichment != nil && !req.Enrichment.Complete() {
		return nil, ErrIncompleteEnrichment
	}
	if subCtx.Err() != nil {
		return nil, ErrCancelled
	}
	p.logger.Info("Analysis", "Submission started", map[string]interface{}{
		"submission": id,
		"items":      len(req.Items),
	})

	// Compressing: per-item safety net over the store's first pass.
	p.setState(id, StateCompressing)
	p.shrinkOversized(subCtx, req)
	if subCtx.Err() != nil {
		return nil, ErrCancelled
	}

	// Streaming.
	p.setState(id, StateStreaming)
	raw, streamErr := p.stream(subCtx, req, emit)
	if subCtx.Err() != nil {
		return nil, ErrCancelled
	}
	if streamErr != nil {
		var tooLarge *PayloadTooLargeError
		var jobErr *JobError
		switch {
		case errors.As(streamErr, &tooLarge):
			// Actionable for the caller; the same body would be rejected
			// again, so no fallback.
			return nil, streamErr
		case errors.As(streamErr, &jobErr):
			// The stream worked and the backend said the job failed. That is
			// a terminal answer, not a reason to retry over HTTP.
			return nil, streamErr
		}

		// Fallback: the stream died without a terminal event. Transparent to
		// the caller apart from coarser progress.
		p.setState(id, StateFallback)
		p.logger.Warn("Analysis", "Streaming unavailable, using blocking request", map[string]interface{}{
			"submission": id,
			"error":      streamErr.Error(),
		})
		emit(Event{Type: EventPhase, Data: json.RawMessage(`{"phase":"analyzing"}`)})
		var err error
		raw, err = p.client.Analyze(subCtx, req)
		if subCtx.Err() != nil {
			return nil, ErrCancelled
		}
		if err != nil {
			if errors.As(err, &tooLarge) {
				return nil, err
			}
			return nil, fmt.Errorf("analysis fallback failed: %w", err)
		}
	}

	// Normalizing: total, so this phase cannot fail.
	p.setState(id, StateNormalizing)
	result := Normalize(raw)
	if subCtx.Err() != nil {
		// Cancelled between the response arriving and the result committing:
		// the late response is discarded.
		return nil, ErrCancelled
	}
	p.logger.Info("Analysis", "Submission complete", map[string]interface{}{
		"submission": id,
		"decision":   result.Decision,
		"votes":      len(result.Votes),
	})
	return result, nil
}

// stream reads events until a terminal one. A complete event returns the raw
// result; an error event returns a JobError. Every other failure mode
// (connect, mid-stream drop, stream or idle timeout, EOF without terminal)
// returns a plain error, which Submit treats as the fallback trigger.
func (p *Pipeline) stream(ctx context.Context, req *JobRequest, emit func(Event)) ([]byte, error) {
	streamCtx, cancel := context.WithTimeout(ctx, p.cfg.StreamTimeout)
	defer cancel()

	es, err := p.client.OpenStream(streamCtx, req)
	if err != nil {
		return nil, err
	}
	defer es.Close()

	// A stalled stream is as dead as a closed one; the idle watchdog turns
	// silence into a read error.
	idle := time.AfterFunc(p.cfg.IdleTimeout, cancel)
	defer idle.Stop()

	for {
		ev, err := es.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("event stream ended without a terminal event (skipped %d malformed frames)", es.Skipped())
			}
			return nil, fmt.Errorf("event stream read: %w", err)
		}
		idle.Reset(p.cfg.IdleTimeout)

		emit(ev)
		switch ev.Type {
		case EventComplete:
			return ev.Data, nil
		case EventError:
			msg := "unspecified failure"
			if d, ok := ev.ErrorInfo(); ok {
				msg = d.Message
			}
			return nil, &JobError{Message: msg}
		}
	}
}

func (p *Pipeline) shrinkOversized(ctx context.Context, req *JobRequest) {
	if p.shrinker == nil {
		return
	}
	for i := range req.Items {
		if ctx.Err() != nil {
			return
		}
		item := &req.Items[i]
		if len(item.Data) <= p.cfg.UploadCeilingBytes {
			continue
		}
		shrunk, err := p.shrinker.Shrink(item.Data, p.cfg.UploadCeilingBytes)
		if err != nil {
			// Ship as captured; the backend's payload check has final say.
			p.logger.Warn("Analysis", "Second-pass compression failed", map[string]interface{}{
				"item":  item.ID,
				"error": err.Error(),
			})
			continue
		}
		item.Data = shrunk
	}
}

// begin registers a new submission, cancelling whichever one was in flight.
func (p *Pipeline) begin(ctx context.Context) (context.Context, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
	subCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.seq++
	p.state = StatePreparing
	return subCtx, p.seq
}

// setState records progress for the given submission only; a superseded
// submission can no longer move the state.
func (p *Pipeline) setState(id uint64, s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seq == id {
		p.state = s
	}
}

func (p *Pipeline) finish(id uint64, s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seq != id {
		return
	}
	p.state = s
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}
