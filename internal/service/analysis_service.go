package service

import (
	"context"
	"errors"

	"snapvalue-be/internal/dto"
	"snapvalue-be/internal/pkg/logger"
	"snapvalue-be/pkg/analysis"
	"snapvalue-be/pkg/lifecycle"
	"snapvalue-be/pkg/store"

	"github.com/google/uuid"
)

// ProgressDelivery defines how to push real-time updates.
// Typically implemented by the WebSocket Hub.
type ProgressDelivery interface {
	SendProgress(sessionID uuid.UUID, snapshot analysis.Snapshot)
	SendResult(sessionID uuid.UUID, result *analysis.ConsensusResult)
	SendFailure(sessionID uuid.UUID, message string)
	BroadcastCamera(payload interface{})
}

type IAnalysisService interface {
	Submit(ctx context.Context, sessionId uuid.UUID, req *dto.SubmitAnalysisRequest) (*dto.SubmitAnalysisResponse, error)
	Cancel(ctx context.Context, sessionId uuid.UUID) (*dto.CancelAnalysisResponse, error)
	Progress(ctx context.Context, sessionId uuid.UUID) (*dto.ProgressResponse, error)
	Result(ctx context.Context, sessionId uuid.UUID) (*dto.AnalysisResultResponse, error)
}

type analysisService struct {
	sessions  ISessionService
	authToken string
	delivery  ProgressDelivery
	events    lifecycle.Publisher
	logger    logger.ILogger
}

func NewAnalysisService(
	sessions ISessionService,
	authToken string,
	delivery ProgressDelivery,
	events lifecycle.Publisher,
	log logger.ILogger,
) IAnalysisService {
	return &analysisService{
		sessions:  sessions,
		authToken: authToken,
		delivery:  delivery,
		events:    events,
		logger:    log,
	}
}

// Submit validates the submission synchronously, then runs the pipeline on a
// worker goroutine. Progress flows through the session projector out to the
// websocket hub; the terminal outcome is stored on the session.
func (s *analysisService) Submit(ctx context.Context, sessionId uuid.UUID, req *dto.SubmitAnalysisRequest) (*dto.SubmitAnalysisResponse, error) {
	session, err := s.sessions.Resolve(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	jobReq, err := s.buildRequest(session, req)
	if err != nil {
		return nil, err
	}

	session.BeginRun()
	s.delivery.SendProgress(sessionId, session.Progress())
	s.events.PublishAnalysisSubmitted(ctx, sessionId, len(jobReq.Items))
	s.logger.Info("AnalysisService", "Submission accepted", map[string]interface{}{
		"session_id": sessionId,
		"items":      len(jobReq.Items),
	})

	go s.run(session, sessionId, jobReq)

	return &dto.SubmitAnalysisResponse{
		SessionId: sessionId,
		State:     string(analysis.StatePreparing),
		ItemCount: len(jobReq.Items),
	}, nil
}

// buildRequest snapshots the selected items and re-checks the pipeline
// preconditions so callers get an immediate 4xx instead of a deferred
// failure frame.
func (s *analysisService) buildRequest(session *store.Session, req *dto.SubmitAnalysisRequest) (analysis.JobRequest, error) {
	items := session.Batch.SelectedSnapshot()
	if len(items) == 0 {
		return analysis.JobRequest{}, analysis.ErrNoSelection
	}
	if s.authToken == "" {
		return analysis.JobRequest{}, analysis.ErrNoAuth
	}

	jobItems := make([]analysis.JobItem, 0, len(items))
	for _, item := range items {
		jobItems = append(jobItems, analysis.JobItem{
			ID:            item.ID.String(),
			Kind:          string(item.Kind),
			DisplayName:   item.DisplayName,
			Data:          item.Data,
			DocumentKind:  item.Metadata.DocumentKind,
			ExtractedText: item.Metadata.ExtractedText,
			Barcodes:      item.Metadata.Barcodes,
		})
	}

	var enrichment *analysis.Enrichment
	if req.Enrichment != nil {
		enrichment = &analysis.Enrichment{
			LocationCoordinates: req.Enrichment.LocationCoordinates,
			StoreDescriptor:     req.Enrichment.StoreDescriptor,
			ShelfPrice:          req.Enrichment.ShelfPrice,
			HandlingTimeHours:   req.Enrichment.HandlingTimeHours,
		}
		if !enrichment.Complete() {
			return analysis.JobRequest{}, analysis.ErrIncompleteEnrichment
		}
	}

	return analysis.JobRequest{
		Items:         jobItems,
		CategoryID:    req.CategoryId,
		SubcategoryID: req.SubcategoryId,
		Enrichment:    enrichment,
		AuthToken:     s.authToken,
	}, nil
}

// run drives one submission to its terminal state. It deliberately uses a
// background context: the HTTP request that started the run has long since
// returned, and cancellation goes through Pipeline.Cancel.
func (s *analysisService) run(session *store.Session, sessionId uuid.UUID, jobReq analysis.JobRequest) {
	ctx := context.Background()

	onEvent := func(ev analysis.Event) {
		snapshot := session.ApplyEvent(ev)
		s.delivery.SendProgress(sessionId, snapshot)
	}

	result, err := session.Pipeline.Submit(ctx, &jobReq, onEvent)
	session.FinishRun(result, err)

	switch {
	case err == nil:
		s.delivery.SendResult(sessionId, result)
		s.events.PublishAnalysisCompleted(ctx, sessionId, result.ID, result.Decision, result.EstimatedValue)
		s.logger.Info("AnalysisService", "Submission complete", map[string]interface{}{
			"session_id": sessionId,
			"decision":   result.Decision,
			"votes":      len(result.Votes),
		})
	case errors.Is(err, analysis.ErrCancelled):
		s.events.PublishAnalysisCancelled(ctx, sessionId)
		s.logger.Info("AnalysisService", "Submission cancelled", map[string]interface{}{"session_id": sessionId})
	default:
		s.delivery.SendFailure(sessionId, err.Error())
		s.events.PublishAnalysisFailed(ctx, sessionId, err.Error())
		s.logger.Error("AnalysisService", "Submission failed", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
	}
}

func (s *analysisService) Cancel(ctx context.Context, sessionId uuid.UUID) (*dto.CancelAnalysisResponse, error) {
	session, err := s.sessions.Resolve(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	session.Pipeline.Cancel()
	return &dto.CancelAnalysisResponse{
		SessionId: sessionId,
		State:     string(session.Pipeline.State()),
	}, nil
}

func (s *analysisService) Progress(ctx context.Context, sessionId uuid.UUID) (*dto.ProgressResponse, error) {
	session, err := s.sessions.Resolve(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	return &dto.ProgressResponse{
		State:         string(session.Pipeline.State()),
		EventsApplied: session.EventsApplied(),
		Snapshot:      session.Progress(),
	}, nil
}

// Result returns the stored terminal outcome. A failed run surfaces its
// original error so the HTTP layer maps it the same way a synchronous
// failure would have been.
func (s *analysisService) Result(ctx context.Context, sessionId uuid.UUID) (*dto.AnalysisResultResponse, error) {
	session, err := s.sessions.Resolve(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	outcome, ok := session.Outcome()
	if !ok {
		return nil, store.ErrRunNotFinished
	}
	if outcome.Err != nil {
		return nil, outcome.Err
	}
	return &dto.AnalysisResultResponse{
		Result:     outcome.Result,
		FinishedAt: outcome.FinishedAt,
	}, nil
}
