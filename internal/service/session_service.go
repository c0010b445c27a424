package service

import (
	"context"

	"snapvalue-be/internal/dto"
	"snapvalue-be/internal/pkg/logger"
	"snapvalue-be/internal/repository/memory"
	"snapvalue-be/pkg/analysis"
	"snapvalue-be/pkg/capture"
	"snapvalue-be/pkg/lifecycle"
	"snapvalue-be/pkg/store"

	"github.com/google/uuid"
)

type ISessionService interface {
	Create(ctx context.Context, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	Resolve(ctx context.Context, id uuid.UUID) (*store.Session, error)
	Status(ctx context.Context, id uuid.UUID) (*dto.SessionStatusResponse, error)
	Delete(ctx context.Context, id uuid.UUID) (*dto.CloseSessionResponse, error)
	Count() int
}

type sessionService struct {
	repo         *memory.SessionRepository
	client       *analysis.Client
	compressor   *capture.Compressor
	defaultItems int
	pipelineCfg  analysis.PipelineConfig
	events       lifecycle.Publisher
	logger       logger.ILogger
}

func NewSessionService(
	repo *memory.SessionRepository,
	client *analysis.Client,
	compressor *capture.Compressor,
	defaultItems int,
	pipelineCfg analysis.PipelineConfig,
	events lifecycle.Publisher,
	log logger.ILogger,
) ISessionService {
	return &sessionService{
		repo:         repo,
		client:       client,
		compressor:   compressor,
		defaultItems: defaultItems,
		pipelineCfg:  pipelineCfg,
		events:       events,
		logger:       log,
	}
}

// Create builds a session with its own batch store and pipeline. The
// compressor and upstream client are shared: both are stateless.
func (s *sessionService) Create(ctx context.Context, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	maxItems := s.defaultItems
	if req != nil && req.MaxItems != nil {
		maxItems = *req.MaxItems
	}

	batch := capture.NewStore(maxItems, s.compressor, s.logger)
	pipeline, err := analysis.NewPipeline(s.client, s.compressor, s.pipelineCfg, s.logger)
	if err != nil {
		return nil, err
	}

	session := store.NewSession(batch, pipeline)
	s.repo.Save(session)

	s.events.PublishSessionCreated(ctx, session.ID)
	s.logger.Info("SessionService", "Capture session created", map[string]interface{}{
		"session_id": session.ID,
		"max_items":  maxItems,
	})

	return &dto.CreateSessionResponse{
		Id:        session.ID,
		CreatedAt: session.CreatedAt,
		MaxItems:  maxItems,
	}, nil
}

func (s *sessionService) Resolve(ctx context.Context, id uuid.UUID) (*store.Session, error) {
	session, ok := s.repo.Get(id)
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	return session, nil
}

func (s *sessionService) Status(ctx context.Context, id uuid.UUID) (*dto.SessionStatusResponse, error) {
	session, err := s.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.SessionStatusResponse{
		Id:            session.ID,
		CreatedAt:     session.CreatedAt,
		ItemCount:     session.Batch.Count(),
		SelectedCount: session.Batch.SelectedCount(),
		MaxItems:      session.Batch.MaxItems(),
		AnalysisState: string(session.Pipeline.State()),
	}, nil
}

// Delete removes the session. The repository's eviction hook cancels any
// submission still in flight.
func (s *sessionService) Delete(ctx context.Context, id uuid.UUID) (*dto.CloseSessionResponse, error) {
	if _, err := s.Resolve(ctx, id); err != nil {
		return nil, err
	}
	s.repo.Delete(id)

	s.events.PublishSessionClosed(ctx, id)
	s.logger.Info("SessionService", "Capture session closed", map[string]interface{}{"session_id": id})

	return &dto.CloseSessionResponse{Id: id}, nil
}

func (s *sessionService) Count() int {
	return s.repo.Count()
}
