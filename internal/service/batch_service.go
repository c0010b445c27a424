package service

import (
	"context"
	"encoding/base64"
	"fmt"

	"snapvalue-be/internal/dto"
	"snapvalue-be/internal/pkg/logger"
	"snapvalue-be/pkg/capture"
	"snapvalue-be/pkg/lifecycle"

	"github.com/google/uuid"
)

type IBatchService interface {
	Upload(ctx context.Context, sessionId uuid.UUID, req *dto.UploadItemRequest) (*dto.ItemResponse, error)
	Remove(ctx context.Context, sessionId, itemId uuid.UUID) error
	ToggleSelection(ctx context.Context, sessionId, itemId uuid.UUID) (*dto.ToggleSelectionResponse, error)
	SetSelection(ctx context.Context, sessionId uuid.UUID, req *dto.SetSelectionRequest) (*dto.SetSelectionResponse, error)
	Clear(ctx context.Context, sessionId uuid.UUID) error
	List(ctx context.Context, sessionId uuid.UUID) (*dto.ListItemsResponse, error)
}

type batchService struct {
	sessions ISessionService
	events   lifecycle.Publisher
	logger   logger.ILogger
}

func NewBatchService(sessions ISessionService, events lifecycle.Publisher, log logger.ILogger) IBatchService {
	return &batchService{
		sessions: sessions,
		events:   events,
		logger:   log,
	}
}

// Upload stores a client-provided capture (gallery import, document scan)
// in the session batch.
func (s *batchService) Upload(ctx context.Context, sessionId uuid.UUID, req *dto.UploadItemRequest) (*dto.ItemResponse, error) {
	session, err := s.sessions.Resolve(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return nil, fmt.Errorf("decode item data: %w", err)
	}

	item, err := session.Batch.Add(ctx, capture.Draft{
		Kind:        capture.ItemKind(req.Kind),
		Data:        data,
		DisplayName: req.DisplayName,
		Metadata: capture.Metadata{
			DocumentKind:  req.DocumentKind,
			ExtractedText: req.ExtractedText,
			Barcodes:      req.Barcodes,
		},
	})
	if err != nil {
		return nil, err
	}

	s.events.PublishItemCaptured(ctx, sessionId, item.ID, string(item.Kind),
		item.Metadata.OriginalByteSize, item.Metadata.CompressedByteSize)
	s.logger.Info("BatchService", "Item uploaded", map[string]interface{}{
		"session_id": sessionId,
		"item_id":    item.ID,
		"kind":       string(item.Kind),
	})

	return itemResponse(item), nil
}

func (s *batchService) Remove(ctx context.Context, sessionId, itemId uuid.UUID) error {
	session, err := s.sessions.Resolve(ctx, sessionId)
	if err != nil {
		return err
	}
	if err := session.Batch.Remove(itemId); err != nil {
		return err
	}
	s.events.PublishItemRemoved(ctx, sessionId, itemId)
	return nil
}

func (s *batchService) ToggleSelection(ctx context.Context, sessionId, itemId uuid.UUID) (*dto.ToggleSelectionResponse, error) {
	session, err := s.sessions.Resolve(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	selected, err := session.Batch.ToggleSelection(itemId)
	if err != nil {
		return nil, err
	}
	return &dto.ToggleSelectionResponse{Id: itemId, Selected: selected}, nil
}

func (s *batchService) SetSelection(ctx context.Context, sessionId uuid.UUID, req *dto.SetSelectionRequest) (*dto.SetSelectionResponse, error) {
	session, err := s.sessions.Resolve(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if *req.All {
		session.Batch.SelectAll()
	} else {
		session.Batch.DeselectAll()
	}
	return &dto.SetSelectionResponse{SelectedCount: session.Batch.SelectedCount()}, nil
}

func (s *batchService) Clear(ctx context.Context, sessionId uuid.UUID) error {
	session, err := s.sessions.Resolve(ctx, sessionId)
	if err != nil {
		return err
	}
	removed := session.Batch.Count()
	session.Batch.Clear()
	s.events.PublishBatchCleared(ctx, sessionId, removed)
	s.logger.Info("BatchService", "Batch cleared", map[string]interface{}{
		"session_id": sessionId,
		"removed":    removed,
	})
	return nil
}

func (s *batchService) List(ctx context.Context, sessionId uuid.UUID) (*dto.ListItemsResponse, error) {
	session, err := s.sessions.Resolve(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	items := session.Batch.Items()
	out := make([]dto.ItemResponse, 0, len(items))
	for i := range items {
		out = append(out, *itemResponse(&items[i]))
	}
	return &dto.ListItemsResponse{
		Items:         out,
		SelectedCount: session.Batch.SelectedCount(),
		MaxItems:      session.Batch.MaxItems(),
	}, nil
}

func itemResponse(item *capture.Item) *dto.ItemResponse {
	return &dto.ItemResponse{
		Id:            item.ID,
		Kind:          string(item.Kind),
		DisplayName:   item.DisplayName,
		Selected:      item.Selected,
		OriginalBytes: item.Metadata.OriginalByteSize,
		StoredBytes:   item.Metadata.CompressedByteSize,
		CreatedAt:     item.CreatedAt,
	}
}
