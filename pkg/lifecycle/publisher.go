package lifecycle

import (
	"context"
	"encoding/json"
	"time"

	"snapvalue-be/internal/pkg/logger"
	pkgEvents "snapvalue-be/pkg/events"

	"github.com/google/uuid"
)

// Event type codes emitted on the lifecycle feed.
const (
	TypeSessionCreated    = "SESSION_CREATED"
	TypeSessionClosed     = "SESSION_CLOSED"
	TypeStreamActivated   = "STREAM_ACTIVATED"
	TypeStreamDeactivated = "STREAM_DEACTIVATED"
	TypeDeviceSwitched    = "DEVICE_SWITCHED"
	TypeItemCaptured      = "ITEM_CAPTURED"
	TypeItemRemoved       = "ITEM_REMOVED"
	TypeBatchCleared      = "BATCH_CLEARED"
	TypeAnalysisSubmitted = "ANALYSIS_SUBMITTED"
	TypeAnalysisCompleted = "ANALYSIS_COMPLETED"
	TypeAnalysisFailed    = "ANALYSIS_FAILED"
	TypeAnalysisCancelled = "ANALYSIS_CANCELLED"
)

// Sink is where encoded lifecycle events go. In production this is the
// in-process bus; the consumer on the other side forwards to NATS.
type Sink interface {
	Publish(ctx context.Context, payload []byte) error
}

// Publisher abstracts lifecycle event publishing for the capture workflow.
// Implementations never fail the calling operation; publishing is auxiliary.
type Publisher interface {
	PublishSessionCreated(ctx context.Context, sessionID uuid.UUID)
	PublishSessionClosed(ctx context.Context, sessionID uuid.UUID)
	PublishStreamActivated(ctx context.Context, deviceID, trackID string)
	PublishStreamDeactivated(ctx context.Context, deviceID string)
	PublishDeviceSwitched(ctx context.Context, fromDeviceID, toDeviceID string)
	PublishItemCaptured(ctx context.Context, sessionID, itemID uuid.UUID, kind string, originalBytes, storedBytes int)
	PublishItemRemoved(ctx context.Context, sessionID, itemID uuid.UUID)
	PublishBatchCleared(ctx context.Context, sessionID uuid.UUID, removed int)
	PublishAnalysisSubmitted(ctx context.Context, sessionID uuid.UUID, items int)
	PublishAnalysisCompleted(ctx context.Context, sessionID uuid.UUID, resultID, decision string, estimatedValue float64)
	PublishAnalysisFailed(ctx context.Context, sessionID uuid.UUID, reason string)
	PublishAnalysisCancelled(ctx context.Context, sessionID uuid.UUID)
}

// BusPublisher implements Publisher over the in-process bus.
type BusPublisher struct {
	sink   Sink
	logger logger.ILogger
}

func NewBusPublisher(sink Sink, logger logger.ILogger) *BusPublisher {
	return &BusPublisher{
		sink:   sink,
		logger: logger,
	}
}

func (p *BusPublisher) emit(ctx context.Context, eventType string, data map[string]interface{}) {
	if p.sink == nil {
		return
	}

	evt := pkgEvents.BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		p.logger.Error("LIFECYCLE", "Failed to encode "+eventType+" event", map[string]interface{}{"error": err.Error()})
		return
	}

	if err := p.sink.Publish(ctx, payload); err != nil {
		p.logger.Error("LIFECYCLE", "Failed to publish "+eventType+" event", map[string]interface{}{"error": err.Error()})
	}
}

func (p *BusPublisher) PublishSessionCreated(ctx context.Context, sessionID uuid.UUID) {
	p.emit(ctx, TypeSessionCreated, map[string]interface{}{
		"session_id": sessionID,
	})
}

func (p *BusPublisher) PublishSessionClosed(ctx context.Context, sessionID uuid.UUID) {
	p.emit(ctx, TypeSessionClosed, map[string]interface{}{
		"session_id": sessionID,
	})
}

func (p *BusPublisher) PublishStreamActivated(ctx context.Context, deviceID, trackID string) {
	p.emit(ctx, TypeStreamActivated, map[string]interface{}{
		"device_id": deviceID,
		"track_id":  trackID,
	})
}

func (p *BusPublisher) PublishStreamDeactivated(ctx context.Context, deviceID string) {
	p.emit(ctx, TypeStreamDeactivated, map[string]interface{}{
		"device_id": deviceID,
	})
}

func (p *BusPublisher) PublishDeviceSwitched(ctx context.Context, fromDeviceID, toDeviceID string) {
	p.emit(ctx, TypeDeviceSwitched, map[string]interface{}{
		"from_device_id": fromDeviceID,
		"to_device_id":   toDeviceID,
	})
}

func (p *BusPublisher) PublishItemCaptured(ctx context.Context, sessionID, itemID uuid.UUID, kind string, originalBytes, storedBytes int) {
	p.emit(ctx, TypeItemCaptured, map[string]interface{}{
		"session_id":     sessionID,
		"item_id":        itemID,
		"kind":           kind,
		"original_bytes": originalBytes,
		"stored_bytes":   storedBytes,
		"entity_type":    "capture_item",
		"entity_id":      itemID.String(),
	})
}

func (p *BusPublisher) PublishItemRemoved(ctx context.Context, sessionID, itemID uuid.UUID) {
	p.emit(ctx, TypeItemRemoved, map[string]interface{}{
		"session_id":  sessionID,
		"item_id":     itemID,
		"entity_type": "capture_item",
		"entity_id":   itemID.String(),
	})
}

func (p *BusPublisher) PublishBatchCleared(ctx context.Context, sessionID uuid.UUID, removed int) {
	p.emit(ctx, TypeBatchCleared, map[string]interface{}{
		"session_id": sessionID,
		"removed":    removed,
	})
}

func (p *BusPublisher) PublishAnalysisSubmitted(ctx context.Context, sessionID uuid.UUID, items int) {
	p.emit(ctx, TypeAnalysisSubmitted, map[string]interface{}{
		"session_id": sessionID,
		"items":      items,
	})
}

func (p *BusPublisher) PublishAnalysisCompleted(ctx context.Context, sessionID uuid.UUID, resultID, decision string, estimatedValue float64) {
	p.emit(ctx, TypeAnalysisCompleted, map[string]interface{}{
		"session_id":      sessionID,
		"result_id":       resultID,
		"decision":        decision,
		"estimated_value": estimatedValue,
		"entity_type":     "valuation",
		"entity_id":       resultID,
	})
}

func (p *BusPublisher) PublishAnalysisFailed(ctx context.Context, sessionID uuid.UUID, reason string) {
	p.emit(ctx, TypeAnalysisFailed, map[string]interface{}{
		"session_id": sessionID,
		"reason":     reason,
	})
}

func (p *BusPublisher) PublishAnalysisCancelled(ctx context.Context, sessionID uuid.UUID) {
	p.emit(ctx, TypeAnalysisCancelled, map[string]interface{}{
		"session_id": sessionID,
	})
}
