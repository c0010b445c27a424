package dto

import (
	"time"

	"snapvalue-be/pkg/analysis"

	"github.com/google/uuid"
)

// EnrichmentRequest carries the optional seller context. The all-or-nothing
// rule is enforced downstream so a partial block maps to 422, not 400.
type EnrichmentRequest struct {
	LocationCoordinates string  `json:"location_coordinates"`
	StoreDescriptor     string  `json:"store_descriptor"`
	ShelfPrice          float64 `json:"shelf_price" validate:"omitempty,gt=0"`
	HandlingTimeHours   int     `json:"handling_time_hours" validate:"omitempty,gt=0"`
}

type SubmitAnalysisRequest struct {
	CategoryId    string             `json:"category_id" validate:"required"`
	SubcategoryId string             `json:"subcategory_id"`
	Enrichment    *EnrichmentRequest `json:"enrichment"`
}

type SubmitAnalysisResponse struct {
	SessionId uuid.UUID `json:"session_id"`
	State     string    `json:"state"`
	ItemCount int       `json:"item_count"`
}

type CancelAnalysisResponse struct {
	SessionId uuid.UUID `json:"session_id"`
	State     string    `json:"state"`
}

type ProgressResponse struct {
	State         string            `json:"state"`
	EventsApplied int               `json:"events_applied"`
	Snapshot      analysis.Snapshot `json:"snapshot"`
}

type AnalysisResultResponse struct {
	Result     *analysis.ConsensusResult `json:"result"`
	FinishedAt time.Time                 `json:"finished_at"`
}
