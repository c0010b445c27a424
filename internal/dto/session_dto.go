package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateSessionRequest struct {
	// MaxItems overrides the default batch capacity for this session
	MaxItems *int `json:"max_items" validate:"omitempty,min=1,max=50"`
}

type CreateSessionResponse struct {
	Id        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	MaxItems  int       `json:"max_items"`
}

type CloseSessionResponse struct {
	Id uuid.UUID `json:"id"`
}

type SessionStatusResponse struct {
	Id            uuid.UUID `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	ItemCount     int       `json:"item_count"`
	SelectedCount int       `json:"selected_count"`
	MaxItems      int       `json:"max_items"`
	AnalysisState string    `json:"analysis_state"`
}
