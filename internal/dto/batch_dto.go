package dto

import (
	"time"

	"github.com/google/uuid"
)

type UploadItemRequest struct {
	Kind        string `json:"kind" validate:"required,oneof=photo video document"`
	DisplayName string `json:"display_name"`
	// Data is the raw capture, base64 encoded
	Data string `json:"data" validate:"required,base64"`
	// Optional document annotations
	DocumentKind  string   `json:"document_kind"`
	ExtractedText string   `json:"extracted_text"`
	Barcodes      []string `json:"barcodes"`
}

type ItemResponse struct {
	Id            uuid.UUID `json:"id"`
	Kind          string    `json:"kind"`
	DisplayName   string    `json:"display_name"`
	Selected      bool      `json:"selected"`
	OriginalBytes int       `json:"original_bytes"`
	StoredBytes   int       `json:"stored_bytes"`
	CreatedAt     time.Time `json:"created_at"`
}

type ListItemsResponse struct {
	Items         []ItemResponse `json:"items"`
	SelectedCount int            `json:"selected_count"`
	MaxItems      int            `json:"max_items"`
}

type ToggleSelectionResponse struct {
	Id       uuid.UUID `json:"id"`
	Selected bool      `json:"selected"`
}

type SetSelectionRequest struct {
	// All true selects every item, false deselects every item
	All *bool `json:"all" validate:"required"`
}

type SetSelectionResponse struct {
	SelectedCount int `json:"selected_count"`
}
